package app

import "errors"

// ErrNotFound and related errors describe store and request failures.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("name already exists")
	ErrNoQuery   = errors.New("query is required")
	ErrNoName    = errors.New("name is required")
)
