package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidWindow    = errors.New("invalid analysis window")
	ErrInvalidCalendar  = errors.New("invalid business calendar")
	ErrInvalidPattern   = errors.New("invalid transition pattern")
	ErrSegmentInvariant = errors.New("segment invariant violated")
)

// MalformedEntryError marks one unparsable history entry. The entry is
// skipped and the error surfaced as a warning on the issue's result; it is
// never fatal to the batch.
type MalformedEntryError struct {
	Created string
	Err     error
}

func (e *MalformedEntryError) Error() string {
	return fmt.Sprintf("malformed history entry %q: %v", e.Created, e.Err)
}

func (e *MalformedEntryError) Unwrap() error {
	return e.Err
}
