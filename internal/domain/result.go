package domain

import "time"

// IssueResult is the per-issue output of the analysis pipeline. A worker
// creates it, the pipeline stages populate it, and it is appended once to
// the shared result set; it is never mutated afterward.
type IssueResult struct {
	Key           string
	TimeInState   map[string]float64
	PatternCounts map[string]int
	Warnings      []string
	Err           error
}

// Failed reports whether the issue's pipeline ended in an error instead of
// metrics.
func (r IssueResult) Failed() bool {
	return r.Err != nil
}

// SavedQuery is a named selection expression kept in the local store so a
// report can be rerun without retyping it.
type SavedQuery struct {
	Name        string
	JQL         string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
