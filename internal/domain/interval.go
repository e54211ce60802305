package domain

import "time"

// StateInterval is a maximal time range during which an issue stayed in one
// status. Within one issue's interval list, intervals are contiguous and
// non-overlapping: each interval's End equals the next interval's Start.
type StateInterval struct {
	State string
	Start time.Time
	End   time.Time
}

// Duration returns the wall-clock length of the interval.
func (s StateInterval) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// AnalysisWindow clips intervals to a bounded range of interest.
type AnalysisWindow struct {
	Start time.Time
	End   time.Time
}

// Validate rejects empty or inverted windows.
func (w AnalysisWindow) Validate() error {
	if !w.Start.Before(w.End) {
		return ErrInvalidWindow
	}
	return nil
}

// Contains reports whether t falls inside the window, end-exclusive.
func (w AnalysisWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}
