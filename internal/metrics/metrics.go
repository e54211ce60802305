// Package metrics derives per-issue measurements from segments and events:
// time spent in each status and transition-sequence occurrence counts.
package metrics

import (
	"github.com/hylla/sojourn/internal/calendar"
	"github.com/hylla/sojourn/internal/domain"
)

// TimeInState sums interval durations per status, in seconds. A nil
// calendar means wall-clock accounting; otherwise each interval contributes
// only its business-hours overlap. Intervals with an empty state are
// skipped. The sum is commutative, so per-issue maps can be merged across
// issues without re-deriving segments.
func TimeInState(segments []domain.StateInterval, cal *calendar.Calendar) map[string]float64 {
	totals := make(map[string]float64)
	for _, seg := range segments {
		if seg.State == "" {
			continue
		}
		var secs float64
		if cal != nil {
			secs = cal.Overlap(seg.Start, seg.End)
		} else {
			secs = seg.End.Sub(seg.Start).Seconds()
		}
		if secs < 0 {
			secs = 0
		}
		totals[seg.State] += secs
	}
	return totals
}

// CountOccurrences counts non-overlapping occurrences of the pattern's
// adjacent-pair path in the ordered event stream. Matching is greedy left
// to right: an in-progress match is always preferred over a fresh restart,
// and a failed mid-sequence match re-tests only the current event against
// the pattern's first pair before giving up on it. Patterns with fewer
// than two states count zero.
func CountOccurrences(events []domain.TransitionEvent, pattern domain.TransitionPattern) int {
	pairs := pattern.Pairs()
	if len(pairs) == 0 {
		return 0
	}

	count := 0
	idx := 0
	for _, ev := range events {
		if ev.From == pairs[idx][0] && ev.To == pairs[idx][1] {
			idx++
			if idx == len(pairs) {
				count++
				idx = 0
			}
			continue
		}
		idx = 0
		if ev.From == pairs[0][0] && ev.To == pairs[0][1] {
			idx = 1
		}
	}
	return count
}

// CountAll evaluates every pattern against the same event stream, keyed by
// pattern name.
func CountAll(events []domain.TransitionEvent, patterns []domain.TransitionPattern) map[string]int {
	counts := make(map[string]int, len(patterns))
	for _, p := range patterns {
		counts[p.Name] = CountOccurrences(events, p)
	}
	return counts
}
