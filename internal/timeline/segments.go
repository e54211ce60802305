// Package timeline builds the gap-free sequence of state intervals covering
// an issue's observed lifetime.
package timeline

import (
	"fmt"
	"time"

	"github.com/hylla/sojourn/internal/domain"
)

// Build converts ordered transition events into contiguous state intervals
// spanning [created, now). With no events the issue is assumed to have sat
// in currentState since creation. The first event's From status names the
// initial interval, falling back to currentState when the tracker recorded
// none. A non-nil window clips the result: intervals fully outside it are
// dropped, the rest truncated to its bounds.
//
// The unclipped intervals are invariant-checked before windowing; a
// violation means the inputs broke the segmenter's assumptions (unsorted
// events, now before the last event) and surfaces as ErrSegmentInvariant.
func Build(created, now time.Time, currentState string, events []domain.TransitionEvent, window *domain.AnalysisWindow) ([]domain.StateInterval, error) {
	if window != nil {
		if err := window.Validate(); err != nil {
			return nil, err
		}
	}

	var segments []domain.StateInterval
	if len(events) == 0 {
		segments = []domain.StateInterval{{State: currentState, Start: created, End: now}}
	} else {
		first := events[0].From
		if first == "" {
			first = currentState
		}
		segments = append(segments, domain.StateInterval{State: first, Start: created, End: events[0].At})
		for i, ev := range events {
			end := now
			if i+1 < len(events) {
				end = events[i+1].At
			}
			segments = append(segments, domain.StateInterval{State: ev.To, Start: ev.At, End: end})
		}
	}

	if err := checkInvariants(segments, created, now); err != nil {
		return nil, err
	}
	if window != nil {
		segments = clip(segments, *window)
	}
	return segments, nil
}

// checkInvariants verifies ordering, contiguity, and coverage of [created, now).
func checkInvariants(segments []domain.StateInterval, created, now time.Time) error {
	if len(segments) == 0 {
		return fmt.Errorf("%w: empty segment list", domain.ErrSegmentInvariant)
	}
	if !segments[0].Start.Equal(created) {
		return fmt.Errorf("%w: first segment starts at %v, not creation %v", domain.ErrSegmentInvariant, segments[0].Start, created)
	}
	if !segments[len(segments)-1].End.Equal(now) {
		return fmt.Errorf("%w: last segment ends at %v, not %v", domain.ErrSegmentInvariant, segments[len(segments)-1].End, now)
	}
	for i, seg := range segments {
		if seg.Start.After(seg.End) {
			return fmt.Errorf("%w: segment %d starts after it ends", domain.ErrSegmentInvariant, i)
		}
		if i > 0 && !segments[i-1].End.Equal(seg.Start) {
			return fmt.Errorf("%w: gap between segments %d and %d", domain.ErrSegmentInvariant, i-1, i)
		}
	}
	return nil
}

// clip truncates segments to the window and drops those fully outside it.
func clip(segments []domain.StateInterval, w domain.AnalysisWindow) []domain.StateInterval {
	out := make([]domain.StateInterval, 0, len(segments))
	for _, seg := range segments {
		if !seg.End.After(w.Start) || !seg.Start.Before(w.End) {
			continue
		}
		if seg.Start.Before(w.Start) {
			seg.Start = w.Start
		}
		if seg.End.After(w.End) {
			seg.End = w.End
		}
		out = append(out, seg)
	}
	return out
}
