// Package history turns a raw change history into the ordered transition
// events the rest of the pipeline consumes.
package history

import (
	"fmt"
	"sort"
	"time"

	"github.com/hylla/sojourn/internal/domain"
)

// timestampLayouts covers the formats trackers emit for history timestamps.
// Jira Cloud uses millisecond precision with a colonless zone offset.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
}

// ParseTimestamp parses a wire timestamp, trying the known layouts in order.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Extract produces the chronologically ordered status transition events of
// one issue. Entries whose timestamp cannot be parsed are skipped and
// returned as warnings; items for other fields are ignored. The sort is
// stable, so events sharing a timestamp keep their history order.
func Extract(raw domain.ChangeHistory) ([]domain.TransitionEvent, []error) {
	var (
		events   []domain.TransitionEvent
		warnings []error
	)
	for _, entry := range raw.Entries {
		at, err := ParseTimestamp(entry.Created)
		if err != nil {
			warnings = append(warnings, &domain.MalformedEntryError{Created: entry.Created, Err: err})
			continue
		}
		for _, item := range entry.Items {
			if item.Field != domain.StatusField {
				continue
			}
			events = append(events, domain.TransitionEvent{From: item.From, To: item.To, At: at})
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].At.Before(events[j].At)
	})
	return events, warnings
}

// FilterWindow keeps only events whose timestamp falls inside the window,
// end-inclusive at the start and end bounds, preserving order.
func FilterWindow(events []domain.TransitionEvent, start, end time.Time) []domain.TransitionEvent {
	out := make([]domain.TransitionEvent, 0, len(events))
	for _, ev := range events {
		if ev.At.Before(start) || ev.At.After(end) {
			continue
		}
		out = append(out, ev)
	}
	return out
}
