package domain

import "strings"

// TransitionPattern is an ordered path of statuses whose adjacent-pair
// transitions are counted as non-overlapping occurrences in an event stream.
// A pattern with fewer than two states matches nothing.
type TransitionPattern struct {
	Name   string
	States []string
}

// NewTransitionPattern trims state names and derives a display name from the
// path when none is given.
func NewTransitionPattern(name string, states []string) (TransitionPattern, error) {
	cleaned := make([]string, 0, len(states))
	for _, s := range states {
		s = strings.TrimSpace(s)
		if s == "" {
			return TransitionPattern{}, ErrInvalidPattern
		}
		cleaned = append(cleaned, s)
	}
	if len(cleaned) < 2 {
		return TransitionPattern{}, ErrInvalidPattern
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.Join(cleaned, " -> ")
	}
	return TransitionPattern{Name: name, States: cleaned}, nil
}

// Pairs returns the adjacent-pair decomposition of the pattern, in order.
func (p TransitionPattern) Pairs() [][2]string {
	if len(p.States) < 2 {
		return nil
	}
	pairs := make([][2]string, 0, len(p.States)-1)
	for i := 0; i+1 < len(p.States); i++ {
		pairs = append(pairs, [2]string{p.States[i], p.States[i+1]})
	}
	return pairs
}
