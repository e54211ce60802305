package domain

import "time"

// StatusField is the tracked attribute whose transitions drive the timeline.
const StatusField = "status"

// TransitionEvent is one discrete status change at a point in time.
// From is empty when the tracker recorded no prior status for the change.
type TransitionEvent struct {
	From string
	To   string
	At   time.Time
}

// ChangeItem is a single field change inside a raw history entry, as the
// data source reports it. Only items whose Field matches StatusField are
// turned into transition events.
type ChangeItem struct {
	Field string
	From  string
	To    string
}

// ChangeEntry is one raw history entry: a timestamp string as received on
// the wire plus the field changes recorded at that instant. The timestamp
// stays unparsed here; extraction owns parsing and malformed-entry policy.
type ChangeEntry struct {
	Created string
	Items   []ChangeItem
}

// ChangeHistory is the raw change history of one issue. Entries are not
// assumed to be in chronological order.
type ChangeHistory struct {
	Entries []ChangeEntry
}

// IssueRecord is the strict internal shape of a fetched issue: identity,
// creation time, live status, and the raw history still to be extracted.
type IssueRecord struct {
	Key          string
	Created      time.Time
	CurrentState string
	History      ChangeHistory
}
