package domain

import "time"

// StatusHistoryEntry is an immutable audit trail record. The sequence for an
// issue always starts with an "open" entry stamped at RaisedAt, and its tail
// matches the issue's current status.
type StatusHistoryEntry struct {
	ID        string
	IssueID   string
	Status    IssueStatus
	ActorID   string
	ActorRole ActorRole
	Note      string
	CreatedAt time.Time
}
