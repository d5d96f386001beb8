package domain

import "time"

// IssueMessage captures one entry of an issue's conversation thread.
// Messages are never edited or removed; an amendment is a new message.
// Internal entries are filtered out of renter-facing reads.
type IssueMessage struct {
	ID         string
	IssueID    string
	SenderID   string
	SenderRole ActorRole
	SenderName string
	Body       string
	IsInternal bool
	CreatedAt  time.Time
}
