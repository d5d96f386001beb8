package events

import (
	"time"

	"github.com/spec-kit/issue-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIssueReported      EventType = "issue_reported"
	EventIssueStatusChanged EventType = "issue_status_changed"
	EventIssueMessageAdded  EventType = "issue_message_added"
	EventIssueOverdue       EventType = "issue_overdue"
	EventIssueRated         EventType = "issue_rated"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID   string           `json:"id"`
	Role domain.ActorRole `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	IssueID   string      `json:"issue_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// IssueReportedPayload payload.
type IssueReportedPayload struct {
	Reference   string                  `json:"reference"`
	PropertyID  string                  `json:"property_id"`
	Priority    domain.IssuePriority    `json:"priority"`
	Category    domain.IssueCategory    `json:"category"`
	Responsible domain.ResponsibleParty `json:"responsible_party"`
	SLADeadline time.Time               `json:"sla_deadline"`
	Subject     string                  `json:"subject"`
}

// IssueStatusChangedPayload payload.
type IssueStatusChangedPayload struct {
	OldStatus domain.IssueStatus `json:"old_status"`
	NewStatus domain.IssueStatus `json:"new_status"`
	IsOverdue bool               `json:"is_overdue"`
	Note      string             `json:"note,omitempty"`
}

// IssueMessageAddedPayload payload.
type IssueMessageAddedPayload struct {
	MessageID   string           `json:"message_id"`
	SenderRole  domain.ActorRole `json:"sender_role"`
	IsInternal  bool             `json:"is_internal"`
	BodyPreview string           `json:"body_preview"`
}

// IssueOverduePayload payload.
type IssueOverduePayload struct {
	Reference   string                  `json:"reference"`
	Priority    domain.IssuePriority    `json:"priority"`
	Responsible domain.ResponsibleParty `json:"responsible_party"`
	SLADeadline time.Time               `json:"sla_deadline"`
	BreachedBy  time.Duration           `json:"breached_by"`
}

// IssueRatedPayload payload.
type IssueRatedPayload struct {
	Rating int `json:"rating"`
}
