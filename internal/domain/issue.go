package domain

import (
	"strings"
	"time"

	apperrors "github.com/spec-kit/issue-service/pkg/util"
)

// IssueStatus enumerates lifecycle states for tenancy issues.
type IssueStatus string

const (
	IssueStatusOpen         IssueStatus = "open"
	IssueStatusAcknowledged IssueStatus = "acknowledged"
	IssueStatusInProgress   IssueStatus = "in_progress"
	IssueStatusResolved     IssueStatus = "resolved"
	IssueStatusClosed       IssueStatus = "closed"
)

// Terminal reports whether the status freezes the overdue flag.
// "resolved" permits reopening but still stops the SLA clock.
func (s IssueStatus) Terminal() bool {
	return s == IssueStatusResolved || s == IssueStatusClosed
}

// Valid reports whether the status is a known lifecycle state.
func (s IssueStatus) Valid() bool {
	switch s {
	case IssueStatusOpen, IssueStatusAcknowledged, IssueStatusInProgress, IssueStatusResolved, IssueStatusClosed:
		return true
	}
	return false
}

// IssuePriority enumerates SLA severity, highest first.
type IssuePriority string

const (
	IssuePriorityEmergency IssuePriority = "emergency"
	IssuePriorityUrgent    IssuePriority = "urgent"
	IssuePriorityRoutine   IssuePriority = "routine"
	IssuePriorityLow       IssuePriority = "low"
)

// Valid reports whether the priority is within the enumeration.
func (p IssuePriority) Valid() bool {
	switch p {
	case IssuePriorityEmergency, IssuePriorityUrgent, IssuePriorityRoutine, IssuePriorityLow:
		return true
	}
	return false
}

// IssueCategory enumerates maintenance types.
type IssueCategory string

const (
	CategoryPlumbing       IssueCategory = "plumbing"
	CategoryElectrical     IssueCategory = "electrical"
	CategoryHeatingCooling IssueCategory = "heating_cooling"
	CategoryAppliance      IssueCategory = "appliance"
	CategoryStructural     IssueCategory = "structural"
	CategoryPestControl    IssueCategory = "pest_control"
	CategorySecurity       IssueCategory = "security"
	CategoryCleaning       IssueCategory = "cleaning"
	CategoryOther          IssueCategory = "other"
)

// Valid reports whether the category is within the enumeration.
func (c IssueCategory) Valid() bool {
	switch c {
	case CategoryPlumbing, CategoryElectrical, CategoryHeatingCooling, CategoryAppliance,
		CategoryStructural, CategoryPestControl, CategorySecurity, CategoryCleaning, CategoryOther:
		return true
	}
	return false
}

const (
	minSubjectLen     = 5
	minDescriptionLen = 20
)

// Issue is the aggregate for maintenance and complaint tickets raised
// against a tenancy.
type Issue struct {
	ID              string
	Reference       string
	MatchID         *string
	PropertyID      string
	RenterID        string
	LandlordID      string
	AgencyID        *string
	AssignedAgentID *string
	Responsible     ResponsibleParty
	Category        IssueCategory
	Priority        IssuePriority
	Subject         string
	Description     string
	Images          []string

	Status    IssueStatus
	IsOverdue bool
	Version   int64

	RaisedAt       time.Time
	SLADeadline    time.Time
	AcknowledgedAt *time.Time
	ResolvedAt     *time.Time
	ClosedAt       *time.Time
	UpdatedAt      time.Time

	ResolutionSummary        *string
	ResolutionCost           *float64
	RenterSatisfactionRating *int

	StatusHistory []StatusHistoryEntry
	Messages      []IssueMessage
}

// VisibleMessages returns the thread without internal notes, in creation order.
func (i *Issue) VisibleMessages() []IssueMessage {
	out := make([]IssueMessage, 0, len(i.Messages))
	for _, msg := range i.Messages {
		if msg.IsInternal {
			continue
		}
		out = append(out, msg)
	}
	return out
}

// InternalNotes returns only the internal entries of the thread.
func (i *Issue) InternalNotes() []IssueMessage {
	out := make([]IssueMessage, 0)
	for _, msg := range i.Messages {
		if msg.IsInternal {
			out = append(out, msg)
		}
	}
	return out
}

// NewIssueInput describes raw issue creation data before validation.
type NewIssueInput struct {
	MatchID         *string
	PropertyID      string
	RenterID        string
	LandlordID      string
	AgencyID        *string
	AssignedAgentID *string
	Category        IssueCategory
	Priority        IssuePriority
	Subject         string
	Description     string
	Images          []string
}

// Validate enforces creation invariants, failing fast on the first
// violation. Field order matters: identifiers, classification, content.
func (in NewIssueInput) Validate() error {
	if strings.TrimSpace(in.PropertyID) == "" {
		return apperrors.NewValidationError("property_id required", map[string]any{"field": "property_id"})
	}
	if strings.TrimSpace(in.RenterID) == "" {
		return apperrors.NewValidationError("renter_id required", map[string]any{"field": "renter_id"})
	}
	if strings.TrimSpace(in.LandlordID) == "" {
		return apperrors.NewValidationError("landlord_id required", map[string]any{"field": "landlord_id"})
	}
	if !in.Category.Valid() {
		return apperrors.NewValidationError("unknown category", map[string]any{"field": "category", "value": string(in.Category)})
	}
	if !in.Priority.Valid() {
		return apperrors.NewValidationError("unknown priority", map[string]any{"field": "priority", "value": string(in.Priority)})
	}
	if len(strings.TrimSpace(in.Subject)) < minSubjectLen {
		return apperrors.NewValidationError("subject too short", map[string]any{"field": "subject", "min_length": minSubjectLen})
	}
	if len(strings.TrimSpace(in.Description)) < minDescriptionLen {
		return apperrors.NewValidationError("description too short", map[string]any{"field": "description", "min_length": minDescriptionLen})
	}
	return nil
}
