package dto

import (
	"time"

	"github.com/spec-kit/issue-service/internal/domain"
)

// CreateIssueRequest payload.
type CreateIssueRequest struct {
	MatchID         *string              `json:"match_id"`
	PropertyID      string               `json:"property_id"`
	RenterID        string               `json:"renter_id"`
	LandlordID      string               `json:"landlord_id"`
	AgencyID        *string              `json:"agency_id"`
	AssignedAgentID *string              `json:"assigned_agent_id"`
	Category        domain.IssueCategory `json:"category"`
	Priority        domain.IssuePriority `json:"priority"`
	Subject         string               `json:"subject"`
	Description     string               `json:"description"`
	Images          []string             `json:"images"`
}

// TransitionRequest payload for status change endpoints.
type TransitionRequest struct {
	Note              string   `json:"note"`
	ResolutionSummary string   `json:"resolution_summary"`
	ResolutionCost    *float64 `json:"resolution_cost"`
}

// CreateMessageRequest payload.
type CreateMessageRequest struct {
	Body       string `json:"body"`
	IsInternal bool   `json:"is_internal"`
}

// RateIssueRequest payload.
type RateIssueRequest struct {
	Rating int `json:"rating"`
}

// IssueSummary response.
type IssueSummary struct {
	ID          string               `json:"id"`
	Reference   string               `json:"reference"`
	PropertyID  string               `json:"property_id"`
	MatchID     *string              `json:"match_id,omitempty"`
	Category    domain.IssueCategory `json:"category"`
	Priority    domain.IssuePriority `json:"priority"`
	Subject     string               `json:"subject"`
	Status      domain.IssueStatus   `json:"status"`
	IsOverdue   bool                 `json:"is_overdue"`
	RaisedAt    time.Time            `json:"raised_at"`
	SLADeadline time.Time            `json:"sla_deadline"`
}

// IssueDetailResponse provides full issue info.
type IssueDetailResponse struct {
	ID                       string                  `json:"id"`
	Reference                string                  `json:"reference"`
	MatchID                  *string                 `json:"match_id,omitempty"`
	PropertyID               string                  `json:"property_id"`
	RenterID                 string                  `json:"renter_id"`
	LandlordID               string                  `json:"landlord_id"`
	AgencyID                 *string                 `json:"agency_id,omitempty"`
	AssignedAgentID          *string                 `json:"assigned_agent_id,omitempty"`
	ResponsiblePartyKind     domain.PartyKind        `json:"responsible_party_kind"`
	ResponsiblePartyID       string                  `json:"responsible_party_id"`
	Category                 domain.IssueCategory    `json:"category"`
	Priority                 domain.IssuePriority    `json:"priority"`
	Subject                  string                  `json:"subject"`
	Description              string                  `json:"description"`
	Images                   []string                `json:"images"`
	Status                   domain.IssueStatus      `json:"status"`
	IsOverdue                bool                    `json:"is_overdue"`
	RaisedAt                 time.Time               `json:"raised_at"`
	SLADeadline              time.Time               `json:"sla_deadline"`
	AcknowledgedAt           *time.Time              `json:"acknowledged_at,omitempty"`
	ResolvedAt               *time.Time              `json:"resolved_at,omitempty"`
	ClosedAt                 *time.Time              `json:"closed_at,omitempty"`
	ResolutionSummary        *string                 `json:"resolution_summary,omitempty"`
	ResolutionCost           *float64                `json:"resolution_cost,omitempty"`
	RenterSatisfactionRating *int                    `json:"renter_satisfaction_rating,omitempty"`
	StatusHistory            []StatusHistoryResponse `json:"status_history"`
	Messages                 []IssueMessageResponse  `json:"messages"`
}

// StatusHistoryResponse represents one audit trail entry.
type StatusHistoryResponse struct {
	ID        string             `json:"id"`
	Status    domain.IssueStatus `json:"status"`
	ActorID   string             `json:"actor_id"`
	ActorRole domain.ActorRole   `json:"actor_role"`
	Note      string             `json:"note,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// IssueMessageResponse represents a thread message.
type IssueMessageResponse struct {
	ID         string           `json:"id"`
	SenderID   string           `json:"sender_id"`
	SenderRole domain.ActorRole `json:"sender_role"`
	SenderName string           `json:"sender_name,omitempty"`
	Body       string           `json:"body"`
	IsInternal bool             `json:"is_internal"`
	CreatedAt  time.Time        `json:"created_at"`
}
