// Package workflow implements the issue status machine: the legal
// transitions, who may trigger each one, and the timestamp and overdue
// bookkeeping a transition carries.
package workflow

import (
	"strings"
	"time"

	"github.com/spec-kit/issue-service/internal/domain"
	"github.com/spec-kit/issue-service/internal/sla"
	apperrors "github.com/spec-kit/issue-service/pkg/util"
)

var allowedTransitions = map[domain.IssueStatus][]domain.IssueStatus{
	domain.IssueStatusOpen:         {domain.IssueStatusAcknowledged, domain.IssueStatusInProgress},
	domain.IssueStatusAcknowledged: {domain.IssueStatusInProgress, domain.IssueStatusResolved},
	domain.IssueStatusInProgress:   {domain.IssueStatusResolved},
	// resolved is quasi-terminal: closing needs it, but a renter may
	// dispute the resolution and reopen.
	domain.IssueStatusResolved: {domain.IssueStatusClosed, domain.IssueStatusAcknowledged, domain.IssueStatusInProgress},
	domain.IssueStatusClosed:   {},
}

// CanTransition reports whether the status machine permits current → next.
func CanTransition(current, next domain.IssueStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Request describes an attempted status transition.
type Request struct {
	Target            domain.IssueStatus
	ActorID           string
	ActorRole         domain.ActorRole
	Note              string
	ResolutionSummary string
	ResolutionCost    *float64
	Now               time.Time
	CloseGrace        time.Duration
}

// Apply validates the request against the issue's current state and, when
// legal, mutates the issue and returns the audit entry the caller must
// append to the trail. On any error the issue is untouched.
func Apply(issue *domain.Issue, req Request) (*domain.StatusHistoryEntry, error) {
	if !req.Target.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"field": "status", "value": string(req.Target)})
	}
	if !CanTransition(issue.Status, req.Target) {
		return nil, apperrors.NewIllegalTransition(string(issue.Status), string(req.Target))
	}
	if err := authorize(issue, req); err != nil {
		return nil, err
	}

	disputed := issue.Status == domain.IssueStatusResolved && !req.Target.Terminal()
	wasTerminal := issue.Status.Terminal()
	note := strings.TrimSpace(req.Note)

	switch req.Target {
	case domain.IssueStatusAcknowledged:
		if issue.AcknowledgedAt == nil {
			at := req.Now
			issue.AcknowledgedAt = &at
		}
	case domain.IssueStatusResolved:
		summary := strings.TrimSpace(req.ResolutionSummary)
		if summary == "" {
			return nil, apperrors.NewValidationError("resolution_summary required", map[string]any{"field": "resolution_summary"})
		}
		at := req.Now
		issue.ResolvedAt = &at
		issue.ResolutionSummary = &summary
		if req.ResolutionCost != nil {
			issue.ResolutionCost = req.ResolutionCost
		}
	case domain.IssueStatusClosed:
		at := req.Now
		issue.ClosedAt = &at
	}

	if disputed {
		issue.ResolvedAt = nil
		if note == "" {
			note = "Resolution disputed by renter"
		}
	}

	// Breach state is recomputed for non-terminal targets and frozen on
	// the transition into resolved/closed, recording whether the SLA held.
	if req.Target.Terminal() {
		if !wasTerminal {
			issue.IsOverdue = req.Now.After(issue.SLADeadline)
		}
	} else {
		issue.IsOverdue = sla.Evaluate(req.Now, req.Target, issue.SLADeadline, issue.IsOverdue)
	}

	issue.Status = req.Target

	return &domain.StatusHistoryEntry{
		IssueID:   issue.ID,
		Status:    req.Target,
		ActorID:   req.ActorID,
		ActorRole: req.ActorRole,
		Note:      note,
		CreatedAt: req.Now,
	}, nil
}

func authorize(issue *domain.Issue, req Request) error {
	actsForParty := issue.ActsForParty(req.ActorID, req.ActorRole)
	isRenter := req.ActorRole == domain.RoleRenter && req.ActorID == issue.RenterID

	switch req.Target {
	case domain.IssueStatusAcknowledged, domain.IssueStatusInProgress:
		if issue.Status == domain.IssueStatusResolved {
			// Reopening a resolution is the renter's dispute right.
			if !isRenter {
				return apperrors.NewForbidden("only the renter may dispute a resolution")
			}
			return nil
		}
		if !actsForParty {
			return apperrors.NewForbidden("only the responsible party may progress an issue")
		}
	case domain.IssueStatusResolved:
		if !actsForParty {
			return apperrors.NewForbidden("only the responsible party may resolve an issue")
		}
	case domain.IssueStatusClosed:
		if isRenter {
			return nil
		}
		if !actsForParty {
			return apperrors.NewForbidden("only the renter or responsible party may close an issue")
		}
		if issue.ResolvedAt == nil || req.Now.Before(issue.ResolvedAt.Add(req.CloseGrace)) {
			return apperrors.NewForbidden("responsible party may close only after the confirmation grace period")
		}
	}
	return nil
}
