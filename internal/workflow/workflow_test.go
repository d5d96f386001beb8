package workflow

import (
	"testing"
	"time"

	"github.com/spec-kit/issue-service/internal/domain"
	apperrors "github.com/spec-kit/issue-service/pkg/util"
)

var (
	t0       = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	deadline = t0.Add(24 * time.Hour)
)

const grace = 72 * time.Hour

func landlordIssue() *domain.Issue {
	return &domain.Issue{
		ID:          "issue-1",
		PropertyID:  "prop-1",
		RenterID:    "renter-1",
		LandlordID:  "landlord-1",
		Responsible: domain.ResponsibleParty{Kind: domain.PartyLandlord, ID: "landlord-1"},
		Priority:    domain.IssuePriorityUrgent,
		Status:      domain.IssueStatusOpen,
		RaisedAt:    t0,
		SLADeadline: deadline,
		Version:     1,
	}
}

func mustApply(t *testing.T, issue *domain.Issue, req Request) *domain.StatusHistoryEntry {
	t.Helper()
	entry, err := Apply(issue, req)
	if err != nil {
		t.Fatalf("transition to %s failed: %v", req.Target, err)
	}
	return entry
}

func landlordReq(target domain.IssueStatus, now time.Time) Request {
	return Request{
		Target:     target,
		ActorID:    "landlord-1",
		ActorRole:  domain.RoleLandlord,
		Now:        now,
		CloseGrace: grace,
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to domain.IssueStatus
		want     bool
	}{
		{domain.IssueStatusOpen, domain.IssueStatusAcknowledged, true},
		{domain.IssueStatusOpen, domain.IssueStatusInProgress, true},
		{domain.IssueStatusOpen, domain.IssueStatusResolved, false},
		{domain.IssueStatusOpen, domain.IssueStatusClosed, false},
		{domain.IssueStatusAcknowledged, domain.IssueStatusInProgress, true},
		{domain.IssueStatusAcknowledged, domain.IssueStatusResolved, true},
		{domain.IssueStatusAcknowledged, domain.IssueStatusClosed, false},
		{domain.IssueStatusInProgress, domain.IssueStatusResolved, true},
		{domain.IssueStatusInProgress, domain.IssueStatusClosed, false},
		{domain.IssueStatusResolved, domain.IssueStatusClosed, true},
		{domain.IssueStatusResolved, domain.IssueStatusAcknowledged, true},
		{domain.IssueStatusResolved, domain.IssueStatusInProgress, true},
		{domain.IssueStatusClosed, domain.IssueStatusAcknowledged, false},
		{domain.IssueStatusClosed, domain.IssueStatusResolved, false},
		{domain.IssueStatusClosed, domain.IssueStatusInProgress, false},
	}
	for _, tc := range tests {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestIllegalTransitionLeavesIssueUntouched(t *testing.T) {
	issue := landlordIssue()
	_, err := Apply(issue, landlordReq(domain.IssueStatusClosed, t0.Add(time.Hour)))
	if !apperrors.HasCode(err, apperrors.CodeIllegalTransition) {
		t.Fatalf("expected illegal transition error, got %v", err)
	}
	if issue.Status != domain.IssueStatusOpen {
		t.Errorf("status mutated to %s on rejected transition", issue.Status)
	}
	if issue.ClosedAt != nil || issue.AcknowledgedAt != nil {
		t.Error("timestamps mutated on rejected transition")
	}
}

func TestAcknowledgeSetsTimestampOnce(t *testing.T) {
	issue := landlordIssue()
	ackAt := t0.Add(2 * time.Hour)
	entry := mustApply(t, issue, landlordReq(domain.IssueStatusAcknowledged, ackAt))

	if issue.AcknowledgedAt == nil || !issue.AcknowledgedAt.Equal(ackAt) {
		t.Fatalf("acknowledgedAt = %v, want %v", issue.AcknowledgedAt, ackAt)
	}
	if issue.IsOverdue {
		t.Error("issue acknowledged before the deadline must not be overdue")
	}
	if entry.Status != domain.IssueStatusAcknowledged || !entry.CreatedAt.Equal(ackAt) {
		t.Errorf("unexpected audit entry: %+v", entry)
	}

	// A later reopen into acknowledged keeps the original timestamp.
	mustApply(t, issue, Request{
		Target: domain.IssueStatusResolved, ActorID: "landlord-1", ActorRole: domain.RoleLandlord,
		ResolutionSummary: "Replaced the valve", Now: t0.Add(3 * time.Hour), CloseGrace: grace,
	})
	mustApply(t, issue, Request{
		Target: domain.IssueStatusAcknowledged, ActorID: "renter-1", ActorRole: domain.RoleRenter,
		Now: t0.Add(4 * time.Hour), CloseGrace: grace,
	})
	if !issue.AcknowledgedAt.Equal(ackAt) {
		t.Errorf("acknowledgedAt changed to %v on reopen", issue.AcknowledgedAt)
	}
}

func TestRenterCannotProgressIssue(t *testing.T) {
	issue := landlordIssue()
	_, err := Apply(issue, Request{
		Target: domain.IssueStatusAcknowledged, ActorID: "renter-1", ActorRole: domain.RoleRenter,
		Now: t0.Add(time.Hour), CloseGrace: grace,
	})
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestResolveRequiresSummary(t *testing.T) {
	issue := landlordIssue()
	mustApply(t, issue, landlordReq(domain.IssueStatusInProgress, t0.Add(time.Hour)))

	_, err := Apply(issue, landlordReq(domain.IssueStatusResolved, t0.Add(2*time.Hour)))
	if !apperrors.HasCode(err, apperrors.CodeValidationFailed) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if issue.Status != domain.IssueStatusInProgress || issue.ResolvedAt != nil {
		t.Error("issue mutated by rejected resolve")
	}
}

func TestResolveFreezesBreachState(t *testing.T) {
	issue := landlordIssue()
	mustApply(t, issue, landlordReq(domain.IssueStatusInProgress, t0.Add(time.Hour)))

	req := landlordReq(domain.IssueStatusResolved, t0.Add(30*time.Hour))
	req.ResolutionSummary = "Boiler part replaced"
	mustApply(t, issue, req)

	if !issue.IsOverdue {
		t.Fatal("resolving 30h after a 24h deadline must freeze isOverdue=true")
	}
	if issue.ResolutionSummary == nil || *issue.ResolutionSummary != "Boiler part replaced" {
		t.Errorf("resolution summary not stored: %v", issue.ResolutionSummary)
	}

	// Closing later keeps the frozen value.
	mustApply(t, issue, Request{
		Target: domain.IssueStatusClosed, ActorID: "renter-1", ActorRole: domain.RoleRenter,
		Now: t0.Add(31 * time.Hour), CloseGrace: grace,
	})
	if !issue.IsOverdue {
		t.Error("close must not recompute the frozen breach state")
	}
}

func TestDisputeClearsResolution(t *testing.T) {
	issue := landlordIssue()
	mustApply(t, issue, landlordReq(domain.IssueStatusAcknowledged, t0.Add(time.Hour)))
	req := landlordReq(domain.IssueStatusResolved, t0.Add(2*time.Hour))
	req.ResolutionSummary = "Leak patched"
	mustApply(t, issue, req)

	// Only the renter may dispute.
	_, err := Apply(issue, landlordReq(domain.IssueStatusInProgress, t0.Add(3*time.Hour)))
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected forbidden for landlord dispute, got %v", err)
	}

	entry := mustApply(t, issue, Request{
		Target: domain.IssueStatusInProgress, ActorID: "renter-1", ActorRole: domain.RoleRenter,
		Now: t0.Add(3 * time.Hour), CloseGrace: grace,
	})
	if issue.ResolvedAt != nil {
		t.Error("dispute must clear resolvedAt")
	}
	if entry.Note != "Resolution disputed by renter" {
		t.Errorf("dispute note = %q", entry.Note)
	}
}

func TestResponderCloseRespectsGracePeriod(t *testing.T) {
	issue := landlordIssue()
	mustApply(t, issue, landlordReq(domain.IssueStatusInProgress, t0.Add(time.Hour)))
	req := landlordReq(domain.IssueStatusResolved, t0.Add(2*time.Hour))
	req.ResolutionSummary = "Done"
	mustApply(t, issue, req)

	_, err := Apply(issue, landlordReq(domain.IssueStatusClosed, t0.Add(3*time.Hour)))
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected forbidden before grace period, got %v", err)
	}

	closeAt := t0.Add(2 * time.Hour).Add(grace)
	mustApply(t, issue, landlordReq(domain.IssueStatusClosed, closeAt))
	if issue.Status != domain.IssueStatusClosed || issue.ClosedAt == nil {
		t.Errorf("expected closed issue, got %s", issue.Status)
	}
}

func TestAgencyPartyRouting(t *testing.T) {
	agencyID := "agency-1"
	agentID := "agent-9"
	issue := landlordIssue()
	issue.AgencyID = &agencyID
	issue.AssignedAgentID = &agentID
	issue.Responsible = domain.ResponsibleParty{Kind: domain.PartyAgency, ID: agencyID}

	// With an agency attached the landlord no longer routes.
	_, err := Apply(issue, landlordReq(domain.IssueStatusAcknowledged, t0.Add(time.Hour)))
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected forbidden for landlord when agency manages, got %v", err)
	}

	mustApply(t, issue, Request{
		Target: domain.IssueStatusAcknowledged, ActorID: agentID, ActorRole: domain.RoleEstateAgent,
		Now: t0.Add(time.Hour), CloseGrace: grace,
	})
	if issue.Status != domain.IssueStatusAcknowledged {
		t.Errorf("assigned agent could not acknowledge, status %s", issue.Status)
	}
}
