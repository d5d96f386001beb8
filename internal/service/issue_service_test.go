package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/issue-service/internal/domain"
	"github.com/spec-kit/issue-service/internal/events"
	"github.com/spec-kit/issue-service/internal/repository"
	"github.com/spec-kit/issue-service/internal/sla"
	apperrors "github.com/spec-kit/issue-service/pkg/util"
)

// ---- in-memory fakes ----

type fakeIssueRepo struct {
	mu      sync.Mutex
	issues  map[string]domain.Issue
	history *fakeHistoryRepo
}

func newFakeIssueRepo(history *fakeHistoryRepo) *fakeIssueRepo {
	return &fakeIssueRepo{issues: map[string]domain.Issue{}, history: history}
}

func (r *fakeIssueRepo) Create(_ context.Context, issue *domain.Issue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if issue.ID == "" {
		issue.ID = uuid.NewString()
	}
	issue.UpdatedAt = issue.RaisedAt
	r.issues[issue.ID] = *issue
	return nil
}

func (r *fakeIssueRepo) CreateWithHistory(ctx context.Context, issue *domain.Issue, entry *domain.StatusHistoryEntry) error {
	if err := r.Create(ctx, issue); err != nil {
		return err
	}
	entry.IssueID = issue.ID
	return r.history.Append(ctx, entry)
}

func (r *fakeIssueRepo) UpdateWithHistory(ctx context.Context, issue *domain.Issue, entry *domain.StatusHistoryEntry) error {
	if err := r.Update(ctx, issue); err != nil {
		return err
	}
	return r.history.Append(ctx, entry)
}

func (r *fakeIssueRepo) Update(_ context.Context, issue *domain.Issue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.issues[issue.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != issue.Version {
		return apperrors.NewVersionConflict("issue", map[string]any{"issue_id": issue.ID})
	}
	issue.Version++
	r.issues[issue.ID] = *issue
	return nil
}

func (r *fakeIssueRepo) GetByID(_ context.Context, id string) (*domain.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.issues[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := stored
	return &copied, nil
}

func (r *fakeIssueRepo) GetByReference(_ context.Context, reference string) (*domain.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.issues {
		if stored.Reference == reference {
			copied := stored
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeIssueRepo) ListWithFilter(_ context.Context, filter repository.IssueFilter) ([]domain.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Issue
	for _, stored := range r.issues {
		if filter.RenterID != nil && stored.RenterID != *filter.RenterID {
			continue
		}
		if filter.PropertyID != nil && stored.PropertyID != *filter.PropertyID {
			continue
		}
		if filter.MatchID != nil && (stored.MatchID == nil || *stored.MatchID != *filter.MatchID) {
			continue
		}
		if filter.PartyID != nil {
			assigned := stored.AssignedAgentID != nil && *stored.AssignedAgentID == *filter.PartyID
			if stored.Responsible.ID != *filter.PartyID && !assigned {
				continue
			}
		}
		out = append(out, stored)
	}
	return out, nil
}

func (r *fakeIssueRepo) ListBreached(_ context.Context, now time.Time, limit int) ([]domain.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Issue
	for _, stored := range r.issues {
		if !stored.Status.Terminal() && !stored.IsOverdue && now.After(stored.SLADeadline) {
			out = append(out, stored)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	entries []domain.StatusHistoryEntry
}

func (r *fakeHistoryRepo) Append(_ context.Context, entry *domain.StatusHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeHistoryRepo) ListByIssue(_ context.Context, issueID string) ([]domain.StatusHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.StatusHistoryEntry
	for _, e := range r.entries {
		if e.IssueID == issueID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeMessageRepo struct {
	mu   sync.Mutex
	msgs []domain.IssueMessage
}

func (r *fakeMessageRepo) Append(_ context.Context, msg *domain.IssueMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	r.msgs = append(r.msgs, *msg)
	return nil
}

func (r *fakeMessageRepo) ListByIssue(_ context.Context, issueID string) ([]domain.IssueMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.IssueMessage
	for _, m := range r.msgs {
		if m.IssueID == issueID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeConfigProvider struct {
	configs map[string]*domain.SLAConfiguration
}

func (p *fakeConfigProvider) GetSLAConfiguration(_ context.Context, agencyID string) (*domain.SLAConfiguration, error) {
	if p == nil || p.configs == nil {
		return nil, nil
	}
	return p.configs[agencyID], nil
}

type capturingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *capturingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *capturingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *capturingDispatcher) byType(t events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, e := range d.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// ---- harness ----

type harness struct {
	svc        *IssueService
	issues     *fakeIssueRepo
	history    *fakeHistoryRepo
	dispatcher *capturingDispatcher
	clock      *time.Time
}

var t0 = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

func newHarness(t *testing.T, configs map[string]*domain.SLAConfiguration) *harness {
	t.Helper()
	now := t0
	history := &fakeHistoryRepo{}
	h := &harness{
		issues:     newFakeIssueRepo(history),
		history:    history,
		dispatcher: &capturingDispatcher{},
		clock:      &now,
	}
	h.svc = NewIssueService(IssueDependencies{
		IssueRepo:     h.issues,
		HistoryRepo:   h.history,
		MessageRepo:   &fakeMessageRepo{},
		AgencyConfigs: &fakeConfigProvider{configs: configs},
		Dispatcher:    h.dispatcher,
		SLADefaults:   sla.PlatformDefaults(),
		CloseGrace:    72 * time.Hour,
		Clock:         func() time.Time { return *h.clock },
	})
	return h
}

func (h *harness) advanceTo(ts time.Time) { *h.clock = ts }

func urgentInput() domain.NewIssueInput {
	return domain.NewIssueInput{
		PropertyID:  "prop-1",
		RenterID:    "renter-1",
		LandlordID:  "landlord-1",
		Category:    domain.CategoryPlumbing,
		Priority:    domain.IssuePriorityUrgent,
		Subject:     "No hot water",
		Description: "The boiler stopped producing hot water this morning.",
	}
}

func (h *harness) raise(t *testing.T, input domain.NewIssueInput) *domain.Issue {
	t.Helper()
	issue, err := h.svc.CreateIssue(context.Background(), input.RenterID, domain.RoleRenter, input)
	if err != nil {
		t.Fatalf("CreateIssue: %v", err)
	}
	return issue
}

// ---- tests ----

func TestCreateIssueAppliesPlatformDefaults(t *testing.T) {
	h := newHarness(t, nil)
	issue := h.raise(t, urgentInput())

	if got, want := issue.SLADeadline, t0.Add(24*time.Hour); !got.Equal(want) {
		t.Errorf("deadline = %v, want %v", got, want)
	}
	if issue.Status != domain.IssueStatusOpen || issue.Version != 1 || issue.IsOverdue {
		t.Errorf("unexpected initial state: %+v", issue)
	}
	if issue.Responsible.Kind != domain.PartyLandlord || issue.Responsible.ID != "landlord-1" {
		t.Errorf("responsible party = %+v", issue.Responsible)
	}
	if issue.Reference == "" {
		t.Error("reference must be generated")
	}
	if len(issue.StatusHistory) != 1 {
		t.Fatalf("history length = %d, want 1", len(issue.StatusHistory))
	}
	seed := issue.StatusHistory[0]
	if seed.Status != domain.IssueStatusOpen || !seed.CreatedAt.Equal(issue.RaisedAt) {
		t.Errorf("seed entry = %+v", seed)
	}
	if got := h.dispatcher.byType(events.EventIssueReported); len(got) != 1 {
		t.Errorf("reported events = %d, want 1", len(got))
	}
}

func TestCreateIssueUsesAgencyConfiguration(t *testing.T) {
	agencyID := "agency-1"
	h := newHarness(t, map[string]*domain.SLAConfiguration{
		agencyID: {AgencyID: agencyID, UrgentResponseHours: 12, MaintenanceResponseDays: 10},
	})

	input := urgentInput()
	input.AgencyID = &agencyID
	issue := h.raise(t, input)

	if got, want := issue.SLADeadline, t0.Add(12*time.Hour); !got.Equal(want) {
		t.Errorf("deadline = %v, want agency 12h (%v)", got, want)
	}
	if issue.Responsible.Kind != domain.PartyAgency || issue.Responsible.ID != agencyID {
		t.Errorf("agency must be the responsible party, got %+v", issue.Responsible)
	}
}

func TestCreateIssueValidationLeavesNothingBehind(t *testing.T) {
	h := newHarness(t, nil)
	input := urgentInput()
	input.Description = "too short"

	_, err := h.svc.CreateIssue(context.Background(), input.RenterID, domain.RoleRenter, input)
	if !apperrors.HasCode(err, apperrors.CodeValidationFailed) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(h.issues.issues) != 0 || len(h.history.entries) != 0 {
		t.Error("failed creation must not persist anything")
	}
	if len(h.dispatcher.events) != 0 {
		t.Error("failed creation must not publish events")
	}
}

func TestCreateIssueRejectsImpersonation(t *testing.T) {
	h := newHarness(t, nil)
	input := urgentInput()

	_, err := h.svc.CreateIssue(context.Background(), "someone-else", domain.RoleRenter, input)
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

// Full lifecycle: urgent issue raised at t0, acknowledged inside the SLA
// window, resolved after the deadline passed, then closed. The breach flag
// freezes at resolution and survives the close.
func TestLifecycleFreezesOverdueAtResolution(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	issue := h.raise(t, urgentInput())

	h.advanceTo(t0.Add(2 * time.Hour))
	issue, err := h.svc.TransitionStatus(ctx, issue.ID, "landlord-1", domain.RoleLandlord, TransitionInput{
		Target: domain.IssueStatusAcknowledged,
	})
	if err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if issue.IsOverdue {
		t.Error("issue acknowledged inside the window must not be overdue")
	}
	if issue.AcknowledgedAt == nil || !issue.AcknowledgedAt.Equal(t0.Add(2*time.Hour)) {
		t.Errorf("acknowledgedAt = %v", issue.AcknowledgedAt)
	}

	h.advanceTo(t0.Add(30 * time.Hour))
	issue, err = h.svc.TransitionStatus(ctx, issue.ID, "landlord-1", domain.RoleLandlord, TransitionInput{
		Target:            domain.IssueStatusResolved,
		ResolutionSummary: "Boiler thermostat replaced",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !issue.IsOverdue {
		t.Error("resolution 6h past the deadline must freeze isOverdue=true")
	}

	h.advanceTo(t0.Add(31 * time.Hour))
	issue, err = h.svc.TransitionStatus(ctx, issue.ID, "renter-1", domain.RoleRenter, TransitionInput{
		Target: domain.IssueStatusClosed,
	})
	if err != nil {
		t.Fatalf("close: %v", err)
	}

	if issue.Status != domain.IssueStatusClosed || !issue.IsOverdue {
		t.Errorf("final state: status=%s overdue=%v", issue.Status, issue.IsOverdue)
	}
	if len(issue.StatusHistory) != 4 {
		t.Fatalf("history length = %d, want 4", len(issue.StatusHistory))
	}
	if last := issue.StatusHistory[3]; last.Status != domain.IssueStatusClosed {
		t.Errorf("history ends in %s, want closed", last.Status)
	}

	// A later read keeps the frozen flag even though time races on.
	h.advanceTo(t0.Add(400 * time.Hour))
	fetched, err := h.svc.GetIssue(ctx, issue.ID, "renter-1", domain.RoleRenter)
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if !fetched.IsOverdue {
		t.Error("terminal breach state must stay frozen on reads")
	}
}

func TestTransitionStatusUnknownIssue(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.svc.TransitionStatus(context.Background(), uuid.NewString(), "landlord-1", domain.RoleLandlord, TransitionInput{
		Target: domain.IssueStatusAcknowledged,
	})
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

// conflictingIssueRepo reports a version conflict on its next update,
// standing in for a concurrent writer landing between load and save.
type conflictingIssueRepo struct {
	*fakeIssueRepo
	conflictNext bool
}

func (r *conflictingIssueRepo) Update(ctx context.Context, issue *domain.Issue) error {
	if r.conflictNext {
		r.conflictNext = false
		return apperrors.NewVersionConflict("issue", map[string]any{"issue_id": issue.ID})
	}
	return r.fakeIssueRepo.Update(ctx, issue)
}

func (r *conflictingIssueRepo) UpdateWithHistory(ctx context.Context, issue *domain.Issue, entry *domain.StatusHistoryEntry) error {
	if err := r.Update(ctx, issue); err != nil {
		return err
	}
	return r.history.Append(ctx, entry)
}

func TestTransitionStatusVersionConflictIsRetryable(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	issue := h.raise(t, urgentInput())

	repo := &conflictingIssueRepo{fakeIssueRepo: h.issues, conflictNext: true}
	svc := NewIssueService(IssueDependencies{
		IssueRepo:   repo,
		HistoryRepo: h.history,
		MessageRepo: &fakeMessageRepo{},
		Dispatcher:  h.dispatcher,
		SLADefaults: sla.PlatformDefaults(),
		CloseGrace:  72 * time.Hour,
		Clock:       func() time.Time { return *h.clock },
	})

	_, err := svc.TransitionStatus(ctx, issue.ID, "landlord-1", domain.RoleLandlord, TransitionInput{
		Target: domain.IssueStatusAcknowledged,
	})
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if !apperrors.IsRetryable(err) {
		t.Error("version conflict must be retryable")
	}
	if entries, _ := h.history.ListByIssue(ctx, issue.ID); len(entries) != 1 {
		t.Errorf("conflicted transition must leave the trail at its seed entry, got %d", len(entries))
	}

	// The retry succeeds once the conflict clears.
	if _, err := svc.TransitionStatus(ctx, issue.ID, "landlord-1", domain.RoleLandlord, TransitionInput{
		Target: domain.IssueStatusAcknowledged,
	}); err != nil {
		t.Fatalf("retry after conflict: %v", err)
	}
}

func TestInternalNotesHiddenFromRenter(t *testing.T) {
	agencyID := "agency-1"
	h := newHarness(t, nil)
	ctx := context.Background()
	input := urgentInput()
	input.AgencyID = &agencyID
	issue := h.raise(t, input)

	if _, err := h.svc.AppendMessage(ctx, issue.ID, "renter-1", domain.RoleRenter, "Rita Renter", "Any update?", false); err != nil {
		t.Fatalf("renter message: %v", err)
	}
	if _, err := h.svc.AppendMessage(ctx, issue.ID, agencyID, domain.RoleManagementAgency, "Acme Lettings", "Contractor quoted 300", true); err != nil {
		t.Fatalf("internal note: %v", err)
	}

	renterView, err := h.svc.GetIssue(ctx, issue.ID, "renter-1", domain.RoleRenter)
	if err != nil {
		t.Fatalf("renter GetIssue: %v", err)
	}
	if len(renterView.Messages) != 1 {
		t.Errorf("renter sees %d messages, want 1", len(renterView.Messages))
	}

	agencyView, err := h.svc.GetIssue(ctx, issue.ID, agencyID, domain.RoleManagementAgency)
	if err != nil {
		t.Fatalf("agency GetIssue: %v", err)
	}
	if len(agencyView.Messages) != 2 {
		t.Errorf("agency sees %d messages, want 2", len(agencyView.Messages))
	}
}

func TestRenterCannotPostInternalNote(t *testing.T) {
	h := newHarness(t, nil)
	issue := h.raise(t, urgentInput())

	_, err := h.svc.AppendMessage(context.Background(), issue.ID, "renter-1", domain.RoleRenter, "Rita Renter", "secret", true)
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestMessagesNeverBumpVersion(t *testing.T) {
	h := newHarness(t, nil)
	issue := h.raise(t, urgentInput())

	if _, err := h.svc.AppendMessage(context.Background(), issue.ID, "renter-1", domain.RoleRenter, "Rita Renter", "Checking in on this", false); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	stored, _ := h.issues.GetByID(context.Background(), issue.ID)
	if stored.Version != 1 {
		t.Errorf("version = %d after message, want 1", stored.Version)
	}
}

func TestDisputeReopensResolvedIssue(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	issue := h.raise(t, urgentInput())

	for _, target := range []domain.IssueStatus{domain.IssueStatusAcknowledged, domain.IssueStatusInProgress} {
		if _, err := h.svc.TransitionStatus(ctx, issue.ID, "landlord-1", domain.RoleLandlord, TransitionInput{Target: target}); err != nil {
			t.Fatalf("transition to %s: %v", target, err)
		}
	}
	if _, err := h.svc.TransitionStatus(ctx, issue.ID, "landlord-1", domain.RoleLandlord, TransitionInput{
		Target:            domain.IssueStatusResolved,
		ResolutionSummary: "Tap washer replaced",
	}); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	issue, err := h.svc.TransitionStatus(ctx, issue.ID, "renter-1", domain.RoleRenter, TransitionInput{
		Target: domain.IssueStatusInProgress,
	})
	if err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if issue.Status != domain.IssueStatusInProgress || issue.ResolvedAt != nil {
		t.Errorf("dispute must reopen and clear resolvedAt: %+v", issue)
	}
	last := issue.StatusHistory[len(issue.StatusHistory)-1]
	if last.Note != "Resolution disputed by renter" {
		t.Errorf("dispute note = %q", last.Note)
	}
}

func TestRateResolution(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	issue := h.raise(t, urgentInput())

	if _, err := h.svc.RateResolution(ctx, issue.ID, "renter-1", 4); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Errorf("rating an open issue: expected conflict, got %v", err)
	}
	if _, err := h.svc.RateResolution(ctx, issue.ID, "renter-1", 9); !apperrors.HasCode(err, apperrors.CodeValidationFailed) {
		t.Errorf("out-of-range rating: expected validation error, got %v", err)
	}

	for _, step := range []TransitionInput{
		{Target: domain.IssueStatusAcknowledged},
		{Target: domain.IssueStatusInProgress},
		{Target: domain.IssueStatusResolved, ResolutionSummary: "Fixed"},
	} {
		if _, err := h.svc.TransitionStatus(ctx, issue.ID, "landlord-1", domain.RoleLandlord, step); err != nil {
			t.Fatalf("transition to %s: %v", step.Target, err)
		}
	}

	if _, err := h.svc.RateResolution(ctx, issue.ID, "landlord-1", 5); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Errorf("landlord rating: expected forbidden, got %v", err)
	}

	rated, err := h.svc.RateResolution(ctx, issue.ID, "renter-1", 4)
	if err != nil {
		t.Fatalf("RateResolution: %v", err)
	}
	if rated.RenterSatisfactionRating == nil || *rated.RenterSatisfactionRating != 4 {
		t.Errorf("rating not recorded: %+v", rated.RenterSatisfactionRating)
	}

	if _, err := h.svc.RateResolution(ctx, issue.ID, "renter-1", 2); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Errorf("second rating: expected conflict, got %v", err)
	}
}

func TestListIssuesForRenterRecomputesOverdue(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.raise(t, urgentInput())

	h.advanceTo(t0.Add(25 * time.Hour))
	listed, err := h.svc.ListIssuesForRenter(ctx, "renter-1", IssueListFilter{})
	if err != nil {
		t.Fatalf("ListIssuesForRenter: %v", err)
	}
	if len(listed) != 1 || !listed[0].IsOverdue {
		t.Errorf("expected one overdue issue, got %+v", listed)
	}
}

func TestListForPropertyScopedToResponsibleParty(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	// Two issues on the same property, answered for by different landlords.
	h.raise(t, urgentInput())
	other := urgentInput()
	other.RenterID = "renter-2"
	other.LandlordID = "landlord-2"
	other.Subject = "Broken window latch"
	other.Description = "The latch on the bedroom window no longer closes fully."
	h.raise(t, other)

	listed, err := h.svc.ListIssuesForProperty(ctx, "prop-1", "landlord-1", IssueListFilter{})
	if err != nil {
		t.Fatalf("ListIssuesForProperty: %v", err)
	}
	if len(listed) != 1 || listed[0].LandlordID != "landlord-1" {
		t.Errorf("landlord-1 must only see issues they answer for, got %+v", listed)
	}

	if listed, err = h.svc.ListIssuesForProperty(ctx, "prop-1", "landlord-3", IssueListFilter{}); err != nil {
		t.Fatalf("ListIssuesForProperty outsider: %v", err)
	} else if len(listed) != 0 {
		t.Errorf("an uninvolved landlord must see nothing, got %d issues", len(listed))
	}
}

func TestListForPropertyIncludesAssignedAgent(t *testing.T) {
	agencyID := "agency-1"
	agentID := "agent-1"
	h := newHarness(t, nil)

	input := urgentInput()
	input.AgencyID = &agencyID
	input.AssignedAgentID = &agentID
	h.raise(t, input)

	listed, err := h.svc.ListIssuesForProperty(context.Background(), "prop-1", agentID, IssueListFilter{})
	if err != nil {
		t.Fatalf("ListIssuesForProperty: %v", err)
	}
	if len(listed) != 1 {
		t.Errorf("assigned agent must see the issue, got %d", len(listed))
	}
}

func TestListForMatchRestrictedToParticipants(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	matchID := "match-1"

	input := urgentInput()
	input.MatchID = &matchID
	h.raise(t, input)

	listed, err := h.svc.ListIssuesForMatch(ctx, matchID, "renter-1", domain.RoleRenter, IssueListFilter{})
	if err != nil {
		t.Fatalf("renter list: %v", err)
	}
	if len(listed) != 1 {
		t.Errorf("renter must see their match issue, got %d", len(listed))
	}

	if listed, err = h.svc.ListIssuesForMatch(ctx, matchID, "landlord-1", domain.RoleLandlord, IssueListFilter{}); err != nil {
		t.Fatalf("landlord list: %v", err)
	} else if len(listed) != 1 {
		t.Errorf("responsible landlord must see the match issue, got %d", len(listed))
	}

	if listed, err = h.svc.ListIssuesForMatch(ctx, matchID, "renter-9", domain.RoleRenter, IssueListFilter{}); err != nil {
		t.Fatalf("outsider renter list: %v", err)
	} else if len(listed) != 0 {
		t.Errorf("an uninvolved renter must see nothing, got %d", len(listed))
	}

	if listed, err = h.svc.ListIssuesForMatch(ctx, matchID, "landlord-9", domain.RoleLandlord, IssueListFilter{}); err != nil {
		t.Fatalf("outsider landlord list: %v", err)
	} else if len(listed) != 0 {
		t.Errorf("an uninvolved landlord must see nothing, got %d", len(listed))
	}
}

func TestStringPreviewKeepsRuneBoundaries(t *testing.T) {
	body := strings.Repeat("délabré ", 40)
	preview := stringPreview(body, 120)
	if !utf8.ValidString(preview) {
		t.Errorf("preview split a rune: %q", preview)
	}
	if got := utf8.RuneCountInString(preview); got > 120 {
		t.Errorf("preview rune count = %d, want <= 120", got)
	}
	if !strings.HasSuffix(preview, "...") {
		t.Errorf("long preview must end with ellipsis: %q", preview)
	}
	if short := stringPreview("  café  ", 120); short != "café" {
		t.Errorf("short preview = %q, want trimmed body", short)
	}
}

func TestGetIssueDeniesOutsiders(t *testing.T) {
	h := newHarness(t, nil)
	issue := h.raise(t, urgentInput())

	_, err := h.svc.GetIssue(context.Background(), issue.ID, "stranger", domain.RoleLandlord)
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
