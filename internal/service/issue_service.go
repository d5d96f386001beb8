package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/issue-service/internal/domain"
	"github.com/spec-kit/issue-service/internal/events"
	"github.com/spec-kit/issue-service/internal/repository"
	"github.com/spec-kit/issue-service/internal/sla"
	"github.com/spec-kit/issue-service/internal/workflow"
	apperrors "github.com/spec-kit/issue-service/pkg/util"
)

// IssueService is the lifecycle engine boundary: creation, status
// transitions, the message thread, and overdue-aware reads. It holds no
// state between calls; every operation reads, computes, and hands one
// atomic write to the repository.
type IssueService struct {
	issues        repository.IssueRepository
	history       repository.StatusHistoryRepository
	messages      repository.IssueMessageRepository
	agencyConfigs repository.AgencyConfigProvider
	dispatcher    events.Dispatcher
	slaDefaults   sla.Defaults
	closeGrace    time.Duration
	now           func() time.Time
}

// IssueDependencies bundles collaborators for the issue service.
type IssueDependencies struct {
	IssueRepo     repository.IssueRepository
	HistoryRepo   repository.StatusHistoryRepository
	MessageRepo   repository.IssueMessageRepository
	AgencyConfigs repository.AgencyConfigProvider
	Dispatcher    events.Dispatcher
	SLADefaults   sla.Defaults
	CloseGrace    time.Duration
	Clock         func() time.Time
}

// TransitionInput describes a requested status change.
type TransitionInput struct {
	Target            domain.IssueStatus
	Note              string
	ResolutionSummary string
	ResolutionCost    *float64
}

// IssueListFilter describes listing filters.
type IssueListFilter struct {
	Statuses    []domain.IssueStatus
	Priorities  []domain.IssuePriority
	Categories  []domain.IssueCategory
	OverdueOnly bool
	RaisedFrom  *time.Time
	RaisedTo    *time.Time
	Limit       int
	Offset      int
}

// NewIssueService constructs the service.
func NewIssueService(deps IssueDependencies) *IssueService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &IssueService{
		issues:        deps.IssueRepo,
		history:       deps.HistoryRepo,
		messages:      deps.MessageRepo,
		agencyConfigs: deps.AgencyConfigs,
		dispatcher:    deps.Dispatcher,
		slaDefaults:   deps.SLADefaults,
		closeGrace:    deps.CloseGrace,
		now:           clock,
	}
}

// CreateIssue validates raw input, resolves the SLA deadline, and persists
// a new open issue seeded with its first audit entry.
func (s *IssueService) CreateIssue(ctx context.Context, actorID string, actorRole domain.ActorRole, input domain.NewIssueInput) (*domain.Issue, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if err := authorizeCreation(actorID, actorRole, input); err != nil {
		return nil, err
	}

	now := s.now().UTC()

	// The deadline is resolved exactly once, here. Later edits to the
	// agency configuration never reschedule an open issue.
	var agencyCfg *domain.SLAConfiguration
	if input.AgencyID != nil && *input.AgencyID != "" && s.agencyConfigs != nil {
		cfg, err := s.agencyConfigs.GetSLAConfiguration(ctx, *input.AgencyID)
		if err != nil {
			return nil, err
		}
		agencyCfg = cfg
	}
	deadline := sla.ResolveDeadline(now, input.Priority, agencyCfg, s.slaDefaults)

	assignedAgent := input.AssignedAgentID
	if actorRole == domain.RoleEstateAgent && assignedAgent == nil {
		agentID := actorID
		assignedAgent = &agentID
	}

	issue := &domain.Issue{
		Reference:       generateIssueReference(),
		MatchID:         input.MatchID,
		PropertyID:      input.PropertyID,
		RenterID:        input.RenterID,
		LandlordID:      input.LandlordID,
		AgencyID:        input.AgencyID,
		AssignedAgentID: assignedAgent,
		Responsible:     domain.ResolveResponsibleParty(input.LandlordID, input.AgencyID),
		Category:        input.Category,
		Priority:        input.Priority,
		Subject:         strings.TrimSpace(input.Subject),
		Description:     strings.TrimSpace(input.Description),
		Images:          append([]string{}, input.Images...),
		Status:          domain.IssueStatusOpen,
		IsOverdue:       false,
		Version:         1,
		RaisedAt:        now,
		SLADeadline:     deadline,
		Messages:        []domain.IssueMessage{},
	}

	seed := &domain.StatusHistoryEntry{
		Status:    domain.IssueStatusOpen,
		ActorID:   actorID,
		ActorRole: actorRole,
		Note:      creationNote(actorRole),
		CreatedAt: issue.RaisedAt,
	}
	if err := s.issues.CreateWithHistory(ctx, issue, seed); err != nil {
		return nil, err
	}
	issue.StatusHistory = []domain.StatusHistoryEntry{*seed}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueReported,
		IssueID: issue.ID,
		Actor:   events.Actor{ID: actorID, Role: actorRole},
		Payload: events.IssueReportedPayload{
			Reference:   issue.Reference,
			PropertyID:  issue.PropertyID,
			Priority:    issue.Priority,
			Category:    issue.Category,
			Responsible: issue.Responsible,
			SLADeadline: issue.SLADeadline,
			Subject:     issue.Subject,
		},
	})
	return issue, nil
}

// TransitionStatus drives an issue through the status machine. A version
// conflict from the repository surfaces as a retryable error; the caller
// re-reads and re-validates rather than this service replaying blindly.
func (s *IssueService) TransitionStatus(ctx context.Context, issueID, actorID string, actorRole domain.ActorRole, input TransitionInput) (*domain.Issue, error) {
	issue, err := s.loadAggregate(ctx, issueID)
	if err != nil {
		return nil, err
	}

	oldStatus := issue.Status
	entry, err := workflow.Apply(issue, workflow.Request{
		Target:            input.Target,
		ActorID:           actorID,
		ActorRole:         actorRole,
		Note:              input.Note,
		ResolutionSummary: input.ResolutionSummary,
		ResolutionCost:    input.ResolutionCost,
		Now:               s.now().UTC(),
		CloseGrace:        s.closeGrace,
	})
	if err != nil {
		return nil, err
	}

	if err := s.issues.UpdateWithHistory(ctx, issue, entry); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("issue", map[string]any{"issue_id": issueID})
		}
		return nil, err
	}
	issue.StatusHistory = append(issue.StatusHistory, *entry)

	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueStatusChanged,
		IssueID: issue.ID,
		Actor:   events.Actor{ID: actorID, Role: actorRole},
		Payload: events.IssueStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: issue.Status,
			IsOverdue: issue.IsOverdue,
			Note:      entry.Note,
		},
	})
	return issue, nil
}

// AppendMessage adds one thread entry. It never touches status, deadlines,
// or the issue version.
func (s *IssueService) AppendMessage(ctx context.Context, issueID, senderID string, senderRole domain.ActorRole, senderName, body string, isInternal bool) (*domain.Issue, error) {
	issue, err := s.loadAggregate(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if !issue.InvolvesActor(senderID, senderRole) {
		return nil, apperrors.NewForbidden("sender is not a participant on this issue")
	}
	if isInternal && !senderRole.ResponderRole() {
		return nil, apperrors.NewForbidden("internal notes are restricted to landlord and agency roles")
	}
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return nil, apperrors.NewValidationError("message body required", map[string]any{"field": "body"})
	}

	msg := &domain.IssueMessage{
		IssueID:    issue.ID,
		SenderID:   senderID,
		SenderRole: senderRole,
		SenderName: strings.TrimSpace(senderName),
		Body:       trimmed,
		IsInternal: isInternal,
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		return nil, err
	}
	issue.Messages = append(issue.Messages, *msg)

	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueMessageAdded,
		IssueID: issue.ID,
		Actor:   events.Actor{ID: senderID, Role: senderRole},
		Payload: events.IssueMessageAddedPayload{
			MessageID:   msg.ID,
			SenderRole:  msg.SenderRole,
			IsInternal:  msg.IsInternal,
			BodyPreview: stringPreview(msg.Body, 120),
		},
	})
	return s.viewFor(issue, senderRole), nil
}

// GetIssue fetches an issue for a participant, recomputing the overdue
// flag as of now and hiding internal notes from renters.
func (s *IssueService) GetIssue(ctx context.Context, issueID, actorID string, actorRole domain.ActorRole) (*domain.Issue, error) {
	issue, err := s.loadAggregate(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if !issue.InvolvesActor(actorID, actorRole) {
		return nil, apperrors.NewForbidden("access denied")
	}
	issue.IsOverdue = sla.Evaluate(s.now().UTC(), issue.Status, issue.SLADeadline, issue.IsOverdue)
	return s.viewFor(issue, actorRole), nil
}

// ListIssuesForRenter returns the renter's own issues.
func (s *IssueService) ListIssuesForRenter(ctx context.Context, renterID string, filter IssueListFilter) ([]domain.Issue, error) {
	repoFilter := s.repoFilter(filter)
	repoFilter.RenterID = &renterID
	return s.list(ctx, repoFilter)
}

// ListIssuesForProperty returns issues raised against a property, scoped to
// those the caller answers for. A responder never sees another party's
// issues, even on a property both have managed.
func (s *IssueService) ListIssuesForProperty(ctx context.Context, propertyID, actorID string, filter IssueListFilter) ([]domain.Issue, error) {
	repoFilter := s.repoFilter(filter)
	repoFilter.PropertyID = &propertyID
	repoFilter.PartyID = &actorID
	return s.list(ctx, repoFilter)
}

// ListIssuesForMatch returns a participant's issues for a tenancy match.
// Renters are scoped to their own issues, responders to those they answer
// for; an outsider gets an empty list, not a leak.
func (s *IssueService) ListIssuesForMatch(ctx context.Context, matchID, actorID string, actorRole domain.ActorRole, filter IssueListFilter) ([]domain.Issue, error) {
	repoFilter := s.repoFilter(filter)
	repoFilter.MatchID = &matchID
	if actorRole == domain.RoleRenter {
		repoFilter.RenterID = &actorID
	} else {
		repoFilter.PartyID = &actorID
	}
	return s.list(ctx, repoFilter)
}

// RateResolution records the renter's satisfaction rating, once, after the
// issue has reached a terminal state.
func (s *IssueService) RateResolution(ctx context.Context, issueID, renterID string, rating int) (*domain.Issue, error) {
	if rating < 1 || rating > 5 {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5", map[string]any{"field": "rating"})
	}
	issue, err := s.loadAggregate(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if issue.RenterID != renterID {
		return nil, apperrors.NewForbidden("only the renter may rate a resolution")
	}
	if !issue.Status.Terminal() {
		return nil, apperrors.NewConflict("issue is not resolved yet", map[string]any{"status": issue.Status})
	}
	if issue.RenterSatisfactionRating != nil {
		return nil, apperrors.NewConflict("rating already submitted", nil)
	}

	issue.RenterSatisfactionRating = &rating
	if err := s.issues.Update(ctx, issue); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("issue", map[string]any{"issue_id": issueID})
		}
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueRated,
		IssueID: issue.ID,
		Actor:   events.Actor{ID: renterID, Role: domain.RoleRenter},
		Payload: events.IssueRatedPayload{Rating: rating},
	})
	return issue, nil
}

func (s *IssueService) list(ctx context.Context, filter repository.IssueFilter) ([]domain.Issue, error) {
	issues, err := s.issues.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	for i := range issues {
		issues[i].IsOverdue = sla.Evaluate(now, issues[i].Status, issues[i].SLADeadline, issues[i].IsOverdue)
	}
	return issues, nil
}

func (s *IssueService) repoFilter(filter IssueListFilter) repository.IssueFilter {
	return repository.IssueFilter{
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		Categories:  filter.Categories,
		OverdueOnly: filter.OverdueOnly,
		RaisedFrom:  filter.RaisedFrom,
		RaisedTo:    filter.RaisedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
}

func (s *IssueService) loadAggregate(ctx context.Context, issueID string) (*domain.Issue, error) {
	issue, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("issue", map[string]any{"issue_id": issueID})
		}
		return nil, err
	}
	history, err := s.history.ListByIssue(ctx, issue.ID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByIssue(ctx, issue.ID)
	if err != nil {
		return nil, err
	}
	issue.StatusHistory = history
	issue.Messages = msgs
	return issue, nil
}

// viewFor hides internal notes from renters. The flag itself is immutable
// at write time; filtering is the read-side obligation.
func (s *IssueService) viewFor(issue *domain.Issue, role domain.ActorRole) *domain.Issue {
	if role != domain.RoleRenter {
		return issue
	}
	view := *issue
	view.Messages = issue.VisibleMessages()
	return &view
}

func authorizeCreation(actorID string, actorRole domain.ActorRole, input domain.NewIssueInput) error {
	switch actorRole {
	case domain.RoleRenter:
		if actorID != input.RenterID {
			return apperrors.NewForbidden("renters may only raise issues for themselves")
		}
	case domain.RoleManagementAgency:
		if input.AgencyID == nil || actorID != *input.AgencyID {
			return apperrors.NewForbidden("agency may only raise issues it manages")
		}
	case domain.RoleEstateAgent:
		if input.AgencyID == nil || *input.AgencyID == "" {
			return apperrors.NewForbidden("agent-raised issues require a managing agency")
		}
	default:
		return apperrors.NewForbidden("only renters and agents may raise issues")
	}
	return nil
}

func creationNote(role domain.ActorRole) string {
	if role == domain.RoleRenter {
		return "Issue reported by renter"
	}
	return "Issue reported by managing agent"
}

func generateIssueReference() string {
	return "ISS-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (s *IssueService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
