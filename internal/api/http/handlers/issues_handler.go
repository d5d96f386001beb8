package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-service/internal/api/dto"
	"github.com/spec-kit/issue-service/internal/auth"
	"github.com/spec-kit/issue-service/internal/domain"
	"github.com/spec-kit/issue-service/internal/service"
	apperrors "github.com/spec-kit/issue-service/pkg/util"
)

// IssuesHandler manages issue lifecycle endpoints shared by all roles.
type IssuesHandler struct {
	service *service.IssueService
}

// NewIssuesHandler constructs handler.
func NewIssuesHandler(issueService *service.IssueService) *IssuesHandler {
	return &IssuesHandler{service: issueService}
}

// CreateIssue POST /issues.
func (h *IssuesHandler) CreateIssue(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := domain.NewIssueInput{
		MatchID:         req.MatchID,
		PropertyID:      req.PropertyID,
		RenterID:        req.RenterID,
		LandlordID:      req.LandlordID,
		AgencyID:        req.AgencyID,
		AssignedAgentID: req.AssignedAgentID,
		Category:        req.Category,
		Priority:        req.Priority,
		Subject:         req.Subject,
		Description:     req.Description,
		Images:          req.Images,
	}
	if principal.Role == domain.RoleRenter {
		input.RenterID = principal.ID
	}
	issue, err := h.service.CreateIssue(c.Context(), principal.ID, principal.Role, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": issueDetail(issue)})
}

// ListMyIssues GET /issues (renter's own).
func (h *IssuesHandler) ListMyIssues(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	issues, err := h.service.ListIssuesForRenter(c.Context(), principal.ID, parseIssueQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueSummaries(issues)})
}

// GetIssue GET /issues/:id.
func (h *IssuesHandler) GetIssue(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	issue, err := h.service.GetIssue(c.Context(), c.Params("id"), principal.ID, principal.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueDetail(issue)})
}

// AddMessage POST /issues/:id/messages.
func (h *IssuesHandler) AddMessage(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	issue, err := h.service.AppendMessage(c.Context(), c.Params("id"), principal.ID, principal.Role, principal.DisplayName, req.Body, req.IsInternal)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": issueDetail(issue)})
}

// CloseIssue POST /issues/:id/close. Renter confirmation, or responsible
// party after the grace period; the workflow decides.
func (h *IssuesHandler) CloseIssue(c *fiber.Ctx) error {
	return h.transition(c, domain.IssueStatusClosed)
}

// DisputeResolution POST /issues/:id/dispute.
func (h *IssuesHandler) DisputeResolution(c *fiber.Ctx) error {
	return h.transition(c, domain.IssueStatusInProgress)
}

// RateIssue POST /issues/:id/rating.
func (h *IssuesHandler) RateIssue(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RateIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	issue, err := h.service.RateResolution(c.Context(), c.Params("id"), principal.ID, req.Rating)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueDetail(issue)})
}

func (h *IssuesHandler) transition(c *fiber.Ctx, target domain.IssueStatus) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.TransitionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	issue, err := h.service.TransitionStatus(c.Context(), c.Params("id"), principal.ID, principal.Role, service.TransitionInput{
		Target:            target,
		Note:              req.Note,
		ResolutionSummary: req.ResolutionSummary,
		ResolutionCost:    req.ResolutionCost,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueDetail(issue)})
}

func parseIssueQuery(c *fiber.Ctx) service.IssueListFilter {
	filter := service.IssueListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.IssueStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.IssuePriority(strings.TrimSpace(part)))
		}
	}
	if categoryStr := c.Query("category"); categoryStr != "" {
		for _, part := range strings.Split(categoryStr, ",") {
			filter.Categories = append(filter.Categories, domain.IssueCategory(strings.TrimSpace(part)))
		}
	}
	filter.OverdueOnly = c.QueryBool("overdue")
	if from := parseTime(c.Query("raised_from")); from != nil {
		filter.RaisedFrom = from
	}
	if to := parseTime(c.Query("raised_to")); to != nil {
		filter.RaisedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func issueSummaries(issues []domain.Issue) []dto.IssueSummary {
	items := make([]dto.IssueSummary, 0, len(issues))
	for i := range issues {
		items = append(items, issueSummary(&issues[i]))
	}
	return items
}

func issueSummary(issue *domain.Issue) dto.IssueSummary {
	return dto.IssueSummary{
		ID:          issue.ID,
		Reference:   issue.Reference,
		PropertyID:  issue.PropertyID,
		MatchID:     issue.MatchID,
		Category:    issue.Category,
		Priority:    issue.Priority,
		Subject:     issue.Subject,
		Status:      issue.Status,
		IsOverdue:   issue.IsOverdue,
		RaisedAt:    issue.RaisedAt,
		SLADeadline: issue.SLADeadline,
	}
}

func issueDetail(issue *domain.Issue) dto.IssueDetailResponse {
	history := make([]dto.StatusHistoryResponse, 0, len(issue.StatusHistory))
	for _, entry := range issue.StatusHistory {
		history = append(history, dto.StatusHistoryResponse{
			ID:        entry.ID,
			Status:    entry.Status,
			ActorID:   entry.ActorID,
			ActorRole: entry.ActorRole,
			Note:      entry.Note,
			Timestamp: entry.CreatedAt,
		})
	}
	msgs := make([]dto.IssueMessageResponse, 0, len(issue.Messages))
	for _, msg := range issue.Messages {
		msgs = append(msgs, dto.IssueMessageResponse{
			ID:         msg.ID,
			SenderID:   msg.SenderID,
			SenderRole: msg.SenderRole,
			SenderName: msg.SenderName,
			Body:       msg.Body,
			IsInternal: msg.IsInternal,
			CreatedAt:  msg.CreatedAt,
		})
	}
	return dto.IssueDetailResponse{
		ID:                       issue.ID,
		Reference:                issue.Reference,
		MatchID:                  issue.MatchID,
		PropertyID:               issue.PropertyID,
		RenterID:                 issue.RenterID,
		LandlordID:               issue.LandlordID,
		AgencyID:                 issue.AgencyID,
		AssignedAgentID:          issue.AssignedAgentID,
		ResponsiblePartyKind:     issue.Responsible.Kind,
		ResponsiblePartyID:       issue.Responsible.ID,
		Category:                 issue.Category,
		Priority:                 issue.Priority,
		Subject:                  issue.Subject,
		Description:              issue.Description,
		Images:                   issue.Images,
		Status:                   issue.Status,
		IsOverdue:                issue.IsOverdue,
		RaisedAt:                 issue.RaisedAt,
		SLADeadline:              issue.SLADeadline,
		AcknowledgedAt:           issue.AcknowledgedAt,
		ResolvedAt:               issue.ResolvedAt,
		ClosedAt:                 issue.ClosedAt,
		ResolutionSummary:        issue.ResolutionSummary,
		ResolutionCost:           issue.ResolutionCost,
		RenterSatisfactionRating: issue.RenterSatisfactionRating,
		StatusHistory:            history,
		Messages:                 msgs,
	}
}
