package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-service/internal/auth"
	"github.com/spec-kit/issue-service/internal/domain"
	"github.com/spec-kit/issue-service/internal/service"
	apperrors "github.com/spec-kit/issue-service/pkg/util"
)

// ResponderIssuesHandler serves the landlord and agency dashboards.
type ResponderIssuesHandler struct {
	service *service.IssueService
}

// NewResponderIssuesHandler constructs handler.
func NewResponderIssuesHandler(issueService *service.IssueService) *ResponderIssuesHandler {
	return &ResponderIssuesHandler{service: issueService}
}

// Acknowledge POST /issues/:id/acknowledge.
func (h *ResponderIssuesHandler) Acknowledge(c *fiber.Ctx) error {
	return h.transition(c, domain.IssueStatusAcknowledged)
}

// StartWork POST /issues/:id/start.
func (h *ResponderIssuesHandler) StartWork(c *fiber.Ctx) error {
	return h.transition(c, domain.IssueStatusInProgress)
}

// Resolve POST /issues/:id/resolve.
func (h *ResponderIssuesHandler) Resolve(c *fiber.Ctx) error {
	return h.transition(c, domain.IssueStatusResolved)
}

// ListForProperty GET /properties/:id/issues.
func (h *ResponderIssuesHandler) ListForProperty(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	issues, err := h.service.ListIssuesForProperty(c.Context(), c.Params("id"), principal.ID, parseIssueQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueSummaries(issues)})
}

// ListForMatch GET /matches/:id/issues.
func (h *ResponderIssuesHandler) ListForMatch(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	issues, err := h.service.ListIssuesForMatch(c.Context(), c.Params("id"), principal.ID, principal.Role, parseIssueQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueSummaries(issues)})
}

func (h *ResponderIssuesHandler) transition(c *fiber.Ctx, target domain.IssueStatus) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req struct {
		Note              string   `json:"note"`
		ResolutionSummary string   `json:"resolution_summary"`
		ResolutionCost    *float64 `json:"resolution_cost"`
	}
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
