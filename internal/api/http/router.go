package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-service/internal/api/http/handlers"
	"github.com/spec-kit/issue-service/internal/auth"
	"github.com/spec-kit/issue-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Issues         *handlers.IssuesHandler
	Responder      *handlers.ResponderIssuesHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	issues := api.Group("/issues")
	issues.Post("/", auth.RequireRole(domain.RoleRenter, domain.RoleEstateAgent, domain.RoleManagementAgency), cfg.Issues.CreateIssue)
	issues.Get("/", auth.RequireRole(domain.RoleRenter), cfg.Issues.ListMyIssues)
	issues.Get("/:id", auth.RequireRole(), cfg.Issues.GetIssue)
	issues.Post("/:id/messages", auth.RequireRole(), cfg.Issues.AddMessage)

	issues.Post("/:id/acknowledge", auth.RequireResponder(), cfg.Responder.Acknowledge)
	issues.Post("/:id/start", auth.RequireResponder(), cfg.Responder.StartWork)
	issues.Post("/:id/resolve", auth.RequireResponder(), cfg.Responder.Resolve)
	issues.Post("/:id/close", auth.RequireRole(), cfg.Issues.CloseIssue)
	issues.Post("/:id/dispute", auth.RequireRole(domain.RoleRenter), cfg.Issues.DisputeResolution)
	issues.Post("/:id/rating", auth.RequireRole(domain.RoleRenter), cfg.Issues.RateIssue)

	api.Get("/properties/:id/issues", auth.RequireResponder(), cfg.Responder.ListForProperty)
	api.Get("/matches/:id/issues", auth.RequireRole(), cfg.Responder.ListForMatch)
}
