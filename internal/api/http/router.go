package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/voltdesk/maintenance-service/internal/api/http/handlers"
	"github.com/voltdesk/maintenance-service/internal/auth"
	"github.com/voltdesk/maintenance-service/internal/domain"
	"github.com/voltdesk/maintenance-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Sla            *handlers.SlaHandler
	Csms           *handlers.CsmsHandler
	AuthMiddleware *auth.Middleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	app.Post("/auth/login", cfg.Auth.Login)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	tickets := api.Group("/tickets")
	tickets.Post("",
		auth.RequireRole(domain.RoleAdmin, domain.RoleTenantAdmin, domain.RoleCallCenter, domain.RoleASManager),
		cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/transition", cfg.Tickets.Transition)
	tickets.Post("/:id/assign", cfg.Tickets.Assign)
	tickets.Post("/:id/unassign", cfg.Tickets.Unassign)
	tickets.Get("/:id/history", cfg.Tickets.ListHistory)
	tickets.Get("/:id/assignments", cfg.Tickets.ListAssignments)
	tickets.Post("/:id/worklogs",
		auth.RequireRole(domain.RoleAdmin, domain.RoleTenantAdmin, domain.RoleCallCenter, domain.RoleASManager, domain.RoleASEngineer),
		cfg.Tickets.AddWorklog)
	tickets.Get("/:id/worklogs", cfg.Tickets.ListWorklogs)

	tickets.Get("/:id/csms", cfg.Csms.ListRefs)
	tickets.Post("/:id/csms/events",
		auth.RequireRole(domain.RoleAdmin, domain.RoleTenantAdmin, domain.RoleASManager, domain.RoleASEngineer),
		cfg.Csms.LinkEvent)
	tickets.Post("/:id/csms/firmware-jobs",
		auth.RequireRole(domain.RoleAdmin, domain.RoleTenantAdmin, domain.RoleASManager, domain.RoleASEngineer),
		cfg.Csms.LinkFirmwareJob)

	api.Get("/chargers/:id/status", cfg.Csms.ChargerStatus)

	slaGroup := api.Group("/sla")
	slaGroup.Get("/policies", cfg.Sla.ListPolicies)
	slaGroup.Put("/policies",
		auth.RequireRole(domain.RoleAdmin, domain.RoleTenantAdmin),
		cfg.Sla.UpsertPolicy)
}
