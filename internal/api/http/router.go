package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/testnet-portal/internal/api/http/handlers"
	"github.com/spec-kit/testnet-portal/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Session     *handlers.SessionHandler
	Users       *handlers.UsersHandler
	Leaderboard *handlers.LeaderboardHandler
	Internal    *handlers.InternalHandler
	Operator    *auth.OperatorMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")
	api.Get("/session", cfg.Session.Get)
	api.Get("/session/button", cfg.Session.Button)
	api.Delete("/session", cfg.Session.Delete)
	api.Post("/login", cfg.Session.Login)

	api.Get("/leaderboard", cfg.Leaderboard.List)

	api.Post("/users", cfg.Users.Create)
	api.Get("/users/:id", cfg.Users.Get)
	api.Get("/users/:id/metrics", cfg.Users.Metrics)
	api.Get("/users/:id/events", cfg.Users.Events)
	api.Get("/metrics/config", cfg.Users.MetricsConfig)

	internal := app.Group("/internal", cfg.Operator.Handle, auth.RequireOperator())
	internal.Get("/metrics", cfg.Internal.Metrics)
	internal.Get("/sessions", cfg.Internal.Sessions)
	internal.Get("/outcomes", cfg.Internal.Outcomes)
}
