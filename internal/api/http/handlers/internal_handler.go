package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/testnet-portal/internal/domain"
	"github.com/spec-kit/testnet-portal/internal/observability"
	"github.com/spec-kit/testnet-portal/internal/session"
)

// AuditLog reads the login audit trail.
type AuditLog interface {
	Recent(ctx context.Context, limit int) ([]domain.LoginOutcome, error)
	BySession(ctx context.Context, sessionID string) ([]domain.LoginOutcome, error)
}

// InternalHandler serves operator diagnostics.
type InternalHandler struct {
	metrics  *observability.Metrics
	registry *session.Registry
	audit    AuditLog
}

// NewInternalHandler constructs handler.
func NewInternalHandler(metrics *observability.Metrics, registry *session.Registry, audit AuditLog) *InternalHandler {
	return &InternalHandler{metrics: metrics, registry: registry, audit: audit}
}

// Metrics handles GET /internal/metrics.
func (h *InternalHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}

// Sessions handles GET /internal/sessions.
func (h *InternalHandler) Sessions(c *fiber.Ctx) error {
	sessions := h.registry.List()
	return c.JSON(fiber.Map{
		"data":  sessions,
		"count": len(sessions),
	})
}

// Outcomes handles GET /internal/outcomes, optionally filtered by
// ?session_id.
func (h *InternalHandler) Outcomes(c *fiber.Ctx) error {
	var (
		rows []domain.LoginOutcome
		err  error
	)
	if id := c.Query("session_id"); id != "" {
		rows, err = h.audit.BySession(c.UserContext(), id)
	} else {
		rows, err = h.audit.Recent(c.UserContext(), c.QueryInt("limit", 50))
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": rows})
}
