package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/testnet-portal/internal/api/dto"
	"github.com/spec-kit/testnet-portal/internal/apiclient"
	apperrors "github.com/spec-kit/testnet-portal/pkg/util/errorutil"
)

// Backend is the part of the testnet API proxied to the browser.
type Backend interface {
	GetUser(ctx context.Context, userID string) (*apiclient.User, error)
	CreateUser(ctx context.Context, in apiclient.CreateUserInput) (*apiclient.User, error)
	GetUserWeeklyMetrics(ctx context.Context, userID string) (*apiclient.UserMetricsResponse, error)
	GetUserAllTimeMetrics(ctx context.Context, userID string) (*apiclient.UserMetricsResponse, error)
	ListEvents(ctx context.Context, q apiclient.EventsQuery) (*apiclient.ListEventsResponse, error)
	GetMetricsConfig(ctx context.Context) (*apiclient.MetricsConfigResponse, error)
}

// UsersHandler exposes testnet user endpoints.
type UsersHandler struct {
	backend Backend
}

// NewUsersHandler constructs handler.
func NewUsersHandler(backend Backend) *UsersHandler {
	return &UsersHandler{backend: backend}
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Graffiti = strings.TrimSpace(req.Graffiti)
	if req.Email == "" || req.Graffiti == "" || req.CountryCode == "" {
		return apperrors.NewValidationError("email, graffiti, country_code required", nil)
	}
	if !dto.ValidSocialChoice(req.SocialChoice) {
		return apperrors.NewValidationError("unsupported social choice", map[string]any{"social_choice": req.SocialChoice})
	}

	user, err := h.backend.CreateUser(c.UserContext(), apiclient.CreateUserInput{
		Email:        req.Email,
		Graffiti:     req.Graffiti,
		CountryCode:  req.CountryCode,
		SocialChoice: req.SocialChoice,
		Social:       strings.TrimSpace(req.Social),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": user})
}

// Get handles GET /api/users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	user, err := h.backend.GetUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": user})
}

// Metrics handles GET /api/users/:id/metrics?window=weekly|all_time.
func (h *UsersHandler) Metrics(c *fiber.Ctx) error {
	id := c.Params("id")

	var (
		resp *apiclient.UserMetricsResponse
		err  error
	)
	switch window := c.Query("window", "weekly"); window {
	case "weekly":
		resp, err = h.backend.GetUserWeeklyMetrics(c.UserContext(), id)
	case "all_time":
		resp, err = h.backend.GetUserAllTimeMetrics(c.UserContext(), id)
	default:
		return apperrors.NewValidationError("window must be weekly or all_time", map[string]any{"window": window})
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Events handles GET /api/users/:id/events.
func (h *UsersHandler) Events(c *fiber.Ctx) error {
	resp, err := h.backend.ListEvents(c.UserContext(), apiclient.EventsQuery{
		UserID: c.Params("id"),
		After:  c.Query("after"),
		Before: c.Query("before"),
		Limit:  c.QueryInt("limit", 0),
	})
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// MetricsConfig handles GET /api/metrics/config.
func (h *UsersHandler) MetricsConfig(c *fiber.Ctx) error {
	resp, err := h.backend.GetMetricsConfig(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": resp})
}
