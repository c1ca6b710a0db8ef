package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/testnet-portal/internal/apiclient"
)

// Leaderboard lists ranked users.
type Leaderboard interface {
	List(ctx context.Context, q apiclient.LeaderboardQuery) (*apiclient.ListLeaderboardResponse, error)
}

// LeaderboardHandler serves the ranked user list.
type LeaderboardHandler struct {
	leaderboard Leaderboard
}

// NewLeaderboardHandler constructs handler.
func NewLeaderboardHandler(leaderboard Leaderboard) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard}
}

// List handles GET /api/leaderboard.
func (h *LeaderboardHandler) List(c *fiber.Ctx) error {
	resp, err := h.leaderboard.List(c.UserContext(), apiclient.LeaderboardQuery{
		Search:      c.Query("search"),
		CountryCode: c.Query("country_code"),
		EventType:   c.Query("event_type"),
	})
	if err != nil {
		return err
	}
	return c.JSON(resp)
}
