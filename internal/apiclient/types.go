package apiclient

import "time"

// User is a public testnet user record.
type User struct {
	ID               int64     `json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	Email            string    `json:"email,omitempty"`
	Graffiti         string    `json:"graffiti"`
	CountryCode      string    `json:"country_code"`
	DiscordUsername  *string   `json:"discord_username"`
	TelegramUsername *string   `json:"telegram_username"`
	TotalPoints      int64     `json:"total_points"`
	Rank             int64     `json:"rank,omitempty"`
}

// Event is a point-earning action recorded for a user.
type Event struct {
	ID         int64     `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Points     int64     `json:"points"`
	UserID     int64     `json:"user_id"`
}

// PageMetadata carries cursor information for paginated lists.
type PageMetadata struct {
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

// ListLeaderboardResponse is returned by GET /users.
type ListLeaderboardResponse struct {
	Data []User `json:"data"`
}

// ListEventsResponse is returned by GET /events.
type ListEventsResponse struct {
	Data     []Event       `json:"data"`
	Metadata *PageMetadata `json:"metadata,omitempty"`
}

// MetricTotal aggregates one event category.
type MetricTotal struct {
	Count  int64 `json:"count"`
	Points int64 `json:"points"`
}

// UserMetricsResponse is returned by GET /users/{id}/metrics.
type UserMetricsResponse struct {
	UserID      int64                  `json:"user_id"`
	Granularity string                 `json:"granularity"`
	Points      int64                  `json:"points"`
	Start       *time.Time             `json:"metrics_start,omitempty"`
	End         *time.Time             `json:"metrics_end,omitempty"`
	Metrics     map[string]MetricTotal `json:"metrics"`
}

// MetricsConfigResponse lists the weekly point caps per event type.
type MetricsConfigResponse struct {
	WeeklyLimits map[string]int64 `json:"weekly_limits"`
	EventPoints  map[string]int64 `json:"points_per_category"`
}

// LeaderboardQuery filters the leaderboard.
type LeaderboardQuery struct {
	Search      string
	CountryCode string
	EventType   string
}

// EventsQuery pages through a user's events.
type EventsQuery struct {
	UserID string
	After  string
	Before string
	Limit  int
}

// CreateUserInput registers a new testnet participant. SocialChoice names
// the JSON field (e.g. "discord") that receives Social.
type CreateUserInput struct {
	Email        string
	Graffiti     string
	SocialChoice string
	Social       string
	CountryCode  string
}

// LoginResponse reports a backend login. The backend body is not
// interpreted beyond its error shape.
type LoginResponse struct {
	StatusCode int  `json:"statusCode"`
	Loaded     bool `json:"loaded"`
}
