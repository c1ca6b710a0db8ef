package domain

import "time"

// LoginOutcome is one audited login lifecycle event.
type LoginOutcome struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	EventType  string    `json:"event_type"`
	Status     string    `json:"status"`
	UserID     *int64    `json:"user_id,omitempty"`
	ErrorCode  *int      `json:"error_code,omitempty"`
	Error      *string   `json:"error,omitempty"`
	Detail     *string   `json:"detail,omitempty"`
	ElapsedMS  int64     `json:"elapsed_ms"`
	OccurredAt time.Time `json:"occurred_at"`
}
