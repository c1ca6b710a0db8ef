package events

import (
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLoginSettled    EventType = "login_settled"
	EventLoginForced     EventType = "login_forced"
	EventLoginRedirected EventType = "login_redirected"
	EventSessionClosed   EventType = "session_closed"
)

// Event represents a login lifecycle event emitted by the session registry.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SessionID string      `json:"session_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// LoginSettledPayload describes a reconciliation outcome.
type LoginSettledPayload struct {
	Status    string        `json:"status"`
	UserID    *int64        `json:"user_id,omitempty"`
	ErrorCode int           `json:"error_code,omitempty"`
	Error     string        `json:"error,omitempty"`
	Elapsed   time.Duration `json:"elapsed"`
}

// LoginForcedPayload describes a watchdog timeout.
type LoginForcedPayload struct {
	Elapsed time.Duration `json:"elapsed"`
}

// LoginRedirectedPayload describes a redirect of a logged-out session.
type LoginRedirectedPayload struct {
	Path string `json:"path"`
}

// SessionClosedPayload describes a torn-down session.
type SessionClosedPayload struct {
	Reason     string `json:"reason"`
	LastStatus string `json:"last_status"`
}
