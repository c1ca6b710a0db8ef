package session

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/testnet-portal/internal/events"
	"github.com/spec-kit/testnet-portal/internal/identity"
	"github.com/spec-kit/testnet-portal/internal/login"
)

// Session is one browser session and the login machine it owns.
type Session struct {
	ID        string
	CreatedAt time.Time

	registry *Registry
	machine  *login.Machine

	mu       sync.Mutex
	token    string
	lastSeen time.Time
	redirect string
}

// Machine returns the session's login state machine.
func (s *Session) Machine() *login.Machine {
	return s.machine
}

// PendingRedirect returns the path the session was redirected to because no
// identity token was present, or "".
func (s *Session) PendingRedirect() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.redirect
}

// LastSeen returns when the session was last acquired.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Info returns a diagnostic view of the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:        s.ID,
		Status:    s.machine.Status().String(),
		Redirect:  s.redirect,
		CreatedAt: s.CreatedAt,
		LastSeen:  s.lastSeen,
	}
}

// Redirect records the navigation target; the HTTP layer performs it.
func (s *Session) Redirect(_ context.Context, path string) error {
	s.mu.Lock()
	s.redirect = path
	s.mu.Unlock()

	s.registry.emit(s.ID, events.EventLoginRedirected, events.LoginRedirectedPayload{Path: path})
	return nil
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	if now.After(s.lastSeen) {
		s.lastSeen = now
	}
	s.mu.Unlock()
}

func (s *Session) updateToken(token string, force bool) {
	s.mu.Lock()
	if token == s.token && !force {
		s.mu.Unlock()
		return
	}
	s.token = token
	s.redirect = ""
	s.mu.Unlock()

	s.machine.SetTokenSource(identity.StaticToken(token))
}

func (s *Session) close() {
	s.machine.Close()
}

// observe turns machine transitions into registry events.
func (s *Session) observe(snap login.Snapshot) {
	elapsed := s.registry.now().Sub(s.CreatedAt)

	switch {
	case snap.Status == login.StatusForced:
		s.registry.emit(s.ID, events.EventLoginForced, events.LoginForcedPayload{Elapsed: elapsed})
	case snap.Status.Settled():
		payload := events.LoginSettledPayload{Status: snap.Status.String(), Elapsed: elapsed}
		if snap.Profile != nil {
			id := snap.Profile.ID
			payload.UserID = &id
		}
		if snap.Error != nil {
			payload.ErrorCode = snap.Error.Code()
			payload.Error = snap.Error.Error()
		}
		s.registry.emit(s.ID, events.EventLoginSettled, payload)
	}
}
