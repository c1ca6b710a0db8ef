package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/testnet-portal/internal/api/dto"
	"github.com/spec-kit/testnet-portal/internal/apiclient"
	"github.com/spec-kit/testnet-portal/internal/identity"
	"github.com/spec-kit/testnet-portal/internal/session"
	apperrors "github.com/spec-kit/testnet-portal/pkg/util/errorutil"
)

const defaultWaitTimeout = 10 * time.Second

// CookieOptions controls the session cookie.
type CookieOptions struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// Authenticator registers an identity token with the backend.
type Authenticator interface {
	Login(ctx context.Context, token string) (*apiclient.LoginResponse, error)
}

// SessionHandler exposes the login state of the caller's browser session.
type SessionHandler struct {
	registry    *session.Registry
	auth        Authenticator
	cookie      CookieOptions
	waitTimeout time.Duration
}

// NewSessionHandler constructs handler.
func NewSessionHandler(registry *session.Registry, auth Authenticator, cookie CookieOptions, waitTimeout time.Duration) *SessionHandler {
	if cookie.Name == "" {
		cookie.Name = "portal_session"
	}
	if waitTimeout <= 0 {
		waitTimeout = defaultWaitTimeout
	}
	return &SessionHandler{registry: registry, auth: auth, cookie: cookie, waitTimeout: waitTimeout}
}

// Get handles GET /api/session. With ?wait=true it blocks until the current
// reconciliation run finishes.
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	s := h.acquire(c, false)

	timedOut := false
	if c.QueryBool("wait") {
		timedOut = h.wait(c, s)
	}

	return c.JSON(fiber.Map{
		"data": h.response(s, timedOut),
	})
}

// Login handles POST /api/login. The request token is registered with the
// backend first, then the session re-runs reconciliation with it and the
// handler waits for that run.
func (h *SessionHandler) Login(c *fiber.Ctx) error {
	token := identity.TokenFromRequest(c.Get(fiber.HeaderAuthorization), c.Cookies(identity.CookieName))
	if token == "" {
		return apperrors.NewUnauthorized("missing identity token")
	}

	result, err := h.auth.Login(c.UserContext(), string(token))
	if err != nil {
		return err
	}

	s := h.acquire(c, true)
	timedOut := h.wait(c, s)

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"login":   result,
			"session": h.response(s, timedOut),
		},
	})
}

// Button handles GET /api/session/button.
func (h *SessionHandler) Button(c *fiber.Ctx) error {
	s := h.acquire(c, false)
	return c.JSON(fiber.Map{
		"data": dto.NewButtonResponse(s.Machine().Snapshot()),
	})
}

// Delete handles DELETE /api/session.
func (h *SessionHandler) Delete(c *fiber.Ctx) error {
	if id := c.Cookies(h.cookie.Name); id != "" {
		h.registry.Release(id)
	}
	c.ClearCookie(h.cookie.Name)
	return c.SendStatus(fiber.StatusNoContent)
}

// wait blocks until the session's current run finishes and reports whether
// the wait timed out. A timed out wait still leaves a usable snapshot.
func (h *SessionHandler) wait(c *fiber.Ctx, s *session.Session) bool {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.waitTimeout)
	defer cancel()
	return s.Machine().Wait(ctx) != nil
}

func (h *SessionHandler) response(s *session.Session, timedOut bool) dto.SessionResponse {
	resp := dto.NewSessionResponse(s.ID, s.Machine().Snapshot(), s.PendingRedirect())
	resp.TimedOut = timedOut
	return resp
}

func (h *SessionHandler) acquire(c *fiber.Ctx, relogin bool) *session.Session {
	id := c.Cookies(h.cookie.Name)
	token := string(identity.TokenFromRequest(c.Get(fiber.HeaderAuthorization), c.Cookies(identity.CookieName)))

	var s *session.Session
	if relogin {
		s, _ = h.registry.Login(id, token)
	} else {
		s, _ = h.registry.Acquire(id, token)
	}
	if s.ID != id {
		cookie := &fiber.Cookie{
			Name:     h.cookie.Name,
			Value:    s.ID,
			Path:     "/",
			HTTPOnly: true,
			Secure:   h.cookie.Secure,
			SameSite: fiber.CookieSameSiteLaxMode,
		}
		if h.cookie.MaxAge > 0 {
			cookie.MaxAge = int(h.cookie.MaxAge / time.Second)
		}
		c.Cookie(cookie)
	}
	return s
}
