package dto

import (
	"fmt"

	"github.com/spec-kit/testnet-portal/internal/domain"
	"github.com/spec-kit/testnet-portal/internal/login"
)

const (
	loginHref  = "/login"
	loginLabel = "Login to Testnet"
)

// ErrorBody renders the error carried by a login snapshot.
type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SessionResponse is the login snapshot of one browser session.
type SessionResponse struct {
	SessionID  string                   `json:"session_id"`
	Status     string                   `json:"status"`
	IsLoggedIn bool                     `json:"is_logged_in"`
	IsLoading  bool                     `json:"is_loading"`
	IsFailed   bool                     `json:"is_failed"`
	Profile    *domain.Profile          `json:"profile,omitempty"`
	Identity   *domain.IdentityMetadata `json:"identity,omitempty"`
	Error      *ErrorBody               `json:"error,omitempty"`
	Redirect   string                   `json:"redirect,omitempty"`
	TimedOut   bool                     `json:"timed_out,omitempty"`
}

// NewSessionResponse maps a snapshot.
func NewSessionResponse(sessionID string, snap login.Snapshot, redirect string) SessionResponse {
	resp := SessionResponse{
		SessionID:  sessionID,
		Status:     snap.Status.String(),
		IsLoggedIn: snap.IsLoggedIn(),
		IsLoading:  snap.IsLoading(),
		IsFailed:   snap.IsFailed(),
		Profile:    snap.Profile,
		Identity:   snap.Identity,
		Redirect:   redirect,
	}
	if snap.Error != nil {
		resp.Error = &ErrorBody{Code: snap.Error.Code(), Message: snap.Error.Error()}
	}
	return resp
}

// ButtonResponse is the navigation login button.
type ButtonResponse struct {
	Href  string `json:"href"`
	Label string `json:"label"`
}

// NewButtonResponse links to the profile page once logged in and shows the
// graffiti whenever a profile is known.
func NewButtonResponse(snap login.Snapshot) ButtonResponse {
	btn := ButtonResponse{Href: loginHref, Label: loginLabel}
	if snap.Profile == nil {
		return btn
	}
	if snap.IsLoggedIn() && snap.Profile.ID != 0 {
		btn.Href = fmt.Sprintf("/users/%d", snap.Profile.ID)
	}
	if snap.Profile.Graffiti != "" {
		btn.Label = snap.Profile.Graffiti
	}
	return btn
}
