package dto

import (
	"testing"

	"github.com/spec-kit/testnet-portal/internal/domain"
	"github.com/spec-kit/testnet-portal/internal/login"
)

func TestNewButtonResponse(t *testing.T) {
	tests := []struct {
		name string
		snap login.Snapshot
		want ButtonResponse
	}{
		{"loading", login.Snapshot{Status: login.StatusLoading}, ButtonResponse{"/login", "Login to Testnet"}},
		{"not found", login.Snapshot{Status: login.StatusNotFound}, ButtonResponse{"/login", "Login to Testnet"}},
		{
			"loaded with graffiti",
			login.Snapshot{Status: login.StatusLoaded, Profile: &domain.Profile{ID: 12, Graffiti: "ironfish"}},
			ButtonResponse{"/users/12", "ironfish"},
		},
		{
			"loaded without graffiti",
			login.Snapshot{Status: login.StatusLoaded, Profile: &domain.Profile{ID: 12}},
			ButtonResponse{"/users/12", "Login to Testnet"},
		},
		{"forced", login.Snapshot{Status: login.StatusForced}, ButtonResponse{"/login", "Login to Testnet"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewButtonResponse(tt.snap); got != tt.want {
				t.Fatalf("NewButtonResponse = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNewSessionResponse_Error(t *testing.T) {
	snap := login.Snapshot{Status: login.StatusFailed, Error: domain.NewLocalError("boom", 503)}
	resp := NewSessionResponse("s", snap, "")
	if !resp.IsFailed || resp.Error == nil || resp.Error.Code != 503 || resp.Error.Message != "boom" {
		t.Fatalf("resp = %+v", resp)
	}
}
