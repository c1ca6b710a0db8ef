package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/testnet-portal/internal/domain"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"unauthenticated", fmt.Errorf("verify: %w", domain.ErrUnauthenticated), "UNAUTHORIZED", http.StatusUnauthorized},
		{"no rows", pgx.ErrNoRows, "NOT_FOUND", http.StatusNotFound},
		{"tagged api error", &domain.APIError{StatusCode: 422, Tag: "Unprocessable Entity"}, "Unprocessable Entity", 422},
		{"untagged api error", &domain.APIError{StatusCode: 404}, "BACKEND_ERROR", http.StatusNotFound},
		{"api error without status", &domain.APIError{}, "BACKEND_ERROR", http.StatusBadGateway},
		{"local error", domain.NewLocalError("No token available.", 500), "LOCAL_ERROR", http.StatusInternalServerError},
		{"local error from response", domain.NewLocalError("bad gateway", 502), "LOCAL_ERROR", http.StatusBadGateway},
		{"plain", errors.New("boom"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDomainError(tt.err)
			if got.Code != tt.wantCode {
				t.Fatalf("Code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.HTTPStatus != tt.wantStatus {
				t.Fatalf("HTTPStatus = %d, want %d", got.HTTPStatus, tt.wantStatus)
			}
		})
	}
}

func TestToDomainError_PassesThroughDomainError(t *testing.T) {
	original := NewDomainError("FORBIDDEN", "nope", http.StatusForbidden, nil)
	wrapped := fmt.Errorf("handler: %w", original)
	if got := ToDomainError(wrapped); got != original {
		t.Fatalf("ToDomainError = %v, want original error", got)
	}
	if ToDomainError(nil) != nil {
		t.Fatal("ToDomainError(nil) should be nil")
	}
}
