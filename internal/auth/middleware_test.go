package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/spec-kit/testnet-portal/pkg/util/errorutil"
)

func newOperatorApp(t *testing.T, keyHash string) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			if fe, ok := err.(*fiber.Error); ok {
				return c.SendStatus(fe.Code)
			}
			return c.SendStatus(de.HTTPStatus)
		},
	})
	mw := NewOperatorMiddleware(keyHash)
	app.Get("/internal/ping", mw.Handle, RequireOperator(), func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})
	return app
}

func TestOperatorMiddleware(t *testing.T) {
	hash, err := HashOperatorKey("s3cret", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashOperatorKey: %v", err)
	}

	tests := []struct {
		name   string
		hash   string
		header string
		value  string
		want   int
	}{
		{"header key", hash, OperatorKeyHeader, "s3cret", http.StatusOK},
		{"bearer key", hash, "Authorization", "Bearer s3cret", http.StatusOK},
		{"wrong key", hash, OperatorKeyHeader, "guess", http.StatusUnauthorized},
		{"missing key", hash, "", "", http.StatusUnauthorized},
		{"disabled", "", OperatorKeyHeader, "s3cret", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newOperatorApp(t, tt.hash)
			req := httptest.NewRequest(http.MethodGet, "/internal/ping", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestRequireOperator_WithoutPrincipal(t *testing.T) {
	app := fiber.New()
	app.Get("/", RequireOperator(), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestCompareOperatorKey(t *testing.T) {
	hash, err := HashOperatorKey("k", 0)
	if err != nil {
		t.Fatalf("HashOperatorKey: %v", err)
	}
	if err := CompareOperatorKey(hash, "k"); err != nil {
		t.Fatalf("CompareOperatorKey: %v", err)
	}
	if err := CompareOperatorKey(hash, "other"); err == nil {
		t.Fatal("CompareOperatorKey accepted the wrong key")
	}
}
