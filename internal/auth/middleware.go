package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/testnet-portal/pkg/util/errorutil"
)

const (
	principalKey = "auth_principal"

	// OperatorKeyHeader carries the operator key on /internal routes.
	OperatorKeyHeader = "X-Operator-Key"
)

// Principal represents the authenticated operator.
type Principal struct {
	Operator bool
}

// OperatorMiddleware checks the presented key against a bcrypt hash.
type OperatorMiddleware struct {
	keyHash string
}

// NewOperatorMiddleware constructs middleware. An empty hash rejects every
// request.
func NewOperatorMiddleware(keyHash string) *OperatorMiddleware {
	return &OperatorMiddleware{keyHash: strings.TrimSpace(keyHash)}
}

// Handle enforces the operator key for protected routes.
func (m *OperatorMiddleware) Handle(c *fiber.Ctx) error {
	if m.keyHash == "" {
		return apperrors.NewForbidden("operator routes disabled")
	}

	key := c.Get(OperatorKeyHeader)
	if key == "" {
		authHeader := c.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			key = strings.TrimSpace(parts[1])
		}
	}
	if key == "" {
		return apperrors.NewUnauthorized("missing operator key")
	}
	if err := CompareOperatorKey(m.keyHash, key); err != nil {
		return apperrors.NewUnauthorized("invalid operator key")
	}

	c.Locals(principalKey, &Principal{Operator: true})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
