package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// RequireOperator ensures OperatorMiddleware admitted the caller.
func RequireOperator() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || !principal.Operator {
			return fiber.NewError(http.StatusForbidden, "operator required")
		}
		return c.Next()
	}
}
