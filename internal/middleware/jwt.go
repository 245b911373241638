package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/taskhub/marketplace/internal/identity"
)

// TokenVerifier resolves the user behind an access token.
type TokenVerifier interface {
	Verify(ctx context.Context, accessToken string) (identity.User, error)
}

// JWTAuth validates bearer access tokens and stores the caller in the request
// locals: user_id, is_staff and token_version.
func JWTAuth(tokens TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if len(authz) < len("Bearer ") || !strings.EqualFold(authz[:len("Bearer ")], "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		user, err := tokens.Verify(c.UserContext(), strings.TrimSpace(authz[len("Bearer "):]))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		}

		c.Locals("user_id", user.ID)
		c.Locals("is_staff", user.IsStaff)
		c.Locals("token_version", user.TokenVersion)
		return c.Next()
	}
}

// RequireStaff rejects callers that are not staff. It must run after JWTAuth.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if staff, _ := c.Locals("is_staff").(bool); !staff {
			return fiber.NewError(http.StatusForbidden, "staff only")
		}
		return c.Next()
	}
}
