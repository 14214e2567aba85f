package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/detour/internal/core/domain"
)

const userLocal = "user"

// RequireAuth resolves the bearer token and stores the user in c.Locals.
func RequireAuth(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return errUnauthorized(c, "missing bearer token")
		}
		u, err := deps.Users.Authenticate(c.UserContext(), token)
		if err != nil {
			return mapError(c, err)
		}
		c.Locals(userLocal, u)
		return c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// currentUser returns the user set by RequireAuth.
func currentUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals(userLocal).(*domain.User)
	return u
}
