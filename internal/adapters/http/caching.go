package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets a default Cache-Control on GET responses that did not
// set one. Per-user data is never shared-cacheable.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet || len(c.Response().Header.Peek(fiber.HeaderCacheControl)) > 0 {
			return err
		}

		path := c.Path()
		var value string
		switch {
		case path == "/v1/health" || path == "/v1/ready":
			value = "public, max-age=10"
		case path == "/metrics":
			value = "no-cache"
		case strings.HasPrefix(path, "/docs"):
			value = "public, max-age=3600"
		case strings.HasPrefix(path, "/v1/sponsors/near"):
			value = "public, max-age=300"
		case strings.HasPrefix(path, "/v1/queries"):
			// results grow while a plan is running
			value = "private, no-cache"
		case strings.HasPrefix(path, "/v1/"):
			value = "private, max-age=0"
		}

		if value != "" {
			c.Set(fiber.HeaderCacheControl, value)
		}
		return err
	}
}
