package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/detour/internal/pkg/metrics"
)

const (
	requestTimeout = 15 * time.Second
	// planTimeout bounds an in-request plan; long routes make many places calls.
	planTimeout = 2 * time.Minute
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))
	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())
	app.Use(DeprecationMiddleware(LegacyRoutes()))

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler())
	app.Get("/v1/ready", ReadyHandler(deps))

	auth := RequireAuth(deps)
	withTimeout := func(h fiber.Handler) fiber.Handler {
		return timeout.NewWithContext(h, requestTimeout)
	}

	v1 := app.Group("/v1")
	v1.Post("/auth/register", withTimeout(RegisterHandler(deps)))
	v1.Post("/auth/login", withTimeout(LoginHandler(deps)))
	v1.Get("/me", auth, MeHandler())
	v1.Put("/admin/users/:id/access", auth, withTimeout(SetAccessHandler(deps)))

	v1.Get("/queries", auth, withTimeout(ListQueriesHandler(deps)))
	v1.Post("/queries", auth, withTimeout(CreateQueryHandler(deps)))
	v1.Get("/queries/:id", auth, withTimeout(GetQueryHandler(deps)))
	v1.Post("/queries/:id/plan", auth, timeout.NewWithContext(PlanQueryHandler(deps), planTimeout))
	v1.Get("/queries/:id/results", auth, withTimeout(QueryResultsHandler(deps)))
	v1.Get("/queries/:id/sponsored", auth, withTimeout(QuerySponsoredHandler(deps)))

	v1.Get("/tags", auth, withTimeout(ListTagsHandler(deps)))
	v1.Post("/tags", auth, withTimeout(CreateTagHandler(deps)))
	v1.Delete("/tags/:id", auth, withTimeout(DeleteTagHandler(deps)))

	v1.Get("/sponsors/near", withTimeout(NearbySponsorsHandler(deps)))
	v1.Get("/sponsors", auth, withTimeout(ListMySponsorsHandler(deps)))
	v1.Post("/sponsors", auth, withTimeout(CreateSponsorHandler(deps)))
	v1.Delete("/sponsors/:id", auth, withTimeout(DeleteSponsorHandler(deps)))

	// Body-token endpoints kept for older clients
	app.Post("/login", LegacyLoginHandler(deps))
	app.Post("/register", LegacyRegisterHandler(deps))
	app.Post("/map/query/new", LegacyNewQueryHandler(deps))
	app.Post("/tag/new", LegacyNewTagHandler(deps))
	app.Post("/tag/del", LegacyDeleteTagHandler(deps))

	app.Post("/graphql", auth, withTimeout(GraphQLHandler(deps)))

	SetupDocs(app)

	app.Get("/ws/queries/:id", WebSocketAuth(deps), websocket.New(StopoverStreamHandler(deps)))
}
