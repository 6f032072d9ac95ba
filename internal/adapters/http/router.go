package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"
	"github.com/samirrijal/evacguide/internal/pkg/metrics"
)

// requestTimeout bounds every REST handler.
const requestTimeout = 15 * time.Second

// apiVersion is reported in X-API-Version and /v1/health.
const apiVersion = "1.0.0"

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(recover.New())

	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// The map client is served from another origin.
	app.Use(cors.New())

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", apiVersion)
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	v1.Post("/hazards", timeout.NewWithContext(CreateHazardHandler(deps), requestTimeout))
	v1.Get("/hazards/latest", timeout.NewWithContext(LatestHazardHandler(deps), requestTimeout))
	v1.Get("/hazards/latest.kml", timeout.NewWithContext(LatestHazardKMLHandler(deps), requestTimeout))
	v1.Get("/hazards/check", timeout.NewWithContext(CheckHazardHandler(deps), requestTimeout))
	v1.Get("/shelters/nearby", timeout.NewWithContext(NearbySheltersHandler(deps), requestTimeout))
	v1.Get("/shelters/categories", timeout.NewWithContext(ShelterCategoriesHandler(deps), requestTimeout))
	v1.Post("/routes/:mode", timeout.NewWithContext(RouteHandler(deps), requestTimeout))
	v1.Post("/wildfire/timeline", timeout.NewWithContext(LoadTimelineHandler(deps), requestTimeout))
	v1.Get("/wildfire/timeline", timeout.NewWithContext(TimelineStatusHandler(deps), requestTimeout))
	v1.Get("/wildfire/frames/:index", timeout.NewWithContext(TimelineFrameHandler(deps), requestTimeout))
	v1.Post("/wildfire/playback", timeout.NewWithContext(PlaybackHandler(deps), requestTimeout))

	// Deprecated aliases kept for the first map client
	legacy := app.Group("/api", DeprecationMiddleware(LegacyRoutes()))
	legacy.Post("/directions/:mode", timeout.NewWithContext(LegacyDirectionsHandler(deps), requestTimeout))
	legacy.Get("/shelters/nearby", timeout.NewWithContext(LegacyNearbySheltersHandler(deps), requestTimeout))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps)))
}
