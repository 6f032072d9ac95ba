package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Handlers that set their own header win.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if existing := c.GetRespHeader(fiber.HeaderCacheControl); existing != "" {
			return err
		}
		if c.Response().StatusCode() >= 400 {
			c.Set(fiber.HeaderCacheControl, "no-store")
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"

		case path == "/metrics":
			ttl = "no-cache"

		// Hazard and playback state change at any moment
		case strings.HasPrefix(path, "/v1/hazards"), path == "/v1/wildfire/timeline":
			ttl = "no-cache"

		case strings.HasPrefix(path, "/v1/wildfire/frames/"):
			ttl = "private, max-age=60"

		// Ranking depends on the latest hazard zone
		case strings.HasPrefix(path, "/v1/shelters/nearby"), strings.HasPrefix(path, "/api/shelters/nearby"):
			ttl = "private, max-age=30"

		case path == "/v1/shelters/categories":
			ttl = "public, max-age=3600"

		case strings.HasPrefix(path, "/docs"):
			ttl = "public, max-age=3600"

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=60"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}

		return err
	}
}
