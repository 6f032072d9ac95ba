package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/evacguide/internal/core/domain"
)

// legacySunset is when the /api aliases stop being served.
var legacySunset = time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC)

// LegacyRoutes lists the deprecated /api aliases and their successors.
func LegacyRoutes() []DeprecatedRoute {
	return []DeprecatedRoute{
		{Path: "/api/directions/:mode", SunsetDate: legacySunset, Alternative: "/v1/routes/:mode"},
		{Path: "/api/shelters/nearby", SunsetDate: legacySunset, Alternative: "/v1/shelters/nearby"},
	}
}

type legacyDirectionsRequest struct {
	StartLat *float64 `json:"startLat"`
	StartLng *float64 `json:"startLng"`
	EndLat   *float64 `json:"endLat"`
	EndLng   *float64 `json:"endLng"`
}

// LegacyDirectionsHandler accepts the flat {startLat,startLng,endLat,endLng}
// body and answers {"success":true,"type":mode,"data":Route}.
func LegacyDirectionsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		mode, err := domain.ParseTravelMode(c.Params("mode"))
		if err != nil {
			return errFromDomain(c, err)
		}
		var req legacyDirectionsRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.StartLat == nil || req.StartLng == nil || req.EndLat == nil || req.EndLng == nil {
			return errBadRequest(c, "startLat, startLng, endLat and endLng are required")
		}

		start := domain.Coordinate{Lat: *req.StartLat, Lon: *req.StartLng}
		end := domain.Coordinate{Lat: *req.EndLat, Lon: *req.EndLng}
		route, err := deps.Routes.Route(c.UserContext(), mode, start, end)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "type": mode, "data": route})
	}
}

// LegacyNearbySheltersHandler is /v1/shelters/nearby with k as the limit,
// answering {"from":{lat,lon},"items":[...]}. A degraded result adds
// "degraded" and "notice" and is not cached.
func LegacyNearbySheltersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := nearbyQuery(c, "k")
		if err != nil {
			return errFromDomain(c, err)
		}
		res, err := deps.Shelters.Nearby(c.UserContext(), q)
		if err != nil {
			return errFromDomain(c, err)
		}
		body := fiber.Map{"from": q.Origin, "items": res.Items}
		if res.Degraded {
			body["degraded"] = true
			body["notice"] = res.Notice
			c.Set(fiber.HeaderCacheControl, "no-store")
		}
		return c.JSON(body)
	}
}
