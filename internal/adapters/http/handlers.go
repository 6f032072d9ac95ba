package http

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/evacguide/internal/core/domain"
	"github.com/samirrijal/evacguide/internal/core/usecases"
)

// coordinateBody is {lat, lon}. Pointers distinguish a missing field from 0.
type coordinateBody struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

func (b *coordinateBody) coordinate(name string) (domain.Coordinate, error) {
	if b == nil || b.Lat == nil || b.Lon == nil {
		return domain.Coordinate{}, fmt.Errorf("%w: %s.lat and %s.lon are required", domain.ErrInvalidArgument, name, name)
	}
	return domain.Coordinate{Lat: *b.Lat, Lon: *b.Lon}, nil
}

// queryCoordinate reads a required coordinate from two query parameters.
func queryCoordinate(c *fiber.Ctx, latKey, lonKey string) (domain.Coordinate, error) {
	rawLat, rawLon := c.Query(latKey), c.Query(lonKey)
	if rawLat == "" || rawLon == "" {
		return domain.Coordinate{}, fmt.Errorf("%w: %s and %s are required", domain.ErrInvalidArgument, latKey, lonKey)
	}
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("%w: %s is not a number", domain.ErrInvalidArgument, latKey)
	}
	lon, err := strconv.ParseFloat(rawLon, 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("%w: %s is not a number", domain.ErrInvalidArgument, lonKey)
	}
	return domain.Coordinate{Lat: lat, Lon: lon}, nil
}

// ---- Hazards ----

type createHazardRequest struct {
	Center       *coordinateBody `json:"center"`
	RadiusMeters float64         `json:"radiusMeters"`
	Steps        int             `json:"steps"`
}

// CreateHazardHandler builds a hazard zone and makes it the latest.
// POST /v1/hazards {"center":{"lat":..,"lon":..},"radiusMeters":..,"steps":64}
func CreateHazardHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createHazardRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		center, err := req.Center.coordinate("center")
		if err != nil {
			return errFromDomain(c, err)
		}

		zone, err := deps.Hazards.Create(c.UserContext(), center, req.RadiusMeters, req.Steps)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(zone)
	}
}

// LatestHazardHandler returns {"zone": HazardZone|null}.
func LatestHazardHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Cache-Control", "no-cache")
		return c.JSON(fiber.Map{"zone": deps.Hazards.Latest()})
	}
}

// LatestHazardKMLHandler exports the latest zone as KML.
func LatestHazardKMLHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		zone := deps.Hazards.Latest()
		if zone == nil {
			return errNotFound(c, "no hazard zone has been created")
		}
		var buf bytes.Buffer
		if err := writeHazardKML(&buf, zone); err != nil {
			return errFromDomain(c, err)
		}
		c.Set("Cache-Control", "no-cache")
		c.Set(fiber.HeaderContentType, "application/vnd.google-earth.kml+xml")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="hazard-`+zone.ID+`.kml"`)
		return c.Send(buf.Bytes())
	}
}

// CheckHazardHandler classifies ?lat&lon against the latest zone.
func CheckHazardHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		point, err := queryCoordinate(c, "lat", "lon")
		if err != nil {
			return errFromDomain(c, err)
		}
		ra, err := deps.Hazards.Classify(point)
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set("Cache-Control", "no-cache")
		return c.JSON(ra)
	}
}

// ---- Shelters ----

// NearbySheltersHandler ranks shelters around ?lat&lon.
// GET /v1/shelters/nearby?lat=36.01&lon=129.34&limit=10&category=school&excludeHazard=true&source=catalog
func NearbySheltersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := nearbyQuery(c, "limit")
		if err != nil {
			return errFromDomain(c, err)
		}
		res, err := deps.Shelters.Nearby(c.UserContext(), q)
		if err != nil {
			return errFromDomain(c, err)
		}
		if res.Degraded {
			c.Set("Cache-Control", "no-store")
		}
		return c.JSON(res)
	}
}

// nearbyQuery reads the shared nearby-shelter parameters. limitKey differs
// between the v1 and legacy endpoints.
func nearbyQuery(c *fiber.Ctx, limitKey string) (usecases.NearbyQuery, error) {
	origin, err := queryCoordinate(c, "lat", "lon")
	if err != nil {
		return usecases.NearbyQuery{}, err
	}
	return usecases.NearbyQuery{
		Origin:        origin,
		Limit:         c.QueryInt(limitKey, usecases.DefaultShelterLimit),
		Category:      strings.TrimSpace(c.Query("category")),
		ExcludeHazard: c.QueryBool("excludeHazard", true),
		Source:        domain.ShelterSource(strings.ToLower(c.Query("source"))),
	}, nil
}

// ShelterCategoriesHandler returns per-category shelter counts.
func ShelterCategoriesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cats, err := deps.Shelters.Categories(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{"categories": cats})
	}
}

// ---- Routes ----

type routeRequest struct {
	Start *coordinateBody `json:"start"`
	End   *coordinateBody `json:"end"`
}

// RouteHandler computes a route for :mode (walk or drive).
// POST /v1/routes/walk {"start":{"lat":..,"lon":..},"end":{"lat":..,"lon":..}}
func RouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		mode, err := domain.ParseTravelMode(c.Params("mode"))
		if err != nil {
			return errFromDomain(c, err)
		}
		var req routeRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		start, err := req.Start.coordinate("start")
		if err != nil {
			return errFromDomain(c, err)
		}
		end, err := req.End.coordinate("end")
		if err != nil {
			return errFromDomain(c, err)
		}

		route, err := deps.Routes.Route(c.UserContext(), mode, start, end)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(route)
	}
}

// ---- Wildfire ----

// LoadTimelineHandler replaces the wildfire timeline with the request body
// (a JSON array or NDJSON).
func LoadTimelineHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body := c.Body()
		if len(bytes.TrimSpace(body)) == 0 {
			return errBadRequest(c, "request body is empty")
		}
		summary, err := deps.Wildfire.Load(c.UserContext(), bytes.NewReader(body))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(summary)
	}
}

// TimelineStatusHandler returns the playback status.
func TimelineStatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Cache-Control", "no-cache")
		return c.JSON(deps.Wildfire.Status())
	}
}

// TimelineFrameHandler returns one frame with its estimated cell size.
func TimelineFrameHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		index, err := strconv.Atoi(c.Params("index"))
		if err != nil {
			return errBadRequest(c, "frame index must be an integer")
		}
		view, err := deps.Wildfire.Frame(index)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(view)
	}
}

type playbackRequest struct {
	Action string `json:"action"`
	Index  *int   `json:"index"`
}

// PlaybackHandler drives the player: {"action":"play"|"pause"|"seek","index":n}.
func PlaybackHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req playbackRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if _, err := applyPlayback(deps.Wildfire, req); err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(deps.Wildfire.Status())
	}
}

// applyPlayback is shared by the REST and WebSocket controls.
func applyPlayback(svc *usecases.WildfireService, req playbackRequest) (domain.PlaybackSnapshot, error) {
	switch strings.ToLower(req.Action) {
	case "play":
		return svc.Play()
	case "pause":
		return svc.Pause()
	case "seek":
		if req.Index == nil {
			return domain.PlaybackSnapshot{}, fmt.Errorf("%w: seek requires index", domain.ErrInvalidArgument)
		}
		return svc.Seek(*req.Index)
	}
	return domain.PlaybackSnapshot{}, fmt.Errorf("%w: unknown playback action %q", domain.ErrInvalidArgument, req.Action)
}
