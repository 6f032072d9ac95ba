package routing

import (
	"math"

	"github.com/samirrijal/evacguide/internal/core/domain"
	"github.com/samirrijal/evacguide/internal/pkg/geospatial"
)

// EstimateNotice is attached to every locally estimated route.
const EstimateNotice = "Routing service unavailable; showing an estimated route. Follow local directions."

type modeProfile struct {
	roadFactor     float64 // road distance / straight-line distance
	metersPerMin   float64
	curveOffset    float64 // control point offset as a fraction of straight distance
	samples        int
	waypointShares []float64
}

var profiles = map[domain.TravelMode]modeProfile{
	domain.ModeWalk:  {roadFactor: 1.4, metersPerMin: 70, curveOffset: 0.15, samples: 16, waypointShares: []float64{0.3, 0.6}},
	domain.ModeDrive: {roadFactor: 1.3, metersPerMin: 400, curveOffset: 0.10, samples: 13, waypointShares: []float64{0.4}},
}

// DummyRoute estimates a route when the provider cannot be reached. Distance
// is the straight line times a road factor, duration follows a mode speed,
// and the path is a cubic Bézier through two offset control points. The
// result is deterministic and marked Degraded.
func DummyRoute(origin, destination domain.Coordinate, mode domain.TravelMode) *domain.Route {
	p, ok := profiles[mode]
	if !ok {
		p = profiles[domain.ModeWalk]
	}

	straight := geospatial.Distance(origin, destination)
	distance := straight * p.roadFactor
	duration := distance / p.metersPerMin * 60

	coords := dedupeConsecutive(bezierPath(origin, destination, straight, p))
	if len(coords) < 2 {
		coords = []domain.Coordinate{origin, destination}
	}

	steps := []domain.Step{{
		Instruction: "Start",
		Coordinate:  coords[0],
		Kind:        domain.StepStart,
	}}
	for _, share := range p.waypointShares {
		idx := int(math.Round(share * float64(len(coords)-1)))
		steps = append(steps, domain.Step{
			Instruction:     "Continue toward the shelter",
			DistanceMeters:  distance * share,
			DurationSeconds: duration * share,
			Coordinate:      coords[idx],
			Kind:            domain.StepWaypoint,
		})
	}
	steps = append(steps, domain.Step{
		Instruction:     "Arrive at destination",
		DistanceMeters:  distance,
		DurationSeconds: duration,
		Coordinate:      coords[len(coords)-1],
		Kind:            domain.StepEnd,
	})
	for i := range steps {
		steps[i].Index = i
	}

	return &domain.Route{
		Mode:            mode,
		Coordinates:     coords,
		Steps:           steps,
		Summary:         Summarize(distance, duration),
		Bounds:          domain.BoundsOf(coords),
		EncodedPolyline: EncodePolyline(coords),
		Source:          "estimate",
		Degraded:        true,
		Notice:          EstimateNotice,
	}
}

// bezierPath samples a cubic Bézier from a to b. The control points sit at
// one and two thirds of the way, pushed to opposite sides of the chord so
// the path bends in an S shape.
func bezierPath(a, b domain.Coordinate, straight float64, p modeProfile) []domain.Coordinate {
	perLat, perLon := geospatial.MetersPerDegree((a.Lat + b.Lat) / 2)

	// chord in local meters, with a as origin
	dx := (b.Lon - a.Lon) * perLon
	dy := (b.Lat - a.Lat) * perLat

	// unit normal to the chord
	var nx, ny float64
	if length := math.Hypot(dx, dy); length > 0 {
		nx, ny = -dy/length, dx/length
	}
	offset := straight * p.curveOffset

	c1x, c1y := dx/3+nx*offset, dy/3+ny*offset
	c2x, c2y := 2*dx/3-nx*offset, 2*dy/3-ny*offset

	out := make([]domain.Coordinate, p.samples)
	for i := 0; i < p.samples; i++ {
		t := float64(i) / float64(p.samples-1)
		u := 1 - t
		x := 3*u*u*t*c1x + 3*u*t*t*c2x + t*t*t*dx
		y := 3*u*u*t*c1y + 3*u*t*t*c2y + t*t*t*dy
		out[i] = domain.Coordinate{Lat: a.Lat + y/perLat, Lon: a.Lon + x/perLon}
	}
	// pin the endpoints exactly
	out[0] = a
	out[len(out)-1] = b
	return out
}
