// Package routing turns provider route payloads, or a local estimate when the
// provider is unavailable, into the canonical domain.Route.
package routing

import (
	"fmt"
	"sort"

	"github.com/twpayne/go-polyline"

	"github.com/samirrijal/evacguide/internal/core/domain"
)

// Normalize builds a canonical route from provider segments.
//
// Segments are traversed in ascending Index order. Line segments contribute
// coordinates and totals; tagged point segments become steps. Only
// consecutive duplicate coordinates are removed. Missing start and end steps
// are synthesized at the first and last coordinate.
func Normalize(segments []Segment, mode domain.TravelMode) (*domain.Route, error) {
	ordered := make([]Segment, len(segments))
	copy(ordered, segments)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	var (
		coords        []domain.Coordinate
		steps         []domain.Step
		totalDistance float64
		totalDuration float64
	)
	for _, seg := range ordered {
		switch seg.Kind {
		case SegmentLine:
			coords = append(coords, seg.Coordinates...)
			totalDistance += seg.DistanceMeters
			totalDuration += seg.DurationSeconds
		case SegmentPoint:
			if seg.Tag == "" || len(seg.Coordinates) == 0 {
				continue
			}
			steps = append(steps, domain.Step{
				Instruction:     seg.Instruction,
				DistanceMeters:  seg.DistanceMeters,
				DurationSeconds: seg.DurationSeconds,
				Coordinate:      seg.Coordinates[0],
				Kind:            seg.Tag,
			})
		}
	}

	coords = dedupeConsecutive(coords)
	if len(coords) < 2 {
		return nil, fmt.Errorf("%w: provider returned %d usable coordinates", domain.ErrNoRouteFound, len(coords))
	}

	steps = ensureEndpoints(steps, coords, totalDistance, totalDuration)

	return &domain.Route{
		Mode:            mode,
		Coordinates:     coords,
		Steps:           steps,
		Summary:         Summarize(totalDistance, totalDuration),
		Bounds:          domain.BoundsOf(coords),
		EncodedPolyline: EncodePolyline(coords),
		Source:          "provider",
	}, nil
}

// Summarize formats totals into a RouteSummary.
func Summarize(distanceMeters, durationSeconds float64) domain.RouteSummary {
	return domain.RouteSummary{
		DistanceMeters:  distanceMeters,
		DurationSeconds: durationSeconds,
		DistanceText:    FormatDistance(distanceMeters),
		DurationText:    FormatDuration(durationSeconds),
	}
}

// EncodePolyline encodes coords with Google's polyline algorithm (5 digits).
func EncodePolyline(coords []domain.Coordinate) string {
	pairs := make([][]float64, len(coords))
	for i, c := range coords {
		pairs[i] = []float64{c.Lat, c.Lon}
	}
	return string(polyline.EncodeCoords(pairs))
}

func dedupeConsecutive(coords []domain.Coordinate) []domain.Coordinate {
	if len(coords) == 0 {
		return coords
	}
	out := make([]domain.Coordinate, 0, len(coords))
	out = append(out, coords[0])
	for _, c := range coords[1:] {
		if c != out[len(out)-1] {
			out = append(out, c)
		}
	}
	return out
}

// ensureEndpoints guarantees steps[0] is a start and the last step is an end,
// then re-indexes steps from 0. Interior steps are always waypoints.
func ensureEndpoints(steps []domain.Step, coords []domain.Coordinate, distance, duration float64) []domain.Step {
	first, last := coords[0], coords[len(coords)-1]

	if len(steps) == 0 || steps[0].Kind != domain.StepStart {
		steps = append([]domain.Step{{
			Instruction: "Start",
			Coordinate:  first,
			Kind:        domain.StepStart,
		}}, steps...)
	}
	if steps[len(steps)-1].Kind != domain.StepEnd {
		steps = append(steps, domain.Step{
			Instruction:     "Arrive at destination",
			DistanceMeters:  distance,
			DurationSeconds: duration,
			Coordinate:      last,
			Kind:            domain.StepEnd,
		})
	}

	for i := range steps {
		steps[i].Index = i
		if i > 0 && i < len(steps)-1 {
			steps[i].Kind = domain.StepWaypoint
		}
	}
	return steps
}
