// Package hazard builds circular hazard zones and classifies points against them.
package hazard

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/evacguide/internal/core/domain"
	"github.com/samirrijal/evacguide/internal/pkg/geospatial"
)

const (
	DefaultVertexCount = 64
	MinVertexCount     = 16
	MaxVertexCount     = 256

	// MediumRiskMeters is the edge distance under which an outside point is medium risk.
	MediumRiskMeters = 300.0

	// MaxRadiusMeters bounds zones to the extent where lon/lat ray casting holds.
	MaxRadiusMeters = 1_000_000.0
)

// ClampVertexCount maps n <= 0 to the default and clamps the rest to [16, 256].
func ClampVertexCount(n int) int {
	switch {
	case n <= 0:
		return DefaultVertexCount
	case n < MinVertexCount:
		return MinVertexCount
	case n > MaxVertexCount:
		return MaxVertexCount
	}
	return n
}

// NewZone builds a zone whose boundary has vertexCount points evenly spaced by
// bearing at great-circle distance radiusMeters from centroid. Vertices run
// counter-clockwise and the ring is closed.
//
// Containment is evaluated in lon/lat space, so radii above MaxRadiusMeters,
// circles reaching a pole and rings crossing the antimeridian are rejected
// with domain.ErrInvalidArgument.
func NewZone(centroid domain.Coordinate, radiusMeters float64, vertexCount int) (*domain.HazardZone, error) {
	if err := centroid.Validate(); err != nil {
		return nil, fmt.Errorf("centroid: %w", err)
	}
	if math.IsNaN(radiusMeters) || math.IsInf(radiusMeters, 0) || radiusMeters <= 0 {
		return nil, fmt.Errorf("%w: radius must be a positive number of meters, got %v", domain.ErrInvalidArgument, radiusMeters)
	}
	if radiusMeters > MaxRadiusMeters {
		return nil, fmt.Errorf("%w: radius %.0f m exceeds %.0f m", domain.ErrInvalidArgument, radiusMeters, MaxRadiusMeters)
	}
	poleMeters := geospatial.Haversine(centroid.Lat, centroid.Lon, math.Copysign(90, centroid.Lat), centroid.Lon)
	if radiusMeters >= poleMeters {
		return nil, fmt.Errorf("%w: zone of %.0f m around %.6f,%.6f reaches a pole", domain.ErrInvalidArgument, radiusMeters, centroid.Lat, centroid.Lon)
	}

	n := ClampVertexCount(vertexCount)
	ring := make([]domain.Coordinate, 0, n+1)
	for i := 0; i < n; i++ {
		bearing := -360.0 * float64(i) / float64(n)
		ring = append(ring, geospatial.Destination(centroid, bearing, radiusMeters))
	}
	ring = append(ring, ring[0])
	for i := 1; i < len(ring); i++ {
		if math.Abs(ring[i].Lon-ring[i-1].Lon) > 180 {
			return nil, fmt.Errorf("%w: zone of %.0f m around %.6f,%.6f crosses the antimeridian", domain.ErrInvalidArgument, radiusMeters, centroid.Lat, centroid.Lon)
		}
	}

	return &domain.HazardZone{
		ID:           uuid.NewString(),
		Centroid:     centroid,
		RadiusMeters: radiusMeters,
		VertexCount:  n,
		Boundary:     ring,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// Contains reports whether point lies inside the zone boundary.
// See geospatial.PointInRing for the on-boundary rule.
func Contains(zone *domain.HazardZone, point domain.Coordinate) bool {
	if zone == nil {
		return false
	}
	return geospatial.PointInRing(point, zone.Boundary)
}

// DistanceToBoundary is the distance in meters from point to the nearest
// boundary segment. It is +Inf for a nil zone or a degenerate boundary.
func DistanceToBoundary(zone *domain.HazardZone, point domain.Coordinate) float64 {
	if zone == nil {
		return math.Inf(1)
	}
	return geospatial.DistanceToRing(point, zone.Boundary)
}

// ClassifyRisk classifies point against zone. A nil zone is always tier "none".
func ClassifyRisk(zone *domain.HazardZone, point domain.Coordinate) domain.RiskAssessment {
	if zone == nil {
		return domain.RiskAssessment{Tier: domain.RiskNone}
	}

	inside := Contains(zone, point)
	dist := DistanceToBoundary(zone, point)

	tier := domain.RiskLow
	switch {
	case inside:
		tier = domain.RiskHigh
	case dist < MediumRiskMeters:
		tier = domain.RiskMedium
	}

	return domain.RiskAssessment{
		InHazard:             inside,
		DistanceToEdgeMeters: &dist,
		Tier:                 tier,
	}
}
