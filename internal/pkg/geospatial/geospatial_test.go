package geospatial

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/samirrijal/evacguide/internal/core/domain"
)

func TestHaversine(t *testing.T) {
	t.Run("identical points", func(t *testing.T) {
		assert.Equal(t, 0.0, Haversine(36.08, 129.40, 36.08, 129.40))
	})

	t.Run("one degree of latitude", func(t *testing.T) {
		d := Haversine(0, 0, 1, 0)
		assert.InDelta(t, 111195, d, 1, "1° of latitude on a 6371 km sphere")
	})

	t.Run("pohang city hall to station", func(t *testing.T) {
		d := Distance(domain.Coordinate{Lat: 36.0190, Lon: 129.3435}, domain.Coordinate{Lat: 36.0717, Lon: 129.3420})
		assert.InDelta(t, 5860, d, 20)
	})
}

func TestMetersPerDegree(t *testing.T) {
	perLat, perLon := MetersPerDegree(0)
	assert.Equal(t, 111320.0, perLat)
	assert.InDelta(t, 111320.0, perLon, 1e-6)

	_, perLon = MetersPerDegree(60)
	assert.InDelta(t, 55660.0, perLon, 0.5)
}

func TestDestination_RoundTrip(t *testing.T) {
	origin := domain.Coordinate{Lat: 36.0805, Lon: 129.4040}
	for _, bearing := range []float64{0, 45, 90, 180, 270, 333} {
		p := Destination(origin, bearing, 1500)
		assert.InDelta(t, 1500, Distance(origin, p), 0.01, "bearing %v", bearing)
	}
}

func TestDestination_WrapsAntimeridian(t *testing.T) {
	p := Destination(domain.Coordinate{Lat: 0, Lon: 179.999}, 90, 1000)
	assert.True(t, p.Lon < 0, "expected wrap to negative longitude, got %v", p.Lon)
}

func square() []domain.Coordinate {
	return []domain.Coordinate{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 1},
		{Lat: 1, Lon: 1},
		{Lat: 1, Lon: 0},
		{Lat: 0, Lon: 0},
	}
}

func TestPointInRing(t *testing.T) {
	ring := square()

	assert.True(t, PointInRing(domain.Coordinate{Lat: 0.5, Lon: 0.5}, ring))
	assert.False(t, PointInRing(domain.Coordinate{Lat: 1.5, Lon: 0.5}, ring))
	assert.False(t, PointInRing(domain.Coordinate{Lat: 0.5, Lon: -0.1}, ring))

	// boundary rule: south and west edges inside, north and east edges outside
	assert.True(t, PointInRing(domain.Coordinate{Lat: 0, Lon: 0.5}, ring), "south edge")
	assert.True(t, PointInRing(domain.Coordinate{Lat: 0.5, Lon: 0}, ring), "west edge")
	assert.False(t, PointInRing(domain.Coordinate{Lat: 1, Lon: 0.5}, ring), "north edge")
	assert.False(t, PointInRing(domain.Coordinate{Lat: 0.5, Lon: 1}, ring), "east edge")
}

func TestPointInRing_Degenerate(t *testing.T) {
	assert.False(t, PointInRing(domain.Coordinate{}, nil))
	assert.False(t, PointInRing(domain.Coordinate{}, square()[:2]))
}

func TestDistanceToSegment(t *testing.T) {
	a := domain.Coordinate{Lat: 36.0, Lon: 129.0}
	b := domain.Coordinate{Lat: 36.0, Lon: 129.01}

	t.Run("perpendicular foot inside segment", func(t *testing.T) {
		p := domain.Coordinate{Lat: 36.001, Lon: 129.005}
		assert.InDelta(t, 111.2, DistanceToSegment(p, a, b), 0.5)
	})

	t.Run("clamped to endpoint", func(t *testing.T) {
		p := domain.Coordinate{Lat: 36.0, Lon: 128.99}
		assert.InDelta(t, Distance(p, a), DistanceToSegment(p, a, b), 0.01)
	})

	t.Run("zero length segment", func(t *testing.T) {
		p := domain.Coordinate{Lat: 36.001, Lon: 129.0}
		assert.InDelta(t, Distance(p, a), DistanceToSegment(p, a, a), 1e-9)
	})
}

func TestDistanceToRing(t *testing.T) {
	assert.True(t, math.IsInf(DistanceToRing(domain.Coordinate{}, nil), 1))

	ring := square()
	d := DistanceToRing(domain.Coordinate{Lat: 0.5, Lon: 0.9}, ring)
	assert.InDelta(t, Haversine(0.5, 0.9, 0.5, 1), d, 1)
}
