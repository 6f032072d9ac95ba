package geospatial

import (
	"math"

	"github.com/samirrijal/evacguide/internal/core/domain"
)

// PointInRing reports whether p lies inside ring using ray casting in
// lon/lat space. The ring may be open or closed.
//
// Edges are half-open (an edge counts when exactly one endpoint is strictly
// above p), so a point on a south or west facing edge is inside and a point
// on a north or east facing edge is outside. The result for a point exactly
// on the boundary is therefore deterministic.
func PointInRing(p domain.Coordinate, ring []domain.Coordinate) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		xi, yi := ring[i].Lon, ring[i].Lat
		xj, yj := ring[j].Lon, ring[j].Lat
		if (yi > p.Lat) != (yj > p.Lat) {
			x := (xj-xi)*(p.Lat-yi)/(yj-yi) + xi
			if p.Lon < x {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// DistanceToSegment returns the great-circle distance in meters from p to the
// nearest point of segment a-b. The nearest point is found in a local
// equirectangular projection centred on p; the final distance is haversine.
func DistanceToSegment(p, a, b domain.Coordinate) float64 {
	perLat, perLon := MetersPerDegree(p.Lat)

	ax, ay := (a.Lon-p.Lon)*perLon, (a.Lat-p.Lat)*perLat
	bx, by := (b.Lon-p.Lon)*perLon, (b.Lat-p.Lat)*perLat

	dx, dy := bx-ax, by-ay
	lenSq := dx*dx + dy*dy

	t := 0.0
	if lenSq > 0 {
		// projection of the origin (p) onto the segment
		t = -(ax*dx + ay*dy) / lenSq
		t = math.Max(0, math.Min(1, t))
	}

	nearest := domain.Coordinate{
		Lat: a.Lat + t*(b.Lat-a.Lat),
		Lon: a.Lon + t*(b.Lon-a.Lon),
	}
	return Distance(p, nearest)
}

// DistanceToRing returns the minimum distance from p to any segment of ring.
// It returns +Inf for rings with fewer than 2 points.
func DistanceToRing(p domain.Coordinate, ring []domain.Coordinate) float64 {
	best := math.Inf(1)
	for i := 0; i+1 < len(ring); i++ {
		if d := DistanceToSegment(p, ring[i], ring[i+1]); d < best {
			best = d
		}
	}
	return best
}
