package wildfire

import (
	"math"
	"sort"

	"github.com/samirrijal/evacguide/internal/core/domain"
	"github.com/samirrijal/evacguide/internal/pkg/geospatial"
)

const (
	DefaultCellHalfMeters = 25.0
	minCellHalfMeters     = 10.0
	maxCellHalfMeters     = 100.0
)

// EstimateCellSize estimates the half-width in meters of the grid cells,
// from the smallest non-zero latitude and longitude spacing between cells.
// The result is clamped to [10, 100]; 25 is returned when it cannot be
// estimated.
func EstimateCellSize(cells []domain.BurnedCell) float64 {
	if len(cells) < 2 {
		return DefaultCellHalfMeters
	}

	lats := make([]float64, len(cells))
	lons := make([]float64, len(cells))
	var latSum float64
	for i, c := range cells {
		lats[i], lons[i] = c.Lat, c.Lon
		latSum += c.Lat
	}

	dLat, dLon := minPositiveGap(lats), minPositiveGap(lons)
	if math.IsInf(dLat, 1) || math.IsInf(dLon, 1) {
		return DefaultCellHalfMeters
	}

	perLat, perLon := geospatial.MetersPerDegree(latSum / float64(len(cells)))
	half := math.Min(dLat/2*perLat, dLon/2*perLon)
	return math.Max(minCellHalfMeters, math.Min(maxCellHalfMeters, half))
}

// minPositiveGap is the smallest non-zero difference between any two values.
// It sorts vals in place.
func minPositiveGap(vals []float64) float64 {
	sort.Float64s(vals)
	best := math.Inf(1)
	for i := 1; i < len(vals); i++ {
		if d := vals[i] - vals[i-1]; d > 0 && d < best {
			best = d
		}
	}
	return best
}
