package domain

import (
	"fmt"
	"math"
)

// Coordinate represents a geographic coordinate (WGS 84).
// Providers disagree on [lon, lat] vs {lat, lon}; everything past an ingestion
// boundary uses this type.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate reports ErrInvalidArgument for non-finite or out-of-range values.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return fmt.Errorf("%w: coordinate is not finite", ErrInvalidArgument)
	}
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %f out of range [-90,90]", ErrInvalidArgument, c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: longitude %f out of range [-180,180]", ErrInvalidArgument, c.Lon)
	}
	return nil
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	Southwest Coordinate `json:"southwest"`
	Northeast Coordinate `json:"northeast"`
}

// BoundsOf returns the bounding box of coords, or nil when coords is empty.
func BoundsOf(coords []Coordinate) *Bounds {
	if len(coords) == 0 {
		return nil
	}
	b := &Bounds{Southwest: coords[0], Northeast: coords[0]}
	for _, c := range coords[1:] {
		b.Southwest.Lat = math.Min(b.Southwest.Lat, c.Lat)
		b.Southwest.Lon = math.Min(b.Southwest.Lon, c.Lon)
		b.Northeast.Lat = math.Max(b.Northeast.Lat, c.Lat)
		b.Northeast.Lon = math.Max(b.Northeast.Lon, c.Lon)
	}
	return b
}
