package geospatial

import (
	"math"

	"github.com/samirrijal/evacguide/internal/core/domain"
)

const (
	// EarthRadiusMeters is the mean Earth radius used for all great-circle math.
	EarthRadiusMeters = 6371000.0

	// MetersPerDegreeLat is the flat-earth length of one degree of latitude.
	MetersPerDegreeLat = 111320.0
)

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := ToRad(lat2 - lat1)
	dLon := ToRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(ToRad(lat1))*math.Cos(ToRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

// Distance is Haversine over two coordinates.
func Distance(a, b domain.Coordinate) float64 {
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

// MetersPerDegree returns local flat-earth scale factors at lat.
// Only valid for small extents away from the poles.
func MetersPerDegree(lat float64) (perLat, perLon float64) {
	return MetersPerDegreeLat, MetersPerDegreeLat * math.Cos(ToRad(lat))
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	perLat, perLon := MetersPerDegree(lat)
	latDelta := radiusMeters / perLat
	lonDelta := radiusMeters / perLon

	return lat - latDelta, lon - lonDelta, lat + latDelta, lon + lonDelta
}

// Destination returns the point reached by travelling distanceMeters from
// origin along the great circle with the given initial bearing (degrees
// clockwise from north).
func Destination(origin domain.Coordinate, bearingDeg, distanceMeters float64) domain.Coordinate {
	lat1 := ToRad(origin.Lat)
	lon1 := ToRad(origin.Lon)
	brng := ToRad(bearingDeg)
	d := distanceMeters / EarthRadiusMeters

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(brng))
	lon2 := lon1 + math.Atan2(
		math.Sin(brng)*math.Sin(d)*math.Cos(lat1),
		math.Cos(d)-math.Sin(lat1)*math.Sin(lat2),
	)

	lon := ToDeg(lon2)
	// normalise to [-180, 180)
	lon = math.Mod(lon+540, 360) - 180
	return domain.Coordinate{Lat: ToDeg(lat2), Lon: lon}
}

// ToRad converts degrees to radians.
func ToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// ToDeg converts radians to degrees.
func ToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
