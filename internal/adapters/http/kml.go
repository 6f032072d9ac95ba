package http

import (
	"fmt"
	"image/color"
	"io"
	"time"

	"github.com/samirrijal/evacguide/internal/core/domain"
	kml "github.com/twpayne/go-kml"
)

var (
	hazardFill    = color.RGBA{R: 0xd3, G: 0x2f, B: 0x2f, A: 0x66}
	hazardOutline = color.RGBA{R: 0xd3, G: 0x2f, B: 0x2f, A: 0xff}
)

// writeHazardKML renders zone as a KML document with one polygon placemark.
func writeHazardKML(w io.Writer, zone *domain.HazardZone) error {
	ring := make([]kml.Coordinate, 0, len(zone.Boundary))
	for _, p := range zone.Boundary {
		ring = append(ring, kml.Coordinate{Lon: p.Lon, Lat: p.Lat})
	}

	style := kml.SharedStyle(
		"hazard",
		kml.LineStyle(kml.Color(hazardOutline), kml.Width(2)),
		kml.PolyStyle(kml.Color(hazardFill)),
	)

	doc := kml.KML(
		kml.Document(
			kml.Name("Hazard zone "+zone.ID),
			style,
			kml.Placemark(
				kml.Name(zone.ID),
				kml.Description(fmt.Sprintf("radius %.0f m around %.6f,%.6f, created %s",
					zone.RadiusMeters, zone.Centroid.Lat, zone.Centroid.Lon,
					zone.CreatedAt.UTC().Format(time.RFC3339))),
				kml.StyleURL(style.URL()),
				kml.Polygon(
					kml.OuterBoundaryIs(
						kml.LinearRing(
							kml.Coordinates(ring...),
						),
					),
				),
			),
		),
	)
	return doc.WriteIndent(w, "", "  ")
}
