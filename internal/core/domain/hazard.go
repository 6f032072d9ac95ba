package domain

import "time"

// HazardZone is a polygon approximating a circular danger area.
// Boundary is a closed ring: the last point repeats the first.
// A zone is never mutated after construction; replace it instead.
type HazardZone struct {
	ID           string       `json:"id"`
	Centroid     Coordinate   `json:"centroid"`
	RadiusMeters float64      `json:"radius_meters"`
	VertexCount  int          `json:"vertex_count"`
	Boundary     []Coordinate `json:"boundary"`
	CreatedAt    time.Time    `json:"created_at"`
}

// RiskTier is a coarse classification derived from containment and edge distance.
type RiskTier string

const (
	RiskNone   RiskTier = "none"
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

// RiskAssessment is the result of classifying a point against the latest zone.
type RiskAssessment struct {
	InHazard             bool     `json:"in_hazard"`
	DistanceToEdgeMeters *float64 `json:"distance_to_edge_meters"`
	Tier                 RiskTier `json:"tier"`
}
