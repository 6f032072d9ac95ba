package domain

// Shelter is a catalog or provider shelter record.
type Shelter struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Location     Coordinate `json:"location"`
	Address      string     `json:"address,omitempty"`
	CapacityText string     `json:"capacity_text,omitempty"`
	AreaText     string     `json:"area_text,omitempty"`
	Category     string     `json:"category,omitempty"`
}

// RankedShelter carries the request-scoped fields computed during ranking.
type RankedShelter struct {
	Shelter
	DistanceMeters float64 `json:"distance_meters"`
	InHazard       bool    `json:"in_hazard"`
}

// CategoryCount is the number of shelters in one category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// ShelterSource selects where nearby shelters are read from.
type ShelterSource string

const (
	SourceCatalog  ShelterSource = "catalog"
	SourceProvider ShelterSource = "provider"
)
