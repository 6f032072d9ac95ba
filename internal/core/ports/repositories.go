package ports

import (
	"context"

	"github.com/samirrijal/evacguide/internal/core/domain"
)

// ShelterCatalog is the static shelter reference data.
type ShelterCatalog interface {
	List(ctx context.Context) ([]domain.Shelter, error)
	// ListWithin returns the shelters within radiusMeters of origin.
	ListWithin(ctx context.Context, origin domain.Coordinate, radiusMeters float64) ([]domain.Shelter, error)
}

// ShelterRepository persists the catalog. Only the ingestor writes to it.
type ShelterRepository interface {
	ShelterCatalog
	UpsertBatch(ctx context.Context, shelters []domain.Shelter) error
}
