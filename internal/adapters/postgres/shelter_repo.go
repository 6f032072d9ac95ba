package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/evacguide/internal/core/domain"
)

// ShelterRepo implements ports.ShelterRepository with pgx.
type ShelterRepo struct {
	db *DB
}

// NewShelterRepo creates a new ShelterRepo.
func NewShelterRepo(db *DB) *ShelterRepo {
	return &ShelterRepo{db: db}
}

const upsertShelter = `
	INSERT INTO shelters (id, name, location, address, capacity_text, area_text, category, updated_at)
	VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography, $5, $6, $7, $8, now())
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name, location = EXCLUDED.location,
	    address = EXCLUDED.address, capacity_text = EXCLUDED.capacity_text,
	    area_text = EXCLUDED.area_text, category = EXCLUDED.category,
	    updated_at = now()
`

// UpsertBatch inserts or updates shelters using pgx.Batch.
func (r *ShelterRepo) UpsertBatch(ctx context.Context, shelters []domain.Shelter) error {
	batch := &pgx.Batch{}
	for _, s := range shelters {
		batch.Queue(upsertShelter, s.ID, s.Name, s.Location.Lon, s.Location.Lat,
			s.Address, s.CapacityText, s.AreaText, s.Category)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for _, s := range shelters {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert shelter %s: %w", s.ID, err)
		}
	}
	return nil
}

const selectShelter = `
	SELECT id, name,
	       ST_Y(location::geometry) AS lat,
	       ST_X(location::geometry) AS lon,
	       COALESCE(address, ''), COALESCE(capacity_text, ''),
	       COALESCE(area_text, ''), COALESCE(category, '')
	FROM shelters
`

// List returns the whole catalog in a stable order.
func (r *ShelterRepo) List(ctx context.Context) ([]domain.Shelter, error) {
	rows, err := r.db.Pool.Query(ctx, selectShelter+` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return scanShelters(rows)
}

// ListWithin returns shelters within radiusMeters using PostGIS ST_DWithin,
// which is served by shelters_location_idx.
func (r *ShelterRepo) ListWithin(ctx context.Context, origin domain.Coordinate, radiusMeters float64) ([]domain.Shelter, error) {
	rows, err := r.db.Pool.Query(ctx, selectShelter+`
		WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY id
	`, origin.Lon, origin.Lat, radiusMeters)
	if err != nil {
		return nil, err
	}
	return scanShelters(rows)
}

func scanShelters(rows pgx.Rows) ([]domain.Shelter, error) {
	defer rows.Close()

	shelters := []domain.Shelter{}
	for rows.Next() {
		var s domain.Shelter
		if err := rows.Scan(
			&s.ID, &s.Name, &s.Location.Lat, &s.Location.Lon,
			&s.Address, &s.CapacityText, &s.AreaText, &s.Category,
		); err != nil {
			return nil, err
		}
		shelters = append(shelters, s)
	}
	return shelters, rows.Err()
}
