// Package catalog loads the static shelter catalog from a JSON or YAML file.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/samirrijal/evacguide/internal/core/domain"
	"github.com/samirrijal/evacguide/internal/pkg/geospatial"
)

type fileRecord struct {
	ID       string  `json:"id" yaml:"id"`
	Name     string  `json:"name" yaml:"name"`
	Lat      float64 `json:"lat" yaml:"lat"`
	Lon      float64 `json:"lon" yaml:"lon"`
	Address  string  `json:"address" yaml:"address"`
	Capacity string  `json:"capacity" yaml:"capacity"`
	Area     string  `json:"area" yaml:"area"`
	Category string  `json:"category" yaml:"category"`
}

type fileDocument struct {
	Shelters []fileRecord `json:"shelters" yaml:"shelters"`
}

// File is an in-memory catalog read once from disk. It implements
// ports.ShelterCatalog.
type File struct {
	shelters []domain.Shelter
}

// LoadFile reads path. Files ending in .yaml or .yml are YAML, everything
// else is JSON. The document is either a list of shelters or an object with a
// "shelters" list.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return Parse(data, ext == ".yaml" || ext == ".yml")
}

// Parse decodes a catalog document.
func Parse(data []byte, isYAML bool) (*File, error) {
	records, err := decode(data, isYAML)
	if err != nil {
		return nil, err
	}

	shelters := make([]domain.Shelter, 0, len(records))
	seen := make(map[string]bool, len(records))
	for i, r := range records {
		id := r.ID
		if id == "" {
			id = fmt.Sprintf("shelter_%d", i+1)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: catalog entry %d: duplicate id %q", domain.ErrInvalidArgument, i, id)
		}
		seen[id] = true

		loc := domain.Coordinate{Lat: r.Lat, Lon: r.Lon}
		if err := loc.Validate(); err != nil {
			return nil, fmt.Errorf("catalog entry %d (%s): %w", i, id, err)
		}
		shelters = append(shelters, domain.Shelter{
			ID:           id,
			Name:         r.Name,
			Location:     loc,
			Address:      r.Address,
			CapacityText: r.Capacity,
			AreaText:     r.Area,
			Category:     r.Category,
		})
	}
	return &File{shelters: shelters}, nil
}

func decode(data []byte, isYAML bool) ([]fileRecord, error) {
	unmarshal := json.Unmarshal
	if isYAML {
		unmarshal = yaml.Unmarshal
	}

	var list []fileRecord
	if err := unmarshal(data, &list); err == nil {
		return list, nil
	}
	var doc fileDocument
	if err := unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode catalog: %v", domain.ErrInvalidArgument, err)
	}
	return doc.Shelters, nil
}

// List returns the catalog. The slice is shared and must not be modified.
func (f *File) List(ctx context.Context) ([]domain.Shelter, error) {
	return f.shelters, nil
}

// ListWithin returns the shelters within radiusMeters of origin, by
// great-circle distance.
func (f *File) ListWithin(ctx context.Context, origin domain.Coordinate, radiusMeters float64) ([]domain.Shelter, error) {
	out := []domain.Shelter{}
	for _, s := range f.shelters {
		if geospatial.Haversine(origin.Lat, origin.Lon, s.Location.Lat, s.Location.Lon) <= radiusMeters {
			out = append(out, s)
		}
	}
	return out, nil
}

// Len is the number of shelters.
func (f *File) Len() int { return len(f.shelters) }
