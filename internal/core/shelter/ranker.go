// Package shelter ranks shelters by distance and normalizes provider records.
package shelter

import (
	"sort"

	"github.com/samirrijal/evacguide/internal/core/domain"
	"github.com/samirrijal/evacguide/internal/core/hazard"
	"github.com/samirrijal/evacguide/internal/pkg/geospatial"
)

// Options controls a ranking request.
type Options struct {
	ExcludeHazard     bool
	Limit             int
	Category          string
	MaxDistanceMeters float64 // 0 means unlimited
}

// Rank filters shelters, annotates distance and hazard membership, and sorts
// them ascending by distance. Ties keep catalog order. The input slice is not
// modified. An empty result is returned as an empty, non-nil slice.
func Rank(shelters []domain.Shelter, origin domain.Coordinate, zone *domain.HazardZone, opts Options) []domain.RankedShelter {
	ranked := make([]domain.RankedShelter, 0, len(shelters))
	for _, s := range shelters {
		if opts.Category != "" && s.Category != opts.Category {
			continue
		}
		r := domain.RankedShelter{
			Shelter:        s,
			DistanceMeters: geospatial.Distance(origin, s.Location),
			InHazard:       hazard.Contains(zone, s.Location),
		}
		if opts.ExcludeHazard && r.InHazard {
			continue
		}
		if opts.MaxDistanceMeters > 0 && r.DistanceMeters > opts.MaxDistanceMeters {
			continue
		}
		ranked = append(ranked, r)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceMeters < ranked[j].DistanceMeters
	})

	if opts.Limit > 0 && len(ranked) > opts.Limit {
		ranked = ranked[:opts.Limit]
	}
	return ranked
}

// Categories counts shelters per category, most common first.
func Categories(shelters []domain.Shelter) []domain.CategoryCount {
	counts := make(map[string]int)
	for _, s := range shelters {
		cat := s.Category
		if cat == "" {
			cat = "unknown"
		}
		counts[cat]++
	}

	out := make([]domain.CategoryCount, 0, len(counts))
	for cat, n := range counts {
		out = append(out, domain.CategoryCount{Category: cat, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}
