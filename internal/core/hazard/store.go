package hazard

import (
	"sync/atomic"

	"github.com/samirrijal/evacguide/internal/core/domain"
)

// Store holds the latest hazard zone. Readers see either the previous or the
// next zone, never a partial one.
type Store struct {
	latest atomic.Pointer[domain.HazardZone]
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Latest returns the current zone or nil.
func (s *Store) Latest() *domain.HazardZone {
	return s.latest.Load()
}

// Replace swaps in zone and returns the previous one.
func (s *Store) Replace(zone *domain.HazardZone) *domain.HazardZone {
	return s.latest.Swap(zone)
}

// Adopt installs zone unless the current zone is the same one or was created
// later. It reports whether the store changed.
func (s *Store) Adopt(zone *domain.HazardZone) bool {
	for {
		cur := s.latest.Load()
		if cur != nil && (cur.ID == zone.ID || cur.CreatedAt.After(zone.CreatedAt)) {
			return false
		}
		if s.latest.CompareAndSwap(cur, zone) {
			return true
		}
	}
}
