package usecases

import (
	"context"
	"log/slog"

	"github.com/samirrijal/evacguide/internal/core/domain"
	"github.com/samirrijal/evacguide/internal/core/hazard"
	"github.com/samirrijal/evacguide/internal/core/ports"
	"github.com/samirrijal/evacguide/internal/pkg/metrics"
)

// HazardService owns the latest hazard zone.
type HazardService struct {
	store           *hazard.Store
	events          ports.EventPublisher
	defaultVertices int
}

// NewHazardService creates a new HazardService. events may be nil.
func NewHazardService(store *hazard.Store, events ports.EventPublisher, defaultVertices int) *HazardService {
	return &HazardService{store: store, events: events, defaultVertices: defaultVertices}
}

// Create builds a zone and makes it the latest. steps <= 0 uses the
// configured vertex count. A failed publish is logged, the zone stays.
func (s *HazardService) Create(ctx context.Context, center domain.Coordinate, radiusMeters float64, steps int) (*domain.HazardZone, error) {
	if steps <= 0 {
		steps = s.defaultVertices
	}
	zone, err := hazard.NewZone(center, radiusMeters, steps)
	if err != nil {
		return nil, err
	}

	s.store.Replace(zone)
	metrics.HazardZonesCreated.Inc()
	metrics.HazardRadiusMeters.Set(zone.RadiusMeters)

	if s.events != nil {
		if err := s.events.PublishHazardZone(ctx, zone); err != nil {
			slog.WarnContext(ctx, "publish hazard zone", "zone_id", zone.ID, "error", err)
		}
	}
	return zone, nil
}

// Latest returns the current zone or nil.
func (s *HazardService) Latest() *domain.HazardZone {
	return s.store.Latest()
}

// Classify assesses point against the latest zone.
func (s *HazardService) Classify(point domain.Coordinate) (domain.RiskAssessment, error) {
	if err := point.Validate(); err != nil {
		return domain.RiskAssessment{}, err
	}
	ra := hazard.ClassifyRisk(s.store.Latest(), point)
	metrics.RiskClassifications.WithLabelValues(string(ra.Tier)).Inc()
	return ra, nil
}

// Adopt installs a zone announced by another process.
func (s *HazardService) Adopt(zone *domain.HazardZone) bool {
	if zone == nil || len(zone.Boundary) < 4 {
		return false
	}
	if !s.store.Adopt(zone) {
		return false
	}
	metrics.HazardRadiusMeters.Set(zone.RadiusMeters)
	return true
}
