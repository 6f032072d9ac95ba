package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/evacguide/internal/core/domain"
	"github.com/samirrijal/evacguide/internal/core/hazard"
	"github.com/samirrijal/evacguide/internal/core/ports"
	"github.com/samirrijal/evacguide/internal/core/shelter"
	"github.com/samirrijal/evacguide/internal/pkg/metrics"
	"github.com/samirrijal/evacguide/internal/pkg/telemetry"
)

const (
	DefaultShelterLimit = 10
	MaxShelterLimit     = 100

	providerCacheKey = "shelters:provider:v1"

	// ProviderUnavailableNotice accompanies a degraded provider answer.
	ProviderUnavailableNotice = "Shelter data service unavailable; no provider shelters could be loaded."
)

// NearbyQuery is a nearby-shelters request.
type NearbyQuery struct {
	Origin        domain.Coordinate
	Limit         int
	Category      string
	ExcludeHazard bool
	Source        domain.ShelterSource
}

// NearbyResult is a ranked shelter list. A provider failure yields an empty,
// degraded result rather than an error.
type NearbyResult struct {
	Items    []domain.RankedShelter `json:"items"`
	Source   domain.ShelterSource   `json:"source"`
	Degraded bool                   `json:"degraded"`
	Notice   string                 `json:"notice,omitempty"`
}

// ShelterOptions tunes both sources.
type ShelterOptions struct {
	ProviderCacheTTL     int     // seconds
	ProviderMaxDistanceM float64 // 0 means unlimited
	CatalogMaxDistanceM  float64 // 0 means unlimited
}

// ShelterService ranks shelters from the catalog or the public provider.
type ShelterService struct {
	catalog  ports.ShelterCatalog
	provider ports.ShelterProvider
	cache    ports.CacheService
	hazards  *hazard.Store
	opts     ShelterOptions
}

// NewShelterService creates a new ShelterService. provider and cache may be nil.
func NewShelterService(catalog ports.ShelterCatalog, provider ports.ShelterProvider, cache ports.CacheService, hazards *hazard.Store, opts ShelterOptions) *ShelterService {
	return &ShelterService{catalog: catalog, provider: provider, cache: cache, hazards: hazards, opts: opts}
}

// Nearby returns shelters ranked by distance from q.Origin.
func (s *ShelterService) Nearby(ctx context.Context, q NearbyQuery) (*NearbyResult, error) {
	if err := q.Origin.Validate(); err != nil {
		return nil, err
	}
	if q.Limit <= 0 {
		q.Limit = DefaultShelterLimit
	}
	if q.Limit > MaxShelterLimit {
		q.Limit = MaxShelterLimit
	}

	opts := shelter.Options{ExcludeHazard: q.ExcludeHazard, Limit: q.Limit, Category: q.Category}

	switch q.Source {
	case "", domain.SourceCatalog:
		shelters, err := s.catalogShelters(ctx, q.Origin)
		if err != nil {
			return nil, fmt.Errorf("list shelter catalog: %w", err)
		}
		opts.MaxDistanceMeters = s.opts.CatalogMaxDistanceM
		return &NearbyResult{
			Items:  shelter.Rank(shelters, q.Origin, s.hazards.Latest(), opts),
			Source: domain.SourceCatalog,
		}, nil

	case domain.SourceProvider:
		shelters, err := s.providerShelters(ctx)
		if err != nil {
			metrics.ShelterProviderErrors.Inc()
			slog.WarnContext(ctx, "shelter provider unavailable", "error", err)
			return &NearbyResult{
				Items:    []domain.RankedShelter{},
				Source:   domain.SourceProvider,
				Degraded: true,
				Notice:   ProviderUnavailableNotice,
			}, nil
		}
		opts.MaxDistanceMeters = s.opts.ProviderMaxDistanceM
		return &NearbyResult{
			Items:  shelter.Rank(shelters, q.Origin, s.hazards.Latest(), opts),
			Source: domain.SourceProvider,
		}, nil
	}

	return nil, fmt.Errorf("%w: shelter source %q, want catalog or provider", domain.ErrInvalidArgument, q.Source)
}

func (s *ShelterService) catalogShelters(ctx context.Context, origin domain.Coordinate) ([]domain.Shelter, error) {
	if s.opts.CatalogMaxDistanceM > 0 {
		return s.catalog.ListWithin(ctx, origin, s.opts.CatalogMaxDistanceM)
	}
	return s.catalog.List(ctx)
}

// Categories counts catalog shelters per category.
func (s *ShelterService) Categories(ctx context.Context) ([]domain.CategoryCount, error) {
	shelters, err := s.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list shelter catalog: %w", err)
	}
	return shelter.Categories(shelters), nil
}

// providerShelters reads the normalized provider dataset through the cache.
func (s *ShelterService) providerShelters(ctx context.Context) ([]domain.Shelter, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("%w: no shelter provider configured", domain.ErrProviderUnavailable)
	}

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, providerCacheKey); err == nil {
			var shelters []domain.Shelter
			if err := json.Unmarshal(data, &shelters); err == nil {
				metrics.CacheHits.WithLabelValues("shelters_provider").Inc()
				return shelters, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("shelters_provider").Inc()
	}

	ctx, span := telemetry.Tracer().Start(ctx, "shelters.provider.fetch")
	defer span.End()

	payload, err := s.provider.FetchShelters(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	res, err := shelter.ExtractRecords(payload, slog.Default())
	metrics.MalformedRecords.WithLabelValues("provider").Add(float64(res.Skipped))
	span.SetAttributes(
		attribute.String("shelters.container", res.Container),
		attribute.Int("shelters.kept", len(res.Shelters)),
		attribute.Int("shelters.skipped", res.Skipped),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "extract failed")
		return nil, err
	}

	if s.cache != nil && s.opts.ProviderCacheTTL > 0 {
		if data, err := json.Marshal(res.Shelters); err == nil {
			_ = s.cache.Set(ctx, providerCacheKey, data, s.opts.ProviderCacheTTL)
		}
	}
	return res.Shelters, nil
}
