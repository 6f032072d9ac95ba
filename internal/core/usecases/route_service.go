package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/samirrijal/evacguide/internal/core/domain"
	"github.com/samirrijal/evacguide/internal/core/ports"
	"github.com/samirrijal/evacguide/internal/core/routing"
	"github.com/samirrijal/evacguide/internal/pkg/metrics"
	"github.com/samirrijal/evacguide/internal/pkg/telemetry"
)

// DefaultProviderTimeout bounds one routing provider call.
const DefaultProviderTimeout = 10 * time.Second

// RouteOptions tunes the RouteService.
type RouteOptions struct {
	ProviderTimeout time.Duration
	CacheEnabled    bool
}

// RouteService answers route requests from the provider, a process-lifetime
// cache, or the estimated fallback. Returned routes are shared and must not
// be modified.
type RouteService struct {
	provider ports.RoutingProvider
	opts     RouteOptions

	mu    sync.RWMutex
	cache map[string]*domain.Route

	group singleflight.Group
}

// NewRouteService creates a new RouteService. provider may be nil, in which
// case every route is estimated.
func NewRouteService(provider ports.RoutingProvider, opts RouteOptions) *RouteService {
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = DefaultProviderTimeout
	}
	return &RouteService{provider: provider, opts: opts, cache: make(map[string]*domain.Route)}
}

// RouteKey is the cache and de-duplication key for a request.
func RouteKey(mode domain.TravelMode, start, end domain.Coordinate) string {
	return fmt.Sprintf("%s|%.6f,%.6f|%.6f,%.6f", mode, start.Lat, start.Lon, end.Lat, end.Lon)
}

// Route returns the route from start to end. Concurrent identical requests
// share one provider call. Provider failures and unrecognized payloads fall
// back to an estimated route; ErrNoRouteFound is returned as is.
func (s *RouteService) Route(ctx context.Context, mode domain.TravelMode, start, end domain.Coordinate) (*domain.Route, error) {
	mode, err := domain.ParseTravelMode(string(mode))
	if err != nil {
		return nil, err
	}
	if err := start.Validate(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	if err := end.Validate(); err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}
	if start == end {
		return nil, fmt.Errorf("%w: start and end are the same point", domain.ErrInvalidArgument)
	}

	key := RouteKey(mode, start, end)
	if route, ok := s.cached(key); ok {
		metrics.CacheHits.WithLabelValues("route").Inc()
		return route, nil
	}
	metrics.CacheMisses.WithLabelValues("route").Inc()

	// The computation must outlive the caller that started it.
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		if route, ok := s.cached(key); ok {
			return route, nil
		}
		route, err := s.compute(shared, mode, start, end)
		if err != nil {
			return nil, err
		}
		if s.opts.CacheEnabled {
			s.mu.Lock()
			s.cache[key] = route
			s.mu.Unlock()
		}
		return route, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Route), nil
	}
}

func (s *RouteService) cached(key string) (*domain.Route, bool) {
	if !s.opts.CacheEnabled {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	route, ok := s.cache[key]
	return route, ok
}

func (s *RouteService) compute(ctx context.Context, mode domain.TravelMode, start, end domain.Coordinate) (*domain.Route, error) {
	if s.provider == nil {
		return s.fallback(ctx, mode, start, end, "no provider configured"), nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.ProviderTimeout)
	defer cancel()
	ctx, span := telemetry.Tracer().Start(ctx, "routing.provider.fetch")
	span.SetAttributes(attribute.String("routing.mode", string(mode)))
	defer span.End()

	began := time.Now()
	payload, err := s.provider.FetchRoute(ctx, mode, start, end)
	metrics.RouteProviderDuration.WithLabelValues(string(mode)).Observe(time.Since(began).Seconds())
	if err != nil {
		metrics.RouteProviderCalls.WithLabelValues(string(mode), "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider call failed")
		return s.fallback(ctx, mode, start, end, err.Error()), nil
	}

	segments, strategy, err := routing.ParseSegments(payload)
	if err != nil {
		metrics.RouteProviderCalls.WithLabelValues(string(mode), "unrecognized").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "unrecognized payload")
		return s.fallback(ctx, mode, start, end, err.Error()), nil
	}
	span.SetAttributes(attribute.String("routing.strategy", strategy), attribute.Int("routing.segments", len(segments)))

	route, err := routing.Normalize(segments, mode)
	if err != nil {
		if errors.Is(err, domain.ErrNoRouteFound) {
			metrics.RouteProviderCalls.WithLabelValues(string(mode), "no_route").Inc()
		}
		span.SetStatus(codes.Error, "normalize failed")
		return nil, err
	}
	metrics.RouteProviderCalls.WithLabelValues(string(mode), "ok").Inc()
	return route, nil
}

func (s *RouteService) fallback(ctx context.Context, mode domain.TravelMode, start, end domain.Coordinate, reason string) *domain.Route {
	metrics.RouteFallbacks.WithLabelValues(string(mode)).Inc()
	slog.WarnContext(ctx, "routing provider failed, using estimate", "mode", mode, "reason", reason)
	return routing.DummyRoute(start, end, mode)
}
