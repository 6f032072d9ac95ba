package usecases_test

import (
	"context"
	"errors"
	"sync"

	"github.com/samirrijal/evacguide/internal/core/domain"
)

// --- Mock RoutingProvider ---

type mockRoutingProvider struct {
	fetchFn func(ctx context.Context, mode domain.TravelMode, start, end domain.Coordinate) ([]byte, error)
}

func (m *mockRoutingProvider) FetchRoute(ctx context.Context, mode domain.TravelMode, start, end domain.Coordinate) ([]byte, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, mode, start, end)
	}
	return nil, errors.New("not configured")
}

// --- Mock ShelterCatalog ---

type mockCatalog struct {
	listFn       func(ctx context.Context) ([]domain.Shelter, error)
	listWithinFn func(ctx context.Context, origin domain.Coordinate, radiusMeters float64) ([]domain.Shelter, error)
}

func (m *mockCatalog) List(ctx context.Context) ([]domain.Shelter, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockCatalog) ListWithin(ctx context.Context, origin domain.Coordinate, radiusMeters float64) ([]domain.Shelter, error) {
	if m.listWithinFn != nil {
		return m.listWithinFn(ctx, origin, radiusMeters)
	}
	return nil, nil
}

// --- Mock ShelterProvider ---

type mockShelterProvider struct {
	fetchFn func(ctx context.Context) ([]byte, error)
}

func (m *mockShelterProvider) FetchShelters(ctx context.Context) ([]byte, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx)
	}
	return nil, errors.New("not configured")
}

// --- In-memory CacheService ---

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]int
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, ttls: map[string]int{}}
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return v, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.ttls[key] = ttlSeconds
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// --- Recording EventPublisher ---

type recordingPublisher struct {
	mu        sync.Mutex
	zones     []*domain.HazardZone
	timelines []*domain.TimelineEvent
	ingested  []*domain.TimelineIngested
	err       error
}

func (p *recordingPublisher) PublishHazardZone(ctx context.Context, zone *domain.HazardZone) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.zones = append(p.zones, zone)
	return p.err
}

func (p *recordingPublisher) PublishTimelineLoaded(ctx context.Context, event *domain.TimelineEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timelines = append(p.timelines, event)
	return p.err
}

func (p *recordingPublisher) PublishTimelineIngested(ctx context.Context, event *domain.TimelineIngested) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ingested = append(p.ingested, event)
	return p.err
}
