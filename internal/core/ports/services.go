package ports

import (
	"context"

	"github.com/samirrijal/evacguide/internal/core/domain"
)

// RoutingProvider fetches a raw route payload between two points.
type RoutingProvider interface {
	FetchRoute(ctx context.Context, mode domain.TravelMode, start, end domain.Coordinate) ([]byte, error)
}

// ShelterProvider fetches the raw public shelter dataset.
type ShelterProvider interface {
	FetchShelters(ctx context.Context) ([]byte, error)
}

// WildfireSource reads a raw wildfire timeline (JSON array or NDJSON) from a
// file path or URL.
type WildfireSource interface {
	FetchTimeline(ctx context.Context, location string) ([]byte, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishHazardZone(ctx context.Context, zone *domain.HazardZone) error
	PublishTimelineLoaded(ctx context.Context, event *domain.TimelineEvent) error
	// PublishTimelineIngested points the API processes at a validated timeline.
	PublishTimelineIngested(ctx context.Context, event *domain.TimelineIngested) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeHazardZones(ctx context.Context, handler func(ctx context.Context, zone *domain.HazardZone) error) error
	SubscribeTimelineIngested(ctx context.Context, handler func(ctx context.Context, event *domain.TimelineIngested) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
