package ports

import (
	"context"

	"github.com/samirrijal/detour/internal/core/domain"
)

// DirectionsProvider resolves a driving route between two free-form locations.
type DirectionsProvider interface {
	Route(ctx context.Context, origin, destination string) (*domain.Route, error)
}

// PlaceSearcher finds candidate places near a coordinate.
type PlaceSearcher interface {
	Nearby(ctx context.Context, at domain.Coordinate, category, keyword string) ([]domain.Candidate, error)
}

// RatingLookup fetches a place rating from the details API.
// ok is false when the place has no rating.
type RatingLookup interface {
	Rating(ctx context.Context, placeID string) (rating float64, ok bool, err error)
}

// RandomSource yields uniform values in [0,1).
type RandomSource interface {
	Float64() float64
}

// EventPublisher publishes planner events to a message broker.
type EventPublisher interface {
	PublishQueryCreated(ctx context.Context, query *domain.Query) error
	PublishStopover(ctx context.Context, stopover *domain.Stopover) error
}

// EventSubscriber consumes planner events.
type EventSubscriber interface {
	SubscribeQueryCreated(ctx context.Context, handler func(ctx context.Context, query *domain.Query) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
