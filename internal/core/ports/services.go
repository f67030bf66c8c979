package ports

import (
	"context"
	"io"

	"github.com/samirrijal/waymap/internal/core/domain"
)

// WaySource yields the ways inside a bounding box. It is satisfied by the
// remote ways client and, in-process, by the way service.
type WaySource interface {
	Ways(ctx context.Context, box domain.GeoBoundingBox) ([]domain.Way, error)
}

// Canvas is a 2D drawing surface the renderer paints a tile on.
type Canvas interface {
	Clear()
	StrokeSegments(style domain.StrokeStyle, segments []domain.Segment) error
	DrawLabel(label domain.Label) error
}

// RasterCanvas is a Canvas that can be encoded as an image.
type RasterCanvas interface {
	Canvas
	EncodePNG(w io.Writer) error
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishWaysUpdated(ctx context.Context, event *domain.WaysUpdated) error
	PublishTileRendered(ctx context.Context, event *domain.TileRendered) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeWaysUpdated(ctx context.Context, handler func(ctx context.Context, event *domain.WaysUpdated) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
	// Incr atomically increments an integer key, creating it at 0 first.
	Incr(ctx context.Context, key string) (int64, error)
}
