package ports

import (
	"context"

	"github.com/samirrijal/waymap/internal/core/domain"
)

// WayRepository persists nodes and the way segments between them.
type WayRepository interface {
	// FindInBox returns every way whose start and end nodes both lie inside box.
	FindInBox(ctx context.Context, box domain.GeoBoundingBox) ([]domain.Way, error)
	UpsertBatch(ctx context.Context, nodes []domain.Node, ways []domain.WayRecord) error
	Count(ctx context.Context) (nodes int, ways int, err error)
}

// RouteGraph is the traversable part of the way store. Ways are directed
// from their start node to their end node.
type RouteGraph interface {
	// RoutableNodes returns every endpoint of a traversable way.
	RoutableNodes(ctx context.Context) ([]domain.Node, error)
	// Outgoing returns the traversable ways that start at nodeID.
	Outgoing(ctx context.Context, nodeID string) ([]domain.Edge, error)
	// Intersection returns a node shared by traversable ways named street and
	// cross, or domain.ErrNoIntersection.
	Intersection(ctx context.Context, street, cross string) (domain.Node, error)
}
