package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/waymap/internal/core/domain"
	"github.com/samirrijal/waymap/internal/core/usecases"
)

// Pinger is a backend that can report its reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Ways   *usecases.WayService
	Tiles  *usecases.TileService
	Routes *usecases.RouteService
	Grid   domain.TileGrid

	// NewCanvas backs the canvas of each websocket viewer session.
	NewCanvas usecases.CanvasFactory

	NATS  *nats.Conn
	DB    Pinger
	Cache Pinger
}
