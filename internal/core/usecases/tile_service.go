package usecases

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/waymap/internal/core/domain"
	"github.com/samirrijal/waymap/internal/core/ports"
	"github.com/samirrijal/waymap/internal/pkg/geospatial"
	"github.com/samirrijal/waymap/internal/pkg/telemetry"
)

// CanvasFactory returns a fresh, cleared raster canvas.
type CanvasFactory func() (ports.RasterCanvas, error)

// TileService describes and renders tiles on the server side.
type TileService struct {
	grid      domain.TileGrid
	ways      ports.WaySource
	renderer  *Renderer
	newCanvas CanvasFactory
	cache     ports.CacheService
	events    ports.EventPublisher
}

// NewTileService creates a new TileService. cache and events may be nil.
func NewTileService(grid domain.TileGrid, ways ports.WaySource, newCanvas CanvasFactory, cache ports.CacheService, events ports.EventPublisher) *TileService {
	return &TileService{
		grid:      grid,
		ways:      ways,
		renderer:  NewRenderer(grid),
		newCanvas: newCanvas,
		cache:     cache,
		events:    events,
	}
}

// Grid returns the tile grid the service maps with.
func (s *TileService) Grid() domain.TileGrid { return s.grid }

// Describe returns the geography of a tile.
func (s *TileService) Describe(tile domain.TileCoordinate) domain.TileInfo {
	box := s.grid.BoundingBox(tile)
	w, h := geospatial.BoxSize(box.MinLat, box.MinLon, box.MaxLat, box.MaxLon)
	return domain.TileInfo{
		Tile:         tile,
		Key:          tile.Key(),
		Bounds:       box,
		Center:       box.Center(),
		WidthMeters:  w,
		HeightMeters: h,
		CanvasWidth:  s.grid.CanvasWidth,
		CanvasHeight: s.grid.CanvasHeight,
	}
}

// Ways returns the ways inside a tile.
func (s *TileService) Ways(ctx context.Context, tile domain.TileCoordinate) ([]domain.Way, error) {
	return s.ways.Ways(ctx, s.grid.BoundingBox(tile))
}

// RenderPNG returns the tile drawn as a PNG image.
func (s *TileService) RenderPNG(ctx context.Context, tile domain.TileCoordinate) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "TileService.RenderPNG")
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrTile, tile.Key()))

	cacheKey := s.pngCacheKey(ctx, tile)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil && len(data) > 0 {
			span.SetAttributes(attribute.Bool(telemetry.AttrCacheHit, true))
			return data, nil
		}
	}

	ways, err := s.Ways(ctx, tile)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	canvas, err := s.newCanvas()
	if err != nil {
		return nil, fmt.Errorf("create canvas: %w", err)
	}
	if c, ok := canvas.(interface{ Close() error }); ok {
		defer c.Close()
	}
	canvas.Clear()

	report, err := s.renderer.Render(tile, ways, canvas)
	if err != nil {
		return nil, fmt.Errorf("render tile %s: %w", tile.Key(), err)
	}

	var buf bytes.Buffer
	if err := canvas.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode tile %s: %w", tile.Key(), err)
	}
	data := buf.Bytes()

	if s.cache != nil {
		_ = s.cache.Set(ctx, cacheKey, data, 3600)
	}
	if s.events != nil {
		event := &domain.TileRendered{Time: time.Now().UTC(), Tile: tile, Bytes: len(data), Ways: report.WaysDrawn}
		if err := s.events.PublishTileRendered(ctx, event); err != nil {
			slog.WarnContext(ctx, "publish tile rendered", "tile", tile.Key(), "error", err)
		}
	}

	return data, nil
}

func (s *TileService) pngCacheKey(ctx context.Context, tile domain.TileCoordinate) string {
	if g, ok := s.ways.(interface {
		Generation(ctx context.Context) uint64
	}); ok {
		return fmt.Sprintf("tiles:png:g%d:%s", g.Generation(ctx), tile.Key())
	}
	return "tiles:png:" + tile.Key()
}
