package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/waymap/internal/core/domain"
	"github.com/samirrijal/waymap/internal/core/ports"
	"github.com/samirrijal/waymap/internal/pkg/metrics"
	"github.com/samirrijal/waymap/internal/pkg/telemetry"
)

var tracer = otel.Tracer("github.com/samirrijal/waymap/internal/core/usecases")

// WayPage is one page of ways inside a box.
type WayPage struct {
	Ways  []domain.Way
	Total int
}

// GenerationKey holds the data generation shared by every process using the
// same cache. Cached query results and tile images embed it in their keys.
const GenerationKey = "ways:generation"

// WayService answers bounding box queries against the way repository.
type WayService struct {
	ways  ports.WayRepository
	cache ports.CacheService

	// last generation seen; the only one when there is no shared cache
	generation atomic.Uint64
}

// NewWayService creates a new WayService. cache may be nil.
func NewWayService(ways ports.WayRepository, cache ports.CacheService) *WayService {
	return &WayService{ways: ways, cache: cache}
}

// Ways returns every way whose endpoints both lie inside box.
func (s *WayService) Ways(ctx context.Context, box domain.GeoBoundingBox) ([]domain.Way, error) {
	if err := box.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "WayService.Ways")
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrBBox, box.CacheKey()))

	cacheKey := fmt.Sprintf("ways:g%d:%s", s.Generation(ctx), box.CacheKey())
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var ways []domain.Way
			if err := json.Unmarshal(data, &ways); err == nil {
				metrics.CacheHits.WithLabelValues("ways").Inc()
				span.SetAttributes(attribute.Bool(telemetry.AttrCacheHit, true))
				return ways, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("ways").Inc()
	}

	ways, err := s.ways.FindInBox(ctx, box)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("find ways: %w", err)
	}
	if ways == nil {
		ways = []domain.Way{}
	}
	metrics.WaysServed.Observe(float64(len(ways)))
	span.SetAttributes(attribute.Int(telemetry.AttrWays, len(ways)))

	// Way data only changes on ingest, which bumps the generation.
	if s.cache != nil {
		if data, err := json.Marshal(ways); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 3600)
		}
	}

	return ways, nil
}

// Page returns a window of the ways inside box together with the total count.
func (s *WayService) Page(ctx context.Context, box domain.GeoBoundingBox, offset, limit int) (WayPage, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}

	ways, err := s.Ways(ctx, box)
	if err != nil {
		return WayPage{}, err
	}

	page := WayPage{Total: len(ways), Ways: []domain.Way{}}
	if offset >= len(ways) {
		return page, nil
	}
	end := offset + limit
	if end > len(ways) {
		end = len(ways)
	}
	page.Ways = ways[offset:end]
	return page, nil
}

// Generation returns the current data generation. With a shared cache it is
// read from GenerationKey; a missing key is generation 0. If the cache cannot
// be read the last generation seen is used.
func (s *WayService) Generation(ctx context.Context) uint64 {
	if s.cache == nil {
		return s.generation.Load()
	}
	data, err := s.cache.Get(ctx, GenerationKey)
	if err != nil {
		return s.generation.Load()
	}
	g, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		slog.WarnContext(ctx, "bad cache generation", "value", string(data))
		return s.generation.Load()
	}
	s.generation.Store(g)
	return g
}

// Invalidate drops every cached query result by moving to a new generation.
// With a shared cache every process sharing it moves together.
func (s *WayService) Invalidate(ctx context.Context) (uint64, error) {
	if s.cache == nil {
		g := s.generation.Add(1)
		slog.InfoContext(ctx, "way cache invalidated", "generation", g)
		return g, nil
	}
	n, err := s.cache.Incr(ctx, GenerationKey)
	if err != nil {
		return s.generation.Load(), fmt.Errorf("bump cache generation: %w", err)
	}
	g := uint64(n)
	s.generation.Store(g)
	slog.InfoContext(ctx, "way cache invalidated", "generation", g, "shared", true)
	return g, nil
}

// HandleWaysUpdated invalidates cached results when new data has been loaded.
// An event that already carries a shared generation was bumped by its
// publisher, so only processes without that cache move on their own.
func (s *WayService) HandleWaysUpdated(ctx context.Context, event *domain.WaysUpdated) error {
	slog.InfoContext(ctx, "ways updated", "source", event.Source, "nodes", event.Nodes, "ways", event.Ways, "generation", event.Generation)
	if s.cache != nil && event.Generation != 0 {
		if event.Generation > s.generation.Load() {
			s.generation.Store(event.Generation)
		}
		return nil
	}
	_, err := s.Invalidate(ctx)
	return err
}

// Stats returns the stored node and way counts.
func (s *WayService) Stats(ctx context.Context) (nodes, ways int, err error) {
	return s.ways.Count(ctx)
}
