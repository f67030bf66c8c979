package usecases

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/samirrijal/waymap/internal/core/domain"
	"github.com/samirrijal/waymap/internal/core/ports"
	"github.com/samirrijal/waymap/internal/pkg/metrics"
)

// TileFetcher loads the ways of a tile from a WaySource, consulting and
// filling a TileCache.
type TileFetcher struct {
	grid     domain.TileGrid
	source   ports.WaySource
	cache    *TileCache
	group    singleflight.Group
	requests atomic.Int64
}

// NewTileFetcher creates a TileFetcher. A nil cache gets a fresh one.
func NewTileFetcher(grid domain.TileGrid, source ports.WaySource, cache *TileCache) *TileFetcher {
	if cache == nil {
		cache = NewTileCache()
	}
	return &TileFetcher{grid: grid, source: source, cache: cache}
}

// Cache exposes the fetcher's tile cache.
func (f *TileFetcher) Cache() *TileCache { return f.cache }

// Requests reports how many times the source has been called.
func (f *TileFetcher) Requests() int64 { return f.requests.Load() }

// Fetch returns the ways of tile. Failures are reported as *domain.FetchError
// and are never cached. Concurrent fetches of one tile share a single request,
// which keeps running when an individual caller gives up.
func (f *TileFetcher) Fetch(ctx context.Context, tile domain.TileCoordinate) ([]domain.Way, error) {
	if ways, ok := f.cache.Get(tile); ok {
		metrics.TileFetches.WithLabelValues("hit").Inc()
		return ways, nil
	}

	key := tile.Key()
	ch := f.group.DoChan(key, func() (interface{}, error) {
		// filled by a flight that finished after the first check
		if ways, ok := f.cache.Get(tile); ok {
			return flight{ways: ways, cached: true}, nil
		}
		f.requests.Add(1)

		box := f.grid.BoundingBox(tile)
		ways, err := f.source.Ways(context.WithoutCancel(ctx), box)
		if err != nil {
			slog.Warn("tile fetch failed", "tile", key, "error", err)
			return nil, asFetchError(err)
		}
		f.cache.Put(tile, ways)
		cached, _ := f.cache.Get(tile)
		return flight{ways: cached}, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			metrics.TileFetches.WithLabelValues("error").Inc()
			return nil, res.Err
		}
		fl := res.Val.(flight)
		if fl.cached {
			metrics.TileFetches.WithLabelValues("hit").Inc()
		} else {
			metrics.TileFetches.WithLabelValues("miss").Inc()
		}
		return fl.ways, nil
	}
}

// flight is the shared outcome of one collapsed fetch.
type flight struct {
	ways   []domain.Way
	cached bool
}

func asFetchError(err error) error {
	var fe *domain.FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return &domain.FetchError{Message: err.Error(), Err: err}
}
