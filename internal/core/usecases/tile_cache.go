package usecases

import (
	"sync"

	"github.com/samirrijal/waymap/internal/core/domain"
)

// TileCache maps tile keys to the ways fetched for them. Entries live for the
// whole session and are never replaced once stored.
type TileCache struct {
	mu    sync.RWMutex
	tiles map[string][]domain.Way
}

// NewTileCache creates an empty TileCache.
func NewTileCache() *TileCache {
	return &TileCache{tiles: make(map[string][]domain.Way)}
}

// Get returns the ways cached for tile.
func (c *TileCache) Get(tile domain.TileCoordinate) ([]domain.Way, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ways, ok := c.tiles[tile.Key()]
	return ways, ok
}

// Put stores ways for tile unless an entry already exists.
func (c *TileCache) Put(tile domain.TileCoordinate, ways []domain.Way) {
	if ways == nil {
		ways = []domain.Way{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tiles[tile.Key()]; !ok {
		c.tiles[tile.Key()] = ways
	}
}

// Len returns the number of cached tiles.
func (c *TileCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tiles)
}

// Keys returns the cached tile keys in no particular order.
func (c *TileCache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.tiles))
	for k := range c.tiles {
		keys = append(keys, k)
	}
	return keys
}
