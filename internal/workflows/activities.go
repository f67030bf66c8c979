package workflows

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"

	"github.com/samirrijal/waymap/internal/core/domain"
)

// ActivityRenderTile is the registered name of SeedActivities.RenderTile.
const ActivityRenderTile = "RenderTile"

// TileRenderer produces the PNG of a tile, caching it on the way.
type TileRenderer interface {
	RenderPNG(ctx context.Context, tile domain.TileCoordinate) ([]byte, error)
}

// SeedActivities holds the activity implementations for the seeding workflow.
type SeedActivities struct {
	Tiles TileRenderer
}

// RenderTile renders one tile and returns the encoded size.
func (a *SeedActivities) RenderTile(ctx context.Context, tile domain.TileCoordinate) (int, error) {
	data, err := a.Tiles.RenderPNG(ctx, tile)
	if err != nil {
		return 0, fmt.Errorf("render tile %s: %w", tile.Key(), err)
	}
	activity.GetLogger(ctx).Debug("tile rendered", "tile", tile.Key(), "bytes", len(data))
	return len(data), nil
}
