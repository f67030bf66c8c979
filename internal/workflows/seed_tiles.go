package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/waymap/internal/core/domain"
)

// SeedTilesInput selects a Cols x Rows block of tiles starting at Origin and
// growing east (X+1) and north (Y+1).
type SeedTilesInput struct {
	Origin      domain.TileCoordinate
	Cols        int
	Rows        int
	Parallelism int
}

// SeedTilesResult summarises a seeding run.
type SeedTilesResult struct {
	Rendered int
	Failed   []string
	Bytes    int
}

// MaxSeedTiles bounds the block a single run may render.
const MaxSeedTiles = 2500

// Tiles lists the block in row-major order.
func (in SeedTilesInput) Tiles() []domain.TileCoordinate {
	tiles := make([]domain.TileCoordinate, 0, in.Cols*in.Rows)
	for dy := 0; dy < in.Rows; dy++ {
		for dx := 0; dx < in.Cols; dx++ {
			tiles = append(tiles, domain.TileCoordinate{X: in.Origin.X + float64(dx), Y: in.Origin.Y + float64(dy)})
		}
	}
	return tiles
}

// SeedTilesWorkflow renders every tile of the block so that later requests
// hit the tile cache. A tile that keeps failing is reported, not fatal.
func SeedTilesWorkflow(ctx workflow.Context, input SeedTilesInput) (SeedTilesResult, error) {
	logger := workflow.GetLogger(ctx)

	if input.Cols <= 0 || input.Rows <= 0 {
		return SeedTilesResult{}, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("block must be at least 1x1, got %dx%d", input.Cols, input.Rows), "InvalidInput", nil)
	}
	if input.Cols*input.Rows > MaxSeedTiles {
		return SeedTilesResult{}, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("block of %d tiles exceeds %d", input.Cols*input.Rows, MaxSeedTiles), "InvalidInput", nil)
	}
	parallelism := input.Parallelism
	if parallelism <= 0 {
		parallelism = 8
	}

	logger.Info("Starting tile seeding", "origin", input.Origin.Key(), "cols", input.Cols, "rows", input.Rows)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	var result SeedTilesResult
	tiles := input.Tiles()
	for start := 0; start < len(tiles); start += parallelism {
		end := min(start+parallelism, len(tiles))

		futures := make([]workflow.Future, 0, end-start)
		for _, tile := range tiles[start:end] {
			futures = append(futures, workflow.ExecuteActivity(ctx, ActivityRenderTile, tile))
		}
		for i, f := range futures {
			var size int
			if err := f.Get(ctx, &size); err != nil {
				key := tiles[start+i].Key()
				logger.Warn("tile seeding failed", "tile", key, "error", err)
				result.Failed = append(result.Failed, key)
				continue
			}
			result.Rendered++
			result.Bytes += size
		}
	}

	logger.Info("Tile seeding finished", "rendered", result.Rendered, "failed", len(result.Failed))
	return result, nil
}
