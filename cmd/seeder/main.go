package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/waymap/internal/adapters/postgres"
	"github.com/samirrijal/waymap/internal/adapters/raster"
	"github.com/samirrijal/waymap/internal/adapters/sqlite"
	"github.com/samirrijal/waymap/internal/adapters/valkey"
	"github.com/samirrijal/waymap/internal/core/domain"
	"github.com/samirrijal/waymap/internal/core/ports"
	"github.com/samirrijal/waymap/internal/core/usecases"
	"github.com/samirrijal/waymap/internal/pkg/config"
	"github.com/samirrijal/waymap/internal/pkg/logging"
	"github.com/samirrijal/waymap/internal/workflows"
)

const usage = `usage:
  seeder worker                     run the tile seeding worker
  seeder seed X Y COLS ROWS         pre-render a COLS x ROWS block starting at tile (X, Y)`

func main() {
	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	cfg, err := config.Load("waymap-seeder")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat, "service", "waymap-seeder")

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	switch os.Args[1] {
	case "worker":
		runWorker(c, cfg)
	case "seed":
		input, err := parseSeedArgs(os.Args[2:])
		if err != nil {
			log.Fatalf("%v\n%s", err, usage)
		}
		runSeed(c, cfg, input)
	default:
		log.Fatalf("unknown command: %s\n%s", os.Args[1], usage)
	}
}

func parseSeedArgs(args []string) (workflows.SeedTilesInput, error) {
	if len(args) != 4 {
		return workflows.SeedTilesInput{}, fmt.Errorf("seed needs 4 arguments, got %d", len(args))
	}
	x, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return workflows.SeedTilesInput{}, fmt.Errorf("X: %w", err)
	}
	y, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return workflows.SeedTilesInput{}, fmt.Errorf("Y: %w", err)
	}
	cols, err := strconv.Atoi(args[2])
	if err != nil {
		return workflows.SeedTilesInput{}, fmt.Errorf("COLS: %w", err)
	}
	rows, err := strconv.Atoi(args[3])
	if err != nil {
		return workflows.SeedTilesInput{}, fmt.Errorf("ROWS: %w", err)
	}
	return workflows.SeedTilesInput{Origin: domain.TileCoordinate{X: x, Y: y}, Cols: cols, Rows: rows}, nil
}

func runWorker(c client.Client, cfg *config.Config) {
	ctx := context.Background()

	var repo ports.WayRepository
	switch cfg.Storage.Driver {
	case "sqlite":
		db, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatalf("sqlite: %v", err)
		}
		defer db.Close()
		repo = db
	default:
		db, err := postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		repo = postgres.NewWayRepo(db)
	}

	// Seeding only pays off when the rendered tiles land in the shared cache.
	cache, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Prefix)
	if err != nil {
		log.Fatalf("valkey: %v", err)
	}
	defer cache.Close()

	grid := cfg.Grid.TileGrid()
	ways := usecases.NewWayService(repo, cache)
	tiles := usecases.NewTileService(grid, ways, func() (ports.RasterCanvas, error) {
		return raster.NewTileCanvas(grid)
	}, cache, nil)

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.SeedTilesWorkflow)
	acts := &workflows.SeedActivities{Tiles: tiles}
	w.RegisterActivityWithOptions(acts.RenderTile, activity.RegisterOptions{Name: workflows.ActivityRenderTile})

	slog.Info("seeder worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

func runSeed(c client.Client, cfg *config.Config, input workflows.SeedTilesInput) {
	ctx := context.Background()

	opts := client.StartWorkflowOptions{
		ID:        fmt.Sprintf("seed-tiles-%s-%dx%d-%d", input.Origin.Key(), input.Cols, input.Rows, time.Now().Unix()),
		TaskQueue: cfg.Temporal.TaskQueue,
	}
	run, err := c.ExecuteWorkflow(ctx, opts, workflows.SeedTilesWorkflow, input)
	if err != nil {
		log.Fatalf("start workflow: %v", err)
	}
	slog.Info("seeding started", "workflow_id", run.GetID(), "run_id", run.GetRunID())

	var result workflows.SeedTilesResult
	if err := run.Get(ctx, &result); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	slog.Info("seeding finished", "rendered", result.Rendered, "failed", len(result.Failed), "bytes", result.Bytes)
	for _, key := range result.Failed {
		fmt.Println("FAILED", key)
	}
}
