package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samirrijal/waymap/internal/adapters/cli"
	"github.com/samirrijal/waymap/internal/adapters/raster"
	"github.com/samirrijal/waymap/internal/adapters/waysclient"
	"github.com/samirrijal/waymap/internal/core/usecases"
	"github.com/samirrijal/waymap/internal/pkg/config"
	"github.com/samirrijal/waymap/internal/pkg/logging"
)

func main() {
	cfg, err := config.Load("waymap-viewer")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Stdout belongs to the REPL.
	logging.SetupWriter(os.Stderr, cfg.LogLevel, cfg.LogFormat, "service", "waymap-viewer")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	grid := cfg.Grid.TileGrid()
	canvas, err := raster.NewTileCanvas(grid)
	if err != nil {
		log.Fatalf("canvas: %v", err)
	}
	defer canvas.Close()

	source := waysclient.New(cfg.Client.BaseURL, waysclient.WithTimeout(time.Duration(cfg.Client.Timeout)*time.Second))
	fetcher := usecases.NewTileFetcher(grid, source, usecases.NewTileCache())
	viewer := usecases.NewViewer(fetcher, usecases.NewRenderer(grid), canvas, grid.Seed)

	slog.Info("viewer started", "backend", cfg.Client.BaseURL, "seed", grid.Seed.Key())

	repl := cli.New(viewer, grid, canvas, os.Stdout, cli.WithRoutes(source))
	if msg, err := repl.Execute(ctx, "draw"); err != nil {
		fmt.Fprintf(os.Stdout, "ERROR: %v\n", err)
	} else {
		fmt.Fprintln(os.Stdout, msg)
	}

	if err := repl.Run(ctx, os.Stdin); err != nil && ctx.Err() == nil {
		log.Fatalf("viewer: %v", err)
	}
}
