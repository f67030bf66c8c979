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

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/waymap/internal/adapters/http"
	natsadapter "github.com/samirrijal/waymap/internal/adapters/nats"
	"github.com/samirrijal/waymap/internal/adapters/postgres"
	"github.com/samirrijal/waymap/internal/adapters/raster"
	"github.com/samirrijal/waymap/internal/adapters/sqlite"
	"github.com/samirrijal/waymap/internal/adapters/valkey"
	"github.com/samirrijal/waymap/internal/core/ports"
	"github.com/samirrijal/waymap/internal/core/usecases"
	"github.com/samirrijal/waymap/internal/pkg/config"
	"github.com/samirrijal/waymap/internal/pkg/logging"
	"github.com/samirrijal/waymap/internal/pkg/metrics"
	"github.com/samirrijal/waymap/internal/pkg/telemetry"
)

// store is a way repository that also serves the route graph and can be pinged.
type store interface {
	ports.WayRepository
	ports.RouteGraph
	Ping(ctx context.Context) error
}

func main() {
	cfg, err := config.Load("waymap-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.LogLevel, cfg.LogFormat, "service", "waymap-api")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Way store
	var repo store
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
		repo = pgStore{postgres.NewWayRepo(db), db}
		go reportPoolStats(ctx, db)
	}

	// Cache
	var cache ports.CacheService
	var cachePinger http.Pinger
	vc, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Prefix)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer vc.Close()
		cache, cachePinger = vc, vc
	}

	// NATS
	var events ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	// Raw NATS connection for the websocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Close()
	}

	grid := cfg.Grid.TileGrid()
	newCanvas := func() (ports.RasterCanvas, error) { return raster.NewTileCanvas(grid) }

	// Use cases
	waySvc := usecases.NewWayService(repo, cache)
	tileSvc := usecases.NewTileService(grid, waySvc, newCanvas, cache, events)
	routeSvc := usecases.NewRouteService(repo, waySvc)

	// New data from the ingestor invalidates cached query results.
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, cfg.NATS.Durable)
	if err != nil {
		slog.Warn("nats subscriber unavailable, cache will not follow ingests", "error", err)
	} else {
		defer sub.Close()
		if err := sub.SubscribeWaysUpdated(ctx, waySvc.HandleWaysUpdated); err != nil {
			slog.Warn("subscribe ways updated", "error", err)
		}
	}

	deps := &http.Dependencies{
		Ways:      waySvc,
		Tiles:     tileSvc,
		Routes:    routeSvc,
		Grid:      grid,
		NewCanvas: newCanvas,
		NATS:      natsConn,
		DB:        repo,
		Cache:     cachePinger,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024,
		AppName:      "waymap API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "storage", cfg.Storage.Driver)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// pgStore pairs the postgres repository with its pool for readiness checks.
type pgStore struct {
	*postgres.WayRepo
	db *postgres.DB
}

func (s pgStore) Ping(ctx context.Context) error { return s.db.Ping(ctx) }

// reportPoolStats refreshes the pool gauges until ctx is done.
func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		metrics.UpdateDBPoolMetrics(db.Stat())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
