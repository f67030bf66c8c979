package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	natsadapter "github.com/samirrijal/waymap/internal/adapters/nats"
	"github.com/samirrijal/waymap/internal/adapters/postgres"
	"github.com/samirrijal/waymap/internal/adapters/sqlite"
	"github.com/samirrijal/waymap/internal/adapters/valkey"
	"github.com/samirrijal/waymap/internal/core/domain"
	"github.com/samirrijal/waymap/internal/core/ports"
	"github.com/samirrijal/waymap/internal/core/usecases"
	"github.com/samirrijal/waymap/internal/ingest"
	"github.com/samirrijal/waymap/internal/pkg/config"
	"github.com/samirrijal/waymap/internal/pkg/logging"
)

// usage: ingestor <extract.osm>
//
// Loads the roads and buildings of an OSM XML extract into the configured
// way store and announces the update on NATS.
func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: ingestor <extract.osm>")
	}
	path := os.Args[1]

	cfg, err := config.Load("waymap-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat, "service", "waymap-ingestor")

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
			log.Fatalf("db: %v", err)
		}
		defer db.Close()
		repo = postgres.NewWayRepo(db)
	}

	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("open extract: %v", err)
	}
	defer f.Close()

	start := time.Now()
	ds, err := ingest.ReadXML(ctx, f)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}
	slog.Info("extract parsed", "file", path, "nodes", len(ds.Nodes), "ways", len(ds.Ways), "took", time.Since(start).String())

	if len(ds.Ways) == 0 {
		slog.Warn("no roads or buildings found, nothing to store")
		return
	}

	if err := repo.UpsertBatch(ctx, ds.Nodes, ds.Ways); err != nil {
		log.Fatalf("store: %v", err)
	}
	nodes, ways, err := repo.Count(ctx)
	if err != nil {
		log.Fatalf("count: %v", err)
	}
	slog.Info("ingestion complete", "stored_nodes", nodes, "stored_ways", ways, "took", time.Since(start).String())

	// Move every process sharing the cache to a new generation at once.
	var generation uint64
	cache, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Prefix)
	if err != nil {
		slog.Warn("valkey unavailable, subscribers will invalidate locally", "error", err)
	} else {
		defer cache.Close()
		g, err := usecases.NewWayService(repo, cache).Invalidate(ctx)
		if err != nil {
			slog.Warn("shared cache generation not bumped", "error", err)
		} else {
			generation = g
		}
	}

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, api caches will expire on their own", "error", err)
		return
	}
	defer pub.Close()

	event := &domain.WaysUpdated{
		Time:       time.Now().UTC(),
		Source:     path,
		Nodes:      len(ds.Nodes),
		Ways:       len(ds.Ways),
		Extent:     ds.Box(),
		Generation: generation,
	}
	if err := pub.PublishWaysUpdated(ctx, event); err != nil {
		slog.Error("publish ways updated", "error", err)
	}
}
