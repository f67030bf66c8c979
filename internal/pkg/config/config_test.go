package config

import (
	"strings"
	"testing"

	"github.com/samirrijal/waymap/internal/core/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("waymap-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 4567 {
		t.Errorf("expected port 4567, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "postgres" {
		t.Errorf("expected postgres driver, got %q", cfg.Storage.Driver)
	}
	if got := cfg.Grid.TileGrid(); got != domain.DefaultTileGrid() {
		t.Errorf("expected default grid, got %+v", got)
	}
	if cfg.NATS.Durable != "waymap-test" {
		t.Errorf("expected durable to default to the service name, got %q", cfg.NATS.Durable)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("WAYMAP_SERVER_PORT", "8088")
	t.Setenv("WAYMAP_STORAGE_DRIVER", "sqlite")
	t.Setenv("WAYMAP_GRID_SEED_X", "0")

	cfg, err := Load("waymap-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8088 {
		t.Errorf("expected port 8088, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("expected sqlite driver, got %q", cfg.Storage.Driver)
	}
	if cfg.Grid.SeedX != 0 {
		t.Errorf("expected seed x 0, got %f", cfg.Grid.SeedX)
	}
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := &Config{
		Server:  ServerConfig{Port: 0, ReadTimeout: 1, WriteTimeout: 1},
		Storage: StorageConfig{Driver: "oracle"},
		Grid:    GridConfig{TileWidth: 0, TileHeight: 1, CanvasWidth: 700, CanvasHeight: 400},
		Client:  ClientConfig{Timeout: 1},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.port", "storage.driver", "nats.url", "valkey.addr", "grid:"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in error, got:\n%s", want, err)
		}
	}
}
