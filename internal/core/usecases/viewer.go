package usecases

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/samirrijal/waymap/internal/core/domain"
	"github.com/samirrijal/waymap/internal/core/ports"
	"github.com/samirrijal/waymap/internal/pkg/metrics"
)

// ErrSuperseded is returned by a draw that was replaced by a newer one.
var ErrSuperseded = errors.New("draw superseded by a newer pan")

// DrawResult is the outcome of a successful draw.
type DrawResult struct {
	Tile   domain.TileCoordinate `json:"tile"`
	Report domain.DrawReport     `json:"report"`
	Seq    uint64                `json:"seq"`
}

// Viewer holds one session's position and canvas, and turns pan commands into
// fetch-and-render cycles. Only the most recent draw may paint.
type Viewer struct {
	fetcher  *TileFetcher
	renderer *Renderer
	canvas   ports.Canvas

	mu     sync.Mutex
	pos    domain.TilePosition
	seq    uint64
	cancel context.CancelFunc
}

// NewViewer creates a Viewer positioned on seed.
func NewViewer(fetcher *TileFetcher, renderer *Renderer, canvas ports.Canvas, seed domain.TileCoordinate) *Viewer {
	return &Viewer{
		fetcher:  fetcher,
		renderer: renderer,
		canvas:   canvas,
		pos:      domain.TilePosition{Seed: seed},
	}
}

// Position returns the current position.
func (v *Viewer) Position() domain.TilePosition {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pos
}

// Tile returns the tile currently shown.
func (v *Viewer) Tile() domain.TileCoordinate { return v.Position().Tile() }

// Fetcher returns the viewer's fetcher.
func (v *Viewer) Fetcher() *TileFetcher { return v.fetcher }

// Pan moves one step in dir and draws the new tile.
func (v *Viewer) Pan(ctx context.Context, dir domain.Direction) (DrawResult, error) {
	return v.draw(ctx, func(p domain.TilePosition) domain.TilePosition { return p.Pan(dir) })
}

// Goto jumps to tile, making it the new seed, and draws it.
func (v *Viewer) Goto(ctx context.Context, tile domain.TileCoordinate) (DrawResult, error) {
	return v.draw(ctx, func(domain.TilePosition) domain.TilePosition { return domain.TilePosition{Seed: tile} })
}

// Redraw draws the current tile again.
func (v *Viewer) Redraw(ctx context.Context) (DrawResult, error) {
	return v.draw(ctx, func(p domain.TilePosition) domain.TilePosition { return p })
}

func (v *Viewer) draw(ctx context.Context, move func(domain.TilePosition) domain.TilePosition) (DrawResult, error) {
	v.mu.Lock()
	if v.cancel != nil {
		v.cancel()
	}
	v.pos = move(v.pos)
	v.seq++
	seq := v.seq
	tile := v.pos.Tile()
	drawCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.canvas.Clear()
	v.mu.Unlock()
	defer cancel()

	ways, err := v.fetcher.Fetch(drawCtx, tile)

	v.mu.Lock()
	defer v.mu.Unlock()
	if seq != v.seq {
		metrics.DrawsSuperseded.Inc()
		return DrawResult{Tile: tile, Seq: seq}, ErrSuperseded
	}
	v.cancel = nil
	if err != nil {
		slog.Debug("draw failed", "tile", tile.Key(), "error", err)
		return DrawResult{Tile: tile, Seq: seq}, err
	}

	report, err := v.renderer.Render(tile, ways, v.canvas)
	if err != nil {
		return DrawResult{Tile: tile, Seq: seq}, err
	}
	return DrawResult{Tile: tile, Report: report, Seq: seq}, nil
}

// Capture runs fn with the canvas held still, provided the draw numbered seq
// is still the latest. Otherwise it returns ErrSuperseded without calling fn.
func (v *Viewer) Capture(seq uint64, fn func() error) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if seq != v.seq {
		return ErrSuperseded
	}
	return fn()
}
