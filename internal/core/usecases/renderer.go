package usecases

import (
	"fmt"
	"math"
	"time"

	"github.com/samirrijal/waymap/internal/core/domain"
	"github.com/samirrijal/waymap/internal/core/ports"
	"github.com/samirrijal/waymap/internal/pkg/metrics"
)

// Renderer paints a tile's ways onto a canvas in four passes.
type Renderer struct {
	grid  domain.TileGrid
	theme domain.Theme
}

// NewRenderer creates a Renderer using the default theme.
func NewRenderer(grid domain.TileGrid) *Renderer {
	return &Renderer{grid: grid, theme: domain.DefaultTheme()}
}

// WithTheme returns a copy of the renderer using theme.
func (r *Renderer) WithTheme(theme domain.Theme) *Renderer {
	return &Renderer{grid: r.grid, theme: theme}
}

// Render draws ways for tile onto canvas. The canvas is expected to be clear.
func (r *Renderer) Render(tile domain.TileCoordinate, ways []domain.Way, canvas ports.Canvas) (domain.DrawReport, error) {
	start := time.Now()
	defer func() { metrics.TileRenderDuration.Observe(time.Since(start).Seconds()) }()

	report := domain.DrawReport{Tile: tile, Labels: []string{}}
	for _, pass := range domain.Passes {
		if err := r.renderPass(pass, tile, ways, canvas, &report); err != nil {
			return report, fmt.Errorf("%s pass: %w", pass, err)
		}
	}
	report.WaysDrawn = report.Road + report.Building
	return report, nil
}

func (r *Renderer) renderPass(pass domain.Pass, tile domain.TileCoordinate, ways []domain.Way, canvas ports.Canvas, report *domain.DrawReport) error {
	switch pass {
	case domain.PassOutline:
		segs := r.segments(tile, ways, domain.Way.IsRoad)
		report.Outline = len(segs)
		return canvas.StrokeSegments(r.theme.Outline, segs)
	case domain.PassRoad:
		segs := r.segments(tile, ways, domain.Way.IsRoad)
		report.Road = len(segs)
		return canvas.StrokeSegments(r.theme.Road, segs)
	case domain.PassBuilding:
		segs := r.segments(tile, ways, domain.Way.IsBuilding)
		report.Building = len(segs)
		return canvas.StrokeSegments(r.theme.Building, segs)
	case domain.PassLabel:
		drawn := make(map[string]struct{})
		for _, w := range ways {
			if !w.IsRoad() || w.Name == "" {
				continue
			}
			if _, ok := drawn[w.Name]; ok {
				continue
			}
			seg := r.grid.Project(w, tile)
			err := canvas.DrawLabel(domain.Label{
				Text:     w.Name,
				X:        seg.X1,
				Y:        seg.Y1,
				Angle:    LabelAngle(seg),
				FontSize: r.theme.LabelSize,
				Color:    r.theme.LabelInk,
			})
			if err != nil {
				return err
			}
			drawn[w.Name] = struct{}{}
			report.Labels = append(report.Labels, w.Name)
		}
		return nil
	}
	return fmt.Errorf("unknown pass %d", pass)
}

func (r *Renderer) segments(tile domain.TileCoordinate, ways []domain.Way, keep func(domain.Way) bool) []domain.Segment {
	segs := make([]domain.Segment, 0, len(ways))
	for _, w := range ways {
		if keep(w) {
			segs = append(segs, r.grid.Project(w, tile))
		}
	}
	return segs
}

// LabelAngle returns the rotation for a label along seg. Eastward segments use
// asin(-opp/hyp), westward ones asin(opp/hyp), and horizontal or vertical
// segments are not rotated.
func LabelAngle(seg domain.Segment) float64 {
	adj := seg.X2 - seg.X1
	opp := seg.Y2 - seg.Y1
	hyp := math.Sqrt(adj*adj + opp*opp)
	switch {
	case seg.X1 < seg.X2 && seg.Y1 != seg.Y2:
		return math.Asin(-opp / hyp)
	case seg.X1 > seg.X2 && seg.Y1 != seg.Y2:
		return math.Asin(opp / hyp)
	}
	return 0
}
