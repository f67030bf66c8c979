// Package raster implements the tile canvas on top of the gg rasterizer.
package raster

import (
	"fmt"
	"io"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/samirrijal/waymap/internal/core/domain"
)

var (
	fontOnce   sync.Once
	fontSource *text.FontSource
	fontErr    error
)

func labelFont() (*text.FontSource, error) {
	fontOnce.Do(func() {
		fontSource, fontErr = text.NewFontSource(goregular.TTF)
	})
	return fontSource, fontErr
}

// Canvas is a ports.RasterCanvas backed by a gg.Context.
type Canvas struct {
	dc         *gg.Context
	background gg.RGBA
	faces      map[float64]text.Face
}

// NewCanvas creates a width x height canvas cleared to background.
func NewCanvas(width, height int, background gg.RGBA) (*Canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("canvas size must be positive, got %dx%d", width, height)
	}
	c := &Canvas{
		dc:         gg.NewContext(width, height),
		background: background,
		faces:      make(map[float64]text.Face),
	}
	c.Clear()
	return c, nil
}

// NewTileCanvas creates a white canvas the size of one tile of grid.
func NewTileCanvas(grid domain.TileGrid) (*Canvas, error) {
	return NewCanvas(grid.CanvasWidth, grid.CanvasHeight, gg.White)
}

// Width returns the canvas width in pixels.
func (c *Canvas) Width() int { return c.dc.Width() }

// Height returns the canvas height in pixels.
func (c *Canvas) Height() int { return c.dc.Height() }

// Clear wipes the whole canvas.
func (c *Canvas) Clear() {
	c.dc.ClearPath()
	c.dc.ClearWithColor(c.background)
}

// StrokeSegments strokes every segment as one path in style.
func (c *Canvas) StrokeSegments(style domain.StrokeStyle, segments []domain.Segment) error {
	if len(segments) == 0 {
		return nil
	}
	c.dc.ClearPath()
	c.dc.SetColor(style.Color)
	c.dc.SetLineWidth(style.Width)
	for _, s := range segments {
		c.dc.MoveTo(s.X1, s.Y1)
		c.dc.LineTo(s.X2, s.Y2)
	}
	err := c.dc.Stroke()
	c.dc.ClearPath()
	return err
}

func (c *Canvas) face(size float64) (text.Face, error) {
	if f, ok := c.faces[size]; ok {
		return f, nil
	}
	src, err := labelFont()
	if err != nil {
		return nil, fmt.Errorf("load label font: %w", err)
	}
	f := src.Face(size)
	c.faces[size] = f
	return f, nil
}

// DrawLabel writes label.Text with its baseline centred on (X, Y), rotated
// by label.Angle about that point.
func (c *Canvas) DrawLabel(label domain.Label) error {
	if label.Text == "" {
		return nil
	}
	face, err := c.face(label.FontSize)
	if err != nil {
		return err
	}

	c.dc.Push()
	defer c.dc.Pop()
	c.dc.SetFont(face)
	c.dc.SetColor(label.Color)
	c.dc.Translate(label.X, label.Y)
	c.dc.Rotate(label.Angle)
	c.dc.DrawStringAnchored(label.Text, 0, 0, 0.5, 0)
	return nil
}

// EncodePNG writes the canvas as a PNG image.
func (c *Canvas) EncodePNG(w io.Writer) error {
	return c.dc.EncodePNG(w)
}

// Close releases the canvas' resources.
func (c *Canvas) Close() error {
	return c.dc.Close()
}
