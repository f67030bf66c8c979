package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// TileCoordinate addresses a tile in an unbounded grid. Positions need not be
// integral: the default seed sits between grid lines.
type TileCoordinate struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Key returns the composite cache key "x:y".
func (t TileCoordinate) Key() string {
	return strconv.FormatFloat(t.X, 'f', -1, 64) + ":" + strconv.FormatFloat(t.Y, 'f', -1, 64)
}

func (t TileCoordinate) String() string { return "(" + t.Key() + ")" }

// Direction is a pan step on the tile grid.
type Direction int

const (
	Left Direction = iota
	Right
	Up
	Down
)

func (d Direction) String() string {
	switch d {
	case Left:
		return "lt-btn"
	case Right:
		return "rt-btn"
	case Up:
		return "up-btn"
	case Down:
		return "dn-btn"
	}
	return "Direction(" + strconv.Itoa(int(d)) + ")"
}

// Delta returns the grid step for the direction. Up moves north (Y+1).
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	case Up:
		return 0, 1
	case Down:
		return 0, -1
	}
	return 0, 0
}

// ParseDirection accepts the button ids (lt-btn, rt-btn, up-btn, dn-btn), their
// short forms and the English names.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lt-btn", "lt", "left":
		return Left, nil
	case "rt-btn", "rt", "right":
		return Right, nil
	case "up-btn", "up":
		return Up, nil
	case "dn-btn", "dn", "down":
		return Down, nil
	}
	return 0, fmt.Errorf("unknown pan direction %q", s)
}

// TilePosition is a seed tile plus whole pan steps. Steps are kept as integers
// so that opposite pans restore the seed exactly.
type TilePosition struct {
	Seed TileCoordinate `json:"seed"`
	DX   int            `json:"dx"`
	DY   int            `json:"dy"`
}

// Tile returns the coordinate the position currently addresses.
func (p TilePosition) Tile() TileCoordinate {
	return TileCoordinate{X: p.Seed.X + float64(p.DX), Y: p.Seed.Y + float64(p.DY)}
}

// Pan returns the position moved one step in d.
func (p TilePosition) Pan(d Direction) TilePosition {
	dx, dy := d.Delta()
	p.DX += dx
	p.DY += dy
	return p
}

// TileGrid holds the fixed constants that relate tiles, geography and canvas
// pixels, and implements the coordinate mapping.
type TileGrid struct {
	MapMinLat    float64        `json:"map_min_lat"`
	MapMinLon    float64        `json:"map_min_lon"`
	TileWidth    float64        `json:"tile_width"`
	TileHeight   float64        `json:"tile_height"`
	CanvasWidth  int            `json:"canvas_width"`
	CanvasHeight int            `json:"canvas_height"`
	Seed         TileCoordinate `json:"seed"`
}

// Defaults of the Rhode Island / Massachusetts map the viewer was built for.
const (
	InitMaxLat = 41.828147
	InitMinLat = 41.823142
	InitMaxLon = -71.392231
	InitMinLon = -71.407971

	MapMinLat = 40.1581762
	MapMaxLat = 42.0952906
	MapMinLon = -73.7485663
	MapMaxLon = -70.5590942

	CanvasWidth  = 700
	CanvasHeight = 400
)

// DefaultTileGrid derives the tile size from the initial bounding box.
func DefaultTileGrid() TileGrid {
	return TileGrid{
		MapMinLat:    MapMinLat,
		MapMinLon:    MapMinLon,
		TileWidth:    InitMaxLon - InitMinLon,
		TileHeight:   InitMaxLat - InitMinLat,
		CanvasWidth:  CanvasWidth,
		CanvasHeight: CanvasHeight,
		Seed:         TileCoordinate{X: 148.6, Y: 332.7},
	}
}

// Validate checks the grid can map coordinates.
func (g TileGrid) Validate() error {
	if g.TileWidth <= 0 || g.TileHeight <= 0 {
		return fmt.Errorf("tile size must be positive, got %gx%g", g.TileWidth, g.TileHeight)
	}
	if g.CanvasWidth <= 0 || g.CanvasHeight <= 0 {
		return fmt.Errorf("canvas size must be positive, got %dx%d", g.CanvasWidth, g.CanvasHeight)
	}
	return nil
}

// ToPixelX converts a longitude into a canvas x offset for the tile column.
func (g TileGrid) ToPixelX(longitude, tileX float64) float64 {
	return (longitude - (g.MapMinLon + g.TileWidth*tileX)) * (float64(g.CanvasWidth) / g.TileWidth)
}

// ToPixelY converts a latitude into a canvas y offset for the tile row.
// North is up, so the top edge of the tile is its max latitude.
func (g TileGrid) ToPixelY(latitude, tileY float64) float64 {
	return (g.MapMinLat + g.TileHeight*(tileY+1) - latitude) * (float64(g.CanvasHeight) / g.TileHeight)
}

// BoundingBox returns the geographic extent of a tile.
func (g TileGrid) BoundingBox(t TileCoordinate) GeoBoundingBox {
	return GeoBoundingBox{
		MaxLat: g.MapMinLat + g.TileHeight*(t.Y+1),
		MinLat: g.MapMinLat + g.TileHeight*t.Y,
		MaxLon: g.MapMinLon + g.TileWidth*(t.X+1),
		MinLon: g.MapMinLon + g.TileWidth*t.X,
	}
}

// Project maps a way onto the canvas of tile t.
func (g TileGrid) Project(w Way, t TileCoordinate) Segment {
	return Segment{
		X1: g.ToPixelX(w.StartLon, t.X),
		Y1: g.ToPixelY(w.StartLat, t.Y),
		X2: g.ToPixelX(w.EndLon, t.X),
		Y2: g.ToPixelY(w.EndLat, t.Y),
	}
}
