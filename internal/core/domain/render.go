package domain

import "image/color"

// Pass is one of the four drawing passes over a tile's ways.
type Pass int

const (
	PassOutline Pass = iota
	PassRoad
	PassBuilding
	PassLabel
)

// Passes lists every pass in paint order.
var Passes = [...]Pass{PassOutline, PassRoad, PassBuilding, PassLabel}

func (p Pass) String() string {
	switch p {
	case PassOutline:
		return "outline"
	case PassRoad:
		return "road"
	case PassBuilding:
		return "building"
	case PassLabel:
		return "label"
	}
	return "unknown"
}

// Segment is a line in canvas pixel coordinates.
type Segment struct {
	X1, Y1, X2, Y2 float64
}

// StrokeStyle describes how a pass strokes its segments.
type StrokeStyle struct {
	Color color.NRGBA
	Width float64
}

// Label is a piece of rotated text anchored at (X, Y), centred horizontally.
type Label struct {
	Text     string
	X, Y     float64
	Angle    float64 // radians, canvas orientation (y grows downward)
	FontSize float64
	Color    color.NRGBA
}

// Theme carries the styles of every pass.
type Theme struct {
	Outline   StrokeStyle
	Road      StrokeStyle
	Building  StrokeStyle
	LabelSize float64
	LabelInk  color.NRGBA
}

// DefaultTheme is the two-tone grey road look with green building edges.
func DefaultTheme() Theme {
	return Theme{
		Outline:   StrokeStyle{Color: color.NRGBA{R: 103, G: 103, B: 103, A: 199}, Width: 3},
		Road:      StrokeStyle{Color: color.NRGBA{R: 0xc5, G: 0xc5, B: 0xc5, A: 0xff}, Width: 2},
		Building:  StrokeStyle{Color: color.NRGBA{R: 0xc2, G: 0xe5, B: 0xc0, A: 0xff}, Width: 2},
		LabelSize: 10,
		LabelInk:  color.NRGBA{A: 0xff},
	}
}

// DrawReport summarises one render of a tile.
type DrawReport struct {
	Tile      TileCoordinate `json:"tile"`
	Outline   int            `json:"outline"`
	Road      int            `json:"road"`
	Building  int            `json:"building"`
	Labels    []string       `json:"labels"`
	WaysDrawn int            `json:"ways"`
}

// TileInfo describes a tile for API consumers.
type TileInfo struct {
	Tile         TileCoordinate `json:"tile"`
	Key          string         `json:"key"`
	Bounds       GeoBoundingBox `json:"bounds"`
	Center       GeoPoint       `json:"center"`
	WidthMeters  float64        `json:"width_meters"`
	HeightMeters float64        `json:"height_meters"`
	CanvasWidth  int            `json:"canvas_width"`
	CanvasHeight int            `json:"canvas_height"`
}
