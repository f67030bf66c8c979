package domain

import (
	"errors"
	"math"
)

var (
	ErrInvalidPoint     = errors.New("latitude must be within ±90 and longitude within ±180")
	ErrNoRoutableNodes  = errors.New("no traversable nodes loaded")
	ErrNoIntersection   = errors.New("streets do not intersect or were not found")
	ErrSelfIntersection = errors.New("a street cannot intersect itself")
)

// Traversable reports whether ways of the given type can be routed along.
// Buildings (no type) and unclassified ways are not.
func Traversable(wayType string) bool {
	return wayType != "" && wayType != "unclassified"
}

// ValidatePoint rejects coordinates outside the WGS 84 range.
func ValidatePoint(p GeoPoint) error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.Abs(p.Lat) > 90 || math.Abs(p.Lon) > 180 {
		return ErrInvalidPoint
	}
	return nil
}

// StreetCorner names an intersection by two street names.
type StreetCorner struct {
	Street string `json:"street"`
	Cross  string `json:"cross"`
}

// Edge is a traversable way followed from its start node to its end node.
type Edge struct {
	WayID string `json:"way_id"`
	Name  string `json:"name"`
	From  Node   `json:"from"`
	To    Node   `json:"to"`
}

// RouteLeg is one edge of a route with its ground length.
type RouteLeg struct {
	Edge
	Meters float64 `json:"meters"`
}

// Route is the shortest path between two nodes. Found is false when End
// cannot be reached from Start; Legs is then empty.
type Route struct {
	Start  Node       `json:"start"`
	End    Node       `json:"end"`
	Found  bool       `json:"found"`
	Legs   []RouteLeg `json:"legs"`
	Meters float64    `json:"meters"`
}
