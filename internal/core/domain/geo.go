package domain

import (
	"fmt"

	"github.com/paulmach/orb"
)

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// GeoBoundingBox is the geographic rectangle covered by a tile or a query.
type GeoBoundingBox struct {
	MaxLat float64 `json:"max_lat"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MinLon float64 `json:"min_lon"`
}

// BoundingBoxFromArray decodes the wire form [maxLat, minLat, maxLon, minLon].
func BoundingBoxFromArray(coords []float64) (GeoBoundingBox, error) {
	if len(coords) != 4 {
		return GeoBoundingBox{}, fmt.Errorf("%w: expected 4 coordinates, got %d", ErrInvalidBoundingBox, len(coords))
	}
	box := GeoBoundingBox{MaxLat: coords[0], MinLat: coords[1], MaxLon: coords[2], MinLon: coords[3]}
	return box, box.Validate()
}

// BoundingBoxFromBound converts an orb bound (X = lon, Y = lat).
func BoundingBoxFromBound(b orb.Bound) GeoBoundingBox {
	return GeoBoundingBox{MaxLat: b.Max.Lat(), MinLat: b.Min.Lat(), MaxLon: b.Max.Lon(), MinLon: b.Min.Lon()}
}

// Array returns the wire form [maxLat, minLat, maxLon, minLon].
func (b GeoBoundingBox) Array() [4]float64 {
	return [4]float64{b.MaxLat, b.MinLat, b.MaxLon, b.MinLon}
}

// Validate enforces MaxLat > MinLat and MaxLon > MinLon.
func (b GeoBoundingBox) Validate() error {
	if b.MaxLat <= b.MinLat || b.MaxLon <= b.MinLon {
		return ErrInvalidBoundingBox
	}
	return nil
}

// Bound returns the box as an orb.Bound.
func (b GeoBoundingBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.MinLon, b.MinLat},
		Max: orb.Point{b.MaxLon, b.MaxLat},
	}
}

// Contains reports whether the point lies inside the box, edges included.
func (b GeoBoundingBox) Contains(lat, lon float64) bool {
	return b.Bound().Contains(orb.Point{lon, lat})
}

// Center returns the midpoint of the box.
func (b GeoBoundingBox) Center() GeoPoint {
	c := b.Bound().Center()
	return GeoPoint{Lat: c.Lat(), Lon: c.Lon()}
}

// CacheKey renders the box with enough precision to tell adjacent tiles apart.
func (b GeoBoundingBox) CacheKey() string {
	return fmt.Sprintf("%.7f:%.7f:%.7f:%.7f", b.MaxLat, b.MinLat, b.MaxLon, b.MinLon)
}
