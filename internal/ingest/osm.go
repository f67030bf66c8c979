// Package ingest converts OpenStreetMap extracts into the node and way
// tables the map backend serves.
package ingest

import (
	"context"
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmxml"

	"github.com/samirrijal/waymap/internal/core/domain"
)

// Dataset is the result of reading an extract.
type Dataset struct {
	Nodes  []domain.Node
	Ways   []domain.WayRecord
	Extent orb.Bound
}

// Box returns the extent as a bounding box.
func (d *Dataset) Box() domain.GeoBoundingBox {
	return domain.BoundingBoxFromBound(d.Extent)
}

// Classify returns the stored type of an OSM way and whether it is kept.
// Highways keep their classification; buildings are stored untyped so the
// renderer draws them in the building pass.
func Classify(tags osm.Tags) (string, bool) {
	if hw := tags.Find("highway"); hw != "" {
		return hw, true
	}
	if b := tags.Find("building"); b != "" && b != "no" {
		return "", true
	}
	return "", false
}

// NodeID is the stored key of an OSM node.
func NodeID(id osm.NodeID) string { return fmt.Sprintf("/n/%d", id) }

// WayID is the stored key of one segment of an OSM way.
func WayID(id osm.WayID, segment int) string { return fmt.Sprintf("/w/%d.%d", id, segment) }

// ReadXML reads an .osm XML extract. Every kept way is split into one
// segment per pair of consecutive nodes; only nodes referenced by a kept
// segment are returned.
func ReadXML(ctx context.Context, r io.Reader) (*Dataset, error) {
	scanner := osmxml.New(ctx, r)
	defer scanner.Close()
	scanner.SkipRelations = true

	points := make(map[osm.NodeID]orb.Point)
	used := make(map[osm.NodeID]bool)
	ds := &Dataset{}

	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Node:
			points[o.ID] = orb.Point{o.Lon, o.Lat}

		case *osm.Way:
			typ, ok := Classify(o.Tags)
			if !ok {
				continue
			}
			name := o.Tags.Find("name")
			for i := 1; i < len(o.Nodes); i++ {
				from, to := o.Nodes[i-1].ID, o.Nodes[i].ID
				if _, ok := points[from]; !ok {
					continue
				}
				if _, ok := points[to]; !ok {
					continue
				}
				used[from], used[to] = true, true
				ds.Ways = append(ds.Ways, domain.WayRecord{
					ID:      WayID(o.ID, i-1),
					Name:    name,
					Type:    typ,
					StartID: NodeID(from),
					EndID:   NodeID(to),
				})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan osm: %w", err)
	}

	first := true
	for id := range used {
		p := points[id]
		ds.Nodes = append(ds.Nodes, domain.Node{ID: NodeID(id), Latitude: p.Lat(), Longitude: p.Lon()})
		if first {
			ds.Extent, first = p.Bound(), false
		} else {
			ds.Extent = ds.Extent.Extend(p)
		}
	}
	return ds, nil
}
