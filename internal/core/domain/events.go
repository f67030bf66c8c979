package domain

import "time"

// WaysUpdated is published after new way data has been loaded.
type WaysUpdated struct {
	Time   time.Time      `json:"time"`
	Source string         `json:"source"`
	Nodes  int            `json:"nodes"`
	Ways   int            `json:"ways"`
	Extent GeoBoundingBox `json:"extent"`

	// Generation is the shared cache generation the publisher moved to,
	// or 0 when it had no shared cache.
	Generation uint64 `json:"generation,omitempty"`
}

// TileRendered is published when a tile image has been produced.
type TileRendered struct {
	Time  time.Time      `json:"time"`
	Tile  TileCoordinate `json:"tile"`
	Bytes int            `json:"bytes"`
	Ways  int            `json:"ways"`
}
