package domain

// Way is a single road or building edge between two nodes.
// An empty Type marks a building edge.
type Way struct {
	ID       string  `json:"id,omitempty"`
	StartLat float64 `json:"startLat"`
	StartLon float64 `json:"startLon"`
	EndLat   float64 `json:"endLat"`
	EndLon   float64 `json:"endLon"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
}

// IsRoad reports whether the way carries a road classification.
func (w Way) IsRoad() bool { return w.Type != "" }

// IsBuilding reports whether the way is an unclassified (building) edge.
func (w Way) IsBuilding() bool { return w.Type == "" }

// Node is a geographic vertex referenced by ways.
type Node struct {
	ID        string  `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// WayRecord is the stored form of a way: a segment between two node ids.
type WayRecord struct {
	ID      string
	Name    string
	Type    string
	StartID string
	EndID   string
}
