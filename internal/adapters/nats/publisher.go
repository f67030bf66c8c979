package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/waymap/internal/core/domain"
)

// Subjects carried by the WAYMAP streams.
const (
	SubjectWaysUpdated  = "waymap.ways.updated"
	SubjectTilePrefix   = "waymap.tiles.rendered."
	SubjectTileRendered = SubjectTilePrefix + ">"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Ensure streams exist
	streams := []nats.StreamConfig{
		{
			Name:      "WAYMAP_DATA",
			Subjects:  []string{SubjectWaysUpdated},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "WAYMAP_TILES",
			Subjects:  []string{SubjectTileRendered},
			Retention: nats.LimitsPolicy,
			MaxAge:    1 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishWaysUpdated announces freshly ingested way data.
func (p *Publisher) PublishWaysUpdated(ctx context.Context, event *domain.WaysUpdated) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectWaysUpdated, data, nats.Context(ctx))
	return err
}

// PublishTileRendered announces a tile image on waymap.tiles.rendered.<x>.<y>.
func (p *Publisher) PublishTileRendered(ctx context.Context, event *domain.TileRendered) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(TileSubject(event.Tile), data, nats.Context(ctx))
	return err
}

// TileSubject returns the subject a tile's render events are published on.
// Dots inside fractional coordinates would split tokens, so they become '_'.
func TileSubject(t domain.TileCoordinate) string {
	return SubjectTilePrefix + subjectToken(t.X) + "." + subjectToken(t.Y)
}

func subjectToken(f float64) string {
	s := []byte(strconv.FormatFloat(f, 'f', -1, 64))
	for i, c := range s {
		if c == '.' {
			s[i] = '_'
		}
	}
	return string(s)
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return connect(url)
}

func connect(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("waymap"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
