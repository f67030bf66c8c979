package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/waymap/internal/adapters/nats"
	"github.com/samirrijal/waymap/internal/core/domain"
	"github.com/samirrijal/waymap/internal/core/ports"
	"github.com/samirrijal/waymap/internal/core/usecases"
	"github.com/samirrijal/waymap/internal/pkg/metrics"
)

// wsMessage is a viewer command sent by the client. A bare button id such as
// "lt-btn" is accepted as shorthand for a pan.
type wsMessage struct {
	Action    string  `json:"action"`    // "pan" | "goto" | "redraw"
	Direction string  `json:"direction"` // lt-btn | rt-btn | up-btn | dn-btn
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

// wsFrame is sent to the client after each draw or event.
type wsFrame struct {
	Type   string                 `json:"type"` // "draw" | "error" | "ways_updated"
	Tile   *domain.TileCoordinate `json:"tile,omitempty"`
	Report *domain.DrawReport     `json:"report,omitempty"`
	PNG    string                 `json:"png,omitempty"` // base64
	Error  string                 `json:"error,omitempty"`
	Event  json.RawMessage        `json:"event,omitempty"`
}

// parseCommand turns a client message into a viewer operation.
func parseCommand(raw []byte) (wsMessage, error) {
	text := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(text, "{") {
		if _, err := domain.ParseDirection(text); err != nil {
			return wsMessage{}, errors.New("invalid command")
		}
		return wsMessage{Action: "pan", Direction: text}, nil
	}

	var m wsMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return wsMessage{}, errors.New("invalid JSON")
	}
	switch m.Action {
	case "pan":
		if _, err := domain.ParseDirection(m.Direction); err != nil {
			return wsMessage{}, err
		}
	case "goto", "redraw":
	default:
		return wsMessage{}, errors.New("unknown action: " + m.Action)
	}
	return m, nil
}

// wsJob is a parsed command waiting for the session worker. Its context is
// cancelled as soon as a newer command arrives.
type wsJob struct {
	msg    wsMessage
	ctx    context.Context
	cancel context.CancelFunc
}

// ViewerSocketHandler runs one map viewer per connection. Commands are applied
// in arrival order by a single worker; each redraws the session canvas and the
// client receives the rendered PNG. A command that arrives while a draw is in
// flight supersedes it, and the superseded draw sends nothing. When NATS is
// available the client is also told when the way data is reloaded.
func ViewerSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		logger := slog.Default().With("remote", remoteAddr)
		logger.Info("ws viewer connected")
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		if deps.Ways == nil || deps.NewCanvas == nil {
			_ = writeJSON(wsFrame{Type: "error", Error: "viewer not available"})
			return
		}
		canvas, err := deps.NewCanvas()
		if err != nil {
			logger.Error("ws canvas", "error", err)
			_ = writeJSON(wsFrame{Type: "error", Error: "viewer not available"})
			return
		}
		if cl, ok := canvas.(interface{ Close() error }); ok {
			defer cl.Close()
		}

		fetcher := usecases.NewTileFetcher(deps.Grid, deps.Ways, usecases.NewTileCache())
		viewer := usecases.NewViewer(fetcher, usecases.NewRenderer(deps.Grid), canvas, deps.Grid.Seed)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if deps.NATS != nil {
			sub, err := deps.NATS.Subscribe(natsadapter.SubjectWaysUpdated, func(msg *nats.Msg) {
				_ = writeJSON(wsFrame{Type: "ways_updated", Event: json.RawMessage(msg.Data)})
			})
			if err != nil {
				logger.Warn("ws subscribe", "error", err)
			} else {
				defer sub.Unsubscribe()
			}
		}

		jobs := make(chan wsJob, 32)
		worker := make(chan struct{})
		go func() {
			defer close(worker)
			for job := range jobs {
				frame, ok := runJob(viewer, canvas, job)
				job.cancel()
				if ok {
					_ = writeJSON(frame)
				}
			}
		}()

		var pending context.CancelFunc
		submit := func(m wsMessage) {
			if pending != nil {
				pending()
			}
			jobCtx, jobCancel := context.WithCancel(ctx)
			pending = jobCancel
			jobs <- wsJob{msg: m, ctx: jobCtx, cancel: jobCancel}
		}
		defer func() {
			if pending != nil {
				pending()
			}
			close(jobs)
			<-worker
		}()

		// The first frame shows the seed tile.
		submit(wsMessage{Action: "redraw"})

		// Keep-alive ping
		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}
			m, err := parseCommand(raw)
			if err != nil {
				_ = writeJSON(wsFrame{Type: "error", Error: err.Error()})
				continue
			}
			submit(m)
		}

		logger.Info("ws viewer disconnected", "tile", viewer.Tile().Key(), "fetches", fetcher.Requests())
	}
}

// runJob applies one command and builds the frame to send. A job cancelled by
// a newer command yields no frame, even if its draw completed.
func runJob(v *usecases.Viewer, canvas ports.RasterCanvas, job wsJob) (wsFrame, bool) {
	res, err := runCommand(job.ctx, v, job.msg)
	if errors.Is(err, usecases.ErrSuperseded) {
		return wsFrame{}, false
	}
	if job.ctx.Err() != nil {
		metrics.DrawsSuperseded.Inc()
		return wsFrame{}, false
	}
	if err != nil {
		return wsFrame{Type: "error", Tile: &res.Tile, Error: err.Error()}, true
	}
	frame, err := captureFrame(v, canvas, res)
	if errors.Is(err, usecases.ErrSuperseded) {
		return wsFrame{}, false
	}
	if err != nil {
		return wsFrame{Type: "error", Tile: &res.Tile, Error: err.Error()}, true
	}
	return frame, true
}

func runCommand(ctx context.Context, v *usecases.Viewer, m wsMessage) (usecases.DrawResult, error) {
	switch m.Action {
	case "pan":
		dir, err := domain.ParseDirection(m.Direction)
		if err != nil {
			return usecases.DrawResult{Tile: v.Tile()}, err
		}
		return v.Pan(ctx, dir)
	case "goto":
		return v.Goto(ctx, domain.TileCoordinate{X: m.X, Y: m.Y})
	default:
		return v.Redraw(ctx)
	}
}

// captureFrame encodes the canvas for the draw described by res.
func captureFrame(v *usecases.Viewer, canvas ports.RasterCanvas, res usecases.DrawResult) (wsFrame, error) {
	var buf bytes.Buffer
	err := v.Capture(res.Seq, func() error { return canvas.EncodePNG(&buf) })
	if err != nil {
		return wsFrame{}, err
	}
	return wsFrame{
		Type:   "draw",
		Tile:   &res.Tile,
		Report: &res.Report,
		PNG:    base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}
