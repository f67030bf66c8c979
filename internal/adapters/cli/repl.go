// Package cli drives a viewer session from a line-oriented console.
package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/samirrijal/waymap/internal/core/domain"
	"github.com/samirrijal/waymap/internal/core/ports"
	"github.com/samirrijal/waymap/internal/core/usecases"
)

// ErrInvalidCommand is reported for any line the REPL does not understand.
var ErrInvalidCommand = errors.New("invalid command")

// errQuit ends Run without an error.
var errQuit = errors.New("quit")

const helpText = `commands:
  lt-btn | rt-btn | up-btn | dn-btn   pan one tile (short forms: lt rt up dn)
  goto X Y                            jump to tile (X, Y)
  draw                                redraw the current tile
  where                               print the current tile and pan steps
  bounds                              print the geographic box of the current tile
  cache                               print the number of cached tiles and requests
  save PATH                           write the canvas as a PNG
  nearest LAT LON                     print the traversable node nearest to a point
  route LAT1 LON1 LAT2 LON2           print the shortest path between two points
  route "S1" "X1" "S2" "X2"           same, from the corner of S1 and X1 to that of S2 and X2
  help                                print this help
  quit                                leave`

// RoutePlanner answers nearest-node and route queries.
type RoutePlanner interface {
	Nearest(ctx context.Context, p domain.GeoPoint) (domain.Node, error)
	Route(ctx context.Context, from, to domain.GeoPoint) (domain.Route, error)
	RouteStreets(ctx context.Context, from, to domain.StreetCorner) (domain.Route, error)
}

// Option configures a REPL.
type Option func(*REPL)

// WithRoutes enables the nearest and route commands.
func WithRoutes(p RoutePlanner) Option {
	return func(r *REPL) { r.routes = p }
}

// REPL reads commands line by line and prints one response per command.
// Errors are printed as "ERROR: ..." and never end the loop.
type REPL struct {
	viewer *usecases.Viewer
	grid   domain.TileGrid
	canvas ports.RasterCanvas
	out    io.Writer
	routes RoutePlanner

	last    usecases.DrawResult
	hasDraw bool
}

// New creates a REPL over a viewer whose canvas is canvas.
func New(viewer *usecases.Viewer, grid domain.TileGrid, canvas ports.RasterCanvas, out io.Writer, opts ...Option) *REPL {
	r := &REPL{viewer: viewer, grid: grid, canvas: canvas, out: out}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run executes every line of in until EOF, "quit" or ctx is done.
func (r *REPL) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		msg, err := r.Execute(ctx, line)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(r.out, "ERROR: %v\n", err)
			continue
		}
		if msg != "" {
			fmt.Fprintln(r.out, msg)
		}
	}
	return scanner.Err()
}

// Execute runs one command and returns its output.
func (r *REPL) Execute(ctx context.Context, line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", ErrInvalidCommand
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	if dir, err := domain.ParseDirection(cmd); err == nil {
		if len(args) != 0 {
			return "", ErrInvalidCommand
		}
		return r.draw(r.viewer.Pan(ctx, dir))
	}

	switch cmd {
	case "goto":
		if len(args) != 2 {
			return "", fmt.Errorf("usage: goto X Y")
		}
		x, errX := strconv.ParseFloat(args[0], 64)
		y, errY := strconv.ParseFloat(args[1], 64)
		if errX != nil || errY != nil {
			return "", fmt.Errorf("tile coordinates must be numbers")
		}
		return r.draw(r.viewer.Goto(ctx, domain.TileCoordinate{X: x, Y: y}))

	case "draw":
		return r.draw(r.viewer.Redraw(ctx))

	case "where":
		pos := r.viewer.Position()
		return fmt.Sprintf("tile %s (seed %s, dx %d, dy %d)", pos.Tile().Key(), pos.Seed.Key(), pos.DX, pos.DY), nil

	case "bounds":
		b := r.grid.BoundingBox(r.viewer.Tile())
		return fmt.Sprintf("lat %.6f..%.6f lon %.6f..%.6f", b.MinLat, b.MaxLat, b.MinLon, b.MaxLon), nil

	case "cache":
		f := r.viewer.Fetcher()
		return fmt.Sprintf("%d tiles cached, %d requests", f.Cache().Len(), f.Requests()), nil

	case "save":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: save PATH")
		}
		return r.save(args[0])

	case "nearest":
		if len(args) != 2 {
			return "", fmt.Errorf("usage: nearest LAT LON")
		}
		p, err := parsePoint(args[0], args[1])
		if err != nil {
			return "", err
		}
		if r.routes == nil {
			return "", errNoRoutes
		}
		n, err := r.routes.Nearest(ctx, p)
		if err != nil {
			return "", err
		}
		return n.ID, nil

	case "route":
		return r.route(ctx, line)

	case "help":
		return helpText, nil

	case "quit", "exit":
		return "", errQuit
	}

	return "", ErrInvalidCommand
}

var (
	errNoRoutes   = errors.New("routing is not available")
	errRouteUsage = errors.New(`usage: route LAT1 LON1 LAT2 LON2 or route "STREET" "CROSS" "STREET" "CROSS"`)

	// routeArg matches a bare word or a double or single quoted phrase.
	routeArg = regexp.MustCompile(`[^\s"']+|"[^"]*"|'[^']*'`)
)

func parsePoint(lat, lon string) (domain.GeoPoint, error) {
	y, errLat := strconv.ParseFloat(lat, 64)
	x, errLon := strconv.ParseFloat(lon, 64)
	if errLat != nil || errLon != nil {
		return domain.GeoPoint{}, errors.New("latitude and longitude must be numbers")
	}
	return domain.GeoPoint{Lat: y, Lon: x}, nil
}

// route takes four coordinates or four quoted street names.
func (r *REPL) route(ctx context.Context, line string) (string, error) {
	args := routeArg.FindAllString(line, -1)[1:]
	if len(args) != 4 {
		return "", errRouteUsage
	}

	quoted := 0
	for i, a := range args {
		if len(a) >= 2 && (a[0] == '"' || a[0] == '\'') {
			args[i] = a[1 : len(a)-1]
			quoted++
		}
	}

	var (
		route domain.Route
		err   error
	)
	switch quoted {
	case 0:
		from, perr := parsePoint(args[0], args[1])
		if perr != nil {
			return "", perr
		}
		to, perr := parsePoint(args[2], args[3])
		if perr != nil {
			return "", perr
		}
		if r.routes == nil {
			return "", errNoRoutes
		}
		route, err = r.routes.Route(ctx, from, to)
	case 4:
		if r.routes == nil {
			return "", errNoRoutes
		}
		route, err = r.routes.RouteStreets(ctx,
			domain.StreetCorner{Street: args[0], Cross: args[1]},
			domain.StreetCorner{Street: args[2], Cross: args[3]})
	default:
		return "", errors.New("street names must all be quoted")
	}
	if err != nil {
		return "", err
	}
	return formatRoute(route), nil
}

// formatRoute prints one "from -> to : way" line per leg, or "start -/- end"
// when there is no path.
func formatRoute(route domain.Route) string {
	if !route.Found || len(route.Legs) == 0 {
		if route.Found {
			return route.Start.ID + " -> " + route.End.ID + " : (same node)"
		}
		return route.Start.ID + " -/- " + route.End.ID
	}
	lines := make([]string, len(route.Legs))
	for i, leg := range route.Legs {
		lines[i] = leg.From.ID + " -> " + leg.To.ID + " : " + leg.WayID
	}
	return strings.Join(lines, "\n")
}

func (r *REPL) draw(res usecases.DrawResult, err error) (string, error) {
	if err != nil {
		return "", err
	}
	r.last, r.hasDraw = res, true

	rep := res.Report
	msg := fmt.Sprintf("tile %s: %d roads, %d buildings", res.Tile.Key(), rep.Road, rep.Building)
	if len(rep.Labels) > 0 {
		msg += ", labels: " + strings.Join(rep.Labels, ", ")
	}
	return msg, nil
}

func (r *REPL) save(path string) (string, error) {
	if !r.hasDraw {
		return "", errors.New("nothing drawn yet")
	}

	// Encode first so a stale canvas never leaves a file behind.
	var buf bytes.Buffer
	err := r.viewer.Capture(r.last.Seq, func() error { return r.canvas.EncodePNG(&buf) })
	if errors.Is(err, usecases.ErrSuperseded) {
		return "", errors.New("the last draw did not finish, nothing to save")
	}
	if err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return "saved " + path, nil
}
