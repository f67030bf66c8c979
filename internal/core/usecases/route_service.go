package usecases

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/waymap/internal/core/domain"
	"github.com/samirrijal/waymap/internal/core/ports"
	"github.com/samirrijal/waymap/internal/pkg/geospatial"
	"github.com/samirrijal/waymap/internal/pkg/metrics"
	"github.com/samirrijal/waymap/internal/pkg/telemetry"
)

// nearestCandidates are taken from the planar index and re-ranked by
// great-circle distance.
const nearestCandidates = 8

// generationSource reports the current way data generation.
type generationSource interface {
	Generation(ctx context.Context) uint64
}

// RouteService finds the node nearest to a point and the shortest path
// between two nodes over the traversable ways.
type RouteService struct {
	graph       ports.RouteGraph
	generations generationSource

	mu       sync.Mutex
	index    *quadtree.Quadtree
	indexGen uint64
}

// NewRouteService creates a RouteService. generations may be nil, in which
// case the nearest-node index is built once and never refreshed.
func NewRouteService(graph ports.RouteGraph, generations generationSource) *RouteService {
	return &RouteService{graph: graph, generations: generations}
}

// nodePoint places a node in the index (X = lon, Y = lat).
type nodePoint domain.Node

func (n nodePoint) Point() orb.Point { return orb.Point{n.Longitude, n.Latitude} }

// Nearest returns the traversable node closest to p. Equidistant nodes are
// ordered by id.
func (s *RouteService) Nearest(ctx context.Context, p domain.GeoPoint) (domain.Node, error) {
	if err := domain.ValidatePoint(p); err != nil {
		return domain.Node{}, err
	}
	index, err := s.nearestIndex(ctx)
	if err != nil {
		return domain.Node{}, err
	}

	candidates := index.KNearest(nil, orb.Point{p.Lon, p.Lat}, nearestCandidates)
	if len(candidates) == 0 {
		return domain.Node{}, domain.ErrNoRoutableNodes
	}
	best := domain.Node(candidates[0].(nodePoint))
	bestDist := geospatial.Haversine(p.Lat, p.Lon, best.Latitude, best.Longitude)
	for _, c := range candidates[1:] {
		n := domain.Node(c.(nodePoint))
		d := geospatial.Haversine(p.Lat, p.Lon, n.Latitude, n.Longitude)
		if d < bestDist || (d == bestDist && n.ID < best.ID) {
			best, bestDist = n, d
		}
	}
	return best, nil
}

// nearestIndex returns the node index for the current data generation,
// rebuilding it after an ingest.
func (s *RouteService) nearestIndex(ctx context.Context) (*quadtree.Quadtree, error) {
	var gen uint64
	if s.generations != nil {
		gen = s.generations.Generation(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index != nil && s.indexGen == gen {
		return s.index, nil
	}

	nodes, err := s.graph.RoutableNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load routable nodes: %w", err)
	}
	if len(nodes) == 0 {
		return nil, domain.ErrNoRoutableNodes
	}

	bound := orb.Bound{Min: nodePoint(nodes[0]).Point(), Max: nodePoint(nodes[0]).Point()}
	for _, n := range nodes[1:] {
		bound = bound.Extend(nodePoint(n).Point())
	}
	index := quadtree.New(bound)
	for _, n := range nodes {
		if err := index.Add(nodePoint(n)); err != nil {
			return nil, fmt.Errorf("index node %s: %w", n.ID, err)
		}
	}

	s.index, s.indexGen = index, gen
	slog.InfoContext(ctx, "route index built", "nodes", len(nodes), "generation", gen)
	return index, nil
}

// Route snaps both points to their nearest nodes and returns the shortest
// path between them.
func (s *RouteService) Route(ctx context.Context, from, to domain.GeoPoint) (domain.Route, error) {
	start, err := s.Nearest(ctx, from)
	if err != nil {
		return domain.Route{}, err
	}
	end, err := s.Nearest(ctx, to)
	if err != nil {
		return domain.Route{}, err
	}
	return s.Between(ctx, start, end)
}

// RouteStreets routes from the intersection of from.Street and from.Cross to
// the intersection of to.Street and to.Cross.
func (s *RouteService) RouteStreets(ctx context.Context, from, to domain.StreetCorner) (domain.Route, error) {
	start, err := s.corner(ctx, from)
	if err != nil {
		return domain.Route{}, err
	}
	end, err := s.corner(ctx, to)
	if err != nil {
		return domain.Route{}, err
	}
	return s.Between(ctx, start, end)
}

func (s *RouteService) corner(ctx context.Context, c domain.StreetCorner) (domain.Node, error) {
	if c.Street == c.Cross {
		return domain.Node{}, domain.ErrSelfIntersection
	}
	n, err := s.graph.Intersection(ctx, c.Street, c.Cross)
	if err != nil {
		return domain.Node{}, fmt.Errorf("%s and %s: %w", c.Street, c.Cross, err)
	}
	return n, nil
}

// Between runs an A* search from start to end. Edge costs are great-circle
// lengths and the heuristic is the great-circle distance to end.
func (s *RouteService) Between(ctx context.Context, start, end domain.Node) (domain.Route, error) {
	ctx, span := tracer.Start(ctx, "RouteService.Between")
	defer span.End()
	span.SetAttributes(
		attribute.String(telemetry.AttrRouteFrom, start.ID),
		attribute.String(telemetry.AttrRouteTo, end.ID),
	)

	route := domain.Route{Start: start, End: end, Legs: []domain.RouteLeg{}}
	if start.ID == end.ID {
		route.Found = true
		metrics.RouteSearches.WithLabelValues("found").Inc()
		return route, nil
	}

	h := func(n domain.Node) float64 {
		return geospatial.Haversine(n.Latitude, n.Longitude, end.Latitude, end.Longitude)
	}

	cost := map[string]float64{start.ID: 0}
	via := map[string]domain.RouteLeg{}
	settled := map[string]bool{}
	open := &frontier{{node: start, f: h(start)}}

	for open.Len() > 0 {
		if err := ctx.Err(); err != nil {
			metrics.RouteSearches.WithLabelValues("error").Inc()
			return domain.Route{}, err
		}

		cur := heap.Pop(open).(frontierItem)
		if settled[cur.node.ID] {
			continue
		}
		settled[cur.node.ID] = true
		if cur.node.ID == end.ID {
			break
		}

		edges, err := s.graph.Outgoing(ctx, cur.node.ID)
		if err != nil {
			span.RecordError(err)
			metrics.RouteSearches.WithLabelValues("error").Inc()
			return domain.Route{}, fmt.Errorf("outgoing ways of %s: %w", cur.node.ID, err)
		}
		for _, e := range edges {
			if settled[e.To.ID] {
				continue
			}
			meters := geospatial.Haversine(e.From.Latitude, e.From.Longitude, e.To.Latitude, e.To.Longitude)
			g := cost[cur.node.ID] + meters
			if known, ok := cost[e.To.ID]; ok && known <= g {
				continue
			}
			cost[e.To.ID] = g
			via[e.To.ID] = domain.RouteLeg{Edge: e, Meters: meters}
			heap.Push(open, frontierItem{node: e.To, f: g + h(e.To)})
		}
	}
	metrics.RouteNodesExpanded.Observe(float64(len(settled)))

	if !settled[end.ID] {
		metrics.RouteSearches.WithLabelValues("unreachable").Inc()
		return route, nil
	}

	for id := end.ID; id != start.ID; {
		leg := via[id]
		route.Legs = append(route.Legs, leg)
		id = leg.From.ID
	}
	for i, j := 0, len(route.Legs)-1; i < j; i, j = i+1, j-1 {
		route.Legs[i], route.Legs[j] = route.Legs[j], route.Legs[i]
	}
	route.Found = true
	route.Meters = cost[end.ID]

	span.SetAttributes(attribute.Int(telemetry.AttrRouteLegs, len(route.Legs)))
	metrics.RouteSearches.WithLabelValues("found").Inc()
	return route, nil
}

type frontierItem struct {
	node domain.Node
	f    float64
}

// frontier is a min-heap of nodes by estimated total cost.
type frontier []frontierItem

func (f frontier) Len() int { return len(f) }
func (f frontier) Less(i, j int) bool {
	if f[i].f != f[j].f {
		return f[i].f < f[j].f
	}
	return f[i].node.ID < f[j].node.ID
}
func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x any) { *f = append(*f, x.(frontierItem)) }
func (f *frontier) Pop() any {
	old := *f
	item := old[len(old)-1]
	*f = old[:len(old)-1]
	return item
}
