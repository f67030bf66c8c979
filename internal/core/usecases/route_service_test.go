package usecases_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/samirrijal/waymap/internal/core/domain"
	"github.com/samirrijal/waymap/internal/core/usecases"
)

func edge(id string, from, to domain.Node) domain.Edge {
	return domain.Edge{WayID: id, Name: "Street " + id, From: from, To: to}
}

// detourGraph joins a to d along a three-leg straight street and along a
// two-leg detour to the north. z hangs off a, far to the west.
func detourGraph() *mockGraph {
	a := domain.Node{ID: "a", Latitude: 41.80, Longitude: -71.40}
	c := domain.Node{ID: "c", Latitude: 41.80, Longitude: -71.39}
	e := domain.Node{ID: "e", Latitude: 41.80, Longitude: -71.38}
	d := domain.Node{ID: "d", Latitude: 41.80, Longitude: -71.37}
	b := domain.Node{ID: "b", Latitude: 41.83, Longitude: -71.385}
	z := domain.Node{ID: "z", Latitude: 41.80, Longitude: -71.50}
	return &mockGraph{
		nodes: []domain.Node{a, b, c, d, e, z},
		edges: []domain.Edge{
			edge("ab", a, b), edge("bd", b, d),
			edge("ac", a, c), edge("ce", c, e), edge("ed", e, d),
			edge("az", a, z),
		},
	}
}

func node(g *mockGraph, id string) domain.Node {
	for _, n := range g.nodes {
		if n.ID == id {
			return n
		}
	}
	panic("no node " + id)
}

func TestRouteService_Between_ShortestNotFewestLegs(t *testing.T) {
	g := detourGraph()
	svc := usecases.NewRouteService(g, nil)

	route, err := svc.Between(context.Background(), node(g, "a"), node(g, "d"))
	if err != nil {
		t.Fatal(err)
	}
	if !route.Found {
		t.Fatal("expected a route")
	}
	var ids []string
	var sum float64
	for _, leg := range route.Legs {
		ids = append(ids, leg.WayID)
		sum += leg.Meters
	}
	if !slices.Equal(ids, []string{"ac", "ce", "ed"}) {
		t.Errorf("expected ac, ce, ed, got %v", ids)
	}
	if route.Meters < 2400 || route.Meters > 2550 {
		t.Errorf("expected about 2.49km, got %fm", route.Meters)
	}
	if sum != route.Meters {
		t.Errorf("legs add up to %f, route says %f", sum, route.Meters)
	}

	// heading west to z costs more than the whole route
	if slices.Contains(g.expanded, "z") {
		t.Errorf("z should never be expanded, expanded %v", g.expanded)
	}
}

func TestRouteService_Between_Unreachable(t *testing.T) {
	g := detourGraph()
	svc := usecases.NewRouteService(g, nil)

	route, err := svc.Between(context.Background(), node(g, "d"), node(g, "a"))
	if err != nil {
		t.Fatal(err)
	}
	if route.Found || len(route.Legs) != 0 || route.Legs == nil {
		t.Errorf("expected an unfound route with empty legs, got %+v", route)
	}
	if route.Start.ID != "d" || route.End.ID != "a" {
		t.Errorf("expected endpoints d and a, got %s and %s", route.Start.ID, route.End.ID)
	}
}

func TestRouteService_Between_SameNode(t *testing.T) {
	g := detourGraph()
	svc := usecases.NewRouteService(g, nil)

	route, err := svc.Between(context.Background(), node(g, "c"), node(g, "c"))
	if err != nil {
		t.Fatal(err)
	}
	if !route.Found || len(route.Legs) != 0 || route.Meters != 0 {
		t.Errorf("expected an empty found route, got %+v", route)
	}
	if len(g.expanded) != 0 {
		t.Errorf("nothing should be expanded, got %v", g.expanded)
	}
}

func TestRouteService_Between_StoreError(t *testing.T) {
	g := detourGraph()
	g.outgoingFn = func(ctx context.Context, nodeID string) ([]domain.Edge, error) {
		return nil, errors.New("database is locked")
	}
	svc := usecases.NewRouteService(g, nil)

	if _, err := svc.Between(context.Background(), node(g, "a"), node(g, "d")); err == nil {
		t.Fatal("expected the store error")
	}
}

func TestRouteService_Between_Cancelled(t *testing.T) {
	g := detourGraph()
	svc := usecases.NewRouteService(g, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Between(ctx, node(g, "a"), node(g, "d")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRouteService_Nearest(t *testing.T) {
	g := detourGraph()
	svc := usecases.NewRouteService(g, nil)
	ctx := context.Background()

	n, err := svc.Nearest(ctx, domain.GeoPoint{Lat: 41.8301, Lon: -71.3852})
	if err != nil {
		t.Fatal(err)
	}
	if n.ID != "b" {
		t.Errorf("expected b, got %s", n.ID)
	}

	n, err = svc.Nearest(ctx, domain.GeoPoint{Lat: 41.7, Lon: -71.60})
	if err != nil {
		t.Fatal(err)
	}
	if n.ID != "z" {
		t.Errorf("expected z for a point far to the southwest, got %s", n.ID)
	}

	if g.nodeLoads != 1 {
		t.Errorf("expected the node index to be built once, got %d loads", g.nodeLoads)
	}
}

func TestRouteService_Nearest_TieGoesToLowestID(t *testing.T) {
	g := &mockGraph{nodes: []domain.Node{
		{ID: "east", Latitude: 0, Longitude: 0.01},
		{ID: "west", Latitude: 0, Longitude: -0.01},
	}}
	svc := usecases.NewRouteService(g, nil)

	n, err := svc.Nearest(context.Background(), domain.GeoPoint{})
	if err != nil {
		t.Fatal(err)
	}
	if n.ID != "east" {
		t.Errorf("expected east, got %s", n.ID)
	}
}

func TestRouteService_Nearest_Errors(t *testing.T) {
	ctx := context.Background()

	svc := usecases.NewRouteService(&mockGraph{}, nil)
	if _, err := svc.Nearest(ctx, domain.GeoPoint{Lat: 41.8, Lon: -71.4}); !errors.Is(err, domain.ErrNoRoutableNodes) {
		t.Errorf("expected ErrNoRoutableNodes on an empty store, got %v", err)
	}

	g := detourGraph()
	svc = usecases.NewRouteService(g, nil)
	if _, err := svc.Nearest(ctx, domain.GeoPoint{Lat: 91, Lon: 0}); !errors.Is(err, domain.ErrInvalidPoint) {
		t.Errorf("expected ErrInvalidPoint, got %v", err)
	}
	if g.nodeLoads != 0 {
		t.Error("an invalid point should not load the index")
	}
}

func TestRouteService_Nearest_RebuiltAfterIngest(t *testing.T) {
	g := &mockGraph{nodes: []domain.Node{{ID: "old", Latitude: 41.80, Longitude: -71.40}}}
	ways := usecases.NewWayService(&mockWayRepo{}, newMockCache())
	svc := usecases.NewRouteService(g, ways)
	ctx := context.Background()

	n, err := svc.Nearest(ctx, domain.GeoPoint{Lat: 41.81, Lon: -71.41})
	if err != nil || n.ID != "old" {
		t.Fatalf("expected old, got %v %v", n, err)
	}

	g.nodes = append(g.nodes, domain.Node{ID: "new", Latitude: 41.81, Longitude: -71.41})
	n, _ = svc.Nearest(ctx, domain.GeoPoint{Lat: 41.81, Lon: -71.41})
	if n.ID != "old" {
		t.Errorf("index should be reused within a generation, got %s", n.ID)
	}

	if _, err := ways.Invalidate(ctx); err != nil {
		t.Fatal(err)
	}
	n, _ = svc.Nearest(ctx, domain.GeoPoint{Lat: 41.81, Lon: -71.41})
	if n.ID != "new" {
		t.Errorf("expected the rebuilt index to find new, got %s", n.ID)
	}
	if g.nodeLoads != 2 {
		t.Errorf("expected 2 index builds, got %d", g.nodeLoads)
	}
}

func TestRouteService_Route_SnapsToNearest(t *testing.T) {
	g := detourGraph()
	svc := usecases.NewRouteService(g, nil)

	route, err := svc.Route(context.Background(),
		domain.GeoPoint{Lat: 41.8001, Lon: -71.4001},
		domain.GeoPoint{Lat: 41.7999, Lon: -71.3799})
	if err != nil {
		t.Fatal(err)
	}
	if route.Start.ID != "a" || route.End.ID != "e" || len(route.Legs) != 2 {
		t.Errorf("expected a -> c -> e, got %+v", route)
	}
}

func TestRouteService_RouteStreets(t *testing.T) {
	g := detourGraph()
	g.corners = map[[2]string]domain.Node{
		{"Main St", "First St"}: node(g, "a"),
		{"Main St", "Fourth St"}: node(g, "d"),
	}
	svc := usecases.NewRouteService(g, nil)
	ctx := context.Background()

	route, err := svc.RouteStreets(ctx,
		domain.StreetCorner{Street: "Main St", Cross: "First St"},
		domain.StreetCorner{Street: "Main St", Cross: "Fourth St"})
	if err != nil {
		t.Fatal(err)
	}
	if !route.Found || len(route.Legs) != 3 {
		t.Errorf("expected the three leg route, got %+v", route)
	}

	_, err = svc.RouteStreets(ctx,
		domain.StreetCorner{Street: "Main St", Cross: "Main St"},
		domain.StreetCorner{Street: "Main St", Cross: "Fourth St"})
	if !errors.Is(err, domain.ErrSelfIntersection) {
		t.Errorf("expected ErrSelfIntersection, got %v", err)
	}

	_, err = svc.RouteStreets(ctx,
		domain.StreetCorner{Street: "Main St", Cross: "First St"},
		domain.StreetCorner{Street: "Main St", Cross: "Elm St"})
	if !errors.Is(err, domain.ErrNoIntersection) {
		t.Errorf("expected ErrNoIntersection, got %v", err)
	}
}
