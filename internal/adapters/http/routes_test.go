package http_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	handler "github.com/samirrijal/waymap/internal/adapters/http"
	"github.com/samirrijal/waymap/internal/core/domain"
	"github.com/samirrijal/waymap/internal/core/usecases"
)

type mockGraph struct {
	nodes   []domain.Node
	edges   []domain.Edge
	corners map[[2]string]domain.Node
}

func (m *mockGraph) RoutableNodes(ctx context.Context) ([]domain.Node, error) {
	return m.nodes, nil
}

func (m *mockGraph) Outgoing(ctx context.Context, nodeID string) ([]domain.Edge, error) {
	var out []domain.Edge
	for _, e := range m.edges {
		if e.From.ID == nodeID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockGraph) Intersection(ctx context.Context, street, cross string) (domain.Node, error) {
	if n, ok := m.corners[[2]string{street, cross}]; ok {
		return n, nil
	}
	return domain.Node{}, domain.ErrNoIntersection
}

// cornerGraph is Thayer St running north n1 -> n2 -> n3 with Angell St
// leaving east from n2 to n4.
func cornerGraph() *mockGraph {
	n1 := domain.Node{ID: "n1", Latitude: 41.825, Longitude: -71.40}
	n2 := domain.Node{ID: "n2", Latitude: 41.826, Longitude: -71.40}
	n3 := domain.Node{ID: "n3", Latitude: 41.827, Longitude: -71.40}
	n4 := domain.Node{ID: "n4", Latitude: 41.826, Longitude: -71.39}
	return &mockGraph{
		nodes: []domain.Node{n1, n2, n3, n4},
		edges: []domain.Edge{
			{WayID: "w1", Name: "Thayer St", From: n1, To: n2},
			{WayID: "w2", Name: "Thayer St", From: n2, To: n3},
			{WayID: "w3", Name: "Angell St", From: n2, To: n4},
		},
		corners: map[[2]string]domain.Node{
			{"Thayer St", "Angell St"}: n2,
			{"Angell St", "Thayer St"}: n2,
		},
	}
}

func withRoutes(g *mockGraph) func(*handler.Dependencies) {
	return func(d *handler.Dependencies) {
		d.Routes = usecases.NewRouteService(g, d.Ways)
	}
}

func TestNearest(t *testing.T) {
	app := setupApp(makeDeps(&mockWayRepo{}, withRoutes(cornerGraph())))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/nearest?lat=41.8261&lon=-71.3999", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var node domain.Node
	json.NewDecoder(resp.Body).Decode(&node)
	if node.ID != "n2" || node.Latitude != 41.826 {
		t.Errorf("expected n2, got %+v", node)
	}
}

func TestNearest_BadInput(t *testing.T) {
	app := setupApp(makeDeps(&mockWayRepo{}, withRoutes(cornerGraph())))

	for _, target := range []string{
		"/v1/nearest?lat=41.8",
		"/v1/nearest?lat=north&lon=-71.4",
		"/v1/nearest?lat=95&lon=-71.4",
	} {
		resp, _ := app.Test(httptest.NewRequest("GET", target, nil), -1)
		if resp.StatusCode != 400 {
			t.Errorf("%s: expected 400, got %d", target, resp.StatusCode)
		}
	}
}

func TestNearest_NoRouting(t *testing.T) {
	app := setupApp(makeDeps(&mockWayRepo{}))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/nearest?lat=41.8&lon=-71.4", nil), -1)
	if resp.StatusCode != 503 {
		t.Errorf("expected 503 without a route service, got %d", resp.StatusCode)
	}
}

func TestRoute_BetweenPoints(t *testing.T) {
	app := setupApp(makeDeps(&mockWayRepo{}, withRoutes(cornerGraph())))

	resp, _ := app.Test(httptest.NewRequest("GET",
		"/v1/route?from_lat=41.8249&from_lon=-71.4001&to_lat=41.8262&to_lon=-71.3899", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var route domain.Route
	json.NewDecoder(resp.Body).Decode(&route)
	if !route.Found || len(route.Legs) != 2 {
		t.Fatalf("expected a two leg route, got %+v", route)
	}
	if route.Legs[0].WayID != "w1" || route.Legs[1].WayID != "w3" {
		t.Errorf("expected w1 then w3, got %s then %s", route.Legs[0].WayID, route.Legs[1].WayID)
	}
	if route.Meters <= 0 {
		t.Errorf("expected a positive length, got %f", route.Meters)
	}
}

func TestRoute_BetweenIntersections(t *testing.T) {
	g := cornerGraph()
	g.corners[[2]string{"Thayer St", "Waterman St"}] = g.nodes[2]
	app := setupApp(makeDeps(&mockWayRepo{}, withRoutes(g)))

	resp, _ := app.Test(httptest.NewRequest("GET",
		"/v1/route?from_street=Thayer+St&from_cross=Angell+St&to_street=Thayer+St&to_cross=Waterman+St", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var route domain.Route
	json.NewDecoder(resp.Body).Decode(&route)
	if !route.Found || len(route.Legs) != 1 || route.Legs[0].WayID != "w2" {
		t.Errorf("expected the single leg w2, got %+v", route)
	}
}

func TestRoute_Unreachable(t *testing.T) {
	app := setupApp(makeDeps(&mockWayRepo{}, withRoutes(cornerGraph())))

	// ways are one-directional, nothing leads back south from n3
	resp, _ := app.Test(httptest.NewRequest("GET",
		"/v1/route?from_lat=41.827&from_lon=-71.40&to_lat=41.825&to_lon=-71.40", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var route domain.Route
	json.NewDecoder(resp.Body).Decode(&route)
	if route.Found || len(route.Legs) != 0 || route.Start.ID != "n3" || route.End.ID != "n1" {
		t.Errorf("expected an unfound n3 -> n1 route, got %+v", route)
	}
}

func TestRoute_Errors(t *testing.T) {
	app := setupApp(makeDeps(&mockWayRepo{}, withRoutes(cornerGraph())))

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"missing point", "/v1/route?from_lat=41.8&from_lon=-71.4", 400},
		{"missing cross street", "/v1/route?from_street=Thayer+St&to_street=Angell+St", 400},
		{"self intersection", "/v1/route?from_street=Thayer+St&from_cross=Thayer+St&to_street=Thayer+St&to_cross=Angell+St", 400},
		{"no intersection", "/v1/route?from_street=Thayer+St&from_cross=Hope+St&to_street=Thayer+St&to_cross=Angell+St", 404},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := app.Test(httptest.NewRequest("GET", tt.target, nil), -1)
			if resp.StatusCode != tt.want {
				t.Errorf("expected %d, got %d", tt.want, resp.StatusCode)
			}
			var apiErr handler.APIError
			json.NewDecoder(resp.Body).Decode(&apiErr)
			if apiErr.Error == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestGraphQL_Nearest(t *testing.T) {
	app := setupApp(makeDeps(&mockWayRepo{}, withRoutes(cornerGraph())))

	body := `{"query":"{ nearest(lat: 41.8269, lon: -71.4001) { id latitude } }"}`
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}

	var result struct {
		Data struct {
			Nearest struct {
				ID       string  `json:"id"`
				Latitude float64 `json:"latitude"`
			} `json:"nearest"`
		} `json:"data"`
		Errors []interface{} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors %v", result.Errors)
	}
	if result.Data.Nearest.ID != "n3" || result.Data.Nearest.Latitude != 41.827 {
		t.Errorf("expected n3, got %+v", result.Data.Nearest)
	}
}
