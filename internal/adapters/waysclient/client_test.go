package waysclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/samirrijal/waymap/internal/adapters/waysclient"
	"github.com/samirrijal/waymap/internal/core/domain"
)

// serve starts an in-memory backend answering every request with handler.
func serve(t *testing.T, handler fasthttp.RequestHandler) *waysclient.Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	return waysclient.New("http://ways.test", waysclient.WithDial(func(addr string) (net.Conn, error) {
		return ln.Dial()
	}))
}

var box = domain.GeoBoundingBox{MaxLat: 40.1631812, MinLat: 40.1581762, MaxLon: -73.7328263, MinLon: -73.7485663}

func TestClient_Ways_PostsBoxArray(t *testing.T) {
	var gotBody []float64
	var gotPath, gotMethod string
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		gotPath = string(ctx.Path())
		gotMethod = string(ctx.Method())
		_ = json.Unmarshal(ctx.PostBody(), &gotBody)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`[{"id":"w1","startLat":40.16,"startLon":-73.74,"endLat":40.161,"endLon":-73.739,"name":"Main St","type":"residential"},
			{"startLat":40.16,"startLon":-73.74,"endLat":40.161,"endLon":-73.739,"name":null,"type":null}]`)
	})

	ways, err := c.Ways(context.Background(), box)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/ways" || gotMethod != "POST" {
		t.Errorf("expected POST /ways, got %s %s", gotMethod, gotPath)
	}
	want := box.Array()
	if len(gotBody) != 4 || gotBody[0] != want[0] || gotBody[3] != want[3] {
		t.Errorf("unexpected body %v", gotBody)
	}
	if len(ways) != 2 || ways[0].Name != "Main St" || ways[0].StartLat != 40.16 {
		t.Fatalf("unexpected ways %+v", ways)
	}
	if ways[1].Type != "" || !ways[1].IsBuilding() {
		t.Errorf("null type should decode as a building edge, got %+v", ways[1])
	}
}

func TestClient_Ways_ErrorObject(t *testing.T) {
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.SetBodyString(`{"error":"Coordinates are input incorrectly"}`)
	})

	_, err := c.Ways(context.Background(), box)
	var fe *domain.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fe.Message != "Coordinates are input incorrectly" {
		t.Errorf("unexpected message %q", fe.Message)
	}
}

func TestClient_Ways_ErrorObjectWithoutMessage(t *testing.T) {
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString(`{"status":500}`)
	})

	_, err := c.Ways(context.Background(), box)
	var fe *domain.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fe.Error() != domain.DefaultFetchMessage {
		t.Errorf("expected default message, got %q", fe.Error())
	}
}

func TestClient_Ways_EmptyArray(t *testing.T) {
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString(`[]`)
	})

	ways, err := c.Ways(context.Background(), box)
	if err != nil {
		t.Fatal(err)
	}
	if ways == nil || len(ways) != 0 {
		t.Errorf("expected empty slice, got %#v", ways)
	}
}

func TestClient_Ways_TransportFailure(t *testing.T) {
	c := waysclient.New("http://ways.test", waysclient.WithDial(func(addr string) (net.Conn, error) {
		return nil, errors.New("connection refused")
	}))

	_, err := c.Ways(context.Background(), box)
	var fe *domain.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fe.Err == nil {
		t.Error("transport error should be wrapped")
	}
}

func TestClient_Ways_CancelledContext(t *testing.T) {
	c := serve(t, func(ctx *fasthttp.RequestCtx) { ctx.SetBodyString(`[]`) })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Ways(ctx, box); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestClient_Nearest(t *testing.T) {
	var gotURI string
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		gotURI = string(ctx.RequestURI())
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"id":"/n/4182.7140.201","latitude":41.8262,"longitude":-71.4012}`)
	})

	n, err := c.Nearest(context.Background(), domain.GeoPoint{Lat: 41.826, Lon: -71.401})
	if err != nil {
		t.Fatal(err)
	}
	if gotURI != "/v1/nearest?lat=41.826&lon=-71.401" {
		t.Errorf("unexpected request %s", gotURI)
	}
	if n.ID != "/n/4182.7140.201" || n.Latitude != 41.8262 {
		t.Errorf("unexpected node %+v", n)
	}
}

func TestClient_RouteStreets(t *testing.T) {
	var args map[string]string
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		args = map[string]string{}
		ctx.QueryArgs().VisitAll(func(k, v []byte) { args[string(k)] = string(v) })
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"start":{"id":"n1"},"end":{"id":"n3"},"found":true,"meters":222.4,
			"legs":[{"way_id":"w1","name":"Thayer St","from":{"id":"n1"},"to":{"id":"n2"},"meters":111.2},
			        {"way_id":"w2","name":"Thayer St","from":{"id":"n2"},"to":{"id":"n3"},"meters":111.2}]}`)
	})

	route, err := c.RouteStreets(context.Background(),
		domain.StreetCorner{Street: "Thayer St", Cross: "Angell St"},
		domain.StreetCorner{Street: "Thayer St", Cross: "Waterman St"})
	if err != nil {
		t.Fatal(err)
	}
	if args["from_street"] != "Thayer St" || args["to_cross"] != "Waterman St" {
		t.Errorf("unexpected query %v", args)
	}
	if !route.Found || len(route.Legs) != 2 || route.Legs[1].WayID != "w2" || route.Legs[1].To.ID != "n3" {
		t.Errorf("unexpected route %+v", route)
	}
}

func TestClient_Route_ErrorObject(t *testing.T) {
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		ctx.SetBodyString(`{"error":"no traversable nodes loaded","status":404,"code":"not_found"}`)
	})

	_, err := c.Route(context.Background(), domain.GeoPoint{Lat: 1, Lon: 1}, domain.GeoPoint{Lat: 2, Lon: 2})
	var fe *domain.FetchError
	if !errors.As(err, &fe) || fe.Message != "no traversable nodes loaded" {
		t.Fatalf("expected the backend message, got %v", err)
	}
}
