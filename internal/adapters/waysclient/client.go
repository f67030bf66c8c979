// Package waysclient fetches way segments from a remote ways backend.
package waysclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/samirrijal/waymap/internal/core/domain"
)

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each request. The default is 10s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithDial replaces the dialer, e.g. with an in-memory listener.
func WithDial(dial fasthttp.DialFunc) Option {
	return func(c *Client) { c.http.Dial = dial }
}

// WithPath overrides the ways endpoint path. The default is /ways.
func WithPath(path string) Option {
	return func(c *Client) { c.path = path }
}

// Client implements ports.WaySource over HTTP and forwards nearest-node and
// route queries to the same backend.
type Client struct {
	http    *fasthttp.Client
	baseURL string
	path    string
	timeout time.Duration
}

// New creates a Client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http: &fasthttp.Client{
			Name:                "waymap-viewer",
			MaxConnsPerHost:     16,
			MaxIdleConnDuration: 30 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		path:    "/ways",
		timeout: 10 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Ways posts the box as [maxLat, minLat, maxLon, minLon] and decodes the
// answer. Transport failures and error objects become *domain.FetchError.
func (c *Client) Ways(ctx context.Context, box domain.GeoBoundingBox) ([]domain.Way, error) {
	body, err := json.Marshal(box.Array())
	if err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + c.path)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	req.SetBody(body)

	if err := c.do(ctx, req, resp, "request ways"); err != nil {
		return nil, err
	}
	return decode(resp.StatusCode(), resp.Body())
}

// do sends req, bounded by the client timeout and the ctx deadline.
func (c *Client) do(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response, what string) error {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}
	if err := ctx.Err(); err != nil {
		return &domain.FetchError{Message: err.Error(), Err: err}
	}
	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		return &domain.FetchError{Message: fmt.Sprintf("%s: %v", what, err), Err: err}
	}
	return nil
}

// Nearest asks the backend for the traversable node closest to p.
func (c *Client) Nearest(ctx context.Context, p domain.GeoPoint) (domain.Node, error) {
	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	args.Add("lat", formatFloat(p.Lat))
	args.Add("lon", formatFloat(p.Lon))

	var node domain.Node
	err := c.getJSON(ctx, "/v1/nearest", args, &node)
	return node, err
}

// Route asks the backend for the shortest path between two points.
func (c *Client) Route(ctx context.Context, from, to domain.GeoPoint) (domain.Route, error) {
	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	args.Add("from_lat", formatFloat(from.Lat))
	args.Add("from_lon", formatFloat(from.Lon))
	args.Add("to_lat", formatFloat(to.Lat))
	args.Add("to_lon", formatFloat(to.Lon))

	var route domain.Route
	err := c.getJSON(ctx, "/v1/route", args, &route)
	return route, err
}

// RouteStreets asks the backend for the shortest path between two
// intersections.
func (c *Client) RouteStreets(ctx context.Context, from, to domain.StreetCorner) (domain.Route, error) {
	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	args.Add("from_street", from.Street)
	args.Add("from_cross", from.Cross)
	args.Add("to_street", to.Street)
	args.Add("to_cross", to.Cross)

	var route domain.Route
	err := c.getJSON(ctx, "/v1/route", args, &route)
	return route, err
}

// getJSON decodes a 200 answer into out. Any other status is read as an
// error object and returned as *domain.FetchError.
func (c *Client) getJSON(ctx context.Context, path string, args *fasthttp.Args, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path + "?" + args.String())
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")

	if err := c.do(ctx, req, resp, "request "+path); err != nil {
		return err
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		var obj errorObject
		if err := json.Unmarshal(resp.Body(), &obj); err == nil && obj.Error != nil && *obj.Error != "" {
			return &domain.FetchError{Message: *obj.Error}
		}
		return &domain.FetchError{Message: fmt.Sprintf("unexpected response (status %d)", resp.StatusCode())}
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return &domain.FetchError{Message: fmt.Sprintf("decode %s: %v", path, err), Err: err}
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// errorObject is the backend's failure shape. Error may be absent.
type errorObject struct {
	Error *string `json:"error"`
}

func decode(status int, body []byte) ([]domain.Way, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var ways []domain.Way
		if err := json.Unmarshal(trimmed, &ways); err != nil {
			return nil, &domain.FetchError{Message: fmt.Sprintf("decode ways: %v", err), Err: err}
		}
		if ways == nil {
			ways = []domain.Way{}
		}
		return ways, nil
	}

	var obj errorObject
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, &domain.FetchError{Message: fmt.Sprintf("unexpected response (status %d)", status), Err: err}
	}
	if obj.Error != nil && *obj.Error != "" {
		return nil, &domain.FetchError{Message: *obj.Error}
	}
	return nil, &domain.FetchError{Message: domain.DefaultFetchMessage}
}
