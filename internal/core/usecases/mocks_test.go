package usecases_test

import (
	"context"
	"io"
	"strconv"
	"sync"

	"github.com/samirrijal/waymap/internal/core/domain"
)

// --- Mock WaySource ---

type mockWaySource struct {
	waysFn func(ctx context.Context, box domain.GeoBoundingBox) ([]domain.Way, error)

	mu    sync.Mutex
	boxes []domain.GeoBoundingBox
}

func (m *mockWaySource) Ways(ctx context.Context, box domain.GeoBoundingBox) ([]domain.Way, error) {
	m.mu.Lock()
	m.boxes = append(m.boxes, box)
	m.mu.Unlock()
	if m.waysFn != nil {
		return m.waysFn(ctx, box)
	}
	return nil, nil
}

func (m *mockWaySource) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.boxes)
}

// --- Recording canvas ---

type stroke struct {
	style    domain.StrokeStyle
	segments []domain.Segment
}

type recordingCanvas struct {
	mu      sync.Mutex
	clears  int
	strokes []stroke
	labels  []domain.Label
}

func (c *recordingCanvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clears++
	c.strokes = nil
	c.labels = nil
}

func (c *recordingCanvas) StrokeSegments(style domain.StrokeStyle, segments []domain.Segment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.strokes = append(c.strokes, stroke{style: style, segments: segments})
	return nil
}

func (c *recordingCanvas) DrawLabel(label domain.Label) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.labels = append(c.labels, label)
	return nil
}

func (c *recordingCanvas) EncodePNG(w io.Writer) error {
	_, err := w.Write([]byte("\x89PNG"))
	return err
}

// --- Mock WayRepository ---

type mockWayRepo struct {
	findInBoxFn func(ctx context.Context, box domain.GeoBoundingBox) ([]domain.Way, error)
	calls       int
}

func (m *mockWayRepo) FindInBox(ctx context.Context, box domain.GeoBoundingBox) ([]domain.Way, error) {
	m.calls++
	if m.findInBoxFn != nil {
		return m.findInBoxFn(ctx, box)
	}
	return nil, nil
}

func (m *mockWayRepo) UpsertBatch(ctx context.Context, nodes []domain.Node, ways []domain.WayRecord) error {
	return nil
}

func (m *mockWayRepo) Count(ctx context.Context) (int, int, error) { return 0, 0, nil }

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMockCache() *mockCache { return &mockCache{data: make(map[string][]byte)} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, io.EOF
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *mockCache) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := strconv.ParseInt(string(m.data[key]), 10, 64)
	n++
	m.data[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	rendered []*domain.TileRendered
	updated  []*domain.WaysUpdated
}

func (m *mockPublisher) PublishWaysUpdated(ctx context.Context, event *domain.WaysUpdated) error {
	m.updated = append(m.updated, event)
	return nil
}

func (m *mockPublisher) PublishTileRendered(ctx context.Context, event *domain.TileRendered) error {
	m.rendered = append(m.rendered, event)
	return nil
}

// --- Mock RouteGraph ---

type mockGraph struct {
	nodes   []domain.Node
	edges   []domain.Edge
	corners map[[2]string]domain.Node

	outgoingFn func(ctx context.Context, nodeID string) ([]domain.Edge, error)

	mu         sync.Mutex
	nodeLoads  int
	expanded   []string
	crossCalls int
}

func (m *mockGraph) RoutableNodes(ctx context.Context) ([]domain.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodeLoads++
	return m.nodes, nil
}

func (m *mockGraph) Outgoing(ctx context.Context, nodeID string) ([]domain.Edge, error) {
	m.mu.Lock()
	m.expanded = append(m.expanded, nodeID)
	m.mu.Unlock()
	if m.outgoingFn != nil {
		return m.outgoingFn(ctx, nodeID)
	}
	var out []domain.Edge
	for _, e := range m.edges {
		if e.From.ID == nodeID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockGraph) Intersection(ctx context.Context, street, cross string) (domain.Node, error) {
	m.mu.Lock()
	m.crossCalls++
	m.mu.Unlock()
	if n, ok := m.corners[[2]string{street, cross}]; ok {
		return n, nil
	}
	return domain.Node{}, domain.ErrNoIntersection
}
