package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "waymap",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "waymap",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "waymap",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Map-specific metrics
	WaysServed = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "waymap",
		Subsystem: "ways",
		Name:      "per_query",
		Help:      "Number of ways returned per bounding box query",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	})

	TileFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "waymap",
		Subsystem: "tiles",
		Name:      "fetches_total",
		Help:      "Tile way fetches by outcome (hit, miss, error)",
	}, []string{"outcome"})

	TileRenderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "waymap",
		Subsystem: "tiles",
		Name:      "render_duration_seconds",
		Help:      "Time spent rendering a tile",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})

	DrawsSuperseded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "waymap",
		Subsystem: "tiles",
		Name:      "draws_superseded_total",
		Help:      "Draws discarded because a newer pan replaced them",
	})

	RouteSearches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "waymap",
		Subsystem: "routes",
		Name:      "searches_total",
		Help:      "Route searches by outcome (found, unreachable, error)",
	}, []string{"outcome"})

	RouteNodesExpanded = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "waymap",
		Subsystem: "routes",
		Name:      "nodes_expanded",
		Help:      "Nodes settled per route search",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "waymap",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket viewer sessions",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "waymap",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "waymap",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "waymap",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "waymap",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "waymap",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics updates database pool metrics from pool stats.
// Any value exposing the pgxpool.Stat accessors is accepted so this package
// does not depend on a driver.
func UpdateDBPoolMetrics(stat interface{}) {
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
