package telemetry

// SLI metric names used for instrumentation.
const (
	// Latency
	MetricAPILatencyP50 = "api.latency.p50"
	MetricAPILatencyP95 = "api.latency.p95"
	MetricAPILatencyP99 = "api.latency.p99"

	// Throughput
	MetricRequestsPerSec = "api.requests_per_second"

	// Tiles
	MetricTileRenderLatency = "tiles.render_latency"
	MetricTileCacheHitRatio = "tiles.cache_hit_ratio"

	// Data freshness
	MetricWayDataAge = "ways.data_age_seconds"
)

// Span attribute keys shared by the services.
const (
	AttrTile      = "waymap.tile"
	AttrBBox      = "waymap.bbox"
	AttrWays      = "waymap.ways"
	AttrCacheHit  = "waymap.cache_hit"
	AttrRouteFrom = "waymap.route.from"
	AttrRouteTo   = "waymap.route.to"
	AttrRouteLegs = "waymap.route.legs"
)
