// Package observability holds the Prometheus collectors shared by the CRS
// packages and the HTTP layer, with small helpers to update them.
package observability

import (
	"errors"
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var enabled atomic.Bool

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
		[]string{"method", "route", "status"},
	)

	crsLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crs_lookups_total",
			Help: "CRS name resolutions by outcome (exact, uri, regex, adhoc, not_found).",
		},
		[]string{"outcome"},
	)

	poolRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transform_pool_requests_total",
			Help: "Transformation pool requests by outcome (hit, miss).",
		},
		[]string{"outcome"},
	)

	poolConstructions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transform_pool_constructions_total",
			Help: "Native transformer constructions by result.",
		},
		[]string{"result"},
	)

	poolEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "transform_pool_evictions_total",
			Help: "Transformers evicted from the pool past capacity.",
		},
	)

	poolSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "transform_pool_size",
			Help: "Idle transformers currently pooled.",
		},
	)

	transformFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transform_failures_total",
			Help: "Failed coordinate transformations by operation (point, geometry, bbox).",
		},
		[]string{"op"},
	)

	bboxReprojections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bbox_reprojections_total",
			Help: "Bounding box reprojections by outcome (identity, computed, cache_hit, error).",
		},
		[]string{"outcome"},
	)

	cacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_op_total",
			Help: "Result cache operations by op and result.",
		},
		[]string{"op", "result"},
	)

	redisOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Latency of redis operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op"},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal, httpRequestDurationSeconds,
		crsLookups, poolRequests, poolConstructions, poolEvictions, poolSize,
		transformFailures, bboxReprojections, cacheOps, redisOpDuration,
	}
}

// Init registers the collectors on reg and turns recording on or off.
// Registering on the same registry twice is harmless.
func Init(reg prometheus.Registerer, on bool) {
	enabled.Store(on)
	if reg == nil || !on {
		return
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
}

func Enabled() bool { return enabled.Load() }

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	if !enabled.Load() {
		return
	}
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveLookup(outcome string) {
	if !enabled.Load() {
		return
	}
	crsLookups.WithLabelValues(outcome).Inc()
}

func ObservePoolRequest(outcome string) {
	if !enabled.Load() {
		return
	}
	poolRequests.WithLabelValues(outcome).Inc()
}

func ObservePoolConstruction(result string) {
	if !enabled.Load() {
		return
	}
	poolConstructions.WithLabelValues(result).Inc()
}

func ObservePoolEviction() {
	if !enabled.Load() {
		return
	}
	poolEvictions.Inc()
}

func SetPoolSize(n int) {
	if !enabled.Load() {
		return
	}
	poolSize.Set(float64(n))
}

func IncTransformFailure(op string) {
	if !enabled.Load() {
		return
	}
	transformFailures.WithLabelValues(op).Inc()
}

func ObserveBBoxReprojection(outcome string) {
	if !enabled.Load() {
		return
	}
	bboxReprojections.WithLabelValues(outcome).Inc()
}

// ObserveCacheOp records one result cache operation. A nil error with
// found=false counts as a miss.
func ObserveCacheOp(op string, found bool, err error, durationSeconds float64) {
	if !enabled.Load() {
		return
	}
	result := "hit"
	switch {
	case err != nil:
		result = "error"
	case !found:
		result = "miss"
	}
	cacheOps.WithLabelValues(op, result).Inc()
	redisOpDuration.WithLabelValues(op).Observe(durationSeconds)
}
