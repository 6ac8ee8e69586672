// Package telemetry exposes prometheus collectors for the cache pipeline
// and an HTTP middleware that records per-class request metrics.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts cache-served responses per request class.
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guidecache",
		Name:      "cache_hits_total",
		Help:      "Requests served from a cache partition, by request class.",
	}, []string{"class"})

	// CacheMisses counts requests that missed every cache tier.
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guidecache",
		Name:      "cache_misses_total",
		Help:      "Requests not servable from cache, by request class.",
	}, []string{"class"})

	// OriginFetches counts upstream fetches by outcome (ok, bad_status, error).
	OriginFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guidecache",
		Name:      "origin_fetches_total",
		Help:      "Origin fetch attempts by outcome.",
	}, []string{"outcome"})

	// SchedulerRuns counts admitted scheduling runs.
	SchedulerRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "guidecache",
		Name:      "scheduler_runs_total",
		Help:      "Admitted priority scheduling runs.",
	})

	// AssetsCached counts assets written into the cache by the scheduler.
	AssetsCached = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "guidecache",
		Name:      "scheduler_assets_cached_total",
		Help:      "Assets fetched and stored by scheduling runs.",
	})

	// Fallbacks counts degraded responses (offline pages, silence, placeholders).
	Fallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guidecache",
		Name:      "fallbacks_total",
		Help:      "Fallback responses served, by kind.",
	}, []string{"kind"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "guidecache",
		Name:      "http_request_duration_seconds",
		Help:      "Request latency by path class and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"class", "status"})
)

// Classifier maps a request path to a coarse class label for metrics.
// Injected by the gateway so telemetry stays free of routing knowledge.
type Classifier func(path string) string

// Middleware wraps next and records request durations labeled by class and
// status.
func Middleware(classify Classifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		srw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(srw, r)
		class := "other"
		if classify != nil {
			class = classify(r.URL.Path)
		}
		requestDuration.WithLabelValues(class, strconv.Itoa(srw.status)).
			Observe(time.Since(start).Seconds())
	})
}

// statusRecorder captures the response status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
