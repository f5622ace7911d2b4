package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// The default registry panics on duplicate registration, so Init is guarded.
	once sync.Once

	// HTTPRequestsTotal counts finished requests.
	//
	// route is the matched pattern (e.g. /:token), never the raw path, so the
	// label set stays bounded.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency distributions.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPInflightRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// LinksShortened counts shorten calls by result: created, existing,
	// invalid_url, collision, error.
	LinksShortened = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortl_links_shortened_total",
			Help: "Shorten operations by result.",
		},
		[]string{"result"},
	)

	// TokenCollisions counts candidate tokens rejected by the store because
	// another link already owns them.
	TokenCollisions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shortl_token_collisions_total",
			Help: "Generated tokens that collided with an existing link.",
		},
	)

	// Redirects counts redirect lookups by result: found, not_found, error.
	Redirects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortl_redirects_total",
			Help: "Redirect lookups by result.",
		},
		[]string{"result"},
	)

	StoreErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortl_store_errors_total",
			Help: "Link store failures by operation.",
		},
		[]string{"op"},
	)

	// StaticCacheOps counts frontend asset cache lookups: hit, miss.
	StaticCacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortl_static_cache_ops_total",
			Help: "Static asset cache lookups by result.",
		},
		[]string{"result"},
	)

	// LinkEventsDropped counts events discarded because the collector was
	// full or closed.
	LinkEventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shortl_link_events_dropped_total",
			Help: "Link events dropped before reaching a consumer.",
		},
	)
)

func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDurationSeconds,
			HTTPInflightRequests,
			LinksShortened,
			TokenCollisions,
			Redirects,
			StoreErrors,
			StaticCacheOps,
			LinkEventsDropped,
		)
	})
}
