package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Panier
	CartMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Total number of cart mutations by operation, store variant and outcome",
		},
		[]string{"operation", "variant", "outcome"},
	)

	CartConflictRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_cart_conflict_retries_total",
			Help: "Optimistic concurrency retries on the server cart",
		},
	)

	Reconciliations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_reconciliations_total",
			Help: "Session cart merges into the server cart",
		},
		[]string{"outcome"}, // "merged", "failed", "empty"
	)

	// Diffusion live
	Broadcasts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_broadcasts_total",
			Help: "Cart update events published or delivered",
		},
		[]string{"stage"}, // "published", "delivered", "dropped", "failed"
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_websocket_clients",
			Help: "Currently connected live cart clients",
		},
	)

	// Cache produits
	ProductCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_product_cache_hits_total",
			Help: "Product lookups served from Redis",
		},
	)

	ProductCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_product_cache_misses_total",
			Help: "Product lookups that went to the store",
		},
	)

	// HTTP
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_rate_limited_total",
			Help: "Requests rejected by a rate limiter",
		},
		[]string{"limiter"},
	)
)

// RecordCartMutation compte une mutation ; outcome = "ok", "noop" ou le Kind de l'erreur
func RecordCartMutation(operation, variant, outcome string) {
	CartMutations.WithLabelValues(operation, variant, outcome).Inc()
}

func ObserveHTTP(method, route, status string, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}
