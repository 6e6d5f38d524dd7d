package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// namespace defines the global prefix for all metrics (e.g., cohort_...).
const namespace = "cohort"

var (
	// -------------------------------------------------------------------------
	// API (HTTP)
	// -------------------------------------------------------------------------

	// APIReqDuration measures the latency of HTTP requests.
	// Metric: cohort_api_http_handling_seconds
	APIReqDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "http_handling_seconds",
		Help:      "Time taken to handle HTTP requests",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	// APIReqTotal counts the total number of HTTP requests.
	// Metric: cohort_api_http_requests_total
	APIReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests",
	}, []string{"method", "path", "code"})

	// -------------------------------------------------------------------------
	// SEGMENT ENGINE
	// -------------------------------------------------------------------------

	// EngineResolutionDuration measures end-to-end rule tree resolution time.
	// Metric: cohort_engine_resolution_seconds
	EngineResolutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "resolution_seconds",
		Help:      "Time taken to resolve a segment rule tree into an id set",
		Buckets:   prometheus.DefBuckets,
	})

	// EngineMembershipRows counts subject ids fetched from the membership store.
	// High values per resolution indicate tags that should be split or retired.
	// Metric: cohort_engine_membership_rows_fetched_total
	EngineMembershipRows = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "membership_rows_fetched_total",
		Help:      "Total membership rows fetched while resolving tag conditions",
	})

	// EngineMembershipPages counts the paged reads against the membership store.
	// Metric: cohort_engine_membership_pages_total
	EngineMembershipPages = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "membership_pages_total",
		Help:      "Total membership pages fetched while resolving tag conditions",
	})

	// -------------------------------------------------------------------------
	// PREVIEW CACHE
	// -------------------------------------------------------------------------

	// PreviewCacheHits counts preview cache hits, labeled by tier (memory, redis).
	// Metric: cohort_preview_cache_hits_total
	PreviewCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "preview",
		Name:      "cache_hits_total",
		Help:      "Total preview cache hits",
	}, []string{"tier"})

	// PreviewCacheMisses counts preview cache misses, labeled by tier.
	// Metric: cohort_preview_cache_misses_total
	PreviewCacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "preview",
		Name:      "cache_misses_total",
		Help:      "Total preview cache misses",
	}, []string{"tier"})

	// -------------------------------------------------------------------------
	// REFRESHER (Worker)
	// -------------------------------------------------------------------------

	// RefresherCycleDuration measures how long one warm-up cycle takes.
	// Metric: cohort_refresher_cycle_duration_seconds
	RefresherCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "refresher",
		Name:      "cycle_duration_seconds",
		Help:      "Duration of one preview warm-up cycle across all segments",
		Buckets:   prometheus.DefBuckets,
	})

	// RefresherSegmentsTotal counts refreshed segments by outcome.
	// Metric: cohort_refresher_segments_total
	RefresherSegmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "refresher",
		Name:      "segments_total",
		Help:      "Total segment previews refreshed",
	}, []string{"status"}) // success, fail
)
