package providers

import (
	"time"

	"feedsync/internal/models"
	"feedsync/internal/structures"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits(feed string)
	IncCacheMisses(feed string)
	ObserveFetchDuration(feed string, duration time.Duration)
	IncFetchErrors(feed string, kind string)
	IncStreamEvents(kind string)
	AddDuplicatesSuppressed(feed string, count int)
	AddGroupsUpserted(count int)
	AddGroupsPruned(count int)
	ObservePersistenceDuration(duration time.Duration)
}

type MetricsProvider struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	cacheHits           *prometheus.CounterVec
	cacheMisses         *prometheus.CounterVec
	fetchDuration       *prometheus.HistogramVec
	fetchErrors         *prometheus.CounterVec
	streamEvents        *prometheus.CounterVec
	duplicates          *prometheus.CounterVec
	groupsUpserted      prometheus.Counter
	groupsPruned        prometheus.Counter
	persistenceDuration prometheus.Histogram
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits(feed string) {
	m.cacheHits.WithLabelValues(feed).Inc()
}

func (m *MetricsProvider) IncCacheMisses(feed string) {
	m.cacheMisses.WithLabelValues(feed).Inc()
}

func (m *MetricsProvider) ObserveFetchDuration(feed string, duration time.Duration) {
	m.fetchDuration.WithLabelValues(feed).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncFetchErrors(feed string, kind string) {
	m.fetchErrors.WithLabelValues(feed, kind).Inc()
}

func (m *MetricsProvider) IncStreamEvents(kind string) {
	m.streamEvents.WithLabelValues(kind).Inc()
}

func (m *MetricsProvider) AddDuplicatesSuppressed(feed string, count int) {
	if count <= 0 {
		return
	}
	m.duplicates.WithLabelValues(feed).Add(float64(count))
}

func (m *MetricsProvider) AddGroupsUpserted(count int) {
	m.groupsUpserted.Add(float64(count))
}

func (m *MetricsProvider) AddGroupsPruned(count int) {
	m.groupsPruned.Add(float64(count))
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config, dedup *models.DedupCache) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	m := &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "feedsync_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "feedsync_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "feedsync_cache_hits_total",
			Help: "Total number of page cache hits",
		}, []string{"feed"}),

		cacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "feedsync_cache_misses_total",
			Help: "Total number of page cache misses",
		}, []string{"feed"}),

		fetchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "feedsync_fetch_duration_seconds",
			Help:    "Duration of feed page fetches in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"feed"}),

		fetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "feedsync_fetch_errors_total",
			Help: "Total number of failed feed page fetches",
		}, []string{"feed", "kind"}),

		streamEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "feedsync_stream_events_total",
			Help: "Total number of live events applied",
		}, []string{"kind"}),

		duplicates: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "feedsync_duplicates_suppressed_total",
			Help: "Total number of reshares suppressed as duplicates",
		}, []string{"feed"}),

		groupsUpserted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "feedsync_notification_groups_upserted_total",
			Help: "Total number of notification groups written to the metrics store",
		}),

		groupsPruned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "feedsync_notification_groups_pruned_total",
			Help: "Total number of notification groups removed by retention",
		}),

		persistenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedsync_persistence_duration_seconds",
			Help:    "Duration of snapshot persistence in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "feedsync_dedup_cache_entries",
		Help: "Current number of entries in the reshare dedup cache",
	}, func() float64 {
		return float64(dedup.Len())
	})

	promauto.NewCounterFunc(prometheus.CounterOpts{
		Name: "feedsync_dedup_cache_evictions_total",
		Help: "Total number of reshare dedup cache evictions",
	}, func() float64 {
		return float64(dedup.Evictions())
	})

	return m
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits(_ string)                            {}
func (n *noopMetrics) IncCacheMisses(_ string)                          {}
func (n *noopMetrics) ObserveFetchDuration(_ string, _ time.Duration)   {}
func (n *noopMetrics) IncFetchErrors(_ string, _ string)                {}
func (n *noopMetrics) IncStreamEvents(_ string)                         {}
func (n *noopMetrics) AddDuplicatesSuppressed(_ string, _ int)          {}
func (n *noopMetrics) AddGroupsUpserted(_ int)                          {}
func (n *noopMetrics) AddGroupsPruned(_ int)                            {}
func (n *noopMetrics) ObservePersistenceDuration(_ time.Duration)       {}
