package providers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"time"
	"watchsync/internal/structures"
)

// RecordCounter reports how many history entries the local store holds.
type RecordCounter interface {
	Len() int
}

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	ObservePersistenceDuration(duration time.Duration)
	IncPushes(trigger string, outcome string)
	IncStaleDiscards()
	SetInFlight(n int)
	SetActiveSessions(n int)
}

type MetricsProvider struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
	persistenceDuration prometheus.Histogram
	pushesTotal         *prometheus.CounterVec
	staleDiscards       prometheus.Counter
	inFlight            prometheus.Gauge
	activeSessions      prometheus.Gauge
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) IncPushes(trigger string, outcome string) {
	m.pushesTotal.WithLabelValues(trigger, outcome).Inc()
}

func (m *MetricsProvider) IncStaleDiscards() {
	m.staleDiscards.Inc()
}

func (m *MetricsProvider) SetInFlight(n int) {
	m.inFlight.Set(float64(n))
}

func (m *MetricsProvider) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
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

func NewMetricsProvider(conf *structures.Config, store RecordCounter) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	m := &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "watchsync_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "watchsync_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watchsync_cache_hits_total",
			Help: "Total number of catalog cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watchsync_cache_misses_total",
			Help: "Total number of catalog cache misses",
		}),

		persistenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "watchsync_persistence_duration_seconds",
			Help:    "Duration of local store flushes in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		pushesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "watchsync_pushes_total",
			Help: "Progress pushes to the remote profile API",
		}, []string{"trigger", "outcome"}),

		staleDiscards: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watchsync_stale_discards_total",
			Help: "Push tasks or responses dropped as older than the committed version",
		}),

		inFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "watchsync_pushes_in_flight",
			Help: "Content keys with a push currently in flight",
		}),

		activeSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "watchsync_active_sessions",
			Help: "Playback sessions with an interval sync job",
		}),
	}

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "watchsync_history_entries",
		Help: "Entries held by the local progress store",
	}, func() float64 {
		return float64(store.Len())
	})

	return m
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) ObservePersistenceDuration(_ time.Duration)       {}
func (n *noopMetrics) IncPushes(_ string, _ string)                     {}
func (n *noopMetrics) IncStaleDiscards()                                {}
func (n *noopMetrics) SetInFlight(_ int)                                {}
func (n *noopMetrics) SetActiveSessions(_ int)                          {}
