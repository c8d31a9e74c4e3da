package providers

import (
	"testing"
	"time"
	"watchsync/internal/structures"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type metricsTestStore struct{ n int }

func (m *metricsTestStore) Len() int { return m.n }

func useTestRegistry(t *testing.T) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	prevReg, prevGather := prometheus.DefaultRegisterer, prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = prevReg
		prometheus.DefaultGatherer = prevGather
	})
	return reg
}

func TestNoopMetrics_WhenDisabled(t *testing.T) {
	conf := &structures.Config{
		Metrics: structures.MetricsConfig{Enabled: false},
	}
	m := NewMetricsProvider(conf, &metricsTestStore{})
	_, ok := m.(*noopMetrics)
	assert.True(t, ok, "should return noopMetrics when disabled")

	m.IncRequestsTotal("/progress", 200)
	m.ObserveRequestDuration("/progress", time.Millisecond)
	m.IncCacheHits()
	m.IncCacheMisses()
	m.ObservePersistenceDuration(time.Millisecond)
	m.IncPushes("interval", "ok")
	m.IncStaleDiscards()
	m.SetInFlight(2)
	m.SetActiveSessions(1)
}

func TestMetricsProvider_WhenEnabled(t *testing.T) {
	useTestRegistry(t)

	conf := &structures.Config{
		Metrics: structures.MetricsConfig{Enabled: true},
	}
	m := NewMetricsProvider(conf, &metricsTestStore{})
	_, ok := m.(*MetricsProvider)
	assert.True(t, ok, "should return MetricsProvider when enabled")
}

func TestMetricsProvider_PushCounters(t *testing.T) {
	useTestRegistry(t)

	conf := &structures.Config{
		Metrics: structures.MetricsConfig{Enabled: true},
	}
	m := NewMetricsProvider(conf, &metricsTestStore{n: 3}).(*MetricsProvider)

	m.IncPushes("interval", "ok")
	m.IncPushes("interval", "ok")
	m.IncPushes("player", "error")
	m.IncStaleDiscards()
	m.SetInFlight(4)
	m.SetActiveSessions(2)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.pushesTotal.WithLabelValues("interval", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.pushesTotal.WithLabelValues("player", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.staleDiscards))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.inFlight))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.activeSessions))
}

func TestMetricsProvider_HistoryGauge(t *testing.T) {
	reg := useTestRegistry(t)

	conf := &structures.Config{
		Metrics: structures.MetricsConfig{Enabled: true},
	}
	NewMetricsProvider(conf, &metricsTestStore{n: 7})

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "watchsync_history_entries" {
			found = true
			assert.Equal(t, float64(7), f.GetMetric()[0].GetGauge().GetValue())
		}
	}
	assert.True(t, found)
}

func TestHttpStatusBucket(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{100, "1xx"},
		{200, "2xx"},
		{201, "2xx"},
		{301, "3xx"},
		{400, "4xx"},
		{404, "4xx"},
		{500, "5xx"},
		{503, "5xx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, httpStatusBucket(tt.code))
	}
}
