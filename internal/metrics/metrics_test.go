package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Error("NETWORK", "LOW")
	m.Error("NETWORK", "LOW")
	m.Retry("SYSTEM")
	m.CacheHit()
	m.CacheMiss()
	m.CacheMiss()
	m.CacheEvicted(3)
	m.CacheEvicted(0)
	m.Sent("errors")
	m.SinkFailed("logs")
	m.ObserveHTTP("GET", "/api/complaints", 200, 15*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("NETWORK", "LOW")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RetriesTotal.WithLabelValues("SYSTEM")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequests.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheRequests.WithLabelValues("miss")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CacheEvictions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportsSent.WithLabelValues("errors")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SinkFailures.WithLabelValues("logs")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPDuration))
}

func TestMetrics_TrackDroppedLogs(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	var dropped int64 = 4
	m.TrackDroppedLogs(func() int64 { return dropped })
	n, err := testutil.GatherAndCount(reg, "portal_logs_dropped_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	dropped = 7
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == "portal_logs_dropped_total" {
			assert.Equal(t, 7.0, mf.GetMetric()[0].GetCounter().GetValue())
			return
		}
	}
	t.Fatal("portal_logs_dropped_total not gathered")
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Error("SYSTEM", "HIGH")
		m.Retry("SYSTEM")
		m.CacheHit()
		m.CacheMiss()
		m.CacheEvicted(1)
		m.Sent("errors")
		m.SinkFailed("errors")
		m.ObserveHTTP("GET", "/", 500, time.Second)
		m.TrackDroppedLogs(func() int64 { return 0 })
	})
}
