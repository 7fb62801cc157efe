package credkit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsIncAndValue(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLogout)

	assert.EqualValues(t, 2, m.Value(MetricLoginSuccess))
	assert.EqualValues(t, 1, m.Value(MetricLogout))
	assert.EqualValues(t, 0, m.Value(MetricLoginFailure))
}

func TestMetricsDisabledIsNoOp(t *testing.T) {
	m := NewMetrics(MetricsConfig{})

	m.Inc(MetricLoginSuccess)
	m.Observe(MetricVerifyLatency, time.Millisecond)

	assert.EqualValues(t, 0, m.Value(MetricLoginSuccess))
	snap := m.Snapshot()
	assert.Empty(t, snap.Counters)
	assert.Empty(t, snap.Histograms)
}

func TestMetricsNilReceiverSafe(t *testing.T) {
	var m *Metrics

	m.Inc(MetricLoginSuccess)
	m.Observe(MetricVerifyLatency, time.Millisecond)
	assert.EqualValues(t, 0, m.Value(MetricLoginSuccess))
	assert.False(t, m.Enabled())
}

func TestMetricsHistogramBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	samples := []time.Duration{
		time.Millisecond,       // bucket 0
		8 * time.Millisecond,   // bucket 1
		30 * time.Millisecond,  // bucket 3
		400 * time.Millisecond, // bucket 6
		2 * time.Second,        // bucket 7
	}
	for _, d := range samples {
		m.Observe(MetricVerifyLatency, d)
	}

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricVerifyLatency]
	assert.Len(t, buckets, 8)
	assert.EqualValues(t, 1, buckets[0])
	assert.EqualValues(t, 1, buckets[1])
	assert.EqualValues(t, 0, buckets[2])
	assert.EqualValues(t, 1, buckets[3])
	assert.EqualValues(t, 1, buckets[6])
	assert.EqualValues(t, 1, buckets[7])
}

func TestMetricsSnapshotIsDetached(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricLoginSuccess)

	snap := m.Snapshot()
	m.Inc(MetricLoginSuccess)

	assert.EqualValues(t, 1, snap.Counters[MetricLoginSuccess])
	assert.EqualValues(t, 2, m.Value(MetricLoginSuccess))
}

func TestMetricsConcurrentIncrements(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 32
	const perWorker = 100
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricRefreshSuccess)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, workers*perWorker, m.Value(MetricRefreshSuccess))
}
