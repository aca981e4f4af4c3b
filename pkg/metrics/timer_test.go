package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTimer(t *testing.T) {
	timer := NewTimer()
	require.NotNil(t, timer)
	assert.False(t, timer.start.IsZero())
	assert.Less(t, time.Since(timer.start), time.Second)
}

func TestTimerDuration(t *testing.T) {
	timer := NewTimer()
	time.Sleep(20 * time.Millisecond)

	first := timer.Duration()
	assert.GreaterOrEqual(t, first, 20*time.Millisecond)

	time.Sleep(5 * time.Millisecond)
	assert.Greater(t, timer.Duration(), first)
}

func TestTimerObserveDuration(t *testing.T) {
	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_resolve_seconds",
		Help:    "Test histogram",
		Buckets: prometheus.DefBuckets,
	})

	NewTimer().ObserveDuration(histogram)

	assert.Equal(t, 1, testutil.CollectAndCount(histogram))
}

func TestTimerObserveDurationVec(t *testing.T) {
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "test_resolve_vec_seconds",
		Help:    "Test histogram vec",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})

	timer := NewTimer()
	timer.ObserveDurationVec(vec, "FULL")
	timer.ObserveDurationVec(vec, "BACKWARD_CLOSURE")

	assert.Equal(t, 2, testutil.CollectAndCount(vec))
}
