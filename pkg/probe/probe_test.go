package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cuemby/burrow/pkg/registry"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSampler struct {
	sample Sample
	err    error
}

func (f *fixedSampler) Sample(ctx context.Context) (Sample, error) {
	return f.sample, f.err
}

func TestClassify(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		name   string
		sample Sample
		err    error
		want   types.ServerStatus
	}{
		{name: "idle", sample: Sample{CPUUsage: 0.1, MemoryUsage: 0.2}, want: types.ServerStatusNormal},
		{name: "cpu at threshold", sample: Sample{CPUUsage: 0.9, MemoryUsage: 0.2}, want: types.ServerStatusBusy},
		{name: "memory over threshold", sample: Sample{CPUUsage: 0.1, MemoryUsage: 0.95}, want: types.ServerStatusBusy},
		{name: "sampling failed", err: errors.New("no procfs"), want: types.ServerStatusAbnormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.sample, tt.err, th))
		})
	}
}

func TestSystemSampler(t *testing.T) {
	s, err := NewSystemSampler(50 * time.Millisecond).Sample(context.Background())
	if err != nil {
		t.Skipf("system load not readable here: %v", err)
	}
	assert.GreaterOrEqual(t, s.CPUUsage, 0.0)
	assert.LessOrEqual(t, s.CPUUsage, 1.0)
	assert.Greater(t, s.MemoryUsage, 0.0)
	assert.LessOrEqual(t, s.MemoryUsage, 1.0)
}

func TestReporterReport(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := registry.New()

	r := NewReporter(ReporterConfig{
		Address:    "127.0.0.1:5678",
		Groups:     []string{"etl"},
		Weight:     50,
		QueueUsage: func() float64 { return 0.25 },
		Clock:      clock,
	}, &fixedSampler{sample: Sample{CPUUsage: 0.4, MemoryUsage: 0.5}}, reg)

	md := r.Report(context.Background())
	assert.Equal(t, types.ServerStatusNormal, md.Status)

	got, ok := reg.Server("127.0.0.1:5678")
	require.True(t, ok)
	assert.Equal(t, 0.4, got.CPUUsage)
	assert.Equal(t, 0.25, got.TaskThreadPoolUsage)
	assert.Equal(t, 50, got.WorkerWeight)
	assert.Equal(t, clock.Now(), got.LastHeartbeat)
	assert.Equal(t, []string{"127.0.0.1:5678"}, reg.GetNormalWorkerServerAddressByGroup("etl"))
}

func TestReporterMarksAbnormalOnSampleError(t *testing.T) {
	reg := registry.New()
	r := NewReporter(ReporterConfig{Address: "w:1", Groups: []string{"etl"}}, &fixedSampler{err: errors.New("boom")}, reg)

	r.Report(context.Background())

	got, ok := reg.Server("w:1")
	require.True(t, ok)
	assert.Equal(t, types.ServerStatusAbnormal, got.Status)
	assert.Empty(t, reg.GetNormalWorkerServerAddressByGroup("etl"))
}

func TestReporterRun(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := registry.New()
	sampler := &fixedSampler{sample: Sample{CPUUsage: 0.1}}
	r := NewReporter(ReporterConfig{Address: "w:1", Interval: time.Second, Clock: clock}, sampler, reg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	first, _ := reg.Server("w:1")
	require.NotNil(t, first)

	clock.Advance(time.Second)
	assert.Eventually(t, func() bool {
		md, _ := reg.Server("w:1")
		return md.LastHeartbeat.After(first.LastHeartbeat)
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
