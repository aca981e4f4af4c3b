package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/burrow/pkg/types"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// Sample is one reading of local load, as ratios in [0, 1]
type Sample struct {
	CPUUsage    float64
	MemoryUsage float64
}

// Sampler reads the current load of the host
type Sampler interface {
	Sample(ctx context.Context) (Sample, error)
}

// SystemSampler reads CPU and memory usage from the operating system
type SystemSampler struct {
	// CPUWindow is how long CPU usage is measured over; zero compares
	// against the previous call
	CPUWindow time.Duration
}

// NewSystemSampler creates a sampler measuring CPU over window
func NewSystemSampler(window time.Duration) *SystemSampler {
	return &SystemSampler{CPUWindow: window}
}

func (s *SystemSampler) Sample(ctx context.Context) (Sample, error) {
	cpuPercent, err := cpu.PercentWithContext(ctx, s.CPUWindow, false)
	if err != nil {
		return Sample{}, fmt.Errorf("failed to read cpu usage: %w", err)
	}
	if len(cpuPercent) == 0 {
		return Sample{}, fmt.Errorf("failed to read cpu usage: no data")
	}

	memStat, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Sample{}, fmt.Errorf("failed to read memory usage: %w", err)
	}

	return Sample{
		CPUUsage:    cpuPercent[0] / 100,
		MemoryUsage: memStat.UsedPercent / 100,
	}, nil
}

// Thresholds at or above which a worker reports itself BUSY
type Thresholds struct {
	BusyCPU    float64 `yaml:"busyCPU"`
	BusyMemory float64 `yaml:"busyMemory"`
}

// DefaultThresholds returns the default BUSY limits
func DefaultThresholds() Thresholds {
	return Thresholds{BusyCPU: 0.9, BusyMemory: 0.9}
}

// Classify maps a sample to a server status. A failed sample is ABNORMAL.
func Classify(s Sample, err error, th Thresholds) types.ServerStatus {
	if err != nil {
		return types.ServerStatusAbnormal
	}
	if s.CPUUsage >= th.BusyCPU || s.MemoryUsage >= th.BusyMemory {
		return types.ServerStatusBusy
	}
	return types.ServerStatusNormal
}
