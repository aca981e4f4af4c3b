package balancer

import (
	"fmt"
	"sync"
	"testing"

	"github.com/cuemby/burrow/pkg/registry"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const group = "default"

func addWorker(reg *registry.Registry, addr string, weight int) {
	reg.OnServerAdded(&types.WorkerServerMetadata{
		Address:      addr,
		Groups:       []string{group},
		Status:       types.ServerStatusNormal,
		WorkerWeight: weight,
	})
}

func newBalancer(t *testing.T, typ Type, reg *registry.Registry) LoadBalancer {
	t.Helper()
	lb, err := New(Config{Type: typ, Dynamic: DefaultDynamicWeights()}, reg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = lb.Close() })
	return lb
}

func countSelections(t *testing.T, lb LoadBalancer, n int) map[string]int {
	t.Helper()
	counts := make(map[string]int)
	for i := 0; i < n; i++ {
		addr, ok := lb.Select(group)
		require.True(t, ok)
		counts[addr]++
	}
	return counts
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "default", cfg: DefaultConfig()},
		{name: "random", cfg: Config{Type: TypeRandom}},
		{name: "round robin ignores weights", cfg: Config{Type: TypeRoundRobin, Dynamic: DynamicWeights{CPU: 1}}},
		{name: "unknown type", cfg: Config{Type: "LEAST_CONN"}, wantErr: true},
		{name: "empty type", cfg: Config{}, wantErr: true},
		{name: "weights do not sum to 100", cfg: Config{Type: TypeDynamicWeightedRoundRobin, Dynamic: DynamicWeights{CPU: 30, Memory: 30, Queue: 30}}, wantErr: true},
		{name: "negative weight", cfg: Config{Type: TypeDynamicWeightedRoundRobin, Dynamic: DynamicWeights{CPU: 120, Memory: -10, Queue: -10}}, wantErr: true},
		{name: "all cpu", cfg: Config{Type: TypeDynamicWeightedRoundRobin, Dynamic: DynamicWeights{CPU: 100}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestParseType(t *testing.T) {
	typ, err := ParseType(" round_robin ")
	require.NoError(t, err)
	assert.Equal(t, TypeRoundRobin, typ)

	_, err = ParseType("weighted")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(Config{Type: TypeDynamicWeightedRoundRobin}, registry.New())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(DefaultConfig(), nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEmptyAndUnknownGroups(t *testing.T) {
	for _, typ := range Types {
		t.Run(string(typ), func(t *testing.T) {
			reg := registry.New()
			reg.OnServerAdded(&types.WorkerServerMetadata{Address: "busy:1", Groups: []string{"busy"}, Status: types.ServerStatusBusy})

			lb := newBalancer(t, typ, reg)
			assert.Equal(t, typ, lb.Type())

			addr, ok := lb.Select("busy")
			assert.False(t, ok)
			assert.Empty(t, addr)

			addr, ok = lb.Select("groupThatDoesNotExist")
			assert.False(t, ok)
			assert.Empty(t, addr)
		})
	}
}

func TestSelectOnlyNormalWorkers(t *testing.T) {
	for _, typ := range Types {
		t.Run(string(typ), func(t *testing.T) {
			reg := registry.New()
			addWorker(reg, "a:1", 1)
			reg.OnServerAdded(&types.WorkerServerMetadata{Address: "b:1", Groups: []string{group}, Status: types.ServerStatusAbnormal})

			lb := newBalancer(t, typ, reg)
			for i := 0; i < 20; i++ {
				addr, ok := lb.Select(group)
				require.True(t, ok)
				assert.Equal(t, "a:1", addr)
			}
		})
	}
}

func TestRoundRobinSequence(t *testing.T) {
	reg := registry.New()
	addWorker(reg, "c:1", 0)
	addWorker(reg, "a:1", 0)
	addWorker(reg, "b:1", 0)

	lb := NewRoundRobin(reg)
	var got []string
	for i := 0; i < 6; i++ {
		addr, ok := lb.Select(group)
		require.True(t, ok)
		got = append(got, addr)
	}
	assert.Equal(t, []string{"a:1", "b:1", "c:1", "a:1", "b:1", "c:1"}, got)

	reg.OnServerRemove(&types.WorkerServerMetadata{Address: "b:1"})
	addr, ok := lb.Select(group)
	require.True(t, ok)
	assert.Contains(t, []string{"a:1", "c:1"}, addr)
}

func TestRandomCoversAllWorkers(t *testing.T) {
	reg := registry.New()
	addWorker(reg, "a:1", 0)
	addWorker(reg, "b:1", 0)
	addWorker(reg, "c:1", 0)

	counts := countSelections(t, NewRandom(reg), 3000)
	assert.Len(t, counts, 3)
	for addr, n := range counts {
		assert.InDelta(t, 1000, n, 200, addr)
	}
}

func TestFixedWeightedFairness(t *testing.T) {
	reg := registry.New()
	addWorker(reg, "w1:1", 1)
	addWorker(reg, "w2:1", 2)
	addWorker(reg, "w3:1", 3)

	lb := newBalancer(t, TypeFixedWeightedRoundRobin, reg)
	counts := countSelections(t, lb, 10000)

	assert.InDelta(t, 10000.0/6, counts["w1:1"], 10)
	assert.InDelta(t, 2*10000.0/6, counts["w2:1"], 10)
	assert.InDelta(t, 3*10000.0/6, counts["w3:1"], 10)
	assert.Equal(t, 10000, counts["w1:1"]+counts["w2:1"]+counts["w3:1"])
}

func TestFixedWeightedIsSmooth(t *testing.T) {
	reg := registry.New()
	addWorker(reg, "a:1", 5)
	addWorker(reg, "b:1", 1)

	lb := newBalancer(t, TypeFixedWeightedRoundRobin, reg)

	// b never waits more than one full cycle of a
	run := 0
	for i := 0; i < 120; i++ {
		addr, _ := lb.Select(group)
		if addr == "a:1" {
			run++
			assert.LessOrEqual(t, run, 5)
			continue
		}
		run = 0
	}
}

func TestFixedWeightKeptOnUpdate(t *testing.T) {
	reg := registry.New()
	addWorker(reg, "a:1", 7)

	lb := NewFixedWeighted(reg)
	defer lb.Close()

	reg.OnServerUpdate(&types.WorkerServerMetadata{Address: "a:1", Groups: []string{group}, Status: types.ServerStatusNormal, WorkerWeight: 1})
	lb.Sync()

	w, ok := lb.Weight("a:1")
	require.True(t, ok)
	assert.Equal(t, 7.0, w)

	reg.OnServerRemove(&types.WorkerServerMetadata{Address: "a:1"})
	lb.Sync()
	_, ok = lb.Weight("a:1")
	assert.False(t, ok)
}

func TestFixedWeightedDefaultsWeight(t *testing.T) {
	reg := registry.New()
	addWorker(reg, "a:1", 0)

	lb := NewFixedWeighted(reg)
	defer lb.Close()

	w, ok := lb.Weight("a:1")
	require.True(t, ok)
	assert.Equal(t, float64(types.DefaultWorkerWeight), w)
}

func TestDynamicWeight(t *testing.T) {
	weights := DefaultDynamicWeights()
	idle := &types.WorkerServerMetadata{}
	assert.Equal(t, 100.0, DynamicWeight(idle, weights))

	loaded := &types.WorkerServerMetadata{CPUUsage: 0.5, MemoryUsage: 0.5, TaskThreadPoolUsage: 0.5}
	assert.InDelta(t, 100-50.0/3, DynamicWeight(loaded, weights), 1e-9)

	saturated := &types.WorkerServerMetadata{CPUUsage: 3, MemoryUsage: 1, TaskThreadPoolUsage: 1}
	assert.InDelta(t, 100-100.0/3, DynamicWeight(saturated, weights), 1e-9)
}

func TestDynamicReweighting(t *testing.T) {
	reg := registry.New()
	for _, addr := range []string{"a:1", "b:1"} {
		reg.OnServerAdded(&types.WorkerServerMetadata{
			Address: addr, Groups: []string{group}, Status: types.ServerStatusNormal,
			CPUUsage: 0.2, MemoryUsage: 0.3, TaskThreadPoolUsage: 0.1,
		})
	}

	lb := NewDynamicWeighted(reg, DefaultDynamicWeights())
	defer lb.Close()

	before, _ := lb.Weight("a:1")
	balanced := countSelections(t, lb, 1000)
	assert.InDelta(t, 500, balanced["a:1"], 2)

	reg.OnServerUpdate(&types.WorkerServerMetadata{
		Address: "a:1", Groups: []string{group}, Status: types.ServerStatusNormal,
		CPUUsage: 0.9, MemoryUsage: 0.3, TaskThreadPoolUsage: 0.1,
	})
	lb.Sync()

	after, _ := lb.Weight("a:1")
	assert.Less(t, after, before)

	skewed := countSelections(t, lb, 1000)
	assert.Less(t, skewed["a:1"], skewed["b:1"])
}

func TestWeightedFiltersCacheMisses(t *testing.T) {
	reg := registry.New()
	lb := NewDynamicWeighted(reg, DefaultDynamicWeights())
	require.NoError(t, lb.Close())

	// registry knows the worker, the closed cache never will
	addWorker(reg, "a:1", 1)
	addr, ok := lb.Select(group)
	assert.False(t, ok)
	assert.Empty(t, addr)
}

func TestWeightedConcurrentSelect(t *testing.T) {
	reg := registry.New()
	addWorker(reg, "w1:1", 1)
	addWorker(reg, "w2:1", 2)
	addWorker(reg, "w3:1", 3)
	lb := newBalancer(t, TypeFixedWeightedRoundRobin, reg)

	var (
		mu     sync.Mutex
		counts = make(map[string]int)
		wg     sync.WaitGroup
	)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make(map[string]int)
			for i := 0; i < 750; i++ {
				if addr, ok := lb.Select(group); ok {
					local[addr]++
				}
			}
			mu.Lock()
			for k, v := range local {
				counts[k] += v
			}
			mu.Unlock()
		}()
	}

	// membership churn while selecting
	for i := 0; i < 50; i++ {
		addWorker(reg, fmt.Sprintf("tmp%d:1", i%5), 1)
		reg.OnServerRemove(&types.WorkerServerMetadata{Address: fmt.Sprintf("tmp%d:1", i%5)})
	}
	wg.Wait()

	total := 0
	for _, v := range counts {
		total += v
	}
	assert.Equal(t, 6000, total)
	assert.Greater(t, counts["w3:1"], counts["w1:1"])
}

func TestFixedWeightedExactOverFullCycles(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("k*total selections give each worker exactly k*weight", prop.ForAll(
		func(n int, weights []int) bool {
			if n < len(weights) {
				weights = weights[:n]
			}

			reg := registry.New()
			total := 0
			for i, w := range weights {
				addWorker(reg, fmt.Sprintf("w%d:1", i), w)
				total += w
			}

			lb := NewFixedWeighted(reg)
			defer lb.Close()

			const rounds = 5
			counts := make(map[string]int)
			for i := 0; i < rounds*total; i++ {
				addr, ok := lb.Select(group)
				if !ok {
					return false
				}
				counts[addr]++
			}

			for i, w := range weights {
				if counts[fmt.Sprintf("w%d:1", i)] != rounds*w {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 6),
		gen.SliceOfN(6, gen.IntRange(1, 20)),
	))

	properties.TestingRun(t)
}

func TestSelectExcluding(t *testing.T) {
	for _, typ := range Types {
		t.Run(string(typ), func(t *testing.T) {
			reg := registry.New()
			defer reg.Close()
			addWorker(reg, "w1:1", 1000)
			addWorker(reg, "w2:1", 1)
			lb := newBalancer(t, typ, reg)

			for i := 0; i < 200; i++ {
				addr, ok := SelectExcluding(lb, group, "w1:1")
				require.True(t, ok)
				require.Equal(t, "w2:1", addr)
			}
		})
	}
}

func TestSelectExcludingSoleWorker(t *testing.T) {
	reg := registry.New()
	defer reg.Close()
	addWorker(reg, "w1:1", 100)
	lb := newBalancer(t, TypeRandom, reg)

	addr, ok := SelectExcluding(lb, group, "w1:1")
	require.True(t, ok)
	assert.Equal(t, "w1:1", addr)

	_, ok = SelectExcluding(lb, "missing", "w1:1")
	assert.False(t, ok)
}
