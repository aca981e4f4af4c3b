package balancer

import (
	"sync"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/registry"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/rs/zerolog"
)

// weightedServer is one worker's entry in a weighted balancer's cache
type weightedServer struct {
	address string

	mu      sync.Mutex
	weight  float64
	current float64
}

func (s *weightedServer) getWeight() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.weight
}

func (s *weightedServer) setWeight(w float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weight = w
}

// tick adds the server's weight to its accumulator and reports whether it
// reached total, in which case total is taken back off
func (s *weightedServer) tick(total float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current += s.weight
	if s.current >= total {
		s.current -= total
		return true
	}
	return false
}

// weighted is the smooth weighted round robin shared by the fixed and
// dynamic strategies. Its weight cache follows the registry through a
// listener subscription and may briefly lag behind it.
type weighted struct {
	kind     Type
	registry *registry.Registry
	servers  sync.Map // address -> *weightedServer
	indexes  counters
	sub      *registry.Subscription
	logger   zerolog.Logger

	// weigh computes a worker's weight from its metadata
	weigh func(md *types.WorkerServerMetadata) float64

	// reweigh reports whether updates recompute the weight
	reweigh bool
}

func newWeighted(kind Type, reg *registry.Registry, weigh func(*types.WorkerServerMetadata) float64, reweigh bool) *weighted {
	w := &weighted{
		kind:     kind,
		registry: reg,
		weigh:    weigh,
		reweigh:  reweigh,
		logger:   log.WithComponent("balancer").With().Str("strategy", string(kind)).Logger(),
	}
	w.sub = reg.RegisterListener(w)
	// Start with a warm cache
	w.sub.Sync()
	return w
}

func (w *weighted) OnServerAdded(md *types.WorkerServerMetadata) {
	if existing, ok := w.load(md.Address); ok {
		if w.reweigh {
			w.setWeight(existing, md)
		}
		return
	}

	s := &weightedServer{address: md.Address}
	w.setWeight(s, md)
	w.servers.Store(md.Address, s)
}

func (w *weighted) OnServerUpdate(md *types.WorkerServerMetadata) {
	s, ok := w.load(md.Address)
	if !ok {
		w.OnServerAdded(md)
		return
	}
	if w.reweigh {
		w.setWeight(s, md)
	}
}

func (w *weighted) OnServerRemove(md *types.WorkerServerMetadata) {
	w.servers.Delete(md.Address)
	metrics.WorkerWeight.DeleteLabelValues(string(w.kind), md.Address)
}

func (w *weighted) setWeight(s *weightedServer, md *types.WorkerServerMetadata) {
	weight := w.weigh(md)
	s.setWeight(weight)
	metrics.WorkerWeight.WithLabelValues(string(w.kind), md.Address).Set(weight)
	w.logger.Debug().Str("worker_address", md.Address).Float64("weight", weight).Msg("Worker weight set")
}

func (w *weighted) load(address string) (*weightedServer, bool) {
	v, ok := w.servers.Load(address)
	if !ok {
		return nil, false
	}
	return v.(*weightedServer), true
}

// Weight returns the cached weight of address
func (w *weighted) Weight(address string) (float64, bool) {
	s, ok := w.load(address)
	if !ok {
		return 0, false
	}
	return s.getWeight(), true
}

func (w *weighted) Select(group string) (string, bool) {
	return w.SelectExcluding(group, "")
}

func (w *weighted) SelectExcluding(group, exclude string) (string, bool) {
	var cached []string
	for _, addr := range w.registry.GetNormalWorkerServerAddressByGroup(group) {
		// Registry may be ahead of the cache
		if _, ok := w.load(addr); ok {
			cached = append(cached, addr)
		}
	}

	servers := make([]*weightedServer, 0, len(cached))
	var total float64
	for _, addr := range without(cached, exclude) {
		s, ok := w.load(addr)
		if !ok {
			continue
		}
		servers = append(servers, s)
		total += s.getWeight()
	}
	if len(servers) == 0 || total <= 0 {
		record(w.kind, false)
		return "", false
	}

	n := uint64(len(servers))
	limit := 4 * n * n
	var s *weightedServer
	for i := uint64(0); i < limit; i++ {
		s = servers[w.indexes.next(group)%n]
		if s.tick(total) {
			record(w.kind, true)
			return s.address, true
		}
	}

	// Concurrent weight changes kept every accumulator below total
	w.logger.Debug().Str("worker_group", group).Msg("Weighted selection fell back to last visited worker")
	record(w.kind, true)
	return s.address, true
}

func (w *weighted) Type() Type { return w.kind }

// Sync waits until every registry change published so far is in the cache
func (w *weighted) Sync() { w.sub.Sync() }

func (w *weighted) Close() error {
	w.sub.Close()
	return nil
}

// FixedWeighted is smooth weighted round robin over operator-configured
// worker weights. A worker's weight is taken when it is first added and
// kept across updates.
type FixedWeighted struct {
	*weighted
}

// NewFixedWeighted creates a fixed weighted round robin balancer
func NewFixedWeighted(reg *registry.Registry) *FixedWeighted {
	return &FixedWeighted{
		weighted: newWeighted(TypeFixedWeightedRoundRobin, reg, func(md *types.WorkerServerMetadata) float64 {
			return float64(md.Weight())
		}, false),
	}
}

// DynamicWeighted is smooth weighted round robin over weights derived from
// each worker's reported load, recomputed on every add and update.
type DynamicWeighted struct {
	*weighted
	weights DynamicWeights
}

// NewDynamicWeighted creates a dynamic weighted round robin balancer
func NewDynamicWeighted(reg *registry.Registry, weights DynamicWeights) *DynamicWeighted {
	return &DynamicWeighted{
		weighted: newWeighted(TypeDynamicWeightedRoundRobin, reg, func(md *types.WorkerServerMetadata) float64 {
			return DynamicWeight(md, weights)
		}, true),
		weights: weights,
	}
}

// DynamicWeight computes 100 - (cpu*cpuWeight + memory*memoryWeight + queue*queueWeight) / 3.
// Usage ratios are clamped to [0, 1].
func DynamicWeight(md *types.WorkerServerMetadata, w DynamicWeights) float64 {
	load := clamp(md.CPUUsage)*float64(w.CPU) +
		clamp(md.MemoryUsage)*float64(w.Memory) +
		clamp(md.TaskThreadPoolUsage)*float64(w.Queue)
	return 100 - load/3
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
