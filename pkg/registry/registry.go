package registry

import (
	"sort"
	"sync"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/rs/zerolog"
)

// DefaultEventBuffer is the per-listener channel capacity
const DefaultEventBuffer = 64

// Registry is the live view of worker servers and worker groups.
//
// Server metadata is stored as immutable snapshots so reads never take a
// lock. Writers are serialized by pubMu, which also covers the hand-off of
// the resulting change event to every subscriber.
type Registry struct {
	servers sync.Map // address -> *types.WorkerServerMetadata

	pubMu sync.Mutex
	subs  []*Subscription

	groupsMu sync.RWMutex
	groups   map[string][]string // group name -> sorted allowlist

	eventBuffer int
	closed      bool
	logger      zerolog.Logger
}

// Option configures a Registry
type Option func(*Registry)

// WithEventBuffer sets the capacity of each listener's event channel
func WithEventBuffer(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.eventBuffer = n
		}
	}
}

// New creates an empty registry
func New(opts ...Option) *Registry {
	r := &Registry{
		groups:      make(map[string][]string),
		eventBuffer: DefaultEventBuffer,
		logger:      log.WithComponent("registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnServerAdded registers a worker. Adding a known address updates it.
func (r *Registry) OnServerAdded(md *types.WorkerServerMetadata) {
	r.upsert(md)
}

// OnServerUpdate refreshes a worker. Updating an unknown address adds it.
func (r *Registry) OnServerUpdate(md *types.WorkerServerMetadata) {
	r.upsert(md)
}

// OnServerRemove drops a worker. Removing an unknown address is a no-op.
func (r *Registry) OnServerRemove(md *types.WorkerServerMetadata) {
	if md == nil || md.Address == "" {
		return
	}

	r.pubMu.Lock()
	defer r.pubMu.Unlock()

	prev, loaded := r.servers.LoadAndDelete(md.Address)
	if !loaded {
		return
	}

	r.logger.Info().Str("worker_address", md.Address).Msg("Worker removed")
	r.publish(newEvent(EventRemoved, prev.(*types.WorkerServerMetadata)))
}

// RemoveIf drops the worker at address when remove returns true for its
// current snapshot. It reports whether the worker was removed.
func (r *Registry) RemoveIf(address string, remove func(md *types.WorkerServerMetadata) bool) bool {
	r.pubMu.Lock()
	defer r.pubMu.Unlock()

	v, ok := r.servers.Load(address)
	if !ok {
		return false
	}
	md := v.(*types.WorkerServerMetadata)
	if !remove(md) {
		return false
	}

	r.servers.Delete(address)
	r.logger.Info().Str("worker_address", address).Msg("Worker removed")
	r.publish(newEvent(EventRemoved, md))
	return true
}

// UpdateIf applies update to a copy of the worker at address and stores the
// copy when update returns true. Unknown addresses are left unregistered.
func (r *Registry) UpdateIf(address string, update func(md *types.WorkerServerMetadata) bool) bool {
	r.pubMu.Lock()
	defer r.pubMu.Unlock()

	v, ok := r.servers.Load(address)
	if !ok {
		return false
	}
	next := v.(*types.WorkerServerMetadata).Clone()
	if !update(next) {
		return false
	}
	next.Address = address

	r.servers.Store(address, next)
	r.publish(newEvent(EventUpdated, next))
	return true
}

func (r *Registry) upsert(md *types.WorkerServerMetadata) {
	if md == nil || md.Address == "" {
		r.logger.Warn().Msg("Ignoring worker metadata without an address")
		return
	}
	snapshot := md.Clone()
	if snapshot.Status == "" {
		snapshot.Status = types.ServerStatusNormal
	}

	r.pubMu.Lock()
	defer r.pubMu.Unlock()

	prev, loaded := r.servers.Swap(snapshot.Address, snapshot)
	if !loaded {
		r.logger.Info().
			Str("worker_address", snapshot.Address).
			Strs("groups", snapshot.Groups).
			Str("status", string(snapshot.Status)).
			Msg("Worker added")
		r.publish(newEvent(EventAdded, snapshot))
		return
	}

	if old := prev.(*types.WorkerServerMetadata); old.Status != snapshot.Status {
		r.logger.Info().
			Str("worker_address", snapshot.Address).
			Str("from", string(old.Status)).
			Str("to", string(snapshot.Status)).
			Msg("Worker status changed")
	}
	r.publish(newEvent(EventUpdated, snapshot))
}

// OnWorkerGroupAdd merges the given allowlists into the existing ones
func (r *Registry) OnWorkerGroupAdd(groups []types.WorkerGroup) {
	r.pubMu.Lock()
	defer r.pubMu.Unlock()

	r.groupsMu.Lock()
	for _, g := range groups {
		if g.Name == "" {
			continue
		}
		r.groups[g.Name] = mergeSorted(r.groups[g.Name], g.Addresses)
	}
	r.groupsMu.Unlock()

	r.logger.Info().Int("groups", len(groups)).Msg("Worker groups added")
	r.publish(newEvent(EventGroupsChanged, nil))
}

// OnWorkerGroupChange replaces every allowlist with the given set
func (r *Registry) OnWorkerGroupChange(groups []types.WorkerGroup) {
	r.pubMu.Lock()
	defer r.pubMu.Unlock()

	next := make(map[string][]string, len(groups))
	for _, g := range groups {
		if g.Name == "" {
			continue
		}
		next[g.Name] = mergeSorted(next[g.Name], g.Addresses)
	}

	r.groupsMu.Lock()
	r.groups = next
	r.groupsMu.Unlock()

	r.logger.Info().Int("groups", len(next)).Msg("Worker groups replaced")
	r.publish(newEvent(EventGroupsChanged, nil))
}

// GetNormalWorkerServerAddressByGroup returns the sorted addresses of NORMAL
// workers in group. Membership comes from the group's allowlist when one is
// configured, otherwise from the groups workers registered with. The result
// is never nil.
func (r *Registry) GetNormalWorkerServerAddressByGroup(group string) []string {
	addrs := []string{}
	for _, md := range r.Members(group) {
		if md.IsNormal() {
			addrs = append(addrs, md.Address)
		}
	}
	return addrs
}

// Members returns the current snapshots of every worker in group regardless
// of status, sorted by address
func (r *Registry) Members(group string) []*types.WorkerServerMetadata {
	r.groupsMu.RLock()
	allow := r.groups[group]
	r.groupsMu.RUnlock()

	var members []*types.WorkerServerMetadata
	if len(allow) > 0 {
		for _, addr := range allow {
			if md, ok := r.Server(addr); ok {
				members = append(members, md)
			}
		}
		return members
	}

	r.servers.Range(func(_, v any) bool {
		md := v.(*types.WorkerServerMetadata)
		if md.InGroup(group) {
			members = append(members, md)
		}
		return true
	})
	sort.Slice(members, func(i, j int) bool { return members[i].Address < members[j].Address })
	return members
}

// Server returns the current snapshot for address. Snapshots are shared and
// must not be modified.
func (r *Registry) Server(address string) (*types.WorkerServerMetadata, bool) {
	v, ok := r.servers.Load(address)
	if !ok {
		return nil, false
	}
	return v.(*types.WorkerServerMetadata), true
}

// Servers returns every registered worker sorted by address
func (r *Registry) Servers() []*types.WorkerServerMetadata {
	var servers []*types.WorkerServerMetadata
	r.servers.Range(func(_, v any) bool {
		servers = append(servers, v.(*types.WorkerServerMetadata))
		return true
	})
	sort.Slice(servers, func(i, j int) bool { return servers[i].Address < servers[j].Address })
	return servers
}

// Groups returns the configured allowlists sorted by name
func (r *Registry) Groups() []types.WorkerGroup {
	r.groupsMu.RLock()
	defer r.groupsMu.RUnlock()

	groups := make([]types.WorkerGroup, 0, len(r.groups))
	for name, addrs := range r.groups {
		groups = append(groups, types.WorkerGroup{Name: name, Addresses: append([]string(nil), addrs...)})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups
}

// GroupNames returns every group known from allowlists or worker tags, sorted
func (r *Registry) GroupNames() []string {
	set := make(map[string]struct{})

	r.groupsMu.RLock()
	for name := range r.groups {
		set[name] = struct{}{}
	}
	r.groupsMu.RUnlock()

	r.servers.Range(func(_, v any) bool {
		for _, g := range v.(*types.WorkerServerMetadata).Groups {
			set[g] = struct{}{}
		}
		return true
	})

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close stops delivery to every listener. Mutations after Close still
// update the registry but notify nobody.
func (r *Registry) Close() {
	r.pubMu.Lock()
	defer r.pubMu.Unlock()

	for _, s := range r.subs {
		s.shutdown()
	}
	r.subs = nil
	r.closed = true
}

func mergeSorted(existing, add []string) []string {
	set := make(map[string]struct{}, len(existing)+len(add))
	for _, a := range existing {
		set[a] = struct{}{}
	}
	for _, a := range add {
		if a != "" {
			set[a] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
