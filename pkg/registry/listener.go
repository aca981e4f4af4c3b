package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/cuemby/burrow/pkg/types"
	"github.com/google/uuid"
)

// EventType identifies a registry change
type EventType string

const (
	EventAdded         EventType = "added"
	EventUpdated       EventType = "updated"
	EventRemoved       EventType = "removed"
	EventGroupsChanged EventType = "groups_changed"
)

// ChangeEvent describes one registry mutation. Server is nil for group changes.
type ChangeEvent struct {
	ID        string
	Type      EventType
	Server    *types.WorkerServerMetadata
	Timestamp time.Time

	ack chan struct{}
}

func newEvent(t EventType, md *types.WorkerServerMetadata) ChangeEvent {
	return ChangeEvent{
		ID:        uuid.New().String(),
		Type:      t,
		Server:    md,
		Timestamp: time.Now(),
	}
}

// Listener receives worker membership changes. Callbacks run on the
// subscription's own goroutine, one at a time and in registry order. They
// may read the registry freely but must not mutate it synchronously.
type Listener interface {
	OnServerAdded(md *types.WorkerServerMetadata)
	OnServerRemove(md *types.WorkerServerMetadata)
	OnServerUpdate(md *types.WorkerServerMetadata)
}

// GroupListener is implemented by listeners that also want allowlist changes
type GroupListener interface {
	OnGroupsChanged()
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Added   func(md *types.WorkerServerMetadata)
	Removed func(md *types.WorkerServerMetadata)
	Updated func(md *types.WorkerServerMetadata)
	Groups  func()
}

func (f ListenerFuncs) OnServerAdded(md *types.WorkerServerMetadata) {
	if f.Added != nil {
		f.Added(md)
	}
}

func (f ListenerFuncs) OnServerRemove(md *types.WorkerServerMetadata) {
	if f.Removed != nil {
		f.Removed(md)
	}
}

func (f ListenerFuncs) OnServerUpdate(md *types.WorkerServerMetadata) {
	if f.Updated != nil {
		f.Updated(md)
	}
}

func (f ListenerFuncs) OnGroupsChanged() {
	if f.Groups != nil {
		f.Groups()
	}
}

// Subscription is a registered listener with its bounded event channel
type Subscription struct {
	reg      *Registry
	listener Listener
	ch       chan ChangeEvent
	quit     chan struct{}
	done     chan struct{}

	quitOnce  sync.Once
	closeOnce sync.Once
}

// RegisterListener subscribes l to registry changes. Every worker currently
// registered is replayed to l as an added event before any later change.
func (r *Registry) RegisterListener(l Listener) *Subscription {
	s := &Subscription{
		reg:      r,
		listener: l,
		ch:       make(chan ChangeEvent, r.eventBuffer),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.pump()

	r.pubMu.Lock()
	defer r.pubMu.Unlock()

	if r.closed {
		s.shutdown()
		return s
	}

	servers := make([]*types.WorkerServerMetadata, 0)
	r.servers.Range(func(_, v any) bool {
		servers = append(servers, v.(*types.WorkerServerMetadata))
		return true
	})
	sort.Slice(servers, func(i, j int) bool { return servers[i].Address < servers[j].Address })
	for _, md := range servers {
		s.deliver(newEvent(EventAdded, md))
	}

	r.subs = append(r.subs, s)
	return s
}

// publish hands evt to every subscriber. Caller holds pubMu.
func (r *Registry) publish(evt ChangeEvent) {
	for _, s := range r.subs {
		s.deliver(evt)
	}
}

func (r *Registry) unsubscribe(s *Subscription) {
	r.pubMu.Lock()
	defer r.pubMu.Unlock()

	for i, sub := range r.subs {
		if sub == s {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			break
		}
	}
	s.closeOnce.Do(func() { close(s.ch) })
}

// deliver blocks until the pump has room or the subscription is closing.
// Caller holds pubMu.
func (s *Subscription) deliver(evt ChangeEvent) {
	select {
	case s.ch <- evt:
	case <-s.quit:
	}
}

func (s *Subscription) pump() {
	defer close(s.done)

	for evt := range s.ch {
		if evt.ack != nil {
			close(evt.ack)
			continue
		}
		select {
		case <-s.quit:
			continue
		default:
		}
		s.dispatch(evt)
	}
}

func (s *Subscription) dispatch(evt ChangeEvent) {
	switch evt.Type {
	case EventAdded:
		s.listener.OnServerAdded(evt.Server)
	case EventUpdated:
		s.listener.OnServerUpdate(evt.Server)
	case EventRemoved:
		s.listener.OnServerRemove(evt.Server)
	case EventGroupsChanged:
		if gl, ok := s.listener.(GroupListener); ok {
			gl.OnGroupsChanged()
		}
	}
}

// Sync blocks until every event published before the call has been handled
// by the listener. It must not be called from a listener callback.
func (s *Subscription) Sync() {
	ack := make(chan struct{})

	s.reg.pubMu.Lock()
	select {
	case <-s.quit:
		s.reg.pubMu.Unlock()
		return
	default:
	}
	s.deliver(ChangeEvent{ack: ack})
	s.reg.pubMu.Unlock()

	select {
	case <-ack:
	case <-s.done:
	}
}

// Close unsubscribes the listener. Events still queued are discarded.
// Close is safe to call from a listener callback.
func (s *Subscription) Close() {
	s.quitOnce.Do(func() { close(s.quit) })
	s.reg.unsubscribe(s)
}

// Done is closed once the subscription goroutine has exited
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// shutdown closes the subscription. Caller holds pubMu.
func (s *Subscription) shutdown() {
	s.quitOnce.Do(func() { close(s.quit) })
	s.closeOnce.Do(func() { close(s.ch) })
}
