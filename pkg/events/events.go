package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventWorkflowStarted   EventType = "workflow.started"
	EventWorkflowCompleted EventType = "workflow.completed"
	EventWorkflowFailed    EventType = "workflow.failed"
	EventWorkflowEmpty     EventType = "workflow.empty"
	EventTaskDispatched    EventType = "task.dispatched"
	EventTaskCompleted     EventType = "task.completed"
	EventTaskFailed        EventType = "task.failed"
	EventTaskSkipped       EventType = "task.skipped"
	EventWorkerEvicted     EventType = "worker.evicted"
	EventWorkerUnhealthy   EventType = "worker.unhealthy"
	EventWorkerRecovered   EventType = "worker.recovered"
)

// Event represents a scheduler event
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Message   string
	Metadata  map[string]string
}

// NewEvent creates an event with a fresh ID
func NewEvent(t EventType, message string, metadata map[string]string) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      t,
		Timestamp: time.Now(),
		Message:   message,
		Metadata:  metadata,
	}
}

// Subscriber is a channel that receives events
type Subscriber chan *Event

// SubscriberBuffer is the channel capacity of every subscription
const SubscriberBuffer = 50

// Broker fans events out to subscribers. Delivery is best effort: a
// subscriber whose buffer is full misses the event.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]filter
	eventCh     chan *Event
	stopCh      chan struct{}
	stopOnce    sync.Once
	dropped     atomic.Uint64
}

// filter holds the event types a subscriber asked for; nil accepts all
type filter map[EventType]bool

func (f filter) accepts(t EventType) bool {
	return f == nil || f[t]
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]filter),
		eventCh:     make(chan *Event, 100),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker. Publish returns immediately afterwards.
func (b *Broker) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
}

// Subscribe returns a channel receiving events of the given types, or of
// every type when none are given
func (b *Broker) Subscribe(types ...EventType) Subscriber {
	var f filter
	if len(types) > 0 {
		f = make(filter, len(types))
		for _, t := range types {
			f[t] = true
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, SubscriberBuffer)
	b.subscribers[sub] = f
	return sub
}

// Unsubscribe removes a subscription and closes its channel
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[sub]; !ok {
		return
	}
	delete(b.subscribers, sub)
	close(sub)
}

// Publish queues an event for distribution. A nil broker drops it.
func (b *Broker) Publish(event *Event) {
	if b == nil || event == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub, f := range b.subscribers {
		if !f.accepts(event.Type) {
			continue
		}
		select {
		case sub <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Dropped returns how many deliveries were skipped because a subscriber's
// buffer was full
func (b *Broker) Dropped() uint64 {
	return b.dropped.Load()
}
