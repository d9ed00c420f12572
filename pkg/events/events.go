// Package events implements the API server's per-kind watch fan-out:
// one broadcast channel per kind (Pod, Node, ReplicaSet), held inside
// the server's state object. Subscribers obtain a receiver on watch
// open and see every event committed after that point. A slow
// subscriber is dropped rather than allowed to block a writer.
package events

import (
	"sync"

	"github.com/cr8s-go/cr8s/pkg/types"
	"github.com/golang/glog"
)

// EventType classifies a watch event.
type EventType string

const (
	Added    EventType = "Added"
	Modified EventType = "Modified"
	Deleted  EventType = "Deleted"
)

// Event is a single change to an object of kind Kind. Object is the
// full object body at commit time (not a diff).
type Event struct {
	Type   EventType
	Kind   types.Kind
	Object interface{}
}

// subscriberCapacity bounds each watcher's channel; spec.md §4.2
// tolerates dropping slow watchers rather than blocking the writer.
const subscriberCapacity = 100

// Broadcaster fans out events of one kind to any number of
// subscribers without ever blocking the publisher.
type Broadcaster struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Event
}

// NewBroadcaster returns an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: map[int]chan Event{}}
}

// Subscription is a live handle on a Broadcaster subscription.
type Subscription struct {
	id  int
	ch  chan Event
	b   *Broadcaster
}

// Events returns the channel to receive from.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if ch, ok := s.b.subs[s.id]; ok {
		delete(s.b.subs, s.id)
		close(ch)
	}
}

// Subscribe registers a new subscriber and returns its handle.
func (b *Broadcaster) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan Event, subscriberCapacity)
	b.subs[id] = ch
	return &Subscription{id: id, ch: ch, b: b}
}

// Publish delivers ev to every current subscriber. A subscriber whose
// channel is full is dropped (its Events() channel is closed) instead
// of blocking this call, per spec.md §4.2 and §5.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			glog.Warningf("events: dropping slow watcher (kind=%s)", ev.Kind)
			delete(b.subs, id)
			close(ch)
		}
	}
}

// Registry holds one Broadcaster per kind the API server serves.
type Registry struct {
	Pods        *Broadcaster
	Nodes       *Broadcaster
	ReplicaSets *Broadcaster
}

// NewRegistry constructs a Registry with a fresh Broadcaster per kind.
func NewRegistry() *Registry {
	return &Registry{
		Pods:        NewBroadcaster(),
		Nodes:       NewBroadcaster(),
		ReplicaSets: NewBroadcaster(),
	}
}
