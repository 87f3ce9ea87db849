// Package live delivers snapshots of live queries to subscribers. A write
// publishes the full new result of the affected query; subscribers always
// see the latest snapshot and may skip intermediate ones.
package live

import (
	"sync"
	"time"

	"github.com/narvarokollen/narvaro/internal/metrics"
)

// EventsTopic is the live query of a band's event list.
func EventsTopic(bandID string) string { return "band/" + bandID + "/events" }

// MembersTopic is the live query of a band's roster.
func MembersTopic(bandID string) string { return "band/" + bandID + "/members" }

// ParticipantsTopic is the live query of an event's responses.
func ParticipantsTopic(eventID string) string { return "event/" + eventID + "/participants" }

// Snapshot is the full result of a live query at one point in time. Version
// grows with every snapshot built for the topic.
type Snapshot struct {
	Topic   string    `json:"topic"`
	Version uint64    `json:"version"`
	At      time.Time `json:"at"`
	Data    any       `json:"data"`
}

// Builder reads the current result of a live query.
type Builder func() (any, error)

// topic serializes the snapshots of one live query. mu is held while a
// snapshot is read and delivered, so delivery order is read order.
type topic struct {
	mu      sync.Mutex
	version uint64
	subs    map[*Subscription]struct{}

	refs int // guarded by Hub.mu
}

// Hub fans snapshots out to the subscribers of a topic.
type Hub struct {
	mu     sync.Mutex
	topics map[string]*topic
	now    func() time.Time
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{topics: make(map[string]*topic), now: time.Now}
}

// Subscription receives the snapshots of one topic until closed.
type Subscription struct {
	name string
	hub  *Hub
	t    *topic
	ch   chan Snapshot
	once sync.Once
}

// acquire returns the named topic with a reference taken. Without create it
// returns nil for a topic nobody holds.
func (h *Hub) acquire(name string, create bool) *topic {
	h.mu.Lock()
	defer h.mu.Unlock()

	t, ok := h.topics[name]
	if !ok {
		if !create {
			return nil
		}
		t = &topic{subs: make(map[*Subscription]struct{})}
		h.topics[name] = t
	}
	t.refs++
	return t
}

func (h *Hub) release(name string, t *topic) {
	h.mu.Lock()
	defer h.mu.Unlock()

	t.refs--
	if t.refs == 0 && h.topics[name] == t {
		delete(h.topics, name)
	}
}

// Subscribe registers a subscriber for name and returns the current result
// built by build as its first snapshot. No snapshot of the topic is built
// between that read and the registration.
func (h *Hub) Subscribe(name string, build Builder) (*Subscription, Snapshot, error) {
	t := h.acquire(name, true)

	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := build()
	if err != nil {
		h.release(name, t)
		return nil, Snapshot{}, err
	}

	sub := &Subscription{name: name, hub: h, t: t, ch: make(chan Snapshot, 1)}
	t.subs[sub] = struct{}{}
	metrics.LiveSubscribers.Inc()

	return sub, Snapshot{Topic: name, Version: t.version, At: h.now(), Data: data}, nil
}

// Publish builds a fresh snapshot of name and hands it to every subscriber
// without blocking. A subscriber that has not read the previous snapshot
// gets it replaced. Topics without subscribers are not built.
func (h *Hub) Publish(name string, build Builder) error {
	t := h.acquire(name, false)
	if t == nil {
		return nil
	}
	defer h.release(name, t)

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.subs) == 0 {
		return nil
	}
	data, err := build()
	if err != nil {
		return err
	}
	t.version++
	snap := Snapshot{Topic: name, Version: t.version, At: h.now(), Data: data}

	for sub := range t.subs {
		sub.offer(snap)
	}
	return nil
}

// CloseTopic ends every subscription of name. Used when the query target
// is gone.
func (h *Hub) CloseTopic(name string) {
	t := h.acquire(name, false)
	if t == nil {
		return
	}
	defer h.release(name, t)

	t.mu.Lock()
	subs := make([]*Subscription, 0, len(t.subs))
	for sub := range t.subs {
		subs = append(subs, sub)
	}
	t.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}

// offer must be called with the topic lock held.
func (s *Subscription) offer(snap Snapshot) {
	select {
	case s.ch <- snap:
		return
	default:
	}
	select {
	case <-s.ch:
		metrics.SnapshotsDropped.Inc()
	default:
	}
	select {
	case s.ch <- snap:
	default:
	}
}

// Topic returns the subscribed topic.
func (s *Subscription) Topic() string { return s.name }

// C returns the channel snapshots are delivered on. It is closed by Close.
func (s *Subscription) C() <-chan Snapshot { return s.ch }

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.t.mu.Lock()
		delete(s.t.subs, s)
		close(s.ch)
		s.t.mu.Unlock()

		s.hub.release(s.name, s.t)
		metrics.LiveSubscribers.Dec()
	})
}
