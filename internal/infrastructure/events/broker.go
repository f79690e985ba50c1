package events

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Type names a state transition in one of the engines.
type Type string

const (
	CheckStarted   Type = "check_started"
	CheckFinished  Type = "check_finished"
	SuiteStarted   Type = "suite_started"
	SuiteFinished  Type = "suite_finished"
	ProfileLoading Type = "profile_loading"
	ProfileUpdated Type = "profile_updated"
	ProfileFailed  Type = "profile_failed"
)

type Event struct {
	ID              string    `json:"id"`
	Type            Type      `json:"type"`
	Kind            string    `json:"kind,omitempty"`
	Status          string    `json:"status,omitempty"`
	Message         string    `json:"message,omitempty"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	At              time.Time `json:"at"`
}

const (
	defaultHistory    = 256
	subscriberBacklog = 32
)

// Broker fans events out to subscribers and keeps a short history.
// A nil *Broker drops everything.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
	history     []Event
	next        int
	filled      bool
	dropped     atomic.Uint64
}

func NewBroker() *Broker {
	return NewBrokerWithHistory(defaultHistory)
}

func NewBrokerWithHistory(size int) *Broker {
	if size <= 0 {
		size = defaultHistory
	}
	return &Broker{
		subscribers: make(map[chan Event]struct{}),
		history:     make([]Event, size),
	}
}

// Publish records the event and delivers it without blocking.
func (b *Broker) Publish(ev Event) {
	if b == nil {
		return
	}
	if ev.ID == "" {
		ev.ID = generateID("evt")
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.history[b.next] = ev
	b.next = (b.next + 1) % len(b.history)
	if b.next == 0 {
		b.filled = true
	}

	for ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribe returns a channel of future events and a cancel func that
// closes it. Cancel is safe to call more than once.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBacklog)
	if b == nil {
		close(ch)
		return ch, func() {}
	}
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
}

// Recent returns up to limit events, newest first.
func (b *Broker) Recent(limit int) []Event {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := b.next
	if b.filled {
		count = len(b.history)
	}
	if limit <= 0 || limit > count {
		limit = count
	}

	out := make([]Event, 0, limit)
	idx := b.next
	for len(out) < limit {
		idx = (idx - 1 + len(b.history)) % len(b.history)
		out = append(out, b.history[idx])
	}
	return out
}

// Dropped counts deliveries skipped because a subscriber was not keeping up.
func (b *Broker) Dropped() uint64 {
	if b == nil {
		return 0
	}
	return b.dropped.Load()
}

func (b *Broker) SubscriberCount() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func generateID(prefix string) string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(b))
}
