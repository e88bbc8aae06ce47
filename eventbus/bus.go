package eventbus

import (
	"sync"
	"sync/atomic"
)

// Bus fans events out to subscribers. Subscriptions are keyed by workflow
// ID; the empty key receives every event.
type Bus struct {
	mu      sync.RWMutex
	subs    map[string][]*subscription
	closed  bool
	dropped atomic.Int64
}

type subscription struct {
	ch chan Event
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]*subscription)}
}

// Subscribe registers interest in one workflow's events (or all events for
// the empty key). The returned cancel function releases the subscription
// and closes the channel; it is safe to call more than once.
func (b *Bus) Subscribe(workflowID string, buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 16
	}
	sub := &subscription{ch: make(chan Event, buffer)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	b.subs[workflowID] = append(b.subs[workflowID], sub)
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if b.closed {
				// Close already released every channel.
				b.mu.Unlock()
				return
			}
			list := b.subs[workflowID]
			for i, s := range list {
				if s == sub {
					b.subs[workflowID] = append(list[:i], list[i+1:]...)
					break
				}
			}
			if len(b.subs[workflowID]) == 0 {
				delete(b.subs, workflowID)
			}
			b.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Publish delivers the event to every matching subscriber. Delivery is
// non-blocking: a subscriber with a full buffer loses the event instead of
// stalling the workflow.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, key := range []string{evt.WorkflowID, ""} {
		for _, sub := range b.subs[key] {
			select {
			case sub.ch <- evt:
			default:
				b.dropped.Add(1)
			}
		}
	}
}

// Dropped reports how many events were lost to full subscriber buffers over
// the bus's lifetime. Publish holds only a read lock, so the counter is
// atomic.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, list := range b.subs {
		for _, sub := range list {
			close(sub.ch)
		}
	}
	b.subs = make(map[string][]*subscription)
}
