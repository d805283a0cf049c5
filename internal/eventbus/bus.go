package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Topics published by the resilience core. The rendering layer subscribes to
// these instead of reaching into store internals.
const (
	TopicEventAdded    = "events.added"
	TopicEventsCleared = "events.cleared"
	TopicNoticeAdded   = "notices.added"
	TopicNoticeRemoved = "notices.removed"
	TopicConnected     = "transport.connected"
	TopicDisconnected  = "transport.disconnected"
	TopicConfigApplied = "config.applied"
)

// Signal is a lightweight, in-memory notification used to decouple the stores
// from whatever renders them.
//
// Contract:
//   - Publish MUST be non-blocking.
//   - Subscribers MUST use buffered channels.
//   - Slow subscribers may drop signals (bounded backpressure).
//
// Data should be small and ideally JSON-serializable.
type Signal struct {
	Topic string
	Time  time.Time
	Data  any
}

type Bus interface {
	Publish(s Signal)
	Subscribe(buffer int) (ch <-chan Signal, unsubscribe func())
}

// New returns a simple in-memory fanout bus.
//
// It intentionally does not own any background goroutines.
func New() Bus {
	return &memBus{subs: map[uint64]chan Signal{}}
}

type memBus struct {
	mu   sync.RWMutex
	subs map[uint64]chan Signal
	seq  atomic.Uint64
}

func (b *memBus) Publish(s Signal) {
	if s.Time.IsZero() {
		s.Time = time.Now()
	}
	// Snapshot subscribers so Publish doesn't hold locks while attempting sends.
	b.mu.RLock()
	chs := make([]chan Signal, 0, len(b.subs))
	for _, ch := range b.subs {
		chs = append(chs, ch)
	}
	b.mu.RUnlock()

	for _, ch := range chs {
		// Non-blocking delivery. If subscriber is slow, we drop.
		// If a subscriber unsubscribes concurrently and the channel closes,
		// recover from a possible panic (send on closed channel).
		func() {
			defer func() { _ = recover() }()
			select {
			case ch <- s:
			default:
			}
		}()
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Signal, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Signal, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			// Closing is safe because Publish recovers from send panics.
			close(ch)
		})
	}
	return ch, unsub
}
