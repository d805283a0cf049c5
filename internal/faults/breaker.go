package faults

import (
	"strings"
	"sync"
	"time"

	"dashmon/internal/clockwork"
)

const (
	// DefaultThreshold is how many failures a component may surface before
	// its breaker opens.
	DefaultThreshold = 5

	// DefaultCooldown is how long a component must stay quiet before its
	// counter is forgiven.
	DefaultCooldown = 60 * time.Second
)

// state tracks failures for a single component key.
type state struct {
	count     int
	lastError time.Time
}

// Breaker is a per-component circuit breaker over a cumulative failure
// counter. Once count exceeds the threshold the breaker is open: further
// failures from that component are not surfaced to the user (they are still
// logged by the handler). The first failure observed after the cooldown has
// elapsed since the last one resets the counter to 1 and closes the breaker.
//
// There is no sliding window; the counter only ever resets via cooldown.
type Breaker struct {
	mu        sync.Mutex
	states    map[string]*state
	threshold int
	cooldown  time.Duration
	clock     clockwork.Clock
}

func NewBreaker(threshold int, cooldown time.Duration, clk clockwork.Clock) *Breaker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if clk == nil {
		clk = clockwork.Real()
	}
	return &Breaker{
		states:    map[string]*state{},
		threshold: threshold,
		cooldown:  cooldown,
		clock:     clk,
	}
}

// ShouldHandle records one failure for component and reports whether the
// caller should proceed with user-visible handling.
func (b *Breaker) ShouldHandle(component string) bool {
	key := normalizeKey(component)
	now := b.clock.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	st := b.states[key]
	if st == nil {
		st = &state{}
		b.states[key] = st
	}

	// Quiet long enough: forgive the history before counting this failure.
	if st.count > 0 && now.Sub(st.lastError) > b.cooldown {
		st.count = 0
	}

	st.count++
	st.lastError = now
	return st.count <= b.threshold
}

// Open reports whether the component's breaker is currently open, without
// recording a failure.
func (b *Breaker) Open(component string) bool {
	key := normalizeKey(component)
	now := b.clock.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	st := b.states[key]
	if st == nil {
		return false
	}
	if now.Sub(st.lastError) > b.cooldown {
		return false
	}
	return st.count > b.threshold
}

// Count returns the current failure count for component.
func (b *Breaker) Count(component string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.states[normalizeKey(component)]; st != nil {
		return st.count
	}
	return 0
}

// Reset clears the component's counter. With no argument-like empty key it
// is a no-op; breakers otherwise live for the session.
func (b *Breaker) Reset(component string) {
	b.mu.Lock()
	delete(b.states, normalizeKey(component))
	b.mu.Unlock()
}

// Snapshot reports total tracked components and how many are open.
func (b *Breaker) Snapshot() (total, open int) {
	now := b.clock.Now()
	b.mu.Lock()
	defer b.mu.Unlock()
	total = len(b.states)
	for _, st := range b.states {
		if st.count > b.threshold && now.Sub(st.lastError) <= b.cooldown {
			open++
		}
	}
	return total, open
}

func normalizeKey(component string) string {
	k := strings.TrimSpace(component)
	if k == "" {
		return "global"
	}
	return k
}
