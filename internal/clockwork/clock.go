// Package clockwork abstracts wall-clock access so expiry timers and
// breaker cooldowns can be driven deterministically in tests.
package clockwork

import (
	"sort"
	"sync"
	"time"
)

// Clock is the time source used by every component that arms timers or
// compares instants. Production code uses Real(); tests use a Manual clock.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	// AfterFunc arms a single-shot timer. The returned Timer must be
	// stoppable; Stop reports whether the call prevented the fire.
	AfterFunc(d time.Duration, fn func()) Timer
}

type Timer interface {
	Stop() bool
}

// ---- real clock ----

type realClock struct{}

func Real() Clock { return realClock{} }

func (realClock) Now() time.Time                  { return time.Now() }
func (realClock) Since(t time.Time) time.Duration { return time.Since(t) }

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return realTimer{t: time.AfterFunc(d, fn)}
}

type realTimer struct{ t *time.Timer }

func (r realTimer) Stop() bool { return r.t.Stop() }

// ---- manual clock (tests) ----

// Manual provides deterministic time control. Advance() moves the clock
// forward and fires, in deadline order, every timer that came due.
// Callbacks run synchronously on the advancing goroutine with no locks held.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers map[int]*manualTimer
}

func NewManual() *Manual {
	return NewManualAt(time.Now())
}

func NewManualAt(t time.Time) *Manual {
	return &Manual{now: t, timers: map[int]*manualTimer{}}
}

func (c *Manual) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Manual) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

func (c *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	mt := &manualTimer{clock: c, id: c.seq, at: c.now.Add(d), fn: fn}
	if d <= 0 {
		// Due immediately; still deliver via Advance(0) semantics so the
		// caller's lock is not re-entered from inside AfterFunc.
		mt.at = c.now
	}
	c.timers[mt.id] = mt
	return mt
}

// Advance moves the clock forward by d and fires due timers in deadline order.
func (c *Manual) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	deadline := c.now

	due := make([]*manualTimer, 0, len(c.timers))
	for _, t := range c.timers {
		if !t.at.After(deadline) {
			due = append(due, t)
		}
	}
	for _, t := range due {
		delete(c.timers, t.id)
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].at.Equal(due[j].at) {
			return due[i].id < due[j].id
		}
		return due[i].at.Before(due[j].at)
	})
	for _, t := range due {
		t.fn()
	}
}

// Set jumps the clock to an absolute instant without firing timers.
// Useful for constructing histories; prefer Advance in behavioral tests.
func (c *Manual) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Pending reports the number of armed timers, for leak assertions.
func (c *Manual) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

type manualTimer struct {
	clock *Manual
	id    int
	at    time.Time
	fn    func()
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if _, ok := t.clock.timers[t.id]; !ok {
		return false
	}
	delete(t.clock.timers, t.id)
	return true
}
