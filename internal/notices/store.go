// Package notices holds short-lived user-facing messages (toasts). Entries
// expire on their own timers unless removed or cleared first.
package notices

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"dashmon/internal/clockwork"
	"dashmon/internal/eventbus"
)

type Type string

const (
	TypeInfo    Type = "info"
	TypeSuccess Type = "success"
	TypeWarning Type = "warning"
	TypeError   Type = "error"
)

const (
	// DefaultDuration applies when the caller passes 0.
	DefaultDuration = 5 * time.Second

	// maxMessageLen caps the visible message; longer text is truncated and
	// suffixed with "...".
	maxMessageLen = 1000

	// invalidMessage replaces non-string payloads. The store never rejects
	// an add; a broken caller gets a placeholder, not a panic.
	invalidMessage = "Invalid message format"
)

// Notice is one transient message. Duration <= 0 means it persists until
// explicitly removed.
type Notice struct {
	ID       string        `json:"id"`
	Message  string        `json:"message"`
	Type     Type          `json:"type"`
	Duration time.Duration `json:"duration"`
	At       time.Time     `json:"at"`
}

// Store owns the notices and one cancellable timer per expiring entry.
type Store struct {
	mu     sync.Mutex
	items  []Notice
	timers map[string]clockwork.Timer
	clock  clockwork.Clock
	bus    eventbus.Bus
	defDur time.Duration
}

func NewStore(clk clockwork.Clock, bus eventbus.Bus) *Store {
	if clk == nil {
		clk = clockwork.Real()
	}
	return &Store{
		timers: map[string]clockwork.Timer{},
		clock:  clk,
		bus:    bus,
		defDur: DefaultDuration,
	}
}

// SetDefaultDuration overrides the duration used when Add is called with 0.
func (s *Store) SetDefaultDuration(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	s.defDur = d
	s.mu.Unlock()
}

// Add stores a message and arms its expiry timer. Zero duration means the
// store default; negative means persist until removed.
func (s *Store) Add(message string, typ Type, duration time.Duration) string {
	switch typ {
	case TypeInfo, TypeSuccess, TypeWarning, TypeError:
	default:
		typ = TypeInfo
	}
	if duration == 0 {
		s.mu.Lock()
		duration = s.defDur
		s.mu.Unlock()
	}

	n := Notice{
		ID:       uuid.NewString(),
		Message:  capMessage(message),
		Type:     typ,
		Duration: duration,
		At:       s.clock.Now(),
	}

	s.mu.Lock()
	s.items = append(s.items, n)
	if duration > 0 {
		id := n.ID
		s.timers[id] = s.clock.AfterFunc(duration, func() { s.expire(id) })
	}
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(eventbus.Signal{Topic: eventbus.TopicNoticeAdded, Data: n})
	}
	return n.ID
}

// AddValue accepts an untyped payload. Anything that is not a string becomes
// the fixed placeholder text rather than an error.
func (s *Store) AddValue(message any, typ Type, duration time.Duration) string {
	text, ok := message.(string)
	if !ok {
		text = invalidMessage
	}
	return s.Add(text, typ, duration)
}

// Remove deletes the entry and cancels its timer. Removing an absent id is a
// no-op; the expiry callback relies on that when it loses the race.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	removed := s.removeLocked(id)
	s.mu.Unlock()

	if removed && s.bus != nil {
		s.bus.Publish(eventbus.Signal{Topic: eventbus.TopicNoticeRemoved, Data: id})
	}
}

func (s *Store) removeLocked(id string) bool {
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	for i, n := range s.items {
		if n.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// expire is the timer callback. Check-before-act: if Remove or Clear already
// dropped the entry, there is nothing left to mutate.
func (s *Store) expire(id string) {
	s.mu.Lock()
	delete(s.timers, id)
	removed := s.removeLocked(id)
	s.mu.Unlock()

	if removed && s.bus != nil {
		s.bus.Publish(eventbus.Signal{Topic: eventbus.TopicNoticeRemoved, Data: id})
	}
}

// Clear drops every entry and cancels every timer, so no stale callback can
// fire against the emptied store.
func (s *Store) Clear() {
	s.mu.Lock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.items = nil
	s.mu.Unlock()
}

// List returns a copy in insertion order.
func (s *Store) List() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notice, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Get returns the notice by id.
func (s *Store) Get(id string) (Notice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.items {
		if n.ID == id {
			return n, true
		}
	}
	return Notice{}, false
}

func capMessage(msg string) string {
	r := []rune(msg)
	if len(r) <= maxMessageLen {
		return msg
	}
	return string(r[:maxMessageLen]) + "..."
}
