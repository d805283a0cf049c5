package telemetry

import (
	"strconv"
	"sync"

	"dashmon/internal/clockwork"
	"dashmon/internal/eventbus"
)

// DefaultCapacity bounds the visible event history.
const DefaultCapacity = 20

// Store keeps the most recent sanitized events, newest first. A single mutex
// serializes all access; callbacks from the transport, timers, and the UI may
// land on different goroutines.
type Store struct {
	mu       sync.Mutex
	events   []Event
	capacity int
	nextID   int64

	san *Sanitizer
	bus eventbus.Bus
}

func NewStore(capacity int, clk clockwork.Clock, bus eventbus.Bus) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		nextID:   1,
		san:      NewSanitizer(clk),
		bus:      bus,
	}
}

// Add sanitizes raw and prepends the result, evicting the oldest entry when
// the store is full. It reports false for junk that has no sensible event
// shape at all (nil, scalars); those are rejected outright so they never
// pollute the visible history, unlike map payloads with bad fields, which
// the sanitizer repairs.
func (s *Store) Add(raw any) bool {
	switch raw.(type) {
	case map[string]any, Event, *Event:
	default:
		return false
	}
	if p, ok := raw.(*Event); ok && p == nil {
		return false
	}

	ev := s.san.Sanitize(raw)

	s.mu.Lock()
	if ev.ID == "" {
		ev.ID = strconv.FormatInt(s.nextID, 10)
	}
	s.nextID++

	s.events = append([]Event{ev}, s.events...)
	if len(s.events) > s.capacity {
		s.events = s.events[:s.capacity]
	}
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(eventbus.Signal{Topic: eventbus.TopicEventAdded, Data: ev})
	}
	return true
}

// Events returns a newest-first copy; callers cannot mutate store state
// through it.
func (s *Store) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *Store) Clear() {
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(eventbus.Signal{Topic: eventbus.TopicEventsCleared})
	}
}
