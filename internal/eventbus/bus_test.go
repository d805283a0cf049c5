package eventbus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(4)
	defer unsub()

	b.Publish(Signal{Topic: TopicEventAdded, Data: "payload"})

	select {
	case s := <-ch:
		if s.Topic != TopicEventAdded || s.Data != "payload" {
			t.Fatalf("got %+v", s)
		}
		if s.Time.IsZero() {
			t.Fatalf("publish did not stamp time")
		}
	case <-time.After(time.Second):
		t.Fatalf("signal never delivered")
	}
}

func TestSlowSubscriberDrops(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Signal{Topic: "a"})
	b.Publish(Signal{Topic: "b"}) // buffer full: dropped, not blocked

	s := <-ch
	if s.Topic != "a" {
		t.Fatalf("first signal = %q", s.Topic)
	}
	select {
	case s := <-ch:
		t.Fatalf("unexpected second signal %q", s.Topic)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(1)

	unsub()
	unsub() // idempotent

	if _, ok := <-ch; ok {
		t.Fatalf("channel still open after unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	b.Publish(Signal{Topic: "late"})
}

func TestFanout(t *testing.T) {
	b := New()
	a, ua := b.Subscribe(1)
	c, uc := b.Subscribe(1)
	defer ua()
	defer uc()

	b.Publish(Signal{Topic: "x"})

	if s := <-a; s.Topic != "x" {
		t.Fatalf("subscriber a got %q", s.Topic)
	}
	if s := <-c; s.Topic != "x" {
		t.Fatalf("subscriber c got %q", s.Topic)
	}
}
