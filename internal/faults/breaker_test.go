package faults

import (
	"testing"
	"time"

	"dashmon/internal/clockwork"
)

func newTestBreaker(t *testing.T) (*Breaker, *clockwork.Manual) {
	t.Helper()
	clk := clockwork.NewManualAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	return NewBreaker(5, 60*time.Second, clk), clk
}

func TestBreakerOpensPastThreshold(t *testing.T) {
	b, _ := newTestBreaker(t)

	for i := 1; i <= 5; i++ {
		if !b.ShouldHandle("widget") {
			t.Fatalf("failure %d suppressed before threshold", i)
		}
	}
	if b.ShouldHandle("widget") {
		t.Fatalf("6th failure passed; breaker should be open")
	}
	if !b.Open("widget") {
		t.Fatalf("Open() disagrees with ShouldHandle")
	}
}

func TestBreakerCooldownResets(t *testing.T) {
	b, clk := newTestBreaker(t)

	for i := 0; i < 6; i++ {
		b.ShouldHandle("widget")
	}
	if b.ShouldHandle("widget") {
		t.Fatalf("still inside cooldown, should stay suppressed")
	}

	clk.Advance(61 * time.Second)
	if !b.ShouldHandle("widget") {
		t.Fatalf("first failure after cooldown should be handled")
	}
	if got := b.Count("widget"); got != 1 {
		t.Fatalf("count after cooldown reset = %d, want 1", got)
	}
}

func TestBreakerCooldownNotElapsed(t *testing.T) {
	b, clk := newTestBreaker(t)

	for i := 0; i < 6; i++ {
		b.ShouldHandle("widget")
	}
	// Each failure refreshes lastError, so a noisy component never cools
	// down on its own.
	clk.Advance(59 * time.Second)
	if b.ShouldHandle("widget") {
		t.Fatalf("cooldown not elapsed; breaker should stay open")
	}
}

func TestBreakerKeysAreIndependent(t *testing.T) {
	b, _ := newTestBreaker(t)

	for i := 0; i < 6; i++ {
		b.ShouldHandle("noisy")
	}
	if !b.ShouldHandle("quiet") {
		t.Fatalf("unrelated component suppressed")
	}

	total, open := b.Snapshot()
	if total != 2 || open != 1 {
		t.Fatalf("snapshot = (%d, %d), want (2, 1)", total, open)
	}
}

func TestBreakerEmptyComponent(t *testing.T) {
	b, _ := newTestBreaker(t)

	// Empty and whitespace keys collapse into one shared bucket.
	for i := 0; i < 5; i++ {
		b.ShouldHandle("")
	}
	if b.ShouldHandle("  ") {
		t.Fatalf("anonymous failures should share one breaker")
	}
}

func TestBreakerReset(t *testing.T) {
	b, _ := newTestBreaker(t)

	for i := 0; i < 6; i++ {
		b.ShouldHandle("widget")
	}
	b.Reset("widget")
	if !b.ShouldHandle("widget") {
		t.Fatalf("Reset did not close the breaker")
	}
}
