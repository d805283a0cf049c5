package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dashmon/internal/clockwork"
	"dashmon/internal/faults"
	"dashmon/internal/notices"
	"dashmon/internal/telemetry"
	"dashmon/pkg/logx"
)

func newTestDeps(t *testing.T) (*telemetry.Store, *faults.Handler, *notices.Store) {
	t.Helper()
	clk := clockwork.NewManualAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	noticeStore := notices.NewStore(clk, nil)
	handler := faults.NewHandler(faults.Config{NoticeRatePerSec: 1000}, logx.Nop(), noticeStore, clk)
	return telemetry.NewStore(20, clk, nil), handler, noticeStore
}

func TestScanEventsFraming(t *testing.T) {
	input := strings.Join([]string{
		": heartbeat",
		"id: 1",
		"event: tool_called",
		`data: {"type":"tool_called",`,
		`data: "name":"search"}`,
		"",
		"id: 2",
		`data: {"type":"error","message":"boom"}`,
		"",
	}, "\n")

	var got []wireEvent
	if err := scanEvents(strings.NewReader(input), func(ev wireEvent) { got = append(got, ev) }); err != nil {
		t.Fatalf("scanEvents: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("frames = %d, want 2", len(got))
	}
	if got[0].id != "1" || got[0].name != "tool_called" {
		t.Fatalf("frame 0 header: %+v", got[0])
	}
	want := `{"type":"tool_called",` + "\n" + `"name":"search"}`
	if string(got[0].data) != want {
		t.Fatalf("multi-line data joined wrong:\n got %q\nwant %q", got[0].data, want)
	}
	if got[1].id != "2" {
		t.Fatalf("frame 1 id = %q", got[1].id)
	}
}

func TestNextDelayBackoff(t *testing.T) {
	limit := 30 * time.Second
	delays := []time.Duration{time.Second}
	for i := 0; i < 7; i++ {
		delays = append(delays, nextDelay(delays[len(delays)-1], limit))
	}

	want := []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 30 * time.Second, 30 * time.Second, 30 * time.Second,
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("delay[%d] = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestConsumeFeedsStore(t *testing.T) {
	store, handler, _ := newTestDeps(t)
	s := NewStreamer(StreamConfig{URL: "http://unused"}, store, handler, nil, logx.Nop())

	input := strings.Join([]string{
		"id: 41",
		`data: {"type":"tool_called","name":"search","id":"41"}`,
		"",
		"id: 42",
		`data: {"type":"resource_accessed","uri":"file:///tmp/x"}`,
		"",
	}, "\n")

	if err := s.consume(strings.NewReader(input)); err != nil {
		t.Fatalf("consume: %v", err)
	}

	evs := store.Events()
	if len(evs) != 2 {
		t.Fatalf("events = %d, want 2", len(evs))
	}
	if evs[0].Type != "resource_accessed" || evs[1].Type != "tool_called" {
		t.Fatalf("ingest order wrong: %+v", evs)
	}
	if s.LastEventID() != "42" {
		t.Fatalf("last event id = %q, want 42", s.LastEventID())
	}
}

func TestConsumeSurvivesBadPayload(t *testing.T) {
	store, handler, noticeStore := newTestDeps(t)
	s := NewStreamer(StreamConfig{URL: "http://unused"}, store, handler, nil, logx.Nop())

	input := strings.Join([]string{
		"data: {not json at all",
		"",
		`data: {"type":"info","message":"after the garbage"}`,
		"",
	}, "\n")

	_ = s.consume(strings.NewReader(input))

	evs := store.Events()
	if len(evs) != 1 {
		t.Fatalf("stream died on bad payload: events = %d", len(evs))
	}
	if evs[0].Message != "after the garbage" {
		t.Fatalf("wrong surviving event: %+v", evs[0])
	}
	// The bad frame surfaced as a low-severity toast, not a crash.
	list := noticeStore.List()
	if len(list) != 1 || list[0].Type != notices.TypeInfo {
		t.Fatalf("bad payload notice: %+v", list)
	}
}

func TestEventNameFillsMissingType(t *testing.T) {
	store, handler, _ := newTestDeps(t)
	s := NewStreamer(StreamConfig{URL: "http://unused"}, store, handler, nil, logx.Nop())

	input := strings.Join([]string{
		"event: mcp_connected",
		`data: {"timestamp":"2025-06-01T11:00:00Z"}`,
		"",
	}, "\n")
	_ = s.consume(strings.NewReader(input))

	evs := store.Events()
	if len(evs) != 1 || evs[0].Type != "mcp_connected" {
		t.Fatalf("event name not applied as type: %+v", evs)
	}
}

func TestConnectStreamsAndResumes(t *testing.T) {
	store, handler, _ := newTestDeps(t)

	var lastSeen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastSeen = r.Header.Get("Last-Event-ID")
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "id: 7\n")
		fmt.Fprint(w, `data: {"type":"info","message":"hello"}`+"\n\n")
	}))
	defer srv.Close()

	s := NewStreamer(StreamConfig{URL: srv.URL}, store, handler, nil, logx.Nop())

	connected, err := s.connect(context.Background())
	if !connected {
		t.Fatalf("connect reported failure: %v", err)
	}
	if err == nil {
		t.Fatalf("server closed the stream; connect should report it")
	}
	if store.Len() != 1 {
		t.Fatalf("streamed event not stored")
	}

	// Second connect resumes from the last id.
	_, _ = s.connect(context.Background())
	if lastSeen != "7" {
		t.Fatalf("Last-Event-ID = %q, want 7", lastSeen)
	}
}

func TestConnectRejectsWrongContentType(t *testing.T) {
	store, handler, _ := newTestDeps(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html>nope</html>")
	}))
	defer srv.Close()

	s := NewStreamer(StreamConfig{URL: srv.URL}, store, handler, nil, logx.Nop())
	connected, err := s.connect(context.Background())
	if connected || err == nil {
		t.Fatalf("connect accepted a non-SSE response: connected=%v err=%v", connected, err)
	}
	if store.Len() != 0 {
		t.Fatalf("junk response fed the store")
	}
}
