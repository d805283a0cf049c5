package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"dashmon/internal/eventbus"
	"dashmon/internal/faults"
	"dashmon/internal/telemetry"
	"dashmon/pkg/logx"
)

const componentName = "transport"

// StreamConfig tunes the SSE client.
type StreamConfig struct {
	URL string

	// ReconnectBase is the first retry delay; each failed attempt doubles
	// it up to ReconnectMax. A successful connect resets it.
	ReconnectBase time.Duration
	ReconnectMax  time.Duration
}

// Streamer consumes the backend's text/event-stream feed and pushes decoded
// payloads into the event store. Connection failures are funneled through
// the fault handler; the stream itself never dies to a bad payload.
type Streamer struct {
	cfg     StreamConfig
	client  *http.Client
	store   *telemetry.Store
	handler *faults.Handler
	bus     eventbus.Bus
	log     logx.Logger

	mu     sync.Mutex
	lastID string
}

func NewStreamer(cfg StreamConfig, store *telemetry.Store, handler *faults.Handler, bus eventbus.Bus, log logx.Logger) *Streamer {
	if cfg.ReconnectBase <= 0 {
		cfg.ReconnectBase = time.Second
	}
	if cfg.ReconnectMax <= 0 {
		cfg.ReconnectMax = 30 * time.Second
	}
	return &Streamer{
		cfg: cfg,
		// No overall timeout: the stream is long-lived by design.
		client:  &http.Client{},
		store:   store,
		handler: handler,
		bus:     bus,
		log:     log,
	}
}

// Run connects and reconnects until ctx is done.
func (s *Streamer) Run(ctx context.Context) error {
	delay := s.cfg.ReconnectBase
	for {
		connected, err := s.connect(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			s.handler.Process(
				faults.New(faults.TypeNetwork, faults.SeverityMedium, err.Error()),
				componentName, "stream")
		}
		if connected {
			// The backend was reachable; start the backoff ladder over.
			delay = s.cfg.ReconnectBase
		}
		s.publish(eventbus.TopicDisconnected, nil)

		s.log.Debug("stream reconnect scheduled", logx.Duration("delay", delay))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = nextDelay(delay, s.cfg.ReconnectMax)
	}
}

// connect performs one streaming GET. connected reports whether the
// handshake succeeded (used to reset backoff); err covers both handshake
// and mid-stream failures.
func (s *Streamer) connect(ctx context.Context) (connected bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL, nil)
	if err != nil {
		return false, fmt.Errorf("stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if last := s.LastEventID(); last != "" {
		req.Header.Set("Last-Event-ID", last)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("stream connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("stream connect: unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		return false, fmt.Errorf("stream connect: unexpected content type %q", ct)
	}

	s.log.Info("stream connected", logx.String("url", s.cfg.URL))
	s.publish(eventbus.TopicConnected, nil)

	if err := s.consume(resp.Body); err != nil {
		return true, fmt.Errorf("stream read: %w", err)
	}
	return true, fmt.Errorf("stream closed by server")
}

func (s *Streamer) consume(r io.Reader) error {
	return scanEvents(r, func(ev wireEvent) {
		if ev.id != "" {
			s.mu.Lock()
			s.lastID = ev.id
			s.mu.Unlock()
		}
		s.dispatch(ev)
	})
}

func (s *Streamer) dispatch(ev wireEvent) {
	if len(ev.data) == 0 {
		return
	}
	var payload map[string]any
	if err := json.Unmarshal(ev.data, &payload); err != nil {
		// A malformed frame must not kill the stream. Surface it as a
		// low-severity classified failure and move on.
		s.handler.Process(
			faults.New(faults.TypeValidation, faults.SeverityLow, "unparsable stream payload"),
			componentName, "dispatch")
		return
	}
	if _, ok := payload["type"]; !ok && ev.name != "" {
		payload["type"] = ev.name
	}
	s.store.Add(payload)
}

// LastEventID returns the most recent id seen on the stream, used for
// resume on reconnect.
func (s *Streamer) LastEventID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastID
}

func (s *Streamer) publish(topic string, data any) {
	if s.bus != nil {
		s.bus.Publish(eventbus.Signal{Topic: topic, Data: data})
	}
}

// nextDelay doubles the reconnect delay up to limit.
func nextDelay(cur, limit time.Duration) time.Duration {
	cur *= 2
	if cur > limit {
		return limit
	}
	return cur
}

// wireEvent is one SSE frame.
type wireEvent struct {
	id   string
	name string
	data []byte
}

// scanEvents parses the text/event-stream framing: "id:"/"event:"/"data:"
// lines accumulate until a blank line dispatches the frame. Comment lines
// (leading ':') are ignored. Multi-line data joins with '\n'.
func scanEvents(r io.Reader, emit func(wireEvent)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var cur wireEvent
	var data []string
	flush := func() {
		if len(data) > 0 || cur.id != "" || cur.name != "" {
			cur.data = []byte(strings.Join(data, "\n"))
			emit(cur)
		}
		cur = wireEvent{}
		data = nil
	}

	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, ":"):
			// heartbeat/comment
		case strings.HasPrefix(line, "id:"):
			cur.id = strings.TrimSpace(line[len("id:"):])
		case strings.HasPrefix(line, "event:"):
			cur.name = strings.TrimSpace(line[len("event:"):])
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	flush()
	return sc.Err()
}
