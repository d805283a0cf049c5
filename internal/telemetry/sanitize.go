package telemetry

import (
	"fmt"
	"strings"
	"time"

	"dashmon/internal/clockwork"
)

const (
	// maxFieldLen is the visible length cap for every string field.
	// Longer values are truncated and suffixed with "...".
	maxFieldLen = 500

	fallbackMessage = "Failed to process event data"
)

// htmlEscaper runs in a single pass, so "&" inside an entity produced by an
// earlier replacement is never re-escaped.
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// Sanitizer turns untrusted payloads into Events. It never fails: input it
// cannot make sense of becomes a fallback error Event. The only ambient
// dependency is the clock, used to repair missing or unparsable timestamps.
type Sanitizer struct {
	clock clockwork.Clock
}

func NewSanitizer(clk clockwork.Clock) *Sanitizer {
	if clk == nil {
		clk = clockwork.Real()
	}
	return &Sanitizer{clock: clk}
}

// Sanitize cleans raw into an Event.
//
// Maps go through the full pipeline: allow-listed fields only, HTML escape,
// length cap, timestamp normalization. An Event passed back in is treated as
// already escaped (escaping is not idempotent) and only re-capped and
// re-normalized, which makes Sanitize as a whole idempotent.
func (s *Sanitizer) Sanitize(raw any) Event {
	switch v := raw.(type) {
	case Event:
		return Event{
			ID:        capLen(v.ID),
			Type:      capLen(v.Type),
			Name:      capLen(v.Name),
			Message:   capLen(v.Message),
			URI:       capLen(v.URI),
			Timestamp: s.normalizeTimestamp(v.Timestamp),
		}
	case *Event:
		if v == nil {
			return s.fallback()
		}
		return s.Sanitize(*v)
	case map[string]any:
		return s.fromMap(v)
	default:
		return s.fallback()
	}
}

func (s *Sanitizer) fromMap(m map[string]any) Event {
	// Allow-list: fields not named here never make it into an Event, so a
	// hostile payload cannot smuggle new keys past the pipeline.
	return Event{
		ID:        cleanField(m["id"]),
		Type:      cleanField(m["type"]),
		Name:      cleanField(m["name"]),
		Message:   cleanField(m["message"]),
		URI:       cleanField(m["uri"]),
		Timestamp: s.normalizeTimestamp(stringify(m["timestamp"])),
	}
}

func (s *Sanitizer) fallback() Event {
	return Event{
		Type:      TypeError,
		Message:   fallbackMessage,
		Timestamp: s.clock.Now().UTC().Format(time.RFC3339Nano),
	}
}

// cleanField escapes then caps a single untrusted value.
func cleanField(v any) string {
	str := stringify(v)
	if str == "" {
		return ""
	}
	return capLen(htmlEscaper.Replace(str))
}

// stringify coerces non-string scalars instead of rejecting them. JSON
// numbers arrive as float64; render integral ones without the trailing ".0".
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%v", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func capLen(s string) string {
	r := []rune(s)
	if len(r) <= maxFieldLen {
		return s
	}
	return string(r[:maxFieldLen]) + "..."
}

// normalizeTimestamp returns a canonical RFC 3339 instant. Anything that
// does not parse is replaced with the current time rather than propagated.
func (s *Sanitizer) normalizeTimestamp(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return t.Format(time.RFC3339Nano)
		}
	}
	return s.clock.Now().UTC().Format(time.RFC3339Nano)
}
