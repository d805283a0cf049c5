// Package transport owns the live connection to the monitoring backend: an
// SSE pull stream with reconnect/backoff, and an optional websocket push
// listener guarded by an origin allow-list.
package transport

import (
	"net/http"
	"strings"
)

// OriginPolicy decides whether a push handshake's declared origin is
// acceptable. Outside dev mode the policy is strict: no Origin header means
// no connection.
type OriginPolicy struct {
	allowed map[string]struct{}
	dev     bool
}

func NewOriginPolicy(allowed []string, devMode bool) OriginPolicy {
	m := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o = normalizeOrigin(o); o != "" {
			m[o] = struct{}{}
		}
	}
	return OriginPolicy{allowed: m, dev: devMode}
}

// Allow reports whether a handshake declaring origin may proceed.
func (p OriginPolicy) Allow(origin string) bool {
	if p.dev {
		return true
	}
	o := normalizeOrigin(origin)
	if o == "" {
		return false
	}
	_, ok := p.allowed[o]
	return ok
}

// AllowRequest applies Allow to the request's Origin header.
func (p OriginPolicy) AllowRequest(r *http.Request) bool {
	return p.Allow(r.Header.Get("Origin"))
}

// normalizeOrigin lowercases scheme+host and strips a trailing slash so
// "HTTP://Localhost:8080/" matches "http://localhost:8080".
func normalizeOrigin(origin string) string {
	o := strings.TrimSpace(origin)
	o = strings.TrimSuffix(o, "/")
	return strings.ToLower(o)
}
