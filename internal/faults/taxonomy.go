// Package faults normalizes raw failures into a typed taxonomy, decides what
// the user is shown, and trips a per-component circuit breaker when one
// source of errors becomes too noisy.
package faults

import (
	"fmt"
	"strings"
	"time"
)

type Type string

const (
	TypeValidation Type = "VALIDATION"
	TypeNetwork    Type = "NETWORK"
	TypeSecurity   Type = "SECURITY"
	TypeSystem     Type = "SYSTEM"
	TypeUser       Type = "USER"
	TypeUnknown    Type = "UNKNOWN"
)

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Failure is the normalized error representation. It is built once at the
// classification boundary and never mutated; downstream code switches on
// Type instead of probing raw error shapes.
type Failure struct {
	Message   string
	Type      Type
	Severity  Severity
	Details   map[string]any
	Timestamp time.Time

	// UserMessage is derived from Type alone (User failures excepted), so
	// raw internals never leak into the UI.
	UserMessage string
}

func (f *Failure) Error() string { return f.Message }

// New builds a Failure with an explicit taxonomy tag. Callers that know what
// went wrong should use this; Classify's string sniffing is the fallback.
func New(typ Type, sev Severity, message string) *Failure {
	return &Failure{
		Message:     message,
		Type:        typ,
		Severity:    sev,
		Timestamp:   time.Now(),
		UserMessage: userMessage(typ, message),
	}
}

// WithDetails attaches opaque structured context. Returns f for chaining.
func (f *Failure) WithDetails(details map[string]any) *Failure {
	f.Details = details
	return f
}

// Classify normalizes anything into a Failure. Already-classified values
// pass through unchanged. Classification itself never fails; a value it
// cannot make sense of degrades to Unknown.
func Classify(raw any) *Failure {
	switch v := raw.(type) {
	case *Failure:
		return v
	case Failure:
		return &v
	case error:
		typ, sev := sniff(v.Error())
		return New(typ, sev, v.Error())
	case string:
		typ, sev := sniff(v)
		return New(typ, sev, v)
	case nil:
		return New(TypeUnknown, SeverityMedium, "unknown error")
	default:
		msg := fmt.Sprintf("%v", v)
		typ, sev := sniff(msg)
		return New(typ, sev, msg)
	}
}

// sniff is the best-effort substring heuristic for untagged failures. It is
// deliberately ordered: security beats network beats validation.
func sniff(message string) (Type, Severity) {
	m := strings.ToLower(message)
	switch {
	case containsAny(m, "permission", "unauthorized", "security"):
		if looksLikeInjection(m) {
			return TypeSecurity, SeverityCritical
		}
		return TypeSecurity, SeverityHigh
	case containsAny(m, "network", "fetch"):
		return TypeNetwork, SeverityMedium
	case strings.Contains(m, "valid"): // matches "valid" and "invalid"
		return TypeValidation, SeverityLow
	default:
		return TypeUnknown, SeverityMedium
	}
}

// looksLikeInjection flags messages that carry active exploit markers, which
// escalates a security failure to critical.
func looksLikeInjection(m string) bool {
	return containsAny(m, "<script", "javascript:", "onerror=", "onload=")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func userMessage(typ Type, raw string) string {
	switch typ {
	case TypeValidation:
		return "Please check your input and try again."
	case TypeNetwork:
		return "Network connection issue. Please try again."
	case TypeSecurity:
		return "Security error. Please contact support."
	case TypeUser:
		// User failures are raised deliberately with text meant for the
		// end user; pass it through.
		if strings.TrimSpace(raw) != "" {
			return raw
		}
		return "An unexpected error occurred. Please try again."
	default:
		return "An unexpected error occurred. Please try again."
	}
}
