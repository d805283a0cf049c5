package faults

import (
	"errors"
	"testing"
)

func TestClassifySecurity(t *testing.T) {
	f := Classify(errors.New("permission denied"))
	if f.Type != TypeSecurity || f.Severity != SeverityHigh {
		t.Fatalf("got %s/%s, want SECURITY/HIGH", f.Type, f.Severity)
	}
	if f.UserMessage != "Security error. Please contact support." {
		t.Fatalf("user message = %q", f.UserMessage)
	}
}

func TestClassifyPriorityOrder(t *testing.T) {
	cases := []struct {
		msg  string
		typ  Type
		sev  Severity
		user string
	}{
		{"unauthorized access to resource", TypeSecurity, SeverityHigh, "Security error. Please contact support."},
		{"security check failed for invalid fetch", TypeSecurity, SeverityHigh, "Security error. Please contact support."},
		{"network timeout", TypeNetwork, SeverityMedium, "Network connection issue. Please try again."},
		{"fetch failed: 502", TypeNetwork, SeverityMedium, "Network connection issue. Please try again."},
		{"invalid input value", TypeValidation, SeverityLow, "Please check your input and try again."},
		{"field is not valid", TypeValidation, SeverityLow, "Please check your input and try again."},
		{"something exploded", TypeUnknown, SeverityMedium, "An unexpected error occurred. Please try again."},
	}
	for _, c := range cases {
		f := Classify(c.msg)
		if f.Type != c.typ || f.Severity != c.sev {
			t.Fatalf("Classify(%q) = %s/%s, want %s/%s", c.msg, f.Type, f.Severity, c.typ, c.sev)
		}
		if f.UserMessage != c.user {
			t.Fatalf("Classify(%q) user message = %q, want %q", c.msg, f.UserMessage, c.user)
		}
	}
}

func TestClassifyInjectionEscalates(t *testing.T) {
	f := Classify(`security violation: payload <script>alert(1)</script>`)
	if f.Type != TypeSecurity || f.Severity != SeverityCritical {
		t.Fatalf("got %s/%s, want SECURITY/CRITICAL", f.Type, f.Severity)
	}
}

func TestClassifyPassthrough(t *testing.T) {
	orig := New(TypeSystem, SeverityCritical, "invariant broken")
	if got := Classify(orig); got != orig {
		t.Fatalf("already-classified failure was re-classified")
	}
}

func TestClassifyNeverEmpty(t *testing.T) {
	for _, raw := range []any{nil, "", 42, struct{}{}} {
		f := Classify(raw)
		if f == nil || f.UserMessage == "" || f.Type == "" {
			t.Fatalf("Classify(%v) produced incomplete failure: %+v", raw, f)
		}
	}
}

func TestUserTypePassesMessageThrough(t *testing.T) {
	f := New(TypeUser, SeverityLow, "Saved. You can close this tab.")
	if f.UserMessage != "Saved. You can close this tab." {
		t.Fatalf("user failure message rewritten: %q", f.UserMessage)
	}
}

func TestExplicitTagBeatsSniffing(t *testing.T) {
	// The message smells like a network error, but the caller knows better.
	f := New(TypeValidation, SeverityLow, "network field missing")
	if f.Type != TypeValidation {
		t.Fatalf("explicit tag ignored: %s", f.Type)
	}
	if f.UserMessage != "Please check your input and try again." {
		t.Fatalf("user message = %q", f.UserMessage)
	}
}
