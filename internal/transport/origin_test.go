package transport

import "testing"

func TestOriginAllowList(t *testing.T) {
	p := NewOriginPolicy([]string{"http://localhost:8080", "http://127.0.0.1:8080"}, false)

	if !p.Allow("http://localhost:8080") {
		t.Fatalf("allow-listed origin refused")
	}
	if p.Allow("http://malicious.com") {
		t.Fatalf("unlisted origin accepted")
	}
}

func TestOriginMissingHeaderRefused(t *testing.T) {
	p := NewOriginPolicy([]string{"http://localhost:8080"}, false)
	if p.Allow("") {
		t.Fatalf("handshake without origin must be refused in production")
	}
}

func TestOriginDevModeAllowsAnything(t *testing.T) {
	p := NewOriginPolicy([]string{"http://localhost:8080"}, true)

	if !p.Allow("http://malicious.com") {
		t.Fatalf("dev mode should allow any origin")
	}
	if !p.Allow("") {
		t.Fatalf("dev mode should allow a missing origin")
	}
}

func TestOriginMultipleAllowed(t *testing.T) {
	p := NewOriginPolicy([]string{
		"http://localhost:8080",
		"http://127.0.0.1:8080",
		"https://example.com",
	}, false)

	for _, o := range []string{"http://localhost:8080", "http://127.0.0.1:8080", "https://example.com"} {
		if !p.Allow(o) {
			t.Fatalf("origin %q refused", o)
		}
	}
	if p.Allow("https://example.org") {
		t.Fatalf("near-miss origin accepted")
	}
}

func TestOriginNormalization(t *testing.T) {
	p := NewOriginPolicy([]string{"http://localhost:8080/"}, false)

	if !p.Allow("HTTP://Localhost:8080") {
		t.Fatalf("case/slash variants of an allowed origin refused")
	}
}
