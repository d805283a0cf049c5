package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"dashmon/pkg/logx"
)

func newTestGate(t *testing.T, devMode bool) (*PushGate, *httptest.Server) {
	t.Helper()
	store, handler, _ := newTestDeps(t)
	gate := NewPushGate(
		NewOriginPolicy([]string{"http://localhost:8080"}, devMode),
		store, handler, nil, logx.Nop())
	srv := httptest.NewServer(gate)
	t.Cleanup(srv.Close)
	return gate, srv
}

func TestPushRefusesDisallowedOrigin(t *testing.T) {
	_, srv := newTestGate(t, false)

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set("Origin", "http://malicious.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestPushRefusesMissingOrigin(t *testing.T) {
	_, srv := newTestGate(t, false)

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestPushAcceptsAllowedOriginAndIngests(t *testing.T) {
	gate, srv := newTestGate(t, false)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{"Origin": []string{"http://localhost:8080"}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	msg := `{"type":"tool_called","name":"push-test"}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write: %v", err)
	}

	// Ingestion happens on the server goroutine; poll briefly.
	deadline := time.Now().Add(2 * time.Second)
	for gate.store.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("pushed event never reached the store")
		}
		time.Sleep(10 * time.Millisecond)
	}
	evs := gate.store.Events()
	if evs[0].Name != "push-test" {
		t.Fatalf("stored event: %+v", evs[0])
	}
}

func TestPushDevModeBypassesOriginCheck(t *testing.T) {
	_, srv := newTestGate(t, true)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{"Origin": []string{"http://malicious.com"}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dev mode refused the handshake: %v", err)
	}
	if resp != nil {
		defer resp.Body.Close()
	}
	conn.Close()
}
