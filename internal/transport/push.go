package transport

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"dashmon/internal/eventbus"
	"dashmon/internal/faults"
	"dashmon/internal/telemetry"
	"dashmon/pkg/logx"
)

// PushGate accepts websocket pushes from the backend. The handshake origin
// is validated against the allow-list before the upgrade; a mismatch is a
// security failure and a refused connection, never a silent accept.
type PushGate struct {
	policy  OriginPolicy
	store   *telemetry.Store
	handler *faults.Handler
	bus     eventbus.Bus
	log     logx.Logger

	upgrader websocket.Upgrader
}

func NewPushGate(policy OriginPolicy, store *telemetry.Store, handler *faults.Handler, bus eventbus.Bus, log logx.Logger) *PushGate {
	return &PushGate{
		policy:  policy,
		store:   store,
		handler: handler,
		bus:     bus,
		log:     log,
		upgrader: websocket.Upgrader{
			// Origin is validated by the gate before Upgrade runs.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (g *PushGate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if !g.policy.Allow(origin) {
		g.handler.Process(
			faults.New(faults.TypeSecurity, faults.SeverityHigh,
				fmt.Sprintf("push handshake refused: origin %q not allowed", origin)),
			componentName, "push")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		g.log.Warn("push upgrade failed", logx.Err(err))
		return
	}

	id := uuid.NewString()
	g.log.Info("push client connected", logx.String("client", id), logx.String("origin", origin))
	if g.bus != nil {
		g.bus.Publish(eventbus.Signal{Topic: eventbus.TopicConnected, Data: id})
	}

	g.readLoop(id, conn)
}

func (g *PushGate) readLoop(id string, conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
		g.log.Info("push client disconnected", logx.String("client", id))
		if g.bus != nil {
			g.bus.Publish(eventbus.Signal{Topic: eventbus.TopicDisconnected, Data: id})
		}
	}()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		var payload map[string]any
		if err := json.Unmarshal(data, &payload); err != nil {
			g.handler.Process(
				faults.New(faults.TypeValidation, faults.SeverityLow, "unparsable push payload"),
				componentName, "push")
			continue
		}
		g.store.Add(payload)
	}
}
