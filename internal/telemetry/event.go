// Package telemetry holds the sanitized event model and the bounded,
// newest-first history the dashboard reads.
package telemetry

// Event types emitted by the monitoring backend. Unknown types are kept
// verbatim (after sanitization); the list below is the known vocabulary.
const (
	TypeToolCalled       = "tool_called"
	TypeResourceAccessed = "resource_accessed"
	TypeError            = "error"
	TypeInfo             = "info"
	TypeConnected        = "mcp_connected"
	TypeDisconnected     = "mcp_disconnected"
	TypeCustom           = "custom"
)

// Event is a sanitized telemetry record. Every field present passed the
// allow-list; string values are HTML-escaped and length-capped; Timestamp
// always parses as RFC 3339. Events are immutable once stored.
type Event struct {
	ID        string `json:"id,omitempty"`
	Type      string `json:"type"`
	Name      string `json:"name,omitempty"`
	Message   string `json:"message,omitempty"`
	URI       string `json:"uri,omitempty"`
	Timestamp string `json:"timestamp"`
}
