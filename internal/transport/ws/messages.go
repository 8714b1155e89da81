package ws

import "encoding/json"

// Event names on the wire.
const (
	EventMessage     = "message"      // chat and lifecycle messages, both directions
	EventReadyUpdate = "ready_update" // inbound ready flag and vote
)

// Frame is what the server writes: {"event": "...", "data": ...}.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ChatPayload is the data of an inbound message frame.
type ChatPayload struct {
	Data string `json:"data"`
}

// ReadyPayload is the data of an inbound ready_update frame.
type ReadyPayload struct {
	IsReady bool `json:"is_ready"`
	Vote    any  `json:"vote"`
}
