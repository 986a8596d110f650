// Package protocol defines the WebSocket message envelope pushed to clients
// of the HTTP API.
package protocol

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// TypeRecordState notifies clients that recording started or stopped
	TypeRecordState MessageType = "record_state"

	// TypePlayState notifies clients that playback started, finished or aborted
	TypePlayState MessageType = "play_state"

	// TypeProgress carries per-unit playback progress
	TypeProgress MessageType = "progress"

	// TypePing can be used for application-level heartbeats if needed
	TypePing MessageType = "ping"
)

// Message is the generic container for all WebSocket messages
type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// RecordStatePayload is the payload for TypeRecordState
type RecordStatePayload struct {
	Recording bool `json:"recording"`
	Units     int  `json:"units,omitempty"`
}

// PlayStatePayload is the payload for TypePlayState
type PlayStatePayload struct {
	Playing    bool   `json:"playing"`
	WorkflowID string `json:"workflow_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ProgressPayload is the payload for TypeProgress
type ProgressPayload struct {
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Message   string `json:"message,omitempty"`
}
