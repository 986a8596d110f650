// Package action defines the data model shared by the recorder and player:
// raw mouse samples, keyboard transitions, homogeneous action groups, persisted
// task units and the unified replay primitive.
package action

import "encoding/json"

// MouseActionKind identifies what a mouse sample represents.
type MouseActionKind string

const (
	MouseMove  MouseActionKind = "move"
	MouseDown  MouseActionKind = "down"
	MouseUp    MouseActionKind = "up"
	MouseWheel MouseActionKind = "wheel"
)

// MouseButton identifies a physical mouse button.
type MouseButton string

const (
	ButtonNone   MouseButton = "none"
	ButtonLeft   MouseButton = "left"
	ButtonRight  MouseButton = "right"
	ButtonMiddle MouseButton = "middle"
)

// MouseSample is one polled mouse observation, timestamped relative to the
// start of the recording session.
type MouseSample struct {
	X      float64         `json:"x"`
	Y      float64         `json:"y"`
	Kind   MouseActionKind `json:"kind"`
	Button MouseButton     `json:"button"`
	Scroll int             `json:"scroll,omitempty"`
	TimeMs int64           `json:"t"`
}

// KeyTransitionKind identifies the direction of a keyboard transition.
type KeyTransitionKind string

const (
	KeyDown  KeyTransitionKind = "down"
	KeyUp    KeyTransitionKind = "up"
	KeyPress KeyTransitionKind = "press"
)

// KeyTransition is one keyboard event. Key holds either a symbolic key name
// from the static table, or, when DirectText is set, a literal printable
// character to be typed verbatim.
type KeyTransition struct {
	Key        string            `json:"key"`
	Kind       KeyTransitionKind `json:"kind"`
	Shift      bool              `json:"shift,omitempty"`
	Ctrl       bool              `json:"ctrl,omitempty"`
	Alt        bool              `json:"alt,omitempty"`
	Win        bool              `json:"win,omitempty"`
	TimeMs     int64             `json:"t"`
	DirectText bool              `json:"direct_text,omitempty"`
}

// GroupKind identifies which input source an action group was recorded from.
type GroupKind string

const (
	GroupMouse    GroupKind = "mouse"
	GroupKeyboard GroupKind = "keyboard"
)

// ActionGroup is a maximal run of same-kind raw input recorded contiguously in
// time. A group is homogeneous: Samples is populated for mouse groups,
// Transitions for keyboard groups, never both.
type ActionGroup struct {
	Kind        GroupKind       `json:"kind"`
	StartMs     int64           `json:"start_ms"`
	EndMs       int64           `json:"end_ms"`
	Samples     []MouseSample   `json:"samples,omitempty"`
	Transitions []KeyTransition `json:"transitions,omitempty"`
}

// Empty reports whether the group carries no events.
func (g ActionGroup) Empty() bool {
	return len(g.Samples) == 0 && len(g.Transitions) == 0
}

// TaskKind identifies the replayable unit type stored by the persistence layer.
type TaskKind string

const (
	TaskMouseMovement TaskKind = "mouse_movement"
	TaskKeyboardInput TaskKind = "keyboard_input"
	TaskDelay         TaskKind = "delay"
	TaskAiDecision    TaskKind = "ai_decision"
)

// TaskUnit is the persisted, replayable unit derived from one action group or
// an explicit delay. Sequence is a dense 1-based ordering. DelayBeforeMs is
// the gap from the end of the previous unit's recorded window (or from
// recording start for the first unit); it is stored unclamped and floored at
// zero only during playback.
type TaskUnit struct {
	Kind          TaskKind        `json:"kind"`
	Sequence      int             `json:"seq"`
	DelayBeforeMs int64           `json:"delay_before_ms"`
	DurationMs    int64           `json:"duration_ms"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// MousePayload is the serialized body of a TaskMouseMovement unit.
type MousePayload struct {
	StartMs int64         `json:"start_ms"`
	EndMs   int64         `json:"end_ms"`
	Samples []MouseSample `json:"samples"`
}

// KeyboardPayload is the serialized body of a TaskKeyboardInput unit.
type KeyboardPayload struct {
	StartMs     int64           `json:"start_ms"`
	EndMs       int64           `json:"end_ms"`
	Transitions []KeyTransition `json:"transitions"`
}

// DelayPayload is the serialized body of a TaskDelay unit.
type DelayPayload struct {
	DurationMs int64 `json:"duration_ms"`
}

// DecisionPayload is the serialized body of a TaskAiDecision unit. Screenshot
// bytes and criteria are opaque pass-through values for the external decision
// collaborator.
type DecisionPayload struct {
	Criteria   string `json:"criteria"`
	Screenshot []byte `json:"screenshot,omitempty"`
}

// ReplayKind identifies a unified playback primitive.
type ReplayKind string

const (
	ReplayKeyDown    ReplayKind = "key_down"
	ReplayKeyUp      ReplayKind = "key_up"
	ReplayKeyPress   ReplayKind = "key_press"
	ReplayMouseMove  ReplayKind = "mouse_move"
	ReplayMouseDown  ReplayKind = "mouse_down"
	ReplayMouseUp    ReplayKind = "mouse_up"
	ReplayMouseWheel ReplayKind = "mouse_wheel"
	ReplayTypeText   ReplayKind = "type_text"
	ReplayWait       ReplayKind = "wait"
)

// ReplayAction is the unified playback primitive built fresh from a TaskUnit
// for each playback invocation. Only the fields relevant to Kind are
// meaningful; the rest are ignored. DelayBeforeMs is clamped to zero at
// playback time.
type ReplayAction struct {
	Kind          ReplayKind
	DelayBeforeMs int64
	X, Y          float64
	Button        MouseButton
	Key           string
	VK            uint16
	Text          string
	Scroll        int
}
