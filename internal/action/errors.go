package action

import "errors"

// Error taxonomy shared by the recorder and player. Per-unit and per-action
// failures wrap these sentinels and are isolated at unit granularity; only
// session setup/teardown failures abort a Start or Play call.
var (
	// ErrSessionConflict is returned when a recording or playback start is
	// requested while one is already active. Conflicting starts are rejected,
	// never queued.
	ErrSessionConflict = errors.New("session already active")

	// ErrMalformedPayload marks a task unit whose payload failed to
	// deserialize. The unit is skipped and the workflow continues.
	ErrMalformedPayload = errors.New("malformed task payload")

	// ErrUnresolvableKey marks a key name absent from the symbolic table.
	ErrUnresolvableKey = errors.New("unresolvable key code")

	// ErrInjection marks a failed OS-level input injection call.
	ErrInjection = errors.New("input injection failed")

	// ErrNoDesktopMetrics marks an unavailable virtual-desktop size query.
	// Coordinates are used unscaled when this occurs.
	ErrNoDesktopMetrics = errors.New("virtual desktop metrics unavailable")
)
