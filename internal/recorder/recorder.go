// Package recorder owns a recording session: it merges key-transition events
// from the global input hook with periodic cursor/button polling into a single
// timestamped timeline, segments the timeline into alternating mouse/keyboard
// action groups, and converts the groups into an ordered task-unit sequence on
// stop.
package recorder

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atomdellow/autodesktop/internal/action"
	"github.com/atomdellow/autodesktop/internal/config"
	"github.com/atomdellow/autodesktop/internal/hook"
	"github.com/atomdellow/autodesktop/internal/logging"
)

// drainWindow is how long Stop waits for in-flight poll ticks and hook
// callbacks to finish appending before the buffers are finalized.
const drainWindow = 100 * time.Millisecond

type pendingKey struct {
	shift bool
}

// Recorder captures one session at a time. The poll tick and the hook
// callback run on different goroutines; one mutex serializes every mutation
// of the session buffers and the active group kind.
type Recorder struct {
	hk  hook.Hook
	cfg config.RecorderConfig
	log *zap.Logger

	mu        sync.Mutex
	recording bool
	start     time.Time
	nowFn     func() time.Time

	subID  int
	stopCh chan struct{}
	doneCh chan struct{}

	groups     []action.ActionGroup
	activeKind action.GroupKind
	mouseBuf   []action.MouseSample
	keyBuf     []action.KeyTransition

	lastPtr hook.Pointer

	// pending tracks printable key-downs withheld until their key-up resolves
	// to a literal character.
	pending map[uint16]pendingKey

	shift, ctrl, alt, win bool
}

// New creates a recorder bound to the given hook.
func New(hk hook.Hook, cfg config.RecorderConfig) *Recorder {
	if cfg.PollIntervalMs <= 0 {
		cfg.PollIntervalMs = 30
	}
	if cfg.MoveThresholdPx <= 0 {
		cfg.MoveThresholdPx = 5
	}
	return &Recorder{
		hk:    hk,
		cfg:   cfg,
		log:   logging.Named("recorder"),
		nowFn: time.Now,
	}
}

// IsRecording reports whether a session is active.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Start begins a recording session. A second Start without an intervening
// Stop is rejected with ErrSessionConflict and leaves the active session
// untouched.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		return fmt.Errorf("%w: recording in progress", action.ErrSessionConflict)
	}

	// The session only becomes visible once the hook is up; a failed hook
	// start must not leave a half-open session for Stop to find.
	if err := r.hk.Start(); err != nil {
		return fmt.Errorf("failed to start input hook: %w", err)
	}

	// Reset session state and capture the pointer baseline before events can
	// arrive.
	r.groups = nil
	r.mouseBuf = nil
	r.keyBuf = nil
	r.activeKind = ""
	r.pending = make(map[uint16]pendingKey)
	r.shift, r.ctrl, r.alt, r.win = false, false, false, false
	r.start = r.nowFn()

	if ptr, err := r.hk.Pointer(); err == nil {
		r.lastPtr = ptr
	} else {
		r.lastPtr = hook.Pointer{}
		r.log.Warn("pointer baseline unavailable", zap.Error(err))
	}

	r.subID = r.hk.Subscribe(r.handleKey)
	r.recording = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})

	go r.pollLoop(r.stopCh, r.doneCh)

	r.log.Info("recording started",
		zap.Int("poll_interval_ms", r.cfg.PollIntervalMs),
		zap.Float64("move_threshold_px", r.cfg.MoveThresholdPx))
	return nil
}

// Stop halts polling, unsubscribes from the hook, finalizes the pending
// group and returns the session's ordered task units.
func (r *Recorder) Stop() ([]action.TaskUnit, error) {
	r.mu.Lock()
	if !r.recording || r.stopCh == nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("no recording in progress")
	}
	stopCh, doneCh, subID := r.stopCh, r.doneCh, r.subID
	// A nil stopCh marks a stop already in flight; concurrent Stops during the
	// drain below are rejected instead of closing the channel twice.
	r.stopCh = nil
	r.mu.Unlock()

	close(stopCh)
	<-doneCh
	r.hk.Unsubscribe(subID)

	// Closing the subscription races with late-arriving hook callbacks; give
	// in-flight appends a moment to drain.
	time.Sleep(drainWindow)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.recording = false
	r.finalizeGroupLocked()

	units := r.buildUnitsLocked()
	r.log.Info("recording stopped",
		zap.Int("groups", len(r.groups)),
		zap.Int("units", len(units)))
	return units, nil
}

func (r *Recorder) pollLoop(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(time.Duration(r.cfg.PollIntervalMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			r.pollOnce()
		}
	}
}

// pollOnce reads the cursor and button state and appends samples for movement
// beyond the threshold and for button transitions. Sub-threshold motion is
// not recorded at all.
func (r *Recorder) pollOnce() {
	ptr, err := r.hk.Pointer()
	if err != nil {
		return
	}
	elapsed := r.elapsedMs()

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return
	}

	dx := ptr.X - r.lastPtr.X
	dy := ptr.Y - r.lastPtr.Y
	if math.Hypot(dx, dy) > r.cfg.MoveThresholdPx {
		r.ensureKindLocked(action.GroupMouse)
		r.mouseBuf = append(r.mouseBuf, action.MouseSample{
			X: ptr.X, Y: ptr.Y,
			Kind:   action.MouseMove,
			Button: action.ButtonNone,
			TimeMs: elapsed,
		})
		r.lastPtr.X, r.lastPtr.Y = ptr.X, ptr.Y
	}

	r.buttonEdgeLocked(action.ButtonLeft, r.lastPtr.Left, ptr.Left, ptr, elapsed)
	r.buttonEdgeLocked(action.ButtonRight, r.lastPtr.Right, ptr.Right, ptr, elapsed)
	r.buttonEdgeLocked(action.ButtonMiddle, r.lastPtr.Middle, ptr.Middle, ptr, elapsed)
	r.lastPtr.Left, r.lastPtr.Right, r.lastPtr.Middle = ptr.Left, ptr.Right, ptr.Middle
}

func (r *Recorder) buttonEdgeLocked(btn action.MouseButton, was, is bool, ptr hook.Pointer, elapsed int64) {
	if was == is {
		return
	}
	kind := action.MouseDown
	if !is {
		kind = action.MouseUp
	}
	r.ensureKindLocked(action.GroupMouse)
	r.mouseBuf = append(r.mouseBuf, action.MouseSample{
		X: ptr.X, Y: ptr.Y,
		Kind:   kind,
		Button: btn,
		TimeMs: elapsed,
	})
}

// handleKey runs on the hook's dispatch goroutine. Printable keys pressed
// without Ctrl/Alt are withheld on key-down and collapsed into a single
// direct-text transition on key-up; everything else is recorded raw.
func (r *Recorder) handleKey(ev hook.KeyEvent) {
	elapsed := r.elapsedMs()

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return
	}

	if action.IsModifier(ev.VK) {
		r.setModifierLocked(ev.VK, ev.Down)
		r.appendRawKeyLocked(ev.VK, ev.Down, elapsed)
		return
	}

	if ev.Down {
		if action.IsPrintable(ev.VK) && !r.ctrl && !r.alt {
			r.pending[ev.VK] = pendingKey{shift: r.shift}
			return
		}
		r.appendRawKeyLocked(ev.VK, true, elapsed)
		return
	}

	if p, ok := r.pending[ev.VK]; ok {
		delete(r.pending, ev.VK)
		if ch, ok := action.PrintableChar(ev.VK, p.shift); ok {
			r.ensureKindLocked(action.GroupKeyboard)
			r.keyBuf = append(r.keyBuf, action.KeyTransition{
				Key:        string(ch),
				Kind:       action.KeyPress,
				Shift:      p.shift,
				TimeMs:     elapsed,
				DirectText: true,
			})
			return
		}
		// Character resolution failed; fall back to a raw down/up pair.
		r.appendRawKeyLocked(ev.VK, true, elapsed)
		r.appendRawKeyLocked(ev.VK, false, elapsed)
		return
	}

	r.appendRawKeyLocked(ev.VK, false, elapsed)
}

func (r *Recorder) appendRawKeyLocked(vk uint16, down bool, elapsed int64) {
	name, ok := action.KeyName(vk)
	if !ok {
		r.log.Debug("key outside symbolic table, skipped",
			zap.Uint16("vk", vk), zap.Int64("t_ms", elapsed))
		return
	}

	kind := action.KeyUp
	if down {
		kind = action.KeyDown
	}
	r.ensureKindLocked(action.GroupKeyboard)
	r.keyBuf = append(r.keyBuf, action.KeyTransition{
		Key:    name,
		Kind:   kind,
		Shift:  r.shift,
		Ctrl:   r.ctrl,
		Alt:    r.alt,
		Win:    r.win,
		TimeMs: elapsed,
	})
}

func (r *Recorder) setModifierLocked(vk uint16, down bool) {
	switch vk {
	case 0x10, 0xA0, 0xA1:
		r.shift = down
	case 0x11, 0xA2, 0xA3:
		r.ctrl = down
	case 0x12, 0xA4, 0xA5:
		r.alt = down
	case 0x5B, 0x5C:
		r.win = down
	}
}

// ensureKindLocked implements the group-switch protocol: an incoming action
// whose kind differs from the active kind finalizes the open group first.
func (r *Recorder) ensureKindLocked(kind action.GroupKind) {
	if r.activeKind == kind {
		return
	}
	r.finalizeGroupLocked()
	r.activeKind = kind
}

// finalizeGroupLocked converts the active buffer into an ActionGroup and
// appends it to the session's group list. An empty buffer never produces a
// group.
func (r *Recorder) finalizeGroupLocked() {
	switch r.activeKind {
	case action.GroupMouse:
		if len(r.mouseBuf) == 0 {
			return
		}
		samples := make([]action.MouseSample, len(r.mouseBuf))
		copy(samples, r.mouseBuf)
		r.groups = append(r.groups, action.ActionGroup{
			Kind:    action.GroupMouse,
			StartMs: samples[0].TimeMs,
			EndMs:   samples[len(samples)-1].TimeMs,
			Samples: samples,
		})
		r.mouseBuf = r.mouseBuf[:0]
	case action.GroupKeyboard:
		if len(r.keyBuf) == 0 {
			return
		}
		transitions := make([]action.KeyTransition, len(r.keyBuf))
		copy(transitions, r.keyBuf)
		r.groups = append(r.groups, action.ActionGroup{
			Kind:        action.GroupKeyboard,
			StartMs:     transitions[0].TimeMs,
			EndMs:       transitions[len(transitions)-1].TimeMs,
			Transitions: transitions,
		})
		r.keyBuf = r.keyBuf[:0]
	}
}

// buildUnitsLocked converts the session's groups into a dense 1-based task
// unit sequence. A group that fails conversion is skipped, not fatal: a
// degraded but complete session beats an aborted one.
func (r *Recorder) buildUnitsLocked() []action.TaskUnit {
	units := make([]action.TaskUnit, 0, len(r.groups))
	seq := 1
	var prevEnd int64

	for i, g := range r.groups {
		if g.Empty() {
			continue
		}
		payload, kind, err := marshalGroup(g)
		if err != nil {
			r.log.Warn("group conversion failed, skipping",
				zap.Int("group", i),
				zap.String("kind", string(g.Kind)),
				zap.Int64("start_ms", g.StartMs),
				zap.Error(err))
			continue
		}

		// delayBefore may be negative if clocks are inconsistent; it is
		// stored unclamped and floored only at playback.
		units = append(units, action.TaskUnit{
			Kind:          kind,
			Sequence:      seq,
			DelayBeforeMs: g.StartMs - prevEnd,
			DurationMs:    g.EndMs - g.StartMs,
			Payload:       payload,
		})
		seq++
		prevEnd = g.EndMs
	}
	return units
}

func marshalGroup(g action.ActionGroup) (json.RawMessage, action.TaskKind, error) {
	switch g.Kind {
	case action.GroupMouse:
		payload, err := json.Marshal(action.MousePayload{
			StartMs: g.StartMs, EndMs: g.EndMs, Samples: g.Samples,
		})
		return payload, action.TaskMouseMovement, err
	case action.GroupKeyboard:
		payload, err := json.Marshal(action.KeyboardPayload{
			StartMs: g.StartMs, EndMs: g.EndMs, Transitions: g.Transitions,
		})
		return payload, action.TaskKeyboardInput, err
	}
	return nil, "", fmt.Errorf("unknown group kind: %q", g.Kind)
}

func (r *Recorder) elapsedMs() int64 {
	return r.nowFn().Sub(r.start).Milliseconds()
}
