// Package player owns a playback session: it reconstructs per-action delays
// from persisted task units, re-projects recorded mouse coordinates into the
// playback environment's virtual-desktop space, and drives the input injector
// with cooperative cancellation.
package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atomdellow/autodesktop/internal/action"
	"github.com/atomdellow/autodesktop/internal/hook"
	"github.com/atomdellow/autodesktop/internal/logging"
)

// Decider is the external AI collaborator: it accepts an opaque screenshot
// and a criteria string and returns a decision label. Its transport is not
// this package's concern.
type Decider interface {
	Decide(ctx context.Context, screenshot []byte, criteria string) (string, error)
}

// Player replays actions through an injector. One playback may be active per
// instance; concurrent starts are rejected, not queued.
type Player struct {
	inj     hook.Injector
	log     *zap.Logger
	decider Decider
	speed   float64

	mu      sync.Mutex
	playing bool

	// held tracks keys pressed down during the current run so a best-effort
	// release can be attempted on cancellation.
	held map[uint16]struct{}
}

// Option configures a Player.
type Option func(*Player)

// WithDecider attaches the AI decision collaborator.
func WithDecider(d Decider) Option {
	return func(p *Player) { p.decider = d }
}

// WithSpeed scales recorded delays; 2.0 plays back twice as fast.
func WithSpeed(factor float64) Option {
	return func(p *Player) {
		if factor > 0 {
			p.speed = factor
		}
	}
}

// New creates a player bound to the given injector.
func New(inj hook.Injector, opts ...Option) *Player {
	p := &Player{
		inj:   inj,
		log:   logging.Named("player"),
		speed: 1.0,
		held:  make(map[uint16]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IsPlaying reports whether a playback session is active.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *Player) acquire() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		return fmt.Errorf("%w: playback in progress", action.ErrSessionConflict)
	}
	p.playing = true
	p.held = make(map[uint16]struct{})
	return nil
}

func (p *Player) release() {
	p.mu.Lock()
	p.playing = false
	p.mu.Unlock()
}

// Play replays an action list in order. Cancellation is cooperative and not
// an error: the remaining actions are abandoned cleanly and any held keys get
// a best-effort release.
func (p *Player) Play(ctx context.Context, actions []action.ReplayAction) error {
	if err := p.acquire(); err != nil {
		return err
	}
	defer p.release()
	return p.play(ctx, actions)
}

// play is the session-less core used by both Play and ExecuteWorkflow. A
// failed action never stops the sequence; the failures are summarized in the
// returned error once every action has run. Cancellation returns nil.
func (p *Player) play(ctx context.Context, actions []action.ReplayAction) error {
	failed := 0
	for i, a := range actions {
		if ctx.Err() != nil {
			p.releaseHeld()
			return nil
		}

		delay := a.DelayBeforeMs
		if delay < 0 {
			p.log.Debug("negative delay clamped to zero",
				zap.Int("action", i), zap.Int64("delay_ms", delay))
			delay = 0
		}
		if !p.wait(ctx, delay) {
			p.releaseHeld()
			return nil
		}

		if err := p.dispatch(ctx, a); err != nil {
			// Per-action failures are logged and skipped; the sequence
			// continues.
			p.log.Warn("action failed, continuing",
				zap.Int("action", i),
				zap.String("kind", string(a.Kind)),
				zap.Error(err))
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d actions failed", action.ErrInjection, failed, len(actions))
	}
	return nil
}

// wait blocks for the scaled delay, returning false if the context was
// cancelled mid-wait.
func (p *Player) wait(ctx context.Context, delayMs int64) bool {
	if delayMs <= 0 {
		return ctx.Err() == nil
	}
	d := time.Duration(float64(delayMs)/p.speed) * time.Millisecond
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return ctx.Err() == nil
	}
}

func (p *Player) dispatch(ctx context.Context, a action.ReplayAction) error {
	switch a.Kind {
	case action.ReplayKeyDown:
		if err := p.inj.KeyDown(a.VK); err != nil {
			return fmt.Errorf("%w: key down %s: %v", action.ErrInjection, a.Key, err)
		}
		p.markHeld(a.VK, true)
		return nil

	case action.ReplayKeyUp:
		if err := p.inj.KeyUp(a.VK); err != nil {
			return fmt.Errorf("%w: key up %s: %v", action.ErrInjection, a.Key, err)
		}
		p.markHeld(a.VK, false)
		return nil

	case action.ReplayKeyPress:
		if err := p.inj.KeyPress(a.VK); err != nil {
			return fmt.Errorf("%w: key press %s: %v", action.ErrInjection, a.Key, err)
		}
		return nil

	case action.ReplayMouseMove:
		nx, ny, err := p.project(a.X, a.Y)
		if err != nil {
			// Degraded projection still injects; the coordinates just pass
			// through unscaled.
			p.log.Warn("using unscaled coordinates", zap.Error(err))
		}
		if err := p.inj.MouseMove(nx, ny); err != nil {
			return fmt.Errorf("%w: mouse move: %v", action.ErrInjection, err)
		}
		return nil

	case action.ReplayMouseDown, action.ReplayMouseUp:
		// Middle is accepted in the data model but not injected.
		if a.Button != action.ButtonLeft && a.Button != action.ButtonRight {
			p.log.Debug("unsupported button skipped", zap.String("button", string(a.Button)))
			return nil
		}
		down := a.Kind == action.ReplayMouseDown
		if err := p.inj.MouseButton(string(a.Button), down); err != nil {
			return fmt.Errorf("%w: mouse button %s: %v", action.ErrInjection, a.Button, err)
		}
		return nil

	case action.ReplayMouseWheel:
		if err := p.inj.Wheel(a.Scroll); err != nil {
			return fmt.Errorf("%w: wheel: %v", action.ErrInjection, err)
		}
		return nil

	case action.ReplayTypeText:
		// Text entry gets exactly one retry before giving up.
		if err := p.inj.TypeText(a.Text); err != nil {
			p.log.Warn("text entry failed, retrying once", zap.Error(err))
			if err := p.inj.TypeText(a.Text); err != nil {
				return fmt.Errorf("%w: type text: %v", action.ErrInjection, err)
			}
		}
		return nil

	case action.ReplayWait:
		// The pre-action delay already happened; nothing to inject.
		return nil
	}
	return fmt.Errorf("unknown replay action kind: %q", a.Kind)
}

// project converts recorded virtual-desktop pixels into the injector's
// normalized range. When metrics are unavailable the coordinates pass through
// unscaled and the degraded mode is flagged with ErrNoDesktopMetrics.
func (p *Player) project(x, y float64) (int, int, error) {
	d, err := p.inj.Desktop()
	if err != nil {
		return clampRange(int(x)), clampRange(int(y)),
			fmt.Errorf("%w: %v", action.ErrNoDesktopMetrics, err)
	}
	if d.Width <= 0 || d.Height <= 0 {
		return clampRange(int(x)), clampRange(int(y)),
			fmt.Errorf("%w: reported size %dx%d", action.ErrNoDesktopMetrics, d.Width, d.Height)
	}

	nx := (x - float64(d.Left)) / float64(d.Width) * hook.MoveRange
	ny := (y - float64(d.Top)) / float64(d.Height) * hook.MoveRange
	return clampRange(int(nx)), clampRange(int(ny)), nil
}

func clampRange(v int) int {
	if v < 0 {
		return 0
	}
	if v > hook.MoveRange {
		return hook.MoveRange
	}
	return v
}

func (p *Player) markHeld(vk uint16, down bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if down {
		p.held[vk] = struct{}{}
	} else {
		delete(p.held, vk)
	}
}

// releaseHeld attempts a key-up for every key left down when a run is
// cancelled. Soft guarantee: failures are logged and ignored.
func (p *Player) releaseHeld() {
	p.mu.Lock()
	held := make([]uint16, 0, len(p.held))
	for vk := range p.held {
		held = append(held, vk)
	}
	p.held = make(map[uint16]struct{})
	p.mu.Unlock()

	for _, vk := range held {
		if err := p.inj.KeyUp(vk); err != nil {
			p.log.Warn("failed to release held key on cancel",
				zap.Uint16("vk", vk), zap.Error(err))
		}
	}
}
