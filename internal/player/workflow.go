package player

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/atomdellow/autodesktop/internal/action"
)

// Progress is reported after every unit transition and on terminal states.
type Progress struct {
	Completed int
	Total     int
	Message   string
}

// ProgressFunc receives playback progress. May be nil.
type ProgressFunc func(Progress)

func (f ProgressFunc) report(completed, total int, msg string) {
	if f != nil {
		f(Progress{Completed: completed, Total: total, Message: msg})
	}
}

// ExecuteWorkflow replays an ordered task-unit sequence. Failures are
// isolated at unit granularity: a malformed or failing unit is reported
// through the progress sink and the remaining units still run. Cancellation
// terminates the remaining units cleanly and is not an error.
func (p *Player) ExecuteWorkflow(ctx context.Context, units []action.TaskUnit, progress ProgressFunc) error {
	if len(units) == 0 {
		progress.report(0, 0, "no units to execute")
		return nil
	}

	if err := p.acquire(); err != nil {
		return err
	}
	defer p.release()

	// Defensive re-sort; stored order should already match.
	sorted := make([]action.TaskUnit, len(units))
	copy(sorted, units)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Sequence < sorted[j].Sequence
	})

	total := len(sorted)
	p.log.Info("workflow started", zap.Int("units", total))

	for i, u := range sorted {
		if ctx.Err() != nil {
			progress.report(i, total, "cancelled")
			p.log.Info("workflow cancelled", zap.Int("completed", i))
			return nil
		}

		msg := p.executeUnit(ctx, u)
		if ctx.Err() != nil {
			progress.report(i+1, total, "cancelled")
			p.log.Info("workflow cancelled", zap.Int("completed", i+1))
			return nil
		}
		progress.report(i+1, total, msg)
	}

	progress.report(total, total, "completed")
	p.log.Info("workflow completed", zap.Int("units", total))
	return nil
}

// executeUnit runs one unit and returns the human-readable status line for
// the progress sink. Errors are folded into the status, never propagated.
func (p *Player) executeUnit(ctx context.Context, u action.TaskUnit) string {
	switch u.Kind {
	case action.TaskMouseMovement, action.TaskKeyboardInput, action.TaskDelay:
		actions, err := actionsForUnit(u)
		if err != nil {
			p.log.Warn("unit skipped",
				zap.Int("seq", u.Sequence),
				zap.String("kind", string(u.Kind)),
				zap.Error(err))
			return fmt.Sprintf("unit %d (%s) skipped: %v", u.Sequence, u.Kind, err)
		}
		if err := p.play(ctx, actions); err != nil {
			return fmt.Sprintf("unit %d (%s) failed: %v", u.Sequence, u.Kind, err)
		}
		return fmt.Sprintf("unit %d (%s) done", u.Sequence, u.Kind)

	case action.TaskAiDecision:
		return p.executeDecision(ctx, u)

	default:
		// Unknown kinds advance progress without injecting anything.
		p.log.Warn("unrecognized unit kind skipped",
			zap.Int("seq", u.Sequence), zap.String("kind", string(u.Kind)))
		return fmt.Sprintf("unit %d skipped: unrecognized kind %q", u.Sequence, u.Kind)
	}
}

func (p *Player) executeDecision(ctx context.Context, u action.TaskUnit) string {
	var payload action.DecisionPayload
	if err := json.Unmarshal(u.Payload, &payload); err != nil {
		return fmt.Sprintf("unit %d (%s) skipped: %v: %v",
			u.Sequence, u.Kind, action.ErrMalformedPayload, err)
	}
	if p.decider == nil {
		return fmt.Sprintf("unit %d (%s) skipped: no decision collaborator configured",
			u.Sequence, u.Kind)
	}

	label, err := p.decider.Decide(ctx, payload.Screenshot, payload.Criteria)
	if err != nil {
		return fmt.Sprintf("unit %d (%s) failed: %v", u.Sequence, u.Kind, err)
	}
	p.log.Info("decision resolved",
		zap.Int("seq", u.Sequence), zap.String("label", label))
	return fmt.Sprintf("unit %d (%s) decided: %s", u.Sequence, u.Kind, label)
}

// actionsForUnit deserializes a unit's payload and converts it into a replay
// action list. The unit's own delayBefore (floored at zero) is folded into
// the first action's pre-wait so total unit time is always delayBefore plus
// intrinsic duration, composed identically for every kind.
func actionsForUnit(u action.TaskUnit) ([]action.ReplayAction, error) {
	unitDelay := u.DelayBeforeMs
	if unitDelay < 0 {
		unitDelay = 0
	}

	var actions []action.ReplayAction
	switch u.Kind {
	case action.TaskMouseMovement:
		var payload action.MousePayload
		if err := json.Unmarshal(u.Payload, &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", action.ErrMalformedPayload, err)
		}
		actions = FromSamples(payload.Samples)

	case action.TaskKeyboardInput:
		var payload action.KeyboardPayload
		if err := json.Unmarshal(u.Payload, &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", action.ErrMalformedPayload, err)
		}
		converted, err := FromTransitions(payload.Transitions)
		if err != nil {
			return nil, err
		}
		actions = converted

	case action.TaskDelay:
		var payload action.DelayPayload
		if err := json.Unmarshal(u.Payload, &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", action.ErrMalformedPayload, err)
		}
		duration := payload.DurationMs
		if duration < 0 {
			duration = 0
		}
		return []action.ReplayAction{{
			Kind:          action.ReplayWait,
			DelayBeforeMs: unitDelay + duration,
		}}, nil

	default:
		return nil, fmt.Errorf("unit kind %q has no action conversion", u.Kind)
	}

	if len(actions) > 0 {
		actions[0].DelayBeforeMs += unitDelay
	}
	return actions, nil
}

// FromSamples converts recorded mouse samples into replay actions. Samples
// are sorted by time defensively; deltas between consecutive samples become
// pre-action delays, negative deltas clamping to exactly zero.
func FromSamples(samples []action.MouseSample) []action.ReplayAction {
	ordered := make([]action.MouseSample, len(samples))
	copy(ordered, samples)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].TimeMs < ordered[j].TimeMs
	})

	actions := make([]action.ReplayAction, 0, len(ordered))
	var prev int64
	for i, s := range ordered {
		var delay int64
		if i > 0 {
			delay = s.TimeMs - prev
			if delay < 0 {
				delay = 0
			}
		}
		prev = s.TimeMs

		a := action.ReplayAction{
			DelayBeforeMs: delay,
			X:             s.X,
			Y:             s.Y,
			Button:        s.Button,
			Scroll:        s.Scroll,
		}
		switch s.Kind {
		case action.MouseMove:
			a.Kind = action.ReplayMouseMove
		case action.MouseDown:
			a.Kind = action.ReplayMouseDown
		case action.MouseUp:
			a.Kind = action.ReplayMouseUp
		case action.MouseWheel:
			a.Kind = action.ReplayMouseWheel
		default:
			continue
		}
		actions = append(actions, a)
	}
	return actions
}

// FromTransitions converts recorded keyboard transitions into replay actions.
// A direct-text press becomes a TypeText action; every other transition maps
// 1:1 with its symbolic code resolved from the stored key name. An
// unresolvable name fails the whole unit so the caller can drop it with a
// diagnostic.
func FromTransitions(transitions []action.KeyTransition) ([]action.ReplayAction, error) {
	ordered := make([]action.KeyTransition, len(transitions))
	copy(ordered, transitions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].TimeMs < ordered[j].TimeMs
	})

	actions := make([]action.ReplayAction, 0, len(ordered))
	var prev int64
	for i, t := range ordered {
		var delay int64
		if i > 0 {
			delay = t.TimeMs - prev
			if delay < 0 {
				delay = 0
			}
		}
		prev = t.TimeMs

		if t.DirectText && t.Kind == action.KeyPress {
			actions = append(actions, action.ReplayAction{
				Kind:          action.ReplayTypeText,
				DelayBeforeMs: delay,
				Text:          t.Key,
			})
			continue
		}

		vk, err := action.KeyCodeFor(t.Key)
		if err != nil {
			return nil, err
		}
		a := action.ReplayAction{
			DelayBeforeMs: delay,
			Key:           t.Key,
			VK:            vk,
		}
		switch t.Kind {
		case action.KeyDown:
			a.Kind = action.ReplayKeyDown
		case action.KeyUp:
			a.Kind = action.ReplayKeyUp
		case action.KeyPress:
			a.Kind = action.ReplayKeyPress
		default:
			return nil, fmt.Errorf("unknown transition kind: %q", t.Kind)
		}
		actions = append(actions, a)
	}
	return actions, nil
}
