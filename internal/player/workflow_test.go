package player

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomdellow/autodesktop/internal/action"
	"github.com/atomdellow/autodesktop/internal/hook"
)

func mousePayload(t *testing.T, samples ...action.MouseSample) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(action.MousePayload{Samples: samples})
	require.NoError(t, err)
	return data
}

func keyboardPayload(t *testing.T, transitions ...action.KeyTransition) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(action.KeyboardPayload{Transitions: transitions})
	require.NoError(t, err)
	return data
}

func collectProgress() (*[]Progress, ProgressFunc) {
	var seen []Progress
	return &seen, func(p Progress) { seen = append(seen, p) }
}

func TestFromSamplesOrdersAndClampsDelays(t *testing.T) {
	actions := FromSamples([]action.MouseSample{
		{X: 3, Y: 3, Kind: action.MouseMove, TimeMs: 200},
		{X: 1, Y: 1, Kind: action.MouseMove, TimeMs: 100},
		{X: 5, Y: 5, Kind: action.MouseDown, Button: action.ButtonLeft, TimeMs: 200},
	})

	require.Len(t, actions, 3)
	assert.Equal(t, action.ReplayMouseMove, actions[0].Kind)
	assert.Equal(t, float64(1), actions[0].X)
	assert.Equal(t, int64(0), actions[0].DelayBeforeMs)
	assert.Equal(t, int64(100), actions[1].DelayBeforeMs)
	// Equal timestamps produce a zero delay, never negative.
	assert.Equal(t, int64(0), actions[2].DelayBeforeMs)
	assert.Equal(t, action.ReplayMouseDown, actions[2].Kind)
}

func TestFromSamplesSkipsUnknownKinds(t *testing.T) {
	actions := FromSamples([]action.MouseSample{
		{Kind: "hover", TimeMs: 0},
		{Kind: action.MouseMove, TimeMs: 50},
	})
	require.Len(t, actions, 1)
	assert.Equal(t, action.ReplayMouseMove, actions[0].Kind)
}

func TestFromTransitions(t *testing.T) {
	t.Run("direct text becomes type text", func(t *testing.T) {
		actions, err := FromTransitions([]action.KeyTransition{
			{Key: "h", Kind: action.KeyPress, TimeMs: 0, DirectText: true},
			{Key: "ENTER", Kind: action.KeyDown, TimeMs: 100},
			{Key: "ENTER", Kind: action.KeyUp, TimeMs: 150},
		})
		require.NoError(t, err)
		require.Len(t, actions, 3)

		assert.Equal(t, action.ReplayTypeText, actions[0].Kind)
		assert.Equal(t, "h", actions[0].Text)
		assert.Equal(t, action.ReplayKeyDown, actions[1].Kind)
		assert.Equal(t, uint16(0x0D), actions[1].VK)
		assert.Equal(t, int64(50), actions[2].DelayBeforeMs)
	})

	t.Run("unresolvable key fails the unit", func(t *testing.T) {
		_, err := FromTransitions([]action.KeyTransition{
			{Key: "NOSUCHKEY", Kind: action.KeyDown, TimeMs: 0},
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, action.ErrUnresolvableKey)
	})
}

func TestActionsForUnitDelayComposition(t *testing.T) {
	t.Run("unit delay folds into first action", func(t *testing.T) {
		u := action.TaskUnit{
			Kind:          action.TaskMouseMovement,
			Sequence:      1,
			DelayBeforeMs: 400,
			Payload: mousePayload(t,
				action.MouseSample{Kind: action.MouseMove, TimeMs: 1000},
				action.MouseSample{Kind: action.MouseMove, TimeMs: 1030},
			),
		}
		actions, err := actionsForUnit(u)
		require.NoError(t, err)
		require.Len(t, actions, 2)
		assert.Equal(t, int64(400), actions[0].DelayBeforeMs)
		assert.Equal(t, int64(30), actions[1].DelayBeforeMs)
	})

	t.Run("negative unit delay floors to zero", func(t *testing.T) {
		u := action.TaskUnit{
			Kind:          action.TaskKeyboardInput,
			Sequence:      2,
			DelayBeforeMs: -300,
			Payload: keyboardPayload(t,
				action.KeyTransition{Key: "A", Kind: action.KeyDown, TimeMs: 0},
			),
		}
		actions, err := actionsForUnit(u)
		require.NoError(t, err)
		require.Len(t, actions, 1)
		assert.Equal(t, int64(0), actions[0].DelayBeforeMs)
	})

	t.Run("delay unit composes like the others", func(t *testing.T) {
		payload, err := json.Marshal(action.DelayPayload{DurationMs: 1500})
		require.NoError(t, err)

		u := action.TaskUnit{
			Kind:          action.TaskDelay,
			Sequence:      3,
			DelayBeforeMs: 250,
			Payload:       payload,
		}
		actions, err := actionsForUnit(u)
		require.NoError(t, err)
		require.Len(t, actions, 1)
		assert.Equal(t, action.ReplayWait, actions[0].Kind)
		assert.Equal(t, int64(1750), actions[0].DelayBeforeMs)
	})

	t.Run("malformed payload", func(t *testing.T) {
		u := action.TaskUnit{
			Kind:    action.TaskMouseMovement,
			Payload: json.RawMessage(`{"samples": "nope"}`),
		}
		_, err := actionsForUnit(u)
		require.Error(t, err)
		assert.ErrorIs(t, err, action.ErrMalformedPayload)
	})
}

func TestExecuteWorkflowEmpty(t *testing.T) {
	p := New(hook.NewSim())
	seen, progress := collectProgress()

	require.NoError(t, p.ExecuteWorkflow(context.Background(), nil, progress))
	require.Len(t, *seen, 1)
	assert.Equal(t, Progress{Completed: 0, Total: 0, Message: "no units to execute"}, (*seen)[0])
}

func TestExecuteWorkflowIsolatesUnitFailures(t *testing.T) {
	sim := hook.NewSim()
	p := New(sim)
	seen, progress := collectProgress()

	units := []action.TaskUnit{
		{Kind: action.TaskKeyboardInput, Sequence: 1, Payload: json.RawMessage(`{"transitions": 42}`)},
		{Kind: action.TaskMouseMovement, Sequence: 2, Payload: mousePayload(t,
			action.MouseSample{X: 100, Y: 100, Kind: action.MouseMove, TimeMs: 0},
		)},
	}

	require.NoError(t, p.ExecuteWorkflow(context.Background(), units, progress))

	// The malformed unit is reported and skipped; the valid one still runs.
	require.Len(t, sim.Injected(), 1)
	require.Len(t, *seen, 3)
	assert.Contains(t, (*seen)[0].Message, "skipped")
	assert.Equal(t, 1, (*seen)[0].Completed)
	assert.Equal(t, 2, (*seen)[1].Completed)
	assert.Contains(t, (*seen)[1].Message, "done")
	assert.Equal(t, "completed", (*seen)[2].Message)
}

func TestExecuteWorkflowReportsFailedUnits(t *testing.T) {
	sim := hook.NewSim()
	p := New(sim)
	seen, progress := collectProgress()
	sim.FailNext("mouse_move", 1)

	units := []action.TaskUnit{
		{Kind: action.TaskMouseMovement, Sequence: 1, Payload: mousePayload(t,
			action.MouseSample{X: 100, Y: 100, Kind: action.MouseMove, TimeMs: 0},
		)},
		{Kind: action.TaskKeyboardInput, Sequence: 2, Payload: keyboardPayload(t,
			action.KeyTransition{Key: "ENTER", Kind: action.KeyPress, TimeMs: 0},
		)},
	}

	require.NoError(t, p.ExecuteWorkflow(context.Background(), units, progress))

	// The failed unit is reported as such; the next one still runs.
	require.Len(t, *seen, 3)
	assert.Contains(t, (*seen)[0].Message, "failed")
	assert.Contains(t, (*seen)[1].Message, "done")
	assert.Equal(t, "completed", (*seen)[2].Message)

	calls := sim.Injected()
	require.Len(t, calls, 1)
	assert.Equal(t, "key_press", calls[0].Op)
}

func TestExecuteWorkflowOrdersBySequence(t *testing.T) {
	sim := hook.NewSim()
	p := New(sim)

	units := []action.TaskUnit{
		{Kind: action.TaskMouseMovement, Sequence: 2, Payload: mousePayload(t,
			action.MouseSample{X: 200, Y: 200, Kind: action.MouseMove, TimeMs: 0},
		)},
		{Kind: action.TaskMouseMovement, Sequence: 1, Payload: mousePayload(t,
			action.MouseSample{X: 100, Y: 100, Kind: action.MouseMove, TimeMs: 0},
		)},
	}

	require.NoError(t, p.ExecuteWorkflow(context.Background(), units, nil))

	calls := sim.Injected()
	require.Len(t, calls, 2)
	assert.Less(t, calls[0].X, calls[1].X)
}

func TestExecuteWorkflowCancelledBeforeStart(t *testing.T) {
	p := New(hook.NewSim())
	seen, progress := collectProgress()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	units := []action.TaskUnit{
		{Kind: action.TaskDelay, Sequence: 1, Payload: json.RawMessage(`{"duration_ms": 10}`)},
	}
	require.NoError(t, p.ExecuteWorkflow(ctx, units, progress))

	require.NotEmpty(t, *seen)
	assert.Equal(t, "cancelled", (*seen)[0].Message)
	assert.Equal(t, 0, (*seen)[0].Completed)
}

func TestExecuteWorkflowUnknownKindAdvances(t *testing.T) {
	p := New(hook.NewSim())
	seen, progress := collectProgress()

	units := []action.TaskUnit{
		{Kind: "teleport", Sequence: 1},
	}
	require.NoError(t, p.ExecuteWorkflow(context.Background(), units, progress))

	require.Len(t, *seen, 2)
	assert.Contains(t, (*seen)[0].Message, "unrecognized kind")
	assert.Equal(t, 1, (*seen)[0].Completed)
}

type stubDecider struct {
	label string
	err   error
}

func (d stubDecider) Decide(ctx context.Context, screenshot []byte, criteria string) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	return d.label, nil
}

func TestExecuteWorkflowDecisionUnit(t *testing.T) {
	payload, err := json.Marshal(action.DecisionPayload{Criteria: "dialog visible"})
	require.NoError(t, err)
	units := []action.TaskUnit{{Kind: action.TaskAiDecision, Sequence: 1, Payload: payload}}

	t.Run("with decider", func(t *testing.T) {
		p := New(hook.NewSim(), WithDecider(stubDecider{label: "continue"}))
		seen, progress := collectProgress()

		require.NoError(t, p.ExecuteWorkflow(context.Background(), units, progress))
		require.Len(t, *seen, 2)
		assert.Contains(t, (*seen)[0].Message, "decided: continue")
	})

	t.Run("decider error is isolated", func(t *testing.T) {
		p := New(hook.NewSim(), WithDecider(stubDecider{err: errors.New("model offline")}))
		seen, progress := collectProgress()

		require.NoError(t, p.ExecuteWorkflow(context.Background(), units, progress))
		require.Len(t, *seen, 2)
		assert.Contains(t, (*seen)[0].Message, "failed")
		assert.Equal(t, "completed", (*seen)[1].Message)
	})

	t.Run("without decider", func(t *testing.T) {
		p := New(hook.NewSim())
		seen, progress := collectProgress()

		require.NoError(t, p.ExecuteWorkflow(context.Background(), units, progress))
		require.Len(t, *seen, 2)
		assert.Contains(t, (*seen)[0].Message, "no decision collaborator")
	})
}

func TestExecuteWorkflowProgressCountsAreDense(t *testing.T) {
	p := New(hook.NewSim())
	seen, progress := collectProgress()

	var units []action.TaskUnit
	for i := 1; i <= 5; i++ {
		units = append(units, action.TaskUnit{
			Kind:     action.TaskDelay,
			Sequence: i,
			Payload:  json.RawMessage(fmt.Sprintf(`{"duration_ms": %d}`, i)),
		})
	}

	require.NoError(t, p.ExecuteWorkflow(context.Background(), units, progress))

	require.Len(t, *seen, 6)
	for i := 0; i < 5; i++ {
		assert.Equal(t, i+1, (*seen)[i].Completed)
		assert.Equal(t, 5, (*seen)[i].Total)
	}
	assert.Equal(t, Progress{Completed: 5, Total: 5, Message: "completed"}, (*seen)[5])
}
