package player

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/atomdellow/autodesktop/internal/action"
	"github.com/atomdellow/autodesktop/internal/hook"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPlayRejectsConcurrentSession(t *testing.T) {
	sim := hook.NewSim()
	p := New(sim)

	require.NoError(t, p.acquire())
	err := p.Play(context.Background(), []action.ReplayAction{{Kind: action.ReplayWait}})
	require.Error(t, err)
	assert.ErrorIs(t, err, action.ErrSessionConflict)
	p.release()

	// After release a new session is accepted.
	require.NoError(t, p.Play(context.Background(), []action.ReplayAction{{Kind: action.ReplayWait}}))
}

func TestCoordinateProjection(t *testing.T) {
	sim := hook.NewSim()
	sim.SetDesktop(hook.Desktop{Left: 0, Top: 0, Width: 1920, Height: 1080})
	p := New(sim)

	actions := []action.ReplayAction{
		{Kind: action.ReplayMouseMove, X: 0, Y: 0},
		{Kind: action.ReplayMouseMove, X: 960, Y: 540},
		{Kind: action.ReplayMouseMove, X: 1920, Y: 1080},
		// Out-of-range input clamps to the normalized bounds.
		{Kind: action.ReplayMouseMove, X: -100, Y: 5000},
	}
	require.NoError(t, p.Play(context.Background(), actions))

	calls := sim.Injected()
	require.Len(t, calls, 4)
	assert.Equal(t, 0, calls[0].X)
	assert.Equal(t, 0, calls[0].Y)
	assert.Equal(t, 32767, calls[1].X)
	assert.Equal(t, 32767, calls[1].Y)
	assert.Equal(t, 65535, calls[2].X)
	assert.Equal(t, 65535, calls[2].Y)
	assert.Equal(t, 0, calls[3].X)
	assert.Equal(t, 65535, calls[3].Y)
}

func TestProjectionWithOffsetDesktop(t *testing.T) {
	sim := hook.NewSim()
	// Secondary monitor to the left of the primary.
	sim.SetDesktop(hook.Desktop{Left: -1920, Top: 0, Width: 3840, Height: 1080})
	p := New(sim)

	require.NoError(t, p.Play(context.Background(), []action.ReplayAction{
		{Kind: action.ReplayMouseMove, X: 0, Y: 0},
	}))

	calls := sim.Injected()
	require.Len(t, calls, 1)
	assert.Equal(t, 32767, calls[0].X)
	assert.Equal(t, 0, calls[0].Y)
}

func TestProjectionDegradesWithoutMetrics(t *testing.T) {
	sim := hook.NewSim()
	sim.SetDesktop(hook.Desktop{}) // metrics unavailable
	p := New(sim)

	require.NoError(t, p.Play(context.Background(), []action.ReplayAction{
		{Kind: action.ReplayMouseMove, X: 960, Y: 540},
	}))

	// Coordinates pass through unscaled.
	calls := sim.Injected()
	require.Len(t, calls, 1)
	assert.Equal(t, 960, calls[0].X)
	assert.Equal(t, 540, calls[0].Y)

	// The degraded mode is flagged with the metrics sentinel.
	_, _, err := p.project(960, 540)
	assert.ErrorIs(t, err, action.ErrNoDesktopMetrics)

	sim.SetDesktop(hook.Desktop{Width: 1920, Height: 1080})
	_, _, err = p.project(960, 540)
	assert.NoError(t, err)
}

func TestNegativeDelayClampsToImmediate(t *testing.T) {
	sim := hook.NewSim()
	p := New(sim)

	start := time.Now()
	require.NoError(t, p.Play(context.Background(), []action.ReplayAction{
		{Kind: action.ReplayKeyPress, VK: 'A', DelayBeforeMs: -5000},
	}))

	assert.Less(t, time.Since(start), time.Second)
	require.Len(t, sim.Injected(), 1)
}

func TestTypeTextRetriesOnce(t *testing.T) {
	t.Run("retry succeeds", func(t *testing.T) {
		sim := hook.NewSim()
		p := New(sim)
		sim.FailNext("type_text", 1)

		require.NoError(t, p.Play(context.Background(), []action.ReplayAction{
			{Kind: action.ReplayTypeText, Text: "hello"},
		}))

		calls := sim.Injected()
		require.Len(t, calls, 1)
		assert.Equal(t, "hello", calls[0].Text)
	})

	t.Run("second failure skips the action", func(t *testing.T) {
		sim := hook.NewSim()
		p := New(sim)
		sim.FailNext("type_text", 2)

		// The failing action is skipped, the sequence continues, and the
		// failure is summarized after the run.
		err := p.Play(context.Background(), []action.ReplayAction{
			{Kind: action.ReplayTypeText, Text: "hello"},
			{Kind: action.ReplayKeyPress, VK: 'B'},
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, action.ErrInjection)

		calls := sim.Injected()
		require.Len(t, calls, 1)
		assert.Equal(t, "key_press", calls[0].Op)
	})
}

func TestMiddleButtonNotInjected(t *testing.T) {
	sim := hook.NewSim()
	p := New(sim)

	require.NoError(t, p.Play(context.Background(), []action.ReplayAction{
		{Kind: action.ReplayMouseDown, Button: action.ButtonMiddle},
		{Kind: action.ReplayMouseUp, Button: action.ButtonMiddle},
		{Kind: action.ReplayMouseDown, Button: action.ButtonLeft},
	}))

	calls := sim.Injected()
	require.Len(t, calls, 1)
	assert.Equal(t, "left", calls[0].Button)
	assert.True(t, calls[0].Down)
}

func TestActionFailureDoesNotAbortSequence(t *testing.T) {
	sim := hook.NewSim()
	p := New(sim)
	sim.FailNext("key_down", 1)

	err := p.Play(context.Background(), []action.ReplayAction{
		{Kind: action.ReplayKeyDown, VK: 'A'},
		{Kind: action.ReplayKeyPress, VK: 'B'},
	})

	// Every remaining action still runs; the failure surfaces afterwards.
	require.Error(t, err)
	assert.ErrorIs(t, err, action.ErrInjection)
	assert.ErrorContains(t, err, "1 of 2 actions failed")

	calls := sim.Injected()
	require.Len(t, calls, 1)
	assert.Equal(t, uint16('B'), calls[0].VK)
}

func TestCancellationReleasesHeldKeys(t *testing.T) {
	sim := hook.NewSim()
	p := New(sim)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Play(ctx, []action.ReplayAction{
			{Kind: action.ReplayKeyDown, VK: 0xA2}, // ctrl goes down
			{Kind: action.ReplayWait, DelayBeforeMs: 30_000},
			{Kind: action.ReplayKeyUp, VK: 0xA2},
		})
	}()

	// Wait for the key-down to land, then abort mid-wait.
	require.Eventually(t, func() bool {
		return len(sim.Injected()) >= 1
	}, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		// Cancellation is a clean stop, not an error.
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("playback did not stop after cancellation")
	}

	calls := sim.Injected()
	require.Len(t, calls, 2)
	assert.Equal(t, "key_down", calls[0].Op)
	assert.Equal(t, "key_up", calls[1].Op)
	assert.Equal(t, uint16(0xA2), calls[1].VK)
	assert.False(t, p.IsPlaying())
}

func TestSpeedFactorScalesDelays(t *testing.T) {
	sim := hook.NewSim()
	p := New(sim, WithSpeed(10))

	start := time.Now()
	require.NoError(t, p.Play(context.Background(), []action.ReplayAction{
		{Kind: action.ReplayKeyPress, VK: 'A', DelayBeforeMs: 500},
	}))

	// 500ms at 10x plays in ~50ms.
	assert.Less(t, time.Since(start), 300*time.Millisecond)
	require.Len(t, sim.Injected(), 1)
}
