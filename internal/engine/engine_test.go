package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomdellow/autodesktop/internal/action"
	"github.com/atomdellow/autodesktop/internal/config"
	"github.com/atomdellow/autodesktop/internal/hook"
	"github.com/atomdellow/autodesktop/internal/player"
	"github.com/atomdellow/autodesktop/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *hook.Sim) {
	t.Helper()
	dir := t.TempDir()
	cfgMgr := config.NewManagerWithPath(filepath.Join(dir, "config.json"))

	st, err := store.New(filepath.Join(dir, "workflows"), nil)
	require.NoError(t, err)

	sim := hook.NewSim()
	eng := New(cfgMgr, sim, sim, st)
	require.NoError(t, eng.Start())
	t.Cleanup(eng.Stop)
	return eng, sim
}

func TestRecordThenReplay(t *testing.T) {
	eng, sim := newTestEngine(t)

	require.NoError(t, eng.StartRecording())
	assert.True(t, eng.IsRecording())

	sim.EmitKey('H', true)
	time.Sleep(20 * time.Millisecond)
	sim.EmitKey('H', false)

	wf, err := eng.StopRecording("typing")
	require.NoError(t, err)
	require.NotNil(t, wf)
	assert.False(t, eng.IsRecording())
	require.Len(t, wf.Units, 1)
	assert.Equal(t, action.TaskKeyboardInput, wf.Units[0].Kind)

	var seen []player.Progress
	eng.OnProgress(func(p player.Progress) { seen = append(seen, p) })

	require.NoError(t, eng.PlayLatest(context.Background()))

	calls := sim.Injected()
	require.Len(t, calls, 1)
	assert.Equal(t, "type_text", calls[0].Op)
	assert.Equal(t, "h", calls[0].Text)

	require.NotEmpty(t, seen)
	assert.Equal(t, "completed", seen[len(seen)-1].Message)
}

func TestEmptyRecordingDiscarded(t *testing.T) {
	eng, _ := newTestEngine(t)

	require.NoError(t, eng.StartRecording())
	wf, err := eng.StopRecording("nothing")
	require.NoError(t, err)
	assert.Nil(t, wf)

	_, err = eng.st.Latest()
	require.NoError(t, err)
}

func TestPlayLatestWithoutWorkflows(t *testing.T) {
	eng, _ := newTestEngine(t)
	require.Error(t, eng.PlayLatest(context.Background()))
}

func TestRecordingBlocksPlayback(t *testing.T) {
	eng, sim := newTestEngine(t)

	require.NoError(t, eng.StartRecording())
	sim.EmitKey('A', true)
	sim.EmitKey('A', false)
	wf, err := eng.StopRecording("first")
	require.NoError(t, err)
	require.NotNil(t, wf)

	require.NoError(t, eng.StartRecording())
	err = eng.Play(context.Background(), wf.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, action.ErrSessionConflict)

	_, err = eng.StopRecording("second")
	require.NoError(t, err)
}

func TestAbortHotkeyCancelsPlayback(t *testing.T) {
	eng, sim := newTestEngine(t)

	require.NoError(t, eng.StartRecording())
	sim.EmitKey('A', true)
	time.Sleep(20 * time.Millisecond)
	sim.EmitKey('A', false)
	wf, err := eng.StopRecording("abortable")
	require.NoError(t, err)
	require.NotNil(t, wf)
	sim.ResetInjected()

	// Pad the workflow with a long delay so playback is abortable mid-run.
	wf.Units = append(wf.Units, action.TaskUnit{
		Kind:          action.TaskDelay,
		Sequence:      2,
		DelayBeforeMs: 60_000,
		Payload:       []byte(`{"duration_ms": 0}`),
	})
	require.NoError(t, eng.st.Save(wf))

	done := make(chan error, 1)
	go func() { done <- eng.Play(context.Background(), wf.ID) }()

	require.Eventually(t, eng.IsPlaying, 2*time.Second, 5*time.Millisecond)
	sim.EmitKey(0x1B, true) // Esc, the configured abort hotkey

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("playback did not stop after abort hotkey")
	}
	assert.False(t, eng.IsPlaying())
}
