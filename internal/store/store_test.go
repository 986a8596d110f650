package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomdellow/autodesktop/internal/action"
)

func testUnits(t *testing.T) []action.TaskUnit {
	t.Helper()
	payload, err := json.Marshal(action.MousePayload{
		Samples: []action.MouseSample{{X: 10, Y: 20, Kind: action.MouseMove, TimeMs: 0}},
	})
	require.NoError(t, err)
	return []action.TaskUnit{
		{Kind: action.TaskMouseMovement, Sequence: 1, DelayBeforeMs: 100, DurationMs: 0, Payload: payload},
	}
}

func TestCreateLoadRoundTrip(t *testing.T) {
	s, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	wf, err := s.Create("login flow", testUnits(t))
	require.NoError(t, err)
	require.NotEmpty(t, wf.ID)

	loaded, err := s.Load(wf.ID)
	require.NoError(t, err)
	assert.Equal(t, wf.ID, loaded.ID)
	assert.Equal(t, "login flow", loaded.Name)
	require.Len(t, loaded.Units, 1)
	assert.Equal(t, action.TaskMouseMovement, loaded.Units[0].Kind)
	assert.Equal(t, int64(100), loaded.Units[0].DelayBeforeMs)

	var payload action.MousePayload
	require.NoError(t, json.Unmarshal(loaded.Units[0].Payload, &payload))
	require.Len(t, payload.Samples, 1)
	assert.Equal(t, float64(10), payload.Samples[0].X)
}

func TestLoadMissing(t *testing.T) {
	s, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = s.Load("no-such-id")
	require.Error(t, err)
}

func TestListNewestFirstAndLatest(t *testing.T) {
	s, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	first, err := s.Create("first", testUnits(t))
	require.NoError(t, err)
	second, err := s.Create("second", testUnits(t))
	require.NoError(t, err)
	// Force a strict ordering regardless of timestamp resolution.
	first.CreatedAt = second.CreatedAt.Add(-1_000_000_000)
	require.NoError(t, s.Save(first))

	workflows, err := s.List()
	require.NoError(t, err)
	require.Len(t, workflows, 2)
	assert.Equal(t, "second", workflows[0].Name)
	assert.Equal(t, "first", workflows[1].Name)

	latest, err := s.Latest()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, second.ID, latest.ID)
}

func TestLatestEmpty(t *testing.T) {
	s, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	latest, err := s.Latest()
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestDelete(t *testing.T) {
	s, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	wf, err := s.Create("doomed", testUnits(t))
	require.NoError(t, err)

	require.NoError(t, s.Delete(wf.ID))
	_, err = s.Load(wf.ID)
	require.Error(t, err)

	require.Error(t, s.Delete(wf.ID))
}

func TestListSkipsMalformedFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, nil)
	require.NoError(t, err)

	_, err = s.Create("good", testUnits(t))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "corrupt.json"), []byte("{not json"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("ignore me"), 0644))

	workflows, err := s.List()
	require.NoError(t, err)
	require.Len(t, workflows, 1)
	assert.Equal(t, "good", workflows[0].Name)
}
