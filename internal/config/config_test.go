package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 30, cfg.Recorder.PollIntervalMs)
	assert.Equal(t, float64(5), cfg.Recorder.MoveThresholdPx)
	assert.Equal(t, "Esc", cfg.Player.AbortHotkey)
	assert.Equal(t, 1.0, cfg.Player.SpeedFactor)
	assert.Equal(t, 18090, cfg.API.Port)
	assert.False(t, cfg.API.Enabled)
	assert.Equal(t, "info", cfg.General.LogLevel)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	m := NewManagerWithPath(path)

	cfg := m.Get()
	cfg.Recorder.PollIntervalMs = 50
	cfg.Player.SpeedFactor = 2.5
	cfg.API.Enabled = true
	cfg.API.Token = "s3cret"
	require.NoError(t, m.Save())

	m2 := NewManagerWithPath(path)
	require.NoError(t, m2.Load())
	loaded := m2.Get()
	assert.Equal(t, 50, loaded.Recorder.PollIntervalMs)
	assert.Equal(t, 2.5, loaded.Player.SpeedFactor)
	assert.True(t, loaded.API.Enabled)
	assert.Equal(t, "s3cret", loaded.API.Token)
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	m := NewManagerWithPath(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, m.Load())
	assert.Equal(t, 30, m.Get().Recorder.PollIntervalMs)
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0644))

	m := NewManagerWithPath(path)
	require.Error(t, m.Load())
}

func TestDataDirOverride(t *testing.T) {
	override := filepath.Join(t.TempDir(), "custom-workflows")
	m := NewManagerWithPath(filepath.Join(t.TempDir(), "config.json"))
	m.Get().General.DataDir = override

	dir, err := m.DataDir()
	require.NoError(t, err)
	assert.Equal(t, override, dir)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
