// Package config provides configuration management for the desktop recorder.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

// Config represents the application configuration
type Config struct {
	// Recorder contains recording engine settings
	Recorder RecorderConfig `json:"recorder"`

	// Player contains playback engine settings
	Player PlayerConfig `json:"player"`

	// API contains HTTP API server settings
	API APIConfig `json:"api"`

	// General contains general application settings
	General GeneralConfig `json:"general"`
}

// RecorderConfig contains recording engine settings
type RecorderConfig struct {
	// PollIntervalMs is the mouse polling interval in milliseconds
	PollIntervalMs int `json:"poll_interval_ms"`

	// MoveThresholdPx is the minimum cursor travel in pixels before a move is
	// recorded (filters jitter)
	MoveThresholdPx float64 `json:"move_threshold_px"`

	// ToggleHotkey is the global hotkey to start/stop recording (e.g. "Ctrl+Alt+R")
	ToggleHotkey string `json:"toggle_hotkey,omitempty"`
}

// PlayerConfig contains playback engine settings
type PlayerConfig struct {
	// AbortHotkey cancels an in-progress playback; bound only while a
	// playback is active (default "Esc")
	AbortHotkey string `json:"abort_hotkey"`

	// SpeedFactor scales recorded delays during playback (1.0 = real time)
	SpeedFactor float64 `json:"speed_factor"`
}

// APIConfig contains HTTP API server settings
type APIConfig struct {
	// Enabled enables the HTTP API server for remote control
	Enabled bool `json:"enabled"`

	// Port is the port for the API server (default: 18090)
	Port int `json:"port"`

	// Token is an optional authentication token for API requests
	Token string `json:"token,omitempty"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	// DataDir overrides the default workflow storage directory
	DataDir string `json:"data_dir,omitempty"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `json:"log_level"`

	// StartOnBoot determines if the app starts on system boot
	StartOnBoot bool `json:"start_on_boot"`
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Recorder: RecorderConfig{
			PollIntervalMs:  30,
			MoveThresholdPx: 5,
			ToggleHotkey:    "Ctrl+Alt+R",
		},
		Player: PlayerConfig{
			AbortHotkey: "Esc",
			SpeedFactor: 1.0,
		},
		API: APIConfig{
			Enabled: false,
			Port:    18090,
		},
		General: GeneralConfig{
			LogLevel: "info",
		},
	}
}

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     *Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	return &Manager{
		configPath: configPath,
		config:     DefaultConfig(),
	}, nil
}

// NewManagerWithPath creates a manager bound to an explicit config file path.
func NewManagerWithPath(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
		config:     DefaultConfig(),
	}
}

// appDir returns the per-OS application directory, creating it if needed.
func appDir() (string, error) {
	var dir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, "Library", "Application Support", "autodesktop")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		dir = filepath.Join(appData, "autodesktop")
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".config", "autodesktop")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

func getConfigPath() (string, error) {
	dir, err := appDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// DataDir returns the workflow storage directory, honoring the configured
// override.
func (m *Manager) DataDir() (string, error) {
	cfg := m.Get()
	if cfg.General.DataDir != "" {
		if err := os.MkdirAll(cfg.General.DataDir, 0755); err != nil {
			return "", err
		}
		return cfg.General.DataDir, nil
	}
	dir, err := appDir()
	if err != nil {
		return "", err
	}
	dataDir := filepath.Join(dir, "workflows")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}
	return dataDir, nil
}

// Load reads the configuration from disk
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.configPath)
	if os.IsNotExist(err) {
		// No config file, use defaults
		return nil
	}
	if err != nil {
		return err
	}

	return json.Unmarshal(data, m.config)
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(m.configPath, data, 0644)
}

// Get returns the current configuration
func (m *Manager) Get() *Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Set updates the configuration
func (m *Manager) Set(config *Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = config
}
