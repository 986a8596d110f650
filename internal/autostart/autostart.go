// Package autostart registers the tray agent to launch on login.
package autostart

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const agentLabel = "com.autodesktop.agent"

// Enable registers the current executable to start on login, launching
// straight into tray mode.
func Enable() error {
	switch runtime.GOOS {
	case "darwin":
		return enableDarwin()
	case "windows":
		return enableWindows()
	default:
		return fmt.Errorf("autostart unsupported on %s", runtime.GOOS)
	}
}

// Disable removes the login registration. Removing a registration that does
// not exist is not an error.
func Disable() error {
	switch runtime.GOOS {
	case "darwin":
		return disableDarwin()
	case "windows":
		return disableWindows()
	default:
		return fmt.Errorf("autostart unsupported on %s", runtime.GOOS)
	}
}

// IsEnabled reports whether a login registration is present.
func IsEnabled() bool {
	switch runtime.GOOS {
	case "darwin":
		return isEnabledDarwin()
	case "windows":
		return isEnabledWindows()
	default:
		return false
	}
}

func agentPlistPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Library", "LaunchAgents", agentLabel+".plist"), nil
}

func enableDarwin() error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable path: %w", err)
	}

	plistPath, err := agentPlistPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(plistPath), 0755); err != nil {
		return err
	}

	plist := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>%s</string>
    <key>ProgramArguments</key>
    <array>
        <string>%s</string>
        <string>tray</string>
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <false/>
</dict>
</plist>
`, agentLabel, execPath)

	return os.WriteFile(plistPath, []byte(plist), 0644)
}

func disableDarwin() error {
	plistPath, err := agentPlistPath()
	if err != nil {
		return err
	}
	if err := os.Remove(plistPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func isEnabledDarwin() bool {
	plistPath, err := agentPlistPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(plistPath)
	return err == nil
}
