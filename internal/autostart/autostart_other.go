//go:build !windows

package autostart

import "fmt"

func enableWindows() error {
	return fmt.Errorf("not supported on this platform")
}

func disableWindows() error {
	return fmt.Errorf("not supported on this platform")
}

func isEnabledWindows() bool {
	return false
}
