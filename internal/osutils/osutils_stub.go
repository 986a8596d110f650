//go:build !windows

// Package osutils provides small OS integration helpers.
package osutils

import "github.com/atomdellow/autodesktop/internal/logging"

// IsAdmin is a stub for non-Windows platforms
func IsAdmin() bool {
	return false
}

// EnsureFirewallRule is a stub for non-Windows platforms
func EnsureFirewallRule(port int) error {
	logging.Named("osutils").Info("automatic firewall rule management is only supported on Windows")
	return nil
}
