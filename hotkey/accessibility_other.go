//go:build !darwin

package hotkey

// IsAccessibilityEnabled always returns true on platforms without a
// dedicated accessibility permission for input monitoring.
func IsAccessibilityEnabled(_ bool) bool {
	return true
}
