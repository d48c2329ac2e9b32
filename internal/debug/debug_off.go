//go:build !debug

// Package debug provides categorized trace output for the navigation core.
// This is the no-op version for release builds.
package debug

// Enabled indicates whether debug logging is active
const Enabled = false

// Category represents a debug logging category
type Category string

const (
	APP     Category = "APP"
	FS      Category = "FS"
	ARCHIVE Category = "ARCHIVE"
	PLUGIN  Category = "PLUGIN"
	PANEL   Category = "PANEL"
	VIEW    Category = "VIEW"
	ICON    Category = "ICON"
	STORE   Category = "STORE"
	HISTORY Category = "HISTORY"
	COMPARE Category = "COMPARE"
	PROBE   Category = "PROBE"
)

// Log is a no-op in release builds
func Log(cat Category, format string, args ...interface{}) {}

// Enable is a no-op in release builds
func Enable(cat Category) {}

// Disable is a no-op in release builds
func Disable(cat Category) {}

// IsEnabled always returns false in release builds
func IsEnabled(cat Category) bool { return false }

// Parse is a no-op in release builds
func Parse(spec string) {}

// ListEnabled returns nil in release builds
func ListEnabled() []Category { return nil }
