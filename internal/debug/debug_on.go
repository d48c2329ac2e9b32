//go:build debug

// Package debug provides categorized trace output for the navigation core.
// Build with -tags debug to enable it.
package debug

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Enabled indicates whether debug logging is active
const Enabled = true

// Category represents a debug logging category
type Category string

const (
	APP     Category = "APP"     // Context wiring, watcher, auto-refresh
	FS      Category = "FS"      // Disk listing and drive queries
	ARCHIVE Category = "ARCHIVE" // Packer calls, archive trees
	PLUGIN  Category = "PLUGIN"  // Plugin filesystem calls and events
	PANEL   Category = "PANEL"   // Path-change state machine
	VIEW    Category = "VIEW"    // Geometry and top-index placement
	ICON    Category = "ICON"    // Icon pool workers
	STORE   Category = "STORE"   // sqlite persistence
	HISTORY Category = "HISTORY" // Directory history
	COMPARE Category = "COMPARE" // Directory compare

	// Verbose, off by default
	PROBE Category = "PROBE" // Every path probe step
)

var (
	enabledCategories = map[Category]bool{
		APP:     true,
		FS:      true,
		ARCHIVE: true,
		PLUGIN:  true,
		PANEL:   true,
		VIEW:    true,
		ICON:    true,
		STORE:   true,
		HISTORY: true,
		COMPARE: true,
		PROBE:   false,
	}
	categoryMu sync.RWMutex

	logger = newLogger()
)

func newLogger() *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

func init() {
	// SALPANEL_DEBUG=PANEL,FS or SALPANEL_DEBUG=all or SALPANEL_DEBUG=none
	if env := os.Getenv("SALPANEL_DEBUG"); env != "" {
		Parse(env)
	}
}

// Parse applies a comma separated category list ("all" and "none" work too).
func Parse(spec string) {
	categoryMu.Lock()
	defer categoryMu.Unlock()

	spec = strings.ToUpper(strings.TrimSpace(spec))
	switch spec {
	case "", "ALL":
		for cat := range enabledCategories {
			enabledCategories[cat] = true
		}
	case "NONE":
		for cat := range enabledCategories {
			enabledCategories[cat] = false
		}
	default:
		for cat := range enabledCategories {
			enabledCategories[cat] = false
		}
		for _, cat := range strings.Split(spec, ",") {
			enabledCategories[Category(strings.TrimSpace(cat))] = true
		}
	}
}

// Log logs a debug message for the specified category
func Log(cat Category, format string, args ...interface{}) {
	categoryMu.RLock()
	enabled := enabledCategories[cat]
	categoryMu.RUnlock()

	if !enabled {
		return
	}
	logger.Debugf("[%s] %s", cat, fmt.Sprintf(format, args...))
}

// Enable enables a debug category
func Enable(cat Category) {
	categoryMu.Lock()
	enabledCategories[cat] = true
	categoryMu.Unlock()
}

// Disable disables a debug category
func Disable(cat Category) {
	categoryMu.Lock()
	enabledCategories[cat] = false
	categoryMu.Unlock()
}

// IsEnabled returns whether a category is enabled
func IsEnabled(cat Category) bool {
	categoryMu.RLock()
	defer categoryMu.RUnlock()
	return enabledCategories[cat]
}

// ListEnabled returns the enabled categories in name order
func ListEnabled() []Category {
	categoryMu.RLock()
	defer categoryMu.RUnlock()

	var enabled []Category
	for cat, on := range enabledCategories {
		if on {
			enabled = append(enabled, cat)
		}
	}
	sort.Slice(enabled, func(i, j int) bool { return enabled[i] < enabled[j] })
	return enabled
}
