// Package view computes listing geometry for the five view modes and
// places the scroll position so the focused item stays visible.
package view

import "strings"

// Mode is a panel view mode.
type Mode int

const (
	Brief Mode = iota
	Detailed
	Icons
	Thumbnails
	Tiles
)

func (m Mode) String() string {
	switch m {
	case Brief:
		return "brief"
	case Detailed:
		return "detailed"
	case Icons:
		return "icons"
	case Thumbnails:
		return "thumbnails"
	case Tiles:
		return "tiles"
	}
	return "unknown"
}

// ParseMode maps a config value to a Mode; unknown values mean Detailed.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "brief":
		return Brief
	case "icons":
		return Icons
	case "thumbnails":
		return Thumbnails
	case "tiles":
		return Tiles
	}
	return Detailed
}

// Icon sizes in pixels.
const (
	IconSize16 = 16
	IconSize32 = 32
	IconSize48 = 48
)

// spaceWidth is the padding added to every measured text cell.
const spaceWidth = 10

// Viewport is the size of the files area in pixels.
type Viewport struct {
	Width  int
	Height int
}

// Config holds the geometry settings that do not depend on the listing.
type Config struct {
	IconSpacingHorz      int
	IconSpacingVert      int
	ThumbnailSpacingHorz int
	TileSpacingVert      int
	ThumbnailSize        int
	SmartMode            bool // narrow the Name column to fit the viewport
}

// DefaultConfig mirrors the stock spacing.
func DefaultConfig() Config {
	return Config{
		IconSpacingHorz:      43,
		IconSpacingVert:      43,
		ThumbnailSpacingHorz: 8,
		TileSpacingVert:      8,
		ThumbnailSize:        94,
		SmartMode:            true,
	}
}
