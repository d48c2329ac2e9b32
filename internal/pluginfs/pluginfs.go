// Package pluginfs defines the contract between panels and plugin
// filesystems, the registry of installed plugins and the list of sessions
// detached from any panel.
package pluginfs

import (
	"context"
	"errors"

	"github.com/justyntemme/salpanel/internal/listing"
)

var (
	// ErrUnknownFS is returned for an fs name no plugin registered.
	ErrUnknownFS = errors.New("pluginfs: unknown filesystem name")
	// ErrListFailed wraps failures of ListCurrentPath.
	ErrListFailed = errors.New("pluginfs: cannot list path")
)

// Side tells the plugin which panel an event concerns.
type Side int

const (
	SideLeft Side = iota
	SideRight
)

// EventKind is a lifecycle notification sent to an FS.
type EventKind int

const (
	EventOpened EventKind = iota
	EventAttached
	EventDetached
	EventPathChanged
	EventCloseOrDetachCanceled
	EventActivateRefresh
)

func (e EventKind) String() string {
	switch e {
	case EventOpened:
		return "opened"
	case EventAttached:
		return "attached"
	case EventDetached:
		return "detached"
	case EventPathChanged:
		return "path-changed"
	case EventCloseOrDetachCanceled:
		return "close-or-detach-canceled"
	case EventActivateRefresh:
		return "activate-refresh"
	}
	return "unknown"
}

// CloseReason explains why TryCloseOrDetach is being asked.
type CloseReason int

const (
	ReasonChangePath CloseReason = iota
	ReasonChangePathFailure
	ReasonAttachFailure
	ReasonQuit
)

// IconsType selects how icons of a plugin listing are obtained.
type IconsType int

const (
	IconsSimple IconsType = iota
	IconsFromRegistry
	IconsFromPlugin
)

// PluginData is the per-listing data a plugin returns with its entries.
type PluginData any

// Mode values for ChangePath. Mode 3 is a user-typed path: the last
// element may name a file, which is then focused instead of failing.
const (
	ModeRefresh   = 1
	ModeHistory   = 2
	ModeUserInput = 3
)

// ChangePathRequest carries the arguments of FS.ChangePath.
type ChangePathRequest struct {
	FSName      string
	FSNameIndex int
	UserPart    string
	ForceUpdate bool
	Mode        int
}

// ChangePathResult is what the plugin made of a ChangePathRequest.
type ChangePathResult struct {
	OK          bool
	FSName      string // may differ from the request when the plugin switched monikers
	FSNameIndex int
	UserPart    string // the path the plugin actually changed to
	CutFileName string // a file name cut from the end, offered for focus
	PathWasCut  bool
}

// FS is one open session of a plugin filesystem.
type FS interface {
	ChangePath(ctx context.Context, req ChangePathRequest) ChangePathResult
	ListCurrentPath(ctx context.Context, forceUpdate bool) (*listing.Listing, PluginData, IconsType, error)
	GetCurrentPath() (string, bool)
	IsCurrentPath(fsNameIndex int, userPart string) bool
	Event(kind EventKind, side Side)
	// TryCloseOrDetach asks whether the session may be closed. With
	// canDetach the plugin may instead ask to be detached.
	TryCloseOrDetach(force, canDetach bool, reason CloseReason) (ok, detach bool)
	// ReleaseObject is called before the session is closed.
	ReleaseObject(side Side)
}

// Plugin is an installed plugin providing one or more fs names.
type Plugin interface {
	Name() string
	FSNames() []string
	OpenFS(fsName string, fsNameIndex int) (FS, error)
	CloseFS(fs FS)
	// ConvertPathToInternal turns a user-typed path into the plugin's
	// internal form.
	ConvertPathToInternal(fsName string, fsNameIndex int, userPart string) string
}
