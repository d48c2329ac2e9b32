// Package panel implements the path-change state machine of one file panel:
// moving between disk directories, archive contents and plugin
// filesystems, shortening paths that cannot be listed and falling back to
// a rescue path or a fixed drive when nothing else works.
//
// A Panel is driven from a single goroutine. BeginStopRefresh brackets
// every navigation so change notifications arriving meanwhile are deferred
// instead of starting a nested navigation.
package panel

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/justyntemme/salpanel/internal/archive"
	"github.com/justyntemme/salpanel/internal/config"
	"github.com/justyntemme/salpanel/internal/debug"
	"github.com/justyntemme/salpanel/internal/fs"
	"github.com/justyntemme/salpanel/internal/history"
	"github.com/justyntemme/salpanel/internal/listing"
	"github.com/justyntemme/salpanel/internal/location"
	"github.com/justyntemme/salpanel/internal/logging"
	"github.com/justyntemme/salpanel/internal/metrics"
	"github.com/justyntemme/salpanel/internal/pluginfs"
	"github.com/justyntemme/salpanel/internal/view"
)

// IconWorker loads icons for the entries of the installed listing. Sleep
// must not return while a worker still reads an entry.
type IconWorker interface {
	Sleep()
	Wake(gen uint64, dir string, entries []*listing.Entry) int
}

// Settings is the snapshot of configuration a panel navigates with.
type Settings struct {
	RescuePath           string
	ShortenWarnings      bool
	AutoNetReconnect     bool
	KeepOldFSListing     bool
	RelistDelay          time.Duration
	DriveNotReadyRetries int
	MonitorChanges       bool // directory change notifications are wanted
	AutomaticRefresh     bool // the volume delivers them by itself
	ShowDotfiles         bool
	SortMode             listing.SortMode
	ViewMode             view.Mode
	View                 view.Config
	Columns              []view.Column
}

// SettingsFromConfig derives panel settings from the loaded configuration.
func SettingsFromConfig(c *config.Config) Settings {
	vc := view.DefaultConfig()
	if c.View.ThumbnailSize > 0 {
		vc.ThumbnailSize = c.View.ThumbnailSize
	}
	return Settings{
		RescuePath:           c.Navigation.RescuePath,
		ShortenWarnings:      c.Navigation.ShortenWarnings,
		AutoNetReconnect:     c.Navigation.AutoNetReconnect,
		KeepOldFSListing:     c.Navigation.KeepOldFSListing,
		RelistDelay:          c.Navigation.RelistDelay(),
		DriveNotReadyRetries: c.Navigation.DriveNotReadyRetries,
		MonitorChanges:       true,
		AutomaticRefresh:     c.Navigation.AutoRefreshDebounceMS > 0,
		ShowDotfiles:         c.View.ShowDotfiles,
		SortMode:             listing.ParseSortMode(c.View.SortBy),
		ViewMode:             view.ParseMode(c.View.Mode),
		View:                 vc,
		Columns:              view.DefaultColumns(),
	}
}

// Deps are the collaborators of a panel. New fills in defaults for the
// ones left nil except Archives and Plugins, which are optional.
type Deps struct {
	Prober    fs.Prober
	Drives    fs.DriveLister
	ReadDir   func(path string) (*listing.Listing, error)
	FreeSpace func(path string) (uint64, error)
	Archives  *archive.Registry
	Assoc     *archive.AssocFiles
	Plugins   *pluginfs.Registry
	Detached  *pluginfs.DetachedList
	History   *history.DirHistory
	Prompter  Prompter
	ListBox   view.ListBox
	Measurer  view.Measurer
	Status    view.StatusSink
	Icons     IconWorker
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	Launch    func(path string) error // opens a file with its associated program
	Sleep     func(d time.Duration)   // time.Sleep when nil
}

// Panel is one side of the file manager.
type Panel struct {
	side     pluginfs.Side
	deps     Deps
	settings Settings
	log      *zap.Logger

	loc      location.Location
	diskPath string // last disk path, kept while in an archive or plugin fs
	arena    listing.Arena

	tree        *archive.Tree
	archiveData archive.PluginData

	session    *pluginfs.Session
	fsListing  *listing.Listing // listed by the plugin, not yet installed
	pluginData pluginfs.PluginData
	iconsType  pluginfs.IconsType

	topIndexMem  TopIndexMemory
	hiddenNames  map[string]bool
	oldSelection []string
	userWorked   bool

	stopRefresh    int
	refreshPending bool
	critical       bool

	other        *Panel
	freeSpace    uint64
	hasFreeSpace bool

	releaseHook func() // called before the listing is released
}

// New returns a panel showing nothing. Navigate it with ChangePath or one
// of the ChangePathTo* methods.
func New(side pluginfs.Side, deps Deps, settings Settings) *Panel {
	if deps.Prober == nil {
		deps.Prober = &fs.OSProber{}
	}
	if deps.Drives == nil {
		deps.Drives = fs.OSDrives{}
	}
	if deps.ReadDir == nil {
		deps.ReadDir = fs.ReadDir
	}
	if deps.FreeSpace == nil {
		deps.FreeSpace = fs.FreeSpace
	}
	if deps.Detached == nil {
		deps.Detached = pluginfs.NewDetachedList()
	}
	if deps.History == nil {
		deps.History = history.New(0, nil)
	}
	if deps.Logger == nil {
		deps.Logger = logging.Named("panel")
	}
	if deps.Prompter == nil {
		deps.Prompter = &LogPrompter{Log: deps.Logger}
	}
	if deps.ListBox == nil {
		deps.ListBox = view.NewBox(view.Viewport{Width: 800, Height: 600})
	}
	if deps.Measurer == nil {
		deps.Measurer = view.NewFaceMeasurer(nil)
	}
	if deps.Sleep == nil {
		deps.Sleep = time.Sleep
	}
	if settings.Columns == nil {
		settings.Columns = view.DefaultColumns()
	}
	return &Panel{
		side:        side,
		deps:        deps,
		settings:    settings,
		log:         deps.Logger.With(zap.String("side", sideName(side))),
		loc:         location.Disk{},
		hiddenNames: make(map[string]bool),
	}
}

func sideName(s pluginfs.Side) string {
	if s == pluginfs.SideRight {
		return "right"
	}
	return "left"
}

// Side returns which panel this is.
func (p *Panel) Side() pluginfs.Side { return p.side }

// SetOther links the opposite panel for free-space sharing.
func (p *Panel) SetOther(o *Panel) { p.other = o }

// Settings returns the settings in use.
func (p *Panel) Settings() Settings { return p.settings }

// SetSettings replaces the settings; the next navigation uses them.
func (p *Panel) SetSettings(s Settings) {
	if s.Columns == nil {
		s.Columns = view.DefaultColumns()
	}
	p.settings = s
}

// SetCriticalShutdown marks the application as shutting down without
// the chance to ask questions.
func (p *Panel) SetCriticalShutdown(v bool) { p.critical = v }

// Location returns what the panel displays.
func (p *Panel) Location() location.Location { return p.loc }

// Kind is shorthand for Location().Kind().
func (p *Panel) Kind() location.Kind { return p.loc.Kind() }

// GetPath returns the disk path of the panel: the directory itself, the
// directory holding the open archive, or the last disk path before a
// plugin filesystem was entered.
func (p *Panel) GetPath() string { return p.diskPath }

// GeneralPath returns the location as the user would type it.
func (p *Panel) GeneralPath() string { return p.loc.Describe() }

// Listing returns the installed listing, possibly nil.
func (p *Panel) Listing() *listing.Listing { return p.arena.Current() }

// Generation returns the generation of the installed listing.
func (p *Panel) Generation() uint64 { return p.arena.Generation() }

// Session returns the plugin session of a plugin fs location.
func (p *Panel) Session() *pluginfs.Session { return p.session }

// IconsType returns how icons of a plugin listing are loaded.
func (p *Panel) IconsType() pluginfs.IconsType { return p.iconsType }

// TopIndexMemory exposes the scroll memory used by Execute.
func (p *Panel) TopIndexMemory() *TopIndexMemory { return &p.topIndexMem }

// UserWorkedOnThisPath reports whether leaving the location adds it to
// the history.
func (p *Panel) UserWorkedOnThisPath() bool { return p.userWorked }

// SetUserWorkedOnThisPath is called by actions that make a location worth
// remembering.
func (p *Panel) SetUserWorkedOnThisPath(v bool) { p.userWorked = v }

// HideNames hides entries from the listing until the location changes.
func (p *Panel) HideNames(names ...string) {
	for _, n := range names {
		p.hiddenNames[n] = true
	}
}

// HiddenNames returns the number of hidden names.
func (p *Panel) HiddenNames() int { return len(p.hiddenNames) }

// FreeSpace returns the free space shown in the status line.
func (p *Panel) FreeSpace() (uint64, bool) { return p.freeSpace, p.hasFreeSpace }

// BeginStopRefresh defers automatic refreshes until the matching
// EndStopRefresh.
func (p *Panel) BeginStopRefresh() { p.stopRefresh++ }

// EndStopRefresh releases one BeginStopRefresh. The last one replays a
// refresh requested meanwhile.
func (p *Panel) EndStopRefresh() {
	if p.stopRefresh == 0 {
		p.log.Error("EndStopRefresh without BeginStopRefresh")
		return
	}
	p.stopRefresh--
	if p.stopRefresh == 0 && p.refreshPending {
		p.refreshPending = false
		debug.Log(debug.PANEL, "EndStopRefresh: replaying deferred refresh of %s", p.GeneralPath())
		p.RefreshDirectory(context.Background())
	}
}

// RefreshStopped reports whether a navigation is in progress.
func (p *Panel) RefreshStopped() bool { return p.stopRefresh > 0 }

// RefreshDirectory rereads the current location as a background refresh.
// While refreshes are stopped it only records the request. It reports
// whether the refresh ran.
func (p *Panel) RefreshDirectory(ctx context.Context) bool {
	if p.stopRefresh > 0 {
		p.refreshPending = true
		debug.Log(debug.PANEL, "RefreshDirectory: deferred (stop count %d)", p.stopRefresh)
		return false
	}
	opts := NewOptions().WithHints(p.deps.ListBox.TopIndex(), p.focusedName())
	opts.IsRefresh = true
	opts.ForceUpdate = true
	switch loc := p.loc.(type) {
	case location.Disk:
		if loc.Path == "" {
			return false
		}
		p.ChangePathToDisk(ctx, loc.Path, opts)
	case location.Archive:
		p.ChangePathToArchive(ctx, loc.File, loc.Inner, opts)
	case location.PluginFS:
		opts.Mode = pluginfs.ModeRefresh
		p.ChangePathToPluginFS(ctx, loc.FSName, loc.UserPart, opts)
	default:
		panic("panel: unexpected location type")
	}
	return true
}

func (p *Panel) focusedName() string {
	if e := p.arena.Current().At(p.deps.ListBox.Focus()); e != nil {
		return e.Name
	}
	return ""
}

// historyKey returns the history identity of loc.
func historyKey(loc location.Location) (primary, secondary string) {
	switch l := loc.(type) {
	case location.Disk:
		return l.Path, ""
	case location.Archive:
		return l.File, l.Inner
	case location.PluginFS:
		return l.FSName, l.UserPart
	}
	panic("panel: unexpected location type")
}

// RefreshPathHistoryData stores the current scroll position and focus in
// the history entry of the current location.
func (p *Panel) RefreshPathHistoryData() {
	primary, secondary := historyKey(p.loc)
	if primary == "" {
		return
	}
	p.deps.History.ChangeActualPathData(p.loc.Kind(), primary, secondary, p.deps.ListBox.TopIndex(), p.focusedName())
}

// RemoveCurrentPathFromHistory drops the current location from history.
func (p *Panel) RemoveCurrentPathFromHistory() {
	primary, secondary := historyKey(p.loc)
	p.deps.History.RemoveActualPath(p.loc.Kind(), primary, secondary)
}

// RefreshDiskFreeSpace updates the free space of the status line. A disk
// panel also refreshes the other panel when it shows the same volume.
func (p *Panel) RefreshDiskFreeSpace(refreshOther bool) {
	switch loc := p.loc.(type) {
	case location.Disk:
		free, err := p.deps.FreeSpace(loc.Path)
		p.freeSpace, p.hasFreeSpace = free, err == nil
		if err != nil {
			debug.Log(debug.FS, "RefreshDiskFreeSpace: %s: %v", loc.Path, err)
		}
		if refreshOther && p.other != nil {
			if od, ok := p.other.loc.(location.Disk); ok && fs.HasTheSameRootPath(od.Path, loc.Path) {
				p.other.RefreshDiskFreeSpace(false)
			}
		}
	case location.Archive:
		// archives report no free space
		p.hasFreeSpace = false
	case location.PluginFS:
		p.hasFreeSpace = false
	default:
		panic("panel: unexpected location type")
	}
}

func (p *Panel) prompter(opts Options) Prompter {
	if opts.IsRefresh {
		return quietPrompter{log: p.log}
	}
	return p.deps.Prompter
}

func (p *Panel) sleepIcons() {
	if p.deps.Icons != nil {
		p.deps.Icons.Sleep()
	}
}
