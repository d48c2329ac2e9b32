// Package app owns the two panels and the collaborators they share: the
// detached plugin sessions, directory history, the plugin and archive
// registries and the watcher that turns directory changes into background
// refreshes.
package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/justyntemme/salpanel/internal/archive"
	"github.com/justyntemme/salpanel/internal/config"
	"github.com/justyntemme/salpanel/internal/debug"
	"github.com/justyntemme/salpanel/internal/fs"
	"github.com/justyntemme/salpanel/internal/history"
	"github.com/justyntemme/salpanel/internal/iconpool"
	"github.com/justyntemme/salpanel/internal/location"
	"github.com/justyntemme/salpanel/internal/logging"
	"github.com/justyntemme/salpanel/internal/metrics"
	"github.com/justyntemme/salpanel/internal/panel"
	"github.com/justyntemme/salpanel/internal/pluginfs"
	"github.com/justyntemme/salpanel/internal/pluginfs/memfs"
	"github.com/justyntemme/salpanel/internal/pluginfs/s3fs"
	"github.com/justyntemme/salpanel/internal/store"
)

// ErrNotRunning is returned by Do after Run has returned.
var ErrNotRunning = errors.New("app: navigation loop is not running")

// Options tune New beyond the loaded configuration.
type Options struct {
	// Deps is the template for both panels. Per-panel collaborators left
	// nil (list box, icon worker) are created for each side.
	Deps panel.Deps
	// Watch enables directory change notifications.
	Watch bool
	// Memory registers the in-memory "mem:" filesystem over this volume.
	Memory *memfs.Volume
	// NoPersist keeps history in memory even when the config persists it.
	NoPersist bool
	// NoIcons skips the icon pools.
	NoIcons bool
}

// NavigationContext is the state both panels share. Panels are driven from
// one goroutine: either the caller's, when Run is not used, or Run's, in
// which case other goroutines go through Do.
type NavigationContext struct {
	Left     *panel.Panel
	Right    *panel.Panel
	Detached *pluginfs.DetachedList
	History  *history.DirHistory
	Plugins  *pluginfs.Registry
	Archives *archive.Registry
	Assoc    *archive.AssocFiles
	Metrics  *metrics.Metrics
	Settings panel.Settings

	active  pluginfs.Side
	icons   []*iconpool.Pool
	images  map[pluginfs.Side]*iconpool.Cache
	db      *store.DB
	saved   map[string]string
	watcher *DirectoryWatcher
	cmds    chan func()
	stopped chan struct{}
	home    string
	log     *zap.Logger
}

// New builds the context from cfg. Both panels start empty; navigate them
// with ChangePath.
func New(ctx context.Context, cfg *config.Config, opts Options) (*NavigationContext, error) {
	log := logging.Named("app")
	deps := opts.Deps

	c := &NavigationContext{
		Detached: deps.Detached,
		Plugins:  deps.Plugins,
		Archives: deps.Archives,
		Assoc:    deps.Assoc,
		Metrics:  deps.Metrics,
		Settings: panel.SettingsFromConfig(cfg),
		cmds:     make(chan func()),
		stopped:  make(chan struct{}),
		home:     homeDir(),
		log:      log,
		images:   make(map[pluginfs.Side]*iconpool.Cache),
	}
	if c.Detached == nil {
		c.Detached = pluginfs.NewDetachedList()
	}
	if c.Archives == nil {
		c.Archives = archive.DefaultRegistry()
	}
	if c.Assoc == nil {
		c.Assoc = archive.NewAssocFiles(c.Archives, filepath.Join(os.TempDir(), "salpanel"))
	}
	if c.Metrics == nil {
		c.Metrics = metrics.New()
	}
	if c.Plugins == nil {
		c.Plugins = pluginfs.NewRegistry()
		if err := c.registerPlugins(ctx, cfg, opts); err != nil {
			return nil, err
		}
	}

	if err := c.openHistory(cfg, deps.History, opts.NoPersist); err != nil {
		return nil, err
	}

	if opts.Watch {
		w, err := NewDirectoryWatcher(cfg.Navigation.RefreshDebounce())
		if err != nil {
			c.closeStore()
			return nil, fmt.Errorf("start directory watcher: %w", err)
		}
		c.watcher = w
	}
	c.Settings.MonitorChanges = c.watcher != nil
	c.Settings.AutomaticRefresh = c.watcher != nil

	deps.Detached = c.Detached
	deps.Archives = c.Archives
	deps.Assoc = c.Assoc
	deps.Plugins = c.Plugins
	deps.History = c.History
	deps.Metrics = c.Metrics
	if deps.Logger == nil {
		deps.Logger = logging.Named("panel")
	}

	c.Left = panel.New(pluginfs.SideLeft, c.panelDeps(pluginfs.SideLeft, deps, cfg, opts), c.Settings)
	c.Right = panel.New(pluginfs.SideRight, c.panelDeps(pluginfs.SideRight, deps, cfg, opts), c.Settings)
	c.Left.SetOther(c.Right)
	c.Right.SetOther(c.Left)

	debug.Log(debug.APP, "New: watch=%v plugins=%d history=%d", opts.Watch, len(c.Plugins.Plugins()), c.History.Len())
	return c, nil
}

func (c *NavigationContext) registerPlugins(ctx context.Context, cfg *config.Config, opts Options) error {
	if opts.Memory != nil {
		if err := c.Plugins.Register(memfs.New(opts.Memory, "mem")); err != nil {
			return err
		}
	}
	if cfg.S3.Enabled {
		client, err := s3fs.NewClient(ctx, s3fs.Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			PathStyle: cfg.S3.PathStyle,
		})
		if err != nil {
			return err
		}
		if err := c.Plugins.Register(s3fs.New(client)); err != nil {
			return err
		}
	}
	return nil
}

func (c *NavigationContext) openHistory(cfg *config.Config, h *history.DirHistory, noPersist bool) error {
	if h != nil {
		c.History = h
		return nil
	}
	if noPersist || !cfg.History.Persist || cfg.History.DBPath == "" {
		c.History = history.New(cfg.History.MaxEntries, nil)
		return nil
	}

	db := store.NewDB()
	if err := db.Open(cfg.History.DBPath); err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	db.Start()
	c.db = db
	c.History = history.New(cfg.History.MaxEntries, store.Queued{DB: db})
	if err := c.History.Load(); err != nil {
		// an unreadable history is not worth refusing to start
		c.log.Warn("cannot load history", zap.String("db", cfg.History.DBPath), zap.Error(err))
	}

	db.RequestChan <- store.Request{Op: store.FetchSettings}
	resp := <-db.ResponseChan
	if resp.Err != nil {
		c.log.Warn("cannot load saved panel paths", zap.String("db", cfg.History.DBPath), zap.Error(resp.Err))
	}
	c.saved = resp.Settings
	return nil
}

func pathKey(side pluginfs.Side) string {
	if side == pluginfs.SideRight {
		return "panel.right.path"
	}
	return "panel.left.path"
}

// SavedPath returns what the panel on side showed when the last persisted
// context was closed, or "".
func (c *NavigationContext) SavedPath(side pluginfs.Side) string {
	return c.saved[pathKey(side)]
}

// savePaths queues the current panel locations for the next run.
func (c *NavigationContext) savePaths() {
	if c.db == nil {
		return
	}
	for _, p := range []*panel.Panel{c.Left, c.Right} {
		if path := p.GeneralPath(); path != "" {
			c.db.RequestChan <- store.Request{Op: store.SaveSetting, Key: pathKey(p.Side()), Value: path}
		}
	}
}

func (c *NavigationContext) panelDeps(side pluginfs.Side, deps panel.Deps, cfg *config.Config, opts Options) panel.Deps {
	if deps.Icons == nil && !opts.NoIcons {
		cache := iconpool.NewCache()
		c.images[side] = cache
		pool := iconpool.New(iconpool.Config{
			Workers:  cfg.Icons.Workers,
			Capacity: cfg.Icons.QueueCapacity,
			Loader:   iconpool.ThumbnailLoader{MaxPixels: cfg.View.ThumbnailSize},
			OnResult: func(r iconpool.Result) {
				if !cache.Put(r) {
					return
				}
				if r.Err != nil {
					debug.Log(debug.ICON, "icon %s (gen %d): %v", r.Name, r.Gen, r.Err)
				}
			},
			OnDrop: c.Metrics.RecordIconDrop,
		})
		pool.Start()
		c.icons = append(c.icons, pool)
		deps.Icons = pool
	}
	return deps
}

// Icon returns the thumbnail loaded for the entry name of the listing
// the panel on side shows now.
func (c *NavigationContext) Icon(side pluginfs.Side, name string) (image.Image, bool) {
	cache := c.images[side]
	if cache == nil {
		return nil, false
	}
	return cache.Get(c.Panel(side).Generation(), name)
}

// Panel returns the panel on side.
func (c *NavigationContext) Panel(side pluginfs.Side) *panel.Panel {
	if side == pluginfs.SideRight {
		return c.Right
	}
	return c.Left
}

// Active returns the panel with the focus.
func (c *NavigationContext) Active() *panel.Panel { return c.Panel(c.active) }

// Other returns the panel without the focus.
func (c *NavigationContext) Other() *panel.Panel {
	if c.active == pluginfs.SideRight {
		return c.Left
	}
	return c.Right
}

// SetActive moves the focus to side.
func (c *NavigationContext) SetActive(side pluginfs.Side) { c.active = side }

// ChangePath navigates the panel on side to input, with "~" standing for
// the home directory, and updates the watch set.
func (c *NavigationContext) ChangePath(ctx context.Context, side pluginfs.Side, input string, opts panel.Options) panel.Result {
	res := c.Panel(side).ChangePath(ctx, ExpandHome(input, c.home), opts)
	c.SyncWatches()
	return res
}

// watchTarget is the disk directory whose changes concern p: the directory
// shown or the one holding the open archive.
func watchTarget(p *panel.Panel) string {
	switch p.Location().(type) {
	case location.Disk, location.Archive:
		return p.GetPath()
	case location.PluginFS:
		return ""
	default:
		panic("app: unexpected location type")
	}
}

// SyncWatches points the watcher at what the panels show now.
func (c *NavigationContext) SyncWatches() {
	if c.watcher == nil {
		return
	}
	if err := c.watcher.Retarget(watchTarget(c.Left), watchTarget(c.Right)); err != nil {
		debug.Log(debug.APP, "SyncWatches: %v", err)
	}
}

// Watching returns the directories the watcher follows.
func (c *NavigationContext) Watching() []string {
	if c.watcher == nil {
		return nil
	}
	return c.watcher.Watching()
}

// DirectoryChanged refreshes every panel showing dir. A panel inside a
// navigation records the request and replays it when the navigation ends.
// It returns the number of panels that refreshed right away.
func (c *NavigationContext) DirectoryChanged(ctx context.Context, dir string) int {
	n := 0
	for _, p := range []*panel.Panel{c.Left, c.Right} {
		target := watchTarget(p)
		if target == "" || !fs.IsTheSamePath(target, dir) {
			continue
		}
		if p.RefreshDirectory(ctx) {
			n++
		} else {
			debug.Log(debug.APP, "DirectoryChanged: %s deferred on %v", dir, p.Side())
		}
	}
	c.SyncWatches()
	return n
}

// Run drives the panels until ctx is done, executing functions passed to
// Do and refreshing panels on directory changes.
func (c *NavigationContext) Run(ctx context.Context) error {
	defer close(c.stopped)
	var notify <-chan string
	if c.watcher != nil {
		notify = c.watcher.Notify()
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-c.cmds:
			fn()
			c.SyncWatches()
		case dir := <-notify:
			c.DirectoryChanged(ctx, dir)
		}
	}
}

// Do runs fn on the Run goroutine and waits for it.
func (c *NavigationContext) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case c.cmds <- wrapped:
	case <-c.stopped:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close leaves both locations, closes detached sessions and releases the
// watcher, icon pools and history database. Call it after Run returned.
func (c *NavigationContext) Close(ctx context.Context) error {
	for _, pool := range c.icons {
		pool.Stop()
	}
	c.savePaths()
	for _, p := range []*panel.Panel{c.Left, c.Right} {
		p.SetCriticalShutdown(true)
		p.PrepareCloseCurrentPath(ctx, true, false, pluginfs.ReasonQuit)
		p.CloseCurrentPath(false, false, false)
	}
	c.Detached.CloseAll()

	var errs []error
	if c.watcher != nil {
		errs = append(errs, c.watcher.Close())
	}
	c.closeStore()
	return errors.Join(errs...)
}

func (c *NavigationContext) closeStore() {
	if c.db != nil {
		c.db.Close()
		c.db = nil
	}
}
