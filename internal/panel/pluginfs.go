package panel

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/justyntemme/salpanel/internal/debug"
	"github.com/justyntemme/salpanel/internal/fs"
	"github.com/justyntemme/salpanel/internal/listing"
	"github.com/justyntemme/salpanel/internal/location"
	"github.com/justyntemme/salpanel/internal/pluginfs"
)

// FSRequest describes one ChangeAndListPathOnFS call.
type FSRequest struct {
	FSName      string
	FSNameIndex int
	UserPart    string // empty lists the session's current path
	Mode        int
	ForceUpdate bool

	// FirstCall is set when the session is the one the panel shows. Then
	// CurrentPath is the path shown ("" when unknown) and, unless
	// KeepOldListing, the shown listing is released before the new one is
	// read.
	FirstCall          bool
	KeepOldListing     bool
	CurrentPath        string
	CurrentFSNameIndex int

	WantCutFileName bool // a file name cut from the path may be focused
}

// FSOutcome is what ChangeAndListPathOnFS made of a request.
type FSOutcome struct {
	OK          bool
	ShorterPath bool   // listed a parent of the requested path
	CutFileName string // file to focus, already checked against the listing
	Canceled    bool   // came back to CurrentPath; the shown listing stays
	Released    bool   // the shown listing was released
	Listing     *listing.Listing
	Data        pluginfs.PluginData
	Icons       pluginfs.IconsType
}

// ChangeAndListPathOnFS changes the path of session s and lists it. When
// the plugin cannot list a path its last element is cut and the parent
// tried, until something lists or nothing is left. A plugin that switches
// to an fs name it does not serve is treated as a fatal error. The listing
// is returned, not installed.
func (p *Panel) ChangeAndListPathOnFS(ctx context.Context, s *pluginfs.Session, req FSRequest) FSOutcome {
	var out FSOutcome

	orig, origIndex := req.UserPart, req.FSNameIndex
	if orig == "" {
		cur, ok := s.FS.GetCurrentPath()
		if !ok {
			p.log.Error("cannot get current path of plugin fs", zap.String("fs", s.FSName))
			return out
		}
		orig, origIndex = cur, s.FSNameIndex
	}

	fsName, fsNameIndex := req.FSName, req.FSNameIndex
	firstCall := req.FirstCall
	user := orig
	useCut := req.WantCutFileName
	cutName := ""
	for {
		if cutName != "" {
			// only a name cut on the first pass is worth focusing
			useCut = false
		}
		if ctx.Err() != nil {
			useCut = false
			break
		}

		r := s.FS.ChangePath(ctx, pluginfs.ChangePathRequest{
			FSName:      fsName,
			FSNameIndex: fsNameIndex,
			UserPart:    user,
			ForceUpdate: req.ForceUpdate,
			Mode:        req.Mode,
		})
		cutName = r.CutFileName
		changed := r.OK
		if changed && r.FSName != "" && !strings.EqualFold(r.FSName, fsName) {
			if idx, ok := p.ownFSName(s, r.FSName); ok {
				fsName, fsNameIndex = r.FSName, idx
			} else {
				p.log.Error("plugin switched to an fs name it does not serve",
					zap.String("plugin", s.Plugin.Name()), zap.String("fs", r.FSName))
				changed = false
			}
		}
		if !changed {
			debug.Log(debug.PLUGIN, "ChangeAndListPathOnFS: cannot open %s:%s", fsName, orig)
			if firstCall && !req.KeepOldListing {
				p.dropShownListing()
				out.Released = true
			}
			useCut = false
			break
		}
		s.FSName, s.FSNameIndex = fsName, fsNameIndex

		if r.PathWasCut && r.CutFileName == "" {
			useCut = false
		}
		if firstCall {
			if !req.ForceUpdate && req.CurrentPath != "" && s.FS.IsCurrentPath(req.CurrentFSNameIndex, req.CurrentPath) {
				// shortened back to the path shown, its listing will do
				out.ShorterPath = !s.FS.IsCurrentPath(origIndex, orig)
				out.Canceled = true
				out.Icons = p.iconsType
				out.OK = true
				break
			}
			if !req.KeepOldListing {
				p.dropShownListing()
				out.Released = true
			}
			firstCall = false
		}

		l, data, icons, err := s.FS.ListCurrentPath(ctx, req.ForceUpdate)
		if err == nil {
			if icons < pluginfs.IconsSimple || icons > pluginfs.IconsFromPlugin {
				p.log.Error("invalid plugin icons type", zap.Int("icons", int(icons)))
				icons = pluginfs.IconsSimple
			}
			if icons == pluginfs.IconsFromPlugin && data == nil {
				p.log.Error("plugin icons requested without plugin data", zap.String("fs", fsName))
				icons = pluginfs.IconsSimple
			}
			if l == nil {
				l = listing.New()
			}
			out.Listing, out.Data, out.Icons = l, data, icons
			out.ShorterPath = !s.FS.IsCurrentPath(origIndex, orig)
			out.OK = true
			break
		}

		debug.Log(debug.PLUGIN, "ChangeAndListPathOnFS: listing %s:%s failed: %v", fsName, user, err)
		cur, ok := s.FS.GetCurrentPath()
		if !ok {
			p.log.Error("plugin fs lost its current path", zap.String("fs", fsName))
			break
		}
		parent, ok := cutUserPart(cur)
		if !ok {
			break
		}
		user = parent
		p.deps.Metrics.RecordShortening()
	}

	if out.OK && useCut && cutName != "" {
		if i, _ := p.findIn(out, cutName); i < 0 {
			var pr Prompter = p.deps.Prompter
			if req.Mode == pluginfs.ModeRefresh {
				pr = quietPrompter{log: p.log}
			}
			pr.Notice("unable to focus " + cutName)
			cutName = ""
		}
	}
	if useCut {
		out.CutFileName = cutName
	}
	return out
}

// findIn looks name up among the files of the outcome's listing, or of the
// shown listing when the outcome kept it.
func (p *Panel) findIn(out FSOutcome, name string) (int, bool) {
	l := out.Listing
	if out.Canceled {
		l = p.arena.Current()
	}
	if l == nil {
		return -1, false
	}
	for i, f := range l.Files {
		if strings.EqualFold(f.Name, name) {
			return len(l.Dirs) + i, f.Name == name
		}
	}
	return -1, false
}

// ownFSName reports whether name is served by the plugin of s.
func (p *Panel) ownFSName(s *pluginfs.Session, name string) (int, bool) {
	if p.deps.Plugins == nil {
		return 0, false
	}
	plugin, idx, ok := p.deps.Plugins.IsPluginFS(name)
	return idx, ok && plugin == s.Plugin
}

// cutUserPart drops the last element of a plugin path. "/a" becomes "/";
// a path with a single element cannot be cut.
func cutUserPart(user string) (string, bool) {
	trimmed := strings.TrimRight(user, `/\`)
	i := strings.LastIndexAny(trimmed, `/\`)
	if i < 0 {
		return "", false
	}
	parent := trimmed[:i]
	if parent == "" {
		parent = trimmed[:1]
	}
	return parent, parent != user
}

// dropShownListing releases the listing of the plugin fs shown so the
// plugin can fill a new one.
func (p *Panel) dropShownListing() {
	p.sleepIcons()
	p.releaseEntries()
	p.pluginData = nil
	p.deps.ListBox.SetItemsCount(0, 0, 0)
}

// fsHints adjusts the suggested top index and focus to a listed outcome.
func fsHints(opts Options, out FSOutcome) (Options, FailReason) {
	if !out.ShorterPath {
		return opts, Success
	}
	h := opts.clearHints()
	if out.CutFileName != "" {
		h.FocusName = out.CutFileName
		return h, FileNameWasFocusedInstead
	}
	return h, ShorterPathUsed
}

func (p *Panel) installSession(s *pluginfs.Session, out FSOutcome) {
	p.session = s
	p.installFSListing(out)
}

func (p *Panel) installFSListing(out FSOutcome) {
	p.fsListing = out.Listing
	p.pluginData = out.Data
	p.iconsType = out.Icons
	p.syncFSLocation()
}

// syncFSLocation copies the session's current path into the location.
func (p *Panel) syncFSLocation() {
	s := p.session
	user, _ := s.FS.GetCurrentPath()
	p.loc = location.PluginFS{FSName: s.FSName, FSNameIndex: s.FSNameIndex, UserPart: user}
}

// leaveFSPath is the same-session counterpart of rememberLeaving.
func (p *Panel) leaveFSPath(fsName, user string, s *pluginfs.Session) {
	if p.userWorked {
		p.deps.History.AddPathUnique(location.KindPluginFS, fsName, user, s.ID)
		p.userWorked = false
	}
	p.forgetLocationState()
}

// ChangePathToPluginFS shows userPart on the plugin fs fsName. A path on
// the fs already shown is changed on the live session; any other opens a
// new session. Mode is one of the pluginfs Mode values.
func (p *Panel) ChangePathToPluginFS(ctx context.Context, fsName, userPart string, opts Options) Result {
	start := time.Now()
	res := p.changePathToPluginFS(ctx, fsName, userPart, opts)
	p.deps.Metrics.RecordNavigation(location.KindPluginFS.String(), res.Reason.String(), time.Since(start).Seconds())
	debug.Log(debug.PANEL, "ChangePathToPluginFS(%s:%s): %s, panel on %q", fsName, userPart, res, p.GeneralPath())
	return res
}

func (p *Panel) changePathToPluginFS(ctx context.Context, fsName, userPart string, opts Options) Result {
	pr := p.prompter(opts)
	if opts.Mode != pluginfs.ModeUserInput && opts.CanFocusFileName {
		p.log.Warn("focusing a file name needs user input mode", zap.Int("mode", opts.Mode))
		opts.CanFocusFileName = false
	}
	if len(userPart) >= location.MaxInputLen {
		pr.ShowError(fsName+":"+userPart, fs.ErrPathTooLong)
		return failed(InvalidPath)
	}

	p.RefreshPathHistoryData()
	p.BeginStopRefresh()
	defer p.EndStopRefresh()

	if _, onFS := p.loc.(location.PluginFS); onFS && p.session.IsFSName(fsName) {
		s := p.session
		if opts.ConvertPath {
			userPart = s.Plugin.ConvertPathToInternal(s.FSName, s.FSNameIndex, userPart)
		}
		return p.changePathOnSameFS(ctx, s, fsName, userPart, opts)
	}
	return p.openPluginFS(ctx, fsName, userPart, opts, pr)
}

func (p *Panel) openPluginFS(ctx context.Context, fsName, userPart string, opts Options, pr Prompter) Result {
	closable, detach := p.prepareClose(ctx, opts.CanForce, true, opts.CloseReason, pr)
	if !closable {
		return failed(CannotClosePath)
	}
	fail := func(err error) Result {
		if err != nil {
			pr.ShowError(fsName+":"+userPart, err)
		}
		p.CloseCurrentPath(true, detach, false)
		return failed(InvalidPath)
	}

	if p.deps.Plugins == nil {
		return fail(pluginfs.ErrUnknownFS)
	}
	plugin, idx, ok := p.deps.Plugins.IsPluginFS(fsName)
	if !ok {
		return fail(pluginfs.ErrUnknownFS)
	}
	f, err := plugin.OpenFS(fsName, idx)
	if err != nil {
		p.log.Info("plugin refused to open fs", zap.String("fs", fsName), zap.Error(err))
		return fail(err)
	}
	s := pluginfs.NewSession(plugin, f, fsName, idx)
	if opts.ConvertPath {
		userPart = plugin.ConvertPathToInternal(fsName, idx, userPart)
	}

	out := p.ChangeAndListPathOnFS(ctx, s, FSRequest{
		FSName:          fsName,
		FSNameIndex:     idx,
		UserPart:        userPart,
		Mode:            opts.Mode,
		WantCutFileName: opts.CanFocusFileName && opts.FocusName == "",
	})
	if !out.OK {
		s.Close(p.side)
		return fail(nil)
	}

	hints, reason := fsHints(opts, out)
	p.sleepIcons()
	p.CloseCurrentPath(false, detach, false)
	p.installSession(s, out)
	p.commonRefresh(ctx, hints.TopIndex, hints.FocusName, opts.RefreshListBox, true)
	f.Event(pluginfs.EventOpened, p.side)
	f.Event(pluginfs.EventPathChanged, p.side)
	p.log.Debug("opened plugin fs", zap.String("fs", fsName), zap.Stringer("session", s.ID))

	res := Result{OK: !out.ShorterPath, Reason: reason}
	if reason == FileNameWasFocusedInstead {
		res.FocusName = out.CutFileName
	}
	return res
}

func (p *Panel) changePathOnSameFS(ctx context.Context, s *pluginfs.Session, fsName, userPart string, opts Options) Result {
	idx := s.FSNameIndex
	if i, ok := p.ownFSName(s, fsName); ok {
		idx = i
	}
	samePath := s.FS.IsCurrentPath(idx, userPart)
	if !opts.ForceUpdate && samePath {
		hints := opts
		if hints.TopIndex == NoTopIndex && hints.FocusName == "" {
			hints = hints.WithHints(p.deps.ListBox.TopIndex(), p.focusedName())
		}
		p.commonRefresh(ctx, hints.TopIndex, hints.FocusName, opts.RefreshListBox, false)
		return Result{OK: true, Reason: Success, NoChange: true}
	}

	current, currentOK := s.FS.GetCurrentPath()
	currentFSName, currentIndex := s.FSName, s.FSNameIndex
	origTop, origFocus := p.deps.ListBox.TopIndex(), p.focusedName()
	keep := p.settings.KeepOldFSListing

	req := FSRequest{
		FSName:          fsName,
		FSNameIndex:     idx,
		UserPart:        userPart,
		Mode:            opts.Mode,
		ForceUpdate:     opts.ForceUpdate,
		FirstCall:       true,
		KeepOldListing:  keep,
		WantCutFileName: opts.CanFocusFileName && opts.FocusName == "",
	}
	if currentOK {
		req.CurrentPath, req.CurrentFSNameIndex = current, currentIndex
	}
	out := p.ChangeAndListPathOnFS(ctx, s, req)
	if out.OK {
		hints, reason := fsHints(opts, out)
		res := Result{OK: !out.ShorterPath, Reason: reason, NoChange: true}
		if reason == FileNameWasFocusedInstead {
			res.FocusName = out.CutFileName
		}
		if out.Canceled {
			if out.CutFileName != "" && opts.RefreshListBox {
				if i, _ := p.arena.Current().Find(out.CutFileName); i >= 0 {
					p.deps.ListBox.SetFocus(i)
				}
			}
			return res
		}
		if currentOK && (!samePath || out.ShorterPath) {
			p.leaveFSPath(currentFSName, current, s)
		}
		if out.ShorterPath && out.CutFileName == "" && currentOK && s.FS.IsCurrentPath(currentIndex, current) {
			// an unlistable subdirectory: keep the user where they were
			hints = hints.WithHints(origTop, origFocus)
		}
		p.installFSListing(out)
		res.NoChange = false
		p.commonRefresh(ctx, hints.TopIndex, hints.FocusName, opts.RefreshListBox, true)
		s.FS.Event(pluginfs.EventPathChanged, p.side)
		return res
	}

	if !samePath && currentOK {
		back := p.ChangeAndListPathOnFS(ctx, s, FSRequest{
			FSName:         currentFSName,
			FSNameIndex:    currentIndex,
			UserPart:       current,
			Mode:           opts.Mode,
			KeepOldListing: keep,
		})
		if back.OK {
			hints := opts.clearHints()
			if back.ShorterPath {
				p.leaveFSPath(currentFSName, current, s)
			} else {
				hints = hints.WithHints(origTop, origFocus)
			}
			p.installFSListing(back)
			p.commonRefresh(ctx, hints.TopIndex, hints.FocusName, opts.RefreshListBox, true)
			s.FS.Event(pluginfs.EventPathChanged, p.side)
			reason := ShorterPathUsed
			if opts.Mode == pluginfs.ModeUserInput {
				// let the caller reopen the path dialog
				reason = InvalidPath
			}
			return Result{Reason: reason}
		}
	}

	// nothing on the fs lists, leave it for a disk path
	p.dropShownListing()
	p.iconsType = pluginfs.IconsSimple
	p.commonRefresh(ctx, NoTopIndex, "", true, true)
	ro := opts.clearHints()
	ro.CloseReason = pluginfs.ReasonChangePathFailure
	p.ChangeToRescuePathOrFixedDrive(ctx, ro)
	return Result{Reason: InvalidPath}
}

// ChangePathToDetachedFS attaches detached session index to the panel. With
// newFSName and newUserPart set the session is moved there, otherwise its
// current path is listed again. A session whose paths all fail is offered
// to be closed.
func (p *Panel) ChangePathToDetachedFS(ctx context.Context, index int, newFSName, newUserPart string, opts Options) Result {
	start := time.Now()
	res := p.changePathToDetachedFS(ctx, index, newFSName, newUserPart, opts)
	p.deps.Metrics.RecordNavigation(location.KindPluginFS.String(), res.Reason.String(), time.Since(start).Seconds())
	debug.Log(debug.PANEL, "ChangePathToDetachedFS(%d): %s, panel on %q", index, res, p.GeneralPath())
	return res
}

func (p *Panel) changePathToDetachedFS(ctx context.Context, index int, newFSName, newUserPart string, opts Options) Result {
	pr := p.prompter(opts)
	p.RefreshPathHistoryData()

	s, ok := p.deps.Detached.At(index)
	if !ok {
		p.log.Error("invalid detached fs index", zap.Int("index", index))
		return failed(InvalidPath)
	}

	fsName, fsNameIndex := s.FSName, s.FSNameIndex
	if newFSName == "" || newUserPart == "" {
		newUserPart = ""
	} else if idx, ok := p.ownFSName(s, newFSName); ok {
		fsName, fsNameIndex = newFSName, idx
	} else {
		p.log.Error("requested fs name not served by the detached session", zap.String("fs", newFSName))
		newUserPart = ""
	}

	mode := opts.Mode
	if mode <= 0 {
		mode = pluginfs.ModeHistory
		if newUserPart == "" {
			mode = pluginfs.ModeRefresh
		}
	}
	if mode != pluginfs.ModeUserInput && opts.CanFocusFileName {
		p.log.Warn("focusing a file name needs user input mode", zap.Int("mode", mode))
		opts.CanFocusFileName = false
	}

	p.BeginStopRefresh()
	defer p.EndStopRefresh()

	closable, detach := p.prepareClose(ctx, false, true, pluginfs.ReasonChangePath, pr)
	if !closable {
		return failed(CannotClosePath)
	}

	out := p.ChangeAndListPathOnFS(ctx, s, FSRequest{
		FSName:          fsName,
		FSNameIndex:     fsNameIndex,
		UserPart:        newUserPart,
		Mode:            mode,
		WantCutFileName: opts.CanFocusFileName && opts.FocusName == "",
	})
	if !out.OK {
		p.CloseCurrentPath(true, detach, false)
		p.closeUnusableDetached(s, pr)
		return failed(InvalidPath)
	}

	hints, reason := fsHints(opts, out)
	p.sleepIcons()
	p.CloseCurrentPath(false, detach, false)
	p.deps.Detached.Remove(s.ID)
	p.installSession(s, out)
	p.commonRefresh(ctx, hints.TopIndex, hints.FocusName, opts.RefreshListBox, true)
	s.FS.Event(pluginfs.EventAttached, p.side)
	s.FS.Event(pluginfs.EventPathChanged, p.side)

	res := Result{OK: !out.ShorterPath, Reason: reason}
	if reason == FileNameWasFocusedInstead {
		res.FocusName = out.CutFileName
	}
	return res
}

// closeUnusableDetached offers a detached session no path of which lists
// to its plugin for closing.
func (p *Panel) closeUnusableDetached(s *pluginfs.Session, pr Prompter) {
	if ok, _ := s.FS.TryCloseOrDetach(false, false, pluginfs.ReasonAttachFailure); !ok {
		loc := location.PluginFS{FSName: s.FSName, FSNameIndex: s.FSNameIndex}
		if !pr.ConfirmForceClose(loc) {
			return
		}
		s.FS.TryCloseOrDetach(true, false, pluginfs.ReasonAttachFailure)
	}
	p.deps.Detached.Remove(s.ID)
	s.Close(p.side)
	p.deps.History.ForgetSession(s.ID)
	p.log.Info("closed unusable detached fs", zap.String("fs", s.FSName), zap.Stringer("session", s.ID))
}
