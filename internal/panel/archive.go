package panel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/justyntemme/salpanel/internal/archive"
	"github.com/justyntemme/salpanel/internal/debug"
	"github.com/justyntemme/salpanel/internal/fs"
	"github.com/justyntemme/salpanel/internal/location"
	"github.com/justyntemme/salpanel/internal/pluginfs"
)

// ChangePathToArchive shows directory inner of the archive file. The
// archive is opened unless it is already the one shown; with ForceUpdate
// a shown archive is reopened when it changed on disk. A missing inner
// path is shortened to the nearest existing directory, the archive root
// at worst.
func (p *Panel) ChangePathToArchive(ctx context.Context, file, inner string, opts Options) Result {
	start := time.Now()
	res := p.changePathToArchive(ctx, file, inner, opts)
	p.deps.Metrics.RecordNavigation(location.KindArchive.String(), res.Reason.String(), time.Since(start).Seconds())
	debug.Log(debug.PANEL, "ChangePathToArchive(%q, %q): %s, panel on %q", file, inner, res, p.GeneralPath())
	return res
}

func (p *Panel) changePathToArchive(ctx context.Context, file, inner string, opts Options) Result {
	pr := p.prompter(opts)
	if len(file) >= location.MaxInputLen || len(inner) >= location.MaxInputLen {
		pr.ShowError(file, fs.ErrPathTooLong)
		return failed(InvalidPath)
	}
	full, err := fs.GetFullName(file, p.diskPath)
	if err != nil {
		pr.ShowError(file, err)
		return failed(InvalidPath)
	}
	file = full
	inner = location.NormalizeInner(inner)

	p.RefreshPathHistoryData()
	p.BeginStopRefresh()
	defer p.EndStopRefresh()

	res := Result{Reason: Success, NoChange: true}
	hints := opts
	cur, onArchive := p.loc.(location.Archive)
	reopen := !onArchive || !fs.IsTheSamePath(cur.File, file)
	forceUpdateInt := false

	if !reopen && opts.ForceUpdate {
		changed, err := p.archiveChanged(ctx, cur)
		if err != nil {
			// neither the archive nor its directory can be used any more
			if errors.Is(err, fs.ErrUserTerminated) {
				p.ChangeToRescuePathOrFixedDrive(ctx, opts)
			} else {
				pr.ShowError(file, err)
				p.ChangePathToDisk(ctx, p.diskPath, opts.clearHints())
			}
			return Result{Reason: InvalidPath}
		}
		if changed {
			if p.deps.Assoc != nil && p.deps.Assoc.Count(file) > 0 {
				n := p.deps.Assoc.Invalidate(file)
				pr.Notice(fmt.Sprintf("%s changed on disk; %d edited files will not be packed back", file, n))
			}
			debug.Log(debug.ARCHIVE, "ChangePathToArchive: %s changed, reopening", file)
			forceUpdateInt = true
			reopen = true
		}
	}

	sameArch := false
	if reopen {
		r, ok := p.openArchive(ctx, file, inner, opts, forceUpdateInt, pr)
		if !ok {
			return r
		}
		res.NoChange = false
	} else {
		sameArch = true
	}

	if sameArch && strings.EqualFold(inner, location.NormalizeInner(cur.Inner)) {
		if hints.TopIndex == NoTopIndex && hints.FocusName == "" {
			hints = hints.WithHints(p.deps.ListBox.TopIndex(), p.focusedName())
		}
		p.commonRefresh(ctx, hints.TopIndex, hints.FocusName, opts.RefreshListBox, false)
		return Result{OK: true, Reason: Success, NoChange: res.NoChange}
	}

	// the root always exists, so this ends
	ok := true
	newInner := inner
	fileName := ""
	useFileName := false
	for cuts := 0; !p.tree.Exists(newInner); cuts++ {
		parent, cut, _ := location.CutInner(newInner)
		fileName = cut
		useFileName = cuts == 0 && opts.CanFocusFileName && hints.FocusName == ""
		ok = false
		if !sameArch {
			p.userWorked = false
		}
		newInner = parent
		p.deps.Metrics.RecordShortening()
	}
	if canonical, found := p.tree.Canonical(newInner); found {
		newInner = canonical
	}

	if !useFileName && sameArch && strings.EqualFold(newInner, location.NormalizeInner(cur.Inner)) {
		// shortened back to where we are
		return Result{Reason: ShorterPathUsed, NoChange: true}
	}

	if !ok {
		hints = hints.clearHints()
		res.Reason = ShorterPathUsed
		if useFileName {
			res.Reason = FileNameWasFocusedInstead
			hints.FocusName = fileName
		}
	}

	shown := p.loc.(location.Archive)
	shown.Inner = newInner
	p.loc = shown
	p.commonRefresh(ctx, hints.TopIndex, hints.FocusName, opts.RefreshListBox, false)
	res.NoChange = false

	if res.Reason == FileNameWasFocusedInstead {
		if i, _ := p.arena.Current().Find(fileName); i < 0 {
			res.Reason = ShorterPathUsed
		} else {
			res.FocusName = fileName
		}
	}

	if sameArch && !strings.EqualFold(cur.Inner, newInner) {
		if p.userWorked {
			p.deps.History.AddPathUnique(location.KindArchive, cur.File, cur.Inner, uuid.Nil)
			p.userWorked = false
		}
		p.forgetLocationState()
	}
	res.OK = ok
	return res
}

// archiveChanged checks whether the shown archive was modified since it
// was opened. An error means the archive or its directory is gone.
func (p *Panel) archiveChanged(ctx context.Context, cur location.Archive) (bool, error) {
	probe := p.deps.Prober.Probe(ctx, p.diskPath, false)
	if !probe.OK() || probe.Cut {
		if probe.Err != nil {
			return false, probe.Err
		}
		return false, probe.LastErr
	}
	stamp, err := archive.StatStamp(cur.File)
	if err != nil {
		return false, fs.Classify(err)
	}
	return archive.Changed(archive.Stamp{ModTime: cur.ModTime, Size: cur.Size}, stamp), nil
}

// openArchive closes the current location and installs a freshly listed
// archive at its root. On failure the panel stays where it was, or moves
// to the nearest usable disk path when staying is not possible.
func (p *Panel) openArchive(ctx context.Context, file, inner string, opts Options, forceUpdateInt bool, pr Prompter) (Result, bool) {
	closable, detach := p.prepareClose(ctx, false, true, pluginfs.ReasonChangePath, pr)
	if !closable {
		return failed(CannotClosePath), false
	}

	dir, _, ok := fs.CutDirectory(file)
	fallbackDir := ""
	fail := func(reason FailReason) (Result, bool) {
		p.CloseCurrentPath(true, detach, false)
		res := failed(reason)
		var r Result
		switch {
		case forceUpdateInt:
			r = p.ChangePathToDisk(ctx, p.diskPath, opts.clearHints())
		case fallbackDir != "":
			r = p.ChangePathToDisk(ctx, fallbackDir, opts.clearHints())
		default:
			return res, false
		}
		res.NoChange = r.NoChange
		return res, false
	}
	if !ok {
		pr.ShowError(file, fs.ErrInvalidPath)
		return fail(InvalidPath)
	}

	cur, onArchive := p.loc.(location.Archive)
	_, onDisk := p.loc.(location.Disk)
	tryNet := !p.critical && p.settings.AutoNetReconnect &&
		(!(onDisk || onArchive) || !fs.HasTheSameRootPath(dir, p.diskPath))
	probe := p.deps.Prober.Probe(ctx, dir, tryNet)
	if !probe.OK() || probe.Cut {
		if opts.IsHistory && probe.OK() {
			fallbackDir = probe.Path
		}
		if !probe.PathInvalid && !errors.Is(probe.Err, fs.ErrUserTerminated) {
			err := probe.Err
			if err == nil {
				err = probe.LastErr
			}
			pr.ShowError(dir, err)
		}
		return fail(InvalidPath)
	}

	if p.deps.Archives == nil || !p.deps.Archives.IsArchive(file) {
		pr.ShowError(file, archive.ErrNotArchive)
		return fail(InvalidArchive)
	}
	stamp, err := archive.StatStamp(file)
	if err != nil {
		pr.ShowError(file, fs.Classify(err))
		return fail(InvalidPath)
	}

	var (
		tree *archive.Tree
		data archive.PluginData
	)
	if stamp.Size == 0 {
		// nothing for the packer to read
		tree = archive.NewTree()
	} else {
		tree, data, err = p.deps.Archives.List(ctx, file)
		if err != nil {
			p.log.Sugar().Warnf("cannot list archive %s: %v", file, err)
			pr.ShowError(file, err)
			return fail(InvalidArchive)
		}
	}

	p.sleepIcons()
	same := onArchive && fs.IsTheSamePath(cur.File, file) && strings.EqualFold(inner, location.NormalizeInner(cur.Inner))
	if same {
		p.deps.History.LockAdd()
	}
	p.CloseCurrentPath(false, detach, same)
	if same {
		p.deps.History.UnlockAdd()
	}
	p.tree, p.archiveData = tree, data
	p.loc = location.Archive{File: file, ModTime: stamp.ModTime, Size: stamp.Size}
	p.diskPath = dir
	return Result{Reason: Success}, true
}
