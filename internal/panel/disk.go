package panel

import (
	"context"
	"errors"
	"time"

	"github.com/justyntemme/salpanel/internal/debug"
	"github.com/justyntemme/salpanel/internal/fs"
	"github.com/justyntemme/salpanel/internal/location"
)

// ChangePathToDisk shows the disk directory path. A path that cannot be
// listed is shortened to its nearest listable parent; when nothing on the
// way is usable the rescue path and then a fixed drive are tried.
func (p *Panel) ChangePathToDisk(ctx context.Context, path string, opts Options) Result {
	start := time.Now()
	res := p.changePathToDisk(ctx, path, opts)
	p.deps.Metrics.RecordNavigation(location.KindDisk.String(), res.Reason.String(), time.Since(start).Seconds())
	debug.Log(debug.PANEL, "ChangePathToDisk(%q): %s, panel on %q", path, res, p.GeneralPath())
	return res
}

func (p *Panel) changePathToDisk(ctx context.Context, path string, opts Options) Result {
	pr := p.prompter(opts)
	if len(path) >= location.MaxInputLen {
		pr.ShowError(path, fs.ErrPathTooLong)
		return failed(InvalidPath)
	}

	p.RefreshPathHistoryData()

	_, onDisk := p.loc.(location.Disk)
	_, onArchive := p.loc.(location.Archive)
	base := ""
	if onDisk {
		base = p.diskPath
	}
	full, err := fs.GetFullName(path, base)
	if err != nil {
		pr.ShowError(path, err)
		return failed(InvalidPath)
	}
	path = full

	if onDisk && !opts.ForceUpdate && p.arena.Current() != nil && fs.IsTheSamePath(p.diskPath, path) {
		if opts.RefreshListBox && (opts.TopIndex != NoTopIndex || opts.FocusName != "") {
			focus, _ := p.arena.Current().Find(opts.FocusName)
			p.RefreshListBox(0, opts.TopIndex, focus, opts.FocusName != "", false)
		}
		return Result{OK: true, Reason: Success, NoChange: true}
	}

	p.BeginStopRefresh()
	defer p.EndStopRefresh()

	rescue := fs.Clean(p.settings.RescuePath)
	canTryRescue := p.settings.RescuePath != "" && fs.IsAbsolute(rescue) && !fs.IsTheSamePath(path, rescue)
	// a failure on the volume already shown must still end with something listed
	forceUpdateInt := (onDisk || onArchive) && fs.HasTheSameRootPath(p.diskPath, path)

	closable, detach := p.prepareClose(ctx, opts.CanForce, true, opts.CloseReason, pr)
	if !closable {
		return failed(CannotClosePath)
	}

	tryNet := !p.critical && p.settings.AutoNetReconnect &&
		(!(onDisk || onArchive) || !fs.HasTheSameRootPath(path, p.diskPath))
	warn := opts.ShorterPathWarning && p.settings.ShortenWarnings

	res := Result{Reason: Success, NoChange: true}
	hints := opts
	changed := path
	var (
		fixedDrive  bool
		usedRescue  bool
		closeCalled bool
		notReady    error
		lastErr     error
		prompts     int
	)

	// unusable decides what a failed probe leads to
	unusable := func() diskState {
		if forceUpdateInt && !fixedDrive {
			fixedDrive = true
			return stateShortening
		}
		return stateFailed
	}
	// retry lists another path than the one hinted for
	retry := func() diskState {
		hints = hints.clearHints()
		p.userWorked = false
		return stateProbing
	}

	state := stateProbing
	for !state.terminal() {
		debug.Log(debug.PANEL, "ChangePathToDisk: %s %q", state, changed)
		switch state {
		case stateProbing:
			probe := p.deps.Prober.Probe(ctx, changed, tryNet)
			if probe.Cut {
				hints = hints.clearHints()
				p.deps.Metrics.RecordShortening()
			}
			if lastErr == nil {
				lastErr = probe.LastErr
			}
			changed = probe.Path
			switch {
			case probe.OK():
				state = stateListing
			case errors.Is(probe.Err, fs.ErrUserTerminated):
				state = stateFailed
			case errors.Is(probe.Err, fs.ErrNotReady):
				notReady = probe.Err
				state = stateDriveNotReady
			default:
				if !probe.PathInvalid {
					pr.ShowError(changed, probe.Err)
				}
				state = unusable()
			}

		case stateDriveNotReady:
			if prompts < max(p.settings.DriveNotReadyRetries, 1) && pr.DriveNotReady(changed, notReady) == DriveRetry {
				prompts++
				state = stateProbing
				break
			}
			if mount, ok := p.deps.Drives.MountRoot(changed); ok {
				if parent, _, ok := fs.CutDirectory(mount); ok {
					// a volume mounted into a folder: go to the folder holding it
					changed = parent
					state = retry()
					break
				}
			}
			state = unusable()

		case stateListing:
			p.sleepIcons()
			if !closeCalled {
				same := onDisk && fs.IsTheSamePath(p.diskPath, changed)
				if same {
					p.deps.History.LockAdd()
				}
				p.CloseCurrentPath(false, detach, same)
				if same {
					p.deps.History.UnlockAdd()
				}
				closeCalled = true
			}
			p.loc = location.Disk{Path: changed}
			p.diskPath = changed
			res.NoChange = false
			forceUpdateInt = true

			err := p.commonRefresh(ctx, hints.TopIndex, hints.FocusName, opts.RefreshListBox, true)
			if err == nil && opts.IsRefresh && p.settings.MonitorChanges && !p.settings.AutomaticRefresh {
				// without change notifications a directory being deleted still lists once; look again
				p.deps.Sleep(p.settings.RelistDelay)
				err = p.commonRefresh(ctx, hints.TopIndex, hints.FocusName, opts.RefreshListBox, true)
			}
			if err != nil {
				debug.Log(debug.PANEL, "ChangePathToDisk: cannot list %q: %v", changed, err)
				if lastErr == nil {
					lastErr = err
				}
				state = stateShortening
			} else {
				state = stateDone
			}

		case stateShortening:
			if !fixedDrive {
				if parent, _, ok := fs.CutDirectory(changed); ok {
					changed = parent
					p.deps.Metrics.RecordShortening()
					state = retry()
					break
				}
			}
			if canTryRescue {
				state = stateTryingRescuePath
			} else {
				state = stateTryingFixedDrive
			}

		case stateTryingRescuePath:
			canTryRescue = false
			usedRescue = true
			fixedDrive = false
			warn = true
			changed = rescue
			p.deps.Metrics.RecordFallback("rescue")
			state = retry()

		case stateTryingFixedDrive:
			root, ok := fs.FirstFixedDrive(p.deps.Drives)
			if ok && !fs.HasTheSameRootPath(root, changed) {
				changed = root
				p.deps.Metrics.RecordFallback("fixed-drive")
				state = retry()
			} else {
				state = stateFailed
			}
		}
	}

	if !closeCalled {
		p.CloseCurrentPath(true, detach, false)
	}

	if state == stateFailed {
		res.Reason = InvalidPath
		return res
	}

	if lastErr != nil && warn && (!opts.IsRefresh || usedRescue) {
		if !opts.RefreshListBox {
			p.RefreshListBox(0, NoTopIndex, NoTopIndex, false, false)
		}
		shown := path
		if usedRescue {
			shown = rescue
		}
		p.deps.Prompter.ShowError(shown, lastErr)
	}

	res.OK = fs.IsTheSamePath(p.diskPath, path)
	if !res.OK {
		res.Reason = ShorterPathUsed
	}
	return res
}
