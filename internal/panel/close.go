package panel

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/justyntemme/salpanel/internal/debug"
	"github.com/justyntemme/salpanel/internal/location"
	"github.com/justyntemme/salpanel/internal/pluginfs"
)

// PrepareCloseCurrentPath asks the current location whether it may be
// left. Nothing about the panel changes; detach reports that a plugin
// session wants to survive in the detached list.
func (p *Panel) PrepareCloseCurrentPath(ctx context.Context, canForce, canDetach bool, reason pluginfs.CloseReason) (closable, detach bool) {
	return p.prepareClose(ctx, canForce, canDetach, reason, p.deps.Prompter)
}

func (p *Panel) prepareClose(ctx context.Context, canForce, canDetach bool, reason pluginfs.CloseReason, pr Prompter) (bool, bool) {
	switch loc := p.loc.(type) {
	case location.Disk:
		return true, false

	case location.Archive:
		if p.deps.Assoc != nil && p.deps.Assoc.Count(loc.File) > 0 {
			if changed := p.deps.Assoc.CheckAndPackAndClear(ctx, loc.File, p.critical); changed && p.critical {
				p.log.Warn("edited archive members were not packed", zap.String("archive", loc.File))
			}
		}
		if p.deps.Archives == nil || p.deps.Archives.CanClose(loc.File, false) {
			return true, false
		}
		if canForce && pr.ConfirmForceClose(loc) {
			p.deps.Archives.CanClose(loc.File, true)
			return true, false
		}
		debug.Log(debug.PANEL, "PrepareClose: archive %s refused", loc.File)
		return false, false

	case location.PluginFS:
		f := p.session.FS
		if !canForce && !p.critical {
			ok, detach := f.TryCloseOrDetach(false, canDetach, reason)
			if !ok || !canDetach {
				detach = false
			}
			debug.Log(debug.PANEL, "PrepareClose: %s ok=%v detach=%v", loc.Describe(), ok, detach)
			return ok, detach
		}
		if ok, _ := f.TryCloseOrDetach(p.critical, false, reason); ok || p.critical {
			return true, false
		}
		if pr.ConfirmForceClose(loc) {
			f.TryCloseOrDetach(true, false, reason)
			return true, false
		}
		return false, false
	}
	panic("panel: unexpected location type")
}

// CloseCurrentPath finishes a close prepared by PrepareCloseCurrentPath.
// With cancel the location stays as it is. Otherwise the location is
// remembered in history, its listing released and the panel reset to a
// disk location at GetPath until the caller installs the new one.
// sameLocation is set when the panel is about to show the same location
// again, which keeps hidden names and the selection.
func (p *Panel) CloseCurrentPath(cancel, detach, sameLocation bool) {
	switch loc := p.loc.(type) {
	case location.Disk:
		if cancel {
			return
		}
		p.rememberLeaving(loc, uuid.Nil, sameLocation)
		p.releaseListing()

	case location.Archive:
		if cancel {
			return
		}
		p.rememberLeaving(loc, uuid.Nil, sameLocation)
		p.releaseListing()
		p.loc = location.Disk{Path: p.diskPath}

	case location.PluginFS:
		s := p.session
		if cancel {
			s.FS.Event(pluginfs.EventCloseOrDetachCanceled, p.side)
			return
		}
		if user, ok := s.FS.GetCurrentPath(); ok {
			p.rememberLeaving(location.PluginFS{FSName: s.FSName, FSNameIndex: s.FSNameIndex, UserPart: user}, s.ID, sameLocation)
		}
		if !detach {
			s.FS.ReleaseObject(p.side)
		}
		p.releaseListing()
		p.session = nil
		p.iconsType = pluginfs.IconsSimple
		p.loc = location.Disk{Path: p.diskPath}
		if detach {
			p.deps.Detached.Add(s)
			s.FS.Event(pluginfs.EventDetached, p.side)
		} else {
			s.Plugin.CloseFS(s.FS)
			p.deps.History.ForgetSession(s.ID)
			debug.Log(debug.PLUGIN, "CloseCurrentPath: session %s closed", s.ID)
		}

	default:
		panic("panel: unexpected location type")
	}
}

// rememberLeaving adds loc to history when the user did something there
// and drops per-location state unless the same location comes back.
func (p *Panel) rememberLeaving(loc location.Location, session uuid.UUID, sameLocation bool) {
	if p.userWorked {
		primary, secondary := historyKey(loc)
		p.deps.History.AddPathUnique(loc.Kind(), primary, secondary, session)
		if !sameLocation {
			p.userWorked = false
		}
	}
	if sameLocation {
		p.oldSelection = p.arena.Current().SelectedNames()
		return
	}
	p.forgetLocationState()
}

func (p *Panel) forgetLocationState() {
	clear(p.hiddenNames)
	p.oldSelection = nil
}

// releaseListing drops the listing and whatever backs it. Icon workers must
// be asleep.
func (p *Panel) releaseListing() {
	p.releaseEntries()
	p.tree = nil
	p.archiveData = nil
	p.pluginData = nil
	p.fsListing = nil
}

func (p *Panel) releaseEntries() {
	if p.arena.Current() == nil {
		return
	}
	if p.releaseHook != nil {
		p.releaseHook()
	}
	p.arena.Release()
}
