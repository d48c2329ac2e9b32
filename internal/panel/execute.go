package panel

import (
	"context"
	"strings"

	"github.com/justyntemme/salpanel/internal/debug"
	"github.com/justyntemme/salpanel/internal/fs"
	"github.com/justyntemme/salpanel/internal/listing"
	"github.com/justyntemme/salpanel/internal/location"
)

// Execute activates entry index of the installed listing. A directory is
// entered and ".." goes one level up; the scroll position of every level
// passed on the way down is remembered in TopIndexMemory and restored on
// the way up. An archive file is opened, any other file launched.
func (p *Panel) Execute(ctx context.Context, index int) Result {
	e := p.arena.Current().At(index)
	if e == nil {
		return failed(InvalidPath)
	}
	p.BeginStopRefresh()
	defer p.EndStopRefresh()

	switch loc := p.loc.(type) {
	case location.Disk:
		if !e.IsDir {
			return p.executeDiskFile(ctx, e)
		}
		if e.IsUpDir() {
			return p.diskUp(ctx)
		}
		return p.diskDown(ctx, e.Name)
	case location.Archive:
		if !e.IsDir {
			return p.executeArchiveFile(loc, e)
		}
		if e.IsUpDir() {
			return p.archiveUp(ctx, loc)
		}
		return p.archiveDown(ctx, loc, e.Name)
	case location.PluginFS:
		return p.executeOnFS(ctx, loc, e)
	}
	panic("panel: unexpected location type")
}

func (p *Panel) executeDiskFile(ctx context.Context, e *listing.Entry) Result {
	path := p.diskPath
	full := fs.Join(path, e.Name)
	if p.deps.Archives != nil && p.deps.Archives.IsArchive(full) {
		top := p.deps.ListBox.TopIndex()
		res := p.ChangePathToArchive(ctx, full, "", NewOptions())
		switch {
		case res.OK:
			p.topIndexMem.Push(path, top)
		case !res.NoChange:
			// ended up elsewhere
			p.topIndexMem.Clear()
		}
		return res
	}

	p.userWorked = true
	return p.launch(full)
}

func (p *Panel) launch(path string) Result {
	if p.deps.Launch == nil {
		debug.Log(debug.PANEL, "Execute: no launcher for %s", path)
		return Result{OK: true, Reason: Success, NoChange: true}
	}
	if err := p.deps.Launch(path); err != nil {
		p.deps.Prompter.ShowError(path, err)
		return failed(InvalidPath)
	}
	return Result{OK: true, Reason: Success, NoChange: true}
}

func (p *Panel) diskUp(ctx context.Context) Result {
	parent, prev, ok := fs.CutDirectory(p.diskPath)
	if !ok {
		// already at a root
		return failed(InvalidPath)
	}
	top, found := p.topIndexMem.FindAndPop(parent)
	if !found {
		top = NoTopIndex
	}
	res := p.ChangePathToDisk(ctx, parent, NewOptions().WithHints(top, prev))
	if !res.OK {
		p.topIndexMem.Clear()
	}
	return res
}

func (p *Panel) diskDown(ctx context.Context, name string) Result {
	path := p.diskPath
	top := p.deps.ListBox.TopIndex()
	caret := p.deps.ListBox.Focus()

	full := fs.Join(path, name)
	if len(full) >= fs.MaxPath {
		p.deps.Prompter.ShowError(full, fs.ErrPathTooLong)
		return failed(InvalidPath)
	}

	opts := NewOptions()
	opts.RefreshListBox = false
	res := p.ChangePathToDisk(ctx, full, opts)
	refresh := true
	switch {
	case res.OK:
		p.topIndexMem.Push(path, top)
	case !fs.IsTheSamePath(path, p.diskPath):
		p.topIndexMem.Clear()
	default:
		// shortened straight back to where we were
		refresh = false
		if !res.NoChange {
			p.RefreshListBox(0, top, caret, false, false)
		}
	}
	if refresh {
		p.RefreshListBox(0, NoTopIndex, NoTopIndex, false, false)
	}
	return res
}

func (p *Panel) executeArchiveFile(loc location.Archive, e *listing.Entry) Result {
	p.userWorked = true
	if p.deps.Assoc == nil {
		return failed(InvalidArchive)
	}
	f, err := p.deps.Assoc.Extract(loc.File, innerChild(loc.Inner, e.Name))
	if err != nil {
		p.deps.Prompter.ShowError(location.JoinInner(loc.File, innerChild(loc.Inner, e.Name)), err)
		return failed(InvalidArchive)
	}
	return p.launch(f.TempPath)
}

func (p *Panel) archiveUp(ctx context.Context, loc location.Archive) Result {
	if loc.Inner == "" {
		// leaving the archive
		_, name, _ := fs.CutDirectory(loc.File)
		dir := p.diskPath
		top, found := p.topIndexMem.FindAndPop(dir)
		if !found {
			top = NoTopIndex
		}
		res := p.ChangePathToDisk(ctx, dir, NewOptions().WithHints(top, name))
		if !res.OK {
			if !res.NoChange {
				p.topIndexMem.Clear()
			} else if found {
				// the archive refused to close; keep the position for next time
				p.topIndexMem.Push(dir, top)
			}
		}
		return res
	}

	parent, prev, _ := location.CutInner(loc.Inner)
	top, found := p.topIndexMem.FindAndPop(location.JoinInner(loc.File, parent))
	if !found {
		top = NoTopIndex
	}
	res := p.ChangePathToArchive(ctx, loc.File, parent, NewOptions().WithHints(top, prev))
	if !res.OK {
		p.topIndexMem.Clear()
	}
	return res
}

func (p *Panel) archiveDown(ctx context.Context, loc location.Archive, name string) Result {
	key := location.JoinInner(loc.File, loc.Inner)
	top := p.deps.ListBox.TopIndex()
	res := p.ChangePathToArchive(ctx, loc.File, innerChild(loc.Inner, name), NewOptions())
	switch {
	case res.OK:
		p.topIndexMem.Push(key, top)
	case !res.NoChange:
		p.topIndexMem.Clear()
	}
	return res
}

// innerChild appends name to an inner archive path.
func innerChild(inner, name string) string {
	if inner == "" {
		return name
	}
	return inner + "/" + name
}

// executeOnFS moves through a plugin fs. Plugin paths are not tracked by
// TopIndexMemory; files are left to the plugin.
func (p *Panel) executeOnFS(ctx context.Context, loc location.PluginFS, e *listing.Entry) Result {
	if !e.IsDir {
		p.userWorked = true
		debug.Log(debug.PLUGIN, "Execute: file %s on %s left to the plugin", e.Name, loc.Describe())
		return Result{OK: true, Reason: Success, NoChange: true}
	}
	if e.IsUpDir() {
		parent, ok := cutUserPart(loc.UserPart)
		if !ok {
			return failed(InvalidPath)
		}
		trimmed := strings.TrimRight(loc.UserPart, `/\`)
		prev := trimmed[strings.LastIndexAny(trimmed, `/\`)+1:]
		return p.ChangePathToPluginFS(ctx, loc.FSName, parent, NewOptions().WithHints(NoTopIndex, prev))
	}
	return p.ChangePathToPluginFS(ctx, loc.FSName, userChild(loc.UserPart, e.Name), NewOptions())
}

// userChild appends name to a plugin path.
func userChild(user, name string) string {
	if user == "" || strings.HasSuffix(user, "/") || strings.HasSuffix(user, `\`) {
		return user + name
	}
	return user + "/" + name
}
