package panel

import (
	"context"
	"os"

	"github.com/justyntemme/salpanel/internal/fs"
	"github.com/justyntemme/salpanel/internal/location"
)

// ChangePath navigates to input as the user typed it: a disk path,
// absolute or relative to GetPath, a path into an archive file or
// "fsname:path" on a plugin fs. With CanFocusFileName a disk path naming
// a regular file opens its directory with the file focused.
func (p *Panel) ChangePath(ctx context.Context, input string, opts Options) Result {
	c := location.Classifier{}
	// typed nils would make the interfaces non-nil
	if p.deps.Archives != nil {
		c.Archives = p.deps.Archives
	}
	if p.deps.Plugins != nil {
		c.Plugins = p.deps.Plugins
	}
	loc, err := c.Classify(input, p.diskPath)
	if err != nil {
		p.prompter(opts).ShowError(input, err)
		return failed(InvalidPath)
	}

	switch l := loc.(type) {
	case location.Disk:
		if opts.CanFocusFileName && opts.FocusName == "" {
			if info, err := os.Stat(l.Path); err == nil && info.Mode().IsRegular() {
				if dir, name, ok := fs.CutDirectory(l.Path); ok {
					return p.focusFile(ctx, dir, name, opts)
				}
			}
		}
		return p.ChangePathToDisk(ctx, l.Path, opts)
	case location.Archive:
		return p.ChangePathToArchive(ctx, l.File, l.Inner, opts)
	case location.PluginFS:
		opts.ConvertPath = true
		return p.ChangePathToPluginFS(ctx, l.FSName, l.UserPart, opts)
	}
	panic("panel: unexpected location type")
}

// focusFile shows dir with name focused.
func (p *Panel) focusFile(ctx context.Context, dir, name string, opts Options) Result {
	res := p.ChangePathToDisk(ctx, dir, opts.WithHints(NoTopIndex, name))
	if !res.OK {
		return res
	}
	if i, _ := p.arena.Current().Find(name); i >= 0 {
		res.OK = false
		res.Reason = FileNameWasFocusedInstead
		res.FocusName = name
	}
	return res
}
