package panel

import (
	"context"
	"errors"
	"strings"

	"github.com/justyntemme/salpanel/internal/debug"
	"github.com/justyntemme/salpanel/internal/listing"
	"github.com/justyntemme/salpanel/internal/location"
	"github.com/justyntemme/salpanel/internal/view"
)

var errArchiveDirGone = errors.New("panel: directory not found in archive")

// CommonRefresh rereads the current location and shows it with the
// suggested top index and focused name.
func (p *Panel) CommonRefresh(ctx context.Context, topIndex int, focusName string) error {
	return p.commonRefresh(ctx, topIndex, focusName, true, true)
}

// commonRefresh installs a listing for the current location. Disk paths
// are read again; archives take the directory from the open tree; a plugin
// fs installs what ChangeAndListPathOnFS listed, or keeps the current
// listing when readDirectory is false. On a read error an empty listing
// is installed and the error returned.
func (p *Panel) commonRefresh(ctx context.Context, topIndex int, focusName string, refreshListBox, readDirectory bool) error {
	p.sleepIcons()

	var (
		l     *listing.Listing
		owned bool // the panel may filter and reorder l in place
		err   error
	)
	switch loc := p.loc.(type) {
	case location.Disk:
		if readDirectory || p.arena.Current() == nil {
			l, err = p.deps.ReadDir(loc.Path)
			owned = true
		} else {
			l = p.arena.Current()
		}
	case location.Archive:
		found := false
		if p.tree != nil {
			l, found = p.tree.Lookup(loc.Inner)
		}
		if !found {
			err = errArchiveDirGone
		}
	case location.PluginFS:
		if p.fsListing != nil {
			l, owned = p.fsListing, true
			p.fsListing = nil
		} else {
			l = p.arena.Current()
		}
		if l == nil {
			l, owned = listing.New(), true
		}
	default:
		panic("panel: unexpected location type")
	}

	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		debug.Log(debug.PANEL, "CommonRefresh: %s: %v", p.GeneralPath(), err)
		p.releaseEntries()
		p.arena.Install(listing.New())
		if refreshListBox {
			p.RefreshListBox(0, NoTopIndex, NoTopIndex, false, false)
		}
		return err
	}

	reused := l == p.arena.Current()
	switch {
	case owned:
		p.filter(l)
		l.Sort(p.settings.SortMode)
		p.restoreSelection(l)
	case reused:
		// already filtered and sorted when it was installed
	case p.settings.SortMode != listing.SortByName || len(p.oldSelection) > 0 || len(p.hiddenNames) > 0 || !p.settings.ShowDotfiles:
		// the tree keeps its own order; sort a private copy
		l = l.Clone()
		p.filter(l)
		l.Sort(p.settings.SortMode)
		p.restoreSelection(l)
	}

	gen := p.arena.Generation()
	if !reused {
		p.releaseEntries()
		gen = p.arena.Install(l)
	}

	focus, _ := l.Find(focusName)
	if refreshListBox {
		p.RefreshListBox(NoTopIndex, topIndex, focus, focusName != "", false)
	}

	if loc, ok := p.loc.(location.Disk); ok && p.deps.Icons != nil {
		entries := make([]*listing.Entry, 0, l.Count())
		for i := 0; i < l.Count(); i++ {
			entries = append(entries, l.At(i))
		}
		p.deps.Icons.Wake(gen, loc.Path, entries)
	}

	p.deps.Metrics.SetListingEntries(sideName(p.side), l.Count())
	p.RefreshDiskFreeSpace(true)
	p.notifyStatus()
	return nil
}

// filter drops dotfiles and hidden names from l. ".." always stays.
func (p *Panel) filter(l *listing.Listing) {
	keep := func(e *listing.Entry) bool {
		if e.IsUpDir() {
			return true
		}
		if !p.settings.ShowDotfiles && strings.HasPrefix(e.Name, ".") {
			return false
		}
		return !p.hiddenNames[e.Name]
	}
	dirs := l.Dirs[:0]
	for _, d := range l.Dirs {
		if keep(d) {
			dirs = append(dirs, d)
		}
	}
	l.Dirs = dirs
	files := l.Files[:0]
	for _, f := range l.Files {
		if keep(f) {
			files = append(files, f)
		}
	}
	l.Files = files
}

// restoreSelection reselects what was selected before the same location
// was listed again.
func (p *Panel) restoreSelection(l *listing.Listing) {
	if len(p.oldSelection) == 0 {
		return
	}
	for _, name := range p.oldSelection {
		if i, _ := l.Find(name); i >= 0 {
			if e := l.At(i); !e.IsUpDir() {
				e.Selected = true
			}
		}
	}
	p.oldSelection = nil
}

func (p *Panel) notifyStatus() {
	if p.deps.Status == nil {
		return
	}
	s := view.StatusOf(p.GeneralPath(), p.arena.Current())
	s.FreeBytes, s.HasFreeSpace = p.freeSpace, p.hasFreeSpace
	p.deps.Status.SetStatus(s)
}

// RefreshListBox recomputes the geometry of the installed listing and
// positions the list box. A value of -1 for xOffset, topIndex or
// focusIndex leaves the choice to the panel. With ensureVisible the top
// index is moved when the focus would not be shown; whole requires the
// focused item to be fully visible.
func (p *Panel) RefreshListBox(xOffset, topIndex, focusIndex int, ensureVisible, whole bool) {
	l := p.arena.Current()
	if l == nil {
		l = listing.New()
	}
	lb := p.deps.ListBox
	vp := lb.Viewport()
	g := view.Compute(p.settings.ViewMode, l, p.deps.Measurer, p.settings.View, p.settings.Columns, vp)
	lb.SetGeometry(g)
	count := l.Count()
	ly := view.NewLayout(g, vp, count)
	if topIndex != NoTopIndex && !ly.ValidTopIndex(topIndex) {
		debug.Log(debug.VIEW, "RefreshListBox: top %d is past %d items, predicting", topIndex, count)
		topIndex = NoTopIndex
	}

	focus := 0
	if focusIndex >= 0 && focusIndex < count {
		focus = focusIndex
		find := true
		if topIndex != NoTopIndex {
			find = ensureVisible && !ly.IsVisible(focus, topIndex, whole)
		}
		if find {
			topIndex = ly.PredictTopIndex(focus, max(topIndex, 0))
		}
	} else if ensureVisible {
		// no focus to keep visible, drop the suggested top index
		topIndex = NoTopIndex
	}

	if xOffset == NoTopIndex {
		xOffset = 0
		if p.settings.ViewMode == view.Detailed {
			xOffset = lb.XOffset()
		}
	}
	if topIndex == NoTopIndex {
		topIndex = 0
	}
	lb.SetItemsCount(count, xOffset, topIndex)
	lb.SetFocus(focus)
	debug.Log(debug.VIEW, "RefreshListBox: %d items, top %d, focus %d", count, topIndex, focus)
}
