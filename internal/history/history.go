// Package history keeps the directory history shared by both panels.
package history

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/justyntemme/salpanel/internal/debug"
	"github.com/justyntemme/salpanel/internal/fs"
	"github.com/justyntemme/salpanel/internal/location"
	"github.com/justyntemme/salpanel/internal/logging"
	"github.com/justyntemme/salpanel/internal/store"
)

// DefaultMax is used when New is given a non-positive limit.
const DefaultMax = 30

// Entry is one visited location.
type Entry struct {
	Kind      location.Kind
	Primary   string    // disk path, archive file or fs name
	Secondary string    // archive inner path or fs user part
	SessionID uuid.UUID // plugin session the path was visited with, if any
	TopIndex  int
	FocusName string
}

// Location rebuilds the location an entry describes.
func (e Entry) Location() location.Location {
	switch e.Kind {
	case location.KindArchive:
		return location.Archive{File: e.Primary, Inner: e.Secondary}
	case location.KindPluginFS:
		return location.PluginFS{FSName: e.Primary, UserPart: e.Secondary}
	}
	return location.Disk{Path: e.Primary}
}

func (e Entry) matches(kind location.Kind, primary, secondary string) bool {
	if e.Kind != kind {
		return false
	}
	switch kind {
	case location.KindDisk:
		return fs.IsTheSamePath(e.Primary, primary)
	case location.KindArchive:
		return fs.IsTheSamePath(e.Primary, primary) &&
			strings.EqualFold(location.NormalizeInner(e.Secondary), location.NormalizeInner(secondary))
	}
	return strings.EqualFold(e.Primary, primary) && e.Secondary == secondary
}

// Persister stores history between runs. *store.DB implements it.
type Persister interface {
	SaveHistoryRecord(r store.HistoryRecord) error
	RemoveHistoryRecord(r store.HistoryRecord) error
	LoadHistory(limit int) ([]store.HistoryRecord, error)
}

// DirHistory is a most-recent-first list without duplicates.
type DirHistory struct {
	mu        sync.Mutex
	entries   []Entry
	max       int
	lockCount int
	persist   Persister
}

// New returns a history holding at most max entries.
func New(max int, p Persister) *DirHistory {
	if max <= 0 {
		max = DefaultMax
	}
	return &DirHistory{max: max, persist: p}
}

// Load replaces the entries with the persisted ones.
func (h *DirHistory) Load() error {
	if h.persist == nil {
		return nil
	}
	recs, err := h.persist.LoadHistory(h.max)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = h.entries[:0]
	for _, r := range recs {
		h.entries = append(h.entries, Entry{
			Kind:      location.Kind(r.Kind),
			Primary:   r.Primary,
			Secondary: r.Secondary,
			TopIndex:  r.TopIndex,
			FocusName: r.FocusName,
		})
	}
	debug.Log(debug.HISTORY, "Load: %d entries", len(h.entries))
	return nil
}

// LockAdd suppresses AddPathUnique until the matching UnlockAdd. It is
// used while a path change must not leave a history trace.
func (h *DirHistory) LockAdd() {
	h.mu.Lock()
	h.lockCount++
	h.mu.Unlock()
}

// UnlockAdd ends a LockAdd.
func (h *DirHistory) UnlockAdd() {
	h.mu.Lock()
	if h.lockCount > 0 {
		h.lockCount--
	}
	h.mu.Unlock()
}

// CanAdd reports whether additions are currently accepted.
func (h *DirHistory) CanAdd() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lockCount == 0
}

func record(e Entry) store.HistoryRecord {
	return store.HistoryRecord{
		Kind:      int(e.Kind),
		Primary:   e.Primary,
		Secondary: e.Secondary,
		TopIndex:  e.TopIndex,
		FocusName: e.FocusName,
	}
}

// report logs a failed write. The in-memory history stays authoritative.
func report(op string, e Entry, err error) {
	if err == nil {
		return
	}
	logging.Named("history").Warn("persist failed",
		zap.String("op", op),
		zap.Stringer("kind", e.Kind),
		zap.String("primary", e.Primary),
		zap.String("secondary", e.Secondary),
		zap.Error(err))
}

// AddPathUnique moves the location to the front, adding it when absent.
func (h *DirHistory) AddPathUnique(kind location.Kind, primary, secondary string, session uuid.UUID) {
	h.mu.Lock()
	if h.lockCount > 0 {
		h.mu.Unlock()
		debug.Log(debug.HISTORY, "AddPathUnique: suppressed %s", primary)
		return
	}
	e := Entry{Kind: kind, Primary: primary, Secondary: secondary, SessionID: session}
	for i, old := range h.entries {
		if old.matches(kind, primary, secondary) {
			e.TopIndex, e.FocusName = old.TopIndex, old.FocusName
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			break
		}
	}
	h.entries = append([]Entry{e}, h.entries...)
	if len(h.entries) > h.max {
		h.entries = h.entries[:h.max]
	}
	h.mu.Unlock()

	debug.Log(debug.HISTORY, "AddPathUnique: %s %q %q", kind, primary, secondary)
	if h.persist != nil {
		report("save", e, h.persist.SaveHistoryRecord(record(e)))
	}
}

// RemoveActualPath drops the location from the history.
func (h *DirHistory) RemoveActualPath(kind location.Kind, primary, secondary string) bool {
	h.mu.Lock()
	var removed *Entry
	for i, old := range h.entries {
		if old.matches(kind, primary, secondary) {
			e := old
			removed = &e
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			break
		}
	}
	h.mu.Unlock()
	if removed != nil && h.persist != nil {
		report("remove", *removed, h.persist.RemoveHistoryRecord(record(*removed)))
	}
	return removed != nil
}

// ChangeActualPathData stores the scroll state of a location already in
// the history.
func (h *DirHistory) ChangeActualPathData(kind location.Kind, primary, secondary string, topIndex int, focusName string) bool {
	h.mu.Lock()
	var changed *Entry
	for i := range h.entries {
		if h.entries[i].matches(kind, primary, secondary) {
			h.entries[i].TopIndex = topIndex
			h.entries[i].FocusName = focusName
			e := h.entries[i]
			changed = &e
			break
		}
	}
	h.mu.Unlock()
	if changed != nil && h.persist != nil {
		report("save", *changed, h.persist.SaveHistoryRecord(record(*changed)))
	}
	return changed != nil
}

// Entries returns a copy, most recent first.
func (h *DirHistory) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Entry(nil), h.entries...)
}

// Len returns the number of entries.
func (h *DirHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// ForgetSession clears the session id of entries pointing at a closed
// plugin session.
func (h *DirHistory) ForgetSession(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.entries {
		if h.entries[i].SessionID == id {
			h.entries[i].SessionID = uuid.Nil
		}
	}
}
