package pluginfs

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/justyntemme/salpanel/internal/debug"
)

// Session is a live plugin filesystem. It is owned either by one panel or
// by the DetachedList and moves between them, never being shared.
type Session struct {
	ID          uuid.UUID
	FS          FS
	Plugin      Plugin
	FSName      string
	FSNameIndex int
	Created     time.Time
	Detached    time.Time
}

// NewSession wraps an opened FS.
func NewSession(p Plugin, f FS, fsName string, fsNameIndex int) *Session {
	return &Session{
		ID:          uuid.New(),
		FS:          f,
		Plugin:      p,
		FSName:      fsName,
		FSNameIndex: fsNameIndex,
		Created:     time.Now(),
	}
}

// IsFSName reports whether name is the session's fs name.
func (s *Session) IsFSName(name string) bool { return strings.EqualFold(s.FSName, name) }

// Describe returns "fsname:path" for the session's current path.
func (s *Session) Describe() string {
	p, _ := s.FS.GetCurrentPath()
	return s.FSName + ":" + p
}

// Close releases the session through its plugin.
func (s *Session) Close(side Side) {
	s.FS.ReleaseObject(side)
	s.Plugin.CloseFS(s.FS)
	debug.Log(debug.PLUGIN, "Session %s closed", s.ID)
}

// DetachedList holds sessions kept alive outside the panels.
type DetachedList struct {
	mu       sync.Mutex
	sessions []*Session
}

// NewDetachedList returns an empty list.
func NewDetachedList() *DetachedList { return &DetachedList{} }

// Add takes ownership of s.
func (d *DetachedList) Add(s *Session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s.Detached = time.Now()
	d.sessions = append(d.sessions, s)
	debug.Log(debug.PLUGIN, "DetachedList: added %s (%s), %d detached", s.ID, s.FSName, len(d.sessions))
}

// Len returns the number of detached sessions.
func (d *DetachedList) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}

// At returns session i without removing it.
func (d *DetachedList) At(i int) (*Session, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i < 0 || i >= len(d.sessions) {
		return nil, false
	}
	return d.sessions[i], true
}

// IndexOf finds a session by id.
func (d *DetachedList) IndexOf(id uuid.UUID) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, s := range d.sessions {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Take removes session i and hands ownership to the caller.
func (d *DetachedList) Take(i int) (*Session, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i < 0 || i >= len(d.sessions) {
		return nil, false
	}
	s := d.sessions[i]
	d.sessions = append(d.sessions[:i], d.sessions[i+1:]...)
	return s, true
}

// Remove drops the session with the given id.
func (d *DetachedList) Remove(id uuid.UUID) bool {
	if i := d.IndexOf(id); i >= 0 {
		_, ok := d.Take(i)
		return ok
	}
	return false
}

// Sessions returns a snapshot of the list.
func (d *DetachedList) Sessions() []*Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Session, len(d.sessions))
	copy(out, d.sessions)
	return out
}

// CloseAll closes every detached session.
func (d *DetachedList) CloseAll() {
	d.mu.Lock()
	sessions := d.sessions
	d.sessions = nil
	d.mu.Unlock()
	for _, s := range sessions {
		s.Close(SideLeft)
	}
}
