package listing

import "sync"

// Arena owns the listing currently installed in a panel. Every Install or
// Release bumps the generation so work started against an older listing
// can tell it is stale.
type Arena struct {
	mu  sync.RWMutex
	gen uint64
	cur *Listing
}

// Install makes l current and returns its generation.
func (a *Arena) Install(l *Listing) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gen++
	if l != nil {
		l.Generation = a.gen
	}
	a.cur = l
	return a.gen
}

// Release drops the current listing.
func (a *Arena) Release() *Listing {
	a.mu.Lock()
	defer a.mu.Unlock()
	old := a.cur
	a.cur = nil
	a.gen++
	return old
}

// Current returns the installed listing, possibly nil.
func (a *Arena) Current() *Listing {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cur
}

// Generation returns the generation of the installed listing.
func (a *Arena) Generation() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.gen
}

// IsCurrent reports whether gen still names the installed listing.
func (a *Arena) IsCurrent(gen uint64) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cur != nil && gen == a.gen
}
