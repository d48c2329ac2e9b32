package view

import "sync"

// ListBox is the widget that draws a listing. The panel only needs the
// scroll position and a way to push a new item count.
type ListBox interface {
	TopIndex() int
	XOffset() int
	Viewport() Viewport
	SetGeometry(g Geometry)
	SetItemsCount(count, xOffset, topIndex int)
	SetFocus(index int)
	Focus() int
}

// Box is a headless ListBox.
type Box struct {
	mu       sync.Mutex
	vp       Viewport
	geometry Geometry
	count    int
	xOffset  int
	top      int
	focus    int
	updates  int
}

// NewBox returns a Box with the given viewport.
func NewBox(vp Viewport) *Box { return &Box{vp: vp} }

func (b *Box) TopIndex() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.top
}

func (b *Box) XOffset() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.xOffset
}

func (b *Box) Viewport() Viewport {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.vp
}

// Resize changes the viewport.
func (b *Box) Resize(vp Viewport) {
	b.mu.Lock()
	b.vp = vp
	b.mu.Unlock()
}

func (b *Box) SetGeometry(g Geometry) {
	b.mu.Lock()
	b.geometry = g
	b.mu.Unlock()
}

// Geometry returns the last geometry set.
func (b *Box) Geometry() Geometry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.geometry
}

func (b *Box) SetItemsCount(count, xOffset, topIndex int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count, b.xOffset, b.top = count, xOffset, topIndex
	if b.focus >= count {
		b.focus = max(count-1, 0)
	}
	b.updates++
}

func (b *Box) SetFocus(index int) {
	b.mu.Lock()
	b.focus = index
	b.mu.Unlock()
}

func (b *Box) Focus() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.focus
}

// Count returns the item count last pushed.
func (b *Box) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Updates counts SetItemsCount calls.
func (b *Box) Updates() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.updates
}
