package view

// Layout is the scroll arithmetic of a geometry in a viewport. In Brief and
// Detailed modes the top index counts items; in Icons, Thumbnails and Tiles
// it counts pixels.
type Layout struct {
	Geometry
	Viewport
	Count               int
	EntireItemsInColumn int // rows fully visible
	ColumnsCount        int
	EntireColumnsCount  int
}

// NewLayout derives the row and column counts for count items.
func NewLayout(g Geometry, vp Viewport, count int) Layout {
	ly := Layout{Geometry: g, Viewport: vp, Count: count}
	itemH, itemW := max(g.ItemHeight, 1), max(g.ItemWidth, 1)
	ly.EntireItemsInColumn = max(vp.Height/itemH, 1)
	switch g.Mode {
	case Brief:
		ly.ColumnsCount = (count + ly.EntireItemsInColumn - 1) / ly.EntireItemsInColumn
		ly.EntireColumnsCount = max(vp.Width/itemW, 1)
	case Icons, Thumbnails, Tiles:
		ly.ColumnsCount = max(vp.Width/itemW, 1)
		ly.EntireColumnsCount = ly.ColumnsCount
	default:
		ly.ColumnsCount, ly.EntireColumnsCount = 1, 1
	}
	return ly
}

func (ly Layout) pixelMode() bool {
	return ly.Mode == Icons || ly.Mode == Thumbnails || ly.Mode == Tiles
}

func (ly Layout) itemTop(index int) int {
	return (index / ly.ColumnsCount) * ly.ItemHeight
}

// IsVisible reports whether index is shown with the given top index. With
// whole set a partially clipped item does not count.
func (ly Layout) IsVisible(index, top int, whole bool) bool {
	if index < 0 || index >= ly.Count {
		return false
	}
	switch {
	case ly.Mode == Brief:
		return index >= top && index < top+ly.EntireColumnsCount*ly.EntireItemsInColumn
	case ly.pixelMode():
		t := ly.itemTop(index)
		b := t + ly.ItemHeight
		if whole {
			return t >= top && b <= top+ly.Height
		}
		return b > top && t < top+ly.Height
	}
	rows := ly.EntireItemsInColumn
	if !whole {
		rows++
	}
	return index >= top && index < top+rows
}

// ValidTopIndex reports whether top shows at least one item. Zero is
// always valid, even for an empty listing.
func (ly Layout) ValidTopIndex(top int) bool {
	switch {
	case top == 0:
		return true
	case top < 0:
		return false
	case ly.pixelMode():
		rows := (ly.Count + ly.ColumnsCount - 1) / ly.ColumnsCount
		return top < rows*ly.ItemHeight
	}
	return top < ly.Count
}

// PredictTopIndex returns the top index that scrolls index into view while
// moving as little as possible from top.
func (ly Layout) PredictTopIndex(index, top int) int {
	if index < 0 {
		return max(top, 0)
	}
	switch {
	case ly.Mode == Brief:
		perCol := ly.EntireItemsInColumn
		col := index / perCol
		first := top / perCol
		switch {
		case col < first:
			first = col
		case col >= first+ly.EntireColumnsCount:
			first = col - ly.EntireColumnsCount + 1
		}
		if limit := ly.ColumnsCount - ly.EntireColumnsCount; first > limit {
			first = limit
		}
		return max(first, 0) * perCol

	case ly.pixelMode():
		t := ly.itemTop(index)
		b := t + ly.ItemHeight
		switch {
		case t < top:
			top = t
		case b > top+ly.Height:
			top = b - ly.Height
		}
		return max(top, 0)
	}
	switch {
	case index < top:
		top = index
	case index > top+ly.EntireItemsInColumn-1:
		top = index - ly.EntireItemsInColumn + 1
	}
	return max(top, 0)
}
