package view

import (
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/justyntemme/salpanel/internal/debug"
	"github.com/justyntemme/salpanel/internal/listing"
)

// ColumnID identifies a detailed-view column.
type ColumnID int

const (
	ColName ColumnID = iota
	ColExt
	ColDOSName
	ColSize
	ColType
	ColDate
	ColTime
	ColAttr
	ColCustom
)

// Column is one detailed-view column. Width is computed unless Fixed.
type Column struct {
	ID       ColumnID
	Title    string
	Width    int
	MinWidth int
	Fixed    bool
	// Text renders a custom (plugin) column; upDir is set for "..".
	Text func(e *listing.Entry, upDir bool) string
}

// DefaultColumns returns the stock detailed-view columns.
func DefaultColumns() []Column {
	return []Column{
		{ID: ColName, Title: "Name", MinWidth: 40},
		{ID: ColExt, Title: "Ext", MinWidth: 20},
		{ID: ColSize, Title: "Size", MinWidth: 30},
		{ID: ColDate, Title: "Date", MinWidth: 30},
		{ID: ColTime, Title: "Time", MinWidth: 30},
	}
}

// Geometry is the outcome of measuring a listing.
type Geometry struct {
	Mode           Mode
	ItemWidth      int
	ItemHeight     int
	CaretHeight    int
	Columns        []Column
	FullNameWidth  int // widest name
	MostNamesWidth int // width showing most names entirely
	NarrowedName   bool
}

const (
	dirColumnText   = "DIR"
	upDirTypeName   = "Up Dir"
	folderTypeName  = "File Folder"
	dateLayout      = "2006-01-02"
	timeLayoutWidth = "23:59:59"
)

// Compute measures l for mode. columns is used in Detailed mode (nil means
// DefaultColumns); vp is needed only for smart Name column narrowing.
func Compute(mode Mode, l *listing.Listing, m Measurer, cfg Config, columns []Column, vp Viewport) Geometry {
	g := Geometry{Mode: mode}
	switch mode {
	case Brief:
		maxW := 0
		for i := 0; i < l.Count(); i++ {
			if w := m.TextWidth(l.At(i).Name); w > maxW {
				maxW = w
			}
		}
		maxW += 2 * IconSize16
		// leave something to click on in an empty panel
		if maxW < 4*IconSize16 {
			maxW = 4 * IconSize16
		}
		h := m.FontHeight() + 4
		if h < IconSize16+1 {
			h = IconSize16 + 1
		}
		g.ItemWidth, g.ItemHeight, g.CaretHeight = maxW, h, m.FontHeight()
		g.Columns = []Column{{ID: ColName, Title: "Name", Width: maxW}}

	case Icons:
		g.ItemWidth = IconSize32 + cfg.IconSpacingHorz
		g.ItemHeight = IconSize32 + cfg.IconSpacingVert

	case Thumbnails:
		size := cfg.ThumbnailSize
		if size <= 0 {
			size = DefaultConfig().ThumbnailSize
		}
		g.ItemWidth = size + 2 + cfg.ThumbnailSpacingHorz
		g.ItemHeight = size + 2 + cfg.IconSpacingVert

	case Tiles:
		w := IconSize48
		w += int(2.5 * float64(w))
		h := IconSize48 + cfg.TileSpacingVert
		if textH := 3*m.FontHeight() + 4; textH > h {
			h = textH
		}
		g.ItemWidth, g.ItemHeight = w, h

	default:
		g = computeDetailed(l, m, cfg, columns, vp)
	}
	debug.Log(debug.VIEW, "Compute: %s item %dx%d for %d entries", mode, g.ItemWidth, g.ItemHeight, l.Count())
	return g
}

func hasColumn(cols []Column, id ColumnID) bool {
	for _, c := range cols {
		if c.ID == id {
			return true
		}
	}
	return false
}

func attrString(a listing.Attr) string {
	b := []byte("----")
	if a&listing.AttrReadOnly != 0 {
		b[0] = 'R'
	}
	if a&listing.AttrHidden != 0 {
		b[1] = 'H'
	}
	if a&listing.AttrSystem != 0 {
		b[2] = 'S'
	}
	if a&listing.AttrArchive != 0 {
		b[3] = 'A'
	}
	return string(b)
}

// TypeName describes an entry for the Type column.
func TypeName(e *listing.Entry, upDir bool) string {
	switch {
	case upDir:
		return upDirTypeName
	case e.IsDir:
		return folderTypeName
	case e.Extension() != "":
		return strings.ToUpper(e.Extension()) + " File"
	}
	return "File"
}

func computeDetailed(l *listing.Listing, m Measurer, cfg Config, columns []Column, vp Viewport) Geometry {
	if columns == nil {
		columns = DefaultColumns()
	}
	cols := make([]Column, len(columns))
	copy(cols, columns)

	extVisible := hasColumn(cols, ColExt)
	nameFixed := len(cols) > 0 && cols[0].ID == ColName && cols[0].Fixed

	var wName, wExt, wDOS, wSize, wType, wDate, wTime, wAttr int
	total := l.Count()
	if len(l.Dirs) > 0 {
		wSize = m.TextWidth(dirColumnText) + spaceWidth
	}
	nameWidths := make([]int, 0, total)
	var maxSize uint64
	attrSeen := map[listing.Attr]bool{}
	dirTypeDone := false

	for i := 0; i < total; i++ {
		e := l.At(i)
		isDir := i < len(l.Dirs)
		upDir := i == 0 && e.IsUpDir()
		// ".htaccess" keeps its extension in the Name column
		extInCol := extVisible && !isDir && e.Ext < len(e.Name) && e.Ext > 1

		if !nameFixed {
			name := e.Name
			if extInCol {
				name = e.Name[:e.Ext-1]
			}
			w := m.TextWidth(name) + 1 + IconSize16 + 1 + 2 + spaceWidth
			if w > wName {
				wName = w
			}
			nameWidths = append(nameWidths, w)
		}
		if extInCol {
			if w := m.TextWidth(e.Name[e.Ext:]) + spaceWidth; w > wExt {
				wExt = w
			}
		}
		if e.DOSName != "" {
			if w := m.TextWidth(e.DOSName) + spaceWidth; w > wDOS {
				wDOS = w
			}
		}
		if !isDir && e.Size > maxSize {
			maxSize = e.Size
		}
		if !e.ModTime.IsZero() {
			if w := m.TextWidth(e.ModTime.Format(dateLayout)) + spaceWidth; w > wDate {
				wDate = w
			}
		}
		if mask := e.Attr & (listing.AttrReadOnly | listing.AttrHidden | listing.AttrSystem | listing.AttrArchive); mask != 0 && !attrSeen[mask] {
			attrSeen[mask] = true
			if w := m.TextWidth(attrString(e.Attr)) + spaceWidth; w > wAttr {
				wAttr = w
			}
		}
		if !isDir || !dirTypeDone {
			if isDir && !upDir {
				dirTypeDone = true
			}
			if w := m.TextWidth(TypeName(e, upDir)) + spaceWidth; w > wType {
				wType = w
			}
		}
	}
	if w := m.TextWidth(humanize.Comma(int64(maxSize))) + spaceWidth; w > wSize {
		wSize = w
	}
	wTime = m.TextWidth(timeLayoutWidth) + spaceWidth

	g := Geometry{Mode: Detailed, FullNameWidth: wName}
	if len(nameWidths) > 0 && !nameFixed {
		sort.Ints(nameWidths)
		g.MostNamesWidth = int(1.2 * float64(nameWidths[int(float64(len(nameWidths))*0.85)]))
		// when 44% more shows every name, show every name
		if float64(g.MostNamesWidth)*1.2 >= float64(g.FullNameWidth) {
			g.MostNamesWidth = g.FullNameWidth
		}
	}

	totalWidth := 0
	for i := range cols {
		c := &cols[i]
		if !c.Fixed {
			switch c.ID {
			case ColName:
				c.Width = wName
			case ColExt:
				c.Width = wExt
			case ColDOSName:
				c.Width = wDOS
			case ColSize:
				c.Width = wSize
			case ColType:
				c.Width = wType
			case ColDate:
				c.Width = wDate
			case ColTime:
				c.Width = wTime
			case ColAttr:
				c.Width = wAttr
			case ColCustom:
				c.Width = customWidth(l, m, c)
			}
		}
		if c.Width < c.MinWidth {
			c.Width = c.MinWidth
		}
		totalWidth += c.Width
	}

	if cfg.SmartMode && !nameFixed && len(cols) > 0 && cols[0].ID == ColName && vp.Width > 0 {
		c := &cols[0]
		if narrow := totalWidth - vp.Width; narrow > 0 {
			minWidth := g.MostNamesWidth
			if limit := int(0.75 * float64(vp.Width)); minWidth > limit {
				minWidth = limit
			}
			if minWidth < c.MinWidth {
				minWidth = c.MinWidth
			}
			newWidth := c.Width - narrow
			if newWidth < minWidth {
				newWidth = minWidth
			}
			g.NarrowedName = c.Width > newWidth
			totalWidth -= c.Width - newWidth
			c.Width = newWidth
		}
	}

	g.CaretHeight = m.FontHeight()
	h := m.FontHeight() + 4
	if h < IconSize16+1 {
		h = IconSize16 + 1
	}
	g.ItemWidth, g.ItemHeight, g.Columns = totalWidth, h, cols
	return g
}

func customWidth(l *listing.Listing, m Measurer, c *Column) int {
	w := c.MinWidth
	if c.Text == nil {
		return w
	}
	for i := 0; i < l.Count(); i++ {
		e := l.At(i)
		if s := c.Text(e, i == 0 && e.IsUpDir()); s != "" {
			if tw := m.TextWidth(s) + spaceWidth; tw > w {
				w = tw
			}
		}
	}
	return w
}
