package view

import (
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// Measurer returns rendered text extents.
type Measurer interface {
	TextWidth(s string) int
	FontHeight() int
}

// FaceMeasurer measures with a font face.
type FaceMeasurer struct {
	Face font.Face
}

// NewFaceMeasurer uses face, or the built-in 7x13 face when nil.
func NewFaceMeasurer(face font.Face) *FaceMeasurer {
	if face == nil {
		face = basicfont.Face7x13
	}
	return &FaceMeasurer{Face: face}
}

// TextWidth implements Measurer.
func (m *FaceMeasurer) TextWidth(s string) int {
	return font.MeasureString(m.Face, s).Ceil()
}

// FontHeight implements Measurer.
func (m *FaceMeasurer) FontHeight() int {
	return m.Face.Metrics().Height.Ceil()
}
