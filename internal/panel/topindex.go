package panel

import "github.com/justyntemme/salpanel/internal/fs"

// TopIndexMemDepth bounds the scroll positions remembered on the way down.
const TopIndexMemDepth = 50

// TopIndexMemory remembers the scroll position of each directory while the
// user steps down a tree, so stepping back up restores it. Any other move
// is a long jump and clears it.
type TopIndexMemory struct {
	path string
	tops []int
}

// Push records top for path. It continues the sequence when path is a
// direct child of the last pushed path and starts a new one otherwise.
func (m *TopIndexMemory) Push(path string, top int) {
	if m.path != "" && fs.IsDirectChild(m.path, path) {
		if len(m.tops) == TopIndexMemDepth {
			m.tops = append(m.tops[:0], m.tops[1:]...)
		}
		m.tops = append(m.tops, top)
	} else {
		m.tops = append(m.tops[:0], top)
	}
	m.path = path
}

// FindAndPop returns the top index stored for path if path is the last
// pushed one. Asking for anything else clears the memory.
func (m *TopIndexMemory) FindAndPop(path string) (int, bool) {
	if m.path == "" || !fs.IsTheSamePath(path, m.path) || len(m.tops) == 0 {
		m.Clear()
		return NoTopIndex, false
	}
	top := m.tops[len(m.tops)-1]
	m.tops = m.tops[:len(m.tops)-1]
	if parent, _, ok := fs.CutDirectory(m.path); ok {
		m.path = parent
	} else {
		m.path = ""
	}
	return top, true
}

// Clear forgets everything.
func (m *TopIndexMemory) Clear() {
	m.path = ""
	m.tops = m.tops[:0]
}

// Len returns the number of remembered positions.
func (m *TopIndexMemory) Len() int { return len(m.tops) }

// Path returns the path the next FindAndPop expects.
func (m *TopIndexMemory) Path() string { return m.path }
