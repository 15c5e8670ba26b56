// Package selection tracks the selected frame of a flame graph.
//
// Selection is by frame identity: selecting a frame highlights every box
// showing that frame, wherever it appears in the tree. Each change reports
// only the boxes whose highlight state flipped, so painters can redraw that
// subset instead of the whole graph.
package selection

import (
	"github.com/matzehuels/stackgraph/pkg/layout"
	"github.com/matzehuels/stackgraph/pkg/stack"
)

// Change lists the boxes that gained and lost highlight.
type Change struct {
	Added   []*layout.Box
	Removed []*layout.Box
}

// IsEmpty reports whether nothing changed.
func (c Change) IsEmpty() bool { return len(c.Added) == 0 && len(c.Removed) == 0 }

// Index maps frames to the boxes of one layout and tracks the selection.
// It is not safe for concurrent use; it lives on the consumer goroutine.
type Index struct {
	layout   *layout.Layout
	byFrame  map[stack.Frame][]*layout.Box
	selected stack.Frame
	active   bool
}

// New indexes the boxes of l.
func New(l *layout.Layout) *Index {
	idx := &Index{}
	idx.Rebind(l)
	return idx
}

// Rebind re-indexes the boxes of a new layout and keeps the selected frame.
func (idx *Index) Rebind(l *layout.Layout) {
	idx.layout = l
	idx.byFrame = make(map[stack.Frame][]*layout.Box)
	if l == nil {
		return
	}
	for _, b := range l.Boxes {
		idx.byFrame[b.Frame] = append(idx.byFrame[b.Frame], b)
	}
}

// Layout returns the layout the index is bound to.
func (idx *Index) Layout() *layout.Layout { return idx.layout }

// Select makes f the selected frame. Selecting the current frame again
// changes nothing.
func (idx *Index) Select(f stack.Frame) Change {
	if idx.active && idx.selected == f {
		return Change{}
	}
	var ch Change
	if idx.active {
		ch.Removed = idx.byFrame[idx.selected]
	}
	ch.Added = idx.byFrame[f]
	idx.selected, idx.active = f, true
	return ch
}

// SelectBox selects the frame of b.
func (idx *Index) SelectBox(b *layout.Box) Change {
	if b == nil {
		return Change{}
	}
	return idx.Select(b.Frame)
}

// Clear drops the selection.
func (idx *Index) Clear() Change {
	if !idx.active {
		return Change{}
	}
	ch := Change{Removed: idx.byFrame[idx.selected]}
	idx.selected, idx.active = stack.Frame{}, false
	return ch
}

// Selected returns the selected frame.
func (idx *Index) Selected() (stack.Frame, bool) { return idx.selected, idx.active }

// IsSelected reports whether b shows the selected frame.
func (idx *Index) IsSelected(b *layout.Box) bool {
	return idx.active && b != nil && b.Frame == idx.selected
}

// Boxes returns the boxes showing f in the bound layout.
func (idx *Index) Boxes(f stack.Frame) []*layout.Box { return idx.byFrame[f] }

// Detail returns the details text for the first box of the selected frame in
// the bound layout. It reports false when nothing is selected or the frame
// has no box in this layout.
func (idx *Index) Detail() (string, bool) {
	if !idx.active || idx.layout == nil {
		return "", false
	}
	boxes := idx.byFrame[idx.selected]
	if len(boxes) == 0 {
		return "", false
	}
	return idx.layout.Detail(boxes[0]), true
}
