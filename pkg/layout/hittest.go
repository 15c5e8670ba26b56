package layout

import (
	"github.com/matzehuels/stackgraph/pkg/trie"
)

// HitTest returns the box at canvas position (x, y) for a canvas of the
// given size whose height is divided evenly among the layout's rows. It
// descends the trie with the layout's span partition and reports a box only
// if the node under the point was emitted.
func (l *Layout) HitTest(x, y, canvasWidth, canvasHeight float64) (*Box, bool) {
	if l.Rows == 0 || canvasWidth <= 0 || canvasHeight <= 0 {
		return nil, false
	}
	if x < 0 || y < 0 || x >= canvasWidth || y >= canvasHeight {
		return nil, false
	}
	rowHeight := canvasHeight / float64(l.Rows)
	depth := int(y/rowHeight) + 1
	if depth > l.Rows {
		return nil, false
	}
	return l.find(x/canvasWidth, depth)
}

// HitTestRows is HitTest for a canvas drawn with Options.RowHeight pixels per
// row.
func (l *Layout) HitTestRows(x, y, canvasWidth float64) (*Box, bool) {
	return l.HitTest(x, y, canvasWidth, float64(l.Rows)*l.Options.RowHeight)
}

func (l *Layout) find(fx float64, depth int) (*Box, bool) {
	n, x0, x1 := l.Root, 0.0, 1.0
	for d := 1; d <= depth; d++ {
		var next *trie.Node
		partition(n, x0, x1, l.Options, func(c *trie.Node, cx0, cx1 float64) bool {
			if fx >= cx0 && fx < cx1 {
				next, x0, x1 = c, cx0, cx1
				return false
			}
			return true
		})
		if next == nil {
			return nil, false
		}
		n = next
	}
	return l.BoxFor(n)
}
