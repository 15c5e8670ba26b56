package layout

import (
	"github.com/matzehuels/stackgraph/pkg/trie"
)

// weight returns the quantity a scale divides spans by.
func weight(n *trie.Node, opts *Options) float64 {
	switch opts.Scale {
	case ByCount:
		return float64(n.Aggregate().Count())
	case ByValue:
		return n.Value(opts.Mode)
	}
	return 1
}

// partition divides n's span [x0, x1) among its children, left to right from
// x0, and calls fn with each child's span until fn returns false. Under the
// proportional scales the parent's self weight is left empty on the right.
//
// Layout and hit testing both use partition, so a point maps to the same node
// the layout drew there.
func partition(n *trie.Node, x0, x1 float64, opts *Options, fn func(c *trie.Node, cx0, cx1 float64) bool) {
	children := n.Children()
	if len(children) == 0 {
		return
	}
	span := x1 - x0
	cursor := x0

	if opts.Scale == ByEqualWidth {
		w := span / float64(len(children))
		for i, c := range children {
			cx1 := x0 + w*float64(i+1)
			if i == len(children)-1 {
				cx1 = x1
			}
			if !fn(c, cursor, cx1) {
				return
			}
			cursor = cx1
		}
		return
	}

	total := weight(n, opts)
	for _, c := range children {
		var w float64
		if total > 0 {
			w = max(span*weight(c, opts)/total, 0)
		}
		cx1 := min(cursor+w, x1)
		if !fn(c, cursor, cx1) {
			return
		}
		cursor = cx1
	}
}
