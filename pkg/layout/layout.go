// Package layout computes flame graph boxes from a stack trie.
//
// [Compute] walks the trie from the root, dividing each node's horizontal
// span among its children according to [Options.Scale], and emits one [Box]
// per node that is wide enough to draw. Box coordinates are fractions of the
// total width, so one layout serves any canvas size; row 0 holds the
// outermost frames.
//
// Color tiers are assigned from each node's share of the root total:
//
//	share >= 50%  Tier0
//	share >= 25%  Tier1
//	share >= 12%  Tier2
//	share >= 6%   Tier3
//	otherwise     Tier4
//
// [Layout.HitTest] maps a canvas position back to the box drawn there using
// the same span partition as the layout pass.
package layout

import (
	"strings"

	"github.com/matzehuels/stackgraph/pkg/stats"
	"github.com/matzehuels/stackgraph/pkg/trie"
)

// Layout is the result of one layout pass. It is immutable.
type Layout struct {
	Boxes      []*Box // parents before children, children in frame order
	Rows       int    // maximum depth of any box; 0 for an empty layout
	Total      float64
	Options    *Options
	Descriptor stats.Descriptor
	Root       *trie.Node

	byNode map[*trie.Node]*Box
}

// Compute lays out the trie rooted at root. Options are validated against
// desc first; invalid options are reported as configuration errors. A root
// with a zero total yields an empty layout, not an error.
func Compute(root *trie.Node, desc stats.Descriptor, opts *Options) (*Layout, error) {
	if err := opts.Validate(desc); err != nil {
		return nil, err
	}
	l := &Layout{
		Options:    opts,
		Descriptor: desc,
		Root:       root,
		byNode:     make(map[*trie.Node]*Box),
	}
	if root == nil {
		return l, nil
	}
	l.Total = root.Value(opts.Mode)
	if l.Total <= 0 {
		l.Total = 0
		return l, nil
	}
	l.place(root, 0, 1)
	return l, nil
}

func (l *Layout) place(n *trie.Node, x0, x1 float64) {
	partition(n, x0, x1, l.Options, func(c *trie.Node, cx0, cx1 float64) bool {
		w := cx1 - cx0
		if w <= 0 || w < l.Options.MinBoxFraction {
			return true
		}
		v := c.Value(l.Options.Mode)
		share := v / l.Total
		b := &Box{
			X0:    cx0,
			X1:    cx1,
			Depth: c.Depth(),
			Value: v,
			Share: share,
			Tier:  TierFor(share),
			Frame: c.Frame(),
			Node:  c,
		}
		l.Boxes = append(l.Boxes, b)
		l.byNode[c] = b
		l.Rows = max(l.Rows, b.Depth)
		l.place(c, cx0, cx1)
		return true
	})
}

// IsEmpty reports whether the layout has no boxes.
func (l *Layout) IsEmpty() bool { return len(l.Boxes) == 0 }

// BoxFor returns the box drawn for n, if n was wide enough to be emitted.
func (l *Layout) BoxFor(n *trie.Node) (*Box, bool) {
	b, ok := l.byNode[n]
	return b, ok
}

// EmptyText returns the message painters show for an empty layout: "No data"
// when nothing was sampled, a pruning note when frames exist but every box was
// narrower than MinBoxFraction, otherwise that the filter removed every frame.
func (l *Layout) EmptyText() string {
	if l.Root == nil || l.Total == 0 {
		return "No data"
	}
	if len(l.Root.Children()) > 0 {
		return "No stack frames wide enough to draw"
	}
	return "No stack frames remain after filter"
}

// Detail returns the details text for b: the stack path from the outermost
// frame down to b, then the descriptor's statistic lines for b's node.
func (l *Layout) Detail(b *Box) string {
	if b == nil || b.Node == nil {
		return ""
	}
	var sb strings.Builder
	for _, f := range b.Node.Path() {
		sb.WriteString(f.String())
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
	for _, line := range l.Descriptor.Detail(b.Node.Aggregate()) {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Tooltip returns a one-line description of b.
func (l *Layout) Tooltip(b *Box) string {
	if b == nil {
		return ""
	}
	return b.Frame.String() + " " + formatShare(b.Share)
}
