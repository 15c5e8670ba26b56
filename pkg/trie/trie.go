// Package trie builds the weighted prefix tree over call stacks that the
// flame graph layout is computed from.
//
// Every node aggregates the statistics of all snapshot entries whose
// (filtered) stack passes through it, so a child's value never exceeds its
// parent's and the root holds the total. Trees are built fresh for each
// (snapshot, filter) pair and never modified afterwards.
package trie

import (
	"slices"

	"github.com/matzehuels/stackgraph/pkg/errors"
	"github.com/matzehuels/stackgraph/pkg/sample"
	"github.com/matzehuels/stackgraph/pkg/stack"
	"github.com/matzehuels/stackgraph/pkg/stats"
)

// Node is one frame position in the tree. The root is synthetic and carries
// the zero frame.
type Node struct {
	frame    stack.Frame
	parent   *Node
	children map[stack.Frame]*Node
	sorted   []*Node
	agg      stats.Accumulator
	entries  int
	depth    int
	height   int
}

// Build constructs the tree for snap, applying filter to every stack. A nil
// filter keeps all frames. Construction errors (nil snapshot, malformed
// entries, failed merges) return no tree.
func Build(snap *sample.Snapshot, filter stack.Filter) (*Node, error) {
	if snap == nil {
		return nil, errors.New(errors.ErrCodeInvalidSnapshot, "nil snapshot")
	}
	if err := snap.Err(); err != nil {
		return nil, err
	}
	desc := snap.Descriptor()
	root := &Node{agg: desc.New()}

	for st, acc := range snap.All() {
		if acc == nil {
			return nil, errors.New(errors.ErrCodeInvalidSnapshot, "nil accumulator for stack %s", st)
		}
		if err := root.add(desc, stack.Apply(filter, st), acc); err != nil {
			return nil, errors.Wrap(errors.ErrCodeMergeFailed, err, "merge stack %s", st)
		}
	}
	root.finish()
	return root, nil
}

func (n *Node) add(desc stats.Descriptor, path stack.Stack, acc stats.Accumulator) error {
	cur := n
	if err := cur.merge(acc); err != nil {
		return err
	}
	for _, f := range path {
		child, ok := cur.children[f]
		if !ok {
			if cur.children == nil {
				cur.children = make(map[stack.Frame]*Node)
			}
			child = &Node{frame: f, parent: cur, agg: desc.New(), depth: cur.depth + 1}
			cur.children[f] = child
		}
		if err := child.merge(acc); err != nil {
			return err
		}
		cur = child
	}
	return nil
}

func (n *Node) merge(acc stats.Accumulator) error {
	if err := n.agg.Merge(acc); err != nil {
		return err
	}
	n.entries++
	return nil
}

// finish sorts children and computes heights bottom-up.
func (n *Node) finish() {
	n.sorted = make([]*Node, 0, len(n.children))
	for _, c := range n.children {
		n.sorted = append(n.sorted, c)
	}
	slices.SortFunc(n.sorted, func(a, b *Node) int { return stack.Compare(a.frame, b.frame) })
	n.height = 0
	for _, c := range n.sorted {
		c.finish()
		n.height = max(n.height, c.height+1)
	}
}

// Frame returns the node's frame; the root returns the zero frame.
func (n *Node) Frame() stack.Frame { return n.frame }

// Parent returns the parent node, nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// IsRoot reports whether n is the synthetic root.
func (n *Node) IsRoot() bool { return n.parent == nil }

// Children returns the children ordered by [stack.Compare]. The slice must
// not be modified.
func (n *Node) Children() []*Node { return n.sorted }

// Child returns the child for frame f.
func (n *Node) Child(f stack.Frame) (*Node, bool) {
	c, ok := n.children[f]
	return c, ok
}

// Aggregate returns the merged statistic of every entry passing through n.
// The accumulator must not be modified.
func (n *Node) Aggregate() stats.Accumulator { return n.agg }

// Value is shorthand for Aggregate().Value(mode).
func (n *Node) Value(mode stats.Mode) float64 { return n.agg.Value(mode) }

// Entries returns the number of snapshot entries passing through n.
func (n *Node) Entries() int { return n.entries }

// Depth returns the distance from the root (root = 0).
func (n *Node) Depth() int { return n.depth }

// Height returns the length of the longest path below n (leaf = 0).
func (n *Node) Height() int { return n.height }

// Path returns the frames from the root's first child down to n.
func (n *Node) Path() stack.Stack {
	path := make(stack.Stack, n.depth)
	for cur := n; cur.parent != nil; cur = cur.parent {
		path[cur.depth-1] = cur.frame
	}
	return path
}

// Lookup follows path from n and returns the node at its end.
func (n *Node) Lookup(path stack.Stack) (*Node, bool) {
	cur := n
	for _, f := range path {
		c, ok := cur.children[f]
		if !ok {
			return nil, false
		}
		cur = c
	}
	return cur, true
}

// Walk visits n and its descendants depth-first in child order until fn
// returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.sorted {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Size returns the number of nodes in the subtree rooted at n, n included.
func (n *Node) Size() int {
	size := 0
	n.Walk(func(*Node) bool {
		size++
		return true
	})
	return size
}
