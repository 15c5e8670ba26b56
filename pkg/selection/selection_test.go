package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stackgraph/pkg/layout"
	"github.com/matzehuels/stackgraph/pkg/sample"
	"github.com/matzehuels/stackgraph/pkg/stack"
	"github.com/matzehuels/stackgraph/pkg/stats"
	"github.com/matzehuels/stackgraph/pkg/trie"
)

func testLayout(t *testing.T, counts map[string]int64) *layout.Layout {
	t.Helper()
	snap := sample.Counts(counts)
	root, err := trie.Build(snap, nil)
	require.NoError(t, err)
	l, err := layout.Compute(root, snap.Descriptor(), layout.DefaultOptions(stats.CountDescriptor()))
	require.NoError(t, err)
	return l
}

var recursive = map[string]int64{
	"main;lock;read":  3,
	"main;write;lock": 2,
	"main;read":       1,
}

func frame(name string) stack.Frame { return stack.Frame{Function: name} }

func framesOf(boxes []*layout.Box) []stack.Frame {
	out := make([]stack.Frame, len(boxes))
	for i, b := range boxes {
		out[i] = b.Frame
	}
	return out
}

func TestSelectAcrossPositions(t *testing.T) {
	l := testLayout(t, recursive)
	idx := New(l)

	ch := idx.Select(frame("lock"))
	assert.Empty(t, ch.Removed)
	require.Len(t, ch.Added, 2, "lock appears at two tree positions")
	for _, b := range ch.Added {
		assert.True(t, idx.IsSelected(b))
	}

	got, ok := idx.Selected()
	assert.True(t, ok)
	assert.Equal(t, frame("lock"), got)
}

func TestSelectSymmetry(t *testing.T) {
	l := testLayout(t, recursive)
	idx := New(l)
	idx.Select(frame("lock"))

	ch := idx.Select(frame("read"))
	assert.Equal(t, []stack.Frame{frame("lock"), frame("lock")}, framesOf(ch.Removed))
	assert.Equal(t, []stack.Frame{frame("read"), frame("read")}, framesOf(ch.Added))

	// Every box that changed state is in exactly one set, and no other box
	// changed.
	changed := map[*layout.Box]bool{}
	for _, b := range append(ch.Added, ch.Removed...) {
		assert.False(t, changed[b], "box reported twice")
		changed[b] = true
	}
	for _, b := range l.Boxes {
		if !changed[b] {
			assert.NotContains(t, []string{"lock", "read"}, b.Frame.Function)
		}
	}
}

func TestReselectIsNoop(t *testing.T) {
	idx := New(testLayout(t, recursive))
	idx.Select(frame("read"))
	ch := idx.Select(frame("read"))
	assert.True(t, ch.IsEmpty())
}

func TestSelectUnknownFrame(t *testing.T) {
	idx := New(testLayout(t, recursive))
	ch := idx.Select(frame("nowhere"))
	assert.True(t, ch.IsEmpty())
	_, ok := idx.Selected()
	assert.True(t, ok, "frames without boxes can still be selected")
	_, ok = idx.Detail()
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	idx := New(testLayout(t, recursive))
	assert.True(t, idx.Clear().IsEmpty())

	added := idx.Select(frame("write")).Added
	ch := idx.Clear()
	assert.Equal(t, added, ch.Removed)
	_, ok := idx.Selected()
	assert.False(t, ok)
	for _, b := range added {
		assert.False(t, idx.IsSelected(b))
	}
}

func TestRebindKeepsSelection(t *testing.T) {
	idx := New(testLayout(t, recursive))
	idx.Select(frame("write"))
	before, ok := idx.Detail()
	require.True(t, ok)
	assert.Contains(t, before, "calls: 2")

	next := testLayout(t, map[string]int64{"main;write": 7})
	idx.Rebind(next)
	assert.Same(t, next, idx.Layout())

	got, ok := idx.Selected()
	require.True(t, ok)
	assert.Equal(t, frame("write"), got)
	require.Len(t, idx.Boxes(frame("write")), 1)
	assert.True(t, idx.IsSelected(idx.Boxes(frame("write"))[0]))

	after, ok := idx.Detail()
	require.True(t, ok)
	assert.Equal(t, "main\nwrite\n\ncalls: 7", after)
}

func TestSelectBox(t *testing.T) {
	l := testLayout(t, recursive)
	idx := New(l)
	assert.True(t, idx.SelectBox(nil).IsEmpty())

	ch := idx.SelectBox(l.Boxes[0])
	assert.Contains(t, ch.Added, l.Boxes[0])
}

func TestNilLayout(t *testing.T) {
	idx := New(nil)
	assert.True(t, idx.Select(frame("x")).IsEmpty())
	_, ok := idx.Detail()
	assert.False(t, ok)
}
