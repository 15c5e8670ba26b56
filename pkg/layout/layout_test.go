package layout

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stackgraph/pkg/errors"
	"github.com/matzehuels/stackgraph/pkg/sample"
	"github.com/matzehuels/stackgraph/pkg/stack"
	"github.com/matzehuels/stackgraph/pkg/stats"
	"github.com/matzehuels/stackgraph/pkg/trie"
)

const eps = 1e-9

func build(t *testing.T, counts map[string]int64, filter stack.Filter) (*trie.Node, stats.Descriptor) {
	t.Helper()
	snap := sample.Counts(counts)
	root, err := trie.Build(snap, filter)
	require.NoError(t, err)
	return root, snap.Descriptor()
}

func compute(t *testing.T, counts map[string]int64, opts *Options) *Layout {
	t.Helper()
	root, desc := build(t, counts, nil)
	l, err := Compute(root, desc, opts)
	require.NoError(t, err)
	return l
}

func countOpts(scale Scale, minFrac float64) *Options {
	return &Options{Scale: scale, Mode: stats.ModeCount, MinBoxFraction: minFrac, RowHeight: 10}
}

func boxByPath(t *testing.T, l *Layout, folded string) *Box {
	t.Helper()
	n, ok := l.Root.Lookup(sample.ParseStack(folded))
	require.True(t, ok, "node %q not in trie", folded)
	b, ok := l.BoxFor(n)
	require.True(t, ok, "node %q has no box", folded)
	return b
}

var scenarioB = map[string]int64{
	"main;a;b": 1,
	"main;a;c": 1,
	"main;d":   2,
}

func TestScenarioA(t *testing.T) {
	l := compute(t, map[string]int64{"main;read": 50, "main;write": 50}, countOpts(ByCount, 0))

	assert.Equal(t, 100.0, l.Total)
	read := boxByPath(t, l, "main;read")
	write := boxByPath(t, l, "main;write")
	assert.InDelta(t, 0.5, read.Width(), eps)
	assert.InDelta(t, 0.5, write.Width(), eps)
	assert.Equal(t, read.Depth, write.Depth)
	assert.Equal(t, Tier0, read.Tier, "a share of exactly 50% is in the top tier")
	assert.Equal(t, Tier0, write.Tier)
	assert.InDelta(t, 0.0, read.X0, eps)
	assert.InDelta(t, 0.5, write.X0, eps)
}

func TestScenarioB(t *testing.T) {
	l := compute(t, scenarioB, countOpts(ByValue, 0))

	top := boxByPath(t, l, "main")
	a := boxByPath(t, l, "main;a")
	b := boxByPath(t, l, "main;a;b")
	c := boxByPath(t, l, "main;a;c")

	assert.Equal(t, 4.0, top.Value)
	assert.InDelta(t, top.Width()/2, a.Width(), eps)
	assert.InDelta(t, top.Width()/4, b.Width(), eps)
	assert.InDelta(t, top.Width()/4, c.Width(), eps)
	assert.Equal(t, 3, l.Rows)
	assert.Len(t, l.Boxes, 5)
}

func TestScenarioCFilter(t *testing.T) {
	f, err := stack.NewFrameFilter(stack.FilterConfig{Exclude: []string{"a"}})
	require.NoError(t, err)
	root, desc := build(t, scenarioB, f)
	l, err := Compute(root, desc, countOpts(ByValue, 0))
	require.NoError(t, err)

	top := boxByPath(t, l, "main")
	assert.Equal(t, 4.0, top.Value)
	assert.Equal(t, 2, l.Rows)

	var below []stack.Frame
	for _, b := range l.Boxes {
		if b.Depth == top.Depth+1 {
			below = append(below, b.Frame)
		}
	}
	assert.Equal(t, []stack.Frame{{Function: "b"}, {Function: "c"}, {Function: "d"}}, below)
}

func TestScenarioDEmpty(t *testing.T) {
	root, err := trie.Build(sample.NewBuilder(stats.CountDescriptor()).Build(), nil)
	require.NoError(t, err)
	l, err := Compute(root, stats.CountDescriptor(), countOpts(ByValue, 0))
	require.NoError(t, err)

	assert.True(t, l.IsEmpty())
	assert.Equal(t, 0, l.Rows)
	assert.Equal(t, "No data", l.EmptyText())
	assert.Nil(t, l.Ruler())
	_, ok := l.HitTest(1, 1, 100, 100)
	assert.False(t, ok)
}

func TestEverythingFilteredText(t *testing.T) {
	f, err := stack.NewFrameFilter(stack.FilterConfig{IncludePatterns: []string{"^none$"}})
	require.NoError(t, err)
	root, desc := build(t, scenarioB, f)
	l, err := Compute(root, desc, countOpts(ByValue, 0))
	require.NoError(t, err)
	assert.True(t, l.IsEmpty())
	assert.Equal(t, "No stack frames remain after filter", l.EmptyText())
}

func TestEverythingPrunedText(t *testing.T) {
	l := compute(t, map[string]int64{"main;a": 1, "b": 1, "c": 1}, countOpts(ByValue, 0.5))
	assert.True(t, l.IsEmpty())
	assert.Equal(t, "No stack frames wide enough to draw", l.EmptyText(),
		"pruning without a filter is not reported as filtering")
}

func TestSelfWeightLeftEmpty(t *testing.T) {
	l := compute(t, map[string]int64{"main": 2, "main;work": 2}, countOpts(ByValue, 0))
	work := boxByPath(t, l, "main;work")
	assert.InDelta(t, 0.0, work.X0, eps)
	assert.InDelta(t, 0.5, work.X1, eps)
}

func TestEqualWidth(t *testing.T) {
	l := compute(t, map[string]int64{"m;a": 1, "m;b": 98, "m;c": 1}, countOpts(ByEqualWidth, 0))
	for _, name := range []string{"m;a", "m;b", "m;c"} {
		assert.InDelta(t, 1.0/3, boxByPath(t, l, name).Width(), eps, name)
	}
	assert.Nil(t, l.Ruler(), "ruler only for the by-value scale")
}

func TestByCountUsesEventCount(t *testing.T) {
	b := sample.NewBuilder(stats.IODescriptor(stats.NameFileIO))
	b.Add(stack.Of("main", "big"), &stats.IO{ReadBytes: 1000, ReadOps: 1})
	b.Add(stack.Of("main", "chatty"), &stats.IO{ReadBytes: 10, ReadOps: 3})
	snap := b.Build()
	root, err := trie.Build(snap, nil)
	require.NoError(t, err)

	opts := &Options{Scale: ByCount, Mode: stats.ModeBytes, RowHeight: 10}
	l, err := Compute(root, snap.Descriptor(), opts)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, boxByPath(t, l, "main;big").Width(), eps)
	assert.InDelta(t, 0.75, boxByPath(t, l, "main;chatty").Width(), eps)

	// Tiers stay value based.
	assert.Equal(t, Tier0, boxByPath(t, l, "main;big").Tier)
	assert.Equal(t, Tier4, boxByPath(t, l, "main;chatty").Tier)
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		share float64
		want  Tier
	}{
		{1, Tier0},
		{0.5, Tier0},
		{0.4999, Tier1},
		{0.25, Tier1},
		{0.12, Tier2},
		{0.1199, Tier3},
		{0.06, Tier3},
		{0.0599, Tier4},
		{0, Tier4},
	}
	for _, tt := range tests {
		if got := TierFor(tt.share); got != tt.want {
			t.Errorf("TierFor(%v) = %v, want %v", tt.share, got, tt.want)
		}
	}
}

var wide = map[string]int64{
	"main;serve;read;syscall":  400,
	"main;serve;read;copy":     120,
	"main;serve;write":         250,
	"main;serve;write;flush":   30,
	"main;gc;mark":             90,
	"main;gc;sweep":            7,
	"main;init":                3,
	"idle":                     100,
	"main;serve;read;tiny;one": 1,
}

func TestWidthConservation(t *testing.T) {
	for _, scale := range []Scale{ByValue, ByCount, ByEqualWidth} {
		t.Run(scale.String(), func(t *testing.T) {
			l := compute(t, wide, countOpts(scale, 0))
			l.Root.Walk(func(n *trie.Node) bool {
				parentWidth := 1.0
				if pb, ok := l.BoxFor(n); ok {
					parentWidth = pb.Width()
				} else if !n.IsRoot() {
					return true
				}
				var sum float64
				for _, c := range n.Children() {
					if cb, ok := l.BoxFor(c); ok {
						sum += cb.Width()
						if pb, ok := l.BoxFor(n); ok {
							assert.GreaterOrEqual(t, cb.X0, pb.X0-eps)
							assert.LessOrEqual(t, cb.X1, pb.X1+eps)
						}
					}
				}
				assert.LessOrEqual(t, sum, parentWidth+eps)
				return true
			})
		})
	}
}

func TestNegativeWeightNeverMovesLeft(t *testing.T) {
	l := compute(t, map[string]int64{"main;a": -5, "main;b": 10}, countOpts(ByValue, 0))
	for _, b := range l.Boxes {
		assert.GreaterOrEqual(t, b.X0, 0.0, "box %s", b.Frame.Function)
		assert.LessOrEqual(t, b.X1, 1.0, "box %s", b.Frame.Function)
		assert.GreaterOrEqual(t, b.X1, b.X0, "box %s", b.Frame.Function)
	}
	top := boxByPath(t, l, "main")
	b := boxByPath(t, l, "main;b")
	assert.GreaterOrEqual(t, b.X0, top.X0)
	_, ok := l.BoxFor(lookup(t, l, "main;a"))
	assert.False(t, ok, "a negative child gets no box")
}

func TestDeterminism(t *testing.T) {
	a := compute(t, wide, countOpts(ByValue, 0))
	b := compute(t, wide, countOpts(ByValue, 0))
	require.Len(t, b.Boxes, len(a.Boxes))
	for i := range a.Boxes {
		assert.Equal(t, a.Boxes[i].Frame, b.Boxes[i].Frame)
		assert.Equal(t, a.Boxes[i].X0, b.Boxes[i].X0)
		assert.Equal(t, a.Boxes[i].X1, b.Boxes[i].X1)
		assert.Equal(t, a.Boxes[i].Depth, b.Boxes[i].Depth)
	}
}

func TestMonotonicPruning(t *testing.T) {
	prev := math.MaxInt
	for _, frac := range []float64{0, 0.001, 0.01, 0.05, 0.1, 0.3, 0.6, 1} {
		l := compute(t, wide, countOpts(ByValue, frac))
		assert.LessOrEqual(t, len(l.Boxes), prev, "min fraction %v", frac)
		prev = len(l.Boxes)
		for _, b := range l.Boxes {
			assert.GreaterOrEqual(t, b.Width(), frac)
			assert.Greater(t, b.Width(), 0.0)
		}
	}

	l := compute(t, wide, countOpts(ByValue, 0.01))
	_, ok := l.BoxFor(lookup(t, l, "main;serve;read;tiny"))
	assert.False(t, ok, "a pruned node has no box")
	_, ok = l.BoxFor(lookup(t, l, "main;serve;read;tiny;one"))
	assert.False(t, ok, "descendants of a pruned node have no box")
}

func TestHitTestAgreesWithLayout(t *testing.T) {
	for _, scale := range []Scale{ByValue, ByCount, ByEqualWidth} {
		t.Run(scale.String(), func(t *testing.T) {
			l := compute(t, wide, countOpts(scale, 0.002))
			const w, rowH = 1000.0, 10.0
			h := rowH * float64(l.Rows)
			for _, b := range l.Boxes {
				r := b.Rect(w, rowH)
				got, ok := l.HitTest(r.CenterX(), r.CenterY(), w, h)
				require.True(t, ok, "no hit in %s", b.Frame)
				assert.Same(t, b, got)

				got, ok = l.HitTestRows(r.CenterX(), r.CenterY(), w)
				require.True(t, ok)
				assert.Same(t, b, got)
			}
		})
	}
}

func TestHitTestMisses(t *testing.T) {
	l := compute(t, map[string]int64{"main": 2, "main;work": 2}, countOpts(ByValue, 0))
	require.Equal(t, 2, l.Rows)

	_, ok := l.HitTest(75, 15, 100, 20)
	assert.False(t, ok, "self weight area holds no box")
	_, ok = l.HitTest(-1, 5, 100, 20)
	assert.False(t, ok)
	_, ok = l.HitTest(10, 20, 100, 20)
	assert.False(t, ok)
	_, ok = l.HitTest(10, 5, 0, 20)
	assert.False(t, ok)

	b, ok := l.HitTest(75, 5, 100, 20)
	require.True(t, ok)
	assert.Equal(t, "main", b.Frame.Function)
}

func TestRuler(t *testing.T) {
	l := compute(t, scenarioB, countOpts(ByValue, 0))
	ticks := l.Ruler()
	require.Len(t, ticks, RulerMinor-1)
	var majors []float64
	for _, tk := range ticks {
		if tk.Major {
			majors = append(majors, tk.X)
		}
	}
	assert.Equal(t, []float64{0.25, 0.5, 0.75}, majors)
	assert.InDelta(t, 2.0, ticks[9].Value, eps)
}

func TestDetail(t *testing.T) {
	l := compute(t, scenarioB, countOpts(ByValue, 0))
	b := boxByPath(t, l, "main;a;b")
	assert.Equal(t, "main\na\nb\n\ncalls: 1", l.Detail(b))
	assert.Equal(t, "b 25.0%", l.Tooltip(b))
	assert.Empty(t, l.Detail(nil))
}

func TestComputeRejectsOptions(t *testing.T) {
	root, desc := build(t, scenarioB, nil)
	tests := []struct {
		name string
		opts *Options
		code errors.Code
	}{
		{"nil", nil, errors.ErrCodeInvalidOptions},
		{"scale", &Options{Scale: Scale(9), Mode: stats.ModeCount, RowHeight: 1}, errors.ErrCodeInvalidScale},
		{"mode", &Options{Mode: stats.ModeBytes, RowHeight: 1}, errors.ErrCodeInvalidMode},
		{"fraction", &Options{Mode: stats.ModeCount, MinBoxFraction: 1.5, RowHeight: 1}, errors.ErrCodeInvalidOptions},
		{"negative fraction", &Options{Mode: stats.ModeCount, MinBoxFraction: -0.1, RowHeight: 1}, errors.ErrCodeInvalidOptions},
		{"row height", &Options{Mode: stats.ModeCount}, errors.ErrCodeInvalidOptions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(root, desc, tt.opts)
			assert.True(t, errors.Is(err, tt.code), "got %v", err)
			assert.True(t, errors.IsConfiguration(err))
		})
	}
}

func TestParseScale(t *testing.T) {
	for in, want := range map[string]Scale{"value": ByValue, "COUNT": ByCount, "equal-width": ByEqualWidth} {
		got, err := ParseScale(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseScale("log")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidScale))
}

func TestOptionsWith(t *testing.T) {
	base := DefaultOptions(stats.CountDescriptor())
	derived := base.With(func(o *Options) { o.Scale = ByCount })
	assert.NotSame(t, base, derived)
	assert.Equal(t, ByValue, base.Scale)
	assert.Equal(t, ByCount, derived.Scale)
}

func lookup(t *testing.T, l *Layout, folded string) *trie.Node {
	t.Helper()
	n, ok := l.Root.Lookup(sample.ParseStack(folded))
	require.True(t, ok)
	return n
}
