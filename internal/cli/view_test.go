package cli

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stackgraph/pkg/cache"
	"github.com/matzehuels/stackgraph/pkg/layout"
	"github.com/matzehuels/stackgraph/pkg/pipeline"
	"github.com/matzehuels/stackgraph/pkg/sample"
)

// newTestView returns a viewer over foldedSample whose first model is already
// built.
func newTestView(t *testing.T) viewModel {
	t.Helper()
	ctx := context.Background()
	opts := pipeline.Options{Input: writeSample(t, foldedSample)}
	src, err := newSource(opts, log.New(io.Discard))
	require.NoError(t, err)
	_, err = src.load(ctx)
	require.NoError(t, err)

	display, err := opts.Display(src.snapshot().Descriptor())
	require.NoError(t, err)
	models := cache.NewModelCache()
	_, err = models.EnsureCurrent(ctx, src.snapshot(), display, nil)
	require.NoError(t, err)

	m := newViewModel(ctx, src, models, display, nil)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = next.(viewModel)
	require.NotNil(t, m.model)
	return m
}

func update(m viewModel, msg tea.Msg) viewModel {
	next, _ := m.Update(msg)
	return next.(viewModel)
}

func click(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress}
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestViewClickSelects(t *testing.T) {
	m := newTestView(t)

	m = update(m, click(10, viewHeaderLines))
	f, ok := m.sel.Selected()
	require.True(t, ok)
	assert.Equal(t, "main", f.Function)

	// Row 2 holds parse over [0, 0.4) and render over [0.4, 1).
	m = update(m, click(10, viewHeaderLines+1))
	f, _ = m.sel.Selected()
	assert.Equal(t, "parse", f.Function)

	m = update(m, click(80, viewHeaderLines+1))
	f, _ = m.sel.Selected()
	assert.Equal(t, "render", f.Function)

	detail, ok := m.sel.Detail()
	require.True(t, ok)
	assert.Contains(t, detail, "render")
	assert.Contains(t, m.View(), "60")
}

func TestViewClickOutsideClears(t *testing.T) {
	m := newTestView(t)
	m = update(m, click(10, viewHeaderLines))
	_, ok := m.sel.Selected()
	require.True(t, ok)

	// Below the deepest row.
	m = update(m, click(10, viewHeaderLines+5))
	_, ok = m.sel.Selected()
	assert.False(t, ok)
}

func TestViewEscClears(t *testing.T) {
	m := newTestView(t)
	m = update(m, click(10, viewHeaderLines))
	m = update(m, tea.KeyMsg{Type: tea.KeyEsc})
	_, ok := m.sel.Selected()
	assert.False(t, ok)
}

func TestViewZoomAndScroll(t *testing.T) {
	m := newTestView(t)

	m = update(m, keyRune('+'))
	assert.Equal(t, 1, m.zoom)
	assert.Equal(t, 200, m.canvasColumns())
	assert.Equal(t, 50, m.offset, "zoom keeps the center in view")

	m = update(m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, 75, m.offset)

	for range 10 {
		m = update(m, tea.KeyMsg{Type: tea.KeyRight})
	}
	assert.Equal(t, 100, m.offset, "offset stops at the canvas edge")

	// At 2x zoom with offset 100, cell 0 is canvas cell 100: the middle.
	m = update(m, click(0, viewHeaderLines+1))
	f, _ := m.sel.Selected()
	assert.Equal(t, "render", f.Function)

	m = update(m, keyRune('0'))
	assert.Equal(t, 0, m.zoom)
	assert.Equal(t, 0, m.offset)

	m = update(m, keyRune('-'))
	assert.Equal(t, 0, m.zoom)
}

func TestViewCycleScaleRebuilds(t *testing.T) {
	m := newTestView(t)
	before := m.model.Generation
	prevDisplay := m.display

	m = update(m, keyRune('s'))
	assert.Equal(t, layout.ByCount, m.scale)
	assert.NotSame(t, prevDisplay, m.display)

	require.Eventually(t, func() bool {
		m = update(m, tickMsg(time.Now()))
		return m.model.Generation != before
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, layout.ByCount, m.model.Options.Scale)
}

func TestViewRendersGraph(t *testing.T) {
	m := newTestView(t)
	out := m.View()
	assert.Contains(t, out, appName)
	assert.Contains(t, out, "scale value")
	assert.Contains(t, out, "main")
	assert.Contains(t, out, "Click a box")
	assert.LessOrEqual(t, len(strings.Split(out, "\n")), 30)
}

func TestViewQuit(t *testing.T) {
	m := newTestView(t)
	_, cmd := m.Update(keyRune('q'))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestViewSampleMsgRefreshes(t *testing.T) {
	m := newTestView(t)
	first := m.snap

	got := make(chan *sample.Sample, 1)
	stop := m.src.onSample(func(s *sample.Sample) { got <- s })
	defer stop()

	require.NoError(t, os.WriteFile(m.src.opts.Input, []byte("main;other 5\n"), 0o644))
	changed, err := m.src.load(context.Background())
	require.NoError(t, err)
	require.True(t, changed)

	var s *sample.Sample
	select {
	case s = <-got:
	case <-time.After(time.Second):
		t.Fatal("no sample delivered to subscriber")
	}
	m = update(m, sampleMsg{s})
	assert.Same(t, s.Snapshot, m.snap)
	assert.NotSame(t, first, m.snap)

	stop()
	require.NoError(t, os.WriteFile(m.src.opts.Input, []byte("main;third 7\n"), 0o644))
	_, err = m.src.load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got, "stopped subscriber still called")
}
