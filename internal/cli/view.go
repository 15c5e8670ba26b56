package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stackgraph/pkg/cache"
	"github.com/matzehuels/stackgraph/pkg/layout"
	"github.com/matzehuels/stackgraph/pkg/pipeline"
	"github.com/matzehuels/stackgraph/pkg/render/flame"
	"github.com/matzehuels/stackgraph/pkg/sample"
	"github.com/matzehuels/stackgraph/pkg/selection"
	"github.com/matzehuels/stackgraph/pkg/stack"
	"github.com/matzehuels/stackgraph/pkg/stats"
)

const (
	viewTick        = 100 * time.Millisecond
	viewHeaderLines = 2
	viewDetailLines = 6
	viewMaxZoom     = 6
	viewMinColumns  = 20
)

var (
	viewStatusStyle = lipgloss.NewStyle().Foreground(colorGray)
	viewErrorStyle  = lipgloss.NewStyle().Foreground(colorRed)
	viewHelpStyle   = lipgloss.NewStyle().Foreground(colorDim)
)

// viewCommand creates the interactive terminal viewer.
func (c *CLI) viewCommand() *cobra.Command {
	var (
		src   sourceFlags
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "view [file]",
		Short: "Explore a flame graph in the terminal",
		Long: `Explore a flame graph in the terminal.

Click a box to select its frame: every box of that frame is highlighted and
its stack and statistics are shown below the graph. With --watch the graph
follows the file as it is rewritten.

Keys: +/- zoom, 0 reset, ←/→ scroll, ↑/↓ rows, s scale, m mode,
esc clear selection, r reload, q quit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, _, err := src.options(cmd, args[0])
			if err != nil {
				return err
			}
			return c.runView(cmd.Context(), opts, watch)
		},
	}

	src.register(cmd)
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload the file when it changes")
	return cmd
}

func (c *CLI) runView(ctx context.Context, opts pipeline.Options, watch bool) error {
	// The terminal belongs to the viewer; log output would tear the screen.
	quiet := log.NewWithOptions(io.Discard, log.Options{})
	opts.Logger = quiet

	src, err := newSource(opts, quiet)
	if err != nil {
		return err
	}
	if _, err := src.load(ctx); err != nil {
		return err
	}
	if src.snapshot() == nil {
		return fmt.Errorf("no samples in %s", opts.Input)
	}
	filter, err := opts.FilterConfig()
	if err != nil {
		return err
	}
	display, err := opts.Display(src.snapshot().Descriptor())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if watch {
		if err := src.watch(ctx); err != nil {
			return err
		}
	}

	runner := pipeline.NewRunner(nil, nil, quiet)
	defer runner.Close()

	m := newViewModel(ctx, src, runner.Models, display, filter)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	// Reloads from the "r" key publish on the event loop, so send without blocking it.
	stop := src.onSample(func(s *sample.Sample) { go p.Send(sampleMsg{s}) })
	defer stop()
	_, err = p.Run()
	return err
}

// =============================================================================
// viewModel - Interactive flame graph
// =============================================================================

type tickMsg time.Time

// sampleMsg announces a newly published sample.
type sampleMsg struct{ sample *sample.Sample }

// viewModel is the bubbletea model of the viewer. Rebuilds run on the model
// cache's goroutine; every tick polls for a newer model and rebinds the
// selection to it.
type viewModel struct {
	ctx    context.Context
	src    *source
	models *cache.ModelCache
	filter stack.Filter

	snap    *sample.Snapshot
	scale   layout.Scale
	mode    stats.Mode
	display *layout.Options

	model   *cache.Model
	sel     *selection.Index
	pending bool
	err     error

	width, height int
	zoom          int
	offset        int
	rowOffset     int
}

func newViewModel(ctx context.Context, src *source, models *cache.ModelCache, display *layout.Options, filter stack.Filter) viewModel {
	m := viewModel{
		ctx:     ctx,
		src:     src,
		models:  models,
		filter:  filter,
		snap:    src.snapshot(),
		scale:   display.Scale,
		mode:    display.Mode,
		display: display,
		sel:     selection.New(nil),
		width:   80,
		height:  24,
	}
	m.refresh()
	return m
}

func tick() tea.Cmd {
	return tea.Tick(viewTick, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m viewModel) Init() tea.Cmd {
	return tick()
}

func (m viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.refresh()
		return m, tick()
	case sampleMsg:
		m.refresh()
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.clampOffset()
	case tea.MouseMsg:
		m.mouse(msg)
	case tea.KeyMsg:
		return m, m.key(msg)
	}
	return m, nil
}

func (m *viewModel) key(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c":
		return tea.Quit
	case "+", "=":
		m.setZoom(m.zoom + 1)
	case "-", "_":
		m.setZoom(m.zoom - 1)
	case "0":
		m.zoom, m.offset = 0, 0
	case "left", "h":
		m.offset -= max(m.columns()/4, 1)
	case "right", "l":
		m.offset += max(m.columns()/4, 1)
	case "up", "k":
		m.rowOffset--
	case "down", "j":
		m.rowOffset++
	case "s":
		m.scale = (m.scale + 1) % (layout.ByEqualWidth + 1)
		m.setDisplay()
	case "m":
		if m.snap != nil {
			modes := m.snap.Descriptor().Modes()
			i := slices.Index(modes, m.mode)
			m.mode = modes[(i+1)%len(modes)]
			m.setDisplay()
		}
	case "esc":
		m.sel.Clear()
	case "r":
		_, _ = m.src.load(m.ctx)
	}
	m.clampOffset()
	m.refresh()
	return nil
}

// mouse selects the box under a left click. Clicks outside the graph clear
// the selection.
func (m *viewModel) mouse(msg tea.MouseMsg) {
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.rowOffset--
		m.clampOffset()
		return
	case msg.Button == tea.MouseButtonWheelDown:
		m.rowOffset++
		m.clampOffset()
		return
	case msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft:
		return
	}
	b, ok := m.boxAt(msg.X, msg.Y)
	if !ok {
		m.sel.Clear()
		return
	}
	m.sel.SelectBox(b)
}

// boxAt maps a terminal cell to the box drawn there.
func (m *viewModel) boxAt(x, y int) (*layout.Box, bool) {
	if m.model == nil || m.model.Layout.IsEmpty() {
		return nil, false
	}
	row := y - viewHeaderLines + m.rowOffset
	if y < viewHeaderLines || y-viewHeaderLines >= m.graphLines() {
		return nil, false
	}
	return flame.BoxAtCell(m.model.Layout, x+m.offset, row, m.canvasColumns())
}

// refresh picks up a newer snapshot and asks the model cache for a model of
// the current inputs. While a rebuild runs the previous model stays on
// screen.
func (m *viewModel) refresh() {
	if snap := m.src.snapshot(); snap != nil && snap != m.snap {
		m.snap = snap
		m.setDisplay()
	}
	if m.snap == nil || m.display == nil {
		return
	}
	cur, pending := m.models.EnsureCurrentAsync(m.snap, m.display, m.filter)
	m.pending = pending
	if cur != nil && (m.model == nil || cur.Generation != m.model.Generation) {
		m.model = cur
		m.sel.Rebind(cur.Layout)
	}
	m.err = m.models.Err()
	if m.err == nil {
		m.err = m.src.err()
	}
	m.clampOffset()
}

// setDisplay derives new display options for the current snapshot. A mode the
// snapshot's statistic lacks falls back to its default.
func (m *viewModel) setDisplay() {
	if m.snap == nil {
		return
	}
	desc := m.snap.Descriptor()
	if !stats.HasMode(desc, m.mode) {
		m.mode = desc.DefaultMode()
	}
	base := m.display
	if base == nil {
		base = layout.DefaultOptions(desc)
	}
	m.display = base.With(func(o *layout.Options) {
		o.Scale = m.scale
		o.Mode = m.mode
	})
}

func (m *viewModel) setZoom(z int) {
	z = min(max(z, 0), viewMaxZoom)
	if z == m.zoom {
		return
	}
	center := m.offset + m.columns()/2
	if z > m.zoom {
		center <<= z - m.zoom
	} else {
		center >>= m.zoom - z
	}
	m.zoom = z
	m.offset = center - m.columns()/2
}

func (m *viewModel) clampOffset() {
	m.offset = min(max(m.offset, 0), max(m.canvasColumns()-m.columns(), 0))
	rows := 0
	if m.model != nil {
		rows = m.model.Rows()
	}
	m.rowOffset = min(max(m.rowOffset, 0), max(rows-m.graphLines(), 0))
}

// columns is the visible width of the graph in cells.
func (m *viewModel) columns() int { return max(m.width, viewMinColumns) }

// canvasColumns is the width of the whole zoomed canvas in cells.
func (m *viewModel) canvasColumns() int { return m.columns() << m.zoom }

// graphLines is the number of rows available to the graph.
func (m *viewModel) graphLines() int {
	return max(m.height-viewHeaderLines-viewDetailLines-1, 1)
}

func (m viewModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(appName))
	b.WriteString(" ")
	b.WriteString(StyleValue.Render(m.src.label()))
	b.WriteString("\n")
	b.WriteString(viewStatusStyle.Render(m.status()))
	b.WriteString("\n")

	lines := m.graph()
	for i := 0; i < m.graphLines(); i++ {
		if i < len(lines) {
			b.WriteString(lines[i])
		}
		b.WriteString("\n")
	}

	detail := m.detail()
	for i := 0; i < viewDetailLines; i++ {
		if i < len(detail) {
			b.WriteString(detail[i])
		}
		b.WriteString("\n")
	}
	b.WriteString(viewHelpStyle.Render("+/- zoom  0 reset  ←/→ scroll  ↑/↓ rows  s scale  m mode  esc clear  r reload  q quit"))
	return b.String()
}

func (m viewModel) status() string {
	parts := []string{
		fmt.Sprintf("scale %s", m.scale),
		fmt.Sprintf("mode %s", m.mode),
		fmt.Sprintf("zoom %dx", 1<<m.zoom),
	}
	if m.model != nil {
		l := m.model.Layout
		parts = append(parts, fmt.Sprintf("%d boxes", len(l.Boxes)))
		if l.Descriptor != nil {
			parts = append(parts, "total "+stats.FormatValue(l.Descriptor, l.Options.Mode, l.Total))
		}
	}
	if m.pending {
		parts = append(parts, "Rendering...")
	}
	s := strings.Join(parts, " · ")
	if m.err != nil {
		s += "  " + viewErrorStyle.Render(m.err.Error())
	}
	return s
}

// graph renders the visible window of the canvas, one line per row.
func (m viewModel) graph() []string {
	if m.model == nil {
		return []string{"Rendering..."}
	}
	l := m.model.Layout
	text := flame.RenderText(l,
		flame.WithColumns(m.canvasColumns()),
		flame.WithWindow(m.offset, m.columns()),
		flame.WithTextSelection(m.sel))
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if l.IsEmpty() {
		return lines
	}
	if m.rowOffset < len(lines) {
		lines = lines[m.rowOffset:]
	}
	return lines
}

// detail returns the tail of the selection's details text, which holds the
// selected frame and its statistics.
func (m viewModel) detail() []string {
	text, ok := m.sel.Detail()
	if !ok {
		return []string{StyleDim.Render("Click a box to show its details")}
	}
	lines := strings.Split(text, "\n")
	if len(lines) > viewDetailLines {
		lines = lines[len(lines)-viewDetailLines:]
	}
	return lines
}
