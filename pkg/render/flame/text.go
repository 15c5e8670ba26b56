package flame

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/stackgraph/pkg/layout"
	"github.com/matzehuels/stackgraph/pkg/selection"
)

// TextOption configures [RenderText].
type TextOption func(*textRenderer)

type textRenderer struct {
	cols   int
	sel    *selection.Index
	plain  bool
	offset int
	window int
}

// WithColumns sets the width of the text canvas in terminal cells.
func WithColumns(n int) TextOption {
	return func(r *textRenderer) {
		if n > 0 {
			r.cols = n
		}
	}
}

// WithTextSelection highlights the boxes of the index's selected frame.
func WithTextSelection(idx *selection.Index) TextOption {
	return func(r *textRenderer) { r.sel = idx }
}

// WithWindow draws only the cells [offset, offset+width) of the canvas, for
// canvases zoomed wider than the terminal.
func WithWindow(offset, width int) TextOption {
	return func(r *textRenderer) {
		r.offset, r.window = max(offset, 0), width
	}
}

// WithPlain disables colors; box edges are drawn with '|'.
func WithPlain() TextOption { return func(r *textRenderer) { r.plain = true } }

// Columns maps the fraction range [x0, x1) onto cell columns of a canvas
// cols cells wide.
func Columns(x0, x1 float64, cols int) (int, int) {
	c0 := int(math.Round(x0 * float64(cols)))
	c1 := int(math.Round(x1 * float64(cols)))
	return min(c0, cols), min(c1, cols)
}

// BoxAtCell returns the box RenderText draws at cell col of row on a canvas
// cols cells wide. It uses the same cell mapping as the painter, so a cell
// never resolves to a neighbor of the box drawn there.
func BoxAtCell(l *layout.Layout, col, row, cols int) (*layout.Box, bool) {
	if col < 0 || col >= cols || row < 0 || row >= l.Rows {
		return nil, false
	}
	for _, b := range l.Boxes {
		if b.Row() != row {
			continue
		}
		c0, c1 := Columns(b.X0, b.X1, cols)
		if c1-c0 >= 1 && col >= c0 && col < c1 {
			return b, true
		}
	}
	return nil, false
}

// RenderText draws l as terminal text, one line per row, outermost frames
// first. Boxes narrower than one cell are skipped; boxes cut by the window
// start their label at the window edge.
func RenderText(l *layout.Layout, opts ...TextOption) string {
	r := textRenderer{cols: 120}
	for _, opt := range opts {
		opt(&r)
	}
	if l.IsEmpty() {
		return l.EmptyText() + "\n"
	}

	lo, hi := 0, r.cols
	if r.window > 0 {
		lo, hi = min(r.offset, r.cols), min(r.offset+r.window, r.cols)
	}

	rows := make([][]*layout.Box, l.Rows)
	for _, b := range l.Boxes {
		rows[b.Row()] = append(rows[b.Row()], b)
	}

	var sb strings.Builder
	for _, row := range rows {
		col := lo
		for _, b := range row {
			c0, c1 := Columns(b.X0, b.X1, r.cols)
			c0, c1 = max(c0, lo), min(c1, hi)
			if c1-c0 < 1 {
				continue
			}
			if c0 > col {
				sb.WriteString(strings.Repeat(" ", c0-col))
			}
			sb.WriteString(r.cell(b, c1-c0))
			col = c1
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (r *textRenderer) cell(b *layout.Box, width int) string {
	label := []rune(b.Frame.Label())
	if r.plain {
		inner := width - 1
		text := fit(label, inner)
		return "|" + text
	}
	text := fit(label, width)
	selected := r.sel != nil && r.sel.IsSelected(b)
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#000000")).
		Background(lipgloss.Color(FillFor(b, selected)))
	if selected {
		style = style.Bold(true)
	}
	return style.Render(text)
}

// fit pads or truncates label to exactly width runes.
func fit(label []rune, width int) string {
	if width <= 0 {
		return ""
	}
	if len(label) > width {
		if width > 2 {
			return string(label[:width-2]) + ".."
		}
		return strings.Repeat(".", width)
	}
	return string(label) + strings.Repeat(" ", width-len(label))
}
