package flame

import (
	"bytes"
	"fmt"

	"github.com/matzehuels/stackgraph/pkg/layout"
	"github.com/matzehuels/stackgraph/pkg/selection"
)

const boxInteractionCSS = `
    .box { stroke: #888; stroke-width: 0.5; }
    .box.highlight { stroke: #000; stroke-width: 1.5; }
    .box-text { font-family: monospace; pointer-events: none; }
    .empty { font-family: sans-serif; fill: #666; }`

const boxInteractionJS = `
    function selectFrame(frame) {
      document.querySelectorAll('.box').forEach(b => b.classList.toggle('highlight', b.dataset.frame === frame));
    }
    document.querySelectorAll('.box').forEach(el => {
      el.addEventListener('click', () => selectFrame(el.dataset.frame));
    });`

// DefaultWidth is the canvas width used when none is given.
const DefaultWidth = 1200.0

// SVGOption configures [RenderSVG].
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	width       float64
	title       string
	sel         *selection.Index
	interactive bool
}

// WithWidth sets the canvas width in pixels.
func WithWidth(w float64) SVGOption {
	return func(r *svgRenderer) {
		if w > 0 {
			r.width = w
		}
	}
}

// WithTitle draws a title above the graph.
func WithTitle(title string) SVGOption { return func(r *svgRenderer) { r.title = title } }

// WithSelection highlights the boxes of the index's selected frame.
func WithSelection(idx *selection.Index) SVGOption { return func(r *svgRenderer) { r.sel = idx } }

// WithInteraction embeds CSS and script that highlight all boxes of a frame
// when one is clicked.
func WithInteraction() SVGOption { return func(r *svgRenderer) { r.interactive = true } }

// RenderSVG paints l as an SVG document. Rows are l.Options.RowHeight pixels
// high, the outermost frames on top. A ruler is drawn below the graph for the
// by-value scale, and an empty layout shows its empty-state text.
func RenderSVG(l *layout.Layout, opts ...SVGOption) []byte {
	r := svgRenderer{width: DefaultWidth}
	for _, opt := range opts {
		opt(&r)
	}

	rowH := l.Options.RowHeight
	top := 0.0
	if r.title != "" {
		top = rowH * 1.5
	}
	graphH := float64(l.Rows) * rowH
	if l.IsEmpty() {
		graphH = rowH * 2
	}
	height := top + graphH + RulerHeight

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		r.width, height, r.width, height)
	fmt.Fprintf(&buf, `  <rect class="background" x="0" y="0" width="%.1f" height="%.1f" fill="#f8f8f8"/>`+"\n", r.width, height)

	if r.title != "" {
		fmt.Fprintf(&buf, `  <text x="%.1f" y="%.1f" text-anchor="middle" font-family="sans-serif" font-size="%.1f">%s</text>`+"\n",
			r.width/2, rowH, FontSize(rowH)+2, EscapeXML(r.title))
	}

	if l.IsEmpty() {
		fmt.Fprintf(&buf, `  <text class="empty" x="10" y="%.1f" font-size="%.1f">%s</text>`+"\n",
			top+rowH, FontSize(rowH), EscapeXML(l.EmptyText()))
	} else {
		renderBoxes(&buf, l, &r, top)
	}
	renderRuler(&buf, l, r.width, top+graphH)

	if r.interactive {
		fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", boxInteractionCSS)
		fmt.Fprintf(&buf, "  <script type=\"text/javascript\"><![CDATA[%s\n  ]]></script>\n", boxInteractionJS)
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func renderBoxes(buf *bytes.Buffer, l *layout.Layout, r *svgRenderer, top float64) {
	rowH := l.Options.RowHeight
	fontSize := FontSize(rowH)
	for i, b := range l.Boxes {
		rect := b.Rect(r.width, rowH)
		selected := r.sel != nil && r.sel.IsSelected(b)
		class := "box"
		if selected {
			class += " highlight"
		}
		fmt.Fprintf(buf, `  <g><rect id="box-%d" class="%s" data-frame="%s" x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s" stroke="#888" stroke-width="0.5">`,
			i, class, EscapeXML(b.Frame.String()), rect.Left, top+rect.Top, rect.Width(), rect.Height(), FillFor(b, selected))
		fmt.Fprintf(buf, `<title>%s</title></rect>`, EscapeXML(l.Tooltip(b)))
		if label := TruncateLabel(b.Frame.Label(), rect.Width(), fontSize); label != "" {
			fmt.Fprintf(buf, `<text class="box-text" x="%.2f" y="%.2f" font-size="%.1f" dominant-baseline="central">%s</text>`,
				rect.Left+labelPadding, top+rect.CenterY(), fontSize, EscapeXML(label))
		}
		buf.WriteString("</g>\n")
	}
}

func renderRuler(buf *bytes.Buffer, l *layout.Layout, width, y0 float64) {
	ticks := l.Ruler()
	if len(ticks) == 0 {
		return
	}
	base := y0 + RulerHeight - 1
	fmt.Fprintf(buf, `  <g class="ruler" stroke="#444" stroke-width="1">`+"\n")
	for _, t := range ticks {
		h := RulerMinorHeight
		if t.Major {
			h = RulerMajorHeight
		}
		x := (width - 1) * t.X
		fmt.Fprintf(buf, `    <line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f"/>`+"\n", x, base, x, base-h)
	}
	fmt.Fprintf(buf, `    <line x1="0" y1="%.2f" x2="%.2f" y2="%.2f"/>`+"\n", base, width-1, base)
	buf.WriteString("  </g>\n")
}
