package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/stackgraph/pkg/errors"
	"github.com/matzehuels/stackgraph/pkg/layout"
	"github.com/matzehuels/stackgraph/pkg/render"
	"github.com/matzehuels/stackgraph/pkg/render/flame"
	"github.com/matzehuels/stackgraph/pkg/stats"
	"github.com/matzehuels/stackgraph/pkg/trie"
)

// Options configures node-link diagram rendering.
type Options struct {
	Mode        stats.Mode
	MaxDepth    int
	MinFraction float64

	// Detailed appends the descriptor's detail lines to node labels.
	// When false, only the frame and its share are shown.
	Detailed bool
}

// ToDOT converts the trie rooted at root to Graphviz DOT format. The synthetic
// root is drawn as "all". Children appear in frame order so the output is
// deterministic.
func ToDOT(root *trie.Node, desc stats.Descriptor, opts Options) string {
	if opts.Mode == "" {
		opts.Mode = desc.DefaultMode()
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"monospace\", fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	if root == nil {
		buf.WriteString("}\n")
		return buf.String()
	}

	total := root.Value(opts.Mode)
	ids := make(map[*trie.Node]string)
	var edges []string

	root.Walk(func(n *trie.Node) bool {
		if !n.IsRoot() {
			if _, ok := ids[n.Parent()]; !ok {
				return true
			}
			if opts.MaxDepth > 0 && n.Depth() > opts.MaxDepth {
				return true
			}
		}
		share := 0.0
		if total > 0 {
			share = n.Value(opts.Mode) / total
		}
		if !n.IsRoot() && share < opts.MinFraction {
			return true
		}

		id := "n" + strconv.Itoa(len(ids))
		ids[n] = id
		fmt.Fprintf(&buf, "  %s [%s];\n", id, strings.Join(fmtAttrs(n, desc, share, opts), ", "))
		if !n.IsRoot() {
			edges = append(edges, fmt.Sprintf("  %s -> %s;\n", ids[n.Parent()], id))
		}
		return true
	})

	buf.WriteString("\n")
	for _, e := range edges {
		buf.WriteString(e)
	}
	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n *trie.Node, desc stats.Descriptor, share float64, detailed bool) string {
	name := "all"
	if !n.IsRoot() {
		name = n.Frame().Label()
	}
	label := fmt.Sprintf("%s\n%.1f%%", name, share*100)
	if detailed {
		label += "\n" + strings.Join(desc.Detail(n.Aggregate()), "\n")
	}
	return label
}

func fmtAttrs(n *trie.Node, desc stats.Descriptor, share float64, opts Options) []string {
	attrs := []string{
		fmt.Sprintf("label=%q", fmtLabel(n, desc, share, opts.Detailed)),
		fmt.Sprintf("fillcolor=%q", flame.TierColors[layout.TierFor(share)]),
	}
	if !n.IsRoot() {
		attrs = append(attrs, fmt.Sprintf("tooltip=%q", n.Frame().String()))
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
// Returns the SVG bytes ready for display or further conversion with [render.ToPDF] or [render.ToPNG].
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseFailed, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render DOT")
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion at the given scale.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}
