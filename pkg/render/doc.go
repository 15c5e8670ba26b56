// Package render provides output rendering for stack flame graphs.
//
// # Overview
//
// This package contains the painters that consume a computed layout. It
// provides:
//
//   - Generic format conversion (SVG to PDF/PNG)
//   - Flame graph rendering (in [flame] subpackage)
//   - Node-link diagrams of the stack trie (in [nodelink] subpackage)
//
// # Format Conversion
//
// The [ToPDF] and [ToPNG] functions convert any SVG to other formats using
// the external rsvg-convert tool (from librsvg). These are used by both
// the flame graph and node-link renderers.
//
//	svg := flame.RenderSVG(l, flame.WithWidth(1200))
//	pdf, err := render.ToPDF(ctx, svg)
//	png, err := render.ToPNG(ctx, svg, 2.0)  // 2x scale
//
// # Flame Graphs
//
// The [flame] subpackage paints [layout.Layout] boxes as SVG, JSON, or ANSI
// text. Box colors follow the layout's value tiers, and the selected frame
// (from a [selection.Index]) is highlighted.
//
// # Node-Link Diagrams
//
// The [nodelink] subpackage renders the stack trie as a Graphviz graph,
// useful for inspecting small traces where the call structure matters more
// than proportions.
//
// [layout.Layout]: https://pkg.go.dev/github.com/matzehuels/stackgraph/pkg/layout#Layout
// [selection.Index]: https://pkg.go.dev/github.com/matzehuels/stackgraph/pkg/selection#Index
package render
