// Package nodelink renders call tries as node-link diagrams.
//
// # Overview
//
// This package produces a directed call graph using Graphviz, where each trie
// node appears as a box connected to its callees. It's an alternative to the
// flame graph when the shape of the call tree matters more than widths.
//
// # Usage
//
// Convert a trie to DOT format, then render to SVG:
//
//	dot := nodelink.ToDOT(root, desc, nodelink.Options{Mode: stats.ModeCount})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// For PDF or PNG output, use the render functions:
//
//	pdf, err := nodelink.RenderPDF(ctx, dot)
//	png, err := nodelink.RenderPNG(ctx, dot, 2.0)  // 2x scale
//
// # Options
//
// The [Options] struct controls diagram generation:
//
//   - Mode: which statistic labels and colors the nodes
//   - MaxDepth: stop descending below this depth (0 means no limit)
//   - MinFraction: hide nodes below this share of the total
//   - Detailed: include the descriptor's detail lines in node labels
//
// Node fills use the same value tiers as the flame graph.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package nodelink
