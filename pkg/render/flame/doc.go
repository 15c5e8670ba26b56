// Package flame paints flame graph layouts.
//
// Renderers consume a computed [layout.Layout] and never recompute geometry:
// every box is drawn where the layout placed it, colored by its value tier.
//
//   - [RenderSVG] produces a standalone SVG with tooltips, optional ruler
//     and click highlighting
//   - [RenderJSON] dumps boxes for external tooling
//   - [RenderText] draws the graph with ANSI colors for terminals
//   - [RenderPNG] and [RenderPDF] convert the SVG with rsvg-convert
package flame
