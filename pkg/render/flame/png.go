package flame

import (
	"context"

	"github.com/matzehuels/stackgraph/pkg/layout"
	"github.com/matzehuels/stackgraph/pkg/render"
)

// RenderPNG renders l as a PNG via SVG conversion at the given scale factor.
// Requires rsvg-convert on the PATH.
func RenderPNG(ctx context.Context, l *layout.Layout, scale float64, opts ...SVGOption) ([]byte, error) {
	return render.ToPNG(ctx, RenderSVG(l, opts...), scale)
}

// RenderPDF renders l as a PDF via SVG conversion.
// Requires rsvg-convert on the PATH.
func RenderPDF(ctx context.Context, l *layout.Layout, opts ...SVGOption) ([]byte, error) {
	return render.ToPDF(ctx, RenderSVG(l, opts...))
}
