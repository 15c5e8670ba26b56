package pipeline

import (
	"bytes"
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/stackgraph/pkg/cache"
	"github.com/matzehuels/stackgraph/pkg/errors"
	"github.com/matzehuels/stackgraph/pkg/render/flame"
	"github.com/matzehuels/stackgraph/pkg/render/nodelink"
	"github.com/matzehuels/stackgraph/pkg/sample"
	"github.com/matzehuels/stackgraph/pkg/selection"
)

// Render paints m in every format of opts.Formats concurrently. sel may be
// nil. The first failing format cancels the others.
func Render(ctx context.Context, m *cache.Model, opts Options, sel *selection.Index) (map[string][]byte, error) {
	if m == nil {
		return nil, errors.New(errors.ErrCodeInternal, "no model to render")
	}

	var mu sync.Mutex
	artifacts := make(map[string][]byte, len(opts.Formats))

	g, gctx := errgroup.WithContext(ctx)
	for _, format := range opts.Formats {
		g.Go(func() error {
			data, err := RenderFormat(gctx, m, opts, sel, format)
			if err != nil {
				return err
			}
			mu.Lock()
			artifacts[format] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return artifacts, nil
}

// RenderFormat paints m in a single format.
func RenderFormat(ctx context.Context, m *cache.Model, opts Options, sel *selection.Index, format string) ([]byte, error) {
	l := m.Layout
	switch format {
	case FormatSVG:
		return flame.RenderSVG(l, svgOptions(opts, sel)...), nil
	case FormatPNG:
		return flame.RenderPNG(ctx, l, DefaultPNGScale, svgOptions(opts, sel)...)
	case FormatPDF:
		return flame.RenderPDF(ctx, l, svgOptions(opts, sel)...)
	case FormatJSON:
		return flame.RenderJSON(l, flame.WithJSONSelection(sel))
	case FormatText:
		textOpts := []flame.TextOption{flame.WithColumns(opts.Columns), flame.WithTextSelection(sel)}
		if opts.Plain {
			textOpts = append(textOpts, flame.WithPlain())
		}
		return []byte(flame.RenderText(l, textOpts...)), nil
	case FormatDOT:
		return []byte(nodelink.ToDOT(m.Root, l.Descriptor, dotOptions(m, opts))), nil
	case FormatDOTSVG:
		return nodelink.RenderSVG(ctx, nodelink.ToDOT(m.Root, l.Descriptor, dotOptions(m, opts)))
	case FormatFolded:
		var buf bytes.Buffer
		if err := sample.WriteFolded(&buf, m.Snapshot); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, ValidateFormat(format)
	}
}

func svgOptions(opts Options, sel *selection.Index) []flame.SVGOption {
	svgOpts := []flame.SVGOption{flame.WithWidth(opts.Width)}
	if opts.Title != "" {
		svgOpts = append(svgOpts, flame.WithTitle(opts.Title))
	}
	if sel != nil {
		svgOpts = append(svgOpts, flame.WithSelection(sel))
	}
	if opts.Interactive {
		svgOpts = append(svgOpts, flame.WithInteraction())
	}
	return svgOpts
}

func dotOptions(m *cache.Model, opts Options) nodelink.Options {
	return nodelink.Options{
		Mode:        m.Options.Mode,
		MinFraction: m.Options.MinBoxFraction,
		Detailed:    opts.Detailed,
	}
}
