package flame

import (
	"encoding/json"

	"github.com/matzehuels/stackgraph/pkg/layout"
	"github.com/matzehuels/stackgraph/pkg/selection"
	"github.com/matzehuels/stackgraph/pkg/stats"
)

// JSONOption configures [RenderJSON].
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	sel *selection.Index
}

// WithJSONSelection marks boxes of the index's selected frame.
func WithJSONSelection(idx *selection.Index) JSONOption {
	return func(r *jsonRenderer) { r.sel = idx }
}

type jsonOutput struct {
	Kind     string    `json:"kind"`
	Mode     string    `json:"mode"`
	Unit     string    `json:"unit,omitempty"`
	Scale    string    `json:"scale"`
	Total    float64   `json:"total"`
	Rows     int       `json:"rows"`
	Summary  string    `json:"summary,omitempty"`
	Empty    string    `json:"empty,omitempty"`
	Selected string    `json:"selected,omitempty"`
	Boxes    []jsonBox `json:"boxes"`
}

type jsonBox struct {
	X0       float64 `json:"x0"`
	X1       float64 `json:"x1"`
	Depth    int     `json:"depth"`
	Frame    string  `json:"frame"`
	Value    float64 `json:"value"`
	Share    float64 `json:"share"`
	Tier     int     `json:"tier"`
	Count    int64   `json:"count"`
	Selected bool    `json:"selected,omitempty"`
}

// RenderJSON encodes l as indented JSON. Boxes keep layout order.
func RenderJSON(l *layout.Layout, opts ...JSONOption) ([]byte, error) {
	var r jsonRenderer
	for _, opt := range opts {
		opt(&r)
	}

	out := jsonOutput{
		Kind:  l.Descriptor.Name(),
		Mode:  string(l.Options.Mode),
		Unit:  l.Descriptor.Unit(l.Options.Mode),
		Scale: l.Options.Scale.String(),
		Total: l.Total,
		Rows:  l.Rows,
		Boxes: make([]jsonBox, 0, len(l.Boxes)),
	}
	if l.Root != nil {
		out.Summary = l.Descriptor.Summary([]stats.Accumulator{l.Root.Aggregate()})
	}
	if l.IsEmpty() {
		out.Empty = l.EmptyText()
	}
	if r.sel != nil {
		if f, ok := r.sel.Selected(); ok {
			out.Selected = f.String()
		}
	}
	for _, b := range l.Boxes {
		out.Boxes = append(out.Boxes, jsonBox{
			X0:       b.X0,
			X1:       b.X1,
			Depth:    b.Depth,
			Frame:    b.Frame.String(),
			Value:    b.Value,
			Share:    b.Share,
			Tier:     int(b.Tier),
			Count:    b.Node.Aggregate().Count(),
			Selected: r.sel != nil && r.sel.IsSelected(b),
		})
	}
	return json.MarshalIndent(out, "", "  ")
}
