package layout

import (
	"github.com/matzehuels/stackgraph/pkg/stack"
	"github.com/matzehuels/stackgraph/pkg/trie"
)

// Tier buckets a box by its share of the total value. Painters map tiers to
// colors.
type Tier int

const (
	Tier0 Tier = iota // >= 50%
	Tier1             // >= 25%
	Tier2             // >= 12%
	Tier3             // >= 6%
	Tier4             // below 6%
)

// NumTiers is the number of color tiers.
const NumTiers = 5

var tierBounds = [...]float64{0.50, 0.25, 0.12, 0.06}

// TierFor returns the tier of a value share in [0, 1]. A share exactly on a
// boundary belongs to the higher tier.
func TierFor(share float64) Tier {
	for i, b := range tierBounds {
		if share >= b {
			return Tier(i)
		}
	}
	return Tier4
}

// Label returns the lower bound of the tier as a percentage ("50%").
func (t Tier) Label() string {
	switch t {
	case Tier0:
		return "50%"
	case Tier1:
		return "25%"
	case Tier2:
		return "12%"
	case Tier3:
		return "6%"
	}
	return "<6%"
}

// Box is one rectangle of the flame graph. X0 and X1 are fractions of the
// total width; the box covers [X0, X1).
type Box struct {
	X0, X1 float64
	Depth  int     // 1 for the outermost frames
	Value  float64 // node value under the layout mode
	Share  float64 // Value / layout total
	Tier   Tier
	Frame  stack.Frame
	Node   *trie.Node // lookup only; owned by the model that produced the layout
}

// Width returns the horizontal span of the box as a fraction of the total.
func (b *Box) Width() float64 { return b.X1 - b.X0 }

// Row returns the drawing row, 0 at the top.
func (b *Box) Row() int { return b.Depth - 1 }

// Contains reports whether the fractional x position lies within the box.
func (b *Box) Contains(fx float64) bool { return fx >= b.X0 && fx < b.X1 }

// Rect returns the box's rectangle on a canvas canvasWidth wide with
// rowHeight pixels per row, y growing downward.
func (b *Box) Rect(canvasWidth, rowHeight float64) Rect {
	top := float64(b.Row()) * rowHeight
	return Rect{
		Left:   b.X0 * canvasWidth,
		Right:  b.X1 * canvasWidth,
		Top:    top,
		Bottom: top + rowHeight,
	}
}

// Rect is a box in canvas coordinates.
type Rect struct {
	Left, Right float64
	Top, Bottom float64
}

// Width returns the horizontal span of the rectangle.
func (r Rect) Width() float64 { return r.Right - r.Left }

// Height returns the vertical span of the rectangle.
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// CenterX returns the horizontal center point of the rectangle.
func (r Rect) CenterX() float64 { return (r.Left + r.Right) / 2 }

// CenterY returns the vertical center point of the rectangle.
func (r Rect) CenterY() float64 { return (r.Top + r.Bottom) / 2 }
