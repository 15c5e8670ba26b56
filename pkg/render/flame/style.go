package flame

import (
	"bytes"
	"encoding/xml"

	"github.com/matzehuels/stackgraph/pkg/layout"
)

// TierColors maps value tiers to fill colors, hottest first.
var TierColors = [layout.NumTiers]string{
	"#ff3b30", // >= 50%
	"#ff9500", // >= 25%
	"#ffd60a", // >= 12%
	"#c7c7cc", // >= 6%
	"#ffffff", // below
}

// SelectedColor fills boxes showing the selected frame.
const SelectedColor = "#5ac8fa"

// Ruler geometry, in pixels.
const (
	RulerHeight      = 25.0
	RulerMajorHeight = 15.0
	RulerMinorHeight = 5.0
)

const (
	fontHeightRatio = 0.7
	fontCharWidth   = 0.6
	fontSizeMin     = 8.0
	fontSizeMax     = 14.0
	labelPadding    = 3.0
)

// FillFor returns the fill color of a box.
func FillFor(b *layout.Box, selected bool) string {
	if selected {
		return SelectedColor
	}
	if b.Tier < 0 || int(b.Tier) >= len(TierColors) {
		return TierColors[len(TierColors)-1]
	}
	return TierColors[b.Tier]
}

// FontSize returns the label font size for a row of the given height.
func FontSize(rowHeight float64) float64 {
	return max(fontSizeMin, min(fontSizeMax, rowHeight*fontHeightRatio))
}

// TruncateLabel shortens label to fit width pixels at fontSize, marking the
// cut with "..". It returns "" when not even three characters fit.
func TruncateLabel(label string, width, fontSize float64) string {
	maxChars := int((width - 2*labelPadding) / (fontSize * fontCharWidth))
	if maxChars < 3 {
		return ""
	}
	r := []rune(label)
	if len(r) <= maxChars {
		return label
	}
	return string(r[:maxChars-2]) + ".."
}

// EscapeXML escapes s for use in SVG text and attributes.
func EscapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
