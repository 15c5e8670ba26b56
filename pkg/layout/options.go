package layout

import (
	"math"
	"strings"

	"github.com/matzehuels/stackgraph/pkg/errors"
	"github.com/matzehuels/stackgraph/pkg/stats"
)

// Scale selects how a node's span is divided among its children.
type Scale int

const (
	// ByValue sizes children by their statistic value under the mode.
	ByValue Scale = iota
	// ByCount sizes children by their event count.
	ByCount
	// ByEqualWidth gives every child of a node the same width.
	ByEqualWidth
)

var scaleNames = []string{"value", "count", "equal"}

func (s Scale) String() string {
	if s >= 0 && int(s) < len(scaleNames) {
		return scaleNames[s]
	}
	return "unknown"
}

// Valid reports whether s is one of the defined scales.
func (s Scale) Valid() bool { return s >= ByValue && s <= ByEqualWidth }

// ParseScale parses "value", "count" or "equal" (also "equal-width").
func ParseScale(name string) (Scale, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "value", "by-value", "":
		return ByValue, nil
	case "count", "by-count":
		return ByCount, nil
	case "equal", "equal-width", "by-equal-width":
		return ByEqualWidth, nil
	}
	return 0, errors.New(errors.ErrCodeInvalidScale, "unknown scale %q (valid: value, count, equal)", name)
}

// ScaleNames lists the accepted scale names.
func ScaleNames() []string { return append([]string(nil), scaleNames...) }

// Default display values.
const (
	DefaultRowHeight      = 18.0
	DefaultMinBoxFraction = 0.0005
)

// Options control a layout pass. Options are treated as immutable once handed
// to the engine: the model cache recomputes a layout only when it receives a
// different *Options.
type Options struct {
	Scale          Scale
	Mode           stats.Mode
	MinBoxFraction float64 // boxes narrower than this fraction of the total width are pruned
	RowHeight      float64 // pixels per row, used by painters and hit testing
}

// DefaultOptions returns by-value options in desc's default mode.
func DefaultOptions(desc stats.Descriptor) *Options {
	return &Options{
		Scale:          ByValue,
		Mode:           desc.DefaultMode(),
		MinBoxFraction: DefaultMinBoxFraction,
		RowHeight:      DefaultRowHeight,
	}
}

// With returns a copy of o modified by fn. Use it to derive new options
// instead of mutating options the engine has already seen.
func (o *Options) With(fn func(*Options)) *Options {
	c := *o
	fn(&c)
	return &c
}

// Validate reports configuration errors for these options against desc.
func (o *Options) Validate(desc stats.Descriptor) error {
	if o == nil {
		return errors.New(errors.ErrCodeInvalidOptions, "options are required")
	}
	if !o.Scale.Valid() {
		return errors.New(errors.ErrCodeInvalidScale, "unknown scale %d", int(o.Scale))
	}
	if desc == nil {
		return errors.New(errors.ErrCodeInvalidOptions, "statistic descriptor is required")
	}
	if err := stats.CheckMode(desc, o.Mode); err != nil {
		return err
	}
	if err := errors.ValidateFraction("min box fraction", o.MinBoxFraction); err != nil {
		return err
	}
	if math.IsNaN(o.RowHeight) || math.IsInf(o.RowHeight, 0) || o.RowHeight <= 0 {
		return errors.New(errors.ErrCodeInvalidOptions, "row height must be finite and > 0, got %v", o.RowHeight)
	}
	return nil
}
