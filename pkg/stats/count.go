package stats

import (
	"github.com/dustin/go-humanize"

	"github.com/matzehuels/stackgraph/pkg/errors"
)

// Counter counts calls.
type Counter struct {
	N int64
}

// NewCounter returns a counter holding n calls.
func NewCounter(n int64) *Counter { return &Counter{N: n} }

func (c *Counter) Merge(other Accumulator) error {
	o, ok := other.(*Counter)
	if !ok || o == nil {
		return mismatch(c, other)
	}
	c.N += o.N
	return nil
}

func (c *Counter) Clone() Accumulator { return &Counter{N: c.N} }

func (c *Counter) Count() int64 { return c.N }

func (c *Counter) Value(mode Mode) float64 {
	if mode == ModeCount {
		return float64(c.N)
	}
	return 0
}

type countDescriptor struct{}

// CountDescriptor describes [Counter] accumulators.
func CountDescriptor() Descriptor { return countDescriptor{} }

func (countDescriptor) Kind() Kind            { return KindCount }
func (countDescriptor) Name() string          { return NameCount }
func (countDescriptor) New() Accumulator      { return &Counter{} }
func (countDescriptor) Modes() []Mode         { return []Mode{ModeCount} }
func (countDescriptor) DefaultMode() Mode     { return ModeCount }
func (countDescriptor) Unit(mode Mode) string { return "calls" }

func (d countDescriptor) Value(acc Accumulator, mode Mode) (float64, error) {
	if mode != ModeCount {
		return 0, invalidMode(d, mode)
	}
	c, ok := acc.(*Counter)
	if !ok || c == nil {
		return 0, errors.New(errors.ErrCodeInvalidSnapshot, "expected *stats.Counter, got %T", acc)
	}
	return c.Value(mode), nil
}

func (d countDescriptor) Summary(accs []Accumulator) string {
	var n int64
	for _, a := range accs {
		if c, ok := a.(*Counter); ok && c != nil {
			n += c.N
		}
	}
	return humanize.Comma(n) + " calls"
}

func (d countDescriptor) Detail(acc Accumulator) []string {
	c, ok := acc.(*Counter)
	if !ok || c == nil {
		return nil
	}
	return []string{"calls: " + humanize.Comma(c.N)}
}
