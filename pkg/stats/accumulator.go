// Package stats defines the mergeable statistic accumulators attached to call
// stacks and the descriptors that interpret them.
//
// An [Accumulator] is a commutative, associative monoid: merging is order
// independent and merging a descriptor's [Descriptor.New] identity is a no-op.
// Trie nodes hold cloned accumulators, so a merge never aliases state owned by
// a snapshot.
//
// The set of statistic kinds is closed ([KindCount], [KindIO], [KindProfile]);
// [For] resolves a kind name such as "socket-io" to its descriptor.
package stats

// Mode selects which facet of an accumulator is measured, for example bytes
// read versus bytes written.
type Mode string

// Modes understood by the built-in descriptors. Profile descriptors use the
// pprof sample type names as modes instead.
const (
	ModeCount      Mode = "count"
	ModeReadBytes  Mode = "read-bytes"
	ModeWriteBytes Mode = "write-bytes"
	ModeBytes      Mode = "bytes"
	ModeReadOps    Mode = "read-ops"
	ModeWriteOps   Mode = "write-ops"
	ModeOps        Mode = "ops"
	ModeReadTime   Mode = "read-time"
	ModeWriteTime  Mode = "write-time"
	ModeTime       Mode = "time"
)

// Accumulator accumulates one statistic for a call stack.
type Accumulator interface {
	// Merge folds other into the receiver. Merging an accumulator of a
	// different concrete type or shape fails with MERGE_FAILED.
	Merge(other Accumulator) error
	// Clone returns an independent copy.
	Clone() Accumulator
	// Count returns the number of events accumulated.
	Count() int64
	// Value returns the measured value for mode, 0 for modes it does not know.
	Value(mode Mode) float64
}

// Descriptor interprets accumulators of one statistic kind.
type Descriptor interface {
	Kind() Kind
	Name() string
	// New returns the identity accumulator.
	New() Accumulator
	Modes() []Mode
	DefaultMode() Mode
	Unit(mode Mode) string
	// Value measures acc under mode, rejecting modes the descriptor does not
	// support with INVALID_MODE.
	Value(acc Accumulator, mode Mode) (float64, error)
	// Summary describes the merged total of accs in one line.
	Summary(accs []Accumulator) string
	// Detail describes acc in a few lines for a details panel.
	Detail(acc Accumulator) []string
}

// HasMode reports whether d supports mode.
func HasMode(d Descriptor, mode Mode) bool {
	for _, m := range d.Modes() {
		if m == mode {
			return true
		}
	}
	return false
}

// Total merges clones of accs into a fresh identity accumulator of d.
func Total(d Descriptor, accs []Accumulator) (Accumulator, error) {
	total := d.New()
	for _, a := range accs {
		if a == nil {
			continue
		}
		if err := total.Merge(a); err != nil {
			return nil, err
		}
	}
	return total, nil
}
