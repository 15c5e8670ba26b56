// Package sample holds the producer side of the engine: immutable
// [Snapshot] values mapping call stacks to accumulated statistics, the
// [Publisher] that relays them to consumers, and readers for folded-stack and
// pprof input.
package sample

import (
	"iter"
	"slices"
	"strings"

	"github.com/matzehuels/stackgraph/pkg/errors"
	"github.com/matzehuels/stackgraph/pkg/stack"
	"github.com/matzehuels/stackgraph/pkg/stats"
)

// Entry is one stack and its accumulated statistic.
type Entry struct {
	Stack stack.Stack
	Acc   stats.Accumulator
}

// Snapshot is an immutable mapping from call stacks to accumulators.
// Consumers compare snapshots by pointer identity; a new snapshot means new
// data.
type Snapshot struct {
	desc    stats.Descriptor
	entries []Entry
	index   map[string]int
	err     error
}

// Descriptor returns the statistic descriptor of the snapshot's accumulators.
func (s *Snapshot) Descriptor() stats.Descriptor { return s.desc }

// Len returns the number of distinct stacks.
func (s *Snapshot) Len() int { return len(s.entries) }

// Err returns the construction error recorded by the [Builder], if any.
func (s *Snapshot) Err() error { return s.err }

// All yields every stack and its accumulator in insertion order. Callers must
// not modify either.
func (s *Snapshot) All() iter.Seq2[stack.Stack, stats.Accumulator] {
	return func(yield func(stack.Stack, stats.Accumulator) bool) {
		for _, e := range s.entries {
			if !yield(e.Stack, e.Acc) {
				return
			}
		}
	}
}

// Lookup returns the accumulator recorded for st.
func (s *Snapshot) Lookup(st stack.Stack) (stats.Accumulator, bool) {
	i, ok := s.index[st.Key()]
	if !ok {
		return nil, false
	}
	return s.entries[i].Acc, true
}

// Accumulators returns the accumulators of all entries.
func (s *Snapshot) Accumulators() []stats.Accumulator {
	out := make([]stats.Accumulator, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Acc)
	}
	return out
}

// Summary describes the snapshot total through its descriptor.
func (s *Snapshot) Summary() string {
	if s.desc == nil {
		return ""
	}
	return s.desc.Summary(s.Accumulators())
}

// Sorted returns the entries ordered by folded stack text.
func (s *Snapshot) Sorted() []Entry {
	out := slices.Clone(s.entries)
	slices.SortFunc(out, func(a, b Entry) int {
		return strings.Compare(a.Stack.String(), b.Stack.String())
	})
	return out
}

// Builder assembles a [Snapshot]. Adding a stack that is already present
// merges the accumulators, so snapshot keys are unique.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	desc    stats.Descriptor
	entries []Entry
	index   map[string]int
	err     error
}

// NewBuilder returns a builder for accumulators described by desc.
func NewBuilder(desc stats.Descriptor) *Builder {
	return &Builder{desc: desc, index: make(map[string]int)}
}

// Add records acc for st. The builder stores its own copies of both. A nil
// stack, a nil accumulator, or a failed merge is recorded and reported when
// the snapshot is used to build a trie; only the first such error is kept.
func (b *Builder) Add(st stack.Stack, acc stats.Accumulator) *Builder {
	if b.err != nil {
		return b
	}
	if st == nil {
		b.err = errors.New(errors.ErrCodeInvalidSnapshot, "nil stack in snapshot")
		return b
	}
	if acc == nil {
		b.err = errors.New(errors.ErrCodeInvalidSnapshot, "nil accumulator for stack %s", st)
		return b
	}
	key := st.Key()
	if i, ok := b.index[key]; ok {
		if err := b.entries[i].Acc.Merge(acc); err != nil {
			b.err = errors.Wrap(errors.ErrCodeMergeFailed, err, "merge duplicate stack %s", st)
		}
		return b
	}
	b.index[key] = len(b.entries)
	b.entries = append(b.entries, Entry{Stack: st.Clone(), Acc: acc.Clone()})
	return b
}

// Len returns the number of distinct stacks added so far.
func (b *Builder) Len() int { return len(b.entries) }

// Build returns the snapshot and resets the builder.
func (b *Builder) Build() *Snapshot {
	s := &Snapshot{desc: b.desc, entries: b.entries, index: b.index, err: b.err}
	if s.desc == nil && s.err == nil {
		s.err = errors.New(errors.ErrCodeInvalidSnapshot, "snapshot has no statistic descriptor")
	}
	b.entries, b.index, b.err = nil, make(map[string]int), nil
	return s
}

// Counts builds a count snapshot from folded stack text ("a;b;c") to call
// counts.
func Counts(counts map[string]int64) *Snapshot {
	b := NewBuilder(stats.CountDescriptor())
	for folded, n := range counts {
		b.Add(ParseStack(folded), stats.NewCounter(n))
	}
	return b.Build()
}

// ParseStack parses folded stack text, frames separated by ';', root first.
// Empty text yields an empty, non-nil stack.
func ParseStack(folded string) stack.Stack {
	folded = strings.TrimSpace(folded)
	if folded == "" {
		return stack.Stack{}
	}
	parts := strings.Split(folded, ";")
	st := make(stack.Stack, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			st = append(st, stack.ParseFrame(p))
		}
	}
	return st
}
