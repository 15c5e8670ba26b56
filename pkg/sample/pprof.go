package sample

import (
	"fmt"
	"io"

	"github.com/google/pprof/profile"

	"github.com/matzehuels/stackgraph/pkg/errors"
	"github.com/matzehuels/stackgraph/pkg/stack"
	"github.com/matzehuels/stackgraph/pkg/stats"
)

// ProfileOptions controls how pprof samples become stacks.
type ProfileOptions struct {
	// DefaultType selects the default sample type (mode). Empty uses the
	// profile's default_sample_type, or the last type.
	DefaultType string
	// Lines keeps source line numbers in frames. Without it frames are
	// aggregated per function.
	Lines bool
}

// ReadProfile parses a pprof profile (gzipped or not) into a snapshot with a
// profile descriptor built from the profile's sample types.
func ReadProfile(r io.Reader, opts ProfileOptions) (*Snapshot, error) {
	p, err := profile.Parse(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseFailed, err, "parse pprof profile")
	}
	return FromProfile(p, opts)
}

// FromProfile converts a parsed pprof profile into a snapshot.
func FromProfile(p *profile.Profile, opts ProfileOptions) (*Snapshot, error) {
	types := make([]stats.SampleType, len(p.SampleType))
	for i, st := range p.SampleType {
		types[i] = stats.SampleType{Type: st.Type, Unit: st.Unit}
	}
	def := opts.DefaultType
	if def == "" {
		def = p.DefaultSampleType
	}
	desc, err := stats.ProfileDescriptor(def, types...)
	if err != nil {
		return nil, err
	}

	b := NewBuilder(desc)
	for _, s := range p.Sample {
		acc, err := desc.Accumulate(s.Value...)
		if err != nil {
			return nil, err
		}
		b.Add(profileStack(s, opts.Lines), acc)
	}
	snap := b.Build()
	if err := snap.Err(); err != nil {
		return nil, err
	}
	return snap, nil
}

// profileStack orders a sample's locations root first. pprof lists the leaf
// location first, and within a location the inlined callees before their
// caller.
func profileStack(s *profile.Sample, lines bool) stack.Stack {
	st := make(stack.Stack, 0, len(s.Location))
	for i := len(s.Location) - 1; i >= 0; i-- {
		loc := s.Location[i]
		if len(loc.Line) == 0 {
			st = append(st, stack.Frame{Function: fmt.Sprintf("0x%x", loc.Address)})
			continue
		}
		for j := len(loc.Line) - 1; j >= 0; j-- {
			ln := loc.Line[j]
			f := stack.Frame{Function: "?"}
			if ln.Function != nil {
				f.Function = ln.Function.Name
				f.File = ln.Function.Filename
			}
			if lines {
				f.Line = int(ln.Line)
			}
			st = append(st, f)
		}
	}
	return st
}
