package stats

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/matzehuels/stackgraph/pkg/errors"
)

// SampleType names one value column of a profile, mirroring pprof's
// sample_type table ("cpu"/"nanoseconds", "alloc_space"/"bytes").
type SampleType struct {
	Type string
	Unit string
}

// schema is shared by a profile descriptor and every accumulator it creates.
// Accumulators merge only within one schema.
type schema struct {
	types []SampleType
	index map[Mode]int
	def   int
}

// Values accumulates one value per profile sample type.
type Values struct {
	schema *schema
	N      int64
	V      []int64
}

func (v *Values) Merge(other Accumulator) error {
	o, ok := other.(*Values)
	if !ok || o == nil {
		return mismatch(v, other)
	}
	if o.schema != v.schema || len(o.V) != len(v.V) {
		return errors.New(errors.ErrCodeMergeFailed, "profile values have different sample types")
	}
	v.N += o.N
	for i, x := range o.V {
		v.V[i] += x
	}
	return nil
}

func (v *Values) Clone() Accumulator {
	return &Values{schema: v.schema, N: v.N, V: append([]int64(nil), v.V...)}
}

// Count returns the number of profile samples merged.
func (v *Values) Count() int64 { return v.N }

func (v *Values) Value(mode Mode) float64 {
	if v.schema == nil {
		return 0
	}
	if i, ok := v.schema.index[mode]; ok && i < len(v.V) {
		return float64(v.V[i])
	}
	return 0
}

// ProfileDesc describes [Values] accumulators for one set of sample types.
type ProfileDesc struct {
	s *schema
}

// ProfileDescriptor builds a descriptor for the given sample types. def names
// the default sample type; empty selects the last type, following the pprof
// convention.
func ProfileDescriptor(def string, types ...SampleType) (*ProfileDesc, error) {
	if len(types) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidKind, "profile has no sample types")
	}
	s := &schema{
		types: append([]SampleType(nil), types...),
		index: make(map[Mode]int, len(types)),
		def:   len(types) - 1,
	}
	for i, t := range types {
		if t.Type == "" {
			return nil, errors.New(errors.ErrCodeInvalidKind, "sample type %d has no name", i)
		}
		if _, dup := s.index[Mode(t.Type)]; dup {
			return nil, errors.New(errors.ErrCodeInvalidKind, "duplicate sample type %q", t.Type)
		}
		s.index[Mode(t.Type)] = i
	}
	if def != "" {
		i, ok := s.index[Mode(def)]
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidMode, "default sample type %q not in profile", def)
		}
		s.def = i
	}
	return &ProfileDesc{s: s}, nil
}

// Accumulate returns an accumulator for one sample. values must have one
// non-negative entry per sample type.
func (d *ProfileDesc) Accumulate(values ...int64) (*Values, error) {
	if len(values) != len(d.s.types) {
		return nil, errors.New(errors.ErrCodeInvalidSnapshot,
			"sample has %d values, profile has %d sample types", len(values), len(d.s.types))
	}
	for i, x := range values {
		if x < 0 {
			return nil, errors.New(errors.ErrCodeInvalidSnapshot,
				"negative %s value %d", d.s.types[i].Type, x)
		}
	}
	return &Values{schema: d.s, N: 1, V: append([]int64(nil), values...)}, nil
}

func (d *ProfileDesc) Kind() Kind   { return KindProfile }
func (d *ProfileDesc) Name() string { return NameProfile }

func (d *ProfileDesc) New() Accumulator {
	return &Values{schema: d.s, V: make([]int64, len(d.s.types))}
}

func (d *ProfileDesc) Modes() []Mode {
	out := make([]Mode, len(d.s.types))
	for i, t := range d.s.types {
		out[i] = Mode(t.Type)
	}
	return out
}

func (d *ProfileDesc) DefaultMode() Mode { return Mode(d.s.types[d.s.def].Type) }

func (d *ProfileDesc) Unit(mode Mode) string {
	if i, ok := d.s.index[mode]; ok {
		return d.s.types[i].Unit
	}
	return ""
}

func (d *ProfileDesc) Value(acc Accumulator, mode Mode) (float64, error) {
	if _, ok := d.s.index[mode]; !ok {
		return 0, invalidMode(d, mode)
	}
	v, ok := acc.(*Values)
	if !ok || v == nil || v.schema != d.s {
		return 0, errors.New(errors.ErrCodeInvalidSnapshot, "accumulator %T does not belong to this profile", acc)
	}
	return v.Value(mode), nil
}

func (d *ProfileDesc) Summary(accs []Accumulator) string {
	total := d.New().(*Values)
	for _, acc := range accs {
		if v, ok := acc.(*Values); ok && v != nil && v.schema == d.s {
			_ = total.Merge(v)
		}
	}
	t := d.s.types[d.s.def]
	return fmt.Sprintf("%s %s", formatQuantity(total.V[d.s.def], t.Unit), t.Type)
}

func (d *ProfileDesc) Detail(acc Accumulator) []string {
	v, ok := acc.(*Values)
	if !ok || v == nil || v.schema != d.s {
		return nil
	}
	lines := make([]string, 0, len(v.V)+1)
	for i, t := range d.s.types {
		lines = append(lines, t.Type+": "+formatQuantity(v.V[i], t.Unit))
	}
	return append(lines, "samples: "+humanize.Comma(v.N))
}

func formatQuantity(v int64, unit string) string {
	switch strings.ToLower(unit) {
	case "bytes":
		return humanize.Bytes(uint64(max(v, 0)))
	case "nanoseconds":
		return time.Duration(v).String()
	case "", "count":
		return humanize.Comma(v)
	}
	return humanize.Comma(v) + " " + unit
}
