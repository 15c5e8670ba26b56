package stats

import (
	"strings"

	"github.com/matzehuels/stackgraph/pkg/errors"
)

// Kind enumerates the built-in statistic kinds.
type Kind int

const (
	KindCount Kind = iota
	KindIO
	KindProfile
)

var kindNames = map[Kind]string{
	KindCount:   "count",
	KindIO:      "io",
	KindProfile: "profile",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Kind names accepted by [ParseKind] and [For].
const (
	NameCount    = "count"
	NameSocketIO = "socket-io"
	NameFileIO   = "file-io"
	NameProfile  = "profile"
)

// ParseKind maps a statistic name to its kind. "socket-io" and "file-io"
// both map to [KindIO].
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameCount, "calls":
		return KindCount, nil
	case NameSocketIO, NameFileIO, "io":
		return KindIO, nil
	case NameProfile, "pprof":
		return KindProfile, nil
	}
	return 0, errors.New(errors.ErrCodeInvalidKind, "unknown statistic kind %q", name)
}

// KindNames lists the names accepted by [For], for flag help and completion.
func KindNames() []string {
	return []string{NameCount, NameSocketIO, NameFileIO}
}

// For returns the descriptor for a statistic name. Profile descriptors depend
// on the profile's sample types and are built with [ProfileDescriptor].
func For(name string) (Descriptor, error) {
	kind, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindCount:
		return CountDescriptor(), nil
	case KindIO:
		n := strings.ToLower(strings.TrimSpace(name))
		if n == "io" {
			n = NameFileIO
		}
		return IODescriptor(n), nil
	}
	return nil, errors.New(errors.ErrCodeInvalidKind, "%s descriptors are built from profile sample types", kind)
}

// ParseMode validates s as a mode of d. An empty string selects the
// descriptor's default mode.
func ParseMode(d Descriptor, s string) (Mode, error) {
	if s == "" {
		return d.DefaultMode(), nil
	}
	m := Mode(strings.TrimSpace(s))
	if err := CheckMode(d, m); err != nil {
		return "", err
	}
	return m, nil
}

// CheckMode returns an INVALID_MODE error if d does not support m.
func CheckMode(d Descriptor, m Mode) error {
	if !HasMode(d, m) {
		return invalidMode(d, m)
	}
	return nil
}

func invalidMode(d Descriptor, m Mode) error {
	names := make([]string, 0, len(d.Modes()))
	for _, mm := range d.Modes() {
		names = append(names, string(mm))
	}
	return errors.New(errors.ErrCodeInvalidMode, "%s statistics have no mode %q (valid: %s)",
		d.Name(), m, strings.Join(names, ", "))
}

func mismatch(into, other Accumulator) error {
	return errors.New(errors.ErrCodeMergeFailed, "cannot merge %T into %T", other, into)
}
