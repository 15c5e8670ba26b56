package stats

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/matzehuels/stackgraph/pkg/errors"
)

// IO accumulates read and write activity on sockets or files.
type IO struct {
	ReadBytes  int64
	WriteBytes int64
	ReadOps    int64
	WriteOps   int64
	ReadTime   time.Duration
	WriteTime  time.Duration
}

func (a *IO) Merge(other Accumulator) error {
	o, ok := other.(*IO)
	if !ok || o == nil {
		return mismatch(a, other)
	}
	a.ReadBytes += o.ReadBytes
	a.WriteBytes += o.WriteBytes
	a.ReadOps += o.ReadOps
	a.WriteOps += o.WriteOps
	a.ReadTime += o.ReadTime
	a.WriteTime += o.WriteTime
	return nil
}

func (a *IO) Clone() Accumulator {
	c := *a
	return &c
}

// Count returns the number of read and write operations.
func (a *IO) Count() int64 { return a.ReadOps + a.WriteOps }

func (a *IO) Value(mode Mode) float64 {
	switch mode {
	case ModeReadBytes:
		return float64(a.ReadBytes)
	case ModeWriteBytes:
		return float64(a.WriteBytes)
	case ModeBytes:
		return float64(a.ReadBytes + a.WriteBytes)
	case ModeReadOps:
		return float64(a.ReadOps)
	case ModeWriteOps:
		return float64(a.WriteOps)
	case ModeOps, ModeCount:
		return float64(a.Count())
	case ModeReadTime:
		return a.ReadTime.Seconds()
	case ModeWriteTime:
		return a.WriteTime.Seconds()
	case ModeTime:
		return (a.ReadTime + a.WriteTime).Seconds()
	}
	return 0
}

var ioModes = []Mode{
	ModeBytes, ModeReadBytes, ModeWriteBytes,
	ModeOps, ModeReadOps, ModeWriteOps,
	ModeTime, ModeReadTime, ModeWriteTime,
	ModeCount,
}

type ioDescriptor struct {
	name string
}

// IODescriptor describes [IO] accumulators. name is the statistic name shown
// in sample labels, typically "socket-io" or "file-io".
func IODescriptor(name string) Descriptor { return ioDescriptor{name: name} }

func (d ioDescriptor) Kind() Kind        { return KindIO }
func (d ioDescriptor) Name() string      { return d.name }
func (d ioDescriptor) New() Accumulator  { return &IO{} }
func (d ioDescriptor) Modes() []Mode     { return ioModes }
func (d ioDescriptor) DefaultMode() Mode { return ModeBytes }

func (d ioDescriptor) Unit(mode Mode) string {
	switch mode {
	case ModeBytes, ModeReadBytes, ModeWriteBytes:
		return "bytes"
	case ModeTime, ModeReadTime, ModeWriteTime:
		return "seconds"
	case ModeCount:
		return "events"
	}
	return "ops"
}

func (d ioDescriptor) Value(acc Accumulator, mode Mode) (float64, error) {
	if !HasMode(d, mode) {
		return 0, invalidMode(d, mode)
	}
	a, ok := acc.(*IO)
	if !ok || a == nil {
		return 0, errors.New(errors.ErrCodeInvalidSnapshot, "expected *stats.IO, got %T", acc)
	}
	return a.Value(mode), nil
}

func (d ioDescriptor) Summary(accs []Accumulator) string {
	var total IO
	for _, acc := range accs {
		if a, ok := acc.(*IO); ok && a != nil {
			_ = total.Merge(a)
		}
	}
	return fmt.Sprintf("%s read, %s written",
		humanize.Bytes(uint64(max(total.ReadBytes, 0))),
		humanize.Bytes(uint64(max(total.WriteBytes, 0))))
}

func (d ioDescriptor) Detail(acc Accumulator) []string {
	a, ok := acc.(*IO)
	if !ok || a == nil {
		return nil
	}
	return []string{
		fmt.Sprintf("read: %s in %s ops (%s)",
			humanize.Bytes(uint64(max(a.ReadBytes, 0))), humanize.Comma(a.ReadOps), a.ReadTime),
		fmt.Sprintf("write: %s in %s ops (%s)",
			humanize.Bytes(uint64(max(a.WriteBytes, 0))), humanize.Comma(a.WriteOps), a.WriteTime),
	}
}
