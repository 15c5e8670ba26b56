package sample

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/matzehuels/stackgraph/pkg/errors"
	"github.com/matzehuels/stackgraph/pkg/stack"
	"github.com/matzehuels/stackgraph/pkg/stats"
)

const maxLineSize = 4 << 20

// ReadFolded parses folded stacks, one per line:
//
//	main;serve;read 42
//
// For count statistics the trailing field is the call count. IO statistics
// use key=value fields instead:
//
//	main;serve;read read_bytes=4096 read_ops=2 read_time=3ms
//
// Recognized IO keys are read_bytes, write_bytes, read_ops, write_ops,
// read_time and write_time; times accept Go durations or integer nanoseconds.
// Blank lines and lines starting with '#' are skipped.
func ReadFolded(r io.Reader, desc stats.Descriptor) (*Snapshot, error) {
	if desc == nil {
		return nil, errors.New(errors.ErrCodeInvalidKind, "no statistic descriptor")
	}
	if desc.Kind() == stats.KindProfile {
		return nil, errors.New(errors.ErrCodeUnsupported, "folded input cannot carry profile statistics")
	}

	b := NewBuilder(desc)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineSize)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		st, acc, err := parseFoldedLine(line, desc.Kind())
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeParseFailed, err, "line %d", lineNo)
		}
		b.Add(st, acc)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseFailed, err, "read folded stacks")
	}
	snap := b.Build()
	if err := snap.Err(); err != nil {
		return nil, err
	}
	return snap, nil
}

func parseFoldedLine(line string, kind stats.Kind) (stack.Stack, stats.Accumulator, error) {
	text, fields := splitFields(line)
	if len(fields) == 0 {
		return nil, nil, fmt.Errorf("missing value in %q", line)
	}
	st := ParseStack(text)

	switch kind {
	case stats.KindCount:
		if len(fields) != 1 || strings.Contains(fields[0], "=") {
			return nil, nil, fmt.Errorf("count lines take a single value, got %q", strings.Join(fields, " "))
		}
		n, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil || n < 0 {
			return nil, nil, fmt.Errorf("invalid count %q", fields[0])
		}
		return st, stats.NewCounter(n), nil

	case stats.KindIO:
		acc, err := parseIOFields(fields)
		if err != nil {
			return nil, nil, err
		}
		return st, acc, nil
	}
	return nil, nil, fmt.Errorf("unsupported statistic kind %s", kind)
}

// splitFields peels trailing value fields off a folded line. Frames may
// contain spaces ("fn (file.go:3)"), so only trailing numbers and key=value
// tokens count as fields.
func splitFields(line string) (string, []string) {
	var fields []string
	rest := line
	for {
		i := strings.LastIndexAny(rest, " \t")
		if i < 0 {
			// A line holding only values is the empty (root) stack.
			if isValueToken(rest) {
				return "", append([]string{rest}, fields...)
			}
			break
		}
		tok := rest[i+1:]
		if !isValueToken(tok) {
			break
		}
		fields = append([]string{tok}, fields...)
		rest = strings.TrimRight(rest[:i], " \t")
	}
	return rest, fields
}

func isValueToken(tok string) bool {
	if tok == "" {
		return false
	}
	if strings.Contains(tok, "=") {
		return true
	}
	_, err := strconv.ParseInt(tok, 10, 64)
	return err == nil
}

func parseIOFields(fields []string) (*stats.IO, error) {
	acc := &stats.IO{}
	for _, f := range fields {
		key, val, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("io lines take key=value fields, got %q", f)
		}
		var err error
		switch key {
		case "read_bytes":
			acc.ReadBytes, err = parseCount(val)
		case "write_bytes":
			acc.WriteBytes, err = parseCount(val)
		case "read_ops":
			acc.ReadOps, err = parseCount(val)
		case "write_ops":
			acc.WriteOps, err = parseCount(val)
		case "read_time":
			acc.ReadTime, err = parseDuration(val)
		case "write_time":
			acc.WriteTime, err = parseDuration(val)
		default:
			return nil, fmt.Errorf("unknown io field %q", key)
		}
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
	}
	return acc, nil
}

func parseCount(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %d", n)
	}
	return n, nil
}

func parseDuration(s string) (time.Duration, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative duration %d", n)
		}
		return time.Duration(n), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", d)
	}
	return d, nil
}

// WriteFolded writes snap in the format read by [ReadFolded], sorted by
// stack. Profile snapshots are written as counts of their default sample type.
func WriteFolded(w io.Writer, snap *Snapshot) error {
	bw := bufio.NewWriter(w)
	mode := snap.Descriptor().DefaultMode()
	for _, e := range snap.Sorted() {
		var err error
		if a, ok := e.Acc.(*stats.IO); ok {
			_, err = fmt.Fprintf(bw, "%s read_bytes=%d write_bytes=%d read_ops=%d write_ops=%d read_time=%d write_time=%d\n",
				e.Stack.Folded(), a.ReadBytes, a.WriteBytes, a.ReadOps, a.WriteOps, int64(a.ReadTime), int64(a.WriteTime))
		} else {
			_, err = fmt.Fprintf(bw, "%s %d\n", e.Stack.Folded(), int64(e.Acc.Value(mode)))
		}
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}
