package stack

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// Frame is a single call-stack frame. The zero Frame is the synthetic root.
type Frame struct {
	Function string // Qualified function or method name
	File     string // Source file (optional)
	Line     int    // Source line, 0 if unknown
}

// IsZero reports whether f is the zero frame.
func (f Frame) IsZero() bool { return f == Frame{} }

// String renders the frame in the format accepted by [ParseFrame].
func (f Frame) String() string {
	switch {
	case f.File != "" && f.Line > 0:
		return f.Function + " (" + f.File + ":" + strconv.Itoa(f.Line) + ")"
	case f.File != "":
		return f.Function + " (" + f.File + ")"
	case f.Line > 0:
		return f.Function + ":" + strconv.Itoa(f.Line)
	default:
		return f.Function
	}
}

// Label returns the short display form used on flame graph boxes.
func (f Frame) Label() string {
	if f.Line > 0 {
		return f.Function + ":" + strconv.Itoa(f.Line)
	}
	return f.Function
}

// Compare orders frames by function, then file, then line.
func Compare(a, b Frame) int {
	return cmp.Or(
		strings.Compare(a.Function, b.Function),
		strings.Compare(a.File, b.File),
		cmp.Compare(a.Line, b.Line),
	)
}

// ParseFrame parses "func", "func:line", "func (file)" or "func (file:line)".
// Text that does not match a location suffix is taken as the function name,
// so C++ style names such as "ns::fn" survive unchanged.
func ParseFrame(s string) Frame {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, ")") {
		if i := strings.LastIndex(s, " ("); i > 0 {
			fn := strings.TrimSpace(s[:i])
			file, line := splitLine(s[i+2 : len(s)-1])
			return Frame{Function: fn, File: file, Line: line}
		}
	}
	if fn, line := splitLine(s); line > 0 {
		return Frame{Function: fn, Line: line}
	}
	return Frame{Function: s}
}

func splitLine(s string) (string, int) {
	i := strings.LastIndexByte(s, ':')
	if i <= 0 || i == len(s)-1 {
		return s, 0
	}
	n, err := strconv.Atoi(s[i+1:])
	if err != nil || n <= 0 {
		return s, 0
	}
	return s[:i], n
}

// Stack is a call stack ordered from root to leaf.
type Stack []Frame

// Key returns a canonical string identifying the frame sequence.
func (s Stack) Key() string {
	var b strings.Builder
	for i, f := range s {
		if i > 0 {
			b.WriteByte('\x1e')
		}
		b.WriteString(f.Function)
		b.WriteByte('\x1f')
		b.WriteString(f.File)
		b.WriteByte('\x1f')
		b.WriteString(strconv.Itoa(f.Line))
	}
	return b.String()
}

// String renders the stack in folded form ("root;child;leaf").
func (s Stack) String() string {
	parts := make([]string, len(s))
	for i, f := range s {
		parts[i] = f.Label()
	}
	return strings.Join(parts, ";")
}

// Folded renders the stack with full frame locations, in the form parsed
// back by folded-stack readers.
func (s Stack) Folded() string {
	parts := make([]string, len(s))
	for i, f := range s {
		parts[i] = f.String()
	}
	return strings.Join(parts, ";")
}

// Equal reports whether both stacks hold the same frames in the same order.
func (s Stack) Equal(o Stack) bool { return slices.Equal(s, o) }

// Leaf returns the innermost frame.
func (s Stack) Leaf() (Frame, bool) {
	if len(s) == 0 {
		return Frame{}, false
	}
	return s[len(s)-1], true
}

// Clone returns a copy of s that shares no storage with it.
func (s Stack) Clone() Stack { return slices.Clone(s) }

// Of builds a stack of function-only frames, root first.
func Of(functions ...string) Stack {
	s := make(Stack, len(functions))
	for i, fn := range functions {
		s[i] = Frame{Function: fn}
	}
	return s
}
