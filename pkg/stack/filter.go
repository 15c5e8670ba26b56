package stack

import (
	"regexp"

	"github.com/matzehuels/stackgraph/pkg/errors"
)

// Filter decides which frames survive trie construction.
type Filter interface {
	Includes(f Frame) bool
}

// Reducer is implemented by filters with whole-stack rules. When a filter
// implements Reducer, [Apply] delegates the entire reduction to it.
type Reducer interface {
	Reduce(s Stack) Stack
}

// Apply returns s with the frames rejected by f removed, preserving order.
// A nil filter keeps every frame. The input stack is never modified.
func Apply(f Filter, s Stack) Stack {
	if f == nil {
		return s
	}
	if r, ok := f.(Reducer); ok {
		return r.Reduce(s)
	}
	return keep(f, s)
}

func keep(f Filter, s Stack) Stack {
	for i, fr := range s {
		if f.Includes(fr) {
			continue
		}
		out := make(Stack, i, len(s)-1)
		copy(out, s[:i])
		for _, rest := range s[i+1:] {
			if f.Includes(rest) {
				out = append(out, rest)
			}
		}
		return out
	}
	return s
}

// FilterConfig configures a [FrameFilter].
type FilterConfig struct {
	Exclude         []string `json:"exclude,omitempty" toml:"exclude"`                   // Exact function names to drop
	ExcludePatterns []string `json:"exclude_patterns,omitempty" toml:"exclude_patterns"` // Regexps; matching functions are dropped
	IncludePatterns []string `json:"include_patterns,omitempty" toml:"include_patterns"` // Regexps; if set, only matching functions survive
	MaxDepth        int      `json:"max_depth,omitempty" toml:"max_depth"`               // Keep at most this many root-most frames (0 = unlimited)
}

// IsZero reports whether the config has no rules.
func (c FilterConfig) IsZero() bool {
	return len(c.Exclude) == 0 && len(c.ExcludePatterns) == 0 &&
		len(c.IncludePatterns) == 0 && c.MaxDepth == 0
}

// FrameFilter is a [Filter] and [Reducer] built from a [FilterConfig].
// It is immutable after construction.
type FrameFilter struct {
	exclude  map[string]struct{}
	excludes []*regexp.Regexp
	includes []*regexp.Regexp
	maxDepth int
}

// NewFrameFilter compiles cfg into a filter. Invalid names or patterns and a
// negative MaxDepth are reported as INVALID_FILTER errors.
func NewFrameFilter(cfg FilterConfig) (*FrameFilter, error) {
	if cfg.MaxDepth < 0 {
		return nil, errors.New(errors.ErrCodeInvalidFilter, "max depth must be >= 0, got %d", cfg.MaxDepth)
	}
	f := &FrameFilter{
		exclude:  make(map[string]struct{}, len(cfg.Exclude)),
		maxDepth: cfg.MaxDepth,
	}
	for _, name := range cfg.Exclude {
		if err := errors.ValidateFrameName(name); err != nil {
			return nil, err
		}
		f.exclude[name] = struct{}{}
	}
	var err error
	if f.excludes, err = compileAll(cfg.ExcludePatterns); err != nil {
		return nil, err
	}
	if f.includes, err = compileAll(cfg.IncludePatterns); err != nil {
		return nil, err
	}
	return f, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := errors.CompilePattern(p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

// Includes reports whether fr survives the name and pattern rules.
func (f *FrameFilter) Includes(fr Frame) bool {
	if _, ok := f.exclude[fr.Function]; ok {
		return false
	}
	for _, re := range f.excludes {
		if re.MatchString(fr.Function) {
			return false
		}
	}
	if len(f.includes) == 0 {
		return true
	}
	for _, re := range f.includes {
		if re.MatchString(fr.Function) {
			return true
		}
	}
	return false
}

// Reduce drops excluded frames and then truncates the stack to MaxDepth,
// so leaf values accrue to the deepest kept ancestor.
func (f *FrameFilter) Reduce(s Stack) Stack {
	out := keep(f, s)
	if f.maxDepth > 0 && len(out) > f.maxDepth {
		out = out[:f.maxDepth:f.maxDepth]
	}
	return out
}

// MaxDepth returns the configured depth cap (0 = unlimited).
func (f *FrameFilter) MaxDepth() int { return f.maxDepth }
