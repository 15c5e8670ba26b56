// Package stack defines the call-stack value types shared by the aggregation
// engine: [Frame], [Stack] and the [Filter] predicate applied while a trie is
// built.
//
// # Frames
//
// A [Frame] is a comparable value (function name plus optional source
// location), so it can be used directly as a map key. [Compare] orders frames
// by function, then file, then line; the trie uses it to keep children in a
// deterministic order.
//
// Frames are usually parsed from text:
//
//	stack.ParseFrame("main.run")                   // function only
//	stack.ParseFrame("main.run:42")                // function and line
//	stack.ParseFrame("main.run (cmd/main.go:42)")  // function and location
//
// # Stacks
//
// A [Stack] lists frames root first. Slices are not valid map keys, so
// [Stack.Key] returns a canonical string that two stacks share exactly when
// their frame sequences are equal.
//
// # Filters
//
// A [Filter] decides per frame whether it survives trie construction.
// Excluded frames are spliced out of the path and their value accrues to the
// nearest surviving ancestor. Filters that need whole-stack rules also
// implement [Reducer].
//
// [FrameFilter] is the configurable implementation used by the CLI:
//
//	f, err := stack.NewFrameFilter(stack.FilterConfig{
//	    Exclude:         []string{"runtime.goexit"},
//	    ExcludePatterns: []string{`^runtime\.`},
//	    MaxDepth:        32,
//	})
//
// The model cache compares filters by identity, so filter implementations must
// be pointer types.
package stack
