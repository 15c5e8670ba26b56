// Package pkg provides the core libraries for Stackgraph flame graph layout.
//
// # Overview
//
// Stackgraph aggregates sampled call stacks into a prefix trie and lays the
// trie out as a flame graph: one row per stack depth, one box per call path,
// widths proportional to the chosen statistic. The pkg directory is
// organized into four areas:
//
//  1. Model: [stack], [stats], [sample] and [trie] hold frames, per-path
//     statistics, sample snapshots and the aggregated call trie.
//  2. Layout: [layout] and [selection] turn a trie into positioned boxes and
//     track which frame the user has highlighted.
//  3. Output: [render/flame] and [render/nodelink] paint layouts as SVG,
//     PNG, PDF, JSON, text and Graphviz DOT.
//  4. Plumbing: [pipeline], [cache], [observability], [errors] and
//     [buildinfo] orchestrate loading, caching, metrics and error reporting.
//
// # Architecture
//
// The typical data flow:
//
//	folded stacks / pprof profile
//	         ↓
//	    [sample] package (snapshot of stacks with statistics)
//	         ↓
//	    [trie] package (filtered prefix trie, children sorted by frame)
//	         ↓
//	    [layout] package (rows of boxes, tiers, hit testing)
//	         ↓
//	    [render/flame] package (SVG/PNG/PDF/JSON/text)
//
// # Quick Start
//
// Load a folded file and render an SVG flame graph:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/stackgraph/pkg/pipeline"
//	)
//
//	opts := pipeline.Options{Input: "app.folded", Formats: []string{"svg"}}
//	if err := opts.ValidateAndSetDefaults(); err != nil {
//	    return err
//	}
//	runner := pipeline.NewRunner(nil, nil, nil)
//	defer runner.Close()
//	result, err := runner.Execute(context.Background(), opts)
//	// result.Artifacts["svg"] holds the SVG document
//
// Or drive the stages directly:
//
//	snap, _ := sample.ReadFolded(r, stats.CountDescriptor())
//	root, _ := trie.Build(snap, nil)
//	l, _ := layout.Compute(root, snap.Descriptor(), layout.DefaultOptions(snap.Descriptor()))
//	svg := flame.RenderSVG(l, flame.WithWidth(1200))
//
// # Main Packages
//
// [stack] defines frames, stacks and the frame filters applied while the
// trie is built.
//
// [stats] defines the statistic kinds (call counts, socket IO, file IO),
// their accumulators and display modes.
//
// [sample] reads folded and pprof input into immutable snapshots and
// publishes live snapshots to consumers.
//
// [trie] aggregates a snapshot into a call trie.
//
// [layout] computes flame graph geometry from a trie.
//
// [selection] indexes boxes by frame for highlight and detail lookups.
//
// [cache] memoizes models (trie plus layout) and rendered artifacts, in
// memory or on disk.
//
// [pipeline] ties loading, layout and rendering together behind [pipeline.Runner].
//
// [observability] exposes hooks for metrics; [observability/prom] backs
// them with Prometheus collectors.
//
// [stack]: https://pkg.go.dev/github.com/matzehuels/stackgraph/pkg/stack
// [stats]: https://pkg.go.dev/github.com/matzehuels/stackgraph/pkg/stats
// [sample]: https://pkg.go.dev/github.com/matzehuels/stackgraph/pkg/sample
// [trie]: https://pkg.go.dev/github.com/matzehuels/stackgraph/pkg/trie
// [layout]: https://pkg.go.dev/github.com/matzehuels/stackgraph/pkg/layout
// [selection]: https://pkg.go.dev/github.com/matzehuels/stackgraph/pkg/selection
// [render/flame]: https://pkg.go.dev/github.com/matzehuels/stackgraph/pkg/render/flame
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/stackgraph/pkg/render/nodelink
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/stackgraph/pkg/pipeline
// [pipeline.Runner]: https://pkg.go.dev/github.com/matzehuels/stackgraph/pkg/pipeline#Runner
// [cache]: https://pkg.go.dev/github.com/matzehuels/stackgraph/pkg/cache
// [observability]: https://pkg.go.dev/github.com/matzehuels/stackgraph/pkg/observability
// [observability/prom]: https://pkg.go.dev/github.com/matzehuels/stackgraph/pkg/observability/prom
// [errors]: https://pkg.go.dev/github.com/matzehuels/stackgraph/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/stackgraph/pkg/buildinfo
package pkg
