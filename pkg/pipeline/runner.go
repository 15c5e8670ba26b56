package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackgraph/pkg/cache"
	"github.com/matzehuels/stackgraph/pkg/errors"
	"github.com/matzehuels/stackgraph/pkg/layout"
	"github.com/matzehuels/stackgraph/pkg/observability"
	"github.com/matzehuels/stackgraph/pkg/sample"
	"github.com/matzehuels/stackgraph/pkg/selection"
	"github.com/matzehuels/stackgraph/pkg/stack"
)

// Runner encapsulates pipeline execution with caching.
// Both the CLI and the HTTP server use it to avoid duplicating model and
// artifact caching logic.
//
// The Runner owns one [cache.ModelCache], so it remembers the last model it
// built. Artifacts are memoized per model generation in Artifacts. Results
// holds whole [Runner.Execute] outputs keyed by input content and options, so
// a persistent cache there lets repeated renders skip loading entirely.
type Runner struct {
	Models    *cache.ModelCache
	Artifacts cache.Cache
	Results   cache.Cache
	Logger    *log.Logger
}

// NewRunner creates a runner with the given artifact cache and model cache.
// If artifacts is nil, a NullCache is used (artifact caching disabled).
// If models is nil, a new ModelCache logging to logger is created.
func NewRunner(artifacts cache.Cache, models *cache.ModelCache, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	if artifacts == nil {
		artifacts = cache.NewNullCache()
	}
	if models == nil {
		models = cache.NewModelCache(cache.WithLogger(logger))
	}
	return &Runner{
		Models:    models,
		Artifacts: artifacts,
		Results:   cache.NewNullCache(),
		Logger:    logger,
	}
}

// Execute runs the complete load → build → render pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	result := &Result{}

	// Stage 1: Load
	loadStart := time.Now()
	data, err := ReadInput(opts.Input)
	if err != nil {
		return nil, err
	}
	key := resultKey(data, opts)
	if artifacts, ok := r.cachedResult(ctx, key, opts.Formats); ok {
		r.Logger.Info("served from cache", "input", opts.Input, "formats", opts.Formats)
		result.Artifacts = artifacts
		result.Cached = true
		return result, nil
	}
	snap, err := LoadBytes(ctx, data, opts)
	if err != nil {
		return nil, err
	}
	result.Snapshot = snap
	result.Stats.Stacks = snap.Len()
	result.Stats.LoadTime = time.Since(loadStart)

	r.Logger.Info("loaded samples",
		"input", opts.Input,
		"stacks", snap.Len(),
		"summary", snap.Summary(),
		"duration", result.Stats.LoadTime)

	// Stage 2: Build
	display, err := opts.Display(snap.Descriptor())
	if err != nil {
		return nil, err
	}
	filter, err := opts.FilterConfig()
	if err != nil {
		return nil, err
	}
	buildStart := time.Now()
	m, err := r.Build(ctx, snap, display, filter)
	if err != nil {
		return nil, err
	}
	result.Model = m
	result.Stats.Nodes = m.Root.Size()
	result.Stats.Boxes = len(m.Layout.Boxes)
	result.Stats.Rows = m.Rows()
	result.Stats.BuildTime = time.Since(buildStart)

	r.Logger.Info("computed layout",
		"boxes", result.Stats.Boxes,
		"rows", result.Stats.Rows,
		"duration", result.Stats.BuildTime)

	// Stage 3: Render
	renderStart := time.Now()
	artifacts, _, err := r.RenderWithCacheInfo(ctx, m, opts, nil)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	r.storeResult(ctx, key, artifacts)

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// resultKey identifies an Execute result by input content and every option
// that affects the output.
func resultKey(data []byte, opts Options) string {
	return cache.Key("result", cache.Hash(data),
		opts.InputFormat, opts.Kind, opts.SampleType, opts.Lines,
		opts.Scale, opts.Mode, opts.MinBoxFraction, opts.RowHeight, opts.Filter,
		opts.Width, opts.Columns, opts.Title, opts.Interactive, opts.Plain, opts.Detailed)
}

// cachedResult returns the cached artifacts for key, or false unless every
// format is present.
func (r *Runner) cachedResult(ctx context.Context, key string, formats []string) (map[string][]byte, bool) {
	artifacts := make(map[string][]byte, len(formats))
	for _, format := range formats {
		data, hit, err := r.Results.Get(ctx, cache.Key(key, format))
		if err != nil || !hit {
			return nil, false
		}
		artifacts[format] = data
	}
	return artifacts, true
}

func (r *Runner) storeResult(ctx context.Context, key string, artifacts map[string][]byte) {
	for format, data := range artifacts {
		if err := r.Results.Set(ctx, cache.Key(key, format), data); err != nil {
			r.Logger.Warn("cache write failed", "format", format, "error", err)
			return
		}
	}
}

// Load reads the input named by opts.
func (r *Runner) Load(ctx context.Context, opts Options) (*sample.Snapshot, error) {
	r.applyLogger(&opts)
	return Load(ctx, opts)
}

// Build brings the runner's model cache up to date for the given snapshot,
// display options and filter. Pass the same pointers again to reuse the
// published model.
func (r *Runner) Build(ctx context.Context, snap *sample.Snapshot, display *layout.Options, filter stack.Filter) (*cache.Model, error) {
	if snap == nil {
		return nil, errors.New(errors.ErrCodeInvalidSnapshot, "snapshot is required")
	}
	return r.Models.EnsureCurrent(ctx, snap, display, filter)
}

// RenderWithCacheInfo paints m in opts.Formats, serving artifacts of the same
// model generation, render options and selection from the artifact cache. It
// reports whether every format came from the cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, m *cache.Model, opts Options, sel *selection.Index) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}
	if m == nil {
		return nil, false, errors.New(errors.ErrCodeInternal, "no model to render")
	}

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Formats)
	start := time.Now()

	artifacts := make(map[string][]byte, len(opts.Formats))
	var missing []string
	for _, format := range opts.Formats {
		if data, hit, err := r.Artifacts.Get(ctx, r.artifactKey(m, opts, sel, format)); err == nil && hit {
			artifacts[format] = data
		} else {
			missing = append(missing, format)
		}
	}
	if len(missing) == 0 {
		hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), nil)
		return artifacts, true, nil
	}

	renderOpts := opts
	renderOpts.Formats = missing
	rendered, err := Render(ctx, m, renderOpts, sel)
	hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}
	for format, data := range rendered {
		artifacts[format] = data
		_ = r.Artifacts.Set(ctx, r.artifactKey(m, opts, sel, format), data)
	}
	r.Logger.Debug("rendered model", "generation", m.Generation, "formats", missing, "duration", time.Since(start))
	return artifacts, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, m *cache.Model, opts Options, sel *selection.Index) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, m, opts, sel)
	return artifacts, err
}

func (r *Runner) artifactKey(m *cache.Model, opts Options, sel *selection.Index, format string) string {
	selected := ""
	if sel != nil {
		if f, ok := sel.Selected(); ok {
			selected = f.String()
		}
	}
	return cache.Key("artifact", m.Generation, format, opts.Width, opts.Columns, opts.Title,
		opts.Interactive, opts.Plain, opts.Detailed, selected)
}

// Close releases resources held by the runner's caches.
func (r *Runner) Close() error {
	var err error
	if r.Artifacts != nil {
		err = r.Artifacts.Close()
	}
	if r.Results != nil {
		if cerr := r.Results.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
