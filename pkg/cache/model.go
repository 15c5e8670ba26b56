package cache

import (
	"context"
	"io"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackgraph/pkg/layout"
	"github.com/matzehuels/stackgraph/pkg/observability"
	"github.com/matzehuels/stackgraph/pkg/sample"
	"github.com/matzehuels/stackgraph/pkg/stack"
	"github.com/matzehuels/stackgraph/pkg/trie"
)

// Model is one published (trie, layout) pair and the inputs it was built
// from. Models are immutable; consumers hold read-only pointers.
type Model struct {
	Snapshot   *sample.Snapshot
	Filter     stack.Filter
	Options    *layout.Options
	Root       *trie.Node
	Layout     *layout.Layout
	Generation uint64 // increases with every published model
	BuiltAt    time.Time
}

// Rows returns the layout's row count.
func (m *Model) Rows() int { return m.Layout.Rows }

// Total returns the layout's total value.
func (m *Model) Total() float64 { return m.Layout.Total }

// ModelCache memoizes the trie and layout for the most recent inputs.
//
// Inputs are compared by identity: the trie is rebuilt only when the snapshot
// or filter reference changes, and the layout only when the trie was rebuilt
// or a different *layout.Options is passed. All rebuilds run under one lock.
// A model is published only after both stages succeed, so a failed rebuild
// leaves the previous model in place.
type ModelCache struct {
	mu       sync.Mutex
	current  atomic.Pointer[Model]
	gen      atomic.Uint64
	errMu    sync.Mutex
	asyncErr error
	failed   *inputs // inputs of the last failed async rebuild
	logger   *log.Logger
	onUpdate func(*Model, error)
	now      func() time.Time
}

// ModelOption configures a [ModelCache].
type ModelOption func(*ModelCache)

// WithLogger sets the logger used for rebuild events.
func WithLogger(l *log.Logger) ModelOption {
	return func(c *ModelCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithUpdateFunc registers fn to run after every asynchronous rebuild, on the
// rebuilding goroutine once the rebuild lock is released, with the published
// model (nil on failure).
func WithUpdateFunc(fn func(*Model, error)) ModelOption {
	return func(c *ModelCache) { c.onUpdate = fn }
}

// NewModelCache returns an empty model cache.
func NewModelCache(opts ...ModelOption) *ModelCache {
	c := &ModelCache{
		logger: log.NewWithOptions(io.Discard, log.Options{}),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current returns the published model, or nil before the first successful
// build. It never blocks.
func (c *ModelCache) Current() *Model { return c.current.Load() }

// inputs identifies one set of rebuild inputs.
type inputs struct {
	snap   *sample.Snapshot
	opts   *layout.Options
	filter stack.Filter
}

func (in *inputs) matches(snap *sample.Snapshot, opts *layout.Options, filter stack.Filter) bool {
	return in != nil && in.snap == snap && in.opts == opts && sameFilter(in.filter, filter)
}

// Err returns the error of the most recent asynchronous rebuild, nil if it
// succeeded.
func (c *ModelCache) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.asyncErr
}

// EnsureCurrent returns a model for the given inputs, rebuilding whatever is
// stale. It blocks while another rebuild holds the lock.
func (c *ModelCache) EnsureCurrent(ctx context.Context, snap *sample.Snapshot, opts *layout.Options, filter stack.Filter) (*Model, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureLocked(ctx, snap, opts, filter)
}

// EnsureCurrentAsync returns the published model immediately. If it is stale
// and no rebuild is running, a rebuild starts in a new goroutine. The boolean
// reports whether a rebuild is in flight. Rebuilds are never cancelled; the
// last one to finish is published. Inputs whose last async rebuild failed are
// not retried until one of them changes; [ModelCache.Err] keeps the failure.
func (c *ModelCache) EnsureCurrentAsync(snap *sample.Snapshot, opts *layout.Options, filter stack.Filter) (*Model, bool) {
	cur := c.current.Load()
	if cur.matches(snap, opts, filter) {
		return cur, false
	}
	c.errMu.Lock()
	failed := c.failed.matches(snap, opts, filter)
	c.errMu.Unlock()
	if failed {
		return cur, false
	}
	if !c.mu.TryLock() {
		return cur, true
	}
	go func() {
		m, err := c.ensureLocked(context.Background(), snap, opts, filter)
		c.errMu.Lock()
		c.asyncErr = err
		c.failed = nil
		if err != nil {
			c.failed = &inputs{snap: snap, opts: opts, filter: filter}
		}
		c.errMu.Unlock()
		c.mu.Unlock()
		if c.onUpdate != nil {
			c.onUpdate(m, err)
		}
	}()
	return cur, true
}

func (c *ModelCache) ensureLocked(ctx context.Context, snap *sample.Snapshot, opts *layout.Options, filter stack.Filter) (*Model, error) {
	cur := c.current.Load()
	if cur.matches(snap, opts, filter) {
		observability.Cache().OnCacheHit(ctx, "trie")
		observability.Cache().OnCacheHit(ctx, "layout")
		return cur, nil
	}

	var root *trie.Node
	if cur != nil && cur.Snapshot == snap && sameFilter(cur.Filter, filter) {
		observability.Cache().OnCacheHit(ctx, "trie")
		root = cur.Root
	} else {
		observability.Cache().OnCacheMiss(ctx, "trie")
		start := time.Now()
		var err error
		root, err = trie.Build(snap, filter)
		nodes := 0
		if root != nil {
			nodes = root.Size()
		}
		observability.Engine().OnTrieBuild(ctx, nodes, time.Since(start), err)
		if err != nil {
			c.logger.Error("trie build failed", "error", err)
			return nil, err
		}
		c.logger.Debug("built trie", "nodes", nodes, "stacks", snap.Len(), "duration", time.Since(start))
	}

	observability.Cache().OnCacheMiss(ctx, "layout")
	start := time.Now()
	l, err := layout.Compute(root, snap.Descriptor(), opts)
	scale := ""
	if opts != nil {
		scale = opts.Scale.String()
	}
	if err != nil {
		observability.Engine().OnLayout(ctx, scale, 0, 0, time.Since(start), err)
		c.logger.Error("layout failed", "error", err)
		return nil, err
	}
	observability.Engine().OnLayout(ctx, scale, len(l.Boxes), l.Rows, time.Since(start), nil)

	m := &Model{
		Snapshot:   snap,
		Filter:     filter,
		Options:    opts,
		Root:       root,
		Layout:     l,
		Generation: c.gen.Add(1),
		BuiltAt:    c.now(),
	}
	c.current.Store(m)
	c.logger.Debug("published model",
		"generation", m.Generation,
		"boxes", len(l.Boxes),
		"rows", l.Rows,
		"duration", time.Since(start))
	return m, nil
}

func (m *Model) matches(snap *sample.Snapshot, opts *layout.Options, filter stack.Filter) bool {
	return m != nil && m.Snapshot == snap && m.Options == opts && sameFilter(m.Filter, filter)
}

// sameFilter compares filters by identity. Filters of non-comparable dynamic
// types never match, which forces a rebuild instead of a runtime panic.
func sameFilter(a, b stack.Filter) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
