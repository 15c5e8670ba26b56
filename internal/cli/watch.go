package cli

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/matzehuels/stackgraph/pkg/cache"
	"github.com/matzehuels/stackgraph/pkg/errors"
	"github.com/matzehuels/stackgraph/pkg/pipeline"
	"github.com/matzehuels/stackgraph/pkg/sample"
)

// watchDebounce is how long the watcher waits for writes to settle before
// reloading.
const watchDebounce = 150 * time.Millisecond

// source owns the live snapshot of a long-running command. It loads the
// input once and, when watching, republishes it through a [sample.Publisher]
// whenever the file content changes.
type source struct {
	opts   pipeline.Options
	pub    *sample.Publisher
	logger *log.Logger

	mu      sync.Mutex
	initial *sample.Snapshot
	hash    string
	lastErr error
}

// newSource validates opts for loading and prepares a publisher that only
// accepts opts.Kind.
func newSource(opts pipeline.Options, logger *log.Logger) (*source, error) {
	if err := opts.ValidateForLoad(); err != nil {
		return nil, err
	}
	return &source{
		opts:   opts,
		pub:    sample.NewPublisher(sample.WithAcceptedKinds(opts.Kind), sample.WithLogger(logger)),
		logger: logger,
	}, nil
}

// load reads the input and publishes it. Unchanged content is skipped and
// reported as false. The outcome is kept for [source.err].
func (s *source) load(ctx context.Context) (bool, error) {
	changed, err := s.reload(ctx)
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	return changed, err
}

func (s *source) reload(ctx context.Context) (bool, error) {
	data, err := pipeline.ReadInput(s.opts.Input)
	if err != nil {
		return false, err
	}
	sum := cache.Hash(data)

	s.mu.Lock()
	unchanged := sum == s.hash
	s.mu.Unlock()
	if unchanged {
		return false, nil
	}

	snap, err := pipeline.LoadBytes(ctx, data, s.opts)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	s.hash = sum
	if s.initial == nil {
		s.initial = snap
	}
	s.mu.Unlock()

	if _, err := s.pub.Publish(s.opts.Kind, time.Now(), snap); err != nil {
		return false, err
	}
	return true, nil
}

// snapshot returns the latest published snapshot. Before anything non-empty
// was published it returns the first loaded snapshot, which may be empty.
func (s *source) snapshot() *sample.Snapshot {
	if latest := s.pub.Latest(); latest != nil {
		return latest.Snapshot
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initial
}

// err returns the error of the most recent load, nil if it succeeded.
func (s *source) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// onSample calls fn with every sample published after the call and returns a
// function that stops the calls. fn runs on the loading goroutine.
func (s *source) onSample(fn func(*sample.Sample)) (stop func()) {
	return s.pub.Subscribe(fn)
}

// label describes the latest sample for status lines.
func (s *source) label() string {
	if latest := s.pub.Latest(); latest != nil {
		return latest.Label
	}
	return s.opts.Input
}

// watch reloads the input on every settled change until ctx is done.
// Standard input cannot be watched.
func (s *source) watch(ctx context.Context) error {
	if s.opts.Input == "-" {
		return errors.New(errors.ErrCodeInvalidInput, "cannot watch standard input")
	}
	path, err := filepath.Abs(s.opts.Input)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", s.opts.Input)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create watcher")
	}
	// Editors replace files by rename, so watch the directory.
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "watch %s", filepath.Dir(path))
	}

	go func() {
		defer w.Close()
		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(watchDebounce)
				} else {
					timer.Reset(watchDebounce)
				}
				fire = timer.C
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Warn("watch error", "error", err)
			case <-fire:
				fire = nil
				changed, err := s.load(ctx)
				switch {
				case err != nil:
					s.logger.Warn("reload failed", "input", s.opts.Input, "error", err)
				case changed:
					s.logger.Info("reloaded samples", "input", s.opts.Input, "label", s.label())
				}
			}
		}
	}()
	s.logger.Debug("watching input", "path", path)
	return nil
}
