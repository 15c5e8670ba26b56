package pipeline

import (
	"bytes"
	"context"
	"io"
	"os"
	"time"

	"github.com/matzehuels/stackgraph/pkg/errors"
	"github.com/matzehuels/stackgraph/pkg/observability"
	"github.com/matzehuels/stackgraph/pkg/sample"
	"github.com/matzehuels/stackgraph/pkg/stats"
)

// Load reads opts.Input into a snapshot. "-" reads from standard input.
func Load(ctx context.Context, opts Options) (*sample.Snapshot, error) {
	if err := opts.ValidateForLoad(); err != nil {
		return nil, err
	}
	data, err := ReadInput(opts.Input)
	if err != nil {
		return nil, err
	}
	return LoadBytes(ctx, data, opts)
}

// ReadInput returns the contents of path, or of standard input for "-".
func ReadInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read stdin")
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", path)
	}
	return data, nil
}

// LoadBytes parses already-read input and reports the load to the pipeline
// hooks. opts must have passed [Options.ValidateForLoad].
func LoadBytes(ctx context.Context, data []byte, opts Options) (*sample.Snapshot, error) {
	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, opts.InputFormat, opts.Kind)
	start := time.Now()

	snap, err := Read(bytes.NewReader(data), opts)
	stacks := 0
	if snap != nil {
		stacks = snap.Len()
	}
	hooks.OnLoadComplete(ctx, opts.InputFormat, opts.Kind, stacks, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if opts.Logger != nil {
		opts.Logger.Debug("loaded samples", "input", opts.Input, "bytes", len(data), "stacks", stacks, "duration", time.Since(start))
	}
	return snap, nil
}

// Read parses samples from r according to opts.InputFormat and opts.Kind,
// which must already be resolved by [Options.ValidateForLoad].
func Read(r io.Reader, opts Options) (*sample.Snapshot, error) {
	if opts.InputFormat == InputPprof {
		return sample.ReadProfile(r, sample.ProfileOptions{DefaultType: opts.SampleType, Lines: opts.Lines})
	}
	desc, err := stats.For(opts.Kind)
	if err != nil {
		return nil, err
	}
	return sample.ReadFolded(r, desc)
}
