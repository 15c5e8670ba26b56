// Package pipeline provides the load → build → render pipeline for stackgraph.
//
// This package ties the engine packages together so the CLI commands and the
// HTTP server share one code path for reading samples, keeping the cached
// model current, and painting it.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: Read a folded-stack or pprof file into a [sample.Snapshot]
//  2. Build: Bring the [cache.ModelCache] up to date (trie and layout)
//  3. Render: Paint the model in the requested formats
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(nil, nil, logger)
//	opts := pipeline.Options{
//	    Input:   "cpu.pprof",
//	    Formats: []string{"svg", "text"},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
//
// Run individual stages:
//
//	snap, err := runner.Load(ctx, opts)
//	model, err := runner.Build(ctx, snap, display, filter)
//	artifacts, err := runner.Render(ctx, model, opts, nil)
package pipeline

import (
	"io"
	"math"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackgraph/pkg/cache"
	"github.com/matzehuels/stackgraph/pkg/errors"
	"github.com/matzehuels/stackgraph/pkg/layout"
	"github.com/matzehuels/stackgraph/pkg/sample"
	"github.com/matzehuels/stackgraph/pkg/stack"
	"github.com/matzehuels/stackgraph/pkg/stats"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultWidth is the default canvas width in pixels.
	DefaultWidth = 1200.0

	// DefaultColumns is the default width of the text painter in cells.
	DefaultColumns = 120

	// DefaultPNGScale is the resolution factor for PNG output.
	DefaultPNGScale = 2.0

	// DefaultKind is the statistic kind assumed for folded input.
	DefaultKind = stats.NameCount
)

// Input formats.
const (
	InputAuto   = "auto"
	InputFolded = "folded"
	InputPprof  = "pprof"
)

// Format constants for output formats.
const (
	FormatSVG    = "svg"
	FormatJSON   = "json"
	FormatText   = "text"
	FormatPNG    = "png"
	FormatPDF    = "pdf"
	FormatDOT    = "dot"
	FormatDOTSVG = "dot-svg"
	FormatFolded = "folded"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:    true,
	FormatJSON:   true,
	FormatText:   true,
	FormatPNG:    true,
	FormatPDF:    true,
	FormatDOT:    true,
	FormatDOTSVG: true,
	FormatFolded: true,
}

// ValidInputFormats is the set of supported input formats.
var ValidInputFormats = map[string]bool{
	InputAuto:   true,
	InputFolded: true,
	InputPprof:  true,
}

// FormatNames returns the output format names in sorted order.
func FormatNames() []string {
	names := make([]string, 0, len(ValidFormats))
	for f := range ValidFormats {
		names = append(names, f)
	}
	slices.Sort(names)
	return names
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the pipeline. It supports TOML and
// JSON serialization for config files and HTTP requests.
type Options struct {
	// Load options
	Input       string `json:"input" toml:"input"`
	InputFormat string `json:"input_format,omitempty" toml:"input_format"`
	Kind        string `json:"kind,omitempty" toml:"kind"`
	SampleType  string `json:"sample_type,omitempty" toml:"sample_type"` // pprof default sample type
	Lines       bool   `json:"lines,omitempty" toml:"lines"`             // keep pprof line numbers

	// Display options
	Scale          string   `json:"scale,omitempty" toml:"scale"`
	Mode           string   `json:"mode,omitempty" toml:"mode"`
	MinBoxFraction *float64 `json:"min_box_fraction,omitempty" toml:"min_box_fraction"`
	RowHeight      float64  `json:"row_height,omitempty" toml:"row_height"`

	// Filter options
	Filter stack.FilterConfig `json:"filter" toml:"filter"`

	// Render options
	Formats     []string `json:"formats,omitempty" toml:"formats"`
	Width       float64  `json:"width,omitempty" toml:"width"`
	Columns     int      `json:"columns,omitempty" toml:"columns"`
	Title       string   `json:"title,omitempty" toml:"title"`
	Interactive bool     `json:"interactive,omitempty" toml:"interactive"`
	Plain       bool     `json:"plain,omitempty" toml:"plain"`
	Detailed    bool     `json:"detailed,omitempty" toml:"detailed"` // detail lines in DOT labels

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-" toml:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Snapshot is the loaded sample data.
	Snapshot *sample.Snapshot

	// Model is the published trie and layout.
	Model *cache.Model

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Cached reports that every artifact came from the runner's result cache.
	// Snapshot and Model are nil in that case.
	Cached bool

	// Stats contains timing and size information.
	Stats Stats
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Stacks     int
	Nodes      int
	Boxes      int
	Rows       int
	LoadTime   time.Duration
	BuildTime  time.Duration
	RenderTime time.Duration
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: %s)",
			format, strings.Join(FormatNames(), ", "))
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateInputFormat checks that an input format is valid.
func ValidateInputFormat(format string) error {
	if !ValidInputFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid input format: %q (must be one of: auto, folded, pprof)", format)
	}
	return nil
}

// DetectInputFormat guesses the input format from a file name. Files ending
// in .pprof, .pb or .pb.gz are pprof profiles; everything else is folded.
func DetectInputFormat(path string) string {
	name := strings.ToLower(filepath.Base(path))
	for _, ext := range []string{".pprof", ".pb", ".pb.gz", ".prof"} {
		if strings.HasSuffix(name, ext) {
			return InputPprof
		}
	}
	return InputFolded
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the
// full pipeline. This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	if _, err := o.FilterConfig(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLoad checks required fields for loading.
func (o *Options) ValidateForLoad() error {
	if err := errors.ValidateInputPath(o.Input); err != nil {
		return err
	}
	if o.InputFormat == "" {
		o.InputFormat = InputAuto
	}
	if err := ValidateInputFormat(o.InputFormat); err != nil {
		return err
	}
	if o.InputFormat == InputAuto {
		o.InputFormat = DetectInputFormat(o.Input)
	}

	switch o.InputFormat {
	case InputPprof:
		if o.Kind != "" {
			if k, err := stats.ParseKind(o.Kind); err != nil {
				return err
			} else if k != stats.KindProfile {
				return errors.New(errors.ErrCodeInvalidKind, "pprof input carries profile samples, not %q", o.Kind)
			}
		}
		o.Kind = stats.NameProfile
	default:
		if o.Kind == "" {
			o.Kind = DefaultKind
		}
		if _, err := stats.For(o.Kind); err != nil {
			return err
		}
	}

	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Columns == 0 {
		o.Columns = DefaultColumns
	}
	if o.Scale == "" {
		o.Scale = layout.ByValue.String()
	}
	if o.RowHeight == 0 {
		o.RowHeight = layout.DefaultRowHeight
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender validates and sets defaults for rendering. Mode is checked
// later against the snapshot's descriptor.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.Width < 0 || math.IsNaN(o.Width) || math.IsInf(o.Width, 0) || o.Columns < 0 {
		return errors.New(errors.ErrCodeInvalidOptions, "width and columns must be finite and positive")
	}
	if _, err := layout.ParseScale(o.Scale); err != nil {
		return err
	}
	return nil
}

// Display builds the layout options for desc. It returns a configuration
// error when the mode is not one of desc's modes.
func (o *Options) Display(desc stats.Descriptor) (*layout.Options, error) {
	scale, err := layout.ParseScale(o.Scale)
	if err != nil {
		return nil, err
	}
	mode, err := stats.ParseMode(desc, o.Mode)
	if err != nil {
		return nil, err
	}
	display := layout.DefaultOptions(desc).With(func(d *layout.Options) {
		d.Scale = scale
		d.Mode = mode
		if o.MinBoxFraction != nil {
			d.MinBoxFraction = *o.MinBoxFraction
		}
		if o.RowHeight != 0 {
			d.RowHeight = o.RowHeight
		}
	})
	if err := display.Validate(desc); err != nil {
		return nil, err
	}
	return display, nil
}

// FilterConfig compiles the filter options. It returns a nil filter when no
// rule is set, so stacks pass through unchanged.
func (o *Options) FilterConfig() (stack.Filter, error) {
	if o.Filter.IsZero() {
		return nil, nil
	}
	f, err := stack.NewFrameFilter(o.Filter)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// HasFormat reports whether format was requested.
func (o *Options) HasFormat(format string) bool {
	return slices.Contains(o.Formats, format)
}
