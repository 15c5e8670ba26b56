package cli

import (
	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stackgraph/pkg/errors"
	"github.com/matzehuels/stackgraph/pkg/pipeline"
	"github.com/matzehuels/stackgraph/pkg/stack"
)

// defaultAddr is the listen address of the serve command.
const defaultAddr = "localhost:8080"

// Config is the optional TOML configuration file. Command-line flags override
// its values.
type Config struct {
	Input   InputConfig        `toml:"input"`
	Display DisplayConfig      `toml:"display"`
	Filter  stack.FilterConfig `toml:"filter"`
	Serve   ServeConfig        `toml:"serve"`
	Cache   CacheConfig        `toml:"cache"`
}

// InputConfig describes how sample files are read.
type InputConfig struct {
	Format     string `toml:"format"`
	Kind       string `toml:"kind"`
	SampleType string `toml:"sample_type"`
	Lines      bool   `toml:"lines"`
}

// DisplayConfig holds layout and painting settings.
type DisplayConfig struct {
	Scale          string   `toml:"scale"`
	Mode           string   `toml:"mode"`
	MinBoxFraction *float64 `toml:"min_box_fraction"`
	RowHeight      float64  `toml:"row_height"`
	Width          float64  `toml:"width"`
	Columns        int      `toml:"columns"`
}

// ServeConfig holds HTTP server settings.
type ServeConfig struct {
	Addr  string `toml:"addr"`
	Watch bool   `toml:"watch"`
}

// CacheConfig locates the render result cache.
type CacheConfig struct {
	Dir string `toml:"dir"`
}

// loadConfig decodes the TOML file at path. Unknown keys are rejected so
// typos do not silently fall back to defaults.
func loadConfig(path string) (*Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown config key %q in %s", undecoded[0].String(), path)
	}
	return &cfg, nil
}

// apply copies the config values into opts.
func (cfg *Config) apply(opts *pipeline.Options) {
	opts.InputFormat = cfg.Input.Format
	opts.Kind = cfg.Input.Kind
	opts.SampleType = cfg.Input.SampleType
	opts.Lines = cfg.Input.Lines
	opts.Scale = cfg.Display.Scale
	opts.Mode = cfg.Display.Mode
	opts.MinBoxFraction = cfg.Display.MinBoxFraction
	opts.RowHeight = cfg.Display.RowHeight
	opts.Width = cfg.Display.Width
	opts.Columns = cfg.Display.Columns
	opts.Filter = cfg.Filter
}

// sourceFlags are the input, display and filter flags shared by every command
// that loads samples.
type sourceFlags struct {
	config         string
	inputFormat    string
	kind           string
	sampleType     string
	lines          bool
	scale          string
	mode           string
	minBoxFraction float64
	rowHeight      float64
	filter         stack.FilterConfig
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.config, "config", "c", "", "TOML config file")
	fs.StringVar(&f.inputFormat, "input-format", pipeline.InputAuto, "input format: auto, folded, pprof")
	fs.StringVarP(&f.kind, "kind", "k", "", "statistic kind of folded input: count (default), socket-io, file-io")
	fs.StringVar(&f.sampleType, "sample-type", "", "pprof sample type to display by default")
	fs.BoolVar(&f.lines, "lines", false, "keep source line numbers from pprof input")
	fs.StringVarP(&f.scale, "scale", "s", "", "width scale: value (default), count, equal")
	fs.StringVarP(&f.mode, "mode", "m", "", "statistic mode (default depends on kind)")
	fs.Float64Var(&f.minBoxFraction, "min-box", 0, "hide boxes narrower than this fraction of the total")
	fs.Float64Var(&f.rowHeight, "row-height", 0, "row height in pixels")
	fs.StringSliceVarP(&f.filter.Exclude, "exclude", "x", nil, "drop frames with this function name (repeatable)")
	fs.StringSliceVar(&f.filter.ExcludePatterns, "exclude-pattern", nil, "drop frames matching this regexp (repeatable)")
	fs.StringSliceVar(&f.filter.IncludePatterns, "include-pattern", nil, "keep only frames matching these regexps (repeatable)")
	fs.IntVar(&f.filter.MaxDepth, "max-depth", 0, "keep at most this many outermost frames (0 = unlimited)")
	registerSourceCompletions(cmd)
}

// options builds pipeline options for input: config file values first, then
// every flag the user set explicitly. It returns the decoded config (possibly
// empty) for command-specific sections.
func (f *sourceFlags) options(cmd *cobra.Command, input string) (pipeline.Options, *Config, error) {
	cfg := &Config{}
	if f.config != "" {
		var err error
		if cfg, err = loadConfig(f.config); err != nil {
			return pipeline.Options{}, nil, err
		}
	}

	var opts pipeline.Options
	cfg.apply(&opts)
	opts.Input = input

	changed := cmd.Flags().Changed
	if changed("input-format") || opts.InputFormat == "" {
		opts.InputFormat = f.inputFormat
	}
	if changed("kind") {
		opts.Kind = f.kind
	}
	if changed("sample-type") {
		opts.SampleType = f.sampleType
	}
	if changed("lines") {
		opts.Lines = f.lines
	}
	if changed("scale") {
		opts.Scale = f.scale
	}
	if changed("mode") {
		opts.Mode = f.mode
	}
	if changed("min-box") {
		v := f.minBoxFraction
		opts.MinBoxFraction = &v
	}
	if changed("row-height") {
		opts.RowHeight = f.rowHeight
	}
	if changed("exclude") {
		opts.Filter.Exclude = f.filter.Exclude
	}
	if changed("exclude-pattern") {
		opts.Filter.ExcludePatterns = f.filter.ExcludePatterns
	}
	if changed("include-pattern") {
		opts.Filter.IncludePatterns = f.filter.IncludePatterns
	}
	if changed("max-depth") {
		opts.Filter.MaxDepth = f.filter.MaxDepth
	}
	return opts, cfg, nil
}
