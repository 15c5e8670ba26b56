package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stackgraph/pkg/pipeline"
)

// formatExt maps output formats to file extensions.
var formatExt = map[string]string{
	pipeline.FormatSVG:    ".svg",
	pipeline.FormatJSON:   ".json",
	pipeline.FormatText:   ".txt",
	pipeline.FormatPNG:    ".png",
	pipeline.FormatPDF:    ".pdf",
	pipeline.FormatDOT:    ".dot",
	pipeline.FormatDOTSVG: ".dot.svg",
	pipeline.FormatFolded: ".folded",
}

// renderFlags holds the command-line flags for the render command that are
// not shared with other commands.
type renderFlags struct {
	formats     string
	output      string
	width       float64
	columns     int
	title       string
	interactive bool
	plain       bool
	detailed    bool
	noCache     bool
}

// renderCommand creates the render command for painting a sample file.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		src   sourceFlags
		flags renderFlags
	)

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render a flame graph from a sample file",
		Long: `Render a flame graph from a folded-stack or pprof file.

Folded input has one stack per line, frames separated by ';', followed by the
call count (or key=value IO fields with --kind file-io). pprof input is
detected by extension (.pprof, .pb.gz) or forced with --input-format.

Use "-" to read from standard input. With a single format, -o - writes the
result to standard output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, cfg, err := src.options(cmd, args[0])
			if err != nil {
				return err
			}
			opts.Formats = parseFormats(flags.formats)
			if cmd.Flags().Changed("width") || opts.Width == 0 {
				opts.Width = flags.width
			}
			if cmd.Flags().Changed("columns") || opts.Columns == 0 {
				opts.Columns = flags.columns
			}
			opts.Title = flags.title
			opts.Interactive = flags.interactive
			opts.Plain = flags.plain
			opts.Detailed = flags.detailed
			if err := opts.ValidateAndSetDefaults(); err != nil {
				return err
			}
			runner, err := newRenderRunner(cmd.Context(), flags.noCache, cfg.Cache.Dir)
			if err != nil {
				return err
			}
			defer runner.Close()
			return runRender(cmd.Context(), runner, opts, flags.output)
		},
	}

	src.register(cmd)
	cmd.Flags().StringVarP(&flags.formats, "format", "f", "", "output format(s): "+strings.Join(pipeline.FormatNames(), ", ")+" (comma-separated, default svg)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().Float64Var(&flags.width, "width", pipeline.DefaultWidth, "canvas width in pixels")
	cmd.Flags().IntVar(&flags.columns, "columns", pipeline.DefaultColumns, "text output width in cells")
	cmd.Flags().StringVar(&flags.title, "title", "", "title drawn above the graph")
	cmd.Flags().BoolVar(&flags.interactive, "interactive", true, "embed click-to-highlight script in SVG output")
	cmd.Flags().BoolVar(&flags.plain, "plain", false, "text output without colors")
	cmd.Flags().BoolVar(&flags.detailed, "detailed", false, "include statistic details in DOT node labels")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "always re-render instead of reusing cached results")
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)

	return cmd
}

// runRender executes the pipeline and writes one file per format.
func runRender(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options, output string) error {
	prog := newProgress(loggerFromContext(ctx))
	spinner := newSpinner(ctx, fmt.Sprintf("Rendering %s...", opts.Input))
	spinner.Start()

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Rendering failed")
		return err
	}
	spinner.Stop()

	if output == "-" {
		if len(opts.Formats) != 1 {
			return fmt.Errorf("-o - needs exactly one format, got %d", len(opts.Formats))
		}
		_, err := os.Stdout.Write(result.Artifacts[opts.Formats[0]])
		return err
	}

	base := basePath(output, opts.Input)
	for _, format := range opts.Formats {
		path := outputPath(output, base, format, len(opts.Formats))
		if err := os.WriteFile(path, result.Artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}
	if result.Cached {
		printInfo("Unchanged input, reused cached result")
	} else {
		printStats(result.Stats.Stacks, result.Stats.Boxes, result.Stats.Rows)
		if result.Model.Layout.IsEmpty() {
			printWarning("%s", result.Model.Layout.EmptyText())
		}
	}
	if opts.Input != "-" {
		printNextStep("Explore it interactively", appName+" view "+opts.Input)
	}
	prog.done(fmt.Sprintf("Rendered %d format(s)", len(opts.Formats)))
	return nil
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input.
// If output has a format extension (.svg, .pdf, etc.), it strips that extension.
func basePath(output, input string) string {
	if output == "" {
		if input == "-" || input == "" {
			return appName
		}
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	if strings.HasSuffix(output, formatExt[pipeline.FormatDOTSVG]) {
		return strings.TrimSuffix(output, formatExt[pipeline.FormatDOTSVG])
	}
	ext := filepath.Ext(output)
	for _, known := range formatExt {
		if ext == known {
			return strings.TrimSuffix(output, ext)
		}
	}
	return output
}

// outputPath returns the file for format. A single format honors an explicit
// output path as given.
func outputPath(output, base, format string, formats int) string {
	if formats == 1 && output != "" {
		return output
	}
	return base + formatExt[format]
}
