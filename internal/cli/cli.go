package cli

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stackgraph/pkg/buildinfo"
	"github.com/matzehuels/stackgraph/pkg/cache"
	"github.com/matzehuels/stackgraph/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for display.
	appName = "stackgraph"

	// artifactEntries bounds the in-memory artifact cache of long-running
	// commands.
	artifactEntries = 128
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Stackgraph draws flame graphs from call-stack samples",
		Long:         `Stackgraph aggregates resource-usage samples (calls, bytes, profile values) by call stack and lays them out as flame graphs: box width is the accumulated value, box depth the stack position.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner logging to the command's logger.
// One-shot commands pass noCache; long-running commands memoize rendered
// artifacts in memory.
func newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	logger := loggerFromContext(ctx)
	if noCache {
		return pipeline.NewRunner(cache.NewNullCache(), nil, logger), nil
	}
	mem, err := cache.NewMemoryCache("artifact", artifactEntries)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(mem, nil, logger), nil
}

// newRenderRunner creates the runner of the render command. Unless noCache is
// set, results persist in the file cache at dir (default ~/.cache/stackgraph)
// so unchanged inputs are not re-rendered.
func newRenderRunner(ctx context.Context, noCache bool, dir string) (*pipeline.Runner, error) {
	logger := loggerFromContext(ctx)
	runner := pipeline.NewRunner(cache.NewNullCache(), nil, logger)
	if noCache {
		return runner, nil
	}
	files, err := cache.NewFileCache(dir, cache.DefaultFileTTL)
	if err != nil {
		logger.Warn("result cache disabled", "error", err)
		return runner, nil
	}
	runner.Results = files.Namespace("render:")
	return runner, nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	var formats []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			formats = append(formats, f)
		}
	}
	return formats
}
