package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stackgraph/pkg/pipeline"
)

// sampleExtensions are offered when completing a sample file argument.
var sampleExtensions = []string{"folded", "txt", "pprof", "pb.gz", "prof"}

var completionScripts = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash":       func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	"zsh":        func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	"fish":       func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	"powershell": func(root *cobra.Command, w io.Writer) error { return root.GenPowerShellCompletionWithDesc(w) },
}

func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script for stackgraph.

Sample file arguments complete to folded and pprof files; --kind, --scale,
--input-format and --format complete to their accepted values.

  $ source <(stackgraph completion bash)
  $ stackgraph completion zsh > "${fpath[1]}/_stackgraph"
  $ stackgraph completion fish | source
  PS> stackgraph completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, ok := completionScripts[args[0]]
			if !ok {
				return fmt.Errorf("unsupported shell %q", args[0])
			}
			return gen(cmd.Root(), cmd.OutOrStdout())
		},
	}
}

// completeSampleFile completes the single sample file argument.
func completeSampleFile(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return sampleExtensions, cobra.ShellCompDirectiveFilterFileExt
}

// fixedValues completes a flag to a fixed set of words.
func fixedValues(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}

// completeFormats completes the comma-separated --format list, keeping the
// formats already typed as the prefix of each candidate.
func completeFormats(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	prefix := ""
	if i := strings.LastIndex(toComplete, ","); i >= 0 {
		prefix = toComplete[:i+1]
	}
	seen := map[string]bool{}
	if prefix != "" {
		for _, f := range parseFormats(prefix) {
			seen[f] = true
		}
	}
	var out []string
	for _, name := range pipeline.FormatNames() {
		if !seen[name] {
			out = append(out, prefix+name)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}

// registerSourceCompletions wires argument and flag completion for commands
// that read a sample file.
func registerSourceCompletions(cmd *cobra.Command) {
	cmd.ValidArgsFunction = completeSampleFile
	_ = cmd.RegisterFlagCompletionFunc("input-format", fixedValues(pipeline.InputAuto, pipeline.InputFolded, pipeline.InputPprof))
	_ = cmd.RegisterFlagCompletionFunc("kind", fixedValues("count", "socket-io", "file-io"))
	_ = cmd.RegisterFlagCompletionFunc("scale", fixedValues("value", "count", "equal"))
	_ = cmd.RegisterFlagCompletionFunc("config", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"toml"}, cobra.ShellCompDirectiveFilterFileExt
	})
}
