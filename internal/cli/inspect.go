package cli

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stackgraph/pkg/cache"
	"github.com/matzehuels/stackgraph/pkg/pipeline"
	"github.com/matzehuels/stackgraph/pkg/stats"
	"github.com/matzehuels/stackgraph/pkg/trie"
)

// defaultTop is the number of rows the inspect table shows.
const defaultTop = 20

// hotspot is one row of the inspect table.
type hotspot struct {
	node  *trie.Node
	total float64
	self  float64
}

// inspectCommand creates the inspect command, which summarizes a sample file
// without painting it.
func (c *CLI) inspectCommand() *cobra.Command {
	var (
		src    sourceFlags
		top    int
		bySelf bool
	)

	cmd := &cobra.Command{
		Use:   "inspect [file]",
		Short: "Summarize a sample file and list its hottest frames",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, _, err := src.options(cmd, args[0])
			if err != nil {
				return err
			}
			opts.Formats = []string{pipeline.FormatJSON}
			if err := opts.ValidateAndSetDefaults(); err != nil {
				return err
			}
			return c.runInspect(cmd.Context(), opts, top, bySelf)
		},
	}

	src.register(cmd)
	cmd.Flags().IntVarP(&top, "top", "n", defaultTop, "number of frames to list")
	cmd.Flags().BoolVar(&bySelf, "self", false, "rank by self value instead of total")

	return cmd
}

// runInspect loads the file, builds the model and prints the summary table.
func (c *CLI) runInspect(ctx context.Context, opts pipeline.Options, top int, bySelf bool) error {
	runner, err := newRunner(ctx, true)
	if err != nil {
		return err
	}
	defer runner.Close()

	snap, err := runner.Load(ctx, opts)
	if err != nil {
		return err
	}
	display, err := opts.Display(snap.Descriptor())
	if err != nil {
		return err
	}
	filter, err := opts.FilterConfig()
	if err != nil {
		return err
	}
	m, err := runner.Build(ctx, snap, display, filter)
	if err != nil {
		return err
	}

	desc := snap.Descriptor()
	fmt.Println(StyleTitle.Render(opts.Input))
	printKeyValue("Kind", desc.Name())
	printKeyValue("Mode", string(display.Mode))
	printKeyValue("Summary", snap.Summary())
	printKeyValue("Stacks", strconv.Itoa(snap.Len()))
	printKeyValue("Nodes", strconv.Itoa(m.Root.Size()-1))
	printKeyValue("Depth", strconv.Itoa(m.Root.Height()))
	fmt.Println()

	if m.Layout.IsEmpty() {
		printWarning("%s", m.Layout.EmptyText())
		return nil
	}
	fmt.Println(hotspotTable(m, hotspots(m, top, bySelf)))
	return nil
}

// hotspots returns the top nodes of m ranked by total or self value. Ties
// keep trie order.
func hotspots(m *cache.Model, top int, bySelf bool) []hotspot {
	mode := m.Options.Mode
	var spots []hotspot
	m.Root.Walk(func(n *trie.Node) bool {
		if n.IsRoot() {
			return true
		}
		total := n.Value(mode)
		self := total
		for _, ch := range n.Children() {
			self -= ch.Value(mode)
		}
		spots = append(spots, hotspot{node: n, total: total, self: self})
		return true
	})

	key := func(h hotspot) float64 { return h.total }
	if bySelf {
		key = func(h hotspot) float64 { return h.self }
	}
	slices.SortStableFunc(spots, func(a, b hotspot) int { return cmp.Compare(key(b), key(a)) })
	if top > 0 && len(spots) > top {
		spots = spots[:top]
	}
	return spots
}

func hotspotTable(m *cache.Model, spots []hotspot) string {
	desc, mode, total := m.Layout.Descriptor, m.Options.Mode, m.Total()
	rows := make([][]string, 0, len(spots))
	for i, h := range spots {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			h.node.Frame().Label(),
			strconv.Itoa(h.node.Depth()),
			stats.FormatValue(desc, mode, h.total),
			stats.FormatValue(desc, mode, h.self),
			fmt.Sprintf("%.1f%%", 100*h.total/total),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("#", "Frame", "Depth", "Total", "Self", "Share").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 1:
				return lipgloss.NewStyle().Foreground(colorWhite)
			case col >= 3:
				return StyleNumber
			}
			return lipgloss.NewStyle().Foreground(colorDim)
		}).
		Render()
}
