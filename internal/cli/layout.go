package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/boardsync/pkg/graph"
	"github.com/matzehuels/boardsync/pkg/layout"
	"github.com/matzehuels/boardsync/pkg/loader"
)

// layoutFlags are the layout options shared by `layout` and `sync`.
type layoutFlags struct {
	opts    layout.Options
	graph   loader.RowGraphOptions
	sheet   string
	noCache bool
}

func (f *layoutFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.opts.Algorithm, "algorithm", "", "layout algorithm: "+strings.Join(layout.Algorithms(), ", "))
	fl.StringVar(&f.opts.NestedAlgorithm, "nested", "", "algorithm inside compound nodes: "+strings.Join(layout.NestedAlgorithms(), ", "))
	fl.StringVar(&f.opts.Direction, "direction", "", "rank direction for layered layouts: TB, BT, LR, RL")
	fl.Float64Var(&f.opts.NodeSep, "node-sep", 0, "space between nodes (board units)")
	fl.Float64Var(&f.opts.RankSep, "rank-sep", 0, "space between ranks (board units)")
	fl.BoolVar(&f.opts.Refresh, "refresh", false, "ignore cached layouts")
	fl.BoolVar(&f.noCache, "no-cache", false, "disable caching")

	fl.StringVar(&f.sheet, "sheet", "", "workbook sheet (prompted when omitted)")
	fl.StringVar(&f.graph.IDColumn, "id-column", "", "column holding the row id")
	fl.StringVar(&f.graph.LabelColumn, "label-column", "", "column holding the shape label")
	fl.StringVar(&f.graph.TypeColumn, "type-column", "", "column naming the shape template")
	fl.StringVar(&f.graph.ParentColumn, "parent-column", "", "column holding the id of the enclosing node")
	fl.StringVar(&f.graph.LinksColumn, "links-column", "", "column listing the ids a row connects to")
}

// resolve fills unset options from the configuration.
func (f *layoutFlags) resolve(c *CLI) (layout.Options, loader.RowGraphOptions) {
	opts := f.opts
	def := c.Config.LayoutOptions()
	if opts.Algorithm == "" {
		opts.Algorithm = def.Algorithm
	}
	if opts.NestedAlgorithm == "" {
		opts.NestedAlgorithm = def.NestedAlgorithm
	}
	if opts.Direction == "" {
		opts.Direction = def.Direction
	}

	g := f.graph
	if g.IDColumn == "" {
		g.IDColumn = c.Config.Sync.IDColumn
	}
	if g.LabelColumn == "" {
		g.LabelColumn = c.Config.Sync.LabelColumn
	}
	if g.TypeColumn == "" {
		g.TypeColumn = c.Config.Sync.TemplateColumn
	}
	return opts, g
}

// layoutCommand creates the layout command.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		flags  layoutFlags
		output string
		dot    bool
	)

	cmd := &cobra.Command{
		Use:   "layout <graph.json|workbook.xlsx>",
		Short: "Compute node positions for a graph",
		Long: `Compute node positions for a graph with Graphviz.

The input is a {nodes, edges} JSON graph or a workbook whose rows become nodes
(--links-column draws edges, --parent-column nests nodes). The result is a
layout.json file with board-unit rectangles per node, which 'boardsync sync
--layout' can reuse.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, rowOpts := flags.resolve(c)
			return c.runLayout(cmd.Context(), args[0], flags.sheet, opts, rowOpts, flags.noCache, output, dot)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().BoolVar(&dot, "dot", false, "print the generated DOT source instead of running Graphviz")

	return cmd
}

// runLayout loads the graph, computes the layout, and writes output.
func (c *CLI) runLayout(ctx context.Context, input, sheet string, opts layout.Options, rowOpts loader.RowGraphOptions, noCache bool, output string, dot bool) error {
	g, err := c.readGraph(ctx, input, sheet, rowOpts)
	if err != nil {
		return fmt.Errorf("load graph %s: %w", input, err)
	}
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return err
	}

	if dot {
		_, err := os.Stdout.Write(layout.ToDOT(g, opts, opts.Program()))
		return err
	}

	ch, err := c.newCache(noCache)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer ch.Close()
	engine := c.newEngine(ch)
	defer engine.Close()

	result, err := c.computeLayout(ctx, engine, g, opts)
	if err != nil {
		return err
	}

	outputPath := output
	if outputPath == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		outputPath = base + ".layout.json"
	}
	if err := graph.WriteLayoutFile(result, outputPath); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(len(g.Nodes), len(g.Edges), result.Width, result.Height)
	printNewline()
	printNextStep("Sync", "boardsync sync "+input+" --layout "+outputPath)
	return nil
}

// computeLayout runs the engine behind a spinner.
func (c *CLI) computeLayout(ctx context.Context, engine *layout.Engine, g graph.Graph, opts layout.Options) (graph.LayoutResult, error) {
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Computing %s layout...", opts.Algorithm))
	spinner.Start()

	result, err := engine.Layout(ctx, g, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return graph.LayoutResult{}, fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()
	return result, ctx.Err()
}
