package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/boardsync/pkg/boardsync"
	"github.com/matzehuels/boardsync/pkg/cache"
	"github.com/matzehuels/boardsync/pkg/graph"
	"github.com/matzehuels/boardsync/pkg/miro"
)

// syncOptions are the flags of the sync command.
type syncOptions struct {
	layoutFlags
	board      string
	layoutFile string
	arrange    bool
	reset      bool
	columns    boardsync.Columns
}

// syncCommand creates the sync command.
func (c *CLI) syncCommand() *cobra.Command {
	var o syncOptions

	cmd := &cobra.Command{
		Use:   "sync <workbook.xlsx|drive:ITEM_ID|graph.json>",
		Short: "Make a Miro board match a workbook or graph",
		Long: `Make a Miro board match a workbook sheet or a JSON graph.

Every row (or node) becomes one shape keyed by its id. The run is diffed
against the snapshot of the previous sync to the same board, so only new,
changed and removed rows touch the board. Snapshots are kept in the local
cache (see 'boardsync cache path').

Graphs are laid out with Graphviz before syncing. Workbook rows are placed on
a grid unless --arrange lays them out as a graph (using --links-column and
--parent-column) or --layout supplies positions from 'boardsync layout'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSync(cmd.Context(), args[0], o)
		},
	}

	o.register(cmd)
	fl := cmd.Flags()
	fl.StringVar(&o.board, "board", "", "target board id (default: MIRO_BOARD_ID)")
	fl.StringVar(&o.layoutFile, "layout", "", "layout.json with node positions")
	fl.BoolVar(&o.arrange, "arrange", false, "lay workbook rows out as a graph before syncing")
	fl.BoolVar(&o.reset, "reset", false, "forget the previous snapshot and create every row again")
	fl.StringVar(&o.columns.TemplateColumn, "template-column", "", "column naming the shape template")
	fl.StringVar(&o.columns.DefaultTemplate, "default-template", "", "template for rows without one")

	return cmd
}

func (c *CLI) runSync(ctx context.Context, source string, o syncOptions) error {
	boardID, err := c.boardID(o.board)
	if err != nil {
		return err
	}
	opts, rowOpts := o.resolve(c)
	cols := c.syncColumns(o)

	ch, err := c.newCache(o.noCache)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer ch.Close()
	key := boardsync.StateKey(cache.NewDefaultKeyer(), boardID)

	client, err := c.miroClient(ctx)
	if err != nil {
		return err
	}
	svcOpts := []boardsync.Option{
		boardsync.WithRetry(c.Config.Sync.Attempts, c.Config.Sync.BaseDelay),
		boardsync.WithTemplates(c.Config.Sync.Templates),
		boardsync.WithLogger(c.Logger.With("board", boardID)),
	}
	if !o.reset {
		st, ok, err := boardsync.LoadState(ctx, ch, key)
		if err != nil {
			c.Logger.Warn("ignoring previous snapshot", "err", err)
		}
		if ok {
			svcOpts = append(svcOpts, boardsync.WithState(st))
		}
	}
	svc := boardsync.NewService(miro.NewBoard(client, boardID), svcOpts...)

	var given *graph.LayoutResult
	if o.layoutFile != "" {
		result, err := graph.ReadLayoutFile(o.layoutFile)
		if err != nil {
			return fmt.Errorf("read layout %s: %w", o.layoutFile, err)
		}
		given = &result
	}

	prog := newProgress(c.Logger)
	var rep *boardsync.Report
	if isGraphFile(source) || o.arrange {
		g, err := c.readGraph(ctx, source, o.sheet, rowOpts)
		if err != nil {
			return fmt.Errorf("load graph %s: %w", source, err)
		}
		result := graph.LayoutResult{}
		if given != nil {
			result = *given
		} else {
			engine := c.newEngine(ch)
			defer engine.Close()
			if result, err = c.computeLayout(ctx, engine, g, opts); err != nil {
				return err
			}
		}
		rep, err = c.withSpinner(ctx, "Syncing to board "+boardID+"...", func() (*boardsync.Report, error) {
			return svc.ApplyGraph(ctx, g, result)
		})
		if err != nil {
			return err
		}
	} else {
		rows, sheet, err := c.readRows(ctx, source, o.sheet)
		if err != nil {
			return err
		}
		c.Logger.Debug("rows loaded", "sheet", sheet, "rows", len(rows))
		cols.Layout = given
		rep, err = c.withSpinner(ctx, "Syncing to board "+boardID+"...", func() (*boardsync.Report, error) {
			return svc.UpdateShapesFromExcel(ctx, rows, cols)
		})
		if err != nil {
			return err
		}
	}
	prog.done("sync finished", "board", boardID, "applied", rep.Applied())

	if err := boardsync.SaveState(ctx, ch, key, svc.State()); err != nil {
		c.Logger.Warn("snapshot not saved, the next sync will recreate every row", "err", err)
	}

	printReport(rep)
	if !rep.OK() {
		return fmt.Errorf("%d rows failed", rep.Failed())
	}
	return nil
}

// syncColumns merges the column flags over the configured mapping.
func (c *CLI) syncColumns(o syncOptions) boardsync.Columns {
	cols := c.Config.Columns()
	if o.graph.IDColumn != "" {
		cols.IDColumn = o.graph.IDColumn
	}
	if o.graph.LabelColumn != "" {
		cols.LabelColumn = o.graph.LabelColumn
	}
	if o.columns.TemplateColumn != "" {
		cols.TemplateColumn = o.columns.TemplateColumn
	}
	if o.columns.DefaultTemplate != "" {
		cols.DefaultTemplate = o.columns.DefaultTemplate
	}
	return cols
}

// withSpinner runs fn behind a spinner. An aborted sync keeps its report.
func (c *CLI) withSpinner(ctx context.Context, msg string, fn func() (*boardsync.Report, error)) (*boardsync.Report, error) {
	spinner := newSpinnerWithContext(ctx, msg)
	spinner.Start()
	rep, err := fn()
	if err != nil {
		spinner.StopWithError("Sync aborted")
		if rep != nil {
			printReport(rep)
		}
		return nil, err
	}
	spinner.Stop()
	return rep, nil
}
