package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/boardsync/pkg/boardsync"
	"github.com/matzehuels/boardsync/pkg/cache"
	"github.com/matzehuels/boardsync/pkg/diff"
	"github.com/matzehuels/boardsync/pkg/loader"
)

// diffCommand creates the diff command.
func (c *CLI) diffCommand() *cobra.Command {
	var (
		sheet    string
		idColumn string
		boardID  string
	)

	cmd := &cobra.Command{
		Use:   "diff <old.xlsx> <new.xlsx> | diff <new.xlsx> --board ID",
		Short: "Show which rows would be created, updated or deleted",
		Long: `Compare the rows of two workbooks by their id column.

With --board the rows are compared against the snapshot of the last sync to
that board instead, which previews what 'boardsync sync' would change.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if idColumn == "" {
				idColumn = c.Config.Sync.IDColumn
			}
			if len(args) == 2 {
				return c.runDiffFiles(cmd.Context(), args[0], args[1], sheet, idColumn)
			}
			return c.runDiffBoard(cmd.Context(), args[0], sheet, idColumn, boardID)
		},
	}

	cmd.Flags().StringVar(&sheet, "sheet", "", "workbook sheet (prompted when omitted)")
	cmd.Flags().StringVar(&idColumn, "id-column", "", "column holding the row id")
	cmd.Flags().StringVar(&boardID, "board", "", "compare against the last sync to this board")

	return cmd
}

func (c *CLI) runDiffFiles(ctx context.Context, oldPath, newPath, sheet, idColumn string) error {
	before, name, err := c.readRows(ctx, oldPath, sheet)
	if err != nil {
		return fmt.Errorf("read %s: %w", oldPath, err)
	}
	after, _, err := c.readRows(ctx, newPath, name)
	if err != nil {
		return fmt.Errorf("read %s: %w", newPath, err)
	}
	printInfo("%s → %s (%s)", oldPath, newPath, name)
	printChanges(diffRows(before, after, idColumn), idColumn)
	return nil
}

func (c *CLI) runDiffBoard(ctx context.Context, source, sheet, idColumn, flag string) error {
	boardID, err := c.boardID(flag)
	if err != nil {
		return err
	}
	rows, name, err := c.readRows(ctx, source, sheet)
	if err != nil {
		return err
	}

	ch, err := c.newCache(false)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer ch.Close()
	st, ok, err := boardsync.LoadState(ctx, ch, boardsync.StateKey(cache.NewDefaultKeyer(), boardID))
	if err != nil {
		return err
	}
	if !ok {
		printInfo("No previous sync to %s, every row is new", boardID)
	}

	applied := make([]loader.Row, 0, len(st.Shapes))
	for _, s := range st.Shapes {
		if s.Record != nil {
			applied = append(applied, s.Record)
		}
	}
	printInfo("%s (%s) → board %s", source, name, boardID)
	printChanges(diffRows(applied, rows, idColumn), idColumn)
	return nil
}

// diffRows classifies rows by idColumn. Rows without an id never match, so
// they always show up as creates or deletes.
func diffRows(before, after []loader.Row, idColumn string) diff.Result {
	return diff.Compute(before, after, diff.RecordKey(idColumn), diff.RecordsEqual)
}
