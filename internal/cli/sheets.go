package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// sheetsCommand creates the sheets command for inspecting workbooks.
func (c *CLI) sheetsCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "sheets <workbook.xlsx|drive:ITEM_ID> [sheet]",
		Short: "List workbook sheets or print the rows of one",
		Long: `List the sheets of a workbook with their row counts and columns.

With a sheet name the parsed rows are printed instead; --json prints them in
the format POST /api/boards/{boardId}/sync accepts as "rows".`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 {
				return c.runSheetRows(cmd.Context(), cmd.OutOrStdout(), args[0], args[1], asJSON)
			}
			return c.runSheets(cmd.Context(), args[0])
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print rows as JSON")

	return cmd
}

func (c *CLI) runSheets(ctx context.Context, source string) error {
	l, err := c.openWorkbook(ctx, source)
	if err != nil {
		return err
	}
	defer l.Close()

	infos := sheetInfos(l)
	printSuccess("%s", l.Source())
	for _, s := range infos {
		if s.Err != nil {
			printKeyValue(s.Name, StyleWarning.Render(s.Err.Error()))
			continue
		}
		printKeyValue(s.Name, fmt.Sprintf("%s rows · %s", StyleNumber.Render(strconv.Itoa(s.Rows)), formatColumns(s.Columns, 6)))
	}
	return nil
}

func (c *CLI) runSheetRows(ctx context.Context, w io.Writer, source, sheet string, asJSON bool) error {
	rows, _, err := c.readRows(ctx, source, sheet)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"rows": rows})
	}
	for i, r := range rows {
		fmt.Fprintf(w, "%4d  %v\n", i+1, r)
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, StyleDim.Render("(no rows)"))
	}
	return nil
}
