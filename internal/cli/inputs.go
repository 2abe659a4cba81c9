package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/matzehuels/boardsync/pkg/auth"
	apperrors "github.com/matzehuels/boardsync/pkg/errors"
	"github.com/matzehuels/boardsync/pkg/graph"
	"github.com/matzehuels/boardsync/pkg/loader"
)

// drivePrefix marks a workbook argument as a Microsoft Graph drive item id.
const drivePrefix = "drive:"

// isGraphFile reports whether path names a JSON graph rather than a workbook.
func isGraphFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// openWorkbook loads a local workbook, or a drive item when source starts
// with "drive:". The caller closes the loader.
func (c *CLI) openWorkbook(ctx context.Context, source string) (*loader.Loader, error) {
	var (
		fetcher loader.Fetcher = loader.FileFetcher{}
		id                     = source
	)
	if rest, ok := strings.CutPrefix(source, drivePrefix); ok {
		if c.Config.Graph.AccessToken == "" {
			return nil, apperrors.New(apperrors.ErrCodeUnauthorized, "drive items need a Microsoft Graph token (BOARDSYNC_GRAPH_TOKEN)")
		}
		opts := []loader.FetcherOption{loader.WithRetry(c.Config.Sync.Attempts, c.Config.Sync.BaseDelay)}
		if c.Config.Graph.BaseURL != "" {
			opts = append(opts, loader.WithBaseURL(c.Config.Graph.BaseURL))
		}
		fetcher = loader.NewHTTPFetcher(auth.StaticTokenSource(c.Config.Graph.AccessToken), opts...)
		id = rest
	}

	l := loader.New(fetcher, loader.WithLogger(c.Logger))
	if err := l.LoadWorkbook(ctx, id); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

// chooseSheet resolves the sheet to read. An explicit name wins; a workbook
// with one sheet needs none; otherwise an interactive terminal gets a picker.
func (c *CLI) chooseSheet(l *loader.Loader, name string) (string, error) {
	sheets := l.ListSheets()
	switch {
	case name != "":
		return name, apperrors.ValidateSheetName(name)
	case len(sheets) == 1:
		return sheets[0], nil
	case len(sheets) == 0:
		return "", apperrors.New(apperrors.ErrCodeInvalidWorkbook, "%s has no sheets", l.Source())
	case !isatty.IsTerminal(os.Stdin.Fd()):
		return "", apperrors.New(apperrors.ErrCodeInvalidInput,
			"%s has %d sheets, choose one with --sheet (%s)", l.Source(), len(sheets), strings.Join(sheets, ", "))
	}

	model, err := tea.NewProgram(NewSheetListModel(sheetInfos(l))).Run()
	if err != nil {
		return "", fmt.Errorf("sheet picker: %w", err)
	}
	picked := model.(SheetListModel).Selected
	if picked == nil {
		return "", apperrors.New(apperrors.ErrCodeInvalidInput, "no sheet selected")
	}
	return picked.Name, nil
}

// readRows opens source and returns the rows of the chosen sheet.
func (c *CLI) readRows(ctx context.Context, source, sheet string) ([]loader.Row, string, error) {
	l, err := c.openWorkbook(ctx, source)
	if err != nil {
		return nil, "", err
	}
	defer l.Close()

	name, err := c.chooseSheet(l, sheet)
	if err != nil {
		return nil, "", err
	}
	rows, err := l.Rows(name)
	return rows, name, err
}

// readGraph loads a JSON graph, or builds one from workbook rows.
func (c *CLI) readGraph(ctx context.Context, source, sheet string, opts loader.RowGraphOptions) (graph.Graph, error) {
	if isGraphFile(source) {
		return loader.LoadGraphFile(source)
	}
	rows, _, err := c.readRows(ctx, source, sheet)
	if err != nil {
		return graph.Graph{}, err
	}
	return loader.GraphFromRows(rows, opts)
}
