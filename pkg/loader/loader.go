package loader

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	apperrors "github.com/matzehuels/boardsync/pkg/errors"
)

// Row maps a column name to a cell value: string, float64, bool or nil.
type Row = map[string]any

// Fetcher retrieves the raw bytes of a workbook by id.
type Fetcher interface {
	FetchFile(ctx context.Context, id string) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, id string) ([]byte, error)

// FetchFile calls f.
func (f FetcherFunc) FetchFile(ctx context.Context, id string) ([]byte, error) { return f(ctx, id) }

// Loader holds one workbook at a time. It is safe for concurrent use.
type Loader struct {
	fetcher  Fetcher
	provider ParserProvider
	logger   *log.Logger

	mu     sync.Mutex
	parser Parser
	wb     Workbook
	source string
	sheets []string
	rows   map[string][]Row
}

// Option configures a Loader.
type Option func(*Loader)

// WithParserProvider replaces the default excelize provider.
func WithParserProvider(p ParserProvider) Option {
	return func(l *Loader) { l.provider = p }
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(logger *log.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// New creates a Loader reading workbooks through fetcher.
func New(fetcher Fetcher, opts ...Option) *Loader {
	l := &Loader{fetcher: fetcher, provider: ExcelizeProvider{}}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return l
}

// LoadWorkbook fetches and opens the workbook identified by id, replacing
// any previously loaded workbook. Sheet contents are not parsed yet.
func (l *Loader) LoadWorkbook(ctx context.Context, id string) error {
	data, err := l.fetcher.FetchFile(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch workbook %s: %w", id, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	parser, err := l.parserLocked(ctx)
	if err != nil {
		return err
	}
	wb, err := parser.Parse(data)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidWorkbook, err, "open workbook %s", id)
	}

	if l.wb != nil {
		_ = l.wb.Close()
	}
	l.wb = wb
	l.source = id
	l.sheets = wb.SheetNames()
	l.rows = make(map[string][]Row, len(l.sheets))
	l.logger.Debug("loaded workbook", "source", id, "bytes", len(data), "sheets", len(l.sheets))
	return nil
}

// parserLocked returns the cached parser, requesting it from the provider on
// first use. Failures are not cached.
func (l *Loader) parserLocked(ctx context.Context) (Parser, error) {
	if l.parser != nil {
		return l.parser, nil
	}
	p, err := l.provider.Parser(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeLibraryLoad, err, "load spreadsheet parser")
	}
	l.parser = p
	return p, nil
}

// Source returns the id of the loaded workbook.
func (l *Loader) Source() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.source
}

// ListSheets returns sheet names in file order. It is empty until a
// workbook has been loaded.
func (l *Loader) ListSheets() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.sheets)
}

// Rows returns the data rows of sheet, parsing the sheet on first access.
// The returned slice is shared with the cache and must not be modified.
func (l *Loader) Rows(sheet string) ([]Row, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.wb == nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "no workbook loaded")
	}
	if rows, ok := l.rows[sheet]; ok {
		return rows, nil
	}
	if !slices.Contains(l.sheets, sheet) {
		return nil, apperrors.New(apperrors.ErrCodeSheetNotFound, "sheet %q not found in %s", sheet, l.source)
	}

	cells, err := l.wb.SheetRows(sheet)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidWorkbook, err, "read sheet %q", sheet)
	}
	_, rows := ParseRows(cells)
	l.rows[sheet] = rows
	l.logger.Debug("parsed sheet", "sheet", sheet, "rows", len(rows))
	return rows, nil
}

// Headers returns the column names of sheet in column order.
func (l *Loader) Headers(sheet string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.wb == nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "no workbook loaded")
	}
	if !slices.Contains(l.sheets, sheet) {
		return nil, apperrors.New(apperrors.ErrCodeSheetNotFound, "sheet %q not found", sheet)
	}
	cells, err := l.wb.SheetRows(sheet)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidWorkbook, err, "read sheet %q", sheet)
	}
	headers, _ := ParseRows(cells)
	return headers, nil
}

// Close releases the loaded workbook.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.wb == nil {
		return nil
	}
	err := l.wb.Close()
	l.wb, l.sheets, l.rows = nil, nil, nil
	return err
}
