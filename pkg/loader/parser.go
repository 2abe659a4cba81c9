package loader

import (
	"bytes"
	"context"

	"github.com/xuri/excelize/v2"
)

// Workbook is an opened spreadsheet.
type Workbook interface {
	// SheetNames returns sheet names in file order.
	SheetNames() []string
	// SheetRows returns the cell text of a sheet, row by row.
	SheetRows(sheet string) ([][]string, error)
	Close() error
}

// Parser opens workbook bytes.
type Parser interface {
	Parse(data []byte) (Workbook, error)
}

// ParserProvider supplies the spreadsheet parser. It is consulted once per
// Loader, the first time a workbook is opened.
type ParserProvider interface {
	Parser(ctx context.Context) (Parser, error)
}

// ParserProviderFunc adapts a function to ParserProvider.
type ParserProviderFunc func(ctx context.Context) (Parser, error)

// Parser calls f.
func (f ParserProviderFunc) Parser(ctx context.Context) (Parser, error) { return f(ctx) }

// ExcelizeProvider provides the excelize OOXML parser.
type ExcelizeProvider struct{}

// Parser implements ParserProvider.
func (ExcelizeProvider) Parser(ctx context.Context) (Parser, error) {
	return excelizeParser{}, nil
}

type excelizeParser struct{}

func (excelizeParser) Parse(data []byte) (Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &excelizeWorkbook{f: f}, nil
}

type excelizeWorkbook struct {
	f *excelize.File
}

func (w *excelizeWorkbook) SheetNames() []string { return w.f.GetSheetList() }

func (w *excelizeWorkbook) SheetRows(sheet string) ([][]string, error) {
	return w.f.GetRows(sheet)
}

func (w *excelizeWorkbook) Close() error { return w.f.Close() }
