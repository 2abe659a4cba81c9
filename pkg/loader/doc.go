// Package loader reads tabular data and JSON graphs into the row and graph
// models used by layout and sync.
//
// # Workbooks
//
// A [Loader] fetches an OOXML workbook through an injected [Fetcher] and
// parses it with a spreadsheet parser obtained lazily from a
// [ParserProvider]. The parser is requested the first time a workbook is
// loaded and kept for the Loader's lifetime; if the provider fails the load
// returns a LIBRARY_LOAD error and nothing is retried within that call.
//
//	l := loader.New(loader.FileFetcher{})
//	if err := l.LoadWorkbook(ctx, "org.xlsx"); err != nil {
//	    return err
//	}
//	for _, sheet := range l.ListSheets() {
//	    rows, _ := l.Rows(sheet)
//	    fmt.Println(sheet, len(rows))
//	}
//
// Sheets are parsed on the first call to [Loader.Rows] and cached. The first
// non-empty row is the header; every following non-empty row becomes a [Row]
// keyed by header name. Cell text is coerced to float64 or bool when it
// parses as one; empty cells are nil.
//
// # Fetchers
//
//   - [FileFetcher]: local files, optionally confined to a directory
//   - [HTTPFetcher]: Microsoft Graph drive items, retried on 429 and 5xx
//
// # JSON Graphs
//
// [LoadGraph] and [LoadGraphFile] accept {nodes, edges} documents and fail
// with INVALID_GRAPH when an edge endpoint does not resolve. [GraphFromRows]
// builds the same model from workbook rows.
package loader
