package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/matzehuels/boardsync/pkg/errors"
)

// buildWorkbook writes a workbook with the given sheets (in order) and
// returns its bytes.
func buildWorkbook(t *testing.T, sheets map[string][][]any, order []string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatal(err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatal(err)
		}
		for r, row := range sheets[name] {
			cell, _ := excelize.CoordinatesToCellName(1, r+1)
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				t.Fatal(err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func memFetcher(files map[string][]byte) Fetcher {
	return FetcherFunc(func(ctx context.Context, id string) ([]byte, error) {
		data, ok := files[id]
		if !ok {
			return nil, apperrors.New(apperrors.ErrCodeNotFound, "workbook %s", id)
		}
		return data, nil
	})
}

func TestLoaderWorkbook(t *testing.T) {
	data := buildWorkbook(t, map[string][][]any{
		"Nodes": {
			{"id", "label", "template", "weight", "active"},
			{"n1", "API", "rectangle", 3, true},
			{},
			{"n2", "DB", "circle", 1.5, false},
		},
		"Empty": {},
		"Links": {{"from", "to"}, {"n1", "n2"}},
	}, []string{"Nodes", "Empty", "Links"})

	l := New(memFetcher(map[string][]byte{"org.xlsx": data}))
	defer l.Close()

	if got := l.ListSheets(); len(got) != 0 {
		t.Errorf("ListSheets before load = %v", got)
	}
	if err := l.LoadWorkbook(context.Background(), "org.xlsx"); err != nil {
		t.Fatalf("LoadWorkbook: %v", err)
	}
	if got := l.ListSheets(); !slices.Equal(got, []string{"Nodes", "Empty", "Links"}) {
		t.Errorf("ListSheets = %v, want file order", got)
	}

	rows, err := l.Rows("Nodes")
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 (blank row skipped)", len(rows))
	}
	if rows[0]["id"] != "n1" || rows[0]["label"] != "API" || rows[0]["weight"] != 3.0 || rows[0]["active"] != true {
		t.Errorf("row 0 = %v", rows[0])
	}
	if rows[1]["weight"] != 1.5 || rows[1]["active"] != false {
		t.Errorf("row 1 = %v", rows[1])
	}

	again, _ := l.Rows("Nodes")
	if &again[0] != &rows[0] {
		t.Error("second Rows call should return the cached slice")
	}

	if rows, err := l.Rows("Empty"); err != nil || len(rows) != 0 {
		t.Errorf("Rows(Empty) = %v, %v", rows, err)
	}

	headers, err := l.Headers("Links")
	if err != nil || !slices.Equal(headers, []string{"from", "to"}) {
		t.Errorf("Headers = %v, %v", headers, err)
	}
}

func TestLoaderErrors(t *testing.T) {
	ctx := context.Background()
	data := buildWorkbook(t, map[string][][]any{"Sheet": {{"id"}}}, []string{"Sheet"})
	l := New(memFetcher(map[string][]byte{"ok.xlsx": data, "junk.xlsx": []byte("not a zip")}))

	if _, err := l.Rows("Sheet"); !apperrors.Is(err, apperrors.ErrCodeInvalidInput) {
		t.Errorf("Rows before load = %v, want INVALID_INPUT", err)
	}
	if err := l.LoadWorkbook(ctx, "missing.xlsx"); !apperrors.Is(err, apperrors.ErrCodeNotFound) {
		t.Errorf("missing workbook = %v, want NOT_FOUND", err)
	}
	if err := l.LoadWorkbook(ctx, "junk.xlsx"); !apperrors.Is(err, apperrors.ErrCodeInvalidWorkbook) {
		t.Errorf("junk workbook = %v, want INVALID_WORKBOOK", err)
	}
	if err := l.LoadWorkbook(ctx, "ok.xlsx"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Rows("Nope"); !apperrors.Is(err, apperrors.ErrCodeSheetNotFound) {
		t.Errorf("unknown sheet = %v, want SHEET_NOT_FOUND", err)
	}
}

type countingProvider struct {
	calls int
	err   error
}

func (p *countingProvider) Parser(ctx context.Context) (Parser, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return excelizeParser{}, nil
}

func TestParserProviderLoadedOnce(t *testing.T) {
	ctx := context.Background()
	data := buildWorkbook(t, map[string][][]any{"S": {{"id"}, {"a"}}}, []string{"S"})
	p := &countingProvider{}
	l := New(memFetcher(map[string][]byte{"a": data, "b": data}), WithParserProvider(p))

	for _, id := range []string{"a", "b", "a"} {
		if err := l.LoadWorkbook(ctx, id); err != nil {
			t.Fatalf("LoadWorkbook(%s): %v", id, err)
		}
	}
	if p.calls != 1 {
		t.Errorf("provider called %d times, want 1", p.calls)
	}
	if l.Source() != "a" {
		t.Errorf("Source = %q, want a", l.Source())
	}
}

func TestParserProviderFailureIsFatal(t *testing.T) {
	boom := errors.New("parser unavailable")
	p := &countingProvider{err: boom}
	l := New(memFetcher(map[string][]byte{"a": []byte("x")}), WithParserProvider(p))

	err := l.LoadWorkbook(context.Background(), "a")
	if !apperrors.Is(err, apperrors.ErrCodeLibraryLoad) || !errors.Is(err, boom) {
		t.Fatalf("err = %v, want LIBRARY_LOAD wrapping cause", err)
	}
	if p.calls != 1 {
		t.Errorf("provider called %d times within one call, want 1", p.calls)
	}

	p.err = nil
	if err := l.LoadWorkbook(context.Background(), "a"); apperrors.Is(err, apperrors.ErrCodeLibraryLoad) {
		t.Error("a later call should ask the provider again")
	}
}

// closeTracking opens workbooks that fail reads after Close.
type closeTracking struct{}

func (closeTracking) Parse([]byte) (Workbook, error) { return &trackedWorkbook{}, nil }

var errReadAfterClose = errors.New("read after close")

type trackedWorkbook struct{ closed atomic.Bool }

func (w *trackedWorkbook) SheetNames() []string { return []string{"S"} }

func (w *trackedWorkbook) SheetRows(string) ([][]string, error) {
	if w.closed.Load() {
		return nil, errReadAfterClose
	}
	return [][]string{{"id", "label"}, {"a", "A"}}, nil
}

func (w *trackedWorkbook) Close() error {
	w.closed.Store(true)
	return nil
}

func TestLoaderHeadersDuringClose(t *testing.T) {
	ctx := context.Background()
	provider := ParserProviderFunc(func(context.Context) (Parser, error) { return closeTracking{}, nil })
	l := New(memFetcher(map[string][]byte{"a": nil}), WithParserProvider(provider))

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				headers, err := l.Headers("S")
				if errors.Is(err, errReadAfterClose) {
					t.Errorf("Headers read a closed workbook")
					return
				}
				if err == nil && !slices.Equal(headers, []string{"id", "label"}) {
					t.Errorf("Headers = %v", headers)
					return
				}
			}
		}()
	}
	for range 200 {
		if err := l.LoadWorkbook(ctx, "a"); err != nil {
			t.Fatal(err)
		}
		l.Close()
	}
	wg.Wait()
}

func TestFileFetcher(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "book.xlsx"), []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	confined := FileFetcher{Dir: dir}
	if data, err := confined.FetchFile(ctx, "book.xlsx"); err != nil || string(data) != "data" {
		t.Errorf("FetchFile = %q, %v", data, err)
	}
	if _, err := confined.FetchFile(ctx, "../etc/passwd"); !apperrors.Is(err, apperrors.ErrCodeInvalidInput) {
		t.Errorf("traversal = %v, want INVALID_INPUT", err)
	}
	if _, err := confined.FetchFile(ctx, "nope.xlsx"); !apperrors.Is(err, apperrors.ErrCodeNotFound) {
		t.Errorf("missing = %v, want NOT_FOUND", err)
	}

	if _, err := (FileFetcher{}).FetchFile(ctx, filepath.Join(dir, "book.xlsx")); err != nil {
		t.Errorf("unconfined FetchFile: %v", err)
	}
}
