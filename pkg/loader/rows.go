package loader

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseRows turns raw cell text into headers and rows. The first row with a
// non-blank cell is the header row. Blank headers become "column_N" (N is
// the 1-based column) and repeated headers get a "_2", "_3"... suffix.
// Rows whose cells are all blank are skipped.
func ParseRows(cells [][]string) (headers []string, rows []Row) {
	start := -1
	for i, r := range cells {
		if !blank(r) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, nil
	}

	headers = normalizeHeaders(cells[start])
	for _, r := range cells[start+1:] {
		if blank(r) {
			continue
		}
		row := make(Row, len(headers))
		for i, h := range headers {
			var text string
			if i < len(r) {
				text = r[i]
			}
			row[h] = Coerce(text)
		}
		rows = append(rows, row)
	}
	return headers, rows
}

func blank(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func normalizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		if n := seen[h]; n > 0 {
			seen[h] = n + 1
			h = fmt.Sprintf("%s_%d", h, n+1)
		}
		seen[h]++
		headers[i] = h
	}
	return headers
}

// Coerce converts cell text to a primitive value. Blank text is nil,
// TRUE/FALSE (any case) are booleans and finite decimal numbers are
// float64. Numbers with a leading zero such as "007" stay strings so that
// identifiers survive.
func Coerce(text string) any {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	if leadingZero(s) {
		return s
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) && numeric(s) {
		return f
	}
	return s
}

func leadingZero(s string) bool {
	s = strings.TrimPrefix(s, "-")
	return len(s) > 1 && s[0] == '0' && s[1] != '.'
}

// numeric rejects forms ParseFloat accepts but spreadsheets do not show as
// numbers, such as hex literals and underscores.
func numeric(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c == '.', c == '-', c == '+', c == 'e', c == 'E':
		default:
			return false
		}
	}
	return true
}
