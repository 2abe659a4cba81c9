package diff

import (
	"fmt"
	"reflect"
	"strconv"
)

// IDField is the key column used by [ComputeRecords].
const IDField = "id"

// Record is a flat keyed record: a workbook row or a widget snapshot.
type Record = map[string]any

// Result is the classification of records.
type Result = Changes[Record]

// ComputeRecords classifies records keyed by their "id" field. Records are
// compared structurally with numeric values normalised, so 1 and 1.0 are
// equal.
func ComputeRecords(original, modified []Record) Result {
	return Compute(original, modified, RecordKey(IDField), RecordsEqual)
}

// RecordKey returns a KeyFunc reading the given field. Missing, nil and
// empty-string values are keyless. Non-string keys are formatted, so a
// numeric id 7 and the string "7" match.
func RecordKey(field string) KeyFunc[Record] {
	return func(r Record) (string, bool) {
		v, ok := r[field]
		if !ok || v == nil {
			return "", false
		}
		k := KeyString(v)
		return k, k != ""
	}
}

// KeyString formats a key value.
func KeyString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	default:
		if f, ok := toFloat(v); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return fmt.Sprint(v)
	}
}

// RecordsEqual reports whether a and b hold the same fields and values.
func RecordsEqual(a, b Record) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !valuesEqual(av, bv) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return 0, false
}
