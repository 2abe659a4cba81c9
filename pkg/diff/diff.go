// Package diff classifies keyed records into creates, updates and deletes.
//
// The engine is pure: it never mutates its inputs and has no side effects.
// [Compute] works on any record type given a key function and an equality
// function; [ComputeRecords] is the instantiation used for workbook rows and
// board snapshots.
//
// Classification rules:
//
//   - key only in modified: create
//   - key in both, records differ: update (the modified record wins)
//   - key in both, records equal: omitted
//   - key only in original: delete
//
// A record without a key never matches anything, so a keyless modified record
// is always a create and a keyless original record is always a delete. When a
// key repeats within one input, the key keeps its first position and its last
// value.
package diff

// Changes is the classification produced by [Compute]. Creates and Updates
// follow the order of the modified input; Deletes follow the original input.
// No record appears in more than one slice.
type Changes[T any] struct {
	Creates []T `json:"creates"`
	Updates []T `json:"updates"`
	Deletes []T `json:"deletes"`
}

// Empty reports whether there is nothing to apply.
func (c Changes[T]) Empty() bool {
	return len(c.Creates) == 0 && len(c.Updates) == 0 && len(c.Deletes) == 0
}

// Len returns the total number of classified records.
func (c Changes[T]) Len() int {
	return len(c.Creates) + len(c.Updates) + len(c.Deletes)
}

// KeyFunc extracts a record's key. ok is false for keyless records.
type KeyFunc[T any] func(T) (key string, ok bool)

// EqualFunc reports whether two records with the same key are identical.
type EqualFunc[T any] func(a, b T) bool

// Compute classifies modified against original.
func Compute[T any](original, modified []T, key KeyFunc[T], equal EqualFunc[T]) Changes[T] {
	orig := index(original, key)
	mod := index(modified, key)

	var out Changes[T]
	for _, e := range mod.entries {
		if !e.keyed {
			out.Creates = append(out.Creates, e.value)
			continue
		}
		prev, ok := orig.lookup[e.key]
		switch {
		case !ok:
			out.Creates = append(out.Creates, e.value)
		case !equal(orig.entries[prev].value, e.value):
			out.Updates = append(out.Updates, e.value)
		}
	}
	for _, e := range orig.entries {
		if !e.keyed {
			out.Deletes = append(out.Deletes, e.value)
			continue
		}
		if _, ok := mod.lookup[e.key]; !ok {
			out.Deletes = append(out.Deletes, e.value)
		}
	}
	return out
}

type entry[T any] struct {
	key   string
	keyed bool
	value T
}

type indexed[T any] struct {
	entries []entry[T]
	lookup  map[string]int
}

// index collapses repeated keys: first position, last value.
func index[T any](records []T, key KeyFunc[T]) indexed[T] {
	ix := indexed[T]{lookup: make(map[string]int, len(records))}
	for _, r := range records {
		k, ok := key(r)
		if ok && k == "" {
			ok = false
		}
		if ok {
			if i, dup := ix.lookup[k]; dup {
				ix.entries[i].value = r
				continue
			}
			ix.lookup[k] = len(ix.entries)
		}
		ix.entries = append(ix.entries, entry[T]{key: k, keyed: ok, value: r})
	}
	return ix
}
