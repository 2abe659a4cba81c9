package diff

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"
)

func ids(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = KeyString(r["id"])
	}
	return out
}

func TestComputeRecords(t *testing.T) {
	tests := []struct {
		name        string
		original    []Record
		modified    []Record
		wantCreates []string
		wantUpdates []string
		wantDeletes []string
	}{
		{
			name: "Empty",
		},
		{
			name:        "AllNew",
			modified:    []Record{{"id": "a"}, {"id": "b"}},
			wantCreates: []string{"a", "b"},
		},
		{
			name:        "AllRemoved",
			original:    []Record{{"id": "a"}, {"id": "b"}},
			wantDeletes: []string{"a", "b"},
		},
		{
			name:     "Unchanged",
			original: []Record{{"id": "a", "label": "A"}},
			modified: []Record{{"id": "a", "label": "A"}},
		},
		{
			name:        "Changed",
			original:    []Record{{"id": "a", "label": "A"}},
			modified:    []Record{{"id": "a", "label": "B"}},
			wantUpdates: []string{"a"},
		},
		{
			name:        "AddedField",
			original:    []Record{{"id": "a"}},
			modified:    []Record{{"id": "a", "label": "A"}},
			wantUpdates: []string{"a"},
		},
		{
			name:     "NumericNormalisation",
			original: []Record{{"id": "a", "size": 1}},
			modified: []Record{{"id": "a", "size": 1.0}},
		},
		{
			name:     "NumericKeys",
			original: []Record{{"id": 7, "label": "x"}},
			modified: []Record{{"id": 7.0, "label": "x"}},
		},
		{
			name:        "OrderFollowsInputs",
			original:    []Record{{"id": "z"}, {"id": "m", "v": 1}, {"id": "y"}},
			modified:    []Record{{"id": "c"}, {"id": "m", "v": 2}, {"id": "b"}},
			wantCreates: []string{"c", "b"},
			wantUpdates: []string{"m"},
			wantDeletes: []string{"z", "y"},
		},
		{
			name:        "KeylessAlwaysCreateOrDelete",
			original:    []Record{{"label": "orphan"}, {"id": "", "label": "blank"}},
			modified:    []Record{{"label": "orphan"}, {"id": nil}},
			wantCreates: []string{"<nil>", "<nil>"},
			wantDeletes: []string{"<nil>", ""},
		},
		{
			name:        "DuplicateKeyFirstPositionLastValue",
			original:    []Record{{"id": "a", "v": 1}},
			modified:    []Record{{"id": "a", "v": 1}, {"id": "b"}, {"id": "a", "v": 2}},
			wantCreates: []string{"b"},
			wantUpdates: []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeRecords(tt.original, tt.modified)
			check(t, "creates", ids(got.Creates), tt.wantCreates)
			check(t, "updates", ids(got.Updates), tt.wantUpdates)
			check(t, "deletes", ids(got.Deletes), tt.wantDeletes)
		})
	}
}

func check(t *testing.T, what string, got, want []string) {
	t.Helper()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !slices.Equal(got, want) {
		t.Errorf("%s = %v, want %v", what, got, want)
	}
}

func TestUpdateCarriesModifiedRecord(t *testing.T) {
	got := ComputeRecords(
		[]Record{{"id": "a", "label": "old", "extra": true}},
		[]Record{{"id": "a", "label": "new"}},
	)
	if len(got.Updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(got.Updates))
	}
	u := got.Updates[0]
	if u["label"] != "new" {
		t.Errorf("label = %v, want new", u["label"])
	}
	if _, ok := u["extra"]; ok {
		t.Error("update should replace the old record, not merge it")
	}
}

func TestComputeDoesNotMutateInputs(t *testing.T) {
	original := []Record{{"id": "a", "v": 1}, {"id": "b"}}
	modified := []Record{{"id": "a", "v": 2}, {"id": "c"}}
	_ = ComputeRecords(original, modified)

	if original[0]["v"] != 1 || len(original) != 2 || modified[0]["v"] != 2 || len(modified) != 2 {
		t.Error("inputs were mutated")
	}
}

// TestPartitionProperty checks that for disjoint id sets A, B, C with
// original = A∪B and modified = B'∪C, creates = C, updates = B' and
// deletes = A.
func TestPartitionProperty(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for iter := range 200 {
		nA, nB, nC := r.IntN(6), r.IntN(6), r.IntN(6)
		var original, modified []Record
		var wantA, wantB, wantC []string

		for i := range nA {
			id := fmt.Sprintf("a%d", i)
			wantA = append(wantA, id)
			original = append(original, Record{"id": id, "v": r.Float64()})
		}
		for i := range nB {
			id := fmt.Sprintf("b%d", i)
			wantB = append(wantB, id)
			original = append(original, Record{"id": id, "v": float64(i)})
			modified = append(modified, Record{"id": id, "v": float64(i) + 0.5})
		}
		for i := range nC {
			id := fmt.Sprintf("c%d", i)
			wantC = append(wantC, id)
			modified = append(modified, Record{"id": id})
		}
		r.Shuffle(len(original), func(i, j int) { original[i], original[j] = original[j], original[i] })
		r.Shuffle(len(modified), func(i, j int) { modified[i], modified[j] = modified[j], modified[i] })

		got := ComputeRecords(original, modified)
		sortedEqual := func(what string, got, want []string) {
			slices.Sort(got)
			if !slices.Equal(got, want) && (len(got) > 0 || len(want) > 0) {
				t.Fatalf("iteration %d: %s = %v, want %v", iter, what, got, want)
			}
		}
		sortedEqual("creates", ids(got.Creates), wantC)
		sortedEqual("updates", ids(got.Updates), wantB)
		sortedEqual("deletes", ids(got.Deletes), wantA)
	}
}

func TestIdempotence(t *testing.T) {
	original := []Record{{"id": "a", "v": 1}, {"id": "b", "v": 2}}
	modified := []Record{{"id": "a", "v": 1}, {"id": "b", "v": 3}, {"id": "c"}}

	if first := ComputeRecords(original, modified); first.Empty() {
		t.Fatal("first diff should not be empty")
	}
	if second := ComputeRecords(modified, modified); !second.Empty() {
		t.Errorf("second diff = %+v, want empty", second)
	}
}

func TestComputeGeneric(t *testing.T) {
	type shape struct {
		Key   string
		Color string
	}
	key := func(s shape) (string, bool) { return s.Key, s.Key != "" }
	equal := func(a, b shape) bool { return a == b }

	got := Compute(
		[]shape{{"a", "red"}, {"b", "blue"}},
		[]shape{{"a", "green"}, {"c", "red"}},
		key, equal,
	)
	if got.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", got.Len())
	}
	if got.Creates[0].Key != "c" || got.Updates[0].Color != "green" || got.Deletes[0].Key != "b" {
		t.Errorf("Compute = %+v", got)
	}
}
