package diff_test

import (
	"fmt"

	"github.com/matzehuels/boardsync/pkg/diff"
)

func ExampleComputeRecords() {
	original := []diff.Record{
		{"id": "n1", "label": "API"},
		{"id": "n2", "label": "DB"},
	}
	modified := []diff.Record{
		{"id": "n1", "label": "API Gateway"},
		{"id": "n3", "label": "Cache"},
	}

	d := diff.ComputeRecords(original, modified)
	fmt.Println("creates:", d.Creates)
	fmt.Println("updates:", d.Updates)
	fmt.Println("deletes:", d.Deletes)
	// Output:
	// creates: [map[id:n3 label:Cache]]
	// updates: [map[id:n1 label:API Gateway]]
	// deletes: [map[id:n2 label:DB]]
}
