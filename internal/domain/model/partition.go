package model

// Partition is the slice of the working set one report column is computed
// from: "all" or a single boss.
type Partition struct {
	Key string
	// Leaders are the partition's leader rows in finish order.
	Leaders []*Record
	// Records are all admitted rows of the partition in input order.
	Records []*Record
}
