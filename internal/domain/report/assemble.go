package report

import "fmt"

// Section is the entry one metric produced for a partition.
type Section struct {
	Metric string
	Entry  Entry
}

// Partial is every section computed for one partition.
type Partial struct {
	Partition string
	Sections  []Section
}

// Assemble merges partials into one report. The result does not depend on
// the order of partials.
func Assemble(catalogue, partitions []string, partials ...Partial) (*Report, error) {
	r := New(catalogue, partitions)
	for _, p := range partials {
		for _, s := range p.Sections {
			if err := r.Set(s.Metric, p.Partition, s.Entry); err != nil {
				return nil, fmt.Errorf("assemble %s: %w", p.Partition, err)
			}
		}
	}
	return r, nil
}
