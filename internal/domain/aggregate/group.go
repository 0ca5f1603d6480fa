package aggregate

import (
	"github.com/JX3BOX/analysis-dungeon-rank/internal/domain/report"
)

// group accumulates a sum and a count per key in first seen order.
type group[K comparable] struct {
	keys []K
	sum  map[K]float64
	n    map[K]int
}

func newGroup[K comparable]() *group[K] {
	return &group[K]{sum: make(map[K]float64), n: make(map[K]int)}
}

func (g *group[K]) add(k K, v float64) {
	if _, ok := g.n[k]; !ok {
		g.keys = append(g.keys, k)
	}
	g.sum[k] += v
	g.n[k]++
}

// sums returns the per key sums sorted descending.
func (g *group[K]) sums() report.Entry {
	e := report.NewEntry()
	for _, k := range g.keys {
		e.Append(k, g.sum[k])
	}
	e.SortDesc()
	return e
}

// means returns the per key means sorted descending.
func (g *group[K]) means() report.Entry {
	e := report.NewEntry()
	for _, k := range g.keys {
		e.Append(k, g.sum[k]/float64(g.n[k]))
	}
	e.SortDesc()
	return e
}
