// Package ranking averages continuous performance metrics per class after
// removing outliers with a rule chosen per sample.
package ranking

import (
	"fmt"

	"github.com/JX3BOX/analysis-dungeon-rank/internal/domain/model"
	"github.com/JX3BOX/analysis-dungeon-rank/internal/domain/report"
	"github.com/JX3BOX/analysis-dungeon-rank/internal/domain/taxonomy"
	"gonum.org/v1/gonum/stat"
)

// Metric names in catalogue order.
const (
	RankMountDPS     = "rank_mount_dps"
	RankMountDamage  = "rank_mount_damage"
	RankMountHPS     = "rank_mount_hps"
	RankMountTherapy = "rank_mount_therapy"
)

type metric struct {
	name   string
	value  model.Metric
	groups []taxonomy.RoleGroup
}

var catalogue = []metric{
	{name: RankMountDPS, value: model.DPS, groups: taxonomy.DPS},
	{name: RankMountDamage, value: model.Damage, groups: taxonomy.DPS},
	{name: RankMountHPS, value: model.HPS, groups: []taxonomy.RoleGroup{taxonomy.Heal}},
	{name: RankMountTherapy, value: model.Therapy, groups: []taxonomy.RoleGroup{taxonomy.Heal}},
}

// Catalogue returns the ranking metric names in report order.
func Catalogue() []string {
	names := make([]string, 0, len(catalogue))
	for _, m := range catalogue {
		names = append(names, m.name)
	}
	return names
}

// RuleObserver is told which outlier rule each class sample used.
type RuleObserver func(metric string, class int, rule Rule)

// Ranker computes the ranking metrics.
type Ranker struct {
	tax      *taxonomy.Taxonomy
	observer RuleObserver
}

// Option configures a Ranker.
type Option func(*Ranker)

// WithRuleObserver registers a callback for chosen outlier rules.
func WithRuleObserver(fn RuleObserver) Option {
	return func(r *Ranker) {
		r.observer = fn
	}
}

// New creates a Ranker.
func New(tax *taxonomy.Taxonomy, opts ...Option) *Ranker {
	r := &Ranker{tax: tax}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Compute evaluates every ranking metric over the partition's records.
func (r *Ranker) Compute(p model.Partition) []report.Section {
	sections := make([]report.Section, 0, len(catalogue))
	for _, m := range catalogue {
		sections = append(sections, report.Section{Metric: m.name, Entry: r.rank(m, p.Records)})
	}
	return sections
}

// Metric evaluates one ranking metric over the partition's records.
func (r *Ranker) Metric(name string, p model.Partition) (report.Entry, error) {
	for _, m := range catalogue {
		if m.name == name {
			return r.rank(m, p.Records), nil
		}
	}
	return report.Entry{}, fmt.Errorf("%w: %s", report.ErrUnknownMetric, name)
}

func (r *Ranker) rank(m metric, records []*model.Record) report.Entry {
	var order []int
	samples := make(map[int][]float64)
	for _, rec := range records {
		if !r.tax.InGroup(rec.ClassID, m.groups...) {
			continue
		}
		v := rec.Value(m.value)
		if v == 0 {
			continue
		}
		if _, ok := samples[rec.ClassID]; !ok {
			order = append(order, rec.ClassID)
		}
		samples[rec.ClassID] = append(samples[rec.ClassID], v)
	}

	e := report.NewEntry()
	for _, class := range order {
		kept, rule := Filter(samples[class])
		if r.observer != nil {
			r.observer(m.name, class, rule)
		}
		if len(kept) == 0 {
			continue
		}
		e.Append(class, stat.Mean(kept, nil))
	}
	e.SortDesc()
	return e
}

