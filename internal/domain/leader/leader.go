// Package leader selects one representative row per team and exposes
// time ordered windows over them.
package leader

import (
	"context"
	"sort"
	"strconv"

	"github.com/JX3BOX/analysis-dungeon-rank/internal/domain/dedupe"
	"github.com/JX3BOX/analysis-dungeon-rank/internal/domain/model"
	"github.com/JX3BOX/analysis-dungeon-rank/pkg/logger"
)

// Ranking window sizes.
const (
	Top10  = 10
	Top100 = 100
)

// Board is the finish time ordered sequence of leader rows.
type Board struct {
	rows       []*model.Record
	duplicates int
}

// Option configures Select.
type Option func(*selectOptions)

type selectOptions struct {
	log logger.Logger
}

// WithLogger logs every dropped duplicate leader.
func WithLogger(l logger.Logger) Option {
	return func(o *selectOptions) {
		o.log = l
	}
}

// Select keeps the leader rows of records, one per team and boss, sorted
// ascending by finish time. Ties keep input order. A second leader row for a
// team already seen on the same boss is dropped.
func Select(ctx context.Context, records []*model.Record, opts ...Option) *Board {
	var o selectOptions
	for _, opt := range opts {
		opt(&o)
	}

	expected := len(records)/5 + 1
	seen := dedupe.NewInMemoryDeduper(dedupe.WithCapacity(expected))
	rows := make([]*model.Record, 0, expected)
	for _, r := range records {
		if !r.IsLeader {
			continue
		}
		if seen.SeenAndRecord(ctx, clearKey(r)) {
			if o.log != nil {
				o.log.Warn(ctx, "duplicate leader row dropped",
					logger.String("team_id", r.TeamID),
					logger.Int("achieve_id", r.AchieveID),
					logger.Int("line", r.Line))
			}
			continue
		}
		rows = append(rows, r)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].FinishTime < rows[j].FinishTime
	})
	return &Board{rows: rows, duplicates: int(seen.Duplicates())}
}

// clearKey identifies one clear: a team may clear several bosses.
func clearKey(r *model.Record) string {
	return strconv.Itoa(r.AchieveID) + "/" + r.TeamID
}

// Rows returns every leader row in finish order.
func (b *Board) Rows() []*model.Record {
	return b.rows
}

// Len returns the number of leader rows.
func (b *Board) Len() int {
	return len(b.rows)
}

// Duplicates returns how many duplicate leader rows were dropped.
func (b *Board) Duplicates() int {
	return b.duplicates
}

// Window returns the first n leader rows.
func (b *Board) Window(n int) []*model.Record {
	return Window(b.rows, n)
}

// Boss returns a board restricted to one achieve id. Order is preserved.
func (b *Board) Boss(achieveID int) *Board {
	rows := make([]*model.Record, 0)
	for _, r := range b.rows {
		if r.AchieveID == achieveID {
			rows = append(rows, r)
		}
	}
	return &Board{rows: rows}
}

// Window returns the prefix of rows of length n, or all rows when there are
// fewer. It never pads.
func Window(rows []*model.Record, n int) []*model.Record {
	if n < 0 {
		n = 0
	}
	if n > len(rows) {
		n = len(rows)
	}
	return rows[:n:n]
}
