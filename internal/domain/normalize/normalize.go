// Package normalize turns raw source rows into validated participant records.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/JX3BOX/analysis-dungeon-rank/internal/domain/model"
	"github.com/JX3BOX/analysis-dungeon-rank/internal/domain/taxonomy"
	"github.com/JX3BOX/analysis-dungeon-rank/pkg/logger"
)

// Source columns.
const (
	ColTeamID     = "team_id"
	ColAchieveID  = "achieve_id"
	ColServer     = "server"
	ColFinishTime = "finish_time"
	ColStartTime  = "start_time"
	ColFightTime  = "fight_time"
	ColIsLeader   = "is_leader"
	ColMount      = "mount"
	ColDamage     = "damage"
	ColDPS        = "dps"
	ColTherapy    = "therapy"
	ColHPS        = "hps"
	ColStatus     = "status"
	ColVerified   = "verified"
	ColTeammate   = "teammate"

	ColGUID     = "guid"
	ColRole     = "role"
	ColUID      = "uid"
	ColBattleID = "battleId"
)

// RequiredColumns must all be present in the source header.
var RequiredColumns = []string{
	ColTeamID, ColAchieveID, ColServer, ColFinishTime, ColStartTime, ColFightTime,
	ColIsLeader, ColMount, ColDamage, ColDPS, ColTherapy, ColHPS,
	ColStatus, ColVerified, ColTeammate,
}

// Row is one raw source row addressed by column name.
type Row interface {
	Get(column string) (string, bool)
	Line() int
}

// Summary counts what happened to the rows of one pass.
type Summary struct {
	Read           int
	Admitted       int
	Filtered       int
	ParseErrors    int
	CoercionErrors int
}

// Dropped returns the number of rows rejected as invalid.
func (s Summary) Dropped() int {
	return s.ParseErrors + s.CoercionErrors
}

// Normalizer validates rows against a taxonomy.
type Normalizer struct {
	tax *taxonomy.Taxonomy
	log logger.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLogger sets the logger used for dropped rows.
func WithLogger(l logger.Logger) Option {
	return func(n *Normalizer) {
		n.log = l
	}
}

// New creates a Normalizer.
func New(tax *taxonomy.Taxonomy, opts ...Option) *Normalizer {
	n := &Normalizer{tax: tax}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize builds the working set from rows. Invalid and non-admitted rows
// are dropped and counted; only context cancellation returns an error.
func (n *Normalizer) Normalize(ctx context.Context, rows []Row) ([]*model.Record, Summary, error) {
	var sum Summary
	records := make([]*model.Record, 0, len(rows))
	for i, row := range rows {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, sum, err
			}
		}
		sum.Read++
		rec, err := n.Record(row)
		switch {
		case err == nil:
			rec.Seq = len(records)
			records = append(records, rec)
			sum.Admitted++
		case errors.Is(err, ErrRejected):
			sum.Filtered++
		case errors.Is(err, ErrParse):
			sum.ParseErrors++
			n.dropped(ctx, err)
		default:
			sum.CoercionErrors++
			n.dropped(ctx, err)
		}
	}
	return records, sum, nil
}

func (n *Normalizer) dropped(ctx context.Context, err error) {
	if n.log == nil {
		return
	}
	var rowErr *RowError
	line := 0
	if errors.As(err, &rowErr) {
		line = rowErr.Line
	}
	n.log.Debug(ctx, "row dropped", logger.Int("line", line), logger.Error(err))
}

// Record validates one row. Errors are *RowError wrapping ErrRejected,
// ErrParse or ErrCoercion. The returned record has Seq unset.
func (n *Normalizer) Record(row Row) (*model.Record, error) {
	rec, err := n.record(row)
	if err != nil {
		return nil, &RowError{Line: row.Line(), Err: err}
	}
	return rec, nil
}

func (n *Normalizer) record(row Row) (*model.Record, error) {
	c := coercer{row: row}
	status := c.integer(ColStatus)
	verified := c.integer(ColVerified)
	if c.err != nil {
		return nil, c.err
	}
	if status != 1 || verified != 1 {
		return nil, fmt.Errorf("%w: status=%d verified=%d", ErrRejected, status, verified)
	}

	rec := &model.Record{
		Line:       row.Line(),
		TeamID:     c.text(ColTeamID),
		Server:     c.text(ColServer),
		AchieveID:  int(c.integer(ColAchieveID)),
		FinishTime: c.integer(ColFinishTime),
		StartTime:  c.integer(ColStartTime),
		FightTime:  c.float(ColFightTime),
		IsLeader:   c.integer(ColIsLeader) == 1,
		ClassID:    taxonomy.Canonical(int(c.integer(ColMount))),
		Damage:     c.float(ColDamage),
		DPS:        c.float(ColDPS),
		Therapy:    c.float(ColTherapy),
		HPS:        c.float(ColHPS),
	}
	if c.err != nil {
		return nil, c.err
	}
	rec.GUID, _ = row.Get(ColGUID)
	rec.Role, _ = row.Get(ColRole)
	rec.UID, _ = row.Get(ColUID)
	rec.BattleID, _ = row.Get(ColBattleID)

	raw, _ := row.Get(ColTeammate)
	teammates, err := DecodeTeammates(raw)
	if err != nil {
		return nil, err
	}
	rec.Teammates = teammates
	rec.Composition = model.NewComposition(n.tax, teammates)
	return rec, nil
}

// coercer reads typed columns and keeps the first failure.
type coercer struct {
	row Row
	err error
}

func (c *coercer) text(col string) string {
	v, _ := c.row.Get(col)
	return v
}

func (c *coercer) float(col string) float64 {
	if c.err != nil {
		return 0
	}
	raw, ok := c.row.Get(col)
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		c.err = fmt.Errorf("%w: %s is missing", ErrCoercion, col)
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		c.err = fmt.Errorf("%w: %s=%q", ErrCoercion, col, raw)
		return 0
	}
	return v
}

func (c *coercer) integer(col string) int64 {
	v := c.float(col)
	if c.err != nil {
		return 0
	}
	if v != math.Trunc(v) || math.Abs(v) > 1<<53 {
		c.err = fmt.Errorf("%w: %s=%v is not an integer", ErrCoercion, col, v)
		return 0
	}
	return int64(v)
}

// Fields is a Row backed by a map.
type Fields struct {
	Values map[string]string
	LineNo int
}

// Get returns the value of column.
func (f Fields) Get(column string) (string, bool) {
	v, ok := f.Values[column]
	return v, ok
}

// Line returns the source line of the row.
func (f Fields) Line() int {
	return f.LineNo
}
