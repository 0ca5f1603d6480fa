// Package model contains the participant records passed between pipeline stages.
package model

import (
	"github.com/JX3BOX/analysis-dungeon-rank/internal/domain/taxonomy"
)

// Metric names a continuous performance column of a record.
type Metric string

// Performance metrics.
const (
	Damage  Metric = "damage"
	DPS     Metric = "dps"
	Therapy Metric = "therapy"
	HPS     Metric = "hps"
)

// Teammate is one decoded entry of a record's embedded teammate list.
type Teammate struct {
	Name         string
	ClassID      int
	GlobalRoleID string
	RoleID       string
}

// Record is one admitted participant row. Records are never mutated after
// the normalizer builds them.
type Record struct {
	// Seq is the zero-based position among admitted rows; Line is the 1-based
	// line in the source.
	Seq  int
	Line int

	TeamID     string
	AchieveID  int
	Server     string
	FinishTime int64
	StartTime  int64
	FightTime  float64
	IsLeader   bool
	ClassID    int

	Damage  float64
	DPS     float64
	Therapy float64
	HPS     float64

	// Informational columns, empty when absent from the source.
	GUID     string
	Role     string
	UID      string
	BattleID string

	Teammates   []Teammate
	Composition Composition
}

// Value returns the record's value for a performance metric.
func (r *Record) Value(m Metric) float64 {
	switch m {
	case Damage:
		return r.Damage
	case DPS:
		return r.DPS
	case Therapy:
		return r.Therapy
	case HPS:
		return r.HPS
	default:
		return 0
	}
}

// Composition counts a record's teammates by class, role group and force.
type Composition struct {
	// Classes counts every teammate slot, resolved or not.
	Classes Tally[int]
	// Roles and Forces only count classes the taxonomy resolves.
	Roles  Tally[taxonomy.RoleGroup]
	Forces Tally[int]
}

// NewComposition derives the composition vector of a teammate list.
func NewComposition(tax *taxonomy.Taxonomy, teammates []Teammate) Composition {
	var c Composition
	for _, tm := range teammates {
		c.Classes.Add(tm.ClassID, 1)
		if g, ok := tax.Role(tm.ClassID); ok {
			c.Roles.Add(g, 1)
		}
		if f, ok := tax.Force(tm.ClassID); ok {
			c.Forces.Add(f, 1)
		}
	}
	return c
}
