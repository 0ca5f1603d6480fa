// Package aggregate computes the fixed catalogue of grouped count and sum
// metrics over the leader rows of a partition.
package aggregate

import (
	"fmt"

	"github.com/JX3BOX/analysis-dungeon-rank/internal/domain/leader"
	"github.com/JX3BOX/analysis-dungeon-rank/internal/domain/model"
	"github.com/JX3BOX/analysis-dungeon-rank/internal/domain/report"
	"github.com/JX3BOX/analysis-dungeon-rank/internal/domain/taxonomy"
)

// Metric names in catalogue order.
const (
	Top10TeamCount       = "top10_achieve_team_count"
	Top100TeamCount      = "top100_achieve_team_count"
	ServerRankTeamCount  = "server_rank_team_count"
	MountAttendanceCount = "mount_attendance_count"
	ForceAttendanceCount = "force_attendance_count"
	HealAttendanceCount  = "heal_attendance_count"
	TankAttendanceCount  = "tank_attendance_count"
	DPSCount             = "dps_count"
	MountTypeAttendance  = "mount_type_attendance_count"
	HealCount            = "heal_count"
	TankCount            = "tank_count"
	LeaderMountTypeCount = "leader_mount_type_count"
	FlightTimeMean       = "flight_time_mean"
)

type metric struct {
	name string
	// allOnly metrics are emitted for the "all" partition only.
	allOnly bool
	compute func(e *Engine, leaders []*model.Record) report.Entry
}

var catalogue = []metric{
	{name: Top10TeamCount, compute: func(_ *Engine, l []*model.Record) report.Entry {
		return ServerCount(leader.Window(l, leader.Top10))
	}},
	{name: Top100TeamCount, compute: func(_ *Engine, l []*model.Record) report.Entry {
		return ServerCount(leader.Window(l, leader.Top100))
	}},
	{name: ServerRankTeamCount, compute: func(_ *Engine, l []*model.Record) report.Entry {
		return ServerCount(l)
	}},
	{name: MountAttendanceCount, compute: func(_ *Engine, l []*model.Record) report.Entry {
		return ClassAttendance(l)
	}},
	{name: ForceAttendanceCount, compute: func(_ *Engine, l []*model.Record) report.Entry {
		return ForceAttendance(l)
	}},
	{name: HealAttendanceCount, compute: func(e *Engine, l []*model.Record) report.Entry {
		return e.GroupAttendance(l, taxonomy.Heal)
	}},
	{name: TankAttendanceCount, compute: func(e *Engine, l []*model.Record) report.Entry {
		return e.GroupAttendance(l, taxonomy.Tank)
	}},
	{name: DPSCount, compute: func(e *Engine, l []*model.Record) report.Entry {
		return e.GroupAttendance(l, taxonomy.DPS...)
	}},
	{name: MountTypeAttendance, compute: func(_ *Engine, l []*model.Record) report.Entry {
		return RoleAttendance(l, taxonomy.DPS...)
	}},
	{name: HealCount, compute: func(_ *Engine, l []*model.Record) report.Entry {
		return RoleHeadcount(l, taxonomy.Heal)
	}},
	{name: TankCount, compute: func(_ *Engine, l []*model.Record) report.Entry {
		return RoleHeadcount(l, taxonomy.Tank)
	}},
	{name: LeaderMountTypeCount, compute: func(e *Engine, l []*model.Record) report.Entry {
		return e.LeaderRoleCount(l)
	}},
	{name: FlightTimeMean, allOnly: true, compute: func(_ *Engine, l []*model.Record) report.Entry {
		return FightTimeMean(l)
	}},
}

// Catalogue returns the aggregation metric names in report order.
func Catalogue() []string {
	names := make([]string, 0, len(catalogue))
	for _, m := range catalogue {
		names = append(names, m.name)
	}
	return names
}

// Engine evaluates the catalogue against a taxonomy.
type Engine struct {
	tax *taxonomy.Taxonomy
}

// New creates an Engine.
func New(tax *taxonomy.Taxonomy) *Engine {
	return &Engine{tax: tax}
}

// Compute evaluates every catalogue metric that applies to p.
func (e *Engine) Compute(p model.Partition) []report.Section {
	sections := make([]report.Section, 0, len(catalogue))
	for _, m := range catalogue {
		if m.allOnly && p.Key != report.PartitionAll {
			continue
		}
		sections = append(sections, report.Section{Metric: m.name, Entry: m.compute(e, p.Leaders)})
	}
	return sections
}

// Metric evaluates a single catalogue metric over p.
func (e *Engine) Metric(name string, p model.Partition) (report.Entry, error) {
	for _, m := range catalogue {
		if m.name == name {
			return m.compute(e, p.Leaders), nil
		}
	}
	return report.Entry{}, fmt.Errorf("%w: %s", report.ErrUnknownMetric, name)
}

// ServerCount counts leader rows by server.
func ServerCount(leaders []*model.Record) report.Entry {
	g := newGroup[string]()
	for _, r := range leaders {
		g.add(r.Server, 1)
	}
	return g.sums()
}

// ClassAttendance sums teammate slots by class id, unresolved ids included.
func ClassAttendance(leaders []*model.Record) report.Entry {
	g := newGroup[int]()
	for _, r := range leaders {
		c := &r.Composition.Classes
		for _, class := range c.Keys() {
			g.add(class, float64(c.Get(class)))
		}
	}
	return g.sums()
}

// ForceAttendance sums teammate slots by force id.
func ForceAttendance(leaders []*model.Record) report.Entry {
	g := newGroup[int]()
	for _, r := range leaders {
		f := &r.Composition.Forces
		for _, force := range f.Keys() {
			g.add(force, float64(f.Get(force)))
		}
	}
	return g.sums()
}

// GroupAttendance sums teammate slots by class id for classes in groups.
func (e *Engine) GroupAttendance(leaders []*model.Record, groups ...taxonomy.RoleGroup) report.Entry {
	g := newGroup[int]()
	for _, r := range leaders {
		c := &r.Composition.Classes
		for _, class := range c.Keys() {
			if e.tax.InGroup(class, groups...) {
				g.add(class, float64(c.Get(class)))
			}
		}
	}
	return g.sums()
}

// RoleAttendance sums teammate slots by role group for the given groups.
// Groups with no slot are omitted.
func RoleAttendance(leaders []*model.Record, groups ...taxonomy.RoleGroup) report.Entry {
	g := newGroup[string]()
	for _, r := range leaders {
		roles := &r.Composition.Roles
		for _, role := range roles.Keys() {
			for _, want := range groups {
				if role == want {
					g.add(string(role), float64(roles.Get(role)))
				}
			}
		}
	}
	return g.sums()
}

// RoleHeadcount counts leader rows by how many teammates of role they had.
// Teams with none land in bucket 0.
func RoleHeadcount(leaders []*model.Record, role taxonomy.RoleGroup) report.Entry {
	g := newGroup[int]()
	for _, r := range leaders {
		g.add(r.Composition.Roles.Get(role), 1)
	}
	return g.sums()
}

// LeaderRoleCount counts leader rows by the role group of the leader's own
// class. Unresolved classes are skipped.
func (e *Engine) LeaderRoleCount(leaders []*model.Record) report.Entry {
	g := newGroup[string]()
	for _, r := range leaders {
		if role, ok := e.tax.Role(r.ClassID); ok {
			g.add(string(role), 1)
		}
	}
	return g.sums()
}

// FightTimeMean averages fight time by achieve id.
func FightTimeMean(leaders []*model.Record) report.Entry {
	g := newGroup[int]()
	for _, r := range leaders {
		g.add(r.AchieveID, r.FightTime)
	}
	return g.means()
}
