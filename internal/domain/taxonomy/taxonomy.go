// Package taxonomy holds the static class catalogs: which force (school) a
// class belongs to and which role group it plays.
package taxonomy

import (
	"slices"
)

// RoleGroup is the coarse role bucket of a class.
type RoleGroup string

// Role groups.
const (
	Heal        RoleGroup = "heal"
	Tank        RoleGroup = "tank"
	ExternalDPS RoleGroup = "external-dps"
	InternalDPS RoleGroup = "internal-dps"
)

// RoleGroups lists every role group in report order.
var RoleGroups = []RoleGroup{Heal, Tank, ExternalDPS, InternalDPS}

// DPS is the union of both damage groups.
var DPS = []RoleGroup{ExternalDPS, InternalDPS}

// Legacy class ids that are rewritten before any lookup.
const (
	LegacyClassID    = 10144
	CanonicalClassID = 10145
)

// Canonical rewrites legacy class ids to their current id.
func Canonical(class int) int {
	if class == LegacyClassID {
		return CanonicalClassID
	}
	return class
}

// Taxonomy maps class ids to their force and role group. It is immutable
// once built and safe for concurrent reads.
type Taxonomy struct {
	force  map[int]int
	role   map[int]RoleGroup
	groups map[RoleGroup][]int
}

// Force returns the force id of class.
func (t *Taxonomy) Force(class int) (int, bool) {
	f, ok := t.force[class]
	return f, ok
}

// Role returns the role group of class.
func (t *Taxonomy) Role(class int) (RoleGroup, bool) {
	g, ok := t.role[class]
	return g, ok
}

// InGroup reports whether class belongs to any of groups.
func (t *Taxonomy) InGroup(class int, groups ...RoleGroup) bool {
	g, ok := t.role[class]
	return ok && slices.Contains(groups, g)
}

// Classes returns the class ids of a role group in catalog order.
func (t *Taxonomy) Classes(g RoleGroup) []int {
	return slices.Clone(t.groups[g])
}

// Len returns the number of classes with a role group.
func (t *Taxonomy) Len() int {
	return len(t.role)
}
