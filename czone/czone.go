// Package czone holds conflict-zone definitions: named pairs of directed
// edges sharing geometry at an intersection, plus the winner rule that
// overrides the generic pairwise conflict rules for traffic passing through
// them.
package czone

import "github.com/LdDl/micro-traffic-sim-core-sub000/grid"

// ID identifies a ConflictZone.
type ID uint64

// WinnerRule says which of a zone's two edges wins when both are claimed in
// the same tick.
type WinnerRule int8

const (
	WinnerUndefined WinnerRule = iota
	WinnerEqual
	WinnerFirst
	WinnerSecond
)

// Edge is a directed source->target pair belonging to a zone.
type Edge struct {
	Source, Target grid.CellID
}

// Zone is a named pair of directed edges sharing intersection geometry.
type Zone struct {
	ID     ID
	First  Edge
	Second Edge
	Winner WinnerRule
}

// Registry maps a target CellID owned by a zone edge back to the zone, so
// the conflict collector can look up zone membership in O(1) per contested
// cell, matching the "a cell may belong to at most one zone" invariant.
type Registry struct {
	zones     map[ID]*Zone
	byTarget  map[grid.CellID]ID
}

func NewRegistry() *Registry {
	return &Registry{zones: make(map[ID]*Zone), byTarget: make(map[grid.CellID]ID)}
}

// Add registers a zone. Returns an error if either edge's target cell is
// already claimed by a different zone.
func (r *Registry) Add(z Zone) error {
	if existing, ok := r.byTarget[z.First.Target]; ok && existing != z.ID {
		return &DuplicateMembershipError{CellID: z.First.Target}
	}
	if existing, ok := r.byTarget[z.Second.Target]; ok && existing != z.ID {
		return &DuplicateMembershipError{CellID: z.Second.Target}
	}
	zc := z
	r.zones[z.ID] = &zc
	r.byTarget[z.First.Target] = z.ID
	r.byTarget[z.Second.Target] = z.ID
	return nil
}

// ZoneFor returns the zone owning target (if any) and whether it was found.
func (r *Registry) ZoneFor(target grid.CellID) (*Zone, bool) {
	id, ok := r.byTarget[target]
	if !ok {
		return nil, false
	}
	return r.zones[id], true
}

// All returns every registered zone, in no particular order.
func (r *Registry) All() []*Zone {
	out := make([]*Zone, 0, len(r.zones))
	for _, z := range r.zones {
		out = append(out, z)
	}
	return out
}

// DuplicateMembershipError is returned when a cell is claimed by more than
// one conflict zone, violating the "at most one zone per cell" invariant.
type DuplicateMembershipError struct {
	CellID grid.CellID
}

func (e *DuplicateMembershipError) Error() string {
	return "czone: cell already belongs to a conflict zone"
}
