package planner

import (
	"github.com/LdDl/micro-traffic-sim-core-sub000/grid"
	"github.com/LdDl/micro-traffic-sim-core-sub000/intent"
	"github.com/LdDl/micro-traffic-sim-core-sub000/vehicle"
)

// Aggregate populates the Intentions index from v's already-computed
// Intention: a Target claim on the intended cell, a Transit claim on every
// intermediate cell, and a Tail claim on every cell of the projected tail.
// The tail projection preserves total body length across the head's move.
func Aggregate(v *vehicle.Vehicle, idx *intent.Index) {
	in := &v.Intention
	idx.Add(in.CellID, v.ID, intent.Target)
	for _, c := range in.IntermediateCells {
		idx.Add(c, v.ID, intent.Transit)
	}

	tail := v.TailCells
	k := in.Speed

	var projected []grid.CellID
	switch {
	case in.CellID == v.CellID:
		// Case (i): head does not move. Shift tail by one, append the
		// current head to the tail end (stays-put semantics).
		if len(tail) > 0 {
			projected = append(append([]grid.CellID{}, tail[1:]...), v.CellID)
		}
	case k <= len(tail):
		// Case (ii): head advances by k <= |tail|. New tail = last
		// (|tail|-k) of old tail, then current head, then first (k-1)
		// intermediates.
		projected = append([]grid.CellID{}, tail[k:]...)
		projected = append(projected, v.CellID)
		if k > 1 {
			take := k - 1
			if take > len(in.IntermediateCells) {
				take = len(in.IntermediateCells)
			}
			projected = append(projected, in.IntermediateCells[:take]...)
		}
	default:
		// Case (iii): head advances by k > |tail|. New tail = last |tail|
		// of intermediate_cells.
		inter := in.IntermediateCells
		if len(inter) >= len(tail) {
			projected = append([]grid.CellID{}, inter[len(inter)-len(tail):]...)
		} else {
			projected = append([]grid.CellID{}, inter...)
		}
	}

	in.TailIntentionCells = projected
	for _, c := range projected {
		if c.Valid() {
			idx.Add(c, v.ID, intent.Tail)
		}
	}
}
