// Package intent holds the Intentions index built in S3 and consumed in
// S4: a claim record referencing a vehicle and the kind of claim it holds
// on a cell.
package intent

import (
	"github.com/LdDl/micro-traffic-sim-core-sub000/grid"
	"github.com/LdDl/micro-traffic-sim-core-sub000/vehicle"
)

// Kind classifies a CellIntention claim.
type Kind int8

const (
	Target Kind = iota
	Transit
	Tail
)

// CellIntention is one vehicle's claim on one cell for the upcoming tick.
type CellIntention struct {
	Vehicle vehicle.ID
	Kind    Kind
}

// Index maps CellID -> the claims on it, built fresh every tick in S3 and
// consulted read-only through S4.
type Index struct {
	claims  map[grid.CellID][]CellIntention
	ordered []grid.CellID
}

// NewIndex returns an empty Intentions index.
func NewIndex() *Index {
	return &Index{claims: make(map[grid.CellID][]CellIntention)}
}

// Add registers a claim. The first time a cell is claimed this tick, it is
// appended to the index's stable iteration order (insertion order), so
// conflict collection can walk contested cells deterministically without
// depending on Go's randomized map iteration.
func (idx *Index) Add(cell grid.CellID, v vehicle.ID, k Kind) {
	if _, seen := idx.claims[cell]; !seen {
		idx.ordered = append(idx.ordered, cell)
	}
	idx.claims[cell] = append(idx.claims[cell], CellIntention{Vehicle: v, Kind: k})
}

// At returns the claims on a cell, or nil if unclaimed.
func (idx *Index) At(cell grid.CellID) []CellIntention {
	return idx.claims[cell]
}

// Occupancy records which vehicle currently sits on each cell — used by the
// planner's path post-processing to stop a path at an occupied cell. This
// reads the *current* tick's vehicle positions, not intentions.
type Occupancy map[grid.CellID]vehicle.ID

// Contested returns every cell with 2 or more claims, in the order of the
// caller-provided cell list (cells absent from that list are not returned).
func (idx *Index) Contested(order []grid.CellID) []grid.CellID {
	var out []grid.CellID
	for _, cell := range order {
		if len(idx.claims[cell]) >= 2 {
			out = append(out, cell)
		}
	}
	return out
}

// Cells returns every cell carrying at least one claim, in the stable
// order they were first claimed this tick.
func (idx *Index) Cells() []grid.CellID {
	return append([]grid.CellID(nil), idx.ordered...)
}
