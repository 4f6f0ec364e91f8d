// Package grid holds the directed cell graph the simulator runs vehicles
// over: cells, their successor links, zone kinds and dynamic Free/Banned
// state.
package grid

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/LdDl/micro-traffic-sim-core-sub000/geo"
)

// CellID identifies a Cell. NoCell (-1) is the sentinel for "no link".
type CellID int64

// NoCell is the sentinel successor value meaning "no link".
const NoCell CellID = -1

// Valid reports whether id refers to an actual cell (id > 0).
func (id CellID) Valid() bool { return id > 0 }

// State is the dynamic accessibility of a Cell, mutated each tick by the
// signal controller.
type State int8

const (
	Free State = iota
	Banned
)

func (s State) String() string {
	if s == Banned {
		return "Banned"
	}
	return "Free"
}

// ZoneKind classifies the role a cell plays in spawning/retiring vehicles
// and in transit/crosswalk logic.
type ZoneKind int8

const (
	ZoneUndefined ZoneKind = iota
	ZoneBirth
	ZoneDeath
	ZoneCoordination
	ZoneCommon
	ZoneIsolated
	ZoneBusLane
	ZoneTransit
	ZoneCrosswalk
)

// Cell is a node of the directed road graph. Successor CellIDs are resolved
// by lookup against GridRoads, never held as pointers.
type Cell struct {
	ID          CellID
	Point       geo.Point
	SpeedLimit  int
	Zone        ZoneKind
	Forward     CellID
	Left        CellID
	Right       CellID
	State       State
}

// Builder constructs a Cell with the fluent style the rest of the module
// uses for configuration objects.
type Builder struct {
	cell Cell
}

// New starts building a Cell with the given id. Forward/Left/Right default
// to NoCell and must be set explicitly.
func New(id CellID) *Builder {
	return &Builder{cell: Cell{
		ID:      id,
		Forward: NoCell,
		Left:    NoCell,
		Right:   NoCell,
		State:   Free,
	}}
}

func (b *Builder) WithPoint(p geo.Point) *Builder    { b.cell.Point = p; return b }
func (b *Builder) WithSpeedLimit(v int) *Builder     { b.cell.SpeedLimit = v; return b }
func (b *Builder) WithZone(z ZoneKind) *Builder      { b.cell.Zone = z; return b }
func (b *Builder) WithForward(id CellID) *Builder    { b.cell.Forward = id; return b }
func (b *Builder) WithLeft(id CellID) *Builder       { b.cell.Left = id; return b }
func (b *Builder) WithRight(id CellID) *Builder      { b.cell.Right = id; return b }
func (b *Builder) WithState(s State) *Builder        { b.cell.State = s; return b }

// Build finalizes the Cell. No successor-existence validation is performed
// here; a dangling CellID surfaces as a ConfigurationError the first time a
// step resolves it.
func (b *Builder) Build() Cell { return b.cell }

// Roads is a CellID -> Cell mapping with O(1) lookup. The graph need not be
// planar or acyclic.
type Roads struct {
	cells map[CellID]Cell
}

// NewRoads returns an empty road graph.
func NewRoads() *Roads {
	return &Roads{cells: make(map[CellID]Cell)}
}

// Add inserts or replaces a cell.
func (r *Roads) Add(c Cell) { r.cells[c.ID] = c }

// Get resolves a CellID, returning a ConfigurationError if it's dangling.
func (r *Roads) Get(id CellID) (Cell, error) {
	if !id.Valid() {
		return Cell{}, errors.Errorf("grid: invalid cell id %d", id)
	}
	c, ok := r.cells[id]
	if !ok {
		return Cell{}, &DanglingCellError{ID: id}
	}
	return c, nil
}

// SetState overwrites the stored Cell's dynamic State, used by the signal
// controller at S2.
func (r *Roads) SetState(id CellID, s State) error {
	c, err := r.Get(id)
	if err != nil {
		return err
	}
	c.State = s
	r.cells[id] = c
	return nil
}

// Len returns the number of cells in the graph.
func (r *Roads) Len() int { return len(r.cells) }

// DanglingCellError is returned whenever a CellID referenced by the grid
// (a successor link, a vehicle's position, a conflict-zone edge) doesn't
// resolve to an actual Cell. It satisfies the ConfigurationError taxonomy
// entry from the error-handling design.
type DanglingCellError struct {
	ID CellID
}

func (e *DanglingCellError) Error() string {
	return fmt.Sprintf("grid: dangling cell id %d", e.ID)
}
