// Package vehicle holds the motile agent model: kinematic state, tail
// topology, behavior strategy, and the per-tick staged Intention.
package vehicle

import (
	"github.com/LdDl/micro-traffic-sim-core-sub000/grid"
)

// ID identifies a Vehicle.
type ID uint64

// Strategy is the behavior a vehicle's intention planning follows.
type Strategy int8

const (
	StrategyUndefined Strategy = iota
	StrategyBlock
	StrategyAggressive
	StrategyCooperative
	StrategyLimitSpeedByTrip
)

// Maneuver is an atomic lane-change decision.
type Maneuver int8

const (
	ManeuverUndefined Maneuver = iota
	ManeuverNoChange
	ManeuverChangeLeft
	ManeuverChangeRight
	ManeuverBlock
)

// AgentType distinguishes tail-size conventions and transit-dwell eligibility.
type AgentType int8

const (
	AgentCar AgentType = iota
	AgentBus
	AgentLargeBus
	AgentUnknown
)

// TailSize returns the conventional number of tail cells for the agent type.
func (a AgentType) TailSize() int {
	switch a {
	case AgentBus:
		return 1
	case AgentLargeBus:
		return 2
	default:
		return 0
	}
}

// Intention is the per-tick staging record produced in S3 and mutated
// through S5, then consumed and cleared in S6.
type Intention struct {
	CellID             grid.CellID
	Speed              int
	Maneuver           Maneuver
	IntermediateCells  []grid.CellID
	TailIntentionCells []grid.CellID
	TailManeuver       Maneuver
	ShouldStop         bool
	Destination        grid.CellID
	HasDestination      bool
	Confusion          bool
}

// Block returns the zero-progress intention staged at cell id.
func Block(id grid.CellID) Intention {
	return Intention{CellID: id, Speed: 0, Maneuver: ManeuverBlock}
}

// Vehicle is a motile agent occupying one head cell and N tail cells.
type Vehicle struct {
	ID ID

	Speed            int
	SpeedLimit       int
	Bearing          float64
	MinSafeDistance  int

	CellID            grid.CellID
	TailCells         []grid.CellID
	Destination       grid.CellID
	HasDestination    bool

	Strategy        Strategy
	SlowDownFactor  float64
	Cooperativity   float64

	TimerNonAcceleration int
	TimerNonManeuvers    int
	TimerNonSlowdown     int

	Agent AgentType

	// Transit/bus-stop dwell state (original_source movement.rs "bus transit
	// logic", supplemented per SPEC_FULL.md §10).
	TransitCells    []grid.CellID
	TransitDwell    int
	RelaxCountdown  int
	TransitsMade    int

	TravelTime int

	// LastIntermediateCells preserves the prior tick's intermediate cells
	// for the snapshot, since Intention is cleared once committed.
	LastIntermediateCells []grid.CellID

	Intention Intention

	retire bool
}

// TailSize returns the number of cells trailing the head.
func (v *Vehicle) TailSize() int { return len(v.TailCells) }

// Retire marks the vehicle for removal at the end of the mover pass.
func (v *Vehicle) Retire() { v.retire = true }

// Retiring reports whether the vehicle was marked for removal this tick.
func (v *Vehicle) Retiring() bool { return v.retire }

// Builder constructs a Vehicle fluently, mirroring grid.Builder and the
// original source's TripBuilder with_* chain.
type Builder struct {
	v Vehicle
}

// New starts building a Vehicle at the given starting cell.
func New(id ID, start grid.CellID) *Builder {
	return &Builder{v: Vehicle{
		ID:              id,
		CellID:          start,
		Destination:     grid.NoCell,
		Strategy:        StrategyCooperative,
		Cooperativity:   1,
	}}
}

func (b *Builder) WithTail(cells []grid.CellID) *Builder {
	b.v.TailCells = append([]grid.CellID(nil), cells...)
	return b
}

func (b *Builder) WithDestination(id grid.CellID) *Builder {
	b.v.Destination = id
	b.v.HasDestination = id.Valid()
	return b
}

func (b *Builder) WithSpeed(s int) *Builder           { b.v.Speed = s; return b }
func (b *Builder) WithSpeedLimit(s int) *Builder      { b.v.SpeedLimit = s; return b }
func (b *Builder) WithStrategy(s Strategy) *Builder   { b.v.Strategy = s; return b }
func (b *Builder) WithSlowDownFactor(f float64) *Builder { b.v.SlowDownFactor = f; return b }
func (b *Builder) WithCooperativity(c float64) *Builder  { b.v.Cooperativity = c; return b }
func (b *Builder) WithMinSafeDistance(d int) *Builder { b.v.MinSafeDistance = d; return b }
func (b *Builder) WithAgent(a AgentType) *Builder     { b.v.Agent = a; return b }
func (b *Builder) WithTransitCells(cells []grid.CellID, dwell int) *Builder {
	b.v.TransitCells = append([]grid.CellID(nil), cells...)
	b.v.TransitDwell = dwell
	return b
}

// ContainsTransitCell reports whether cell is one of the vehicle's declared
// bus-stop transit cells.
func (v *Vehicle) ContainsTransitCell(cell grid.CellID) bool {
	for _, c := range v.TransitCells {
		if c == cell {
			return true
		}
	}
	return false
}

func (b *Builder) Build() *Vehicle {
	v := b.v
	return &v
}
