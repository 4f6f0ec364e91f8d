// Package trip defines the trip-producer contract S1 consumes: each tick,
// zero or more fully-built vehicles are yielded for insertion into the
// simulation.
package trip

import (
	"github.com/google/uuid"

	"github.com/LdDl/micro-traffic-sim-core-sub000/grid"
	"github.com/LdDl/micro-traffic-sim-core-sub000/vehicle"
)

// Type distinguishes how a Trip decides to fire in a given tick.
type Type int8

const (
	TypePeriodic Type = iota
	TypeProbabilistic
)

// Trip is specified only by its source/target, timing, and the agent it is
// allowed to spawn — the factory that actually builds a *vehicle.Vehicle is
// supplied by the caller (Factory), keeping trip.Trip itself free of
// simulation-internal construction details.
type Trip struct {
	ID                 uint64
	Type               Type
	FromCell, ToCell    grid.CellID
	Period             int
	Probability        float64
	AllowedAgentType    vehicle.AgentType
	AllowedBehaviour    vehicle.Strategy
	StartTime, EndTime  int
	VehicleTailSize     int
	SpeedLimit          int
	InitialSpeed        int

	elapsed int
}

// Factory builds the vehicle a firing Trip should insert. Kept separate
// from Trip so the same trip definition can be reused across independent
// simulation runs with different id allocators.
type Factory func(t *Trip, nextID vehicle.ID) *vehicle.Vehicle

// Producer is the external collaborator S1 calls each tick.
type Producer interface {
	// Produce returns zero or more vehicles to insert this tick, given the
	// current tick index and an id allocator.
	Produce(tick int, nextID func() vehicle.ID) []*vehicle.Vehicle
}

// PeriodicProducer is a concrete, testable Producer: it fires each Trip on
// its period (or, for probabilistic trips, with its declared probability)
// as long as the tick falls within [StartTime, EndTime). An EndTime of 0 or
// less means the window has no upper bound.
type PeriodicProducer struct {
	trips   []*Trip
	build   Factory
	rng     interface{ Float64() float64 }
	session uuid.UUID
}

// NewPeriodicProducer returns a Producer over the given trips, using build
// to materialize a vehicle when a trip fires. rng supplies the draw for
// probabilistic trips; pass nil to disable them (they never fire). Each
// producer mints its own session id, used only to correlate its log lines
// across a run.
func NewPeriodicProducer(trips []*Trip, build Factory, rng interface{ Float64() float64 }) *PeriodicProducer {
	return &PeriodicProducer{trips: trips, build: build, rng: rng, session: uuid.New()}
}

// Session returns the producer's run-correlation id.
func (p *PeriodicProducer) Session() uuid.UUID { return p.session }

func (p *PeriodicProducer) Produce(tick int, nextID func() vehicle.ID) []*vehicle.Vehicle {
	var out []*vehicle.Vehicle
	for _, t := range p.trips {
		if tick < t.StartTime || (t.EndTime > 0 && tick >= t.EndTime) {
			continue
		}

		fire := false
		switch t.Type {
		case TypePeriodic:
			if t.Period <= 0 {
				continue
			}
			t.elapsed++
			if t.elapsed >= t.Period {
				t.elapsed = 0
				fire = true
			}
		case TypeProbabilistic:
			if p.rng != nil && p.rng.Float64() < t.Probability {
				fire = true
			}
		}

		if fire && p.build != nil {
			out = append(out, p.build(t, nextID()))
		}
	}
	return out
}
