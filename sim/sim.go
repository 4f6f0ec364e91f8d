// Package sim wires the cell graph, traffic lights, conflict zones, trip
// producer, and vehicle population into the single deterministic Step
// pipeline: trip sources, signal controller, intention planner, conflict
// collector, conflict solver, mover, state snapshot.
package sim

import (
	"math/rand"

	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/LdDl/micro-traffic-sim-core-sub000/conflict"
	"github.com/LdDl/micro-traffic-sim-core-sub000/czone"
	"github.com/LdDl/micro-traffic-sim-core-sub000/grid"
	"github.com/LdDl/micro-traffic-sim-core-sub000/intent"
	"github.com/LdDl/micro-traffic-sim-core-sub000/logging"
	"github.com/LdDl/micro-traffic-sim-core-sub000/mover"
	"github.com/LdDl/micro-traffic-sim-core-sub000/planner"
	"github.com/LdDl/micro-traffic-sim-core-sub000/tlight"
	"github.com/LdDl/micro-traffic-sim-core-sub000/trip"
	"github.com/LdDl/micro-traffic-sim-core-sub000/vehicle"
)

// Engine owns every mutable piece of simulation state and is the sole
// mutation entry point: Step runs to completion or returns an error and
// leaves the previous tick's committed state as the last successful one
// (callers must discard a failed tick rather than retry in place).
type Engine struct {
	roads  *grid.Roads
	zones  *czone.Registry
	lights []*tlight.Light

	vehicles map[vehicle.ID]*vehicle.Vehicle
	order    []vehicle.ID

	producer trip.Producer

	rng         *rand.Rand
	nextVehicle atomic.Uint64
	tick        atomic.Int64
	log         logging.Logger
}

// New constructs an Engine over roads, seeded deterministically. log may be
// logging.NewTest() when callers don't care about structured output.
func New(roads *grid.Roads, seed int64, log logging.Logger) *Engine {
	if log == nil {
		log = logging.NewTest()
	}
	return &Engine{
		roads:    roads,
		zones:    czone.NewRegistry(),
		vehicles: make(map[vehicle.ID]*vehicle.Vehicle),
		rng:      rand.New(rand.NewSource(seed)),
		log:      log,
	}
}

// SetZones replaces the conflict-zone registry.
func (e *Engine) SetZones(z *czone.Registry) { e.zones = z }

// SetProducer installs the trip producer S1 calls each tick.
func (e *Engine) SetProducer(p trip.Producer) { e.producer = p }

// AddLight registers a traffic light to be stepped at S2.
func (e *Engine) AddLight(l *tlight.Light) { e.lights = append(e.lights, l) }

// AddVehicle inserts v directly (bypassing the trip producer), e.g. for
// seeded test scenarios.
func (e *Engine) AddVehicle(v *vehicle.Vehicle) {
	e.vehicles[v.ID] = v
	e.order = append(e.order, v.ID)
}

// allocVehicleID hands out a fresh id for vehicles the trip producer spawns.
func (e *Engine) allocVehicleID() vehicle.ID {
	return vehicle.ID(e.nextVehicle.Inc())
}

// Get satisfies conflict.Vehicles: the read view the collector and solver
// need into the live vehicle population.
func (e *Engine) Get(id vehicle.ID) (*vehicle.Vehicle, bool) {
	v, ok := e.vehicles[id]
	return v, ok
}

// Tick returns the number of steps started; a Step that returns an error
// still advances it.
func (e *Engine) Tick() int { return int(e.tick.Load()) }

// VehicleCount returns the live vehicle population size.
func (e *Engine) VehicleCount() int { return len(e.order) }

// Step executes S1-S7 once.
func (e *Engine) Step() (*Snapshot, error) {
	tick := int(e.tick.Inc())

	// S1 - trip sources.
	if e.producer != nil {
		for _, v := range e.producer.Produce(tick, e.allocVehicleID) {
			e.AddVehicle(v)
		}
	}

	// S2 - signal controller.
	for _, l := range e.lights {
		if err := l.Step(e.roads); err != nil {
			return nil, err
		}
	}

	// S3 - intention planner.
	occupancy := planner.Occupancy{}
	for _, id := range e.order {
		v := e.vehicles[id]
		occupancy[v.CellID] = v.ID
	}

	var planErr error
	for _, id := range e.order {
		v := e.vehicles[id]
		in, err := planner.FindIntention(e.roads, occupancy, v, e.rng, e.log)
		if err != nil {
			planErr = multierr.Append(planErr, err)
			continue
		}
		v.Intention = in
	}
	if planErr != nil {
		return nil, planErr
	}

	idx := intent.NewIndex()
	for _, id := range e.order {
		planner.Aggregate(e.vehicles[id], idx)
	}

	// S4 - conflict collector.
	conflicts, err := conflict.Collect(idx, idx.Cells(), e, e.roads, e.zones, e.rng)
	if err != nil {
		return nil, err
	}

	// S5 - conflict solver.
	if err := conflict.Solve(conflicts, e); err != nil {
		return nil, err
	}

	// S6 - mover.
	var moveErr error
	for _, id := range e.order {
		if err := mover.Commit(e.vehicles[id], e.roads); err != nil {
			moveErr = multierr.Append(moveErr, err)
		}
	}
	if moveErr != nil {
		return nil, moveErr
	}

	// S7 - state snapshot. Taken before the retirement sweep so a vehicle
	// that reached its destination or exited through a Death zone this
	// tick still reports its final state.
	snap := e.snapshot()

	survivors := make([]*vehicle.Vehicle, 0, len(e.order))
	for _, id := range e.order {
		survivors = append(survivors, e.vehicles[id])
	}
	survivors = mover.Sweep(survivors)
	e.order = e.order[:0]
	e.vehicles = make(map[vehicle.ID]*vehicle.Vehicle, len(survivors))
	for _, v := range survivors {
		e.vehicles[v.ID] = v
		e.order = append(e.order, v.ID)
	}

	return snap, nil
}

// VehicleState is one vehicle's immutable per-tick snapshot.
type VehicleState struct {
	ID                ID
	CellID            grid.CellID
	TailCells         []grid.CellID
	IntermediateCells []grid.CellID
	Speed             int
	Bearing           float64
	TravelTime        int
}

// ID is re-exported for snapshot consumers that don't want to import
// vehicle directly.
type ID = vehicle.ID

// LightState is one signal's immutable per-tick snapshot.
type LightState struct {
	ID          tlight.ID
	ActivePhase int
}

// Snapshot is the immutable per-tick view S7 emits.
type Snapshot struct {
	Tick     int
	Vehicles []VehicleState
	Lights   []LightState
}

func (e *Engine) snapshot() *Snapshot {
	snap := &Snapshot{Tick: int(e.tick.Load())}
	for _, id := range e.order {
		v := e.vehicles[id]
		snap.Vehicles = append(snap.Vehicles, VehicleState{
			ID:                v.ID,
			CellID:            v.CellID,
			TailCells:         append([]grid.CellID(nil), v.TailCells...),
			IntermediateCells: append([]grid.CellID(nil), v.LastIntermediateCells...),
			Speed:             v.Speed,
			Bearing:           v.Bearing,
			TravelTime:        v.TravelTime,
		})
	}
	for _, l := range e.lights {
		snap.Lights = append(snap.Lights, LightState{ID: l.ID, ActivePhase: l.ActivePhase()})
	}
	return snap
}
