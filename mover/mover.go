// Package mover applies the surviving, conflict-resolved intentions:
// updates bearing, tail cells, timers, commits the head move (subject to
// relax-countdown dwell), and flags vehicles for retirement.
package mover

import (
	"fmt"

	"github.com/LdDl/micro-traffic-sim-core-sub000/geo"
	"github.com/LdDl/micro-traffic-sim-core-sub000/grid"
	"github.com/LdDl/micro-traffic-sim-core-sub000/vehicle"
)

// Error is the taxonomy entry for a committed intention_cell_id that does
// not resolve in the grid.
type Error struct {
	CellID grid.CellID
}

func (e *Error) Error() string {
	return fmt.Sprintf("mover: intention cell %d not found", e.CellID)
}

// Commit applies v's staged Intention and marks v with Retire() if it
// retired this tick (off-route exit through a Death zone, or destination
// reached); it returns an error only for a cell that does not resolve. The
// caller is responsible for sweeping retired vehicles out of the
// population in one pass after every vehicle has been committed, so that
// conflict detection for this tick still saw the retiring vehicle's cell
// as occupied.
func Commit(v *vehicle.Vehicle, roads *grid.Roads) error {
	in := &v.Intention
	moving := v.CellID != in.CellID

	if moving {
		srcCell, err := roads.Get(v.CellID)
		if err != nil {
			return &Error{CellID: v.CellID}
		}
		dstCell, err := roads.Get(in.CellID)
		if err != nil {
			return &Error{CellID: in.CellID}
		}
		v.Bearing = geo.Bearing(srcCell.Point, dstCell.Point)
		decrementPositive(&v.TimerNonAcceleration)
		decrementPositive(&v.TimerNonManeuvers)
		decrementPositive(&v.TimerNonSlowdown)
	}

	if moving && v.TailSize() > 0 {
		v.TailCells = in.TailIntentionCells
	}

	if in.Maneuver == vehicle.ManeuverChangeLeft || in.Maneuver == vehicle.ManeuverChangeRight {
		// A committed lane change always holds the timers strictly positive,
		// even for a tailless car, so the maneuver can't be immediately
		// repeated the very next tick.
		size := v.TailSize()
		if size < 1 {
			size = 1
		}
		v.TimerNonAcceleration = size
		v.TimerNonManeuvers = size
		v.TimerNonSlowdown = size
	}

	finalCell := in.CellID
	dwelling := v.RelaxCountdown > 0
	if dwelling {
		v.RelaxCountdown--
		finalCell = v.CellID
	}

	v.Speed = in.Speed
	if in.HasDestination {
		v.Destination = in.Destination
		v.HasDestination = true
	}
	v.CellID = finalCell

	if v.Agent == vehicle.AgentBus || v.Agent == vehicle.AgentLargeBus {
		if moving && !dwelling && v.ContainsTransitCell(v.CellID) {
			v.RelaxCountdown = v.TransitDwell
			v.TransitsMade++
		}
	}

	v.TravelTime++

	cell, err := roads.Get(v.CellID)
	if err != nil {
		return &Error{CellID: v.CellID}
	}
	offRouteExit := cell.Zone == grid.ZoneDeath && (!v.HasDestination || v.CellID != v.Destination)
	reachedDestination := v.HasDestination && v.CellID == v.Destination
	if offRouteExit || reachedDestination {
		v.Retire()
	}

	// Intentions live exactly one tick; clear it now that it's committed,
	// preserving the intermediate cells for this tick's snapshot.
	v.LastIntermediateCells = in.IntermediateCells
	v.Intention = vehicle.Intention{}
	return nil
}

func decrementPositive(timer *int) {
	if *timer > 0 {
		*timer--
	}
}

// Sweep removes every retired vehicle from vehicles in one pass, preserving
// the relative order of survivors.
func Sweep(vehicles []*vehicle.Vehicle) []*vehicle.Vehicle {
	survivors := vehicles[:0]
	for _, v := range vehicles {
		if !v.Retiring() {
			survivors = append(survivors, v)
		}
	}
	return survivors
}
