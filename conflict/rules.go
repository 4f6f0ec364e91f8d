package conflict

import (
	"github.com/LdDl/micro-traffic-sim-core-sub000/grid"
	"github.com/LdDl/micro-traffic-sim-core-sub000/intent"
	"github.com/LdDl/micro-traffic-sim-core-sub000/vehicle"
)

// RNG is the minimal interface the R2 50/50 tie-break needs; satisfied by
// *math/rand.Rand.
type RNG interface {
	Float64() float64
}

type claimant struct {
	id            vehicle.ID
	kind          intent.Kind
	maneuver      vehicle.Maneuver
	strategy      vehicle.Strategy
	speed         int
	cooperativity float64
}

func isLaneChangeManeuver(m vehicle.Maneuver) bool {
	return m == vehicle.ManeuverChangeLeft || m == vehicle.ManeuverChangeRight
}

// classifyTargetTransit implements the pairwise rule table (R1-R5) over a
// contested cell's Target/Transit-only claimants, folding left across 3+
// participants: the winner of (p0, p1) is compared against p2, and so on,
// so the final conflict type is whichever rule fired last.
func classifyTargetTransit(
	cell grid.CellID,
	order []vehicle.ID,
	byVehicle map[vehicle.ID][]intent.CellIntention,
	vehicles Vehicles,
	rng RNG,
) (CellConflict, error) {
	claimants := make([]claimant, len(order))
	for i, id := range order {
		v, ok := vehicles.Get(id)
		if !ok {
			return CellConflict{}, newSolverError("conflict at cell %d references unknown vehicle %d", cell, id)
		}
		claimants[i] = claimant{
			id:            id,
			kind:          byVehicle[id][0].Kind,
			maneuver:      v.Intention.Maneuver,
			strategy:      v.Strategy,
			speed:         v.Intention.Speed,
			cooperativity: v.Cooperativity,
		}
	}

	winnerIdx := 0
	dominant := MergeForward
	for i := 1; i < len(claimants); i++ {
		aWins, typ := resolvePair(claimants[winnerIdx], claimants[i], rng)
		dominant = typ
		if !aWins {
			winnerIdx = i
		}
	}

	return CellConflict{
		CellID:              cell,
		Participants:        order,
		PriorityParticipant: winnerIdx,
		Type:                dominant,
	}, nil
}

// resolvePair evaluates R1-R5 top-down for an (a, b) claimant pair and
// returns whether a wins.
func resolvePair(a, b claimant, rng RNG) (aWins bool, typ Type) {
	// R1: both attempting a lane change.
	if isLaneChangeManeuver(a.maneuver) && isLaneChangeManeuver(b.maneuver) {
		switch {
		case a.strategy == vehicle.StrategyAggressive && b.strategy == vehicle.StrategyCooperative:
			return true, MergeLaneChange
		case b.strategy == vehicle.StrategyAggressive && a.strategy == vehicle.StrategyCooperative:
			return false, MergeLaneChange
		case a.maneuver == vehicle.ManeuverChangeLeft && b.maneuver == vehicle.ManeuverChangeRight:
			return true, MergeLaneChange
		case b.maneuver == vehicle.ManeuverChangeLeft && a.maneuver == vehicle.ManeuverChangeRight:
			return false, MergeLaneChange
		default:
			return true, MergeLaneChange
		}
	}

	// R2: both NoChange.
	if a.maneuver == vehicle.ManeuverNoChange && b.maneuver == vehicle.ManeuverNoChange {
		switch {
		case a.strategy == vehicle.StrategyAggressive && b.strategy == vehicle.StrategyCooperative:
			return true, MergeForward
		case b.strategy == vehicle.StrategyAggressive && a.strategy == vehicle.StrategyCooperative:
			return false, MergeForward
		case a.kind != b.kind:
			// Transit beats Target outright: the traveler already in motion
			// through this cell reaches it first, regardless of speed or
			// cooperativity.
			return a.kind == intent.Transit, MergeForward
		case a.speed != b.speed:
			return a.speed > b.speed, MergeForward
		case a.cooperativity != b.cooperativity:
			return a.cooperativity < b.cooperativity, MergeForward
		default:
			return rng.Float64() < 0.5, MergeForward
		}
	}

	// R3: one NoChange, the other lane-changing -> the NoChange claimant
	// wins (it isn't the one creating the contested maneuver).
	if a.maneuver == vehicle.ManeuverNoChange && isLaneChangeManeuver(b.maneuver) {
		return true, ForwardLaneChange
	}
	if b.maneuver == vehicle.ManeuverNoChange && isLaneChangeManeuver(a.maneuver) {
		return false, ForwardLaneChange
	}

	// R4/R5: whichever claimant is Blocked wins (its "claim" is really just
	// staying put, so it cannot be preempted by the other's attempt).
	if a.maneuver == vehicle.ManeuverBlock {
		return true, BlockLaneChange
	}
	if b.maneuver == vehicle.ManeuverBlock {
		return false, BlockLaneChange
	}

	return true, MergeForward
}
