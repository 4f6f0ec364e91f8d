package conflict

import "github.com/LdDl/micro-traffic-sim-core-sub000/vehicle"

// Solve consumes the list of CellConflict and mutates losing intentions to
// Block, leaving the winner's claim intact. After Solve returns
// successfully, for every cell at most one vehicle holds a Target claim
// with nonzero intention speed.
func Solve(conflicts []CellConflict, vehicles Vehicles) error {
	for _, c := range conflicts {
		if err := c.Validate(); err != nil {
			return err
		}
		switch c.Type {
		case SelfTail:
			continue
		case CrossLaneChange:
			applyCrossLaneChange(c, vehicles)
		case TailCrossLaneChange:
			applyPriorityOnlySurvives(c, vehicles)
		case CrossConflictZone:
			applyConflictZoneYield(c, vehicles)
		default:
			applyCommonResolution(c, vehicles)
		}
	}
	return nil
}

// applyCommonResolution covers Tail, ForwardLaneChange, BlockLaneChange,
// MergeForward, MergeLaneChange and MergeForwardConflictZone: every
// non-priority participant is forced to stay in place, and a lane-changing
// winner has its advance clamped to a single cell.
func applyCommonResolution(c CellConflict, vehicles Vehicles) {
	for i, id := range c.Participants {
		v, ok := vehicles.Get(id)
		if !ok {
			continue
		}
		if i == c.PriorityParticipant {
			if isLaneChangeManeuver(v.Intention.Maneuver) {
				v.Intention.Speed = 1
				v.Intention.CellID = c.CellID
			}
			continue
		}
		v.Intention = vehicle.Block(v.CellID)
	}
}

// applyCrossLaneChange forces the right-changer to Block(0) and lets the
// left-changer through at speed 1, per the right-hand-traffic convention.
func applyCrossLaneChange(c CellConflict, vehicles Vehicles) {
	for _, id := range c.Participants {
		v, ok := vehicles.Get(id)
		if !ok {
			continue
		}
		switch v.Intention.Maneuver {
		case vehicle.ManeuverChangeRight:
			v.Intention = vehicle.Block(v.CellID)
		case vehicle.ManeuverChangeLeft:
			v.Intention.Speed = 1
		}
	}
}

// applyPriorityOnlySurvives blocks every non-priority participant,
// used for TailCrossLaneChange where the established tail wins over the
// tail-initiator.
func applyPriorityOnlySurvives(c CellConflict, vehicles Vehicles) {
	for i, id := range c.Participants {
		if i == c.PriorityParticipant {
			continue
		}
		v, ok := vehicles.Get(id)
		if !ok {
			continue
		}
		v.Intention = vehicle.Block(v.CellID)
	}
}

// applyConflictZoneYield holds every non-priority participant at its
// current cell with a Block intention of speed 1 (not speed 0) while the
// zone's declared winner proceeds.
func applyConflictZoneYield(c CellConflict, vehicles Vehicles) {
	for i, id := range c.Participants {
		if i == c.PriorityParticipant {
			continue
		}
		v, ok := vehicles.Get(id)
		if !ok {
			continue
		}
		v.Intention.Speed = 1
		v.Intention.Maneuver = vehicle.ManeuverBlock
		v.Intention.CellID = v.CellID
		v.Intention.IntermediateCells = nil
	}
}
