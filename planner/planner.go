// Package planner implements intention formation: per-vehicle pathfinding
// and desired-cell computation with acceleration, random slowdown, speed
// limits, maneuver-eligibility timers, and alternate-maneuver fallback.
package planner

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/LdDl/micro-traffic-sim-core-sub000/grid"
	"github.com/LdDl/micro-traffic-sim-core-sub000/intent"
	"github.com/LdDl/micro-traffic-sim-core-sub000/logging"
	"github.com/LdDl/micro-traffic-sim-core-sub000/router"
	"github.com/LdDl/micro-traffic-sim-core-sub000/vehicle"
)

// Occupancy answers "is some other vehicle currently sitting on this cell".
type Occupancy map[grid.CellID]vehicle.ID

// RightHandTiePreference, when true (the default), makes findAlternateIntention
// favor ChangeRight when both sides cost the same.
type RightHandTiePreference bool

const DefaultTiePreference RightHandTiePreference = true

// IntentionError is the taxonomy entry for pathfinding/cell-resolution
// failures encountered while planning.
type IntentionError struct {
	cause error
}

func (e *IntentionError) Error() string { return "planner: " + e.cause.Error() }
func (e *IntentionError) Unwrap() error { return e.cause }

// ScanTailManeuver walks tail_cells pairwise (and the final tail->head
// transition), classifying consecutive-pair relationships against each
// cell's successors. If any consecutive pair is reached via a left/right
// link rather than forward, the tail is mid-maneuver.
func ScanTailManeuver(roads *grid.Roads, v *vehicle.Vehicle) (vehicle.Maneuver, error) {
	chain := append(append([]grid.CellID{}, v.TailCells...), v.CellID)
	for i := 0; i+1 < len(chain); i++ {
		from, to := chain[i], chain[i+1]
		cell, err := roads.Get(from)
		if err != nil {
			return vehicle.ManeuverUndefined, &IntentionError{cause: err}
		}
		switch to {
		case cell.Left:
			return vehicle.ManeuverChangeLeft, nil
		case cell.Right:
			return vehicle.ManeuverChangeRight, nil
		}
	}
	return vehicle.ManeuverNoChange, nil
}

func isLaneChange(m vehicle.Maneuver) bool {
	return m == vehicle.ManeuverChangeLeft || m == vehicle.ManeuverChangeRight
}

// FindIntention produces a VehicleIntention for v given the current grid
// and occupancy snapshot.
func FindIntention(
	roads *grid.Roads,
	occupancy Occupancy,
	v *vehicle.Vehicle,
	rng *rand.Rand,
	log logging.Logger,
) (vehicle.Intention, error) {
	if v.Strategy == vehicle.StrategyBlock {
		return vehicle.Block(v.CellID), nil
	}

	sourceCell, err := roads.Get(v.CellID)
	if err != nil {
		return vehicle.Intention{}, &IntentionError{cause: err}
	}

	tailManeuver, err := ScanTailManeuver(roads, v)
	if err != nil {
		return vehicle.Intention{}, err
	}

	speedLimit := min(sourceCell.SpeedLimit, v.SpeedLimit)
	if speedLimit < 0 {
		return vehicle.Intention{}, &IntentionError{cause: errors.Errorf("negative speed limit at cell %d", v.CellID)}
	}
	if speedLimit == 0 {
		return vehicle.Block(v.CellID), nil
	}

	intentionSpeed := min(v.Speed, speedLimit)
	speedPossible := intentionSpeed
	if v.TimerNonAcceleration <= 0 {
		speedPossible = min(intentionSpeed+1, speedLimit)
	}

	if rng != nil && v.TimerNonSlowdown <= 0 && intentionSpeed > 0 && rng.Float64() < v.SlowDownFactor {
		intentionSpeed--
	}

	observeDistance := speedPossible + v.MinSafeDistance
	maneuversAllowed := v.TimerNonManeuvers <= 0 && !isLaneChange(tailManeuver)

	var path *router.Path
	if v.HasDestination {
		path, err = router.Shortest(roads, v.CellID, v.Destination, router.ManeuverAllowed(maneuversAllowed), observeDistance+1)
		if err != nil {
			if _, ok := err.(*router.NoPathFoundError); ok {
				result := processNoRouteFound(roads, v)
				log.Debugw("planner: no route found, falling back to single-step", "vehicle", v.ID)
				return result, nil
			}
			return vehicle.Intention{}, &IntentionError{cause: err}
		}
	} else {
		path, err = router.PathNoGoal(roads, v.CellID, observeDistance+1)
		if err != nil {
			return vehicle.Intention{}, &IntentionError{cause: err}
		}
	}

	obs, err := processPath(roads, path, v.Destination, v.HasDestination, speedPossible, occupancy)
	if err != nil {
		return vehicle.Intention{}, err
	}

	result := assembleIntention(v, obs)
	if result.ShouldStop {
		alt, ok := findAlternateIntention(roads, occupancy, v, DefaultTiePreference)
		if ok {
			log.Debugw("planner: alternate maneuver chosen", "vehicle", v.ID, "maneuver", alt.Maneuver)
			return alt, nil
		}
	}
	return result, nil
}

// processNoRouteFound attempts one step forward, then right, then left;
// if all three are absent it returns Block(0). The fallback always sets
// speed=1, confusion=true and reassigns destination to the chosen cell.
func processNoRouteFound(roads *grid.Roads, v *vehicle.Vehicle) vehicle.Intention {
	cell, err := roads.Get(v.CellID)
	if err != nil {
		return vehicle.Block(v.CellID)
	}
	for _, candidate := range []grid.CellID{cell.Forward, cell.Right, cell.Left} {
		if candidate.Valid() {
			return vehicle.Intention{
				CellID:       candidate,
				Speed:        1,
				Maneuver:     vehicle.ManeuverNoChange,
				Confusion:    true,
				Destination:  candidate,
				HasDestination: true,
			}
		}
	}
	return vehicle.Block(v.CellID)
}

type stopReason int8

const (
	stopReachedCount stopReason = iota
	stopManeuver
	stopOccupied
	stopBanned
	stopSpeedLimit
)

type observablePath struct {
	vertices []grid.CellID
	reason   stopReason
	maneuver vehicle.Maneuver
}

// processPath consumes the router's path and produces the achievable
// prefix of cells the vehicle can actually advance into this tick.
func processPath(
	roads *grid.Roads,
	path *router.Path,
	destination grid.CellID,
	hasDestination bool,
	speedPossible int,
	occupancy Occupancy,
) (*observablePath, error) {
	full := path.Vertices
	if len(full) == 0 {
		return &observablePath{reason: stopBanned}, nil
	}

	verts := full[1:]
	mans := path.Maneuvers

	// The final vertex of a depth-limited search is just wherever the
	// search stopped popping/expanding, not a meaningful waypoint -- drop
	// it, unless the search legitimately ended there (goal reached, or
	// road ran out) rather than being cut short by max_depth.
	keepLast := len(verts) > 0 && (!path.Truncated || (hasDestination && verts[len(verts)-1] == destination))
	if !keepLast && len(verts) > 0 {
		verts = verts[:len(verts)-1]
		if len(mans) > 0 {
			mans = mans[:len(mans)-1]
		}
	}

	obs := &observablePath{reason: stopReachedCount}
	for i, cell := range verts {
		var man vehicle.Maneuver
		if i < len(mans) {
			man = mans[i]
		}
		if man != vehicle.ManeuverNoChange && man != vehicle.ManeuverUndefined {
			obs.reason = stopManeuver
			obs.maneuver = man
			break
		}
		if _, occupied := occupancy[cell]; occupied {
			obs.reason = stopOccupied
			break
		}
		cellData, err := roads.Get(cell)
		if err != nil {
			return nil, &IntentionError{cause: err}
		}
		if cellData.State != grid.Free {
			obs.reason = stopBanned
			break
		}
		if speedPossible > cellData.SpeedLimit {
			if len(obs.vertices) == 0 {
				obs.vertices = append(obs.vertices, cell)
			}
			obs.reason = stopSpeedLimit
			break
		}
		obs.vertices = append(obs.vertices, cell)
		if len(obs.vertices) >= speedPossible {
			break
		}
	}
	return obs, nil
}

func assembleIntention(v *vehicle.Vehicle, obs *observablePath) vehicle.Intention {
	if len(obs.vertices) > 0 {
		last := len(obs.vertices) - 1
		maneuver := vehicle.ManeuverNoChange
		if obs.reason == stopManeuver {
			maneuver = obs.maneuver
		}
		return vehicle.Intention{
			CellID:            obs.vertices[last],
			Speed:             len(obs.vertices),
			Maneuver:          maneuver,
			IntermediateCells: append([]grid.CellID{}, obs.vertices[:last]...),
		}
	}
	if obs.reason == stopBanned {
		return vehicle.Block(v.CellID)
	}
	b := vehicle.Block(v.CellID)
	b.ShouldStop = true
	return b
}

// findAlternateIntention is tried when should_stop is set: for left and
// right successors of the source, if free and unoccupied, compute
// A*(neighbor -> destination) with maneuvers enabled and take the minimum
// of (edge cost + residual A* cost).
func findAlternateIntention(
	roads *grid.Roads,
	occupancy Occupancy,
	v *vehicle.Vehicle,
	tieGoesRight RightHandTiePreference,
) (vehicle.Intention, bool) {
	source, err := roads.Get(v.CellID)
	if err != nil || !v.HasDestination {
		return vehicle.Intention{}, false
	}

	type side struct {
		maneuver vehicle.Maneuver
		cell     grid.CellID
		cost     float64
		viable   bool
	}
	maxDepth := v.Speed
	if maxDepth <= 0 {
		maxDepth = 1
	}

	evaluate := func(candidate grid.CellID, maneuver vehicle.Maneuver) side {
		if !candidate.Valid() {
			return side{}
		}
		if _, occupied := occupancy[candidate]; occupied {
			return side{}
		}
		neighborCell, err := roads.Get(candidate)
		if err != nil || neighborCell.State != grid.Free {
			return side{}
		}
		p, err := router.Shortest(roads, candidate, v.Destination, router.ManeuversAllowed, maxDepth)
		if err != nil {
			return side{}
		}
		return side{maneuver: maneuver, cell: candidate, cost: p.Cost, viable: true}
	}

	left := evaluate(source.Left, vehicle.ManeuverChangeLeft)
	right := evaluate(source.Right, vehicle.ManeuverChangeRight)

	var chosen side
	switch {
	case left.viable && right.viable:
		switch {
		case left.cost < right.cost:
			chosen = left
		case right.cost < left.cost:
			chosen = right
		case bool(tieGoesRight):
			chosen = right
		default:
			chosen = left
		}
	case left.viable:
		chosen = left
	case right.viable:
		chosen = right
	default:
		return vehicle.Intention{}, false
	}

	return vehicle.Intention{
		CellID:   chosen.cell,
		Speed:    1,
		Maneuver: chosen.maneuver,
	}, true
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
