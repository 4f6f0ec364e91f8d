// Package conflict enumerates and resolves contested cell claims: the
// conflict collector groups intentions by claimed cell and classifies
// them, the rule table picks a winner for ordinary pairwise Target/Transit
// contests, and the solver mutates losing intentions to Block.
package conflict

import (
	"runtime"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/LdDl/micro-traffic-sim-core-sub000/czone"
	"github.com/LdDl/micro-traffic-sim-core-sub000/grid"
	"github.com/LdDl/micro-traffic-sim-core-sub000/intent"
	"github.com/LdDl/micro-traffic-sim-core-sub000/vehicle"
)

// Type classifies a CellConflict.
type Type int8

const (
	ForwardLaneChange Type = iota
	BlockLaneChange
	MergeForward
	MergeLaneChange
	MergeForwardConflictZone
	CrossLaneChange
	CrossConflictZone
	Tail
	SelfTail
	TailCrossLaneChange
)

// CellConflict is produced by the collector per contested cell.
type CellConflict struct {
	CellID            grid.CellID
	Participants      []vehicle.ID
	PriorityParticipant int
	Type              Type
}

// SolverError indicates a malformed conflict record: fewer than 2
// participants, or a priority index out of range. This always indicates an
// upstream bug in the collector, never user input.
type SolverError struct {
	msg string
}

func (e *SolverError) Error() string { return "conflict: " + e.msg }

func newSolverError(format string, args ...interface{}) *SolverError {
	return &SolverError{msg: errors.Errorf(format, args...).Error()}
}

// Validate enforces the CellConflict invariant (skips SelfTail, which is
// allowed a single participant since it is a no-op marker).
func (c *CellConflict) Validate() error {
	if c.Type == SelfTail {
		return nil
	}
	if len(c.Participants) < 2 {
		return newSolverError("conflict at cell %d has %d participants, want >= 2", c.CellID, len(c.Participants))
	}
	if c.PriorityParticipant < 0 || c.PriorityParticipant >= len(c.Participants) {
		return newSolverError("conflict at cell %d has out-of-range priority index %d", c.CellID, c.PriorityParticipant)
	}
	return nil
}

// Vehicles is the read view the collector and solver need: vehicle lookup
// by id, and the vehicle's currently staged Intention.
type Vehicles interface {
	Get(id vehicle.ID) (*vehicle.Vehicle, bool)
}

// Collect scans every contested cell in idx (cells carrying 2+ claims from
// distinct vehicles) and emits one CellConflict per cell, classifying by
// the claim types present and, for Target/Transit-only contests, by the
// pairwise rule table. It then runs two further passes that find conflicts
// between claimants who never contest the *same* cell: crossing lane
// changes, whose claimed cells are merely adjacent, and conflict-zone edges
// whose two approaches target different cells but share intersection
// geometry.
func Collect(idx *intent.Index, cellOrder []grid.CellID, vehicles Vehicles, roads *grid.Roads, zones *czone.Registry, rng RNG) ([]CellConflict, error) {
	contested := lo.Filter(cellOrder, func(cell grid.CellID, _ int) bool {
		return len(idx.At(cell)) >= 2
	})
	zoneByCell := scanZones(contested, zones)

	var out []CellConflict
	for _, cell := range contested {
		claims := idx.At(cell)

		order := lo.Uniq(lo.Map(claims, func(c intent.CellIntention, _ int) vehicle.ID { return c.Vehicle }))
		byVehicle := map[vehicle.ID][]intent.CellIntention{}
		for _, c := range claims {
			byVehicle[c.Vehicle] = append(byVehicle[c.Vehicle], c)
		}

		if len(order) == 1 {
			// Single vehicle holds both a Target/Transit and a Tail claim
			// on the same cell: no-op at resolution.
			out = append(out, CellConflict{CellID: cell, Participants: order, Type: SelfTail})
			continue
		}

		hasTail := false
		for _, cs := range byVehicle {
			for _, c := range cs {
				if c.Kind == intent.Tail {
					hasTail = true
				}
			}
		}

		if hasTail {
			priority := tailPriorityIndex(order, byVehicle)
			out = append(out, CellConflict{
				CellID: cell, Participants: order,
				PriorityParticipant: priority, Type: Tail,
			})
			continue
		}

		conf, err := classifyTargetTransit(cell, order, byVehicle, vehicles, rng)
		if err != nil {
			return nil, err
		}

		if zone, ok := zoneByCell[cell]; ok {
			conf = applyZoneOverride(conf, zone)
		}

		out = append(out, conf)
	}

	crossings, err := detectCrossLaneChanges(idx, roads, vehicles, zones)
	if err != nil {
		return nil, err
	}
	out = append(out, crossings...)

	out = append(out, detectZoneCrossings(idx, roads, vehicles, zones)...)

	return out, nil
}

// scanZones looks up each contested cell's conflict zone membership across a
// worker pool bounded by runtime.NumCPU(), mirroring the bounded fan-out used
// elsewhere for per-cell scans that don't depend on each other's results.
func scanZones(cells []grid.CellID, zones *czone.Registry) map[grid.CellID]*czone.Zone {
	if len(cells) == 0 {
		return nil
	}
	found := make([]*czone.Zone, len(cells))

	workers := runtime.NumCPU()
	if workers > len(cells) {
		workers = len(cells)
	}
	chunk := (len(cells) + workers - 1) / workers

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		start, end := w*chunk, (w+1)*chunk
		if end > len(cells) {
			end = len(cells)
		}
		if start >= end {
			continue
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				if zone, ok := zones.ZoneFor(cells[i]); ok {
					found[i] = zone
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[grid.CellID]*czone.Zone, len(cells))
	for i, zone := range found {
		if zone != nil {
			out[cells[i]] = zone
		}
	}
	return out
}

// tailPriorityIndex gives priority to whichever claimant holds the Tail
// claim (a vehicle body cannot be driven through).
func tailPriorityIndex(order []vehicle.ID, byVehicle map[vehicle.ID][]intent.CellIntention) int {
	for i, id := range order {
		for _, c := range byVehicle[id] {
			if c.Kind == intent.Tail {
				return i
			}
		}
	}
	return 0
}

func applyZoneOverride(conf CellConflict, zone *czone.Zone) CellConflict {
	switch zone.Winner {
	case czone.WinnerFirst:
		conf.PriorityParticipant = 0
	case czone.WinnerSecond:
		if len(conf.Participants) > 1 {
			conf.PriorityParticipant = 1
		}
	}
	if conf.Type == CrossLaneChange || conf.Type == TailCrossLaneChange {
		conf.Type = CrossConflictZone
	} else {
		conf.Type = MergeForwardConflictZone
	}
	return conf
}

// laneChangeClaim is one vehicle's Target claim while attempting a lane
// change, gathered across every claimed cell (not just contested ones),
// since a crossing pair by definition targets two different cells.
type laneChangeClaim struct {
	vehicle  vehicle.ID
	target   grid.CellID
	maneuver vehicle.Maneuver
}

// detectCrossLaneChanges finds pairs of vehicles changing lanes in opposite
// directions whose claimed cells differ but whose paths cross: A, currently
// at cell X and changing lanes, has X's forward successor as its "mirror"
// cell; if another vehicle B claims that mirror cell while changing lanes
// the other way, their trajectories cross underneath both claims. Grounded
// on the original's find_cross_trajectories_conflict_naive.
func detectCrossLaneChanges(idx *intent.Index, roads *grid.Roads, vehicles Vehicles, zones *czone.Registry) ([]CellConflict, error) {
	if roads == nil {
		return nil, nil
	}

	tails := tailClaimants(idx)

	var changers []laneChangeClaim
	for _, cell := range idx.Cells() {
		for _, c := range idx.At(cell) {
			if c.Kind != intent.Target {
				continue
			}
			v, ok := vehicles.Get(c.Vehicle)
			if !ok {
				return nil, newSolverError("conflict at cell %d references unknown vehicle %d", cell, c.Vehicle)
			}
			if isLaneChangeManeuver(v.Intention.Maneuver) {
				changers = append(changers, laneChangeClaim{vehicle: c.Vehicle, target: cell, maneuver: v.Intention.Maneuver})
			}
		}
	}

	seen := map[[2]vehicle.ID]bool{}
	var out []CellConflict
	for _, a := range changers {
		av, ok := vehicles.Get(a.vehicle)
		if !ok {
			continue
		}
		source, err := roads.Get(av.CellID)
		if err != nil {
			// Dangling source cell is benign here: it's reported as a
			// planner-stage error well before conflict collection runs.
			continue
		}
		mirror := source.Forward
		if !mirror.Valid() || mirror == a.target {
			continue
		}
		for _, b := range changers {
			if b.vehicle == a.vehicle || b.target != mirror {
				continue
			}
			if !opposingLaneChange(a.maneuver, b.maneuver) {
				continue
			}
			key := unorderedPair(a.vehicle, b.vehicle)
			if seen[key] {
				continue
			}
			seen[key] = true

			conf := buildCrossConflict(a, b, tails)
			if zone, ok := zones.ZoneFor(conf.CellID); ok {
				conf = applyZoneOverride(conf, zone)
			}
			out = append(out, conf)
		}
	}
	return out, nil
}

// opposingLaneChange reports whether a and b are ChangeLeft/ChangeRight in
// some order (same-direction lane changes never cross).
func opposingLaneChange(a, b vehicle.Maneuver) bool {
	return (a == vehicle.ManeuverChangeLeft && b == vehicle.ManeuverChangeRight) ||
		(a == vehicle.ManeuverChangeRight && b == vehicle.ManeuverChangeLeft)
}

func unorderedPair(a, b vehicle.ID) [2]vehicle.ID {
	if a < b {
		return [2]vehicle.ID{a, b}
	}
	return [2]vehicle.ID{b, a}
}

// tailClaimants returns the set of vehicles holding any Tail claim this
// tick, used to tell a genuine crossing (CrossLaneChange) apart from one
// side already having an established tail across the mirror cell
// (TailCrossLaneChange, where the tail wins outright).
func tailClaimants(idx *intent.Index) map[vehicle.ID]bool {
	tails := map[vehicle.ID]bool{}
	for _, cell := range idx.Cells() {
		for _, c := range idx.At(cell) {
			if c.Kind == intent.Tail {
				tails[c.Vehicle] = true
			}
		}
	}
	return tails
}

// buildCrossConflict classifies a crossing lane-change pair: if exactly one
// side already has an established tail, that side wins outright
// (TailCrossLaneChange); otherwise it is a plain CrossLaneChange, which the
// solver resolves by the right-hand-traffic convention (left beats right).
func buildCrossConflict(a, b laneChangeClaim, tails map[vehicle.ID]bool) CellConflict {
	participants := []vehicle.ID{a.vehicle, b.vehicle}
	targets := []grid.CellID{a.target, b.target}
	leftIdx := 0
	if a.maneuver == vehicle.ManeuverChangeRight {
		leftIdx = 1
	}

	switch {
	case tails[a.vehicle] && !tails[b.vehicle]:
		return CellConflict{CellID: a.target, Participants: participants, PriorityParticipant: 0, Type: TailCrossLaneChange}
	case tails[b.vehicle] && !tails[a.vehicle]:
		return CellConflict{CellID: b.target, Participants: participants, PriorityParticipant: 1, Type: TailCrossLaneChange}
	default:
		return CellConflict{CellID: targets[leftIdx], Participants: participants, PriorityParticipant: leftIdx, Type: CrossLaneChange}
	}
}

// detectZoneCrossings finds conflict zones whose two edges target different
// cells (so the ordinary contested-cell pass never groups them together)
// but whose geometry is registered as crossing regardless: if both edges
// are claimed by a departing vehicle this tick, that is a CrossConflictZone
// resolved by the zone's declared winner.
func detectZoneCrossings(idx *intent.Index, roads *grid.Roads, vehicles Vehicles, zones *czone.Registry) []CellConflict {
	if roads == nil || zones == nil {
		return nil
	}

	var out []CellConflict
	for _, zone := range zones.All() {
		if zone.First.Target == zone.Second.Target {
			// Same-target zones are ordinary contested cells, already
			// handled by applyZoneOverride in the main collection loop.
			continue
		}
		first, ok1 := edgeClaimant(idx, vehicles, zone.First)
		second, ok2 := edgeClaimant(idx, vehicles, zone.Second)
		if !ok1 || !ok2 {
			continue
		}

		conf := CellConflict{
			CellID:       zone.First.Target,
			Participants: []vehicle.ID{first, second},
			Type:         CrossConflictZone,
		}
		if zone.Winner == czone.WinnerSecond {
			conf.PriorityParticipant = 1
		}
		out = append(out, conf)
	}
	return out
}

// edgeClaimant returns the vehicle claiming edge.Target this tick while
// departing from edge.Source, if any.
func edgeClaimant(idx *intent.Index, vehicles Vehicles, edge czone.Edge) (vehicle.ID, bool) {
	for _, c := range idx.At(edge.Target) {
		if c.Kind != intent.Target {
			continue
		}
		v, ok := vehicles.Get(c.Vehicle)
		if ok && v.CellID == edge.Source {
			return c.Vehicle, true
		}
	}
	return 0, false
}
