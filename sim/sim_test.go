package sim

import (
	"testing"

	"go.viam.com/test"

	"github.com/LdDl/micro-traffic-sim-core-sub000/czone"
	"github.com/LdDl/micro-traffic-sim-core-sub000/geo"
	"github.com/LdDl/micro-traffic-sim-core-sub000/grid"
	"github.com/LdDl/micro-traffic-sim-core-sub000/logging"
	"github.com/LdDl/micro-traffic-sim-core-sub000/vehicle"
)

func straightRoads(n int, speedLimit int, lastZone grid.ZoneKind) *grid.Roads {
	r := grid.NewRoads()
	for i := 1; i <= n; i++ {
		b := grid.New(grid.CellID(i)).WithPoint(geo.Point{X: float64(i - 1), Y: 0}).WithSpeedLimit(speedLimit)
		if i < n {
			b = b.WithForward(grid.CellID(i + 1))
		}
		if i == n {
			b = b.WithZone(lastZone)
		}
		r.Add(b.Build())
	}
	return r
}

// S1 - straight line advance.
func TestStepStraightLineAdvance(t *testing.T) {
	roads := straightRoads(20, 4, grid.ZoneUndefined)
	e := New(roads, 1, logging.NewTest())
	e.AddVehicle(vehicle.New(vehicle.ID(1), grid.CellID(1)).
		WithDestination(grid.CellID(20)).
		WithSpeed(2).
		WithSpeedLimit(2).
		Build())

	snap, err := e.Step()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, snap.Vehicles[0].CellID, test.ShouldEqual, grid.CellID(3))
	test.That(t, snap.Vehicles[0].IntermediateCells, test.ShouldResemble, []grid.CellID{grid.CellID(2)})

	for i := 0; i < 8; i++ {
		snap, err = e.Step()
		test.That(t, err, test.ShouldBeNil)
	}
	test.That(t, snap.Vehicles[0].CellID, test.ShouldEqual, grid.CellID(19))

	snap, err = e.Step()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e.VehicleCount(), test.ShouldEqual, 0)
}

// S6 - dead-end retirement.
func TestStepDeadEndRetirement(t *testing.T) {
	roads := straightRoads(8, 4, grid.ZoneDeath)
	e := New(roads, 1, logging.NewTest())
	e.AddVehicle(vehicle.New(vehicle.ID(1), grid.CellID(1)).
		WithDestination(grid.NoCell).
		WithSpeed(1).
		WithSpeedLimit(1).
		Build())

	var snap *Snapshot
	var err error
	for i := 0; i < 6; i++ {
		snap, err = e.Step()
		test.That(t, err, test.ShouldBeNil)
	}
	test.That(t, snap.Vehicles[0].CellID, test.ShouldEqual, grid.CellID(7))
	test.That(t, e.VehicleCount(), test.ShouldEqual, 1)

	snap, err = e.Step()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, snap.Vehicles[0].CellID, test.ShouldEqual, grid.CellID(8))
	test.That(t, e.VehicleCount(), test.ShouldEqual, 0)
}

// S3 - merge conflict, aggressive wins.
func TestStepMergeConflictAggressiveWins(t *testing.T) {
	roads := grid.NewRoads()
	chainA := []grid.CellID{1, 2, 3}
	chainB := []grid.CellID{11, 12, 13}
	merge := grid.CellID(100)

	for i, id := range chainA {
		b := grid.New(id).WithPoint(geo.Point{X: float64(i), Y: 0}).WithSpeedLimit(4)
		if i < len(chainA)-1 {
			b = b.WithForward(chainA[i+1])
		} else {
			b = b.WithForward(merge)
		}
		roads.Add(b.Build())
	}
	for i, id := range chainB {
		b := grid.New(id).WithPoint(geo.Point{X: float64(i), Y: 10}).WithSpeedLimit(4)
		if i < len(chainB)-1 {
			b = b.WithForward(chainB[i+1])
		} else {
			b = b.WithForward(merge)
		}
		roads.Add(b.Build())
	}
	roads.Add(grid.New(merge).WithPoint(geo.Point{X: 3, Y: 5}).WithSpeedLimit(4).Build())

	e := New(roads, 1, logging.NewTest())
	e.AddVehicle(vehicle.New(vehicle.ID(1), grid.CellID(3)).
		WithDestination(merge).
		WithSpeed(1).WithSpeedLimit(1).
		WithStrategy(vehicle.StrategyAggressive).
		Build())
	e.AddVehicle(vehicle.New(vehicle.ID(2), grid.CellID(13)).
		WithDestination(merge).
		WithSpeed(1).WithSpeedLimit(1).
		WithStrategy(vehicle.StrategyCooperative).
		Build())

	snap, err := e.Step()
	test.That(t, err, test.ShouldBeNil)

	byID := map[vehicle.ID]VehicleState{}
	for _, vs := range snap.Vehicles {
		byID[vs.ID] = vs
	}
	test.That(t, byID[vehicle.ID(1)].CellID, test.ShouldEqual, merge)
	test.That(t, byID[vehicle.ID(2)].CellID, test.ShouldEqual, grid.CellID(13))
}

// S2 - random slowdown disabled: SlowDownFactor 0 means the RNG draw never
// takes effect, so a speed-3, limit-3 vehicle advances the full 3 cells.
func TestStepRandomSlowdownDisabled(t *testing.T) {
	roads := straightRoads(20, 4, grid.ZoneUndefined)
	e := New(roads, 1, logging.NewTest())
	e.AddVehicle(vehicle.New(vehicle.ID(1), grid.CellID(1)).
		WithDestination(grid.CellID(20)).
		WithSpeed(3).
		WithSpeedLimit(3).
		WithSlowDownFactor(0).
		Build())

	snap, err := e.Step()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, snap.Vehicles[0].CellID, test.ShouldEqual, grid.CellID(4))
}

func mergeRoads() (*grid.Roads, grid.CellID) {
	roads := grid.NewRoads()
	chainA := []grid.CellID{1, 2, 3}
	chainB := []grid.CellID{11, 12, 13}
	merge := grid.CellID(100)
	for i, id := range chainA {
		b := grid.New(id).WithPoint(geo.Point{X: float64(i), Y: 0}).WithSpeedLimit(4)
		if i < len(chainA)-1 {
			b = b.WithForward(chainA[i+1])
		} else {
			b = b.WithForward(merge)
		}
		roads.Add(b.Build())
	}
	for i, id := range chainB {
		b := grid.New(id).WithPoint(geo.Point{X: float64(i), Y: 10}).WithSpeedLimit(4)
		if i < len(chainB)-1 {
			b = b.WithForward(chainB[i+1])
		} else {
			b = b.WithForward(merge)
		}
		roads.Add(b.Build())
	}
	roads.Add(grid.New(merge).WithPoint(geo.Point{X: 3, Y: 5}).WithSpeedLimit(4).Build())
	return roads, merge
}

// S4 - equal-priority contest resolves via the RNG tie-break: two vehicles
// with identical strategy, speed and cooperativity both target the merge
// cell; exactly one proceeds, chosen deterministically by the seeded RNG,
// and the other is held back at its current cell.
func TestStepEqualPriorityRNGTieBreak(t *testing.T) {
	build := func() (*Engine, grid.CellID) {
		roads, merge := mergeRoads()
		e := New(roads, 7, logging.NewTest())
		e.AddVehicle(vehicle.New(vehicle.ID(1), grid.CellID(3)).
			WithDestination(merge).
			WithSpeed(1).WithSpeedLimit(1).
			Build())
		e.AddVehicle(vehicle.New(vehicle.ID(2), grid.CellID(13)).
			WithDestination(merge).
			WithSpeed(1).WithSpeedLimit(1).
			Build())
		return e, merge
	}

	e1, merge := build()
	snap1, err := e1.Step()
	test.That(t, err, test.ShouldBeNil)

	e2, _ := build()
	snap2, err := e2.Step()
	test.That(t, err, test.ShouldBeNil)

	winner := func(snap *Snapshot) vehicle.ID {
		for _, vs := range snap.Vehicles {
			if vs.CellID == merge {
				return vs.ID
			}
		}
		return 0
	}
	w1, w2 := winner(snap1), winner(snap2)
	test.That(t, w1, test.ShouldNotEqual, vehicle.ID(0))
	test.That(t, w1, test.ShouldEqual, w2)

	origin := map[vehicle.ID]grid.CellID{vehicle.ID(1): grid.CellID(3), vehicle.ID(2): grid.CellID(13)}
	for _, vs := range snap1.Vehicles {
		if vs.ID != w1 {
			test.That(t, vs.CellID, test.ShouldEqual, origin[vs.ID])
		}
	}
}

// S5 - lane-change suppressed by an in-progress tail: the vehicle's tail is
// still mid ChangeRight, so this tick's plan must not introduce a second
// maneuver even though the route continues straight on to the destination.
func TestStepLaneChangeSuppressedByInProgressTail(t *testing.T) {
	roads := grid.NewRoads()
	roads.Add(grid.New(grid.CellID(1)).WithPoint(geo.Point{X: 0, Y: 0}).WithRight(grid.CellID(2)).WithSpeedLimit(4).Build())
	roads.Add(grid.New(grid.CellID(2)).WithPoint(geo.Point{X: 1, Y: 0}).WithForward(grid.CellID(3)).WithSpeedLimit(4).Build())
	roads.Add(grid.New(grid.CellID(3)).WithPoint(geo.Point{X: 2, Y: 0}).WithSpeedLimit(4).Build())

	e := New(roads, 1, logging.NewTest())
	v := vehicle.New(vehicle.ID(1), grid.CellID(2)).
		WithTail([]grid.CellID{grid.CellID(1)}).
		WithAgent(vehicle.AgentBus).
		WithDestination(grid.CellID(3)).
		WithSpeed(1).WithSpeedLimit(1).
		Build()
	v.TimerNonManeuvers = 2
	e.AddVehicle(v)

	snap, err := e.Step()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, snap.Vehicles[0].CellID, test.ShouldEqual, grid.CellID(3))
}

// S7 - conflict-zone crossing with differing target cells: the zone's
// declared winner proceeds, the loser is held at its current cell but
// reports speed 1, not a full stop.
func TestStepConflictZoneCrossingHoldsLoserAtSpeedOne(t *testing.T) {
	roads := grid.NewRoads()
	roads.Add(grid.New(grid.CellID(3)).WithPoint(geo.Point{X: 0, Y: 0}).WithForward(grid.CellID(4)).WithSpeedLimit(4).Build())
	roads.Add(grid.New(grid.CellID(4)).WithPoint(geo.Point{X: 1, Y: 0}).WithSpeedLimit(4).Build())
	roads.Add(grid.New(grid.CellID(9)).WithPoint(geo.Point{X: 0, Y: 5}).WithForward(grid.CellID(10)).WithSpeedLimit(4).Build())
	roads.Add(grid.New(grid.CellID(10)).WithPoint(geo.Point{X: 1, Y: 5}).WithSpeedLimit(4).Build())

	e := New(roads, 3, logging.NewTest())
	zones := czone.NewRegistry()
	test.That(t, zones.Add(czone.Zone{
		ID:     1,
		First:  czone.Edge{Source: grid.CellID(3), Target: grid.CellID(4)},
		Second: czone.Edge{Source: grid.CellID(9), Target: grid.CellID(10)},
		Winner: czone.WinnerFirst,
	}), test.ShouldBeNil)
	e.SetZones(zones)

	e.AddVehicle(vehicle.New(vehicle.ID(1), grid.CellID(3)).
		WithDestination(grid.CellID(4)).
		WithSpeed(1).WithSpeedLimit(1).
		Build())
	e.AddVehicle(vehicle.New(vehicle.ID(2), grid.CellID(9)).
		WithDestination(grid.CellID(10)).
		WithSpeed(1).WithSpeedLimit(1).
		Build())

	snap, err := e.Step()
	test.That(t, err, test.ShouldBeNil)

	byID := map[vehicle.ID]VehicleState{}
	for _, vs := range snap.Vehicles {
		byID[vs.ID] = vs
	}
	test.That(t, byID[vehicle.ID(1)].CellID, test.ShouldEqual, grid.CellID(4))
	test.That(t, byID[vehicle.ID(2)].CellID, test.ShouldEqual, grid.CellID(9))
	test.That(t, byID[vehicle.ID(2)].Speed, test.ShouldEqual, 1)
}

// S8 - crossing trajectories: two vehicles changing lanes in opposite
// directions claim different, merely adjacent cells whose approaches
// cross. Left beats right.
func TestStepCrossLaneChangeLeftBeatsRight(t *testing.T) {
	roads := grid.NewRoads()
	roads.Add(grid.New(grid.CellID(1)).WithPoint(geo.Point{X: 0, Y: 0}).WithForward(grid.CellID(2)).WithRight(grid.CellID(4)).WithSpeedLimit(4).Build())
	roads.Add(grid.New(grid.CellID(2)).WithPoint(geo.Point{X: 1, Y: 0}).WithSpeedLimit(4).Build())
	roads.Add(grid.New(grid.CellID(3)).WithPoint(geo.Point{X: 0, Y: 1}).WithLeft(grid.CellID(2)).WithSpeedLimit(4).Build())
	roads.Add(grid.New(grid.CellID(4)).WithPoint(geo.Point{X: 2, Y: 0}).WithSpeedLimit(4).Build())

	e := New(roads, 1, logging.NewTest())
	e.AddVehicle(vehicle.New(vehicle.ID(1), grid.CellID(1)).
		WithDestination(grid.CellID(4)).
		WithSpeed(1).WithSpeedLimit(1).
		Build())
	e.AddVehicle(vehicle.New(vehicle.ID(2), grid.CellID(3)).
		WithDestination(grid.CellID(2)).
		WithSpeed(1).WithSpeedLimit(1).
		Build())

	snap, err := e.Step()
	test.That(t, err, test.ShouldBeNil)

	byID := map[vehicle.ID]VehicleState{}
	for _, vs := range snap.Vehicles {
		byID[vs.ID] = vs
	}
	test.That(t, byID[vehicle.ID(1)].CellID, test.ShouldEqual, grid.CellID(1))
	test.That(t, byID[vehicle.ID(2)].CellID, test.ShouldEqual, grid.CellID(2))
}
