// Command tutorial builds a small two-intersection grid (one horizontal
// road crossing two vertical roads), wires a conflict zone and a traffic
// light at those intersections, seeds one static vehicle and three
// probabilistic trip generators, runs the simulation for a fixed number
// of ticks, and prints a CSV trace of every vehicle and light state —
// mirroring original_source/examples/tutorial/main.rs.
package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/LdDl/micro-traffic-sim-core-sub000/czone"
	"github.com/LdDl/micro-traffic-sim-core-sub000/geo"
	"github.com/LdDl/micro-traffic-sim-core-sub000/grid"
	"github.com/LdDl/micro-traffic-sim-core-sub000/logging"
	"github.com/LdDl/micro-traffic-sim-core-sub000/sim"
	"github.com/LdDl/micro-traffic-sim-core-sub000/tlight"
	"github.com/LdDl/micro-traffic-sim-core-sub000/trip"
	"github.com/LdDl/micro-traffic-sim-core-sub000/vehicle"
)

const (
	// Road layout:
	//
	//        V1                V2
	//         |                 |
	//   H ----+-----------------+---- H
	//         |                 |
	//
	// Horizontal road: cells 1-10  (y=3.5, x=0..9)
	// Vertical road 1:  cells 11-20 (x=3.5, y=0..9)
	// Vertical road 2:  cells 21-30 (x=6.5, y=0..9)
	roadLen       = 10
	hBase         = 0
	v1Base        = 10
	v2Base        = 20
	hToV1MergeAt  = 4  // H cell where traffic may change left onto V1
	hToV2MergeAt  = 7  // H cell where traffic may change left onto V2
	v1ToHMergeAt  = 14 // V1 cell where traffic may change right onto H
	staticVehicle = 9000
)

func main() {
	log := logging.NewZap("tutorial", logging.INFO)
	roads := buildGrid()

	zones := czone.NewRegistry()
	// V1 has priority over H where the two roads' edges touch.
	if err := zones.Add(czone.Zone{
		ID:     1,
		First:  czone.Edge{Source: hToV1MergeAt, Target: hToV1MergeAt + 1},
		Second: czone.Edge{Source: v1ToHMergeAt, Target: v1ToHMergeAt + 1},
		Winner: czone.WinnerSecond,
	}); err != nil {
		log.Errorw("failed to register conflict zone", "error", err)
		os.Exit(1)
	}

	light, err := tlight.New(1).
		WithPhaseDurations([]int{5, 5}).
		WithGroup(tlight.Group{Cells: []grid.CellID{hToV2MergeAt}, Signals: []tlight.SignalType{tlight.Green, tlight.Red}}).
		WithGroup(tlight.Group{Cells: []grid.CellID{v2Base + 4}, Signals: []tlight.SignalType{tlight.Red, tlight.Green}}).
		Build()
	if err != nil {
		log.Errorw("failed to build traffic light", "error", err)
		os.Exit(1)
	}

	engine := sim.New(roads, 42, log)
	engine.SetZones(zones)
	engine.AddLight(light)
	engine.AddVehicle(vehicle.New(staticVehicle, hToV1MergeAt+1).
		WithDestination(roadLen).
		WithSpeed(1).
		WithSpeedLimit(1).
		Build())

	trips := []*trip.Trip{
		{ID: 1, Type: trip.TypeProbabilistic, FromCell: hBase + 1, ToCell: roadLen, Probability: 0.1, EndTime: 0,
			AllowedAgentType: vehicle.AgentCar, AllowedBehaviour: vehicle.StrategyCooperative, InitialSpeed: 1, SpeedLimit: 1},
		{ID: 2, Type: trip.TypeProbabilistic, FromCell: v1Base + 1, ToCell: v1Base + roadLen, Probability: 0.1, EndTime: 0,
			AllowedAgentType: vehicle.AgentCar, AllowedBehaviour: vehicle.StrategyCooperative, InitialSpeed: 1, SpeedLimit: 1},
		{ID: 3, Type: trip.TypeProbabilistic, FromCell: v2Base + 1, ToCell: v2Base + roadLen, Probability: 0.1, EndTime: 0,
			AllowedAgentType: vehicle.AgentCar, AllowedBehaviour: vehicle.StrategyCooperative, InitialSpeed: 1, SpeedLimit: 1},
	}
	rng := rand.New(rand.NewSource(7))
	engine.SetProducer(trip.NewPeriodicProducer(trips, buildFromTrip, rng))

	printGrid(roads, light)
	runAndPrint(engine, 50)
}

// buildGrid constructs the three road segments and wires the left/right
// maneuver links where they meet.
func buildGrid() *grid.Roads {
	roads := grid.NewRoads()

	for i := 0; i < roadLen; i++ {
		id := grid.CellID(hBase + i + 1)
		b := grid.New(id).WithPoint(geo.Point{X: float64(i), Y: 3.5}).WithSpeedLimit(1)
		if i < roadLen-1 {
			b = b.WithForward(id + 1)
		}
		switch id {
		case hToV1MergeAt:
			b = b.WithLeft(v1ToHMergeAt + 1)
		case hToV2MergeAt:
			b = b.WithLeft(v2Base + 4 + 1)
		}
		b = b.WithZone(zoneForIndex(i))
		roads.Add(b.Build())
	}

	for i := 0; i < roadLen; i++ {
		id := grid.CellID(v1Base + i + 1)
		b := grid.New(id).WithPoint(geo.Point{X: 3.5, Y: float64(i)}).WithSpeedLimit(1)
		if i < roadLen-1 {
			b = b.WithForward(id + 1)
		}
		if id == v1ToHMergeAt {
			b = b.WithRight(hToV1MergeAt + 1)
		}
		b = b.WithZone(zoneForIndex(i))
		roads.Add(b.Build())
	}

	for i := 0; i < roadLen; i++ {
		id := grid.CellID(v2Base + i + 1)
		b := grid.New(id).WithPoint(geo.Point{X: 6.5, Y: float64(i)}).WithSpeedLimit(1)
		if i < roadLen-1 {
			b = b.WithForward(id + 1)
		}
		if int(id) == v2Base+4 {
			b = b.WithRight(hToV2MergeAt + 1)
		}
		b = b.WithZone(zoneForIndex(i))
		roads.Add(b.Build())
	}

	return roads
}

func zoneForIndex(i int) grid.ZoneKind {
	switch {
	case i == 0:
		return grid.ZoneBirth
	case i == roadLen-1:
		return grid.ZoneDeath
	default:
		return grid.ZoneCommon
	}
}

func buildFromTrip(t *trip.Trip, id vehicle.ID) *vehicle.Vehicle {
	return vehicle.New(id, t.FromCell).
		WithDestination(t.ToCell).
		WithSpeed(t.InitialSpeed).
		WithSpeedLimit(t.SpeedLimit).
		WithStrategy(t.AllowedBehaviour).
		WithAgent(t.AllowedAgentType).
		Build()
}

func printGrid(roads *grid.Roads, light *tlight.Light) {
	fmt.Println("cell_id;x;y;connection_type")
	for _, road := range []struct {
		base int
	}{{hBase}, {v1Base}, {v2Base}} {
		for i := 0; i < roadLen; i++ {
			id := grid.CellID(road.base + i + 1)
			c, err := roads.Get(id)
			if err != nil {
				continue
			}
			fmt.Printf("%d;%.5f;%.5f;cell\n", id, c.Point.X, c.Point.Y)
		}
	}
	for _, g := range light.Groups {
		for _, cell := range g.Cells {
			fmt.Printf("%d;tl-group-cell\n", cell)
		}
	}
}

func runAndPrint(engine *sim.Engine, steps int) {
	fmt.Println("step;vehicle_id;speed;bearing;intermediate_cells;cell_id")
	for step := 0; step < steps; step++ {
		snap, err := engine.Step()
		if err != nil {
			fmt.Fprintf(os.Stderr, "step %d failed: %v\n", step, err)
			break
		}
		for _, v := range snap.Vehicles {
			fmt.Printf("%d;%d;%d;%.5f;%v;%d\n",
				snap.Tick, v.ID, v.Speed, v.Bearing, v.IntermediateCells, v.CellID)
		}
	}

	fmt.Printf("done after %d ticks, %d vehicles remain\n", engine.Tick(), engine.VehicleCount())
}
