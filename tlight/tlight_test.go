package tlight

import (
	"testing"

	"go.viam.com/test"

	"github.com/LdDl/micro-traffic-sim-core-sub000/grid"
)

func TestBuildMismatchedSignalLength(t *testing.T) {
	_, err := New(ID(1)).
		WithPhaseDurations([]int{3, 3}).
		WithGroup(Group{Cells: []grid.CellID{1}, Signals: []SignalType{Green}}).
		Build()
	test.That(t, err, test.ShouldNotBeNil)
}

func TestStepAdvancesPhaseAndGatesCells(t *testing.T) {
	roads := grid.NewRoads()
	roads.Add(grid.New(grid.CellID(1)).Build())
	roads.Add(grid.New(grid.CellID(2)).Build())

	light, err := New(ID(1)).
		WithPhaseDurations([]int{2, 2}).
		WithGroup(Group{Cells: []grid.CellID{1, 2}, Signals: []SignalType{Green, Red}}).
		Build()
	test.That(t, err, test.ShouldBeNil)

	test.That(t, light.Step(roads), test.ShouldBeNil)
	c1, _ := roads.Get(grid.CellID(1))
	test.That(t, c1.State, test.ShouldEqual, grid.Free)
	test.That(t, light.ActivePhase(), test.ShouldEqual, 0)

	test.That(t, light.Step(roads), test.ShouldBeNil)
	test.That(t, light.ActivePhase(), test.ShouldEqual, 1)
	c1, _ = roads.Get(grid.CellID(1))
	test.That(t, c1.State, test.ShouldEqual, grid.Banned)
}

func TestSignalTypeFromStringAlias(t *testing.T) {
	s, err := SignalTypeFromString("RedYellow")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s, test.ShouldEqual, RedYellow)

	_, err = SignalTypeFromString("bogus")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReset(t *testing.T) {
	roads := grid.NewRoads()
	roads.Add(grid.New(grid.CellID(1)).Build())
	light, _ := New(ID(1)).
		WithPhaseDurations([]int{1}).
		WithGroup(Group{Cells: []grid.CellID{1}, Signals: []SignalType{Green}}).
		Build()
	light.Step(roads)
	light.Step(roads)
	test.That(t, light.Timer(), test.ShouldEqual, 0)
	light.Reset()
	test.That(t, light.ActivePhase(), test.ShouldEqual, 0)
}
