package vehicle

import (
	"testing"

	"go.viam.com/test"

	"github.com/LdDl/micro-traffic-sim-core-sub000/grid"
)

func TestBuilder(t *testing.T) {
	v := New(ID(1), grid.CellID(10)).
		WithDestination(grid.CellID(20)).
		WithSpeed(2).
		WithSpeedLimit(3).
		WithStrategy(StrategyAggressive).
		WithTail([]grid.CellID{grid.CellID(8), grid.CellID(9)}).
		Build()

	test.That(t, v.CellID, test.ShouldEqual, grid.CellID(10))
	test.That(t, v.Destination, test.ShouldEqual, grid.CellID(20))
	test.That(t, v.HasDestination, test.ShouldBeTrue)
	test.That(t, v.TailSize(), test.ShouldEqual, 2)
	test.That(t, v.Strategy, test.ShouldEqual, StrategyAggressive)
}

func TestWanderHasNoDestination(t *testing.T) {
	v := New(ID(2), grid.CellID(1)).WithDestination(grid.NoCell).Build()
	test.That(t, v.HasDestination, test.ShouldBeFalse)
}

func TestAgentTailSizeConvention(t *testing.T) {
	test.That(t, AgentCar.TailSize(), test.ShouldEqual, 0)
	test.That(t, AgentBus.TailSize(), test.ShouldEqual, 1)
	test.That(t, AgentLargeBus.TailSize(), test.ShouldEqual, 2)
}

func TestRetire(t *testing.T) {
	v := New(ID(3), grid.CellID(1)).Build()
	test.That(t, v.Retiring(), test.ShouldBeFalse)
	v.Retire()
	test.That(t, v.Retiring(), test.ShouldBeTrue)
}
