package geo

import (
	"testing"

	"go.viam.com/test"
)

func TestDistance(t *testing.T) {
	a := Point{X: 0, Y: 0}
	b := Point{X: 3, Y: 4}
	test.That(t, Distance(a, b), test.ShouldEqual, 5.0)
	test.That(t, Distance(a, a), test.ShouldEqual, 0.0)
}

func TestBearing(t *testing.T) {
	a := Point{X: 0, Y: 0}

	north := Point{X: 0, Y: 1}
	test.That(t, Bearing(a, north), test.ShouldEqual, 0.0)

	east := Point{X: 1, Y: 0}
	test.That(t, Bearing(a, east), test.ShouldEqual, 90.0)

	south := Point{X: 0, Y: -1}
	test.That(t, Bearing(a, south), test.ShouldEqual, 180.0)

	west := Point{X: -1, Y: 0}
	test.That(t, Bearing(a, west), test.ShouldEqual, 270.0)
}
