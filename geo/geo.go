// Package geo provides the 2D point and distance primitives the grid and
// router packages are built on.
package geo

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a 2D coordinate. Units are left to the caller: planar metres for
// a synthetic grid, or longitude/latitude degrees for a geographic one —
// Distance is Euclidean either way, matching the admissible heuristic the
// router requires for planar grids and the small-extent approximation used
// for geographic ones.
type Point struct {
	X, Y float64
}

func (p Point) vec() r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	d := r2.Sub(a.vec(), b.vec())
	return math.Hypot(d.X, d.Y)
}

// Bearing returns the compass bearing in degrees of the ray from a to b:
// 0 is north (+Y), 90 is east (+X), increasing clockwise, normalized to
// [0, 360).
func Bearing(a, b Point) float64 {
	deg := math.Atan2(b.X-a.X, b.Y-a.Y) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}
