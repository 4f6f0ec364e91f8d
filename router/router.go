// Package router implements the A* shortest-path search over a grid.Roads
// graph, plus a forward-only path_no_goal exploration for wandering
// vehicles.
package router

import (
	"container/heap"

	"github.com/pkg/errors"

	"github.com/LdDl/micro-traffic-sim-core-sub000/geo"
	"github.com/LdDl/micro-traffic-sim-core-sub000/grid"
	"github.com/LdDl/micro-traffic-sim-core-sub000/vehicle"
)

// NoPathFoundError is returned when A* exhausts the open set without
// reaching goal and max_depth did not apply (or depth was never exceeded
// either — i.e. the graph is genuinely disconnected from goal).
type NoPathFoundError struct {
	Start, Goal grid.CellID
}

func (e *NoPathFoundError) Error() string {
	return errors.Errorf("router: no path found from %d to %d", e.Start, e.Goal).Error()
}

// BadDataError is returned when a node references a successor CellID that
// does not resolve in the grid.
type BadDataError struct {
	CellID grid.CellID
}

func (e *BadDataError) Error() string {
	return errors.Errorf("router: bad data, dangling cell id %d", e.CellID).Error()
}

// Path is the result of a successful search. Truncated reports whether the
// search was cut short by max_depth rather than reaching goal (Shortest) or
// running out of road (PathNoGoal) — the last vertex of a truncated path is
// just wherever the search stopped, not a meaningful waypoint.
type Path struct {
	Vertices  []grid.CellID
	Maneuvers []vehicle.Maneuver
	Cost      float64
	Truncated bool
}

type openNode struct {
	id       grid.CellID
	g, f     float64
	parent   grid.CellID
	hasParent bool
	maneuver vehicle.Maneuver
	depth    int
}

// priorityQueue is a container/heap min-heap keyed on f, with deterministic
// tie-break on descending CellID.
type priorityQueue []*openNode

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].f != pq[j].f {
		return pq[i].f < pq[j].f
	}
	return pq[i].id > pq[j].id
}
func (pq priorityQueue) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x interface{}) {
	*pq = append(*pq, x.(*openNode))
}
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// ManeuverAllowed controls whether left/right successors are expanded.
type ManeuverAllowed bool

const (
	ManeuversAllowed ManeuverAllowed = true
	ManeuversForbidden ManeuverAllowed = false
)

// Shortest runs A* from start to goal. maxDepth <= 0 means unbounded; if
// more than maxDepth nodes are popped without reaching goal, the path
// reconstructed from the last popped node is returned instead of an error
// (best-effort partial route).
func Shortest(roads *grid.Roads, start, goal grid.CellID, maneuvers ManeuverAllowed, maxDepth int) (*Path, error) {
	startCell, err := roads.Get(start)
	if err != nil {
		return nil, &BadDataError{CellID: start}
	}
	goalCell, err := roads.Get(goal)
	if err != nil {
		return nil, &BadDataError{CellID: goal}
	}

	best := make(map[grid.CellID]*openNode)
	start0 := &openNode{id: start, g: 0, f: geo.Distance(startCell.Point, goalCell.Point)}
	best[start] = start0

	pq := &priorityQueue{start0}
	heap.Init(pq)

	popped := 0

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*openNode)
		if cur != best[cur.id] {
			continue
		}
		popped++

		if cur.id == goal {
			return reconstruct(best, cur, false), nil
		}
		if maxDepth > 0 && popped > maxDepth {
			return reconstruct(best, cur, true), nil
		}

		curCell, err := roads.Get(cur.id)
		if err != nil {
			return nil, &BadDataError{CellID: cur.id}
		}

		type candidate struct {
			id grid.CellID
			m  vehicle.Maneuver
		}
		candidates := []candidate{{curCell.Forward, vehicle.ManeuverNoChange}}
		if maneuvers {
			candidates = append(candidates,
				candidate{curCell.Left, vehicle.ManeuverChangeLeft},
				candidate{curCell.Right, vehicle.ManeuverChangeRight},
			)
		}

		for _, cand := range candidates {
			if !cand.id.Valid() {
				continue
			}
			nextCell, err := roads.Get(cand.id)
			if err != nil {
				return nil, &BadDataError{CellID: cand.id}
			}
			edgeCost := geo.Distance(curCell.Point, nextCell.Point)
			g := cur.g + edgeCost
			if existing, ok := best[cand.id]; ok && existing.g <= g {
				continue
			}
			h := geo.Distance(nextCell.Point, goalCell.Point)
			node := &openNode{
				id: cand.id, g: g, f: g + h,
				parent: cur.id, hasParent: true, maneuver: cand.m,
				depth: cur.depth + 1,
			}
			best[cand.id] = node
			heap.Push(pq, node)
		}
	}

	return nil, &NoPathFoundError{Start: start, Goal: goal}
}

func reconstruct(best map[grid.CellID]*openNode, end *openNode, truncated bool) *Path {
	var vertices []grid.CellID
	var maneuvers []vehicle.Maneuver
	n := end
	for {
		vertices = append([]grid.CellID{n.id}, vertices...)
		if !n.hasParent {
			break
		}
		maneuvers = append([]vehicle.Maneuver{n.maneuver}, maneuvers...)
		n = best[n.parent]
	}
	return &Path{Vertices: vertices, Maneuvers: maneuvers, Cost: end.g, Truncated: truncated}
}

// PathNoGoal explores forward links only (no lane changes), up to maxDepth
// nodes, and returns the discovered chain. Used when a vehicle has no
// destination ("wander").
func PathNoGoal(roads *grid.Roads, start grid.CellID, maxDepth int) (*Path, error) {
	startCell, err := roads.Get(start)
	if err != nil {
		return nil, &BadDataError{CellID: start}
	}

	vertices := []grid.CellID{start}
	maneuvers := []vehicle.Maneuver{}
	cost := 0.0

	cur := start
	curCell := startCell
	truncated := false
	for i := 0; i < maxDepth; i++ {
		if !curCell.Forward.Valid() {
			break
		}
		nextCell, err := roads.Get(curCell.Forward)
		if err != nil {
			return nil, &BadDataError{CellID: curCell.Forward}
		}
		cost += geo.Distance(curCell.Point, nextCell.Point)
		vertices = append(vertices, curCell.Forward)
		maneuvers = append(maneuvers, vehicle.ManeuverNoChange)
		cur = curCell.Forward
		curCell = nextCell
		if i == maxDepth-1 && curCell.Forward.Valid() {
			truncated = true
		}
	}
	_ = cur
	return &Path{Vertices: vertices, Maneuvers: maneuvers, Cost: cost, Truncated: truncated}, nil
}
