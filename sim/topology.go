package sim

import (
	"maps"
	"slices"

	"github.com/encodeous/gradient/state"
)

// Topology is the static placement of nodes and the disc model that decides who hears whom
type Topology struct {
	Range     float64
	positions map[state.NodeId]state.Position
	ids       []state.NodeId
	adj       map[state.NodeId][]state.NodeId
}

func NewTopology(nodes []state.NodeCfg, txRange float64) *Topology {
	t := &Topology{
		Range:     txRange,
		positions: make(map[state.NodeId]state.Position),
		adj:       make(map[state.NodeId][]state.NodeId),
	}
	for _, n := range nodes {
		t.positions[n.Id] = n.Position()
	}
	t.ids = slices.Sorted(maps.Keys(t.positions))
	for _, a := range t.ids {
		neighs := make([]state.NodeId, 0)
		for _, b := range t.ids {
			if t.InRange(a, b) {
				neighs = append(neighs, b)
			}
		}
		t.adj[a] = neighs
	}
	return t
}

// Ids returns every node id in ascending order
func (t *Topology) Ids() []state.NodeId {
	return slices.Clone(t.ids)
}

func (t *Topology) Position(id state.NodeId) (state.Position, bool) {
	p, ok := t.positions[id]
	return p, ok
}

// InRange reports whether a and b are distinct nodes within transmission range of each other
func (t *Topology) InRange(a, b state.NodeId) bool {
	if a == b {
		return false
	}
	pa, ok := t.positions[a]
	if !ok {
		return false
	}
	pb, ok := t.positions[b]
	if !ok {
		return false
	}
	return pa.DistanceTo(pb) <= t.Range
}

// Neighbours returns the nodes in range of id, sorted by id
func (t *Topology) Neighbours(id state.NodeId) []state.NodeId {
	return t.adj[id]
}

// HopDistances runs a breadth-first search from root. Nodes in skip are treated as absent,
// and nodes that cannot be reached are left out of the result.
func (t *Topology) HopDistances(root state.NodeId, skip ...state.NodeId) map[state.NodeId]int {
	dist := make(map[state.NodeId]int)
	if _, ok := t.positions[root]; !ok || slices.Contains(skip, root) {
		return dist
	}
	dist[root] = 0
	queue := []state.NodeId{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range t.adj[cur] {
			if _, seen := dist[next]; seen || slices.Contains(skip, next) {
				continue
			}
			dist[next] = dist[cur] + 1
			queue = append(queue, next)
		}
	}
	return dist
}
