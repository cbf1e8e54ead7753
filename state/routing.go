package state

import (
	"fmt"
	"math"
	"strconv"
)

type NodeId int

const (
	// SinkId is reserved for the unique traffic destination
	SinkId NodeId = 0
	// NoNode is used where a node id is optional, e.g. a missing preferred parent
	NoNode NodeId = -1
)

func (n NodeId) String() string {
	if n == NoNode {
		return "none"
	}
	return strconv.Itoa(int(n))
}

// Rank is a hop-cost estimate towards the sink.
type Rank uint32

// Distance is the secondary metric used to break rank ties.
type Distance float64

const (
	INF = ^Rank(0)
	// INFM is the largest rank that is still a valid (reachable) rank.
	INFM = INF - 1
)

var InfDistance = Distance(math.Inf(1))

func (r Rank) String() string {
	if r == INF {
		return "inf"
	}
	return strconv.FormatUint(uint64(r), 10)
}

func (d Distance) IsInf() bool {
	return math.IsInf(float64(d), 1)
}

// Cost is ordered lexicographically: rank first, distance breaks ties.
type Cost struct {
	Rank     Rank
	Distance Distance
}

var UnreachableCost = Cost{Rank: INF, Distance: InfDistance}

func (c Cost) Less(o Cost) bool {
	if c.Rank != o.Rank {
		return c.Rank < o.Rank
	}
	return c.Distance < o.Distance
}

func (c Cost) String() string {
	return fmt.Sprintf("(%s, %g)", c.Rank, float64(c.Distance))
}

type Phase int

const (
	PhaseUnreachable Phase = iota
	PhaseRouted
	PhaseSinkRoot
)

func (p Phase) String() string {
	switch p {
	case PhaseRouted:
		return "ROUTED"
	case PhaseSinkRoot:
		return "SINK_ROOT"
	default:
		return "UNREACHABLE"
	}
}

// RouterState is owned by exactly one node and must only be accessed from its task.
type RouterState struct {
	Id         NodeId
	Rank       Rank
	Distance   Distance
	Parent     NodeId
	Neighbours *NeighbourTable
}

func NewRouterState(id NodeId) *RouterState {
	rs := &RouterState{
		Id:         id,
		Rank:       INF,
		Distance:   InfDistance,
		Parent:     NoNode,
		Neighbours: NewNeighbourTable(id),
	}
	if id == SinkId {
		rs.Rank = 0
		rs.Distance = 0
	}
	return rs
}

func (rs *RouterState) IsSink() bool {
	return rs.Id == SinkId
}

func (rs *RouterState) Cost() Cost {
	return Cost{Rank: rs.Rank, Distance: rs.Distance}
}

func (rs *RouterState) Phase() Phase {
	if rs.IsSink() {
		return PhaseSinkRoot
	}
	if rs.Rank == INF {
		return PhaseUnreachable
	}
	return PhaseRouted
}

// Validate checks the invariants that must hold between events.
func (rs *RouterState) Validate() error {
	if rs.Parent == rs.Id {
		return fmt.Errorf("node %s is its own parent", rs.Id)
	}
	if rs.Neighbours.Get(rs.Id) != nil {
		return fmt.Errorf("node %s has itself as a neighbour", rs.Id)
	}
	if rs.IsSink() {
		if rs.Rank != 0 || rs.Distance != 0 || rs.Parent != NoNode {
			return fmt.Errorf("sink state corrupted: rank %s, distance %g, parent %s", rs.Rank, float64(rs.Distance), rs.Parent)
		}
		return nil
	}
	if (rs.Parent == NoNode) != (rs.Rank == INF) {
		return fmt.Errorf("node %s has parent %s with rank %s", rs.Id, rs.Parent, rs.Rank)
	}
	return nil
}

func (rs *RouterState) String() string {
	return fmt.Sprintf("%s: %s rank %s dist %g via %s", rs.Id, rs.Phase(), rs.Rank, float64(rs.Distance), rs.Parent)
}
