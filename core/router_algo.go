package core

import (
	"time"

	"github.com/encodeous/gradient/state"
)

// Router is an interface that defines the underlying router operations
type Router interface {
	BroadcastGradient(adv state.GradientPdu)
	SendData(nh state.NodeId, pdu state.DataPdu)
	Deliver(pdu state.DataPdu)
	Drop(pdu state.DataPdu, err error)
	ResetTrickle()
	LinkChanged(oldParent, newParent state.NodeId)
	Log(event RouterEvent, desc string, args ...any)
}

// Selection is the outcome of parent selection
type Selection struct {
	Rank     state.Rank
	Distance state.Distance
	Parent   state.NodeId
}

var unreachable = Selection{
	Rank:     state.INF,
	Distance: state.InfDistance,
	Parent:   state.NoNode,
}

func (s Selection) Cost() state.Cost {
	return state.Cost{Rank: s.Rank, Distance: s.Distance}
}

func currentSelection(rs *state.RouterState) Selection {
	return Selection{Rank: rs.Rank, Distance: rs.Distance, Parent: rs.Parent}
}

// candidateCost is the cost we would have by choosing n as our parent
func candidateCost(n state.Neighbour) state.Cost {
	return state.Cost{
		Rank:     AddRank(n.Rank, 1),
		Distance: n.Distance + 1,
	}
}

func usable(n state.Neighbour, ceiling state.Rank) bool {
	return n.Rank != state.INF && AddRank(n.Rank, 1) <= ceiling
}

func adopt(n state.Neighbour) Selection {
	c := candidateCost(n)
	return Selection{Rank: c.Rank, Distance: c.Distance, Parent: n.Id}
}

// betterCandidate orders candidates by cost, breaking exact ties by the lowest id
func betterCandidate(a, b state.Neighbour) bool {
	ca, cb := candidateCost(a), candidateCost(b)
	if ca != cb {
		return ca.Less(cb)
	}
	return a.Id < b.Id
}

// SelectParent deterministically picks the preferred parent from a neighbour table snapshot.
func SelectParent(cur Selection, table []state.Neighbour, ceiling state.Rank) Selection {
	var best, parent *state.Neighbour
	for i := range table {
		n := &table[i]
		if !usable(*n, ceiling) {
			continue
		}
		if n.Id == cur.Parent {
			parent = n
		}
		if best == nil || betterCandidate(*n, *best) {
			best = n
		}
	}

	if best == nil {
		return unreachable
	}

	// the current parent vanished, re-parenting is mandatory even if the best candidate is worse
	if parent == nil {
		return adopt(*best)
	}

	// staying costs whatever our parent advertises now, not what it advertised when we chose it
	stay := adopt(*parent)
	if best.Id != parent.Id && candidateCost(*best).Less(stay.Cost()) {
		return adopt(*best)
	}
	return stay
}

// applySelection commits a selection, returning true if anything observable changed
func applySelection(rs *state.RouterState, r Router, sel Selection) bool {
	if rs.IsSink() {
		return false
	}
	cur := currentSelection(rs)
	if cur == sel {
		return false
	}
	rs.Rank = sel.Rank
	rs.Distance = sel.Distance
	rs.Parent = sel.Parent

	if cur.Parent != sel.Parent {
		if sel.Parent == state.NoNode {
			r.Log(ParentLost, "no usable parent", "old", cur.Parent)
		} else {
			r.Log(ParentSelected, "switched parent", "old", cur.Parent, "new", sel.Parent, "rank", sel.Rank)
		}
		r.LinkChanged(cur.Parent, sel.Parent)
	} else {
		r.Log(RankChanged, "rank changed", "old", cur.Rank, "new", sel.Rank, "parent", sel.Parent)
	}
	r.ResetTrickle()
	return true
}

// ComputeParent runs parent selection over the current table and applies the result
func ComputeParent(rs *state.RouterState, r Router, ceiling state.Rank) bool {
	if rs.IsSink() {
		return false
	}
	return applySelection(rs, r, SelectParent(currentSelection(rs), rs.Neighbours.Snapshot(), ceiling))
}

// ExpireNeighbours evicts stale neighbours, re-selecting a parent if any entry was dropped
func ExpireNeighbours(rs *state.RouterState, r Router, now time.Duration, p state.ProtocolCfg) bool {
	evicted := rs.Neighbours.Expire(now, p.StaleAfter())
	for _, id := range evicted {
		r.Log(StaleNeighbourDropped, "stale neighbour dropped", "neigh", id)
	}
	if len(evicted) == 0 {
		return false
	}
	return ComputeParent(rs, r, p.RankCeiling)
}

// HandleTimer is run every time the trickle timer fires
func HandleTimer(rs *state.RouterState, r Router, now time.Duration, p state.ProtocolCfg) {
	if rs.Phase() != state.PhaseUnreachable {
		adv := state.GradientPdu{
			Sender:   rs.Id,
			Rank:     rs.Rank,
			Distance: rs.Distance,
		}
		r.BroadcastGradient(adv)
		r.Log(GradientSent, "gradient sent", "rank", rs.Rank)
	}
	ExpireNeighbours(rs, r, now, p)
	ComputeParent(rs, r, p.RankCeiling)
}

// HandleGradient records a neighbour's advert and re-evaluates our parent
func HandleGradient(rs *state.RouterState, r Router, adv state.GradientPdu, now time.Duration, p state.ProtocolCfg) {
	if !rs.Neighbours.Upsert(adv.Sender, adv.Rank, adv.Distance, now) {
		r.Log(InconsistentState, "received our own gradient", "pdu", adv)
		return
	}
	if rs.IsSink() {
		return // the sink only records adverts
	}
	ComputeParent(rs, r, p.RankCeiling)
}

// HandleData consumes data at the sink and relays it to the preferred parent everywhere else
func HandleData(rs *state.RouterState, r Router, pdu state.DataPdu, p state.ProtocolCfg) error {
	if rs.IsSink() {
		r.Deliver(pdu)
		r.Log(DataDelivered, "data delivered", "origin", pdu.Origin, "seq", pdu.Seq, "hops", pdu.Hops)
		return nil
	}
	if pdu.Hops >= int(p.RankCeiling) {
		r.Drop(pdu, state.ErrHopLimit)
		r.Log(InconsistentState, "data exceeded hop limit", "origin", pdu.Origin, "seq", pdu.Seq)
		return state.ErrHopLimit
	}
	return forward(rs, r, pdu.Relay(rs.Id))
}

// Originate sends a new payload from this node towards the sink
func Originate(rs *state.RouterState, r Router, pdu state.DataPdu) error {
	if rs.IsSink() {
		r.Deliver(pdu)
		return nil
	}
	return forward(rs, r, pdu)
}

func forward(rs *state.RouterState, r Router, pdu state.DataPdu) error {
	if rs.Parent == state.NoNode {
		r.Drop(pdu, state.ErrNoRouteAvailable)
		r.Log(NoRouteAvailable, "dropped data", "origin", pdu.Origin, "seq", pdu.Seq)
		return state.ErrNoRouteAvailable
	}
	r.SendData(rs.Parent, pdu)
	r.Log(DataForwarded, "data forwarded", "origin", pdu.Origin, "seq", pdu.Seq, "nh", rs.Parent)
	return nil
}
