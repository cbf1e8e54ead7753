package state

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// Neighbour is the last gradient advert heard from a directly reachable node.
type Neighbour struct {
	Id        NodeId
	Rank      Rank
	Distance  Distance
	LastHeard time.Duration // simulated time of the most recent advert
}

func (n Neighbour) String() string {
	return fmt.Sprintf("(neigh: %s, rank: %s, dist: %g, heard: %s)", n.Id, n.Rank, float64(n.Distance), n.LastHeard)
}

// NeighbourTable maps neighbour ids to their latest advert. It never holds its owner's id.
type NeighbourTable struct {
	owner   NodeId
	entries map[NodeId]*Neighbour
}

func NewNeighbourTable(owner NodeId) *NeighbourTable {
	return &NeighbourTable{
		owner:   owner,
		entries: make(map[NodeId]*Neighbour),
	}
}

// Upsert records an advert. It returns false if the advert came from the owner itself.
func (t *NeighbourTable) Upsert(id NodeId, rank Rank, dist Distance, now time.Duration) bool {
	if id == t.owner {
		return false
	}
	n, ok := t.entries[id]
	if !ok {
		n = &Neighbour{Id: id}
		t.entries[id] = n
	}
	n.Rank = rank
	n.Distance = dist
	n.LastHeard = max(n.LastHeard, now)
	return true
}

// Expire evicts every entry not heard from for longer than maxAge and returns the evicted ids in ascending order.
func (t *NeighbourTable) Expire(now, maxAge time.Duration) []NodeId {
	evicted := make([]NodeId, 0)
	for id, n := range t.entries {
		if now-n.LastHeard > maxAge {
			delete(t.entries, id)
			evicted = append(evicted, id)
		}
	}
	slices.Sort(evicted)
	return evicted
}

func (t *NeighbourTable) Get(id NodeId) *Neighbour {
	n, ok := t.entries[id]
	if !ok {
		return nil
	}
	cp := *n
	return &cp
}

func (t *NeighbourTable) Len() int {
	return len(t.entries)
}

// Snapshot returns a copy of the table ordered by neighbour id.
func (t *NeighbourTable) Snapshot() []Neighbour {
	ids := slices.Sorted(maps.Keys(t.entries))
	out := make([]Neighbour, 0, len(ids))
	for _, id := range ids {
		out = append(out, *t.entries[id])
	}
	return out
}
