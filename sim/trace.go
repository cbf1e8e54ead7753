package sim

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/dustin/go-broadcast"
	"github.com/encodeous/gradient/state"
)

// LinkChange is published every time a node switches its preferred parent
type LinkChange struct {
	At        time.Duration
	Node      state.NodeId
	OldParent state.NodeId
	NewParent state.NodeId
}

func (c LinkChange) String() string {
	return fmt.Sprintf("%s: %s %s -> %s", c.At, c.Node, c.OldParent, c.NewParent)
}

// LinkTrace keeps the current routing tree and fans every change out to its subscribers
type LinkTrace struct {
	broadcast.Broadcaster
	clock   func() time.Duration
	mu      sync.Mutex
	edges   map[state.NodeId]state.NodeId
	changes int
}

func NewLinkTrace(clock func() time.Duration) *LinkTrace {
	return &LinkTrace{
		Broadcaster: broadcast.NewBroadcaster(state.TraceBufferSize),
		clock:       clock,
		edges:       make(map[state.NodeId]state.NodeId),
	}
}

func (t *LinkTrace) OnLinkChanged(node, oldParent, newParent state.NodeId) {
	t.mu.Lock()
	if newParent == state.NoNode {
		delete(t.edges, node)
	} else {
		t.edges[node] = newParent
	}
	t.changes++
	t.mu.Unlock()

	t.Submit(LinkChange{
		At:        t.clock(),
		Node:      node,
		OldParent: oldParent,
		NewParent: newParent,
	})
}

// Edges returns a copy of the child -> parent edges of the routing tree
func (t *LinkTrace) Edges() map[state.NodeId]state.NodeId {
	t.mu.Lock()
	defer t.mu.Unlock()
	return maps.Clone(t.edges)
}

func (t *LinkTrace) Changes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.changes
}

// Forget drops the outgoing edge of a node that left the network
func (t *LinkTrace) Forget(node state.NodeId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.edges, node)
}

// WriteDot renders the radio links and the routing tree in graphviz format
func (t *LinkTrace) WriteDot(w io.Writer, topo *Topology) error {
	edges := t.Edges()
	_, err := fmt.Fprintln(w, "digraph gradient {")
	if err != nil {
		return err
	}
	for _, id := range topo.Ids() {
		p, _ := topo.Position(id)
		shape := "circle"
		if id == state.SinkId {
			shape = "doublecircle"
		}
		_, err = fmt.Fprintf(w, "  %d [shape=%s, pos=\"%g,%g!\"];\n", int(id), shape, p.X, p.Y)
		if err != nil {
			return err
		}
	}
	for _, a := range topo.Ids() {
		for _, b := range topo.Neighbours(a) {
			if b <= a {
				continue
			}
			_, err = fmt.Fprintf(w, "  %d -> %d [dir=none, style=dotted, color=gray];\n", int(a), int(b))
			if err != nil {
				return err
			}
		}
	}
	for _, child := range slices.Sorted(maps.Keys(edges)) {
		_, err = fmt.Fprintf(w, "  %d -> %d [color=red, penwidth=2];\n", int(child), int(edges[child]))
		if err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(w, "}")
	return err
}
