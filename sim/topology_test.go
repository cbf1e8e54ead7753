package sim

import (
	"testing"

	"github.com/encodeous/gradient/state"
	"github.com/stretchr/testify/assert"
)

func TestChainTopology(t *testing.T) {
	cfg := state.ChainScenario(4)
	topo := NewTopology(cfg.Nodes, cfg.Radio.Range)

	assert.Equal(t, []state.NodeId{0, 1, 2, 3}, topo.Ids())
	assert.Equal(t, []state.NodeId{1}, topo.Neighbours(0))
	assert.Equal(t, []state.NodeId{0, 2}, topo.Neighbours(1))
	assert.Equal(t, []state.NodeId{2}, topo.Neighbours(3))
	assert.True(t, topo.InRange(1, 2))
	assert.False(t, topo.InRange(0, 2))
	assert.False(t, topo.InRange(1, 1))
	assert.False(t, topo.InRange(1, 42))

	assert.Equal(t, map[state.NodeId]int{0: 0, 1: 1, 2: 2, 3: 3}, topo.HopDistances(state.SinkId))
	assert.Equal(t, map[state.NodeId]int{0: 0, 1: 1}, topo.HopDistances(state.SinkId, 2))
	assert.Empty(t, topo.HopDistances(state.SinkId, state.SinkId))
}

func TestTopologyShortcut(t *testing.T) {
	nodes := []state.NodeCfg{
		{Id: 0, X: 0, Y: 0},
		{Id: 1, X: 100, Y: 0},
		{Id: 2, X: 200, Y: 0},
		{Id: 3, X: 150, Y: 100},
		{Id: 4, X: 1000, Y: 1000},
	}
	topo := NewTopology(nodes, 150)
	hops := topo.HopDistances(state.SinkId)
	assert.Equal(t, 0, hops[0])
	assert.Equal(t, 1, hops[1])
	assert.Equal(t, 2, hops[2])
	assert.Equal(t, 2, hops[3])
	_, ok := hops[4]
	assert.False(t, ok)
	assert.Empty(t, topo.Neighbours(4))
}
