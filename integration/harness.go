//go:build integration

package integration

import (
	"testing"
	"time"

	"github.com/encodeous/gradient/sim"
	"github.com/encodeous/gradient/state"
	"github.com/stretchr/testify/require"
)

type Signal chan bool

func NewSignal() Signal {
	return make(chan bool)
}
func (s Signal) Trigger() {
	select {
	case <-s:
	default:
		close(s)
	}
}
func (s Signal) Triggered() bool {
	select {
	case <-s:
		return true
	default:
		return false
	}
}
func (s Signal) Wait() {
	<-s
}

// VirtualHarness builds a scenario node by node and runs it in simulated time
type VirtualHarness struct {
	Cfg state.ScenarioCfg
	Net *sim.Network
}

func NewHarness() *VirtualHarness {
	cfg := state.DefaultScenario()
	cfg.Random = nil
	cfg.Traffic.Disabled = true
	return &VirtualHarness{Cfg: cfg}
}

func (v *VirtualHarness) NewNode(id state.NodeId, x, y float64) {
	v.Cfg.Nodes = append(v.Cfg.Nodes, state.NodeCfg{Id: id, X: x, Y: y})
}

// Grid places w*h nodes with the given spacing, numbered row by row from the sink in the corner
func (v *VirtualHarness) Grid(w, h int, spacing float64) {
	// diagonals are in range, two steps along an axis are not
	v.Cfg.Radio.Range = spacing * 1.5
	for y := range h {
		for x := range w {
			v.NewNode(state.NodeId(y*w+x), float64(x)*spacing, float64(y)*spacing)
		}
	}
}

func (v *VirtualHarness) FailAt(id state.NodeId, at time.Duration) {
	v.Cfg.Failures = append(v.Cfg.Failures, state.FailureCfg{Node: id, At: state.Duration(at)})
}

func (v *VirtualHarness) Start(t *testing.T) *sim.Network {
	t.Helper()
	n, err := sim.NewNetwork(v.Cfg, sim.Options{})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, n.Close())
	})
	require.NoError(t, n.Start())
	v.Net = n
	return n
}

// RunUntilConverged steps the network until every node holds its optimal rank, returning the simulated time it took
func (v *VirtualHarness) RunUntilConverged(limit time.Duration) (time.Duration, bool) {
	start := v.Net.Loop.Now()
	for v.Net.Loop.Now()-start < limit {
		v.Net.Loop.RunFor(50 * time.Millisecond)
		if v.Net.Summary().Converged() {
			return v.Net.Loop.Now() - start, true
		}
	}
	return limit, false
}
