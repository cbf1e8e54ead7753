package sim

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/encodeous/gradient/core"
	"github.com/encodeous/gradient/state"
)

type RadioStats struct {
	Sent      uint64 // transmissions attempted towards a single receiver
	Delivered uint64
	Lost      uint64
}

// Radio is a shared broadcast medium. A pdu reaches every node within range after Latency,
// unless it is lost or either end has been silenced.
type Radio struct {
	Topology *Topology
	Loss     float64
	Latency  time.Duration
	// OnTransmit, if set, observes every transmission that will reach its receiver
	OnTransmit func(from, to state.NodeId, pdu state.Pdu)

	mu        sync.Mutex
	rng       *rand.Rand
	receivers map[state.NodeId]state.Scheduler
	silenced  map[state.NodeId]struct{}
	stats     RadioStats
}

func NewRadio(topo *Topology, cfg state.RadioCfg, seed uint64) *Radio {
	return &Radio{
		Topology:  topo,
		Loss:      cfg.Loss,
		Latency:   cfg.Latency.D(),
		rng:       rand.New(rand.NewPCG(seed, seed+1)),
		receivers: make(map[state.NodeId]state.Scheduler),
		silenced:  make(map[state.NodeId]struct{}),
	}
}

// Attach registers the scheduler that received pdus for id are handled on
func (r *Radio) Attach(id state.NodeId, sched state.Scheduler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receivers[id] = sched
}

// Silence takes a node off the air. It can neither send nor receive afterwards.
func (r *Radio) Silence(id state.NodeId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.silenced[id] = struct{}{}
}

func (r *Radio) IsSilenced(id state.NodeId) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.silenced[id]
	return ok
}

func (r *Radio) Stats() RadioStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *Radio) Broadcast(from state.NodeId, pdu state.Pdu) {
	for _, to := range r.Topology.Neighbours(from) {
		r.transmit(from, to, pdu)
	}
}

func (r *Radio) Unicast(from, to state.NodeId, pdu state.Pdu) {
	r.transmit(from, to, pdu)
}

func (r *Radio) transmit(from, to state.NodeId, pdu state.Pdu) {
	r.mu.Lock()
	_, fs := r.silenced[from]
	_, ts := r.silenced[to]
	if fs || ts {
		r.mu.Unlock()
		return
	}
	r.stats.Sent++
	sched, ok := r.receivers[to]
	lost := !ok || !r.Topology.InRange(from, to) || (r.Loss > 0 && r.rng.Float64() < r.Loss)
	if lost {
		r.stats.Lost++
		r.mu.Unlock()
		return
	}
	r.stats.Delivered++
	r.mu.Unlock()

	if r.OnTransmit != nil {
		r.OnTransmit(from, to, pdu)
	}

	sched.ScheduleTask(func(s *state.State) error {
		if r.IsSilenced(to) {
			return nil
		}
		return core.HandlePdu(s, pdu, from)
	}, r.Latency)
}
