package state

import "time"

// Medium delivers pdus between nodes on a best-effort basis. Receivers outside of range silently miss them.
type Medium interface {
	Broadcast(from NodeId, pdu Pdu)
	Unicast(from, to NodeId, pdu Pdu)
}

// Visualizer is notified whenever a node changes its preferred parent.
type Visualizer interface {
	OnLinkChanged(node, oldParent, newParent NodeId)
}

// Application consumes payloads at the sink and is told about packets a node could not forward.
type Application interface {
	OnDeliver(s *State, pdu DataPdu)
	OnDrop(s *State, pdu DataPdu, err error)
}

type CancelFunc func() bool

// Scheduler runs the tasks of a single node strictly one after another.
type Scheduler interface {
	// Now returns the time elapsed since the start of the simulation
	Now() time.Duration
	// Dispatch runs fun on the node's task without waiting for it to complete
	Dispatch(fun func(*State) error)
	// ScheduleTask runs fun on the node's task after delay. The returned func cancels it if it has not run yet.
	ScheduleTask(fun func(*State) error, delay time.Duration) CancelFunc
}
