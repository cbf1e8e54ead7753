package sim

import (
	"container/heap"
	"time"

	"github.com/encodeous/gradient/core"
	"github.com/encodeous/gradient/state"
)

type event struct {
	at        time.Duration
	seq       uint64
	run       func()
	cancelled bool
	done      bool
}

type eventQueue []*event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) { *q = append(*q, x.(*event)) }

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}

// EventLoop is a deterministic discrete-event scheduler. Events run one at a time in (time, insertion) order,
// so every node sharing the loop observes a consistent virtual clock.
type EventLoop struct {
	now   time.Duration
	seq   uint64
	queue eventQueue
	nodes map[state.NodeId]*NodeScheduler
}

func NewEventLoop() *EventLoop {
	return &EventLoop{
		nodes: make(map[state.NodeId]*NodeScheduler),
	}
}

func (l *EventLoop) Now() time.Duration {
	return l.now
}

// Pending returns the number of events that have not run or been cancelled yet
func (l *EventLoop) Pending() int {
	n := 0
	for _, e := range l.queue {
		if !e.cancelled {
			n++
		}
	}
	return n
}

// AfterFunc schedules fun outside of any node's task
func (l *EventLoop) AfterFunc(delay time.Duration, fun func()) state.CancelFunc {
	e := &event{
		at:  l.now + max(delay, 0),
		seq: l.seq,
		run: fun,
	}
	l.seq++
	heap.Push(&l.queue, e)
	return func() bool {
		if e.cancelled || e.done {
			return false
		}
		e.cancelled = true
		return true
	}
}

// Step runs the next event, returning false once the queue is empty
func (l *EventLoop) Step() bool {
	for l.queue.Len() > 0 {
		e := heap.Pop(&l.queue).(*event)
		if e.cancelled {
			continue
		}
		l.now = e.at
		e.done = true
		e.run()
		return true
	}
	return false
}

// RunUntil runs every event scheduled at or before t, then advances the clock to t
func (l *EventLoop) RunUntil(t time.Duration) {
	for l.queue.Len() > 0 {
		next := l.queue[0]
		if next.cancelled {
			heap.Pop(&l.queue)
			continue
		}
		if next.at > t {
			break
		}
		l.Step()
	}
	if t > l.now {
		l.now = t
	}
}

func (l *EventLoop) RunFor(d time.Duration) {
	l.RunUntil(l.now + d)
}

// Node returns the scheduler for a single node, creating it if needed
func (l *EventLoop) Node(id state.NodeId) *NodeScheduler {
	n, ok := l.nodes[id]
	if !ok {
		n = &NodeScheduler{loop: l}
		l.nodes[id] = n
	}
	return n
}

// NodeScheduler implements state.Scheduler on top of a shared EventLoop
type NodeScheduler struct {
	loop *EventLoop
	s    *state.State
}

// Bind attaches the node state that tasks will run against
func (n *NodeScheduler) Bind(s *state.State) {
	n.s = s
}

func (n *NodeScheduler) Now() time.Duration {
	return n.loop.now
}

func (n *NodeScheduler) Dispatch(fun func(*state.State) error) {
	n.ScheduleTask(fun, 0)
}

func (n *NodeScheduler) ScheduleTask(fun func(*state.State) error, delay time.Duration) state.CancelFunc {
	return n.loop.AfterFunc(delay, func() {
		s := n.s
		if s == nil || !s.Alive() {
			return
		}
		err := fun(s)
		if err != nil {
			// only this node stops, the rest of the network carries on
			s.Log.Error("error occurred during dispatch: ", "error", err)
			s.Cancel(err)
			core.Stop(s)
		}
	})
}
