package core

import (
	"time"

	"github.com/encodeous/gradient/state"
)

// Trickle is an adaptive broadcast timer. Every fire doubles the interval up to Max,
// and a reset brings it back down to Min. There is at most one pending alarm.
type Trickle struct {
	Min time.Duration
	Max time.Duration

	sched    state.Scheduler
	action   func(s *state.State) error
	interval time.Duration
	cancel   state.CancelFunc
	gen      uint64 // incremented whenever the pending alarm is replaced
	firing   bool
	resetReq bool
	stopped  bool
}

func NewTrickle(sched state.Scheduler, min, max time.Duration, action func(s *state.State) error) *Trickle {
	return &Trickle{
		Min:      min,
		Max:      max,
		sched:    sched,
		action:   action,
		interval: min,
	}
}

// Start arms the first alarm after initialDelay + interval
func (t *Trickle) Start(initialDelay time.Duration) {
	t.stopped = false
	t.arm(initialDelay + t.interval)
}

// Reset replaces the pending alarm. If toMin is set, the interval collapses back to Min.
func (t *Trickle) Reset(toMin bool) {
	if t.stopped {
		return
	}
	if toMin {
		t.interval = t.Min
	}
	if t.firing {
		// rearmed once the action returns
		t.resetReq = t.resetReq || toMin
		return
	}
	t.arm(t.interval)
}

func (t *Trickle) Interval() time.Duration {
	return t.interval
}

func (t *Trickle) Stop() {
	t.stopped = true
	t.disarm()
}

func (t *Trickle) disarm() {
	t.gen++
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

func (t *Trickle) arm(delay time.Duration) {
	t.disarm()
	gen := t.gen
	t.cancel = t.sched.ScheduleTask(func(s *state.State) error {
		if gen != t.gen || t.stopped {
			return nil // superseded
		}
		return t.fire(s)
	}, delay)
}

func (t *Trickle) fire(s *state.State) error {
	t.cancel = nil
	t.firing = true
	t.resetReq = false
	err := t.action(s)
	t.firing = false
	if t.stopped {
		return err
	}
	if t.resetReq {
		t.resetReq = false
		t.interval = t.Min
	} else {
		t.interval = min(2*t.interval, t.Max)
	}
	t.arm(t.interval)
	return err
}
