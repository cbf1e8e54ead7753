package core

import (
	"testing"
	"time"

	"github.com/encodeous/gradient/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualTask struct {
	at   time.Duration
	fun  func(*state.State) error
	done bool
}

// manualScheduler is a single-node virtual clock driven by the test
type manualScheduler struct {
	now   time.Duration
	tasks []*manualTask
}

func (m *manualScheduler) Now() time.Duration {
	return m.now
}

func (m *manualScheduler) Dispatch(fun func(*state.State) error) {
	m.ScheduleTask(fun, 0)
}

func (m *manualScheduler) ScheduleTask(fun func(*state.State) error, delay time.Duration) state.CancelFunc {
	t := &manualTask{at: m.now + delay, fun: fun}
	m.tasks = append(m.tasks, t)
	return func() bool {
		if t.done {
			return false
		}
		t.done = true
		return true
	}
}

func (m *manualScheduler) pending() int {
	n := 0
	for _, t := range m.tasks {
		if !t.done {
			n++
		}
	}
	return n
}

// step runs the earliest pending task, in insertion order for equal times
func (m *manualScheduler) step() bool {
	var next *manualTask
	for _, t := range m.tasks {
		if !t.done && (next == nil || t.at < next.at) {
			next = t
		}
	}
	if next == nil {
		return false
	}
	next.done = true
	m.now = next.at
	_ = next.fun(nil)
	return true
}

func (m *manualScheduler) runUntil(end time.Duration) {
	for {
		var next *manualTask
		for _, t := range m.tasks {
			if !t.done && (next == nil || t.at < next.at) {
				next = t
			}
		}
		if next == nil || next.at > end {
			m.now = end
			return
		}
		m.step()
	}
}

func TestTrickleDoubling(t *testing.T) {
	sched := &manualScheduler{}
	var fires []time.Duration
	tr := NewTrickle(sched, 100*time.Millisecond, 800*time.Millisecond, func(s *state.State) error {
		fires = append(fires, sched.Now())
		return nil
	})
	tr.Start(0)

	last := tr.Interval()
	for range 6 {
		require.True(t, sched.step())
		assert.GreaterOrEqual(t, tr.Interval(), last)
		assert.LessOrEqual(t, tr.Interval(), tr.Max)
		assert.Equal(t, 1, sched.pending())
		last = tr.Interval()
	}
	ms := time.Millisecond
	assert.Equal(t, []time.Duration{100 * ms, 300 * ms, 700 * ms, 1500 * ms, 2300 * ms, 3100 * ms}, fires)
}

func TestTrickleStartupDelay(t *testing.T) {
	sched := &manualScheduler{}
	var fires []time.Duration
	tr := NewTrickle(sched, 100*time.Millisecond, time.Second, func(s *state.State) error {
		fires = append(fires, sched.Now())
		return nil
	})
	tr.Start(42 * time.Millisecond)
	sched.step()
	assert.Equal(t, []time.Duration{142 * time.Millisecond}, fires)
}

func TestTrickleReset(t *testing.T) {
	sched := &manualScheduler{}
	fires := 0
	tr := NewTrickle(sched, 100*time.Millisecond, 800*time.Millisecond, func(s *state.State) error {
		fires++
		return nil
	})
	tr.Start(0)
	for range 3 {
		sched.step()
	}
	assert.Equal(t, 800*time.Millisecond, tr.Interval())
	now := sched.Now()

	tr.Reset(false)
	assert.Equal(t, 800*time.Millisecond, tr.Interval())
	assert.Equal(t, 1, sched.pending())

	tr.Reset(true)
	assert.Equal(t, 100*time.Millisecond, tr.Interval())
	assert.Equal(t, 1, sched.pending())

	sched.step()
	assert.Equal(t, 4, fires)
	assert.Equal(t, now+100*time.Millisecond, sched.Now())
	assert.Equal(t, 200*time.Millisecond, tr.Interval())
}

func TestTrickleResetDuringFire(t *testing.T) {
	sched := &manualScheduler{}
	var fires []time.Duration
	var tr *Trickle
	tr = NewTrickle(sched, 100*time.Millisecond, 800*time.Millisecond, func(s *state.State) error {
		fires = append(fires, sched.Now())
		if len(fires) == 1 {
			tr.Reset(true)
			// nothing is rearmed until the action returns
			assert.Equal(t, 0, sched.pending())
		}
		return nil
	})
	tr.Start(0)
	sched.step()
	assert.Equal(t, 100*time.Millisecond, tr.Interval())
	assert.Equal(t, 1, sched.pending())
	sched.step()
	sched.step()

	ms := time.Millisecond
	assert.Equal(t, []time.Duration{100 * ms, 200 * ms, 400 * ms}, fires)
}

func TestTrickleStop(t *testing.T) {
	sched := &manualScheduler{}
	fires := 0
	tr := NewTrickle(sched, 100*time.Millisecond, 800*time.Millisecond, func(s *state.State) error {
		fires++
		return nil
	})
	tr.Start(0)
	sched.step()
	tr.Stop()
	assert.Equal(t, 0, sched.pending())
	tr.Reset(true)
	assert.Equal(t, 0, sched.pending())
	sched.runUntil(10 * time.Second)
	assert.Equal(t, 1, fires)
}

func TestTrickleIgnoresSupersededAlarm(t *testing.T) {
	sched := &manualScheduler{}
	fires := 0
	tr := NewTrickle(sched, 100*time.Millisecond, 800*time.Millisecond, func(s *state.State) error {
		fires++
		return nil
	})
	tr.Start(0)
	// simulate a scheduler that cannot cancel a timer that already fired
	stale := sched.tasks[0]
	tr.Reset(true)
	stale.done = false

	sched.runUntil(100 * time.Millisecond)
	assert.Equal(t, 1, fires)
	assert.Equal(t, 1, sched.pending())
}
