package sim

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/encodeous/gradient/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoopState(t *testing.T, loop *EventLoop, id state.NodeId) *state.State {
	t.Helper()
	ctx, cancel := context.WithCancelCause(context.Background())
	sched := loop.Node(id)
	s := &state.State{
		Modules: make(map[string]state.NyModule),
		Env: &state.Env{
			Scheduler: sched,
			NodeCfg:   state.NodeCfg{Id: id},
			Context:   ctx,
			Cancel:    cancel,
			Log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		},
	}
	sched.Bind(s)
	return s
}

func TestEventLoopOrdering(t *testing.T) {
	loop := NewEventLoop()
	var order []int
	loop.AfterFunc(20*time.Millisecond, func() { order = append(order, 3) })
	loop.AfterFunc(10*time.Millisecond, func() { order = append(order, 1) })
	loop.AfterFunc(10*time.Millisecond, func() { order = append(order, 2) })
	loop.AfterFunc(-time.Second, func() { order = append(order, 0) })

	loop.RunUntil(time.Second)
	assert.Equal(t, []int{0, 1, 2, 3}, order)
	assert.Equal(t, time.Second, loop.Now())
	assert.Equal(t, 0, loop.Pending())
	assert.False(t, loop.Step())
}

func TestEventLoopCancel(t *testing.T) {
	loop := NewEventLoop()
	ran := false
	cancel := loop.AfterFunc(time.Millisecond, func() { ran = true })
	assert.Equal(t, 1, loop.Pending())
	assert.True(t, cancel())
	assert.False(t, cancel())
	assert.Equal(t, 0, loop.Pending())
	loop.RunFor(time.Second)
	assert.False(t, ran)

	done := loop.AfterFunc(0, func() {})
	loop.RunFor(0)
	assert.False(t, done())
}

func TestEventLoopRunUntilStopsAtDeadline(t *testing.T) {
	loop := NewEventLoop()
	var at []time.Duration
	var tick func()
	tick = func() {
		at = append(at, loop.Now())
		loop.AfterFunc(100*time.Millisecond, tick)
	}
	loop.AfterFunc(0, tick)

	loop.RunUntil(250 * time.Millisecond)
	assert.Equal(t, []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond}, at)
	assert.Equal(t, 1, loop.Pending())
	loop.RunFor(50 * time.Millisecond)
	assert.Len(t, at, 4)
}

func TestNodeTaskErrorStopsOnlyThatNode(t *testing.T) {
	loop := NewEventLoop()
	a := newLoopState(t, loop, 1)
	b := newLoopState(t, loop, 2)

	boom := errors.New("boom")
	aRuns, bRuns := 0, 0
	a.ScheduleTask(func(s *state.State) error {
		aRuns++
		return boom
	}, time.Millisecond)
	a.ScheduleTask(func(s *state.State) error {
		aRuns++
		return nil
	}, 2*time.Millisecond)
	b.ScheduleTask(func(s *state.State) error {
		bRuns++
		return nil
	}, 3*time.Millisecond)

	loop.RunFor(time.Second)
	assert.Equal(t, 1, aRuns)
	assert.Equal(t, 1, bRuns)
	assert.False(t, a.Alive())
	require.ErrorIs(t, context.Cause(a.Context), boom)
	assert.True(t, a.Stopping.Load())
	assert.True(t, b.Alive())
}

func TestNodeSchedulerDispatch(t *testing.T) {
	loop := NewEventLoop()
	s := newLoopState(t, loop, 1)
	loop.RunFor(time.Second)

	var seen time.Duration
	s.Dispatch(func(s *state.State) error {
		seen = s.Now()
		return nil
	})
	loop.Step()
	assert.Equal(t, time.Second, seen)
}

func TestRepeatTaskOnEventLoop(t *testing.T) {
	loop := NewEventLoop()
	s := newLoopState(t, loop, 1)
	count := 0
	s.RepeatTask(func(s *state.State) error {
		count++
		return nil
	}, 100*time.Millisecond)
	loop.RunUntil(450 * time.Millisecond)
	// runs right away, then at 100, 200, 300 and 400
	assert.Equal(t, 5, count)

	s.Cancel(context.Canceled)
	loop.RunFor(time.Second)
	assert.Equal(t, 5, count)
}
