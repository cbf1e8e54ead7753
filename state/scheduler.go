package state

import (
	"context"
	"fmt"
	"time"
)

// WallScheduler runs a node in real time. Every task is funneled through DispatchChannel
// and executed by the node's main loop, so tasks never run concurrently.
type WallScheduler struct {
	DispatchChannel chan<- func(s *State) error
	Context         context.Context
	Cancel          context.CancelCauseFunc
	Epoch           time.Time
}

func (e *WallScheduler) Now() time.Duration {
	return time.Since(e.Epoch)
}

// Dispatch Dispatches the function to run on the main thread without waiting for it to complete
func (e *WallScheduler) Dispatch(fun func(*State) error) {
	defer func() {
		if r := recover(); r != nil {
			e.Cancel(fmt.Errorf("panic: %v", r))
		}
	}()
	select {
	case e.DispatchChannel <- fun:
	case <-e.Context.Done():
	}
}

// DispatchWait Dispatches the function to run on the main thread and wait for it to complete
func (e *WallScheduler) DispatchWait(fun func(*State) (any, error)) (any, error) {
	ret := make(chan Pair[any, error], 1)
	e.Dispatch(func(s *State) error {
		res, err := fun(s)
		ret <- Pair[any, error]{res, err}
		return err
	})
	select {
	case res := <-ret:
		return res.V1, res.V2
	case <-e.Context.Done():
		return nil, e.Context.Err()
	}
}

func (e *WallScheduler) ScheduleTask(fun func(*State) error, delay time.Duration) CancelFunc {
	t := time.AfterFunc(delay, func() {
		if e.Context.Err() != nil {
			return
		}
		e.Dispatch(fun)
	})
	return t.Stop
}

// RepeatTask runs fun now and then every delay until the node stops.
func (e *Env) RepeatTask(fun func(*State) error, delay time.Duration) {
	var tick func(s *State) error
	tick = func(s *State) error {
		if !e.Alive() {
			return nil
		}
		err := fun(s)
		e.ScheduleTask(tick, delay)
		return err
	}
	e.Dispatch(tick)
}
