package state

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
)

type NyModule interface {
	Init(s *State) error
	Cleanup(s *State) error
}

// State access must be done only on the node's own task
type State struct {
	*Env
	Modules     map[string]NyModule
	RouterState *RouterState
}

// Env can be read from any Goroutine
type Env struct {
	Scheduler
	NodeCfg
	Protocol    ProtocolCfg
	Medium      Medium
	Visualizer  Visualizer
	Application Application
	Context     context.Context
	Cancel      context.CancelCauseFunc
	Log         *slog.Logger
	Rand        *rand.Rand
	Started     atomic.Bool
	Stopping    atomic.Bool
}

// Alive reports whether the node is still accepting work.
func (e *Env) Alive() bool {
	return e.Context.Err() == nil
}
