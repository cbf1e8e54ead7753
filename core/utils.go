package core

import (
	"reflect"

	"github.com/encodeous/gradient/state"
)

// AddRank adds two ranks, saturating at INFM. INF is absorbing.
func AddRank(a, b state.Rank) state.Rank {
	if a == state.INF || b == state.INF {
		return state.INF
	} else {
		return state.Rank(min(uint64(state.INFM), uint64(a)+uint64(b)))
	}
}

func Get[T state.NyModule](s *state.State) T {
	t := reflect.TypeFor[T]()
	return s.Modules[t.String()].(T)
}
