package sim

import (
	"context"
	"testing"
	"time"

	"github.com/encodeous/gradient/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func fastChain(n int) state.ScenarioCfg {
	cfg := state.ChainScenario(n)
	cfg.Duration = state.Duration(1500 * time.Millisecond)
	cfg.Trickle = state.TrickleCfg{
		Min:           state.Duration(10 * time.Millisecond),
		Max:           state.Duration(100 * time.Millisecond),
		StartupJitter: state.Duration(10 * time.Millisecond),
		StaleFactor:   5,
	}
	cfg.Traffic.Min = state.Duration(50 * time.Millisecond)
	cfg.Traffic.Max = state.Duration(100 * time.Millisecond)
	return cfg
}

func TestRealtimeChain(t *testing.T) {
	defer goleak.VerifyNone(t)

	s, err := RunRealtime(context.Background(), fastChain(3), Options{})
	require.NoError(t, err)

	for i := range 3 {
		node, ok := s.Get(state.NodeId(i))
		require.True(t, ok)
		assert.Equal(t, state.Rank(i), node.Rank)
		assert.False(t, node.Failed)
	}
	assert.True(t, s.Converged())
	assert.Positive(t, s.Delivered)
	assert.GreaterOrEqual(t, s.At, 1500*time.Millisecond)
}

func TestRealtimeFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := fastChain(3)
	cfg.Failures = []state.FailureCfg{{Node: 2, At: state.Duration(300 * time.Millisecond)}}
	s, err := RunRealtime(context.Background(), cfg, Options{})
	require.NoError(t, err)

	two, _ := s.Get(2)
	assert.True(t, two.Failed)
	one, _ := s.Get(1)
	assert.Equal(t, state.NodeId(0), one.Parent)
}

func TestRealtimeCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := fastChain(2)
	cfg.Duration = state.Duration(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := RunRealtime(ctx, cfg, Options{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second)
}
