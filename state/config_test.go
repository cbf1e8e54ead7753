package state

import (
	"testing"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtocolDefaults(t *testing.T) {
	p := DefaultProtocol()
	assert.Equal(t, TrickleMinPeriod, p.TrickleMin)
	assert.Equal(t, TrickleMaxPeriod, p.TrickleMax)
	assert.Equal(t, 2*TrickleMaxPeriod, p.StaleAfter())
	assert.Equal(t, TrickleMaxPeriod/2, p.GcInterval)
	assert.Equal(t, RankCeiling, p.RankCeiling)
}

func TestProtocolMaxFollowsMin(t *testing.T) {
	p := TrickleCfg{Min: Duration(5 * time.Second)}.Protocol()
	assert.Equal(t, 5*time.Second, p.TrickleMax)
}

func TestScenarioRoundTrip(t *testing.T) {
	cfg := ChainScenario(4)
	cfg.Failures = []FailureCfg{{Node: 2, At: Duration(10 * time.Second)}}

	out, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(out), "min: 100ms")

	parsed := ScenarioCfg{}
	require.NoError(t, yaml.Unmarshal(out, &parsed))
	assert.EqualValues(t, cfg, parsed)
}

func TestScenarioParse(t *testing.T) {
	raw := `seed: 7
duration: 30s
radio:
  range: 150
  loss: 0.1
trickle:
  min: 50ms
  max: 1s
traffic:
  min: 1s
  max: 2s
nodes:
  - id: 0
    x: 0
    y: 0
  - id: 1
    x: 100
    y: 0
failures:
  - node: 1
    at: 5s
`
	cfg := ScenarioCfg{}
	require.NoError(t, yaml.Unmarshal([]byte(raw), &cfg))
	assert.Equal(t, uint64(7), cfg.Seed)
	assert.Equal(t, 30*time.Second, cfg.Duration.D())
	assert.Equal(t, 50*time.Millisecond, cfg.Trickle.Protocol().TrickleMin)
	assert.Equal(t, 5*time.Second, cfg.Failures[0].At.D())
	assert.Len(t, cfg.Nodes, 2)
	assert.NoError(t, ScenarioConfigValidator(&cfg))
}

func TestScenarioParseInvalidDuration(t *testing.T) {
	cfg := ScenarioCfg{}
	err := yaml.Unmarshal([]byte("duration: soon\n"), &cfg)
	assert.Error(t, err)
}

func TestExpandScenarioConfig(t *testing.T) {
	cfg := DefaultScenario()
	ExpandScenarioConfig(&cfg)
	assert.Len(t, cfg.Nodes, 15)
	for i, n := range cfg.Nodes {
		assert.Equal(t, NodeId(i), n.Id)
		assert.GreaterOrEqual(t, n.X, 0.0)
		assert.Less(t, n.X, 500.0)
	}

	// the same seed places nodes identically
	again := DefaultScenario()
	ExpandScenarioConfig(&again)
	assert.Equal(t, cfg.Nodes, again.Nodes)

	// explicit nodes are never overwritten
	chain := ChainScenario(3)
	chain.Random = &RandomPlacementCfg{Count: 10, Width: 1, Height: 1}
	ExpandScenarioConfig(&chain)
	assert.Len(t, chain.Nodes, 3)
}

func TestChainScenario(t *testing.T) {
	cfg := ChainScenario(4)
	require.NoError(t, ScenarioConfigValidator(&cfg))
	a, b, c := cfg.Nodes[0].Position(), cfg.Nodes[1].Position(), cfg.Nodes[2].Position()
	assert.LessOrEqual(t, a.DistanceTo(b), cfg.Radio.Range)
	assert.Greater(t, a.DistanceTo(c), cfg.Radio.Range)
}
