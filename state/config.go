package state

import (
	"math"
	"math/rand/v2"
	"time"
)

type Position struct {
	X float64
	Y float64
}

func (p Position) DistanceTo(o Position) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// NodeCfg represents a single sensor node and where it is placed
type NodeCfg struct {
	Id NodeId  `yaml:"id"`
	X  float64 `yaml:"x"`
	Y  float64 `yaml:"y"`
}

func (n NodeCfg) Position() Position {
	return Position{X: n.X, Y: n.Y}
}

type RadioCfg struct {
	Range   float64  `yaml:"range"`             // maximum distance at which two nodes hear each other
	Loss    float64  `yaml:"loss,omitempty"`    // probability that a single delivery is dropped
	Latency Duration `yaml:"latency,omitempty"` // time between sending and receiving a pdu
}

type TrickleCfg struct {
	Min           Duration `yaml:"min"`
	Max           Duration `yaml:"max"`
	StartupJitter Duration `yaml:"startup_jitter,omitempty"`
	StaleFactor   int      `yaml:"stale_factor,omitempty"`
	GcInterval    Duration `yaml:"gc_interval,omitempty"`
	RankCeiling   Rank     `yaml:"rank_ceiling,omitempty"`
}

type TrafficCfg struct {
	Min      Duration `yaml:"min"`
	Max      Duration `yaml:"max"`
	Payload  string   `yaml:"payload,omitempty"`
	Disabled bool     `yaml:"disabled,omitempty"`
	Sources  []NodeId `yaml:"sources,omitempty"` // if empty, every non-sink node originates traffic
}

// RandomPlacementCfg places Count nodes uniformly over a Width x Height terrain
type RandomPlacementCfg struct {
	Count  int     `yaml:"count"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// FailureCfg silences a node at a point in simulated time
type FailureCfg struct {
	Node NodeId   `yaml:"node"`
	At   Duration `yaml:"at"`
}

// ScenarioCfg describes a whole simulated network
type ScenarioCfg struct {
	Seed     uint64              `yaml:"seed"`
	Duration Duration            `yaml:"duration"`
	Radio    RadioCfg            `yaml:"radio"`
	Trickle  TrickleCfg          `yaml:"trickle"`
	Traffic  TrafficCfg          `yaml:"traffic"`
	Nodes    []NodeCfg           `yaml:"nodes,omitempty"`
	Random   *RandomPlacementCfg `yaml:"random,omitempty"`
	Failures []FailureCfg        `yaml:"failures,omitempty"`
	LogPath  string              `yaml:"log_path,omitempty"` // if not empty, logs are also written to this file
}

// ProtocolCfg holds the resolved per-node protocol parameters
type ProtocolCfg struct {
	TrickleMin    time.Duration
	TrickleMax    time.Duration
	StartupJitter time.Duration
	StaleFactor   int
	GcInterval    time.Duration
	RankCeiling   Rank
}

// StaleAfter is the age after which a silent neighbour is evicted
func (p ProtocolCfg) StaleAfter() time.Duration {
	return time.Duration(p.StaleFactor) * p.TrickleMax
}

func DefaultProtocol() ProtocolCfg {
	return TrickleCfg{}.Protocol()
}

// Protocol fills unset values with their defaults
func (c TrickleCfg) Protocol() ProtocolCfg {
	p := ProtocolCfg{
		TrickleMin:    c.Min.D(),
		TrickleMax:    c.Max.D(),
		StartupJitter: c.StartupJitter.D(),
		StaleFactor:   c.StaleFactor,
		GcInterval:    c.GcInterval.D(),
		RankCeiling:   c.RankCeiling,
	}
	if p.TrickleMin == 0 {
		p.TrickleMin = TrickleMinPeriod
	}
	if p.TrickleMax == 0 {
		p.TrickleMax = max(TrickleMaxPeriod, p.TrickleMin)
	}
	if p.StaleFactor == 0 {
		p.StaleFactor = StaleFactor
	}
	if p.GcInterval == 0 {
		p.GcInterval = p.TrickleMax / 2
	}
	if p.RankCeiling == 0 {
		p.RankCeiling = RankCeiling
	}
	return p
}

func DefaultScenario() ScenarioCfg {
	return ScenarioCfg{
		Seed:     1,
		Duration: Duration(DefaultDuration),
		Radio: RadioCfg{
			Range:   DefaultTxRange,
			Latency: Duration(DefaultLatency),
		},
		Trickle: TrickleCfg{
			Min:           Duration(TrickleMinPeriod),
			Max:           Duration(TrickleMaxPeriod),
			StartupJitter: Duration(StartupJitter),
		},
		Traffic: TrafficCfg{
			Min:     Duration(TrafficMinPeriod),
			Max:     Duration(TrafficMaxPeriod),
			Payload: DefaultPayload,
		},
		Random: &RandomPlacementCfg{
			Count:  15,
			Width:  500,
			Height: 500,
		},
	}
}

// ChainScenario places n nodes on a line, each only in range of its immediate neighbours
func ChainScenario(n int) ScenarioCfg {
	cfg := DefaultScenario()
	cfg.Random = nil
	const spacing = 100.0
	cfg.Radio.Range = spacing * 1.5
	for i := range n {
		cfg.Nodes = append(cfg.Nodes, NodeCfg{Id: NodeId(i), X: float64(i) * spacing})
	}
	return cfg
}

// ExpandScenarioConfig materializes random placement into concrete nodes
func ExpandScenarioConfig(cfg *ScenarioCfg) {
	if cfg.Random == nil || len(cfg.Nodes) != 0 {
		return
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	for i := range cfg.Random.Count {
		cfg.Nodes = append(cfg.Nodes, NodeCfg{
			Id: NodeId(i),
			X:  rng.Float64() * cfg.Random.Width,
			Y:  rng.Float64() * cfg.Random.Height,
		})
	}
}
