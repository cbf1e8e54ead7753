package state

import (
	"fmt"
	"math"
	"os"
	"path"
	"path/filepath"
)

func PathValidator(s string) error {
	_, err := os.Stat(path.Dir(s))
	if err != nil {
		return err
	}
	_, err = filepath.Abs(s)
	return err
}

func NodeConfigValidator(node *NodeCfg) error {
	if node.Id < 0 {
		return fmt.Errorf("node id %d must not be negative", node.Id)
	}
	if math.IsNaN(node.X) || math.IsNaN(node.Y) || math.IsInf(node.X, 0) || math.IsInf(node.Y, 0) {
		return fmt.Errorf("node %s has an invalid position", node.Id)
	}
	return nil
}

func TrickleConfigValidator(cfg *TrickleCfg) error {
	p := cfg.Protocol()
	if p.TrickleMin <= 0 {
		return fmt.Errorf("trickle.min must be positive")
	}
	if p.TrickleMax < p.TrickleMin {
		return fmt.Errorf("trickle.max (%s) must not be smaller than trickle.min (%s)", p.TrickleMax, p.TrickleMin)
	}
	if p.StaleFactor < 1 {
		return fmt.Errorf("trickle.stale_factor must be at least 1")
	}
	if p.StartupJitter < 0 || p.GcInterval < 0 {
		return fmt.Errorf("trickle durations must not be negative")
	}
	return nil
}

func ScenarioConfigValidator(cfg *ScenarioCfg) error {
	if len(cfg.Nodes) == 0 {
		return fmt.Errorf("scenario has no nodes")
	}
	seen := make(map[NodeId]struct{})
	for i := range cfg.Nodes {
		err := NodeConfigValidator(&cfg.Nodes[i])
		if err != nil {
			return err
		}
		if _, ok := seen[cfg.Nodes[i].Id]; ok {
			return fmt.Errorf("duplicate node id: %s", cfg.Nodes[i].Id)
		}
		seen[cfg.Nodes[i].Id] = struct{}{}
	}
	if _, ok := seen[SinkId]; !ok {
		return fmt.Errorf("scenario must contain the sink (node %s)", SinkId)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	if cfg.Radio.Range <= 0 {
		return fmt.Errorf("radio.range must be positive")
	}
	if cfg.Radio.Loss < 0 || cfg.Radio.Loss >= 1 {
		return fmt.Errorf("radio.loss must be in [0, 1), got %g", cfg.Radio.Loss)
	}
	if cfg.Radio.Latency < 0 {
		return fmt.Errorf("radio.latency must not be negative")
	}
	if err := TrickleConfigValidator(&cfg.Trickle); err != nil {
		return err
	}
	if !cfg.Traffic.Disabled {
		if cfg.Traffic.Min <= 0 || cfg.Traffic.Max < cfg.Traffic.Min {
			return fmt.Errorf("traffic period must satisfy 0 < min <= max")
		}
		for _, src := range cfg.Traffic.Sources {
			if _, ok := seen[src]; !ok {
				return fmt.Errorf("traffic source %s not defined", src)
			}
		}
	}
	for _, f := range cfg.Failures {
		if _, ok := seen[f.Node]; !ok {
			return fmt.Errorf("failure references undefined node %s", f.Node)
		}
		if f.Node == SinkId {
			return fmt.Errorf("the sink cannot be failed")
		}
	}
	if cfg.LogPath != "" {
		if err := PathValidator(cfg.LogPath); err != nil {
			return fmt.Errorf("invalid log_path: %w", err)
		}
	}
	return nil
}
