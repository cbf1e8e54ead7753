package cmd

import (
	"fmt"
	"os"

	"github.com/encodeous/gradient/state"
	"github.com/goccy/go-yaml"
)

var scenarioPath = "scenario.yaml"

// readScenario loads, expands and validates the scenario at path
func readScenario(path string) (state.ScenarioCfg, error) {
	var cfg state.ScenarioCfg
	file, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(file, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	state.ExpandScenarioConfig(&cfg)
	err = state.ScenarioConfigValidator(&cfg)
	if err != nil {
		return cfg, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return cfg, nil
}

func writeScenario(path string, cfg state.ScenarioCfg, overwrite bool) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists, use --force to overwrite it", path)
		}
	}
	return os.WriteFile(path, data, 0644)
}
