package cmd

import (
	"fmt"

	"github.com/encodeous/gradient/state"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Writes a new scenario",
	Long: `Writes a scenario config to the path given by --scenario.
By default nodes are placed randomly, use --chain to generate a straight line of nodes instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		chain, _ := cmd.Flags().GetInt("chain")
		seed, _ := cmd.Flags().GetUint64("seed")
		force, _ := cmd.Flags().GetBool("force")

		cfg := state.DefaultScenario()
		if chain > 0 {
			cfg = state.ChainScenario(chain)
		}
		if cmd.Flags().Changed("seed") {
			cfg.Seed = seed
		}
		err := writeScenario(scenarioPath, cfg, force)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote scenario to %s\n", scenarioPath)
		return nil
	},
	GroupID: "init",
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().Int("chain", 0, "Place this many nodes in a line instead of randomly")
	initCmd.Flags().Uint64("seed", 0, "Random seed for placement, loss and jitter")
	initCmd.Flags().BoolP("force", "f", false, "Overwrite an existing scenario")
}
