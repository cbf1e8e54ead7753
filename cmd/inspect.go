package cmd

import (
	"fmt"
	"strings"

	"github.com/encodeous/gradient/sim"
	"github.com/encodeous/gradient/state"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:     "inspect",
	Aliases: []string{"i"},
	Short:   "Inspects the radio topology of a scenario",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readScenario(scenarioPath)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), describeTopology(sim.NewTopology(cfg.Nodes, cfg.Radio.Range)))
		return nil
	},
	GroupID: "sim",
}

// describeTopology lists every node with its radio neighbours and its ideal hop count to the sink
func describeTopology(topo *sim.Topology) string {
	hops := topo.HopDistances(state.SinkId)
	sb := strings.Builder{}
	unreachable := 0
	for _, id := range topo.Ids() {
		pos, _ := topo.Position(id)
		h, ok := hops[id]
		hs := "-"
		if ok {
			hs = fmt.Sprint(h)
		} else {
			unreachable++
		}
		nbrs := make([]string, 0)
		for _, nb := range topo.Neighbours(id) {
			nbrs = append(nbrs, nb.String())
		}
		fmt.Fprintf(&sb, "node %s (%.1f, %.1f) hops=%s neighbours=[%s]\n", id, pos.X, pos.Y, hs, strings.Join(nbrs, " "))
	}
	fmt.Fprintf(&sb, "%d nodes, %d cannot reach the sink\n", len(topo.Ids()), unreachable)
	return sb.String()
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
