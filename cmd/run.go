package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/encodeous/gradient/sim"
	"github.com/encodeous/gradient/state"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario",
	Long: `Runs every node of the scenario and prints the resulting routing tree.
By default time is simulated, so runs are fast and reproducible. With --realtime every node runs on its own goroutine against the wall clock.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readScenario(scenarioPath)
		if err != nil {
			return err
		}

		level := slog.LevelInfo
		if ok, _ := cmd.Flags().GetBool("verbose"); ok {
			level = slog.LevelDebug
		}
		if logPath, _ := cmd.Flags().GetString("log"); logPath != "" {
			cfg.LogPath = logPath
		}
		if addr, _ := cmd.Flags().GetString("metrics"); addr != "" {
			go func() {
				err := http.ListenAndServe(addr, nil)
				if err != nil {
					slog.Error("metrics server stopped", "err", err)
				}
			}()
		}
		opts := sim.Options{Level: level, Console: os.Stderr}
		realtime, _ := cmd.Flags().GetBool("realtime")
		dot, _ := cmd.Flags().GetString("dot")

		var summary sim.Summary
		if realtime {
			if dot != "" {
				return errors.New("--dot is only supported in simulated time")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			summary, err = sim.RunRealtime(ctx, cfg, opts)
			if errors.Is(err, context.Canceled) {
				slog.Warn("run interrupted")
				err = nil
			}
		} else {
			summary, err = runVirtual(cfg, opts, dot)
		}
		if err != nil {
			return err
		}
		return summary.WriteTable(cmd.OutOrStdout())
	},
	GroupID: "sim",
}

// runVirtual runs cfg in simulated time, optionally writing the final tree to dot
func runVirtual(cfg state.ScenarioCfg, opts sim.Options, dot string) (summary sim.Summary, err error) {
	n, err := sim.NewNetwork(cfg, opts)
	if err != nil {
		return summary, err
	}
	defer func() {
		err = errors.Join(err, n.Close())
	}()
	summary, err = n.Run()
	if err != nil {
		return summary, err
	}
	if dot != "" {
		err = writeDot(dot, n)
	}
	return summary, err
}

func writeDot(path string, n *sim.Network) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = n.Trace.WriteDot(f, n.Topology)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	runCmd.Flags().BoolP("realtime", "r", false, "Run against the wall clock instead of simulated time")
	runCmd.Flags().StringP("dot", "d", "", "Write the final routing tree as a graphviz file")
	runCmd.Flags().StringP("log", "l", "", "Also write logs to this file")
	runCmd.Flags().StringP("metrics", "m", "", "Serve /debug/metrics on this address while running")
}
