package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vehicle-sim/internal/config"
	"vehicle-sim/internal/sim"
)

var (
	replayInput     string
	replaySpeed     float64
	replayPrintOnly bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded message log",
	Long:  "replay feeds messages from a JSONL log back into the sinks configured through the environment, or STDOUT.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		var cfg config.SimulationConfig
		cfg.ApplyEnv(os.LookupEnv)

		pub, cleanup, err := newPublisher(cmd.Context(), cfg.Sinks, sinkOptions{PrintOnly: replayPrintOnly})
		if err != nil {
			return err
		}
		defer cleanup()
		return sim.ReplayLogFile(cmd.Context(), replayInput, pub, replaySpeed)
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to message log file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Print messages to STDOUT instead of the configured sinks")
	_ = replayCmd.MarkFlagRequired("input")
}
