package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vehicle-sim/internal/admin"
	"vehicle-sim/internal/config"
	"vehicle-sim/internal/logging"
	"vehicle-sim/internal/sim"
)

var (
	simPrintOnly  bool
	simConfigPath string
	simSchemaPath string
	simLogFile    string
	simTUI        bool
	simAdminAddr  string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a local vehicle simulation",
	Long:  "simulate ticks every configured device once per interval until the run duration is reached, publishing each record to the configured sinks.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := logging.FromContext(ctx)

		cfg, err := config.Load(simConfigPath, simSchemaPath)
		if err != nil {
			return err
		}
		store, err := newTemplateStore(ctx, cfg.Templates)
		if err != nil {
			return err
		}

		pub, cleanup, err := newPublisher(ctx, cfg.Sinks, sinkOptions{
			PrintOnly: simPrintOnly,
			LogFile:   simLogFile,
			TUI:       simTUI,
			Title:     fmt.Sprintf("vehicle-sim %s", cfg.TopicPrefix),
			Instances: cfg.Instances(),
		})
		if err != nil {
			return err
		}
		defer cleanup()

		simulator, err := sim.NewSimulator(ctx, cfg, store, pub)
		if err != nil {
			return err
		}

		if simAdminAddr != "" {
			srv := admin.NewServer(simulator)
			if aw, ok := pub.(sim.AdminStatusWriter); ok {
				aw.SetAdminStatus(true)
			}
			go func() {
				if err := srv.Start(ctx, simAdminAddr); err != nil {
					log.Error("admin server failed", "err", err)
				}
			}()
		}

		if err := simulator.Run(ctx); err != nil {
			return err
		}
		log.Info("vehicle simulation stopped", "sim_id", simulator.SimID())
		return nil
	},
}

func init() {
	simulateCmd.Flags().BoolVar(&simPrintOnly, "print-only", false, "Print telemetry to STDOUT instead of the configured sinks")
	simulateCmd.Flags().StringVar(&simConfigPath, "config", "configs/simulation.yaml", "Path to simulation configuration YAML")
	simulateCmd.Flags().StringVar(&simSchemaPath, "schema", "schemas/simulation.cue", "Path to CUE schema file")
	simulateCmd.Flags().StringVar(&simLogFile, "log-file", "", "Path to export published messages (JSONL)")
	simulateCmd.Flags().BoolVar(&simTUI, "tui", false, "Show a terminal dashboard instead of raw output")
	simulateCmd.Flags().StringVar(&simAdminAddr, "admin-addr", "", "Serve device status on this address (e.g. :8080)")
}
