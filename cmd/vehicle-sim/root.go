package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"vehicle-sim/internal/logging"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "vehicle-sim",
	Short: "Synthetic vehicle telemetry toolkit",
	Long:  "vehicle-sim generates schema driven vehicle telemetry, replays recorded runs and translates VSS trees into device templates.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logLevel == "" {
			logLevel = os.Getenv("LOG_LEVEL")
		}
		lvl, err := logging.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		log := logging.New(lvl)
		slog.SetDefault(log)
		cmd.SetContext(logging.NewContext(cmd.Context(), log))
		return nil
	},
	SilenceUsage: true,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to LOG_LEVEL")
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(translateCmd)
	rootCmd.AddCommand(tickCmd)
}
