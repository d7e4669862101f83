package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"vehicle-sim/internal/handler"
	"vehicle-sim/internal/sim"
)

var (
	tickEvent       string
	tickIoTEndpoint string
	tickRetries     int
)

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run one device tick from an event file",
	Long:  "tick runs a single orchestrator step for a state machine event, publishes the record and prints the options bag for the next invocation.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		data, err := os.ReadFile(tickEvent)
		if err != nil {
			return err
		}
		var ev handler.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}

		var pub sim.Publisher = sim.NewJSONStdoutWriter()
		if tickIoTEndpoint != "" {
			iot, err := sim.NewIoTPublisher(ctx, tickIoTEndpoint)
			if err != nil {
				return err
			}
			pub = sim.NewRetryPublisher(iot, tickRetries)
		}

		h := &handler.TickHandler{Orchestrator: sim.NewOrchestrator(pub)}
		state, err := h.Handle(ctx, ev)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	},
}

func init() {
	tickCmd.Flags().StringVar(&tickEvent, "event", "", "Path to the tick event JSON")
	tickCmd.Flags().StringVar(&tickIoTEndpoint, "iot-endpoint", os.Getenv("IOT_ENDPOINT"), "Publish to this AWS IoT data endpoint instead of STDOUT")
	tickCmd.Flags().IntVar(&tickRetries, "retries", 0, "Publish retries for the IoT endpoint")
	_ = tickCmd.MarkFlagRequired("event")
}
