// Command tick-lambda runs one device tick per invocation for the state
// machine that schedules simulations.
package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/aws/aws-lambda-go/lambda"

	"vehicle-sim/internal/handler"
	"vehicle-sim/internal/logging"
	"vehicle-sim/internal/sim"
)

func main() {
	log := logging.NewJSON(logging.LevelFromEnv())
	slog.SetDefault(log)
	ctx := logging.NewContext(context.Background(), log)

	iot, err := sim.NewIoTPublisher(ctx, os.Getenv("IOT_ENDPOINT"))
	if err != nil {
		log.Error("failed to create IoT publisher", "err", err)
		os.Exit(1)
	}
	retries, _ := strconv.Atoi(os.Getenv("PUBLISH_RETRIES"))
	pub := sim.NewRetryPublisher(iot, retries)

	h := &handler.TickHandler{
		Orchestrator: sim.NewOrchestrator(pub, sim.WithTopicPrefix(os.Getenv("TOPIC_PREFIX"))),
	}
	lambda.Start(func(ctx context.Context, ev handler.Event) (any, error) {
		return h.Handle(logging.NewContext(ctx, log), ev)
	})
}
