package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"vehicle-sim/internal/config"
	"vehicle-sim/internal/logging"
	"vehicle-sim/internal/sim"
	"vehicle-sim/internal/templates"
)

const defaultGreptimeDatabase = "public"

// stdoutIsTerminal is swapped in tests.
var stdoutIsTerminal = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) }

type sinkOptions struct {
	PrintOnly bool
	LogFile   string
	TUI       bool
	Title     string
	Instances int
}

// newPublisher assembles the publisher chain from flags and configured sinks.
// Remote sinks are wrapped in retries. The console is used when print-only
// is set or no remote sink is configured. The returned cleanup closes every
// sink holding resources.
func newPublisher(ctx context.Context, sinks config.Sinks, opts sinkOptions) (sim.Publisher, func(), error) {
	log := logging.FromContext(ctx)
	var pubs []sim.Publisher
	var closers []io.Closer
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				log.Warn("closing sink failed", "err", err)
			}
		}
	}
	add := func(p sim.Publisher) {
		pubs = append(pubs, p)
		if c, ok := p.(io.Closer); ok {
			closers = append(closers, c)
		}
	}

	if !opts.PrintOnly {
		if sinks.GreptimeEndpoint != "" {
			db := sinks.GreptimeDatabase
			if db == "" {
				db = defaultGreptimeDatabase
			}
			w, err := sim.NewGreptimeDBWriter(sinks.GreptimeEndpoint, db, sinks.GreptimeTable)
			if err != nil {
				return nil, nil, err
			}
			log.Info("publishing to GreptimeDB", "endpoint", sinks.GreptimeEndpoint, "database", db)
			add(sim.NewRetryPublisher(w, sinks.Retries))
		}
		if sinks.IoTEndpoint != "" {
			p, err := sim.NewIoTPublisher(ctx, sinks.IoTEndpoint)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			log.Info("publishing to AWS IoT Core", "endpoint", sinks.IoTEndpoint)
			add(sim.NewRetryPublisher(p, sinks.Retries))
		}
	}

	if len(pubs) == 0 || opts.TUI {
		if len(pubs) == 0 {
			log.Info("print-only mode: telemetry will be printed to STDOUT")
		}
		add(consolePublisher(opts))
	}

	if opts.LogFile != "" {
		fw, err := sim.NewFileWriter(opts.LogFile)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("log file: %w", err)
		}
		add(fw)
	}

	if len(pubs) == 1 {
		return pubs[0], cleanup, nil
	}
	return sim.NewMultiWriter(pubs...), cleanup, nil
}

// consolePublisher picks the TUI when requested on a terminal, colored lines
// on a plain terminal and JSON lines otherwise.
func consolePublisher(opts sinkOptions) sim.Publisher {
	if !stdoutIsTerminal() {
		return sim.NewJSONStdoutWriter()
	}
	if opts.TUI {
		return sim.NewTUIWriter(opts.Title, opts.Instances)
	}
	return sim.NewStdoutWriter(true)
}

// newTemplateStore reads templates from a directory, or from DynamoDB when
// only a table is configured.
func newTemplateStore(ctx context.Context, cfg config.Templates) (templates.Store, error) {
	if cfg.Dir != "" {
		return templates.NewFileStore(cfg.Dir), nil
	}
	if cfg.DynamoDBTable != "" {
		return templates.NewDynamoStore(ctx, cfg.DynamoDBTable)
	}
	return nil, fmt.Errorf("no template source configured")
}
