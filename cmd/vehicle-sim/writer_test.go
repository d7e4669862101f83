package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vehicle-sim/internal/config"
	"vehicle-sim/internal/sim"
	"vehicle-sim/internal/telemetry"
	"vehicle-sim/internal/templates"
)

func withTerminal(t *testing.T, isTTY bool) {
	t.Helper()
	prev := stdoutIsTerminal
	stdoutIsTerminal = func() bool { return isTTY }
	t.Cleanup(func() { stdoutIsTerminal = prev })
}

func TestNewPublisherPrintOnly(t *testing.T) {
	withTerminal(t, false)
	sinks := config.Sinks{GreptimeEndpoint: "localhost:4001", IoTEndpoint: "https://example.iot"}
	pub, cleanup, err := newPublisher(context.Background(), sinks, sinkOptions{PrintOnly: true})
	if err != nil {
		t.Fatalf("newPublisher returned error: %v", err)
	}
	cleanup()
	if _, ok := pub.(*sim.JSONStdoutWriter); !ok {
		t.Fatalf("expected *sim.JSONStdoutWriter, got %T", pub)
	}
}

func TestNewPublisherNoSinksFallback(t *testing.T) {
	withTerminal(t, false)
	pub, cleanup, err := newPublisher(context.Background(), config.Sinks{}, sinkOptions{})
	if err != nil {
		t.Fatalf("newPublisher returned error: %v", err)
	}
	cleanup()
	if _, ok := pub.(*sim.JSONStdoutWriter); !ok {
		t.Fatalf("expected *sim.JSONStdoutWriter, got %T", pub)
	}
}

func TestNewPublisherTerminal(t *testing.T) {
	withTerminal(t, true)
	pub, cleanup, err := newPublisher(context.Background(), config.Sinks{}, sinkOptions{})
	if err != nil {
		t.Fatalf("newPublisher returned error: %v", err)
	}
	cleanup()
	if _, ok := pub.(*sim.StdoutWriter); !ok {
		t.Fatalf("expected *sim.StdoutWriter, got %T", pub)
	}
}

func TestNewPublisherTUIWithoutTerminal(t *testing.T) {
	withTerminal(t, false)
	pub, cleanup, err := newPublisher(context.Background(), config.Sinks{}, sinkOptions{TUI: true})
	if err != nil {
		t.Fatalf("newPublisher returned error: %v", err)
	}
	cleanup()
	if _, ok := pub.(*sim.JSONStdoutWriter); !ok {
		t.Fatalf("expected *sim.JSONStdoutWriter, got %T", pub)
	}
}

func TestNewPublisherLogFile(t *testing.T) {
	withTerminal(t, false)
	path := filepath.Join(t.TempDir(), "logs", "telemetry.jsonl")
	pub, cleanup, err := newPublisher(context.Background(), config.Sinks{}, sinkOptions{PrintOnly: true, LogFile: path})
	if err != nil {
		t.Fatalf("newPublisher returned error: %v", err)
	}
	if _, ok := pub.(*sim.MultiWriter); !ok {
		t.Fatalf("expected *sim.MultiWriter, got %T", pub)
	}
	msg := sim.Message{Topic: "vt/sedan-0", Device: "sedan", Payload: telemetry.Record{"speed": 10}, Timestamp: time.Now()}
	if err := pub.Publish(context.Background(), msg); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	cleanup()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("expected log file to be non-empty")
	}
}

func TestNewTemplateStore(t *testing.T) {
	store, err := newTemplateStore(context.Background(), config.Templates{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("newTemplateStore returned error: %v", err)
	}
	if _, ok := store.(*templates.FileStore); !ok {
		t.Fatalf("expected *templates.FileStore, got %T", store)
	}
	if _, err := newTemplateStore(context.Background(), config.Templates{}); err == nil {
		t.Fatalf("expected error without a template source")
	}
}
