package sim

import (
	"context"
	"time"

	"vehicle-sim/internal/telemetry"
)

// Message is one published telemetry record together with its routing data.
// The wire body sent to a broker is Payload alone; the remaining fields are
// kept by log-style sinks so runs can be replayed.
type Message struct {
	Topic     string           `json:"topic"`
	SimID     string           `json:"sim_id,omitempty"`
	Device    string           `json:"device"`
	Index     int              `json:"index"`
	Counter   int              `json:"counter"`
	Payload   telemetry.Record `json:"payload"`
	Timestamp time.Time        `json:"ts"`
}

// Publisher delivers generated records to a sink.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Optional: publishers may accept a whole tick at once.
type batchPublisher interface {
	PublishBatch(ctx context.Context, msgs []Message) error
}

// PublishAll sends msgs through pub, using batch mode when supported.
func PublishAll(ctx context.Context, pub Publisher, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if bp, ok := pub.(batchPublisher); ok {
		return bp.PublishBatch(ctx, msgs)
	}
	for _, m := range msgs {
		if err := pub.Publish(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, msg Message) error

func (f PublisherFunc) Publish(ctx context.Context, msg Message) error { return f(ctx, msg) }

// Discard drops every message.
var Discard Publisher = PublisherFunc(func(context.Context, Message) error { return nil })
