package sim

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"
)

// ReplayLog re-publishes messages read from a JSONL log. A speed >0
// accelerates playback; with speed <= 0 no delay is inserted.
func ReplayLog(ctx context.Context, r io.Reader, pub Publisher, speed float64) error {
	dec := json.NewDecoder(r)
	var prev time.Time
	for {
		var msg Message
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if !prev.IsZero() && speed > 0 {
			diff := msg.Timestamp.Sub(prev)
			if speed != 1 {
				diff = time.Duration(float64(diff) / speed)
			}
			if diff > 0 {
				select {
				case <-time.After(diff):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		if err := pub.Publish(ctx, msg); err != nil {
			return err
		}
		prev = msg.Timestamp
	}
}

// ReplayLogFile opens a file and replays its messages.
func ReplayLogFile(ctx context.Context, path string, pub Publisher, speed float64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ReplayLog(ctx, f, pub, speed)
}
