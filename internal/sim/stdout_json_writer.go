package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// JSONStdoutWriter prints each message as one JSON line on STDOUT.
type JSONStdoutWriter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

// Publish outputs a message in JSON format.
func (w *JSONStdoutWriter) Publish(_ context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message for %s: %w", msg.Topic, err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// PublishBatch outputs multiple messages in JSON format.
func (w *JSONStdoutWriter) PublishBatch(ctx context.Context, msgs []Message) error {
	for _, m := range msgs {
		if err := w.Publish(ctx, m); err != nil {
			return err
		}
	}
	return nil
}
