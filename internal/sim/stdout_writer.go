// Writer implementation printing telemetry to STDOUT
package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	topicStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	counterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// StdoutWriter prints a compact human readable line per message. With
// colorize off it falls back to plain JSON lines.
type StdoutWriter struct {
	mu       sync.Mutex
	out      io.Writer
	colorize bool
}

// NewStdoutWriter creates a StdoutWriter on os.Stdout.
func NewStdoutWriter(colorize bool) *StdoutWriter {
	return &StdoutWriter{out: os.Stdout, colorize: colorize}
}

// Publish prints one message.
func (w *StdoutWriter) Publish(_ context.Context, msg Message) error {
	var line string
	if w.colorize {
		line = formatMessage(msg)
	} else {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("encode message for %s: %w", msg.Topic, err)
		}
		line = string(data)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := fmt.Fprintln(w.out, line)
	return err
}

func formatMessage(msg Message) string {
	keys := make([]string, 0, len(msg.Payload))
	for k := range msg.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v, _ := json.Marshal(msg.Payload[k])
		parts = append(parts, keyStyle.Render(k)+"="+string(v))
	}
	return fmt.Sprintf("%s %s %s",
		topicStyle.Render(msg.Topic),
		counterStyle.Render(fmt.Sprintf("#%d", msg.Counter)),
		strings.Join(parts, " "))
}
