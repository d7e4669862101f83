package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"vehicle-sim/internal/logging"
)

const (
	defaultGreptimePort   = 4001
	DefaultTelemetryTable = "vehicle_telemetry"
)

// greptimeClient is the subset of the ingester client used by the writer.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter stores messages in a GreptimeDB table: topic and device
// are tags, the payload is a JSON column and the message time is the index.
type GreptimeDBWriter struct {
	client greptimeClient
	table  string
}

// NewGreptimeDBWriter connects to endpoint ("host" or "host:port").
func NewGreptimeDBWriter(endpoint, database, tableName string) (*GreptimeDBWriter, error) {
	host, port := endpoint, defaultGreptimePort
	if h, p, err := net.SplitHostPort(endpoint); err == nil {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("greptime port %q: %w", p, err)
		}
		host, port = h, n
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	if tableName == "" {
		tableName = DefaultTelemetryTable
	}
	return &GreptimeDBWriter{client: client, table: tableName}, nil
}

// Publish inserts a single message.
func (w *GreptimeDBWriter) Publish(ctx context.Context, msg Message) error {
	return w.PublishBatch(ctx, []Message{msg})
}

// PublishBatch inserts multiple messages in one write.
func (w *GreptimeDBWriter) PublishBatch(ctx context.Context, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}
	tbl, err := w.buildTable(msgs)
	if err != nil {
		return err
	}
	if _, err := w.client.Write(ctx, tbl); err != nil {
		logging.FromContext(ctx).Error("greptime write failed", "table", w.table, "err", err)
		return fmt.Errorf("greptime write: %w", err)
	}
	logging.FromContext(ctx).Debug("greptime write", "table", w.table, "rows", len(msgs))
	return nil
}

func (w *GreptimeDBWriter) buildTable(msgs []Message) (*table.Table, error) {
	tbl, err := table.New(w.table)
	if err != nil {
		return nil, err
	}
	if err := tbl.AddTagColumn("topic", types.STRING); err != nil {
		return nil, err
	}
	if err := tbl.AddTagColumn("device", types.STRING); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("sim_id", types.STRING); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("counter", types.INT64); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("payload", types.JSON); err != nil {
		return nil, err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}
	for _, m := range msgs {
		payload, err := json.Marshal(m.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload for %s: %w", m.Topic, err)
		}
		if err := tbl.AddRow(m.Topic, m.Device, m.SimID, int64(m.Counter), string(payload), m.Timestamp); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}
