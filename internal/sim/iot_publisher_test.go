package sim

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
)

type mockIoTClient struct {
	inputs []*iotdataplane.PublishInput
	err    error
}

func (m *mockIoTClient) Publish(_ context.Context, in *iotdataplane.PublishInput, _ ...func(*iotdataplane.Options)) (*iotdataplane.PublishOutput, error) {
	m.inputs = append(m.inputs, in)
	if m.err != nil {
		return nil, m.err
	}
	return &iotdataplane.PublishOutput{}, nil
}

func TestIoTPublisherBody(t *testing.T) {
	m := &mockIoTClient{}
	p := &IoTPublisher{client: m}
	if err := p.Publish(context.Background(), testMessage("vt/car-0", 2)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(m.inputs) != 1 {
		t.Fatalf("expected one publish, got %d", len(m.inputs))
	}
	in := m.inputs[0]
	if aws.ToString(in.Topic) != "vt/car-0" || in.Qos != 1 {
		t.Fatalf("unexpected input: topic=%s qos=%d", aws.ToString(in.Topic), in.Qos)
	}
	var body map[string]any
	if err := json.Unmarshal(in.Payload, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if _, ok := body["topic"]; ok {
		t.Fatalf("body should be the record only: %v", body)
	}
	if body["gear"] != "D" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestIoTPublisherError(t *testing.T) {
	boom := errors.New("throttled")
	p := &IoTPublisher{client: &mockIoTClient{err: boom}}
	if err := p.Publish(context.Background(), testMessage("vt/car-0", 0)); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
