package sim

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
)

// iotPublishAPI is the subset of the IoT data plane client used here.
type iotPublishAPI interface {
	Publish(ctx context.Context, in *iotdataplane.PublishInput, optFns ...func(*iotdataplane.Options)) (*iotdataplane.PublishOutput, error)
}

// IoTPublisher sends each record to AWS IoT Core with QoS 1. The message
// body is the generated record only.
type IoTPublisher struct {
	client iotPublishAPI
}

// NewIoTPublisher loads the default AWS configuration. endpoint is the
// account specific data endpoint (https://xxxx-ats.iot.<region>.amazonaws.com);
// when empty the SDK default resolution is used.
func NewIoTPublisher(ctx context.Context, endpoint string) (*IoTPublisher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := iotdataplane.NewFromConfig(cfg, func(o *iotdataplane.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return &IoTPublisher{client: client}, nil
}

// Publish delivers msg.Payload on msg.Topic.
func (p *IoTPublisher) Publish(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg.Payload)
	if err != nil {
		return fmt.Errorf("encode payload for %s: %w", msg.Topic, err)
	}
	_, err = p.client.Publish(ctx, &iotdataplane.PublishInput{
		Topic:   aws.String(msg.Topic),
		Payload: body,
		Qos:     1,
	})
	if err != nil {
		return fmt.Errorf("iot publish %s: %w", msg.Topic, err)
	}
	return nil
}
