package templates

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"vehicle-sim/internal/dynamomapper"
)

// dynamoAPI is the subset of the DynamoDB client used by DynamoStore.
type dynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// templateItem is the table layout: the payload is stored as a list of maps
// so it stays readable in the console.
type templateItem struct {
	ID      string           `dynamodbav:"id"`
	Name    string           `dynamodbav:"name,omitempty"`
	Topic   string           `dynamodbav:"topic,omitempty"`
	Payload []map[string]any `dynamodbav:"payload"`
}

// DynamoStore keeps templates in a DynamoDB table keyed by "id".
type DynamoStore struct {
	client    dynamoAPI
	tableName string
}

// NewDynamoStore loads the default AWS configuration. An empty tableName
// falls back to TEMPLATES_TABLE.
func NewDynamoStore(ctx context.Context, tableName string) (*DynamoStore, error) {
	if tableName == "" {
		tableName = os.Getenv("TEMPLATES_TABLE")
	}
	if tableName == "" {
		return nil, fmt.Errorf("TEMPLATES_TABLE environment variable is not set")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &DynamoStore{client: dynamodb.NewFromConfig(cfg), tableName: tableName}, nil
}

func (s *DynamoStore) Get(ctx context.Context, id string) (DeviceTemplate, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return DeviceTemplate{}, fmt.Errorf("failed to get template %s: %w", id, err)
	}
	if len(out.Item) == 0 {
		return DeviceTemplate{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return decodeTemplate(id, dynamomapper.SimplifyDynamoDBItem(out.Item))
}

func (s *DynamoStore) Put(ctx context.Context, t DeviceTemplate) error {
	if err := t.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(t.Payload)
	if err != nil {
		return err
	}
	item := templateItem{ID: t.ID, Name: t.Name, Topic: t.Topic}
	if err := json.Unmarshal(data, &item.Payload); err != nil {
		return err
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal template: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to store template in dynamodb: %w", err)
	}
	return nil
}

func (s *DynamoStore) List(ctx context.Context) ([]DeviceTemplate, error) {
	p := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{TableName: aws.String(s.tableName)})
	var out []DeviceTemplate
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan templates: %w", err)
		}
		var items []templateItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal templates: %w", err)
		}
		for _, it := range items {
			t, err := decodeTemplate(it.ID, map[string]any{
				"id":      it.ID,
				"name":    it.Name,
				"topic":   it.Topic,
				"payload": toAnyList(it.Payload),
			})
			if err != nil {
				return nil, err
			}
			out = append(out, t)
		}
	}
	return out, nil
}

func toAnyList(ms []map[string]any) []any {
	out := make([]any, len(ms))
	for i, m := range ms {
		out[i] = m
	}
	return out
}
