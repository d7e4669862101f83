package dynamomapper

import (
	"encoding/json"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimplifyDynamoDBItem(t *testing.T) {
	item := map[string]types.AttributeValue{
		"name":   &types.AttributeValueMemberS{Value: "speed"},
		"max":    &types.AttributeValueMemberN{Value: "180"},
		"static": &types.AttributeValueMemberBOOL{Value: false},
		"none":   &types.AttributeValueMemberNULL{Value: true},
		"limits": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"precision": &types.AttributeValueMemberN{Value: "2"},
		}},
		"arr": &types.AttributeValueMemberL{Value: []types.AttributeValue{
			&types.AttributeValueMemberS{Value: "P"},
			&types.AttributeValueMemberN{Value: "1.5"},
		}},
		"tags": &types.AttributeValueMemberSS{Value: []string{"a", "b"}},
	}

	got := SimplifyDynamoDBItem(item)
	assert.Equal(t, map[string]any{
		"name":   "speed",
		"max":    180.0,
		"static": false,
		"none":   nil,
		"limits": map[string]any{"precision": 2.0},
		"arr":    []any{"P", 1.5},
		"tags":   []any{"a", "b"},
	}, got)
}

func TestSimplifyEventValue(t *testing.T) {
	raw := `{"L":[{"M":{"name":{"S":"fuel"},"type":{"S":"decay"},"min":{"N":"0"},"max":{"N":"100"},"static":{"BOOL":false},"default":{"NULL":true}}}]}`
	var av events.DynamoDBAttributeValue
	require.NoError(t, json.Unmarshal([]byte(raw), &av))

	got := SimplifyEventValue(av)
	assert.Equal(t, []any{map[string]any{
		"name":    "fuel",
		"type":    "decay",
		"min":     0.0,
		"max":     100.0,
		"static":  false,
		"default": nil,
	}}, got)
}

func TestNumberFallsBackToText(t *testing.T) {
	assert.Equal(t, "12abc", number("12abc"))
	assert.Equal(t, 12.0, number("12"))
}
