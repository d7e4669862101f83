// Package dynamomapper flattens DynamoDB typed attribute values into plain
// Go values (string, float64, bool, map[string]any, []any, nil).
package dynamomapper

import (
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// SimplifyDynamoDBItem converts an item read through the SDK.
func SimplifyDynamoDBItem(item map[string]types.AttributeValue) map[string]any {
	result := make(map[string]any, len(item))
	for key, value := range item {
		result[key] = simplifySDK(value)
	}
	return result
}

func simplifySDK(value types.AttributeValue) any {
	switch v := value.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return number(v.Value)
	case *types.AttributeValueMemberBOOL:
		return v.Value
	case *types.AttributeValueMemberNULL:
		return nil
	case *types.AttributeValueMemberM:
		return SimplifyDynamoDBItem(v.Value)
	case *types.AttributeValueMemberL:
		list := make([]any, 0, len(v.Value))
		for _, sub := range v.Value {
			list = append(list, simplifySDK(sub))
		}
		return list
	case *types.AttributeValueMemberSS:
		return stringList(v.Value)
	case *types.AttributeValueMemberNS:
		return numberList(v.Value)
	case *types.AttributeValueMemberB:
		return v.Value
	}
	return nil
}

// SimplifyEventValue converts a value carried in a Lambda event, as produced
// by DynamoDB streams or a state machine passing a raw item through.
func SimplifyEventValue(av events.DynamoDBAttributeValue) any {
	switch av.DataType() {
	case events.DataTypeString:
		return av.String()
	case events.DataTypeNumber:
		return number(av.Number())
	case events.DataTypeBoolean:
		return av.Boolean()
	case events.DataTypeNull:
		return nil
	case events.DataTypeMap:
		return SimplifyEventMap(av.Map())
	case events.DataTypeList:
		src := av.List()
		list := make([]any, 0, len(src))
		for _, sub := range src {
			list = append(list, SimplifyEventValue(sub))
		}
		return list
	case events.DataTypeStringSet:
		return stringList(av.StringSet())
	case events.DataTypeNumberSet:
		return numberList(av.NumberSet())
	case events.DataTypeBinary:
		return av.Binary()
	}
	return nil
}

// SimplifyEventMap converts a map of event attribute values.
func SimplifyEventMap(m map[string]events.DynamoDBAttributeValue) map[string]any {
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = SimplifyEventValue(v)
	}
	return result
}

// number keeps the textual value when it does not parse, so callers that
// accept numeric strings still see it.
func number(s string) any {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return f
}

func stringList(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func numberList(ns []string) []any {
	out := make([]any, len(ns))
	for i, n := range ns {
		out[i] = number(n)
	}
	return out
}
