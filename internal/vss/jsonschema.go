package vss

import "fmt"

const draft07 = "http://json-schema.org/draft-07/schema#"

// JSONSchema builds a draft-07 document describing records generated from
// the translated tree. It follows Translate, so array datatypes are
// described by their item type.
func JSONSchema(root *Node) (map[string]any, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: nil root", ErrInvalidTree)
	}
	props, required, err := schemaProperties(root.Children, "")
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"$schema":    draft07,
		"type":       "object",
		"properties": props,
		"required":   required,
	}, nil
}

func schemaProperties(nodes []*Node, parent string) (map[string]any, []string, error) {
	props := make(map[string]any, len(nodes))
	required := make([]string, 0, len(nodes))
	for _, n := range nodes {
		path := join(parent, n.Name)
		var s map[string]any
		if n.IsBranch() {
			p, req, err := schemaProperties(n.Children, path)
			if err != nil {
				return nil, nil, err
			}
			if len(p) == 0 {
				continue
			}
			s = map[string]any{"type": "object", "properties": p, "required": req}
		} else {
			var err error
			if s, err = leafSchema(n); err != nil {
				return nil, nil, fmt.Errorf("%s: %w", path, err)
			}
		}
		if n.Description != "" {
			s["description"] = n.Description
		}
		props[n.Name] = s
		required = append(required, n.Name)
	}
	return props, required, nil
}

func leafSchema(n *Node) (map[string]any, error) {
	dt := baseDatatype(n.Datatype)
	s := map[string]any{}
	switch {
	case dt == "string":
		s["type"] = "string"
		if size, ok := describedLength(n.Description); ok {
			s["minLength"], s["maxLength"] = size, size
		}
	case dt == "boolean":
		s["type"] = "boolean"
	case dt == "float" || dt == "double":
		// float values are drawn from [0,1) regardless of min and max
		s["type"] = "number"
	default:
		if _, ok := intRanges[dt]; !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownDatatype, n.Datatype)
		}
		s["type"] = "integer"
		if n.Min != nil {
			s["minimum"] = *n.Min
		}
		if n.Max != nil {
			s["maximum"] = *n.Max
		}
	}
	if len(n.Allowed) > 0 {
		s["enum"] = n.Allowed
	}
	if n.Default != nil {
		s["default"] = n.Default
	}
	if n.Unit != "" {
		s["$comment"] = "unit: " + n.Unit
	}
	return s, nil
}
