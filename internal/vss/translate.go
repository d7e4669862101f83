package vss

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"vehicle-sim/internal/telemetry"
)

// 64-bit integers are generated in the same range as untyped ints.
var intRanges = map[string][2]int64{
	"int8":   {math.MinInt8, math.MaxInt8},
	"int16":  {math.MinInt16, math.MaxInt16},
	"int32":  {math.MinInt32, math.MaxInt32},
	"int64":  {telemetry.DefaultIntMin, telemetry.DefaultIntMax},
	"uint8":  {0, math.MaxUint8},
	"uint16": {0, math.MaxUint16},
	"uint32": {0, math.MaxUint32},
	"uint64": {telemetry.DefaultIntMin, telemetry.DefaultIntMax},
}

var lengthPattern = regexp.MustCompile(`(?i)(\d+)[\s-]*(?:character|char|digit)s?`)

// Translate converts the children of root into field schemas. Branches become
// object fields; empty branches are dropped.
func Translate(root *Node) ([]telemetry.FieldSchema, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: nil root", ErrInvalidTree)
	}
	return translateChildren(root.Children, "")
}

func translateChildren(nodes []*Node, parent string) ([]telemetry.FieldSchema, error) {
	out := make([]telemetry.FieldSchema, 0, len(nodes))
	for _, n := range nodes {
		path := join(parent, n.Name)
		if n.IsBranch() {
			payload, err := translateChildren(n.Children, path)
			if err != nil {
				return nil, err
			}
			if len(payload) == 0 {
				continue
			}
			out = append(out, telemetry.FieldSchema{
				Name:   n.Name,
				Type:   telemetry.TypeObject,
				Limits: telemetry.ObjectLimits{Payload: payload},
			})
			continue
		}
		f, err := translateLeaf(n)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func translateLeaf(n *Node) (telemetry.FieldSchema, error) {
	dt := baseDatatype(n.Datatype)
	f := telemetry.FieldSchema{Name: n.Name}

	switch {
	case dt == "string":
		f.Type = telemetry.TypeString
		l := telemetry.StringLimits{Min: telemetry.DefaultStringMin, Max: telemetry.DefaultStringMax}
		if size, ok := describedLength(n.Description); ok {
			l.Min, l.Max = size, size
		}
		f.Limits = l
	case dt == "boolean":
		f.Type = telemetry.TypeBool
		f.Limits = telemetry.BoolLimits{}
	case dt == "float" || dt == "double":
		f.Type = telemetry.TypeFloat
		f.Limits = telemetry.FloatLimits{Min: n.Min, Max: n.Max, Precision: telemetry.DefaultPrecision}
	default:
		r, ok := intRanges[dt]
		if !ok {
			return f, fmt.Errorf("%w %q", ErrUnknownDatatype, n.Datatype)
		}
		l := telemetry.IntLimits{Min: r[0], Max: r[1]}
		if n.Min != nil {
			l.Min = int64(math.Ceil(*n.Min))
		}
		if n.Max != nil {
			l.Max = int64(math.Floor(*n.Max))
		}
		f.Type = telemetry.TypeInt
		f.Limits = l
	}

	if len(n.Allowed) > 0 {
		f.Type = telemetry.TypePickOne
		f.Limits = telemetry.PickOneLimits{Arr: append([]any(nil), n.Allowed...)}
	}
	if n.Default != nil {
		f.Static = true
		f.Default = n.Default
	}
	return f, nil
}

// baseDatatype strips the array suffix; arrays are generated as a single
// element of their item type.
func baseDatatype(dt string) string {
	return strings.TrimSuffix(strings.TrimSpace(dt), "[]")
}

// describedLength finds a fixed length such as "17-character" in a
// description.
func describedLength(desc string) (int, bool) {
	m := lengthPattern.FindStringSubmatch(desc)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
