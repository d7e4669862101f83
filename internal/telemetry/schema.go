package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseFields decodes a JSON array of field schemas and validates it.
func ParseFields(data []byte) ([]FieldSchema, error) {
	var fields []FieldSchema
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	if err := ValidateFields(fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// ValidateFields checks a schema tree once before simulation starts so that
// generation never meets a missing or inconsistent limit.
func ValidateFields(fields []FieldSchema) error {
	return validateFields(fields, "")
}

func validateFields(fields []FieldSchema, parent string) error {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		path := f.Name
		if parent != "" {
			path = parent + "." + f.Name
		}
		if f.Name == "" {
			return fmt.Errorf("%w: empty field name under %q", ErrInvalidSchema, parent)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidSchema, path)
		}
		seen[f.Name] = struct{}{}
		if err := f.validate(path); err != nil {
			return err
		}
	}
	return nil
}

func (f FieldSchema) validate(path string) error {
	if _, ok := lookupGenerator(f.Type); !ok {
		return fmt.Errorf("%w %q at %s", ErrUnknownFieldType, f.Type, path)
	}
	l := f.limits()
	if l.fieldType() != f.Type {
		return fmt.Errorf("%w: %s: %T limits on %s field", ErrInvalidSchema, path, l, f.Type)
	}
	switch l := l.(type) {
	case DecayLimits:
		if l.Min > l.Max {
			return fmt.Errorf("%w: %s: min %v > max %v", ErrInvalidSchema, path, l.Min, l.Max)
		}
	case FloatLimits:
		if l.Precision < 0 || l.Precision > maxPrecision {
			return fmt.Errorf("%w: %s: precision %d outside [0,%d]", ErrInvalidSchema, path, l.Precision, maxPrecision)
		}
	case IntLimits:
		if l.Min > l.Max {
			return fmt.Errorf("%w: %s: min %d > max %d", ErrInvalidSchema, path, l.Min, l.Max)
		}
	case StringLimits:
		if l.Min < 0 || l.Min > l.Max {
			return fmt.Errorf("%w: %s: bad length range [%d,%d]", ErrInvalidSchema, path, l.Min, l.Max)
		}
	case LocationLimits:
		if a := l.Anchor; a != nil {
			if math.Abs(a.Latitude) > 90 || math.Abs(a.Longitude) > 180 {
				return fmt.Errorf("%w: %s: anchor (%v,%v) out of range", ErrInvalidSchema, path, a.Latitude, a.Longitude)
			}
		}
	case ObjectLimits:
		if len(l.Payload) == 0 {
			return fmt.Errorf("%w: %s: object without payload", ErrInvalidSchema, path)
		}
		return validateFields(l.Payload, path)
	}
	return nil
}

// rawLimits holds every key a stored field may carry. The same keys are
// accepted at the top level of a field or nested under "limits".
type rawLimits struct {
	Static    *flexBool     `json:"static,omitempty"`
	Default   any           `json:"default,omitempty"`
	Min       *flexFloat    `json:"min,omitempty"`
	Max       *flexFloat    `json:"max,omitempty"`
	Precision *flexFloat    `json:"precision,omitempty"`
	Arr       []any         `json:"arr,omitempty"`
	Lat       *flexFloat    `json:"lat,omitempty"`
	Long      *flexFloat    `json:"long,omitempty"`
	Payload   []FieldSchema `json:"payload,omitempty"`
}

type rawField struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
	rawLimits
	Limits *rawLimits `json:"limits,omitempty"`
}

func (r rawLimits) merge(o *rawLimits) rawLimits {
	if o == nil {
		return r
	}
	if r.Static == nil {
		r.Static = o.Static
	}
	if r.Default == nil {
		r.Default = o.Default
	}
	if r.Min == nil {
		r.Min = o.Min
	}
	if r.Max == nil {
		r.Max = o.Max
	}
	if r.Precision == nil {
		r.Precision = o.Precision
	}
	if r.Arr == nil {
		r.Arr = o.Arr
	}
	if r.Lat == nil {
		r.Lat = o.Lat
	}
	if r.Long == nil {
		r.Long = o.Long
	}
	if r.Payload == nil {
		r.Payload = o.Payload
	}
	return r
}

// UnmarshalJSON decodes the flat template representation of a field.
func (f *FieldSchema) UnmarshalJSON(data []byte) error {
	var raw rawField
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r := raw.rawLimits.merge(raw.Limits)
	f.Name = raw.Name
	f.Type = raw.Type
	f.Static = r.Static != nil && bool(*r.Static)
	f.Default = r.Default
	f.Limits = nil

	if raw.Type != TypeObject && r.Payload != nil {
		return fmt.Errorf("%w: %s field %q carries a payload", ErrInvalidSchema, raw.Type, raw.Name)
	}

	switch raw.Type {
	case TypeDecay:
		f.Limits = DecayLimits{
			Min: r.Min.or(DefaultDecayMin),
			Max: r.Max.or(DefaultDecayMax),
		}
	case TypeFloat:
		l := FloatLimits{Precision: int(r.Precision.or(DefaultPrecision))}
		if r.Min != nil {
			v := float64(*r.Min)
			l.Min = &v
		}
		if r.Max != nil {
			v := float64(*r.Max)
			l.Max = &v
		}
		f.Limits = l
	case TypeInt:
		f.Limits = IntLimits{
			Min: int64(r.Min.or(DefaultIntMin)),
			Max: int64(r.Max.or(DefaultIntMax)),
		}
	case TypeLocation:
		l := LocationLimits{}
		switch {
		case r.Lat != nil && r.Long != nil:
			l.Anchor = &Coordinate{Latitude: float64(*r.Lat), Longitude: float64(*r.Long)}
		case r.Lat != nil || r.Long != nil:
			return fmt.Errorf("%w: location %q needs both lat and long", ErrInvalidSchema, raw.Name)
		}
		f.Limits = l
	case TypeObject:
		f.Limits = ObjectLimits{Payload: r.Payload}
	case TypeString:
		f.Limits = StringLimits{
			Min: int(r.Min.or(DefaultStringMin)),
			Max: int(r.Max.or(DefaultStringMax)),
		}
	case TypeSinusoidal:
		f.Limits = SinusoidalLimits{
			Min: r.Min.or(DefaultSinusoidMin),
			Max: r.Max.or(DefaultSinusoidMax),
		}
	case TypePickOne:
		arr := r.Arr
		if len(arr) == 0 {
			arr = DefaultPickOne
		}
		f.Limits = PickOneLimits{Arr: arr}
	default:
		// id, bool, timestamp carry no limits; unknown types are reported
		// by ValidateFields.
		f.Limits = DefaultLimits(raw.Type)
	}
	return nil
}

// MarshalJSON encodes the field in the flat template representation.
func (f FieldSchema) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"name": f.Name,
		"type": f.Type,
	}
	if f.Static {
		out["static"] = true
	}
	if f.Default != nil {
		out["default"] = f.Default
	}
	switch l := f.Limits.(type) {
	case DecayLimits:
		out["min"], out["max"] = l.Min, l.Max
	case FloatLimits:
		out["precision"] = l.Precision
		if l.Min != nil {
			out["min"] = *l.Min
		}
		if l.Max != nil {
			out["max"] = *l.Max
		}
	case IntLimits:
		out["min"], out["max"] = l.Min, l.Max
	case LocationLimits:
		if l.Anchor != nil {
			out["lat"], out["long"] = l.Anchor.Latitude, l.Anchor.Longitude
		}
	case ObjectLimits:
		out["payload"] = l.Payload
	case StringLimits:
		out["min"], out["max"] = l.Min, l.Max
	case SinusoidalLimits:
		out["min"], out["max"] = l.Min, l.Max
	case PickOneLimits:
		out["arr"] = l.Arr
	}
	return json.Marshal(out)
}

// flexFloat accepts both JSON numbers and numeric strings, since templates
// written through DynamoDB or hand-edited YAML mix the two.
type flexFloat float64

func (v *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	s := string(b)
	if s == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("%w: %s is not a number", ErrInvalidSchema, s)
	}
	*v = flexFloat(n)
	return nil
}

func (v *flexFloat) or(def float64) float64 {
	if v == nil {
		return def
	}
	return float64(*v)
}

type flexBool bool

func (v *flexBool) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	s := string(b)
	if s == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	p, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("%w: %s is not a boolean", ErrInvalidSchema, s)
	}
	*v = flexBool(p)
	return nil
}
