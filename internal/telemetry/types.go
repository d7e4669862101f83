// Field schema types shared by the generator, orchestrator and translator.
package telemetry

import "errors"

// FieldType names the generator used for a field.
type FieldType string

const (
	TypeID         FieldType = "id"
	TypeBool       FieldType = "bool"
	TypeDecay      FieldType = "decay"
	TypeFloat      FieldType = "float"
	TypeInt        FieldType = "int"
	TypeLocation   FieldType = "location"
	TypeObject     FieldType = "object"
	TypeString     FieldType = "string"
	TypeSinusoidal FieldType = "sinusoidal"
	TypeTimestamp  FieldType = "timestamp"
	TypePickOne    FieldType = "pickOne"
)

var (
	// ErrUnknownFieldType is returned for a type with no generator.
	ErrUnknownFieldType = errors.New("unknown field type")
	// ErrInvalidSchema is returned for structurally invalid field schemas.
	ErrInvalidSchema = errors.New("invalid field schema")
)

// Default limits applied when a template omits a key.
const (
	DefaultIntMin       = 0
	DefaultIntMax       = 100000
	DefaultStringMin    = 0
	DefaultStringMax    = 20
	DefaultPrecision    = 4
	DefaultDecayMin     = 0
	DefaultDecayMax     = 100
	DefaultSinusoidMin  = 0
	DefaultSinusoidMax  = 100
	DefaultStaticString = "default"
	maxPrecision        = 15
)

// DefaultPickOne is used when a pickOne field has no candidates.
var DefaultPickOne = []any{1.0, 2.0, 3.0}

// FieldSchema describes one synthesizable field.
type FieldSchema struct {
	Name    string
	Type    FieldType
	Static  bool
	Default any
	Limits  Limits
}

// Limits is the per-type configuration of a field. Exactly one concrete type
// exists per FieldType.
type Limits interface {
	fieldType() FieldType
}

type IDLimits struct{}

type BoolLimits struct{}

type DecayLimits struct {
	Min float64
	Max float64
}

// FloatLimits keeps Min and Max for round-tripping only; float generation
// draws from [0,1) and applies Precision.
type FloatLimits struct {
	Min       *float64
	Max       *float64
	Precision int
}

type IntLimits struct {
	Min int64
	Max int64
}

// LocationLimits anchors generated points near Anchor when set.
type LocationLimits struct {
	Anchor *Coordinate
}

type ObjectLimits struct {
	Payload []FieldSchema
}

type StringLimits struct {
	Min int
	Max int
}

type SinusoidalLimits struct {
	Min float64
	Max float64
}

type TimestampLimits struct{}

type PickOneLimits struct {
	Arr []any
}

func (IDLimits) fieldType() FieldType         { return TypeID }
func (BoolLimits) fieldType() FieldType       { return TypeBool }
func (DecayLimits) fieldType() FieldType      { return TypeDecay }
func (FloatLimits) fieldType() FieldType      { return TypeFloat }
func (IntLimits) fieldType() FieldType        { return TypeInt }
func (LocationLimits) fieldType() FieldType   { return TypeLocation }
func (ObjectLimits) fieldType() FieldType     { return TypeObject }
func (StringLimits) fieldType() FieldType     { return TypeString }
func (SinusoidalLimits) fieldType() FieldType { return TypeSinusoidal }
func (TimestampLimits) fieldType() FieldType  { return TypeTimestamp }
func (PickOneLimits) fieldType() FieldType    { return TypePickOne }

// Coordinate is the value produced by location fields.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Record is one generated telemetry payload keyed by field name.
type Record map[string]any

// DefaultLimits returns the limits used for t when a schema leaves them unset.
func DefaultLimits(t FieldType) Limits {
	switch t {
	case TypeID:
		return IDLimits{}
	case TypeBool:
		return BoolLimits{}
	case TypeDecay:
		return DecayLimits{Min: DefaultDecayMin, Max: DefaultDecayMax}
	case TypeFloat:
		return FloatLimits{Precision: DefaultPrecision}
	case TypeInt:
		return IntLimits{Min: DefaultIntMin, Max: DefaultIntMax}
	case TypeLocation:
		return LocationLimits{}
	case TypeObject:
		return ObjectLimits{}
	case TypeString:
		return StringLimits{Min: DefaultStringMin, Max: DefaultStringMax}
	case TypeSinusoidal:
		return SinusoidalLimits{Min: DefaultSinusoidMin, Max: DefaultSinusoidMax}
	case TypeTimestamp:
		return TimestampLimits{}
	case TypePickOne:
		return PickOneLimits{Arr: DefaultPickOne}
	}
	return nil
}

func (f FieldSchema) limits() Limits {
	if f.Limits != nil {
		return f.Limits
	}
	return DefaultLimits(f.Type)
}
