package telemetry

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

const (
	decayRate = 0.05
	// sinusoidStep advances the oscillation by five degrees per tick.
	sinusoidStep = 5 * math.Pi / 180
	// locationJitter bounds the drift around an anchored location, in degrees.
	locationJitter = 0.01
	// TimestampLayout is ISO-8601 with microseconds and a numeric offset.
	TimestampLayout = "2006-01-02T15:04:05.000000-07:00"
	letters         = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

type generateFunc func(g *Generator, f FieldSchema, counter int) (any, error)

var generators map[FieldType]generateFunc

func init() {
	// Populated here instead of in the declaration because genObject
	// dispatches back through the table.
	generators = map[FieldType]generateFunc{
		TypeID:         genID,
		TypeBool:       genBool,
		TypeDecay:      genDecay,
		TypeFloat:      genFloat,
		TypeInt:        genInt,
		TypeLocation:   genLocation,
		TypeObject:     genObject,
		TypeString:     genString,
		TypeSinusoidal: genSinusoidal,
		TypeTimestamp:  genTimestamp,
		TypePickOne:    genPickOne,
	}
}

func lookupGenerator(t FieldType) (generateFunc, bool) {
	fn, ok := generators[t]
	return fn, ok
}

// KnownType reports whether t has a generator.
func KnownType(t FieldType) bool {
	_, ok := lookupGenerator(t)
	return ok
}

// Generator synthesizes field values. It is not safe for concurrent use:
// the random source is owned by one device at a time.
type Generator struct {
	rand *rand.Rand
	now  func() time.Time
}

// NewGenerator creates a generator drawing from r. A nil now uses time.Now.
func NewGenerator(r *rand.Rand, now func() time.Time) *Generator {
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if now == nil {
		now = time.Now
	}
	return &Generator{rand: r, now: now}
}

// Generate produces one value for f at the given tick counter.
func (g *Generator) Generate(f FieldSchema, counter int) (any, error) {
	fn, ok := lookupGenerator(f.Type)
	if !ok {
		return nil, fmt.Errorf("%w %q for field %q", ErrUnknownFieldType, f.Type, f.Name)
	}
	return fn(g, f, counter)
}

// GenerateRecord produces a value for every field in order.
func (g *Generator) GenerateRecord(fields []FieldSchema, counter int) (Record, error) {
	rec := make(Record, len(fields))
	for _, f := range fields {
		v, err := g.Generate(f, counter)
		if err != nil {
			return nil, err
		}
		rec[f.Name] = v
	}
	return rec, nil
}

func limitsAs[T Limits](f FieldSchema) (T, error) {
	l, ok := f.limits().(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: field %q of type %s has %T limits", ErrInvalidSchema, f.Name, f.Type, f.Limits)
	}
	return l, nil
}

func genID(g *Generator, _ FieldSchema, _ int) (any, error) {
	id, err := uuid.NewRandomFromReader(g.rand)
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}
	return id.String(), nil
}

func genBool(g *Generator, _ FieldSchema, _ int) (any, error) {
	return g.rand.Intn(2) == 1, nil
}

// genDecay decays from Max towards Min as the counter grows. The result is
// truncated to an integer.
func genDecay(_ *Generator, f FieldSchema, counter int) (any, error) {
	l, err := limitsAs[DecayLimits](f)
	if err != nil {
		return nil, err
	}
	v := l.Max - (l.Max-l.Min)*(1-math.Exp(-decayRate*float64(counter)))
	// truncation must not drop below a fractional Min
	return max(int64(v), int64(math.Ceil(l.Min))), nil
}

// genFloat draws from [0,1); Min and Max are not applied.
func genFloat(g *Generator, f FieldSchema, _ int) (any, error) {
	l, err := limitsAs[FloatLimits](f)
	if err != nil {
		return nil, err
	}
	return roundTo(g.rand.Float64(), l.Precision), nil
}

func genInt(g *Generator, f FieldSchema, _ int) (any, error) {
	l, err := limitsAs[IntLimits](f)
	if err != nil {
		return nil, err
	}
	if l.Min > l.Max {
		return nil, fmt.Errorf("%w: field %q min %d > max %d", ErrInvalidSchema, f.Name, l.Min, l.Max)
	}
	// Max-Min wraps for spans wider than MaxInt64; as uint64 it is exact.
	span := uint64(l.Max - l.Min)
	if span < math.MaxInt64 {
		return l.Min + g.rand.Int63n(int64(span)+1), nil
	}
	if span == math.MaxUint64 {
		return int64(g.rand.Uint64()), nil
	}
	return l.Min + int64(g.rand.Uint64()%(span+1)), nil
}

func genLocation(g *Generator, f FieldSchema, _ int) (any, error) {
	l, err := limitsAs[LocationLimits](f)
	if err != nil {
		return nil, err
	}
	if a := l.Anchor; a != nil {
		return Coordinate{
			Latitude:  clamp(a.Latitude+g.jitter(), -90, 90),
			Longitude: clamp(a.Longitude+g.jitter(), -180, 180),
		}, nil
	}
	// Uniform over the sphere surface: latitude from the arcsine of a
	// uniform value, longitude uniform.
	lat := math.Asin(2*g.rand.Float64()-1) * 180 / math.Pi
	lon := (2*g.rand.Float64() - 1) * 180
	return Coordinate{Latitude: lat, Longitude: lon}, nil
}

func (g *Generator) jitter() float64 {
	return (2*g.rand.Float64() - 1) * locationJitter
}

func genObject(g *Generator, f FieldSchema, counter int) (any, error) {
	l, err := limitsAs[ObjectLimits](f)
	if err != nil {
		return nil, err
	}
	return g.GenerateRecord(l.Payload, counter)
}

func genString(g *Generator, f FieldSchema, _ int) (any, error) {
	if f.Static {
		if f.Default != nil {
			return f.Default, nil
		}
		return DefaultStaticString, nil
	}
	l, err := limitsAs[StringLimits](f)
	if err != nil {
		return nil, err
	}
	if l.Min < 0 || l.Min > l.Max {
		return nil, fmt.Errorf("%w: field %q bad length range [%d,%d]", ErrInvalidSchema, f.Name, l.Min, l.Max)
	}
	n := l.Min + g.rand.Intn(l.Max-l.Min+1)
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[g.rand.Intn(len(letters))]
	}
	return string(b), nil
}

func genSinusoidal(_ *Generator, f FieldSchema, counter int) (any, error) {
	l, err := limitsAs[SinusoidalLimits](f)
	if err != nil {
		return nil, err
	}
	return (math.Sin(sinusoidStep*float64(counter)) + l.Min + 1) * (l.Max / 2), nil
}

func genTimestamp(g *Generator, _ FieldSchema, _ int) (any, error) {
	return g.now().Format(TimestampLayout), nil
}

func genPickOne(g *Generator, f FieldSchema, _ int) (any, error) {
	l, err := limitsAs[PickOneLimits](f)
	if err != nil {
		return nil, err
	}
	arr := l.Arr
	if len(arr) == 0 {
		arr = DefaultPickOne
	}
	return arr[g.rand.Intn(len(arr))], nil
}

func roundTo(v float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	return math.Round(v*p) / p
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
