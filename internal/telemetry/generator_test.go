package telemetry

import (
	"math"
	"math/rand"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenerator(seed int64) *Generator {
	return NewGenerator(rand.New(rand.NewSource(seed)), func() time.Time {
		return time.Date(2024, 3, 1, 12, 30, 0, 0, time.FixedZone("CET", 3600))
	})
}

func TestGenerateUnknownType(t *testing.T) {
	g := newTestGenerator(1)
	_, err := g.Generate(FieldSchema{Name: "x", Type: "color"}, 0)
	require.ErrorIs(t, err, ErrUnknownFieldType)
}

func TestGenerateID(t *testing.T) {
	g := newTestGenerator(1)
	a, err := g.Generate(FieldSchema{Name: "id", Type: TypeID}, 0)
	require.NoError(t, err)
	b, err := g.Generate(FieldSchema{Name: "id", Type: TypeID}, 0)
	require.NoError(t, err)
	_, err = uuid.Parse(a.(string))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestGenerateIDDeterministicPerSeed(t *testing.T) {
	a, _ := newTestGenerator(7).Generate(FieldSchema{Name: "id", Type: TypeID}, 0)
	b, _ := newTestGenerator(7).Generate(FieldSchema{Name: "id", Type: TypeID}, 0)
	assert.Equal(t, a, b)
}

func TestDecayMonotonic(t *testing.T) {
	g := newTestGenerator(1)
	f := FieldSchema{Name: "fuel", Type: TypeDecay, Limits: DecayLimits{Min: 10, Max: 1000}}

	first, err := g.Generate(f, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), first)

	prev := first.(int64)
	for n := 1; n <= 400; n++ {
		v, err := g.Generate(f, n)
		require.NoError(t, err)
		cur := v.(int64)
		assert.GreaterOrEqual(t, cur, int64(10), "counter %d", n)
		assert.LessOrEqual(t, cur, prev, "counter %d", n)
		if n <= 20 {
			// slope is well above one unit per tick early on
			assert.Less(t, cur, prev, "counter %d", n)
		}
		prev = cur
	}
	assert.Equal(t, int64(10), prev)
}

func TestIntBounds(t *testing.T) {
	g := newTestGenerator(2)
	cases := []IntLimits{
		{Min: 0, Max: 0},
		{Min: -5, Max: 5},
		{Min: 10, Max: 12},
		{Min: 0, Max: 100000},
		{Min: -5_000_000_000_000_000_000, Max: 5_000_000_000_000_000_000},
		{Min: math.MinInt64 + 1, Max: math.MaxInt64},
		{Min: math.MinInt64, Max: math.MaxInt64},
	}
	for _, l := range cases {
		f := FieldSchema{Name: "n", Type: TypeInt, Limits: l}
		for i := 0; i < 1000; i++ {
			v, err := g.Generate(f, i)
			require.NoError(t, err)
			n := v.(int64)
			require.GreaterOrEqual(t, n, l.Min)
			require.LessOrEqual(t, n, l.Max)
		}
	}
}

func TestIntSpanWiderThanInt64(t *testing.T) {
	fields, err := ParseFields([]byte(`[{"name":"n","type":"int","limits":{"min":-5e18,"max":5e18}}]`))
	require.NoError(t, err)
	g := newTestGenerator(9)
	var negative, positive bool
	for i := 0; i < 200; i++ {
		v, err := g.Generate(fields[0], i)
		require.NoError(t, err)
		n := v.(int64)
		require.GreaterOrEqual(t, n, int64(-5e18))
		require.LessOrEqual(t, n, int64(5e18))
		negative = negative || n < 0
		positive = positive || n > 0
	}
	assert.True(t, negative && positive, "draws should cover both signs")
}

func TestDecayFractionalMin(t *testing.T) {
	g := newTestGenerator(4)
	f := FieldSchema{Name: "fuel", Type: TypeDecay, Limits: DecayLimits{Min: 0.5, Max: 10}}
	for _, n := range []int{0, 1, 50, 1000, 100000} {
		v, err := g.Generate(f, n)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v.(int64), int64(1), "counter %d", n)
	}
}

func TestFloatPrecision(t *testing.T) {
	g := newTestGenerator(3)
	for _, p := range []int{0, 1, 4, 8} {
		f := FieldSchema{Name: "f", Type: TypeFloat, Limits: FloatLimits{Precision: p}}
		for i := 0; i < 500; i++ {
			v, err := g.Generate(f, i)
			require.NoError(t, err)
			x := v.(float64)
			require.GreaterOrEqual(t, x, 0.0)
			require.LessOrEqual(t, x, 1.0)
			s := strconv.FormatFloat(x, 'f', -1, 64)
			digits := 0
			if i := strings.IndexByte(s, '.'); i >= 0 {
				digits = len(s) - i - 1
			}
			require.LessOrEqual(t, digits, p, "value %s precision %d", s, p)
		}
	}
}

// Float fields keep min/max for round-tripping but draw from [0,1).
func TestFloatIgnoresMinMax(t *testing.T) {
	g := newTestGenerator(3)
	lo, hi := 50.0, 60.0
	f := FieldSchema{Name: "f", Type: TypeFloat, Limits: FloatLimits{Min: &lo, Max: &hi, Precision: 2}}
	for i := 0; i < 100; i++ {
		v, err := g.Generate(f, i)
		require.NoError(t, err)
		assert.Less(t, v.(float64), lo)
	}
}

func TestLocationBounds(t *testing.T) {
	g := newTestGenerator(4)
	fields := []FieldSchema{
		{Name: "free", Type: TypeLocation},
		{Name: "anchored", Type: TypeLocation, Limits: LocationLimits{Anchor: &Coordinate{Latitude: 47.6, Longitude: -122.3}}},
		{Name: "edge", Type: TypeLocation, Limits: LocationLimits{Anchor: &Coordinate{Latitude: 90, Longitude: 180}}},
	}
	for _, f := range fields {
		for i := 0; i < 1000; i++ {
			v, err := g.Generate(f, i)
			require.NoError(t, err)
			c := v.(Coordinate)
			require.GreaterOrEqual(t, c.Latitude, -90.0)
			require.LessOrEqual(t, c.Latitude, 90.0)
			require.GreaterOrEqual(t, c.Longitude, -180.0)
			require.LessOrEqual(t, c.Longitude, 180.0)
			if a := f.Limits; a != nil {
				anchor := a.(LocationLimits).Anchor
				require.InDelta(t, anchor.Latitude, c.Latitude, locationJitter+1e-9)
				require.InDelta(t, anchor.Longitude, c.Longitude, locationJitter+1e-9)
			}
		}
	}
}

func TestStringLength(t *testing.T) {
	g := newTestGenerator(5)
	f := FieldSchema{Name: "vin", Type: TypeString, Limits: StringLimits{Min: 3, Max: 9}}
	for i := 0; i < 1000; i++ {
		v, err := g.Generate(f, i)
		require.NoError(t, err)
		s := v.(string)
		require.GreaterOrEqual(t, len(s), 3)
		require.LessOrEqual(t, len(s), 9)
		for _, r := range s {
			require.True(t, (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'), "unexpected rune %q", r)
		}
	}
}

func TestStringStatic(t *testing.T) {
	g := newTestGenerator(5)
	f := FieldSchema{Name: "make", Type: TypeString, Static: true, Default: "Tesla", Limits: StringLimits{Min: 1, Max: 4}}
	for i := 0; i < 10; i++ {
		v, err := g.Generate(f, 3)
		require.NoError(t, err)
		assert.Equal(t, "Tesla", v)
	}

	f.Default = nil
	v, err := g.Generate(f, 3)
	require.NoError(t, err)
	assert.Equal(t, DefaultStaticString, v)
}

func TestPickOneMembership(t *testing.T) {
	g := newTestGenerator(6)
	arr := []any{"P", "R", "N", "D"}
	f := FieldSchema{Name: "gear", Type: TypePickOne, Limits: PickOneLimits{Arr: arr}}
	for i := 0; i < 500; i++ {
		v, err := g.Generate(f, i)
		require.NoError(t, err)
		require.Contains(t, arr, v)
	}

	v, err := g.Generate(FieldSchema{Name: "d", Type: TypePickOne}, 0)
	require.NoError(t, err)
	require.Contains(t, DefaultPickOne, v)
}

func TestObjectRecursion(t *testing.T) {
	g := newTestGenerator(7)
	f := FieldSchema{Name: "vehicle", Type: TypeObject, Limits: ObjectLimits{Payload: []FieldSchema{
		{Name: "speed", Type: TypeInt, Limits: IntLimits{Min: 0, Max: 200}},
		{Name: "engine", Type: TypeObject, Limits: ObjectLimits{Payload: []FieldSchema{
			{Name: "running", Type: TypeBool},
			{Name: "oil", Type: TypeObject, Limits: ObjectLimits{Payload: []FieldSchema{
				{Name: "temp", Type: TypeSinusoidal, Limits: SinusoidalLimits{Min: 0, Max: 120}},
			}}},
		}}},
	}}}

	v, err := g.Generate(f, 1)
	require.NoError(t, err)
	rec := v.(Record)
	assert.ElementsMatch(t, []string{"speed", "engine"}, keys(rec))
	engine := rec["engine"].(Record)
	assert.ElementsMatch(t, []string{"running", "oil"}, keys(engine))
	oil := engine["oil"].(Record)
	assert.ElementsMatch(t, []string{"temp"}, keys(oil))
}

func TestSinusoidal(t *testing.T) {
	g := newTestGenerator(8)
	f := FieldSchema{Name: "s", Type: TypeSinusoidal, Limits: SinusoidalLimits{Min: 0, Max: 100}}
	v, err := g.Generate(f, 0)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, v.(float64), 1e-9)
	v, err = g.Generate(f, 18) // 90 degrees
	require.NoError(t, err)
	assert.InDelta(t, 100.0, v.(float64), 1e-9)
}

func TestTimestamp(t *testing.T) {
	g := newTestGenerator(9)
	v, err := g.Generate(FieldSchema{Name: "ts", Type: TypeTimestamp}, 0)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T12:30:00.000000+01:00", v)
}

func TestGenerateMismatchedLimits(t *testing.T) {
	g := newTestGenerator(10)
	_, err := g.Generate(FieldSchema{Name: "n", Type: TypeInt, Limits: StringLimits{Min: 1, Max: 2}}, 0)
	require.ErrorIs(t, err, ErrInvalidSchema)
}

func keys(r Record) []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	return out
}
