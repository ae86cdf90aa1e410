package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func position() *Descriptor {
	return RecordOf("Position", Field{Name: "x", Type: "f32"}, Field{Name: "y", Type: "f32"})
}

func TestFingerprintIsStableAndShapeSensitive(t *testing.T) {
	a, b := position(), position()
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.True(t, a.Identical(b))

	reordered := RecordOf("Position", Field{Name: "y", Type: "f32"}, Field{Name: "x", Type: "f32"})
	assert.False(t, a.Identical(reordered))

	widened := RecordOf("Position", Field{Name: "x", Type: "f64"}, Field{Name: "y", Type: "f32"})
	assert.NotEqual(t, a.Fingerprint(), widened.Fingerprint())
}

func TestCanonicalForms(t *testing.T) {
	cases := []struct {
		desc *Descriptor
		want string
	}{
		{PrimitiveOf(F32), "f32 primitive f32"},
		{position(), "Position record{x:f32,y:f32}"},
		{TupleRecordOf("Color", "u8", "u8", "u8"), "Color tuple_record{0:u8,1:u8,2:u8}"},
		{ListOf("Path", "Position"), "Path list<Position>"},
		{ArrayOf("Vec3", "f32", 3), "Vec3 array<f32;3>"},
		{MapOf("Bag", "u32"), "Bag map<u32>"},
		{
			VariantOf("Shape",
				Alternative{Name: "Point", Payload: UnitOf("")},
				Alternative{Name: "Circle", Payload: RecordOf("Shape::Circle", Field{Name: "r", Type: "f32"})},
			),
			"Shape variant{Point( unit)|Circle(Shape::Circle record{r:f32})}",
		},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.desc.Canonical())
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, position().Validate())
	require.NoError(t, PrimitiveOf(String).Validate())

	bad := []*Descriptor{
		RecordOf("Dup", Field{Name: "x", Type: "f32"}, Field{Name: "x", Type: "f32"}),
		RecordOf("", Field{Name: "x", Type: "f32"}),
		RecordOf("NoType", Field{Name: "x"}),
		ListOf("Empty", ""),
		ArrayOf("Neg", "f32", -1),
		VariantOf("None"),
		VariantOf("NilPayload", Alternative{Name: "A"}),
	}
	for _, d := range bad {
		err := d.Validate()
		assert.True(t, errors.Is(err, ErrInvalidDescriptor), d.Canonical())
	}
}

func TestDescriptorLookups(t *testing.T) {
	d := position()
	assert.Equal(t, 1, d.FieldIndex("y"))
	assert.Equal(t, -1, d.FieldIndex("z"))
	assert.Equal(t, 2, d.NumFields())

	shape := VariantOf("Shape", Alternative{Name: "Point", Payload: UnitOf("")})
	alt, ok := shape.Alternative("Point")
	require.True(t, ok)
	assert.Equal(t, KindUnit, alt.Payload.Kind())
	_, ok = shape.Alternative("Square")
	assert.False(t, ok)
}

func TestPrimitiveClassification(t *testing.T) {
	assert.True(t, I32.IsSigned())
	assert.True(t, U16.IsUnsigned())
	assert.True(t, F32.IsFloat())
	assert.False(t, String.IsInteger())
	assert.Equal(t, 32, F32.Bits())
	assert.Equal(t, TypeName("u64"), U64.Name())
	assert.Len(t, Primitives(), 12)
}
