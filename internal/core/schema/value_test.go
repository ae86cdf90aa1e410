package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordValueFieldAccess(t *testing.T) {
	f32 := PrimitiveOf(F32)
	p := Composite(position(), []Value{FloatValue(f32, 1), FloatValue(f32, 2)})

	y, ok := p.Field("y")
	require.True(t, ok)
	assert.Equal(t, 2.0, y.Float())
	assert.Equal(t, TypeName("Position"), p.TypeName())
	assert.Equal(t, "Position{x: 1, y: 2}", p.String())
}

func TestEqual(t *testing.T) {
	f32 := PrimitiveOf(F32)
	a := Composite(position(), []Value{FloatValue(f32, 1), FloatValue(f32, 2)})
	b := Composite(position(), []Value{FloatValue(f32, 1), FloatValue(f32, 2)})
	c := Composite(position(), []Value{FloatValue(f32, 1), FloatValue(f32, 3)})

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
	assert.False(t, Equal(a, FloatValue(f32, 1)))
}

func TestVariantValue(t *testing.T) {
	circle := RecordOf("Shape::Circle", Field{Name: "r", Type: "f32"})
	shape := VariantOf("Shape",
		Alternative{Name: "Point", Payload: UnitOf("")},
		Alternative{Name: "Circle", Payload: circle},
	)
	v := VariantValue(shape, "Circle", Composite(circle, []Value{FloatValue(PrimitiveOf(F32), 0.5)}))

	alt, payload := v.Variant()
	assert.Equal(t, "Circle", alt)
	assert.Equal(t, TypeName("Shape::Circle"), payload.TypeName())
	assert.Equal(t, "Shape::Circle{r: 0.5}", v.String())
}

func TestMustTypePanicsOnUntypedPatch(t *testing.T) {
	var v Value
	assert.False(t, v.HasType())
	assert.Panics(t, func() { v.MustType() })
}
