package registry

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/scenekit/internal/core/schema"
)

type testPosition struct {
	X float32 `scene:"x"`
	Y float32 `scene:"y"`
}

func (testPosition) TypeName() schema.TypeName { return "Position" }

type testColor struct {
	TupleMarker
	R, G, B uint8
}

func (testColor) TypeName() schema.TypeName { return "Color" }

type testCircle struct {
	Radius float32 `scene:"radius"`
}

type testShape struct {
	OneOf
	Point  *struct{}
	Circle *testCircle
}

func (testShape) TypeName() schema.TypeName { return "Shape" }

type testBag struct {
	Items  map[string]uint32 `scene:"items"`
	Path   []testPosition    `scene:"path"`
	Axis   [3]float32        `scene:"axis"`
	Secret string            `scene:"-"`
	Count  int
}

type testNode struct {
	Label    string     `scene:"label"`
	Children []testNode `scene:"children"`
}

func TestNewPreRegistersPrimitives(t *testing.T) {
	r := New()
	for _, p := range schema.Primitives() {
		d, ok := r.Resolve(p.Name())
		require.True(t, ok, p.Name())
		assert.Equal(t, schema.KindPrimitive, d.Kind())
	}
	assert.Empty(t, r.Components())
}

func TestRegisterIsIdempotent(t *testing.T) {
	r := New()
	pos := schema.RecordOf("Position", schema.Field{Name: "x", Type: "f32"}, schema.Field{Name: "y", Type: "f32"})

	require.NoError(t, r.Register("Position", pos, nil))
	require.NoError(t, r.Register("Position", pos, nil))

	again := schema.RecordOf("Position", schema.Field{Name: "x", Type: "f32"}, schema.Field{Name: "y", Type: "f32"})
	require.NoError(t, r.Register("Position", again, r.Dynamic(again)))
	assert.True(t, r.IsComponent("Position"), "constructors attach to a descriptor-only entry")

	drift := schema.RecordOf("Position", schema.Field{Name: "x", Type: "f64"})
	err := r.Register("Position", drift, nil)
	assert.ErrorIs(t, err, ErrSchemaDrift)

	d, ok := r.Resolve("Position")
	require.True(t, ok)
	assert.True(t, d.Identical(pos), "drift leaves the original registration in place")
}

func TestRegisterRejectsMismatchedName(t *testing.T) {
	r := New()
	err := r.Register("Other", schema.ListOf("Path", "f32"), nil)
	assert.ErrorIs(t, err, ErrNameMismatch)

	err = r.Register("Bad", schema.ListOf("Bad", ""), nil)
	assert.ErrorIs(t, err, schema.ErrInvalidDescriptor)
}

func TestMissingTypeError(t *testing.T) {
	r := New()
	_, ok := r.Resolve("Unregistered.Type")
	assert.False(t, ok)

	_, err := r.Require("Unregistered.Type")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingTypeRegistry))

	var missing *MissingTypeError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, schema.TypeName("Unregistered.Type"), missing.Name)
}

func TestListRegisteredIsSorted(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterDynamic(schema.RecordOf("Zeta", schema.Field{Name: "v", Type: "i32"})))
	require.NoError(t, r.RegisterDynamic(schema.RecordOf("Alpha", schema.Field{Name: "v", Type: "i32"})))

	names := slices.Collect(r.ListRegistered())
	assert.True(t, slices.IsSorted(names))
	assert.Contains(t, names, schema.TypeName("f32"))
	assert.Equal(t, []schema.TypeName{"Alpha", "Zeta"}, r.Components())
	assert.Equal(t, len(schema.Primitives())+2, r.Len())
}

func TestRegisterStructRecord(t *testing.T) {
	r := New()
	name, err := RegisterStruct[testPosition](r)
	require.NoError(t, err)
	assert.Equal(t, schema.TypeName("Position"), name)

	d, ok := r.Resolve(name)
	require.True(t, ok)
	assert.Equal(t, "Position record{x:f32,y:f32}", d.Canonical())

	ctors, ok := r.Constructors(name)
	require.True(t, ok)
	assert.Equal(t, testPosition{}, ctors.New())

	patch, err := ctors.Read(testPosition{X: 1, Y: 2})
	require.NoError(t, err)
	x, _ := patch.Field("x")
	assert.Equal(t, 1.0, x.Float())

	host, err := ctors.Apply(nil, patch)
	require.NoError(t, err)
	assert.Equal(t, testPosition{X: 1, Y: 2}, host)
}

func TestRegisterStructTupleRecord(t *testing.T) {
	r := New()
	name := MustRegisterStruct[testColor](r)

	d, _ := r.Resolve(name)
	assert.Equal(t, "Color tuple_record{0:u8,1:u8,2:u8}", d.Canonical())

	ctors, _ := r.Constructors(name)
	patch, err := ctors.Read(testColor{R: 255, G: 128, B: 1})
	require.NoError(t, err)
	require.Len(t, patch.Items(), 3)
	assert.Equal(t, uint64(128), patch.Items()[1].Uint())

	host, err := ctors.Apply(nil, patch)
	require.NoError(t, err)
	assert.Equal(t, testColor{R: 255, G: 128, B: 1}, host)
}

func TestRegisterStructVariant(t *testing.T) {
	r := New()
	name := MustRegisterStruct[testShape](r)

	d, _ := r.Resolve(name)
	assert.Equal(t, "Shape variant{Point( unit)|Circle(Shape::Circle record{radius:f32})}", d.Canonical())

	ctors, _ := r.Constructors(name)
	zero, err := ctors.Read(ctors.New())
	require.NoError(t, err)
	alt, _ := zero.Variant()
	assert.Equal(t, "Point", alt, "an unset variant reads as its first alternative")

	patch, err := ctors.Read(testShape{Circle: &testCircle{Radius: 0.5}})
	require.NoError(t, err)
	alt, payload := patch.Variant()
	assert.Equal(t, "Circle", alt)
	radius, _ := payload.Field("radius")
	assert.Equal(t, 0.5, radius.Float())

	host, err := ctors.Apply(testShape{Point: &struct{}{}}, patch)
	require.NoError(t, err)
	shape := host.(testShape)
	assert.Nil(t, shape.Point)
	require.NotNil(t, shape.Circle)
	assert.Equal(t, float32(0.5), shape.Circle.Radius)
}

func TestRegisterStructContainers(t *testing.T) {
	r := New()
	name := MustRegisterStruct[testBag](r)
	assert.Equal(t, schema.TypeName("testBag"), name)

	for _, nested := range []schema.TypeName{"map[string]u32", "[]Position", "[3]f32", "Position"} {
		_, ok := r.Resolve(nested)
		assert.True(t, ok, nested)
		assert.False(t, r.IsComponent(nested), nested)
	}

	d, _ := r.Resolve(name)
	assert.Equal(t, "testBag record{items:map[string]u32,path:[]Position,axis:[3]f32,count:i64}", d.Canonical())

	ctors, _ := r.Constructors(name)
	in := testBag{
		Items:  map[string]uint32{"gold": 10, "arrows": 3},
		Path:   []testPosition{{X: 1}, {Y: 2}},
		Axis:   [3]float32{0, 1, 0},
		Secret: "ignored",
		Count:  7,
	}
	patch, err := ctors.Read(in)
	require.NoError(t, err)

	items, _ := patch.Field("items")
	require.Len(t, items.Entries(), 2)
	assert.Equal(t, "arrows", items.Entries()[0].Key, "map entries are read in key order")

	host, err := ctors.Apply(testBag{Secret: "kept"}, patch)
	require.NoError(t, err)
	out := host.(testBag)
	assert.Equal(t, in.Items, out.Items)
	assert.Equal(t, in.Path, out.Path)
	assert.Equal(t, in.Axis, out.Axis)
	assert.Equal(t, 7, out.Count)
	assert.Equal(t, "kept", out.Secret, "unpersisted fields survive Apply")
}

func TestApplyKeepsNilContainers(t *testing.T) {
	r := New()
	name := MustRegisterStruct[testBag](r)
	ctors, _ := r.Constructors(name)

	in := testBag{Count: 1}
	patch, err := ctors.Read(in)
	require.NoError(t, err)

	host, err := ctors.Apply(ctors.New(), patch)
	require.NoError(t, err)
	assert.Equal(t, in, host)
	assert.Nil(t, host.(testBag).Items)
	assert.Nil(t, host.(testBag).Path)

	host, err = ctors.Apply(testBag{Path: []testPosition{{X: 1}}, Items: map[string]uint32{"gold": 1}}, patch)
	require.NoError(t, err)
	assert.Empty(t, host.(testBag).Path)
	assert.Empty(t, host.(testBag).Items)
}

func TestRegisterStructRecursive(t *testing.T) {
	r := New()
	name := MustRegisterStruct[testNode](r)

	d, _ := r.Resolve("[]testNode")
	assert.Equal(t, schema.TypeName("testNode"), d.Elem())

	ctors, _ := r.Constructors(name)
	in := testNode{Label: "root", Children: []testNode{{Label: "leaf"}}}
	patch, err := ctors.Read(in)
	require.NoError(t, err)

	host, err := ctors.Apply(nil, patch)
	require.NoError(t, err)
	out := host.(testNode)
	assert.Equal(t, "root", out.Label)
	require.Len(t, out.Children, 1)
	assert.Equal(t, "leaf", out.Children[0].Label)
}

func TestRegisterStructRejectsUnsupportedTypes(t *testing.T) {
	type withPointer struct {
		P *int
	}
	type withIntKeys struct {
		M map[int]string
	}

	r := New()
	_, err := RegisterStruct[withPointer](r)
	assert.ErrorIs(t, err, ErrUnsupportedGoType)

	_, err = RegisterStruct[withIntKeys](r)
	assert.ErrorIs(t, err, ErrUnsupportedGoType)

	_, err = RegisterStruct[int](r)
	assert.ErrorIs(t, err, ErrUnsupportedGoType)
}

func TestApplyChecksPatchType(t *testing.T) {
	r := New()
	MustRegisterStruct[testPosition](r)
	MustRegisterStruct[testColor](r)

	pos, _ := r.Constructors("Position")
	color, _ := r.Constructors("Color")

	patch, err := color.Read(testColor{})
	require.NoError(t, err)

	_, err = pos.Apply(nil, patch)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	assert.Panics(t, func() { _, _ = pos.Apply(nil, schema.Value{}) })
}

func TestZero(t *testing.T) {
	r := New()
	MustRegisterStruct[testBag](r)
	MustRegisterStruct[testShape](r)

	zero, err := r.Zero("testBag")
	require.NoError(t, err)
	axis, _ := zero.Field("axis")
	assert.Len(t, axis.Items(), 3)
	path, _ := zero.Field("path")
	assert.Empty(t, path.Items())

	shape, err := r.Zero("Shape")
	require.NoError(t, err)
	alt, _ := shape.Variant()
	assert.Equal(t, "Point", alt)

	require.NoError(t, r.Register("Dangling", schema.RecordOf("Dangling", schema.Field{Name: "v", Type: "Nope"}), nil))
	_, err = r.Zero("Dangling")
	assert.ErrorIs(t, err, ErrMissingTypeRegistry)
}

func TestDynamicConstructors(t *testing.T) {
	r := New()
	desc := schema.RecordOf("Tag", schema.Field{Name: "label", Type: "string"})
	require.NoError(t, r.RegisterDynamic(desc))

	ctors, ok := r.Constructors("Tag")
	require.True(t, ok)

	zero := ctors.New().(schema.Value)
	label, _ := zero.Field("label")
	assert.Equal(t, "", label.Text())

	patch := schema.Composite(desc, []schema.Value{schema.StringValue(schema.PrimitiveOf(schema.String), "boss")})
	host, err := ctors.Apply(zero, patch)
	require.NoError(t, err)

	read, err := ctors.Read(host)
	require.NoError(t, err)
	assert.True(t, schema.Equal(patch, read))

	_, err = ctors.Read("not a value")
	assert.ErrorIs(t, err, ErrTypeMismatch)
}
