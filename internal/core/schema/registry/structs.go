package registry

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zeusync/scenekit/internal/core/schema"
)

// TupleMarker, embedded in a struct, makes it a tuple-record: its fields are
// positional.
type TupleMarker struct{}

// OneOf, embedded in a struct, makes it a variant. Every other exported field
// must be a pointer; the non-nil one is the selected alternative. A pointer to
// struct{} is an alternative without payload.
type OneOf struct{}

// Named lets a Go type choose the name it is registered under. Otherwise the
// Go type name is used.
type Named interface {
	TypeName() schema.TypeName
}

const tagKey = "scene"

var (
	tupleMarkerType = reflect.TypeFor[TupleMarker]()
	oneOfType       = reflect.TypeFor[OneOf]()
	namedType       = reflect.TypeFor[Named]()
)

// RegisterStruct derives the descriptor of T once and registers it with
// constructors that keep T values in the entity store. Struct, slice, array
// and map types reached from T are registered too, without constructors.
//
// Fields are named by their `scene` tag, or by the Go field name with a
// lower-case first letter. `scene:"-"` and unexported fields are not persisted;
// Apply leaves them as they were.
func RegisterStruct[T any](r *Registry) (schema.TypeName, error) {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Struct {
		return "", fmt.Errorf("%w: %s is not a struct", ErrUnsupportedGoType, t)
	}

	bd := &binder{reg: r, seen: make(map[reflect.Type]*binding)}
	b, err := bd.bind(t)
	if err != nil {
		return "", err
	}

	name := b.desc.Name()
	if err = r.Register(name, b.desc, &structCtors[T]{b: b}); err != nil {
		return "", err
	}
	return name, nil
}

// MustRegisterStruct panics if T cannot be registered. It is meant for
// startup code with a fixed component set.
func MustRegisterStruct[T any](r *Registry) schema.TypeName {
	name, err := RegisterStruct[T](r)
	if err != nil {
		panic(err)
	}
	return name
}

type binding struct {
	desc   *schema.Descriptor
	fields []fieldBinding
	elem   *binding
	alts   []altBinding
}

type fieldBinding struct {
	index int
	b     *binding
}

type altBinding struct {
	name     string
	index    int
	elemType reflect.Type
	b        *binding
}

type binder struct {
	reg  *Registry
	seen map[reflect.Type]*binding
}

func (bd *binder) bind(t reflect.Type) (*binding, error) {
	if b, ok := bd.seen[t]; ok {
		return b, nil
	}

	name, err := nameOf(t)
	if err != nil {
		return nil, err
	}
	if p, ok := primitiveOf(t); ok {
		b := &binding{desc: schema.PrimitiveOf(p)}
		bd.seen[t] = b
		return b, nil
	}

	// Cached before its fields so that recursive types resolve to the same
	// binding.
	b := &binding{}
	bd.seen[t] = b

	switch t.Kind() {
	case reflect.Struct:
		err = bd.bindStruct(b, t, name)
	case reflect.Slice:
		var elem schema.TypeName
		if elem, err = bd.bindElem(b, t); err == nil {
			b.desc = schema.ListOf(name, elem)
		}
	case reflect.Array:
		var elem schema.TypeName
		if elem, err = bd.bindElem(b, t); err == nil {
			b.desc = schema.ArrayOf(name, elem, t.Len())
		}
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			err = fmt.Errorf("%w: map keys must be strings: %s", ErrUnsupportedGoType, t)
			break
		}
		var elem schema.TypeName
		if elem, err = bd.bindElem(b, t); err == nil {
			b.desc = schema.MapOf(name, elem)
		}
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedGoType, t)
	}
	if err != nil {
		delete(bd.seen, t)
		return nil, err
	}

	if err = bd.reg.Register(name, b.desc, nil); err != nil {
		return nil, err
	}
	return b, nil
}

// bindElem binds the element of a container. A recursive element may still be
// in progress; only its name is needed here.
func (bd *binder) bindElem(b *binding, t reflect.Type) (schema.TypeName, error) {
	elem, err := bd.bind(t.Elem())
	if err != nil {
		return "", err
	}
	b.elem = elem
	return nameOf(t.Elem())
}

func (bd *binder) bindStruct(b *binding, t reflect.Type, name schema.TypeName) error {
	var tuple, variant bool
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.Anonymous {
			continue
		}
		switch f.Type {
		case tupleMarkerType:
			tuple = true
		case oneOfType:
			variant = true
		}
	}
	if tuple && variant {
		return fmt.Errorf("%w: %s embeds both TupleMarker and OneOf", ErrUnsupportedGoType, t)
	}

	if variant {
		return bd.bindVariant(b, t, name)
	}
	return bd.bindRecord(b, t, name, tuple)
}

func (bd *binder) bindRecord(b *binding, t reflect.Type, name schema.TypeName, tuple bool) error {
	var fields []schema.Field
	for i := range t.NumField() {
		f := t.Field(i)
		fieldName, ok := persistedName(f)
		if !ok {
			continue
		}

		sub, err := bd.bind(f.Type)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", t.Name(), f.Name, err)
		}
		subName, err := nameOf(f.Type)
		if err != nil {
			return err
		}

		b.fields = append(b.fields, fieldBinding{index: i, b: sub})
		fields = append(fields, schema.Field{Name: fieldName, Type: subName})
	}

	if tuple {
		types := make([]schema.TypeName, len(fields))
		for i, f := range fields {
			types[i] = f.Type
		}
		b.desc = schema.TupleRecordOf(name, types...)
		return nil
	}
	b.desc = schema.RecordOf(name, fields...)
	return nil
}

func (bd *binder) bindVariant(b *binding, t reflect.Type, name schema.TypeName) error {
	var alts []schema.Alternative
	for i := range t.NumField() {
		f := t.Field(i)
		altName, ok := persistedName(f)
		if !ok {
			continue
		}
		if f.Type.Kind() != reflect.Pointer {
			return fmt.Errorf("%w: variant %s field %s must be a pointer", ErrUnsupportedGoType, t, f.Name)
		}
		if _, tagged := f.Tag.Lookup(tagKey); !tagged {
			altName = f.Name
		}

		elemType := f.Type.Elem()
		payload, err := bd.bindPayload(elemType, name+"::"+schema.TypeName(altName))
		if err != nil {
			return fmt.Errorf("%s.%s: %w", t.Name(), f.Name, err)
		}

		b.alts = append(b.alts, altBinding{name: altName, index: i, elemType: elemType, b: payload})
		alts = append(alts, schema.Alternative{Name: altName, Payload: payload.desc})
	}

	b.desc = schema.VariantOf(name, alts...)
	return nil
}

// bindPayload builds the inline payload of a variant alternative. Struct
// payloads are described under the alternative's own name and not registered.
func (bd *binder) bindPayload(t reflect.Type, name schema.TypeName) (*binding, error) {
	if t.Kind() != reflect.Struct {
		return bd.bind(t)
	}
	if !hasPersistedFields(t) {
		return &binding{desc: schema.UnitOf("")}, nil
	}

	b := &binding{}
	if err := bd.bindStruct(b, t, name); err != nil {
		return nil, err
	}
	return b, nil
}

func hasPersistedFields(t reflect.Type) bool {
	for i := range t.NumField() {
		if _, ok := persistedName(t.Field(i)); ok {
			return true
		}
	}
	return false
}

func persistedName(f reflect.StructField) (string, bool) {
	if f.Anonymous && (f.Type == tupleMarkerType || f.Type == oneOfType) {
		return "", false
	}
	if !f.IsExported() {
		return "", false
	}

	tag, _, _ := strings.Cut(f.Tag.Get(tagKey), ",")
	switch tag {
	case "-":
		return "", false
	case "":
		return lowerFirst(f.Name), true
	default:
		return tag, true
	}
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[size:]
}

func primitiveOf(t reflect.Type) (schema.Primitive, bool) {
	switch t.Kind() {
	case reflect.Bool:
		return schema.Bool, true
	case reflect.Int8:
		return schema.I8, true
	case reflect.Int16:
		return schema.I16, true
	case reflect.Int32:
		return schema.I32, true
	case reflect.Int, reflect.Int64:
		return schema.I64, true
	case reflect.Uint8:
		return schema.U8, true
	case reflect.Uint16:
		return schema.U16, true
	case reflect.Uint32:
		return schema.U32, true
	case reflect.Uint, reflect.Uint64:
		return schema.U64, true
	case reflect.Float32:
		return schema.F32, true
	case reflect.Float64:
		return schema.F64, true
	case reflect.String:
		return schema.String, true
	default:
		return schema.PrimNone, false
	}
}

// nameOf is the registered name of t. Unnamed containers are named after
// their elements, e.g. []Position, [3]f32, map[string]u32.
func nameOf(t reflect.Type) (schema.TypeName, error) {
	if p, ok := primitiveOf(t); ok {
		return p.Name(), nil
	}
	if t.Implements(namedType) {
		return reflect.Zero(t).Interface().(Named).TypeName(), nil
	}
	if t.Name() != "" {
		return schema.TypeName(t.Name()), nil
	}

	switch t.Kind() {
	case reflect.Slice:
		elem, err := nameOf(t.Elem())
		return "[]" + elem, err
	case reflect.Array:
		elem, err := nameOf(t.Elem())
		return schema.TypeName(fmt.Sprintf("[%d]%s", t.Len(), elem)), err
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return "", fmt.Errorf("%w: map keys must be strings: %s", ErrUnsupportedGoType, t)
		}
		elem, err := nameOf(t.Elem())
		return "map[string]" + elem, err
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedGoType, t)
	}
}

type structCtors[T any] struct {
	b *binding
}

func (c *structCtors[T]) New() any {
	var zero T
	return zero
}

func (c *structCtors[T]) Apply(current any, patch schema.Value) (any, error) {
	if !patch.MustType().Identical(c.b.desc) {
		return nil, fmt.Errorf("%w: %s into %s", ErrTypeMismatch, patch.TypeName(), c.b.desc.Name())
	}

	var host T
	if current != nil {
		cur, ok := current.(T)
		if !ok {
			return nil, fmt.Errorf("%w: %s host is %T", ErrTypeMismatch, c.b.desc.Name(), current)
		}
		host = cur
	}

	if err := decode(c.b, reflect.ValueOf(&host).Elem(), patch); err != nil {
		return nil, fmt.Errorf("apply %s: %w", c.b.desc.Name(), err)
	}
	return host, nil
}

func (c *structCtors[T]) Read(host any) (schema.Value, error) {
	switch h := host.(type) {
	case T:
		return encode(c.b, reflect.ValueOf(h))
	case *T:
		return encode(c.b, reflect.ValueOf(h).Elem())
	default:
		return schema.Value{}, fmt.Errorf("%w: %s host is %T", ErrTypeMismatch, c.b.desc.Name(), host)
	}
}

func encode(b *binding, rv reflect.Value) (schema.Value, error) {
	d := b.desc
	switch d.Kind() {
	case schema.KindUnit:
		return schema.Unit(d), nil
	case schema.KindPrimitive:
		switch p := d.Primitive(); {
		case p == schema.Bool:
			return schema.BoolValue(d, rv.Bool()), nil
		case p.IsSigned():
			return schema.IntValue(d, rv.Int()), nil
		case p.IsUnsigned():
			return schema.UintValue(d, rv.Uint()), nil
		case p.IsFloat():
			return schema.FloatValue(d, rv.Float()), nil
		default:
			return schema.StringValue(d, rv.String()), nil
		}
	case schema.KindRecord, schema.KindTupleRecord:
		items := make([]schema.Value, len(b.fields))
		for i, fb := range b.fields {
			item, err := encode(fb.b, rv.Field(fb.index))
			if err != nil {
				return schema.Value{}, fmt.Errorf("%s.%s: %w", d.Name(), d.FieldAt(i).Name, err)
			}
			items[i] = item
		}
		return schema.Composite(d, items), nil
	case schema.KindList, schema.KindArray:
		items := make([]schema.Value, rv.Len())
		for i := range items {
			item, err := encode(b.elem, rv.Index(i))
			if err != nil {
				return schema.Value{}, fmt.Errorf("%s[%d]: %w", d.Name(), i, err)
			}
			items[i] = item
		}
		return schema.Composite(d, items), nil
	case schema.KindMap:
		keys := rv.MapKeys()
		slices.SortFunc(keys, func(a, b reflect.Value) int { return strings.Compare(a.String(), b.String()) })
		entries := make([]schema.Entry, 0, len(keys))
		for _, k := range keys {
			item, err := encode(b.elem, rv.MapIndex(k))
			if err != nil {
				return schema.Value{}, fmt.Errorf("%s[%q]: %w", d.Name(), k.String(), err)
			}
			entries = append(entries, schema.Entry{Key: k.String(), Value: item})
		}
		return schema.MapValue(d, entries), nil
	case schema.KindVariant:
		// An unset variant reads as its first alternative.
		selected := b.alts[0]
		elem := reflect.Zero(selected.elemType)
		for _, alt := range b.alts {
			if f := rv.Field(alt.index); !f.IsNil() {
				selected, elem = alt, f.Elem()
				break
			}
		}
		payload, err := encode(selected.b, elem)
		if err != nil {
			return schema.Value{}, fmt.Errorf("%s::%s: %w", d.Name(), selected.name, err)
		}
		return schema.VariantValue(d, selected.name, payload), nil
	}
	return schema.Value{}, fmt.Errorf("%w: %s", ErrUnsupportedGoType, d.Kind())
}

func decode(b *binding, rv reflect.Value, v schema.Value) error {
	d := b.desc
	if d.Kind() == schema.KindUnit {
		return nil
	}
	if !v.Type().Identical(d) {
		return fmt.Errorf("%w: expected %s, got %q", ErrTypeMismatch, d.Name(), v.TypeName())
	}

	switch d.Kind() {
	case schema.KindPrimitive:
		switch p := d.Primitive(); {
		case p == schema.Bool:
			rv.SetBool(v.Bool())
		case p.IsSigned():
			if rv.OverflowInt(v.Int()) {
				return fmt.Errorf("%d overflows %s", v.Int(), rv.Type())
			}
			rv.SetInt(v.Int())
		case p.IsUnsigned():
			if rv.OverflowUint(v.Uint()) {
				return fmt.Errorf("%d overflows %s", v.Uint(), rv.Type())
			}
			rv.SetUint(v.Uint())
		case p.IsFloat():
			rv.SetFloat(v.Float())
		default:
			rv.SetString(v.Text())
		}
	case schema.KindRecord, schema.KindTupleRecord:
		items := v.Items()
		if len(items) != len(b.fields) {
			return fmt.Errorf("%s: %d fields, patch has %d", d.Name(), len(b.fields), len(items))
		}
		for i, fb := range b.fields {
			if err := decode(fb.b, rv.Field(fb.index), items[i]); err != nil {
				return fmt.Errorf("%s.%s: %w", d.Name(), d.FieldAt(i).Name, err)
			}
		}
	case schema.KindList:
		items := v.Items()
		if len(items) == 0 && rv.IsNil() {
			return nil
		}
		s := reflect.MakeSlice(rv.Type(), len(items), len(items))
		for i, item := range items {
			if err := decode(b.elem, s.Index(i), item); err != nil {
				return fmt.Errorf("%s[%d]: %w", d.Name(), i, err)
			}
		}
		rv.Set(s)
	case schema.KindArray:
		items := v.Items()
		if len(items) != rv.Len() {
			return fmt.Errorf("%s: arity %d, patch has %d", d.Name(), rv.Len(), len(items))
		}
		for i, item := range items {
			if err := decode(b.elem, rv.Index(i), item); err != nil {
				return fmt.Errorf("%s[%d]: %w", d.Name(), i, err)
			}
		}
	case schema.KindMap:
		if len(v.Entries()) == 0 && rv.IsNil() {
			return nil
		}
		t := rv.Type()
		m := reflect.MakeMapWithSize(t, len(v.Entries()))
		for _, e := range v.Entries() {
			ev := reflect.New(t.Elem()).Elem()
			if err := decode(b.elem, ev, e.Value); err != nil {
				return fmt.Errorf("%s[%q]: %w", d.Name(), e.Key, err)
			}
			m.SetMapIndex(reflect.ValueOf(e.Key).Convert(t.Key()), ev)
		}
		rv.Set(m)
	case schema.KindVariant:
		name, payload := v.Variant()
		idx := slices.IndexFunc(b.alts, func(a altBinding) bool { return a.name == name })
		if idx < 0 {
			return fmt.Errorf("%s: unknown alternative %q", d.Name(), name)
		}
		for _, alt := range b.alts {
			f := rv.Field(alt.index)
			f.Set(reflect.Zero(f.Type()))
		}
		alt := b.alts[idx]
		ptr := reflect.New(alt.elemType)
		if err := decode(alt.b, ptr.Elem(), payload); err != nil {
			return fmt.Errorf("%s::%s: %w", d.Name(), name, err)
		}
		rv.Field(alt.index).Set(ptr)
	}
	return nil
}
