// Package convert turns dynamic values into typed component patches and back,
// using descriptors from the type registry to answer every shape question.
package convert

import (
	"fmt"
	"math"
	"strconv"

	"github.com/zeusync/scenekit/internal/core/dynamic"
	"github.com/zeusync/scenekit/internal/core/observability/log"
	"github.com/zeusync/scenekit/internal/core/schema"
	"github.com/zeusync/scenekit/internal/core/schema/registry"
)

var (
	unitType      = schema.UnitOf("")
	anonymousList = schema.ListOf("[]", "")
)

type Converter struct {
	reg    *registry.Registry
	logger log.Log
}

func New(reg *registry.Registry, logger log.Log) *Converter {
	return &Converter{
		reg:    reg,
		logger: logger.With(log.String("component", "converter")),
	}
}

// ToReflected converts v into a patch. expected names the type the value is
// meant to be; it pins integer widths, selects variant branches and is
// required for maps. Without it, integral numbers become i64, other numbers
// f64, and lists stay anonymous.
func (c *Converter) ToReflected(v dynamic.Value, expected *schema.TypeName) (schema.Value, error) {
	if expected == nil {
		return c.convert("$", v, nil)
	}

	desc, err := c.reg.Require(*expected)
	if err != nil {
		return schema.Value{}, wrap("$", *expected, err)
	}
	return c.convert(string(*expected), v, desc)
}

// ToType is ToReflected with a required hint.
func (c *Converter) ToType(v dynamic.Value, name schema.TypeName) (schema.Value, error) {
	return c.ToReflected(v, &name)
}

func (c *Converter) convert(path string, v dynamic.Value, d *schema.Descriptor) (schema.Value, error) {
	switch v.Kind() {
	case dynamic.KindNull:
		return c.fromNull(path, d)
	case dynamic.KindBool:
		b, _ := v.AsBool()
		return c.fromBool(path, b, d)
	case dynamic.KindNumber:
		n, _ := v.AsNumber()
		return c.fromNumber(path, n, d)
	case dynamic.KindString:
		s, _ := v.AsString()
		return c.fromString(path, s, d)
	case dynamic.KindList:
		return c.fromList(path, v.Items(), d)
	case dynamic.KindMap:
		return c.fromMap(path, v.AsMap(), d)
	}
	return schema.Value{}, failf(path, nameOf(d), "unknown dynamic kind %s", v.Kind())
}

func (c *Converter) fromNull(path string, d *schema.Descriptor) (schema.Value, error) {
	if d == nil {
		return schema.Unit(unitType), nil
	}
	if d.Kind() == schema.KindUnit {
		return schema.Unit(d), nil
	}

	zero, err := c.reg.ZeroOf(d)
	if err != nil {
		return schema.Value{}, wrap(path, d.Name(), err)
	}
	return zero, nil
}

func (c *Converter) fromBool(path string, b bool, d *schema.Descriptor) (schema.Value, error) {
	if d == nil {
		d = c.primitive(schema.Bool)
	}
	if d.Kind() != schema.KindPrimitive || d.Primitive() != schema.Bool {
		return schema.Value{}, failf(path, d.Name(), "got bool")
	}
	return schema.BoolValue(d, b), nil
}

func (c *Converter) fromNumber(path string, n dynamic.Number, d *schema.Descriptor) (schema.Value, error) {
	if d == nil {
		if n.Form() == dynamic.FormUint {
			u, _ := n.Uint64()
			return schema.UintValue(c.primitive(schema.U64), u), nil
		}
		if i, ok := n.Int64(); ok {
			return schema.IntValue(c.primitive(schema.I64), i), nil
		}
		return schema.FloatValue(c.primitive(schema.F64), n.Float64()), nil
	}

	if d.Kind() != schema.KindPrimitive {
		return schema.Value{}, failf(path, d.Name(), "got number %s", n)
	}

	p := d.Primitive()
	switch {
	case p.IsInteger():
		tr, ok := n.Truncated()
		if !ok {
			return schema.Value{}, failf(path, d.Name(), "%s is not a finite number", n)
		}
		if p.IsSigned() {
			i, ok := tr.Int64()
			lo, hi := signedRange(p.Bits())
			if !ok || i < lo || i > hi {
				return schema.Value{}, failf(path, d.Name(), "%s out of range", n)
			}
			return schema.IntValue(d, i), nil
		}
		u, ok := tr.Uint64()
		if !ok || u > unsignedMax(p.Bits()) {
			return schema.Value{}, failf(path, d.Name(), "%s out of range", n)
		}
		return schema.UintValue(d, u), nil
	case p == schema.F32:
		f := n.Float64()
		if math.Abs(f) > math.MaxFloat32 && !math.IsInf(f, 0) {
			return schema.Value{}, failf(path, d.Name(), "%s out of range", n)
		}
		return schema.FloatValue(d, float64(float32(f))), nil
	case p == schema.F64:
		return schema.FloatValue(d, n.Float64()), nil
	}
	return schema.Value{}, failf(path, d.Name(), "got number %s", n)
}

func (c *Converter) fromString(path, s string, d *schema.Descriptor) (schema.Value, error) {
	if d == nil {
		d = c.primitive(schema.String)
	}

	switch {
	case d.Kind() == schema.KindPrimitive && d.Primitive() == schema.String:
		return schema.StringValue(d, s), nil
	case d.Kind() == schema.KindVariant:
		alt, ok := d.Alternative(s)
		if !ok {
			return schema.Value{}, failf(path, d.Name(), "unknown alternative %q", s)
		}
		if alt.Payload.Kind() != schema.KindUnit {
			return schema.Value{}, failf(path, d.Name(), "alternative %q carries data; write it as {%s: ...}", s, s)
		}
		return schema.VariantValue(d, alt.Name, schema.Unit(alt.Payload)), nil
	}
	return schema.Value{}, failf(path, d.Name(), "got string %q", s)
}

func (c *Converter) fromList(path string, items []dynamic.Value, d *schema.Descriptor) (schema.Value, error) {
	if d == nil {
		out := make([]schema.Value, len(items))
		for i, item := range items {
			v, err := c.convert(index(path, i), item, nil)
			if err != nil {
				return schema.Value{}, err
			}
			out[i] = v
		}
		return schema.Composite(anonymousList, out), nil
	}

	switch d.Kind() {
	case schema.KindList, schema.KindArray:
		if d.Kind() == schema.KindArray && len(items) != d.Arity() {
			return schema.Value{}, failf(path, d.Name(), "array needs %d elements, got %d", d.Arity(), len(items))
		}
		elem, err := c.reg.Require(d.Elem())
		if err != nil {
			return schema.Value{}, wrap(path, d.Name(), err)
		}
		out := make([]schema.Value, len(items))
		for i, item := range items {
			v, err := c.convert(index(path, i), item, elem)
			if err != nil {
				return schema.Value{}, err
			}
			out[i] = v
		}
		return schema.Composite(d, out), nil
	case schema.KindTuple, schema.KindTupleRecord:
		if len(items) != d.NumFields() {
			return schema.Value{}, failf(path, d.Name(), "tuple needs %d elements, got %d", d.NumFields(), len(items))
		}
		out := make([]schema.Value, len(items))
		for i, item := range items {
			v, err := c.convertField(index(path, i), item, d.FieldAt(i).Type)
			if err != nil {
				return schema.Value{}, err
			}
			out[i] = v
		}
		return schema.Composite(d, out), nil
	}
	return schema.Value{}, failf(path, d.Name(), "got list")
}

func (c *Converter) fromMap(path string, m *dynamic.Map, d *schema.Descriptor) (schema.Value, error) {
	if d == nil {
		return schema.Value{}, failf(path, "", "a map needs an expected type")
	}

	switch d.Kind() {
	case schema.KindRecord, schema.KindTupleRecord, schema.KindTuple:
		items := make([]schema.Value, d.NumFields())
		set := make([]bool, d.NumFields())
		for key, item := range m.All() {
			i := d.FieldIndex(key)
			if i < 0 {
				c.logger.Warn("unknown field ignored",
					log.String("path", path),
					log.String("type", string(d.Name())),
					log.String("field", key),
				)
				continue
			}
			v, err := c.convertField(field(path, key), item, d.FieldAt(i).Type)
			if err != nil {
				return schema.Value{}, err
			}
			items[i], set[i] = v, true
		}
		for i := range items {
			if set[i] {
				continue
			}
			f := d.FieldAt(i)
			zero, err := c.reg.Zero(f.Type)
			if err != nil {
				return schema.Value{}, wrap(field(path, f.Name), f.Type, err)
			}
			items[i] = zero
		}
		return schema.Composite(d, items), nil
	case schema.KindMap:
		elem, err := c.reg.Require(d.Elem())
		if err != nil {
			return schema.Value{}, wrap(path, d.Name(), err)
		}
		entries := make([]schema.Entry, 0, m.Len())
		for key, item := range m.All() {
			v, err := c.convert(field(path, key), item, elem)
			if err != nil {
				return schema.Value{}, err
			}
			entries = append(entries, schema.Entry{Key: key, Value: v})
		}
		return schema.MapValue(d, entries), nil
	case schema.KindVariant:
		if m.Len() != 1 {
			return schema.Value{}, failf(path, d.Name(), "a variant is a map with exactly one key, got %d", m.Len())
		}
		for key, item := range m.All() {
			alt, ok := d.Alternative(key)
			if !ok {
				return schema.Value{}, failf(path, d.Name(), "unknown alternative %q", key)
			}
			payload, err := c.convert(path+"::"+key, item, alt.Payload)
			if err != nil {
				return schema.Value{}, err
			}
			return schema.VariantValue(d, alt.Name, payload), nil
		}
	}
	return schema.Value{}, failf(path, d.Name(), "got map")
}

func (c *Converter) convertField(path string, v dynamic.Value, name schema.TypeName) (schema.Value, error) {
	desc, err := c.reg.Require(name)
	if err != nil {
		return schema.Value{}, wrap(path, name, err)
	}
	return c.convert(path, v, desc)
}

func (c *Converter) primitive(p schema.Primitive) *schema.Descriptor {
	if d, ok := c.reg.Resolve(p.Name()); ok {
		return d
	}
	return schema.PrimitiveOf(p)
}

// FromReflected is the inverse of ToReflected. Records become ordered maps,
// tuples, lists and arrays become lists, variants become single-key maps and
// unit becomes null.
func (c *Converter) FromReflected(p schema.Value) (dynamic.Value, error) {
	return c.from(string(p.TypeName()), p)
}

func (c *Converter) from(path string, p schema.Value) (dynamic.Value, error) {
	d := p.Type()
	if d == nil {
		return dynamic.Value{}, failf(path, "", "patch has no represented type")
	}

	switch d.Kind() {
	case schema.KindUnit:
		return dynamic.Null(), nil
	case schema.KindPrimitive:
		switch prim := d.Primitive(); {
		case prim == schema.Bool:
			return dynamic.Bool(p.Bool()), nil
		case prim.IsSigned():
			return dynamic.Int(p.Int()), nil
		case prim.IsUnsigned():
			return dynamic.Uint(p.Uint()), nil
		case prim == schema.F32:
			return dynamic.Float(shortestFloat32(p.Float())), nil
		case prim == schema.F64:
			return dynamic.Float(p.Float()), nil
		default:
			return dynamic.String(p.Text()), nil
		}
	case schema.KindRecord:
		if len(p.Items()) != d.NumFields() {
			return dynamic.Value{}, failf(path, d.Name(), "%d fields, patch has %d", d.NumFields(), len(p.Items()))
		}
		m := dynamic.NewMap()
		for i, item := range p.Items() {
			name := d.FieldAt(i).Name
			v, err := c.from(field(path, name), item)
			if err != nil {
				return dynamic.Value{}, err
			}
			m.Set(name, v)
		}
		return dynamic.FromMap(m), nil
	case schema.KindTupleRecord, schema.KindTuple, schema.KindList, schema.KindArray:
		items := make([]dynamic.Value, len(p.Items()))
		for i, item := range p.Items() {
			v, err := c.from(index(path, i), item)
			if err != nil {
				return dynamic.Value{}, err
			}
			items[i] = v
		}
		return dynamic.List(items...), nil
	case schema.KindMap:
		m := dynamic.NewMap()
		for _, e := range p.Entries() {
			v, err := c.from(field(path, e.Key), e.Value)
			if err != nil {
				return dynamic.Value{}, err
			}
			m.Set(e.Key, v)
		}
		return dynamic.FromMap(m), nil
	case schema.KindVariant:
		alt, payload := p.Variant()
		v, err := c.from(path+"::"+alt, payload)
		if err != nil {
			return dynamic.Value{}, err
		}
		return dynamic.FromMap(dynamic.NewMap().Set(alt, v)), nil
	}
	return dynamic.Value{}, failf(path, d.Name(), "unknown kind %s", d.Kind())
}

// shortestFloat32 widens f to the float64 with the shortest decimal form
// that still rounds to the same float32, so 0.1f is written as 0.1.
func shortestFloat32(f float64) float64 {
	short, err := strconv.ParseFloat(strconv.FormatFloat(f, 'g', -1, 32), 64)
	if err != nil {
		return f
	}
	return short
}

func signedRange(bits int) (int64, int64) {
	if bits >= 64 {
		return math.MinInt64, math.MaxInt64
	}
	return -1 << (bits - 1), 1<<(bits-1) - 1
}

func unsignedMax(bits int) uint64 {
	if bits >= 64 {
		return math.MaxUint64
	}
	return 1<<bits - 1
}

func nameOf(d *schema.Descriptor) schema.TypeName {
	if d == nil {
		return ""
	}
	return d.Name()
}

func field(path, name string) string { return path + "." + name }

func index(path string, i int) string { return fmt.Sprintf("%s[%d]", path, i) }
