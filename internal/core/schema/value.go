package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is a component patch: typed data for one registered type, ready to be
// applied to a live entity as insert-or-overwrite. The descriptor it carries is
// the represented type.
//
// Record, tuple-record and tuple values hold one item per descriptor field, in
// field order. Lists and arrays hold their elements. Maps hold ordered entries.
// Variants hold the selected alternative and its payload.
type Value struct {
	typ *Descriptor

	b bool
	i int64
	u uint64
	f float64
	s string

	items   []Value
	entries []Entry

	alt     string
	payload *Value
}

type Entry struct {
	Key   string
	Value Value
}

func Unit(d *Descriptor) Value { return Value{typ: d} }

func BoolValue(d *Descriptor, b bool) Value { return Value{typ: d, b: b} }

// IntValue holds any signed integer primitive.
func IntValue(d *Descriptor, i int64) Value { return Value{typ: d, i: i} }

// UintValue holds any unsigned integer primitive.
func UintValue(d *Descriptor, u uint64) Value { return Value{typ: d, u: u} }

// FloatValue holds f32 and f64. An f32 value is already rounded to 32 bits.
func FloatValue(d *Descriptor, f float64) Value { return Value{typ: d, f: f} }

func StringValue(d *Descriptor, s string) Value { return Value{typ: d, s: s} }

// Composite builds a record, tuple-record, tuple, list or array value.
func Composite(d *Descriptor, items []Value) Value {
	return Value{typ: d, items: items}
}

func MapValue(d *Descriptor, entries []Entry) Value {
	return Value{typ: d, entries: entries}
}

func VariantValue(d *Descriptor, alt string, payload Value) Value {
	return Value{typ: d, alt: alt, payload: &payload}
}

// Type returns the represented type, or nil when it was never set.
func (v Value) Type() *Descriptor { return v.typ }

func (v Value) HasType() bool { return v.typ != nil }

// MustType returns the represented type and panics when it is unset. Applying
// an untyped patch is a programming error.
func (v Value) MustType() *Descriptor {
	if v.typ == nil {
		panic("schema: patch has no represented type")
	}
	return v.typ
}

// TypeName is empty for an untyped patch.
func (v Value) TypeName() TypeName {
	if v.typ == nil {
		return ""
	}
	return v.typ.name
}

func (v Value) Bool() bool       { return v.b }
func (v Value) Int() int64       { return v.i }
func (v Value) Uint() uint64     { return v.u }
func (v Value) Float() float64   { return v.f }
func (v Value) Text() string     { return v.s }
func (v Value) Items() []Value   { return v.items }
func (v Value) Entries() []Entry { return v.entries }

// Field returns the named item of a record-like value.
func (v Value) Field(name string) (Value, bool) {
	if v.typ == nil {
		return Value{}, false
	}
	i := v.typ.FieldIndex(name)
	if i < 0 || i >= len(v.items) {
		return Value{}, false
	}
	return v.items[i], true
}

// Variant returns the selected alternative and its payload.
func (v Value) Variant() (string, Value) {
	if v.payload == nil {
		return v.alt, Value{}
	}
	return v.alt, *v.payload
}

// Equal compares represented types by identity of shape and payloads by value.
func Equal(a, b Value) bool {
	if !a.typ.Identical(b.typ) {
		return false
	}
	if a.typ == nil {
		return true
	}

	switch a.typ.kind {
	case KindUnit:
		return true
	case KindPrimitive:
		return a.b == b.b && a.i == b.i && a.u == b.u && a.f == b.f && a.s == b.s
	case KindRecord, KindTupleRecord, KindTuple, KindList, KindArray:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.entries) != len(b.entries) {
			return false
		}
		for i := range a.entries {
			if a.entries[i].Key != b.entries[i].Key || !Equal(a.entries[i].Value, b.entries[i].Value) {
				return false
			}
		}
		return true
	case KindVariant:
		if a.alt != b.alt {
			return false
		}
		_, ap := a.Variant()
		_, bp := b.Variant()
		return Equal(ap, bp)
	}
	return false
}

func (v Value) String() string {
	var sb strings.Builder
	v.write(&sb, true)
	return sb.String()
}

// write omits the type name of records when named is false.
func (v Value) write(sb *strings.Builder, named bool) {
	if v.typ == nil {
		sb.WriteString("<untyped>")
		return
	}

	switch v.typ.kind {
	case KindUnit:
		sb.WriteString("()")
	case KindPrimitive:
		switch p := v.typ.prim; {
		case p == Bool:
			sb.WriteString(strconv.FormatBool(v.b))
		case p.IsSigned():
			sb.WriteString(strconv.FormatInt(v.i, 10))
		case p.IsUnsigned():
			sb.WriteString(strconv.FormatUint(v.u, 10))
		case p.IsFloat():
			sb.WriteString(strconv.FormatFloat(v.f, 'g', -1, p.Bits()))
		default:
			sb.WriteString(strconv.Quote(v.s))
		}
	case KindRecord:
		if named {
			sb.WriteString(string(v.typ.name))
		}
		sb.WriteByte('{')
		for i, item := range v.items {
			if i > 0 {
				sb.WriteString(", ")
			}
			if i < len(v.typ.fields) {
				sb.WriteString(v.typ.fields[i].Name)
				sb.WriteString(": ")
			}
			item.write(sb, true)
		}
		sb.WriteByte('}')
	case KindTupleRecord, KindTuple, KindList, KindArray:
		if named && v.typ.kind == KindTupleRecord {
			sb.WriteString(string(v.typ.name))
		}
		sb.WriteByte('(')
		for i, item := range v.items {
			if i > 0 {
				sb.WriteString(", ")
			}
			item.write(sb, true)
		}
		sb.WriteByte(')')
	case KindMap:
		sb.WriteByte('{')
		for i, e := range v.entries {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(e.Key)
			sb.WriteString(": ")
			e.Value.write(sb, true)
		}
		sb.WriteByte('}')
	case KindVariant:
		alt, payload := v.Variant()
		fmt.Fprintf(sb, "%s::%s", v.typ.name, alt)
		if payload.typ != nil && payload.typ.kind != KindUnit {
			payload.write(sb, false)
		}
	}
}
