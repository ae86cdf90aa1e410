// Package schema describes the shape of registered component types and holds
// the typed patches built from dynamic values.
package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// TypeName is the stable name a type is registered under.
type TypeName string

var (
	ErrInvalidDescriptor = errors.New("invalid descriptor")
)

type Kind uint8

const (
	KindUnit Kind = iota
	KindPrimitive
	KindRecord
	KindTupleRecord
	KindTuple
	KindList
	KindArray
	KindMap
	KindVariant
)

var kindNames = [...]string{"unit", "primitive", "record", "tuple_record", "tuple", "list", "array", "map", "variant"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

type Primitive uint8

const (
	PrimNone Primitive = iota
	Bool
	I8
	I16
	I32
	I64
	U8
	U16
	U32
	U64
	F32
	F64
	String
)

var primitiveNames = [...]TypeName{"", "bool", "i8", "i16", "i32", "i64", "u8", "u16", "u32", "u64", "f32", "f64", "string"}

// Name is the type name the primitive is pre-registered under.
func (p Primitive) Name() TypeName {
	if int(p) < len(primitiveNames) {
		return primitiveNames[p]
	}
	return ""
}

func (p Primitive) IsSigned() bool   { return p >= I8 && p <= I64 }
func (p Primitive) IsUnsigned() bool { return p >= U8 && p <= U64 }
func (p Primitive) IsInteger() bool  { return p.IsSigned() || p.IsUnsigned() }
func (p Primitive) IsFloat() bool    { return p == F32 || p == F64 }

// Bits is the width of a numeric primitive, 0 otherwise.
func (p Primitive) Bits() int {
	switch p {
	case I8, U8:
		return 8
	case I16, U16:
		return 16
	case I32, U32, F32:
		return 32
	case I64, U64, F64:
		return 64
	default:
		return 0
	}
}

// Primitives lists every primitive in declaration order.
func Primitives() []Primitive {
	return []Primitive{Bool, I8, I16, I32, I64, U8, U16, U32, U64, F32, F64, String}
}

// Field is a named slot of a record. Tuple-record and tuple fields are named
// by their index.
type Field struct {
	Name string
	Type TypeName
}

// Alternative is one branch of a variant. Payload describes the data carried
// inline by the branch; a Unit payload carries nothing.
type Alternative struct {
	Name    string
	Payload *Descriptor
}

// Descriptor is immutable once built.
type Descriptor struct {
	name   TypeName
	kind   Kind
	prim   Primitive
	fields []Field
	elem   TypeName
	arity  int
	alts   []Alternative

	canonical   string
	fingerprint uint64
}

func UnitOf(name TypeName) *Descriptor {
	return finish(&Descriptor{name: name, kind: KindUnit})
}

func PrimitiveOf(p Primitive) *Descriptor {
	return finish(&Descriptor{name: p.Name(), kind: KindPrimitive, prim: p})
}

// RecordOf keeps fields in the given order; records serialize in that order.
func RecordOf(name TypeName, fields ...Field) *Descriptor {
	return finish(&Descriptor{name: name, kind: KindRecord, fields: append([]Field(nil), fields...)})
}

func TupleRecordOf(name TypeName, types ...TypeName) *Descriptor {
	return finish(&Descriptor{name: name, kind: KindTupleRecord, fields: indexFields(types)})
}

func TupleOf(name TypeName, types ...TypeName) *Descriptor {
	return finish(&Descriptor{name: name, kind: KindTuple, fields: indexFields(types)})
}

func ListOf(name, elem TypeName) *Descriptor {
	return finish(&Descriptor{name: name, kind: KindList, elem: elem})
}

func ArrayOf(name, elem TypeName, arity int) *Descriptor {
	return finish(&Descriptor{name: name, kind: KindArray, elem: elem, arity: arity})
}

// MapOf describes a string-keyed map.
func MapOf(name, value TypeName) *Descriptor {
	return finish(&Descriptor{name: name, kind: KindMap, elem: value})
}

func VariantOf(name TypeName, alts ...Alternative) *Descriptor {
	return finish(&Descriptor{name: name, kind: KindVariant, alts: append([]Alternative(nil), alts...)})
}

func indexFields(types []TypeName) []Field {
	fields := make([]Field, len(types))
	for i, t := range types {
		fields[i] = Field{Name: strconv.Itoa(i), Type: t}
	}
	return fields
}

func finish(d *Descriptor) *Descriptor {
	var sb strings.Builder
	d.writeCanonical(&sb)
	d.canonical = sb.String()
	d.fingerprint = xxhash.Sum64String(d.canonical)
	return d
}

func (d *Descriptor) writeCanonical(sb *strings.Builder) {
	sb.WriteString(string(d.name))
	sb.WriteByte(' ')
	sb.WriteString(d.kind.String())
	switch d.kind {
	case KindPrimitive:
		sb.WriteByte(' ')
		sb.WriteString(string(d.prim.Name()))
	case KindRecord, KindTupleRecord, KindTuple:
		sb.WriteByte('{')
		for i, f := range d.fields {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(f.Name)
			sb.WriteByte(':')
			sb.WriteString(string(f.Type))
		}
		sb.WriteByte('}')
	case KindList, KindMap:
		sb.WriteByte('<')
		sb.WriteString(string(d.elem))
		sb.WriteByte('>')
	case KindArray:
		sb.WriteByte('<')
		sb.WriteString(string(d.elem))
		sb.WriteByte(';')
		sb.WriteString(strconv.Itoa(d.arity))
		sb.WriteByte('>')
	case KindVariant:
		sb.WriteByte('{')
		for i, a := range d.alts {
			if i > 0 {
				sb.WriteByte('|')
			}
			sb.WriteString(a.Name)
			sb.WriteByte('(')
			if a.Payload != nil {
				a.Payload.writeCanonical(sb)
			}
			sb.WriteByte(')')
		}
		sb.WriteByte('}')
	}
}

func (d *Descriptor) Name() TypeName       { return d.name }
func (d *Descriptor) Kind() Kind           { return d.kind }
func (d *Descriptor) Primitive() Primitive { return d.prim }

// Elem is the element type of a list or array and the value type of a map.
func (d *Descriptor) Elem() TypeName { return d.elem }

// Arity is the fixed length of an array.
func (d *Descriptor) Arity() int { return d.arity }

// Fields returns the ordered fields of a record, tuple-record or tuple.
func (d *Descriptor) Fields() []Field {
	return append([]Field(nil), d.fields...)
}

func (d *Descriptor) NumFields() int { return len(d.fields) }

// FieldAt returns the i-th field; i must be in range.
func (d *Descriptor) FieldAt(i int) Field { return d.fields[i] }

// FieldIndex returns the position of the named field, or -1.
func (d *Descriptor) FieldIndex(name string) int {
	for i, f := range d.fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func (d *Descriptor) Alternatives() []Alternative {
	return append([]Alternative(nil), d.alts...)
}

// Alternative looks up a variant branch by name.
func (d *Descriptor) Alternative(name string) (Alternative, bool) {
	for _, a := range d.alts {
		if a.Name == name {
			return a, true
		}
	}
	return Alternative{}, false
}

// Canonical is the text the fingerprint is computed from.
func (d *Descriptor) Canonical() string { return d.canonical }

func (d *Descriptor) Fingerprint() uint64 { return d.fingerprint }

// Identical reports whether d and o describe the same type.
func (d *Descriptor) Identical(o *Descriptor) bool {
	if d == o {
		return true
	}
	if d == nil || o == nil {
		return false
	}
	return d.fingerprint == o.fingerprint && d.canonical == o.canonical
}

func (d *Descriptor) String() string {
	if d == nil {
		return "<nil>"
	}
	return d.canonical
}

// Validate checks the structural rules a registered descriptor must follow.
func (d *Descriptor) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil", ErrInvalidDescriptor)
	}
	if d.name == "" && d.kind != KindUnit {
		return fmt.Errorf("%w: empty type name", ErrInvalidDescriptor)
	}

	switch d.kind {
	case KindUnit:
	case KindPrimitive:
		if d.prim == PrimNone || d.prim > String {
			return fmt.Errorf("%w: %s: unknown primitive", ErrInvalidDescriptor, d.name)
		}
	case KindRecord, KindTupleRecord, KindTuple:
		seen := make(map[string]struct{}, len(d.fields))
		for _, f := range d.fields {
			if f.Name == "" {
				return fmt.Errorf("%w: %s: empty field name", ErrInvalidDescriptor, d.name)
			}
			if f.Type == "" {
				return fmt.Errorf("%w: %s.%s: empty field type", ErrInvalidDescriptor, d.name, f.Name)
			}
			if _, dup := seen[f.Name]; dup {
				return fmt.Errorf("%w: %s: duplicate field %q", ErrInvalidDescriptor, d.name, f.Name)
			}
			seen[f.Name] = struct{}{}
		}
	case KindList, KindMap:
		if d.elem == "" {
			return fmt.Errorf("%w: %s: empty element type", ErrInvalidDescriptor, d.name)
		}
	case KindArray:
		if d.elem == "" {
			return fmt.Errorf("%w: %s: empty element type", ErrInvalidDescriptor, d.name)
		}
		if d.arity < 0 {
			return fmt.Errorf("%w: %s: negative arity %d", ErrInvalidDescriptor, d.name, d.arity)
		}
	case KindVariant:
		if len(d.alts) == 0 {
			return fmt.Errorf("%w: %s: variant without alternatives", ErrInvalidDescriptor, d.name)
		}
		seen := make(map[string]struct{}, len(d.alts))
		for _, a := range d.alts {
			if a.Name == "" {
				return fmt.Errorf("%w: %s: empty alternative name", ErrInvalidDescriptor, d.name)
			}
			if _, dup := seen[a.Name]; dup {
				return fmt.Errorf("%w: %s: duplicate alternative %q", ErrInvalidDescriptor, d.name, a.Name)
			}
			seen[a.Name] = struct{}{}
			if a.Payload == nil {
				return fmt.Errorf("%w: %s::%s: nil payload", ErrInvalidDescriptor, d.name, a.Name)
			}
			if err := a.Payload.Validate(); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: %s: unknown kind %d", ErrInvalidDescriptor, d.name, d.kind)
	}
	return nil
}
