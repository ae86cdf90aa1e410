// Package dynamic holds the untyped value tree scenes are written in.
// A Value carries no schema; the converter pairs it with a type descriptor.
package dynamic

import (
	"iter"
	"math"
	"strconv"
	"strings"
)

type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

var kindNames = [...]string{"null", "bool", "number", "string", "list", "map"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a tagged union. The zero Value is Null.
type Value struct {
	kind  Kind
	b     bool
	n     Number
	s     string
	items []Value
	m     *Map
}

func Null() Value { return Value{} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func String(s string) Value { return Value{kind: KindString, s: s} }

func Int(i int64) Value { return Value{kind: KindNumber, n: IntNumber(i)} }

func Uint(u uint64) Value { return Value{kind: KindNumber, n: UintNumber(u)} }

func Float(f float64) Value { return Value{kind: KindNumber, n: FloatNumber(f)} }

func FromNumber(n Number) Value { return Value{kind: KindNumber, n: n} }

func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, items: items}
}

// FromMap wraps m. A nil m becomes an empty map.
func FromMap(m *Map) Value {
	if m == nil {
		m = NewMap()
	}
	return Value{kind: KindMap, m: m}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

func (v Value) AsNumber() (Number, bool) { return v.n, v.kind == KindNumber }

func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// Items returns the elements of a list, or nil for any other kind.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.items
}

// AsMap returns the map of a map value, or nil for any other kind.
func (v Value) AsMap() *Map {
	if v.kind != KindMap {
		return nil
	}
	return v.m
}

// Equal compares structurally. Numbers compare by numeric value, so Int(1)
// equals Float(1). Map comparison ignores key order.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.n.Equal(b.n)
	case KindString:
		return a.s == b.s
	case KindList:
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
		if a.m.Len() != b.m.Len() {
			return false
		}
		for k, av := range a.m.All() {
			bv, ok := b.m.Get(k)
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders v on one line in flow style, for console listings.
func (v Value) String() string {
	var sb strings.Builder
	v.write(&sb)
	return sb.String()
}

func (v Value) write(sb *strings.Builder) {
	switch v.kind {
	case KindNull:
		sb.WriteString("null")
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		sb.WriteString(v.n.String())
	case KindString:
		sb.WriteString(strconv.Quote(v.s))
	case KindList:
		sb.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				sb.WriteString(", ")
			}
			item.write(sb)
		}
		sb.WriteByte(']')
	case KindMap:
		sb.WriteByte('{')
		i := 0
		for k, item := range v.m.All() {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k)
			sb.WriteString(": ")
			item.write(sb)
			i++
		}
		sb.WriteByte('}')
	}
}

// Map is a string-keyed map that remembers insertion order.
type Map struct {
	keys   []string
	values map[string]Value
}

func NewMap() *Map {
	return &Map{values: make(map[string]Value)}
}

// Set stores v under key. An existing key keeps its position.
func (m *Map) Set(key string, v Value) *Map {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
	return m
}

func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.values[key]
	return v, ok
}

func (m *Map) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns a copy of the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// All iterates entries in insertion order.
func (m *Map) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if m == nil {
			return
		}
		for _, k := range m.keys {
			if !yield(k, m.values[k]) {
				return
			}
		}
	}
}

type NumberForm uint8

const (
	FormInt NumberForm = iota
	FormUint
	FormFloat
)

// Number keeps the lexical form it was read or built with. Uint is only used
// for values above math.MaxInt64.
type Number struct {
	form NumberForm
	i    int64
	u    uint64
	f    float64
}

func IntNumber(i int64) Number { return Number{form: FormInt, i: i} }

// UintNumber stores u as a signed integer when it fits.
func UintNumber(u uint64) Number {
	if u <= math.MaxInt64 {
		return Number{form: FormInt, i: int64(u)}
	}
	return Number{form: FormUint, u: u}
}

func FloatNumber(f float64) Number { return Number{form: FormFloat, f: f} }

func (n Number) Form() NumberForm { return n.form }

// IsIntegral reports whether n has no fractional part.
func (n Number) IsIntegral() bool {
	if n.form != FormFloat {
		return true
	}
	return !math.IsInf(n.f, 0) && !math.IsNaN(n.f) && n.f == math.Trunc(n.f)
}

func (n Number) Float64() float64 {
	switch n.form {
	case FormInt:
		return float64(n.i)
	case FormUint:
		return float64(n.u)
	default:
		return n.f
	}
}

// Truncated returns n with its fraction dropped toward zero. ok is false when
// n is NaN or infinite.
func (n Number) Truncated() (Number, bool) {
	if n.form != FormFloat {
		return n, true
	}
	if math.IsInf(n.f, 0) || math.IsNaN(n.f) {
		return n, false
	}
	return FloatNumber(math.Trunc(n.f)), true
}

// Int64 returns n as an int64 when n is integral and in range.
func (n Number) Int64() (int64, bool) {
	switch n.form {
	case FormInt:
		return n.i, true
	case FormUint:
		return 0, false
	default:
		if !n.IsIntegral() || n.f < math.MinInt64 || n.f >= math.MaxInt64 {
			return 0, false
		}
		return int64(n.f), true
	}
}

// Uint64 returns n as a uint64 when n is integral, non-negative and in range.
func (n Number) Uint64() (uint64, bool) {
	switch n.form {
	case FormInt:
		if n.i < 0 {
			return 0, false
		}
		return uint64(n.i), true
	case FormUint:
		return n.u, true
	default:
		if !n.IsIntegral() || n.f < 0 || n.f >= math.MaxUint64 {
			return 0, false
		}
		return uint64(n.f), true
	}
}

func (n Number) Equal(o Number) bool {
	if n.form == o.form {
		switch n.form {
		case FormInt:
			return n.i == o.i
		case FormUint:
			return n.u == o.u
		default:
			return n.f == o.f
		}
	}
	if n.form == FormFloat || o.form == FormFloat {
		return n.Float64() == o.Float64()
	}
	// int vs uint: a Uint is always above MaxInt64.
	return false
}

// String formats n so that reading it back yields the same form. Integral
// floats keep a trailing ".0".
func (n Number) String() string {
	switch n.form {
	case FormInt:
		return strconv.FormatInt(n.i, 10)
	case FormUint:
		return strconv.FormatUint(n.u, 10)
	}
	switch {
	case math.IsInf(n.f, 1):
		return ".inf"
	case math.IsInf(n.f, -1):
		return "-.inf"
	case math.IsNaN(n.f):
		return ".nan"
	}
	s := strconv.FormatFloat(n.f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
