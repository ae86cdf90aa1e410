package dynamic

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/scenekit/pkg/generic"
)

var (
	ErrUnsupportedNode = errors.New("unsupported yaml node")
	ErrNonScalarKey    = errors.New("map keys must be scalars")
	ErrAliasCycle      = errors.New("yaml alias refers to an enclosing node")
	ErrAliasExpansion  = errors.New("yaml aliases expand beyond the node limit")
)

const (
	tagNull  = "!!null"
	tagBool  = "!!bool"
	tagInt   = "!!int"
	tagFloat = "!!float"
	tagStr   = "!!str"
	tagMap   = "!!map"
	tagSeq   = "!!seq"
)

var buffers = generic.NewPool(func() *bytes.Buffer { return new(bytes.Buffer) }, (*bytes.Buffer).Reset)

var (
	_ yaml.Marshaler   = Value{}
	_ yaml.Unmarshaler = (*Value)(nil)
)

// MarshalYAML writes maps in insertion order.
func (v Value) MarshalYAML() (any, error) {
	return v.Node(), nil
}

// Node builds the yaml node tree for v.
func (v Value) Node() *yaml.Node {
	switch v.kind {
	case KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagBool, Value: strconv.FormatBool(v.b)}
	case KindNumber:
		tag := tagInt
		if v.n.form == FormFloat {
			tag = tagFloat
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v.n.String()}
	case KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagStr, Value: v.s}
	case KindList:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: tagSeq}
		for _, item := range v.items {
			node.Content = append(node.Content, item.Node())
		}
		return node
	case KindMap:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: tagMap}
		for k, item := range v.m.All() {
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: tagStr, Value: k},
				item.Node(),
			)
		}
		return node
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagNull, Value: "null"}
	}
}

func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	decoded, err := FromNode(node)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// Alias expansion may add at most aliasRatio nodes per node of the source
// document, and never fewer than minAliasBudget.
const (
	aliasRatio     = 10
	minAliasBudget = 10_000
)

// FromNode converts a decoded yaml node. Aliases are followed; an alias to an
// enclosing node fails with ErrAliasCycle and an expansion past the node
// budget fails with ErrAliasExpansion.
func FromNode(node *yaml.Node) (Value, error) {
	n := countNodes(node)
	r := &nodeReader{
		visiting: make(map[*yaml.Node]bool),
		limit:    n + max(n*aliasRatio, minAliasBudget),
	}
	return r.read(node)
}

// countNodes counts the nodes written in the document, not following aliases.
func countNodes(node *yaml.Node) int {
	if node == nil {
		return 0
	}
	n := 1
	for _, child := range node.Content {
		n += countNodes(child)
	}
	return n
}

type nodeReader struct {
	visiting map[*yaml.Node]bool
	produced int
	limit    int
}

func (r *nodeReader) read(node *yaml.Node) (Value, error) {
	if node == nil {
		return Null(), nil
	}
	if r.produced++; r.produced > r.limit {
		return Value{}, fmt.Errorf("%w: more than %d nodes at line %d", ErrAliasExpansion, r.limit, node.Line)
	}
	if r.visiting[node] {
		return Value{}, fmt.Errorf("%w: line %d", ErrAliasCycle, node.Line)
	}
	r.visiting[node] = true
	defer delete(r.visiting, node)

	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Null(), nil
		}
		return r.read(node.Content[0])
	case yaml.AliasNode:
		return r.read(node.Alias)
	case yaml.ScalarNode:
		return fromScalar(node)
	case yaml.SequenceNode:
		items := make([]Value, 0, len(node.Content))
		for _, child := range node.Content {
			item, err := r.read(child)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return List(items...), nil
	case yaml.MappingNode:
		m := NewMap()
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode := node.Content[i]
			if keyNode.Kind == yaml.AliasNode && keyNode.Alias != nil {
				keyNode = keyNode.Alias
			}
			if keyNode.Kind != yaml.ScalarNode {
				return Value{}, fmt.Errorf("%w: line %d", ErrNonScalarKey, keyNode.Line)
			}
			item, err := r.read(node.Content[i+1])
			if err != nil {
				return Value{}, err
			}
			m.Set(keyNode.Value, item)
		}
		return FromMap(m), nil
	default:
		return Value{}, fmt.Errorf("%w: kind %d at line %d", ErrUnsupportedNode, node.Kind, node.Line)
	}
}

func fromScalar(node *yaml.Node) (Value, error) {
	switch node.ShortTag() {
	case tagNull:
		return Null(), nil
	case tagBool:
		var b bool
		if err := node.Decode(&b); err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	case tagInt:
		var i int64
		if err := node.Decode(&i); err == nil {
			return Int(i), nil
		}
		var u uint64
		if err := node.Decode(&u); err == nil {
			return Uint(u), nil
		}
		// Beyond 64 bits; keep the magnitude as a float.
		f, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid integer %q at line %d", node.Value, node.Line)
		}
		return Float(f), nil
	case tagFloat:
		var f float64
		if err := node.Decode(&f); err != nil {
			return Value{}, err
		}
		return Float(f), nil
	case tagStr:
		return String(node.Value), nil
	default:
		// Custom tags carry their raw text.
		return String(node.Value), nil
	}
}

// ParseYAML reads a single yaml document. Empty input is Null.
func ParseYAML(data []byte) (Value, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return Value{}, err
	}
	return FromNode(&node)
}

// EncodeYAML writes v as a yaml document with two-space indentation.
func EncodeYAML(v Value) ([]byte, error) {
	buf := buffers.Get()
	defer buffers.Put(buf)

	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(v.Node()); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}
