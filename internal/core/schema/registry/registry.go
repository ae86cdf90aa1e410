// Package registry is the runtime catalog of component types: type name to
// descriptor, plus the constructors that build and patch host values.
package registry

import (
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/zeusync/scenekit/internal/core/schema"
)

// Constructors connect a descriptor to the values the entity store holds.
type Constructors interface {
	// New returns the zero host value.
	New() any
	// Apply overwrites current with patch and returns the new host value.
	// current is the result of New when the entity does not carry the
	// component yet.
	Apply(current any, patch schema.Value) (any, error)
	// Read converts a host value back into a patch.
	Read(host any) (schema.Value, error)
}

type entry struct {
	desc  *schema.Descriptor
	ctors Constructors
}

// Registry is populated at startup and read-heavy afterwards.
type Registry struct {
	mu    sync.RWMutex
	types map[schema.TypeName]entry
}

// New returns a registry with every primitive pre-registered.
func New() *Registry {
	r := &Registry{types: make(map[schema.TypeName]entry)}
	for _, p := range schema.Primitives() {
		d := schema.PrimitiveOf(p)
		r.types[d.Name()] = entry{desc: d}
	}
	return r
}

// Register adds name. Registering the same descriptor again is a no-op, except
// that constructors are attached if the earlier registration had none.
// A different descriptor under a known name is ErrSchemaDrift.
func (r *Registry) Register(name schema.TypeName, desc *schema.Descriptor, ctors Constructors) error {
	if err := desc.Validate(); err != nil {
		return err
	}
	if desc.Name() != name {
		return fmt.Errorf("%w: %q vs %q", ErrNameMismatch, name, desc.Name())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.types[name]; ok {
		if !existing.desc.Identical(desc) {
			return fmt.Errorf("%w: %q registered as %s, got %s", ErrSchemaDrift, name, existing.desc, desc)
		}
		if existing.ctors == nil && ctors != nil {
			existing.ctors = ctors
			r.types[name] = existing
		}
		return nil
	}

	r.types[name] = entry{desc: desc, ctors: ctors}
	return nil
}

// Resolve reports absence with false; it is not an error here.
func (r *Registry) Resolve(name schema.TypeName) (*schema.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.types[name]
	return e.desc, ok
}

// Require is Resolve for use sites where absence is a MissingTypeError.
func (r *Registry) Require(name schema.TypeName) (*schema.Descriptor, error) {
	desc, ok := r.Resolve(name)
	if !ok {
		return nil, Missing(name)
	}
	return desc, nil
}

// Constructors returns the constructors of name, if it has any.
func (r *Registry) Constructors(name schema.TypeName) (Constructors, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.types[name]
	if !ok || e.ctors == nil {
		return nil, false
	}
	return e.ctors, true
}

// ListRegistered yields every registered name in sorted order.
func (r *Registry) ListRegistered() iter.Seq[schema.TypeName] {
	names := r.names(func(entry) bool { return true })
	return slices.Values(names)
}

// Components returns the sorted names that can live on an entity.
func (r *Registry) Components() []schema.TypeName {
	return r.names(func(e entry) bool { return e.ctors != nil })
}

// IsComponent reports whether name is registered with constructors.
func (r *Registry) IsComponent(name schema.TypeName) bool {
	_, ok := r.Constructors(name)
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

func (r *Registry) names(keep func(entry) bool) []schema.TypeName {
	r.mu.RLock()
	names := make([]schema.TypeName, 0, len(r.types))
	for name, e := range r.types {
		if keep(e) {
			names = append(names, name)
		}
	}
	r.mu.RUnlock()

	slices.Sort(names)
	return names
}

const maxDepth = 64

// Zero builds the zero patch of name: zero primitives, empty lists and maps,
// arrays of zeros, and the first alternative of a variant.
func (r *Registry) Zero(name schema.TypeName) (schema.Value, error) {
	desc, err := r.Require(name)
	if err != nil {
		return schema.Value{}, err
	}
	return r.zeroOf(desc, 0)
}

// ZeroOf is Zero for a descriptor that may not be registered itself, such as a
// variant payload.
func (r *Registry) ZeroOf(desc *schema.Descriptor) (schema.Value, error) {
	return r.zeroOf(desc, 0)
}

func (r *Registry) zeroOf(desc *schema.Descriptor, depth int) (schema.Value, error) {
	if depth > maxDepth {
		return schema.Value{}, fmt.Errorf("%w: %s", ErrTooDeep, desc.Name())
	}

	switch desc.Kind() {
	case schema.KindUnit, schema.KindPrimitive:
		return schema.Unit(desc), nil
	case schema.KindRecord, schema.KindTupleRecord, schema.KindTuple:
		items := make([]schema.Value, desc.NumFields())
		for i := range items {
			sub, err := r.zeroNamed(desc.FieldAt(i).Type, depth)
			if err != nil {
				return schema.Value{}, err
			}
			items[i] = sub
		}
		return schema.Composite(desc, items), nil
	case schema.KindList:
		if _, err := r.Require(desc.Elem()); err != nil {
			return schema.Value{}, err
		}
		return schema.Composite(desc, []schema.Value{}), nil
	case schema.KindArray:
		items := make([]schema.Value, desc.Arity())
		for i := range items {
			sub, err := r.zeroNamed(desc.Elem(), depth)
			if err != nil {
				return schema.Value{}, err
			}
			items[i] = sub
		}
		return schema.Composite(desc, items), nil
	case schema.KindMap:
		if _, err := r.Require(desc.Elem()); err != nil {
			return schema.Value{}, err
		}
		return schema.MapValue(desc, nil), nil
	case schema.KindVariant:
		alt := desc.Alternatives()[0]
		payload, err := r.zeroOf(alt.Payload, depth+1)
		if err != nil {
			return schema.Value{}, err
		}
		return schema.VariantValue(desc, alt.Name, payload), nil
	}
	return schema.Value{}, fmt.Errorf("zero of %s: unknown kind %s", desc.Name(), desc.Kind())
}

func (r *Registry) zeroNamed(name schema.TypeName, depth int) (schema.Value, error) {
	desc, err := r.Require(name)
	if err != nil {
		return schema.Value{}, err
	}
	return r.zeroOf(desc, depth+1)
}
