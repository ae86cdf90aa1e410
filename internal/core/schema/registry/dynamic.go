package registry

import (
	"fmt"

	"github.com/zeusync/scenekit/internal/core/schema"
)

// dynamicCtors stores the patch itself as the host value. Types defined only
// by a descriptor, without a Go type, use them.
type dynamicCtors struct {
	reg  *Registry
	desc *schema.Descriptor
}

// Dynamic returns constructors whose host value is a schema.Value of desc.
func (r *Registry) Dynamic(desc *schema.Descriptor) Constructors {
	return &dynamicCtors{reg: r, desc: desc}
}

// RegisterDynamic registers desc under its own name with Dynamic constructors.
func (r *Registry) RegisterDynamic(desc *schema.Descriptor) error {
	return r.Register(desc.Name(), desc, r.Dynamic(desc))
}

func (c *dynamicCtors) New() any {
	zero, err := c.reg.ZeroOf(c.desc)
	if err != nil {
		// Field types are not registered yet; an empty typed value is still
		// a valid starting point for Apply.
		return schema.Composite(c.desc, nil)
	}
	return zero
}

func (c *dynamicCtors) Apply(_ any, patch schema.Value) (any, error) {
	if !patch.MustType().Identical(c.desc) {
		return nil, fmt.Errorf("%w: %s into %s", ErrTypeMismatch, patch.TypeName(), c.desc.Name())
	}
	return patch, nil
}

func (c *dynamicCtors) Read(host any) (schema.Value, error) {
	v, ok := host.(schema.Value)
	if !ok {
		return schema.Value{}, fmt.Errorf("%w: %s host is %T", ErrTypeMismatch, c.desc.Name(), host)
	}
	if !v.Type().Identical(c.desc) {
		return schema.Value{}, fmt.Errorf("%w: %s host holds %s", ErrTypeMismatch, c.desc.Name(), v.TypeName())
	}
	return v, nil
}
