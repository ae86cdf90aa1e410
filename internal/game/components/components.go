// Package components is the demo component set persisted by scenekit.
package components

import (
	"errors"

	"github.com/zeusync/scenekit/internal/core/schema"
	"github.com/zeusync/scenekit/internal/core/schema/registry"
)

type Position struct {
	X float32 `scene:"x"`
	Y float32 `scene:"y"`
}

func (Position) TypeName() schema.TypeName { return "Position" }

type Velocity struct {
	DX float32 `scene:"dx"`
	DY float32 `scene:"dy"`
}

func (Velocity) TypeName() schema.TypeName { return "Velocity" }

type Health struct {
	Current int32 `scene:"current"`
	Max     int32 `scene:"max"`
	// Invulnerable is runtime only.
	Invulnerable bool `scene:"-"`
}

func (Health) TypeName() schema.TypeName { return "Health" }

// Color is positional: a document stores it as [r, g, b, a].
type Color struct {
	registry.TupleMarker
	R, G, B, A uint8
}

func (Color) TypeName() schema.TypeName { return "Color" }

type Circle struct {
	Radius float32 `scene:"radius"`
}

type Rect struct {
	Width  float32 `scene:"width"`
	Height float32 `scene:"height"`
}

// Shape is one of its alternatives; Point has no payload, so a document may
// store it as the bare string "point".
type Shape struct {
	registry.OneOf
	Point  *struct{} `scene:"point"`
	Circle *Circle   `scene:"circle"`
	Rect   *Rect     `scene:"rect"`
}

func (Shape) TypeName() schema.TypeName { return "Shape" }

type Inventory struct {
	Items map[string]uint32 `scene:"items"`
	Gold  uint64            `scene:"gold"`
}

func (Inventory) TypeName() schema.TypeName { return "Inventory" }

type Waypoints struct {
	Points []Position `scene:"points"`
	Loop   bool       `scene:"loop"`
}

func (Waypoints) TypeName() schema.TypeName { return "Waypoints" }

type Transform struct {
	Translation [3]float32 `scene:"translation"`
	Rotation    [4]float32 `scene:"rotation"`
	Scale       [3]float32 `scene:"scale"`
}

func (Transform) TypeName() schema.TypeName { return "Transform" }

type Label struct {
	Text string   `scene:"text"`
	Tags []string `scene:"tags"`
}

func (Label) TypeName() schema.TypeName { return "Label" }

// Register adds every demo component to r.
func Register(r *registry.Registry) error {
	registrations := []func(*registry.Registry) (schema.TypeName, error){
		registry.RegisterStruct[Position],
		registry.RegisterStruct[Velocity],
		registry.RegisterStruct[Health],
		registry.RegisterStruct[Color],
		registry.RegisterStruct[Shape],
		registry.RegisterStruct[Inventory],
		registry.RegisterStruct[Waypoints],
		registry.RegisterStruct[Transform],
		registry.RegisterStruct[Label],
	}

	var errs []error
	for _, register := range registrations {
		if _, err := register(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
