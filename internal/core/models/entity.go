// Package models is the entity/component store contract and its in-memory
// implementation.
package models

import (
	"errors"

	"github.com/zeusync/scenekit/internal/core/ids"
	"github.com/zeusync/scenekit/internal/core/schema"
)

// EntityID identifies a live entity. Ids come from the ids.Global space.
type EntityID = ids.ObjectID

var ErrEntityNotFound = errors.New("entity not found")

// Store keeps one value per (entity, type name). Values of registered
// component types are created and patched through the registry's
// constructors; Set stores any value directly, for bookkeeping types that are
// never persisted themselves.
//
// Implementations take short locks and never hold one while calling out.
type Store interface {
	Spawn() EntityID
	Despawn(id EntityID) error
	Exists(id EntityID) bool

	// Get returns the host value of a component.
	Get(id EntityID, typ schema.TypeName) (any, bool)
	Has(id EntityID, typ schema.TypeName) bool
	// InsertOrUpdate applies patch to the component of the patch's type,
	// creating it when missing. It panics when the patch has no type.
	InsertOrUpdate(id EntityID, patch schema.Value) error
	Set(id EntityID, typ schema.TypeName, value any) error
	Remove(id EntityID, typ schema.TypeName) error

	// EnumerateWith iterates the entities carrying typ, in id order.
	EnumerateWith(typ schema.TypeName) Iterator[EntityID]
	// Entities returns every live entity in id order.
	Entities() []EntityID
	// Components returns the sorted type names an entity carries.
	Components(id EntityID) []schema.TypeName
}

// GetAs is Get with a type assertion.
func GetAs[T any](s Store, id EntityID, typ schema.TypeName) (T, bool) {
	v, ok := s.Get(id, typ)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// Event types published by stores with a bus.
const (
	EventEntitySpawned     = "entity.spawned"
	EventEntityDespawned   = "entity.despawned"
	EventComponentInserted = "component.inserted"
	EventComponentUpdated  = "component.updated"
	EventComponentRemoved  = "component.removed"
)

// EntityEvent is the data of entity.* events.
type EntityEvent struct {
	Entity EntityID
}

// ComponentEvent is the data of component.* events.
type ComponentEvent struct {
	Entity EntityID
	Type   schema.TypeName
}
