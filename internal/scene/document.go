package scene

import (
	"fmt"

	"github.com/zeusync/scenekit/internal/core/dynamic"
)

const (
	keyName       = "name"
	keyEntityData = "entity_data"
)

// Document is the stored form of a scene:
//
//	name: Test
//	entity_data:
//	  Hero:
//	    Position: {x: 1, y: 2}
type Document struct {
	Name string
	// Entities maps entity name to a map of type name to value.
	Entities *dynamic.Map
}

// EncodeDocument renders doc as yaml.
func EncodeDocument(doc Document) ([]byte, error) {
	entities := doc.Entities
	if entities == nil {
		entities = dynamic.NewMap()
	}
	root := dynamic.NewMap().
		Set(keyName, dynamic.String(doc.Name)).
		Set(keyEntityData, dynamic.FromMap(entities))

	data, err := dynamic.EncodeYAML(dynamic.FromMap(root))
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %w", ErrSerializeFailure, err)
	}
	return data, nil
}

// DecodeDocument parses a scene document. Unknown top-level keys are ignored.
func DecodeDocument(data []byte) (Document, error) {
	v, err := dynamic.ParseYAML(data)
	if err != nil {
		return Document{}, fmt.Errorf("%w: parse: %w", ErrLoadFailure, err)
	}
	root := v.AsMap()
	if root == nil {
		return Document{}, fmt.Errorf("%w: document is %s, want a map", ErrLoadFailure, v.Kind())
	}

	nameValue, _ := root.Get(keyName)
	name, ok := nameValue.AsString()
	if !ok || name == "" {
		return Document{}, fmt.Errorf("%w: missing scene name", ErrLoadFailure)
	}

	doc := Document{Name: name, Entities: dynamic.NewMap()}
	section, ok := root.Get(keyEntityData)
	if !ok || section.IsNull() {
		return doc, nil
	}
	entities := section.AsMap()
	if entities == nil {
		return Document{}, fmt.Errorf("%w: %s is %s, want a map", ErrLoadFailure, keyEntityData, section.Kind())
	}

	for entity, comps := range entities.All() {
		switch {
		case comps.IsNull():
			doc.Entities.Set(entity, dynamic.FromMap(dynamic.NewMap()))
		case comps.AsMap() != nil:
			doc.Entities.Set(entity, comps)
		default:
			return Document{}, fmt.Errorf("%w: entity %q is %s, want a map", ErrLoadFailure, entity, comps.Kind())
		}
	}
	return doc, nil
}
