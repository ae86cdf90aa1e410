package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/scenekit/internal/core/dynamic"
)

func TestDocumentRoundTrip(t *testing.T) {
	entities := dynamic.NewMap().
		Set("Hero", dynamic.FromMap(dynamic.NewMap().
			Set("Position", dynamic.FromMap(dynamic.NewMap().
				Set("x", dynamic.Float(1)).
				Set("y", dynamic.Float(2)))))).
		Set("Empty", dynamic.FromMap(dynamic.NewMap()))

	data, err := EncodeDocument(Document{Name: "Test", Entities: entities})
	require.NoError(t, err)

	doc, err := DecodeDocument(data)
	require.NoError(t, err)
	assert.Equal(t, "Test", doc.Name)
	assert.Equal(t, []string{"Hero", "Empty"}, doc.Entities.Keys())
	assert.True(t, dynamic.Equal(dynamic.FromMap(entities), dynamic.FromMap(doc.Entities)))
}

func TestDecodeDocument(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantErr  bool
		entities []string
	}{
		{name: "no entity data", input: "name: Bare\n", entities: nil},
		{name: "null entity data", input: "name: Bare\nentity_data:\n", entities: nil},
		{name: "null entity", input: "name: S\nentity_data:\n  Hero:\n", entities: []string{"Hero"}},
		{name: "unknown top level key", input: "name: S\nversion: 2\n", entities: nil},
		{name: "not a map", input: "- a\n", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "missing name", input: "entity_data: {}\n", wantErr: true},
		{name: "entity data list", input: "name: S\nentity_data: [1]\n", wantErr: true},
		{name: "entity is scalar", input: "name: S\nentity_data:\n  Hero: 3\n", wantErr: true},
		{name: "broken yaml", input: "name: [\n", wantErr: true},
		{name: "alias cycle", input: "name: S\nentity_data:\n  Hero: &h {Self: *h}\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := DecodeDocument([]byte(tt.input))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrLoadFailure)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.entities, doc.Entities.Keys())
		})
	}
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, "Test.scene.yaml", DefaultPath("Test"))
	assert.Equal(t, "a_b.scene.yaml", DefaultPath(" a/b "))
}
