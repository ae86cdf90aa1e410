// Package scene groups entities into named scenes and persists them through
// the storage backends.
//
// A Scene lives in the entity store on its own scene entity; the Manager only
// remembers scene entity ids and re-resolves the Scene on every call.
package scene

import (
	"slices"
	"strings"

	"github.com/zeusync/scenekit/internal/core/dynamic"
	"github.com/zeusync/scenekit/internal/core/ids"
	"github.com/zeusync/scenekit/internal/core/models"
	"github.com/zeusync/scenekit/internal/core/schema"
)

// Bookkeeping types. They are stored with Store.Set and never registered,
// so they are never captured themselves.
const (
	TypeScene     schema.TypeName = "scene.Scene"
	TypeSceneData schema.TypeName = "scene.SceneData"
)

// DocumentSuffix is appended to a scene name to derive a save path.
const DocumentSuffix = ".scene.yaml"

// SceneID identifies a scene. It comes from the ids.Scene space and is not
// the id of the scene entity.
type SceneID ids.ObjectID

func (id SceneID) String() string { return ids.ObjectID(id).String() }

type CacheState uint8

const (
	// CacheNone means the scene has never been captured.
	CacheNone CacheState = iota
	CacheFresh
	// CacheStale means a member changed after the last capture.
	CacheStale
)

func (s CacheState) String() string {
	switch s {
	case CacheFresh:
		return "fresh"
	case CacheStale:
		return "stale"
	default:
		return "none"
	}
}

type Scene struct {
	ID      SceneID
	Name    string
	Members []models.EntityID
	// SavePath is the storage key the scene was loaded from or last saved to.
	SavePath string

	cache *dynamic.Map
	state CacheState
}

// Cache returns the last captured snapshot (entity name, then type name, to
// value) and its state. The snapshot must not be modified.
func (s *Scene) Cache() (*dynamic.Map, CacheState) { return s.cache, s.state }

func (s *Scene) HasMember(id models.EntityID) bool { return slices.Contains(s.Members, id) }

func (s *Scene) setCache(snapshot *dynamic.Map) {
	s.cache = snapshot
	s.state = CacheFresh
}

func (s *Scene) markStale() {
	if s.state == CacheFresh {
		s.state = CacheStale
	}
}

func (s *Scene) clone() Scene {
	c := *s
	c.Members = slices.Clone(s.Members)
	return c
}

// SceneData marks an entity as scene content. Only the component types listed
// in Serializable are captured.
type SceneData struct {
	// Name keys the entity in scene documents and must be unique per scene.
	Name string
	// Scene is the last scene the entity was added to.
	Scene        *SceneID
	Visible      bool
	Serializable []schema.TypeName
}

func (d *SceneData) IsSerializable(typ schema.TypeName) bool {
	return slices.Contains(d.Serializable, typ)
}

// MarkSerializable flags typ for capture. It reports whether typ was added.
func (d *SceneData) MarkSerializable(typ schema.TypeName) bool {
	if d.IsSerializable(typ) {
		return false
	}
	d.Serializable = append(d.Serializable, typ)
	return true
}

// DefaultEntityName is the display name given to auto-tagged entities.
func DefaultEntityName(id models.EntityID) string {
	return "Entity " + id.String()
}

// DefaultPath derives the storage key a scene is saved under when no path
// was given.
func DefaultPath(name string) string {
	name = strings.TrimSpace(name)
	name = strings.NewReplacer("/", "_", `\`, "_").Replace(name)
	return name + DocumentSuffix
}

// SceneDataOf returns the SceneData of an entity.
func SceneDataOf(store models.Store, id models.EntityID) (*SceneData, bool) {
	return models.GetAs[*SceneData](store, id, TypeSceneData)
}

// IsSceneEntity reports whether id carries a Scene.
func IsSceneEntity(store models.Store, id models.EntityID) bool {
	return store.Has(id, TypeScene)
}

func isBookkeeping(typ schema.TypeName) bool {
	return typ == TypeScene || typ == TypeSceneData
}
