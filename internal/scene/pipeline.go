package scene

import (
	"fmt"

	"github.com/zeusync/scenekit/internal/core/convert"
	"github.com/zeusync/scenekit/internal/core/dynamic"
	"github.com/zeusync/scenekit/internal/core/models"
	"github.com/zeusync/scenekit/internal/core/observability/log"
	"github.com/zeusync/scenekit/internal/core/schema"
	"github.com/zeusync/scenekit/internal/core/schema/registry"
)

// Pipeline moves scenes between the entity store and documents. Saving is
// two steps: Capture fills the scene cache from the store, then the cache is
// encoded. Loading converts every component before anything is spawned.
type Pipeline struct {
	store  models.Store
	reg    *registry.Registry
	conv   *convert.Converter
	logger log.Log
}

func NewPipeline(store models.Store, reg *registry.Registry, conv *convert.Converter, logger log.Log) *Pipeline {
	return &Pipeline{
		store:  store,
		reg:    reg,
		conv:   conv,
		logger: logger.With(log.String("component", "scene_pipeline")),
	}
}

// Capture snapshots the serializable components of every member into the
// scene cache. On failure the cache is left as it was.
func (p *Pipeline) Capture(sc *Scene) error {
	snapshot := dynamic.NewMap()
	visited := make(map[models.EntityID]struct{}, len(sc.Members))

	for _, id := range sc.Members {
		if _, dup := visited[id]; dup {
			continue
		}
		visited[id] = struct{}{}

		if !p.store.Exists(id) {
			p.logger.Warn("member no longer exists", log.String("scene", sc.Name), log.Uint64("entity", uint64(id)))
			continue
		}
		data, ok := SceneDataOf(p.store, id)
		if !ok {
			return fmt.Errorf("%w: entity %s: %w", ErrSerializeFailure, id, ErrNoSceneDataComponent)
		}
		if _, taken := snapshot.Get(data.Name); taken {
			return fmt.Errorf("%w: duplicate entity name %q", ErrSerializeFailure, data.Name)
		}

		comps, err := p.captureEntity(id, data)
		if err != nil {
			return fmt.Errorf("%w: entity %q: %w", ErrSerializeFailure, data.Name, err)
		}
		snapshot.Set(data.Name, dynamic.FromMap(comps))
	}

	sc.setCache(snapshot)
	p.logger.Debug("scene captured", log.String("scene", sc.Name), log.Int("entities", snapshot.Len()))
	return nil
}

func (p *Pipeline) captureEntity(id models.EntityID, data *SceneData) (*dynamic.Map, error) {
	comps := dynamic.NewMap()
	for _, typ := range data.Serializable {
		host, ok := p.store.Get(id, typ)
		if !ok {
			// Removed since it was flagged.
			continue
		}
		ctors, ok := p.reg.Constructors(typ)
		if !ok {
			return nil, registry.Missing(typ)
		}

		patch, err := ctors.Read(host)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", typ, err)
		}
		value, err := p.conv.FromReflected(patch)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", typ, err)
		}
		comps.Set(string(typ), value)
	}
	return comps, nil
}

// Serialize captures sc and encodes the fresh cache.
func (p *Pipeline) Serialize(sc *Scene) ([]byte, error) {
	if err := p.Capture(sc); err != nil {
		return nil, err
	}
	return EncodeDocument(Document{Name: sc.Name, Entities: sc.cache})
}

type pendingEntity struct {
	name    string
	types   []schema.TypeName
	patches []schema.Value
}

// Deserialize spawns the entities of doc as members of scene owner and
// returns them in document order. Every component is resolved and converted
// first, so a missing type spawns nothing. When applying a patch fails the
// entities spawned so far are despawned.
func (p *Pipeline) Deserialize(owner SceneID, doc Document) ([]models.EntityID, error) {
	pending, err := p.prepare(doc)
	if err != nil {
		return nil, err
	}
	return p.apply(owner, pending)
}

// prepare converts every component of doc without touching the store.
func (p *Pipeline) prepare(doc Document) ([]pendingEntity, error) {
	pending := make([]pendingEntity, 0, doc.Entities.Len())
	for name, comps := range doc.Entities.All() {
		entity := pendingEntity{name: name}
		for typ, value := range comps.AsMap().All() {
			patch, err := p.convertComponent(schema.TypeName(typ), value)
			if err != nil {
				return nil, fmt.Errorf("%w: entity %q: %w", ErrLoadFailure, name, err)
			}
			entity.types = append(entity.types, patch.TypeName())
			entity.patches = append(entity.patches, patch)
		}
		pending = append(pending, entity)
	}
	return pending, nil
}

func (p *Pipeline) apply(owner SceneID, pending []pendingEntity) ([]models.EntityID, error) {
	spawned := make([]models.EntityID, 0, len(pending))
	for _, entity := range pending {
		id := p.store.Spawn()
		spawned = append(spawned, id)

		sceneID := owner
		data := &SceneData{Name: entity.name, Scene: &sceneID, Visible: true, Serializable: entity.types}
		err := p.store.Set(id, TypeSceneData, data)
		for i := 0; err == nil && i < len(entity.patches); i++ {
			err = p.store.InsertOrUpdate(id, entity.patches[i])
		}
		if err != nil {
			p.rollback(spawned)
			return nil, fmt.Errorf("%w: entity %q: %w", ErrLoadFailure, entity.name, err)
		}
	}
	return spawned, nil
}

func (p *Pipeline) convertComponent(typ schema.TypeName, value dynamic.Value) (schema.Value, error) {
	if _, ok := p.reg.Resolve(typ); !ok {
		return schema.Value{}, registry.Missing(typ)
	}
	if !p.reg.IsComponent(typ) {
		return schema.Value{}, fmt.Errorf("%w: %s", registry.ErrNotConstructible, typ)
	}
	return p.conv.ToType(value, typ)
}

func (p *Pipeline) rollback(spawned []models.EntityID) {
	for _, id := range spawned {
		if err := p.store.Despawn(id); err != nil {
			p.logger.Warn("rollback despawn failed", log.Uint64("entity", uint64(id)), log.Error(err))
		}
	}
}
