package scene

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/scenekit/internal/core/convert"
	"github.com/zeusync/scenekit/internal/core/events/bus"
	"github.com/zeusync/scenekit/internal/core/ids"
	"github.com/zeusync/scenekit/internal/core/models"
	"github.com/zeusync/scenekit/internal/core/observability/log"
	"github.com/zeusync/scenekit/internal/core/schema"
	"github.com/zeusync/scenekit/internal/core/schema/registry"
	"github.com/zeusync/scenekit/internal/core/storage"
)

// Event types published by the Manager. Their data is a SceneEvent.
const (
	EventSceneLoaded   = "scene.loaded"
	EventSceneSaved    = "scene.saved"
	EventSceneUnloaded = "scene.unloaded"
)

const eventSource = "scene.manager"

type SceneEvent struct {
	ID   SceneID
	Name string
	Path string
}

// Summary describes a loaded scene.
type Summary struct {
	ID       SceneID
	Name     string
	Members  int
	SavePath string
	Cache    CacheState
	Target   bool
}

// Manager tracks the loaded scenes and the target scene. It is not safe for
// concurrent use; store change events are handled on the publishing
// goroutine.
type Manager struct {
	store    models.Store
	reg      *registry.Registry
	docs     storage.Store
	alloc    *ids.Allocator
	pipeline *Pipeline
	events   bus.EventBus
	logger   log.Log

	// loaded holds scene entity ids in load order.
	loaded    []models.EntityID
	target    models.EntityID
	hasTarget bool

	subs []bus.Subscription
}

// NewManager builds a manager. When events is not nil the manager follows
// component changes to mark captured scenes stale.
func NewManager(
	store models.Store,
	reg *registry.Registry,
	docs storage.Store,
	alloc *ids.Allocator,
	events bus.EventBus,
	logger log.Log,
) (*Manager, error) {
	logger = logger.With(log.String("component", "scene_manager"))
	m := &Manager{
		store:    store,
		reg:      reg,
		docs:     docs,
		alloc:    alloc,
		pipeline: NewPipeline(store, reg, convert.New(reg, logger), logger),
		events:   events,
		logger:   logger,
	}

	if events != nil {
		for _, typ := range []string{
			models.EventComponentInserted,
			models.EventComponentUpdated,
			models.EventComponentRemoved,
			models.EventEntityDespawned,
		} {
			sub, err := events.Subscribe(typ, m.onStoreChange)
			if err != nil {
				m.Close()
				return nil, fmt.Errorf("subscribe %s: %w", typ, err)
			}
			m.subs = append(m.subs, sub)
		}
	}
	return m, nil
}

// Close stops following store events.
func (m *Manager) Close() {
	for _, sub := range m.subs {
		_ = sub.Cancel()
	}
	m.subs = nil
}

func (m *Manager) Registry() *registry.Registry { return m.reg }

func (m *Manager) Pipeline() *Pipeline { return m.pipeline }

// NewScene creates an empty scene and makes it the target.
func (m *Manager) NewScene(name string) (SceneID, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("%w: empty scene name", ErrInput)
	}
	if m.nameTaken(name) {
		return 0, fmt.Errorf("%w: %q", ErrDuplicateScene, name)
	}

	sc := &Scene{ID: SceneID(m.alloc.Next(ids.Scene)), Name: name}
	if err := m.attach(sc); err != nil {
		return 0, err
	}
	m.logger.Info("scene created", log.String("scene", name), log.Uint64("id", uint64(sc.ID)))
	return sc.ID, nil
}

// LoadScene reads the document at path, spawns its entities and makes the
// new scene the target.
func (m *Manager) LoadScene(ctx context.Context, path string) (SceneID, error) {
	key, doc, err := m.read(ctx, path)
	if err != nil {
		return 0, err
	}
	return m.load(key, doc)
}

func (m *Manager) read(ctx context.Context, path string) (string, Document, error) {
	key, err := storage.CleanKey(path)
	if err != nil {
		return "", Document{}, fmt.Errorf("%w: %w", ErrInput, err)
	}
	data, err := m.docs.Read(ctx, key)
	if err != nil {
		return "", Document{}, fmt.Errorf("%w: read %s: %w", ErrIO, key, err)
	}
	doc, err := DecodeDocument(data)
	if err != nil {
		return "", Document{}, fmt.Errorf("%s: %w", key, err)
	}
	return key, doc, nil
}

func (m *Manager) load(key string, doc Document) (SceneID, error) {
	if m.nameTaken(doc.Name) {
		return 0, fmt.Errorf("%w: %w: %q", ErrLoadFailure, ErrDuplicateScene, doc.Name)
	}
	pending, err := m.pipeline.prepare(doc)
	if err != nil {
		return 0, err
	}
	return m.place(key, doc.Name, pending)
}

// place spawns converted entities under a new scene and makes it the target.
func (m *Manager) place(key, name string, pending []pendingEntity) (SceneID, error) {
	if m.nameTaken(name) {
		return 0, fmt.Errorf("%w: %w: %q", ErrLoadFailure, ErrDuplicateScene, name)
	}

	id := SceneID(m.alloc.Next(ids.Scene))
	members, err := m.pipeline.apply(id, pending)
	if err != nil {
		return 0, err
	}

	sc := &Scene{ID: id, Name: name, Members: members, SavePath: key}
	if err = m.attach(sc); err != nil {
		m.pipeline.rollback(members)
		return 0, err
	}

	m.logger.Info("scene loaded",
		log.String("scene", sc.Name),
		log.String("path", key),
		log.Int("entities", len(members)),
	)
	m.publish(EventSceneLoaded, sc)
	return id, nil
}

// attach stores sc on a new scene entity and makes it the target.
func (m *Manager) attach(sc *Scene) error {
	ent := m.store.Spawn()
	if err := m.store.Set(ent, TypeScene, sc); err != nil {
		_ = m.store.Despawn(ent)
		return fmt.Errorf("store scene: %w", err)
	}
	m.loaded = append(m.loaded, ent)
	m.target, m.hasTarget = ent, true
	return nil
}

// PathPrompt asks for a storage key to save the named scene under.
type PathPrompt func(sceneName string) (string, error)

type saveOptions struct {
	path   string
	prompt PathPrompt
}

type SaveOption func(*saveOptions)

// WithPath saves under path instead of the scene's save path.
func WithPath(path string) SaveOption {
	return func(o *saveOptions) { o.path = path }
}

// WithPathPrompt is asked for a path when the scene has none. Without it the
// path is derived with DefaultPath.
func WithPathPrompt(prompt PathPrompt) SaveOption {
	return func(o *saveOptions) { o.prompt = prompt }
}

// SaveScene captures the target scene and writes it. Nothing is written
// unless the whole capture succeeds.
func (m *Manager) SaveScene(ctx context.Context, opts ...SaveOption) error {
	var o saveOptions
	for _, opt := range opts {
		opt(&o)
	}

	_, sc, err := m.targetScene()
	if err != nil {
		return err
	}

	data, err := m.pipeline.Serialize(sc)
	if err != nil {
		return err
	}

	path := o.path
	if path == "" {
		path = sc.SavePath
	}
	if path == "" && o.prompt != nil {
		if path, err = o.prompt(sc.Name); err != nil {
			return err
		}
	}
	if strings.TrimSpace(path) == "" {
		path = DefaultPath(sc.Name)
	}
	key, err := storage.CleanKey(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInput, err)
	}

	if err = m.docs.Write(ctx, key, data); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrIO, key, err)
	}
	sc.SavePath = key

	m.logger.Info("scene saved",
		log.String("scene", sc.Name),
		log.String("path", key),
		log.Int("bytes", len(data)),
		log.Uint64("checksum", xxhash.Sum64(data)),
	)
	m.publish(EventSceneSaved, sc)
	return nil
}

// UnloadScene despawns the target scene and its members without saving.
func (m *Manager) UnloadScene() error {
	ent, sc, err := m.targetScene()
	if err != nil {
		return err
	}
	m.unload(ent, sc)
	return nil
}

func (m *Manager) unload(ent models.EntityID, sc *Scene) {
	for _, id := range slices.Compact(slices.Sorted(slices.Values(sc.Members))) {
		if err := m.store.Despawn(id); err != nil && !errors.Is(err, models.ErrEntityNotFound) {
			m.logger.Warn("despawn member failed", log.Uint64("entity", uint64(id)), log.Error(err))
		}
	}
	_ = m.store.Despawn(ent)

	m.loaded = slices.DeleteFunc(m.loaded, func(id models.EntityID) bool { return id == ent })
	if m.hasTarget && m.target == ent {
		m.target, m.hasTarget = 0, false
	}

	m.logger.Info("scene unloaded", log.String("scene", sc.Name), log.Int("entities", len(sc.Members)))
	m.publish(EventSceneUnloaded, sc)
}

// ReloadScene discards the target scene and loads it again from its save
// path. The document is read and every component converted first, so an
// unreadable document or an unknown type leaves the scene loaded.
func (m *Manager) ReloadScene(ctx context.Context) (SceneID, error) {
	ent, sc, err := m.targetScene()
	if err != nil {
		return 0, err
	}
	if sc.SavePath == "" {
		return 0, fmt.Errorf("%w: %q", ErrNoSavePath, sc.Name)
	}

	key, doc, err := m.read(ctx, sc.SavePath)
	if err != nil {
		return 0, err
	}
	pending, err := m.pipeline.prepare(doc)
	if err != nil {
		return 0, err
	}
	m.unload(ent, sc)
	return m.place(key, doc.Name, pending)
}

func (m *Manager) ChangeTarget(name string) error {
	for _, ent := range m.loaded {
		if sc, ok := m.sceneAt(ent); ok && sc.Name == name {
			m.target, m.hasTarget = ent, true
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrSceneNotFound, name)
}

// AddEntityToScene appends entity to the scene members. An entity without
// SceneData is tagged with displayName (or DefaultEntityName) and every
// component type it carries that has constructors is flagged serializable.
// Adding an entity twice appends it twice.
func (m *Manager) AddEntityToScene(id SceneID, entity models.EntityID, displayName string) error {
	_, sc, err := m.resolve(id)
	if err != nil {
		return err
	}
	if !m.store.Exists(entity) {
		return fmt.Errorf("%w: %w: %s", ErrInput, models.ErrEntityNotFound, entity)
	}
	if IsSceneEntity(m.store, entity) {
		return fmt.Errorf("%w: entity %s is a scene", ErrInput, entity)
	}

	displayName = strings.TrimSpace(displayName)
	owner := id
	data, ok := SceneDataOf(m.store, entity)
	if !ok {
		data = &SceneData{Name: displayName, Visible: true}
		if data.Name == "" {
			data.Name = DefaultEntityName(entity)
		}
		for _, typ := range m.store.Components(entity) {
			if m.reg.IsComponent(typ) {
				data.MarkSerializable(typ)
			}
		}
	} else if displayName != "" {
		data.Name = displayName
	}
	data.Scene = &owner
	if err = m.store.Set(entity, TypeSceneData, data); err != nil {
		return err
	}

	sc.Members = append(sc.Members, entity)
	sc.markStale()
	return nil
}

// ScoopEntities adds every entity that is not a scene and has no owning scene
// to the scene. It returns how many were added.
func (m *Manager) ScoopEntities(id SceneID) (int, error) {
	if _, _, err := m.resolve(id); err != nil {
		return 0, err
	}

	taken := make(map[models.EntityID]bool)
	for it := m.store.EnumerateWith(TypeScene); it.Next(); {
		taken[it.Item()] = true
	}
	for it := m.store.EnumerateWith(TypeSceneData); it.Next(); {
		if data, ok := SceneDataOf(m.store, it.Item()); ok && data.Scene != nil {
			taken[it.Item()] = true
		}
	}

	count := 0
	for _, entity := range m.store.Entities() {
		if taken[entity] {
			continue
		}
		if err := m.AddEntityToScene(id, entity, ""); err != nil {
			return count, err
		}
		count++
	}
	if count > 0 {
		m.logger.Info("entities scooped", log.Uint64("scene", uint64(id)), log.Int("count", count))
	}
	return count, nil
}

// CreateEntity spawns an empty entity named name in the scene.
func (m *Manager) CreateEntity(id SceneID, name string) (models.EntityID, error) {
	_, sc, err := m.resolve(id)
	if err != nil {
		return 0, err
	}
	name = strings.TrimSpace(name)
	if name != "" && m.memberNamed(sc, name) {
		return 0, fmt.Errorf("%w: entity %q already in scene %q", ErrInput, name, sc.Name)
	}

	entity := m.store.Spawn()
	if err = m.AddEntityToScene(id, entity, name); err != nil {
		_ = m.store.Despawn(entity)
		return 0, err
	}
	return entity, nil
}

// AddComponent inserts or updates a component and flags its type
// serializable on the entity's SceneData.
func (m *Manager) AddComponent(entity models.EntityID, patch schema.Value) error {
	if err := m.store.InsertOrUpdate(entity, patch); err != nil {
		return err
	}
	if data, ok := SceneDataOf(m.store, entity); ok {
		data.MarkSerializable(patch.TypeName())
	}
	return nil
}

// Capture refreshes the cache of a scene without writing it.
func (m *Manager) Capture(id SceneID) error {
	_, sc, err := m.resolve(id)
	if err != nil {
		return err
	}
	return m.pipeline.Capture(sc)
}

// Scenes summarizes the loaded scenes in load order.
func (m *Manager) Scenes() []Summary {
	out := make([]Summary, 0, len(m.loaded))
	for _, ent := range m.loaded {
		sc, ok := m.sceneAt(ent)
		if !ok {
			continue
		}
		out = append(out, Summary{
			ID:       sc.ID,
			Name:     sc.Name,
			Members:  len(sc.Members),
			SavePath: sc.SavePath,
			Cache:    sc.state,
			Target:   m.hasTarget && ent == m.target,
		})
	}
	return out
}

// Target returns the target scene.
func (m *Manager) Target() (SceneID, bool) {
	_, sc, err := m.targetScene()
	if err != nil {
		return 0, false
	}
	return sc.ID, true
}

// Scene returns a copy of a loaded scene.
func (m *Manager) Scene(id SceneID) (Scene, bool) {
	_, sc, err := m.resolve(id)
	if err != nil {
		return Scene{}, false
	}
	return sc.clone(), true
}

func (m *Manager) SceneByName(name string) (Scene, bool) {
	for _, ent := range m.loaded {
		if sc, ok := m.sceneAt(ent); ok && sc.Name == name {
			return sc.clone(), true
		}
	}
	return Scene{}, false
}

func (m *Manager) Members(id SceneID) ([]models.EntityID, error) {
	_, sc, err := m.resolve(id)
	if err != nil {
		return nil, err
	}
	return slices.Clone(sc.Members), nil
}

func (m *Manager) targetScene() (models.EntityID, *Scene, error) {
	if !m.hasTarget {
		return 0, nil, ErrNoTargetScene
	}
	sc, ok := m.sceneAt(m.target)
	if !ok {
		return 0, nil, fmt.Errorf("%w: target entity %s", ErrNoSceneComponent, m.target)
	}
	return m.target, sc, nil
}

func (m *Manager) resolve(id SceneID) (models.EntityID, *Scene, error) {
	for _, ent := range m.loaded {
		if sc, ok := m.sceneAt(ent); ok && sc.ID == id {
			return ent, sc, nil
		}
	}
	return 0, nil, fmt.Errorf("%w: id %s", ErrSceneNotFound, id)
}

func (m *Manager) sceneAt(ent models.EntityID) (*Scene, bool) {
	return models.GetAs[*Scene](m.store, ent, TypeScene)
}

func (m *Manager) nameTaken(name string) bool {
	_, ok := m.SceneByName(name)
	return ok
}

func (m *Manager) memberNamed(sc *Scene, name string) bool {
	for _, member := range sc.Members {
		if data, ok := SceneDataOf(m.store, member); ok && data.Name == name {
			return true
		}
	}
	return false
}

func (m *Manager) onStoreChange(event bus.Event) error {
	var entity models.EntityID
	switch data := event.Data().(type) {
	case models.ComponentEvent:
		if isBookkeeping(data.Type) {
			return nil
		}
		entity = data.Entity
	case models.EntityEvent:
		entity = data.Entity
	default:
		return nil
	}

	for _, ent := range m.loaded {
		if sc, ok := m.sceneAt(ent); ok && sc.HasMember(entity) {
			sc.markStale()
		}
	}
	return nil
}

func (m *Manager) publish(eventType string, sc *Scene) {
	if m.events == nil {
		return
	}
	event := bus.NewEvent(eventType, eventSource, SceneEvent{ID: sc.ID, Name: sc.Name, Path: sc.SavePath})
	if err := m.events.Publish(event); err != nil {
		m.logger.Warn("scene event handler failed", log.String("event", eventType), log.Error(err))
	}
}
