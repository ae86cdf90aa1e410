package models

import (
	"fmt"
	"slices"
	"sync"

	"github.com/zeusync/scenekit/internal/core/events/bus"
	"github.com/zeusync/scenekit/internal/core/ids"
	"github.com/zeusync/scenekit/internal/core/observability/log"
	"github.com/zeusync/scenekit/internal/core/schema"
	"github.com/zeusync/scenekit/internal/core/schema/registry"
)

var _ Store = (*MemStore)(nil)

const eventSource = "models.memstore"

// MemStore is a map-backed Store. Changes are published on the bus after the
// store lock is released.
type MemStore struct {
	mu       sync.RWMutex
	entities map[EntityID]map[schema.TypeName]any

	alloc  *ids.Allocator
	reg    *registry.Registry
	events bus.EventBus
	logger log.Log
}

// NewMemStore returns an empty store. events may be nil.
func NewMemStore(alloc *ids.Allocator, reg *registry.Registry, events bus.EventBus, logger log.Log) *MemStore {
	return &MemStore{
		entities: make(map[EntityID]map[schema.TypeName]any),
		alloc:    alloc,
		reg:      reg,
		events:   events,
		logger:   logger.With(log.String("component", "memstore")),
	}
}

func (s *MemStore) Spawn() EntityID {
	id := s.alloc.Next(ids.Global)

	s.mu.Lock()
	s.entities[id] = make(map[schema.TypeName]any)
	s.mu.Unlock()

	s.publish(EventEntitySpawned, EntityEvent{Entity: id})
	return id
}

func (s *MemStore) Despawn(id EntityID) error {
	s.mu.Lock()
	_, ok := s.entities[id]
	delete(s.entities, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	s.publish(EventEntityDespawned, EntityEvent{Entity: id})
	return nil
}

func (s *MemStore) Exists(id EntityID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entities[id]
	return ok
}

func (s *MemStore) Get(id EntityID, typ schema.TypeName) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entities[id][typ]
	return v, ok
}

func (s *MemStore) Has(id EntityID, typ schema.TypeName) bool {
	_, ok := s.Get(id, typ)
	return ok
}

func (s *MemStore) InsertOrUpdate(id EntityID, patch schema.Value) error {
	typ := patch.MustType().Name()
	ctors, ok := s.reg.Constructors(typ)
	if !ok {
		return fmt.Errorf("%w: %s", registry.ErrNotConstructible, typ)
	}

	s.mu.RLock()
	comps, exists := s.entities[id]
	current, has := comps[typ]
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	if !has {
		current = ctors.New()
	}

	next, err := ctors.Apply(current, patch)
	if err != nil {
		return err
	}
	return s.store(id, typ, next)
}

func (s *MemStore) Set(id EntityID, typ schema.TypeName, value any) error {
	return s.store(id, typ, value)
}

func (s *MemStore) store(id EntityID, typ schema.TypeName, value any) error {
	s.mu.Lock()
	comps, ok := s.entities[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	_, existed := comps[typ]
	comps[typ] = value
	s.mu.Unlock()

	event := EventComponentInserted
	if existed {
		event = EventComponentUpdated
	}
	s.publish(event, ComponentEvent{Entity: id, Type: typ})
	return nil
}

func (s *MemStore) Remove(id EntityID, typ schema.TypeName) error {
	s.mu.Lock()
	comps, ok := s.entities[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	_, had := comps[typ]
	delete(comps, typ)
	s.mu.Unlock()

	if had {
		s.publish(EventComponentRemoved, ComponentEvent{Entity: id, Type: typ})
	}
	return nil
}

func (s *MemStore) EnumerateWith(typ schema.TypeName) Iterator[EntityID] {
	s.mu.RLock()
	found := make([]EntityID, 0)
	for id, comps := range s.entities {
		if _, ok := comps[typ]; ok {
			found = append(found, id)
		}
	}
	s.mu.RUnlock()

	slices.Sort(found)
	return NewSliceIterator(found)
}

func (s *MemStore) Entities() []EntityID {
	s.mu.RLock()
	out := make([]EntityID, 0, len(s.entities))
	for id := range s.entities {
		out = append(out, id)
	}
	s.mu.RUnlock()

	slices.Sort(out)
	return out
}

func (s *MemStore) Components(id EntityID) []schema.TypeName {
	s.mu.RLock()
	comps := s.entities[id]
	out := make([]schema.TypeName, 0, len(comps))
	for typ := range comps {
		out = append(out, typ)
	}
	s.mu.RUnlock()

	slices.Sort(out)
	return out
}

func (s *MemStore) publish(eventType string, data any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(bus.NewEvent(eventType, eventSource, data)); err != nil {
		s.logger.Warn("event handler failed", log.String("event", eventType), log.Error(err))
	}
}
