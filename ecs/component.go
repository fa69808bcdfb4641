package ecs

import (
	"reflect"

	"github.com/kamstrup/intmap"
	"github.com/rotisserie/eris"
)

// componentStore is a type-erased per-component value store.
type componentStore interface {
	addZero(entity Entity)
	remove(entity Entity)
	len() int
}

type componentInfo struct {
	name  string
	store componentStore
}

// ComponentType is a typed handle for a component registered with a World.
type ComponentType[T any] struct {
	id ComponentID
}

// ID returns the component id used in interest masks.
func (c ComponentType[T]) ID() ComponentID {
	return c.id
}

// valueStore keeps one heap-allocated T per entity, keyed by the entity.
type valueStore[T any] struct {
	values *intmap.Map[Entity, *T]
}

func newValueStore[T any](capacity int) *valueStore[T] {
	return &valueStore[T]{values: intmap.New[Entity, *T](max(capacity, 16))}
}

func (s *valueStore[T]) addZero(entity Entity) {
	if _, ok := s.values.Get(entity); !ok {
		s.values.Put(entity, new(T))
	}
}

func (s *valueStore[T]) remove(entity Entity) {
	s.values.Del(entity)
}

func (s *valueStore[T]) len() int {
	return s.values.Len()
}

// tagStore backs components that carry no data; membership lives in the entity mask.
type tagStore struct {
	count int
}

func (s *tagStore) addZero(Entity) { s.count++ }
func (s *tagStore) remove(Entity)  { s.count-- }
func (s *tagStore) len() int       { return s.count }

// RegisterComponent registers T with the world and returns its handle.
// Registering the same type again returns the existing handle.
// Registering more types than Config.MaxComponents returns ErrComponentOutOfRange.
func RegisterComponent[T any](w *World) (ComponentType[T], error) {
	t := reflect.TypeFor[T]()
	if id, ok := w.typeIDs[t]; ok {
		return ComponentType[T]{id: id}, nil
	}

	id, err := w.registerComponent(t.String(), newValueStore[T](w.cfg.EntityCapacity))
	if err != nil {
		return ComponentType[T]{}, err
	}
	w.typeIDs[t] = id
	return ComponentType[T]{id: id}, nil
}

// RegisterTag registers a component without data and returns its id.
func (w *World) RegisterTag(name string) (ComponentID, error) {
	return w.registerComponent(name, &tagStore{})
}

func (w *World) registerComponent(name string, store componentStore) (ComponentID, error) {
	id := ComponentID(len(w.components))
	if uint(id) >= w.cfg.MaxComponents {
		err := eris.Wrapf(ErrComponentOutOfRange, "cannot register %s: limit is %d components", name, w.cfg.MaxComponents)
		w.logger.Error().Err(err).Msg("component registration failed")
		return 0, err
	}

	w.components = append(w.components, componentInfo{name: name, store: store})
	w.logger.Debug().Str("component", name).Uint32("id", uint32(id)).Msg("component registered")
	return id, nil
}

// ComponentName returns the registered name of id, or "" if unknown.
func (w *World) ComponentName(id ComponentID) string {
	if int(id) >= len(w.components) {
		return ""
	}
	return w.components[id].name
}

// ComponentCount returns the number of registered components.
func (w *World) ComponentCount() int {
	return len(w.components)
}

func (w *World) component(id ComponentID) (*componentInfo, error) {
	if int(id) >= len(w.components) {
		return nil, eris.Wrapf(ErrUnknownComponent, "component %d", id)
	}
	return &w.components[id], nil
}

func valueStoreFor[T any](w *World, ct ComponentType[T]) *valueStore[T] {
	if int(ct.id) >= len(w.components) {
		return nil
	}
	store, _ := w.components[ct.id].store.(*valueStore[T])
	return store
}

// Add sets the entity's T component to value, adding the component if missing.
func Add[T any](w *World, entity Entity, ct ComponentType[T], value T) error {
	store := valueStoreFor(w, ct)
	if store == nil {
		return eris.Wrapf(ErrUnknownComponent, "component %d", ct.id)
	}
	if !w.Alive(entity) {
		return eris.Wrapf(ErrDeadEntity, "add %s to %s", w.components[ct.id].name, entity)
	}

	if ptr, ok := store.values.Get(entity); ok {
		*ptr = value
	} else {
		store.values.Put(entity, &value)
	}
	return w.markComponent(entity, ct.id)
}

// Get returns a pointer to the entity's T component.
func Get[T any](w *World, entity Entity, ct ComponentType[T]) (*T, bool) {
	store := valueStoreFor(w, ct)
	if store == nil {
		return nil, false
	}
	if _, ok := w.lookup(entity); !ok {
		return nil, false
	}
	return store.values.Get(entity)
}

// Has reports whether the entity has the T component.
func Has[T any](w *World, entity Entity, ct ComponentType[T]) bool {
	slot, ok := w.slot(entity)
	return ok && slot.mask.Has(ct.id)
}

// Remove takes the T component away from the entity.
func Remove[T any](w *World, entity Entity, ct ComponentType[T]) bool {
	return w.RemoveComponent(entity, ct.id)
}
