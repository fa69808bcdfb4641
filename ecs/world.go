package ecs

import (
	"iter"
	"reflect"
	"slices"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// World owns entities, their component masks and values, and the ordered list of
// systems. It keeps every system's membership in step with entity masks.
type World struct {
	cfg    Config
	logger zerolog.Logger

	slots []entitySlot
	free  []uint32
	alive int

	components []componentInfo
	typeIDs    map[reflect.Type]ComponentID

	systems  []System
	timers   []*systemTimer
	frames   int64
	commands *Commands
}

// Option configures a World.
type Option func(*World)

// WithLogger sets the logger the world and its systems write to.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *World) {
		w.logger = logger
	}
}

// NewWorld creates an empty world. The configuration is validated first.
func NewWorld(cfg Config, opts ...Option) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	w := &World{
		cfg:      cfg,
		logger:   zerolog.Nop(),
		slots:    make([]entitySlot, 0, cfg.EntityCapacity),
		typeIDs:  make(map[reflect.Type]ComponentID),
		commands: newCommands(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Config returns the configuration the world was built with.
func (w *World) Config() Config {
	return w.cfg
}

// Logger returns the world's logger.
func (w *World) Logger() *zerolog.Logger {
	return &w.logger
}

// Commands returns the buffer flushed at the end of every Update.
func (w *World) Commands() *Commands {
	return w.commands
}

// CreateEntity allocates a new entity with no components.
func (w *World) CreateEntity() Entity {
	var index uint32
	if n := len(w.free); n > 0 {
		index = w.free[n-1]
		w.free = w.free[:n-1]
	} else {
		index = uint32(len(w.slots))
		w.slots = append(w.slots, entitySlot{})
	}

	slot := &w.slots[index]
	slot.generation++
	if slot.generation == 0 {
		slot.generation = 1
	}
	slot.alive = true
	slot.mask = w.cfg.newMask()
	w.alive++

	entity := NewEntity(index, slot.generation)
	w.reconcile(entity)
	return entity
}

// DestroyEntity removes the entity from every system and drops its components.
// Returns false if the entity was not alive.
//
// The entity counts as dead while OnRemoved hooks run, but its component values
// can still be read with Get until the last hook returns.
func (w *World) DestroyEntity(entity Entity) bool {
	slot, ok := w.slot(entity)
	if !ok {
		return false
	}

	before := slot.mask
	slot.mask = Mask{}
	slot.dying = true

	w.reconcile(entity)

	// Hooks may have grown w.slots.
	slot = &w.slots[entity.Index()]
	slot.alive = false
	slot.dying = false
	w.alive--

	for id := range before.IDs() {
		w.components[id].store.remove(entity)
	}
	w.free = append(w.free, entity.Index())
	return true
}

// Alive reports whether the entity exists.
func (w *World) Alive(entity Entity) bool {
	_, ok := w.slot(entity)
	return ok
}

// EntityCount returns the number of live entities.
func (w *World) EntityCount() int {
	return w.alive
}

// Entities yields every live entity in index order.
func (w *World) Entities() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for i := range w.slots {
			slot := &w.slots[i]
			if !slot.alive || slot.dying {
				continue
			}
			if !yield(NewEntity(uint32(i), slot.generation)) {
				return
			}
		}
	}
}

// ComponentMask returns a copy of the entity's component mask.
func (w *World) ComponentMask(entity Entity) (Mask, bool) {
	slot, ok := w.slot(entity)
	if !ok {
		return Mask{}, false
	}
	return slot.mask.Clone(), true
}

// AddComponent gives the entity the component id. Components with data start at
// their zero value. Adding a component the entity already has does nothing.
func (w *World) AddComponent(entity Entity, id ComponentID) error {
	info, err := w.component(id)
	if err != nil {
		return err
	}
	slot, ok := w.slot(entity)
	if !ok {
		return eris.Wrapf(ErrDeadEntity, "add component %s to %s", info.name, entity)
	}
	if slot.mask.Has(id) {
		return nil
	}

	info.store.addZero(entity)
	return w.markComponent(entity, id)
}

// RemoveComponent takes the component id away from the entity.
// Returns false if the entity is not alive or does not have it.
func (w *World) RemoveComponent(entity Entity, id ComponentID) bool {
	info, err := w.component(id)
	if err != nil {
		return false
	}
	slot, ok := w.slot(entity)
	if !ok || !slot.mask.Has(id) {
		return false
	}

	_ = slot.mask.Clear(id)
	w.reconcile(entity)

	// Hooks may have put the component back.
	if slot, ok := w.slot(entity); !ok || !slot.mask.Has(id) {
		info.store.remove(entity)
	}
	return true
}

// AddSystem attaches a system, registers the given component ids on its interest
// mask, calls OnRegistered and then adds every entity that already matches.
// An id outside the configured capacity is a configuration error: the system is
// left unattached.
func (w *World) AddSystem(system System, components ...ComponentID) error {
	if system == nil {
		panic("cannot add nil system")
	}

	b := system.base()
	b.init()
	if b.attached {
		return eris.Wrapf(ErrSystemAlreadyRegistered, "system %s", systemName(system))
	}

	mask, err := b.mask.resized(w.cfg.MaxComponents, w.cfg.FastMaskThreshold)
	if err == nil {
		for _, id := range components {
			if err = mask.Set(id); err != nil {
				break
			}
		}
	}
	if err != nil {
		w.logger.Error().Err(err).Str("system", systemName(system)).Msg("failed to attach system")
		return eris.Wrapf(err, "failed to attach system %s", systemName(system))
	}

	b.attach(w, system, mask)
	w.systems = append(w.systems, system)
	w.timers = append(w.timers, &systemTimer{name: b.name})

	b.logger.Debug().Stringer("mask", mask).Msg("system registered")
	system.OnRegistered()

	for i := range w.slots {
		slot := &w.slots[i]
		if slot.alive && !slot.dying && slot.mask.Contains(b.mask) {
			b.addEntity(NewEntity(uint32(i), slot.generation))
		}
	}
	return nil
}

// Systems returns the attached systems in update order.
func (w *World) Systems() []System {
	return slices.Clone(w.systems)
}

func (w *World) slot(entity Entity) (*entitySlot, bool) {
	slot, ok := w.lookup(entity)
	if !ok || slot.dying {
		return nil, false
	}
	return slot, true
}

// lookup is slot without the dying check, for reads during DestroyEntity.
func (w *World) lookup(entity Entity) (*entitySlot, bool) {
	index := entity.Index()
	if int(index) >= len(w.slots) {
		return nil, false
	}
	slot := &w.slots[index]
	if !slot.alive || slot.generation != entity.Generation() {
		return nil, false
	}
	return slot, true
}

// markComponent sets id on the entity's mask and updates memberships.
func (w *World) markComponent(entity Entity, id ComponentID) error {
	slot, ok := w.slot(entity)
	if !ok {
		return eris.Wrapf(ErrDeadEntity, "entity %s", entity)
	}
	if slot.mask.Has(id) {
		return nil
	}

	if err := slot.mask.Set(id); err != nil {
		return err
	}
	w.reconcile(entity)
	return nil
}

// reconcile brings every system's membership of entity in line with the entity's
// current mask. Hooks may change the mask again; each system is checked against
// the state left by the hooks that ran before it.
func (w *World) reconcile(entity Entity) {
	for _, system := range w.systems {
		b := system.base()
		slot, ok := w.slot(entity)
		now := ok && slot.mask.Contains(b.mask)
		was := b.member(entity)

		switch {
		case now && !was:
			b.addEntity(entity)
		case was && !now:
			b.removeEntity(entity)
		}
	}
}
