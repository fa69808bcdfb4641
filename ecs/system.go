package ecs

import (
	"reflect"
	"slices"
	"weak"

	"github.com/kamstrup/intmap"
	"github.com/rs/zerolog"
)

// System represents a behavior that operates on the entities matching its interest mask.
// User-defined systems embed Base (or IteratingSystem) and override only the hooks
// they need; everything else falls back to the no-op defaults on Base.
type System interface {
	Update(elapsed float64)
	ProcessEntities(entities []Entity, elapsed float64)
	OnRegistered()
	OnBegin()
	OnEnd()
	OnAdded(entity Entity)
	OnRemoved(entity Entity)

	Name() string
	Enabled() bool
	SetEnabled(enabled bool)
	Mask() Mask
	Members() []Entity
	Len() int

	base() *Base
}

type pendingOp struct {
	entity Entity
	remove bool
}

// Base holds the interest mask, the membership list and the lifecycle of a system.
// The zero value is enabled and uses DefaultConfig until attached to a World.
//
// Membership is owned by the World: it calls the unexported add/remove hooks whenever
// an entity's eligibility against the mask flips. Changes requested while
// ProcessEntities is running are queued and applied right after it returns, so the
// slice handed to ProcessEntities is never mutated during a pass.
type Base struct {
	self   System
	name   string
	mask   Mask
	world  weak.Pointer[World]
	logger zerolog.Logger

	members []Entity
	index   *intmap.Map[Entity, int]

	disabled   bool
	attached   bool
	ready      bool
	processing bool
	pending    []pendingOp
}

func (b *Base) init() {
	if b.ready {
		return
	}
	b.ready = true
	b.mask = DefaultConfig().newMask()
	b.index = intmap.New[Entity, int](64)
	b.logger = zerolog.Nop()
}

func (b *Base) base() *Base {
	return b
}

// Bind makes hook calls dispatch on self, the value that embeds b. AddSystem binds
// automatically; call Bind to drive a system's Update without attaching it.
// Panics if self does not embed b.
func (b *Base) Bind(self System) {
	if self == nil || self.base() != b {
		panic("ecs: Bind called with a system that does not embed this Base")
	}
	b.self = self
}

// hooks returns the value hook calls are dispatched on: the bound system, or the
// Base itself when nothing is bound.
func (b *Base) hooks() System {
	if b.self != nil {
		return b.self
	}
	return b
}

// RegisterComponent adds a component id to the interest mask. Registering the same
// id twice has no further effect. Ids outside the mask capacity fail with
// ErrComponentOutOfRange and leave the mask unchanged.
//
// Call it before the system is attached; the World does not re-evaluate membership
// when the mask changes afterwards.
func (b *Base) RegisterComponent(id ComponentID) error {
	b.init()
	if err := b.mask.Set(id); err != nil {
		b.logger.Error().Err(err).Uint32("component", uint32(id)).Msg("failed to register component")
		return err
	}
	return nil
}

// Update runs one frame: OnBegin, ProcessEntities over the members, then OnEnd.
// A disabled system does nothing. The enabled flag is read once per call.
func (b *Base) Update(elapsed float64) {
	if b.disabled {
		return
	}
	b.init()

	self := b.hooks()

	// Left over from a pass that panicked.
	b.flushPending()

	self.OnBegin()
	b.processEntities(self, elapsed)
	b.flushPending()
	self.OnEnd()
}

func (b *Base) processEntities(self System, elapsed float64) {
	b.processing = true
	defer func() { b.processing = false }()

	self.ProcessEntities(b.members, elapsed)
}

// ProcessEntities is the per-frame batch hook. The default does nothing.
// The slice must not be retained past the call.
func (b *Base) ProcessEntities(entities []Entity, elapsed float64) {}

// OnRegistered is called once when the system is attached to a World.
func (b *Base) OnRegistered() {}

// OnBegin is called at the start of every enabled Update.
func (b *Base) OnBegin() {}

// OnEnd is called at the end of every enabled Update.
func (b *Base) OnEnd() {}

// OnAdded is called after an entity joins the membership list.
func (b *Base) OnAdded(entity Entity) {}

// OnRemoved is called after an entity leaves the membership list.
func (b *Base) OnRemoved(entity Entity) {}

// Enabled reports whether Update does any work.
func (b *Base) Enabled() bool {
	return !b.disabled
}

// SetEnabled toggles the system. It takes effect on the next Update.
func (b *Base) SetEnabled(enabled bool) {
	b.disabled = !enabled
}

// World returns the world the system is attached to, or nil when it is not
// attached or the world has been collected.
func (b *Base) World() *World {
	return b.world.Value()
}

// Name returns the system's type name once attached.
func (b *Base) Name() string {
	return b.name
}

// Logger returns the system's logger, tagged with its name once attached.
func (b *Base) Logger() *zerolog.Logger {
	b.init()
	return &b.logger
}

// Mask returns a copy of the interest mask.
func (b *Base) Mask() Mask {
	b.init()
	return b.mask.Clone()
}

// Members returns a copy of the membership list in its current order.
// The order is not stable across removals.
func (b *Base) Members() []Entity {
	return slices.Clone(b.members)
}

// Len returns the number of members.
func (b *Base) Len() int {
	return len(b.members)
}

// Has reports whether entity is a member.
func (b *Base) Has(entity Entity) bool {
	if b.index == nil {
		return false
	}
	_, ok := b.index.Get(entity)
	return ok
}

// Pending returns the number of membership changes waiting for the current pass to end.
func (b *Base) Pending() int {
	return len(b.pending)
}

// member reports whether entity is a member once queued changes are applied.
func (b *Base) member(entity Entity) bool {
	for i := len(b.pending) - 1; i >= 0; i-- {
		if b.pending[i].entity == entity {
			return !b.pending[i].remove
		}
	}
	return b.Has(entity)
}

func (b *Base) addEntity(entity Entity) {
	b.init()
	if b.processing {
		b.pending = append(b.pending, pendingOp{entity: entity})
		return
	}

	if _, ok := b.index.Get(entity); ok {
		return
	}

	b.index.Put(entity, len(b.members))
	b.members = append(b.members, entity)

	b.logger.Trace().Stringer("entity", entity).Msg("entity added")
	b.hooks().OnAdded(entity)
}

func (b *Base) removeEntity(entity Entity) {
	b.init()
	if b.processing {
		b.pending = append(b.pending, pendingOp{entity: entity, remove: true})
		return
	}

	idx, ok := b.index.Get(entity)
	if !ok {
		return
	}

	// Swap-remove: the last member takes the freed slot.
	last := len(b.members) - 1
	moved := b.members[last]
	b.members[idx] = moved
	b.members = b.members[:last]
	b.index.Put(moved, idx)
	b.index.Del(entity)

	b.logger.Trace().Stringer("entity", entity).Msg("entity removed")
	b.hooks().OnRemoved(entity)
}

func (b *Base) flushPending() {
	for len(b.pending) > 0 {
		ops := b.pending
		b.pending = nil
		for _, op := range ops {
			if op.remove {
				b.removeEntity(op.entity)
			} else {
				b.addEntity(op.entity)
			}
		}
	}
}

// attach binds the system to w with the given, already validated, mask.
func (b *Base) attach(w *World, self System, mask Mask) {
	b.Bind(self)
	b.mask = mask
	b.world = weak.Make(w)
	b.name = systemName(self)
	b.logger = w.logger.With().Str("system", b.name).Logger()
	b.attached = true
}

func systemName(system System) string {
	systemType := reflect.TypeOf(system)
	if systemType.Kind() == reflect.Ptr {
		systemType = systemType.Elem()
	}
	return systemType.Name()
}
