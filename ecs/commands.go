package ecs

// Commands provides a buffer for deferred world operations that are executed at the end of a frame.
// Systems use it for structural changes that should only become visible to the next frame.
type Commands struct {
	destroys []Entity
	removes  []componentCommand
	adds     []componentCommand
	defers   []func()
}

type componentCommand struct {
	entity Entity
	id     ComponentID
}

func newCommands() *Commands {
	return &Commands{}
}

// Defer queues a function execution operation.
func (c *Commands) Defer(fn func()) {
	c.defers = append(c.defers, fn)
}

// Destroy queues an entity destruction.
func (c *Commands) Destroy(entity Entity) {
	c.destroys = append(c.destroys, entity)
}

// AddComponent queues a component addition.
func (c *Commands) AddComponent(entity Entity, id ComponentID) {
	c.adds = append(c.adds, componentCommand{entity: entity, id: id})
}

// RemoveComponent queues a component removal.
func (c *Commands) RemoveComponent(entity Entity, id ComponentID) {
	c.removes = append(c.removes, componentCommand{entity: entity, id: id})
}

// Len returns the number of queued operations.
func (c *Commands) Len() int {
	return len(c.destroys) + len(c.removes) + len(c.adds) + len(c.defers)
}

// Flush applies all commands to the world, resetting the buffer state.
// Destroys run first; later operations on a destroyed entity are dropped.
// Commands queued while flushing, by hooks or deferred functions, are applied
// by the same Flush in a further round.
func (c *Commands) Flush(w *World) {
	destroyed := make(map[Entity]bool, len(c.destroys))

	for c.Len() > 0 {
		ops := *c
		*c = Commands{}

		for _, entity := range ops.destroys {
			w.DestroyEntity(entity)
			destroyed[entity] = true
		}

		for _, cmd := range ops.removes {
			if !destroyed[cmd.entity] {
				w.RemoveComponent(cmd.entity, cmd.id)
			}
		}

		for _, cmd := range ops.adds {
			if destroyed[cmd.entity] {
				continue
			}
			if err := w.AddComponent(cmd.entity, cmd.id); err != nil {
				w.logger.Warn().Err(err).Stringer("entity", cmd.entity).Msg("dropped deferred component add")
			}
		}

		for _, fn := range ops.defers {
			fn()
		}
	}
}
