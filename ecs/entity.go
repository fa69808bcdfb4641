package ecs

import "strconv"

// Entity encodes both the generation (upper 32 bits) and the slot index (lower 32 bits)
type Entity uint64

// NewEntity creates an Entity from a slot index and generation
func NewEntity(index uint32, generation uint32) Entity {
	return Entity(uint64(generation)<<32 | uint64(index))
}

// Index extracts the slot index from the entity
func (e Entity) Index() uint32 {
	return uint32(e & 0xFFFFFFFF)
}

// Generation extracts the generation from the entity
func (e Entity) Generation() uint32 {
	return uint32(e >> 32)
}

// Valid reports whether the entity could have been issued by a World.
// Generations start at 1, so the zero Entity is never valid.
func (e Entity) Valid() bool {
	return e.Generation() != 0
}

func (e Entity) String() string {
	return strconv.FormatUint(uint64(e.Index()), 10) + "v" + strconv.FormatUint(uint64(e.Generation()), 10)
}

// entitySlot is the world's bookkeeping for one entity index.
type entitySlot struct {
	generation uint32
	alive      bool
	dying      bool
	mask       Mask
}
