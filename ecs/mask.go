package ecs

import (
	"iter"
	"math/bits"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"github.com/rotisserie/eris"
)

// ComponentID identifies a component type within a World.
type ComponentID uint32

// Mask is a set of component ids bounded by a fixed capacity.
// Small masks are kept in a single machine word, larger ones in a growable
// word array; both behave identically.
type Mask struct {
	capacity uint
	word     uint64
	large    *bitset.BitSet
}

// NewMask creates an empty mask that accepts ids in [0, capacity).
// The inline word is used when capacity <= threshold.
func NewMask(capacity, threshold uint) Mask {
	if threshold > maxFastMaskThreshold {
		threshold = maxFastMaskThreshold
	}
	if capacity <= threshold {
		return Mask{capacity: capacity}
	}
	return Mask{capacity: capacity, large: bitset.New(capacity)}
}

// Capacity returns the number of ids the mask accepts.
func (m Mask) Capacity() uint {
	return m.capacity
}

// Set adds id to the mask. Setting an id twice has no further effect.
// Ids outside the capacity return ErrComponentOutOfRange and leave the mask unchanged.
func (m *Mask) Set(id ComponentID) error {
	if uint(id) >= m.capacity {
		return eris.Wrapf(ErrComponentOutOfRange, "component %d, capacity %d", id, m.capacity)
	}
	if m.large != nil {
		m.large.Set(uint(id))
		return nil
	}
	m.word |= 1 << id
	return nil
}

// Clear removes id from the mask.
func (m *Mask) Clear(id ComponentID) error {
	if uint(id) >= m.capacity {
		return eris.Wrapf(ErrComponentOutOfRange, "component %d, capacity %d", id, m.capacity)
	}
	if m.large != nil {
		m.large.Clear(uint(id))
		return nil
	}
	m.word &^= 1 << id
	return nil
}

// Has reports whether id is in the mask.
func (m Mask) Has(id ComponentID) bool {
	if uint(id) >= m.capacity {
		return false
	}
	if m.large != nil {
		return m.large.Test(uint(id))
	}
	return m.word&(1<<id) != 0
}

// Contains reports whether every id of other is also in m,
// i.e. (m & other) == other.
func (m Mask) Contains(other Mask) bool {
	if m.large == nil && other.large == nil {
		return m.word&other.word == other.word
	}
	if m.large != nil && other.large != nil {
		return m.large.IsSuperSet(other.large)
	}
	for id := range other.IDs() {
		if !m.Has(id) {
			return false
		}
	}
	return true
}

// Empty reports whether no id is set.
func (m Mask) Empty() bool {
	return m.Count() == 0
}

// Count returns the number of ids set.
func (m Mask) Count() uint {
	if m.large != nil {
		return m.large.Count()
	}
	return uint(bits.OnesCount64(m.word))
}

// Equal reports whether both masks hold the same ids.
func (m Mask) Equal(other Mask) bool {
	return m.Count() == other.Count() && m.Contains(other)
}

// Clone returns an independent copy of the mask.
func (m Mask) Clone() Mask {
	if m.large != nil {
		m.large = m.large.Clone()
	}
	return m
}

// IDs iterates the set ids in ascending order.
func (m Mask) IDs() iter.Seq[ComponentID] {
	return func(yield func(ComponentID) bool) {
		if m.large != nil {
			for i, ok := m.large.NextSet(0); ok; i, ok = m.large.NextSet(i + 1) {
				if !yield(ComponentID(i)) {
					return
				}
			}
			return
		}

		word := m.word
		for word != 0 {
			pos := bits.TrailingZeros64(word)
			if !yield(ComponentID(pos)) {
				return
			}
			word &^= 1 << pos
		}
	}
}

// resized copies the mask into a new one of the given capacity.
// Fails if a set id does not fit the new capacity.
func (m Mask) resized(capacity, threshold uint) (Mask, error) {
	out := NewMask(capacity, threshold)
	for id := range m.IDs() {
		if err := out.Set(id); err != nil {
			return m, err
		}
	}
	return out, nil
}

func (m Mask) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	for id := range m.IDs() {
		if !first {
			sb.WriteByte(',')
		}
		first = false
		sb.WriteString(strconv.FormatUint(uint64(id), 10))
	}
	sb.WriteByte('}')
	return sb.String()
}
