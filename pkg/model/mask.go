package model

import (
	"fmt"
	"math/bits"
)

// LinkMask is a bit set of link IDs.
type LinkMask uint64

// MaxLinkMaskBits is the largest number of links a LinkMask can address.
const MaxLinkMaskBits = 64

// MaskOf returns a mask with the given links set.
func MaskOf(ids ...LinkID) LinkMask {
	var m LinkMask
	for _, id := range ids {
		m = m.Set(id)
	}
	return m
}

// Has returns true if link id is in the mask.
func (m LinkMask) Has(id LinkID) bool {
	return id < MaxLinkMaskBits && m&(1<<id) != 0
}

// Set returns the mask with link id added.
func (m LinkMask) Set(id LinkID) LinkMask {
	if id >= MaxLinkMaskBits {
		return m
	}
	return m | 1<<id
}

// Clear returns the mask with link id removed.
func (m LinkMask) Clear(id LinkID) LinkMask {
	if id >= MaxLinkMaskBits {
		return m
	}
	return m &^ (1 << id)
}

// Count returns the number of links in the mask.
func (m LinkMask) Count() int {
	return bits.OnesCount64(uint64(m))
}

// Empty returns true if no links are set.
func (m LinkMask) Empty() bool {
	return m == 0
}

// ForEach calls f for every link in ascending order.
func (m LinkMask) ForEach(f func(id LinkID)) {
	for v := uint64(m); v != 0; v &= v - 1 {
		f(LinkID(bits.TrailingZeros64(v)))
	}
}

// Links returns the links in ascending order.
func (m LinkMask) Links() []LinkID {
	ids := make([]LinkID, 0, m.Count())
	m.ForEach(func(id LinkID) { ids = append(ids, id) })
	return ids
}

// String returns the mask in hex.
func (m LinkMask) String() string {
	return fmt.Sprintf("0x%x", uint64(m))
}

// LaneMask is a bit set of lanes within a link.
type LaneMask uint32

// LaneRange returns a mask with lanes [first, first+n) set.
func LaneRange(first, n uint32) LaneMask {
	if n == 0 || first >= 32 {
		return 0
	}
	if first+n >= 32 {
		return LaneMask(^uint32(0) << first)
	}
	return LaneMask(((uint32(1) << n) - 1) << first)
}

// Has returns true if lane is set.
func (m LaneMask) Has(lane uint32) bool {
	return lane < 32 && m&(1<<lane) != 0
}

// Count returns the number of lanes set.
func (m LaneMask) Count() int {
	return bits.OnesCount32(uint32(m))
}

// FirstLane returns the lowest lane set, or 32 for an empty mask.
func (m LaneMask) FirstLane() uint32 {
	return uint32(bits.TrailingZeros32(uint32(m)))
}

// ForEach calls f for every lane in ascending order.
func (m LaneMask) ForEach(f func(lane uint32)) {
	for v := uint32(m); v != 0; v &= v - 1 {
		f(uint32(bits.TrailingZeros32(v)))
	}
}
