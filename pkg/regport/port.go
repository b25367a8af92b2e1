package regport

import (
	"fmt"

	"github.com/linkval/nvldiag/pkg/model"
)

// None marks an unused Index coordinate.
const None = -1

// Index selects a register instance.
type Index struct {
	Link  int
	Lane  int
	Group int
}

// Global is the index of a device-wide register.
var Global = Index{Link: None, Lane: None, Group: None}

// Link returns the index of a per-link register.
func Link(id model.LinkID) Index {
	return Index{Link: int(id), Lane: None, Group: None}
}

// Lane returns the index of a per-lane register.
func Lane(id model.LinkID, lane uint32) Index {
	return Index{Link: int(id), Lane: int(lane), Group: None}
}

// Group returns the index of a per-link-group register.
func Group(id model.GroupID) Index {
	return Index{Link: None, Lane: None, Group: int(id)}
}

// String returns a compact representation of the index.
func (i Index) String() string {
	switch {
	case i.Group != None:
		return fmt.Sprintf("group%d", i.Group)
	case i.Lane != None:
		return fmt.Sprintf("link%d.lane%d", i.Link, i.Lane)
	case i.Link != None:
		return fmt.Sprintf("link%d", i.Link)
	default:
		return "global"
	}
}

// PrivLevel is the privilege level register accesses execute at.
type PrivLevel uint8

const (
	// PrivLevel0 is the unprivileged level.
	PrivLevel0 PrivLevel = iota
	PrivLevel1
	PrivLevel2

	// PrivLevel3 is the highest level.
	PrivLevel3
)

// Port is named-register read/write access to one device.
// Implementations are not required to be safe for concurrent use.
type Port interface {
	// Read returns the value of register reg at idx.
	Read(reg string, idx Index) (uint32, error)

	// Write stores value into register reg at idx.
	Write(reg string, idx Index, value uint32) error

	// Test reads the register holding the named field value and reports
	// whether the field currently equals it.
	Test(value string, idx Index) (bool, error)

	// GetField extracts a named field from a register word.
	GetField(word uint32, field string) uint32

	// SetField returns word with the named field replaced by value.
	SetField(word uint32, field string, value uint32) uint32

	// HasReadAccess reports whether reg at idx is readable at the current level.
	HasReadAccess(reg string, idx Index) bool

	// HasWriteAccess reports whether reg at idx is writable at the current level.
	HasWriteAccess(reg string, idx Index) bool

	// PrivLevel returns the level accesses execute at.
	PrivLevel() PrivLevel
}

// Modify performs a read-modify-write of reg at idx.
func Modify(p Port, reg string, idx Index, f func(w uint32) uint32) error {
	w, err := p.Read(reg, idx)
	if err != nil {
		return err
	}
	return p.Write(reg, idx, f(w))
}

// ReadField reads reg at idx and extracts field.
func ReadField(p Port, reg string, idx Index, field string) (uint32, error) {
	w, err := p.Read(reg, idx)
	if err != nil {
		return 0, err
	}
	return p.GetField(w, field), nil
}
