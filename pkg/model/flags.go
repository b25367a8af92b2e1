package model

import "sort"

// FlagScope selects whether a status block is per-link or per-link-group.
type FlagScope uint8

const (
	// ScopeLink blocks have one status word per link.
	ScopeLink FlagScope = iota

	// ScopeGroup blocks have one status word per link group.
	ScopeGroup
)

// String returns the scope name.
func (s FlagScope) String() string {
	if s == ScopeGroup {
		return "GROUP"
	}
	return "LINK"
}

// FlagRule maps a bit field of a status block to a symbolic flag.
type FlagRule struct {
	// Block is the register holding the status word.
	Block string

	// Scope selects link or link-group addressing of Block.
	Scope FlagScope

	// Mask selects the bits of the status word. The flag is raised when
	// any masked bit is set.
	Mask uint32

	// Name is the human-readable flag name.
	Name string

	// SelfClearing is true if the hardware clears the bits when read.
	SelfClearing bool
}

// FlagTable is a declarative list of flag rules.
type FlagTable []FlagRule

// Blocks returns the distinct blocks of the given scope, in table order.
func (t FlagTable) Blocks(scope FlagScope) []string {
	var blocks []string
	seen := make(map[string]bool)
	for _, r := range t {
		if r.Scope != scope || seen[r.Block] {
			continue
		}
		seen[r.Block] = true
		blocks = append(blocks, r.Block)
	}
	return blocks
}

// RawStatus holds raw status words read from hardware, keyed by block name.
type RawStatus struct {
	Links  map[LinkID]map[string]uint32
	Groups map[GroupID]map[string]uint32
}

// NewRawStatus returns an empty RawStatus.
func NewRawStatus() RawStatus {
	return RawStatus{
		Links:  make(map[LinkID]map[string]uint32),
		Groups: make(map[GroupID]map[string]uint32),
	}
}

// SetLink records a per-link status word.
func (r RawStatus) SetLink(id LinkID, block string, v uint32) {
	if r.Links[id] == nil {
		r.Links[id] = make(map[string]uint32)
	}
	r.Links[id][block] = v
}

// SetGroup records a per-group status word.
func (r RawStatus) SetGroup(id GroupID, block string, v uint32) {
	if r.Groups[id] == nil {
		r.Groups[id] = make(map[string]uint32)
	}
	r.Groups[id][block] = v
}

// ErrorFlagSet holds decoded flags keyed per link and per link group.
// Flag names within each entry are sorted.
type ErrorFlagSet struct {
	Links  map[LinkID][]string  `json:"links,omitempty"`
	Groups map[GroupID][]string `json:"groups,omitempty"`
}

// NewErrorFlagSet returns an empty flag set.
func NewErrorFlagSet() ErrorFlagSet {
	return ErrorFlagSet{
		Links:  make(map[LinkID][]string),
		Groups: make(map[GroupID][]string),
	}
}

// Empty returns true if no flags are set.
func (s ErrorFlagSet) Empty() bool {
	return len(s.Links) == 0 && len(s.Groups) == 0
}

// HasLinkFlag returns true if flag is set on link id.
func (s ErrorFlagSet) HasLinkFlag(id LinkID, flag string) bool {
	return contains(s.Links[id], flag)
}

// HasGroupFlag returns true if flag is set on group id.
func (s ErrorFlagSet) HasGroupFlag(id GroupID, flag string) bool {
	return contains(s.Groups[id], flag)
}

// AddLink adds a flag to link id.
func (s ErrorFlagSet) AddLink(id LinkID, flag string) {
	s.Links[id] = insertSorted(s.Links[id], flag)
}

// AddGroup adds a flag to group id.
func (s ErrorFlagSet) AddGroup(id GroupID, flag string) {
	s.Groups[id] = insertSorted(s.Groups[id], flag)
}

func contains(flags []string, flag string) bool {
	i := sort.SearchStrings(flags, flag)
	return i < len(flags) && flags[i] == flag
}

func insertSorted(flags []string, flag string) []string {
	i := sort.SearchStrings(flags, flag)
	if i < len(flags) && flags[i] == flag {
		return flags
	}
	flags = append(flags, "")
	copy(flags[i+1:], flags[i:])
	flags[i] = flag
	return flags
}
