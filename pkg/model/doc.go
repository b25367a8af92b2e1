// Package model defines the link diagnostics data model.
//
// # Link Hierarchy
//
// A device exposes a fixed number of link slots. Each slot is described by
// a Link, created when the topology is discovered and immutable until the
// next discovery:
//
//	Device (gpu0)
//	├── Link 0  (active, 4 lanes, remote: Switch link 12)
//	│   ├── Sub-link RX
//	│   └── Sub-link TX
//	├── Link 1  (valid, inactive)
//	└── ...
//
// Links sharing common control logic form a link group. Some status words and
// power-management controls are group-scoped rather than per-link.
//
// # Counters
//
// Error counters are modeled as a CounterSet keyed by ErrorKind. Counts are
// monotonic between explicit clears; an overflow flag is latched per kind.
//
// # Masks
//
// LinkMask and LaneMask are bit sets used to scope multi-link and multi-lane
// operations.
package model
