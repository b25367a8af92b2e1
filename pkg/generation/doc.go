// Package generation implements the generation capability table.
//
// Each hardware generation is described by a Definition: register selections,
// numeric thresholds, capability bits and encoder functions. A Definition
// names a Fallback generation; any field it leaves unset is forwarded to the
// fallback's profile. Forwarding is explicit and happens per field, so a new
// generation states only what differs from its predecessor:
//
//	nvl2 (root, every field set)
//	└── nvl3        EOM through firmware, async PHY refresh counters
//	    ├── nvl3sw  switch variant: more links, group-scoped status
//	    └── nvl4    PAM4 EOM modes, IOBIST, entangled power counters
//	        └── nvl5  direct-register EOM with lane masks
//
// Resolve returns the Profile of a tag. Tags are fixed at build or
// configuration time, so resolving an unknown tag panics; use Lookup when the
// tag comes from a configuration file.
//
// Lab profiles can be layered on top of the built-in generations from YAML
// (see Table.LoadOverrides).
package generation
