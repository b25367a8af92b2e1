// Package regport defines the register access primitive consumed by the
// diagnostics components.
//
// Registers are addressed by name and an Index selecting the link, lane or
// link group instance. Named fields and named field values decouple the
// components from bit positions, which differ per generation and are owned
// by the Port implementation:
//
//	w, err := port.Read("EOM_CTRL", regport.Link(3))
//	w = port.SetField(w, "EOM_CTRL_EN", 1)
//	err = port.Write("EOM_CTRL", regport.Link(3), w)
//	done, err := port.Test("EOM_STATUS_DONE_TRUE", regport.Link(3))
//
// File is an in-memory Port backed by a Layout. It records every access and
// accepts read and write hooks, which makes it the building block of
// simulated devices and spy ports in tests.
package regport
