// Package linkerr defines the error taxonomy of the link diagnostics engine.
//
// Every operation returns either nil or an *Error carrying a Kind, the
// operation name, and when applicable the link and the offending value:
//
//	counts, err := dev.GetErrorCounts(ctx, 3)
//	if errors.Is(err, linkerr.Unsupported) {
//	    // capability absent on this generation
//	}
//
// # Kinds
//
//   - InvalidArgument: bad link, lane, mode or value. No side effects.
//   - Unsupported: capability absent for this generation or platform. No side effects.
//   - PrivilegeViolation: register locked by a higher privilege level.
//   - Timeout: a bounded poll never observed the expected condition.
//   - HardwareFault: an internally inconsistent register combination was observed.
//   - TransportFailure: the control channel call failed. The channel error is
//     wrapped unchanged and remains reachable through errors.Is / errors.As.
package linkerr
