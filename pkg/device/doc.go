// Package device provides the per-device diagnostics context.
//
// A Device owns everything that lives between Initialize and Shutdown:
// the discovered topology, the error counter accumulator and the
// capability-gated components. All components share one mutex, so
// multi-write sequences such as the EOM protocol or a combined power
// write are serialized per device. Different devices are independent.
//
// Components a generation lacks are absent from the capability set; their
// accessors and the corresponding caller API methods return an
// Unsupported error.
package device
