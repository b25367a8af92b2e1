// Package counters implements the per-link error counter store.
//
// Hardware counters are read through the control channel and added to a
// per-link accumulator. The accumulator holds values a hardware clear would
// otherwise destroy:
//
//   - error counters snapshotted before an entangled low-power counter clear
//   - low-power entry/exit counts snapshotted before an error counter clear
//     on generations where the two share one clear operation
//   - the running tally of the clear-on-read recovery counter
//
// The logical value of a counter is the live hardware value plus the
// accumulator until the caller resets it with ClearHwErrorCounts.
package counters
