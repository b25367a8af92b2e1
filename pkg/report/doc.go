// Package report persists diagnostic sweep snapshots.
//
// A Snapshot captures, per device and link, what a sweep observed: the
// accumulated error counters, threshold violations, power status, eye
// measurement codes and self-test failures. Snapshots are stored as JSON
// so they can be compared across runs.
package report
