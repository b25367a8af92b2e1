// Package metrics exports link diagnostics as Prometheus metrics.
//
// A Collector reads the accumulated error counters and the sub-link power
// state of each registered device on every scrape. Counter values carry
// the cache-over-clear semantics of the device, so they only decrease when
// a device is shut down.
package metrics
