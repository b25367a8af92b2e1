// Package fleet runs diagnostics across several devices at once.
//
// Devices are independent: each has its own mutex, so a Fleet fans work
// out with one goroutine per device and a configurable concurrency limit.
// Within a device every operation is still serialized by the device.
package fleet
