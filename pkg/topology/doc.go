// Package topology discovers the link set of a device.
//
// The topology is built from the control channel's link mask and per-link
// status. It is immutable until the next Discover, and every other
// component validates link ids against it.
package topology
