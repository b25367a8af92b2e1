package model

import "fmt"

// LinkID identifies a link slot on a device.
type LinkID uint32

// GroupID identifies a link group.
type GroupID uint32

// LinkState is the training state reported for a link.
type LinkState uint8

const (
	// LinkStateOff indicates the link is powered down or not trained.
	LinkStateOff LinkState = iota

	// LinkStateSafe indicates the link completed safe-mode training only.
	LinkStateSafe

	// LinkStateActive indicates the link is trained to high speed.
	LinkStateActive

	// LinkStateRecovery indicates the link is in error recovery.
	LinkStateRecovery

	// LinkStateFault indicates the link reported a fatal error.
	LinkStateFault
)

// String returns the state name.
func (s LinkState) String() string {
	switch s {
	case LinkStateOff:
		return "OFF"
	case LinkStateSafe:
		return "SAFE"
	case LinkStateActive:
		return "ACTIVE"
	case LinkStateRecovery:
		return "RECOVERY"
	case LinkStateFault:
		return "FAULT"
	default:
		return "UNKNOWN"
	}
}

// RemoteType identifies the kind of device at the far end of a link.
type RemoteType uint8

const (
	// RemoteNone indicates nothing is connected.
	RemoteNone RemoteType = iota

	// RemoteGPU indicates a peer GPU.
	RemoteGPU

	// RemoteSwitch indicates a fabric switch.
	RemoteSwitch

	// RemoteBridge indicates a bridge device.
	RemoteBridge

	// RemoteLoopback indicates the link is looped back to the same device.
	RemoteLoopback
)

// String returns the remote type name.
func (t RemoteType) String() string {
	switch t {
	case RemoteNone:
		return "NONE"
	case RemoteGPU:
		return "GPU"
	case RemoteSwitch:
		return "SWITCH"
	case RemoteBridge:
		return "BRIDGE"
	case RemoteLoopback:
		return "LOOPBACK"
	default:
		return "UNKNOWN"
	}
}

// Valid returns true if t is a known remote type.
func (t RemoteType) Valid() bool {
	return t <= RemoteLoopback
}

// RemoteEndpoint describes the device at the far end of a link.
type RemoteEndpoint struct {
	Type     RemoteType `json:"type" yaml:"type"`
	Domain   uint32     `json:"domain" yaml:"domain"`
	Bus      uint32     `json:"bus" yaml:"bus"`
	Device   uint32     `json:"device" yaml:"device"`
	Function uint32     `json:"function" yaml:"function"`
	LinkID   LinkID     `json:"link_id" yaml:"linkId"`
}

// String returns the remote endpoint in domain:bus:device.function form.
func (r RemoteEndpoint) String() string {
	if r.Type == RemoteNone {
		return "none"
	}
	return fmt.Sprintf("%s %04x:%02x:%02x.%x link %d",
		r.Type, r.Domain, r.Bus, r.Device, r.Function, r.LinkID)
}

// Link describes one link slot as discovered from firmware.
type Link struct {
	// ID is the link slot index.
	ID LinkID `json:"id"`

	// Valid is true if the link slot exists on this device.
	Valid bool `json:"valid"`

	// Active is true if the link is trained to high speed.
	Active bool `json:"active"`

	// State is the raw training state.
	State LinkState `json:"state"`

	// Version is the link protocol version.
	Version uint32 `json:"version"`

	// SublinkWidth is the number of lanes per sub-link.
	SublinkWidth uint32 `json:"sublink_width"`

	// LineRateMbps is the per-lane line rate.
	LineRateMbps uint32 `json:"line_rate_mbps"`

	// LinkClockMHz is the link clock used to derive dwell times.
	LinkClockMHz uint32 `json:"link_clock_mhz"`

	// AcCoupled is true if the link is AC-coupled.
	AcCoupled bool `json:"ac_coupled"`

	// Group is the link group the link belongs to.
	Group GroupID `json:"group"`

	// Remote describes the far end of the link.
	Remote RemoteEndpoint `json:"remote"`
}

// BitsPerSecond returns the aggregate raw bit rate of one sub-link.
func (l Link) BitsPerSecond() float64 {
	return float64(l.LineRateMbps) * 1e6 * float64(l.SublinkWidth)
}
