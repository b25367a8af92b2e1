package model

// Direction selects one sub-link of a link.
type Direction uint8

const (
	// DirRx is the receive sub-link.
	DirRx Direction = iota

	// DirTx is the transmit sub-link.
	DirTx
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirRx:
		return "RX"
	case DirTx:
		return "TX"
	default:
		return "UNKNOWN"
	}
}

// PowerState is the power state of a sub-link.
type PowerState uint8

const (
	// PowerFullBandwidth is the fully powered state.
	PowerFullBandwidth PowerState = iota

	// PowerLowPower is the low-power state.
	PowerLowPower

	// PowerInvalid is reported when the hardware state cannot be decoded.
	PowerInvalid
)

// String returns the state name.
func (s PowerState) String() string {
	switch s {
	case PowerFullBandwidth:
		return "FULL_BANDWIDTH"
	case PowerLowPower:
		return "LOW_POWER"
	default:
		return "INVALID"
	}
}

// SubLinkPower is the power status of one sub-link.
type SubLinkPower struct {
	// HardwareControlled is true if hardware may change the state autonomously.
	HardwareControlled bool `json:"hardware_controlled"`

	// Current is the state the sub-link is in.
	Current PowerState `json:"current"`

	// Configured is the software desired state.
	Configured PowerState `json:"configured"`
}

// PowerStateStatus is the power status of both sub-links of a link.
type PowerStateStatus struct {
	Rx SubLinkPower `json:"rx"`
	Tx SubLinkPower `json:"tx"`
}

// Sublink returns the status for direction d.
func (s PowerStateStatus) Sublink(d Direction) SubLinkPower {
	if d == DirTx {
		return s.Tx
	}
	return s.Rx
}

// LowPowerCounts counts low-power entries and exits of a link.
type LowPowerCounts struct {
	Entries uint64 `json:"entries"`
	Exits   uint64 `json:"exits"`
}

// Add returns the sum of two counts.
func (c LowPowerCounts) Add(o LowPowerCounts) LowPowerCounts {
	return LowPowerCounts{Entries: c.Entries + o.Entries, Exits: c.Exits + o.Exits}
}
