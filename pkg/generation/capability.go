package generation

import (
	"fmt"
	"strings"
)

// Capability is a bit set of optional generation features.
type Capability uint32

const (
	// CapPowerState indicates sub-link power-state control.
	CapPowerState Capability = 1 << iota

	// CapLowPower indicates the low-power sub-link state is available.
	CapLowPower

	// CapPowerToggle indicates forced periodic power-state toggling for test.
	CapPowerToggle

	// CapEom indicates the Eye-Opening-Monitor is available.
	CapEom

	// CapEomViaFirmware indicates EOM configuration is routed through firmware.
	CapEomViaFirmware

	// CapEomLaneMask indicates lanes are selected by mask rather than index.
	CapEomLaneMask

	// CapIobist indicates the loopback self-test is available.
	CapIobist

	// CapAsyncPhyRefresh indicates PHY refresh counters are refreshed by firmware
	// and must be queried separately.
	CapAsyncPhyRefresh

	// CapEntangledPowerCounters indicates the error counter clear also clears
	// the low-power entry/exit counters, and vice versa.
	CapEntangledPowerCounters

	// CapCombinedPowerWrite indicates the desired-state and hardware-disable
	// fields must be written in one register write (idle counter erratum).
	CapCombinedPowerWrite

	// CapEccCounters indicates per-lane ECC counters.
	CapEccCounters
)

var capabilityNames = []struct {
	c    Capability
	name string
}{
	{CapPowerState, "powerState"},
	{CapLowPower, "lowPower"},
	{CapPowerToggle, "powerToggle"},
	{CapEom, "eom"},
	{CapEomViaFirmware, "eomViaFirmware"},
	{CapEomLaneMask, "eomLaneMask"},
	{CapIobist, "iobist"},
	{CapAsyncPhyRefresh, "asyncPhyRefresh"},
	{CapEntangledPowerCounters, "entangledPowerCounters"},
	{CapCombinedPowerWrite, "combinedPowerWrite"},
	{CapEccCounters, "eccCounters"},
}

// Has returns true if every capability in o is present.
func (c Capability) Has(o Capability) bool {
	return c&o == o
}

// String returns the capability names joined by "|".
func (c Capability) String() string {
	var names []string
	for _, n := range capabilityNames {
		if c.Has(n.c) {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// ParseCapability returns the capability with the given name.
func ParseCapability(s string) (Capability, error) {
	for _, n := range capabilityNames {
		if strings.EqualFold(n.name, s) {
			return n.c, nil
		}
	}
	return 0, fmt.Errorf("unknown capability %q", s)
}
