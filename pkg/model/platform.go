package model

import (
	"fmt"
	"strings"
)

// Platform describes what executes the register accesses.
type Platform uint8

const (
	// PlatformHardware is real silicon.
	PlatformHardware Platform = iota

	// PlatformSimulator is a functional model whose diagnostic registers are
	// not implemented.
	PlatformSimulator
)

// String returns the platform name.
func (p Platform) String() string {
	switch p {
	case PlatformHardware:
		return "hardware"
	case PlatformSimulator:
		return "simulator"
	default:
		return "unknown"
	}
}

// RegisterAccurate returns true if diagnostic registers behave like silicon.
func (p Platform) RegisterAccurate() bool {
	return p == PlatformHardware
}

// ParsePlatform parses a platform name.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(s) {
	case "", "hardware", "hw":
		return PlatformHardware, nil
	case "simulator", "sim":
		return PlatformSimulator, nil
	default:
		return 0, fmt.Errorf("unknown platform %q", s)
	}
}
