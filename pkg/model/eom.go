package model

import (
	"fmt"
	"strings"
)

// EomMode selects the eye measurement variant (figure of merit).
type EomMode uint8

const (
	// EomModeX measures horizontal eye opening.
	EomModeX EomMode = iota

	// EomModeXL measures the low half of the horizontal eye.
	EomModeXL

	// EomModeXH measures the high half of the horizontal eye.
	EomModeXH

	// EomModeY measures vertical eye opening.
	EomModeY

	// EomModeYU measures the upper eye (PAM4).
	EomModeYU

	// EomModeYM measures the middle eye (PAM4).
	EomModeYM

	// EomModeYL measures the lower eye (PAM4).
	EomModeYL
)

var eomModeNames = [...]string{
	EomModeX:  "X",
	EomModeXL: "XL",
	EomModeXH: "XH",
	EomModeY:  "Y",
	EomModeYU: "YU",
	EomModeYM: "YM",
	EomModeYL: "YL",
}

// String returns the mode name.
func (m EomMode) String() string {
	if int(m) < len(eomModeNames) {
		return eomModeNames[m]
	}
	return fmt.Sprintf("EOM_MODE(%d)", uint8(m))
}

// ParseEomMode parses a mode name (case-insensitive).
func ParseEomMode(s string) (EomMode, error) {
	for m, name := range eomModeNames {
		if strings.EqualFold(name, s) {
			return EomMode(m), nil
		}
	}
	return 0, fmt.Errorf("unknown EOM mode %q", s)
}

// EomSettings is a fully resolved EOM configuration.
type EomSettings struct {
	Mode      EomMode
	NumErrors uint32
	NumBlocks uint32

	// Encoded is the generation-specific configuration word.
	Encoded uint32
}

// EomResult holds one status byte per requested lane, in lane order.
type EomResult []uint8
