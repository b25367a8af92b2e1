package model

import "time"

// IobistType selects when the loopback self-test runs.
type IobistType uint8

const (
	// IobistOff disables the self-test.
	IobistOff IobistType = iota

	// IobistPreTrain runs the self-test before link training.
	IobistPreTrain

	// IobistPostTrain runs the self-test after link training.
	IobistPostTrain
)

// String returns the type name.
func (t IobistType) String() string {
	switch t {
	case IobistOff:
		return "OFF"
	case IobistPreTrain:
		return "PRE_TRAIN"
	case IobistPostTrain:
		return "POST_TRAIN"
	default:
		return "UNKNOWN"
	}
}

// IobistTime selects the self-test duration.
type IobistTime uint8

const (
	// IobistTime20us runs for 20 microseconds.
	IobistTime20us IobistTime = iota

	// IobistTime800us runs for 800 microseconds.
	IobistTime800us

	// IobistTime1s runs for one second. Requires an AC-coupled link.
	IobistTime1s

	// IobistTime10s runs for ten seconds. Requires an AC-coupled link.
	IobistTime10s

	// IobistTimeDefault leaves the hardware default duration.
	IobistTimeDefault
)

// String returns the duration name.
func (t IobistTime) String() string {
	switch t {
	case IobistTime20us:
		return "20us"
	case IobistTime800us:
		return "800us"
	case IobistTime1s:
		return "1s"
	case IobistTime10s:
		return "10s"
	case IobistTimeDefault:
		return "DEFAULT"
	default:
		return "UNKNOWN"
	}
}

// Duration returns the nominal duration, or zero for IobistTimeDefault.
func (t IobistTime) Duration() time.Duration {
	switch t {
	case IobistTime20us:
		return 20 * time.Microsecond
	case IobistTime800us:
		return 800 * time.Microsecond
	case IobistTime1s:
		return time.Second
	case IobistTime10s:
		return 10 * time.Second
	default:
		return 0
	}
}

// RequiresAcCoupling returns true for durations only allowed on AC-coupled links.
func (t IobistTime) RequiresAcCoupling() bool {
	return t == IobistTime1s || t == IobistTime10s
}

// IobistFlagKind identifies a self-test failure condition.
type IobistFlagKind uint8

const (
	// IobistAlignDone is reported when bit alignment did not complete.
	IobistAlignDone IobistFlagKind = iota

	// IobistAlignLock is reported when bit alignment did not lock.
	IobistAlignLock

	// IobistScramLock is reported when the scrambler did not lock.
	IobistScramLock
)

// String returns the flag name.
func (k IobistFlagKind) String() string {
	switch k {
	case IobistAlignDone:
		return "ALIGN_DONE"
	case IobistAlignLock:
		return "ALIGN_LOCK"
	case IobistScramLock:
		return "SCRAM_LOCK"
	default:
		return "UNKNOWN"
	}
}

// IobistFlag is a self-test failure on one link.
type IobistFlag struct {
	Link LinkID         `json:"link"`
	Kind IobistFlagKind `json:"kind"`
}
