package generation

import "github.com/linkval/nvldiag/pkg/model"

// EomRegs selects the registers driving the Eye-Opening-Monitor.
type EomRegs struct {
	// Config holds the encoded configuration word on generations that do not
	// route EOM setup through firmware.
	Config      string
	ConfigField string

	// Control holds the enable and override-enable fields (per link).
	Control       string
	EnableField   string
	OverrideField string

	// Status holds the done field (per link). DoneSet and DoneClear are the
	// named values of DoneField tested while polling.
	Status    string
	DoneField string
	DoneSet   string
	DoneClear string

	// LaneSelect chooses the lane whose result LaneData returns.
	LaneSelect      string
	LaneSelectField string

	// LaneData holds the per-lane result of the selected lane.
	LaneData  string
	DataField string
}

// PowerRegs selects the registers of the sub-link power-state controller.
type PowerRegs struct {
	// Control holds the software desired state of each sub-link.
	Control        string
	RxDesiredField string
	TxDesiredField string

	// Disable holds the hardware-disable fields. On generations with
	// CapCombinedPowerWrite it must equal Control.
	Disable          string
	RxHwDisableField string
	TxHwDisableField string

	// IdleCount enables idle-count based autonomous low-power entry.
	IdleCount       string
	IdleEnableField string

	// Status reports the current state of each sub-link.
	Status       string
	RxStateField string
	TxStateField string

	// Threshold holds the idle threshold used to derive dwell times.
	Threshold        string
	RxThresholdField string
	TxThresholdField string

	// Low-power entry/exit counters and their clear register.
	EntryCount string
	ExitCount  string
	CountClear string

	// Forced toggling (test only).
	Toggle              string
	ToggleEnableField   string
	ToggleInCountField  string
	ToggleOutCountField string
	ToggleStatusField   string
	ToggleActive        string

	// Encodings of the state fields.
	FullBandwidthCode uint32
	LowPowerCode      uint32
}

// IobistRegs selects the registers of the loopback self-test.
type IobistRegs struct {
	Control        string
	TypeField      string
	TimeField      string
	InitiatorField string

	// Status fields and the values that read true when the condition is
	// asserted.
	Status         string
	AlignDoneField string
	AlignLockField string
	ScramLockField string
	AlignDone      string
	AlignLock      string
	ScramLock      string

	TypeCodes map[model.IobistType]uint32
	TimeCodes map[model.IobistTime]uint32
}

// Threshold is the default error threshold of one counter kind.
// A zero Rate means no rate-based threshold is defined.
type Threshold struct {
	// Rate is in failures per transferred bit (e.g. 1e-14).
	Rate float64 `yaml:"rate"`

	// Count is an absolute count.
	Count uint64 `yaml:"count"`
}
