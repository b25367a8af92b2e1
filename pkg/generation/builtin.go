package generation

import (
	"time"

	"github.com/linkval/nvldiag/pkg/model"
)

func builtins() []Definition {
	return []Definition{nvl2(), nvl3(), nvl3sw(), nvl4(), nvl5()}
}

func crcLanes(n uint32) []model.ErrorKind {
	kinds := make([]model.ErrorKind, 0, n)
	for l := uint32(0); l < n; l++ {
		k, _ := model.CrcLaneKind(l)
		kinds = append(kinds, k)
	}
	return kinds
}

func eccLanes(n uint32) []model.ErrorKind {
	kinds := make([]model.ErrorKind, 0, n)
	for l := uint32(0); l < n; l++ {
		k, _ := model.EccLaneKind(l)
		kinds = append(kinds, k)
	}
	return kinds
}

func counterMask(lists ...[]model.ErrorKind) *model.CounterMask {
	var m model.CounterMask
	for _, l := range lists {
		m |= model.CounterMaskOf(l...)
	}
	return &m
}

var baseCounters = []model.ErrorKind{
	model.ErrTxReplay, model.ErrRxReplay, model.ErrRecovery,
	model.ErrRxCrcFlit, model.ErrRxCrcMasked,
}

var phyRefreshCounters = []model.ErrorKind{model.ErrPhyRefreshPass, model.ErrPhyRefreshFail}

// Link-scoped status blocks present since nvl2.
func linkFlagRules() model.FlagTable {
	return model.FlagTable{
		{Block: "NVLDL_ERR_STATUS", Mask: 0x01, Name: "TX_REPLAY_LIMIT"},
		{Block: "NVLDL_ERR_STATUS", Mask: 0x02, Name: "RX_SHORT_ERROR_RATE"},
		{Block: "NVLDL_ERR_STATUS", Mask: 0x04, Name: "RX_LONG_ERROR_RATE"},
		{Block: "NVLDL_ERR_STATUS", Mask: 0x08, Name: "LTSSM_FAULT"},
		{Block: "NVLDL_ERR_STATUS", Mask: 0x30, Name: "RX_DL_DATA_PARITY"},
		{Block: "NVLTL_ERR_STATUS", Mask: 0x01, Name: "TL_RX_PROTOCOL"},
		{Block: "NVLTL_ERR_STATUS", Mask: 0x02, Name: "TL_TX_CREDIT_OVERFLOW"},
		{Block: "NVLDL_INTR_STATUS", Mask: 0x01, Name: "LINK_DOWN_EVENT", SelfClearing: true},
		{Block: "NVLDL_INTR_STATUS", Mask: 0x02, Name: "LINK_UP_EVENT", SelfClearing: true},
	}
}

func nvl2() Definition {
	crcThreshold := Threshold{Rate: 1e-13, Count: 100}
	thresholds := map[model.ErrorKind]Threshold{
		model.ErrTxReplay:    {Rate: 1e-13, Count: 100},
		model.ErrRxReplay:    {Rate: 1e-13, Count: 100},
		model.ErrRecovery:    {Count: 5},
		model.ErrRxCrcFlit:   {Rate: 1e-14, Count: 100},
		model.ErrRxCrcMasked: {Rate: 1e-13, Count: 1000},
	}
	for _, k := range crcLanes(8) {
		thresholds[k] = crcThreshold
	}

	return Definition{
		Tag:  TagNvl2,
		Name: "NVLink 2",

		MaxLinks:      Some[uint32](6),
		LanesPerLink:  Some[uint32](8),
		LinksPerGroup: Some[uint32](3),

		Caps: func(Capability) Capability {
			return CapPowerState | CapLowPower | CapPowerToggle | CapEom
		},
		ErrorCounters: counterMask(baseCounters, crcLanes(8)),

		EomModes:  []model.EomMode{model.EomModeX, model.EomModeY},
		EomEncode: EncodeEomNvl2,
		EomRegs: &EomRegs{
			Config:          "NVLPHY_EOM_CFG",
			ConfigField:     "NVLPHY_EOM_CFG_WORD",
			Control:         "NVLPHY_EOM_CTRL",
			EnableField:     "NVLPHY_EOM_CTRL_EN",
			OverrideField:   "NVLPHY_EOM_CTRL_OVRD",
			Status:          "NVLPHY_EOM_STATUS",
			DoneField:       "NVLPHY_EOM_STATUS_DONE",
			DoneSet:         "NVLPHY_EOM_STATUS_DONE_TRUE",
			DoneClear:       "NVLPHY_EOM_STATUS_DONE_FALSE",
			LaneSelect:      "NVLPHY_EOM_LANE_SEL",
			LaneSelectField: "NVLPHY_EOM_LANE_SEL_LANE",
			LaneData:        "NVLPHY_EOM_LANE_STATUS",
			DataField:       "NVLPHY_EOM_LANE_STATUS_DATA",
		},

		PowerRegs: &PowerRegs{
			Control:             "NVLDL_PWR_CTRL",
			RxDesiredField:      "NVLDL_PWR_CTRL_RX_SW_DESIRED",
			TxDesiredField:      "NVLDL_PWR_CTRL_TX_SW_DESIRED",
			Disable:             "NVLDL_PWR_HW_DISABLE",
			RxHwDisableField:    "NVLDL_PWR_HW_DISABLE_RX",
			TxHwDisableField:    "NVLDL_PWR_HW_DISABLE_TX",
			IdleCount:           "NVLDL_PWR_IDLE_CNT",
			IdleEnableField:     "NVLDL_PWR_IDLE_CNT_EN",
			Status:              "NVLDL_PWR_STATUS",
			RxStateField:        "NVLDL_PWR_STATUS_RX_STATE",
			TxStateField:        "NVLDL_PWR_STATUS_TX_STATE",
			Threshold:           "NVLDL_PWR_THRESHOLD",
			RxThresholdField:    "NVLDL_PWR_THRESHOLD_RX",
			TxThresholdField:    "NVLDL_PWR_THRESHOLD_TX",
			EntryCount:          "NVLDL_LP_ENTRY_CNT",
			ExitCount:           "NVLDL_LP_EXIT_CNT",
			CountClear:          "NVLDL_LP_CNT_CLR",
			Toggle:              "NVLDL_PWR_TOGGLE",
			ToggleEnableField:   "NVLDL_PWR_TOGGLE_EN",
			ToggleInCountField:  "NVLDL_PWR_TOGGLE_IN_CNT",
			ToggleOutCountField: "NVLDL_PWR_TOGGLE_OUT_CNT",
			ToggleStatusField:   "NVLDL_PWR_TOGGLE_ACTIVE",
			ToggleActive:        "NVLDL_PWR_TOGGLE_ACTIVE_TRUE",
			FullBandwidthCode:   0,
			LowPowerCode:        1,
		},
		LowPowerThresholdUnit: Some[uint32](256),

		IobistRegs: &IobistRegs{
			Control:        "NVLPHY_IOBIST_CTRL",
			TypeField:      "NVLPHY_IOBIST_CTRL_TYPE",
			TimeField:      "NVLPHY_IOBIST_CTRL_TIME",
			InitiatorField: "NVLPHY_IOBIST_CTRL_INITIATOR",
			Status:         "NVLPHY_IOBIST_STATUS",
			AlignDoneField: "NVLPHY_IOBIST_STATUS_ALIGN_DONE",
			AlignLockField: "NVLPHY_IOBIST_STATUS_ALIGN_LOCK",
			ScramLockField: "NVLPHY_IOBIST_STATUS_SCRAM_LOCK",
			AlignDone:      "NVLPHY_IOBIST_STATUS_ALIGN_DONE_TRUE",
			AlignLock:      "NVLPHY_IOBIST_STATUS_ALIGN_LOCK_TRUE",
			ScramLock:      "NVLPHY_IOBIST_STATUS_SCRAM_LOCK_TRUE",
			TypeCodes: map[model.IobistType]uint32{
				model.IobistOff:       0,
				model.IobistPreTrain:  1,
				model.IobistPostTrain: 2,
			},
			TimeCodes: map[model.IobistTime]uint32{
				model.IobistTime20us:    0,
				model.IobistTime800us:   1,
				model.IobistTime1s:      2,
				model.IobistTime10s:     3,
				model.IobistTimeDefault: 7,
			},
		},

		FlagTable:  linkFlagRules(),
		Thresholds: thresholds,

		EomPollTimeout:       Some(100 * time.Millisecond),
		ToggleConfirmTimeout: Some(10 * time.Millisecond),
		CounterBusyRetries:   Some(0),
		CounterBusyInterval:  Some(time.Millisecond),
	}
}

// nvl3 routes EOM setup through firmware and refreshes PHY counters
// asynchronously. The counter reservation erratum needs a bounded retry.
func nvl3() Definition {
	return Definition{
		Tag:      TagNvl3,
		Fallback: TagNvl2,
		Name:     "NVLink 3",

		MaxLinks:      Some[uint32](12),
		LanesPerLink:  Some[uint32](4),
		LinksPerGroup: Some[uint32](4),

		Caps: func(fb Capability) Capability {
			return fb | CapEomViaFirmware | CapAsyncPhyRefresh
		},
		ErrorCounters: counterMask(baseCounters, crcLanes(4), phyRefreshCounters),

		EomModes: []model.EomMode{
			model.EomModeX, model.EomModeXL, model.EomModeXH, model.EomModeY,
		},
		EomEncode: EncodeEomNvl3,

		Thresholds: map[model.ErrorKind]Threshold{
			model.ErrPhyRefreshFail: {Count: 1},
		},

		CounterBusyRetries:  Some(3),
		CounterBusyInterval: Some(10 * time.Millisecond),
	}
}

// nvl3sw is the switch variant of nvl3. Top-level error status is shared
// by each link group.
func nvl3sw() Definition {
	table := linkFlagRules()
	table = append(table,
		model.FlagRule{Block: "NVLW_TOP_ERR_STATUS", Scope: model.ScopeGroup, Mask: 0x01, Name: "TOP_FATAL"},
		model.FlagRule{Block: "NVLW_TOP_ERR_STATUS", Scope: model.ScopeGroup, Mask: 0x02, Name: "TOP_NONFATAL"},
		model.FlagRule{Block: "NVLW_TOP_ERR_STATUS", Scope: model.ScopeGroup, Mask: 0x04, Name: "CLOCK_CROSSING"},
	)

	return Definition{
		Tag:      TagNvl3Sw,
		Fallback: TagNvl3,
		Name:     "NVLink 3 switch",

		MaxLinks: Some[uint32](36),

		Caps: func(fb Capability) Capability {
			return fb &^ CapPowerToggle
		},

		FlagTable: table,
	}
}

// nvl4 moves to PAM4 signalling, adds IOBIST and ECC counters. Clearing the
// error counters also clears the low-power counters, and the power control
// register recounts idle cycles on every write.
func nvl4() Definition {
	thresholds := map[model.ErrorKind]Threshold{
		model.ErrRxCrcFlit: {Rate: 1e-15, Count: 50},
	}
	for _, k := range eccLanes(2) {
		thresholds[k] = Threshold{Rate: 1e-6, Count: 1000000}
	}

	table := linkFlagRules()
	table = append(table,
		model.FlagRule{Block: "NVLPHY_ERR_STATUS", Mask: 0x01, Name: "UPHY_REFRESH_FAIL"},
		model.FlagRule{Block: "NVLPHY_ERR_STATUS", Mask: 0x02, Name: "ECC_UNCORRECTABLE"},
	)

	return Definition{
		Tag:      TagNvl4,
		Fallback: TagNvl3,
		Name:     "NVLink 4",

		MaxLinks:      Some[uint32](18),
		LanesPerLink:  Some[uint32](2),
		LinksPerGroup: Some[uint32](6),

		Caps: func(fb Capability) Capability {
			return fb | CapIobist | CapEntangledPowerCounters | CapCombinedPowerWrite | CapEccCounters
		},
		ErrorCounters: counterMask(baseCounters, crcLanes(2), eccLanes(2), phyRefreshCounters),

		EomModes: []model.EomMode{
			model.EomModeX, model.EomModeXL, model.EomModeXH, model.EomModeY,
			model.EomModeYU, model.EomModeYM, model.EomModeYL,
		},
		EomEncode: EncodeEomNvl4,

		PowerRegs: &PowerRegs{
			Control:             "NVLDL_PWR_CTRL2",
			RxDesiredField:      "NVLDL_PWR_CTRL2_RX_SW_DESIRED",
			TxDesiredField:      "NVLDL_PWR_CTRL2_TX_SW_DESIRED",
			Disable:             "NVLDL_PWR_CTRL2",
			RxHwDisableField:    "NVLDL_PWR_CTRL2_RX_HW_DISABLE",
			TxHwDisableField:    "NVLDL_PWR_CTRL2_TX_HW_DISABLE",
			IdleCount:           "NVLDL_PWR_IDLE_CNT",
			IdleEnableField:     "NVLDL_PWR_IDLE_CNT_EN",
			Status:              "NVLDL_PWR_STATUS",
			RxStateField:        "NVLDL_PWR_STATUS_RX_STATE",
			TxStateField:        "NVLDL_PWR_STATUS_TX_STATE",
			Threshold:           "NVLDL_PWR_THRESHOLD",
			RxThresholdField:    "NVLDL_PWR_THRESHOLD_RX",
			TxThresholdField:    "NVLDL_PWR_THRESHOLD_TX",
			EntryCount:          "NVLDL_LP_ENTRY_CNT",
			ExitCount:           "NVLDL_LP_EXIT_CNT",
			CountClear:          "NVLDL_LP_CNT_CLR",
			Toggle:              "NVLDL_PWR_TOGGLE",
			ToggleEnableField:   "NVLDL_PWR_TOGGLE_EN",
			ToggleInCountField:  "NVLDL_PWR_TOGGLE_IN_CNT",
			ToggleOutCountField: "NVLDL_PWR_TOGGLE_OUT_CNT",
			ToggleStatusField:   "NVLDL_PWR_TOGGLE_ACTIVE",
			ToggleActive:        "NVLDL_PWR_TOGGLE_ACTIVE_TRUE",
			FullBandwidthCode:   0,
			LowPowerCode:        1,
		},
		LowPowerThresholdUnit: Some[uint32](1024),

		FlagTable:  table,
		Thresholds: thresholds,

		EomPollTimeout: Some(200 * time.Millisecond),
	}
}

// nvl5 drives EOM directly through registers again and selects lanes by
// mask.
func nvl5() Definition {
	return Definition{
		Tag:      TagNvl5,
		Fallback: TagNvl4,
		Name:     "NVLink 5",

		Caps: func(fb Capability) Capability {
			return fb&^CapEomViaFirmware | CapEomLaneMask
		},

		EomRegs: &EomRegs{
			Config:          "UPHY_EOM_CFG",
			ConfigField:     "UPHY_EOM_CFG_WORD",
			Control:         "UPHY_EOM_CTRL",
			EnableField:     "UPHY_EOM_CTRL_EN",
			OverrideField:   "UPHY_EOM_CTRL_OVRD",
			Status:          "UPHY_EOM_STATUS",
			DoneField:       "UPHY_EOM_STATUS_DONE",
			DoneSet:         "UPHY_EOM_STATUS_DONE_TRUE",
			DoneClear:       "UPHY_EOM_STATUS_DONE_FALSE",
			LaneSelect:      "UPHY_EOM_LANE_MASK",
			LaneSelectField: "UPHY_EOM_LANE_MASK_LANES",
			LaneData:        "UPHY_EOM_LANE_STATUS",
			DataField:       "UPHY_EOM_LANE_STATUS_DATA",
		},

		Thresholds: map[model.ErrorKind]Threshold{
			model.ErrRxCrcFlit: {Rate: 1e-16, Count: 20},
		},
	}
}
