package simhw

import (
	"github.com/linkval/nvldiag/pkg/generation"
	"github.com/linkval/nvldiag/pkg/model"
	"github.com/linkval/nvldiag/pkg/regport"
)

// Register hooks run with the register file lock held. They use
// File.Stored and File.Poke for side effects and d.mu for simulator state.

func (d *Device) installHooks() {
	d.installEomHooks()
	d.installPowerHooks()
	d.installFlagHooks()
}

func (d *Device) installEomHooks() {
	eom := d.profile.EomRegs()
	f := d.file

	f.OnWrite(eom.Config, func(idx regport.Index, _, written uint32) uint32 {
		d.mu.Lock()
		d.eomSetup[model.LinkID(idx.Link)] = f.GetField(written, eom.ConfigField)
		d.mu.Unlock()
		return written
	})

	f.OnWrite(eom.Control, func(idx regport.Index, _, written uint32) uint32 {
		enabled := f.GetField(written, eom.EnableField) != 0
		d.mu.Lock()
		if st, ok := d.eom[model.LinkID(idx.Link)]; ok {
			if enabled && !st.enabled {
				st.polls = 0
			}
			st.enabled = enabled
		}
		d.mu.Unlock()
		return written
	})

	f.OnRead(eom.Status, func(idx regport.Index, stored uint32) uint32 {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.cfg.EomDoneStuck {
			return f.SetField(stored, eom.DoneField, 1)
		}
		st, ok := d.eom[model.LinkID(idx.Link)]
		if !ok || !st.enabled {
			return f.SetField(stored, eom.DoneField, 0)
		}
		st.polls++
		done := d.cfg.EomDonePolls >= 0 && st.polls >= d.cfg.EomDonePolls
		return f.SetField(stored, eom.DoneField, b2u(done))
	})

	laneMask := d.profile.Has(generation.CapEomLaneMask)
	f.OnRead(eom.LaneData, func(idx regport.Index, stored uint32) uint32 {
		sel := f.GetField(f.Stored(eom.LaneSelect, idx), eom.LaneSelectField)
		lane := laneOf(sel, laneMask)
		code := uint32(d.cfg.EomCode(model.LinkID(idx.Link), lane))
		// High byte carries status flags the reader must mask off.
		return f.SetField(stored, eom.DataField, 0xa500|code)
	})
}

func (d *Device) installPowerHooks() {
	pw := d.profile.PowerRegs()
	f := d.file

	onWrite := func(reg string) regport.WriteHook {
		return func(idx regport.Index, _, written uint32) uint32 {
			d.updatePowerStatus(idx, reg, written)
			return written
		}
	}
	f.OnWrite(pw.Control, onWrite(pw.Control))
	if pw.Disable != pw.Control {
		f.OnWrite(pw.Disable, onWrite(pw.Disable))
	}
	f.OnWrite(pw.IdleCount, onWrite(pw.IdleCount))

	f.OnWrite(pw.CountClear, func(idx regport.Index, _, written uint32) uint32 {
		if written == 0 {
			return 0
		}
		f.Poke(pw.EntryCount, idx, 0)
		f.Poke(pw.ExitCount, idx, 0)
		if d.profile.Has(generation.CapEntangledPowerCounters) {
			d.mu.Lock()
			d.counters[model.LinkID(idx.Link)] = make(model.CounterSet)
			d.mu.Unlock()
		}
		return 0
	})

	f.OnWrite(pw.Toggle, func(idx regport.Index, _, written uint32) uint32 {
		enabled := f.GetField(written, pw.ToggleEnableField) != 0
		d.mu.Lock()
		if st, ok := d.toggle[model.LinkID(idx.Link)]; ok {
			if enabled && !st.enabled {
				st.polls = 0
			}
			st.enabled = enabled
		}
		d.mu.Unlock()
		// The active flag is owned by hardware.
		return f.SetField(written, pw.ToggleStatusField, 0)
	})

	f.OnRead(pw.Toggle, func(idx regport.Index, stored uint32) uint32 {
		d.mu.Lock()
		defer d.mu.Unlock()
		st, ok := d.toggle[model.LinkID(idx.Link)]
		if !ok || !st.enabled {
			return f.SetField(stored, pw.ToggleStatusField, 0)
		}
		st.polls++
		active := d.cfg.ToggleConfirmPolls >= 0 && st.polls >= d.cfg.ToggleConfirmPolls
		return f.SetField(stored, pw.ToggleStatusField, b2u(active))
	})
}

// updatePowerStatus recomputes the current sub-link states after a write
// to one of the power control registers. Software-forced sub-links follow
// the desired state; hardware-controlled sub-links of an idle link enter
// low power when idle-count entry is enabled.
func (d *Device) updatePowerStatus(idx regport.Index, reg string, written uint32) {
	pw := d.profile.PowerRegs()
	f := d.file

	load := func(r string) uint32 {
		if r == reg {
			return written
		}
		return f.Stored(r, idx)
	}
	ctrl := load(pw.Control)
	dis := load(pw.Disable)
	idle := f.GetField(load(pw.IdleCount), pw.IdleEnableField) != 0

	current := func(desiredField, disableField string) uint32 {
		if f.GetField(dis, disableField) != 0 {
			return f.GetField(ctrl, desiredField)
		}
		if idle {
			return pw.LowPowerCode
		}
		return pw.FullBandwidthCode
	}

	old := f.Stored(pw.Status, idx)
	rx := current(pw.RxDesiredField, pw.RxHwDisableField)
	tx := current(pw.TxDesiredField, pw.TxHwDisableField)

	entries, exits := uint32(0), uint32(0)
	for _, t := range [][2]uint32{
		{f.GetField(old, pw.RxStateField), rx},
		{f.GetField(old, pw.TxStateField), tx},
	} {
		switch {
		case t[0] != pw.LowPowerCode && t[1] == pw.LowPowerCode:
			entries++
		case t[0] == pw.LowPowerCode && t[1] != pw.LowPowerCode:
			exits++
		}
	}

	var st uint32
	st = f.SetField(st, pw.RxStateField, rx)
	st = f.SetField(st, pw.TxStateField, tx)
	f.Poke(pw.Status, idx, st)
	f.Poke(pw.EntryCount, idx, f.Stored(pw.EntryCount, idx)+entries)
	f.Poke(pw.ExitCount, idx, f.Stored(pw.ExitCount, idx)+exits)
}

// installFlagHooks makes status blocks write-one-to-clear and clears the
// self-clearing bits of a block on read.
func (d *Device) installFlagHooks() {
	f := d.file
	table := d.profile.FlagTable()

	selfClear := make(map[string]uint32)
	blocks := make(map[string]bool)
	for _, r := range table {
		blocks[r.Block] = true
		if r.SelfClearing {
			selfClear[r.Block] |= r.Mask
		}
	}

	for block := range blocks {
		mask := selfClear[block]
		if mask != 0 {
			f.OnRead(block, func(idx regport.Index, stored uint32) uint32 {
				f.Poke(block, idx, stored&^mask)
				return stored
			})
		}
		f.OnWrite(block, func(_ regport.Index, old, written uint32) uint32 {
			return old &^ written
		})
	}
}
