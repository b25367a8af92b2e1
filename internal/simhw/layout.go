package simhw

import (
	"github.com/linkval/nvldiag/pkg/generation"
	"github.com/linkval/nvldiag/pkg/regport"
)

// layoutBuilder packs fields into registers in definition order. Fields
// already placed (shared registers between generations' selections) are
// skipped.
type layoutBuilder struct {
	l    *regport.Layout
	next map[string]uint
}

func newLayoutBuilder() *layoutBuilder {
	return &layoutBuilder{l: regport.NewLayout(), next: make(map[string]uint)}
}

func (b *layoutBuilder) field(name, reg string, width uint) {
	if name == "" || reg == "" {
		return
	}
	if _, ok := b.l.Field(name); ok {
		return
	}
	b.l.AddField(name, reg, b.next[reg], width)
	b.next[reg] += width
}

func (b *layoutBuilder) value(name, field string, v uint32) {
	if name == "" {
		return
	}
	b.l.AddValue(name, field, v)
}

// buildLayout derives a register layout from a generation profile. Bit
// positions are a property of the simulator only; the engine addresses
// fields by name.
func buildLayout(p *generation.Profile) *regport.Layout {
	b := newLayoutBuilder()

	eom := p.EomRegs()
	b.field(eom.ConfigField, eom.Config, 32)
	b.field(eom.EnableField, eom.Control, 1)
	b.field(eom.OverrideField, eom.Control, 1)
	b.field(eom.DoneField, eom.Status, 1)
	b.value(eom.DoneSet, eom.DoneField, 1)
	b.value(eom.DoneClear, eom.DoneField, 0)
	b.field(eom.LaneSelectField, eom.LaneSelect, 8)
	b.field(eom.DataField, eom.LaneData, 16)

	pw := p.PowerRegs()
	b.field(pw.RxDesiredField, pw.Control, 2)
	b.field(pw.TxDesiredField, pw.Control, 2)
	b.field(pw.RxHwDisableField, pw.Disable, 1)
	b.field(pw.TxHwDisableField, pw.Disable, 1)
	b.field(pw.IdleEnableField, pw.IdleCount, 1)
	b.field(pw.RxStateField, pw.Status, 2)
	b.field(pw.TxStateField, pw.Status, 2)
	b.field(pw.RxThresholdField, pw.Threshold, 16)
	b.field(pw.TxThresholdField, pw.Threshold, 16)
	b.field(pw.ToggleEnableField, pw.Toggle, 1)
	b.field(pw.ToggleInCountField, pw.Toggle, 8)
	b.field(pw.ToggleOutCountField, pw.Toggle, 8)
	b.field(pw.ToggleStatusField, pw.Toggle, 1)
	b.value(pw.ToggleActive, pw.ToggleStatusField, 1)

	io := p.IobistRegs()
	b.field(io.TypeField, io.Control, 2)
	b.field(io.TimeField, io.Control, 3)
	b.field(io.InitiatorField, io.Control, 1)
	b.field(io.AlignDoneField, io.Status, 1)
	b.field(io.AlignLockField, io.Status, 1)
	b.field(io.ScramLockField, io.Status, 1)
	b.value(io.AlignDone, io.AlignDoneField, 1)
	b.value(io.AlignLock, io.AlignLockField, 1)
	b.value(io.ScramLock, io.ScramLockField, 1)

	return b.l
}
