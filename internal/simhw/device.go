// Package simhw provides a register-accurate simulated link device.
//
// A Device implements both ctrlchan.Channel and, through Port, the
// regport.Port of one device of a given generation. Register side effects
// follow the generation profile: EOM done sequencing, sub-link power state,
// low-power counters (including entanglement with the error counters),
// forced toggling, IOBIST status and sticky or self-clearing status blocks.
package simhw

import (
	"log/slog"
	"math/bits"
	"sync"

	"github.com/linkval/nvldiag/pkg/generation"
	"github.com/linkval/nvldiag/pkg/model"
	"github.com/linkval/nvldiag/pkg/regport"
)

// LinkConfig describes one simulated link.
type LinkConfig struct {
	ID           model.LinkID
	State        model.LinkState
	Version      uint32
	SublinkWidth uint32
	LineRateMbps uint32
	LinkClockMHz uint32
	AcCoupled    bool
	Remote       model.RemoteEndpoint

	// RxThreshold and TxThreshold preset the idle threshold register.
	RxThreshold uint32
	TxThreshold uint32
}

// Config configures a simulated device.
type Config struct {
	// Profile selects the generation whose registers are simulated.
	Profile *generation.Profile

	// Links lists the present links.
	Links []LinkConfig

	// EomDonePolls is the number of done-status reads after enable until
	// done asserts. Negative values never assert.
	EomDonePolls int

	// EomDoneStuck keeps done asserted regardless of enable, so the arm
	// phase never observes it cleared.
	EomDoneStuck bool

	// EomCode returns the measurement byte of a lane. Nil returns 0x01.
	EomCode func(link model.LinkID, lane uint32) uint8

	// ToggleConfirmPolls is the number of toggle-status reads after enable
	// until toggling reports active. Negative values never confirm.
	ToggleConfirmPolls int

	// Logger is the optional logger. Nil disables logging.
	Logger *slog.Logger
}

// DefaultLinks returns n active, AC-coupled GPU links.
func DefaultLinks(n int) []LinkConfig {
	links := make([]LinkConfig, n)
	for i := range links {
		links[i] = LinkConfig{
			ID:           model.LinkID(i),
			State:        model.LinkStateActive,
			Version:      4,
			SublinkWidth: 4,
			LineRateMbps: 25000,
			LinkClockMHz: 1000,
			AcCoupled:    true,
			Remote: model.RemoteEndpoint{
				Type:   model.RemoteGPU,
				Bus:    uint32(0x10 + i),
				LinkID: model.LinkID(i),
			},
			RxThreshold: 1000,
			TxThreshold: 1000,
		}
	}
	return links
}

// DefaultConfig returns a device of the given generation with every link
// present and active.
func DefaultConfig(p *generation.Profile) Config {
	return Config{
		Profile:            p,
		Links:              DefaultLinks(int(p.MaxLinks())),
		EomDonePolls:       2,
		ToggleConfirmPolls: 1,
	}
}

// Call is one recorded control channel request.
type Call struct {
	Op       string
	Link     model.LinkID
	Links    model.LinkMask
	Counters model.CounterMask
	Value    uint32
}

type eomState struct {
	enabled bool
	polls   int
}

type toggleState struct {
	enabled bool
	polls   int
}

// Device is a simulated link device.
type Device struct {
	cfg     Config
	profile *generation.Profile
	file    *regport.File
	logger  *slog.Logger

	// mu guards the fields below. It is a leaf lock: register file hooks
	// take it while the file lock is held, so code holding mu never
	// touches the file.
	mu         sync.Mutex
	links      map[model.LinkID]*LinkConfig
	counters   map[model.LinkID]model.CounterSet
	recoveries map[model.LinkID]uint32
	eom        map[model.LinkID]*eomState
	eomSetup   map[model.LinkID]uint32
	toggle     map[model.LinkID]*toggleState
	busy       int
	failures   map[string]error
	calls      []Call
}

// New creates a simulated device.
func New(cfg Config) *Device {
	if cfg.EomCode == nil {
		cfg.EomCode = func(model.LinkID, uint32) uint8 { return 0x01 }
	}
	d := &Device{
		cfg:        cfg,
		profile:    cfg.Profile,
		file:       regport.NewFile(buildLayout(cfg.Profile)),
		logger:     cfg.Logger,
		links:      make(map[model.LinkID]*LinkConfig),
		counters:   make(map[model.LinkID]model.CounterSet),
		recoveries: make(map[model.LinkID]uint32),
		eom:        make(map[model.LinkID]*eomState),
		eomSetup:   make(map[model.LinkID]uint32),
		toggle:     make(map[model.LinkID]*toggleState),
		failures:   make(map[string]error),
	}

	for i := range cfg.Links {
		l := cfg.Links[i]
		d.links[l.ID] = &l
		d.counters[l.ID] = make(model.CounterSet)
		d.eom[l.ID] = &eomState{}
		d.toggle[l.ID] = &toggleState{}
		d.presetLink(l)
	}
	d.installHooks()
	return d
}

func (d *Device) presetLink(l LinkConfig) {
	pw := d.profile.PowerRegs()
	idx := regport.Link(l.ID)

	var th uint32
	th = d.file.SetField(th, pw.RxThresholdField, l.RxThreshold)
	th = d.file.SetField(th, pw.TxThresholdField, l.TxThreshold)
	d.file.Set(pw.Threshold, idx, th)

	io := d.profile.IobistRegs()
	var st uint32
	st = d.file.SetField(st, io.AlignDoneField, 1)
	st = d.file.SetField(st, io.AlignLockField, 1)
	st = d.file.SetField(st, io.ScramLockField, 1)
	d.file.Set(io.Status, idx, st)
}

// Port returns the register file of the device.
func (d *Device) Port() *regport.File { return d.file }

// Profile returns the simulated generation.
func (d *Device) Profile() *generation.Profile { return d.profile }

// Calls returns the recorded control channel requests.
func (d *Device) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// InjectErrors adds error events to the hardware counters of a link.
func (d *Device) InjectErrors(id model.LinkID, delta model.CounterSet) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if set, ok := d.counters[id]; ok {
		d.counters[id] = set.Add(delta)
	}
}

// InjectRecoveries adds link recoveries.
func (d *Device) InjectRecoveries(id model.LinkID, n uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recoveries[id] += n
}

// InjectLowPower adds low-power entries and exits to the live counters.
func (d *Device) InjectLowPower(id model.LinkID, entries, exits uint32) {
	pw := d.profile.PowerRegs()
	idx := regport.Link(id)
	d.file.Set(pw.EntryCount, idx, d.file.Peek(pw.EntryCount, idx)+entries)
	d.file.Set(pw.ExitCount, idx, d.file.Peek(pw.ExitCount, idx)+exits)
}

// LowPowerCounts returns the live low-power counters.
func (d *Device) LowPowerCounts(id model.LinkID) model.LowPowerCounts {
	pw := d.profile.PowerRegs()
	idx := regport.Link(id)
	return model.LowPowerCounts{
		Entries: uint64(d.file.Peek(pw.EntryCount, idx)),
		Exits:   uint64(d.file.Peek(pw.ExitCount, idx)),
	}
}

// RaiseLinkFlag sets bits of a per-link status block.
func (d *Device) RaiseLinkFlag(id model.LinkID, block string, bits uint32) {
	idx := regport.Link(id)
	d.file.Set(block, idx, d.file.Peek(block, idx)|bits)
}

// RaiseGroupFlag sets bits of a per-group status block.
func (d *Device) RaiseGroupFlag(id model.GroupID, block string, bits uint32) {
	idx := regport.Group(id)
	d.file.Set(block, idx, d.file.Peek(block, idx)|bits)
}

// SetIobistStatus sets the self-test status conditions of a link.
func (d *Device) SetIobistStatus(id model.LinkID, alignDone, alignLock, scramLock bool) {
	io := d.profile.IobistRegs()
	var st uint32
	st = d.file.SetField(st, io.AlignDoneField, b2u(alignDone))
	st = d.file.SetField(st, io.AlignLockField, b2u(alignLock))
	st = d.file.SetField(st, io.ScramLockField, b2u(scramLock))
	d.file.Set(io.Status, regport.Link(id), st)
}

// SetLinkState changes the reported state of a link.
func (d *Device) SetLinkState(id model.LinkID, state model.LinkState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if l, ok := d.links[id]; ok {
		l.State = state
	}
}

// SetBusy makes the next n counter requests fail with ctrlchan.ErrBusy.
func (d *Device) SetBusy(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.busy = n
}

// FailNext makes the next request of op fail with err (ErrInjected if nil).
func (d *Device) FailNext(op string, err error) {
	if err == nil {
		err = ErrInjected
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[op] = err
}

// EomSetup returns the last configuration word programmed for a link,
// through firmware or the configuration register.
func (d *Device) EomSetup(id model.LinkID) (uint32, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.eomSetup[id]
	return v, ok
}

// EomEnabled reports whether the EOM enable or override bits of a link
// are set.
func (d *Device) EomEnabled(id model.LinkID) bool {
	eom := d.profile.EomRegs()
	ctrl := d.file.Peek(eom.Control, regport.Link(id))
	return d.file.GetField(ctrl, eom.EnableField) != 0 || d.file.GetField(ctrl, eom.OverrideField) != 0
}

// ToggleEnabled reports whether forced power toggling is enabled on a link.
func (d *Device) ToggleEnabled(id model.LinkID) bool {
	pw := d.profile.PowerRegs()
	return d.file.GetField(d.file.Peek(pw.Toggle, regport.Link(id)), pw.ToggleEnableField) != 0
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func laneOf(sel uint32, mask bool) uint32 {
	if !mask {
		return sel
	}
	if sel == 0 {
		return 0
	}
	return uint32(bits.TrailingZeros32(sel))
}
