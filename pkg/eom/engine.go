package eom

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/linkval/nvldiag/internal/poll"
	"github.com/linkval/nvldiag/pkg/ctrlchan"
	"github.com/linkval/nvldiag/pkg/generation"
	"github.com/linkval/nvldiag/pkg/linkerr"
	"github.com/linkval/nvldiag/pkg/model"
	"github.com/linkval/nvldiag/pkg/regport"
	"github.com/linkval/nvldiag/pkg/topology"
)

// SimulatedLaneCode is returned for every lane on platforms whose EOM
// registers are not implemented.
const SimulatedLaneCode uint8 = 0x01

// dataMask selects the measurement bits of a lane status word. The bits
// above it are status flags.
const dataMask = 0xff

// Phase is one step of the measurement protocol.
type Phase uint8

const (
	PhaseValidate Phase = iota
	PhaseConfigure
	PhaseArm
	PhaseEnable
	PhaseDisable
	PhaseCollect
)

var phaseNames = [...]string{
	PhaseValidate:  "validate",
	PhaseConfigure: "configure",
	PhaseArm:       "arm",
	PhaseEnable:    "enable",
	PhaseDisable:   "disable",
	PhaseCollect:   "collect",
}

// String returns the phase name.
func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// Request describes one measurement.
type Request struct {
	Mode      model.EomMode
	NumErrors uint32
	NumBlocks uint32

	// FirstLane and NumLanes select the lanes to collect.
	FirstLane uint32
	NumLanes  uint32

	// Timeout bounds each of the two done polls. Zero uses the
	// generation default.
	Timeout time.Duration
}

// Result is the outcome of a measurement.
type Result struct {
	Settings model.EomSettings

	// Codes holds one status byte per requested lane, in lane order.
	Codes model.EomResult

	// ArmPolls and EnablePolls count the status reads of the two polls.
	ArmPolls    int
	EnablePolls int

	// Simulated is set when the result was synthesized without register
	// access.
	Simulated bool
}

// Config configures an Engine.
type Config struct {
	// Platform selects whether registers are accessed at all.
	Platform model.Platform

	// Poll sets the interval between status reads.
	Poll poll.Config

	// OnPhase is called as each phase starts. Optional.
	OnPhase func(link model.LinkID, phase Phase)

	// Logger is the optional logger. Nil disables logging.
	Logger *slog.Logger
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{Platform: model.PlatformHardware, Poll: poll.DefaultConfig()}
}

// Engine runs EOM measurements on the links of one device.
type Engine struct {
	topo    *topology.Topology
	profile *generation.Profile
	regs    generation.EomRegs
	port    regport.Port
	channel ctrlchan.Channel
	lock    sync.Locker
	cfg     Config
}

// New creates an engine. lock is the device mutex shared by all components.
func New(topo *topology.Topology, port regport.Port, channel ctrlchan.Channel, lock sync.Locker, cfg Config) *Engine {
	return &Engine{
		topo:    topo,
		profile: topo.Profile(),
		regs:    topo.Profile().EomRegs(),
		port:    port,
		channel: channel,
		lock:    lock,
		cfg:     cfg,
	}
}

func (e *Engine) debug(msg string, args ...any) {
	if e.cfg.Logger != nil {
		e.cfg.Logger.Debug(msg, args...)
	}
}

func (e *Engine) phase(id model.LinkID, p Phase) {
	if e.cfg.OnPhase != nil {
		e.cfg.OnPhase(id, p)
	}
}

// GetEomStatus measures the requested lanes of a link and returns one
// status byte per lane.
func (e *Engine) GetEomStatus(ctx context.Context, id model.LinkID, req Request) ([]uint8, error) {
	res, err := e.Measure(ctx, id, req)
	if err != nil {
		return nil, err
	}
	return res.Codes, nil
}

// Measure runs the full measurement protocol on a link.
func (e *Engine) Measure(ctx context.Context, id model.LinkID, req Request) (Result, error) {
	const op = "GetEomStatus"

	e.phase(id, PhaseValidate)
	settings, err := e.validate(op, id, req)
	if err != nil {
		return Result{}, err
	}
	if !e.cfg.Platform.RegisterAccurate() {
		codes := make(model.EomResult, req.NumLanes)
		for i := range codes {
			codes[i] = SimulatedLaneCode
		}
		return Result{Settings: settings, Codes: codes, Simulated: true}, nil
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.profile.EomPollTimeout()
	}

	e.lock.Lock()
	defer e.lock.Unlock()

	res := Result{Settings: settings}
	if err := e.run(ctx, op, id, req, timeout, &res); err != nil {
		if cerr := e.disable(id); cerr != nil {
			e.debug("eom cleanup failed", "link", id, "error", cerr)
		}
		return Result{}, err
	}

	e.debug("eom measured", "link", id, "mode", req.Mode, "lanes", req.NumLanes,
		"armPolls", res.ArmPolls, "enablePolls", res.EnablePolls)
	return res, nil
}

func (e *Engine) validate(op string, id model.LinkID, req Request) (model.EomSettings, error) {
	if !e.profile.Has(generation.CapEom) {
		return model.EomSettings{}, linkerr.NotSupported(op, id, "EOM not available on %s", e.profile.Tag())
	}
	link, err := e.topo.Link(op, id)
	if err != nil {
		return model.EomSettings{}, err
	}
	if !link.Active {
		return model.EomSettings{}, linkerr.NotSupported(op, id, "EOM requires an active link (state %s)", link.State)
	}
	if req.NumLanes == 0 {
		return model.EomSettings{}, linkerr.Invalid(op, id, req.NumLanes, "lane count must be positive")
	}
	lanes := e.profile.LanesPerLink()
	if req.FirstLane >= lanes || req.NumLanes > lanes-req.FirstLane {
		return model.EomSettings{}, linkerr.Invalid(op, id, req.FirstLane,
			"lanes %d..%d out of range, link has %d", req.FirstLane, req.FirstLane+req.NumLanes-1, lanes)
	}
	if !e.profile.SupportsEomMode(req.Mode) {
		return model.EomSettings{}, linkerr.NotSupported(op, id, "EOM mode %s not available on %s", req.Mode, e.profile.Tag())
	}
	settings, err := e.profile.EncodeEom(req.Mode, req.NumErrors, req.NumBlocks)
	if err != nil {
		return model.EomSettings{}, linkerr.Invalid(op, id, req, "%v", err)
	}

	if e.cfg.Platform.RegisterAccurate() {
		if err := e.checkAccess(op, id); err != nil {
			return model.EomSettings{}, err
		}
	}
	return settings, nil
}

func (e *Engine) checkAccess(op string, id model.LinkID) error {
	idx := regport.Link(id)
	writes := []string{e.regs.Control, e.regs.LaneSelect}
	if !e.profile.Has(generation.CapEomViaFirmware) {
		writes = append(writes, e.regs.Config)
	}
	for _, reg := range writes {
		if !e.port.HasWriteAccess(reg, idx) {
			return linkerr.Privilege(op, id, reg)
		}
	}
	for _, reg := range []string{e.regs.Status, e.regs.LaneData} {
		if !e.port.HasReadAccess(reg, idx) {
			return linkerr.Privilege(op, id, reg)
		}
	}
	return nil
}

// run executes the Configure through Collect phases. The device lock must
// be held.
func (e *Engine) run(ctx context.Context, op string, id model.LinkID, req Request, timeout time.Duration, res *Result) error {
	idx := regport.Link(id)

	e.phase(id, PhaseConfigure)
	if e.profile.Has(generation.CapEomViaFirmware) {
		if err := e.channel.SetupEom(ctx, id, res.Settings.Encoded); err != nil {
			return linkerr.Transport(op, err)
		}
	} else {
		w := e.port.SetField(0, e.regs.ConfigField, res.Settings.Encoded)
		if err := e.port.Write(e.regs.Config, idx, w); err != nil {
			return linkerr.Register(op, id, err)
		}
	}
	if err := e.setControl(idx, false); err != nil {
		return linkerr.Register(op, id, err)
	}

	e.phase(id, PhaseArm)
	polls, err := poll.Until(timeout, e.cfg.Poll, func() (bool, error) {
		return e.port.Test(e.regs.DoneClear, idx)
	})
	res.ArmPolls = polls
	if err != nil {
		return e.pollError(op, id, "done cleared", polls, err)
	}

	e.phase(id, PhaseEnable)
	if err := e.setControl(idx, true); err != nil {
		return linkerr.Register(op, id, err)
	}
	polls, err = poll.Until(timeout, e.cfg.Poll, func() (bool, error) {
		return e.port.Test(e.regs.DoneSet, idx)
	})
	res.EnablePolls = polls
	if err != nil {
		return e.pollError(op, id, "done set", polls, err)
	}

	e.phase(id, PhaseDisable)
	if err := e.disable(id); err != nil {
		return linkerr.Register(op, id, err)
	}

	e.phase(id, PhaseCollect)
	codes, err := e.collect(id, req.FirstLane, req.NumLanes)
	if err != nil {
		return linkerr.Register(op, id, err)
	}
	res.Codes = codes
	return nil
}

func (e *Engine) pollError(op string, id model.LinkID, cond string, polls int, err error) error {
	if errors.Is(err, poll.ErrTimeout) {
		return linkerr.TimedOut(op, id, cond, polls)
	}
	return linkerr.Register(op, id, err)
}

// setControl sets or clears both the enable and override-enable fields.
func (e *Engine) setControl(idx regport.Index, on bool) error {
	v := uint32(0)
	if on {
		v = 1
	}
	return regport.Modify(e.port, e.regs.Control, idx, func(w uint32) uint32 {
		w = e.port.SetField(w, e.regs.OverrideField, v)
		return e.port.SetField(w, e.regs.EnableField, v)
	})
}

func (e *Engine) disable(id model.LinkID) error {
	return e.setControl(regport.Link(id), false)
}

// collect reads the status byte of each lane, selecting the lane first.
func (e *Engine) collect(id model.LinkID, first, n uint32) (model.EomResult, error) {
	idx := regport.Link(id)
	laneMask := e.profile.Has(generation.CapEomLaneMask)

	codes := make(model.EomResult, 0, n)
	for lane := first; lane < first+n; lane++ {
		sel := lane
		if laneMask {
			sel = 1 << lane
		}
		if err := e.port.Write(e.regs.LaneSelect, idx, e.port.SetField(0, e.regs.LaneSelectField, sel)); err != nil {
			return nil, err
		}
		w, err := e.port.Read(e.regs.LaneData, idx)
		if err != nil {
			return nil, err
		}
		codes = append(codes, uint8(e.port.GetField(w, e.regs.DataField)&dataMask))
	}
	return codes, nil
}
