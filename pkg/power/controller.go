package power

import (
	"context"
	"log/slog"
	"sync"

	"github.com/linkval/nvldiag/internal/poll"
	"github.com/linkval/nvldiag/pkg/counters"
	"github.com/linkval/nvldiag/pkg/generation"
	"github.com/linkval/nvldiag/pkg/linkerr"
	"github.com/linkval/nvldiag/pkg/model"
	"github.com/linkval/nvldiag/pkg/regport"
	"github.com/linkval/nvldiag/pkg/topology"
)

// Config configures a Controller.
type Config struct {
	// Poll sets the interval of the toggle confirmation poll.
	Poll poll.Config

	// Logger is the optional logger. Nil disables logging.
	Logger *slog.Logger
}

// DefaultConfig returns the default controller configuration.
func DefaultConfig() Config {
	return Config{Poll: poll.DefaultConfig()}
}

// Controller is the power-state controller of one device.
type Controller struct {
	topo    *topology.Topology
	profile *generation.Profile
	regs    generation.PowerRegs
	port    regport.Port
	store   *counters.Store
	lock    sync.Locker
	poll    poll.Config
	logger  *slog.Logger
}

// New creates a controller. store receives error counter snapshots before
// entangled low-power counter clears; lock is the device mutex.
func New(topo *topology.Topology, port regport.Port, store *counters.Store, lock sync.Locker, cfg Config) *Controller {
	return &Controller{
		topo:    topo,
		profile: topo.Profile(),
		regs:    topo.Profile().PowerRegs(),
		port:    port,
		store:   store,
		lock:    lock,
		poll:    cfg.Poll,
		logger:  cfg.Logger,
	}
}

func (c *Controller) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Controller) checkLink(op string, id model.LinkID) (model.Link, error) {
	if !c.profile.Has(generation.CapPowerState) {
		return model.Link{}, linkerr.NotSupported(op, id, "power-state control not available on %s", c.profile.Tag())
	}
	return c.topo.Link(op, id)
}

func (c *Controller) checkWrite(op string, id model.LinkID, regs ...string) error {
	idx := regport.Link(id)
	for _, reg := range regs {
		if !c.port.HasWriteAccess(reg, idx) {
			return linkerr.Privilege(op, id, reg)
		}
	}
	return nil
}

func (c *Controller) checkRead(op string, id model.LinkID, regs ...string) error {
	idx := regport.Link(id)
	for _, reg := range regs {
		if !c.port.HasReadAccess(reg, idx) {
			return linkerr.Privilege(op, id, reg)
		}
	}
	return nil
}

func (c *Controller) code(s model.PowerState) uint32 {
	if s == model.PowerLowPower {
		return c.regs.LowPowerCode
	}
	return c.regs.FullBandwidthCode
}

func (c *Controller) state(code uint32) model.PowerState {
	switch code {
	case c.regs.FullBandwidthCode:
		return model.PowerFullBandwidth
	case c.regs.LowPowerCode:
		return model.PowerLowPower
	default:
		return model.PowerInvalid
	}
}

// RequestPowerState sets the desired state of both sub-links of a link.
// With hwControlled the hardware may leave the desired state on its own;
// requesting low power under hardware control also enables idle-count
// based autonomous entry.
func (c *Controller) RequestPowerState(id model.LinkID, target model.PowerState, hwControlled bool) error {
	const op = "RequestPowerState"

	link, err := c.checkLink(op, id)
	if err != nil {
		return err
	}
	switch target {
	case model.PowerFullBandwidth:
	case model.PowerLowPower:
		if !c.profile.Has(generation.CapLowPower) {
			return linkerr.NotSupported(op, id, "low-power state not available on %s", c.profile.Tag())
		}
		if !link.Active {
			return linkerr.NotSupported(op, id, "low-power state requires an active link (state %s)", link.State)
		}
	default:
		return linkerr.Invalid(op, id, target, "invalid power state")
	}
	if err := c.checkWrite(op, id, c.regs.Control, c.regs.Disable, c.regs.IdleCount); err != nil {
		return err
	}

	idx := regport.Link(id)
	code := c.code(target)
	idle := b2u(hwControlled && target == model.PowerLowPower)
	disable := b2u(!hwControlled)

	c.lock.Lock()
	defer c.lock.Unlock()

	ctrl, err := c.port.Read(c.regs.Control, idx)
	if err != nil {
		return linkerr.Register(op, id, err)
	}
	ctrl = c.port.SetField(ctrl, c.regs.RxDesiredField, code)
	ctrl = c.port.SetField(ctrl, c.regs.TxDesiredField, code)

	idleWord, err := c.port.Read(c.regs.IdleCount, idx)
	if err != nil {
		return linkerr.Register(op, id, err)
	}
	idleWord = c.port.SetField(idleWord, c.regs.IdleEnableField, idle)

	if c.profile.Has(generation.CapCombinedPowerWrite) {
		// The idle counter restarts on every control write, so desired
		// state and disable bits go out together.
		ctrl = c.port.SetField(ctrl, c.regs.RxHwDisableField, disable)
		ctrl = c.port.SetField(ctrl, c.regs.TxHwDisableField, disable)
		if err := c.port.Write(c.regs.IdleCount, idx, idleWord); err != nil {
			return linkerr.Register(op, id, err)
		}
		if err := c.port.Write(c.regs.Control, idx, ctrl); err != nil {
			return linkerr.Register(op, id, err)
		}
	} else {
		if err := c.port.Write(c.regs.Control, idx, ctrl); err != nil {
			return linkerr.Register(op, id, err)
		}
		if err := c.port.Write(c.regs.IdleCount, idx, idleWord); err != nil {
			return linkerr.Register(op, id, err)
		}
		dis, err := c.port.Read(c.regs.Disable, idx)
		if err != nil {
			return linkerr.Register(op, id, err)
		}
		dis = c.port.SetField(dis, c.regs.RxHwDisableField, disable)
		dis = c.port.SetField(dis, c.regs.TxHwDisableField, disable)
		if err := c.port.Write(c.regs.Disable, idx, dis); err != nil {
			return linkerr.Register(op, id, err)
		}
	}

	c.debug("power state requested", "link", id, "target", target, "hwControlled", hwControlled)
	return nil
}

// GetLinkPowerStateStatus reads the configured and current state of both
// sub-links. It has no side effects.
func (c *Controller) GetLinkPowerStateStatus(id model.LinkID) (model.PowerStateStatus, error) {
	const op = "GetLinkPowerStateStatus"

	if _, err := c.checkLink(op, id); err != nil {
		return model.PowerStateStatus{}, err
	}
	if err := c.checkRead(op, id, c.regs.Control, c.regs.Disable, c.regs.Status); err != nil {
		return model.PowerStateStatus{}, err
	}

	idx := regport.Link(id)

	c.lock.Lock()
	defer c.lock.Unlock()

	var words [3]uint32
	for i, reg := range []string{c.regs.Control, c.regs.Disable, c.regs.Status} {
		w, err := c.port.Read(reg, idx)
		if err != nil {
			return model.PowerStateStatus{}, linkerr.Register(op, id, err)
		}
		words[i] = w
	}
	ctrl, dis, st := words[0], words[1], words[2]

	sub := func(desired, disable, current string) model.SubLinkPower {
		return model.SubLinkPower{
			HardwareControlled: c.port.GetField(dis, disable) == 0,
			Current:            c.state(c.port.GetField(st, current)),
			Configured:         c.state(c.port.GetField(ctrl, desired)),
		}
	}
	return model.PowerStateStatus{
		Rx: sub(c.regs.RxDesiredField, c.regs.RxHwDisableField, c.regs.RxStateField),
		Tx: sub(c.regs.TxDesiredField, c.regs.TxHwDisableField, c.regs.TxStateField),
	}, nil
}

// GetLowPowerEntryTimeMs returns the idle time after which a sub-link
// enters low power, derived from the idle threshold and the link clock.
// Inactive links report 0.
func (c *Controller) GetLowPowerEntryTimeMs(id model.LinkID, dir model.Direction) (float64, error) {
	const op = "GetLowPowerEntryTimeMs"

	link, err := c.checkLink(op, id)
	if err != nil {
		return 0, err
	}
	if !link.Active {
		return 0, nil
	}
	if !c.profile.Has(generation.CapLowPower) {
		return 0, linkerr.NotSupported(op, id, "low-power state not available on %s", c.profile.Tag())
	}
	field := c.regs.RxThresholdField
	switch dir {
	case model.DirRx:
	case model.DirTx:
		field = c.regs.TxThresholdField
	default:
		return 0, linkerr.Invalid(op, id, dir, "invalid direction")
	}
	if link.LinkClockMHz == 0 {
		return 0, linkerr.Fault(op, id, "active link reports zero link clock")
	}
	if err := c.checkRead(op, id, c.regs.Threshold); err != nil {
		return 0, err
	}

	c.lock.Lock()
	th, err := regport.ReadField(c.port, c.regs.Threshold, regport.Link(id), field)
	c.lock.Unlock()
	if err != nil {
		return 0, linkerr.Register(op, id, err)
	}

	cycles := float64(th) * float64(c.profile.LowPowerThresholdUnit())
	return cycles / (float64(link.LinkClockMHz) * 1000), nil
}

// GetLowPowerCounts returns the low-power entry and exit counts of a link:
// live hardware counts plus those saved across entangled clears.
func (c *Controller) GetLowPowerCounts(id model.LinkID) (model.LowPowerCounts, error) {
	const op = "GetLowPowerCounts"

	if _, err := c.checkLink(op, id); err != nil {
		return model.LowPowerCounts{}, err
	}
	if err := c.checkRead(op, id, c.regs.EntryCount, c.regs.ExitCount); err != nil {
		return model.LowPowerCounts{}, err
	}

	idx := regport.Link(id)

	c.lock.Lock()
	defer c.lock.Unlock()

	entries, err := c.port.Read(c.regs.EntryCount, idx)
	if err != nil {
		return model.LowPowerCounts{}, linkerr.Register(op, id, err)
	}
	exits, err := c.port.Read(c.regs.ExitCount, idx)
	if err != nil {
		return model.LowPowerCounts{}, linkerr.Register(op, id, err)
	}
	live := model.LowPowerCounts{Entries: uint64(entries), Exits: uint64(exits)}
	return live.Add(c.store.SavedLowPowerCountsLocked(id)), nil
}

// ClearLowPowerCounts clears the low-power counters of a link. Where the
// clear also destroys the error counters, they are cached in the counter
// store first.
func (c *Controller) ClearLowPowerCounts(ctx context.Context, id model.LinkID) error {
	const op = "ClearLowPowerCounts"

	if _, err := c.checkLink(op, id); err != nil {
		return err
	}
	if err := c.checkWrite(op, id, c.regs.CountClear); err != nil {
		return err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	entangled := c.profile.Has(generation.CapEntangledPowerCounters)
	var live model.CounterSet
	if entangled {
		var err error
		if live, err = c.store.ReadLiveLocked(ctx, id); err != nil {
			return err
		}
	}
	if err := c.port.Write(c.regs.CountClear, regport.Link(id), 1); err != nil {
		return linkerr.Register(op, id, err)
	}
	if entangled {
		c.store.AddCachedLocked(id, live)
	}
	c.store.ResetLowPowerCacheLocked(id)

	c.debug("low-power counters cleared", "link", id)
	return nil
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
