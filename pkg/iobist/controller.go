package iobist

import (
	"log/slog"
	"sync"

	"github.com/linkval/nvldiag/pkg/generation"
	"github.com/linkval/nvldiag/pkg/linkerr"
	"github.com/linkval/nvldiag/pkg/model"
	"github.com/linkval/nvldiag/pkg/regport"
	"github.com/linkval/nvldiag/pkg/topology"
)

// Config configures a Controller.
type Config struct {
	// Logger is the optional logger. Nil disables logging.
	Logger *slog.Logger
}

// Settings is the self-test configuration of one link.
type Settings struct {
	Type      model.IobistType `json:"type"`
	Time      model.IobistTime `json:"time"`
	Initiator bool             `json:"initiator"`
}

// Controller is the self-test controller of one device.
type Controller struct {
	topo    *topology.Topology
	profile *generation.Profile
	regs    generation.IobistRegs
	port    regport.Port
	lock    sync.Locker
	logger  *slog.Logger
}

// New creates a controller. lock is the device mutex shared by all components.
func New(topo *topology.Topology, port regport.Port, lock sync.Locker, cfg Config) *Controller {
	return &Controller{
		topo:    topo,
		profile: topo.Profile(),
		regs:    topo.Profile().IobistRegs(),
		port:    port,
		lock:    lock,
		logger:  cfg.Logger,
	}
}

func (c *Controller) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Controller) check(op string, mask model.LinkMask) error {
	if !c.profile.Has(generation.CapIobist) {
		return linkerr.New(linkerr.Unsupported, op, "IOBIST not available on %s", c.profile.Tag())
	}
	return c.topo.CheckMask(op, mask)
}

func (c *Controller) checkAccess(op string, mask model.LinkMask, write bool) error {
	var err error
	mask.ForEach(func(id model.LinkID) {
		if err != nil {
			return
		}
		if write && !c.port.HasWriteAccess(c.regs.Control, regport.Link(id)) {
			err = linkerr.Privilege(op, id, c.regs.Control)
		}
		if !write && !c.port.HasReadAccess(c.regs.Status, regport.Link(id)) {
			err = linkerr.Privilege(op, id, c.regs.Status)
		}
	})
	return err
}

// setField writes value into field of the control register of every link
// in mask. Validation must be complete.
func (c *Controller) setField(op string, mask model.LinkMask, field string, value uint32) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	for _, id := range mask.Links() {
		err := regport.Modify(c.port, c.regs.Control, regport.Link(id), func(w uint32) uint32 {
			return c.port.SetField(w, field, value)
		})
		if err != nil {
			return linkerr.Register(op, id, err)
		}
	}
	return nil
}

// SetType selects when the self-test runs on the links of mask.
func (c *Controller) SetType(mask model.LinkMask, typ model.IobistType) error {
	const op = "SetIobistType"

	if err := c.check(op, mask); err != nil {
		return err
	}
	code, ok := c.regs.TypeCodes[typ]
	if !ok {
		return linkerr.New(linkerr.InvalidArgument, op, "invalid IOBIST type %d", typ).WithValue(typ)
	}
	if err := c.checkAccess(op, mask, true); err != nil {
		return err
	}
	if err := c.setField(op, mask, c.regs.TypeField, code); err != nil {
		return err
	}
	c.debug("iobist type set", "links", mask.String(), "type", typ)
	return nil
}

// SetTime selects the self-test duration on the links of mask. The long
// durations are only valid on AC-coupled links; if any link of mask is
// not AC-coupled nothing is written.
func (c *Controller) SetTime(mask model.LinkMask, t model.IobistTime) error {
	const op = "SetIobistTime"

	if err := c.check(op, mask); err != nil {
		return err
	}
	code, ok := c.regs.TimeCodes[t]
	if !ok {
		return linkerr.New(linkerr.InvalidArgument, op, "invalid IOBIST time %d", t).WithValue(t)
	}
	if t.RequiresAcCoupling() {
		for _, id := range mask.Links() {
			if !c.topo.IsAcCoupled(id) {
				return linkerr.Invalid(op, id, t, "IOBIST time %s requires an AC-coupled link", t)
			}
		}
	}
	if err := c.checkAccess(op, mask, true); err != nil {
		return err
	}
	if err := c.setField(op, mask, c.regs.TimeField, code); err != nil {
		return err
	}
	c.debug("iobist time set", "links", mask.String(), "time", t)
	return nil
}

// SetInitiator sets whether the links of mask initiate the self-test.
func (c *Controller) SetInitiator(mask model.LinkMask, initiator bool) error {
	const op = "SetIobistInitiator"

	if err := c.check(op, mask); err != nil {
		return err
	}
	if err := c.checkAccess(op, mask, true); err != nil {
		return err
	}
	v := uint32(0)
	if initiator {
		v = 1
	}
	if err := c.setField(op, mask, c.regs.InitiatorField, v); err != nil {
		return err
	}
	c.debug("iobist initiator set", "links", mask.String(), "initiator", initiator)
	return nil
}

// GetSettings reads back the self-test configuration of a link.
func (c *Controller) GetSettings(id model.LinkID) (Settings, error) {
	const op = "GetIobistSettings"

	if err := c.check(op, model.MaskOf(id)); err != nil {
		return Settings{}, err
	}
	if !c.port.HasReadAccess(c.regs.Control, regport.Link(id)) {
		return Settings{}, linkerr.Privilege(op, id, c.regs.Control)
	}

	c.lock.Lock()
	w, err := c.port.Read(c.regs.Control, regport.Link(id))
	c.lock.Unlock()
	if err != nil {
		return Settings{}, linkerr.Register(op, id, err)
	}

	s := Settings{Initiator: c.port.GetField(w, c.regs.InitiatorField) != 0}
	typ, ok := lookup(c.regs.TypeCodes, c.port.GetField(w, c.regs.TypeField))
	if !ok {
		return Settings{}, linkerr.Fault(op, id, "unknown IOBIST type code %d", c.port.GetField(w, c.regs.TypeField))
	}
	s.Type = typ
	t, ok := lookup(c.regs.TimeCodes, c.port.GetField(w, c.regs.TimeField))
	if !ok {
		return Settings{}, linkerr.Fault(op, id, "unknown IOBIST time code %d", c.port.GetField(w, c.regs.TimeField))
	}
	s.Time = t
	return s, nil
}

// GetErrorFlags returns a flag for every status condition of the links of
// mask that is not asserted. Flags are ordered by link, then kind.
func (c *Controller) GetErrorFlags(mask model.LinkMask) ([]model.IobistFlag, error) {
	const op = "GetIobistErrorFlags"

	if err := c.check(op, mask); err != nil {
		return nil, err
	}
	if err := c.checkAccess(op, mask, false); err != nil {
		return nil, err
	}

	conditions := []struct {
		kind  model.IobistFlagKind
		value string
	}{
		{model.IobistAlignDone, c.regs.AlignDone},
		{model.IobistAlignLock, c.regs.AlignLock},
		{model.IobistScramLock, c.regs.ScramLock},
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	var flags []model.IobistFlag
	for _, id := range mask.Links() {
		for _, cond := range conditions {
			ok, err := c.port.Test(cond.value, regport.Link(id))
			if err != nil {
				return nil, linkerr.Register(op, id, err)
			}
			if !ok {
				flags = append(flags, model.IobistFlag{Link: id, Kind: cond.kind})
			}
		}
	}
	return flags, nil
}

func lookup[K comparable](codes map[K]uint32, code uint32) (K, bool) {
	for k, v := range codes {
		if v == code {
			return k, true
		}
	}
	var zero K
	return zero, false
}
