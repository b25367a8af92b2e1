package power

import (
	"errors"

	"github.com/linkval/nvldiag/internal/poll"
	"github.com/linkval/nvldiag/pkg/generation"
	"github.com/linkval/nvldiag/pkg/linkerr"
	"github.com/linkval/nvldiag/pkg/model"
	"github.com/linkval/nvldiag/pkg/regport"
)

// StartPowerStateToggle forces a link to toggle between full bandwidth and
// low power, dwelling inCount and outCount idle-threshold units in each.
// It waits until hardware reports toggling active. If that is never
// observed, toggling is disabled again before the Timeout is returned.
func (c *Controller) StartPowerStateToggle(id model.LinkID, inCount, outCount uint32) error {
	const op = "StartPowerStateToggle"

	link, err := c.checkToggle(op, id)
	if err != nil {
		return err
	}
	if !link.Active {
		return linkerr.NotSupported(op, id, "toggling requires an active link (state %s)", link.State)
	}
	if inCount == 0 {
		return linkerr.Invalid(op, id, inCount, "in count must be positive")
	}
	if outCount == 0 {
		return linkerr.Invalid(op, id, outCount, "out count must be positive")
	}
	if err := c.checkWrite(op, id, c.regs.Toggle); err != nil {
		return err
	}

	idx := regport.Link(id)

	c.lock.Lock()
	defer c.lock.Unlock()

	var w uint32
	w = c.port.SetField(w, c.regs.ToggleInCountField, inCount)
	w = c.port.SetField(w, c.regs.ToggleOutCountField, outCount)
	w = c.port.SetField(w, c.regs.ToggleEnableField, 1)
	if err := c.port.Write(c.regs.Toggle, idx, w); err != nil {
		return linkerr.Register(op, id, err)
	}

	polls, err := poll.Until(c.profile.ToggleConfirmTimeout(), c.poll, func() (bool, error) {
		return c.port.Test(c.regs.ToggleActive, idx)
	})
	if err != nil {
		if cerr := c.disableToggle(idx); cerr != nil {
			c.debug("toggle cleanup failed", "link", id, "error", cerr)
		}
		if errors.Is(err, poll.ErrTimeout) {
			return linkerr.TimedOut(op, id, "toggle active", polls)
		}
		return linkerr.Register(op, id, err)
	}

	c.debug("power toggling started", "link", id, "in", inCount, "out", outCount, "polls", polls)
	return nil
}

// StopPowerStateToggle disables forced toggling and waits until hardware
// reports it inactive.
func (c *Controller) StopPowerStateToggle(id model.LinkID) error {
	const op = "StopPowerStateToggle"

	if _, err := c.checkToggle(op, id); err != nil {
		return err
	}
	if err := c.checkWrite(op, id, c.regs.Toggle); err != nil {
		return err
	}

	idx := regport.Link(id)

	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.disableToggle(idx); err != nil {
		return linkerr.Register(op, id, err)
	}
	polls, err := poll.Until(c.profile.ToggleConfirmTimeout(), c.poll, func() (bool, error) {
		active, err := c.port.Test(c.regs.ToggleActive, idx)
		return !active, err
	})
	if errors.Is(err, poll.ErrTimeout) {
		return linkerr.TimedOut(op, id, "toggle inactive", polls)
	}
	return linkerr.Register(op, id, err)
}

func (c *Controller) checkToggle(op string, id model.LinkID) (model.Link, error) {
	if !c.profile.Has(generation.CapPowerToggle) {
		return model.Link{}, linkerr.NotSupported(op, id, "power toggling not available on %s", c.profile.Tag())
	}
	return c.checkLink(op, id)
}

// disableToggle clears the toggle enable bit. Must hold the device lock.
func (c *Controller) disableToggle(idx regport.Index) error {
	return regport.Modify(c.port, c.regs.Toggle, idx, func(w uint32) uint32 {
		return c.port.SetField(w, c.regs.ToggleEnableField, 0)
	})
}
