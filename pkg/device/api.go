package device

import (
	"context"
	"time"

	"github.com/linkval/nvldiag/pkg/counters"
	"github.com/linkval/nvldiag/pkg/eom"
	"github.com/linkval/nvldiag/pkg/iobist"
	diaglog "github.com/linkval/nvldiag/pkg/log"
	"github.com/linkval/nvldiag/pkg/model"
)

// The methods below are the caller-facing API. Each resolves its
// component, runs the operation and records it in the event trace.

func (d *Device) record(c diaglog.Component, link *uint32, op string, start time.Time, err error, payload any) {
	d.trace.Operation(c, link, op, time.Since(start), err, payload)
}

// GetErrorCounts returns the accumulated error counters of a link.
func (d *Device) GetErrorCounts(ctx context.Context, id model.LinkID) (model.CounterSet, error) {
	start := time.Now()
	s, err := d.Counters()
	if err != nil {
		return nil, err
	}
	counts, err := s.GetErrorCounts(ctx, id)
	d.record(diaglog.ComponentCounters, diaglog.LinkRef(id), "GetErrorCounts", start, err, nil)
	if err == nil {
		d.trace.Counters(id, counts, false)
	}
	return counts, err
}

// ClearHwErrorCounts caches and clears the hardware counters of a link.
func (d *Device) ClearHwErrorCounts(ctx context.Context, id model.LinkID) error {
	start := time.Now()
	s, err := d.Counters()
	if err != nil {
		return err
	}
	err = s.ClearHwErrorCounts(ctx, id)
	d.record(diaglog.ComponentCounters, diaglog.LinkRef(id), "ClearHwErrorCounts", start, err, nil)
	return err
}

// CheckThresholds reads the counters of a link and compares them with the
// generation's thresholds over the given observation window.
func (d *Device) CheckThresholds(ctx context.Context, id model.LinkID, elapsed time.Duration) ([]counters.Violation, error) {
	const op = "CheckThresholds"

	topo, err := d.Topology()
	if err != nil {
		return nil, err
	}
	link, err := topo.Link(op, id)
	if err != nil {
		return nil, err
	}
	counts, err := d.GetErrorCounts(ctx, id)
	if err != nil {
		return nil, err
	}
	s, err := d.Counters()
	if err != nil {
		return nil, err
	}
	return s.CheckThresholds(link, counts, elapsed), nil
}

// GetErrorFlags reads and decodes the status blocks of the device.
func (d *Device) GetErrorFlags(ctx context.Context) (model.ErrorFlagSet, error) {
	start := time.Now()
	dec, err := d.Flags()
	if err != nil {
		return model.ErrorFlagSet{}, err
	}
	set, err := dec.GetErrorFlags(ctx)
	d.record(diaglog.ComponentFlags, nil, "GetErrorFlags", start, err, nil)
	return set, err
}

// ClearErrorFlags clears all asserted status bits of the device.
func (d *Device) ClearErrorFlags(ctx context.Context) error {
	start := time.Now()
	dec, err := d.Flags()
	if err != nil {
		return err
	}
	err = dec.ClearErrorFlags(ctx)
	d.record(diaglog.ComponentFlags, nil, "ClearErrorFlags", start, err, nil)
	return err
}

// RequestPowerState requests a power state for a link.
func (d *Device) RequestPowerState(id model.LinkID, target model.PowerState, hwControlled bool) error {
	start := time.Now()
	c, err := d.PowerState()
	if err != nil {
		return err
	}
	var old string
	if st, serr := c.GetLinkPowerStateStatus(id); serr == nil {
		old = st.Tx.Configured.String()
	}
	err = c.RequestPowerState(id, target, hwControlled)
	d.record(diaglog.ComponentPower, diaglog.LinkRef(id), "RequestPowerState", start, err, nil)
	if err == nil {
		reason := "software"
		if hwControlled {
			reason = "hardware controlled"
		}
		d.trace.State(diaglog.StateEntityPower, diaglog.LinkRef(id), old, target.String(), reason)
	}
	return err
}

// GetLinkPowerStateStatus returns the power state of a link.
func (d *Device) GetLinkPowerStateStatus(id model.LinkID) (model.PowerStateStatus, error) {
	start := time.Now()
	c, err := d.PowerState()
	if err != nil {
		return model.PowerStateStatus{}, err
	}
	st, err := c.GetLinkPowerStateStatus(id)
	d.record(diaglog.ComponentPower, diaglog.LinkRef(id), "GetLinkPowerStateStatus", start, err, nil)
	return st, err
}

// GetLowPowerEntryTimeMs returns the idle time before a sub-link enters
// low power.
func (d *Device) GetLowPowerEntryTimeMs(id model.LinkID, dir model.Direction) (float64, error) {
	start := time.Now()
	c, err := d.PowerState()
	if err != nil {
		return 0, err
	}
	ms, err := c.GetLowPowerEntryTimeMs(id, dir)
	d.record(diaglog.ComponentPower, diaglog.LinkRef(id), "GetLowPowerEntryTimeMs", start, err, nil)
	return ms, err
}

// StartPowerStateToggle starts hardware power-state toggling on a link.
func (d *Device) StartPowerStateToggle(id model.LinkID, inCount, outCount uint32) error {
	start := time.Now()
	c, err := d.PowerState()
	if err != nil {
		return err
	}
	err = c.StartPowerStateToggle(id, inCount, outCount)
	d.record(diaglog.ComponentPower, diaglog.LinkRef(id), "StartPowerStateToggle", start, err, nil)
	return err
}

// StopPowerStateToggle stops power-state toggling on a link.
func (d *Device) StopPowerStateToggle(id model.LinkID) error {
	start := time.Now()
	c, err := d.PowerState()
	if err != nil {
		return err
	}
	err = c.StopPowerStateToggle(id)
	d.record(diaglog.ComponentPower, diaglog.LinkRef(id), "StopPowerStateToggle", start, err, nil)
	return err
}

// GetLowPowerCounts returns the low-power entry and exit counts of a link.
func (d *Device) GetLowPowerCounts(id model.LinkID) (model.LowPowerCounts, error) {
	start := time.Now()
	c, err := d.PowerState()
	if err != nil {
		return model.LowPowerCounts{}, err
	}
	counts, err := c.GetLowPowerCounts(id)
	d.record(diaglog.ComponentPower, diaglog.LinkRef(id), "GetLowPowerCounts", start, err, nil)
	return counts, err
}

// ClearLowPowerCounts clears the low-power counts of a link.
func (d *Device) ClearLowPowerCounts(ctx context.Context, id model.LinkID) error {
	start := time.Now()
	c, err := d.PowerState()
	if err != nil {
		return err
	}
	err = c.ClearLowPowerCounts(ctx, id)
	d.record(diaglog.ComponentPower, diaglog.LinkRef(id), "ClearLowPowerCounts", start, err, nil)
	return err
}

// GetEomStatus runs an eye measurement and returns one code per lane.
func (d *Device) GetEomStatus(ctx context.Context, id model.LinkID, req eom.Request) ([]uint8, error) {
	res, err := d.MeasureEom(ctx, id, req)
	if err != nil {
		return nil, err
	}
	return res.Codes, nil
}

// MeasureEom runs an eye measurement and returns the detailed result.
func (d *Device) MeasureEom(ctx context.Context, id model.LinkID, req eom.Request) (eom.Result, error) {
	start := time.Now()
	e, err := d.Eom()
	if err != nil {
		return eom.Result{}, err
	}
	res, err := e.Measure(ctx, id, req)
	var payload any
	if err == nil {
		payload = res.Codes
	}
	d.record(diaglog.ComponentEom, diaglog.LinkRef(id), "GetEomStatus", start, err, payload)
	return res, err
}

// SetIobistType selects the self-test pattern on the masked links.
func (d *Device) SetIobistType(mask model.LinkMask, typ model.IobistType) error {
	start := time.Now()
	c, err := d.Iobist()
	if err != nil {
		return err
	}
	err = c.SetType(mask, typ)
	d.record(diaglog.ComponentIobist, nil, "SetIobistType", start, err, nil)
	if err == nil {
		d.iobistState(mask, "type", typ.String())
	}
	return err
}

// SetIobistTime selects the self-test duration on the masked links.
func (d *Device) SetIobistTime(mask model.LinkMask, t model.IobistTime) error {
	start := time.Now()
	c, err := d.Iobist()
	if err != nil {
		return err
	}
	err = c.SetTime(mask, t)
	d.record(diaglog.ComponentIobist, nil, "SetIobistTime", start, err, nil)
	if err == nil {
		d.iobistState(mask, "time", t.String())
	}
	return err
}

// SetIobistInitiator selects the self-test role on the masked links.
func (d *Device) SetIobistInitiator(mask model.LinkMask, initiator bool) error {
	start := time.Now()
	c, err := d.Iobist()
	if err != nil {
		return err
	}
	err = c.SetInitiator(mask, initiator)
	d.record(diaglog.ComponentIobist, nil, "SetIobistInitiator", start, err, nil)
	if err == nil {
		role := "responder"
		if initiator {
			role = "initiator"
		}
		d.iobistState(mask, "role", role)
	}
	return err
}

func (d *Device) iobistState(mask model.LinkMask, setting, value string) {
	mask.ForEach(func(id model.LinkID) {
		d.trace.State(diaglog.StateEntityIobist, diaglog.LinkRef(id), "", value, setting)
	})
}

// GetIobistSettings returns the self-test configuration of a link.
func (d *Device) GetIobistSettings(id model.LinkID) (iobist.Settings, error) {
	start := time.Now()
	c, err := d.Iobist()
	if err != nil {
		return iobist.Settings{}, err
	}
	s, err := c.GetSettings(id)
	d.record(diaglog.ComponentIobist, diaglog.LinkRef(id), "GetIobistSettings", start, err, nil)
	return s, err
}

// GetIobistErrorFlags returns the self-test failures on the masked links.
func (d *Device) GetIobistErrorFlags(mask model.LinkMask) ([]model.IobistFlag, error) {
	start := time.Now()
	c, err := d.Iobist()
	if err != nil {
		return nil, err
	}
	flags, err := c.GetErrorFlags(mask)
	d.record(diaglog.ComponentIobist, nil, "GetIobistErrorFlags", start, err, nil)
	return flags, err
}
