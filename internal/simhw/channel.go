package simhw

import (
	"context"
	"sort"

	"github.com/linkval/nvldiag/pkg/ctrlchan"
	"github.com/linkval/nvldiag/pkg/generation"
	"github.com/linkval/nvldiag/pkg/model"
	"github.com/linkval/nvldiag/pkg/regport"
)

// Channel operation names, for FailNext and Calls.
const (
	OpDiscoverLinks      = "DiscoverLinks"
	OpGetLinkStatus      = "GetLinkStatus"
	OpGetErrorCounters   = "GetErrorCounters"
	OpClearCounters      = "ClearCounters"
	OpGetErrorRecoveries = "GetErrorRecoveries"
	OpSetupEom           = "SetupEom"
)

// begin records a call and returns an injected failure, if any.
// Must be called with d.mu held.
func (d *Device) begin(ctx context.Context, c Call) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.calls = append(d.calls, c)
	if err, ok := d.failures[c.Op]; ok {
		delete(d.failures, c.Op)
		return err
	}
	return nil
}

// DiscoverLinks implements ctrlchan.Channel.
func (d *Device) DiscoverLinks(ctx context.Context) (model.LinkMask, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin(ctx, Call{Op: OpDiscoverLinks}); err != nil {
		return 0, err
	}
	var mask model.LinkMask
	for id := range d.links {
		mask = mask.Set(id)
	}
	return mask, nil
}

// GetLinkStatus implements ctrlchan.Channel.
func (d *Device) GetLinkStatus(ctx context.Context) ([]ctrlchan.LinkStatus, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin(ctx, Call{Op: OpGetLinkStatus}); err != nil {
		return nil, err
	}
	status := make([]ctrlchan.LinkStatus, 0, len(d.links))
	for _, l := range d.links {
		status = append(status, ctrlchan.LinkStatus{
			Link:         l.ID,
			State:        l.State,
			Version:      l.Version,
			SublinkWidth: l.SublinkWidth,
			LineRateMbps: l.LineRateMbps,
			LinkClockMHz: l.LinkClockMHz,
			AcCoupled:    l.AcCoupled,
			Remote:       l.Remote,
		})
	}
	sort.Slice(status, func(i, j int) bool { return status[i].Link < status[j].Link })
	return status, nil
}

// GetErrorCounters implements ctrlchan.Channel. Every requested kind the
// generation supports is reported, zero or not.
func (d *Device) GetErrorCounters(ctx context.Context, links model.LinkMask, counters model.CounterMask) (map[model.LinkID]model.CounterSet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin(ctx, Call{Op: OpGetErrorCounters, Links: links, Counters: counters}); err != nil {
		return nil, err
	}
	if d.busy > 0 {
		d.busy--
		return nil, ctrlchan.ErrBusy
	}

	supported := counters & d.profile.ErrorCounters()
	out := make(map[model.LinkID]model.CounterSet)
	var missing error
	links.ForEach(func(id model.LinkID) {
		hw, ok := d.counters[id]
		if !ok {
			missing = ErrLinkNotPresent
			return
		}
		set := make(model.CounterSet)
		for _, k := range supported.Kinds() {
			if k == model.ErrRecovery {
				continue
			}
			set[k] = hw[k]
		}
		out[id] = set
	})
	if missing != nil {
		return nil, missing
	}
	return out, nil
}

// ClearCounters implements ctrlchan.Channel. On generations with entangled
// counters the low-power entry/exit counters are cleared as well.
func (d *Device) ClearCounters(ctx context.Context, links model.LinkMask, counters model.CounterMask) error {
	d.mu.Lock()
	if err := d.begin(ctx, Call{Op: OpClearCounters, Links: links, Counters: counters}); err != nil {
		d.mu.Unlock()
		return err
	}
	if d.busy > 0 {
		d.busy--
		d.mu.Unlock()
		return ctrlchan.ErrBusy
	}
	links.ForEach(func(id model.LinkID) {
		set, ok := d.counters[id]
		if !ok {
			return
		}
		for _, k := range counters.Kinds() {
			delete(set, k)
		}
	})
	d.mu.Unlock()

	if d.profile.Has(generation.CapEntangledPowerCounters) {
		pw := d.profile.PowerRegs()
		links.ForEach(func(id model.LinkID) {
			d.file.Set(pw.EntryCount, regport.Link(id), 0)
			d.file.Set(pw.ExitCount, regport.Link(id), 0)
		})
	}
	return nil
}

// GetErrorRecoveries implements ctrlchan.Channel. Reading clears.
func (d *Device) GetErrorRecoveries(ctx context.Context, links model.LinkMask) (map[model.LinkID]uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin(ctx, Call{Op: OpGetErrorRecoveries, Links: links}); err != nil {
		return nil, err
	}
	out := make(map[model.LinkID]uint32)
	links.ForEach(func(id model.LinkID) {
		out[id] = d.recoveries[id]
		d.recoveries[id] = 0
	})
	return out, nil
}

// SetupEom implements ctrlchan.Channel.
func (d *Device) SetupEom(ctx context.Context, link model.LinkID, encoded uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin(ctx, Call{Op: OpSetupEom, Link: link, Value: encoded}); err != nil {
		return err
	}
	if _, ok := d.links[link]; !ok {
		return ErrLinkNotPresent
	}
	d.eomSetup[link] = encoded
	return nil
}

// Compile-time interface satisfaction check.
var _ ctrlchan.Channel = (*Device)(nil)
