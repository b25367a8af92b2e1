package fleet

import (
	"context"
	"errors"
	"time"

	"github.com/linkval/nvldiag/pkg/device"
	"github.com/linkval/nvldiag/pkg/eom"
	"github.com/linkval/nvldiag/pkg/linkerr"
	"github.com/linkval/nvldiag/pkg/report"
)

// Plan selects what a sweep does on every link.
type Plan struct {
	// Window is the observation window for threshold rate checks. Zero
	// checks absolute counts only.
	Window time.Duration

	// Eom, if set, runs an eye measurement on every active link.
	Eom *eom.Request

	// Iobist reads self-test failures on generations that support it.
	Iobist bool

	// ClearCounters clears hardware counters after reading them. The
	// accumulated values are kept by the device.
	ClearCounters bool
}

// Sweep runs plan on every device and collects the results. Per-device and
// per-link failures are recorded in the snapshot, so a sweep only fails
// when ctx is cancelled.
func (f *Fleet) Sweep(ctx context.Context, plan Plan) (*report.Snapshot, error) {
	snap := report.NewSnapshot()
	reports := make(chan report.DeviceReport, f.Len())

	err := f.Each(ctx, func(ctx context.Context, d *device.Device) error {
		r := sweepDevice(ctx, d, plan)
		reports <- r
		return ctx.Err()
	})
	close(reports)
	for r := range reports {
		snap.Add(r)
	}
	return snap, err
}

func sweepDevice(ctx context.Context, d *device.Device, plan Plan) report.DeviceReport {
	r := report.DeviceReport{
		DeviceID:   d.ID(),
		Generation: string(d.Profile().Tag()),
		Platform:   d.Platform().String(),
		SessionID:  d.SessionID(),
	}
	topo, err := d.Topology()
	if err != nil {
		r.Error = err.Error()
		return r
	}

	for _, link := range topo.Links() {
		lr := report.LinkReport{Link: link}

		if counts, err := d.GetErrorCounts(ctx, link.ID); err != nil {
			lr.Fail("counters", err)
		} else {
			lr.Counts = counts
		}
		if v, err := d.CheckThresholds(ctx, link.ID, plan.Window); err != nil {
			lr.Fail("thresholds", err)
		} else {
			lr.Violations = v
		}

		if link.Active {
			if st, err := d.GetLinkPowerStateStatus(link.ID); err == nil {
				lr.Power = &st
			} else if !unsupported(err) {
				lr.Fail("power", err)
			}
			if plan.Eom != nil {
				if codes, err := d.GetEomStatus(ctx, link.ID, *plan.Eom); err == nil {
					for _, c := range codes {
						lr.EomCodes = append(lr.EomCodes, int(c))
					}
				} else if !unsupported(err) {
					lr.Fail("eom", err)
				}
			}
		}

		if plan.ClearCounters {
			if err := d.ClearHwErrorCounts(ctx, link.ID); err != nil {
				lr.Fail("clear", err)
			}
		}
		r.Links = append(r.Links, lr)
	}

	if flags, err := d.GetErrorFlags(ctx); err == nil {
		r.Flags = &flags
	} else if r.Error == "" {
		r.Error = err.Error()
	}
	if plan.Iobist {
		flags, err := d.GetIobistErrorFlags(topo.ValidMask())
		switch {
		case err == nil:
			r.Iobist = flags
		case !unsupported(err) && r.Error == "":
			r.Error = err.Error()
		}
	}
	return r
}

func unsupported(err error) bool {
	return errors.Is(err, linkerr.Unsupported)
}
