package commands

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/linkval/nvldiag/pkg/fleet"
	"github.com/linkval/nvldiag/pkg/report"
)

// RunSweep runs plan on every device of f, prints a summary and saves the
// snapshot to store if it is not nil.
func RunSweep(ctx context.Context, f *fleet.Fleet, plan fleet.Plan, store *report.Store, w io.Writer) (*report.Snapshot, error) {
	snap, err := f.Sweep(ctx, plan)
	if err != nil {
		return nil, err
	}
	if err := PrintSnapshot(snap, w); err != nil {
		return nil, err
	}
	if store != nil {
		if err := store.Save(snap); err != nil {
			return nil, fmt.Errorf("saving report: %w", err)
		}
		fmt.Fprintf(w, "\nReport saved to %s\n", store.Path())
	}
	return snap, nil
}

// PrintSnapshot writes a per-link summary of snap.
func PrintSnapshot(snap *report.Snapshot, w io.Writer) error {
	fmt.Fprintf(w, "Sweep %s: %d devices, %d violations\n\n", shortenID(snap.ID), len(snap.Devices), snap.Violations())

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DEVICE\tGEN\tLINK\tSTATE\tERRORS\tVIOLATIONS\tPOWER\tEOM\tNOTES")
	for _, d := range snap.Devices {
		if d.Error != "" && len(d.Links) == 0 {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\t-\t-\t-\t%s\n", d.DeviceID, d.Generation, d.Error)
			continue
		}
		for _, l := range d.Links {
			state := "down"
			if l.Link.Active {
				state = "active"
			}
			power := "-"
			if l.Power != nil {
				power = l.Power.Rx.Current.String() + "/" + l.Power.Tx.Current.String()
			}
			eom := "-"
			if len(l.EomCodes) > 0 {
				codes := make([]string, len(l.EomCodes))
				for i, c := range l.EomCodes {
					codes[i] = fmt.Sprintf("%02x", c)
				}
				eom = strings.Join(codes, " ")
			}
			var notes []string
			for step, msg := range l.Errors {
				notes = append(notes, step+": "+msg)
			}
			sort.Strings(notes)
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%d\t%s\t%s\t%s\n",
				d.DeviceID, d.Generation, l.Link.ID, state, l.Counts.Total(), len(l.Violations),
				power, eom, strings.Join(notes, "; "))
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, d := range snap.Devices {
		if d.Flags != nil && !d.Flags.Empty() {
			fmt.Fprintf(w, "\n%s flags:\n", d.DeviceID)
			for id, names := range d.Flags.Links {
				fmt.Fprintf(w, "  link %d: %s\n", id, strings.Join(names, ", "))
			}
			for id, names := range d.Flags.Groups {
				fmt.Fprintf(w, "  group %d: %s\n", id, strings.Join(names, ", "))
			}
		}
		if len(d.Iobist) > 0 {
			fmt.Fprintf(w, "\n%s self-test failures:\n", d.DeviceID)
			for _, f := range d.Iobist {
				fmt.Fprintf(w, "  link %d: %s\n", f.Link, f.Kind)
			}
		}
		if d.Error != "" && len(d.Links) > 0 {
			fmt.Fprintf(w, "\n%s: %s\n", d.DeviceID, d.Error)
		}
	}
	return nil
}
