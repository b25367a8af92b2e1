package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/linkval/nvldiag/pkg/generation"
	"github.com/linkval/nvldiag/pkg/model"
)

// RunProfiles lists the generations of table.
func RunProfiles(table *generation.Table, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TAG\tNAME\tCHAIN\tLINKS\tLANES\tCAPABILITIES")
	for _, tag := range table.Tags() {
		p, err := table.Lookup(tag)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			p.Tag(), p.Name(), chain(p), p.MaxLinks(), p.LanesPerLink(), p.Caps())
	}
	return tw.Flush()
}

// RunProfile prints the resolved values of one generation.
func RunProfile(table *generation.Table, tag string, w io.Writer) error {
	p, err := table.Lookup(generation.Tag(tag))
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s (%s)\n", p.Name(), p.Tag())
	fmt.Fprintf(w, "  Chain:          %s\n", chain(p))
	fmt.Fprintf(w, "  Overrides:      %s\n", strings.Join(p.Overrides(), ", "))
	fmt.Fprintf(w, "  Links:          %d (%d per group, %d lanes)\n", p.MaxLinks(), p.LinksPerGroup(), p.LanesPerLink())
	fmt.Fprintf(w, "  Capabilities:   %s\n", p.Caps())

	var kinds []string
	for _, k := range p.ErrorCounters().Kinds() {
		kinds = append(kinds, k.String())
	}
	fmt.Fprintf(w, "  Counters:       %s\n", strings.Join(kinds, ", "))

	if p.Has(generation.CapEom) {
		var modes []string
		for _, m := range p.EomModes() {
			modes = append(modes, m.String())
		}
		fmt.Fprintf(w, "  EOM modes:      %s\n", strings.Join(modes, ", "))
		fmt.Fprintf(w, "  EOM timeout:    %s\n", p.EomPollTimeout())
	}
	if p.Has(generation.CapPowerToggle) {
		fmt.Fprintf(w, "  Toggle timeout: %s\n", p.ToggleConfirmTimeout())
	}
	fmt.Fprintf(w, "  Busy retries:   %d every %s\n", p.CounterBusyRetries(), p.CounterBusyInterval())

	fmt.Fprintln(w, "  Thresholds:")
	for _, k := range model.ErrorKinds() {
		th, ok := p.Threshold(k)
		if !ok {
			continue
		}
		fmt.Fprintf(w, "    %-20s count %d, rate %g\n", k.String(), th.Count, th.Rate)
	}
	return nil
}

func chain(p *generation.Profile) string {
	tags := p.Chain()
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = string(t)
	}
	return strings.Join(names, " > ")
}
