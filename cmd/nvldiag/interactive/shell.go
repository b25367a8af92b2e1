// Package interactive provides the interactive shell of nvldiag.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/linkval/nvldiag/internal/simhw"
	"github.com/linkval/nvldiag/pkg/device"
	"github.com/linkval/nvldiag/pkg/eom"
	"github.com/linkval/nvldiag/pkg/fleet"
	"github.com/linkval/nvldiag/pkg/model"
	"github.com/linkval/nvldiag/pkg/privilege"
)

var errUsage = errors.New("usage")

// Shell runs diagnostic commands against the devices of a fleet.
type Shell struct {
	fleet *fleet.Fleet
	sims  map[string]*simhw.Device
	out   io.Writer

	// cur is the device commands apply to.
	cur *device.Device
}

// NewShell creates a shell writing to out. The first device is selected.
func NewShell(f *fleet.Fleet, sims map[string]*simhw.Device, out io.Writer) *Shell {
	s := &Shell{fleet: f, sims: sims, out: out}
	if devs := f.Devices(); len(devs) > 0 {
		s.cur = devs[0]
	}
	return s
}

// Run starts the interactive command loop on a readline terminal.
func (s *Shell) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.prompt(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()
	s.out = rl.Stdout()

	s.printHelp()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			return nil
		}
		if s.Exec(ctx, line) {
			return nil
		}
		rl.SetPrompt(s.prompt())
	}
}

func (s *Shell) prompt() string {
	if s.cur == nil {
		return "nvldiag> "
	}
	return s.cur.ID() + "> "
}

// Exec runs one command line. It returns true when the shell should exit.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch cmd {
	case "help", "?":
		s.printHelp()
	case "devices", "ls":
		s.cmdDevices()
	case "use":
		err = s.cmdUse(args)
	case "init":
		err = s.withDevice(func(d *device.Device) error { return d.Initialize(ctx) })
	case "shutdown":
		err = s.withDevice(func(d *device.Device) error { return d.Shutdown() })
	case "links":
		err = s.withDevice(s.cmdLinks)
	case "counts":
		err = s.withLink(args, func(d *device.Device, id model.LinkID, _ []string) error {
			return s.cmdCounts(ctx, d, id)
		})
	case "clear":
		err = s.withLink(args, func(d *device.Device, id model.LinkID, _ []string) error {
			return d.ClearHwErrorCounts(ctx, id)
		})
	case "flags":
		err = s.withDevice(func(d *device.Device) error { return s.cmdFlags(ctx, d) })
	case "clearflags":
		err = s.withDevice(func(d *device.Device) error { return d.ClearErrorFlags(ctx) })
	case "power":
		err = s.withLink(args, s.cmdPower)
	case "toggle":
		err = s.withLink(args, s.cmdToggle)
	case "lowpower":
		err = s.withLink(args, s.cmdLowPower)
	case "eom":
		err = s.withLink(args, func(d *device.Device, id model.LinkID, rest []string) error {
			return s.cmdEom(ctx, d, id, rest)
		})
	case "iobist":
		err = s.withDevice(func(d *device.Device) error { return s.cmdIobist(d, args) })
	case "inject":
		err = s.withLink(args, s.cmdInject)
	case "unlock":
		err = s.withDevice(func(d *device.Device) error { return s.cmdUnlock(d, args) })
	case "quit", "exit", "q":
		fmt.Fprintln(s.out, "Exiting...")
		return true
	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
		return false
	}

	switch {
	case errors.Is(err, errUsage):
		fmt.Fprintf(s.out, "Usage: %s\n", usageOf[cmd])
	case err != nil:
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
	return false
}

var usageOf = map[string]string{
	"use":      "use <device>",
	"counts":   "counts <link>",
	"clear":    "clear <link>",
	"power":    "power <link> [full|low] [hw]",
	"toggle":   "toggle <link> start <in> <out> | toggle <link> stop",
	"lowpower": "lowpower <link> [clear|rx|tx]",
	"eom":      "eom <link> <mode> <errors> <blocks> <lanes> [first-lane]",
	"iobist":   "iobist type|time|initiator <links> <value> | iobist show <link> | iobist flags <links>",
	"inject":   "inject <link> <kind> <count>",
	"unlock":   "unlock <credential>",
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
Link Diagnostics Commands:
  Devices:
    devices                   - List devices
    use <device>              - Select the device commands apply to
    init | shutdown           - Initialize or shut down the selected device
    links                     - Show discovered links
    unlock <credential>       - Raise the register privilege level

  Counters and flags:
    counts <link>             - Show accumulated error counters
    clear <link>              - Clear hardware counters (accumulated values are kept)
    flags | clearflags        - Show or clear decoded status flags

  Power:
    power <link> [full|low] [hw]        - Show or request a power state
    toggle <link> start <in> <out>|stop - Power-state toggling
    lowpower <link> [clear|rx|tx]       - Low-power counts, or entry time

  Measurement:
    eom <link> <mode> <errors> <blocks> <lanes> [first]   - Eye opening measurement
    iobist type|time|initiator <links> <value>            - Configure self-test
    iobist show <link> | iobist flags <links>              - Inspect self-test

  Simulation:
    inject <link> <kind> <count> - Inject errors into the simulated device

  General:
    help                      - Show this help
    quit                      - Exit

  Links are ids (3) or comma-separated lists (0,1,4) where a mask is taken.`)
}

func (s *Shell) withDevice(fn func(d *device.Device) error) error {
	if s.cur == nil {
		return errors.New("no device selected")
	}
	return fn(s.cur)
}

func (s *Shell) withLink(args []string, fn func(d *device.Device, id model.LinkID, rest []string) error) error {
	if len(args) < 1 {
		return errUsage
	}
	id, err := parseLink(args[0])
	if err != nil {
		return err
	}
	return s.withDevice(func(d *device.Device) error { return fn(d, id, args[1:]) })
}

func (s *Shell) cmdDevices() {
	for _, d := range s.fleet.Devices() {
		mark := " "
		if d == s.cur {
			mark = "*"
		}
		fmt.Fprintf(s.out, "%s %-12s %-6s %-10s %-12s %s\n", mark, d.ID(), d.Profile().Tag(),
			d.Platform(), d.State(), d.Capabilities())
	}
}

func (s *Shell) cmdUse(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	d, ok := s.fleet.Get(args[0])
	if !ok {
		return fmt.Errorf("unknown device %q", args[0])
	}
	s.cur = d
	return nil
}

func (s *Shell) cmdLinks(d *device.Device) error {
	topo, err := d.Topology()
	if err != nil {
		return err
	}
	for _, l := range topo.Links() {
		fmt.Fprintf(s.out, "  link %-3d group %-2d %-9s v%d x%d %6d Mbps ac=%-5t remote %s\n",
			l.ID, l.Group, l.State, l.Version, l.SublinkWidth, l.LineRateMbps, l.AcCoupled, l.Remote)
	}
	return nil
}

func (s *Shell) cmdCounts(ctx context.Context, d *device.Device, id model.LinkID) error {
	counts, err := d.GetErrorCounts(ctx, id)
	if err != nil {
		return err
	}
	for _, k := range counts.Kinds() {
		c := counts[k]
		overflow := ""
		if c.Overflow {
			overflow = " (overflow)"
		}
		fmt.Fprintf(s.out, "  %-20s %d%s\n", k, c.Count, overflow)
	}
	return nil
}

func (s *Shell) cmdFlags(ctx context.Context, d *device.Device) error {
	set, err := d.GetErrorFlags(ctx)
	if err != nil {
		return err
	}
	if set.Empty() {
		fmt.Fprintln(s.out, "  no flags")
		return nil
	}
	for id, names := range set.Links {
		fmt.Fprintf(s.out, "  link %d: %s\n", id, strings.Join(names, ", "))
	}
	for id, names := range set.Groups {
		fmt.Fprintf(s.out, "  group %d: %s\n", id, strings.Join(names, ", "))
	}
	return nil
}

func (s *Shell) cmdPower(d *device.Device, id model.LinkID, args []string) error {
	if len(args) > 0 {
		var target model.PowerState
		switch strings.ToLower(args[0]) {
		case "full":
			target = model.PowerFullBandwidth
		case "low":
			target = model.PowerLowPower
		default:
			return errUsage
		}
		hw := len(args) > 1 && args[1] == "hw"
		if err := d.RequestPowerState(id, target, hw); err != nil {
			return err
		}
	}
	st, err := d.GetLinkPowerStateStatus(id)
	if err != nil {
		return err
	}
	for _, dir := range []model.Direction{model.DirRx, model.DirTx} {
		sub := st.Sublink(dir)
		fmt.Fprintf(s.out, "  %s current %-14s configured %-14s hw-controlled %t\n",
			dir, sub.Current, sub.Configured, sub.HardwareControlled)
	}
	return nil
}

func (s *Shell) cmdToggle(d *device.Device, id model.LinkID, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "start":
		if len(args) != 3 {
			return errUsage
		}
		in, err := parseUint(args[1])
		if err != nil {
			return err
		}
		out, err := parseUint(args[2])
		if err != nil {
			return err
		}
		return d.StartPowerStateToggle(id, in, out)
	case "stop":
		return d.StopPowerStateToggle(id)
	default:
		return errUsage
	}
}

func (s *Shell) cmdLowPower(d *device.Device, id model.LinkID, args []string) error {
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "clear":
			return d.ClearLowPowerCounts(context.Background(), id)
		case "rx", "tx":
			dir := model.DirRx
			if strings.ToLower(args[0]) == "tx" {
				dir = model.DirTx
			}
			ms, err := d.GetLowPowerEntryTimeMs(id, dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "  %s entry time %.3f ms\n", dir, ms)
			return nil
		default:
			return errUsage
		}
	}
	c, err := d.GetLowPowerCounts(id)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "  entries %d exits %d\n", c.Entries, c.Exits)
	return nil
}

func (s *Shell) cmdEom(ctx context.Context, d *device.Device, id model.LinkID, args []string) error {
	if len(args) < 4 {
		return errUsage
	}
	mode, err := model.ParseEomMode(args[0])
	if err != nil {
		return err
	}
	nums := make([]uint32, 0, 4)
	for _, a := range args[1:] {
		n, err := parseUint(a)
		if err != nil {
			return err
		}
		nums = append(nums, n)
	}
	req := eom.Request{Mode: mode, NumErrors: nums[0], NumBlocks: nums[1], NumLanes: nums[2]}
	if len(nums) > 3 {
		req.FirstLane = nums[3]
	}

	start := time.Now()
	res, err := d.MeasureEom(ctx, id, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "  settings 0x%x, arm polls %d, enable polls %d, %s\n",
		res.Settings.Encoded, res.ArmPolls, res.EnablePolls, time.Since(start).Round(time.Microsecond))
	for i, c := range res.Codes {
		fmt.Fprintf(s.out, "  lane %-2d 0x%02x\n", req.FirstLane+uint32(i), c)
	}
	if res.Simulated {
		fmt.Fprintln(s.out, "  (simulated platform)")
	}
	return nil
}

func (s *Shell) cmdIobist(d *device.Device, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	switch args[0] {
	case "show":
		id, err := parseLink(args[1])
		if err != nil {
			return err
		}
		st, err := d.GetIobistSettings(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "  type %s time %s initiator %t\n", st.Type, st.Time, st.Initiator)
		return nil
	case "flags":
		mask, err := parseMask(args[1])
		if err != nil {
			return err
		}
		flags, err := d.GetIobistErrorFlags(mask)
		if err != nil {
			return err
		}
		if len(flags) == 0 {
			fmt.Fprintln(s.out, "  no failures")
		}
		for _, f := range flags {
			fmt.Fprintf(s.out, "  link %d: %s\n", f.Link, f.Kind)
		}
		return nil
	}

	if len(args) != 3 {
		return errUsage
	}
	mask, err := parseMask(args[1])
	if err != nil {
		return err
	}
	switch args[0] {
	case "type":
		t, err := parseIobistType(args[2])
		if err != nil {
			return err
		}
		return d.SetIobistType(mask, t)
	case "time":
		t, err := parseIobistTime(args[2])
		if err != nil {
			return err
		}
		return d.SetIobistTime(mask, t)
	case "initiator":
		b, err := strconv.ParseBool(args[2])
		if err != nil {
			return err
		}
		return d.SetIobistInitiator(mask, b)
	default:
		return errUsage
	}
}

func (s *Shell) cmdInject(d *device.Device, id model.LinkID, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	sim, ok := s.sims[d.ID()]
	if !ok {
		return fmt.Errorf("device %s is not simulated", d.ID())
	}
	kind, err := model.ParseErrorKind(strings.ToUpper(args[0]))
	if err != nil {
		return err
	}
	n, err := strconv.ParseUint(args[1], 0, 64)
	if err != nil {
		return err
	}
	sim.InjectErrors(id, model.CounterSet{kind: {Count: n}})
	return nil
}

func (s *Shell) cmdUnlock(d *device.Device, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	c, err := privilege.ParseCredential(args[0])
	if err != nil {
		return err
	}
	if err := d.Unlock(c); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "  unlocked to level %d until %s\n", c.Level, c.Expires.Format(time.RFC3339))
	return nil
}

func parseUint(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return uint32(n), nil
}

func parseLink(s string) (model.LinkID, error) {
	n, err := parseUint(s)
	if err != nil {
		return 0, fmt.Errorf("invalid link %q", s)
	}
	return model.LinkID(n), nil
}

func parseMask(s string) (model.LinkMask, error) {
	var mask model.LinkMask
	for _, part := range strings.Split(s, ",") {
		id, err := parseLink(part)
		if err != nil {
			return 0, err
		}
		if id >= model.MaxLinkMaskBits {
			return 0, fmt.Errorf("link %d out of mask range", id)
		}
		mask = mask.Set(id)
	}
	return mask, nil
}

func parseIobistType(s string) (model.IobistType, error) {
	for t := model.IobistOff; t <= model.IobistPostTrain; t++ {
		if strings.EqualFold(t.String(), s) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("invalid self-test type %q (off, pre_train, post_train)", s)
}

func parseIobistTime(s string) (model.IobistTime, error) {
	for t := model.IobistTime20us; t <= model.IobistTimeDefault; t++ {
		if strings.EqualFold(t.String(), s) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("invalid self-test time %q (20us, 800us, 1s, 10s, default)", s)
}
