// Command nvldiag runs link diagnostics against a set of devices.
//
// Devices are described in a YAML configuration file; without one, a
// simulated device of every built-in generation is used.
//
// Usage:
//
//	nvldiag <command> [flags]
//
// Commands:
//
//	sweep       Run a diagnostic sweep and save a report
//	serve       Serve Prometheus metrics of all devices
//	shell       Interactive diagnostics shell
//	log         View, export or summarize a diagnostic trace (.dlog)
//	profiles    List generation profiles, or show one
//	credential  Issue a register unlock credential
//
// Examples:
//
//	# Sweep with EOM on every active link
//	nvldiag sweep -config lab.yaml -eom y:7:10:4
//
//	# View only EOM events of a trace
//	nvldiag log view -component eom run.dlog
//
//	# Show the resolved nvl4 profile
//	nvldiag profiles nvl4
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/linkval/nvldiag/cmd/nvldiag/commands"
	"github.com/linkval/nvldiag/cmd/nvldiag/interactive"
	"github.com/linkval/nvldiag/internal/config"
	"github.com/linkval/nvldiag/pkg/eom"
	"github.com/linkval/nvldiag/pkg/log"
	"github.com/linkval/nvldiag/pkg/metrics"
	"github.com/linkval/nvldiag/pkg/model"
	"github.com/linkval/nvldiag/pkg/privilege"
	"github.com/linkval/nvldiag/pkg/regport"
	"github.com/linkval/nvldiag/pkg/report"
)

const usage = `nvldiag - Link Diagnostics Engine

Usage:
  nvldiag <command> [flags]

Commands:
  sweep       Run a diagnostic sweep and save a report
  serve       Serve Prometheus metrics of all devices
  shell       Interactive diagnostics shell
  log         View, export or summarize a diagnostic trace (.dlog)
  profiles    List generation profiles, or show one
  credential  Issue a register unlock credential

Use "nvldiag <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "sweep":
		runSweep(args)
	case "serve":
		runServe(args)
	case "shell":
		runShell(args)
	case "log":
		runLog(args)
	case "profiles":
		runProfiles(args)
	case "credential":
		runCredential(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// env is what the device commands share: configuration, loggers and the
// fleet built from them.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	trace  *log.FileLogger
	setup  *commands.Setup
}

func (e *env) close() {
	if err := e.setup.Fleet.Shutdown(); err != nil {
		e.logger.Warn("shutdown", "error", err)
	}
	if e.trace != nil {
		if n := e.trace.Dropped(); n > 0 {
			e.logger.Warn("trace events dropped", "count", n)
		}
		_ = e.trace.Close()
	}
}

// configFlags registers the flags shared by the device commands.
func configFlags(fs *flag.FlagSet) (path, eventLog, level *string) {
	path = fs.String("config", "", "Configuration file (default: one simulated device per generation)")
	eventLog = fs.String("event-log", "", "Write the diagnostic trace to this file (overrides config)")
	level = fs.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	return
}

func loadEnv(ctx context.Context, path, eventLog, level string) *env {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			fatal(err)
		}
	}
	if eventLog != "" {
		cfg.EventLog = eventLog
	}
	if level != "" {
		cfg.LogLevel = level
	}
	lvl, err := cfg.Level()
	if err != nil {
		fatal(err)
	}

	e := &env{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})),
	}

	var events log.Logger = log.NoopLogger{}
	if cfg.EventLog != "" {
		e.trace, err = log.NewFileLogger(cfg.EventLog)
		if err != nil {
			fatal(fmt.Errorf("opening event log: %w", err))
		}
		events = e.trace
	}
	if lvl <= slog.LevelDebug {
		events = log.NewMultiLogger(events, log.NewSlogAdapter(e.logger))
	}

	e.setup, err = commands.BuildFleet(cfg, events, e.logger)
	if err != nil {
		fatal(err)
	}
	if err := e.setup.Fleet.Initialize(ctx); err != nil {
		e.logger.Warn("initialize", "error", err)
	}
	return e
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runSweep(args []string) {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `nvldiag sweep - Run a diagnostic sweep

Usage:
  nvldiag sweep [flags]

Flags:
`)
		fs.PrintDefaults()
	}

	path, eventLog, level := configFlags(fs)
	out := fs.String("o", "", "Report file (default: from config)")
	eomSpec := fs.String("eom", "", "Run EOM on active links: mode:errors:blocks:lanes[:first]")
	window := fs.Duration("window", 0, "Observation window for threshold rate checks")
	iobist := fs.Bool("iobist", false, "Read self-test failures")
	clearCounters := fs.Bool("clear", false, "Clear hardware counters after reading")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	e := loadEnv(ctx, *path, *eventLog, *level)
	defer e.close()

	plan, err := e.cfg.Plan()
	if err != nil {
		fatal(err)
	}
	if *eomSpec != "" {
		req, err := parseEomSpec(*eomSpec)
		if err != nil {
			fatal(err)
		}
		plan.Eom = &req
	}
	if *window > 0 {
		plan.Window = *window
	}
	plan.Iobist = plan.Iobist || *iobist
	plan.ClearCounters = plan.ClearCounters || *clearCounters

	reportPath := e.cfg.Report
	if *out != "" {
		reportPath = *out
	}
	var store *report.Store
	if reportPath != "" {
		store = report.NewStore(reportPath)
	}

	snap, err := commands.RunSweep(ctx, e.setup.Fleet, plan, store, os.Stdout)
	if err != nil {
		e.close()
		fatal(err)
	}
	if snap.Failed() {
		e.close()
		os.Exit(2)
	}
}

// parseEomSpec parses "mode:errors:blocks:lanes[:first]".
func parseEomSpec(s string) (eom.Request, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 4 || len(parts) > 5 {
		return eom.Request{}, fmt.Errorf("invalid eom spec %q (mode:errors:blocks:lanes[:first])", s)
	}
	mode, err := model.ParseEomMode(parts[0])
	if err != nil {
		return eom.Request{}, err
	}
	var nums [4]uint32
	for i, p := range parts[1:] {
		n, err := strconv.ParseUint(p, 0, 32)
		if err != nil {
			return eom.Request{}, fmt.Errorf("invalid eom spec %q: %w", s, err)
		}
		nums[i] = uint32(n)
	}
	return eom.Request{Mode: mode, NumErrors: nums[0], NumBlocks: nums[1], NumLanes: nums[2], FirstLane: nums[3]}, nil
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `nvldiag serve - Serve Prometheus metrics

Usage:
  nvldiag serve [flags]

Flags:
`)
		fs.PrintDefaults()
	}

	path, eventLog, level := configFlags(fs)
	addr := fs.String("addr", "", "Listen address (default: from config)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	e := loadEnv(ctx, *path, *eventLog, *level)
	defer e.close()

	mcfg := metrics.DefaultConfig()
	mcfg.Logger = e.logger
	collector := metrics.NewCollector(mcfg)
	for _, d := range e.setup.Fleet.Devices() {
		collector.Add(d)
	}
	handler, err := metrics.Handler(collector)
	if err != nil {
		fatal(err)
	}

	listen := e.cfg.MetricsAddr
	if *addr != "" {
		listen = *addr
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	e.logger.Info("serving metrics", "addr", listen, "devices", e.setup.Fleet.Len())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		e.close()
		fatal(err)
	}
}

func runShell(args []string) {
	fs := flag.NewFlagSet("shell", flag.ExitOnError)
	path, eventLog, level := configFlags(fs)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	e := loadEnv(ctx, *path, *eventLog, *level)
	defer e.close()

	sh := interactive.NewShell(e.setup.Fleet, e.setup.Sims, os.Stdout)
	if err := sh.Run(ctx); err != nil {
		e.close()
		fatal(err)
	}
}

func runProfiles(args []string) {
	fs := flag.NewFlagSet("profiles", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `nvldiag profiles - List generation profiles

Usage:
  nvldiag profiles [flags] [tag]

Flags:
`)
		fs.PrintDefaults()
	}
	overrides := fs.String("overrides", "", "Profile override file")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	table, err := commands.LoadTable(&config.Config{Profiles: *overrides})
	if err != nil {
		fatal(err)
	}
	if fs.NArg() > 0 {
		err = commands.RunProfile(table, fs.Arg(0), os.Stdout)
	} else {
		err = commands.RunProfiles(table, os.Stdout)
	}
	if err != nil {
		fatal(err)
	}
}

func runCredential(args []string) {
	fs := flag.NewFlagSet("credential", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `nvldiag credential - Issue a register unlock credential

Usage:
  nvldiag credential [flags] <device-id>

Flags:
`)
		fs.PrintDefaults()
	}
	secret := fs.String("secret", "", "Lab secret, or hex:<bytes> (required)")
	level := fs.Uint("level", uint(regport.PrivLevel3), "Privilege level 0-3")
	ttl := fs.Duration("ttl", time.Hour, "Validity")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 || *secret == "" {
		fs.Usage()
		os.Exit(1)
	}

	key := []byte(*secret)
	if h, ok := strings.CutPrefix(*secret, "hex:"); ok {
		var err error
		if key, err = hex.DecodeString(h); err != nil {
			fatal(err)
		}
	}
	c, err := privilege.Issue(key, fs.Arg(0), regport.PrivLevel(*level), time.Now().Add(*ttl))
	if err != nil {
		fatal(err)
	}
	fmt.Println(c.String())
}

func runLog(args []string) {
	const logUsage = `nvldiag log - Diagnostic trace tools

Usage:
  nvldiag log <view|export|stats> [flags] <file.dlog>
`
	if len(args) < 1 {
		fmt.Fprint(os.Stderr, logUsage)
		os.Exit(1)
	}
	switch args[0] {
	case "view":
		runLogView(args[1:])
	case "export":
		runLogExport(args[1:])
	case "stats":
		runLogStats(args[1:])
	default:
		fmt.Fprint(os.Stderr, logUsage)
		os.Exit(1)
	}
}

func logPath(fs *flag.FlagSet) string {
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func runLogView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	component := fs.String("component", "", "Filter by component (device, topology, counters, flags, power, eom, iobist)")
	category := fs.String("category", "", "Filter by category (operation, phase, state, counters, error)")
	device := fs.String("device", "", "Filter by device ID")
	session := fs.String("session", "", "Filter by session ID")
	link := fs.Int("link", -1, "Filter by link")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := logPath(fs)

	filter := log.Filter{DeviceID: *device, SessionID: *session}
	if *component != "" {
		c, err := commands.ParseComponentFlag(*component)
		if err != nil {
			fatal(err)
		}
		filter.Component = &c
	}
	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		if err != nil {
			fatal(err)
		}
		filter.Category = &c
	}
	if *link >= 0 {
		l := uint32(*link)
		filter.Link = &l
	}

	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fatal(err)
	}
}

func runLogExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if err := commands.RunExport(logPath(fs), *format, *output); err != nil {
		fatal(err)
	}
}

func runLogStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if err := commands.RunStats(logPath(fs), os.Stdout); err != nil {
		fatal(err)
	}
}
