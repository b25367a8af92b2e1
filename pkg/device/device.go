package device

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/linkval/nvldiag/pkg/counters"
	"github.com/linkval/nvldiag/pkg/eom"
	"github.com/linkval/nvldiag/pkg/flags"
	"github.com/linkval/nvldiag/pkg/generation"
	"github.com/linkval/nvldiag/pkg/iobist"
	"github.com/linkval/nvldiag/pkg/linkerr"
	diaglog "github.com/linkval/nvldiag/pkg/log"
	"github.com/linkval/nvldiag/pkg/model"
	"github.com/linkval/nvldiag/pkg/power"
	"github.com/linkval/nvldiag/pkg/privilege"
	"github.com/linkval/nvldiag/pkg/topology"
)

// Device is the diagnostics context of one device.
type Device struct {
	cfg     Config
	profile *generation.Profile
	trace   *diaglog.Trace
	logger  *slog.Logger

	// hw is the device mutex shared by all components.
	hw sync.Mutex

	// mu guards the lifecycle state and component pointers.
	mu       sync.RWMutex
	state    State
	topo     *topology.Topology
	counters *counters.Store
	flags    *flags.Decoder
	power    *power.Controller
	eom      *eom.Engine
	iobist   *iobist.Controller
}

// New creates a device context. The generation tag is resolved here, so
// an unknown tag is reported as a configuration error.
func New(cfg Config) (*Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	table := cfg.Table
	if table == nil {
		table = generation.Default
	}
	p, err := table.Lookup(cfg.Generation)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &Device{
		cfg:     cfg,
		profile: p,
		trace:   diaglog.NewTrace(cfg.EventLogger, cfg.ID, string(p.Tag())),
		logger:  cfg.Logger,
	}, nil
}

func (d *Device) debug(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, append([]any{"device", d.cfg.ID}, args...)...)
	}
}

// ID returns the configured device ID.
func (d *Device) ID() string { return d.cfg.ID }

// Profile returns the resolved generation profile.
func (d *Device) Profile() *generation.Profile { return d.profile }

// Platform returns the configured platform.
func (d *Device) Platform() model.Platform { return d.cfg.Platform }

// SessionID returns the ID stamped on the device's trace events.
func (d *Device) SessionID() string { return d.trace.SessionID() }

// Capabilities returns the capability set of the device's generation.
func (d *Device) Capabilities() generation.Capability { return d.profile.Caps() }

// State returns the lifecycle state.
func (d *Device) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

func (d *Device) setState(s State, reason string) {
	old := d.state
	d.state = s
	d.trace.State(diaglog.StateEntityDevice, nil, old.String(), s.String(), reason)
}

// Initialize discovers the links of the device and creates the components
// its generation supports.
func (d *Device) Initialize(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateIdle && d.state != StateClosed {
		return ErrAlreadyInitialized
	}
	prev := d.state
	d.setState(StateInitializing, "")

	topo := topology.New(d.profile, d.cfg.Channel, topology.Config{Logger: d.logger})
	if err := topo.Discover(ctx); err != nil {
		d.setState(prev, err.Error())
		return err
	}

	port, lock := d.cfg.Port, &d.hw
	store := counters.New(topo, d.cfg.Channel, port, lock, counters.Config{Logger: d.logger})
	d.topo = topo
	d.counters = store
	d.flags = flags.New(topo, port, lock, flags.Config{Platform: d.cfg.Platform, Logger: d.logger})
	if d.profile.Has(generation.CapPowerState) {
		d.power = power.New(topo, port, store, lock, power.Config{Poll: d.cfg.Poll, Logger: d.logger})
	}
	if d.profile.Has(generation.CapEom) {
		d.eom = eom.New(topo, port, d.cfg.Channel, lock, eom.Config{
			Platform: d.cfg.Platform,
			Poll:     d.cfg.Poll,
			OnPhase: func(id model.LinkID, p eom.Phase) {
				d.trace.Phase(diaglog.ComponentEom, diaglog.LinkRef(id), p.String(), 0)
			},
			Logger: d.logger,
		})
	}
	if d.profile.Has(generation.CapIobist) {
		d.iobist = iobist.New(topo, port, lock, iobist.Config{Logger: d.logger})
	}

	d.setState(StateReady, "")
	d.debug("device initialized", "generation", d.profile.Tag(), "links", topo.ValidMask().String(),
		"caps", d.profile.Caps().String())
	return nil
}

// Shutdown releases the topology and all cached state. Counter
// accumulators are discarded.
func (d *Device) Shutdown() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateReady {
		return ErrNotInitialized
	}
	d.hw.Lock()
	d.counters.Reset()
	d.topo.Reset()
	d.hw.Unlock()

	d.topo, d.counters, d.flags, d.power, d.eom, d.iobist = nil, nil, nil, nil, nil, nil
	d.setState(StateClosed, "")
	d.debug("device shut down")
	return nil
}

func (d *Device) ready() error {
	if d.state != StateReady {
		return ErrNotInitialized
	}
	return nil
}

func (d *Device) unsupported(op, what string) error {
	return linkerr.New(linkerr.Unsupported, op, "%s not available on %s", what, d.profile.Tag())
}

// Topology returns the discovered topology.
func (d *Device) Topology() (*topology.Topology, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if err := d.ready(); err != nil {
		return nil, err
	}
	return d.topo, nil
}

// Counters returns the error counter store.
func (d *Device) Counters() (*counters.Store, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if err := d.ready(); err != nil {
		return nil, err
	}
	return d.counters, nil
}

// Flags returns the error flag decoder.
func (d *Device) Flags() (*flags.Decoder, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if err := d.ready(); err != nil {
		return nil, err
	}
	return d.flags, nil
}

// PowerState returns the power-state controller, or Unsupported.
func (d *Device) PowerState() (*power.Controller, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if err := d.ready(); err != nil {
		return nil, err
	}
	if d.power == nil {
		return nil, d.unsupported("PowerState", "power-state control")
	}
	return d.power, nil
}

// Eom returns the EOM engine, or Unsupported.
func (d *Device) Eom() (*eom.Engine, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if err := d.ready(); err != nil {
		return nil, err
	}
	if d.eom == nil {
		return nil, d.unsupported("Eom", "EOM")
	}
	return d.eom, nil
}

// Iobist returns the self-test controller, or Unsupported.
func (d *Device) Iobist() (*iobist.Controller, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if err := d.ready(); err != nil {
		return nil, err
	}
	if d.iobist == nil {
		return nil, d.unsupported("Iobist", "IOBIST")
	}
	return d.iobist, nil
}

// Unlock verifies an out-of-band credential and raises the privilege
// level of the register port. A rejected credential is reported as a
// PrivilegeViolation.
func (d *Device) Unlock(c privilege.Credential) error {
	const op = "Unlock"

	if len(d.cfg.UnlockSecret) == 0 {
		return ErrUnlockDisabled
	}
	d.hw.Lock()
	err := privilege.NewVerifier(d.cfg.UnlockSecret).Unlock(d.cfg.Port, c, d.cfg.ID)
	d.hw.Unlock()
	if err != nil {
		err = &linkerr.Error{Kind: linkerr.PrivilegeViolation, Op: op, Link: linkerr.NoLink, Err: err}
	}
	d.trace.Operation(diaglog.ComponentDevice, nil, op, 0, err, nil)
	return err
}
