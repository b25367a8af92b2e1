package fleet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/linkval/nvldiag/pkg/device"
)

// ErrDuplicateDevice is returned by Add for an ID already in the fleet.
var ErrDuplicateDevice = errors.New("duplicate device id")

// Config configures a Fleet.
type Config struct {
	// Concurrency limits how many devices are worked on at once.
	// Zero or negative means no limit.
	Concurrency int

	// Logger is the optional logger. Nil disables logging.
	Logger *slog.Logger
}

// DefaultConfig returns the default fleet configuration.
func DefaultConfig() Config {
	return Config{Concurrency: 8}
}

// Fleet is a set of independent devices.
type Fleet struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.RWMutex
	devices map[string]*device.Device
}

// New creates an empty fleet.
func New(cfg Config) *Fleet {
	return &Fleet{
		cfg:     cfg,
		logger:  cfg.Logger,
		devices: make(map[string]*device.Device),
	}
}

func (f *Fleet) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}

// Add adds a device.
func (f *Fleet) Add(d *device.Device) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.devices[d.ID()]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateDevice, d.ID())
	}
	f.devices[d.ID()] = d
	return nil
}

// Get returns the device with the given ID.
func (f *Fleet) Get(id string) (*device.Device, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	d, ok := f.devices[id]
	return d, ok
}

// Devices returns the devices sorted by ID.
func (f *Fleet) Devices() []*device.Device {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]*device.Device, 0, len(f.devices))
	for _, d := range f.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Len returns the number of devices.
func (f *Fleet) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.devices)
}

// Each runs fn for every device concurrently. The first error cancels the
// context passed to the remaining calls and is returned.
func (f *Fleet) Each(ctx context.Context, fn func(ctx context.Context, d *device.Device) error) error {
	g, ctx := errgroup.WithContext(ctx)
	if f.cfg.Concurrency > 0 {
		g.SetLimit(f.cfg.Concurrency)
	}
	for _, d := range f.Devices() {
		g.Go(func() error {
			if err := fn(ctx, d); err != nil {
				return fmt.Errorf("device %s: %w", d.ID(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Initialize initializes every device. Devices are independent, so one
// failure does not stop the others; all failures are joined.
func (f *Fleet) Initialize(ctx context.Context) error {
	return f.collect(ctx, func(ctx context.Context, d *device.Device) error {
		return d.Initialize(ctx)
	})
}

// Shutdown shuts down every initialized device.
func (f *Fleet) Shutdown() error {
	return f.collect(context.Background(), func(_ context.Context, d *device.Device) error {
		if d.State() != device.StateReady {
			return nil
		}
		return d.Shutdown()
	})
}

// collect runs fn on every device without cancelling on failure.
func (f *Fleet) collect(ctx context.Context, fn func(ctx context.Context, d *device.Device) error) error {
	var (
		mu   sync.Mutex
		errs []error
	)
	var g errgroup.Group
	if f.cfg.Concurrency > 0 {
		g.SetLimit(f.cfg.Concurrency)
	}
	for _, d := range f.Devices() {
		g.Go(func() error {
			if err := fn(ctx, d); err != nil {
				f.debug("device failed", "device", d.ID(), "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("device %s: %w", d.ID(), err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
