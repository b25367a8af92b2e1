package commands

import (
	"fmt"
	"log/slog"

	"github.com/linkval/nvldiag/internal/config"
	"github.com/linkval/nvldiag/internal/simhw"
	"github.com/linkval/nvldiag/pkg/device"
	"github.com/linkval/nvldiag/pkg/fleet"
	"github.com/linkval/nvldiag/pkg/generation"
	"github.com/linkval/nvldiag/pkg/log"
	"github.com/linkval/nvldiag/pkg/model"
)

// Setup is the runtime state built from a configuration.
type Setup struct {
	Table *generation.Table
	Fleet *fleet.Fleet

	// Sims maps device IDs to their simulated hardware.
	Sims map[string]*simhw.Device
}

// LoadTable returns the generation table with the profile overrides of
// cfg applied.
func LoadTable(cfg *config.Config) (*generation.Table, error) {
	if cfg.Profiles == "" {
		return generation.Default, nil
	}
	table := generation.NewTable()
	if err := table.LoadOverridesFile(cfg.Profiles); err != nil {
		return nil, err
	}
	return table, nil
}

// BuildFleet creates one simulated device per configured device. Devices
// are created but not initialized.
func BuildFleet(cfg *config.Config, events log.Logger, logger *slog.Logger) (*Setup, error) {
	table, err := LoadTable(cfg)
	if err != nil {
		return nil, err
	}

	s := &Setup{
		Table: table,
		Fleet: fleet.New(fleet.Config{Concurrency: cfg.Concurrency, Logger: logger}),
		Sims:  make(map[string]*simhw.Device),
	}
	for _, dc := range cfg.Devices {
		d, sim, err := buildDevice(table, dc, events, logger)
		if err != nil {
			return nil, fmt.Errorf("device %s: %w", dc.ID, err)
		}
		if err := s.Fleet.Add(d); err != nil {
			return nil, err
		}
		s.Sims[dc.ID] = sim
	}
	return s, nil
}

func buildDevice(table *generation.Table, dc config.Device, events log.Logger, logger *slog.Logger) (*device.Device, *simhw.Device, error) {
	p, err := table.Lookup(generation.Tag(dc.Generation))
	if err != nil {
		return nil, nil, err
	}
	platform, err := model.ParsePlatform(dc.Platform)
	if err != nil {
		return nil, nil, err
	}

	sc := simhw.DefaultConfig(p)
	if dc.Links > 0 {
		if dc.Links > int(p.MaxLinks()) {
			return nil, nil, fmt.Errorf("%d links exceed the %d of %s", dc.Links, p.MaxLinks(), p.Tag())
		}
		sc.Links = simhw.DefaultLinks(dc.Links)
	}
	for _, id := range dc.Inactive {
		if int(id) < len(sc.Links) {
			sc.Links[id].State = model.LinkStateOff
		}
	}
	if dc.EomDonePolls != 0 {
		sc.EomDonePolls = dc.EomDonePolls
	}
	if logger != nil {
		sc.Logger = logger.With("sim", dc.ID)
	}
	sim := simhw.New(sc)

	c := device.DefaultConfig()
	c.ID = dc.ID
	c.Generation = p.Tag()
	c.Table = table
	c.Platform = platform
	c.Port = sim.Port()
	c.Channel = sim
	c.EventLogger = events
	c.Logger = logger
	if dc.UnlockSecret != "" {
		c.UnlockSecret = []byte(dc.UnlockSecret)
	}
	d, err := device.New(c)
	if err != nil {
		return nil, nil, err
	}
	return d, sim, nil
}
