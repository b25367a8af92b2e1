// Package config loads the YAML configuration of the nvldiag command.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/linkval/nvldiag/pkg/eom"
	"github.com/linkval/nvldiag/pkg/fleet"
	"github.com/linkval/nvldiag/pkg/generation"
	"github.com/linkval/nvldiag/pkg/model"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Config is the top level of a configuration file.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel"`

	// EventLog is the path of the diagnostic event trace. Empty disables it.
	EventLog string `yaml:"eventLog"`

	// Report is the path sweep snapshots are written to.
	Report string `yaml:"report"`

	// MetricsAddr is the listen address of the metrics endpoint.
	MetricsAddr string `yaml:"metricsAddr"`

	// Profiles is an optional generation profile override file.
	Profiles string `yaml:"profiles"`

	// Concurrency limits how many devices are swept at once.
	Concurrency int `yaml:"concurrency"`

	Devices []Device `yaml:"devices"`
	Sweep   Sweep    `yaml:"sweep"`
}

// Device describes one device. Only simulated devices can be created from
// configuration; real register access is provided by the embedding program.
type Device struct {
	ID         string `yaml:"id"`
	Generation string `yaml:"generation"`

	// Platform is hardware or simulator.
	Platform string `yaml:"platform"`

	// Links is the number of present links. Zero uses the generation maximum.
	Links int `yaml:"links"`

	// Inactive lists links that are present but not trained.
	Inactive []uint32 `yaml:"inactive"`

	// EomDonePolls is the number of polls until the simulated eye
	// measurement completes. Zero keeps the simulator default; negative
	// never completes.
	EomDonePolls int `yaml:"eomDonePolls"`

	// UnlockSecret enables credential unlock of privileged registers.
	UnlockSecret string `yaml:"unlockSecret"`
}

// Sweep selects what the sweep command does on every link.
type Sweep struct {
	Window        time.Duration `yaml:"window"`
	Iobist        bool          `yaml:"iobist"`
	ClearCounters bool          `yaml:"clearCounters"`
	Eom           *Eom          `yaml:"eom"`
}

// Eom is the eye measurement of a sweep.
type Eom struct {
	Mode      string        `yaml:"mode"`
	NumErrors uint32        `yaml:"numErrors"`
	NumBlocks uint32        `yaml:"numBlocks"`
	FirstLane uint32        `yaml:"firstLane"`
	NumLanes  uint32        `yaml:"numLanes"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when no file is given: one
// simulated device of each built-in generation.
func Default() *Config {
	c := &Config{
		LogLevel:    "info",
		Report:      "nvldiag-report.json",
		MetricsAddr: ":9470",
		Concurrency: fleet.DefaultConfig().Concurrency,
	}
	for _, tag := range generation.Default.Tags() {
		c.Devices = append(c.Devices, Device{
			ID:           "sim-" + string(tag),
			Generation:   string(tag),
			Platform:     model.PlatformHardware.String(),
			Links:        4,
			EomDonePolls: 2,
		})
	}
	return c
}

// Parse parses and validates configuration bytes. Unset fields take the
// values of Default, except Devices which replace the default list.
func Parse(data []byte) (*Config, error) {
	c := Default()
	c.Devices = nil
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if len(c.Devices) == 0 {
		return fmt.Errorf("%w: no devices", ErrInvalid)
	}
	seen := make(map[string]bool)
	for i, d := range c.Devices {
		if d.ID == "" {
			return fmt.Errorf("%w: device %d missing id", ErrInvalid, i)
		}
		if seen[d.ID] {
			return fmt.Errorf("%w: duplicate device %q", ErrInvalid, d.ID)
		}
		seen[d.ID] = true
		if d.Generation == "" {
			return fmt.Errorf("%w: device %s missing generation", ErrInvalid, d.ID)
		}
		if _, err := model.ParsePlatform(d.Platform); err != nil {
			return fmt.Errorf("%w: device %s: %v", ErrInvalid, d.ID, err)
		}
		if d.Links < 0 {
			return fmt.Errorf("%w: device %s: negative link count", ErrInvalid, d.ID)
		}
	}
	if c.Sweep.Eom != nil {
		if _, err := c.Sweep.Eom.Request(); err != nil {
			return fmt.Errorf("%w: sweep eom: %v", ErrInvalid, err)
		}
	}
	return nil
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalid, c.LogLevel)
	}
	return l, nil
}

// Plan returns the sweep plan.
func (c *Config) Plan() (fleet.Plan, error) {
	p := fleet.Plan{
		Window:        c.Sweep.Window,
		Iobist:        c.Sweep.Iobist,
		ClearCounters: c.Sweep.ClearCounters,
	}
	if c.Sweep.Eom != nil {
		req, err := c.Sweep.Eom.Request()
		if err != nil {
			return fleet.Plan{}, err
		}
		p.Eom = &req
	}
	return p, nil
}

// Request returns the eye measurement request.
func (e *Eom) Request() (eom.Request, error) {
	mode, err := model.ParseEomMode(e.Mode)
	if err != nil {
		return eom.Request{}, err
	}
	return eom.Request{
		Mode:      mode,
		NumErrors: e.NumErrors,
		NumBlocks: e.NumBlocks,
		FirstLane: e.FirstLane,
		NumLanes:  e.NumLanes,
		Timeout:   e.Timeout,
	}, nil
}
