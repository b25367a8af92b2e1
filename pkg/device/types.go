package device

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/linkval/nvldiag/internal/poll"
	"github.com/linkval/nvldiag/pkg/ctrlchan"
	"github.com/linkval/nvldiag/pkg/generation"
	diaglog "github.com/linkval/nvldiag/pkg/log"
	"github.com/linkval/nvldiag/pkg/model"
	"github.com/linkval/nvldiag/pkg/regport"
)

// Device errors.
var (
	ErrNotInitialized     = errors.New("device not initialized")
	ErrAlreadyInitialized = errors.New("device already initialized")
	ErrInvalidConfig      = errors.New("invalid device configuration")
	ErrUnlockDisabled     = errors.New("no unlock secret configured")
)

// State is the lifecycle state of a device context.
type State uint8

const (
	// StateIdle - created but not initialized.
	StateIdle State = iota

	// StateInitializing - topology discovery in progress.
	StateInitializing

	// StateReady - components available.
	StateReady

	// StateClosed - shut down. Initialize may be called again.
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateInitializing:
		return "INITIALIZING"
	case StateReady:
		return "READY"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Config configures a Device.
type Config struct {
	// ID identifies the device in traces and reports.
	ID string

	// Generation selects the capability profile.
	Generation generation.Tag

	// Table resolves Generation. Nil uses generation.Default.
	Table *generation.Table

	// Platform selects whether diagnostic registers are accessed.
	Platform model.Platform

	// Port and Channel are the device's register port and firmware
	// control channel. Both are required.
	Port    regport.Port
	Channel ctrlchan.Channel

	// Poll sets the interval of hardware polls.
	Poll poll.Config

	// UnlockSecret is the lab secret unlock credentials are verified
	// against. Empty disables Unlock.
	UnlockSecret []byte

	// EventLogger receives the diagnostic event trace. Optional.
	EventLogger diaglog.Logger

	// Logger is the optional operational logger. Nil disables logging.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with default polling on real hardware.
func DefaultConfig() Config {
	return Config{
		Platform: model.PlatformHardware,
		Poll:     poll.DefaultConfig(),
	}
}

// Validate checks that the required fields are set.
func (c *Config) Validate() error {
	if c.Generation == "" {
		return fmt.Errorf("%w: generation not set", ErrInvalidConfig)
	}
	if c.Port == nil {
		return fmt.Errorf("%w: register port not set", ErrInvalidConfig)
	}
	if c.Channel == nil {
		return fmt.Errorf("%w: control channel not set", ErrInvalidConfig)
	}
	return nil
}
