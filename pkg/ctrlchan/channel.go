package ctrlchan

import (
	"context"
	"errors"

	"github.com/linkval/nvldiag/pkg/model"
)

// ErrBusy is returned when the counter reservation resource is transiently busy.
var ErrBusy = errors.New("counter reservation resource busy")

// LinkStatus is the raw per-link status reported by firmware.
type LinkStatus struct {
	Link         model.LinkID
	State        model.LinkState
	Version      uint32
	SublinkWidth uint32
	LineRateMbps uint32
	LinkClockMHz uint32
	AcCoupled    bool
	Remote       model.RemoteEndpoint
}

// Channel is the firmware control channel of one device.
// Implementations are not required to be safe for concurrent use.
type Channel interface {
	// DiscoverLinks returns the mask of links present on the device.
	DiscoverLinks(ctx context.Context) (model.LinkMask, error)

	// GetLinkStatus returns the raw status of every discovered link.
	GetLinkStatus(ctx context.Context) ([]LinkStatus, error)

	// GetErrorCounters returns the hardware counters selected by counters
	// for every link in links.
	GetErrorCounters(ctx context.Context, links model.LinkMask, counters model.CounterMask) (map[model.LinkID]model.CounterSet, error)

	// ClearCounters clears the selected hardware counters.
	ClearCounters(ctx context.Context, links model.LinkMask, counters model.CounterMask) error

	// GetErrorRecoveries returns the recovery counts. The firmware counter
	// clears on read.
	GetErrorRecoveries(ctx context.Context, links model.LinkMask) (map[model.LinkID]uint32, error)

	// SetupEom programs the encoded EOM configuration word of a link.
	SetupEom(ctx context.Context, link model.LinkID, encoded uint32) error
}
