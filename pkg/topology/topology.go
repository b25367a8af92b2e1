package topology

import (
	"context"
	"log/slog"
	"sync"

	"github.com/linkval/nvldiag/pkg/ctrlchan"
	"github.com/linkval/nvldiag/pkg/generation"
	"github.com/linkval/nvldiag/pkg/linkerr"
	"github.com/linkval/nvldiag/pkg/model"
)

// Config configures a Topology.
type Config struct {
	// Logger is the optional logger. Nil disables logging.
	Logger *slog.Logger
}

// Topology holds the discovered links of one device.
type Topology struct {
	profile *generation.Profile
	channel ctrlchan.Channel
	logger  *slog.Logger

	mu         sync.RWMutex
	links      []model.Link
	discovered bool
}

// New creates an empty topology. Call Discover before use.
func New(profile *generation.Profile, channel ctrlchan.Channel, cfg Config) *Topology {
	return &Topology{
		profile: profile,
		channel: channel,
		logger:  cfg.Logger,
	}
}

func (t *Topology) debug(msg string, args ...any) {
	if t.logger != nil {
		t.logger.Debug(msg, args...)
	}
}

// Discover queries the link mask and per-link status and replaces the
// current topology. On error the previous topology is kept.
func (t *Topology) Discover(ctx context.Context) error {
	const op = "Discover"

	mask, err := t.channel.DiscoverLinks(ctx)
	if err != nil {
		return linkerr.Transport(op, err)
	}
	maxLinks := t.profile.MaxLinks()
	if maxLinks < model.MaxLinkMaskBits && mask>>maxLinks != 0 {
		return linkerr.New(linkerr.HardwareFault, op,
			"link mask %s exceeds %d links of %s", mask, maxLinks, t.profile.Tag())
	}

	status, err := t.channel.GetLinkStatus(ctx)
	if err != nil {
		return linkerr.Transport(op, err)
	}

	links := make([]model.Link, maxLinks)
	for i := range links {
		id := model.LinkID(i)
		links[i] = model.Link{ID: id, Group: t.profile.GroupOf(id)}
	}
	for _, s := range status {
		if !mask.Has(s.Link) {
			return linkerr.Fault(op, s.Link, "status reported for undiscovered link")
		}
		if !s.Remote.Type.Valid() {
			return linkerr.Fault(op, s.Link, "unexpected remote device type %d", s.Remote.Type)
		}
		links[s.Link] = model.Link{
			ID:           s.Link,
			Valid:        true,
			Active:       s.State == model.LinkStateActive,
			State:        s.State,
			Version:      s.Version,
			SublinkWidth: s.SublinkWidth,
			LineRateMbps: s.LineRateMbps,
			LinkClockMHz: s.LinkClockMHz,
			AcCoupled:    s.AcCoupled,
			Group:        t.profile.GroupOf(s.Link),
			Remote:       s.Remote,
		}
	}
	// Links in the mask without status are present but untrained.
	mask.ForEach(func(id model.LinkID) {
		if !links[id].Valid {
			links[id].Valid = true
			links[id].State = model.LinkStateOff
		}
	})

	t.mu.Lock()
	t.links = links
	t.discovered = true
	t.mu.Unlock()

	t.debug("topology discovered", "generation", t.profile.Tag(), "valid", mask.String(), "active", t.ActiveMask().String())
	return nil
}

// Profile returns the generation profile of the device.
func (t *Topology) Profile() *generation.Profile { return t.profile }

// Discovered returns true once Discover succeeded.
func (t *Topology) Discovered() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.discovered
}

// Link returns the link with the given id. Out-of-range or absent links
// are an InvalidArgument error attributed to op.
func (t *Topology) Link(op string, id model.LinkID) (model.Link, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if int(id) >= len(t.links) {
		return model.Link{}, linkerr.Invalid(op, id, id, "link id out of range 0..%d", t.profile.MaxLinks()-1)
	}
	l := t.links[id]
	if !l.Valid {
		return model.Link{}, linkerr.Invalid(op, id, id, "link not present")
	}
	return l, nil
}

// CheckMask validates every link of mask. An empty mask is invalid.
func (t *Topology) CheckMask(op string, mask model.LinkMask) error {
	if mask.Empty() {
		return linkerr.New(linkerr.InvalidArgument, op, "empty link mask").WithValue(mask)
	}
	for _, id := range mask.Links() {
		if _, err := t.Link(op, id); err != nil {
			return err
		}
	}
	return nil
}

// Links returns the valid links in id order.
func (t *Topology) Links() []model.Link {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []model.Link
	for _, l := range t.links {
		if l.Valid {
			out = append(out, l)
		}
	}
	return out
}

// ValidMask returns the mask of present links.
func (t *Topology) ValidMask() model.LinkMask {
	return t.mask(func(l model.Link) bool { return l.Valid })
}

// ActiveMask returns the mask of links trained to high speed.
func (t *Topology) ActiveMask() model.LinkMask {
	return t.mask(func(l model.Link) bool { return l.Valid && l.Active })
}

func (t *Topology) mask(keep func(model.Link) bool) model.LinkMask {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var m model.LinkMask
	for _, l := range t.links {
		if keep(l) {
			m = m.Set(l.ID)
		}
	}
	return m
}

// Groups returns the link groups holding at least one valid link.
func (t *Topology) Groups() []model.GroupID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var groups []model.GroupID
	seen := make(map[model.GroupID]bool)
	for _, l := range t.links {
		if l.Valid && !seen[l.Group] {
			seen[l.Group] = true
			groups = append(groups, l.Group)
		}
	}
	return groups
}

// IsActive returns true if link id is present and active.
func (t *Topology) IsActive(id model.LinkID) bool {
	return t.ActiveMask().Has(id)
}

// IsAcCoupled returns true if link id is present and AC-coupled.
func (t *Topology) IsAcCoupled(id model.LinkID) bool {
	l, err := t.Link("IsAcCoupled", id)
	return err == nil && l.AcCoupled
}

// Reset forgets the discovered links.
func (t *Topology) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.links = nil
	t.discovered = false
}
