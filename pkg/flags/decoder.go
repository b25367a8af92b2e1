package flags

import (
	"context"
	"log/slog"
	"sync"

	"github.com/linkval/nvldiag/pkg/linkerr"
	"github.com/linkval/nvldiag/pkg/model"
	"github.com/linkval/nvldiag/pkg/regport"
	"github.com/linkval/nvldiag/pkg/topology"
)

// Decode maps raw status words to flags. A rule matches when any bit of
// its mask is set in its block's word. Blocks missing from raw read as zero.
func Decode(raw model.RawStatus, table model.FlagTable) model.ErrorFlagSet {
	out := model.NewErrorFlagSet()
	for _, rule := range table {
		switch rule.Scope {
		case model.ScopeGroup:
			for id, words := range raw.Groups {
				if words[rule.Block]&rule.Mask != 0 {
					out.AddGroup(id, rule.Name)
				}
			}
		default:
			for id, words := range raw.Links {
				if words[rule.Block]&rule.Mask != 0 {
					out.AddLink(id, rule.Name)
				}
			}
		}
	}
	return out
}

// Config configures a Decoder.
type Config struct {
	// Platform selects whether status registers are read at all.
	Platform model.Platform

	// Logger is the optional logger. Nil disables logging.
	Logger *slog.Logger
}

// Decoder reads and decodes the status blocks of one device.
type Decoder struct {
	topo     *topology.Topology
	port     regport.Port
	lock     sync.Locker
	platform model.Platform
	logger   *slog.Logger
}

// New creates a decoder. lock is the device mutex.
func New(topo *topology.Topology, port regport.Port, lock sync.Locker, cfg Config) *Decoder {
	return &Decoder{
		topo:     topo,
		port:     port,
		lock:     lock,
		platform: cfg.Platform,
		logger:   cfg.Logger,
	}
}

// GetErrorFlags reads every status block of the valid links and their
// groups and decodes them. Self-clearing flags are reported by the read
// that consumed them; sticky flags persist until cleared. On platforms
// without register-accurate status the set is empty.
func (d *Decoder) GetErrorFlags(ctx context.Context) (model.ErrorFlagSet, error) {
	const op = "GetErrorFlags"

	if !d.platform.RegisterAccurate() {
		return model.NewErrorFlagSet(), nil
	}
	if err := ctx.Err(); err != nil {
		return model.ErrorFlagSet{}, err
	}

	table := d.topo.Profile().FlagTable()
	raw := model.NewRawStatus()

	d.lock.Lock()
	defer d.lock.Unlock()

	for _, id := range d.topo.ValidMask().Links() {
		for _, block := range table.Blocks(model.ScopeLink) {
			v, err := d.read(op, block, regport.Link(id), id)
			if err != nil {
				return model.ErrorFlagSet{}, err
			}
			raw.SetLink(id, block, v)
		}
	}
	for _, g := range d.topo.Groups() {
		for _, block := range table.Blocks(model.ScopeGroup) {
			v, err := d.read(op, block, regport.Group(g), linkerr.NoLinkID)
			if err != nil {
				return model.ErrorFlagSet{}, err
			}
			raw.SetGroup(g, block, v)
		}
	}

	flags := Decode(raw, table)
	if d.logger != nil && !flags.Empty() {
		d.logger.Debug("error flags observed", "links", len(flags.Links), "groups", len(flags.Groups))
	}
	return flags, nil
}

// ClearErrorFlags clears the sticky flags of every valid link and group by
// writing ones to their bits. Self-clearing bits are left alone.
func (d *Decoder) ClearErrorFlags(ctx context.Context) error {
	const op = "ClearErrorFlags"

	if !d.platform.RegisterAccurate() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	table := d.topo.Profile().FlagTable()
	sticky := make(map[string]uint32)
	for _, r := range table {
		if !r.SelfClearing {
			sticky[r.Block] |= r.Mask
		}
	}

	d.lock.Lock()
	defer d.lock.Unlock()

	for _, id := range d.topo.ValidMask().Links() {
		for _, block := range table.Blocks(model.ScopeLink) {
			if err := d.write(op, block, regport.Link(id), id, sticky[block]); err != nil {
				return err
			}
		}
	}
	for _, g := range d.topo.Groups() {
		for _, block := range table.Blocks(model.ScopeGroup) {
			if err := d.write(op, block, regport.Group(g), linkerr.NoLinkID, sticky[block]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Decoder) read(op, block string, idx regport.Index, id model.LinkID) (uint32, error) {
	if !d.port.HasReadAccess(block, idx) {
		return 0, linkerr.Privilege(op, id, block)
	}
	v, err := d.port.Read(block, idx)
	if err != nil {
		return 0, linkerr.Register(op, id, err)
	}
	return v, nil
}

func (d *Decoder) write(op, block string, idx regport.Index, id model.LinkID, mask uint32) error {
	if mask == 0 {
		return nil
	}
	if !d.port.HasWriteAccess(block, idx) {
		return linkerr.Privilege(op, id, block)
	}
	return linkerr.Register(op, id, d.port.Write(block, idx, mask))
}
