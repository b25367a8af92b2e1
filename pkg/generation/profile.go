package generation

import (
	"fmt"
	"time"

	"github.com/linkval/nvldiag/pkg/model"
)

// Tag identifies a hardware generation.
type Tag string

// Built-in generation tags.
const (
	TagNvl2   Tag = "nvl2"
	TagNvl3   Tag = "nvl3"
	TagNvl3Sw Tag = "nvl3sw"
	TagNvl4   Tag = "nvl4"
	TagNvl5   Tag = "nvl5"
)

// EomEncoder packs EOM parameters into the generation-specific
// configuration word. It returns an error for out-of-range values.
type EomEncoder func(mode model.EomMode, numErrors, numBlocks uint32) (uint32, error)

// CapsFunc derives the capability set of a generation from its fallback's set.
type CapsFunc func(fallback Capability) Capability

// Definition describes one generation. Nil fields are forwarded to the
// Fallback generation; the root generation must set every field.
type Definition struct {
	Tag      Tag
	Fallback Tag
	Name     string

	MaxLinks      *uint32
	LanesPerLink  *uint32
	LinksPerGroup *uint32

	Caps CapsFunc

	// ErrorCounters lists the kinds returned by the primary counter query.
	ErrorCounters *model.CounterMask

	EomModes  []model.EomMode
	EomEncode EomEncoder
	EomRegs   *EomRegs

	PowerRegs *PowerRegs

	// LowPowerThresholdUnit is the number of link clock cycles per count of
	// the idle threshold register.
	LowPowerThresholdUnit *uint32

	IobistRegs *IobistRegs

	FlagTable model.FlagTable

	// Thresholds is consulted per kind; kinds absent from the map are
	// forwarded.
	Thresholds map[model.ErrorKind]Threshold

	EomPollTimeout       *time.Duration
	ToggleConfirmTimeout *time.Duration

	CounterBusyRetries  *int
	CounterBusyInterval *time.Duration
}

// Profile is a resolved generation. Accessors walk the delegation chain.
type Profile struct {
	def      Definition
	fallback *Profile
}

// pick returns the first value get reports as set, walking from p towards
// the root. The root is validated complete on registration.
func pick[T any](p *Profile, field string, get func(*Definition) (T, bool)) T {
	for q := p; q != nil; q = q.fallback {
		if v, ok := get(&q.def); ok {
			return v
		}
	}
	panic(fmt.Sprintf("generation %s: %s not defined on delegation chain", p.def.Tag, field))
}

func ptr[T any](v *T) (T, bool) {
	if v == nil {
		var zero T
		return zero, false
	}
	return *v, true
}

// Tag returns the generation tag.
func (p *Profile) Tag() Tag { return p.def.Tag }

// Name returns the display name.
func (p *Profile) Name() string {
	if p.def.Name != "" {
		return p.def.Name
	}
	return string(p.def.Tag)
}

// Fallback returns the profile unset fields are forwarded to, or nil for the root.
func (p *Profile) Fallback() *Profile { return p.fallback }

// Chain returns the tags from p to the root.
func (p *Profile) Chain() []Tag {
	var tags []Tag
	for q := p; q != nil; q = q.fallback {
		tags = append(tags, q.def.Tag)
	}
	return tags
}

// MaxLinks returns the number of link ids of the generation.
func (p *Profile) MaxLinks() uint32 {
	return pick(p, "MaxLinks", func(d *Definition) (uint32, bool) { return ptr(d.MaxLinks) })
}

// LanesPerLink returns the lane count of one link.
func (p *Profile) LanesPerLink() uint32 {
	return pick(p, "LanesPerLink", func(d *Definition) (uint32, bool) { return ptr(d.LanesPerLink) })
}

// LinksPerGroup returns the number of links sharing group-scoped logic.
func (p *Profile) LinksPerGroup() uint32 {
	return pick(p, "LinksPerGroup", func(d *Definition) (uint32, bool) { return ptr(d.LinksPerGroup) })
}

// GroupOf returns the link group of id.
func (p *Profile) GroupOf(id model.LinkID) model.GroupID {
	return model.GroupID(uint32(id) / p.LinksPerGroup())
}

// Caps returns the capability set.
func (p *Profile) Caps() Capability {
	if p.def.Caps == nil {
		if p.fallback == nil {
			panic(fmt.Sprintf("generation %s: Caps not defined on delegation chain", p.def.Tag))
		}
		return p.fallback.Caps()
	}
	var inherited Capability
	if p.fallback != nil {
		inherited = p.fallback.Caps()
	}
	return p.def.Caps(inherited)
}

// Has returns true if the generation has every capability in c.
func (p *Profile) Has(c Capability) bool {
	return p.Caps().Has(c)
}

// ErrorCounters returns the kinds reported by the primary counter query.
func (p *Profile) ErrorCounters() model.CounterMask {
	return pick(p, "ErrorCounters", func(d *Definition) (model.CounterMask, bool) { return ptr(d.ErrorCounters) })
}

// EomModes returns the supported EOM modes.
func (p *Profile) EomModes() []model.EomMode {
	return pick(p, "EomModes", func(d *Definition) ([]model.EomMode, bool) { return d.EomModes, d.EomModes != nil })
}

// SupportsEomMode returns true if mode is supported.
func (p *Profile) SupportsEomMode(mode model.EomMode) bool {
	for _, m := range p.EomModes() {
		if m == mode {
			return true
		}
	}
	return false
}

// EncodeEom packs the EOM parameters with the generation's encoder.
func (p *Profile) EncodeEom(mode model.EomMode, numErrors, numBlocks uint32) (model.EomSettings, error) {
	enc := pick(p, "EomEncode", func(d *Definition) (EomEncoder, bool) { return d.EomEncode, d.EomEncode != nil })
	word, err := enc(mode, numErrors, numBlocks)
	if err != nil {
		return model.EomSettings{}, err
	}
	return model.EomSettings{Mode: mode, NumErrors: numErrors, NumBlocks: numBlocks, Encoded: word}, nil
}

// EomRegs returns the EOM register selection.
func (p *Profile) EomRegs() EomRegs {
	return pick(p, "EomRegs", func(d *Definition) (EomRegs, bool) { return ptr(d.EomRegs) })
}

// PowerRegs returns the power-state register selection.
func (p *Profile) PowerRegs() PowerRegs {
	return pick(p, "PowerRegs", func(d *Definition) (PowerRegs, bool) { return ptr(d.PowerRegs) })
}

// LowPowerThresholdUnit returns the clock cycles per idle threshold count.
func (p *Profile) LowPowerThresholdUnit() uint32 {
	return pick(p, "LowPowerThresholdUnit", func(d *Definition) (uint32, bool) { return ptr(d.LowPowerThresholdUnit) })
}

// IobistRegs returns the IOBIST register selection.
func (p *Profile) IobistRegs() IobistRegs {
	return pick(p, "IobistRegs", func(d *Definition) (IobistRegs, bool) { return ptr(d.IobistRegs) })
}

// FlagTable returns the error flag table.
func (p *Profile) FlagTable() model.FlagTable {
	return pick(p, "FlagTable", func(d *Definition) (model.FlagTable, bool) { return d.FlagTable, d.FlagTable != nil })
}

// Threshold returns the default threshold of kind. Kinds without a
// threshold anywhere on the chain report false.
func (p *Profile) Threshold(kind model.ErrorKind) (Threshold, bool) {
	for q := p; q != nil; q = q.fallback {
		if t, ok := q.def.Thresholds[kind]; ok {
			return t, true
		}
	}
	return Threshold{}, false
}

// EomPollTimeout returns the default bound of each EOM poll phase.
func (p *Profile) EomPollTimeout() time.Duration {
	return pick(p, "EomPollTimeout", func(d *Definition) (time.Duration, bool) { return ptr(d.EomPollTimeout) })
}

// ToggleConfirmTimeout returns the bound of the power toggle confirmation poll.
func (p *Profile) ToggleConfirmTimeout() time.Duration {
	return pick(p, "ToggleConfirmTimeout", func(d *Definition) (time.Duration, bool) { return ptr(d.ToggleConfirmTimeout) })
}

// CounterBusyRetries returns how often a busy counter query is retried.
func (p *Profile) CounterBusyRetries() int {
	return pick(p, "CounterBusyRetries", func(d *Definition) (int, bool) { return ptr(d.CounterBusyRetries) })
}

// CounterBusyInterval returns the sleep between busy retries.
func (p *Profile) CounterBusyInterval() time.Duration {
	return pick(p, "CounterBusyInterval", func(d *Definition) (time.Duration, bool) { return ptr(d.CounterBusyInterval) })
}

// Definition returns a copy of the generation's own (unresolved) definition.
func (p *Profile) Definition() Definition { return p.def }

// Overrides returns the names of the fields p sets itself rather than
// forwarding.
func (p *Profile) Overrides() []string {
	d := &p.def
	var names []string
	add := func(set bool, name string) {
		if set {
			names = append(names, name)
		}
	}
	add(d.MaxLinks != nil, "MaxLinks")
	add(d.LanesPerLink != nil, "LanesPerLink")
	add(d.LinksPerGroup != nil, "LinksPerGroup")
	add(d.Caps != nil, "Caps")
	add(d.ErrorCounters != nil, "ErrorCounters")
	add(d.EomModes != nil, "EomModes")
	add(d.EomEncode != nil, "EomEncode")
	add(d.EomRegs != nil, "EomRegs")
	add(d.PowerRegs != nil, "PowerRegs")
	add(d.LowPowerThresholdUnit != nil, "LowPowerThresholdUnit")
	add(d.IobistRegs != nil, "IobistRegs")
	add(d.FlagTable != nil, "FlagTable")
	add(len(d.Thresholds) > 0, "Thresholds")
	add(d.EomPollTimeout != nil, "EomPollTimeout")
	add(d.ToggleConfirmTimeout != nil, "ToggleConfirmTimeout")
	add(d.CounterBusyRetries != nil, "CounterBusyRetries")
	add(d.CounterBusyInterval != nil, "CounterBusyInterval")
	return names
}

// Some returns a pointer to v, for building Definitions.
func Some[T any](v T) *T { return &v }
