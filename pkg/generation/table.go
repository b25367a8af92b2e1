package generation

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownTag is returned by Lookup for unregistered tags.
var ErrUnknownTag = errors.New("unknown generation tag")

// Table maps generation tags to profiles.
type Table struct {
	mu       sync.RWMutex
	profiles map[Tag]*Profile
}

// NewTable returns a table holding the built-in generations.
func NewTable() *Table {
	t := &Table{profiles: make(map[Tag]*Profile)}
	for _, def := range builtins() {
		if err := t.Register(def); err != nil {
			panic(fmt.Sprintf("built-in generation %s: %v", def.Tag, err))
		}
	}
	return t
}

// NewEmptyTable returns a table without built-in generations.
func NewEmptyTable() *Table {
	return &Table{profiles: make(map[Tag]*Profile)}
}

// Default is the process-wide table of built-in generations.
var Default = NewTable()

// Resolve returns the profile of tag from the default table.
func Resolve(tag Tag) *Profile {
	return Default.Resolve(tag)
}

// Register adds a generation. The fallback must already be registered;
// a definition without fallback is a root and must set every field.
func (t *Table) Register(def Definition) error {
	if def.Tag == "" {
		return errors.New("empty tag")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.profiles[def.Tag]; ok {
		return fmt.Errorf("generation %s already registered", def.Tag)
	}

	p := &Profile{def: def}
	if def.Fallback != "" {
		fb, ok := t.profiles[def.Fallback]
		if !ok {
			return fmt.Errorf("fallback %s: %w", def.Fallback, ErrUnknownTag)
		}
		p.fallback = fb
	} else if missing := missingRootFields(&def); len(missing) > 0 {
		return fmt.Errorf("root generation %s leaves %v unset", def.Tag, missing)
	}

	if err := validateProfile(p); err != nil {
		return fmt.Errorf("generation %s: %w", def.Tag, err)
	}

	t.profiles[def.Tag] = p
	return nil
}

// Lookup returns the profile of tag, or ErrUnknownTag.
func (t *Table) Lookup(tag Tag) (*Profile, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.profiles[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
	return p, nil
}

// Resolve returns the profile of tag. Tags are fixed at build or
// configuration time, so an unknown tag is a programming error and panics.
func (t *Table) Resolve(tag Tag) *Profile {
	p, err := t.Lookup(tag)
	if err != nil {
		panic(err)
	}
	return p
}

// Tags returns the registered tags in sorted order.
func (t *Table) Tags() []Tag {
	t.mu.RLock()
	defer t.mu.RUnlock()

	tags := make([]Tag, 0, len(t.profiles))
	for tag := range t.profiles {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

func missingRootFields(d *Definition) []string {
	var missing []string
	check := func(unset bool, name string) {
		if unset {
			missing = append(missing, name)
		}
	}
	check(d.MaxLinks == nil, "MaxLinks")
	check(d.LanesPerLink == nil, "LanesPerLink")
	check(d.LinksPerGroup == nil, "LinksPerGroup")
	check(d.Caps == nil, "Caps")
	check(d.ErrorCounters == nil, "ErrorCounters")
	check(d.EomModes == nil, "EomModes")
	check(d.EomEncode == nil, "EomEncode")
	check(d.EomRegs == nil, "EomRegs")
	check(d.PowerRegs == nil, "PowerRegs")
	check(d.LowPowerThresholdUnit == nil, "LowPowerThresholdUnit")
	check(d.IobistRegs == nil, "IobistRegs")
	check(d.FlagTable == nil, "FlagTable")
	check(d.EomPollTimeout == nil, "EomPollTimeout")
	check(d.ToggleConfirmTimeout == nil, "ToggleConfirmTimeout")
	check(d.CounterBusyRetries == nil, "CounterBusyRetries")
	check(d.CounterBusyInterval == nil, "CounterBusyInterval")
	return missing
}

func validateProfile(p *Profile) error {
	if p.MaxLinks() == 0 || p.MaxLinks() > 64 {
		return fmt.Errorf("MaxLinks %d out of range 1..64", p.MaxLinks())
	}
	if p.LanesPerLink() == 0 || p.LanesPerLink() > 8 {
		return fmt.Errorf("LanesPerLink %d out of range 1..8", p.LanesPerLink())
	}
	if p.LinksPerGroup() == 0 {
		return errors.New("LinksPerGroup must be positive")
	}
	if p.Has(CapCombinedPowerWrite) {
		regs := p.PowerRegs()
		if regs.Control != regs.Disable {
			return fmt.Errorf("combined power write needs desired and disable fields in one register (%s != %s)",
				regs.Control, regs.Disable)
		}
	}
	if p.CounterBusyRetries() < 0 {
		return errors.New("CounterBusyRetries must not be negative")
	}
	return nil
}
