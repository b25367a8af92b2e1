package generation

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/linkval/nvldiag/pkg/model"
)

// RawThreshold is a threshold override; unset values keep the fallback's.
type RawThreshold struct {
	Rate  *float64 `yaml:"rate"`
	Count *uint64  `yaml:"count"`
}

// RawProfile is a lab profile layered on a registered generation.
type RawProfile struct {
	Tag                  string                  `yaml:"tag"`
	Fallback             string                  `yaml:"fallback"`
	Name                 string                  `yaml:"name"`
	Thresholds           map[string]RawThreshold `yaml:"thresholds"`
	EomTimeout           *time.Duration          `yaml:"eomTimeout"`
	ToggleConfirmTimeout *time.Duration          `yaml:"toggleConfirmTimeout"`
	CounterBusyRetries   *int                    `yaml:"counterBusyRetries"`
	DisableCaps          []string                `yaml:"disableCaps"`
}

// RawOverrides is the top level of a profile override file.
type RawOverrides struct {
	Profiles []RawProfile `yaml:"profiles"`
}

// ParseOverrides parses profile overrides from YAML bytes.
func ParseOverrides(data []byte) (*RawOverrides, error) {
	var o RawOverrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parsing profile overrides: %w", err)
	}
	for i, p := range o.Profiles {
		if p.Tag == "" {
			return nil, fmt.Errorf("profile %d missing tag", i)
		}
		if p.Fallback == "" {
			return nil, fmt.Errorf("profile %s missing fallback", p.Tag)
		}
	}
	return &o, nil
}

// LoadOverrides parses profile overrides and registers them in order, so a
// profile may fall back to one defined earlier in the same file.
func (t *Table) LoadOverrides(data []byte) error {
	o, err := ParseOverrides(data)
	if err != nil {
		return err
	}
	for _, raw := range o.Profiles {
		def, err := t.definitionOf(raw)
		if err != nil {
			return fmt.Errorf("profile %s: %w", raw.Tag, err)
		}
		if err := t.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// LoadOverridesFile reads path and loads its profile overrides.
func (t *Table) LoadOverridesFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return t.LoadOverrides(data)
}

func (t *Table) definitionOf(raw RawProfile) (Definition, error) {
	fb, err := t.Lookup(Tag(raw.Fallback))
	if err != nil {
		return Definition{}, err
	}

	def := Definition{
		Tag:                  Tag(raw.Tag),
		Fallback:             Tag(raw.Fallback),
		Name:                 raw.Name,
		EomPollTimeout:       raw.EomTimeout,
		ToggleConfirmTimeout: raw.ToggleConfirmTimeout,
		CounterBusyRetries:   raw.CounterBusyRetries,
	}

	if len(raw.Thresholds) > 0 {
		def.Thresholds = make(map[model.ErrorKind]Threshold, len(raw.Thresholds))
		for name, rt := range raw.Thresholds {
			kind, err := model.ParseErrorKind(name)
			if err != nil {
				return Definition{}, err
			}
			th, _ := fb.Threshold(kind)
			if rt.Rate != nil {
				th.Rate = *rt.Rate
			}
			if rt.Count != nil {
				th.Count = *rt.Count
			}
			def.Thresholds[kind] = th
		}
	}

	if len(raw.DisableCaps) > 0 {
		var off Capability
		for _, name := range raw.DisableCaps {
			c, err := ParseCapability(name)
			if err != nil {
				return Definition{}, err
			}
			off |= c
		}
		def.Caps = func(fb Capability) Capability { return fb &^ off }
	}

	return def, nil
}
