package generation

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/linkval/nvldiag/pkg/model"
)

func TestBuiltinChains(t *testing.T) {
	tests := []struct {
		tag   Tag
		chain []Tag
	}{
		{TagNvl2, []Tag{TagNvl2}},
		{TagNvl3, []Tag{TagNvl3, TagNvl2}},
		{TagNvl3Sw, []Tag{TagNvl3Sw, TagNvl3, TagNvl2}},
		{TagNvl4, []Tag{TagNvl4, TagNvl3, TagNvl2}},
		{TagNvl5, []Tag{TagNvl5, TagNvl4, TagNvl3, TagNvl2}},
	}
	for _, tt := range tests {
		t.Run(string(tt.tag), func(t *testing.T) {
			got := Resolve(tt.tag).Chain()
			if !reflect.DeepEqual(got, tt.chain) {
				t.Errorf("Chain() = %v, want %v", got, tt.chain)
			}
		})
	}
}

func TestFieldDelegation(t *testing.T) {
	nvl5 := Resolve(TagNvl5)

	// Forwarded to nvl4.
	if got := nvl5.MaxLinks(); got != 18 {
		t.Errorf("nvl5 MaxLinks = %d, want 18", got)
	}
	if got := nvl5.LanesPerLink(); got != 2 {
		t.Errorf("nvl5 LanesPerLink = %d, want 2", got)
	}
	if got := nvl5.PowerRegs().Control; got != "NVLDL_PWR_CTRL2" {
		t.Errorf("nvl5 power control = %s, want NVLDL_PWR_CTRL2", got)
	}

	// Forwarded all the way to nvl2.
	if got := nvl5.IobistRegs().Control; got != "NVLPHY_IOBIST_CTRL" {
		t.Errorf("nvl5 IOBIST control = %s", got)
	}
	if got := nvl5.ToggleConfirmTimeout(); got != 10*time.Millisecond {
		t.Errorf("nvl5 toggle timeout = %v", got)
	}

	// Overridden.
	if got := nvl5.EomRegs().Control; got != "UPHY_EOM_CTRL" {
		t.Errorf("nvl5 EOM control = %s, want UPHY_EOM_CTRL", got)
	}
	if got := Resolve(TagNvl4).EomRegs().Control; got != "NVLPHY_EOM_CTRL" {
		t.Errorf("nvl4 EOM control = %s, want NVLPHY_EOM_CTRL", got)
	}

	if got := Resolve(TagNvl3Sw).GroupOf(9); got != 2 {
		t.Errorf("nvl3sw GroupOf(9) = %d, want 2", got)
	}
}

func TestCapabilities(t *testing.T) {
	tests := []struct {
		tag  Tag
		has  Capability
		lack Capability
	}{
		{TagNvl2, CapPowerState | CapLowPower | CapPowerToggle | CapEom, CapEomViaFirmware | CapIobist},
		{TagNvl3, CapEomViaFirmware | CapAsyncPhyRefresh | CapPowerToggle, CapIobist | CapEntangledPowerCounters},
		{TagNvl3Sw, CapEomViaFirmware | CapLowPower, CapPowerToggle},
		{TagNvl4, CapIobist | CapEntangledPowerCounters | CapCombinedPowerWrite | CapEomViaFirmware, CapEomLaneMask},
		{TagNvl5, CapIobist | CapEomLaneMask | CapEccCounters, CapEomViaFirmware},
	}
	for _, tt := range tests {
		t.Run(string(tt.tag), func(t *testing.T) {
			caps := Resolve(tt.tag).Caps()
			if !caps.Has(tt.has) {
				t.Errorf("caps %s missing %s", caps, tt.has&^caps)
			}
			if caps&tt.lack != 0 {
				t.Errorf("caps %s unexpectedly has %s", caps, caps&tt.lack)
			}
		})
	}
}

func TestThresholdPerKindForwarding(t *testing.T) {
	nvl5 := Resolve(TagNvl5)

	th, ok := nvl5.Threshold(model.ErrRxCrcFlit)
	if !ok || th.Rate != 1e-16 || th.Count != 20 {
		t.Errorf("nvl5 RX_CRC_FLIT = %+v, %v", th, ok)
	}
	th, ok = nvl5.Threshold(model.ErrTxReplay)
	if !ok || th.Rate != 1e-13 || th.Count != 100 {
		t.Errorf("nvl5 TX_REPLAY = %+v, %v (want nvl2 value)", th, ok)
	}
	th, ok = nvl5.Threshold(model.ErrRxEccLane1)
	if !ok || th.Count != 1000000 {
		t.Errorf("nvl5 RX_ECC_LANE1 = %+v, %v (want nvl4 value)", th, ok)
	}
	if _, ok := Resolve(TagNvl2).Threshold(model.ErrRxEccLane0); ok {
		t.Error("nvl2 should have no ECC threshold")
	}
}

func TestErrorCounters(t *testing.T) {
	nvl2 := Resolve(TagNvl2).ErrorCounters()
	if !nvl2.Has(model.ErrRxCrcLane7) || nvl2.Has(model.ErrPhyRefreshFail) {
		t.Errorf("nvl2 counters = %v", nvl2.Kinds())
	}
	nvl4 := Resolve(TagNvl4).ErrorCounters()
	if nvl4.Has(model.ErrRxCrcLane2) || !nvl4.Has(model.ErrRxEccLane1) || !nvl4.Has(model.ErrPhyRefreshPass) {
		t.Errorf("nvl4 counters = %v", nvl4.Kinds())
	}
}

func TestEncodeEom(t *testing.T) {
	s, err := Resolve(TagNvl3).EncodeEom(model.EomModeY, 7, 10)
	if err != nil {
		t.Fatalf("EncodeEom: %v", err)
	}
	if s.Encoded != 0xa73 {
		t.Errorf("Encoded = %#x, want 0xa73", s.Encoded)
	}
	if s.Mode != model.EomModeY || s.NumErrors != 7 || s.NumBlocks != 10 {
		t.Errorf("settings = %+v", s)
	}

	// nvl5 forwards the encoder to nvl4.
	s, err = Resolve(TagNvl5).EncodeEom(model.EomModeYU, 200, 3)
	if err != nil {
		t.Fatalf("EncodeEom: %v", err)
	}
	if s.Encoded != 0x4|200<<4|3<<12 {
		t.Errorf("Encoded = %#x", s.Encoded)
	}

	if _, err := Resolve(TagNvl2).EncodeEom(model.EomModeY, 8, 0); !errors.Is(err, ErrEomRange) {
		t.Errorf("numErrors 8 on nvl2: err = %v, want ErrEomRange", err)
	}
	if _, err := Resolve(TagNvl2).EncodeEom(model.EomModeXL, 0, 0); !errors.Is(err, ErrEomMode) {
		t.Errorf("XL on nvl2: err = %v, want ErrEomMode", err)
	}
}

func TestSupportsEomMode(t *testing.T) {
	if Resolve(TagNvl3).SupportsEomMode(model.EomModeYU) {
		t.Error("nvl3 should not support YU")
	}
	if !Resolve(TagNvl5).SupportsEomMode(model.EomModeYU) {
		t.Error("nvl5 should support YU")
	}
}

func TestResolveUnknownPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Resolve of unknown tag did not panic")
		}
	}()
	Resolve("nvl99")
}

func TestLookupUnknown(t *testing.T) {
	_, err := NewTable().Lookup("nvl99")
	if !errors.Is(err, ErrUnknownTag) {
		t.Errorf("err = %v, want ErrUnknownTag", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	tab := NewTable()

	if err := tab.Register(Definition{Tag: TagNvl4, Fallback: TagNvl3}); err == nil {
		t.Error("duplicate tag accepted")
	}
	if err := tab.Register(Definition{Tag: "x", Fallback: "missing"}); !errors.Is(err, ErrUnknownTag) {
		t.Errorf("missing fallback: err = %v", err)
	}
	if err := tab.Register(Definition{Tag: "root", MaxLinks: Some[uint32](4)}); err == nil {
		t.Error("incomplete root accepted")
	}

	// nvl2 keeps desired and disable fields in separate registers.
	err := tab.Register(Definition{
		Tag:      "nvl2-combined",
		Fallback: TagNvl2,
		Caps:     func(fb Capability) Capability { return fb | CapCombinedPowerWrite },
	})
	if err == nil {
		t.Error("combined power write with split registers accepted")
	}
}

func TestOverrides(t *testing.T) {
	data := `
profiles:
  - tag: nvl4-lab
    fallback: nvl4
    name: NVLink 4 lab bench
    thresholds:
      RX_CRC_FLIT:
        rate: 1.0e-12
      RECOVERY:
        count: 1
    eomTimeout: 50ms
    disableCaps: [iobist]
  - tag: nvl4-lab-slow
    fallback: nvl4-lab
    eomTimeout: 2s
`
	tab := NewTable()
	if err := tab.LoadOverrides([]byte(data)); err != nil {
		t.Fatalf("LoadOverrides: %v", err)
	}

	lab := tab.Resolve("nvl4-lab")
	if lab.Name() != "NVLink 4 lab bench" {
		t.Errorf("Name = %q", lab.Name())
	}
	th, _ := lab.Threshold(model.ErrRxCrcFlit)
	if th.Rate != 1e-12 || th.Count != 50 {
		t.Errorf("RX_CRC_FLIT = %+v, want rate overridden and nvl4 count kept", th)
	}
	th, _ = lab.Threshold(model.ErrRecovery)
	if th.Count != 1 {
		t.Errorf("RECOVERY = %+v", th)
	}
	if lab.EomPollTimeout() != 50*time.Millisecond {
		t.Errorf("EomPollTimeout = %v", lab.EomPollTimeout())
	}
	if lab.Has(CapIobist) {
		t.Error("iobist not disabled")
	}
	if !lab.Has(CapCombinedPowerWrite) {
		t.Error("combined power write lost")
	}
	if lab.LanesPerLink() != 2 {
		t.Errorf("LanesPerLink = %d", lab.LanesPerLink())
	}

	slow := tab.Resolve("nvl4-lab-slow")
	if slow.EomPollTimeout() != 2*time.Second {
		t.Errorf("EomPollTimeout = %v", slow.EomPollTimeout())
	}
	if slow.Has(CapIobist) {
		t.Error("iobist should stay disabled through delegation")
	}
	if got := slow.Overrides(); !reflect.DeepEqual(got, []string{"EomPollTimeout"}) {
		t.Errorf("Overrides = %v", got)
	}
}

func TestOverridesErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing tag", "profiles:\n  - fallback: nvl4\n"},
		{"missing fallback", "profiles:\n  - tag: x\n"},
		{"unknown fallback", "profiles:\n  - tag: x\n    fallback: nvl9\n"},
		{"unknown kind", "profiles:\n  - tag: x\n    fallback: nvl4\n    thresholds:\n      BOGUS: {count: 1}\n"},
		{"unknown cap", "profiles:\n  - tag: x\n    fallback: nvl4\n    disableCaps: [warp]\n"},
		{"bad yaml", "profiles: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := NewTable().LoadOverrides([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseCapability(t *testing.T) {
	c, err := ParseCapability("EomLaneMask")
	if err != nil || c != CapEomLaneMask {
		t.Errorf("ParseCapability = %v, %v", c, err)
	}
	if s := (CapEom | CapIobist).String(); s != "eom|iobist" {
		t.Errorf("String = %q", s)
	}
}
