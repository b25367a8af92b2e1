package eom

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linkval/nvldiag/internal/simhw"
	"github.com/linkval/nvldiag/pkg/ctrlchan"
	chmocks "github.com/linkval/nvldiag/pkg/ctrlchan/mocks"
	"github.com/linkval/nvldiag/pkg/generation"
	"github.com/linkval/nvldiag/pkg/linkerr"
	"github.com/linkval/nvldiag/pkg/model"
	"github.com/linkval/nvldiag/pkg/regport"
	portmocks "github.com/linkval/nvldiag/pkg/regport/mocks"
	"github.com/linkval/nvldiag/pkg/topology"
)

func discover(t *testing.T, p *generation.Profile, ch ctrlchan.Channel) *topology.Topology {
	t.Helper()
	topo := topology.New(p, ch, topology.Config{})
	require.NoError(t, topo.Discover(context.Background()))
	return topo
}

func simEngine(t *testing.T, cfg simhw.Config, ecfg Config) (*simhw.Device, *Engine) {
	t.Helper()
	sim := simhw.New(cfg)
	topo := discover(t, sim.Profile(), sim)
	return sim, New(topo, sim.Port(), sim, &sync.Mutex{}, ecfg)
}

func yRequest(lanes uint32) Request {
	return Request{Mode: model.EomModeY, NumErrors: 7, NumBlocks: 10, NumLanes: lanes}
}

// TestMeasureMockedLink drives the full protocol against a mocked port
// whose done bit asserts on the second poll.
func TestMeasureMockedLink(t *testing.T) {
	p := generation.Resolve(generation.TagNvl3)
	require.Equal(t, uint32(4), p.LanesPerLink())
	regs := p.EomRegs()
	fields := simhw.New(simhw.DefaultConfig(p)).Port()
	const id = model.LinkID(2)
	idx := regport.Link(id)

	ch := chmocks.NewMockChannel(t)
	ch.EXPECT().DiscoverLinks(mock.Anything).Return(model.MaskOf(id), nil)
	ch.EXPECT().GetLinkStatus(mock.Anything).Return([]ctrlchan.LinkStatus{{
		Link:         id,
		State:        model.LinkStateActive,
		SublinkWidth: 4,
		LineRateMbps: 25000,
		LinkClockMHz: 1000,
		Remote:       model.RemoteEndpoint{Type: model.RemoteGPU},
	}}, nil)
	ch.EXPECT().SetupEom(mock.Anything, id, uint32(0xa73)).Return(nil).Once()

	port := portmocks.NewMockPort(t)
	port.EXPECT().HasWriteAccess(mock.Anything, idx).Return(true).Maybe()
	port.EXPECT().HasReadAccess(mock.Anything, idx).Return(true).Maybe()
	port.EXPECT().SetField(mock.Anything, mock.Anything, mock.Anything).RunAndReturn(fields.SetField).Maybe()
	port.EXPECT().GetField(mock.Anything, mock.Anything).RunAndReturn(fields.GetField).Maybe()

	// Configure, enable and disable each read-modify-write the control register.
	port.EXPECT().Read(regs.Control, idx).Return(0, nil).Times(3)
	port.EXPECT().Write(regs.Control, idx, mock.Anything).Return(nil).Times(3)

	port.EXPECT().Test(regs.DoneClear, idx).Return(true, nil).Once()
	port.EXPECT().Test(regs.DoneSet, idx).Return(false, nil).Once()
	port.EXPECT().Test(regs.DoneSet, idx).Return(true, nil).Once()

	for lane := uint32(0); lane < 4; lane++ {
		sel := fields.SetField(0, regs.LaneSelectField, lane)
		port.EXPECT().Write(regs.LaneSelect, idx, sel).Return(nil).Once()
	}
	// Status flags in the high byte are masked off.
	port.EXPECT().Read(regs.LaneData, idx).Return(fields.SetField(0, regs.DataField, 0xa501), nil).Times(4)

	e := New(discover(t, p, ch), port, ch, &sync.Mutex{}, DefaultConfig())
	res, err := e.Measure(context.Background(), id, yRequest(4))
	require.NoError(t, err)

	assert.Equal(t, model.EomResult{0x01, 0x01, 0x01, 0x01}, res.Codes)
	assert.Equal(t, 2, res.EnablePolls)
	assert.Equal(t, 1, res.ArmPolls)
	assert.Equal(t, uint32(0xa73), res.Settings.Encoded)
}

func TestMeasureSimulatedDevice(t *testing.T) {
	for _, tag := range []generation.Tag{generation.TagNvl2, generation.TagNvl3, generation.TagNvl4, generation.TagNvl5} {
		t.Run(string(tag), func(t *testing.T) {
			cfg := simhw.DefaultConfig(generation.Resolve(tag))
			cfg.EomCode = func(_ model.LinkID, lane uint32) uint8 { return uint8(0x10 + lane) }
			sim, e := simEngine(t, cfg, DefaultConfig())
			lanes := sim.Profile().LanesPerLink()

			res, err := e.Measure(context.Background(), 1, Request{
				Mode:      model.EomModeX,
				NumErrors: 1,
				NumBlocks: 1,
				FirstLane: 1,
				NumLanes:  lanes - 1,
			})
			require.NoError(t, err)

			want := make(model.EomResult, 0, lanes-1)
			for lane := uint32(1); lane < lanes; lane++ {
				want = append(want, uint8(0x10+lane))
			}
			assert.Equal(t, want, res.Codes)
			assert.Equal(t, cfg.EomDonePolls, res.EnablePolls)
			assert.False(t, sim.EomEnabled(1))

			setup, ok := sim.EomSetup(1)
			require.True(t, ok)
			assert.Equal(t, res.Settings.Encoded, setup)
		})
	}
}

func TestPhaseOrder(t *testing.T) {
	var phases []Phase
	cfg := DefaultConfig()
	cfg.OnPhase = func(_ model.LinkID, p Phase) { phases = append(phases, p) }
	_, e := simEngine(t, simhw.DefaultConfig(generation.Resolve(generation.TagNvl2)), cfg)

	_, err := e.GetEomStatus(context.Background(), 0, yRequest(1))
	require.NoError(t, err)
	assert.Equal(t, []Phase{PhaseValidate, PhaseConfigure, PhaseArm, PhaseEnable, PhaseDisable, PhaseCollect}, phases)
}

func TestValidationWritesNothing(t *testing.T) {
	cfg := simhw.DefaultConfig(generation.Resolve(generation.TagNvl2))
	cfg.Links[4].State = model.LinkStateSafe

	tests := []struct {
		name string
		link model.LinkID
		req  Request
		kind linkerr.Kind
	}{
		{"unsupported mode", 0, Request{Mode: model.EomModeXL, NumErrors: 1, NumBlocks: 1, NumLanes: 1}, linkerr.Unsupported},
		{"unknown mode", 0, Request{Mode: model.EomMode(42), NumLanes: 1}, linkerr.Unsupported},
		{"no lanes", 0, yRequest(0), linkerr.InvalidArgument},
		{"too many lanes", 0, yRequest(9), linkerr.InvalidArgument},
		{"first lane out of range", 0, Request{Mode: model.EomModeY, FirstLane: 8, NumLanes: 1}, linkerr.InvalidArgument},
		{"errors out of range", 0, Request{Mode: model.EomModeY, NumErrors: 8, NumBlocks: 1, NumLanes: 1}, linkerr.InvalidArgument},
		{"invalid link", 6, yRequest(1), linkerr.InvalidArgument},
		{"inactive link", 4, yRequest(1), linkerr.Unsupported},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sim := simhw.New(cfg)
			topo := discover(t, sim.Profile(), sim)

			// A port without expectations fails the test on any access.
			port := portmocks.NewMockPort(t)
			e := New(topo, port, sim, &sync.Mutex{}, DefaultConfig())

			_, err := e.GetEomStatus(context.Background(), tc.link, tc.req)
			assert.ErrorIs(t, err, tc.kind)
			for _, c := range sim.Calls() {
				assert.NotEqual(t, simhw.OpSetupEom, c.Op)
			}
		})
	}
}

func TestPrivilegeWritesNothing(t *testing.T) {
	sim, e := simEngine(t, simhw.DefaultConfig(generation.Resolve(generation.TagNvl2)), DefaultConfig())
	sim.Port().LockWrite(sim.Profile().EomRegs().Control, regport.PrivLevel3)

	_, err := e.GetEomStatus(context.Background(), 0, yRequest(2))
	assert.ErrorIs(t, err, linkerr.PrivilegeViolation)
	assert.Empty(t, sim.Port().Writes())
}

// TestTimeoutRestoresDisabled covers the cleanup policy: when done never
// asserts, enable and override are cleared before Timeout is returned.
func TestTimeoutRestoresDisabled(t *testing.T) {
	for _, tag := range []generation.Tag{generation.TagNvl2, generation.TagNvl3, generation.TagNvl5} {
		t.Run(string(tag), func(t *testing.T) {
			cfg := simhw.DefaultConfig(generation.Resolve(tag))
			cfg.EomDonePolls = -1
			sim, e := simEngine(t, cfg, DefaultConfig())
			regs := sim.Profile().EomRegs()

			req := yRequest(1)
			req.Mode = model.EomModeX
			req.Timeout = 2 * time.Millisecond
			_, err := e.GetEomStatus(context.Background(), 3, req)
			require.ErrorIs(t, err, linkerr.Timeout)

			enabledDuringRun := false
			for _, w := range sim.Port().Writes() {
				if w.Reg == regs.Control && sim.Port().GetField(w.Value, regs.OverrideField) != 0 {
					enabledDuringRun = true
				}
			}
			assert.True(t, enabledDuringRun)
			assert.False(t, sim.EomEnabled(3), "enable and override cleared after timeout")
		})
	}
}

func TestArmTimeoutRestoresDisabled(t *testing.T) {
	cfg := simhw.DefaultConfig(generation.Resolve(generation.TagNvl3))
	cfg.EomDoneStuck = true
	sim, e := simEngine(t, cfg, DefaultConfig())
	regs := sim.Profile().EomRegs()

	req := yRequest(1)
	req.Timeout = 2 * time.Millisecond
	codes, err := e.GetEomStatus(context.Background(), 3, req)
	require.ErrorIs(t, err, linkerr.Timeout)
	assert.Contains(t, err.Error(), "done cleared")
	assert.Nil(t, codes)

	for _, w := range sim.Port().Writes() {
		if w.Reg == regs.Control {
			assert.Zero(t, sim.Port().GetField(w.Value, regs.EnableField), "enable never set")
		}
	}
	assert.False(t, sim.EomEnabled(3), "enable and override cleared after arm timeout")
}

func TestFirmwareFailureRestoresDisabled(t *testing.T) {
	sim, e := simEngine(t, simhw.DefaultConfig(generation.Resolve(generation.TagNvl3)), DefaultConfig())
	sim.FailNext(simhw.OpSetupEom, nil)

	_, err := e.GetEomStatus(context.Background(), 0, yRequest(4))
	require.ErrorIs(t, err, linkerr.TransportFailure)
	assert.ErrorIs(t, err, simhw.ErrInjected)
	assert.False(t, sim.EomEnabled(0))
}

func TestSimulatorPlatform(t *testing.T) {
	sim := simhw.New(simhw.DefaultConfig(generation.Resolve(generation.TagNvl4)))
	topo := discover(t, sim.Profile(), sim)
	port := portmocks.NewMockPort(t)

	cfg := DefaultConfig()
	cfg.Platform = model.PlatformSimulator
	e := New(topo, port, sim, &sync.Mutex{}, cfg)

	res, err := e.Measure(context.Background(), 0, yRequest(2))
	require.NoError(t, err)
	assert.True(t, res.Simulated)
	assert.Equal(t, model.EomResult{SimulatedLaneCode, SimulatedLaneCode}, res.Codes)

	_, err = e.Measure(context.Background(), 0, yRequest(3))
	assert.ErrorIs(t, err, linkerr.InvalidArgument, "validation still applies")
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "arm", PhaseArm.String())
	assert.Equal(t, "unknown", Phase(99).String())
}
