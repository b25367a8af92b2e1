package iobist

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkval/nvldiag/internal/simhw"
	"github.com/linkval/nvldiag/pkg/generation"
	"github.com/linkval/nvldiag/pkg/linkerr"
	"github.com/linkval/nvldiag/pkg/model"
	"github.com/linkval/nvldiag/pkg/regport"
	"github.com/linkval/nvldiag/pkg/topology"
)

func newController(t *testing.T, cfg simhw.Config) (*simhw.Device, *Controller) {
	t.Helper()
	sim := simhw.New(cfg)
	topo := topology.New(sim.Profile(), sim, topology.Config{})
	require.NoError(t, topo.Discover(context.Background()))
	return sim, New(topo, sim.Port(), &sync.Mutex{}, Config{})
}

func nvl4Config() simhw.Config {
	return simhw.DefaultConfig(generation.Resolve(generation.TagNvl4))
}

func TestSetTimeRequiresAcCoupling(t *testing.T) {
	cfg := nvl4Config()
	cfg.Links[1].AcCoupled = false
	sim, c := newController(t, cfg)

	for _, d := range []model.IobistTime{model.IobistTime1s, model.IobistTime10s} {
		err := c.SetTime(model.MaskOf(0, 1), d)
		assert.ErrorIs(t, err, linkerr.InvalidArgument)
	}
	assert.Empty(t, sim.Port().Writes(), "no link of the mask may be written")

	require.NoError(t, c.SetTime(model.MaskOf(0, 1), model.IobistTime800us))
	require.NoError(t, c.SetTime(model.MaskOf(0), model.IobistTime10s))

	s, err := c.GetSettings(0)
	require.NoError(t, err)
	assert.Equal(t, model.IobistTime10s, s.Time)
	s, err = c.GetSettings(1)
	require.NoError(t, err)
	assert.Equal(t, model.IobistTime800us, s.Time)
}

func TestSettersRoundTrip(t *testing.T) {
	_, c := newController(t, nvl4Config())
	mask := model.MaskOf(2, 3)

	require.NoError(t, c.SetType(mask, model.IobistPostTrain))
	require.NoError(t, c.SetTime(mask, model.IobistTimeDefault))
	require.NoError(t, c.SetInitiator(model.MaskOf(2), true))

	s, err := c.GetSettings(2)
	require.NoError(t, err)
	assert.Equal(t, Settings{Type: model.IobistPostTrain, Time: model.IobistTimeDefault, Initiator: true}, s)

	s, err = c.GetSettings(3)
	require.NoError(t, err)
	assert.False(t, s.Initiator)
	assert.Equal(t, model.IobistPostTrain, s.Type)

	// Fields are independent.
	require.NoError(t, c.SetType(mask, model.IobistOff))
	s, err = c.GetSettings(2)
	require.NoError(t, err)
	assert.Equal(t, model.IobistTimeDefault, s.Time)
	assert.True(t, s.Initiator)
}

func TestSetterValidationWritesNothing(t *testing.T) {
	sim, c := newController(t, nvl4Config())

	assert.ErrorIs(t, c.SetType(0, model.IobistPreTrain), linkerr.InvalidArgument)
	assert.ErrorIs(t, c.SetType(model.MaskOf(0, 40), model.IobistPreTrain), linkerr.InvalidArgument)
	assert.ErrorIs(t, c.SetType(model.MaskOf(0), model.IobistType(9)), linkerr.InvalidArgument)
	assert.ErrorIs(t, c.SetTime(model.MaskOf(0), model.IobistTime(9)), linkerr.InvalidArgument)
	assert.ErrorIs(t, c.SetInitiator(0, true), linkerr.InvalidArgument)

	sim.Port().LockWrite(sim.Profile().IobistRegs().Control, regport.PrivLevel2)
	assert.ErrorIs(t, c.SetInitiator(model.MaskOf(0), true), linkerr.PrivilegeViolation)

	assert.Empty(t, sim.Port().Writes())
}

func TestUnsupportedGeneration(t *testing.T) {
	sim, c := newController(t, simhw.DefaultConfig(generation.Resolve(generation.TagNvl3)))

	assert.ErrorIs(t, c.SetType(model.MaskOf(0), model.IobistPreTrain), linkerr.Unsupported)
	_, err := c.GetErrorFlags(model.MaskOf(0))
	assert.ErrorIs(t, err, linkerr.Unsupported)
	assert.Empty(t, sim.Port().Accesses())
}

func TestGetErrorFlags(t *testing.T) {
	sim, c := newController(t, nvl4Config())

	flags, err := c.GetErrorFlags(model.MaskOf(0, 1, 2))
	require.NoError(t, err)
	assert.Empty(t, flags, "all conditions asserted")

	sim.SetIobistStatus(1, true, false, false)
	sim.SetIobistStatus(2, false, true, true)

	flags, err = c.GetErrorFlags(model.MaskOf(0, 1, 2))
	require.NoError(t, err)
	assert.Equal(t, []model.IobistFlag{
		{Link: 1, Kind: model.IobistAlignLock},
		{Link: 1, Kind: model.IobistScramLock},
		{Link: 2, Kind: model.IobistAlignDone},
	}, flags)

	sim.Port().LockRead(sim.Profile().IobistRegs().Status, regport.PrivLevel1)
	_, err = c.GetErrorFlags(model.MaskOf(0))
	assert.ErrorIs(t, err, linkerr.PrivilegeViolation)
}
