package topology

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linkval/nvldiag/pkg/ctrlchan"
	"github.com/linkval/nvldiag/pkg/ctrlchan/mocks"
	"github.com/linkval/nvldiag/pkg/generation"
	"github.com/linkval/nvldiag/pkg/linkerr"
	"github.com/linkval/nvldiag/pkg/model"
)

func gpuStatus(id model.LinkID, state model.LinkState, ac bool) ctrlchan.LinkStatus {
	return ctrlchan.LinkStatus{
		Link:         id,
		State:        state,
		SublinkWidth: 4,
		LineRateMbps: 25000,
		LinkClockMHz: 1000,
		AcCoupled:    ac,
		Remote:       model.RemoteEndpoint{Type: model.RemoteGPU, LinkID: id},
	}
}

func TestDiscover(t *testing.T) {
	ch := mocks.NewMockChannel(t)
	ch.EXPECT().DiscoverLinks(mock.Anything).Return(model.MaskOf(0, 1, 5), nil)
	ch.EXPECT().GetLinkStatus(mock.Anything).Return([]ctrlchan.LinkStatus{
		gpuStatus(0, model.LinkStateActive, true),
		gpuStatus(1, model.LinkStateSafe, false),
	}, nil)

	topo := New(generation.Resolve(generation.TagNvl3), ch, Config{})
	require.NoError(t, topo.Discover(context.Background()))

	assert.True(t, topo.Discovered())
	assert.Equal(t, model.MaskOf(0, 1, 5), topo.ValidMask())
	assert.Equal(t, model.MaskOf(0), topo.ActiveMask())
	assert.True(t, topo.IsAcCoupled(0))
	assert.False(t, topo.IsAcCoupled(1))
	assert.Equal(t, []model.GroupID{0, 1}, topo.Groups())

	l5, err := topo.Link("test", 5)
	require.NoError(t, err)
	assert.Equal(t, model.LinkStateOff, l5.State)
	assert.Equal(t, model.GroupID(1), l5.Group)

	_, err = topo.Link("test", 3)
	assert.ErrorIs(t, err, linkerr.InvalidArgument)
	_, err = topo.Link("test", 12)
	assert.ErrorIs(t, err, linkerr.InvalidArgument)
}

func TestDiscoverMaskBeyondMaxLinks(t *testing.T) {
	ch := mocks.NewMockChannel(t)
	ch.EXPECT().DiscoverLinks(mock.Anything).Return(model.MaskOf(0, 7), nil)

	topo := New(generation.Resolve(generation.TagNvl2), ch, Config{})
	err := topo.Discover(context.Background())
	assert.ErrorIs(t, err, linkerr.HardwareFault)
	assert.False(t, topo.Discovered())
}

func TestDiscoverUnknownRemoteType(t *testing.T) {
	ch := mocks.NewMockChannel(t)
	ch.EXPECT().DiscoverLinks(mock.Anything).Return(model.MaskOf(0), nil)
	st := gpuStatus(0, model.LinkStateActive, true)
	st.Remote.Type = 42
	ch.EXPECT().GetLinkStatus(mock.Anything).Return([]ctrlchan.LinkStatus{st}, nil)

	topo := New(generation.Resolve(generation.TagNvl3), ch, Config{})
	assert.ErrorIs(t, topo.Discover(context.Background()), linkerr.HardwareFault)
}

func TestDiscoverTransportFailure(t *testing.T) {
	boom := errors.New("firmware not responding")
	ch := mocks.NewMockChannel(t)
	ch.EXPECT().DiscoverLinks(mock.Anything).Return(0, boom)

	topo := New(generation.Resolve(generation.TagNvl3), ch, Config{})
	err := topo.Discover(context.Background())
	assert.ErrorIs(t, err, linkerr.TransportFailure)
	assert.ErrorIs(t, err, boom)
}

func TestCheckMask(t *testing.T) {
	ch := mocks.NewMockChannel(t)
	ch.EXPECT().DiscoverLinks(mock.Anything).Return(model.MaskOf(0, 1), nil)
	ch.EXPECT().GetLinkStatus(mock.Anything).Return(nil, nil)

	topo := New(generation.Resolve(generation.TagNvl3), ch, Config{})
	require.NoError(t, topo.Discover(context.Background()))

	assert.NoError(t, topo.CheckMask("test", model.MaskOf(0, 1)))
	assert.ErrorIs(t, topo.CheckMask("test", 0), linkerr.InvalidArgument)
	assert.ErrorIs(t, topo.CheckMask("test", model.MaskOf(0, 2)), linkerr.InvalidArgument)
}
