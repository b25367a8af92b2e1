package fleet

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkval/nvldiag/internal/simhw"
	"github.com/linkval/nvldiag/pkg/device"
	"github.com/linkval/nvldiag/pkg/eom"
	"github.com/linkval/nvldiag/pkg/generation"
	"github.com/linkval/nvldiag/pkg/model"
)

func simDevice(t *testing.T, id string, tag generation.Tag) (*device.Device, *simhw.Device) {
	t.Helper()
	sim := simhw.New(simhw.DefaultConfig(generation.Resolve(tag)))
	cfg := device.DefaultConfig()
	cfg.ID = id
	cfg.Generation = tag
	cfg.Port = sim.Port()
	cfg.Channel = sim
	d, err := device.New(cfg)
	require.NoError(t, err)
	return d, sim
}

func TestAddAndGet(t *testing.T) {
	f := New(DefaultConfig())
	d0, _ := simDevice(t, "gpu0", generation.TagNvl2)
	d1, _ := simDevice(t, "gpu1", generation.TagNvl4)
	require.NoError(t, f.Add(d1))
	require.NoError(t, f.Add(d0))
	assert.ErrorIs(t, f.Add(d0), ErrDuplicateDevice)

	got, ok := f.Get("gpu1")
	require.True(t, ok)
	assert.Same(t, d1, got)

	devs := f.Devices()
	require.Len(t, devs, 2)
	assert.Equal(t, "gpu0", devs[0].ID())
}

func TestInitializeJoinsFailures(t *testing.T) {
	f := New(DefaultConfig())
	good, _ := simDevice(t, "gpu0", generation.TagNvl2)
	bad, sim := simDevice(t, "gpu1", generation.TagNvl2)
	sim.FailNext(simhw.OpDiscoverLinks, nil)
	require.NoError(t, f.Add(good))
	require.NoError(t, f.Add(bad))

	err := f.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gpu1")
	assert.Equal(t, device.StateReady, good.State())
	assert.Equal(t, device.StateIdle, bad.State())

	require.NoError(t, f.Shutdown())
	assert.Equal(t, device.StateClosed, good.State())
}

func TestEachCancelsOnError(t *testing.T) {
	f := New(Config{Concurrency: 1})
	for _, id := range []string{"a", "b", "c"} {
		d, _ := simDevice(t, id, generation.TagNvl2)
		require.NoError(t, f.Add(d))
	}

	boom := errors.New("boom")
	var calls atomic.Int32
	err := f.Each(context.Background(), func(ctx context.Context, d *device.Device) error {
		calls.Add(1)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.ID() == "a" {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "device a")
}

func TestSweep(t *testing.T) {
	f := New(DefaultConfig())
	d2, _ := simDevice(t, "gpu0", generation.TagNvl2)
	d4, sim4 := simDevice(t, "gpu1", generation.TagNvl4)
	require.NoError(t, f.Add(d2))
	require.NoError(t, f.Add(d4))
	require.NoError(t, f.Initialize(context.Background()))

	sim4.InjectErrors(0, model.CounterSet{model.ErrRxCrcFlit: {Count: 500}})

	snap, err := f.Sweep(context.Background(), Plan{
		Eom:           &eom.Request{Mode: model.EomModeY, NumErrors: 7, NumBlocks: 10, NumLanes: 2},
		Iobist:        true,
		ClearCounters: true,
	})
	require.NoError(t, err)
	require.Len(t, snap.Devices, 2)
	assert.False(t, snap.Failed())

	r2, ok := snap.Device("gpu0")
	require.True(t, ok)
	assert.Equal(t, "nvl2", r2.Generation)
	assert.Nil(t, r2.Iobist)
	require.NotEmpty(t, r2.Links)
	assert.Equal(t, []int{1, 1}, r2.Links[0].EomCodes)
	assert.NotNil(t, r2.Links[0].Power)

	r4, ok := snap.Device("gpu1")
	require.True(t, ok)
	assert.Equal(t, uint64(500), r4.Links[0].Counts.Get(model.ErrRxCrcFlit).Count)
	require.NotEmpty(t, r4.Links[0].Violations)
	assert.Equal(t, 1, snap.Violations())

	counts, err := d4.GetErrorCounts(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), counts.Get(model.ErrRxCrcFlit).Count)
}

func TestSweepUninitializedDevice(t *testing.T) {
	f := New(DefaultConfig())
	d, _ := simDevice(t, "gpu0", generation.TagNvl2)
	require.NoError(t, f.Add(d))

	snap, err := f.Sweep(context.Background(), Plan{})
	require.NoError(t, err)
	r, ok := snap.Device("gpu0")
	require.True(t, ok)
	assert.Equal(t, device.ErrNotInitialized.Error(), r.Error)
}
