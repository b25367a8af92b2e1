package counters

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linkval/nvldiag/internal/simhw"
	"github.com/linkval/nvldiag/pkg/ctrlchan"
	"github.com/linkval/nvldiag/pkg/ctrlchan/mocks"
	"github.com/linkval/nvldiag/pkg/generation"
	"github.com/linkval/nvldiag/pkg/linkerr"
	"github.com/linkval/nvldiag/pkg/model"
	"github.com/linkval/nvldiag/pkg/regport"
	"github.com/linkval/nvldiag/pkg/topology"
)

type fixture struct {
	sim   *simhw.Device
	topo  *topology.Topology
	store *Store
	lock  *sync.Mutex
}

func newFixture(t *testing.T, tag generation.Tag) *fixture {
	t.Helper()
	sim := simhw.New(simhw.DefaultConfig(generation.Resolve(tag)))
	topo := topology.New(sim.Profile(), sim, topology.Config{})
	require.NoError(t, topo.Discover(context.Background()))
	lock := &sync.Mutex{}
	return &fixture{
		sim:   sim,
		topo:  topo,
		store: New(topo, sim, sim.Port(), lock, DefaultConfig()),
		lock:  lock,
	}
}

func hwKinds(p *generation.Profile) []model.ErrorKind {
	return p.ErrorCounters().Without(model.ErrRecovery).Kinds()
}

func TestClearResetsCache(t *testing.T) {
	for _, tag := range []generation.Tag{generation.TagNvl2, generation.TagNvl3, generation.TagNvl4, generation.TagNvl5} {
		t.Run(string(tag), func(t *testing.T) {
			f := newFixture(t, tag)
			ctx := context.Background()

			for _, id := range f.topo.ValidMask().Links() {
				delta := make(model.CounterSet)
				for _, k := range hwKinds(f.sim.Profile()) {
					delta[k] = model.Counter{Count: uint64(id) + 3}
				}
				f.sim.InjectErrors(id, delta)
				f.sim.InjectRecoveries(id, 2)

				// Cache something so the clear must drop it too.
				f.lock.Lock()
				require.NoError(t, f.store.CacheErrorCountsLocked(ctx, id))
				f.lock.Unlock()

				require.NoError(t, f.store.ClearHwErrorCounts(ctx, id))
				counts, err := f.store.GetErrorCounts(ctx, id)
				require.NoError(t, err)
				for _, k := range f.sim.Profile().ErrorCounters().Kinds() {
					assert.Zero(t, counts.Get(k).Count, "link %d kind %s", id, k)
				}
			}
		})
	}
}

func TestCacheContinuityAcrossEntangledClears(t *testing.T) {
	f := newFixture(t, generation.TagNvl4)
	ctx := context.Background()
	pw := f.sim.Profile().PowerRegs()
	const id = model.LinkID(3)

	require.NoError(t, f.store.ClearHwErrorCounts(ctx, id))

	var want uint64
	for cycle := 1; cycle <= 5; cycle++ {
		delta := uint64(cycle * 10)
		f.sim.InjectErrors(id, model.CounterSet{model.ErrRxCrcFlit: {Count: delta}})
		want += delta

		// A low-power counter clear destroys the error counters on this
		// generation; the store must snapshot them first.
		f.lock.Lock()
		require.NoError(t, f.store.CacheErrorCountsLocked(ctx, id))
		require.NoError(t, f.sim.Port().Write(pw.CountClear, regport.Link(id), 1))
		f.lock.Unlock()

		counts, err := f.store.GetErrorCounts(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, counts.Get(model.ErrRxCrcFlit).Count, "cycle %d", cycle)
	}

	// Live traffic after the last clear adds on top of the cache.
	f.sim.InjectErrors(id, model.CounterSet{model.ErrRxCrcFlit: {Count: 7}})
	counts, err := f.store.GetErrorCounts(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, want+7, counts.Get(model.ErrRxCrcFlit).Count)
}

func TestEntangledClearSavesLowPowerCounts(t *testing.T) {
	f := newFixture(t, generation.TagNvl4)
	ctx := context.Background()

	f.sim.InjectLowPower(1, 4, 3)
	require.NoError(t, f.store.ClearHwErrorCounts(ctx, 1))

	assert.Equal(t, model.LowPowerCounts{}, f.sim.LowPowerCounts(1))
	assert.Equal(t, model.LowPowerCounts{Entries: 4, Exits: 3}, f.store.SavedLowPowerCounts(1))

	f.lock.Lock()
	f.store.ResetLowPowerCacheLocked(1)
	f.lock.Unlock()
	assert.Equal(t, model.LowPowerCounts{}, f.store.SavedLowPowerCounts(1))
}

func TestFailedEntangledClearSavesNothing(t *testing.T) {
	f := newFixture(t, generation.TagNvl4)
	ctx := context.Background()

	f.sim.InjectLowPower(1, 3, 3)
	f.sim.FailNext(simhw.OpClearCounters, nil)
	err := f.store.ClearHwErrorCounts(ctx, 1)
	assert.ErrorIs(t, err, linkerr.TransportFailure)
	assert.Equal(t, model.LowPowerCounts{Entries: 3, Exits: 3}, f.sim.LowPowerCounts(1))
	assert.Equal(t, model.LowPowerCounts{}, f.store.SavedLowPowerCounts(1))

	// Busy past the retry budget.
	f.sim.InjectLowPower(1, 2, 2)
	f.sim.SetBusy(f.sim.Profile().CounterBusyRetries() + 5)
	err = f.store.ClearHwErrorCounts(ctx, 1)
	assert.ErrorIs(t, err, ctrlchan.ErrBusy)
	f.sim.SetBusy(0)
	assert.Equal(t, model.LowPowerCounts{Entries: 5, Exits: 5}, f.sim.LowPowerCounts(1))
	assert.Equal(t, model.LowPowerCounts{}, f.store.SavedLowPowerCounts(1))

	// A later successful clear moves the whole count into the cache once.
	require.NoError(t, f.store.ClearHwErrorCounts(ctx, 1))
	assert.Equal(t, model.LowPowerCounts{}, f.sim.LowPowerCounts(1))
	assert.Equal(t, model.LowPowerCounts{Entries: 5, Exits: 5}, f.store.SavedLowPowerCounts(1))
}

func TestFailedDrainResetsRecoveryTally(t *testing.T) {
	f := newFixture(t, generation.TagNvl3)
	ctx := context.Background()

	f.sim.InjectRecoveries(0, 4)
	counts, err := f.store.GetErrorCounts(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(4), counts.Get(model.ErrRecovery).Count)

	f.sim.InjectRecoveries(0, 2)
	f.sim.FailNext(simhw.OpGetErrorRecoveries, nil)
	assert.ErrorIs(t, f.store.ClearHwErrorCounts(ctx, 0), linkerr.TransportFailure)

	// The tally restarts; only the undrained recoveries remain.
	counts, err = f.store.GetErrorCounts(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), counts.Get(model.ErrRecovery).Count)
}

func TestAddCachedLocked(t *testing.T) {
	f := newFixture(t, generation.TagNvl4)
	ctx := context.Background()
	f.sim.InjectErrors(2, model.CounterSet{model.ErrTxReplay: {Count: 6}})

	f.lock.Lock()
	live, err := f.store.ReadLiveLocked(ctx, 2)
	f.lock.Unlock()
	require.NoError(t, err)
	assert.Equal(t, uint64(6), live.Get(model.ErrTxReplay).Count)

	// Reading alone caches nothing.
	counts, err := f.store.GetErrorCounts(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), counts.Get(model.ErrTxReplay).Count)

	f.lock.Lock()
	f.store.AddCachedLocked(2, live)
	f.lock.Unlock()
	counts, err = f.store.GetErrorCounts(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), counts.Get(model.ErrTxReplay).Count)
}

func TestNonEntangledClearKeepsLowPowerCounts(t *testing.T) {
	f := newFixture(t, generation.TagNvl3)
	f.sim.InjectLowPower(1, 4, 3)
	require.NoError(t, f.store.ClearHwErrorCounts(context.Background(), 1))

	assert.Equal(t, model.LowPowerCounts{Entries: 4, Exits: 3}, f.sim.LowPowerCounts(1))
	assert.Equal(t, model.LowPowerCounts{}, f.store.SavedLowPowerCounts(1))
}

func TestRecoveryTally(t *testing.T) {
	f := newFixture(t, generation.TagNvl3)
	ctx := context.Background()

	f.sim.InjectRecoveries(0, 3)
	for i := 0; i < 3; i++ {
		counts, err := f.store.GetErrorCounts(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), counts.Get(model.ErrRecovery).Count, "read %d", i)
	}

	f.sim.InjectRecoveries(0, 2)
	counts, err := f.store.GetErrorCounts(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), counts.Get(model.ErrRecovery).Count)

	f.sim.InjectRecoveries(0, 9)
	require.NoError(t, f.store.ClearHwErrorCounts(ctx, 0))
	counts, err = f.store.GetErrorCounts(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, counts.Get(model.ErrRecovery).Count, "clear drains pending recoveries")
}

func TestAsyncPhyRefreshQuery(t *testing.T) {
	f := newFixture(t, generation.TagNvl3)
	f.sim.InjectErrors(2, model.CounterSet{model.ErrPhyRefreshFail: {Count: 1}, model.ErrTxReplay: {Count: 4}})

	counts, err := f.store.GetErrorCounts(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), counts.Get(model.ErrPhyRefreshFail).Count)
	assert.Equal(t, uint64(4), counts.Get(model.ErrTxReplay).Count)

	var queries []model.CounterMask
	for _, c := range f.sim.Calls() {
		if c.Op == simhw.OpGetErrorCounters {
			queries = append(queries, c.Counters)
		}
	}
	require.Len(t, queries, 2)
	assert.False(t, queries[0].Has(model.ErrPhyRefreshFail))
	assert.Equal(t, model.CounterMaskOf(model.ErrPhyRefreshPass, model.ErrPhyRefreshFail), queries[1])
}

func TestBusyRetry(t *testing.T) {
	f := newFixture(t, generation.TagNvl3)
	ctx := context.Background()

	f.sim.SetBusy(2)
	_, err := f.store.GetErrorCounts(ctx, 0)
	require.NoError(t, err)

	f.sim.SetBusy(10)
	_, err = f.store.GetErrorCounts(ctx, 0)
	assert.ErrorIs(t, err, linkerr.TransportFailure)
	assert.ErrorIs(t, err, ctrlchan.ErrBusy)
}

func TestNoBusyRetryWithoutErratum(t *testing.T) {
	f := newFixture(t, generation.TagNvl2)
	f.sim.SetBusy(1)
	_, err := f.store.GetErrorCounts(context.Background(), 0)
	assert.ErrorIs(t, err, ctrlchan.ErrBusy)
}

func TestTransportFailureSurfacedVerbatim(t *testing.T) {
	boom := errors.New("mailbox timeout")
	sim := simhw.New(simhw.DefaultConfig(generation.Resolve(generation.TagNvl3)))
	topo := topology.New(sim.Profile(), sim, topology.Config{})
	require.NoError(t, topo.Discover(context.Background()))

	ch := mocks.NewMockChannel(t)
	ch.EXPECT().GetErrorCounters(mock.Anything, model.MaskOf(1), mock.Anything).Return(nil, boom).Once()

	s := New(topo, ch, sim.Port(), &sync.Mutex{}, DefaultConfig())
	_, err := s.GetErrorCounts(context.Background(), 1)
	assert.ErrorIs(t, err, linkerr.TransportFailure)
	assert.ErrorIs(t, err, boom)
}

func TestInvalidLink(t *testing.T) {
	f := newFixture(t, generation.TagNvl2)
	ctx := context.Background()

	_, err := f.store.GetErrorCounts(ctx, 6)
	assert.ErrorIs(t, err, linkerr.InvalidArgument)
	assert.ErrorIs(t, f.store.ClearHwErrorCounts(ctx, 40), linkerr.InvalidArgument)
	assert.Empty(t, f.sim.Calls()[2:], "no channel traffic after discovery")
}

func TestClearPrivilegeViolation(t *testing.T) {
	f := newFixture(t, generation.TagNvl4)
	f.sim.Port().LockRead(f.sim.Profile().PowerRegs().EntryCount, regport.PrivLevel3)

	err := f.store.ClearHwErrorCounts(context.Background(), 0)
	assert.ErrorIs(t, err, linkerr.PrivilegeViolation)
	for _, c := range f.sim.Calls() {
		assert.NotEqual(t, simhw.OpClearCounters, c.Op)
	}
}

func TestDefaultThreshold(t *testing.T) {
	p := generation.Resolve(generation.TagNvl2)

	v, err := DefaultThreshold(p, model.ErrRxCrcFlit, true)
	require.NoError(t, err)
	assert.Equal(t, 1e-14, v)

	v, err = DefaultThreshold(p, model.ErrRxCrcFlit, false)
	require.NoError(t, err)
	assert.Equal(t, 100.0, v)

	_, err = DefaultThreshold(p, model.ErrRecovery, true)
	assert.ErrorIs(t, err, linkerr.Unsupported)
	_, err = DefaultThreshold(p, model.ErrRxEccLane0, false)
	assert.ErrorIs(t, err, linkerr.Unsupported)

	v, err = DefaultThreshold(generation.Resolve(generation.TagNvl4), model.ErrRxEccLane0, true)
	require.NoError(t, err)
	assert.Equal(t, 1e-6, v)
}

func TestCheckThresholds(t *testing.T) {
	p := generation.Resolve(generation.TagNvl2)
	link := model.Link{ID: 1, SublinkWidth: 4, LineRateMbps: 25000}

	counts := model.CounterSet{
		model.ErrRxCrcFlit:  {Count: 50},
		model.ErrTxReplay:   {Count: 150},
		model.ErrRxEccLane0: {Count: 1 << 40},
	}
	v := CheckThresholds(p, link, counts, 10*time.Second)
	require.Len(t, v, 2)

	assert.Equal(t, model.ErrTxReplay, v[0].Kind)
	assert.True(t, v[0].CountExceeded)

	assert.Equal(t, model.ErrRxCrcFlit, v[1].Kind)
	assert.False(t, v[1].CountExceeded)
	assert.True(t, v[1].RateExceeded)
	assert.InDelta(t, 5e-11, v[1].Rate, 1e-15)
}
