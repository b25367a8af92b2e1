package counters

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/linkval/nvldiag/internal/poll"
	"github.com/linkval/nvldiag/pkg/ctrlchan"
	"github.com/linkval/nvldiag/pkg/generation"
	"github.com/linkval/nvldiag/pkg/linkerr"
	"github.com/linkval/nvldiag/pkg/model"
	"github.com/linkval/nvldiag/pkg/regport"
	"github.com/linkval/nvldiag/pkg/topology"
)

// Config configures a Store.
type Config struct {
	// Logger is the optional logger. Nil disables logging.
	Logger *slog.Logger
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	return Config{}
}

type accumulator struct {
	errors     model.CounterSet
	recoveries uint64
	lowPower   model.LowPowerCounts
}

// Store is the error counter store of one device.
type Store struct {
	topo    *topology.Topology
	profile *generation.Profile
	channel ctrlchan.Channel
	port    regport.Port
	lock    sync.Locker
	logger  *slog.Logger

	acc map[model.LinkID]*accumulator
}

// New creates a store. lock is the device mutex shared by all components.
func New(topo *topology.Topology, channel ctrlchan.Channel, port regport.Port, lock sync.Locker, cfg Config) *Store {
	return &Store{
		topo:    topo,
		profile: topo.Profile(),
		channel: channel,
		port:    port,
		lock:    lock,
		logger:  cfg.Logger,
		acc:     make(map[model.LinkID]*accumulator),
	}
}

func (s *Store) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Store) accumulator(id model.LinkID) *accumulator {
	a, ok := s.acc[id]
	if !ok {
		a = &accumulator{errors: make(model.CounterSet)}
		s.acc[id] = a
	}
	return a
}

// GetErrorCounts returns the logical error counters of a link: live
// hardware counters plus the accumulator. The recovery counter clears on
// read, so every read is folded into the accumulator's tally, which is
// the reported value.
func (s *Store) GetErrorCounts(ctx context.Context, id model.LinkID) (model.CounterSet, error) {
	const op = "GetErrorCounts"

	s.lock.Lock()
	defer s.lock.Unlock()

	if _, err := s.topo.Link(op, id); err != nil {
		return nil, err
	}

	live, err := s.readLive(ctx, op, id)
	if err != nil {
		return nil, err
	}
	a := s.accumulator(id)
	if err := s.foldRecoveries(ctx, op, id, a); err != nil {
		return nil, err
	}

	total := live.Add(a.errors)
	if s.profile.ErrorCounters().Has(model.ErrRecovery) {
		total[model.ErrRecovery] = model.Counter{Count: a.recoveries}
	}
	return total, nil
}

// ClearHwErrorCounts clears the hardware error counters of a link and
// resets its accumulator. On generations with entangled counters the live
// low-power counts are saved first. Recovery counters are drained by one
// read.
func (s *Store) ClearHwErrorCounts(ctx context.Context, id model.LinkID) error {
	const op = "ClearHwErrorCounts"

	s.lock.Lock()
	defer s.lock.Unlock()

	if _, err := s.topo.Link(op, id); err != nil {
		return err
	}
	a := s.accumulator(id)

	// The low-power snapshot is committed only once the clear went through.
	entangled := s.profile.Has(generation.CapEntangledPowerCounters)
	var lp model.LowPowerCounts
	if entangled {
		var err error
		if lp, err = s.readLowPower(op, id); err != nil {
			return err
		}
	}

	mask := model.MaskOf(id)
	kinds := s.profile.ErrorCounters().Without(model.ErrRecovery)
	err := s.withBusyRetry(func() error {
		return s.channel.ClearCounters(ctx, mask, kinds)
	})
	if err != nil {
		return linkerr.Transport(op, err)
	}
	if entangled {
		a.lowPower = a.lowPower.Add(lp)
		s.debug("saved low-power counts across clear", "link", id, "entries", lp.Entries, "exits", lp.Exits)
	}
	a.errors = make(model.CounterSet)

	// A failed drain leaves the pending recoveries in hardware; the next
	// read folds them into the fresh tally.
	a.recoveries = 0
	if s.profile.ErrorCounters().Has(model.ErrRecovery) {
		if _, err := s.channel.GetErrorRecoveries(ctx, mask); err != nil {
			return linkerr.Transport(op, err)
		}
	}

	s.debug("cleared error counters", "link", id)
	return nil
}

// CacheErrorCountsLocked adds the live error counters of a link to its
// accumulator. The device lock must be held.
func (s *Store) CacheErrorCountsLocked(ctx context.Context, id model.LinkID) error {
	live, err := s.ReadLiveLocked(ctx, id)
	if err != nil {
		return err
	}
	s.AddCachedLocked(id, live)
	return nil
}

// ReadLiveLocked returns the live hardware error counters of a link,
// excluding recoveries, without touching the accumulator. Callers about
// to clear the hardware counters pass the result to AddCachedLocked once
// the clear succeeded. The device lock must be held.
func (s *Store) ReadLiveLocked(ctx context.Context, id model.LinkID) (model.CounterSet, error) {
	return s.readLive(ctx, "CacheErrorCounts", id)
}

// AddCachedLocked adds counts to the accumulator of a link. The device
// lock must be held.
func (s *Store) AddCachedLocked(id model.LinkID, counts model.CounterSet) {
	a := s.accumulator(id)
	a.errors = a.errors.Add(counts)
	s.debug("cached error counters", "link", id, "total", counts.Total())
}

// SavedLowPowerCounts returns the low-power counts saved across error
// counter clears.
func (s *Store) SavedLowPowerCounts(id model.LinkID) model.LowPowerCounts {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.SavedLowPowerCountsLocked(id)
}

// SavedLowPowerCountsLocked is SavedLowPowerCounts with the device lock held.
func (s *Store) SavedLowPowerCountsLocked(id model.LinkID) model.LowPowerCounts {
	if a, ok := s.acc[id]; ok {
		return a.lowPower
	}
	return model.LowPowerCounts{}
}

// ResetLowPowerCacheLocked drops the saved low-power counts of a link.
// The device lock must be held.
func (s *Store) ResetLowPowerCacheLocked(id model.LinkID) {
	if a, ok := s.acc[id]; ok {
		a.lowPower = model.LowPowerCounts{}
	}
}

// Reset drops every accumulator.
func (s *Store) Reset() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.acc = make(map[model.LinkID]*accumulator)
}

// readLive returns the live hardware counters of a link, excluding
// recoveries.
func (s *Store) readLive(ctx context.Context, op string, id model.LinkID) (model.CounterSet, error) {
	mask := model.MaskOf(id)
	primary := s.profile.ErrorCounters().Without(model.ErrRecovery)

	var async model.CounterMask
	if s.profile.Has(generation.CapAsyncPhyRefresh) {
		async = primary & model.CounterMaskOf(model.ErrPhyRefreshPass, model.ErrPhyRefreshFail)
		primary = primary &^ async
	}

	live, err := s.query(ctx, op, id, mask, primary)
	if err != nil {
		return nil, err
	}
	if async != 0 {
		refresh, err := s.query(ctx, op, id, mask, async)
		if err != nil {
			return nil, err
		}
		live = live.Add(refresh)
	}
	return live, nil
}

func (s *Store) query(ctx context.Context, op string, id model.LinkID, mask model.LinkMask, kinds model.CounterMask) (model.CounterSet, error) {
	var res map[model.LinkID]model.CounterSet
	err := s.withBusyRetry(func() error {
		var err error
		res, err = s.channel.GetErrorCounters(ctx, mask, kinds)
		return err
	})
	if err != nil {
		return nil, linkerr.Transport(op, err)
	}
	set, ok := res[id]
	if !ok {
		return nil, linkerr.Fault(op, id, "no counters reported for link")
	}
	return set, nil
}

func (s *Store) foldRecoveries(ctx context.Context, op string, id model.LinkID, a *accumulator) error {
	if !s.profile.ErrorCounters().Has(model.ErrRecovery) {
		return nil
	}
	res, err := s.channel.GetErrorRecoveries(ctx, model.MaskOf(id))
	if err != nil {
		return linkerr.Transport(op, err)
	}
	a.recoveries += uint64(res[id])
	return nil
}

func (s *Store) readLowPower(op string, id model.LinkID) (model.LowPowerCounts, error) {
	regs := s.profile.PowerRegs()
	idx := regport.Link(id)
	for _, reg := range []string{regs.EntryCount, regs.ExitCount} {
		if !s.port.HasReadAccess(reg, idx) {
			return model.LowPowerCounts{}, linkerr.Privilege(op, id, reg)
		}
	}
	entries, err := s.port.Read(regs.EntryCount, idx)
	if err != nil {
		return model.LowPowerCounts{}, linkerr.Register(op, id, err)
	}
	exits, err := s.port.Read(regs.ExitCount, idx)
	if err != nil {
		return model.LowPowerCounts{}, linkerr.Register(op, id, err)
	}
	return model.LowPowerCounts{Entries: uint64(entries), Exits: uint64(exits)}, nil
}

// withBusyRetry retries f while the counter reservation resource is busy.
// This is the only retried control channel failure.
func (s *Store) withBusyRetry(f func() error) error {
	attempts := s.profile.CounterBusyRetries() + 1
	return poll.Retry(attempts, s.profile.CounterBusyInterval(), func(err error) bool {
		busy := errors.Is(err, ctrlchan.ErrBusy)
		if busy {
			s.debug("counter resource busy, retrying")
		}
		return busy
	}, f)
}
