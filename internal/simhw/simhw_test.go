package simhw

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkval/nvldiag/pkg/ctrlchan"
	"github.com/linkval/nvldiag/pkg/generation"
	"github.com/linkval/nvldiag/pkg/model"
	"github.com/linkval/nvldiag/pkg/regport"
)

func TestLayoutValid(t *testing.T) {
	for _, tag := range generation.Default.Tags() {
		t.Run(string(tag), func(t *testing.T) {
			l := buildLayout(generation.Resolve(tag))
			require.NoError(t, l.Validate())
		})
	}
}

func TestDiscoverAndStatus(t *testing.T) {
	d := New(DefaultConfig(generation.Resolve(generation.TagNvl3)))
	ctx := context.Background()

	mask, err := d.DiscoverLinks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, mask.Count())

	status, err := d.GetLinkStatus(ctx)
	require.NoError(t, err)
	require.Len(t, status, 12)
	assert.Equal(t, model.LinkID(0), status[0].Link)
	assert.Equal(t, model.LinkStateActive, status[0].State)
}

func TestRecoveriesClearOnRead(t *testing.T) {
	d := New(DefaultConfig(generation.Resolve(generation.TagNvl3)))
	ctx := context.Background()
	d.InjectRecoveries(1, 3)

	r, err := d.GetErrorRecoveries(ctx, model.MaskOf(1))
	require.NoError(t, err)
	assert.Equal(t, uint32(3), r[1])

	r, err = d.GetErrorRecoveries(ctx, model.MaskOf(1))
	require.NoError(t, err)
	assert.Equal(t, uint32(0), r[1])
}

func TestBusyAndInjectedFailures(t *testing.T) {
	d := New(DefaultConfig(generation.Resolve(generation.TagNvl3)))
	ctx := context.Background()

	d.SetBusy(1)
	_, err := d.GetErrorCounters(ctx, model.MaskOf(0), model.AllCounters)
	assert.ErrorIs(t, err, ctrlchan.ErrBusy)
	_, err = d.GetErrorCounters(ctx, model.MaskOf(0), model.AllCounters)
	assert.NoError(t, err)

	d.FailNext(OpSetupEom, nil)
	assert.ErrorIs(t, d.SetupEom(ctx, 0, 1), ErrInjected)
	assert.NoError(t, d.SetupEom(ctx, 0, 1))
}

func TestEntangledClear(t *testing.T) {
	d := New(DefaultConfig(generation.Resolve(generation.TagNvl4)))
	ctx := context.Background()

	d.InjectLowPower(2, 5, 4)
	d.InjectErrors(2, model.CounterSet{model.ErrRxCrcFlit: {Count: 9}})

	require.NoError(t, d.ClearCounters(ctx, model.MaskOf(2), model.AllCounters))
	assert.Equal(t, model.LowPowerCounts{}, d.LowPowerCounts(2))

	d.InjectErrors(2, model.CounterSet{model.ErrRxCrcFlit: {Count: 9}})
	pw := d.Profile().PowerRegs()
	require.NoError(t, d.Port().Write(pw.CountClear, regport.Link(2), 1))
	c, err := d.GetErrorCounters(ctx, model.MaskOf(2), model.AllCounters)
	require.NoError(t, err)
	assert.Zero(t, c[2].Get(model.ErrRxCrcFlit).Count)
}

func TestPowerStatusFollowsControl(t *testing.T) {
	d := New(DefaultConfig(generation.Resolve(generation.TagNvl2)))
	p := d.Port()
	pw := d.Profile().PowerRegs()
	idx := regport.Link(0)

	var ctrl uint32
	ctrl = p.SetField(ctrl, pw.RxDesiredField, pw.LowPowerCode)
	ctrl = p.SetField(ctrl, pw.TxDesiredField, pw.LowPowerCode)
	require.NoError(t, p.Write(pw.Control, idx, ctrl))

	var dis uint32
	dis = p.SetField(dis, pw.RxHwDisableField, 1)
	dis = p.SetField(dis, pw.TxHwDisableField, 1)
	require.NoError(t, p.Write(pw.Disable, idx, dis))

	st := p.Peek(pw.Status, idx)
	assert.Equal(t, pw.LowPowerCode, p.GetField(st, pw.RxStateField))
	assert.Equal(t, pw.LowPowerCode, p.GetField(st, pw.TxStateField))
	assert.Equal(t, model.LowPowerCounts{Entries: 2}, d.LowPowerCounts(0))
}

func TestEomDoneSequence(t *testing.T) {
	d := New(DefaultConfig(generation.Resolve(generation.TagNvl3)))
	p := d.Port()
	eom := d.Profile().EomRegs()
	idx := regport.Link(0)

	ok, err := p.Test(eom.DoneClear, idx)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, p.Write(eom.Control, idx, p.SetField(0, eom.EnableField, 1)))
	ok, _ = p.Test(eom.DoneSet, idx)
	assert.False(t, ok)
	ok, _ = p.Test(eom.DoneSet, idx)
	assert.True(t, ok)
	assert.True(t, d.EomEnabled(0))
}

func TestFlagBlocks(t *testing.T) {
	d := New(DefaultConfig(generation.Resolve(generation.TagNvl2)))
	p := d.Port()
	idx := regport.Link(1)

	d.RaiseLinkFlag(1, "NVLDL_INTR_STATUS", 0x3)
	d.RaiseLinkFlag(1, "NVLDL_ERR_STATUS", 0x9)

	v, err := p.Read("NVLDL_INTR_STATUS", idx)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x3), v)
	v, _ = p.Read("NVLDL_INTR_STATUS", idx)
	assert.Equal(t, uint32(0), v, "self-clearing bits consumed by first read")

	require.NoError(t, p.Write("NVLDL_ERR_STATUS", idx, 0x1))
	assert.Equal(t, uint32(0x8), p.Peek("NVLDL_ERR_STATUS", idx))
}
