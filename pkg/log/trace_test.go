package log

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/linkval/nvldiag/pkg/linkerr"
	"github.com/linkval/nvldiag/pkg/model"
)

func TestTraceStampsIdentity(t *testing.T) {
	c := &captureLogger{}
	tr := NewTrace(c, "gpu0", "nvl4")
	fixed := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return fixed }

	if _, err := uuid.Parse(tr.SessionID()); err != nil {
		t.Fatalf("session id %q is not a UUID: %v", tr.SessionID(), err)
	}

	tr.Phase(ComponentEom, LinkRef(2), "enable", 2)
	tr.State(StateEntityPower, LinkRef(2), "", "LOW_POWER", "")

	events := c.Events()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	for _, e := range events {
		if e.SessionID != tr.SessionID() || e.DeviceID != "gpu0" || e.Generation != "nvl4" || !e.Timestamp.Equal(fixed) {
			t.Errorf("identity not stamped: %+v", e)
		}
	}
	if events[1].Component != ComponentPower || events[1].Category != CategoryState {
		t.Errorf("state event: %+v", events[1])
	}
}

func TestTraceFailedOperationAddsErrorEvent(t *testing.T) {
	c := &captureLogger{}
	tr := NewTrace(c, "gpu0", "nvl2")

	tr.Operation(ComponentPower, LinkRef(9), "RequestPowerState", 0, linkerr.Invalid("RequestPowerState", 9, 9, "bad link"), nil)

	events := c.Events()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Operation.Result != "INVALID_ARGUMENT" {
		t.Errorf("Result: got %q", events[0].Operation.Result)
	}
	if events[1].Error == nil || events[1].Error.Context != "RequestPowerState" {
		t.Errorf("error event: %+v", events[1])
	}
}

func TestTraceCounters(t *testing.T) {
	c := &captureLogger{}
	tr := NewTrace(c, "", "")

	tr.Counters(1, model.CounterSet{
		model.ErrRxCrcFlit: {Count: 5, Overflow: true},
		model.ErrTxReplay:  {Count: 1},
	}, true)

	ev := c.Events()[0].Counters
	if ev.Counts["RX_CRC_FLIT"] != 5 || ev.Counts["TX_REPLAY"] != 1 || !ev.Cleared {
		t.Errorf("counters: %+v", ev)
	}
	if len(ev.Overflow) != 1 || ev.Overflow[0] != "RX_CRC_FLIT" {
		t.Errorf("overflow: %v", ev.Overflow)
	}
}

func TestNilTrace(t *testing.T) {
	var tr *Trace
	tr.Phase(ComponentEom, nil, "arm", 1)
	tr.Counters(0, nil, false)
	if tr.SessionID() != "" {
		t.Error("nil trace has a session")
	}
	NewTrace(nil, "", "").Phase(ComponentEom, nil, "arm", 1)
}
