package log

import (
	"time"

	"github.com/google/uuid"

	"github.com/linkval/nvldiag/pkg/linkerr"
	"github.com/linkval/nvldiag/pkg/model"
)

// ResultOK is the Result of a successful operation.
const ResultOK = "OK"

// Trace stamps events with the identity of one device context and sends
// them to a Logger. A nil *Trace discards everything.
type Trace struct {
	logger     Logger
	session    string
	device     string
	generation string
	now        func() time.Time
}

// NewTrace creates a trace with a fresh session ID. A nil logger is
// replaced by NoopLogger.
func NewTrace(logger Logger, device, generation string) *Trace {
	if logger == nil {
		logger = NoopLogger{}
	}
	return &Trace{
		logger:     logger,
		session:    uuid.NewString(),
		device:     device,
		generation: generation,
		now:        time.Now,
	}
}

// SessionID returns the session ID stamped on every event.
func (t *Trace) SessionID() string {
	if t == nil {
		return ""
	}
	return t.session
}

// LinkRef returns a link reference for Event.Link.
func LinkRef(id model.LinkID) *uint32 {
	v := uint32(id)
	return &v
}

func (t *Trace) emit(c Component, cat Category, link *uint32, fill func(*Event)) {
	if t == nil {
		return
	}
	e := Event{
		Timestamp:  t.now(),
		SessionID:  t.session,
		DeviceID:   t.device,
		Generation: t.generation,
		Component:  c,
		Category:   cat,
		Link:       link,
	}
	fill(&e)
	t.logger.Log(e)
}

// Operation records a completed operation. A failed operation is followed
// by an error event.
func (t *Trace) Operation(c Component, link *uint32, name string, d time.Duration, err error, payload any) {
	result := ResultOK
	if err != nil {
		result = linkerr.KindOf(err).String()
	}
	t.emit(c, CategoryOperation, link, func(e *Event) {
		e.Operation = &OperationEvent{Name: name, Duration: d, Result: result, Payload: payload}
	})
	if err != nil {
		t.emit(c, CategoryError, link, func(e *Event) {
			e.Error = &ErrorEventData{Kind: result, Message: err.Error(), Context: name}
		})
	}
}

// Phase records one step of a multi-phase protocol.
func (t *Trace) Phase(c Component, link *uint32, name string, polls int) {
	t.emit(c, CategoryPhase, link, func(e *Event) {
		e.Phase = &PhaseEvent{Name: name, Polls: polls}
	})
}

// State records a state change.
func (t *Trace) State(entity StateEntity, link *uint32, oldState, newState, reason string) {
	c := ComponentDevice
	switch entity {
	case StateEntityPower:
		c = ComponentPower
	case StateEntityIobist:
		c = ComponentIobist
	}
	t.emit(c, CategoryState, link, func(e *Event) {
		e.StateChange = &StateChangeEvent{Entity: entity, OldState: oldState, NewState: newState, Reason: reason}
	})
}

// Counters records a snapshot of the logical error counters of a link.
func (t *Trace) Counters(id model.LinkID, counts model.CounterSet, cleared bool) {
	ev := &CountersEvent{Counts: make(map[string]uint64, len(counts)), Cleared: cleared}
	for _, k := range counts.Kinds() {
		c := counts[k]
		ev.Counts[k.String()] = c.Count
		if c.Overflow {
			ev.Overflow = append(ev.Overflow, k.String())
		}
	}
	t.emit(ComponentCounters, CategoryCounters, LinkRef(id), func(e *Event) {
		e.Counters = ev
	})
}
