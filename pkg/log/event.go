package log

import (
	"time"
)

// Event represents a diagnostic event captured on a device.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the device context that emitted the event (UUID).
	SessionID string `cbor:"2,keyasint"`

	// DeviceID is the configured device identifier.
	DeviceID string `cbor:"3,keyasint,omitempty"`

	// Generation is the generation tag of the device.
	Generation string `cbor:"4,keyasint,omitempty"`

	// Component that emitted the event.
	Component Component `cbor:"5,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"6,keyasint"`

	// Link is the link the event concerns, if any.
	Link *uint32 `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Operation   *OperationEvent   `cbor:"10,keyasint,omitempty"`
	Phase       *PhaseEvent       `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Counters    *CountersEvent    `cbor:"13,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Component identifies the part of the engine that emitted an event.
type Component uint8

const (
	ComponentDevice   Component = 0
	ComponentTopology Component = 1
	ComponentCounters Component = 2
	ComponentFlags    Component = 3
	ComponentPower    Component = 4
	ComponentEom      Component = 5
	ComponentIobist   Component = 6
)

// String returns the component name.
func (c Component) String() string {
	switch c {
	case ComponentDevice:
		return "DEVICE"
	case ComponentTopology:
		return "TOPOLOGY"
	case ComponentCounters:
		return "COUNTERS"
	case ComponentFlags:
		return "FLAGS"
	case ComponentPower:
		return "POWER"
	case ComponentEom:
		return "EOM"
	case ComponentIobist:
		return "IOBIST"
	default:
		return "UNKNOWN"
	}
}

// ParseComponent parses a component name as returned by String.
func ParseComponent(s string) (Component, bool) {
	for c := ComponentDevice; c <= ComponentIobist; c++ {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryOperation indicates a completed caller-visible operation.
	CategoryOperation Category = 0
	// CategoryPhase indicates a step of a multi-phase protocol.
	CategoryPhase Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryCounters indicates a counter snapshot.
	CategoryCounters Category = 3
	// CategoryError indicates an error event.
	CategoryError Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryOperation:
		return "OPERATION"
	case CategoryPhase:
		return "PHASE"
	case CategoryState:
		return "STATE"
	case CategoryCounters:
		return "COUNTERS"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// OperationEvent captures one completed operation.
type OperationEvent struct {
	// Name is the operation name, e.g. "GetEomStatus".
	Name string `cbor:"1,keyasint"`

	// Duration is the wall time the operation took. Stored as nanoseconds.
	Duration time.Duration `cbor:"2,keyasint"`

	// Result is "OK" or the error kind.
	Result string `cbor:"3,keyasint"`

	// Payload is an optional result summary (CBOR-compatible representation).
	Payload any `cbor:"4,keyasint,omitempty"`
}

// PhaseEvent captures one step of a multi-phase protocol.
type PhaseEvent struct {
	// Name is the phase name.
	Name string `cbor:"1,keyasint"`

	// Polls is the number of status reads the phase made, if it polls.
	Polls int `cbor:"2,keyasint,omitempty"`
}

// StateChangeEvent captures lifecycle and power-state changes.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityDevice indicates a device context lifecycle change.
	StateEntityDevice StateEntity = 0
	// StateEntityPower indicates a sub-link power-state request.
	StateEntityPower StateEntity = 1
	// StateEntityIobist indicates a self-test configuration change.
	StateEntityIobist StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityDevice:
		return "DEVICE"
	case StateEntityPower:
		return "POWER"
	case StateEntityIobist:
		return "IOBIST"
	default:
		return "UNKNOWN"
	}
}

// CountersEvent captures the logical error counters of a link.
type CountersEvent struct {
	// Counts maps counter names to counts.
	Counts map[string]uint64 `cbor:"1,keyasint"`

	// Overflow lists the counters whose hardware counter overflowed.
	Overflow []string `cbor:"2,keyasint,omitempty"`

	// Cleared is set when the snapshot was taken by a clear.
	Cleared bool `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData captures a failed operation.
type ErrorEventData struct {
	// Kind is the error kind name.
	Kind string `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
