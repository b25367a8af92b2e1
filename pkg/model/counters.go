package model

import (
	"fmt"
	"sort"
)

// ErrorKind identifies an error counter.
type ErrorKind uint8

const (
	// ErrTxReplay counts link-layer replays issued by the transmitter.
	ErrTxReplay ErrorKind = iota

	// ErrRxReplay counts replay requests received.
	ErrRxReplay

	// ErrRecovery counts link recoveries. The hardware counter clears on read.
	ErrRecovery

	// ErrRxCrcFlit counts flits received with a CRC error.
	ErrRxCrcFlit

	// ErrRxCrcMasked counts CRC errors masked by an in-flight replay.
	ErrRxCrcMasked

	// ErrRxCrcLane0 through ErrRxCrcLane7 count per-lane CRC errors.
	ErrRxCrcLane0
	ErrRxCrcLane1
	ErrRxCrcLane2
	ErrRxCrcLane3
	ErrRxCrcLane4
	ErrRxCrcLane5
	ErrRxCrcLane6
	ErrRxCrcLane7

	// ErrRxEccLane0 through ErrRxEccLane7 count per-lane corrected ECC errors.
	ErrRxEccLane0
	ErrRxEccLane1
	ErrRxEccLane2
	ErrRxEccLane3
	ErrRxEccLane4
	ErrRxEccLane5
	ErrRxEccLane6
	ErrRxEccLane7

	// ErrPhyRefreshPass counts successful PHY refresh passes.
	ErrPhyRefreshPass

	// ErrPhyRefreshFail counts failed PHY refresh passes.
	ErrPhyRefreshFail

	numErrorKinds
)

var errorKindNames = [...]string{
	ErrTxReplay:       "TX_REPLAY",
	ErrRxReplay:       "RX_REPLAY",
	ErrRecovery:       "RECOVERY",
	ErrRxCrcFlit:      "RX_CRC_FLIT",
	ErrRxCrcMasked:    "RX_CRC_MASKED",
	ErrRxCrcLane0:     "RX_CRC_LANE0",
	ErrRxCrcLane1:     "RX_CRC_LANE1",
	ErrRxCrcLane2:     "RX_CRC_LANE2",
	ErrRxCrcLane3:     "RX_CRC_LANE3",
	ErrRxCrcLane4:     "RX_CRC_LANE4",
	ErrRxCrcLane5:     "RX_CRC_LANE5",
	ErrRxCrcLane6:     "RX_CRC_LANE6",
	ErrRxCrcLane7:     "RX_CRC_LANE7",
	ErrRxEccLane0:     "RX_ECC_LANE0",
	ErrRxEccLane1:     "RX_ECC_LANE1",
	ErrRxEccLane2:     "RX_ECC_LANE2",
	ErrRxEccLane3:     "RX_ECC_LANE3",
	ErrRxEccLane4:     "RX_ECC_LANE4",
	ErrRxEccLane5:     "RX_ECC_LANE5",
	ErrRxEccLane6:     "RX_ECC_LANE6",
	ErrRxEccLane7:     "RX_ECC_LANE7",
	ErrPhyRefreshPass: "PHY_REFRESH_PASS",
	ErrPhyRefreshFail: "PHY_REFRESH_FAIL",
}

// String returns the counter name.
func (k ErrorKind) String() string {
	if k < numErrorKinds {
		return errorKindNames[k]
	}
	return fmt.Sprintf("ERROR_KIND(%d)", uint8(k))
}

// ParseErrorKind returns the kind with the given name.
func ParseErrorKind(s string) (ErrorKind, error) {
	for k, name := range errorKindNames {
		if name == s {
			return ErrorKind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown error kind %q", s)
}

// ErrorKinds returns every defined kind in ascending order.
func ErrorKinds() []ErrorKind {
	kinds := make([]ErrorKind, 0, numErrorKinds)
	for k := ErrorKind(0); k < numErrorKinds; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// CrcLaneKind returns the per-lane CRC kind for lane.
func CrcLaneKind(lane uint32) (ErrorKind, bool) {
	if lane > 7 {
		return 0, false
	}
	return ErrRxCrcLane0 + ErrorKind(lane), true
}

// EccLaneKind returns the per-lane ECC kind for lane.
func EccLaneKind(lane uint32) (ErrorKind, bool) {
	if lane > 7 {
		return 0, false
	}
	return ErrRxEccLane0 + ErrorKind(lane), true
}

// UnmarshalText parses the kind name, so kinds can key YAML and JSON maps.
func (k *ErrorKind) UnmarshalText(text []byte) error {
	v, err := ParseErrorKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// MarshalText returns the kind name.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// CounterMask is a bit set of error kinds.
type CounterMask uint64

// CounterMaskOf returns a mask with the given kinds set.
func CounterMaskOf(kinds ...ErrorKind) CounterMask {
	var m CounterMask
	for _, k := range kinds {
		m |= 1 << k
	}
	return m
}

// AllCounters is the mask of every defined kind.
const AllCounters = CounterMask(1<<numErrorKinds - 1)

// Has returns true if kind k is set.
func (m CounterMask) Has(k ErrorKind) bool {
	return m&(1<<k) != 0
}

// Without returns the mask with the given kinds removed.
func (m CounterMask) Without(kinds ...ErrorKind) CounterMask {
	return m &^ CounterMaskOf(kinds...)
}

// Kinds returns the kinds in the mask in ascending order.
func (m CounterMask) Kinds() []ErrorKind {
	var kinds []ErrorKind
	for k := ErrorKind(0); k < numErrorKinds; k++ {
		if m.Has(k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Counter is one error counter value.
type Counter struct {
	// Count is the accumulated number of events.
	Count uint64 `json:"count"`

	// Overflow is latched when the hardware counter saturated.
	Overflow bool `json:"overflow,omitempty"`
}

// Add returns the sum of two counters. Overflow is sticky.
func (c Counter) Add(o Counter) Counter {
	return Counter{Count: c.Count + o.Count, Overflow: c.Overflow || o.Overflow}
}

// CounterSet maps error kinds to counter values.
type CounterSet map[ErrorKind]Counter

// Get returns the counter for kind k (zero if absent).
func (s CounterSet) Get(k ErrorKind) Counter {
	return s[k]
}

// Clone returns a copy of the set.
func (s CounterSet) Clone() CounterSet {
	c := make(CounterSet, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

// Add returns a new set containing the sum of s and o.
func (s CounterSet) Add(o CounterSet) CounterSet {
	r := s.Clone()
	for k, v := range o {
		r[k] = r[k].Add(v)
	}
	return r
}

// Kinds returns the kinds present in the set in ascending order.
func (s CounterSet) Kinds() []ErrorKind {
	kinds := make([]ErrorKind, 0, len(s))
	for k := range s {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Total returns the sum of all counts.
func (s CounterSet) Total() uint64 {
	var total uint64
	for _, v := range s {
		total += v.Count
	}
	return total
}
