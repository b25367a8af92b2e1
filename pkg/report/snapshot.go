package report

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/linkval/nvldiag/pkg/counters"
	"github.com/linkval/nvldiag/pkg/model"
)

// SnapshotVersion is the current version of the snapshot file format.
const SnapshotVersion = 1

// ErrVersion is returned by Load for snapshots written by a newer format.
var ErrVersion = errors.New("unsupported snapshot version")

// Snapshot is the result of one sweep over a set of devices.
type Snapshot struct {
	// Version is the snapshot file format version.
	Version int `json:"version"`

	// ID uniquely identifies the sweep.
	ID string `json:"id"`

	// StartedAt and SavedAt bracket the sweep.
	StartedAt time.Time `json:"started_at"`
	SavedAt   time.Time `json:"saved_at"`

	// Devices holds one report per device, sorted by device ID.
	Devices []DeviceReport `json:"devices"`
}

// NewSnapshot returns an empty snapshot with a fresh ID.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Version:   SnapshotVersion,
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}
}

// DeviceReport is what a sweep observed on one device.
type DeviceReport struct {
	DeviceID   string `json:"device_id"`
	Generation string `json:"generation"`
	Platform   string `json:"platform"`

	// SessionID links the report to the device's event trace.
	SessionID string `json:"session_id,omitempty"`

	// Error is set when the device could not be swept at all.
	Error string `json:"error,omitempty"`

	Links []LinkReport `json:"links,omitempty"`

	// Flags holds the decoded status flags at the end of the sweep.
	Flags *model.ErrorFlagSet `json:"flags,omitempty"`

	// Iobist holds self-test failures, if the generation supports it.
	Iobist []model.IobistFlag `json:"iobist,omitempty"`
}

// LinkReport is what a sweep observed on one link.
type LinkReport struct {
	Link model.Link `json:"link"`

	Counts     model.CounterSet     `json:"counts,omitempty"`
	Violations []counters.Violation `json:"violations,omitempty"`

	Power *model.PowerStateStatus `json:"power,omitempty"`

	// EomCodes holds one measurement byte per lane.
	EomCodes []int `json:"eom_codes,omitempty"`

	// Errors maps a sweep step to the error it failed with.
	Errors map[string]string `json:"errors,omitempty"`
}

// Fail records a failed sweep step.
func (l *LinkReport) Fail(step string, err error) {
	if l.Errors == nil {
		l.Errors = make(map[string]string)
	}
	l.Errors[step] = err.Error()
}

// Add appends a device report keeping the device order stable.
func (s *Snapshot) Add(r DeviceReport) {
	s.Devices = append(s.Devices, r)
	sort.Slice(s.Devices, func(i, j int) bool { return s.Devices[i].DeviceID < s.Devices[j].DeviceID })
}

// Device returns the report of a device.
func (s *Snapshot) Device(id string) (DeviceReport, bool) {
	for _, d := range s.Devices {
		if d.DeviceID == id {
			return d, true
		}
	}
	return DeviceReport{}, false
}

// Violations returns the number of threshold violations across all devices.
func (s *Snapshot) Violations() int {
	n := 0
	for _, d := range s.Devices {
		for _, l := range d.Links {
			n += len(l.Violations)
		}
	}
	return n
}

// Failed returns true if any device or link step failed.
func (s *Snapshot) Failed() bool {
	for _, d := range s.Devices {
		if d.Error != "" {
			return true
		}
		for _, l := range d.Links {
			if len(l.Errors) > 0 {
				return true
			}
		}
	}
	return false
}

// Store manages persistence of snapshots to a JSON file.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a snapshot store.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the file the store writes.
func (s *Store) Path() string { return s.path }

// Save persists the snapshot to disk.
func (s *Store) Save(snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	snap.Version = SnapshotVersion
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now()
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}

// Load reads the snapshot from disk.
// Returns nil, nil if the file doesn't exist.
func (s *Store) Load() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, err
	}
	if snap.Version > SnapshotVersion {
		return nil, ErrVersion
	}
	return snap, nil
}

// Clear removes the snapshot file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
