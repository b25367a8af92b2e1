package regport

import (
	"errors"
	"fmt"
	"sync"
)

// File errors.
var (
	ErrUnknownValue = errors.New("unknown field value")
	ErrWriteLocked  = errors.New("register is write-locked")
	ErrReadLocked   = errors.New("register is read-locked")
)

// Op distinguishes reads from writes in the access log.
type Op uint8

const (
	OpRead Op = iota
	OpWrite
)

// String returns the op name.
func (o Op) String() string {
	if o == OpWrite {
		return "W"
	}
	return "R"
}

// Access is one recorded register access.
type Access struct {
	Op    Op
	Reg   string
	Index Index
	Value uint32
}

// String returns the access as "W EOM_CTRL@link3=0x3".
func (a Access) String() string {
	return fmt.Sprintf("%s %s@%s=%#x", a.Op, a.Reg, a.Index, a.Value)
}

// ReadHook computes the value returned by a read. stored is the current
// register contents; the returned value is what the reader observes. The
// hook may call File.Poke to emulate read side effects.
type ReadHook func(idx Index, stored uint32) uint32

// WriteHook computes the value stored by a write. The hook may call
// File.Poke to emulate write side effects on other registers.
type WriteHook func(idx Index, old, written uint32) uint32

type regKey struct {
	reg string
	idx Index
}

// File is an in-memory register file implementing Port.
// It is safe for concurrent use.
type File struct {
	mu     sync.Mutex
	layout *Layout
	regs   map[regKey]uint32
	level  PrivLevel

	readLocked  map[string]PrivLevel
	writeLocked map[string]PrivLevel

	readHooks  map[string]ReadHook
	writeHooks map[string]WriteHook

	log []Access
}

// NewFile creates a register file using layout for field access.
func NewFile(layout *Layout) *File {
	return &File{
		layout:      layout,
		regs:        make(map[regKey]uint32),
		readLocked:  make(map[string]PrivLevel),
		writeLocked: make(map[string]PrivLevel),
		readHooks:   make(map[string]ReadHook),
		writeHooks:  make(map[string]WriteHook),
	}
}

// Layout returns the layout of the file.
func (f *File) Layout() *Layout { return f.layout }

// OnRead installs a read hook for reg.
func (f *File) OnRead(reg string, h ReadHook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readHooks[reg] = h
}

// OnWrite installs a write hook for reg.
func (f *File) OnWrite(reg string, h WriteHook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeHooks[reg] = h
}

// LockWrite requires level to write reg.
func (f *File) LockWrite(reg string, level PrivLevel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeLocked[reg] = level
}

// LockRead requires level to read reg.
func (f *File) LockRead(reg string, level PrivLevel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readLocked[reg] = level
}

// SetPrivLevel sets the level accesses execute at.
func (f *File) SetPrivLevel(level PrivLevel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.level = level
}

// Peek returns the stored value of reg without hooks or logging.
// Must not be called from a hook.
func (f *File) Peek(reg string, idx Index) uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.regs[regKey{reg, idx}]
}

// Poke stores a value without hooks or logging. It is safe to call from
// hooks, which run with the file lock held.
func (f *File) Poke(reg string, idx Index, v uint32) {
	f.regs[regKey{reg, idx}] = v
}

// Stored returns the stored value of reg without locking. Only for hooks.
func (f *File) Stored(reg string, idx Index) uint32 {
	return f.regs[regKey{reg, idx}]
}

// Set stores a value without hooks or logging.
func (f *File) Set(reg string, idx Index, v uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regs[regKey{reg, idx}] = v
}

// Accesses returns a copy of the access log.
func (f *File) Accesses() []Access {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Access(nil), f.log...)
}

// Writes returns the logged writes.
func (f *File) Writes() []Access {
	f.mu.Lock()
	defer f.mu.Unlock()
	var w []Access
	for _, a := range f.log {
		if a.Op == OpWrite {
			w = append(w, a)
		}
	}
	return w
}

// ResetLog clears the access log.
func (f *File) ResetLog() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = nil
}

// Read implements Port.
func (f *File) Read(reg string, idx Index) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readNoLock(reg, idx)
}

func (f *File) readNoLock(reg string, idx Index) (uint32, error) {
	if lvl, ok := f.readLocked[reg]; ok && f.level < lvl {
		return 0, fmt.Errorf("%s@%s: %w", reg, idx, ErrReadLocked)
	}
	k := regKey{reg, idx}
	v := f.regs[k]
	if h, ok := f.readHooks[reg]; ok {
		v = h(idx, v)
	}
	f.log = append(f.log, Access{Op: OpRead, Reg: reg, Index: idx, Value: v})
	return v, nil
}

// Write implements Port.
func (f *File) Write(reg string, idx Index, value uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if lvl, ok := f.writeLocked[reg]; ok && f.level < lvl {
		return fmt.Errorf("%s@%s: %w", reg, idx, ErrWriteLocked)
	}
	k := regKey{reg, idx}
	stored := value
	if h, ok := f.writeHooks[reg]; ok {
		stored = h(idx, f.regs[k], value)
	}
	f.regs[k] = stored
	f.log = append(f.log, Access{Op: OpWrite, Reg: reg, Index: idx, Value: value})
	return nil
}

// Test implements Port.
func (f *File) Test(value string, idx Index) (bool, error) {
	v, ok := f.layout.Value(value)
	if !ok {
		return false, fmt.Errorf("%s: %w", value, ErrUnknownValue)
	}
	fd, ok := f.layout.Field(v.Field)
	if !ok {
		return false, fmt.Errorf("%s: %w", v.Field, ErrUnknownValue)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	w, err := f.readNoLock(fd.Reg, idx)
	if err != nil {
		return false, err
	}
	return f.layout.Get(w, v.Field) == v.Value, nil
}

// GetField implements Port.
func (f *File) GetField(word uint32, field string) uint32 {
	return f.layout.Get(word, field)
}

// SetField implements Port.
func (f *File) SetField(word uint32, field string, value uint32) uint32 {
	return f.layout.Set(word, field, value)
}

// HasReadAccess implements Port.
func (f *File) HasReadAccess(reg string, _ Index) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	lvl, ok := f.readLocked[reg]
	return !ok || f.level >= lvl
}

// HasWriteAccess implements Port.
func (f *File) HasWriteAccess(reg string, _ Index) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	lvl, ok := f.writeLocked[reg]
	return !ok || f.level >= lvl
}

// PrivLevel implements Port.
func (f *File) PrivLevel() PrivLevel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level
}

// Compile-time interface satisfaction check.
var _ Port = (*File)(nil)
