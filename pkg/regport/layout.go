package regport

import (
	"fmt"
	"sort"
)

// Field locates a named bit field within a register.
type Field struct {
	Reg   string
	Shift uint
	Width uint
}

func (f Field) mask() uint32 {
	if f.Width >= 32 {
		return ^uint32(0)
	}
	return (uint32(1)<<f.Width - 1) << f.Shift
}

// Max returns the largest value the field can hold.
func (f Field) Max() uint32 {
	return f.mask() >> f.Shift
}

// Value names a specific value of a field.
type Value struct {
	Field string
	Value uint32
}

// Layout describes the fields and named values of a register map.
type Layout struct {
	fields map[string]Field
	values map[string]Value
}

// NewLayout creates an empty layout.
func NewLayout() *Layout {
	return &Layout{
		fields: make(map[string]Field),
		values: make(map[string]Value),
	}
}

// AddField defines field name as bits [shift, shift+width) of reg.
func (l *Layout) AddField(name, reg string, shift, width uint) *Layout {
	l.fields[name] = Field{Reg: reg, Shift: shift, Width: width}
	return l
}

// AddValue defines name as field == v.
func (l *Layout) AddValue(name, field string, v uint32) *Layout {
	l.values[name] = Value{Field: field, Value: v}
	return l
}

// Field returns the definition of a field.
func (l *Layout) Field(name string) (Field, bool) {
	f, ok := l.fields[name]
	return f, ok
}

// Value returns the definition of a named value.
func (l *Layout) Value(name string) (Value, bool) {
	v, ok := l.values[name]
	return v, ok
}

// Fields returns all field names in sorted order.
func (l *Layout) Fields() []string {
	names := make([]string, 0, len(l.fields))
	for n := range l.fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Get extracts field from word. Unknown fields read as zero.
func (l *Layout) Get(word uint32, field string) uint32 {
	f, ok := l.fields[field]
	if !ok {
		return 0
	}
	return (word & f.mask()) >> f.Shift
}

// Set replaces field in word. Unknown fields leave word unchanged.
func (l *Layout) Set(word uint32, field string, v uint32) uint32 {
	f, ok := l.fields[field]
	if !ok {
		return word
	}
	return word&^f.mask() | (v<<f.Shift)&f.mask()
}

// Validate checks that no two fields of the same register overlap.
func (l *Layout) Validate() error {
	byReg := make(map[string][]string)
	for name, f := range l.fields {
		byReg[f.Reg] = append(byReg[f.Reg], name)
	}
	for reg, names := range byReg {
		sort.Strings(names)
		var used uint32
		for _, n := range names {
			m := l.fields[n].mask()
			if used&m != 0 {
				return fmt.Errorf("register %s: field %s overlaps another field", reg, n)
			}
			used |= m
		}
	}
	for name, v := range l.values {
		if _, ok := l.fields[v.Field]; !ok {
			return fmt.Errorf("value %s references unknown field %s", name, v.Field)
		}
	}
	return nil
}
