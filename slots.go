package hxview

import (
	"context"
	"sync"
)

// Well-known slot names.
const (
	SlotDefault = "default"
	SlotHead    = "head"
	SlotStyle   = "style"
)

// Slot is a named content provider. Copies of a Slot share one producer,
// which runs at most once.
type Slot struct {
	Name string
	p    *producer
}

type producer struct {
	once sync.Once
	fn   func(ctx context.Context) (string, error)
	html string
	err  error
}

// NewSlot creates a slot whose content is produced lazily by fn.
func NewSlot(name string, fn func(ctx context.Context) (string, error)) Slot {
	return Slot{Name: name, p: &producer{fn: fn}}
}

// StaticSlot creates a slot holding already rendered markup.
func StaticSlot(name, html string) Slot {
	return NewSlot(name, func(context.Context) (string, error) { return html, nil })
}

// Render returns the slot content, producing it on first use.
func (s Slot) Render(ctx context.Context) (string, error) {
	if s.p == nil {
		return "", nil
	}
	s.p.once.Do(func() {
		s.p.html, s.p.err = s.p.fn(ctx)
	})
	return s.p.html, s.p.err
}

// Slots is an ordered list of named slots.
type Slots []Slot

// Get returns the first slot called name.
func (s Slots) Get(name string) (Slot, bool) {
	for _, slot := range s {
		if slot.Name == name {
			return slot, true
		}
	}
	return Slot{}, false
}

// Has reports whether a slot called name exists.
func (s Slots) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Render renders the slot called name, or returns "" when there is none.
func (s Slots) Render(ctx context.Context, name string) (string, error) {
	slot, ok := s.Get(name)
	if !ok {
		return "", nil
	}
	return slot.Render(ctx)
}
