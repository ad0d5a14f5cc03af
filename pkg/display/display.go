// Package display holds the three text slots a status response is rendered
// into. The slots are passed to the status client as explicit handles, so
// any surface (terminal, test double, web page bridge) can back them.
package display

import "sync"

// Element identifiers of the three slots on a rendering surface.
const (
	SlotA = "aValue"
	SlotB = "bValue"
	SlotY = "yValue"
)

// State is the text currently shown in each slot.
type State struct {
	A string
	B string
	Y string
}

// Slot is one text-bearing element. SetText runs while the status client
// holds its write lock, so it must not start another request.
type Slot interface {
	SetText(text string)
}

// Slots bundles the handles for a, b and y.
type Slots struct {
	A Slot
	B Slot
	Y Slot
}

// Apply writes every field of st into its slot. Nil handles are skipped.
func (s Slots) Apply(st State) {
	if s.A != nil {
		s.A.SetText(st.A)
	}
	if s.B != nil {
		s.B.SetText(st.B)
	}
	if s.Y != nil {
		s.Y.SetText(st.Y)
	}
}

// TextSlot is an in-memory Slot safe for concurrent use.
type TextSlot struct {
	mu   sync.RWMutex
	text string
}

func (t *TextSlot) SetText(text string) {
	t.mu.Lock()
	t.text = text
	t.mu.Unlock()
}

func (t *TextSlot) Text() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.text
}

// Board is the default in-memory surface: one TextSlot per field.
type Board struct {
	A TextSlot
	B TextSlot
	Y TextSlot
}

func NewBoard() *Board {
	return &Board{}
}

func (b *Board) Slots() Slots {
	return Slots{A: &b.A, B: &b.B, Y: &b.Y}
}

func (b *Board) State() State {
	return State{A: b.A.Text(), B: b.B.Text(), Y: b.Y.Text()}
}
