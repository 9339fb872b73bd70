package monitor

import "sync/atomic"

// SoftButton is a trigger fired from software, such as a GUI button or a
// console key. Each Trigger is reported by exactly one Pressed call.
type SoftButton struct {
	pending atomic.Bool
}

// Trigger requests a cycle.
func (b *SoftButton) Trigger() {
	b.pending.Store(true)
}

// Pressed reports and clears a pending trigger.
func (b *SoftButton) Pressed() bool {
	return b.pending.Swap(false)
}

// AnyButton is asserted when any of its buttons is.
type AnyButton []Button

// Pressed implements Button. Every button is polled so one-shot triggers are
// consumed even when another button is held.
func (a AnyButton) Pressed() bool {
	pressed := false
	for _, b := range a {
		if b != nil && b.Pressed() {
			pressed = true
		}
	}
	return pressed
}
