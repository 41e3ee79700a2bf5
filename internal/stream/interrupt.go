package stream

import (
	"os"
	"time"
)

// interruptDebounce is the window in which a second interrupt escalates to
// full process termination. Hard constant, not configurable.
const interruptDebounce = 2 * time.Second

// Interrupter tracks user interrupts and escalates a rapid double press.
type Interrupter struct {
	last time.Time

	// test seams
	now  func() time.Time
	exit func(code int)
}

// NewInterrupter returns an Interrupter that terminates the process on a
// double interrupt.
func NewInterrupter() *Interrupter {
	return &Interrupter{
		now:  time.Now,
		exit: os.Exit,
	}
}

// Interrupt records one user interrupt. A second interrupt within the
// debounce window terminates the process; otherwise the caller should mark
// the turn interrupted and unwind.
func (i *Interrupter) Interrupt() {
	now := i.now()
	if !i.last.IsZero() && now.Sub(i.last) < interruptDebounce {
		i.exit(1)
		return
	}
	i.last = now
}
