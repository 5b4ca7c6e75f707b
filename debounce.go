package formstate

import (
	"errors"
	"sync"
	"time"
)

// ErrDebouncerDisposed is returned by Run after Dispose.
var ErrDebouncerDisposed = errors.New("formstate: debouncer disposed")

// Debouncer coalesces rapid repeated triggers into a single action: Run
// schedules the action after a fixed delay from the most recent call,
// replacing any pending action. It is a single-slot timer, not a rate
// limiter; within a continuous stream of calls faster than the delay the
// action never fires until the stream pauses.
type Debouncer struct {
	mu       sync.Mutex
	delay    time.Duration
	timer    *time.Timer
	seq      uint64
	disposed bool
}

// NewDebouncer creates a debouncer with the given quiet-period delay.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Run cancels any pending action and schedules action to execute once the
// delay elapses without another Run call. The action runs on a timer
// goroutine.
func (d *Debouncer) Run(action func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.disposed {
		return ErrDebouncerDisposed
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// A later Run or Cancel superseded this slot while the timer
		// was firing.
		if d.disposed || seq != d.seq {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		action()
	})
	return nil
}

// Cancel aborts the pending action, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
}

// IsActive reports whether an action is pending.
func (d *Debouncer) IsActive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Dispose cancels any pending action and marks the debouncer unusable.
// Equivalent to Cancel, plus all further Run calls fail.
func (d *Debouncer) Dispose() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	d.disposed = true
}
