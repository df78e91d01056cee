// Package debounce delays a changing value until it settles.
package debounce

import (
	"sync"
	"time"
)

// Value holds the settled value of an input that may change rapidly. A new
// input becomes current only after no other input has arrived for the
// delay; every Set restarts the wait.
type Value[T any] struct {
	mu       sync.Mutex
	delay    time.Duration
	current  T
	pending  T
	waiting  bool
	timer    *time.Timer
	gen      uint64
	stopped  bool
	onChange func(T)
}

// New returns a Value starting at initial. onChange, if non-nil, runs on
// the timer goroutine each time a value settles.
func New[T any](initial T, delay time.Duration, onChange func(T)) *Value[T] {
	return &Value[T]{delay: delay, current: initial, onChange: onChange}
}

// Set records a new input and restarts the wait. Ignored after Stop.
func (v *Value[T]) Set(x T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stopped {
		return
	}
	v.pending = x
	v.waiting = true
	v.gen++
	gen := v.gen
	if v.timer != nil {
		v.timer.Stop()
	}
	v.timer = time.AfterFunc(v.delay, func() { v.fire(gen) })
}

func (v *Value[T]) fire(gen uint64) {
	v.mu.Lock()
	// A timer that lost the race with Set, Flush or Stop must not commit.
	if v.stopped || !v.waiting || gen != v.gen {
		v.mu.Unlock()
		return
	}
	x := v.commitLocked()
	v.mu.Unlock()
	if v.onChange != nil {
		v.onChange(x)
	}
}

func (v *Value[T]) commitLocked() T {
	v.current = v.pending
	var zero T
	v.pending = zero
	v.waiting = false
	return v.current
}

// Get returns the settled value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Pending reports whether an input is waiting to settle.
func (v *Value[T]) Pending() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.waiting
}

// Flush settles a pending input immediately. It reports whether there was
// one.
func (v *Value[T]) Flush() bool {
	v.mu.Lock()
	if v.stopped || !v.waiting {
		v.mu.Unlock()
		return false
	}
	if v.timer != nil {
		v.timer.Stop()
	}
	v.gen++
	x := v.commitLocked()
	v.mu.Unlock()
	if v.onChange != nil {
		v.onChange(x)
	}
	return true
}

// Stop cancels any pending input. Later calls to Set are ignored. Stop is
// idempotent.
func (v *Value[T]) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stopped {
		return
	}
	v.stopped = true
	v.waiting = false
	if v.timer != nil {
		v.timer.Stop()
	}
}
