package renderer

import "sync"

// ProgressTracker keeps the latest load progress. Reports may arrive many
// times; the latest one is current and 1.0 means done.
type ProgressTracker struct {
	mu      sync.Mutex
	value   float64
	started bool
	failed  bool
	notify  func(float64)
}

// NewProgressTracker returns a tracker that forwards each report to notify
// (which may be nil).
func NewProgressTracker(notify func(float64)) *ProgressTracker {
	return &ProgressTracker{notify: notify}
}

// Update records a report, clamped to [0, 1].
func (t *ProgressTracker) Update(f float64) {
	if f < 0 {
		f = 0
	} else if f > 1 {
		f = 1
	}
	t.mu.Lock()
	t.value = f
	t.started = true
	t.failed = false
	notify := t.notify
	t.mu.Unlock()
	if notify != nil {
		notify(f)
	}
}

// Value returns the latest report and whether any report arrived.
func (t *ProgressTracker) Value() (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value, t.started
}

// Fail ends the load without completing it. The last fraction is kept.
func (t *ProgressTracker) Fail() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failed = true
}

// Loading reports whether a progress indicator should be visible.
func (t *ProgressTracker) Loading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started && !t.failed && t.value < 1
}

// Done reports whether 1.0 was the latest report.
func (t *ProgressTracker) Done() bool {
	v, _ := t.Value()
	return v >= 1
}
