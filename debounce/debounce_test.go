package debounce

import (
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	values []string
	ch     chan string
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan string, 16)}
}

func (r *recorder) record(s string) {
	r.mu.Lock()
	r.values = append(r.values, s)
	r.mu.Unlock()
	r.ch <- s
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

func TestSettlesToLatest(t *testing.T) {
	rec := newRecorder()
	v := New("initial", 30*time.Millisecond, rec.record)
	defer v.Stop()

	v.Set("a")
	v.Set("ab")
	v.Set("abc")

	if got := v.Get(); got != "initial" {
		t.Errorf("Expected value to stay %q while pending, got %q", "initial", got)
	}

	select {
	case got := <-rec.ch:
		if got != "abc" {
			t.Errorf("Expected settled value %q, got %q", "abc", got)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for debounced value")
	}

	time.Sleep(60 * time.Millisecond)
	if n := rec.count(); n != 1 {
		t.Errorf("Expected exactly one change, got %d", n)
	}
	if got := v.Get(); got != "abc" {
		t.Errorf("Expected Get to return %q, got %q", "abc", got)
	}
}

func TestSetRestartsWait(t *testing.T) {
	rec := newRecorder()
	v := New("", 80*time.Millisecond, rec.record)
	defer v.Stop()

	v.Set("first")
	time.Sleep(40 * time.Millisecond)
	v.Set("second")
	time.Sleep(50 * time.Millisecond)

	// 90ms after the first input but only 50ms after the second.
	if n := rec.count(); n != 0 {
		t.Fatalf("Expected no change before the restarted wait elapsed, got %d", n)
	}

	select {
	case got := <-rec.ch:
		if got != "second" {
			t.Errorf("Expected %q, got %q", "second", got)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for debounced value")
	}
}

func TestStopCancelsPending(t *testing.T) {
	rec := newRecorder()
	v := New("keep", 20*time.Millisecond, rec.record)

	v.Set("dropped")
	v.Stop()
	v.Stop()
	v.Set("ignored")

	time.Sleep(60 * time.Millisecond)
	if n := rec.count(); n != 0 {
		t.Errorf("Expected no change after Stop, got %d", n)
	}
	if got := v.Get(); got != "keep" {
		t.Errorf("Expected %q, got %q", "keep", got)
	}
	if v.Pending() {
		t.Error("Stopped value should not be pending")
	}
}

func TestFlush(t *testing.T) {
	rec := newRecorder()
	v := New("", time.Hour, rec.record)
	defer v.Stop()

	if v.Flush() {
		t.Error("Flush without input should report false")
	}

	v.Set("now")
	if !v.Pending() {
		t.Error("Expected pending input")
	}
	if !v.Flush() {
		t.Error("Flush with input should report true")
	}
	if got := v.Get(); got != "now" {
		t.Errorf("Expected %q, got %q", "now", got)
	}
	if n := rec.count(); n != 1 {
		t.Errorf("Expected one change, got %d", n)
	}
}

func TestNilCallback(t *testing.T) {
	v := New(0, 5*time.Millisecond, nil)
	defer v.Stop()
	v.Set(42)

	deadline := time.Now().Add(time.Second)
	for v.Get() != 42 {
		if time.Now().After(deadline) {
			t.Fatal("value never settled")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
