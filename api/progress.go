package api

import (
	"io"
	"sync"
)

// monotonic wraps p so that reported fractions are clamped to [0, 1],
// never decrease, and 1.0 is delivered at most once.
func monotonic(p Progress) Progress {
	if p == nil {
		return func(float64) {}
	}
	var (
		mu   sync.Mutex
		last = -1.0
	)
	return func(f float64) {
		if f < 0 {
			f = 0
		} else if f > 1 {
			f = 1
		}
		mu.Lock()
		if f <= last {
			mu.Unlock()
			return
		}
		last = f
		mu.Unlock()
		p(f)
	}
}

// progressReader reports how much of a body of known size has been read.
// Intermediate reports stop short of 1.0; completion is reported by the
// caller once the data is fully in hand.
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	last   float64
	report Progress
}

const progressStep = 0.01

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	pr.read += int64(n)
	if pr.total > 0 && n > 0 {
		f := float64(pr.read) / float64(pr.total)
		if f > 0.99 {
			f = 0.99
		}
		if f-pr.last >= progressStep {
			pr.last = f
			pr.report(f)
		}
	}
	return n, err
}
