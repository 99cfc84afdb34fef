// Package history provides the bounded window of inter-pulse intervals the
// clock analyzer averages over.
package history

// Window is a fixed-capacity ring of samples. Once full, each Push overwrites
// the oldest sample.
type Window struct {
	samples []float64
	next    int
	count   int
}

// New returns a window holding at most capacity samples. A capacity below one
// is raised to one so Mean never divides by a bogus count.
func New(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{samples: make([]float64, capacity)}
}

// Push records one sample, evicting the oldest when full.
func (w *Window) Push(sample float64) {
	w.samples[w.next] = sample
	w.next = (w.next + 1) % len(w.samples)
	if w.count < len(w.samples) {
		w.count++
	}
}

// Count reports how many valid samples the window currently holds.
func (w *Window) Count() int {
	return w.count
}

// Cap reports the fixed capacity.
func (w *Window) Cap() int {
	return len(w.samples)
}

// Mean returns the average of the valid samples, or zero when empty.
func (w *Window) Mean() float64 {
	if w.count == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < w.count; i++ {
		sum += w.samples[i]
	}
	return sum / float64(w.count)
}

// Reset discards all samples.
func (w *Window) Reset() {
	w.next = 0
	w.count = 0
}
