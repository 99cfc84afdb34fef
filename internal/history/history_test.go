package history

import (
	"math"
	"testing"
)

func TestWindow_MeanOfPartialFill(t *testing.T) {
	w := New(4)
	w.Push(10)
	w.Push(20)

	if got := w.Count(); got != 2 {
		t.Fatalf("Count() = %d, want 2", got)
	}
	if got := w.Mean(); got != 15 {
		t.Errorf("Mean() = %v, want 15", got)
	}
}

func TestWindow_CountNeverExceedsCapacity(t *testing.T) {
	w := New(3)
	for i := 0; i < 10; i++ {
		w.Push(float64(i))
	}
	if got := w.Count(); got != 3 {
		t.Errorf("Count() = %d, want 3", got)
	}
}

func TestWindow_OverwritesOldest(t *testing.T) {
	w := New(3)
	w.Push(1)
	w.Push(2)
	w.Push(3)
	w.Push(100) // evicts the 1

	want := (100.0 + 2 + 3) / 3
	if got := w.Mean(); math.Abs(got-want) > 1e-9 {
		t.Errorf("Mean() = %v, want %v", got, want)
	}
}

func TestWindow_EmptyMeanIsZero(t *testing.T) {
	w := New(8)
	if got := w.Mean(); got != 0 {
		t.Errorf("Mean() = %v, want 0", got)
	}
}

func TestWindow_Reset(t *testing.T) {
	w := New(2)
	w.Push(5)
	w.Push(7)
	w.Reset()

	if got := w.Count(); got != 0 {
		t.Fatalf("Count() after Reset = %d, want 0", got)
	}
	w.Push(9)
	if got := w.Mean(); got != 9 {
		t.Errorf("Mean() after Reset+Push = %v, want 9", got)
	}
}

func TestWindow_TinyCapacityIsRaisedToOne(t *testing.T) {
	w := New(0)
	w.Push(42)
	if got, want := w.Cap(), 1; got != want {
		t.Errorf("Cap() = %d, want %d", got, want)
	}
	if got := w.Mean(); got != 42 {
		t.Errorf("Mean() = %v, want 42", got)
	}
}
