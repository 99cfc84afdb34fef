package queue

import (
	"testing"
	"time"
)

func TestTimeline_TickPlacementAtDefaultTempo(t *testing.T) {
	// 500000 us/beat at 96 ticks/beat = 5208.333 us/tick, truncated to whole
	// nanoseconds by the Duration math.
	tl := newTimeline(96, 500000)
	base := time.Unix(100, 0)
	tl.start(base)

	perTick := time.Duration(500000) * time.Microsecond / 96
	if got, want := tl.timeOf(96), base.Add(96*perTick); !got.Equal(want) {
		t.Errorf("timeOf(96) = %v, want %v", got, want)
	}
	if got := tl.timeOf(0); !got.Equal(base) {
		t.Errorf("timeOf(0) = %v, want base %v", got, base)
	}
}

func TestTimeline_RetuneAnchorsAtTargetTick(t *testing.T) {
	tl := newTimeline(96, 500000)
	base := time.Unix(0, 0)
	tl.start(base)

	at97 := tl.timeOf(97)

	// Halve the tempo (60 BPM) from tick 97 onward.
	tl.retune(97, 1000000)

	// The target tick keeps the placement it had under the old tempo.
	if got := tl.timeOf(97); !got.Equal(at97) {
		t.Errorf("timeOf(97) moved after retune: got %v, want %v", got, at97)
	}
	// Ticks before the anchor are already due; they never land later than
	// the anchor itself.
	if got := tl.timeOf(96); got.After(at97) {
		t.Errorf("timeOf(96) = %v, after the retune anchor %v", got, at97)
	}

	slow := time.Duration(1000000) * time.Microsecond / 96
	if got, want := tl.timeOf(98), at97.Add(slow); !got.Equal(want) {
		t.Errorf("timeOf(98) = %v, want %v", got, want)
	}
}

func TestTimeline_TickAtInvertsTimeOf(t *testing.T) {
	tl := newTimeline(96, 500000)
	base := time.Unix(50, 0)
	tl.start(base)

	for _, tick := range []uint64{0, 1, 4, 96, 960} {
		at := tl.timeOf(tick)
		if got := tl.tickAt(at); got != tick {
			t.Errorf("tickAt(timeOf(%d)) = %d", tick, got)
		}
	}
	if got := tl.tickAt(base.Add(-time.Second)); got != 0 {
		t.Errorf("tickAt before base = %d, want 0", got)
	}
}
