package queue

import "time"

// timeline maps queue ticks to wall-clock dispatch times. The mapping is
// piecewise linear: retuning at tick T changes the duration of every tick at
// or after T and leaves the placement of earlier ticks untouched.
type timeline struct {
	resolution uint32 // ticks per beat
	baseTick   uint64
	baseTime   time.Time
	perTick    time.Duration
}

func newTimeline(resolution uint32, microsPerBeat uint32) *timeline {
	tl := &timeline{resolution: resolution}
	tl.setTempo(microsPerBeat)
	return tl
}

func (tl *timeline) setTempo(microsPerBeat uint32) {
	tl.perTick = time.Duration(microsPerBeat) * time.Microsecond / time.Duration(tl.resolution)
}

// start anchors tick zero at the given wall time.
func (tl *timeline) start(now time.Time) {
	tl.baseTick = 0
	tl.baseTime = now
}

// timeOf returns the dispatch time of a tick. Ticks at or before the current
// anchor are already due.
func (tl *timeline) timeOf(tick uint64) time.Time {
	if tick <= tl.baseTick {
		return tl.baseTime
	}
	return tl.baseTime.Add(time.Duration(tick-tl.baseTick) * tl.perTick)
}

// tickAt returns the tick the queue clock has reached at the given wall time.
func (tl *timeline) tickAt(now time.Time) uint64 {
	if !now.After(tl.baseTime) || tl.perTick <= 0 {
		return tl.baseTick
	}
	return tl.baseTick + uint64(now.Sub(tl.baseTime)/tl.perTick)
}

// retune moves the tempo anchor to the given tick and applies the new beat
// duration from that tick onward.
func (tl *timeline) retune(tick uint64, microsPerBeat uint32) {
	tl.baseTime = tl.timeOf(tick)
	if tick > tl.baseTick {
		tl.baseTick = tick
	}
	tl.setTempo(microsPerBeat)
}
