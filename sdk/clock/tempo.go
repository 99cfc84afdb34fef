package clock

import (
	"fmt"

	"github.com/leandrodaf/midiclock/sdk/contracts"
)

// TempoChange describes a tempo change that has been queued.
type TempoChange struct {
	BPM           int    // Requested tempo.
	MicrosPerBeat uint32 // Derived beat duration (60,000,000 / BPM).
	Tick          uint64 // Tick the change takes effect at.
}

// RequestTempoChange queues a tempo change at watermark + 1, the first tick
// strictly after everything already scheduled. Events at earlier ticks keep
// their original wall-clock placement; only the tick-to-time mapping for
// ticks at or after the target moves. The scheduler's own tick counter is
// not touched.
//
// The insertion point is computed the same way whether the transport is
// running or stopped; a change requested while stopped takes effect as soon
// as the queue clock reaches the target tick after the next Start.
func (s *Scheduler) RequestTempoChange(bpm int) (TempoChange, error) {
	if !s.initialized {
		return TempoChange{}, contracts.ErrNotInitialized
	}
	if bpm <= 0 {
		return TempoChange{}, fmt.Errorf("%w: got %d", contracts.ErrInvalidBPM, bpm)
	}

	microsPerBeat := uint32(contracts.MicrosPerMinute / bpm)
	target := s.watermark + 1

	ev := contracts.TransportEvent{
		Kind:          contracts.EventTempoChange,
		Tick:          target,
		MicrosPerBeat: microsPerBeat,
	}
	if err := s.emit(ev); err != nil {
		return TempoChange{}, err
	}

	s.watermark = target
	s.microsPerBeat = microsPerBeat
	s.logger.Info("tempo change queued",
		s.logger.Field().Int("bpm", bpm),
		s.logger.Field().Uint32("microsPerBeat", microsPerBeat),
		s.logger.Field().Uint64("tick", target),
		s.logger.Field().String("state", s.state.String()))

	return TempoChange{BPM: bpm, MicrosPerBeat: microsPerBeat, Tick: target}, nil
}
