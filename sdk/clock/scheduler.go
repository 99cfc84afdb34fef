// Package clock provides the public API of the MIDI clock transport: a
// scheduler that drives an event queue with transport commands on a logical
// tick timeline, and an analyzer that reconstructs tempo and beat position
// from the arrival times of inbound clock pulses.
package clock

import (
	"fmt"

	"github.com/leandrodaf/midiclock/sdk/contracts"
)

type transportState uint8

const (
	stateStopped transportState = iota
	stateRunning
)

func (s transportState) String() string {
	if s == stateRunning {
		return "running"
	}
	return "stopped"
}

// Scheduler owns the sender's logical timeline. It emits Start, Clock and
// Stop events into an EventQueue, advancing its tick counter by
// SubdivisionRatio per clock pulse and tracking the highest tick it has ever
// scheduled (the watermark), which bounds where tempo changes may land.
//
// A Scheduler is driven by a single goroutine; it holds no locks of its own.
type Scheduler struct {
	logger contracts.Logger
	queue  contracts.EventQueue

	state         transportState
	tick          uint64
	watermark     uint64
	microsPerBeat uint32
	initialized   bool
	dispatching   bool
}

// NewScheduler creates a scheduler bound to the given queue and sets the
// queue's initial tempo from the configured BPM (60,000,000 / BPM
// microseconds per beat, integer division).
//
// Returns ErrInvalidBPM if the configured BPM is zero or negative, and a
// wrapped queue error if the initial tempo cannot be applied.
func NewScheduler(queue contracts.EventQueue, opts ...contracts.Option) (*Scheduler, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}
	if queue == nil {
		return nil, fmt.Errorf("%w: no event queue", contracts.ErrTransport)
	}
	if options.InitialBPM <= 0 {
		return nil, fmt.Errorf("%w: got %d", contracts.ErrInvalidBPM, options.InitialBPM)
	}

	microsPerBeat := uint32(contracts.MicrosPerMinute / options.InitialBPM)
	if err := queue.SetTempo(microsPerBeat); err != nil {
		return nil, fmt.Errorf("setting initial queue tempo: %w", err)
	}

	s := &Scheduler{
		logger:        options.Logger,
		queue:         queue,
		microsPerBeat: microsPerBeat,
		initialized:   true,
	}
	s.logger.Info("transport scheduler initialized",
		s.logger.Field().Int("bpm", options.InitialBPM),
		s.logger.Field().Uint32("microsPerBeat", microsPerBeat))
	return s, nil
}

// Start emits a Start event at tick zero, tells the queue to begin
// dispatching and moves the transport to running.
func (s *Scheduler) Start() error {
	if !s.initialized {
		return contracts.ErrNotInitialized
	}
	if s.state == stateRunning {
		return fmt.Errorf("%w: start while running", contracts.ErrInvalidState)
	}

	if err := s.emit(contracts.TransportEvent{Kind: contracts.EventStart, Tick: 0}); err != nil {
		return err
	}
	if !s.dispatching {
		if err := s.queue.BeginDispatch(); err != nil {
			return fmt.Errorf("%w: begin dispatch: %v", contracts.ErrTransport, err)
		}
		s.dispatching = true
	}
	s.state = stateRunning
	s.logger.Info("transport started")
	return nil
}

// ClockTick emits one Clock event at the current tick and advances the tick
// counter by SubdivisionRatio. Valid only while running.
func (s *Scheduler) ClockTick() error {
	if !s.initialized {
		return contracts.ErrNotInitialized
	}
	if s.state != stateRunning {
		return fmt.Errorf("%w: clock pulse while %s", contracts.ErrInvalidState, s.state)
	}

	if err := s.emit(contracts.TransportEvent{Kind: contracts.EventClock, Tick: s.tick}); err != nil {
		return err
	}
	s.tick += contracts.SubdivisionRatio
	if s.tick > s.watermark {
		s.watermark = s.tick
	}
	return nil
}

// Stop emits a Stop event at the current tick and moves the transport to
// stopped. The queue keeps dispatching so the Stop itself (and anything
// scheduled before it) still reaches the wire; Close releases the dispatcher.
func (s *Scheduler) Stop() error {
	if !s.initialized {
		return contracts.ErrNotInitialized
	}
	if s.state != stateRunning {
		return fmt.Errorf("%w: stop while %s", contracts.ErrInvalidState, s.state)
	}

	if err := s.emit(contracts.TransportEvent{Kind: contracts.EventStop, Tick: s.tick}); err != nil {
		return err
	}
	s.state = stateStopped
	s.logger.Info("transport stopped",
		s.logger.Field().Uint64("tick", s.tick))
	return nil
}

// Close ends the queue's dispatch clock and invalidates the scheduler.
// Further operations return ErrNotInitialized.
func (s *Scheduler) Close() error {
	if !s.initialized {
		return contracts.ErrNotInitialized
	}
	s.initialized = false
	s.state = stateStopped
	if s.dispatching {
		s.dispatching = false
		if err := s.queue.EndDispatch(); err != nil {
			return fmt.Errorf("%w: end dispatch: %v", contracts.ErrTransport, err)
		}
	}
	s.logger.Info("transport scheduler closed")
	return nil
}

// CurrentTick reports the scheduler's logical tick.
func (s *Scheduler) CurrentTick() uint64 {
	return s.tick
}

// Watermark reports the highest tick any event has been scheduled at.
func (s *Scheduler) Watermark() uint64 {
	return s.watermark
}

// MicrosPerBeat reports the most recently requested tempo in microseconds
// per beat.
func (s *Scheduler) MicrosPerBeat() uint32 {
	return s.microsPerBeat
}

// Running reports whether the transport is between Start and Stop.
func (s *Scheduler) Running() bool {
	return s.state == stateRunning
}

// emit submits one event and drains the queue's local buffer, so the event
// is schedulable before the caller's next state change.
func (s *Scheduler) emit(ev contracts.TransportEvent) error {
	if err := s.queue.Submit(ev); err != nil {
		return fmt.Errorf("%w: submit %s: %v", contracts.ErrTransport, ev.Kind, err)
	}
	if err := s.queue.Flush(); err != nil {
		return fmt.Errorf("%w: flush after %s: %v", contracts.ErrTransport, ev.Kind, err)
	}
	return nil
}
