package contracts

import "time"

// Protocol constants of the MIDI beat clock. These are fixed by the protocol
// and by the queue model, not configurable per session.
const (
	// PulsesPerQuarterNote is the number of clock pulses that make up one beat.
	PulsesPerQuarterNote = 24
	// QueueTickResolution is the tick resolution of the dispatch queue per beat.
	QueueTickResolution = 96
	// SubdivisionRatio is the number of queue ticks advanced per clock pulse.
	SubdivisionRatio = QueueTickResolution / PulsesPerQuarterNote
	// MicrosPerMinute converts BPM to microseconds per beat by integer division.
	MicrosPerMinute = 60_000_000
	// DefaultBPM is the session tempo used when none is configured (500000 us/beat).
	DefaultBPM = 120
	// DefaultSampleWindow is the analyzer's interval history capacity (4 beats of pulses).
	DefaultSampleWindow = 96
)

// RealtimeCommand is a MIDI system realtime status byte as it appears on the wire.
type RealtimeCommand byte

const (
	// ClockCmd is the MIDI timing clock status byte (0xF8).
	ClockCmd RealtimeCommand = 0xF8
	// StartCmd is the MIDI start status byte (0xFA).
	StartCmd RealtimeCommand = 0xFA
	// ContinueCmd is the MIDI continue status byte (0xFB).
	ContinueCmd RealtimeCommand = 0xFB
	// StopCmd is the MIDI stop status byte (0xFC).
	StopCmd RealtimeCommand = 0xFC
)

// EventKind identifies a transport event.
type EventKind uint8

const (
	// EventStart begins playback at tick zero.
	EventStart EventKind = iota
	// EventStop halts playback.
	EventStop
	// EventContinue resumes playback without resetting position.
	EventContinue
	// EventClock is one timing pulse.
	EventClock
	// EventTempoChange retunes the queue's tick-to-time mapping from its
	// target tick onward. It never reaches the wire.
	EventTempoChange
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventStop:
		return "stop"
	case EventContinue:
		return "continue"
	case EventClock:
		return "clock"
	case EventTempoChange:
		return "tempo-change"
	}
	return "unknown"
}

// Command returns the wire status byte for the kind. The second result is
// false for kinds that have no wire representation.
func (k EventKind) Command() (RealtimeCommand, bool) {
	switch k {
	case EventStart:
		return StartCmd, true
	case EventStop:
		return StopCmd, true
	case EventContinue:
		return ContinueCmd, true
	case EventClock:
		return ClockCmd, true
	}
	return 0, false
}

// KindOf maps a wire status byte to its event kind. The second result is
// false for bytes that are not transport commands.
func KindOf(cmd RealtimeCommand) (EventKind, bool) {
	switch cmd {
	case StartCmd:
		return EventStart, true
	case StopCmd:
		return EventStop, true
	case ContinueCmd:
		return EventContinue, true
	case ClockCmd:
		return EventClock, true
	}
	return 0, false
}

// TransportEvent is one scheduled transport command on the queue timeline.
type TransportEvent struct {
	Kind EventKind // Kind of transport command.
	Tick uint64    // Queue tick at which the event becomes due.
	// MicrosPerBeat is the tempo payload in microseconds per quarter note.
	// Set only when Kind is EventTempoChange.
	MicrosPerBeat uint32
}

// RawEvent is a captured wire message before decoding.
type RawEvent struct {
	Status    byte   // Status byte of the message.
	Timestamp uint64 // Arrival time in nanoseconds since the Unix epoch (UTC).
}

// EventQueue is the dispatch queue the scheduler emits into. The queue owns
// its own clock, which maps event ticks to wall time.
type EventQueue interface {
	// SetTempo sets the initial tick-to-time mapping. Valid only before
	// BeginDispatch; mid-stream tempo moves travel as EventTempoChange.
	SetTempo(microsPerBeat uint32) error
	// Submit buffers an event for dispatch at its target tick. It never
	// blocks past buffering.
	Submit(ev TransportEvent) error
	// Flush drains the local buffer; after it returns every prior Submit
	// is visible to the dispatch clock.
	Flush() error
	// BeginDispatch starts the queue's tick-advancing clock.
	BeginDispatch() error
	// EndDispatch stops the clock and releases the dispatcher.
	EndDispatch() error
}

// EventSource yields inbound transport events with their arrival time.
// ReceiveNext waits at most timeout and returns ErrWouldBlock when nothing
// arrived, so callers can observe cancellation between polls.
type EventSource interface {
	ReceiveNext(timeout time.Duration) (TransportEvent, time.Time, error)
}

// WireClient is the OS-level transport for realtime MIDI bytes.
type WireClient interface {
	// Stop stops the client and releases its ports.
	Stop() error
	// ListDevices lists the available MIDI ports.
	ListDevices() ([]DeviceInfo, error)
	// SelectDevice binds the client to the numbered port in each direction
	// it exists.
	SelectDevice(deviceID int) error
	// Send emits one realtime status byte.
	Send(cmd RealtimeCommand) error
	// StartCapture begins delivering captured wire messages to the channel.
	StartCapture(eventChannel chan RawEvent) error
}
