package queue

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leandrodaf/midiclock/sdk/contracts"
)

type recordingSink struct {
	mu     sync.Mutex
	events []contracts.TransportEvent
}

func (s *recordingSink) Dispatch(ev contracts.TransportEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) snapshot() []contracts.TransportEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]contracts.TransportEvent, len(s.events))
	copy(out, s.events)
	return out
}

func (s *recordingSink) waitFor(t *testing.T, n int) []contracts.TransportEvent {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := s.snapshot(); len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d dispatched events, have %d", n, len(s.snapshot()))
	return nil
}

type nopLogger struct{}

func (nopLogger) Info(string, ...contracts.Field) {}
func (nopLogger) Error(string, ...contracts.Field) {}
func (nopLogger) Debug(string, ...contracts.Field) {}
func (nopLogger) Warn(string, ...contracts.Field) {}
func (nopLogger) Fatal(string, ...contracts.Field) {}
func (nopLogger) Field() contracts.Field { return nopField{} }
func (nopLogger) SetLevel(contracts.LogLevel) {}

type nopField struct{}

func (nopField) Bool(string, bool) contracts.Field { return nopField{} }
func (nopField) Int(string, int) contracts.Field { return nopField{} }
func (nopField) Float64(string, float64) contracts.Field { return nopField{} }
func (nopField) String(string, string) contracts.Field { return nopField{} }
func (nopField) Time(string, time.Time) contracts.Field { return nopField{} }
func (nopField) Int64(string, int64) contracts.Field { return nopField{} }
func (nopField) Error(string, error) contracts.Field { return nopField{} }
func (nopField) Uint64(string, uint64) contracts.Field { return nopField{} }
func (nopField) Uint32(string, uint32) contracts.Field { return nopField{} }

// fastTempo makes one tick last 10us so dispatch tests finish quickly.
const fastTempo = uint32(960)

func TestDispatchQueue_DispatchesInTickOrder(t *testing.T) {
	sink := &recordingSink{}
	q := New(sink, nopLogger{})
	if err := q.SetTempo(fastTempo); err != nil {
		t.Fatal(err)
	}

	// Submitted out of tick order on purpose.
	for _, tick := range []uint64{8, 0, 4} {
		if err := q.Submit(contracts.TransportEvent{Kind: contracts.EventClock, Tick: tick}); err != nil {
			t.Fatal(err)
		}
	}
	if err := q.Flush(); err != nil {
		t.Fatal(err)
	}
	if err := q.BeginDispatch(); err != nil {
		t.Fatal(err)
	}
	defer q.EndDispatch()

	got := sink.waitFor(t, 3)
	for i, want := range []uint64{0, 4, 8} {
		if got[i].Tick != want {
			t.Errorf("dispatch %d at tick %d, want %d", i, got[i].Tick, want)
		}
	}
}

func TestDispatchQueue_SubmitIsNotSchedulableUntilFlush(t *testing.T) {
	sink := &recordingSink{}
	q := New(sink, nopLogger{})
	if err := q.SetTempo(fastTempo); err != nil {
		t.Fatal(err)
	}
	if err := q.BeginDispatch(); err != nil {
		t.Fatal(err)
	}
	defer q.EndDispatch()

	if err := q.Submit(contracts.TransportEvent{Kind: contracts.EventStart, Tick: 0}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if got := sink.snapshot(); len(got) != 0 {
		t.Fatalf("event dispatched before Flush: %v", got)
	}

	if err := q.Flush(); err != nil {
		t.Fatal(err)
	}
	sink.waitFor(t, 1)
}

func TestDispatchQueue_TempoChangeNeverReachesSink(t *testing.T) {
	sink := &recordingSink{}
	q := New(sink, nopLogger{})
	if err := q.SetTempo(fastTempo); err != nil {
		t.Fatal(err)
	}

	q.Submit(contracts.TransportEvent{Kind: contracts.EventClock, Tick: 0})
	q.Submit(contracts.TransportEvent{Kind: contracts.EventTempoChange, Tick: 1, MicrosPerBeat: fastTempo * 2})
	q.Submit(contracts.TransportEvent{Kind: contracts.EventClock, Tick: 4})
	q.Flush()
	if err := q.BeginDispatch(); err != nil {
		t.Fatal(err)
	}
	defer q.EndDispatch()

	got := sink.waitFor(t, 2)
	for _, ev := range got {
		if ev.Kind == contracts.EventTempoChange {
			t.Fatalf("tempo change leaked to the sink: %+v", ev)
		}
	}
}

func TestDispatchQueue_SetTempoRejectedWhileDispatching(t *testing.T) {
	q := New(&recordingSink{}, nopLogger{})
	if err := q.BeginDispatch(); err != nil {
		t.Fatal(err)
	}
	defer q.EndDispatch()

	if err := q.SetTempo(250000); !errors.Is(err, contracts.ErrInvalidState) {
		t.Errorf("SetTempo while dispatching: err = %v, want ErrInvalidState", err)
	}
}

func TestDispatchQueue_BeginAndEndDispatchStateChecks(t *testing.T) {
	q := New(&recordingSink{}, nopLogger{})

	if err := q.EndDispatch(); !errors.Is(err, contracts.ErrInvalidState) {
		t.Errorf("EndDispatch before Begin: err = %v, want ErrInvalidState", err)
	}
	if err := q.BeginDispatch(); err != nil {
		t.Fatal(err)
	}
	if err := q.BeginDispatch(); !errors.Is(err, contracts.ErrInvalidState) {
		t.Errorf("second BeginDispatch: err = %v, want ErrInvalidState", err)
	}
	if err := q.EndDispatch(); err != nil {
		t.Fatal(err)
	}

	// The queue can be started again after a clean stop.
	if err := q.BeginDispatch(); err != nil {
		t.Fatalf("restart after EndDispatch: %v", err)
	}
	if err := q.EndDispatch(); err != nil {
		t.Fatal(err)
	}
}

func TestDispatchQueue_ConcurrentEndDispatchIsSafe(t *testing.T) {
	q := New(&recordingSink{}, nopLogger{})
	if err := q.BeginDispatch(); err != nil {
		t.Fatal(err)
	}

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() { errs <- q.EndDispatch() }()
	}

	var stopped, rejected int
	for i := 0; i < 2; i++ {
		switch err := <-errs; {
		case err == nil:
			stopped++
		case errors.Is(err, contracts.ErrInvalidState):
			rejected++
		default:
			t.Fatalf("EndDispatch: %v", err)
		}
	}
	if stopped != 1 || rejected != 1 {
		t.Errorf("stopped/rejected = %d/%d, want 1/1", stopped, rejected)
	}
}

func TestDispatchQueue_CurrentTickAdvances(t *testing.T) {
	q := New(&recordingSink{}, nopLogger{})
	if got := q.CurrentTick(); got != 0 {
		t.Fatalf("CurrentTick before dispatch = %d, want 0", got)
	}
	if err := q.SetTempo(fastTempo); err != nil {
		t.Fatal(err)
	}
	if err := q.BeginDispatch(); err != nil {
		t.Fatal(err)
	}
	defer q.EndDispatch()

	time.Sleep(20 * time.Millisecond)
	if got := q.CurrentTick(); got == 0 {
		t.Error("CurrentTick did not advance while dispatching")
	}
}
