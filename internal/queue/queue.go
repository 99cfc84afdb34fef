// Package queue implements the software dispatch queue behind
// contracts.EventQueue: a tick-scheduled event buffer whose own clock maps
// ticks to wall time, in the manner of an ALSA sequencer queue. Submitted
// events sit in a local buffer until Flush makes them schedulable; a
// dispatcher goroutine hands each event to a sink once its tick comes due.
// Tempo-change events are consumed by the queue itself and retune the
// tick-to-time mapping from their target tick onward.
package queue

import (
	"container/heap"
	"fmt"
	"sync"
	"time"

	"github.com/leandrodaf/midiclock/sdk/contracts"
)

// Sink receives events whose dispatch time has arrived.
type Sink interface {
	Dispatch(ev contracts.TransportEvent) error
}

// idleWait bounds the dispatcher's sleep when nothing is scheduled, so a
// flush signal or shutdown is never waiting on an unbounded timer.
const idleWait = time.Second

type scheduled struct {
	ev  contracts.TransportEvent
	seq uint64 // submission order, breaks ties between events on the same tick
}

// DispatchQueue is the default EventQueue implementation.
type DispatchQueue struct {
	logger contracts.Logger
	sink   Sink
	now    func() time.Time

	mu      sync.Mutex
	pending []contracts.TransportEvent
	events  eventHeap
	seq     uint64
	tl      *timeline
	running bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// New creates a queue dispatching into sink at the standard 96-tick
// resolution, tuned to the default tempo until SetTempo says otherwise.
func New(sink Sink, log contracts.Logger) *DispatchQueue {
	return &DispatchQueue{
		logger: log,
		sink:   sink,
		now:    time.Now,
		tl:     newTimeline(contracts.QueueTickResolution, contracts.MicrosPerMinute/contracts.DefaultBPM),
		wake:   make(chan struct{}, 1),
	}
}

// SetTempo sets the initial tick duration. Once dispatch has begun the
// mapping may only move via tempo-change events, so this fails.
func (q *DispatchQueue) SetTempo(microsPerBeat uint32) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return fmt.Errorf("%w: queue tempo is fixed while dispatching", contracts.ErrInvalidState)
	}
	if microsPerBeat == 0 {
		return fmt.Errorf("%w: zero microseconds per beat", contracts.ErrInvalidBPM)
	}
	q.tl.setTempo(microsPerBeat)
	return nil
}

// Submit buffers an event. It becomes schedulable only after the next Flush.
func (q *DispatchQueue) Submit(ev contracts.TransportEvent) error {
	q.mu.Lock()
	q.pending = append(q.pending, ev)
	q.mu.Unlock()
	return nil
}

// Flush drains the local buffer into the scheduled set and wakes the
// dispatcher. When it returns, every prior Submit is visible to the queue clock.
func (q *DispatchQueue) Flush() error {
	q.mu.Lock()
	for _, ev := range q.pending {
		q.seq++
		heap.Push(&q.events, scheduled{ev: ev, seq: q.seq})
	}
	q.pending = q.pending[:0]
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// BeginDispatch anchors tick zero at the current wall time and starts the
// dispatcher goroutine.
func (q *DispatchQueue) BeginDispatch() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return fmt.Errorf("%w: dispatch already running", contracts.ErrInvalidState)
	}
	q.tl.start(q.now())
	q.stop = make(chan struct{})
	q.done = make(chan struct{})
	q.running = true
	go q.run(q.stop, q.done)
	q.logger.Debug("queue dispatch started")
	return nil
}

// EndDispatch stops the queue clock and waits for the dispatcher to exit.
// Events still scheduled stay in the queue but no longer fire.
func (q *DispatchQueue) EndDispatch() error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return fmt.Errorf("%w: dispatch not running", contracts.ErrInvalidState)
	}
	// running clears under the lock so only one caller reaches the close.
	q.running = false
	stop, done := q.stop, q.done
	q.mu.Unlock()

	close(stop)
	<-done
	q.logger.Debug("queue dispatch stopped")
	return nil
}

// CurrentTick reports the tick the queue clock has reached, or zero before
// dispatch begins.
func (q *DispatchQueue) CurrentTick() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.running {
		return 0
	}
	return q.tl.tickAt(q.now())
}

func (q *DispatchQueue) run(stop, done chan struct{}) {
	defer close(done)
	for {
		wait := q.dispatchDue()
		select {
		case <-stop:
			return
		case <-q.wake:
		case <-time.After(wait):
		}
	}
}

// dispatchDue hands every due event to the sink and returns how long the
// dispatcher may sleep before the next one.
func (q *DispatchQueue) dispatchDue() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.events) > 0 {
		next := q.events[0]
		now := q.now()
		if q.tl.timeOf(next.ev.Tick).After(now) {
			break
		}
		heap.Pop(&q.events)

		if next.ev.Kind == contracts.EventTempoChange {
			q.tl.retune(next.ev.Tick, next.ev.MicrosPerBeat)
			q.logger.Info("queue tempo retuned",
				q.logger.Field().Uint64("tick", next.ev.Tick),
				q.logger.Field().Uint32("microsPerBeat", next.ev.MicrosPerBeat))
			continue
		}

		ev := next.ev
		q.mu.Unlock()
		err := q.sink.Dispatch(ev)
		q.mu.Lock()
		if err != nil {
			q.logger.Error("event dispatch failed",
				q.logger.Field().String("kind", ev.Kind.String()),
				q.logger.Field().Uint64("tick", ev.Tick),
				q.logger.Field().Error("error", err))
		}
	}

	if len(q.events) == 0 {
		return idleWait
	}
	wait := q.tl.timeOf(q.events[0].ev.Tick).Sub(q.now())
	if wait <= 0 {
		// Came due while the lock was held; come straight back.
		return time.Millisecond
	}
	if wait > idleWait {
		return idleWait
	}
	return wait
}

// eventHeap orders scheduled events by tick, submission order breaking ties.
type eventHeap []scheduled

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].ev.Tick != h[j].ev.Tick {
		return h[i].ev.Tick < h[j].ev.Tick
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(scheduled))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
