package clock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leandrodaf/midiclock/internal/history"
	"github.com/leandrodaf/midiclock/sdk/contracts"
)

const (
	// defaultPollTimeout bounds each blocking receive so cancellation is
	// observed within one poll interval.
	defaultPollTimeout = 100 * time.Millisecond
	// maxReceiveFailures is how many consecutive receive errors the loop
	// tolerates before it gives up and reports what it has.
	maxReceiveFailures = 8
)

// BeatReport is emitted once per beat (every 24 clock pulses).
type BeatReport struct {
	Beat           int     // Beats counted since the last Start.
	Tick           int     // Clock pulses counted since the last Start.
	IntervalMicros float64 // Interval between the two most recent pulses.
	BPM            float64 // Tempo estimate over the interval window.
	Samples        int     // Intervals currently in the window.
}

// Summary is the analyzer's final tally.
type Summary struct {
	Ticks int
	Beats int
}

// Analyzer reconstructs the sender's tempo and beat position purely from the
// arrival times of inbound transport events. It holds a bounded window of
// inter-pulse intervals and derives BPM from their mean.
//
// An Analyzer is driven by a single goroutine (normally Run's).
type Analyzer struct {
	logger contracts.Logger
	window *history.Window

	started   bool
	tickCount int
	beatCount int
	lastPulse time.Time
	hasPulse  bool
}

// NewAnalyzer creates an analyzer. The interval window capacity defaults to
// 96 pulses (four beats) and can be changed with WithSampleWindow.
func NewAnalyzer(opts ...contracts.Option) (*Analyzer, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &Analyzer{
		logger: options.Logger,
		window: history.New(options.SampleWindow),
	}, nil
}

// Observe feeds one inbound event with its arrival time. It returns a
// non-nil BeatReport when the event completes a beat.
func (a *Analyzer) Observe(ev contracts.TransportEvent, arrival time.Time) *BeatReport {
	switch ev.Kind {
	case contracts.EventStart:
		a.started = true
		a.tickCount = 0
		a.beatCount = 0
		a.window.Reset()
		a.hasPulse = false
		a.logger.Info("start received")

	case contracts.EventStop:
		a.started = false
		a.logger.Info("stop received",
			a.logger.Field().Int("ticks", a.tickCount),
			a.logger.Field().Int("beats", a.beatCount))

	case contracts.EventContinue:
		a.started = true
		a.logger.Info("continue received")

	case contracts.EventClock:
		return a.observePulse(arrival)

	default:
		// Anything else is not transport traffic.
	}
	return nil
}

func (a *Analyzer) observePulse(arrival time.Time) *BeatReport {
	if !a.started {
		// Tolerate clock pulses arriving before an explicit Start.
		a.started = true
		a.logger.Warn("clock pulse before start; treating transport as started")
	}

	a.tickCount++

	// The first pulse after a reset has no predecessor and contributes no
	// interval sample.
	var interval float64
	if a.hasPulse {
		interval = float64(arrival.Sub(a.lastPulse)) / float64(time.Microsecond)
		a.window.Push(interval)
	}

	var report *BeatReport
	if a.tickCount%contracts.PulsesPerQuarterNote == 0 {
		a.beatCount++
		report = &BeatReport{
			Beat:           a.beatCount,
			Tick:           a.tickCount,
			IntervalMicros: interval,
			BPM:            a.BPM(),
			Samples:        a.window.Count(),
		}
	}

	a.lastPulse = arrival
	a.hasPulse = true
	return report
}

// BPM returns the current tempo estimate: the mean inter-pulse interval
// converted to pulses per second, divided by 24 pulses per beat, times 60.
// It is zero until at least one interval has been observed.
func (a *Analyzer) BPM() float64 {
	avg := a.window.Mean()
	if avg <= 0 {
		return 0
	}
	pulsesPerSecond := 1_000_000 / avg
	return pulsesPerSecond / contracts.PulsesPerQuarterNote * 60
}

// Ticks reports the pulses counted since the last Start.
func (a *Analyzer) Ticks() int { return a.tickCount }

// Beats reports the beats counted since the last Start.
func (a *Analyzer) Beats() int { return a.beatCount }

// Started reports whether the transport is currently considered running.
func (a *Analyzer) Started() bool { return a.started }

// Summary returns the counters gathered so far.
func (a *Analyzer) Summary() Summary {
	return Summary{Ticks: a.tickCount, Beats: a.beatCount}
}

// Run polls the source until the context is cancelled, feeding every event
// to Observe and invoking onBeat (if non-nil) for each completed beat.
// Isolated receive failures are logged and tolerated; after
// maxReceiveFailures consecutive failures the loop terminates with the
// summary gathered so far and an error wrapping ErrTransport. Cancellation
// returns the summary and the context's error.
func (a *Analyzer) Run(ctx context.Context, source contracts.EventSource, onBeat func(BeatReport)) (Summary, error) {
	failures := 0
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("analyzer loop cancelled",
				a.logger.Field().Int("ticks", a.tickCount),
				a.logger.Field().Int("beats", a.beatCount))
			return a.Summary(), ctx.Err()
		default:
		}

		ev, arrival, err := source.ReceiveNext(defaultPollTimeout)
		if err != nil {
			if errors.Is(err, contracts.ErrWouldBlock) {
				continue
			}
			failures++
			a.logger.Warn("receive failed",
				a.logger.Field().Error("error", err),
				a.logger.Field().Int("consecutive", failures))
			if failures >= maxReceiveFailures {
				return a.Summary(), fmt.Errorf("%w: %d consecutive receive failures: %v",
					contracts.ErrTransport, failures, err)
			}
			continue
		}
		failures = 0

		if report := a.Observe(ev, arrival); report != nil && onBeat != nil {
			onBeat(*report)
		}
	}
}
