package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leandrodaf/midiclock/internal/logger"
	"github.com/leandrodaf/midiclock/internal/queue"
	"github.com/leandrodaf/midiclock/internal/transport"
	"github.com/leandrodaf/midiclock/sdk/clock"
	"github.com/leandrodaf/midiclock/sdk/contracts"
)

func main() {
	var (
		device   = flag.Int("device", 0, "MIDI port index to send on")
		bpm      = flag.Int("bpm", contracts.DefaultBPM, "initial tempo")
		newBPM   = flag.Int("new-bpm", 0, "tempo to switch to mid-stream (0 disables)")
		switchAt = flag.Int("switch-at", 8, "beat at which the tempo change is requested")
	)
	flag.Parse()

	log := logger.NewZapLogger()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wire, err := clock.NewWireClient(contracts.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to initialize wire client", log.Field().Error("error", err))
	}
	defer wire.Stop()

	devices, err := wire.ListDevices()
	if err != nil || len(devices) == 0 {
		log.Fatal("No MIDI ports found or error listing ports", log.Field().Error("error", err))
	}
	fmt.Println("Available MIDI ports:", devices)

	if err = wire.SelectDevice(*device); err != nil {
		log.Fatal("Failed to select MIDI port", log.Field().Error("error", err))
	}

	q := queue.New(transport.WireSink{Client: wire}, log)
	sched, err := clock.NewScheduler(q,
		contracts.WithLogger(log),
		contracts.WithInitialBPM(*bpm),
	)
	if err != nil {
		log.Fatal("Failed to initialize scheduler", log.Field().Error("error", err))
	}
	defer sched.Close()

	if err := sched.Start(); err != nil {
		log.Fatal("Failed to start transport", log.Field().Error("error", err))
	}
	fmt.Println("Sending MIDI clock... Press Ctrl+C to stop.")

	// One pulse every microsPerBeat/24; absolute deadlines keep the loop
	// from drifting.
	pulseInterval := func() time.Duration {
		return time.Duration(sched.MicrosPerBeat()) * time.Microsecond / contracts.PulsesPerQuarterNote
	}
	interval := pulseInterval()
	next := time.Now()
	pulses, beats := 0, 0

	for ctx.Err() == nil {
		if err := sched.ClockTick(); err != nil {
			log.Error("clock pulse failed", log.Field().Error("error", err))
			break
		}
		pulses++

		if pulses%contracts.PulsesPerQuarterNote == 0 {
			beats++
			log.Info("beat",
				log.Field().Int("beat", beats),
				log.Field().Int("pulses", pulses),
				log.Field().Uint64("queueTick", q.CurrentTick()))

			if *newBPM > 0 && beats == *switchAt {
				change, err := sched.RequestTempoChange(*newBPM)
				if err != nil {
					log.Error("tempo change failed", log.Field().Error("error", err))
				} else {
					log.Info("tempo change scheduled",
						log.Field().Int("bpm", change.BPM),
						log.Field().Uint64("tick", change.Tick))
					interval = pulseInterval()
				}
			}
		}

		next = next.Add(interval)
		if wait := time.Until(next); wait > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(wait):
			}
		} else if wait < -interval {
			// Fell behind more than a pulse; resync instead of bursting.
			next = time.Now()
		}
	}

	if sched.Running() {
		if err := sched.Stop(); err != nil {
			log.Error("Failed to stop transport", log.Field().Error("error", err))
		}
	}
	// Let the stop command leave the queue before the session is torn down.
	time.Sleep(200 * time.Millisecond)

	log.Info("sender finished",
		log.Field().Int("pulses", pulses),
		log.Field().Int("beats", beats))
}
