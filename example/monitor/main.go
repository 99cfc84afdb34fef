package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/leandrodaf/midiclock/internal/logger"
	"github.com/leandrodaf/midiclock/internal/transport"
	"github.com/leandrodaf/midiclock/sdk/clock"
	"github.com/leandrodaf/midiclock/sdk/contracts"
)

func main() {
	device := flag.Int("device", 0, "MIDI port index to capture from")
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

	events := make(chan contracts.RawEvent, 256)
	if err := wire.StartCapture(events); err != nil {
		log.Fatal("Failed to start capture", log.Field().Error("error", err))
	}

	analyzer, err := clock.NewAnalyzer(contracts.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to initialize analyzer", log.Field().Error("error", err))
	}

	fmt.Println("Analyzing MIDI clock... Press Ctrl+C to exit.")
	summary, err := analyzer.Run(ctx, transport.NewChannelSource(events), func(r clock.BeatReport) {
		log.Info("beat",
			log.Field().Int("beat", r.Beat),
			log.Field().Int("tick", r.Tick),
			log.Field().Float64("intervalMicros", r.IntervalMicros),
			log.Field().Float64("bpm", r.BPM),
			log.Field().Int("samples", r.Samples))
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("analyzer terminated", log.Field().Error("error", err))
	}

	log.Info("monitor finished",
		log.Field().Int("ticks", summary.Ticks),
		log.Field().Int("beats", summary.Beats))
}
