package clock

import (
	"github.com/leandrodaf/midiclock/internal/logger"
	"github.com/leandrodaf/midiclock/sdk/contracts"
)

// applyDefaultOptions sets default values for ClientOptions if not explicitly provided.
func applyDefaultOptions(opts ...contracts.Option) (contracts.ClientOptions, error) {
	// The tempo default is seeded up front so an explicit zero from an
	// option survives to the scheduler's validity check.
	options := &contracts.ClientOptions{InitialBPM: contracts.DefaultBPM}
	for _, opt := range opts {
		opt(options)
	}

	if options.Logger == nil {
		options.Logger = logger.NewZapLogger()
	}
	if options.LogLevel == 0 {
		options.LogLevel = contracts.InfoLevel
	}
	if options.SampleWindow == 0 {
		options.SampleWindow = contracts.DefaultSampleWindow
	}
	if options.ClientName == "" {
		options.ClientName = "Go MIDI Clock"
	}
	if options.PortName == "" {
		options.PortName = "Clock"
	}

	options.Logger.SetLevel(options.LogLevel)
	return *options, nil
}
