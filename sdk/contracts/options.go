package contracts

// ClientOptions defines the configuration options shared by the SDK's
// schedulers, analyzers and wire clients.
type ClientOptions struct {
	Logger       Logger   // Logger for logging events and errors.
	LogLevel     LogLevel // Level of logging to use.
	InitialBPM   int      // Session tempo at initialization.
	SampleWindow int      // Capacity of the analyzer's interval history.
	ClientName   string   // Name under which the wire client registers.
	PortName     string   // Name of the port the wire client creates, where the backend supports it.
}

// Option is a function that modifies ClientOptions.
type Option func(*ClientOptions)

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(opts *ClientOptions) {
		opts.Logger = l
	}
}

// WithLogLevel sets the logging level.
func WithLogLevel(level LogLevel) Option {
	return func(opts *ClientOptions) {
		opts.LogLevel = level
	}
}

// WithInitialBPM sets the tempo the session starts at.
func WithInitialBPM(bpm int) Option {
	return func(opts *ClientOptions) {
		opts.InitialBPM = bpm
	}
}

// WithSampleWindow sets how many inter-pulse intervals the analyzer averages over.
func WithSampleWindow(n int) Option {
	return func(opts *ClientOptions) {
		opts.SampleWindow = n
	}
}

// WithClientName sets the name the wire client registers under.
func WithClientName(name string) Option {
	return func(opts *ClientOptions) {
		opts.ClientName = name
	}
}

// WithPortName sets the name of the port the wire client creates.
func WithPortName(name string) Option {
	return func(opts *ClientOptions) {
		opts.PortName = name
	}
}
