package clock

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/leandrodaf/midiclock/internal/transport/transportdarwin"
	"github.com/leandrodaf/midiclock/internal/transport/transportrtmidi"
	"github.com/leandrodaf/midiclock/internal/transport/transportwindows"
	"github.com/leandrodaf/midiclock/sdk/contracts"
)

// ErrUnsupportedOS is returned when the operating system has no wire client.
var ErrUnsupportedOS = errors.New("unsupported operating system")

// wireInitializers maps OS names to corresponding wire client initializers.
var wireInitializers = map[string]func(*contracts.ClientOptions) (contracts.WireClient, error){
	"darwin":  transportdarwin.NewWireClient,  // macOS (Darwin), CoreMIDI.
	"windows": transportwindows.NewWireClient, // Windows, winmm.
	"linux":   transportrtmidi.NewWireClient,  // Linux, rtmidi over the ALSA sequencer.
}

// NewWireClient initializes the wire transport for the current operating
// system, returning ErrUnsupportedOS when there is none.
//
// opts ...contracts.Option: A variadic list of option functions to customize
// the client configuration.
//
// Returns:
//   - contracts.WireClient: An instance of the wire client.
//   - error: An error, if any occurred during the creation of the client.
func NewWireClient(opts ...contracts.Option) (contracts.WireClient, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}
	if initializer, exists := wireInitializers[runtime.GOOS]; exists {
		return initializer(&options)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedOS, runtime.GOOS)
}
