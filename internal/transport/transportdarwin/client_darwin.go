//go:build darwin
// +build darwin

package transportdarwin

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leandrodaf/midiclock/sdk/contracts"
	"github.com/youpy/go-coremidi"
)

// Error definitions for CoreMIDI connection and handling issues.
var (
	ErrNoMIDIPorts         = errors.New("no MIDI ports found")
	ErrInvalidMIDIPort     = errors.New("invalid MIDI port")
	ErrMIDIConnectionError = errors.New("error connecting to MIDI port")
	ErrCreateInputPort     = errors.New("error creating input port")
	ErrCreateOutputPort    = errors.New("error creating output port")
	ErrNoDestination       = errors.New("no output destination selected")
)

// internalPortConnection is an interface for handling disconnection from a MIDI port.
type internalPortConnection interface {
	Disconnect()
}

// Client manages realtime MIDI traffic through CoreMIDI on macOS.
type Client struct {
	logger contracts.Logger

	client      coremidi.Client
	inputPort   coremidi.InputPort
	outputPort  coremidi.OutputPort
	destination *coremidi.Destination
	portConn    internalPortConnection

	eventChannel atomic.Value
	mu           sync.Mutex
	capturing    bool
	wg           sync.WaitGroup
	stopOnce     sync.Once
}

// NewWireClient creates a CoreMIDI-backed wire client registered under the
// configured client name.
func NewWireClient(options *contracts.ClientOptions) (contracts.WireClient, error) {
	client, err := coremidi.NewClient(options.ClientName)
	if err != nil {
		return nil, err
	}
	outputPort, err := coremidi.NewOutputPort(client, options.PortName)
	if err != nil {
		options.Logger.Error(ErrCreateOutputPort.Error())
		return nil, fmt.Errorf("%w: %v", ErrCreateOutputPort, err)
	}
	options.Logger.Info("wire client created",
		options.Logger.Field().String("driver", "coremidi"))

	return &Client{
		logger:     options.Logger,
		client:     client,
		outputPort: outputPort,
	}, nil
}

// ListDevices lists MIDI ports by index. A device at index i is the output
// destination i for sending and the source i for capture, where each exists.
func (c *Client) ListDevices() ([]contracts.DeviceInfo, error) {
	sources, err := coremidi.AllSources()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI sources: %w", err)
	}
	destinations, err := coremidi.AllDestinations()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI destinations: %w", err)
	}
	n := len(sources)
	if len(destinations) > n {
		n = len(destinations)
	}
	if n == 0 {
		c.logger.Warn(ErrNoMIDIPorts.Error())
		return nil, ErrNoMIDIPorts
	}

	devices := make([]contracts.DeviceInfo, n)
	for i := range devices {
		if i < len(sources) {
			sourceEntity := sources[i].Entity()
			devices[i] = contracts.DeviceInfo{
				Name:         sources[i].Name(),
				EntityName:   sourceEntity.Name(),
				Manufacturer: sourceEntity.Manufacturer(),
			}
		} else {
			devices[i] = contracts.DeviceInfo{
				Name: fmt.Sprintf("destination %d", i),
			}
		}
	}
	return devices, nil
}

// SelectDevice binds the client to the numbered port in each direction it
// exists: destination for Send, source for capture.
func (c *Client) SelectDevice(deviceID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sources, err := coremidi.AllSources()
	if err != nil {
		return fmt.Errorf("error retrieving MIDI sources: %w", err)
	}
	destinations, err := coremidi.AllDestinations()
	if err != nil {
		return fmt.Errorf("error retrieving MIDI destinations: %w", err)
	}
	if deviceID < 0 || (deviceID >= len(sources) && deviceID >= len(destinations)) {
		c.logger.Error(ErrInvalidMIDIPort.Error())
		return ErrInvalidMIDIPort
	}

	if deviceID < len(destinations) {
		destination := destinations[deviceID]
		c.destination = &destination
	}

	if deviceID < len(sources) {
		if c.portConn != nil {
			c.portConn.Disconnect()
			c.portConn = nil
		}
		source := sources[deviceID]

		c.inputPort, err = coremidi.NewInputPort(c.client, "Clock In", c.handlePacket)
		if err != nil {
			c.logger.Error(ErrCreateInputPort.Error())
			return fmt.Errorf("%w: %v", ErrCreateInputPort, err)
		}
		c.portConn, err = c.inputPort.Connect(source)
		if err != nil {
			c.logger.Error(ErrMIDIConnectionError.Error())
			return fmt.Errorf("%w: %v", ErrMIDIConnectionError, err)
		}
	}

	c.logger.Info("MIDI port selected",
		c.logger.Field().Int("deviceID", deviceID))
	return nil
}

// Send emits one realtime status byte to the selected destination.
func (c *Client) Send(cmd contracts.RealtimeCommand) error {
	c.mu.Lock()
	destination := c.destination
	c.mu.Unlock()

	if destination == nil {
		return ErrNoDestination
	}
	packet := coremidi.NewPacket([]byte{byte(cmd)}, 0)
	if err := packet.Send(&c.outputPort, destination); err != nil {
		return fmt.Errorf("%w: %v", contracts.ErrTransport, err)
	}
	return nil
}

// handlePacket forwards captured wire messages to the event channel.
// Realtime messages are a single status byte.
func (c *Client) handlePacket(source coremidi.Source, packet coremidi.Packet) {
	c.wg.Add(1)
	defer c.wg.Done()

	eventChannel, _ := c.eventChannel.Load().(chan contracts.RawEvent)
	if eventChannel == nil {
		return
	}
	if len(packet.Data) == 0 {
		return
	}

	raw := contracts.RawEvent{
		Status:    packet.Data[0],
		Timestamp: uint64(time.Now().UTC().UnixNano()),
	}
	select {
	case eventChannel <- raw:
	default:
		c.logger.Warn("event buffer full; dropping wire message")
	}
}

// StartCapture begins delivering captured wire messages to the channel.
func (c *Client) StartCapture(eventChannel chan contracts.RawEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if eventChannel == nil {
		return fmt.Errorf("%w: nil event channel", contracts.ErrTransport)
	}
	if c.capturing {
		c.logger.Warn("capture already started")
		return nil
	}

	c.eventChannel.Store(eventChannel)
	c.capturing = true
	c.logger.Info("wire capture started")
	return nil
}

// Stop halts capture, disconnects from the port and waits for in-flight
// packet handling to complete. Safe to call more than once.
func (c *Client) Stop() error {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.portConn != nil {
			c.portConn.Disconnect()
			c.portConn = nil
		}
		c.capturing = false

		// Keep late callbacks from writing to the caller's channel.
		dummy := make(chan contracts.RawEvent)
		c.eventChannel.Store(dummy)

		c.logger.Info("wire client stopped")
		c.wg.Wait()
	})
	return nil
}
