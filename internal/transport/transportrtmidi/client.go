// Package transportrtmidi provides the portable wire client backed by the
// rtmidi driver of gomidi. On Linux this reaches the ALSA sequencer.
package transportrtmidi

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leandrodaf/midiclock/sdk/contracts"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// Client manages realtime MIDI traffic through rtmidi ports.
type Client struct {
	logger contracts.Logger

	mu           sync.Mutex
	out          drivers.Out
	in           drivers.In
	send         func(midi.Message) error
	stopListen   func()
	eventChannel atomic.Value
	capturing    bool
	stopOnce     sync.Once
}

// NewWireClient creates an rtmidi-backed wire client.
func NewWireClient(options *contracts.ClientOptions) (contracts.WireClient, error) {
	options.Logger.Info("wire client created",
		options.Logger.Field().String("driver", "rtmidi"))
	return &Client{logger: options.Logger}, nil
}

// ListDevices lists MIDI ports by index. A device at index i is the output
// port i for sending and the input port i for capture, where each exists.
func (c *Client) ListDevices() ([]contracts.DeviceInfo, error) {
	outs := midi.GetOutPorts()
	ins := midi.GetInPorts()

	n := max(len(outs), len(ins))
	if n == 0 {
		c.logger.Warn("no MIDI ports found")
		return nil, fmt.Errorf("%w: no MIDI ports found", contracts.ErrTransport)
	}

	devices := make([]contracts.DeviceInfo, n)
	for i := range devices {
		if i < len(outs) {
			devices[i].Name = outs[i].String()
		}
		if i < len(ins) {
			devices[i].EntityName = ins[i].String()
			if devices[i].Name == "" {
				devices[i].Name = ins[i].String()
			}
		}
	}
	return devices, nil
}

// SelectDevice binds the client to the numbered port in each direction it
// exists: the output port for Send, the input port for StartCapture.
func (c *Client) SelectDevice(deviceID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	outs := midi.GetOutPorts()
	ins := midi.GetInPorts()
	if deviceID < 0 || (deviceID >= len(outs) && deviceID >= len(ins)) {
		return fmt.Errorf("invalid port index: %d", deviceID)
	}

	if deviceID < len(outs) {
		send, err := midi.SendTo(outs[deviceID])
		if err != nil {
			return fmt.Errorf("opening output port: %w", err)
		}
		c.out = outs[deviceID]
		c.send = send
	}
	if deviceID < len(ins) {
		c.in = ins[deviceID]
	}

	c.logger.Info("MIDI port selected",
		c.logger.Field().Int("deviceID", deviceID))
	return nil
}

// Send emits one realtime status byte on the selected output port.
func (c *Client) Send(cmd contracts.RealtimeCommand) error {
	c.mu.Lock()
	send := c.send
	c.mu.Unlock()

	if send == nil {
		return fmt.Errorf("%w: no output port selected", contracts.ErrTransport)
	}
	if err := send(midi.Message{byte(cmd)}); err != nil {
		return fmt.Errorf("%w: %v", contracts.ErrTransport, err)
	}
	return nil
}

// StartCapture begins delivering captured wire messages to the channel.
func (c *Client) StartCapture(eventChannel chan contracts.RawEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.in == nil {
		return fmt.Errorf("%w: no input port selected", contracts.ErrTransport)
	}
	if c.capturing {
		c.logger.Warn("capture already started")
		return nil
	}

	c.eventChannel.Store(eventChannel)
	// UseTimeCode keeps the driver from filtering 0xF8 timing-clock bytes.
	stop, err := midi.ListenTo(c.in, func(msg midi.Message, timestampms int32) {
		if len(msg) == 0 {
			return
		}
		raw := contracts.RawEvent{
			Status:    msg[0],
			Timestamp: uint64(time.Now().UTC().UnixNano()),
		}
		if ch, ok := c.eventChannel.Load().(chan contracts.RawEvent); ok && ch != nil {
			select {
			case ch <- raw:
			default:
				c.logger.Warn("event buffer full; dropping wire message")
			}
		}
	}, midi.UseTimeCode())
	if err != nil {
		return fmt.Errorf("%w: listening on input port: %v", contracts.ErrTransport, err)
	}

	c.stopListen = stop
	c.capturing = true
	c.logger.Info("wire capture started")
	return nil
}

// Stop halts capture, releases the ports and closes the driver.
func (c *Client) Stop() error {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.stopListen != nil {
			c.stopListen()
			c.stopListen = nil
		}
		c.capturing = false

		// Keep late callbacks from writing to the caller's channel.
		dummy := make(chan contracts.RawEvent)
		c.eventChannel.Store(dummy)

		midi.CloseDriver()
		c.logger.Info("wire client stopped")
	})
	return nil
}
