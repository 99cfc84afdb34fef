//go:build windows
// +build windows

package transportwindows

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/leandrodaf/midiclock/sdk/contracts"
	"golang.org/x/sys/windows"
)

// Type definitions for MIDI handles
type (
	HMIDIIN  windows.Handle
	HMIDIOUT windows.Handle
)

// Constants for callback flags
const (
	CALLBACK_FUNCTION = 0x00030000 // Indicates that the callback is a function
	MIDI_IO_STATUS    = 0x00000020 // MIDI input/output status
)

// Constants for MIDI message types
const (
	MIM_OPEN      = 0x3C1 // MIDI device opened
	MIM_CLOSE     = 0x3C2 // MIDI device closed
	MIM_DATA      = 0x3C3 // MIDI data received
	MIM_ERROR     = 0x3C5 // MIDI error
	MIM_LONGERROR = 0x3C6 // Long MIDI error
	MIM_MOREDATA  = 0x3CC // More MIDI data available
)

// Struct representing MIDI input device capabilities
type midiInCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	dwSupport      uint32
}

// Client manages realtime MIDI traffic through winmm.
type Client struct {
	logger       contracts.Logger
	eventChannel atomic.Value
	inHandle     HMIDIIN
	outHandle    HMIDIOUT
	inOpen       bool
	outOpen      bool
	capturing    bool
	mu           sync.Mutex
	callback     uintptr
}

// Load the winmm.dll library and required functions
var (
	winmm                 = windows.NewLazySystemDLL("winmm.dll")
	procMidiInGetNumDevs  = winmm.NewProc("midiInGetNumDevs")
	procMidiInGetDevCaps  = winmm.NewProc("midiInGetDevCapsW")
	procMidiInOpen        = winmm.NewProc("midiInOpen")
	procMidiInStart       = winmm.NewProc("midiInStart")
	procMidiInStop        = winmm.NewProc("midiInStop")
	procMidiInClose       = winmm.NewProc("midiInClose")
	procMidiOutGetNumDevs = winmm.NewProc("midiOutGetNumDevs")
	procMidiOutOpen       = winmm.NewProc("midiOutOpen")
	procMidiOutShortMsg   = winmm.NewProc("midiOutShortMsg")
	procMidiOutClose      = winmm.NewProc("midiOutClose")
)

// NewWireClient creates a winmm-backed wire client.
func NewWireClient(options *contracts.ClientOptions) (contracts.WireClient, error) {
	options.Logger.Info("wire client created",
		options.Logger.Field().String("driver", "winmm"))
	return &Client{logger: options.Logger}, nil
}

// ListDevices lists MIDI ports by index. A device at index i is the output
// device i for sending and the input device i for capture, where each exists.
func (c *Client) ListDevices() ([]contracts.DeviceInfo, error) {
	r0, _, _ := procMidiInGetNumDevs.Call()
	numIn := uint32(r0)
	r0, _, _ = procMidiOutGetNumDevs.Call()
	numOut := uint32(r0)

	n := numIn
	if numOut > n {
		n = numOut
	}
	if n == 0 {
		c.logger.Warn("no MIDI devices found")
		return nil, errors.New("no MIDI devices found")
	}

	devices := make([]contracts.DeviceInfo, n)
	for i := uint32(0); i < n; i++ {
		if i < numIn {
			var caps midiInCaps
			r1, _, _ := procMidiInGetDevCaps.Call(
				uintptr(i),
				uintptr(unsafe.Pointer(&caps)),
				unsafe.Sizeof(caps),
			)
			if r1 != 0 {
				c.logger.Warn(fmt.Sprintf("Failed to get information for MIDI device %d", i))
				continue
			}
			deviceName := windows.UTF16ToString(caps.szPname[:])
			devices[i] = contracts.DeviceInfo{
				Name:         deviceName,
				EntityName:   deviceName,
				Manufacturer: fmt.Sprintf("MID: %d PID: %d", caps.wMid, caps.wPid),
			}
		} else {
			devices[i] = contracts.DeviceInfo{Name: fmt.Sprintf("output device %d", i)}
		}
	}
	return devices, nil
}

// SelectDevice binds the client to the numbered device in each direction it
// exists: the output device for Send, the input device for StartCapture.
func (c *Client) SelectDevice(deviceID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	r0, _, _ := procMidiInGetNumDevs.Call()
	numIn := int(r0)
	r0, _, _ = procMidiOutGetNumDevs.Call()
	numOut := int(r0)
	if deviceID < 0 || (deviceID >= numIn && deviceID >= numOut) {
		return fmt.Errorf("invalid device index: %d", deviceID)
	}

	if c.inOpen || c.outOpen {
		if err := c.closeHandles(); err != nil {
			return fmt.Errorf("failed to close previous MIDI device: %w", err)
		}
	}

	if deviceID < numOut {
		r1, _, err := procMidiOutOpen.Call(
			uintptr(unsafe.Pointer(&c.outHandle)),
			uintptr(deviceID),
			0,
			0,
			0,
		)
		if r1 != 0 {
			c.logger.Error(fmt.Sprintf("Failed to open MIDI output device %d: %v", deviceID, err))
			return fmt.Errorf("failed to open MIDI output device %d: %v", deviceID, err)
		}
		c.outOpen = true
	}

	if deviceID < numIn {
		c.callback = windows.NewCallback(midiInCallback)
		fdwOpen := CALLBACK_FUNCTION | MIDI_IO_STATUS

		r1, _, err := procMidiInOpen.Call(
			uintptr(unsafe.Pointer(&c.inHandle)),
			uintptr(deviceID),
			c.callback,
			uintptr(unsafe.Pointer(c)),
			uintptr(fdwOpen),
		)
		if r1 != 0 {
			c.logger.Error(fmt.Sprintf("Failed to open MIDI input device %d: %v", deviceID, err))
			return fmt.Errorf("failed to open MIDI input device %d: %v", deviceID, err)
		}
		c.inOpen = true
	}

	c.logger.Info(fmt.Sprintf("MIDI device %d connected", deviceID))
	return nil
}

// Send emits one realtime status byte on the open output device.
func (c *Client) Send(cmd contracts.RealtimeCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.outOpen {
		return fmt.Errorf("%w: no output device open", contracts.ErrTransport)
	}
	// Realtime messages carry no data bytes; the status byte is the message.
	r1, _, err := procMidiOutShortMsg.Call(uintptr(c.outHandle), uintptr(cmd))
	if r1 != 0 {
		return fmt.Errorf("%w: midiOutShortMsg: %v", contracts.ErrTransport, err)
	}
	return nil
}

// StartCapture begins delivering captured wire messages to the channel.
func (c *Client) StartCapture(eventChannel chan contracts.RawEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.inOpen {
		return fmt.Errorf("%w: no input device open", contracts.ErrTransport)
	}
	if c.capturing {
		c.logger.Warn("capture already started")
		return nil
	}

	c.eventChannel.Store(eventChannel)
	r1, _, err := procMidiInStart.Call(uintptr(c.inHandle))
	if r1 != 0 {
		return fmt.Errorf("%w: midiInStart: %v", contracts.ErrTransport, err)
	}

	c.capturing = true
	c.logger.Info("wire capture started")
	return nil
}

// midiInCallback processes incoming MIDI messages.
func midiInCallback(hMidiIn uintptr, wMsg uint32, dwInstance uintptr, dwParam1 uintptr, dwParam2 uintptr) uintptr {
	c := (*Client)(unsafe.Pointer(dwInstance))

	switch wMsg {
	case MIM_OPEN:
		c.logger.Info("MIDI device opened")
	case MIM_CLOSE:
		c.logger.Info("MIDI device closed")
	case MIM_DATA:
		status := byte(dwParam1 & 0xFF)
		raw := contracts.RawEvent{
			Status:    status,
			Timestamp: uint64(time.Now().UTC().UnixNano()),
		}
		if ch, ok := c.eventChannel.Load().(chan contracts.RawEvent); ok && ch != nil {
			select {
			case ch <- raw:
			default:
				c.logger.Warn("event buffer full; dropping wire message")
			}
		}
	case MIM_ERROR, MIM_LONGERROR:
		c.logger.Error(fmt.Sprintf("MIDI error: msg=0x%X", wMsg))
	case MIM_MOREDATA:
		c.logger.Debug("Received MIM_MOREDATA message; ignored")
	default:
		c.logger.Warn(fmt.Sprintf("Unknown MIDI message: 0x%X", wMsg))
	}

	return 0
}

// Stop terminates capture and closes the open devices.
func (c *Client) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.inOpen && !c.outOpen {
		c.logger.Warn("no MIDI device is connected")
		return nil
	}
	if err := c.closeHandles(); err != nil {
		return fmt.Errorf("failed to stop wire client: %w", err)
	}
	c.logger.Info("wire client stopped")
	return nil
}

// closeHandles stops capture and releases both directions.
func (c *Client) closeHandles() error {
	if c.inOpen {
		if c.capturing {
			if r1, _, err := procMidiInStop.Call(uintptr(c.inHandle)); r1 != 0 {
				c.logger.Error(fmt.Sprintf("Failed to stop MIDI capture: %v", err))
				return fmt.Errorf("midiInStop: %v", err)
			}
			c.capturing = false
		}
		if r1, _, err := procMidiInClose.Call(uintptr(c.inHandle)); r1 != 0 {
			c.logger.Error(fmt.Sprintf("Failed to close MIDI input device: %v", err))
			return fmt.Errorf("midiInClose: %v", err)
		}
		c.inHandle = 0
		c.inOpen = false
	}
	if c.outOpen {
		if r1, _, err := procMidiOutClose.Call(uintptr(c.outHandle)); r1 != 0 {
			c.logger.Error(fmt.Sprintf("Failed to close MIDI output device: %v", err))
			return fmt.Errorf("midiOutClose: %v", err)
		}
		c.outHandle = 0
		c.outOpen = false
	}
	c.eventChannel.Store((chan contracts.RawEvent)(nil))
	return nil
}
