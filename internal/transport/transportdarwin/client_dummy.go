//go:build !darwin
// +build !darwin

package transportdarwin

import (
	"fmt"

	"github.com/leandrodaf/midiclock/sdk/contracts"
)

type dummyWireClient struct {
	logger contracts.Logger
}

// NewWireClient initializes a dummy wire client for non-macOS systems.
func NewWireClient(options *contracts.ClientOptions) (contracts.WireClient, error) {
	options.Logger.Info("Using dummy wire client for non-macOS system")
	return &dummyWireClient{logger: options.Logger}, nil
}

func (c *dummyWireClient) ListDevices() ([]contracts.DeviceInfo, error) {
	c.logger.Warn("ListDevices called on dummy wire client")
	return nil, fmt.Errorf("CoreMIDI is not available on this platform")
}

func (c *dummyWireClient) SelectDevice(deviceID int) error {
	c.logger.Warn("SelectDevice called on dummy wire client")
	return fmt.Errorf("CoreMIDI is not available on this platform")
}

func (c *dummyWireClient) Send(cmd contracts.RealtimeCommand) error {
	c.logger.Warn("Send called on dummy wire client")
	return fmt.Errorf("CoreMIDI is not available on this platform")
}

func (c *dummyWireClient) StartCapture(eventChannel chan contracts.RawEvent) error {
	c.logger.Warn("StartCapture called on dummy wire client")
	return fmt.Errorf("CoreMIDI is not available on this platform")
}

func (c *dummyWireClient) Stop() error {
	c.logger.Warn("Stop called on dummy wire client")
	return nil
}
