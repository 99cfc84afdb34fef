package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/leandrodaf/midiclock/sdk/contracts"
)

func TestChannelSource_DecodesTransportBytes(t *testing.T) {
	cases := []struct {
		status byte
		want   contracts.EventKind
	}{
		{0xFA, contracts.EventStart},
		{0xFC, contracts.EventStop},
		{0xFB, contracts.EventContinue},
		{0xF8, contracts.EventClock},
	}

	for _, tc := range cases {
		ch := make(chan contracts.RawEvent, 1)
		at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		ch <- contracts.RawEvent{Status: tc.status, Timestamp: uint64(at.UnixNano())}

		ev, arrival, err := NewChannelSource(ch).ReceiveNext(time.Second)
		if err != nil {
			t.Fatalf("status 0x%X: unexpected error %v", tc.status, err)
		}
		if ev.Kind != tc.want {
			t.Errorf("status 0x%X decoded as %s, want %s", tc.status, ev.Kind, tc.want)
		}
		if !arrival.Equal(at) {
			t.Errorf("status 0x%X arrival = %v, want %v", tc.status, arrival, at)
		}
	}
}

func TestChannelSource_SkipsNonTransportTraffic(t *testing.T) {
	ch := make(chan contracts.RawEvent, 2)
	ch <- contracts.RawEvent{Status: 0x90} // note on, not transport
	ch <- contracts.RawEvent{Status: 0xF8}

	ev, _, err := NewChannelSource(ch).ReceiveNext(time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Kind != contracts.EventClock {
		t.Errorf("got %s, want clock", ev.Kind)
	}
}

func TestChannelSource_TimeoutIsWouldBlock(t *testing.T) {
	ch := make(chan contracts.RawEvent)
	_, _, err := NewChannelSource(ch).ReceiveNext(10 * time.Millisecond)
	if !errors.Is(err, contracts.ErrWouldBlock) {
		t.Errorf("err = %v, want ErrWouldBlock", err)
	}
}

func TestChannelSource_ClosedChannelIsTransportError(t *testing.T) {
	ch := make(chan contracts.RawEvent)
	close(ch)
	_, _, err := NewChannelSource(ch).ReceiveNext(time.Second)
	if !errors.Is(err, contracts.ErrTransport) {
		t.Errorf("err = %v, want ErrTransport", err)
	}
}

type fakeWire struct {
	sent []contracts.RealtimeCommand
}

func (f *fakeWire) Stop() error { return nil }
func (f *fakeWire) ListDevices() ([]contracts.DeviceInfo, error) { return nil, nil }
func (f *fakeWire) SelectDevice(int) error { return nil }
func (f *fakeWire) StartCapture(chan contracts.RawEvent) error { return nil }
func (f *fakeWire) Send(cmd contracts.RealtimeCommand) error {
	f.sent = append(f.sent, cmd)
	return nil
}

func TestWireSink_TempoChangeStaysLocal(t *testing.T) {
	wire := &fakeWire{}
	sink := WireSink{Client: wire}

	events := []contracts.TransportEvent{
		{Kind: contracts.EventStart},
		{Kind: contracts.EventClock},
		{Kind: contracts.EventTempoChange, MicrosPerBeat: 1000000},
		{Kind: contracts.EventStop},
	}
	for _, ev := range events {
		if err := sink.Dispatch(ev); err != nil {
			t.Fatal(err)
		}
	}

	want := []contracts.RealtimeCommand{contracts.StartCmd, contracts.ClockCmd, contracts.StopCmd}
	if len(wire.sent) != len(want) {
		t.Fatalf("sent %v, want %v", wire.sent, want)
	}
	for i := range want {
		if wire.sent[i] != want[i] {
			t.Errorf("sent[%d] = 0x%X, want 0x%X", i, wire.sent[i], want[i])
		}
	}
}
