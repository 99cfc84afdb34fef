// Package transport adapts wire clients to the contracts the clock core
// consumes: an event sink for the dispatch queue and a polled event source
// for the analyzer.
package transport

import (
	"fmt"
	"time"

	"github.com/leandrodaf/midiclock/sdk/contracts"
)

// WireSink forwards due transport events to a wire client as realtime status
// bytes. Kinds with no wire representation are dropped silently.
type WireSink struct {
	Client contracts.WireClient
}

// Dispatch implements the dispatch queue's sink.
func (s WireSink) Dispatch(ev contracts.TransportEvent) error {
	cmd, ok := ev.Kind.Command()
	if !ok {
		return nil
	}
	return s.Client.Send(cmd)
}

// ChannelSource adapts a wire capture channel to the polled EventSource
// contract. Non-transport traffic on the channel is skipped.
type ChannelSource struct {
	events <-chan contracts.RawEvent
}

// NewChannelSource wraps the channel a wire client captures into.
func NewChannelSource(events <-chan contracts.RawEvent) *ChannelSource {
	return &ChannelSource{events: events}
}

// ReceiveNext returns the next transport event and its arrival time, or
// ErrWouldBlock once the timeout elapses. A closed capture channel is a
// transport failure.
func (s *ChannelSource) ReceiveNext(timeout time.Duration) (contracts.TransportEvent, time.Time, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case raw, ok := <-s.events:
			if !ok {
				return contracts.TransportEvent{}, time.Time{}, fmt.Errorf("%w: capture channel closed", contracts.ErrTransport)
			}
			kind, known := contracts.KindOf(contracts.RealtimeCommand(raw.Status))
			if !known {
				continue
			}
			return contracts.TransportEvent{Kind: kind}, time.Unix(0, int64(raw.Timestamp)), nil
		case <-deadline.C:
			return contracts.TransportEvent{}, time.Time{}, contracts.ErrWouldBlock
		}
	}
}
