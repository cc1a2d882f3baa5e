// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package listener

import (
	"context"
	"fmt"

	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/luxfi/bridge"
)

// OpEvent carries a batch of events of one type.
const OpEvent bridge.OperationType = "onCacheEntryEvent"

// maxBatch bounds the event count of one batch on either side of the wire.
const maxBatch = 1 << 16

func encodeEvents(enc *bridge.Encoder, t EventType, events []Event) error {
	if len(events) > maxBatch {
		return fmt.Errorf("%w: batch of %d events exceeds %d", bridge.ErrIllegalArgument, len(events), maxBatch)
	}
	if err := enc.Encode(wrapperspb.String(t.String())); err != nil {
		return err
	}
	if err := enc.Encode(wrapperspb.UInt32(uint32(len(events)))); err != nil {
		return err
	}
	for _, e := range events {
		if e.Type != t {
			return fmt.Errorf("%w: %s event in %s batch", bridge.ErrIllegalArgument, e.Type, t)
		}
		if err := enc.EncodeValue(e.Key); err != nil {
			return err
		}
		if err := enc.EncodeValue(e.Value); err != nil {
			return err
		}
		if err := enc.EncodeValue(e.OldValue); err != nil {
			return err
		}
		if err := enc.Encode(wrapperspb.Bool(e.HasOldValue)); err != nil {
			return err
		}
	}
	return nil
}

func decodeEvents(dec *bridge.Decoder) (EventType, []Event, error) {
	var name wrapperspb.StringValue
	if err := dec.Decode(&name); err != nil {
		return 0, nil, err
	}
	t, err := ParseEventType(name.GetValue())
	if err != nil {
		return 0, nil, dec.Malformed(err)
	}
	var n wrapperspb.UInt32Value
	if err := dec.Decode(&n); err != nil {
		return 0, nil, err
	}
	if n.GetValue() > maxBatch {
		return 0, nil, dec.Malformed(fmt.Errorf("batch of %d events", n.GetValue()))
	}
	events := make([]Event, 0, n.GetValue())
	for i := uint32(0); i < n.GetValue(); i++ {
		e := Event{Type: t}
		if e.Key, err = dec.DecodeValue(); err != nil {
			return 0, nil, err
		}
		if e.Value, err = dec.DecodeValue(); err != nil {
			return 0, nil, err
		}
		if e.OldValue, err = dec.DecodeValue(); err != nil {
			return 0, nil, err
		}
		var hasOld wrapperspb.BoolValue
		if err := dec.Decode(&hasOld); err != nil {
			return 0, nil, err
		}
		e.HasOldValue = hasOld.GetValue()
		events = append(events, e)
	}
	return t, events, nil
}

// dispatch sends one batch of same-typed events.
type dispatch struct {
	t      EventType
	events []Event
}

// Dispatch returns the operation forwarding events of type t.
func Dispatch(t EventType, events []Event) bridge.Operation[struct{}] {
	return dispatch{t: t, events: events}
}

func (d dispatch) Type() bridge.OperationType { return OpEvent }

func (d dispatch) WriteRequest(enc *bridge.Encoder) error {
	return encodeEvents(enc, d.t, d.events)
}

func (d dispatch) ReadResponse(dec *bridge.Decoder) (struct{}, error) {
	return struct{}{}, dec.Decode(&emptypb.Empty{})
}

// RemoteListener implements every listener interface by forwarding the
// events to the listener registered with a bridge server.
type RemoteListener struct {
	client *bridge.Client
}

var (
	_ CreatedListener = (*RemoteListener)(nil)
	_ UpdatedListener = (*RemoteListener)(nil)
	_ RemovedListener = (*RemoteListener)(nil)
	_ ExpiredListener = (*RemoteListener)(nil)
)

func NewRemoteListener(c *bridge.Client) *RemoteListener {
	return &RemoteListener{client: c}
}

func (l *RemoteListener) forward(ctx context.Context, t EventType, events []Event) error {
	_, err := bridge.Invoke(ctx, l.client, Dispatch(t, events))
	return err
}

func (l *RemoteListener) OnCreated(ctx context.Context, events []Event) error {
	return l.forward(ctx, Created, events)
}

func (l *RemoteListener) OnUpdated(ctx context.Context, events []Event) error {
	return l.forward(ctx, Updated, events)
}

func (l *RemoteListener) OnRemoved(ctx context.Context, events []Event) error {
	return l.forward(ctx, Removed, events)
}

func (l *RemoteListener) OnExpired(ctx context.Context, events []Event) error {
	return l.forward(ctx, Expired, events)
}
