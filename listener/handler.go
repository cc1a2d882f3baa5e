// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package listener

import (
	"context"
	"fmt"
	"sync/atomic"

	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/luxfi/bridge"
)

// Handler serves OpEvent from one swappable Listener.
type Handler struct {
	delegate atomic.Pointer[listenerRef]
}

type listenerRef struct{ l Listener }

var _ bridge.Handler = (*Handler)(nil)

// NewHandler returns a handler delivering to l. l may be nil until
// SetListener is called.
func NewHandler(l Listener) (*Handler, error) {
	h := &Handler{}
	if _, err := h.SetListener(l); err != nil {
		return nil, err
	}
	return h, nil
}

// SetListener swaps the delegate and returns the previous one. A non-nil l
// must implement at least one listener interface.
func (h *Handler) SetListener(l Listener) (Listener, error) {
	if l != nil && !validListener(l) {
		return nil, fmt.Errorf("%w: %T implements no listener interface", bridge.ErrIllegalArgument, l)
	}
	old := h.delegate.Swap(&listenerRef{l: l})
	if old == nil {
		return nil, nil
	}
	return old.l, nil
}

// Listener returns the current delegate.
func (h *Handler) Listener() Listener {
	if ref := h.delegate.Load(); ref != nil {
		return ref.l
	}
	return nil
}

func (h *Handler) Type() bridge.OperationType { return OpEvent }

func (h *Handler) Handle(ctx context.Context, req *bridge.Decoder, resp *bridge.Encoder) error {
	l := h.Listener()
	if l == nil {
		return fmt.Errorf("%w: no cache entry listener set", bridge.ErrNoDelegate)
	}
	t, events, err := decodeEvents(req)
	if err != nil {
		return err
	}
	if _, err := deliver(ctx, l, t, events); err != nil {
		return err
	}
	return resp.Encode(&emptypb.Empty{})
}
