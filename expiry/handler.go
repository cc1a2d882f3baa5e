// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package expiry

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/luxfi/bridge"
)

// Registrar is satisfied by *bridge.Server.
type Registrar interface {
	AddOperationHandler(h bridge.Handler) error
}

// Handlers serves the three expiry operations from one swappable Policy.
// Each call loads the policy once, so a concurrent SetPolicy never splits a
// call across two delegates.
type Handlers struct {
	policy atomic.Pointer[policyRef]
}

type policyRef struct{ p Policy }

// NewHandlers returns handlers backed by p, which may be nil until SetPolicy.
func NewHandlers(p Policy) *Handlers {
	h := &Handlers{}
	h.SetPolicy(p)
	return h
}

// SetPolicy swaps the delegate and returns the previous one.
func (h *Handlers) SetPolicy(p Policy) Policy {
	old := h.policy.Swap(&policyRef{p: p})
	if old == nil {
		return nil
	}
	return old.p
}

// Policy returns the current delegate.
func (h *Handlers) Policy() Policy {
	if ref := h.policy.Load(); ref != nil {
		return ref.p
	}
	return nil
}

// Register adds all three handlers to r.
func (h *Handlers) Register(r Registrar) error {
	for _, op := range []bridge.OperationType{OpCreated, OpAccessed, OpModified} {
		if err := r.AddOperationHandler(h.Handler(op)); err != nil {
			return err
		}
	}
	return nil
}

// Handler returns the bridge handler for one of the expiry operation types.
func (h *Handlers) Handler(op bridge.OperationType) bridge.Handler {
	return bridge.HandlerFunc(op, func(ctx context.Context, req *bridge.Decoder, resp *bridge.Encoder) error {
		p := h.Policy()
		if p == nil {
			return fmt.Errorf("%w: no expiry policy set for %s", bridge.ErrNoDelegate, op)
		}
		key, err := req.DecodeValue()
		if err != nil {
			return err
		}
		var d *Duration
		switch op {
		case OpCreated:
			d, err = p.ExpiryForCreation(ctx, key)
		case OpAccessed:
			d, err = p.ExpiryForAccess(ctx, key)
		case OpModified:
			d, err = p.ExpiryForUpdate(ctx, key)
		default:
			return fmt.Errorf("%w: %s is not an expiry operation", bridge.ErrUnsupported, op)
		}
		if err != nil {
			return err
		}
		return encodeDuration(resp, d)
	})
}
