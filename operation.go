// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// OperationType names one kind of remote call. Client and server must agree
// on the exact string.
type OperationType string

func (t OperationType) String() string { return string(t) }

// Operation is one client-side call. A new value is created per Invoke and
// carries the request parameters.
type Operation[T any] interface {
	// Type returns the tag sent ahead of the request.
	Type() OperationType

	// WriteRequest encodes the request parameters.
	WriteRequest(enc *Encoder) error

	// ReadResponse decodes a successful response.
	ReadResponse(dec *Decoder) (T, error)
}

// Handler is the server-side counterpart of an Operation, bound to exactly
// one OperationType for the lifetime of a Server.
type Handler interface {
	Type() OperationType

	// Handle decodes the request from req and encodes the result into resp.
	// A returned error is marshalled back to the caller in place of resp.
	Handle(ctx context.Context, req *Decoder, resp *Encoder) error
}

// HandlerFunc adapts a function to a Handler for the given type.
func HandlerFunc(t OperationType, fn func(ctx context.Context, req *Decoder, resp *Encoder) error) Handler {
	return &funcHandler{t: t, fn: fn}
}

type funcHandler struct {
	t  OperationType
	fn func(ctx context.Context, req *Decoder, resp *Encoder) error
}

func (h *funcHandler) Type() OperationType { return h.t }

func (h *funcHandler) Handle(ctx context.Context, req *Decoder, resp *Encoder) error {
	return h.fn(ctx, req, resp)
}

// Registry maps operation types to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[OperationType]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[OperationType]Handler)}
}

// Add registers h under h.Type(). Registering a second handler for the same
// type fails with ErrDuplicateHandler and leaves the first in place.
func (r *Registry) Add(h Handler) error {
	if h == nil {
		return fmt.Errorf("%w: nil handler", ErrIllegalArgument)
	}
	t := h.Type()
	if t == "" {
		return fmt.Errorf("%w: empty operation type", ErrIllegalArgument)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[t]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, t)
	}
	r.handlers[t] = h
	return nil
}

// Lookup returns the handler registered for t.
func (r *Registry) Lookup(t OperationType) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[t]
	return h, ok
}

// Types returns the registered operation types in sorted order.
func (r *Registry) Types() []OperationType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]OperationType, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
