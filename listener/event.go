// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package listener forwards cache entry lifecycle events from the process
// that mutates a cache to a listener living in another process.
package listener

import (
	"context"
	"fmt"
	"strings"

	"github.com/luxfi/bridge"
)

// EventType is the lifecycle transition an Event reports.
type EventType int

const (
	Created EventType = iota
	Updated
	Removed
	Expired
)

var eventNames = [...]string{
	Created: "CREATED",
	Updated: "UPDATED",
	Removed: "REMOVED",
	Expired: "EXPIRED",
}

func (t EventType) String() string {
	if t < Created || t > Expired {
		return fmt.Sprintf("EventType(%d)", int(t))
	}
	return eventNames[t]
}

// ParseEventType parses an event type name (case-insensitive).
func ParseEventType(s string) (EventType, error) {
	for t, name := range eventNames {
		if strings.EqualFold(s, name) {
			return EventType(t), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown event type %q", bridge.ErrIllegalArgument, s)
}

// Event is one entry transition.
type Event struct {
	Type        EventType
	Key         any
	Value       any
	OldValue    any
	HasOldValue bool
}

// Listener is any value implementing one or more of CreatedListener,
// UpdatedListener, RemovedListener and ExpiredListener. Events of a type the
// listener does not implement are dropped.
type Listener any

type CreatedListener interface {
	OnCreated(ctx context.Context, events []Event) error
}

type UpdatedListener interface {
	OnUpdated(ctx context.Context, events []Event) error
}

type RemovedListener interface {
	OnRemoved(ctx context.Context, events []Event) error
}

type ExpiredListener interface {
	OnExpired(ctx context.Context, events []Event) error
}

// validListener reports whether l implements at least one listener interface.
func validListener(l Listener) bool {
	switch l.(type) {
	case CreatedListener, UpdatedListener, RemovedListener, ExpiredListener:
		return true
	}
	return false
}

// deliver hands events of type t to l. ok is false when l does not listen
// for t.
func deliver(ctx context.Context, l Listener, t EventType, events []Event) (bool, error) {
	switch t {
	case Created:
		if cl, ok := l.(CreatedListener); ok {
			return true, cl.OnCreated(ctx, events)
		}
	case Updated:
		if ul, ok := l.(UpdatedListener); ok {
			return true, ul.OnUpdated(ctx, events)
		}
	case Removed:
		if rl, ok := l.(RemovedListener); ok {
			return true, rl.OnRemoved(ctx, events)
		}
	case Expired:
		if el, ok := l.(ExpiredListener); ok {
			return true, el.OnExpired(ctx, events)
		}
	default:
		return false, fmt.Errorf("%w: %s", bridge.ErrIllegalArgument, t)
	}
	return false, nil
}
