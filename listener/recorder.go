// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package listener

import (
	"context"
	"sync"
)

// Recorder is a listener for every event type that keeps what it receives.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) record(events []Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *Recorder) OnCreated(_ context.Context, events []Event) error { return r.record(events) }

func (r *Recorder) OnUpdated(_ context.Context, events []Event) error { return r.record(events) }

func (r *Recorder) OnRemoved(_ context.Context, events []Event) error { return r.record(events) }

func (r *Recorder) OnExpired(_ context.Context, events []Event) error { return r.record(events) }

// Events returns a copy of everything recorded, in arrival order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns how many events of type t were recorded.
func (r *Recorder) Count(t EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// Reset forgets all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
