// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type signalState uint8

const (
	signalPending signalState = iota
	signalCompleted
	signalFailed
)

func (s signalState) String() string {
	switch s {
	case signalPending:
		return "pending"
	case signalCompleted:
		return "completed"
	case signalFailed:
		return "failed"
	}
	return "unknown"
}

// CompletionSignal is a single-shot, multi-waiter completion primitive. It is
// completed or failed exactly once by one producer; any number of goroutines
// may wait on it. The zero value is a pending signal.
type CompletionSignal struct {
	mu    sync.Mutex
	done  chan struct{}
	state signalState
	cause error
}

// NewCompletionSignal returns a pending signal.
func NewCompletionSignal() *CompletionSignal {
	return &CompletionSignal{done: make(chan struct{})}
}

// doneCh must be called with mu held.
func (s *CompletionSignal) doneCh() chan struct{} {
	if s.done == nil {
		s.done = make(chan struct{})
	}
	return s.done
}

// Complete moves the signal to the completed state. It fails with
// ErrAlreadyDone if the signal is no longer pending.
func (s *CompletionSignal) Complete() error {
	return s.finish(signalCompleted, nil)
}

// Fail moves the signal to the failed state with cause. It fails with
// ErrAlreadyDone if the signal is no longer pending.
func (s *CompletionSignal) Fail(cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: nil failure cause", ErrIllegalArgument)
	}
	return s.finish(signalFailed, cause)
}

func (s *CompletionSignal) finish(to signalState, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != signalPending {
		return fmt.Errorf("%w: cannot move %s signal to %s", ErrAlreadyDone, s.state, to)
	}
	s.state = to
	s.cause = cause
	close(s.doneCh())
	return nil
}

// Cancel is not supported and always returns ErrUnsupported.
func (s *CompletionSignal) Cancel() error {
	return fmt.Errorf("%w: completion signals cannot be cancelled", ErrUnsupported)
}

// Done returns a channel closed once the signal is completed or failed.
func (s *CompletionSignal) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doneCh()
}

// IsDone reports whether the signal has reached a terminal state.
func (s *CompletionSignal) IsDone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != signalPending
}

// Err returns nil while pending or after completion, and the failure
// (wrapping ErrSignalFailed and the cause) after Fail.
func (s *CompletionSignal) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result()
}

func (s *CompletionSignal) result() error {
	if s.state == signalFailed {
		return fmt.Errorf("%w: %w", ErrSignalFailed, s.cause)
	}
	return nil
}

// Await blocks until the signal is completed or failed.
func (s *CompletionSignal) Await() error {
	<-s.Done()
	return s.Err()
}

// AwaitTimeout is Await bounded by timeout, returning ErrTimeout when the
// signal is still pending at the deadline. A timeout <= 0 checks the state
// without blocking.
func (s *CompletionSignal) AwaitTimeout(timeout time.Duration) error {
	return s.AwaitDeadline(time.Now().Add(timeout))
}

// AwaitDeadline is Await bounded by an absolute deadline, so a caller that
// waits in several steps keeps its original budget.
func (s *CompletionSignal) AwaitDeadline(deadline time.Time) error {
	done := s.Done()
	remaining := time.Until(deadline)
	if remaining <= 0 {
		select {
		case <-done:
			return s.Err()
		default:
			return fmt.Errorf("%w: signal still pending", ErrTimeout)
		}
	}
	t := time.NewTimer(remaining)
	defer t.Stop()
	select {
	case <-done:
		return s.Err()
	case <-t.C:
		// A transition racing the deadline still wins.
		if s.IsDone() {
			return s.Err()
		}
		return fmt.Errorf("%w: signal still pending at deadline", ErrTimeout)
	}
}

// AwaitContext blocks until the signal is done or ctx ends.
func (s *CompletionSignal) AwaitContext(ctx context.Context) error {
	select {
	case <-s.Done():
		return s.Err()
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
	}
}
