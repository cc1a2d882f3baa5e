// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package expiry bridges expiry-policy callbacks: a cache in one process asks
// a policy living in another process how long an entry should live.
package expiry

import (
	"context"
	"sync/atomic"
)

// Policy computes entry lifetimes. A nil *Duration means "leave the current
// expiry unchanged".
type Policy interface {
	ExpiryForCreation(ctx context.Context, key any) (*Duration, error)
	ExpiryForAccess(ctx context.Context, key any) (*Duration, error)
	ExpiryForUpdate(ctx context.Context, key any) (*Duration, error)
}

// FixedPolicy answers with the same durations for every key.
type FixedPolicy struct {
	Created  *Duration
	Accessed *Duration
	Modified *Duration
}

// NewFixedPolicy returns a policy that answers created for every creation and
// leaves access and update expiry unchanged.
func NewFixedPolicy(created Duration) *FixedPolicy {
	return &FixedPolicy{Created: &created}
}

func (p *FixedPolicy) ExpiryForCreation(context.Context, any) (*Duration, error) {
	return p.Created, nil
}

func (p *FixedPolicy) ExpiryForAccess(context.Context, any) (*Duration, error) {
	return p.Accessed, nil
}

func (p *FixedPolicy) ExpiryForUpdate(context.Context, any) (*Duration, error) {
	return p.Modified, nil
}

// CountingPolicy wraps a Policy and counts how often each callback ran.
type CountingPolicy struct {
	Policy

	created  atomic.Int64
	accessed atomic.Int64
	modified atomic.Int64
}

func NewCountingPolicy(p Policy) *CountingPolicy {
	return &CountingPolicy{Policy: p}
}

func (p *CountingPolicy) ExpiryForCreation(ctx context.Context, key any) (*Duration, error) {
	p.created.Add(1)
	return p.Policy.ExpiryForCreation(ctx, key)
}

func (p *CountingPolicy) ExpiryForAccess(ctx context.Context, key any) (*Duration, error) {
	p.accessed.Add(1)
	return p.Policy.ExpiryForAccess(ctx, key)
}

func (p *CountingPolicy) ExpiryForUpdate(ctx context.Context, key any) (*Duration, error) {
	p.modified.Add(1)
	return p.Policy.ExpiryForUpdate(ctx, key)
}

// Counts returns the number of creation, access and update calls.
func (p *CountingPolicy) Counts() (created, accessed, modified int64) {
	return p.created.Load(), p.accessed.Load(), p.modified.Load()
}

// ResetCounts zeroes the counters.
func (p *CountingPolicy) ResetCounts() {
	p.created.Store(0)
	p.accessed.Store(0)
	p.modified.Store(0)
}
