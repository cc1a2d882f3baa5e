// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package expiry

import (
	"context"

	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/luxfi/bridge"
)

// Operation types served by Handlers.
const (
	OpCreated  bridge.OperationType = "getExpiryForCreatedEntry"
	OpAccessed bridge.OperationType = "getExpiryForAccessedEntry"
	OpModified bridge.OperationType = "getExpiryForModifiedEntry"
)

const eternalUnit = "ETERNAL"

// encodeDuration writes d as a unit name and an amount. A nil d is written as
// an empty unit.
func encodeDuration(enc *bridge.Encoder, d *Duration) error {
	unit, amount := "", int64(0)
	switch {
	case d == nil:
	case d.IsEternal():
		unit = eternalUnit
	default:
		unit, amount = d.Unit.String(), d.Amount
	}
	if err := enc.Encode(wrapperspb.String(unit)); err != nil {
		return err
	}
	return enc.Encode(wrapperspb.Int64(amount))
}

func decodeDuration(dec *bridge.Decoder) (*Duration, error) {
	var unit wrapperspb.StringValue
	var amount wrapperspb.Int64Value
	if err := dec.Decode(&unit); err != nil {
		return nil, err
	}
	if err := dec.Decode(&amount); err != nil {
		return nil, err
	}
	switch unit.GetValue() {
	case "":
		return nil, nil
	case eternalUnit:
		d := Eternal
		return &d, nil
	}
	u, err := ParseTimeUnit(unit.GetValue())
	if err != nil {
		return nil, dec.Malformed(err)
	}
	d, err := NewDuration(u, amount.GetValue())
	if err != nil {
		return nil, dec.Malformed(err)
	}
	return &d, nil
}

// request asks the remote policy for the expiry of one key.
type request struct {
	op  bridge.OperationType
	key any
}

// ForCreatedEntry asks for the expiry of a newly created entry.
func ForCreatedEntry(key any) bridge.Operation[*Duration] {
	return request{op: OpCreated, key: key}
}

// ForAccessedEntry asks for the expiry of an entry that was read.
func ForAccessedEntry(key any) bridge.Operation[*Duration] {
	return request{op: OpAccessed, key: key}
}

// ForModifiedEntry asks for the expiry of an entry that was updated.
func ForModifiedEntry(key any) bridge.Operation[*Duration] {
	return request{op: OpModified, key: key}
}

func (r request) Type() bridge.OperationType { return r.op }

func (r request) WriteRequest(enc *bridge.Encoder) error {
	return enc.EncodeValue(r.key)
}

func (r request) ReadResponse(dec *bridge.Decoder) (*Duration, error) {
	return decodeDuration(dec)
}

// RemotePolicy is a Policy whose answers come from a Policy registered with a
// bridge server in another process.
type RemotePolicy struct {
	client *bridge.Client
}

var _ Policy = (*RemotePolicy)(nil)

func NewRemotePolicy(c *bridge.Client) *RemotePolicy {
	return &RemotePolicy{client: c}
}

func (p *RemotePolicy) ExpiryForCreation(ctx context.Context, key any) (*Duration, error) {
	return bridge.Invoke(ctx, p.client, ForCreatedEntry(key))
}

func (p *RemotePolicy) ExpiryForAccess(ctx context.Context, key any) (*Duration, error) {
	return bridge.Invoke(ctx, p.client, ForAccessedEntry(key))
}

func (p *RemotePolicy) ExpiryForUpdate(ctx context.Context, key any) (*Duration, error) {
	return bridge.Invoke(ctx, p.client, ForModifiedEntry(key))
}
