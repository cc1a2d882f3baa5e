// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package listener

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/luxfi/bridge"
)

func serve(t *testing.T, h *Handler) *RemoteListener {
	t.Helper()
	srv, err := bridge.Listen("127.0.0.1:0", bridge.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	require.NoError(t, srv.AddOperationHandler(h))
	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background()) }()
	t.Cleanup(func() {
		assert.NoError(t, srv.Close())
		assert.NoError(t, <-done)
	})

	c, err := bridge.Dial(srv.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return NewRemoteListener(c)
}

func TestForwardEvents(t *testing.T) {
	ctx := context.Background()
	rec := &Recorder{}
	h, err := NewHandler(rec)
	require.NoError(t, err)
	remote := serve(t, h)

	require.NoError(t, remote.OnCreated(ctx, []Event{
		{Type: Created, Key: 1, Value: "one"},
		{Type: Created, Key: 2, Value: "two"},
	}))
	require.NoError(t, remote.OnUpdated(ctx, []Event{
		{Type: Updated, Key: 1, Value: "uno", OldValue: "one", HasOldValue: true},
	}))
	require.NoError(t, remote.OnRemoved(ctx, []Event{{Type: Removed, Key: 2}}))
	require.NoError(t, remote.OnExpired(ctx, nil))

	assert.Equal(t, []Event{
		{Type: Created, Key: int64(1), Value: "one"},
		{Type: Created, Key: int64(2), Value: "two"},
		{Type: Updated, Key: int64(1), Value: "uno", OldValue: "one", HasOldValue: true},
		{Type: Removed, Key: int64(2)},
	}, rec.Events())
	assert.Equal(t, 2, rec.Count(Created))
	assert.Zero(t, rec.Count(Expired))

	rec.Reset()
	assert.Empty(t, rec.Events())
}

// justCreated listens for creations and nothing else.
type justCreated struct{ rec *Recorder }

func (j justCreated) OnCreated(ctx context.Context, events []Event) error {
	return j.rec.OnCreated(ctx, events)
}

func TestUnlistenedTypeIgnored(t *testing.T) {
	ctx := context.Background()
	rec := &Recorder{}
	h, err := NewHandler(justCreated{rec: rec})
	require.NoError(t, err)
	remote := serve(t, h)

	require.NoError(t, remote.OnExpired(ctx, []Event{{Type: Expired, Key: "k"}}))
	require.NoError(t, remote.OnCreated(ctx, []Event{{Type: Created, Key: "k"}}))
	assert.Equal(t, []Event{{Type: Created, Key: "k"}}, rec.Events())
}

func TestInvalidListener(t *testing.T) {
	_, err := NewHandler(struct{}{})
	require.ErrorIs(t, err, bridge.ErrIllegalArgument)

	h, err := NewHandler(nil)
	require.NoError(t, err)
	_, err = h.SetListener("not a listener")
	require.ErrorIs(t, err, bridge.ErrIllegalArgument)
	assert.Nil(t, h.Listener(), "a rejected listener is not installed")
}

func TestNoListener(t *testing.T) {
	ctx := context.Background()
	h, err := NewHandler(nil)
	require.NoError(t, err)
	remote := serve(t, h)

	err = remote.OnCreated(ctx, []Event{{Type: Created, Key: "k"}})
	require.ErrorIs(t, err, bridge.ErrNoDelegate)

	rec := &Recorder{}
	old, err := h.SetListener(rec)
	require.NoError(t, err)
	assert.Nil(t, old)
	require.NoError(t, remote.OnCreated(ctx, []Event{{Type: Created, Key: "k"}}))
	assert.Equal(t, 1, rec.Count(Created))
}

type failingListener struct{}

var errListener = errors.New("listener rejected batch")

func (failingListener) OnRemoved(context.Context, []Event) error { return errListener }

func TestListenerError(t *testing.T) {
	ctx := context.Background()
	h, err := NewHandler(failingListener{})
	require.NoError(t, err)
	remote := serve(t, h)

	err = remote.OnRemoved(ctx, []Event{{Type: Removed, Key: "k"}})
	var re *bridge.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Contains(t, re.Message, errListener.Error())
	assert.False(t, re.IsProtocol())
}

func TestMixedBatchRejected(t *testing.T) {
	var enc bridge.Encoder
	err := encodeEvents(&enc, Created, []Event{{Type: Removed}})
	require.ErrorIs(t, err, bridge.ErrIllegalArgument)
}

func TestOversizedBatchRejected(t *testing.T) {
	h, err := NewHandler(&Recorder{})
	require.NoError(t, err)
	remote := serve(t, h)

	events := make([]Event, maxBatch+1)
	for i := range events {
		events[i].Type = Expired
	}
	err = remote.OnExpired(context.Background(), events)
	require.ErrorIs(t, err, bridge.ErrIllegalArgument)
	var re *bridge.RemoteError
	assert.False(t, errors.As(err, &re), "rejected before reaching the server")

	// A full batch still goes through on the same connection.
	require.NoError(t, remote.OnExpired(context.Background(), events[:maxBatch]))
	assert.Equal(t, maxBatch, h.Listener().(*Recorder).Count(Expired))
}

func TestParseEventType(t *testing.T) {
	for _, et := range []EventType{Created, Updated, Removed, Expired} {
		got, err := ParseEventType(et.String())
		require.NoError(t, err)
		assert.Equal(t, et, got)
	}
	_, err := ParseEventType("evicted")
	require.ErrorIs(t, err, bridge.ErrIllegalArgument)
	assert.Equal(t, "EventType(7)", EventType(7).String())
}
