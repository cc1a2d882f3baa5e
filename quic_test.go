// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestQUICRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	srv, err := Listen("127.0.0.1:0",
		WithServerTransport(TransportQUIC),
		WithLogger(zaptest.NewLogger(t)),
	)
	require.NoError(t, err)
	require.NoError(t, srv.AddOperationHandler(echoHandler()))
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		assert.NoError(t, srv.Close())
		assert.NoError(t, <-done)
	})

	client := dialServer(t, srv, WithTransport(TransportQUIC))
	for _, v := range []any{"over quic", int64(7)} {
		got, err := Invoke(ctx, client, echo{v: v})
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}

	_, err = Invoke(ctx, client, echo{op: "missing"})
	require.ErrorIs(t, err, ErrProtocol)

	// The protocol error dropped the stream; the next call opens a new one.
	got, err := Invoke(ctx, client, echo{v: "again"})
	require.NoError(t, err)
	assert.Equal(t, "again", got)
	assert.Equal(t, int64(2), srv.Stats().AcceptedConnections)
}

func TestSelfSignedTLS(t *testing.T) {
	c, err := SelfSignedTLS()
	require.NoError(t, err)
	require.Len(t, c.Certificates, 1)
	assert.Contains(t, withALPN(c).NextProtos, alpn)
	assert.Len(t, withALPN(c).NextProtos, 1)
}
