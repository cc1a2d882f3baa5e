// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControlOperations(t *testing.T) {
	srv := startServer(t, echoHandler(), failingHandler("alpha", ErrUnsupported))
	ts := httptest.NewServer(srv.ControlHandler())
	defer ts.Close()

	var reply OperationsReply
	require.NoError(t, CallControl(context.Background(), ts.URL, "Bridge.Operations", &NoArgs{}, &reply))
	assert.Equal(t, []string{"alpha", "echo"}, reply.Operations)
}

func TestControlStats(t *testing.T) {
	ctx := context.Background()
	srv := startServer(t, echoHandler())
	client := dialServer(t, srv)
	_, err := Invoke(ctx, client, echo{v: 1})
	require.NoError(t, err)
	_, err = Invoke(ctx, client, echo{op: "missing"})
	require.ErrorIs(t, err, ErrProtocol)

	ts := httptest.NewServer(srv.ControlHandler())
	defer ts.Close()

	var reply StatsReply
	require.NoError(t, CallControl(ctx, ts.URL, "Bridge.Stats", &NoArgs{}, &reply))
	assert.Equal(t, srv.Addr(), reply.Addr)
	assert.Equal(t, int64(2), reply.Stats.Requests)
	assert.Equal(t, int64(1), reply.Stats.ProtocolErrors)
}

func TestControlUnknownMethod(t *testing.T) {
	srv := startServer(t)
	ts := httptest.NewServer(srv.ControlHandler())
	defer ts.Close()

	var reply StatsReply
	require.Error(t, CallControl(context.Background(), ts.URL, "Bridge.Nope", &NoArgs{}, &reply))
}
