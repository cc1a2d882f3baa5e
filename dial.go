// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"context"
	"fmt"
	"io"
	"net"
)

// Dial returns a Client for addr. The connection is established lazily by
// the first Invoke; Dial only validates the transport choice.
func Dial(addr string, opts ...DialOption) (*Client, error) {
	o := newDialOptions(opts)
	t, ok := lookupTransport(o.transport)
	if !ok {
		return nil, fmt.Errorf("unknown transport: %s", o.transport)
	}
	return &Client{
		addr: addr,
		dial: t.dial,
		opts: o,
		log:  o.log,
	}, nil
}

// Listen binds addr using the configured transport and returns a Server ready
// to have handlers added and Serve called.
func Listen(addr string, opts ...ServerOption) (*Server, error) {
	o := newServerOptions(opts)
	t, ok := lookupTransport(o.transport)
	if !ok {
		return nil, fmt.Errorf("unknown transport: %s", o.transport)
	}
	l, err := t.listen(addr, o)
	if err != nil {
		return nil, err
	}
	return newServer(l, o), nil
}

// dialTCP opens a plain socket
func dialTCP(ctx context.Context, addr string, o *dialOptions) (io.ReadWriteCloser, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", addr)
}

// listenTCP binds a plain socket
func listenTCP(addr string, o *serverOptions) (Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return tcpListener{l}, nil
}

type tcpListener struct{ net.Listener }

// Accept is unblocked by Close; ctx is not consulted.
func (l tcpListener) Accept(_ context.Context) (io.ReadWriteCloser, error) {
	return l.Listener.Accept()
}
