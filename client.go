// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Client holds a single long-lived connection to a bridge server. The
// connection is dialed on first use and re-dialed after a transport or
// protocol failure.
//
// The protocol has no correlation ids, so calls sharing a Client are
// serialized: one request/response round trip completes before the next
// request is written.
type Client struct {
	addr string
	dial dialFunc
	opts *dialOptions
	log  *zap.Logger

	mu     sync.Mutex
	conn   *wireConn
	closed bool
}

// Addr returns the server address the client dials.
func (c *Client) Addr() string { return c.addr }

// Invoke sends op to the server and returns its decoded result.
//
// Failures fall into three groups: a *TransportError wrapping ErrUnreachable
// or ErrConnection when the bridge itself fails, a *RemoteError wrapping
// ErrProtocol when the server rejected the request, and any other
// *RemoteError when the remote handler failed.
func Invoke[T any](ctx context.Context, c *Client, op Operation[T]) (T, error) {
	var zero T

	var enc Encoder
	if err := op.WriteRequest(&enc); err != nil {
		return zero, fmt.Errorf("encode %s request: %w", op.Type(), err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return zero, &TransportError{Op: "invoke", Addr: c.addr, Err: fmt.Errorf("%w: client closed", ErrConnection)}
	}
	wc, err := c.connect(ctx)
	if err != nil {
		return zero, err
	}

	resp, err := c.roundTrip(ctx, wc, op.Type(), enc.Bytes())
	if err != nil {
		c.drop()
		return zero, &TransportError{Op: "invoke", Addr: c.addr, Err: fmt.Errorf("%w: %w", ErrConnection, err)}
	}
	if resp.err != nil {
		re := fromStatus(op.Type(), resp.err)
		if re.IsProtocol() {
			// The server closes the connection after a protocol error.
			c.drop()
		}
		return zero, re
	}

	v, err := op.ReadResponse(NewDecoder(resp.body))
	if err != nil {
		return zero, fmt.Errorf("decode %s response: %w", op.Type(), err)
	}
	return v, nil
}

func (c *Client) connect(ctx context.Context) (*wireConn, error) {
	if c.conn != nil {
		return c.conn, nil
	}
	rwc, err := c.dial(ctx, c.addr, c.opts)
	if err != nil {
		return nil, &TransportError{Op: "dial", Addr: c.addr, Err: fmt.Errorf("%w: %w", ErrUnreachable, err)}
	}
	c.log.Debug("bridge connection established", zap.String("addr", c.addr), zap.String("transport", c.opts.transport))
	c.conn = newWireConn(rwc)
	return c.conn, nil
}

// roundTrip writes one request and reads its response. Cancelling ctx closes
// the connection, which unblocks the read.
func (c *Client) roundTrip(ctx context.Context, wc *wireConn, op OperationType, body []byte) (response, error) {
	stop := context.AfterFunc(ctx, func() { _ = wc.Close() })

	resp, err := exchange(wc, op, body)
	if !stop() {
		// The close already ran, even if the response made it through.
		c.drop()
	}
	if err != nil {
		return response{}, c.ctxErr(ctx, err)
	}
	return resp, nil
}

func exchange(wc *wireConn, op OperationType, body []byte) (response, error) {
	if err := wc.writeRequest(op, body); err != nil {
		return response{}, err
	}
	return wc.readResponse()
}

func (c *Client) ctxErr(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return errors.Join(cerr, err)
	}
	return err
}

func (c *Client) drop() {
	if c.conn == nil {
		return
	}
	_ = c.conn.Close()
	c.conn = nil
	c.log.Debug("bridge connection dropped", zap.String("addr", c.addr))
}

// Close closes the connection. Invoke fails after Close.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
