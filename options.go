// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"crypto/tls"

	"go.uber.org/zap"
)

// DialOption configures clients
type DialOption func(*dialOptions)

type dialOptions struct {
	transport string
	tls       *tls.Config
	log       *zap.Logger
}

func newDialOptions(opts []DialOption) *dialOptions {
	o := &dialOptions{transport: DefaultTransport}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	return o
}

// WithTransport explicitly sets the transport type
func WithTransport(t string) DialOption {
	return func(o *dialOptions) { o.transport = t }
}

// WithClientTLS sets the TLS configuration used by TLS-based transports.
func WithClientTLS(c *tls.Config) DialOption {
	return func(o *dialOptions) { o.tls = c }
}

// WithClientLogger sets the client logger
func WithClientLogger(l *zap.Logger) DialOption {
	return func(o *dialOptions) { o.log = l }
}

// ServerOption configures servers
type ServerOption func(*serverOptions)

type serverOptions struct {
	transport string
	tls       *tls.Config
	log       *zap.Logger
}

func newServerOptions(opts []ServerOption) *serverOptions {
	o := &serverOptions{transport: DefaultTransport}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	return o
}

// WithServerTransport explicitly sets the transport type for the server
func WithServerTransport(t string) ServerOption {
	return func(o *serverOptions) { o.transport = t }
}

// WithTLSConfig sets the server TLS configuration for TLS-based transports.
// QUIC servers without one use SelfSignedTLS.
func WithTLSConfig(c *tls.Config) ServerOption {
	return func(o *serverOptions) { o.tls = c }
}

// WithLogger sets the server logger
func WithLogger(l *zap.Logger) ServerOption {
	return func(o *serverOptions) { o.log = l }
}
