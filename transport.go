// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"context"
	"io"
	"net"
	"sort"
	"sync"
)

// Transport types
const (
	TransportTCP  = "tcp"  // Plain socket, default
	TransportQUIC = "quic" // One QUIC stream per connection, TLS required
)

// DefaultTransport is the default transport type (TCP)
const DefaultTransport = TransportTCP

// Listener yields one bidirectional stream per accepted client connection.
type Listener interface {
	Accept(ctx context.Context) (io.ReadWriteCloser, error)
	Close() error
	Addr() net.Addr
}

type dialFunc func(ctx context.Context, addr string, o *dialOptions) (io.ReadWriteCloser, error)
type listenFunc func(addr string, o *serverOptions) (Listener, error)

type transportFuncs struct {
	dial   dialFunc
	listen listenFunc
}

var (
	transportsMu sync.RWMutex
	transports   = map[string]transportFuncs{
		TransportTCP: {dialTCP, listenTCP},
	}
)

// registerTransport registers a new transport
func registerTransport(name string, dial dialFunc, listen listenFunc) {
	transportsMu.Lock()
	defer transportsMu.Unlock()
	transports[name] = transportFuncs{dial, listen}
}

func lookupTransport(name string) (transportFuncs, bool) {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	t, ok := transports[name]
	return t, ok
}

// AvailableTransports returns the sorted list of available transport types
func AvailableTransports() []string {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	result := make([]string, 0, len(transports))
	for name := range transports {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// HasTransport checks if a transport is available
func HasTransport(name string) bool {
	_, ok := lookupTransport(name)
	return ok
}
