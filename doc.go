// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bridge lets code in one process run a callback against state owned
// by another process over a single socket, using a synchronous
// request/response protocol with pluggable operation types.
//
// # Usage
//
// Server usage:
//
//	server, err := bridge.Listen(":7070")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer server.Close()
//
//	handlers := expiry.NewHandlers(policy)
//	if err := handlers.Register(server); err != nil {
//	    log.Fatal(err)
//	}
//	go server.Serve(ctx)
//
// Client usage:
//
//	client, err := bridge.Dial("127.0.0.1:7070")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	d, err := bridge.Invoke(ctx, client, expiry.ForCreatedEntry(42))
//
// # Wire format
//
// Each request is an operation tag followed by a body; each response is a
// status byte (ok or error) followed by a body. Bodies are sequences of
// length-prefixed protobuf messages. Values travel as google.protobuf.Any and
// failures as google.rpc.Status, so a domain error raised by a remote handler
// surfaces from Invoke as a *RemoteError that unwraps to the same sentinel.
//
// Requests on one connection are strictly ordered: a handler call, including
// its write-back, completes before the next request is read.
//
// # Architecture
//
//   - operation.go: Operation, Handler and the Registry
//   - codec.go: Encoder/Decoder and value packing
//   - wire.go: request/response framing
//   - server.go, client.go: the two ends of a connection
//   - transport.go, dial.go, quic.go: transport registry (tcp, quic)
//   - control.go: JSON-RPC control plane reporting on a running server
//   - completion.go: CompletionSignal, a single-shot multi-waiter primitive
package bridge
