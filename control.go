// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"
)

// ControlService is the JSON-RPC 2.0 service exposed under the name "Bridge"
// by ControlHandler. It reports on a running server without touching the
// bridge wire protocol.
type ControlService struct {
	srv *Server
}

// NoArgs is the empty argument for control methods that take none.
type NoArgs struct{}

// OperationsReply lists the registered operation types.
type OperationsReply struct {
	Operations []string `json:"operations"`
}

// Operations replies with the sorted registered operation types.
func (c *ControlService) Operations(_ *http.Request, _ *NoArgs, reply *OperationsReply) error {
	types := c.srv.Operations()
	reply.Operations = make([]string, len(types))
	for i, t := range types {
		reply.Operations[i] = string(t)
	}
	return nil
}

// StatsReply carries the server counters.
type StatsReply struct {
	Addr  string `json:"addr"`
	Stats Stats  `json:"stats"`
}

// Stats replies with a snapshot of the server counters.
func (c *ControlService) Stats(_ *http.Request, _ *NoArgs, reply *StatsReply) error {
	reply.Addr = c.srv.Addr()
	reply.Stats = c.srv.Stats()
	return nil
}

// ControlHandler returns an http.Handler serving the Bridge control service
// over JSON-RPC 2.0.
func (s *Server) ControlHandler() http.Handler {
	h := rpc.NewServer()
	h.RegisterCodec(json2.NewCodec(), "application/json")
	if err := h.RegisterService(&ControlService{srv: s}, "Bridge"); err != nil {
		// Only reachable if the service methods stop matching gorilla's
		// signature rules.
		panic(err)
	}
	return h
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// cleanlyCloseBody drains and closes an HTTP response body so the connection
// can be reused.
func cleanlyCloseBody(body io.ReadCloser) error {
	if body == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, body)
	return body.Close()
}

// CallControl issues one JSON-RPC 2.0 request against a control endpoint,
// e.g. CallControl(ctx, "http://127.0.0.1:7071/", "Bridge.Stats", &NoArgs{}, &reply).
// It does not retry.
func CallControl(ctx context.Context, url, method string, args, reply any) error {
	body, err := json2.EncodeClientRequest(method, args)
	if err != nil {
		return fmt.Errorf("failed to encode client params: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := newHTTPClient().Do(req)
	if err != nil {
		return fmt.Errorf("failed to issue request: %w", err)
	}
	defer cleanlyCloseBody(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("received status code: %d", resp.StatusCode)
	}
	if err := json2.DecodeClientResponse(resp.Body, reply); err != nil {
		return fmt.Errorf("failed to decode client response: %w", err)
	}
	return nil
}
