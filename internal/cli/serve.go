// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/bridge"
	"github.com/luxfi/bridge/expiry"
	"github.com/luxfi/bridge/internal/config"
	"github.com/luxfi/bridge/listener"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run a bridge server with the configured expiry policy and a logging listener",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, getEnv(cmd), cmd.OutOrStdout(), nil)
		},
	}
}

// runServe serves until ctx ends. ready, when set, is called once the bridge
// server and the optional control listener are bound.
func runServe(ctx context.Context, e *env, out io.Writer, ready func(*bridge.Server, net.Listener)) error {
	policy, err := config.ExpiryPolicy(e.v)
	if err != nil {
		return err
	}

	srv, err := bridge.Listen(e.v.GetString("listen_addr"),
		bridge.WithServerTransport(e.v.GetString("transport")),
		bridge.WithLogger(e.log.Named("bridge")),
	)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	if err := expiry.NewHandlers(policy).Register(srv); err != nil {
		_ = srv.Close()
		return err
	}
	events, err := listener.NewHandler(&logListener{log: e.log.Named("events")})
	if err != nil {
		_ = srv.Close()
		return err
	}
	if err := srv.AddOperationHandler(events); err != nil {
		_ = srv.Close()
		return err
	}

	_, _ = fmt.Fprintf(out, "bridge listening on %s (%s)\n", srv.Addr(), e.v.GetString("transport"))

	var control net.Listener
	if addr := e.v.GetString("control_addr"); addr != "" {
		if control, err = net.Listen("tcp", addr); err != nil {
			_ = srv.Close()
			return fmt.Errorf("control listen: %w", err)
		}
		_, _ = fmt.Fprintf(out, "control plane on http://%s/\n", control.Addr())
	}
	if ready != nil {
		ready(srv, control)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx)
	})
	if control != nil {
		hs := &http.Server{Handler: srv.ControlHandler(), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := hs.Serve(control); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return hs.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	// Serve returns as soon as the listener closes; wait for open
	// connections to drain too.
	if cerr := srv.Close(); err == nil {
		err = cerr
	}
	return err
}

// logListener logs every forwarded event.
type logListener struct {
	log *zap.Logger
}

func (l *logListener) logEvents(events []listener.Event) error {
	for _, ev := range events {
		l.log.Info("cache entry event",
			zap.Stringer("type", ev.Type),
			zap.Any("key", ev.Key),
			zap.Any("value", ev.Value),
			zap.Any("oldValue", ev.OldValue),
			zap.Bool("hasOldValue", ev.HasOldValue),
		)
	}
	return nil
}

func (l *logListener) OnCreated(_ context.Context, events []listener.Event) error {
	return l.logEvents(events)
}

func (l *logListener) OnUpdated(_ context.Context, events []listener.Event) error {
	return l.logEvents(events)
}

func (l *logListener) OnRemoved(_ context.Context, events []listener.Event) error {
	return l.logEvents(events)
}

func (l *logListener) OnExpired(_ context.Context, events []listener.Event) error {
	return l.logEvents(events)
}
