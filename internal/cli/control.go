// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luxfi/bridge"
)

func newOpsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List the operation types a running server handles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := getEnv(cmd)
			var reply bridge.OperationsReply
			if err := bridge.CallControl(cmd.Context(), e.v.GetString("control_url"), "Bridge.Operations", &bridge.NoArgs{}, &reply); err != nil {
				return err
			}
			for _, op := range reply.Operations {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), op)
			}
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show counters of a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := getEnv(cmd)
			var reply bridge.StatsReply
			if err := bridge.CallControl(cmd.Context(), e.v.GetString("control_url"), "Bridge.Stats", &bridge.NoArgs{}, &reply); err != nil {
				return err
			}
			s := reply.Stats
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "addr:        %s\n", reply.Addr)
			_, _ = fmt.Fprintf(out, "active:      %d\n", s.ActiveConnections)
			_, _ = fmt.Fprintf(out, "accepted:    %d\n", s.AcceptedConnections)
			_, _ = fmt.Fprintf(out, "requests:    %d\n", s.Requests)
			_, _ = fmt.Fprintf(out, "failures:    %d\n", s.Failures)
			_, _ = fmt.Fprintf(out, "protocol:    %d\n", s.ProtocolErrors)
			return nil
		},
	}
}
