// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/luxfi/bridge"
	"github.com/luxfi/bridge/expiry"
	"github.com/luxfi/bridge/listener"
)

func dial(e *env) (*bridge.Client, error) {
	return bridge.Dial(e.v.GetString("address"),
		bridge.WithTransport(e.v.GetString("transport")),
		bridge.WithClientLogger(e.log.Named("client")),
	)
}

// parseArg treats integer-looking arguments as int64 keys.
func parseArg(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}

func newExpiryCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "expiry <created|accessed|modified> <key>",
		Short:     "Ask the remote expiry policy for a key's expiry",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"created", "accessed", "modified"},
		RunE: func(cmd *cobra.Command, args []string) error {
			e := getEnv(cmd)
			var op bridge.Operation[*expiry.Duration]
			key := parseArg(args[1])
			switch args[0] {
			case "created":
				op = expiry.ForCreatedEntry(key)
			case "accessed":
				op = expiry.ForAccessedEntry(key)
			case "modified":
				op = expiry.ForModifiedEntry(key)
			default:
				return fmt.Errorf("unknown expiry kind %q (want created, accessed or modified)", args[0])
			}

			c, err := dial(e)
			if err != nil {
				return err
			}
			defer c.Close()

			d, err := bridge.Invoke(cmd.Context(), c, op)
			if err != nil {
				return err
			}
			if d == nil {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "unchanged")
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), d.String())
			return nil
		},
	}
}

func newEventCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "event <created|updated|removed|expired> <key> [value] [old-value]",
		Short: "Forward one cache entry event to the remote listener",
		Args:  cobra.RangeArgs(2, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := getEnv(cmd)
			t, err := listener.ParseEventType(args[0])
			if err != nil {
				return err
			}
			ev := listener.Event{Type: t, Key: parseArg(args[1])}
			if len(args) > 2 {
				ev.Value = parseArg(args[2])
			}
			if len(args) > 3 {
				ev.OldValue = parseArg(args[3])
				ev.HasOldValue = true
			}

			c, err := dial(e)
			if err != nil {
				return err
			}
			defer c.Close()

			if _, err := bridge.Invoke(cmd.Context(), c, listener.Dispatch(t, []listener.Event{ev})); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "forwarded %s event for %v\n", t, ev.Key)
			return nil
		},
	}
}
