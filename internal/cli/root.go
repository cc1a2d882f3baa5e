// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/luxfi/bridge/internal/config"
)

type ctxKey string

const envKey ctxKey = "env"

// env is what subcommands share once configuration has been loaded.
type env struct {
	v   *viper.Viper
	log *zap.Logger
}

// Execute builds the root command and runs it.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the root command and wires configuration and logging
// for its subcommands.
func NewRootCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:           "bridged",
		Short:         "Process bridge for cache expiry policies and entry listeners",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			if cfgPath != "" {
				v.SetConfigFile(cfgPath)
			}
			if err := config.Load(cmd.Context(), v); err != nil {
				return err
			}
			log, err := config.NewLogger(v)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), envKey, &env{v: v, log: log}))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e, ok := cmd.Context().Value(envKey).(*env); ok {
				_ = e.log.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (yaml|toml)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newExpiryCmd())
	cmd.AddCommand(newEventCmd())
	cmd.AddCommand(newOpsCmd())
	cmd.AddCommand(newStatsCmd())

	cmd.Run = func(cmd *cobra.Command, args []string) { _ = cmd.Help() }

	return cmd
}

func getEnv(cmd *cobra.Command) *env {
	e, ok := cmd.Context().Value(envKey).(*env)
	if !ok {
		fmt.Fprintln(os.Stderr, "internal error: configuration not loaded")
		os.Exit(1)
	}
	return e
}
