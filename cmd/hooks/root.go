// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/hooks/internal/config"
	"github.com/holomush/hooks/internal/logging"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the hooks CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hooks",
		Short: "Run and inspect named hook dispatch",
		Long: `hooks drives an in-process hook dispatcher: callbacks registered under
names, fired in before_each, before, handler, after, after_each order, with
name redirection.

Run declarative YAML scenarios or sandboxed Lua scripts against it, resolve
redirect chains, or print the scenario schema.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/hooks/config.yaml)")
	cmd.PersistentFlags().String("log-format", config.DefaultLogFormat, "log format (json or text)")
	cmd.PersistentFlags().String("log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewResolveCmd())
	cmd.AddCommand(NewSchemaCmd())

	return cmd
}

// setup loads configuration for cmd and installs the default logger, which
// writes to the command's error stream.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, nil, oops.In("cli").Hint("invalid configuration").Wrap(err)
	}

	logger := logging.SetDefault(logging.Options{
		Service: "hooks",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.LogLevel(),
		Writer:  cmd.ErrOrStderr(),
	})
	return cfg, logger, nil
}
