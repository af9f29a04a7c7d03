// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/hooks/internal/config"
	"github.com/holomush/hooks/internal/luahooks"
	"github.com/holomush/hooks/internal/observability"
	"github.com/holomush/hooks/internal/scenario"
	"github.com/holomush/hooks/pkg/hooks"
)

// Output formats for run.
const (
	outputText = "text"
	outputJSON = "json"
)

// Run kinds used as metric labels.
const (
	kindScenario = "scenario"
	kindLua      = "lua"
)

// runConfig holds flags local to the run command.
type runConfig struct {
	output string
}

// Validate checks that the configuration is valid.
func (cfg *runConfig) Validate() error {
	if cfg.output != outputText && cfg.output != outputJSON {
		return oops.In("cli").Errorf("output must be 'text' or 'json', got %q", cfg.output)
	}
	return nil
}

// NewRunCmd creates the run subcommand.
func NewRunCmd() *cobra.Command {
	cfg := &runConfig{}

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Run a YAML scenario or a Lua script",
		Long: `Run a scenario (.yaml, .yml) and print the trace of every callback that
fired, or run a Lua script (.lua) whose print output goes to stdout.

A scenario that declares "expect" fails when the trace labels differ.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runFile(cmd, cfg, args[0])
		},
	}

	cmd.Flags().StringVarP(&cfg.output, "output", "o", outputText, "scenario trace format (text or json)")
	cmd.Flags().String("metrics-addr", "", "metrics/health HTTP address for the run (empty = disabled)")
	cmd.Flags().Bool("resolve-on-call", false, "resolve redirects on the name passed to call")

	return cmd
}

func runFile(cmd *cobra.Command, rc *runConfig, path string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var ready atomic.Bool
	metrics, stopServer, err := startObservability(cfg, ready.Load)
	if err != nil {
		return err
	}
	defer stopServer()

	opts := []hooks.Option{hooks.WithLogger(logger)}
	if cfg.Dispatch.ResolveOnCall {
		opts = append(opts, hooks.WithCallResolution())
	}

	ready.Store(true)
	defer ready.Store(false)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return runScenario(ctx, cmd.OutOrStdout(), rc, path, metrics, opts)
	case ".lua":
		return runScript(ctx, cmd.OutOrStdout(), logger, path, metrics, opts)
	default:
		return oops.In("cli").With("path", path).
			Hint("use .yaml, .yml or .lua").
			Errorf("unsupported file type %q", ext)
	}
}

// startObservability starts the metrics server when configured. The returned
// Metrics is nil when the server is disabled.
func startObservability(cfg *config.Config, ready observability.ReadinessChecker) (*observability.Metrics, func(), error) {
	if cfg.Metrics.Addr == "" {
		return nil, func() {}, nil
	}

	srv := observability.NewServer(cfg.Metrics.Addr, ready)
	errCh, err := srv.Start()
	if err != nil {
		return nil, nil, oops.In("cli").With("addr", cfg.Metrics.Addr).Hint("failed to start observability server").Wrap(err)
	}
	go func() {
		for serveErr := range errCh {
			slog.Error("observability server failed", "error", serveErr)
		}
	}()

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			slog.Warn("failed to stop observability server", "error", err)
		}
	}
	return srv.Metrics(), stop, nil
}

func recordRun(m *observability.Metrics, kind, status string) {
	if m != nil {
		m.RecordRun(kind, status)
	}
}

func runScenario(ctx context.Context, out io.Writer, rc *runConfig, path string, m *observability.Metrics, opts []hooks.Option) error {
	s, err := scenario.LoadFile(path)
	if err != nil {
		recordRun(m, kindScenario, observability.RunFailure)
		return err
	}

	trace, runErr := scenario.Run(ctx, s, opts...)
	if trace != nil {
		if err := writeTrace(out, rc.output, trace); err != nil {
			return err
		}
	}

	switch {
	case runErr == nil:
		recordRun(m, kindScenario, observability.RunSuccess)
	case trace != nil:
		recordRun(m, kindScenario, observability.RunMismatch)
	default:
		recordRun(m, kindScenario, observability.RunFailure)
	}
	return runErr
}

func writeTrace(out io.Writer, format string, trace *scenario.Trace) error {
	if format == outputJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(trace); err != nil {
			return oops.In("cli").Wrap(err)
		}
		return nil
	}
	return trace.WriteText(out)
}

func runScript(ctx context.Context, out io.Writer, logger *slog.Logger, path string, m *observability.Metrics, opts []hooks.Option) error {
	rt, err := luahooks.New(ctx, hooks.New(opts...), luahooks.WithLogger(logger), luahooks.WithOutput(out))
	if err != nil {
		recordRun(m, kindLua, observability.RunFailure)
		return err
	}
	defer rt.Close()

	if err := rt.DoFile(path); err != nil {
		recordRun(m, kindLua, observability.RunFailure)
		return err
	}
	recordRun(m, kindLua, observability.RunSuccess)
	return nil
}
