// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package hooks

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Option configures a Dispatcher during construction.
type Option func(*Dispatcher)

// WithLogger sets the logger used for redirect diagnostics.
// If not provided, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithTracer sets the tracer used by CallContext.
// If not provided, the global otel tracer provider is used.
func WithTracer(tracer trace.Tracer) Option {
	return func(d *Dispatcher) {
		if tracer != nil {
			d.tracer = tracer
		}
	}
}

// WithCallResolution makes Call resolve its name through the redirection
// chain before lookup. By default Call dispatches on the literal name, so a
// handler registered through a redirect only fires when the target is called.
func WithCallResolution() Option {
	return func(d *Dispatcher) {
		d.resolveOnCall = true
	}
}
