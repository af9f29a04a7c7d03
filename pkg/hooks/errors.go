// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package hooks

import (
	"github.com/samber/oops"
)

// Error codes for dispatcher failures.
const (
	CodeCircularRedirect = "CIRCULAR_REDIRECT"
	CodeHandlerFailed    = "HANDLER_FAILED"
)

// ErrCircularRedirect creates an error for a redirect that would form a cycle.
func ErrCircularRedirect(from, to string) error {
	return oops.In("hooks").
		Code(CodeCircularRedirect).
		With("from", from).
		With("to", to).
		Errorf("redirect %s -> %s rejected: circular reference", from, to)
}

// ErrHandlerFailed wraps an error returned by a callback during dispatch.
// The cause stays reachable through errors.Is and errors.As.
func ErrHandlerFailed(name string, stage Stage, cause error) error {
	return oops.In("hooks").
		Code(CodeHandlerFailed).
		With("hook", name).
		With("stage", string(stage)).
		Wrap(cause)
}

// FailedStage reports the hook name and stage recorded on an error returned
// by Call. ok is false if err did not come from a failing callback.
func FailedStage(err error) (name string, stage Stage, ok bool) {
	oopsErr, isOops := oops.AsOops(err)
	if !isOops {
		return "", "", false
	}
	// Code reports the innermost code, which may belong to the callback's own
	// error, so look for the context this package attaches instead.
	ctx := oopsErr.Context()
	s, hasStage := ctx["stage"].(string)
	name, hasName := ctx["hook"].(string)
	if !hasStage || !hasName {
		return "", "", false
	}
	return name, Stage(s), true
}
