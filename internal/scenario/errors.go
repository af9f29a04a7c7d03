// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package scenario

import (
	"strings"

	"github.com/samber/oops"
)

// Error codes for scenario failures.
const (
	CodeInvalidScenario    = "INVALID_SCENARIO"
	CodeUnsupportedVersion = "UNSUPPORTED_VERSION"
	CodeTraceMismatch      = "TRACE_MISMATCH"
)

// ErrInvalid wraps a parse or validation failure.
func ErrInvalid(cause error) error {
	return oops.In("scenario").
		Code(CodeInvalidScenario).
		Wrap(cause)
}

// ErrUnsupportedVersion creates an error for a version outside SupportedVersions.
func ErrUnsupportedVersion(version string, cause error) error {
	builder := oops.In("scenario").
		Code(CodeUnsupportedVersion).
		With("version", version).
		With("supported", SupportedVersions)
	if cause != nil {
		return builder.Wrapf(cause, "invalid scenario version %q", version)
	}
	return builder.Errorf("scenario version %s does not satisfy %s", version, SupportedVersions)
}

// ErrTraceMismatch creates an error when a run does not produce the expected labels.
func ErrTraceMismatch(expected, actual []string) error {
	return oops.In("scenario").
		Code(CodeTraceMismatch).
		With("expected", expected).
		With("actual", actual).
		Errorf("trace mismatch: expected [%s], got [%s]",
			strings.Join(expected, " "), strings.Join(actual, " "))
}
