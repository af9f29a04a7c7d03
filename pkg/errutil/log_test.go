// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/hooks/pkg/errutil"
	"github.com/holomush/hooks/pkg/hooks"
)

func logEntry(t *testing.T, err error) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	errutil.LogError(logger, "command failed", err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "command failed", entry["msg"])
	return entry
}

func TestLogError_WithOopsError(t *testing.T) {
	entry := logEntry(t, hooks.ErrCircularRedirect("a", "b"))

	assert.Equal(t, hooks.CodeCircularRedirect, entry["code"])
	assert.Equal(t, "hooks", entry["domain"])
	assert.Contains(t, entry["error"], "circular")
	assert.Contains(t, entry, "context")
}

func TestLogError_IncludesHint(t *testing.T) {
	entry := logEntry(t, oops.In("cli").Hint("use .yaml, .yml or .lua").Errorf("unsupported file type"))

	assert.Equal(t, "use .yaml, .yml or .lua", entry["hint"])
	assert.NotContains(t, entry, "code")
}

func TestLogError_WithStandardError(t *testing.T) {
	entry := logEntry(t, errors.New("standard error"))

	assert.Equal(t, "standard error", entry["error"])
	assert.NotContains(t, entry, "code")
}

func TestCode(t *testing.T) {
	assert.Equal(t, hooks.CodeCircularRedirect, errutil.Code(hooks.ErrCircularRedirect("a", "b")))
	assert.Empty(t, errutil.Code(errors.New("plain")))
	assert.Empty(t, errutil.Code(oops.Errorf("no code")))
	assert.Empty(t, errutil.Code(nil))
}
