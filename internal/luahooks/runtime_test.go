// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package luahooks

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/holomush/hooks/pkg/hooks"
)

// newRuntime creates a runtime writing print output to the returned buffer.
func newRuntime(t *testing.T, d *hooks.Dispatcher) (*Runtime, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	rt, err := New(context.Background(), d, WithOutput(&out))
	require.NoError(t, err)
	t.Cleanup(rt.Close)
	return rt, &out
}

func lines(out *bytes.Buffer) []string {
	return strings.Split(strings.TrimSpace(out.String()), "\n")
}

func TestNew_NilDispatcher(t *testing.T) {
	_, err := New(context.Background(), nil)
	require.Error(t, err)
}

func TestRuntime_Sandbox(t *testing.T) {
	rt, _ := newRuntime(t, hooks.New())

	for _, global := range []string{"os", "io", "debug", "package", "dofile", "loadfile", "loadstring", "load"} {
		t.Run(global, func(t *testing.T) {
			require.NoError(t, rt.DoString(`assert(`+global+` == nil, "`+global+` should be blocked")`))
		})
	}

	require.NoError(t, rt.DoString(`assert(string.upper("x") == "X")`))
	require.NoError(t, rt.DoString(`assert(math.max(1, 2) == 2)`))
}

func TestRuntime_StageOrder(t *testing.T) {
	rt, out := newRuntime(t, hooks.New())

	err := rt.DoString(`
hooks.before_each(function(name) print("beforeEach", name) end)
hooks.before("test", function() print("before") end)
hooks.register("test", function() print("handler1") end)
hooks.register("test", function() print("handler2") end)
hooks.after("test", function() print("after") end)
hooks.after_each(function(name) print("afterEach", name) end)
hooks.call("test")
`)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"beforeEach\ttest",
		"before",
		"handler1",
		"handler2",
		"after",
		"afterEach\ttest",
	}, lines(out))
}

func TestRuntime_ArgumentsRoundTrip(t *testing.T) {
	d := hooks.New()
	rt, out := newRuntime(t, d)

	require.NoError(t, rt.DoString(`
hooks.register("x", function(n, s, t)
  print(n, s, t[1], t[2])
end)
`))

	require.NoError(t, d.Call("x", 1, "a", []any{"p", 2}))
	assert.Equal(t, []string{"1\ta\tp\t2"}, lines(out))
}

func TestRuntime_LuaArgsReachGoHandlers(t *testing.T) {
	d := hooks.New()
	var got []any
	d.RegisterFunc("x", func(args ...any) error {
		got = args
		return nil
	})

	rt, _ := newRuntime(t, d)
	require.NoError(t, rt.DoString(`hooks.call("x", 1, 2.5, "s", true, nil, {1, k = "v"})`))

	require.Len(t, got, 6)
	assert.Equal(t, []any{1, 2.5, "s", true, nil}, got[:5])

	tbl, ok := got[5].(*lua.LTable)
	require.True(t, ok, "tables reach Go handlers as the caller's *lua.LTable, got %T", got[5])
	assert.Equal(t, lua.LNumber(1), tbl.RawGetInt(1))
	assert.Equal(t, lua.LString("v"), tbl.RawGetString("k"))
}

func TestRuntime_TableArgumentsForwardedVerbatim(t *testing.T) {
	rt, out := newRuntime(t, hooks.New())

	err := rt.DoString(`
hooks.register("mixed", function(t) print(t[1], t.k) end)
hooks.call("mixed", {10, k = "v"})

local shared = {}
hooks.register("shared", function(t) t.seen = true end)
hooks.register("shared", function(t) print(t.seen) end)
hooks.before_each(function(name, t) if name == "shared" then print(t == shared) end end)
hooks.call("shared", shared)
print(shared.seen)
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"10\tv", "true", "true", "true"}, lines(out))
}

func TestRuntime_UnregisterByFunctionIdentity(t *testing.T) {
	rt, out := newRuntime(t, hooks.New())

	err := rt.DoString(`
local function a() print("a") end
local function b() print("b") end
hooks.register("test", a)
hooks.register("test", b)
hooks.unregister("test", a)
hooks.unregister("test", function() end)
hooks.call("test")
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, lines(out))
}

func TestRuntime_CancelHandle(t *testing.T) {
	rt, out := newRuntime(t, hooks.New())

	err := rt.DoString(`
local handle = hooks.register("test", function() print("cancelled") end)
hooks.register("test", function() print("kept") end)
hooks.cancel(handle)
hooks.cancel(handle)
hooks.cancel("not-a-handle")
hooks.call("test")
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, lines(out))
}

func TestRuntime_RegisterOnce(t *testing.T) {
	rt, out := newRuntime(t, hooks.New())

	err := rt.DoString(`
hooks.register_once("boot", function()
  print("boot")
  hooks.call("boot")
end)
hooks.call("boot")
hooks.call("boot")
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"boot"}, lines(out))
}

func TestRuntime_Redirect(t *testing.T) {
	rt, out := newRuntime(t, hooks.New())

	err := rt.DoString(`
hooks.redirect("a", "b")
hooks.redirect("b", "c")
hooks.register("a", function() print("fired") end)
assert(hooks.resolve("a") == "c")
hooks.call("a")
hooks.call("c")
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"fired"}, lines(out))
}

func TestRuntime_RedirectCycleRaises(t *testing.T) {
	rt, _ := newRuntime(t, hooks.New())

	err := rt.DoString(`
hooks.redirect("a", "b")
local ok, msg = pcall(hooks.redirect, "b", "a")
assert(not ok)
assert(string.find(msg, "circular"))
`)
	require.NoError(t, err)
}

func TestRuntime_HandlerErrorAbortsCall(t *testing.T) {
	d := hooks.New()
	rt, out := newRuntime(t, d)

	require.NoError(t, rt.DoString(`
hooks.register("test", function() error("handler failed") end)
hooks.register("test", function() print("unreached") end)
`))

	err := d.Call("test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler failed")
	assert.Empty(t, strings.TrimSpace(out.String()))

	_, stage, ok := hooks.FailedStage(err)
	require.True(t, ok)
	assert.Equal(t, hooks.StageHandler, stage)

	err = rt.DoString(`
local ok, msg = pcall(hooks.call, "test")
assert(not ok)
assert(string.find(msg, "handler failed"))
`)
	require.NoError(t, err)
}

func TestRuntime_Log(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	rt, err := New(context.Background(), hooks.New(), WithLogger(logger))
	require.NoError(t, err)
	defer rt.Close()

	require.NoError(t, rt.DoString(`hooks.log("hello"); hooks.log("careful", "warn")`))

	logOutput := buf.String()
	assert.Contains(t, logOutput, "level=INFO msg=hello")
	assert.Contains(t, logOutput, "level=WARN msg=careful")
	assert.Contains(t, logOutput, "source=lua")
}

func TestRuntime_DoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.lua")
	require.NoError(t, os.WriteFile(path, []byte(`hooks.register("f", function() print("from file") end)`), 0o600))

	d := hooks.New()
	rt, out := newRuntime(t, d)
	require.NoError(t, rt.DoFile(path))
	require.NoError(t, d.Call("f"))
	assert.Equal(t, []string{"from file"}, lines(out))

	require.Error(t, rt.DoFile(filepath.Join(dir, "missing.lua")))
}

func TestRuntime_SyntaxError(t *testing.T) {
	rt, _ := newRuntime(t, hooks.New())
	require.Error(t, rt.DoString(`hooks.register(`))
}

func TestRuntime_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rt, err := New(ctx, hooks.New(), WithOutput(&bytes.Buffer{}))
	require.NoError(t, err)
	defer rt.Close()

	cancel()
	require.Error(t, rt.DoString(`while true do end`))
}
