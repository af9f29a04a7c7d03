// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package luahooks

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/holomush/hooks/pkg/hooks"
)

// ModuleName is the global table scripts use to reach the dispatcher.
const ModuleName = "hooks"

// Runtime binds one sandboxed Lua state to a dispatcher.
// A Runtime is not safe for concurrent use: Lua states are single-threaded.
type Runtime struct {
	d        *hooks.Dispatcher
	L        *lua.LState
	logger   *slog.Logger
	output   io.Writer
	handlers map[*lua.LFunction]*hooks.Handler
	regs     map[string]*hooks.Registration
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger backing hooks.log.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithOutput redirects the Lua print function. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(r *Runtime) {
		if w != nil {
			r.output = w
		}
	}
}

// New creates a runtime whose hooks module operates on d. The context bounds
// script execution: once it is done, running Lua code stops with an error.
func New(ctx context.Context, d *hooks.Dispatcher, opts ...Option) (*Runtime, error) {
	if d == nil {
		return nil, oops.In("lua").Errorf("dispatcher cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	L, err := newSandboxedState(defaultSafeLibraries())
	if err != nil {
		return nil, err
	}
	L.SetContext(ctx)

	r := &Runtime{
		d:        d,
		L:        L,
		logger:   slog.Default(),
		output:   os.Stdout,
		handlers: make(map[*lua.LFunction]*hooks.Handler),
		regs:     make(map[string]*hooks.Registration),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.registerModule()
	return r, nil
}

// Close releases the Lua state. Handlers the script registered stay in the
// dispatcher but fail when invoked afterwards.
func (r *Runtime) Close() {
	r.L.Close()
}

// DoString runs a Lua chunk.
func (r *Runtime) DoString(src string) error {
	if err := r.L.DoString(src); err != nil {
		return oops.In("lua").With("operation", "do_string").Wrap(err)
	}
	return nil
}

// DoFile reads and runs a Lua script.
func (r *Runtime) DoFile(path string) error {
	code, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return oops.In("lua").With("path", path).Hint("failed to read script").Wrap(err)
	}
	if err := r.L.DoString(string(code)); err != nil {
		return oops.In("lua").With("path", path).With("operation", "do_file").Wrap(err)
	}
	return nil
}

func (r *Runtime) registerModule() {
	mod := r.L.SetFuncs(r.L.NewTable(), map[string]lua.LGFunction{
		"register":      r.luaRegister,
		"register_once": r.luaRegisterOnce,
		"unregister":    r.luaUnregister,
		"cancel":        r.luaCancel,
		"redirect":      r.luaRedirect,
		"resolve":       r.luaResolve,
		"before_each":   r.luaBeforeEach,
		"after_each":    r.luaAfterEach,
		"before":        r.luaBefore,
		"after":         r.luaAfter,
		"call":          r.luaCall,
		"log":           r.luaLog,
	})
	r.L.SetGlobal(ModuleName, mod)
	r.L.SetGlobal("print", r.L.NewFunction(r.luaPrint))
}

// handlerFor returns the Handler box for fn, creating it on first use so
// unregister can match by function identity.
func (r *Runtime) handlerFor(fn *lua.LFunction) *hooks.Handler {
	if h, ok := r.handlers[fn]; ok {
		return h
	}
	h := hooks.NewHandler(func(args ...any) error {
		return r.invoke(fn, args)
	})
	r.handlers[fn] = h
	return h
}

// invoke calls fn with args converted to Lua values.
func (r *Runtime) invoke(fn *lua.LFunction, args []any) error {
	lArgs := make([]lua.LValue, len(args))
	for i, arg := range args {
		lArgs[i] = toLua(r.L, arg)
	}
	if err := r.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, lArgs...); err != nil {
		return oops.In("lua").With("operation", "invoke").Wrap(err)
	}
	return nil
}

func (r *Runtime) track(reg *hooks.Registration) lua.LValue {
	id := reg.ID().String()
	r.regs[id] = reg
	return lua.LString(id)
}

// hooks.register(name, fn) -> handle
func (r *Runtime) luaRegister(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)
	L.Push(r.track(r.d.Register(name, r.handlerFor(fn))))
	return 1
}

// hooks.register_once(name, fn) -> handle
func (r *Runtime) luaRegisterOnce(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)
	L.Push(r.track(r.d.RegisterOnce(name, r.handlerFor(fn))))
	return 1
}

// hooks.unregister(name, fn)
func (r *Runtime) luaUnregister(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)
	if h, ok := r.handlers[fn]; ok {
		r.d.Unregister(name, h)
	}
	return 0
}

// hooks.cancel(handle)
func (r *Runtime) luaCancel(L *lua.LState) int {
	id := L.CheckString(1)
	if reg, ok := r.regs[id]; ok {
		reg.Cancel()
		delete(r.regs, id)
	}
	return 0
}

// hooks.redirect(from, to)
func (r *Runtime) luaRedirect(L *lua.LState) int {
	from := L.CheckString(1)
	to := L.CheckString(2)
	if err := r.d.Redirect(from, to); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

// hooks.resolve(name) -> string
func (r *Runtime) luaResolve(L *lua.LState) int {
	L.Push(lua.LString(r.d.Resolve(L.CheckString(1))))
	return 1
}

func (r *Runtime) eachFunc(fn *lua.LFunction) hooks.EachFunc {
	return func(name string, args ...any) error {
		return r.invoke(fn, append([]any{name}, args...))
	}
}

// hooks.before_each(fn)
func (r *Runtime) luaBeforeEach(L *lua.LState) int {
	r.d.BeforeEach(r.eachFunc(L.CheckFunction(1)))
	return 0
}

// hooks.after_each(fn)
func (r *Runtime) luaAfterEach(L *lua.LState) int {
	r.d.AfterEach(r.eachFunc(L.CheckFunction(1)))
	return 0
}

// hooks.before(name, fn)
func (r *Runtime) luaBefore(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)
	r.d.Before(name, func(args ...any) error { return r.invoke(fn, args) })
	return 0
}

// hooks.after(name, fn)
func (r *Runtime) luaAfter(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)
	r.d.After(name, func(args ...any) error { return r.invoke(fn, args) })
	return 0
}

// hooks.call(name, ...) raises on the first failing callback.
func (r *Runtime) luaCall(L *lua.LState) int {
	name := L.CheckString(1)
	args := argsFrom(L, 2)
	if err := r.d.CallContext(L.Context(), name, args...); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

// hooks.log(msg [, level])
func (r *Runtime) luaLog(L *lua.LState) int {
	msg := L.CheckString(1)
	level := slog.LevelInfo
	switch strings.ToLower(L.OptString(2, "info")) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	r.logger.Log(L.Context(), level, msg, "source", "lua")
	return 0
}

// print writes tab-separated values to the runtime output.
func (r *Runtime) luaPrint(L *lua.LState) int {
	parts := make([]string, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	//nolint:errcheck // print has no error channel back to Lua
	io.WriteString(r.output, strings.Join(parts, "\t")+"\n")
	return 0
}
