// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package hooks

import (
	"sync/atomic"

	"github.com/oklog/ulid/v2"
)

// HandlerFunc is a main-stage handler or a per-name Before/After callback.
// It receives the call's arguments verbatim and in order.
type HandlerFunc func(args ...any) error

// EachFunc is a global BeforeEach/AfterEach callback. It receives the
// dispatch name followed by the call's arguments.
type EachFunc func(name string, args ...any) error

// Handler boxes a HandlerFunc so it has a stable identity.
// Two handlers are the same only if they are the same pointer.
type Handler struct {
	fn HandlerFunc
}

// NewHandler wraps fn in a Handler. Panics if fn is nil.
func NewHandler(fn HandlerFunc) *Handler {
	if fn == nil {
		panic("hooks.NewHandler: fn cannot be nil")
	}
	return &Handler{fn: fn}
}

// Invoke calls the wrapped function.
func (h *Handler) Invoke(args ...any) error {
	return h.fn(args...)
}

// entry is one slot in a handler sequence. The same *Handler may occupy
// several entries.
type entry struct {
	id      ulid.ULID
	handler *Handler
	removed atomic.Bool
}

// Registration removes the entry created by a Register or RegisterOnce call.
type Registration struct {
	d     *Dispatcher
	name  string
	entry *entry
}

// ID returns the unique identifier of this registration.
func (r *Registration) ID() ulid.ULID {
	return r.entry.id
}

// Name returns the resolved name the handler was stored under.
func (r *Registration) Name() string {
	return r.name
}

// Handler returns the registered handler. For RegisterOnce this is the
// self-removing wrapper, not the handler passed in.
func (r *Registration) Handler() *Handler {
	return r.entry.handler
}

// Active reports whether the entry is still registered.
func (r *Registration) Active() bool {
	return !r.entry.removed.Load()
}

// Cancel removes the entry. Calling Cancel more than once, or after the
// entry was removed by Unregister or by a once-handler firing, does nothing.
func (r *Registration) Cancel() {
	r.d.removeEntry(r.name, r.entry)
}
