// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package hooks

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Stage identifies one phase of a dispatch pass.
type Stage string

// Dispatch stages in execution order.
const (
	StageBeforeEach Stage = "before_each"
	StageBefore     Stage = "before"
	StageHandler    Stage = "handler"
	StageAfter      Stage = "after"
	StageAfterEach  Stage = "after_each"
)

// Stages lists every stage in the order a call runs them.
var Stages = []Stage{StageBeforeEach, StageBefore, StageHandler, StageAfter, StageAfterEach}

// Dispatcher owns the handler, redirection and callback tables and runs
// dispatch passes. It is thread-safe for concurrent access.
type Dispatcher struct {
	handlers   map[string][]*entry       // resolved name → handlers
	redirects  map[string]string         // from → to
	before     map[string][]HandlerFunc  // resolved name → callbacks
	after      map[string][]HandlerFunc  // resolved name → callbacks
	beforeEach []EachFunc
	afterEach  []EachFunc
	mu         sync.RWMutex

	logger        *slog.Logger
	tracer        trace.Tracer
	resolveOnCall bool
}

// New creates a dispatcher with empty tables.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		handlers:  make(map[string][]*entry),
		redirects: make(map[string]string),
		before:    make(map[string][]HandlerFunc),
		after:     make(map[string][]HandlerFunc),
		logger:    slog.Default(),
		tracer:    otel.Tracer("holomush/hooks"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register appends h to the handlers of the resolved name.
// The same handler may be registered more than once; each registration is a
// separate entry. Panics if h is nil.
func (d *Dispatcher) Register(name string, h *Handler) *Registration {
	if h == nil {
		panic("hooks.Register: handler cannot be nil")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	resolved := d.resolveLocked(name)
	e := &entry{id: newID(), handler: h}
	d.handlers[resolved] = append(d.handlers[resolved], e)

	return &Registration{d: d, name: resolved, entry: e}
}

// RegisterFunc boxes fn and registers it. The returned handler can be passed
// to Unregister.
func (d *Dispatcher) RegisterFunc(name string, fn HandlerFunc) (*Handler, *Registration) {
	h := NewHandler(fn)
	return h, d.Register(name, h)
}

// RegisterOnce registers a wrapper around h that fires at most once. On its
// first invocation the wrapper removes itself and only then invokes h, so h
// calling the same name again does not fire it a second time.
//
// The returned registration removes the wrapper; it is a no-op once the
// wrapper has fired.
func (d *Dispatcher) RegisterOnce(name string, h *Handler) *Registration {
	if h == nil {
		panic("hooks.RegisterOnce: handler cannot be nil")
	}

	// The wrapper needs its own registration, which only exists after
	// Register returns.
	var self atomic.Pointer[Registration]
	var fired atomic.Bool

	wrapper := NewHandler(func(args ...any) error {
		if !fired.CompareAndSwap(false, true) {
			return nil
		}
		if reg := self.Load(); reg != nil {
			reg.Cancel()
		}
		return h.Invoke(args...)
	})

	reg := d.Register(name, wrapper)
	self.Store(reg)
	if fired.Load() {
		// Fired concurrently before the registration was stored.
		reg.Cancel()
	}
	return reg
}

// Unregister removes every entry for h under the resolved name.
// Unknown names and handlers are ignored.
func (d *Dispatcher) Unregister(name string, h *Handler) {
	if h == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	resolved := d.resolveLocked(name)
	d.filterLocked(resolved, func(e *entry) bool { return e.handler == h })
}

// removeEntry removes a single entry. Used by Registration.Cancel.
func (d *Dispatcher) removeEntry(name string, target *entry) {
	if target.removed.Load() {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.filterLocked(name, func(e *entry) bool { return e == target })
}

// filterLocked drops matching entries from a handler list and marks them
// removed so passes already iterating skip them. It always builds a new
// slice because in-flight passes hold the old one.
// Must be called with Lock held.
func (d *Dispatcher) filterLocked(name string, match func(*entry) bool) {
	entries, ok := d.handlers[name]
	if !ok {
		return
	}

	kept := make([]*entry, 0, len(entries))
	for _, e := range entries {
		if match(e) {
			e.removed.Store(true)
			continue
		}
		kept = append(kept, e)
	}

	if len(kept) == 0 {
		delete(d.handlers, name)
		return
	}
	d.handlers[name] = kept
}

// Redirect maps from to to, replacing any previous mapping for from.
// Handlers already stored under the literal name from are not moved.
// Returns an error, leaving the table unchanged, if the mapping would
// create a circular reference.
func (d *Dispatcher) Redirect(from, to string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.wouldBeCircularLocked(from, to) {
		RedirectsRejected.Inc()
		d.logger.Debug("hook redirect rejected: circular reference",
			"from", from,
			"to", to)
		return ErrCircularRedirect(from, to)
	}

	if previous, ok := d.redirects[from]; ok && previous != to {
		d.logger.Warn("hook redirect conflict: overwriting existing redirect",
			"from", from,
			"previous_to", previous,
			"new_to", to)
	}

	d.redirects[from] = to
	return nil
}

// RemoveRedirect deletes the mapping for from, if any.
func (d *Dispatcher) RemoveRedirect(from string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.redirects, from)
}

// wouldBeCircularLocked reports whether adding from → to reaches from again.
// The existing table is acyclic, so the walk terminates.
// Must be called with at least RLock held.
func (d *Dispatcher) wouldBeCircularLocked(from, to string) bool {
	name := to
	for {
		if name == from {
			return true
		}
		next, ok := d.redirects[name]
		if !ok {
			return false
		}
		name = next
	}
}

// Resolve follows the redirection chain from name to its fixed point.
func (d *Dispatcher) Resolve(name string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.resolveLocked(name)
}

// ResolveChain returns name followed by every redirect target up to the
// resolved name.
func (d *Dispatcher) ResolveChain(name string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	chain := []string{name}
	for {
		next, ok := d.redirects[name]
		if !ok {
			return chain
		}
		chain = append(chain, next)
		name = next
	}
}

// resolveLocked must be called with at least RLock held.
func (d *Dispatcher) resolveLocked(name string) string {
	for {
		next, ok := d.redirects[name]
		if !ok {
			return name
		}
		name = next
	}
}

// Handlers returns the number of live handlers under the resolved name.
func (d *Dispatcher) Handlers(name string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.handlers[d.resolveLocked(name)])
}

// BeforeEach appends a callback that runs first on every call.
// Panics if fn is nil.
func (d *Dispatcher) BeforeEach(fn EachFunc) {
	if fn == nil {
		panic("hooks.BeforeEach: fn cannot be nil")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.beforeEach = append(d.beforeEach, fn)
}

// AfterEach appends a callback that runs last on every call.
// Panics if fn is nil.
func (d *Dispatcher) AfterEach(fn EachFunc) {
	if fn == nil {
		panic("hooks.AfterEach: fn cannot be nil")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.afterEach = append(d.afterEach, fn)
}

// Before appends a callback that runs before the handlers of the resolved name.
// Panics if fn is nil.
func (d *Dispatcher) Before(name string, fn HandlerFunc) {
	if fn == nil {
		panic("hooks.Before: fn cannot be nil")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	resolved := d.resolveLocked(name)
	d.before[resolved] = append(d.before[resolved], fn)
}

// After appends a callback that runs after the handlers of the resolved name.
// Panics if fn is nil.
func (d *Dispatcher) After(name string, fn HandlerFunc) {
	if fn == nil {
		panic("hooks.After: fn cannot be nil")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	resolved := d.resolveLocked(name)
	d.after[resolved] = append(d.after[resolved], fn)
}

// Call runs a dispatch pass for name with a background context.
func (d *Dispatcher) Call(name string, args ...any) error {
	return d.CallContext(context.Background(), name, args...)
}

// CallContext runs a dispatch pass for name. The context only carries trace
// state; callbacks do not receive it and the pass is not cancellable.
//
// The first callback error aborts the pass and is returned wrapped with
// CodeHandlerFailed. Calling a name nothing is registered for is a no-op.
func (d *Dispatcher) CallContext(ctx context.Context, name string, args ...any) (err error) {
	dispatchName := name
	if d.resolveOnCall {
		dispatchName = d.Resolve(name)
	}

	_, span := d.tracer.Start(ctx, "hooks.call",
		trace.WithAttributes(
			attribute.String("hook.name", name),
			attribute.String("hook.dispatch_name", dispatchName),
			attribute.Int("hook.args", len(args)),
		),
	)

	rec := newCallRecorder(dispatchName)
	completed := false
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		if !completed {
			span.SetStatus(codes.Error, "panic during dispatch")
		}
		span.End()
		rec.Record(completed, err)
	}()

	err = d.dispatch(dispatchName, args)
	completed = true
	return err
}

// dispatch runs the five stages. Each stage reads its membership when it
// starts, so callbacks registered by an earlier stage take part in later ones.
func (d *Dispatcher) dispatch(name string, args []any) error {
	if err := d.runEach(StageBeforeEach, d.eachSnapshot(StageBeforeEach), name, args); err != nil {
		return err
	}
	if err := d.runScoped(StageBefore, d.scopedSnapshot(StageBefore, name), name, args); err != nil {
		return err
	}
	if err := d.runHandlers(d.handlerSnapshot(name), name, args); err != nil {
		return err
	}
	if err := d.runScoped(StageAfter, d.scopedSnapshot(StageAfter, name), name, args); err != nil {
		return err
	}
	return d.runEach(StageAfterEach, d.eachSnapshot(StageAfterEach), name, args)
}

func (d *Dispatcher) eachSnapshot(stage Stage) []EachFunc {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if stage == StageBeforeEach {
		return d.beforeEach
	}
	return d.afterEach
}

func (d *Dispatcher) scopedSnapshot(stage Stage, name string) []HandlerFunc {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if stage == StageBefore {
		return d.before[name]
	}
	return d.after[name]
}

func (d *Dispatcher) handlerSnapshot(name string) []*entry {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.handlers[name]
}

func (d *Dispatcher) runEach(stage Stage, fns []EachFunc, name string, args []any) error {
	for _, fn := range fns {
		recordInvocation(stage)
		if err := fn(name, args...); err != nil {
			return ErrHandlerFailed(name, stage, err)
		}
	}
	return nil
}

func (d *Dispatcher) runScoped(stage Stage, fns []HandlerFunc, name string, args []any) error {
	for _, fn := range fns {
		recordInvocation(stage)
		if err := fn(args...); err != nil {
			return ErrHandlerFailed(name, stage, err)
		}
	}
	return nil
}

func (d *Dispatcher) runHandlers(entries []*entry, name string, args []any) error {
	for _, e := range entries {
		// Removed after this pass took its snapshot.
		if e.removed.Load() {
			continue
		}
		recordInvocation(StageHandler)
		if err := e.handler.Invoke(args...); err != nil {
			return ErrHandlerFailed(name, StageHandler, err)
		}
	}
	return nil
}
