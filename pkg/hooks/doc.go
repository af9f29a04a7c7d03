// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package hooks provides an in-process named-event dispatcher.
//
// Callers register handlers against string names and later invoke every
// handler for a name with [Dispatcher.Call]. Cross-cutting logic is layered
// around dispatch with global callbacks ([Dispatcher.BeforeEach],
// [Dispatcher.AfterEach]) and per-name callbacks ([Dispatcher.Before],
// [Dispatcher.After]). Names can be aliased with [Dispatcher.Redirect].
//
// # Dispatch order
//
// A call runs five stages, each to completion before the next:
//
//  1. every BeforeEach callback, as fn(name, args...)
//  2. every Before callback for the name, as fn(args...)
//  3. every handler registered for the name, as fn(args...)
//  4. every After callback for the name, as fn(args...)
//  5. every AfterEach callback, as fn(name, args...)
//
// Within a stage, callbacks run in registration order. A callback that
// returns an error aborts the rest of the call; stages that already ran are
// not rolled back. Panics are not recovered.
//
// # Redirection
//
// Registration operations (Register, RegisterOnce, Unregister, Before, After)
// resolve their name through the redirection chain before touching storage.
// Call dispatches on the literal name it is given unless the dispatcher was
// built with [WithCallResolution]. Redirect rejects mappings that would form
// a cycle, so resolution always terminates.
//
// # Identity
//
// Go func values are not comparable, so handlers are boxed with [NewHandler].
// [Dispatcher.Unregister] removes entries by *Handler pointer identity. The
// [Registration] returned by Register removes exactly the entry it created.
//
// # Concurrency
//
// A Dispatcher is safe for concurrent use. No lock is held while callbacks
// run, so callbacks may call back into the dispatcher, including Call on the
// same name.
package hooks
