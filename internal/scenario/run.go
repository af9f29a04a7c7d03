// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/samber/oops"

	"github.com/holomush/hooks/pkg/hooks"
)

// Step records one callback invocation.
type Step struct {
	Call  int         `json:"call"`
	Stage hooks.Stage `json:"stage"`
	Label string      `json:"label"`
	Name  string      `json:"name"`
	Args  []any       `json:"args,omitempty"`
}

// CallError records a call that returned an error.
type CallError struct {
	Call int    `json:"call"`
	Name string `json:"name"`
	Err  error  `json:"-"`
}

// MarshalJSON renders the error message.
func (e CallError) MarshalJSON() ([]byte, error) {
	type alias struct {
		Call  int    `json:"call"`
		Name  string `json:"name"`
		Error string `json:"error"`
	}
	return json.Marshal(alias{Call: e.Call, Name: e.Name, Error: e.Err.Error()})
}

// Trace is the ordered record of a scenario run.
type Trace struct {
	Steps  []Step      `json:"steps"`
	Errors []CallError `json:"errors,omitempty"`
}

// Labels returns the label of every step in order.
func (t *Trace) Labels() []string {
	labels := make([]string, 0, len(t.Steps))
	for _, s := range t.Steps {
		labels = append(labels, s.Label)
	}
	return labels
}

// WriteText writes the trace as an aligned table.
func (t *Trace) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CALL\tNAME\tSTAGE\tLABEL\tARGS")
	for _, s := range t.Steps {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%v\n", s.Call, s.Name, s.Stage, s.Label, s.Args)
	}
	for _, e := range t.Errors {
		fmt.Fprintf(tw, "%d\t%s\terror\t%s\t\n", e.Call, e.Name, e.Err)
	}
	if err := tw.Flush(); err != nil {
		return oops.In("scenario").Wrap(err)
	}
	return nil
}

// runner applies a scenario to a dispatcher and records what fires.
type runner struct {
	trace   *Trace
	current int
}

func (r *runner) record(stage hooks.Stage, label, name string, args []any) {
	r.trace.Steps = append(r.trace.Steps, Step{
		Call:  r.current,
		Stage: stage,
		Label: label,
		Name:  name,
		Args:  args,
	})
}

func failure(msg string) error {
	if msg == "" {
		return nil
	}
	return oops.In("scenario").Errorf("%s", msg)
}

func (r *runner) each(stage hooks.Stage, label string) hooks.EachFunc {
	return func(name string, args ...any) error {
		r.record(stage, label, name, args)
		return nil
	}
}

func (r *runner) scoped(stage hooks.Stage, label, name, fail string) hooks.HandlerFunc {
	return func(args ...any) error {
		r.record(stage, label, name, args)
		return failure(fail)
	}
}

// Run builds a dispatcher with opts, applies s, and performs every call in
// order. A failing call is recorded in the trace and the run continues.
// If s.Expect is set and the labels differ, the trace is returned together
// with a CodeTraceMismatch error.
func Run(ctx context.Context, s *Scenario, opts ...hooks.Option) (*Trace, error) {
	d := hooks.New(opts...)
	r := &runner{trace: &Trace{}}

	for _, rd := range s.Redirects {
		if err := d.Redirect(rd.From, rd.To); err != nil {
			return nil, ErrInvalid(err)
		}
	}

	for _, label := range s.BeforeEach {
		d.BeforeEach(r.each(hooks.StageBeforeEach, label))
	}
	for _, label := range s.AfterEach {
		d.AfterEach(r.each(hooks.StageAfterEach, label))
	}
	for _, cb := range s.Before {
		d.Before(cb.Name, r.scoped(hooks.StageBefore, cb.Label, d.Resolve(cb.Name), cb.Fail))
	}
	for _, cb := range s.After {
		d.After(cb.Name, r.scoped(hooks.StageAfter, cb.Label, d.Resolve(cb.Name), cb.Fail))
	}
	for _, h := range s.Handlers {
		handler := hooks.NewHandler(r.scoped(hooks.StageHandler, h.Label, d.Resolve(h.Name), h.Fail))
		if h.Once {
			d.RegisterOnce(h.Name, handler)
		} else {
			d.Register(h.Name, handler)
		}
	}

	for i, call := range s.Calls {
		r.current = i
		if err := d.CallContext(ctx, call.Name, call.Args...); err != nil {
			r.trace.Errors = append(r.trace.Errors, CallError{Call: i, Name: call.Name, Err: err})
		}
	}

	if s.Expect != nil && !slices.Equal(s.Expect, r.trace.Labels()) {
		return r.trace, ErrTraceMismatch(s.Expect, r.trace.Labels())
	}
	return r.trace, nil
}
