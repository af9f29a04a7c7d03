// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package scenario runs declarative hook scenarios against a dispatcher.
//
// A scenario file lists redirects, callbacks and handlers identified by
// labels, then a sequence of calls. Running it produces a trace of which
// labels fired, in which stage, with which arguments. Scenarios document and
// check dispatch behaviour without writing Go.
package scenario

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// SupportedVersions is the constraint a scenario's version must satisfy.
const SupportedVersions = "^1"

// Scenario represents a scenario YAML file.
type Scenario struct {
	Version    string     `yaml:"version" json:"version" jsonschema:"minLength=1"`
	Redirects  []Redirect `yaml:"redirects,omitempty" json:"redirects,omitempty"`
	BeforeEach []string   `yaml:"before_each,omitempty" json:"before_each,omitempty"`
	AfterEach  []string   `yaml:"after_each,omitempty" json:"after_each,omitempty"`
	Before     []Callback `yaml:"before,omitempty" json:"before,omitempty"`
	After      []Callback `yaml:"after,omitempty" json:"after,omitempty"`
	Handlers   []Handler  `yaml:"handlers,omitempty" json:"handlers,omitempty"`
	Calls      []Call     `yaml:"calls" json:"calls"`
	Expect     []string   `yaml:"expect,omitempty" json:"expect,omitempty"`
}

// Redirect aliases From to To.
type Redirect struct {
	From string `yaml:"from" json:"from" jsonschema:"minLength=1"`
	To   string `yaml:"to" json:"to" jsonschema:"minLength=1"`
}

// Callback is a per-name before or after callback.
type Callback struct {
	Name  string `yaml:"name" json:"name" jsonschema:"minLength=1"`
	Label string `yaml:"label" json:"label" jsonschema:"minLength=1"`
	Fail  string `yaml:"fail,omitempty" json:"fail,omitempty"`
}

// Handler is a main-stage handler. Fail makes it return an error with that
// message after it is traced.
type Handler struct {
	Name  string `yaml:"name" json:"name" jsonschema:"minLength=1"`
	Label string `yaml:"label" json:"label" jsonschema:"minLength=1"`
	Once  bool   `yaml:"once,omitempty" json:"once,omitempty"`
	Fail  string `yaml:"fail,omitempty" json:"fail,omitempty"`
}

// Call is one dispatch with its arguments.
type Call struct {
	Name string `yaml:"name" json:"name" jsonschema:"minLength=1"`
	Args []any  `yaml:"args,omitempty" json:"args,omitempty"`
}

// Parse validates data against the scenario schema and decodes it.
func Parse(data []byte) (*Scenario, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, ErrInvalid(err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, ErrInvalid(err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

// LoadFile reads and parses a scenario file.
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, oops.In("scenario").With("path", path).Hint("failed to read scenario file").Wrap(err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, oops.In("scenario").With("path", path).Wrap(err)
	}
	return s, nil
}

// Validate checks constraints the schema cannot express.
func (s *Scenario) Validate() error {
	version, err := semver.NewVersion(s.Version)
	if err != nil {
		return ErrUnsupportedVersion(s.Version, err)
	}
	constraint, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return oops.In("scenario").Wrap(err)
	}
	if !constraint.Check(version) {
		return ErrUnsupportedVersion(s.Version, nil)
	}

	if len(s.Calls) == 0 {
		return ErrInvalid(oops.Errorf("at least one call is required"))
	}

	for i, label := range s.BeforeEach {
		if strings.TrimSpace(label) == "" {
			return ErrInvalid(oops.Errorf("before_each[%d]: label is required", i))
		}
	}
	for i, label := range s.AfterEach {
		if strings.TrimSpace(label) == "" {
			return ErrInvalid(oops.Errorf("after_each[%d]: label is required", i))
		}
	}

	return nil
}
