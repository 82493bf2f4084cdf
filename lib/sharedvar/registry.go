// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sharedvar

import (
	"log/slog"
	"sort"
	"sync"
)

// Registry owns the Variables of one client connection.
type Registry struct {
	logger *slog.Logger

	mu        sync.Mutex
	variables map[string]*Variable
}

// NewRegistry returns an empty registry. A nil logger means
// slog.Default().
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:    logger,
		variables: make(map[string]*Variable),
	}
}

// Bind returns the Variable for raw, creating it on first use. Errors
// are *BindingError for empty or malformed paths.
func (r *Registry) Bind(raw string) (*Variable, error) {
	path, err := ParsePath(raw)
	if err != nil {
		return nil, err
	}
	return r.BindPath(path), nil
}

// BindPath is Bind for an already validated path.
func (r *Registry) BindPath(path Path) *Variable {
	if path.IsZero() {
		panic("sharedvar: BindPath with zero Path")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.obtainLocked(path)
}

// Lookup returns the Variable for raw if one exists.
func (r *Registry) Lookup(raw string) (*Variable, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	variable, ok := r.variables[raw]
	return variable, ok
}

// Deliver routes an authoritative update to the Variable for raw,
// creating the Variable if nobody has bound it yet.
func (r *Registry) Deliver(raw, value string) error {
	variable, err := r.Bind(raw)
	if err != nil {
		return err
	}
	variable.DeliverUpdate(value)
	return nil
}

// DeliverAbsent marks the Variable for raw as having no usable value.
func (r *Registry) DeliverAbsent(raw string) error {
	variable, err := r.Bind(raw)
	if err != nil {
		return err
	}
	variable.DeliverAbsent()
	return nil
}

// Paths returns every known path in sorted order.
func (r *Registry) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	paths := make([]string, 0, len(r.variables))
	for path := range r.variables {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func (r *Registry) obtainLocked(path Path) *Variable {
	if variable, ok := r.variables[path.String()]; ok {
		return variable
	}
	variable := newVariable(path, r.logger)
	r.variables[path.String()] = variable
	r.logger.Debug("shared variable created", "path", path.String())
	return variable
}
