// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bureau-foundation/statesync/lib/sharedvar"
)

// ErrUnbound reports a command that has no target entity. Consumers
// return it when user interaction arrives before a target is bound.
var ErrUnbound = errors.New("command: no target bound")

// Qualify returns the wire command name "<target>:<name>".
func Qualify(target, name string) string {
	return target + sharedvar.CommandSeparator + name
}

// SplitQualified reverses Qualify. Target paths cannot contain the
// separator, so the first occurrence splits the two.
func SplitQualified(qualified string) (target, name string, err error) {
	target, name, found := strings.Cut(qualified, sharedvar.CommandSeparator)
	if !found {
		return "", "", fmt.Errorf("command %q has no target (expected <target>%s<name>)", qualified, sharedvar.CommandSeparator)
	}
	if target == "" {
		return "", "", fmt.Errorf("command %q has an empty target", qualified)
	}
	if name == "" || strings.Contains(name, sharedvar.CommandSeparator) {
		return "", "", fmt.Errorf("command %q has an invalid name", qualified)
	}
	return target, name, nil
}

// Request is one command to send.
type Request struct {
	// Target is the entity the command applies to, for example "img1".
	Target string

	// Name is the unqualified command name, for example "setColormap".
	Name string

	Params Params

	// Handler receives the outcome. Nil discards it.
	Handler OutcomeHandler
}

// Qualified returns Qualify(r.Target, r.Name).
func (r Request) Qualified() string {
	return Qualify(r.Target, r.Name)
}

// OutcomeHandler is invoked exactly once per request, on the
// dispatcher's executor.
type OutcomeHandler func(Outcome)

// Outcome is the result of one request: a payload on success, or Err
// on failure.
type Outcome struct {
	RequestID string
	Payload   string
	Err       error
}

// Succeeded reports whether the authority accepted the command.
func (o Outcome) Succeeded() bool { return o.Err == nil }

// Rejection returns the *RejectedError carried by o, if any.
func (o Outcome) Rejection() (*RejectedError, bool) {
	var rejected *RejectedError
	if errors.As(o.Err, &rejected) {
		return rejected, true
	}
	return nil, false
}

// RejectedError is the authority refusing a command. Reason is the
// authority's payload verbatim. For setColormap it is the map name the
// client should revert to.
type RejectedError struct {
	Command string
	Reason  string
}

func (e *RejectedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("command %s rejected", e.Command)
	}
	return fmt.Sprintf("command %s rejected: %s", e.Command, e.Reason)
}

// Channel sends commands. Send never blocks on the remote side.
type Channel interface {
	Send(request Request) (requestID string)
}

// Transport carries one encoded command to the authority and returns
// its reply. A refusal is returned as *RejectedError.
type Transport interface {
	Call(ctx context.Context, command, params string) (string, error)
}

// Executor runs outcome handlers. Post returns false if fn will never
// run.
type Executor interface {
	Post(fn func()) bool
}
