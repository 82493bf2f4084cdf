// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sharedvar mirrors server-owned state cells on the client.
//
// A [Variable] is a named, remotely backed value: the last payload the
// authority pushed for its [Path], plus an ordered list of change
// callbacks. Application code reads it with [Variable.Get] and learns
// about changes through [Variable.OnChange]; it never writes to it.
// Only the transport calls [Variable.DeliverUpdate], and only with an
// authoritative value. There is no optimistic local write: a consumer
// that wants a different value sends a command and waits for the next
// push.
//
// Callbacks take no arguments and re-read Get themselves. They run
// synchronously inside DeliverUpdate, in registration order, each
// isolated from the others: a panicking callback is recovered and
// logged, and the remaining callbacks still run. Registering the same
// function twice yields two invocations per update.
//
// A [Registry] resolves paths to Variables. It replaces an ambient
// global path table: whoever needs to bind paths is handed the
// registry explicitly. Binding the same path twice returns the same
// Variable, and an update for a path nobody has bound yet is cached so
// a later Bind sees it.
//
// Variables do not parse their payloads. Consumers own parsing and
// validation, and must contain parse failures in their own callback.
package sharedvar
