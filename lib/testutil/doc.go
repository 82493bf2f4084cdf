// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds helpers shared by statesync tests.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern so tests waiting on an outcome, a pushed update, or a
// readiness channel fail instead of hanging. They are the only place
// in the tests that use a real wall-clock timeout.
//
// [SocketDir] returns a short directory under /tmp for unix sockets,
// whose paths are limited to 108 bytes; t.TempDir() paths can exceed
// that.
//
// Helpers call t.Fatalf on failure.
package testutil
