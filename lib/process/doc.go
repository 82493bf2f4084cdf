// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for the statesync
// binaries. These functions centralize the raw I/O that exists before
// or after the structured logger:
//
//   - [Fatal] reports an error from run() to stderr, where the logger
//     may not be initialized, and exits. Errors wrapped with [Usage]
//     exit with [ExitUsage].
//   - [NewLogger] builds the slog logger from the configured level and
//     format.
package process
