// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Exit codes used by the statesync binaries.
const (
	ExitFailure = 1
	ExitUsage   = 2
)

// UsageError marks an error caused by bad command-line input. Fatal
// exits with ExitUsage for it.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

// Usage wraps err as a UsageError. A nil err stays nil.
func Usage(err error) error {
	if err == nil {
		return nil
	}
	return &UsageError{Err: err}
}

// ExitCode returns the process exit code for err: 0 for nil,
// ExitUsage for a UsageError anywhere in the chain, ExitFailure
// otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var usage *UsageError
	if errors.As(err, &usage) {
		return ExitUsage
	}
	return ExitFailure
}

// Report writes "error: err" to w and returns the exit code for err.
func Report(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintf(w, "error: %v\n", err)
	return ExitCode(err)
}

// Fatal reports err on stderr and exits. It is the entrypoint error
// handler for errors from run(), where the structured logger may not
// exist yet.
func Fatal(err error) {
	os.Exit(Report(os.Stderr, err))
}
