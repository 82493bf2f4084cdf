// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package colormap

import "fmt"

// Payload kinds reported in ParseError.Kind.
const (
	KindOptions = "options"
	KindBounds  = "bounds"
	KindState   = "state"
)

// ParseError is a payload that could not be decoded or failed
// validation. Raw is the payload as received.
type ParseError struct {
	Kind string
	Raw  string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s payload: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
