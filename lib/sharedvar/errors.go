// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sharedvar

import "fmt"

// BindingError reports a path that cannot name a state cell.
type BindingError struct {
	Path   string
	Reason string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("sharedvar: cannot bind %q: %s", e.Path, e.Reason)
}
