// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// statesync-selector is a headless colormap selector. It mirrors the
// colormap catalog and the bound target's intensity bounds from
// statesync-service, prints the selector's view whenever it changes,
// and reads commands from stdin:
//
//	select <name>   ask the service to switch the target's colormap
//	target <id>     bind the selector to another object
//	show            print the current view
//	quit            exit (end of input also exits)
//
// A rejected selection is rolled back to the colormap the service
// reports. Selections are sent without waiting for the previous
// outcome; outcomes missing for longer than client.overdue_after are
// logged.
package main
