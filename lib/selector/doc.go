// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package selector implements the client side of colormap selection:
// it mirrors the server's colormap catalog and the bound target's
// intensity bounds, and turns user selections into setColormap
// commands.
//
// A Selector is not safe for concurrent use. Every method, and every
// shared-variable notification and command outcome that reaches it,
// must run on one execution context, normally an eventloop.Loop.
// Under that discipline no handler can observe a partially updated
// Selector.
//
// Selection rules:
//
//   - On every catalog notification the option list is rebuilt. The
//     previous selection is kept if it is still offered, otherwise the
//     first option is selected, otherwise nothing is.
//   - A user selection ([Selector.Select]) updates the displayed
//     selection immediately and sends one setColormap command. Success
//     changes nothing; the next catalog or state notification is
//     authoritative.
//   - A rejection carries the map name to revert to, and the revert is
//     applied to whatever is displayed when it arrives, even if a newer
//     selection has been made since. Rejections are not ordered against
//     newer requests.
//   - Malformed payloads are logged and leave the view untouched.
package selector
