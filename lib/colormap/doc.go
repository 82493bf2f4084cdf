// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package colormap is the server-side authority for colormap state.
//
// An [Authority] owns a [Catalog] of colormap names and one [Object]
// per target entity. It publishes everything it owns into a
// statestore.Store, which the service streams to clients as shared
// variables:
//
//	colormaps      the catalog (OptionsPayload)
//	<id>           the object's full state (StatePayload)
//	<id>/data      the object's intensity bounds (BoundsPayload)
//
// Commands arrive as "<id>:<command>" with "key:value" parameters and
// are routed by [Authority.Execute]. A command the object refuses
// returns a *command.RejectedError. For setColormap the rejection
// reason is the object's current colormap name, so a client can put
// its display back; for every other command it is a human-readable
// message. Routing failures (unknown object or command) are plain
// errors.
//
// Commands that leave state unchanged publish nothing.
package colormap
