// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package command sends named commands to a remote authority and
// delivers each command's outcome asynchronously.
//
// A command is addressed to a target entity by its qualified name,
// "<target>:<name>" (see [Qualify]). Parameters are modelled as an
// ordered [Params] sequence and only flattened to the "key:value,..."
// wire string at the transport boundary ([Params.Encode]).
//
// [Dispatcher] is the [Channel] implementation used by clients:
//
//   - [Dispatcher.Send] returns immediately with a request ID. The
//     transport call runs on its own goroutine.
//   - Exactly one [Outcome] is delivered per request, by posting the
//     request's [OutcomeHandler] onto an [Executor]. With an
//     eventloop.Loop as executor, outcomes run on the same goroutine
//     as shared-variable notifications and user actions.
//   - Outcomes are unordered relative to each other. A late outcome
//     may arrive after newer state has already been rendered.
//   - There is no timeout, retry, or cancellation of an individual
//     request. An outcome that never arrives leaves the handler
//     un-invoked. When [Options.OverdueAfter] is set, such requests
//     are logged once so a stuck command is visible in the logs.
//
// A refusal by the authority is delivered as a [*RejectedError] whose
// Reason is the authority's payload. Transport failures are delivered
// as other errors. Consumers that roll back on rejection should check
// with errors.As and leave transport failures alone.
package command
