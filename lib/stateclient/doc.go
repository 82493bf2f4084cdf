// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package stateclient is the client side of the statesync socket
// protocol.
//
// [Client.Run] keeps a subscribe stream open to statesync-service and
// feeds every pushed value into a [sharedvar.Registry]. Deliveries are
// posted onto an executor (normally the process's eventloop.Loop), so
// change callbacks run on the same goroutine as command outcomes and
// user actions. When the stream drops, Run resubscribes with
// exponential backoff; the snapshot that opens each stream is
// reconciled against the paths known from the previous one, and paths
// that vanished in between are delivered as absent.
//
// [Client.Call] implements [command.Transport] over the "command"
// action, which makes a Client the transport of a command.Dispatcher.
package stateclient
