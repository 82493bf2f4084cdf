// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the Unix socket protocol shared by the
// statesync service and its clients.
//
// Every connection carries exactly one request: the client writes one
// CBOR map with an "action" field plus action-specific fields, and the
// server routes it by action.
//
//   - Unary actions ([SocketServer.Handle]) answer with one
//     [Response] ({ok, error, data}) and the connection closes.
//     [ServiceClient.Call] is the client side; a response with ok=false
//     becomes a [*ServiceError].
//   - Stream actions ([SocketServer.HandleStream]) take over the
//     connection and write CBOR frames until the handler returns or
//     the server shuts down. [ServiceClient.OpenStream] is the client
//     side and returns a [Stream] to decode frames from.
//
// CBOR is self-delimiting, so neither direction needs framing. Request
// size is capped and the request must arrive within a read deadline;
// stream connections clear the deadline once the request is read.
//
// Services compose the server with their own handlers in main() rather
// than subclassing a framework.
package service
