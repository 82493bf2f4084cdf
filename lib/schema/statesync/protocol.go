// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package statesync defines the socket protocol between the state
// authority (statesync-service) and its clients: action names, the
// command request and reply, the status response, and the subscribe
// stream frames.
//
// All messages are CBOR (see lib/codec). Shared-variable values travel
// as opaque strings; their content is defined per path by the schema
// packages that own those paths (lib/schema/colormap).
package statesync

// Action names served by statesync-service.
const (
	// ActionStatus is unary and returns [StatusResponse].
	ActionStatus = "status"

	// ActionCommand is unary. The request carries [CommandRequest]
	// fields and the reply data is [CommandReply].
	ActionCommand = "command"

	// ActionReloadCatalog is unary. It rereads the colormap catalog
	// file and republishes the catalog. The reply data is
	// [ReloadCatalogResponse].
	ActionReloadCatalog = "reload_catalog"

	// ActionSubscribe opens a stream of [SubscribeFrame] values. The
	// request carries [SubscribeRequest] fields.
	ActionSubscribe = "subscribe"
)

// CommandRequest is the action-specific part of a "command" request.
type CommandRequest struct {
	// Command is the qualified command name, "<target>:<name>".
	Command string `cbor:"command"`

	// Params is the encoded parameter string ("name:cool").
	Params string `cbor:"params"`
}

// CommandReply is the data of a successful "command" response. The
// response is ok whenever the authority reached the addressed object,
// whether the object executed the command or refused it. Failures to
// route the command (unknown object, malformed name) are ok=false
// service errors instead.
type CommandReply struct {
	// Payload is the command's result when it was executed.
	Payload string `cbor:"payload,omitempty"`

	// Rejected is true when the object refused the command.
	Rejected bool `cbor:"rejected,omitempty"`

	// Reason is the object's refusal payload. For setColormap it is
	// the map name the caller should revert to.
	Reason string `cbor:"reason,omitempty"`
}

// StatusResponse is the data of a "status" response.
type StatusResponse struct {
	Objects       []string `cbor:"objects"`
	Maps          []string `cbor:"maps"`
	Paths         int      `cbor:"paths"`
	Subscribers   int      `cbor:"subscribers"`
	UptimeSeconds int64    `cbor:"uptime_seconds"`
}

// ReloadCatalogResponse is the data of a "reload_catalog" response.
type ReloadCatalogResponse struct {
	Maps []string `cbor:"maps"`
}

// SubscribeRequest is the action-specific part of a "subscribe"
// request.
type SubscribeRequest struct {
	// Prefixes restricts the stream to paths equal to or below one of
	// the prefixes. Empty subscribes to every path.
	Prefixes []string `cbor:"prefixes,omitempty"`
}

// SubscribeFrameType enumerates the frame types of the subscribe
// stream.
type SubscribeFrameType string

const (
	// FrameUpdate carries the current value of Path. The initial
	// snapshot is a run of update frames.
	FrameUpdate SubscribeFrameType = "update"

	// FrameAbsent reports that Path no longer has a value.
	FrameAbsent SubscribeFrameType = "absent"

	// FrameCaughtUp ends a snapshot. Every path the client knew before
	// the snapshot that was not in it has been removed. Live updates
	// follow.
	FrameCaughtUp SubscribeFrameType = "caught_up"

	// FrameHeartbeat is a connection liveness probe. The client
	// should consider the connection dead if no frame of any type
	// arrives within 2x the heartbeat interval.
	FrameHeartbeat SubscribeFrameType = "heartbeat"

	// FrameResync reports subscriber buffer overflow. Some updates
	// were dropped; a fresh snapshot and caught_up follow.
	FrameResync SubscribeFrameType = "resync"

	// FrameError is a terminal error. The connection closes after
	// this frame.
	FrameError SubscribeFrameType = "error"
)

// SubscribeFrame is a single CBOR value written on a subscribe stream.
// The Type field discriminates frame semantics.
type SubscribeFrame struct {
	Type    SubscribeFrameType `cbor:"type"`
	Path    string             `cbor:"path,omitempty"`    // for FrameUpdate, FrameAbsent
	Value   string             `cbor:"value,omitempty"`   // for FrameUpdate
	Message string             `cbor:"message,omitempty"` // for FrameError
}
