// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/statesync/lib/clock"
	"github.com/bureau-foundation/statesync/lib/codec"
	"github.com/bureau-foundation/statesync/lib/colormap"
	"github.com/bureau-foundation/statesync/lib/command"
	"github.com/bureau-foundation/statesync/lib/schema/statesync"
	"github.com/bureau-foundation/statesync/lib/service"
	"github.com/bureau-foundation/statesync/lib/statestore"
)

// StateService is the core service state.
type StateService struct {
	authority *colormap.Authority
	store     *statestore.Store
	clock     clock.Clock

	// catalogFile is reread by reload_catalog. Empty means the
	// built-in catalog, which cannot be reloaded.
	catalogFile string

	heartbeatInterval time.Duration

	// subscriberBuffer is the event buffer of each subscribe stream.
	// Zero means statestore.DefaultBuffer.
	subscriberBuffer int

	// frameWriteTimeout bounds each subscribe frame write. Zero means
	// defaultFrameWriteTimeout.
	frameWriteTimeout time.Duration

	startedAt time.Time
	logger    *slog.Logger
}

// registerActions wires every socket action.
func (s *StateService) registerActions(server *service.SocketServer) {
	server.Handle(statesync.ActionStatus, s.handleStatus)
	server.Handle(statesync.ActionCommand, s.handleCommand)
	server.Handle(statesync.ActionReloadCatalog, s.handleReloadCatalog)
	server.HandleStream(statesync.ActionSubscribe, s.handleSubscribe)
}

func (s *StateService) handleStatus(ctx context.Context, raw []byte) (any, error) {
	return statesync.StatusResponse{
		Objects:       s.authority.Objects(),
		Maps:          s.authority.Catalog().Names(),
		Paths:         s.store.Len(),
		Subscribers:   s.store.Subscribers(),
		UptimeSeconds: int64(s.clock.Now().Sub(s.startedAt) / time.Second),
	}, nil
}

// handleCommand executes one command. An object's refusal is a
// successful response with Rejected set, so clients can tell it apart
// from a command that never reached an object.
func (s *StateService) handleCommand(ctx context.Context, raw []byte) (any, error) {
	var request statesync.CommandRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	if request.Command == "" {
		return nil, errors.New("missing required field: command")
	}

	payload, err := s.authority.Execute(request.Command, request.Params)
	var rejected *command.RejectedError
	switch {
	case errors.As(err, &rejected):
		s.logger.Info("command rejected",
			"command", request.Command,
			"params", request.Params,
			"reason", rejected.Reason,
		)
		return statesync.CommandReply{Rejected: true, Reason: rejected.Reason}, nil
	case err != nil:
		s.logger.Debug("command not routed", "command", request.Command, "error", err)
		return nil, err
	}

	s.logger.Debug("command executed", "command", request.Command, "params", request.Params)
	return statesync.CommandReply{Payload: payload}, nil
}

func (s *StateService) handleReloadCatalog(ctx context.Context, raw []byte) (any, error) {
	catalog, err := s.reloadCatalog()
	if err != nil {
		return nil, err
	}
	return statesync.ReloadCatalogResponse{Maps: catalog.Names()}, nil
}

// reloadCatalog rereads catalogFile and publishes it. Objects keep
// their current map even if the new catalog drops it.
func (s *StateService) reloadCatalog() (*colormap.Catalog, error) {
	if s.catalogFile == "" {
		return nil, errors.New("no catalog file configured")
	}
	catalog, err := colormap.LoadCatalog(s.catalogFile)
	if err != nil {
		return nil, err
	}
	if err := s.authority.SetCatalog(catalog); err != nil {
		return nil, err
	}
	s.logger.Info("catalog reloaded", "file", s.catalogFile, "maps", catalog.Len())
	return catalog, nil
}
