// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"net"
	"time"

	"github.com/bureau-foundation/statesync/lib/codec"
	"github.com/bureau-foundation/statesync/lib/schema/statesync"
	"github.com/bureau-foundation/statesync/lib/sharedvar"
	"github.com/bureau-foundation/statesync/lib/statestore"
)

// handleSubscribe is the stream handler for the "subscribe" action. It
// registers a store subscription, writes the snapshot followed by
// caught_up, then forwards live changes until the client goes away or
// the server shuts down.
//
// Registration and snapshot collection are atomic in the store, so no
// change between them is lost. All network I/O happens outside the
// store lock; changes made while the snapshot is being written wait in
// the subscription buffer.
func (s *StateService) handleSubscribe(ctx context.Context, raw []byte, conn net.Conn) {
	writer := &frameWriter{conn: conn, encoder: codec.NewEncoder(conn), timeout: s.frameWriteTimeout}

	var request statesync.SubscribeRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		writer.Encode(statesync.SubscribeFrame{Type: statesync.FrameError, Message: "invalid request: " + err.Error()})
		return
	}
	prefixes := make([]sharedvar.Path, 0, len(request.Prefixes))
	for _, rawPrefix := range request.Prefixes {
		prefix, err := sharedvar.ParsePath(rawPrefix)
		if err != nil {
			writer.Encode(statesync.SubscribeFrame{Type: statesync.FrameError, Message: err.Error()})
			return
		}
		prefixes = append(prefixes, prefix)
	}

	subscription, snapshot := s.store.Subscribe(prefixes, s.subscriberBuffer)
	defer s.store.Unsubscribe(subscription)

	s.logger.Info("subscribe stream started",
		"prefixes", request.Prefixes,
		"paths", len(snapshot),
	)
	defer s.logger.Info("subscribe stream ended", "prefixes", request.Prefixes)

	if err := writeSnapshot(writer, snapshot); err != nil {
		s.logger.Debug("subscribe stream write error during snapshot", "error", err)
		return
	}

	s.subscribeEventLoop(ctx, writer, subscription)
}

// defaultFrameWriteTimeout bounds a single frame write. A subscriber
// that stops reading for longer is dropped; it resubscribes and gets a
// fresh snapshot.
const defaultFrameWriteTimeout = 10 * time.Second

// frameWriter encodes subscribe frames with a write deadline on each.
type frameWriter struct {
	conn    net.Conn
	encoder *codec.Encoder
	timeout time.Duration
}

// Encode writes one frame. The deadline is wall-clock time because the
// kernel enforces it, whatever clock the service runs on.
func (w *frameWriter) Encode(frame statesync.SubscribeFrame) error {
	timeout := w.timeout
	if timeout <= 0 {
		timeout = defaultFrameWriteTimeout
	}
	if err := w.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	return w.encoder.Encode(frame)
}

// writeSnapshot writes one update frame per entry, then caught_up.
func writeSnapshot(writer *frameWriter, snapshot []statestore.Entry) error {
	for _, entry := range snapshot {
		if err := writer.Encode(statesync.SubscribeFrame{
			Type:  statesync.FrameUpdate,
			Path:  entry.Path,
			Value: entry.Value,
		}); err != nil {
			return err
		}
	}
	return writer.Encode(statesync.SubscribeFrame{Type: statesync.FrameCaughtUp})
}

// subscribeEventLoop forwards store events as frames. Runs until the
// context is cancelled or a write fails.
//
// When the subscription overflowed, the buffered events are stale:
// the loop writes a resync frame and a fresh snapshot instead of
// forwarding them.
func (s *StateService) subscribeEventLoop(ctx context.Context, writer *frameWriter, subscription *statestore.Subscription) {
	heartbeat := s.clock.NewTicker(s.heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event := <-subscription.Events():
			// The store applied this event before publishing it, so a
			// fresh snapshot includes its effect.
			if subscription.NeedsResync() {
				if err := writer.Encode(statesync.SubscribeFrame{Type: statesync.FrameResync}); err != nil {
					s.logger.Debug("subscribe stream write error", "error", err)
					return
				}
				if err := writeSnapshot(writer, subscription.Resync()); err != nil {
					s.logger.Debug("subscribe stream write error during resync", "error", err)
					return
				}
				continue
			}

			frame := statesync.SubscribeFrame{Type: statesync.FrameUpdate, Path: event.Path, Value: event.Value}
			if event.Absent {
				frame = statesync.SubscribeFrame{Type: statesync.FrameAbsent, Path: event.Path}
			}
			if err := writer.Encode(frame); err != nil {
				s.logger.Debug("subscribe stream write error", "error", err)
				return
			}

		case <-heartbeat.C:
			if err := writer.Encode(statesync.SubscribeFrame{Type: statesync.FrameHeartbeat}); err != nil {
				s.logger.Debug("subscribe stream write error on heartbeat", "error", err)
				return
			}
		}
	}
}
