// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
)

// Options configures a Dispatcher.
type Options struct {
	// OverdueAfter logs a warning for every request whose outcome has
	// not arrived after this long. The request itself is left alone.
	// Zero disables overdue tracking.
	OverdueAfter time.Duration
}

// inFlight is what the overdue tracker remembers about a request.
type inFlight struct {
	command string
	sentAt  time.Time
}

// Dispatcher is a Channel over a Transport. Outcomes are posted to an
// Executor.
type Dispatcher struct {
	ctx       context.Context
	transport Transport
	executor  Executor
	logger    *slog.Logger

	pending   atomic.Int64
	overdue   *ttlcache.Cache[string, inFlight]
	closeOnce sync.Once
}

// NewDispatcher returns a Dispatcher. ctx bounds every transport call
// the dispatcher makes: cancelling it fails the calls still in flight,
// and their handlers receive the context error. Call Close when done.
func NewDispatcher(ctx context.Context, transport Transport, executor Executor, logger *slog.Logger, options Options) *Dispatcher {
	dispatcher := &Dispatcher{
		ctx:       ctx,
		transport: transport,
		executor:  executor,
		logger:    logger,
	}
	if options.OverdueAfter > 0 {
		dispatcher.overdue = ttlcache.New[string, inFlight](
			ttlcache.WithTTL[string, inFlight](options.OverdueAfter),
			ttlcache.WithDisableTouchOnHit[string, inFlight](),
		)
		dispatcher.overdue.OnEviction(dispatcher.onEviction)
		go dispatcher.overdue.Start()
	}
	return dispatcher
}

// Send dispatches request and returns its ID. The outcome is posted
// to the executor exactly once. If the executor has stopped, the
// outcome is dropped and logged.
func (d *Dispatcher) Send(request Request) string {
	requestID := uuid.NewString()
	qualified := request.Qualified()
	d.pending.Add(1)
	if d.overdue != nil {
		d.overdue.Set(requestID, inFlight{command: qualified, sentAt: time.Now()}, ttlcache.DefaultTTL)
	}

	// Encode on the caller's goroutine so parameter mistakes are
	// attributed to the request that made them.
	encoded, encodeErr := request.Params.Encode()

	go func() {
		outcome := Outcome{RequestID: requestID}
		switch {
		case request.Target == "":
			outcome.Err = ErrUnbound
		case encodeErr != nil:
			outcome.Err = fmt.Errorf("encoding parameters for %s: %w", qualified, encodeErr)
		default:
			outcome.Payload, outcome.Err = d.transport.Call(d.ctx, qualified, encoded)
		}
		d.deliver(qualified, request.Handler, outcome)
	}()

	d.logger.Debug("command sent",
		"request_id", requestID,
		"command", qualified,
		"params", encoded,
	)
	return requestID
}

// Pending returns the number of requests whose outcome has not been
// delivered yet.
func (d *Dispatcher) Pending() int {
	return int(d.pending.Load())
}

// Close stops overdue tracking. Requests still in flight deliver
// their outcomes normally.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		if d.overdue != nil {
			d.overdue.Stop()
		}
	})
}

func (d *Dispatcher) deliver(qualified string, handler OutcomeHandler, outcome Outcome) {
	posted := d.executor.Post(func() {
		d.settle(outcome.RequestID)
		if outcome.Err != nil {
			d.logger.Debug("command failed",
				"request_id", outcome.RequestID,
				"command", qualified,
				"error", outcome.Err,
			)
		}
		if handler != nil {
			handler(outcome)
		}
	})
	if !posted {
		d.settle(outcome.RequestID)
		d.logger.Warn("dropping command outcome, executor stopped",
			"request_id", outcome.RequestID,
			"command", qualified,
		)
	}
}

func (d *Dispatcher) settle(requestID string) {
	d.pending.Add(-1)
	if d.overdue != nil {
		d.overdue.Delete(requestID)
	}
}

func (d *Dispatcher) onEviction(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, inFlight]) {
	if reason != ttlcache.EvictionReasonExpired {
		return
	}
	entry := item.Value()
	d.logger.Warn("command outcome overdue",
		"request_id", item.Key(),
		"command", entry.command,
		"elapsed", time.Since(entry.sentAt).Round(time.Millisecond),
	)
}
