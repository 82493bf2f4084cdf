// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package eventloop runs client callbacks one at a time on a single
// goroutine.
//
// Shared-variable notifications, command outcomes, and user actions
// all mutate consumer state such as the selector's displayed
// selection. Posting every one of them to the same Loop means they
// never run concurrently with each other, so consumer state needs no
// locks: each posted function runs to completion before the next one
// starts.
package eventloop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrStopped is returned by Do once the loop has stopped.
var ErrStopped = errors.New("eventloop: stopped")

// Loop is a FIFO executor backed by one goroutine (the one calling
// Run).
type Loop struct {
	logger *slog.Logger
	queue  chan func()

	stopOnce sync.Once
	stopped  chan struct{}
}

// New returns a Loop whose queue holds capacity pending functions
// before Post blocks. A nil logger means slog.Default().
func New(logger *slog.Logger, capacity int) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	if capacity < 1 {
		capacity = 1
	}
	return &Loop{
		logger:  logger,
		queue:   make(chan func(), capacity),
		stopped: make(chan struct{}),
	}
}

// Run executes posted functions until ctx is cancelled. Functions
// still queued at cancellation are dropped. Run returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	defer l.stopOnce.Do(func() { close(l.stopped) })
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.queue:
			l.execute(fn)
		}
	}
}

// Post queues fn for execution. It blocks while the queue is full and
// returns false if the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.stopped:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	case <-l.stopped:
		return false
	}
}

// Do posts fn and waits for it to finish. Use it to read consumer state
// from outside the loop. Do must not be called from inside the loop.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stopped is closed once Run has returned.
func (l *Loop) Stopped() <-chan struct{} { return l.stopped }

func (l *Loop) execute(fn func()) {
	defer func() {
		if recovered := recover(); recovered != nil {
			l.logger.Warn("event loop function panicked", "panic", recovered)
		}
	}()
	fn()
}
