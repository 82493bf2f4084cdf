// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stateclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/bureau-foundation/statesync/lib/clock"
	"github.com/bureau-foundation/statesync/lib/command"
	"github.com/bureau-foundation/statesync/lib/schema/statesync"
	"github.com/bureau-foundation/statesync/lib/service"
	"github.com/bureau-foundation/statesync/lib/sharedvar"
)

// Options configures a Client. Zero fields take the defaults below.
type Options struct {
	// Prefixes restricts the subscription. Empty subscribes to every
	// path.
	Prefixes []string

	// ReconnectDelay is the first backoff delay after a failed
	// subscribe attempt. Default 1s.
	ReconnectDelay time.Duration

	// MaxReconnectDelay caps the backoff. Default 30s.
	MaxReconnectDelay time.Duration

	// IdleTimeout closes a stream that delivers no frame for this
	// long, which triggers a resubscribe. Set it to twice the
	// server's heartbeat interval. Zero disables the check.
	IdleTimeout time.Duration

	// Clock drives the reconnect pauses and the idle timer. Default
	// clock.Real().
	Clock clock.Clock
}

const (
	defaultReconnectDelay    = 1 * time.Second
	defaultMaxReconnectDelay = 30 * time.Second
)

var _ command.Transport = (*Client)(nil)

// Client mirrors server state into a Registry and sends commands.
type Client struct {
	service  *service.ServiceClient
	registry *sharedvar.Registry
	executor command.Executor
	logger   *slog.Logger
	options  Options

	// known and snapshot are owned by the Run goroutine. known holds
	// every path with a delivered value; snapshot is non-nil while a
	// snapshot is being received and collects the paths it named.
	known    map[string]bool
	snapshot map[string]bool

	// sessionStarted is when the latest subscribe stream connected.
	sessionStarted time.Time

	caughtUpOnce sync.Once
	caughtUp     chan struct{}
}

// New returns a Client for the service at socketPath. Nothing connects
// until Run.
func New(socketPath string, registry *sharedvar.Registry, executor command.Executor, logger *slog.Logger, options Options) *Client {
	if options.ReconnectDelay <= 0 {
		options.ReconnectDelay = defaultReconnectDelay
	}
	if options.MaxReconnectDelay <= 0 {
		options.MaxReconnectDelay = defaultMaxReconnectDelay
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	return &Client{
		service:  service.NewServiceClient(socketPath),
		registry: registry,
		executor: executor,
		logger:   logger,
		options:  options,
		known:    make(map[string]bool),
		caughtUp: make(chan struct{}),
	}
}

// CaughtUp is closed once the first snapshot has been delivered.
func (c *Client) CaughtUp() <-chan struct{} { return c.caughtUp }

// Run subscribes and delivers updates until ctx is cancelled, then
// returns nil. It returns an error only when the service refuses the
// subscription, which retrying cannot fix.
//
// Failed connection attempts back off from ReconnectDelay up to
// MaxReconnectDelay. A stream that caught up and later ended is
// followed by a pause before resubscribing: ReconnectDelay if the
// stream stayed up for at least MaxReconnectDelay, otherwise double the
// previous pause, capped at MaxReconnectDelay. A server that accepts,
// replays and closes is therefore retried at a bounded rate.
func (c *Client) Run(ctx context.Context) error {
	pause := c.options.ReconnectDelay
	for {
		err := retry.Do(
			func() error { return c.session(ctx) },
			retry.Context(ctx),
			retry.Attempts(0),
			retry.Delay(c.options.ReconnectDelay),
			retry.MaxDelay(c.options.MaxReconnectDelay),
			retry.DelayType(retry.BackOffDelay),
			retry.LastErrorOnly(true),
			retry.WithTimer(c.options.Clock),
			retry.OnRetry(func(attempt uint, err error) {
				c.logger.Warn("subscribe stream failed, retrying",
					"socket", c.service.SocketPath(),
					"attempt", attempt+1,
					"error", err,
				)
			}),
		)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}

		lived := c.options.Clock.Now().Sub(c.sessionStarted)
		stable := lived >= c.options.MaxReconnectDelay
		if stable {
			pause = c.options.ReconnectDelay
		}
		c.logger.Info("resubscribing after pause",
			"socket", c.service.SocketPath(),
			"session", lived,
			"pause", pause,
		)
		select {
		case <-ctx.Done():
			return nil
		case <-c.options.Clock.After(pause):
		}
		if !stable {
			pause = min(2*pause, c.options.MaxReconnectDelay)
		}
	}
}

// session runs one subscribe stream. It returns nil if the stream
// reached caught_up before ending, which ends the current retry.Do.
func (c *Client) session(ctx context.Context) error {
	fields := map[string]any{}
	if len(c.options.Prefixes) > 0 {
		fields["prefixes"] = c.options.Prefixes
	}
	stream, err := c.service.OpenStream(ctx, statesync.ActionSubscribe, fields)
	if err != nil {
		return err
	}
	defer stream.Close()

	c.sessionStarted = c.options.Clock.Now()
	c.logger.Info("subscribe stream connected", "socket", c.service.SocketPath())
	c.beginSnapshot()

	caughtUp, err := c.processFrames(stream)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var serviceErr *service.ServiceError
	if errors.As(err, &serviceErr) {
		return retry.Unrecoverable(err)
	}
	if caughtUp {
		c.logger.Warn("subscribe stream disconnected",
			"socket", c.service.SocketPath(),
			"error", err,
		)
		return nil
	}
	return err
}

// processFrames reads frames until the stream ends. It reports whether
// any snapshot was completed on this stream.
func (c *Client) processFrames(stream *service.Stream) (bool, error) {
	if c.options.IdleTimeout > 0 {
		idle := c.options.Clock.AfterFunc(c.options.IdleTimeout, func() { stream.Close() })
		defer idle.Stop()
		return c.readFrames(stream, func() { idle.Reset(c.options.IdleTimeout) })
	}
	return c.readFrames(stream, func() {})
}

func (c *Client) readFrames(stream *service.Stream, received func()) (bool, error) {
	caughtUp := false
	for {
		var frame statesync.SubscribeFrame
		if err := stream.Next(&frame); err != nil {
			return caughtUp, fmt.Errorf("reading frame: %w", err)
		}
		received()

		switch frame.Type {
		case statesync.FrameUpdate:
			c.applyUpdate(frame.Path, frame.Value)
		case statesync.FrameAbsent:
			c.applyAbsent(frame.Path)
		case statesync.FrameCaughtUp:
			c.finishSnapshot()
			caughtUp = true
			c.caughtUpOnce.Do(func() { close(c.caughtUp) })
			c.logger.Info("subscribe stream caught_up", "paths", len(c.known))
		case statesync.FrameHeartbeat:
			// Connection liveness; the idle timer was reset above.
		case statesync.FrameResync:
			c.beginSnapshot()
			c.logger.Info("subscribe stream resync")
		case statesync.FrameError:
			return caughtUp, fmt.Errorf("server error: %s", frame.Message)
		default:
			// Forward compatibility: ignore unknown frame types.
			c.logger.Debug("unknown subscribe frame type", "type", frame.Type)
		}
	}
}

func (c *Client) beginSnapshot() {
	c.snapshot = make(map[string]bool)
}

// finishSnapshot delivers absent for every known path the snapshot did
// not name.
func (c *Client) finishSnapshot() {
	if c.snapshot == nil {
		return
	}
	for path := range c.known {
		if !c.snapshot[path] {
			c.applyAbsent(path)
		}
	}
	c.snapshot = nil
}

func (c *Client) applyUpdate(path, value string) {
	replay := c.snapshot != nil
	if replay {
		c.snapshot[path] = true
	}
	c.known[path] = true
	c.post(func() {
		// A snapshot replays values the registry may already hold;
		// only changes are delivered.
		if replay {
			if variable, ok := c.registry.Lookup(path); ok {
				if current, present := variable.Get(); present && current == value {
					return
				}
			}
		}
		if err := c.registry.Deliver(path, value); err != nil {
			c.logger.Warn("dropping update for invalid path", "path", path, "error", err)
		}
	})
}

func (c *Client) applyAbsent(path string) {
	delete(c.known, path)
	c.post(func() {
		if err := c.registry.DeliverAbsent(path); err != nil {
			c.logger.Warn("dropping absent for invalid path", "path", path, "error", err)
		}
	})
}

func (c *Client) post(fn func()) {
	if !c.executor.Post(fn) {
		c.logger.Debug("dropping delivery, executor stopped")
	}
}

// Call sends one command to the authority. It implements
// command.Transport: a refusal by the addressed object is returned as
// *command.RejectedError; routing and connection failures are plain
// errors.
func (c *Client) Call(ctx context.Context, qualified, params string) (string, error) {
	var reply statesync.CommandReply
	fields := map[string]any{
		"command": qualified,
		"params":  params,
	}
	if err := c.service.Call(ctx, statesync.ActionCommand, fields, &reply); err != nil {
		return "", err
	}
	if reply.Rejected {
		return "", &command.RejectedError{Command: qualified, Reason: reply.Reason}
	}
	return reply.Payload, nil
}

// Status fetches the service's status.
func (c *Client) Status(ctx context.Context) (*statesync.StatusResponse, error) {
	var status statesync.StatusResponse
	if err := c.service.Call(ctx, statesync.ActionStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
