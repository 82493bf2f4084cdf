// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/bureau-foundation/statesync/lib/codec"
)

// dialTimeout is the maximum time to wait for a connection to the
// service socket. It covers only the connect phase.
const dialTimeout = 5 * time.Second

// responseReadTimeout is how long the client waits for a unary
// response after writing the request. Matched to the server's
// readTimeout + writeTimeout to account for handler execution time.
const responseReadTimeout = 45 * time.Second

// maxResponseSize is the maximum size of a single unary response.
const maxResponseSize = 1024 * 1024

// ServiceError is returned by Call when the server responds with
// ok=false. It carries the server's error message and the action that
// failed.
type ServiceError struct {
	Action  string
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service error on %q: %s", e.Action, e.Message)
}

// ServiceClient sends requests to a service socket. Each Call or
// OpenStream opens a new connection, matching the server's
// one-request-per-connection model.
type ServiceClient struct {
	socketPath string
}

// NewServiceClient returns a client for the socket at socketPath. No
// connection is made until the first Call.
func NewServiceClient(socketPath string) *ServiceClient {
	return &ServiceClient{socketPath: socketPath}
}

// SocketPath returns the socket the client connects to.
func (c *ServiceClient) SocketPath() string { return c.socketPath }

// Call sends a unary request and decodes the response.
//
// The fields parameter may contain any handler-specific request
// fields; the client adds "action" automatically. Pass nil for actions
// that take no parameters.
//
// On success, if result is non-nil and the response contains data,
// the data is CBOR-decoded into result. On ok=false, Call returns a
// *ServiceError. Connection and encoding errors are returned as plain
// errors.
func (c *ServiceClient) Call(ctx context.Context, action string, fields map[string]any, result any) error {
	response, err := c.send(ctx, buildRequest(action, fields))
	if err != nil {
		return fmt.Errorf("calling %q on %s: %w", action, c.socketPath, err)
	}

	if !response.OK {
		return &ServiceError{
			Action:  action,
			Message: response.Error,
		}
	}

	if result != nil && len(response.Data) > 0 {
		if err := codec.Unmarshal(response.Data, result); err != nil {
			return fmt.Errorf("decoding response data for %q: %w", action, err)
		}
	}

	return nil
}

// OpenStream starts a stream action and returns the open stream. The
// connection is closed when ctx is cancelled or Close is called.
func (c *ServiceClient) OpenStream(ctx context.Context, action string, fields map[string]any) (*Stream, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("opening %q stream on %s: connecting: %w", action, c.socketPath, err)
	}
	if err := codec.NewEncoder(conn).Encode(buildRequest(action, fields)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening %q stream on %s: writing request: %w", action, c.socketPath, err)
	}

	stream := &Stream{
		action:  action,
		conn:    conn,
		decoder: codec.NewDecoder(conn),
		closed:  make(chan struct{}),
	}
	// Close the connection when the context is cancelled. This
	// unblocks a Next call waiting on the decoder.
	go func() {
		select {
		case <-ctx.Done():
			stream.Close()
		case <-stream.closed:
		}
	}()
	return stream, nil
}

// buildRequest constructs the CBOR request map from the caller's
// fields plus "action".
func buildRequest(action string, fields map[string]any) map[string]any {
	request := make(map[string]any, len(fields)+1)
	for key, value := range fields {
		request[key] = value
	}
	request["action"] = action
	return request
}

// send connects to the socket, writes the request, and reads the
// response. Each call creates a new connection.
func (c *ServiceClient) send(ctx context.Context, request any) (*Response, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	// Abort the read if the caller gives up.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}

	// Half-close the write side so the server's read side sees EOF
	// cleanly.
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	conn.SetReadDeadline(time.Now().Add(responseReadTimeout))
	var response Response
	if err := codec.NewDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&response); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("reading response: %w", err)
	}

	return &response, nil
}

// Stream is the client side of a stream action.
type Stream struct {
	action  string
	conn    net.Conn
	decoder *codec.Decoder

	closeOnce sync.Once
	closed    chan struct{}
}

// Next decodes the next frame into frame. If the server refused the
// stream with an {ok: false} response instead of a frame, Next returns
// a *ServiceError.
func (s *Stream) Next(frame any) error {
	var raw codec.RawMessage
	if err := s.decoder.Decode(&raw); err != nil {
		return err
	}
	var refusal struct {
		OK    *bool  `cbor:"ok"`
		Error string `cbor:"error"`
	}
	if err := codec.Unmarshal(raw, &refusal); err == nil && refusal.OK != nil && !*refusal.OK {
		return &ServiceError{Action: s.action, Message: refusal.Error}
	}
	return codec.Unmarshal(raw, frame)
}

// Close closes the connection. Safe to call more than once.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.conn.Close()
	})
	return err
}
