// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stateclient

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bureau-foundation/statesync/lib/clock"
	"github.com/bureau-foundation/statesync/lib/codec"
	"github.com/bureau-foundation/statesync/lib/command"
	"github.com/bureau-foundation/statesync/lib/eventloop"
	"github.com/bureau-foundation/statesync/lib/schema/statesync"
	"github.com/bureau-foundation/statesync/lib/service"
	"github.com/bureau-foundation/statesync/lib/sharedvar"
	"github.com/bureau-foundation/statesync/lib/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

var testEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// fastOptions keeps reconnect backoff short enough for tests.
var fastOptions = Options{
	ReconnectDelay:    5 * time.Millisecond,
	MaxReconnectDelay: 20 * time.Millisecond,
}

type harness struct {
	socketPath string
	server     *service.SocketServer
	registry   *sharedvar.Registry
	loop       *eventloop.Loop
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		socketPath: testutil.SocketPath(t, "statesync.sock"),
		registry:   sharedvar.NewRegistry(testLogger()),
		loop:       eventloop.New(testLogger(), 64),
	}
	h.server = service.NewSocketServer(h.socketPath, testLogger())

	loopCtx, cancelLoop := context.WithCancel(context.Background())
	go h.loop.Run(loopCtx)
	t.Cleanup(cancelLoop)
	return h
}

// serve starts the socket server. Register handlers before calling it.
func (h *harness) serve(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- h.server.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		testutil.RequireReceive(t, serveDone, 5*time.Second, "Serve did not return")
	})
	for {
		if _, err := os.Stat(h.socketPath); err == nil {
			return
		}
		if t.Context().Err() != nil {
			t.Fatalf("socket %s did not appear", h.socketPath)
		}
		runtime.Gosched()
	}
}

// run starts a Client and stops it when the test ends.
func (h *harness) run(t *testing.T, options Options) (*Client, <-chan error) {
	t.Helper()
	client := New(h.socketPath, h.registry, h.loop, testLogger(), options)
	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	finished := make(chan struct{})
	go func() {
		runDone <- client.Run(ctx)
		close(finished)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-finished:
		case <-time.After(5 * time.Second):
			t.Errorf("Run did not return after cancellation")
		}
	})
	return client, runDone
}

// barrier waits until everything posted to the loop so far has run.
func (h *harness) barrier(t *testing.T) {
	t.Helper()
	if err := h.loop.Do(context.Background(), func() {}); err != nil {
		t.Fatalf("loop barrier: %v", err)
	}
}

type change struct {
	value   string
	present bool
}

// watch reports every notification on path.
func (h *harness) watch(t *testing.T, path string) <-chan change {
	t.Helper()
	variable, err := h.registry.Bind(path)
	if err != nil {
		t.Fatalf("Bind(%q): %v", path, err)
	}
	changes := make(chan change, 16)
	variable.OnChange(func() {
		value, present := variable.Get()
		changes <- change{value, present}
	})
	return changes
}

func send(conn net.Conn, frames ...statesync.SubscribeFrame) error {
	encoder := codec.NewEncoder(conn)
	for _, frame := range frames {
		if err := encoder.Encode(frame); err != nil {
			return err
		}
	}
	return nil
}

func update(path, value string) statesync.SubscribeFrame {
	return statesync.SubscribeFrame{Type: statesync.FrameUpdate, Path: path, Value: value}
}

var caughtUp = statesync.SubscribeFrame{Type: statesync.FrameCaughtUp}

func TestRunDeliversSnapshot(t *testing.T) {
	h := newHarness(t)
	requests := make(chan statesync.SubscribeRequest, 1)
	h.server.HandleStream(statesync.ActionSubscribe, func(ctx context.Context, raw []byte, conn net.Conn) {
		var request statesync.SubscribeRequest
		if err := codec.Unmarshal(raw, &request); err == nil {
			requests <- request
		}
		send(conn,
			update("colormaps", `{"colorMapCount":1,"maps":["Gray"]}`),
			update("img1/data", `{"intensityMin":0,"intensityMax":1}`),
			statesync.SubscribeFrame{Type: statesync.FrameHeartbeat},
			statesync.SubscribeFrame{Type: "future_frame"},
			caughtUp,
		)
		<-ctx.Done()
	})
	h.serve(t)

	options := fastOptions
	options.Prefixes = []string{"colormaps", "img1"}
	client, _ := h.run(t, options)

	request := testutil.RequireReceive(t, requests, 5*time.Second, "subscribe request")
	if len(request.Prefixes) != 2 || request.Prefixes[0] != "colormaps" || request.Prefixes[1] != "img1" {
		t.Errorf("prefixes = %v", request.Prefixes)
	}

	testutil.RequireClosed(t, client.CaughtUp(), 5*time.Second, "caught_up")
	h.barrier(t)

	for path, want := range map[string]string{
		"colormaps": `{"colorMapCount":1,"maps":["Gray"]}`,
		"img1/data": `{"intensityMin":0,"intensityMax":1}`,
	} {
		variable, ok := h.registry.Lookup(path)
		if !ok {
			t.Errorf("%s not delivered", path)
			continue
		}
		if value, present := variable.Get(); !present || value != want {
			t.Errorf("%s = %q (present=%v), want %q", path, value, present, want)
		}
	}
}

func TestRunDeliversLiveChanges(t *testing.T) {
	h := newHarness(t)
	h.server.HandleStream(statesync.ActionSubscribe, func(ctx context.Context, raw []byte, conn net.Conn) {
		send(conn,
			update("img1", "v1"),
			caughtUp,
			update("img1", "v2"),
			statesync.SubscribeFrame{Type: statesync.FrameAbsent, Path: "img1"},
		)
		<-ctx.Done()
	})
	h.serve(t)
	changes := h.watch(t, "img1")
	h.run(t, fastOptions)

	want := []change{{"v1", true}, {"v2", true}, {"", false}}
	for index, expected := range want {
		got := testutil.RequireReceive(t, changes, 5*time.Second, "change %d", index)
		if got != expected {
			t.Errorf("change %d = %+v, want %+v", index, got, expected)
		}
	}
}

func TestRunReconcilesSnapshotAfterReconnect(t *testing.T) {
	h := newHarness(t)
	var connections atomic.Int32
	h.server.HandleStream(statesync.ActionSubscribe, func(ctx context.Context, raw []byte, conn net.Conn) {
		if connections.Add(1) == 1 {
			// The first stream ends right after its snapshot.
			send(conn, update("a", "1"), update("b", "1"), caughtUp)
			return
		}
		send(conn, update("a", "1"), caughtUp)
		<-ctx.Done()
	})
	h.serve(t)
	removed := h.watch(t, "b")
	h.run(t, fastOptions)

	if got := testutil.RequireReceive(t, removed, 5*time.Second, "b delivered"); got != (change{"1", true}) {
		t.Fatalf("first change on b = %+v", got)
	}
	if got := testutil.RequireReceive(t, removed, 5*time.Second, "b removed after reconnect"); got.present {
		t.Fatalf("second change on b = %+v, want absent", got)
	}
	h.barrier(t)

	a, _ := h.registry.Lookup("a")
	if deliveries := a.Deliveries(); deliveries != 1 {
		t.Errorf("a delivered %d times, want 1 (unchanged replay is skipped)", deliveries)
	}
	if count := connections.Load(); count < 2 {
		t.Errorf("connections = %d, want at least 2", count)
	}
}

func TestRunResyncReplacesSnapshot(t *testing.T) {
	h := newHarness(t)
	h.server.HandleStream(statesync.ActionSubscribe, func(ctx context.Context, raw []byte, conn net.Conn) {
		send(conn,
			update("a", "1"),
			update("b", "1"),
			caughtUp,
			statesync.SubscribeFrame{Type: statesync.FrameResync},
			update("a", "2"),
			caughtUp,
		)
		<-ctx.Done()
	})
	h.serve(t)
	aChanges := h.watch(t, "a")
	bChanges := h.watch(t, "b")
	h.run(t, fastOptions)

	testutil.RequireReceive(t, bChanges, 5*time.Second, "b delivered")
	if got := testutil.RequireReceive(t, bChanges, 5*time.Second, "b removed by resync"); got.present {
		t.Errorf("b after resync = %+v, want absent", got)
	}
	testutil.RequireReceive(t, aChanges, 5*time.Second, "a delivered")
	if got := testutil.RequireReceive(t, aChanges, 5*time.Second, "a updated by resync"); got != (change{"2", true}) {
		t.Errorf("a after resync = %+v", got)
	}
}

func TestRunReconnectsAfterErrorFrame(t *testing.T) {
	h := newHarness(t)
	var connections atomic.Int32
	h.server.HandleStream(statesync.ActionSubscribe, func(ctx context.Context, raw []byte, conn net.Conn) {
		if connections.Add(1) == 1 {
			send(conn, statesync.SubscribeFrame{Type: statesync.FrameError, Message: "store closing"})
			return
		}
		send(conn, update("a", "1"), caughtUp)
		<-ctx.Done()
	})
	h.serve(t)
	client, _ := h.run(t, fastOptions)

	testutil.RequireClosed(t, client.CaughtUp(), 5*time.Second, "caught_up after reconnect")
	if count := connections.Load(); count != 2 {
		t.Errorf("connections = %d, want 2", count)
	}
}

func TestRunReconnectsIdleStream(t *testing.T) {
	h := newHarness(t)
	connections := make(chan struct{}, 8)
	h.server.HandleStream(statesync.ActionSubscribe, func(ctx context.Context, raw []byte, conn net.Conn) {
		connections <- struct{}{}
		send(conn, caughtUp)
		// Never send a heartbeat.
		<-ctx.Done()
	})
	h.serve(t)

	fakeClock := clock.Fake(testEpoch)
	client, _ := h.run(t, Options{
		ReconnectDelay:    time.Second,
		MaxReconnectDelay: 30 * time.Second,
		IdleTimeout:       10 * time.Second,
		Clock:             fakeClock,
	})

	testutil.RequireReceive(t, connections, 5*time.Second, "first connection")
	testutil.RequireClosed(t, client.CaughtUp(), 5*time.Second, "caught_up")

	// The idle timer is the only one pending while the stream is open.
	fakeClock.WaitForTimers(1)
	fakeClock.Advance(10 * time.Second)

	// The stream was closed; the client now pauses before resubscribing.
	fakeClock.WaitForTimers(1)
	select {
	case <-connections:
		t.Fatal("resubscribed without pausing")
	default:
	}
	fakeClock.Advance(time.Second)
	testutil.RequireReceive(t, connections, 5*time.Second, "reconnect after idle timeout")
}

func TestRunPacesResubscribeAfterShortSessions(t *testing.T) {
	h := newHarness(t)
	connections := make(chan struct{}, 8)
	h.server.HandleStream(statesync.ActionSubscribe, func(ctx context.Context, raw []byte, conn net.Conn) {
		// Accept, replay, close.
		connections <- struct{}{}
		send(conn, caughtUp)
	})
	h.serve(t)

	fakeClock := clock.Fake(testEpoch)
	h.run(t, Options{
		ReconnectDelay:    time.Second,
		MaxReconnectDelay: 30 * time.Second,
		Clock:             fakeClock,
	})

	testutil.RequireReceive(t, connections, 5*time.Second, "first connection")

	// First pause: ReconnectDelay.
	fakeClock.WaitForTimers(1)
	if len(connections) != 0 {
		t.Fatal("resubscribed before the pause elapsed")
	}
	fakeClock.Advance(time.Second)
	testutil.RequireReceive(t, connections, 5*time.Second, "second connection")

	// The second session was short as well, so the pause doubles.
	fakeClock.WaitForTimers(1)
	fakeClock.Advance(time.Second)
	if pending := fakeClock.PendingCount(); pending != 1 {
		t.Fatalf("PendingCount after 1s of a 2s pause = %d, want 1", pending)
	}
	if len(connections) != 0 {
		t.Fatal("resubscribed before the doubled pause elapsed")
	}
	fakeClock.Advance(time.Second)
	testutil.RequireReceive(t, connections, 5*time.Second, "third connection")
}

func TestRunStopsWhenSubscribeRefused(t *testing.T) {
	h := newHarness(t)
	h.serve(t) // no subscribe handler
	_, runDone := h.run(t, fastOptions)

	err := testutil.RequireReceive(t, runDone, 5*time.Second, "Run did not give up")
	var serviceErr *service.ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("Run error = %v, want *service.ServiceError", err)
	}
}

func TestRunReturnsNilOnCancel(t *testing.T) {
	h := newHarness(t)
	client := New(testutil.SocketPath(t, "absent.sock"), h.registry, h.loop, testLogger(), fastOptions)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() {
		runDone <- client.Run(ctx)
	}()
	cancel()
	if err := testutil.RequireReceive(t, runDone, 5*time.Second, "Run did not return"); err != nil {
		t.Errorf("Run = %v, want nil", err)
	}
}

func TestCall(t *testing.T) {
	h := newHarness(t)
	h.server.Handle(statesync.ActionCommand, func(ctx context.Context, raw []byte) (any, error) {
		var request statesync.CommandRequest
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, err
		}
		switch request.Command {
		case "img1:setColormap":
			if request.Params == "name:Unknown" {
				return statesync.CommandReply{Rejected: true, Reason: "Gray"}, nil
			}
			return statesync.CommandReply{Payload: "ok " + request.Params}, nil
		default:
			return nil, errors.New("no colormap object")
		}
	})
	h.serve(t)
	client := New(h.socketPath, h.registry, h.loop, testLogger(), fastOptions)
	ctx := context.Background()

	payload, err := client.Call(ctx, "img1:setColormap", "name:Hot")
	if err != nil || payload != "ok name:Hot" {
		t.Errorf("Call = %q, %v", payload, err)
	}

	_, err = client.Call(ctx, "img1:setColormap", "name:Unknown")
	var rejected *command.RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("Call error = %v, want *command.RejectedError", err)
	}
	if rejected.Reason != "Gray" || rejected.Command != "img1:setColormap" {
		t.Errorf("rejection = %+v", rejected)
	}

	_, err = client.Call(ctx, "img9:setColormap", "name:Hot")
	if err == nil {
		t.Fatal("routing failure succeeded")
	}
	if errors.As(err, &rejected) {
		t.Errorf("routing failure reported as rejection: %v", err)
	}
}

func TestStatus(t *testing.T) {
	h := newHarness(t)
	h.server.Handle(statesync.ActionStatus, func(ctx context.Context, raw []byte) (any, error) {
		return statesync.StatusResponse{
			Objects:     []string{"img1"},
			Maps:        []string{"Gray", "Hot"},
			Paths:       3,
			Subscribers: 1,
		}, nil
	})
	h.serve(t)
	client := New(h.socketPath, h.registry, h.loop, testLogger(), fastOptions)

	status, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(status.Objects) != 1 || status.Objects[0] != "img1" {
		t.Errorf("Objects = %v, want [img1]", status.Objects)
	}
	if len(status.Maps) != 2 || status.Paths != 3 || status.Subscribers != 1 {
		t.Errorf("status = %+v", status)
	}
}
