// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/statesync/lib/clock"
	"github.com/bureau-foundation/statesync/lib/colormap"
	colormapschema "github.com/bureau-foundation/statesync/lib/schema/colormap"
	"github.com/bureau-foundation/statesync/lib/schema/statesync"
	"github.com/bureau-foundation/statesync/lib/service"
	"github.com/bureau-foundation/statesync/lib/sharedvar"
	"github.com/bureau-foundation/statesync/lib/statestore"
	"github.com/bureau-foundation/statesync/lib/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// newTestService builds a service with the built-in catalog and one
// object, img1, with bounds [-0.5, 12.75].
func newTestService(t *testing.T) (*StateService, *clock.FakeClock) {
	t.Helper()
	logger := testLogger()
	store := statestore.New(logger)
	authority, err := colormap.NewAuthority(colormap.DefaultCatalog(), store, logger)
	if err != nil {
		t.Fatalf("NewAuthority: %v", err)
	}
	if _, err := authority.AddObject("img1", colormapschema.BoundsPayload{IntensityMin: -0.5, IntensityMax: 12.75}); err != nil {
		t.Fatalf("AddObject: %v", err)
	}
	fakeClock := clock.Fake(testEpoch)
	return &StateService{
		authority:         authority,
		store:             store,
		clock:             fakeClock,
		heartbeatInterval: 30 * time.Second,
		startedAt:         testEpoch,
		logger:            logger,
	}, fakeClock
}

// serve runs the service's socket server until the test ends.
func serve(t *testing.T, stateService *StateService) *service.ServiceClient {
	t.Helper()
	socketPath := testutil.SocketPath(t, "statesync.sock")
	server := service.NewSocketServer(socketPath, stateService.logger)
	stateService.registerActions(server)

	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		testutil.RequireReceive(t, serveDone, 5*time.Second, "Serve did not return")
	})
	for {
		if _, err := os.Stat(socketPath); err == nil {
			break
		}
		if t.Context().Err() != nil {
			t.Fatalf("socket %s did not appear", socketPath)
		}
		runtime.Gosched()
	}
	return service.NewServiceClient(socketPath)
}

func TestStatus(t *testing.T) {
	stateService, fakeClock := newTestService(t)
	client := serve(t, stateService)
	fakeClock.Advance(90 * time.Second)

	var status statesync.StatusResponse
	if err := client.Call(context.Background(), statesync.ActionStatus, nil, &status); err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(status.Objects) != 1 || status.Objects[0] != "img1" {
		t.Errorf("objects = %v", status.Objects)
	}
	if len(status.Maps) != colormap.DefaultCatalog().Len() {
		t.Errorf("maps = %v", status.Maps)
	}
	// colormaps, img1, img1/data
	if status.Paths != 3 {
		t.Errorf("paths = %d, want 3", status.Paths)
	}
	if status.UptimeSeconds != 90 {
		t.Errorf("uptime = %d, want 90", status.UptimeSeconds)
	}
}

func callCommand(t *testing.T, client *service.ServiceClient, qualified, params string) (statesync.CommandReply, error) {
	t.Helper()
	var reply statesync.CommandReply
	err := client.Call(context.Background(), statesync.ActionCommand, map[string]any{
		"command": qualified,
		"params":  params,
	}, &reply)
	return reply, err
}

func TestCommandExecuted(t *testing.T) {
	stateService, _ := newTestService(t)
	client := serve(t, stateService)

	reply, err := callCommand(t, client, "img1:setColormap", "name:Hot")
	if err != nil {
		t.Fatalf("command: %v", err)
	}
	if reply.Rejected {
		t.Fatalf("setColormap Hot rejected: %q", reply.Reason)
	}

	object, _ := stateService.authority.Object("img1")
	if name := object.State().ColorMapName; name != "Hot" {
		t.Errorf("colorMapName = %q, want Hot", name)
	}
	raw, ok := stateService.store.Get(sharedvar.MustParsePath("img1"))
	if !ok || !strings.Contains(raw, `"colorMapName":"Hot"`) {
		t.Errorf("published state = %q", raw)
	}
}

func TestCommandRejected(t *testing.T) {
	stateService, _ := newTestService(t)
	client := serve(t, stateService)

	reply, err := callCommand(t, client, "img1:setColormap", "name:Plasma")
	if err != nil {
		t.Fatalf("command: %v", err)
	}
	if !reply.Rejected || reply.Reason != "Gray" {
		t.Errorf("reply = %+v, want rejection carrying Gray", reply)
	}

	reply, err = callCommand(t, client, "img1:setDataTransform", "dataTransform:Cube")
	if err != nil {
		t.Fatalf("command: %v", err)
	}
	if !reply.Rejected || reply.Reason != "Invalid data transform: Cube" {
		t.Errorf("reply = %+v", reply)
	}
}

func TestCommandRoutingFailures(t *testing.T) {
	stateService, _ := newTestService(t)
	client := serve(t, stateService)

	tests := []struct {
		name      string
		qualified string
		want      string
	}{
		{"unknown object", "img9:setColormap", `no colormap object "img9"`},
		{"unqualified", "setColormap", ""},
		{"unknown command", "img1:explode", "explode"},
		{"missing command", "", "missing required field: command"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := callCommand(t, client, test.qualified, "name:Hot")
			var serviceErr *service.ServiceError
			if !errors.As(err, &serviceErr) {
				t.Fatalf("error = %v, want *service.ServiceError", err)
			}
			if !strings.Contains(serviceErr.Message, test.want) {
				t.Errorf("message = %q, want it to contain %q", serviceErr.Message, test.want)
			}
		})
	}
}

func TestReloadCatalog(t *testing.T) {
	stateService, _ := newTestService(t)
	client := serve(t, stateService)

	err := client.Call(context.Background(), statesync.ActionReloadCatalog, nil, nil)
	var serviceErr *service.ServiceError
	if !errors.As(err, &serviceErr) || serviceErr.Message != "no catalog file configured" {
		t.Fatalf("reload without file: %v", err)
	}

	catalogPath := filepath.Join(t.TempDir(), "catalog.jsonc")
	content := `{
  // Site palette.
  "maps": ["Viridis", "Gray",],
}`
	if err := os.WriteFile(catalogPath, []byte(content), 0644); err != nil {
		t.Fatalf("writing catalog: %v", err)
	}
	stateService.catalogFile = catalogPath

	var response statesync.ReloadCatalogResponse
	if err := client.Call(context.Background(), statesync.ActionReloadCatalog, nil, &response); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(response.Maps) != 2 || response.Maps[0] != "Viridis" {
		t.Errorf("maps = %v", response.Maps)
	}

	raw, _ := stateService.store.Get(sharedvar.MustParsePath(colormapschema.CatalogPath))
	options, err := colormapschema.ParseOptions(raw)
	if err != nil {
		t.Fatalf("published catalog: %v", err)
	}
	if options.ColorMapCount != 2 || options.Maps[0] != "Viridis" {
		t.Errorf("published catalog = %+v", options)
	}

	reply, err := callCommand(t, client, "img1:setColormap", "name:Viridis")
	if err != nil || reply.Rejected {
		t.Errorf("setColormap Viridis after reload = %+v, %v", reply, err)
	}
}
