// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/statesync/lib/clock"
	"github.com/bureau-foundation/statesync/lib/colormap"
	"github.com/bureau-foundation/statesync/lib/config"
	colormapschema "github.com/bureau-foundation/statesync/lib/schema/colormap"
	"github.com/bureau-foundation/statesync/lib/process"
	"github.com/bureau-foundation/statesync/lib/service"
	"github.com/bureau-foundation/statesync/lib/statestore"
	"github.com/bureau-foundation/statesync/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		socketPath  string
		catalogPath string
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("statesync-service", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to statesync.yaml (default: $STATESYNC_CONFIG)")
	flagSet.StringVar(&socketPath, "socket", "", "override service.socket_path")
	flagSet.StringVar(&catalogPath, "catalog", "", "override service.catalog_file")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return process.Usage(err)
	}

	if showVersion {
		fmt.Printf("statesync-service %s\n", version.Full())
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if socketPath != "" {
		cfg.Service.SocketPath = socketPath
	}
	if catalogPath != "" {
		cfg.Service.CatalogFile = catalogPath
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := process.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	logger.Info("statesync-service starting", version.LogAttrs()...)

	catalog := colormap.DefaultCatalog()
	if cfg.Service.CatalogFile != "" {
		catalog, err = colormap.LoadCatalog(cfg.Service.CatalogFile)
		if err != nil {
			return err
		}
	}

	store := statestore.New(logger)
	authority, err := colormap.NewAuthority(catalog, store, logger)
	if err != nil {
		return err
	}
	for _, object := range cfg.Service.Objects {
		bounds := colormapschema.BoundsPayload{
			IntensityMin: object.IntensityMin,
			IntensityMax: object.IntensityMax,
		}
		if _, err := authority.AddObject(object.ID, bounds); err != nil {
			return fmt.Errorf("creating object %q: %w", object.ID, err)
		}
	}

	if err := cfg.EnsureSocketDir(); err != nil {
		return err
	}

	clk := clock.Real()
	stateService := &StateService{
		authority:         authority,
		store:             store,
		clock:             clk,
		catalogFile:       cfg.Service.CatalogFile,
		heartbeatInterval: cfg.HeartbeatInterval(),
		startedAt:         clk.Now(),
		logger:            logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	socketServer := service.NewSocketServer(cfg.Service.SocketPath, logger)
	stateService.registerActions(socketServer)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return socketServer.Serve(groupCtx)
	})
	group.Go(func() error {
		stateService.reloadOnHangup(groupCtx)
		return nil
	})

	logger.Info("statesync service running",
		"socket", cfg.Service.SocketPath,
		"objects", len(authority.Objects()),
		"maps", catalog.Len(),
	)

	err = group.Wait()
	logger.Info("shutting down")
	return err
}

// loadConfig reads the --config file, or STATESYNC_CONFIG when the
// flag is empty.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// reloadOnHangup reloads the catalog file on every SIGHUP until ctx
// ends.
func (s *StateService) reloadOnHangup(ctx context.Context) {
	hangups := make(chan os.Signal, 1)
	signal.Notify(hangups, syscall.SIGHUP)
	defer signal.Stop(hangups)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hangups:
			if _, err := s.reloadCatalog(); err != nil {
				s.logger.Error("catalog reload failed", "error", err)
			}
		}
	}
}
