// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/statesync/lib/config"
	"github.com/bureau-foundation/statesync/lib/process"
	"github.com/bureau-foundation/statesync/lib/stateclient"
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
		target      string
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("statesync-selector", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to statesync.yaml (default: $STATESYNC_CONFIG)")
	flagSet.StringVar(&socketPath, "socket", "", "override client.socket_path")
	flagSet.StringVar(&target, "target", "", "override client.target (object id to bind at startup)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return process.Usage(err)
	}

	if showVersion {
		fmt.Printf("statesync-selector %s\n", version.Full())
		return nil
	}

	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if socketPath != "" {
		cfg.Client.SocketPath = socketPath
	}
	if target != "" {
		cfg.Client.Target = target
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := process.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	logger.Info("statesync-selector starting", version.LogAttrs()...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	selectorApp, err := newApp(ctx, appConfig{
		socketPath: cfg.Client.SocketPath,
		target:     cfg.Client.Target,
		client: stateclient.Options{
			ReconnectDelay:    cfg.ReconnectDelay(),
			MaxReconnectDelay: cfg.MaxReconnectDelay(),
			IdleTimeout:       2 * cfg.HeartbeatInterval(),
		},
		overdueAfter: cfg.OverdueAfter(),
		interactive:  term.IsTerminal(int(os.Stdin.Fd())),
	}, os.Stdout, logger)
	if err != nil {
		return err
	}
	defer selectorApp.close()

	return selectorApp.run(ctx, readLines(os.Stdin))
}

// readLines delivers stdin lines until EOF, then closes the channel.
// The reading goroutine outlives run when stdin never reaches EOF; the
// process exits underneath it.
func readLines(file *os.File) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}
