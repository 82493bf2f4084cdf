// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/statesync/lib/command"
	"github.com/bureau-foundation/statesync/lib/eventloop"
	"github.com/bureau-foundation/statesync/lib/selector"
	"github.com/bureau-foundation/statesync/lib/sharedvar"
	"github.com/bureau-foundation/statesync/lib/stateclient"
)

// loopCapacity bounds the queue of pending deliveries, outcomes and
// console commands.
const loopCapacity = 256

// errQuit ends run after a quit command or the end of input.
var errQuit = errors.New("quit")

type appConfig struct {
	socketPath   string
	target       string
	client       stateclient.Options
	overdueAfter time.Duration

	// interactive prints a prompt after every command.
	interactive bool
}

// app wires the selector to the service: the stateclient feeds the
// registry, the dispatcher sends commands over the same client, and
// every callback runs on loop.
type app struct {
	config     appConfig
	loop       *eventloop.Loop
	registry   *sharedvar.Registry
	client     *stateclient.Client
	dispatcher *command.Dispatcher
	selector   *selector.Selector
	out        io.Writer
	logger     *slog.Logger
}

// newApp builds the app. The selector is created here, before the loop
// runs, which is safe because nothing has been delivered yet.
func newApp(ctx context.Context, config appConfig, out io.Writer, logger *slog.Logger) (*app, error) {
	a := &app{
		config:   config,
		loop:     eventloop.New(logger, loopCapacity),
		registry: sharedvar.NewRegistry(logger),
		out:      out,
		logger:   logger,
	}
	a.client = stateclient.New(config.socketPath, a.registry, a.loop, logger, config.client)
	a.dispatcher = command.NewDispatcher(ctx, a.client, a.loop, logger, command.Options{
		OverdueAfter: config.overdueAfter,
	})

	var err error
	a.selector, err = selector.New(a.registry, a.dispatcher, logger, selector.RendererFunc(a.render))
	if err != nil {
		a.dispatcher.Close()
		return nil, err
	}
	if config.target != "" {
		if err := a.selector.Bind(config.target); err != nil {
			a.dispatcher.Close()
			return nil, fmt.Errorf("binding target %q: %w", config.target, err)
		}
	}
	return a, nil
}

// run processes state and console input until ctx ends, input ends, or
// a quit command arrives.
func (a *app) run(ctx context.Context, lines <-chan string) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		a.loop.Run(groupCtx)
		return nil
	})
	group.Go(func() error {
		return a.client.Run(groupCtx)
	})
	group.Go(func() error {
		return a.console(groupCtx, lines)
	})

	a.loop.Post(a.prompt)
	err := group.Wait()
	if errors.Is(err, errQuit) {
		return nil
	}
	return err
}

func (a *app) close() {
	a.dispatcher.Close()
}

// console executes input lines on the loop, one at a time.
func (a *app) console(ctx context.Context, lines <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return errQuit
			}
			quit := false
			if err := a.loop.Do(ctx, func() { quit = a.handleLine(line) }); err != nil {
				return nil
			}
			if quit {
				return errQuit
			}
		}
	}
}

// handleLine parses and executes one line and reports whether it asked
// to quit. Loop goroutine only.
func (a *app) handleLine(line string) bool {
	parsed, err := parseLine(line)
	if err != nil {
		fmt.Fprintln(a.out, err)
		a.prompt()
		return false
	}
	if parsed.verb == verbQuit {
		return true
	}
	a.execute(parsed)
	a.prompt()
	return false
}

// execute runs one console command. Loop goroutine only.
func (a *app) execute(parsed consoleCommand) {
	switch parsed.verb {
	case verbNone:
	case verbSelect:
		if err := a.selector.Select(parsed.argument); err != nil {
			if errors.Is(err, command.ErrUnbound) {
				fmt.Fprintln(a.out, "no target bound; use: target <id>")
				return
			}
			fmt.Fprintln(a.out, err)
		}
	case verbTarget:
		if err := a.selector.Bind(parsed.argument); err != nil {
			fmt.Fprintln(a.out, err)
		}
	case verbShow:
		a.render(a.selector.View())
	case verbHelp:
		fmt.Fprint(a.out, helpText)
	}
}

// render prints a view. Loop goroutine only.
func (a *app) render(view selector.View) {
	fmt.Fprintln(a.out, formatView(view))
}

// prompt prints the input prompt when stdin is a terminal. Loop
// goroutine only.
func (a *app) prompt() {
	if a.config.interactive {
		fmt.Fprint(a.out, "> ")
	}
}

// formatView renders a view on one line:
//
//	[img1] Hot  options: Gray, *Hot, Cool  intensity: -0.5 .. 12.75
func formatView(view selector.View) string {
	var builder strings.Builder
	target := view.Target
	if target == "" {
		target = "unbound"
	}
	selection := view.Selection
	if selection == "" {
		selection = "(none)"
	}
	fmt.Fprintf(&builder, "[%s] %s", target, selection)

	options := make([]string, len(view.Options))
	for index, option := range view.Options {
		if option == view.Selection {
			option = "*" + option
		}
		options[index] = option
	}
	fmt.Fprintf(&builder, "  options: %s", strings.Join(options, ", "))

	if view.Low != "" || view.High != "" {
		fmt.Fprintf(&builder, "  intensity: %s .. %s", view.Low, view.High)
	}
	return builder.String()
}
