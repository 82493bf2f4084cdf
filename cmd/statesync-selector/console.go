// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"
)

type verb int

const (
	verbNone verb = iota
	verbSelect
	verbTarget
	verbShow
	verbHelp
	verbQuit
)

const helpText = `commands:
  select <name>   switch the bound target's colormap
  target <id>     bind to another object
  show            print the current view
  quit            exit
`

// consoleCommand is one parsed input line.
type consoleCommand struct {
	verb     verb
	argument string
}

// parseLine parses one console line. Blank lines parse to verbNone.
func parseLine(line string) (consoleCommand, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return consoleCommand{verb: verbNone}, nil
	}

	name, arguments := strings.ToLower(fields[0]), fields[1:]
	switch name {
	case "select":
		if len(arguments) != 1 {
			return consoleCommand{}, fmt.Errorf("usage: select <name>")
		}
		return consoleCommand{verb: verbSelect, argument: arguments[0]}, nil
	case "target":
		if len(arguments) != 1 {
			return consoleCommand{}, fmt.Errorf("usage: target <id>")
		}
		return consoleCommand{verb: verbTarget, argument: arguments[0]}, nil
	}

	verbs := map[string]verb{"show": verbShow, "help": verbHelp, "quit": verbQuit, "exit": verbQuit}
	parsed, known := verbs[name]
	if !known {
		return consoleCommand{}, fmt.Errorf("unknown command %q (try help)", fields[0])
	}
	if len(arguments) != 0 {
		return consoleCommand{}, fmt.Errorf("%s takes no arguments", name)
	}
	return consoleCommand{verb: parsed}, nil
}
