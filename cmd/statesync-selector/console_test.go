// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"testing"

	"github.com/bureau-foundation/statesync/lib/selector"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line    string
		want    consoleCommand
		wantErr bool
	}{
		{line: "", want: consoleCommand{verb: verbNone}},
		{line: "   ", want: consoleCommand{verb: verbNone}},
		{line: "select Hot", want: consoleCommand{verb: verbSelect, argument: "Hot"}},
		{line: "  SELECT   Cool ", want: consoleCommand{verb: verbSelect, argument: "Cool"}},
		{line: "target img2", want: consoleCommand{verb: verbTarget, argument: "img2"}},
		{line: "show", want: consoleCommand{verb: verbShow}},
		{line: "help", want: consoleCommand{verb: verbHelp}},
		{line: "quit", want: consoleCommand{verb: verbQuit}},
		{line: "exit", want: consoleCommand{verb: verbQuit}},
		{line: "select", wantErr: true},
		{line: "select Hot Cool", wantErr: true},
		{line: "target", wantErr: true},
		{line: "show img1", wantErr: true},
		{line: "explode", wantErr: true},
	}
	for _, test := range tests {
		got, err := parseLine(test.line)
		if test.wantErr {
			if err == nil {
				t.Errorf("parseLine(%q) = %+v, want error", test.line, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseLine(%q): %v", test.line, err)
			continue
		}
		if got != test.want {
			t.Errorf("parseLine(%q) = %+v, want %+v", test.line, got, test.want)
		}
	}
}

func TestFormatView(t *testing.T) {
	tests := []struct {
		name string
		view selector.View
		want string
	}{
		{
			name: "unbound",
			view: selector.View{Options: []string{"Gray", "Hot"}, Selection: "Gray"},
			want: "[unbound] Gray  options: *Gray, Hot",
		},
		{
			name: "bound with bounds",
			view: selector.View{Target: "img1", Options: []string{"Gray", "Hot", "Cool"}, Selection: "Hot", Low: "-0.5", High: "12.75"},
			want: "[img1] Hot  options: Gray, *Hot, Cool  intensity: -0.5 .. 12.75",
		},
		{
			name: "empty catalog",
			view: selector.View{Target: "img1"},
			want: "[img1] (none)  options: ",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := formatView(test.view); got != test.want {
				t.Errorf("formatView() = %q, want %q", got, test.want)
			}
		})
	}
}
