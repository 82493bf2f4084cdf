// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sharedvar

import (
	"fmt"
	"strings"
)

const (
	// Separator joins the segments of a hierarchical path.
	Separator = "/"

	// CommandSeparator joins a target path and a command name. It is
	// reserved, so it can never appear inside a path.
	CommandSeparator = ":"

	// maxPathLength bounds a path so it always fits in a stream frame
	// alongside its payload.
	maxPathLength = 256
)

// allowedChars is the set of bytes permitted in a path.
var allowedChars [256]bool

func init() {
	for c := byte('a'); c <= 'z'; c++ {
		allowedChars[c] = true
	}
	for c := byte('A'); c <= 'Z'; c++ {
		allowedChars[c] = true
	}
	for c := byte('0'); c <= '9'; c++ {
		allowedChars[c] = true
	}
	allowedChars['.'] = true
	allowedChars['_'] = true
	allowedChars['='] = true
	allowedChars['-'] = true
	allowedChars['/'] = true
}

// Path identifies one remote state cell. The zero Path is invalid;
// obtain one from ParsePath.
type Path struct {
	value string
}

// ParsePath validates raw and returns it as a Path. Errors are
// *BindingError.
func ParsePath(raw string) (Path, error) {
	if err := validatePath(raw); err != nil {
		return Path{}, &BindingError{Path: raw, Reason: err.Error()}
	}
	return Path{value: raw}, nil
}

// MustParsePath is ParsePath for constants. Panics on invalid input.
func MustParsePath(raw string) Path {
	path, err := ParsePath(raw)
	if err != nil {
		panic(err)
	}
	return path
}

// String returns the path text.
func (p Path) String() string { return p.value }

// IsZero reports whether p was never parsed.
func (p Path) IsZero() bool { return p.value == "" }

// Child returns p extended by one segment.
func (p Path) Child(segment string) (Path, error) {
	if segment == "" || strings.Contains(segment, Separator) {
		return Path{}, &BindingError{
			Path:   p.value + Separator + segment,
			Reason: fmt.Sprintf("child segment %q must be non-empty and contain no %q", segment, Separator),
		}
	}
	return ParsePath(p.value + Separator + segment)
}

// Segments returns the path split on Separator.
func (p Path) Segments() []string {
	if p.value == "" {
		return nil
	}
	return strings.Split(p.value, Separator)
}

// HasPrefix reports whether p equals prefix or lies beneath it.
func (p Path) HasPrefix(prefix Path) bool {
	if p.value == prefix.value {
		return true
	}
	return strings.HasPrefix(p.value, prefix.value+Separator)
}

// MarshalText implements encoding.TextMarshaler.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler with validation.
func (p *Path) UnmarshalText(text []byte) error {
	parsed, err := ParsePath(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// validatePath enforces the path rules: allowed characters only, no
// leading or trailing separator, no empty or ".." segments.
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path is empty")
	}
	if len(path) > maxPathLength {
		return fmt.Errorf("path is %d bytes, maximum is %d", len(path), maxPathLength)
	}
	for i := 0; i < len(path); i++ {
		if !allowedChars[path[i]] {
			return fmt.Errorf("invalid character %q at position %d (allowed: a-z, A-Z, 0-9, ., _, =, -, /)", path[i], i)
		}
	}
	if strings.HasPrefix(path, Separator) {
		return fmt.Errorf("path must not start with %q", Separator)
	}
	if strings.HasSuffix(path, Separator) {
		return fmt.Errorf("path must not end with %q", Separator)
	}
	for _, segment := range strings.Split(path, Separator) {
		if segment == "" {
			return fmt.Errorf("path contains an empty segment")
		}
		if segment == "." || segment == ".." {
			return fmt.Errorf("path contains relative segment %q", segment)
		}
	}
	return nil
}
