// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"fmt"
	"sort"
	"strings"
)

const (
	// pairSeparator separates parameters in the wire encoding.
	pairSeparator = ","

	// keyValueSeparator separates a parameter's key from its value.
	keyValueSeparator = ":"
)

// Param is one key/value command parameter.
type Param struct {
	Key   string
	Value string
}

// Params is an ordered parameter sequence. Order is preserved by
// Encode and ParseParams.
type Params []Param

// Encode returns the wire form "k1:v1,k2:v2". Keys must be non-empty
// and contain neither ':' nor ','. Values must not contain ','. A
// value may contain ':' because decoding splits on the first one.
func (p Params) Encode() (string, error) {
	var builder strings.Builder
	for index, param := range p {
		if param.Key == "" {
			return "", fmt.Errorf("parameter %d has an empty key", index)
		}
		if strings.ContainsAny(param.Key, pairSeparator+keyValueSeparator) {
			return "", fmt.Errorf("parameter key %q contains a reserved separator", param.Key)
		}
		if strings.Contains(param.Value, pairSeparator) {
			return "", fmt.Errorf("value of parameter %q contains %q", param.Key, pairSeparator)
		}
		if index > 0 {
			builder.WriteString(pairSeparator)
		}
		builder.WriteString(param.Key)
		builder.WriteString(keyValueSeparator)
		builder.WriteString(param.Value)
	}
	return builder.String(), nil
}

// ParseParams decodes the wire form produced by Encode. The empty
// string decodes to no parameters. Every pair must contain ':' and
// keys must be unique.
func ParseParams(raw string) (Params, error) {
	if raw == "" {
		return nil, nil
	}
	pieces := strings.Split(raw, pairSeparator)
	params := make(Params, 0, len(pieces))
	seen := make(map[string]bool, len(pieces))
	for _, piece := range pieces {
		key, value, found := strings.Cut(piece, keyValueSeparator)
		if !found {
			return nil, fmt.Errorf("parameter %q is not of the form key:value", piece)
		}
		if key == "" {
			return nil, fmt.Errorf("parameter %q has an empty key", piece)
		}
		if seen[key] {
			return nil, fmt.Errorf("parameter %q appears more than once", key)
		}
		seen[key] = true
		params = append(params, Param{Key: key, Value: value})
	}
	return params, nil
}

// Get returns the value for key.
func (p Params) Get(key string) (string, bool) {
	for _, param := range p {
		if param.Key == key {
			return param.Value, true
		}
	}
	return "", false
}

// Lookup returns the values of every requested key. The error names
// all missing keys, sorted, so a handler can report them in one
// message.
func (p Params) Lookup(keys ...string) (map[string]string, error) {
	values := make(map[string]string, len(keys))
	var missing []string
	for _, key := range keys {
		value, ok := p.Get(key)
		if !ok {
			missing = append(missing, key)
			continue
		}
		values[key] = value
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("missing parameters: %s", strings.Join(missing, ", "))
	}
	return values, nil
}
