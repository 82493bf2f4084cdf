// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the statesync
// binaries.
//
// Configuration is loaded from a single file specified by either the
// STATESYNC_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks and no automatic file
// search.
//
// The configuration file supports environment-specific sections
// (development, staging, production) that override base values when
// [Config].Environment matches. Without an explicit production
// section, production logs JSON at info level.
//
// ${VAR} and ${VAR:-default} patterns are expanded in socket and
// catalog paths after loading. No other environment variables
// override config values.
//
// Durations are stored as strings and read through accessors
// ([Config.HeartbeatInterval], [Config.OverdueAfter], ...) after
// [Config.Validate] has checked them.
//
// This package depends on no other statesync packages.
package config
