// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package colormap defines the shared-variable payloads and command
// vocabulary of the colormap service.
//
// Three kinds of shared variable carry colormap state, each holding
// one JSON document:
//
//   - "colormaps" ([CatalogPath]) lists the available colormaps as an
//     [OptionsPayload].
//   - "<target>/data" ([DataPath]) holds a [BoundsPayload] with the
//     intensity range of the image the target colors.
//   - "<target>" holds the full [StatePayload] of the colormap object.
//
// Payloads are parsed in a single validating step: ParseOptions,
// ParseBounds, and ParseState either return a structure that satisfies
// every field constraint or a [*ParseError]. Consumers never poke at
// half-parsed documents.
//
// Commands are sent as "<target>:<command>" with "key:value"
// parameters (see lib/command). The Command* and Param* constants
// name them.
package colormap
