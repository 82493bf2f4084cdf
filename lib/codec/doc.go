// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding configuration shared by the
// statesync socket protocol.
//
// Two serialization formats meet at a clear boundary:
//
//   - JSON for shared-variable payloads. The authority publishes state
//     cells (the colormap catalog, intensity bounds, colormap object
//     state) as JSON text, and consumers parse that text themselves.
//     The transport never looks inside a payload.
//   - CBOR for the socket protocol that carries those payloads: unary
//     request/response envelopes and the frames of a subscribe stream.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (one request per connection, or a
// long-lived stream of frames):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// Types that only travel over the socket carry `cbor` struct tags.
// Types that are also written as JSON (status output, payloads) carry
// `json` tags, which fxamacker/cbor reads as a fallback. Never put both
// tags on one field.
package codec
