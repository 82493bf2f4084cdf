// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// statesync-service is the authority for colormap state. It owns one
// colormap object per configured target, publishes every object's
// state and intensity bounds as shared variables, and executes
// commands against the objects.
//
// The service listens on a CBOR Unix socket with these actions:
//
//   - status: object ids, catalog, store and subscriber counts
//   - command: run "<target>:<command>" with encoded parameters; the
//     reply says whether the object executed or rejected it
//   - reload_catalog: reread the catalog file and republish it (also
//     triggered by SIGHUP)
//   - subscribe: stream of update/absent frames after a snapshot,
//     with caught_up, heartbeat, resync and error frames
//
// Configuration comes from --config or STATESYNC_CONFIG; --socket and
// --catalog override the corresponding config fields.
package main
