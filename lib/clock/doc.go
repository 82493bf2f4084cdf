// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock lets time-driven code run against a controllable clock
// in tests.
//
// The subscribe stream's heartbeat ticker, the authority's uptime
// reporting, and the state client's reconnect pauses and idle timer
// take a [Clock] instead of calling the time package. In
// production they get [Real]; tests get [Fake] and move time forward
// explicitly:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go streamer.run(ctx, fake)
//	fake.WaitForTimers(1)           // ticker registered
//	fake.Advance(30 * time.Second)  // heartbeat fires
//
// WaitForTimers closes the race between a goroutine registering its
// ticker and the test advancing past it. [FakeClock.AfterFunc]
// callbacks run synchronously inside Advance.
package clock
