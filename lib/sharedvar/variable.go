// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sharedvar

import (
	"log/slog"
	"sync"
)

// Variable is the client-side mirror of one server-owned state cell.
// Obtain one from Registry.Bind.
//
// Get, OnChange, and the Deliver methods are safe to call from any
// goroutine. Callbacks run on the goroutine that delivers the update;
// statesync delivers every update from the client's event loop.
type Variable struct {
	path   Path
	logger *slog.Logger

	mu          sync.RWMutex
	value       string
	present     bool
	subscribers []func()
	deliveries  uint64
}

func newVariable(path Path, logger *slog.Logger) *Variable {
	return &Variable{
		path:   path,
		logger: logger.With("path", path.String()),
	}
}

// Path returns the path this Variable mirrors.
func (v *Variable) Path() Path { return v.path }

// Get returns the last payload received from the authority. The
// boolean is false until the first update arrives, and after an update
// the transport could not decode. Get never contacts the authority.
func (v *Variable) Get() (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value, v.present
}

// OnChange appends callback to the subscriber list. Registration is
// not deduplicated. Panics if callback is nil.
func (v *Variable) OnChange(callback func()) {
	if callback == nil {
		panic("sharedvar: nil change callback for " + v.path.String())
	}
	v.mu.Lock()
	v.subscribers = append(v.subscribers, callback)
	v.mu.Unlock()
}

// Subscribers returns the number of registered callbacks.
func (v *Variable) Subscribers() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.subscribers)
}

// Deliveries returns how many updates (including absent ones) have
// been delivered.
func (v *Variable) Deliveries() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.deliveries
}

// DeliverUpdate stores raw as the authoritative value and then invokes
// every callback in registration order. Transport code only.
func (v *Variable) DeliverUpdate(raw string) {
	v.store(raw, true)
}

// DeliverAbsent clears the cached value and notifies subscribers. The
// transport uses it when an update arrived but could not be decoded,
// so consumers stop trusting the previous payload.
func (v *Variable) DeliverAbsent() {
	v.store("", false)
}

func (v *Variable) store(raw string, present bool) {
	v.mu.Lock()
	v.value = raw
	v.present = present
	v.deliveries++
	// Callbacks run outside the lock so they can call Get and
	// OnChange. A callback registered during this notification first
	// runs on the next one.
	subscribers := make([]func(), len(v.subscribers))
	copy(subscribers, v.subscribers)
	v.mu.Unlock()

	for index, callback := range subscribers {
		v.invoke(index, callback)
	}
}

// invoke runs one callback, containing any panic so the rest of the
// subscriber list still runs.
func (v *Variable) invoke(index int, callback func()) {
	defer func() {
		if recovered := recover(); recovered != nil {
			v.logger.Warn("change callback panicked",
				"subscriber_index", index,
				"panic", recovered,
			)
		}
	}()
	callback()
}
