// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package statestore holds the server-owned values behind shared
// variables and fans changes out to subscribers.
//
// Writes that do not change a value are not published. Fan-out never
// blocks the writer: each Subscription has a bounded buffer, and an
// event that does not fit is dropped and the subscription is marked
// for resync. The stream serving the subscription then discards its
// buffer and resends a full snapshot (see [Subscription.Resync]).
package statestore

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/bureau-foundation/statesync/lib/sharedvar"
)

// DefaultBuffer is the event buffer of a Subscription when none is
// given.
const DefaultBuffer = 256

// Entry is one stored value.
type Entry struct {
	Path  string
	Value string
}

// Event is one change. Absent events mean the value was removed.
type Event struct {
	Path   string
	Value  string
	Absent bool
}

// Store maps shared-variable paths to their current value.
type Store struct {
	logger *slog.Logger

	mu            sync.Mutex
	values        map[sharedvar.Path]string
	subscriptions []*Subscription
}

// New returns an empty Store.
func New(logger *slog.Logger) *Store {
	return &Store{
		logger: logger,
		values: make(map[sharedvar.Path]string),
	}
}

// Set stores value at path and publishes it. It returns false, and
// publishes nothing, when the stored value is already value.
func (s *Store) Set(path sharedvar.Path, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.values[path]; ok && current == value {
		return false
	}
	s.values[path] = value
	s.publishLocked(path, Event{Path: path.String(), Value: value})
	return true
}

// Remove deletes the value at path and publishes an absent event. It
// returns false when there was nothing to remove.
func (s *Store) Remove(path sharedvar.Path) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[path]; !ok {
		return false
	}
	delete(s.values, path)
	s.publishLocked(path, Event{Path: path.String(), Absent: true})
	return true
}

// Get returns the value at path.
func (s *Store) Get(path sharedvar.Path) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[path]
	return value, ok
}

// Len returns the number of stored values.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

// Subscribe registers a subscription for the given prefixes (all
// paths when none are given) and returns it with a snapshot of the
// matching values, sorted by path. Registration and snapshot are
// atomic: every change after the snapshot reaches the subscription.
// A buffer below 1 means DefaultBuffer.
func (s *Store) Subscribe(prefixes []sharedvar.Path, buffer int) (*Subscription, []Entry) {
	if buffer < 1 {
		buffer = DefaultBuffer
	}
	subscription := &Subscription{
		store:    s,
		prefixes: prefixes,
		events:   make(chan Event, buffer),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions = append(s.subscriptions, subscription)
	return subscription, s.snapshotLocked(prefixes)
}

// Unsubscribe stops delivery to subscription.
func (s *Store) Unsubscribe(subscription *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for index, existing := range s.subscriptions {
		if existing == subscription {
			s.subscriptions = append(s.subscriptions[:index], s.subscriptions[index+1:]...)
			return
		}
	}
}

// Subscribers returns the number of registered subscriptions.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscriptions)
}

// publishLocked sends event, the change at path, to every matching
// subscription without blocking. Must be called with s.mu held.
func (s *Store) publishLocked(path sharedvar.Path, event Event) {
	for _, subscription := range s.subscriptions {
		if !matchesPrefixes(subscription.prefixes, path) {
			continue
		}
		select {
		case subscription.events <- event:
		default:
			if subscription.resync.CompareAndSwap(false, true) {
				s.logger.Warn("subscriber buffer full, marking for resync",
					"path", event.Path,
					"buffer", cap(subscription.events),
				)
			}
		}
	}
}

func (s *Store) snapshotLocked(prefixes []sharedvar.Path) []Entry {
	entries := make([]Entry, 0, len(s.values))
	for path, value := range s.values {
		if matchesPrefixes(prefixes, path) {
			entries = append(entries, Entry{Path: path.String(), Value: value})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries
}

// Subscription receives the changes of a Store.
type Subscription struct {
	store    *Store
	prefixes []sharedvar.Path
	events   chan Event
	resync   atomic.Bool
}

// Events delivers changes in the order they were made.
func (s *Subscription) Events() <-chan Event { return s.events }

// NeedsResync reports whether events were dropped since the last
// Resync.
func (s *Subscription) NeedsResync() bool { return s.resync.Load() }

// Resync discards buffered events, clears the resync mark, and returns
// a fresh snapshot. Changes made after the snapshot are delivered on
// Events as usual.
func (s *Subscription) Resync() []Entry {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	for len(s.events) > 0 {
		<-s.events
	}
	s.resync.Store(false)
	return s.store.snapshotLocked(s.prefixes)
}

// matchesPrefixes reports whether path is selected by prefixes. No
// prefixes selects every path.
func matchesPrefixes(prefixes []sharedvar.Path, path sharedvar.Path) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, prefix := range prefixes {
		if path.HasPrefix(prefix) {
			return true
		}
	}
	return false
}
