// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package colormap

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/bureau-foundation/statesync/lib/command"
	colormapschema "github.com/bureau-foundation/statesync/lib/schema/colormap"
	"github.com/bureau-foundation/statesync/lib/sharedvar"
	"github.com/bureau-foundation/statesync/lib/statestore"
)

// Authority owns the catalog and every colormap object.
type Authority struct {
	store       *statestore.Store
	logger      *slog.Logger
	catalogPath sharedvar.Path

	catalog atomic.Pointer[Catalog]

	mu      sync.RWMutex
	objects map[string]*Object
}

// NewAuthority returns an Authority with no objects and publishes
// catalog.
func NewAuthority(catalog *Catalog, store *statestore.Store, logger *slog.Logger) (*Authority, error) {
	authority := &Authority{
		store:       store,
		logger:      logger,
		catalogPath: sharedvar.MustParsePath(colormapschema.CatalogPath),
		objects:     make(map[string]*Object),
	}
	if err := authority.SetCatalog(catalog); err != nil {
		return nil, err
	}
	return authority, nil
}

// Catalog returns the current catalog.
func (a *Authority) Catalog() *Catalog { return a.catalog.Load() }

// SetCatalog replaces the catalog and publishes it. Objects keep their
// current colormap even if the new catalog no longer lists it; only
// new setColormap commands are checked against the new catalog.
func (a *Authority) SetCatalog(catalog *Catalog) error {
	raw, err := colormapschema.Encode(catalog.Payload())
	if err != nil {
		return fmt.Errorf("encoding colormap catalog: %w", err)
	}
	a.catalog.Store(catalog)
	if a.store.Set(a.catalogPath, raw) {
		a.logger.Info("colormap catalog published", "maps", catalog.Len())
	}
	return nil
}

// AddObject creates the colormap object id with the given intensity
// bounds and publishes its state.
func (a *Authority) AddObject(id string, bounds colormapschema.BoundsPayload) (*Object, error) {
	path, err := sharedvar.ParsePath(id)
	if err != nil {
		return nil, err
	}
	if path.String() == colormapschema.CatalogPath {
		return nil, fmt.Errorf("object id %q is reserved for the colormap catalog", id)
	}
	if len(path.Segments()) != 1 {
		return nil, fmt.Errorf("object id %q must be a single path segment", id)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.objects[id]; exists {
		return nil, fmt.Errorf("object %q already exists", id)
	}
	object, err := newObject(path, a.Catalog, a.store, a.logger, bounds)
	if err != nil {
		return nil, err
	}
	a.objects[id] = object
	a.logger.Info("colormap object added",
		"object", id,
		"intensity_min", bounds.IntensityMin,
		"intensity_max", bounds.IntensityMax,
	)
	return object, nil
}

// Object returns the object id.
func (a *Authority) Object(id string) (*Object, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	object, ok := a.objects[id]
	return object, ok
}

// Objects returns the object ids, sorted.
func (a *Authority) Objects() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ids := make([]string, 0, len(a.objects))
	for id := range a.objects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Execute runs the command "<id>:<name>" with wire-encoded params. A
// refusal by the object is a *command.RejectedError; unknown objects,
// unknown commands, and malformed command names are other errors.
func (a *Authority) Execute(qualified, encodedParams string) (string, error) {
	target, name, err := command.SplitQualified(qualified)
	if err != nil {
		return "", err
	}
	object, ok := a.Object(target)
	if !ok {
		return "", fmt.Errorf("no colormap object %q", target)
	}
	params, err := command.ParseParams(encodedParams)
	if err != nil {
		// setColormap refusals always carry the current name, even
		// when the parameters themselves are unreadable.
		if name == colormapschema.CommandSetColormap {
			return "", &command.RejectedError{Command: qualified, Reason: object.State().ColorMapName}
		}
		return "", &command.RejectedError{Command: qualified, Reason: "Invalid parameters: " + err.Error()}
	}
	return object.execute(name, params)
}
