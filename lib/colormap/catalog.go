// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package colormap

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/tidwall/jsonc"

	colormapschema "github.com/bureau-foundation/statesync/lib/schema/colormap"
)

// defaultMaps is the built-in catalog. The first entry is the default
// colormap of new objects.
var defaultMaps = []string{
	"Gray", "Heat", "Hot", "Cool", "Jet", "Rainbow",
	"Spring", "Summer", "Autumn", "Winter", "Bone", "Copper",
}

// Catalog is an ordered, duplicate-free list of colormap names.
type Catalog struct {
	names []string
}

// NewCatalog validates names. Names must be non-empty, unique, and
// free of ',' and ':' so they survive command parameter encoding.
func NewCatalog(names []string) (*Catalog, error) {
	seen := make(map[string]bool, len(names))
	for index, name := range names {
		if name == "" {
			return nil, fmt.Errorf("colormap %d has an empty name", index)
		}
		if strings.ContainsAny(name, ",:") {
			return nil, fmt.Errorf("colormap name %q contains ',' or ':'", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("colormap %q is listed twice", name)
		}
		seen[name] = true
	}
	return &Catalog{names: slices.Clone(names)}, nil
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	return &Catalog{names: slices.Clone(defaultMaps)}
}

// catalogFile is the on-disk catalog format.
type catalogFile struct {
	Maps []string `json:"maps"`
}

// LoadCatalog reads a catalog file: a JSON object with a "maps" array,
// where comments and trailing commas are allowed.
//
//	{
//	  // Shown first, and the default for new images.
//	  "maps": ["Gray", "Hot", "Cool",],
//	}
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading colormap catalog: %w", err)
	}
	var file catalogFile
	if err := json.Unmarshal(jsonc.ToJSON(data), &file); err != nil {
		return nil, fmt.Errorf("parsing colormap catalog %s: %w", path, err)
	}
	if len(file.Maps) == 0 {
		return nil, fmt.Errorf("colormap catalog %s lists no maps", path)
	}
	catalog, err := NewCatalog(file.Maps)
	if err != nil {
		return nil, fmt.Errorf("colormap catalog %s: %w", path, err)
	}
	return catalog, nil
}

// Names returns the colormap names in order.
func (c *Catalog) Names() []string { return slices.Clone(c.names) }

// Len returns the number of colormaps.
func (c *Catalog) Len() int { return len(c.names) }

// Contains reports whether name is in the catalog. Matching is exact.
func (c *Catalog) Contains(name string) bool {
	return slices.Contains(c.names, name)
}

// Default returns the colormap given to new objects: "Gray" when the
// catalog offers it, otherwise the first entry.
func (c *Catalog) Default() string {
	if c.Contains("Gray") || len(c.names) == 0 {
		return "Gray"
	}
	return c.names[0]
}

// Payload returns the catalog as published at CatalogPath.
func (c *Catalog) Payload() colormapschema.OptionsPayload {
	return colormapschema.NewOptionsPayload(c.Names())
}
