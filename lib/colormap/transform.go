// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package colormap

import (
	"slices"
	"strings"
)

// Data transforms applied to pixel values before colormapping.
const (
	TransformNone   = "None"
	TransformLog    = "Log"
	TransformSqrt   = "Sqrt"
	TransformSquare = "Square"
	TransformPower  = "Power"
)

// ImageTransformGamma is the only image transform; it is controlled
// through setScales.
const ImageTransformGamma = "Gamma"

var dataTransforms = []string{TransformNone, TransformLog, TransformSqrt, TransformSquare, TransformPower}

// DataTransforms returns the known data transform names.
func DataTransforms() []string { return slices.Clone(dataTransforms) }

// ResolveDataTransform returns the canonical spelling of name, matched
// case-insensitively.
func ResolveDataTransform(name string) (string, bool) {
	for _, transform := range dataTransforms {
		if strings.EqualFold(transform, name) {
			return transform, true
		}
	}
	return "", false
}
