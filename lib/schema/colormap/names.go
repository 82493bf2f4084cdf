// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package colormap

import (
	"github.com/bureau-foundation/statesync/lib/sharedvar"
)

const (
	// CatalogPath is the shared variable listing every colormap.
	CatalogPath = "colormaps"

	// DataSegment is appended to a target path to name its bounds
	// variable.
	DataSegment = "data"
)

// Command names, unqualified.
const (
	CommandSetColormap          = "setColormap"
	CommandInvertColormap       = "invertColormap"
	CommandReverseColormap      = "reverseColormap"
	CommandSetColorMix          = "setColorMix"
	CommandSetScales            = "setScales"
	CommandSetSignificantDigits = "setSignificantDigits"
	CommandSetDataTransform     = "setDataTransform"
	CommandSetIntensityRange    = "setIntensityRange"
)

// Parameter keys.
const (
	ParamName              = "name"
	ParamInvert            = "invert"
	ParamReverse           = "reverse"
	ParamRedPercent        = "redPercent"
	ParamGreenPercent      = "greenPercent"
	ParamBluePercent       = "bluePercent"
	ParamScale1            = "scale1"
	ParamScale2            = "scale2"
	ParamSignificantDigits = "significantDigits"
	ParamDataTransform     = "dataTransform"
	ParamIntensityMin      = "intensityMin"
	ParamIntensityMax      = "intensityMax"
)

// DataPath returns "<target>/data". Errors are *sharedvar.BindingError.
func DataPath(target string) (sharedvar.Path, error) {
	base, err := sharedvar.ParsePath(target)
	if err != nil {
		return sharedvar.Path{}, err
	}
	return base.Child(DataSegment)
}
