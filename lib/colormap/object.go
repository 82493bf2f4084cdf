// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package colormap

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/bureau-foundation/statesync/lib/command"
	colormapschema "github.com/bureau-foundation/statesync/lib/schema/colormap"
	"github.com/bureau-foundation/statesync/lib/sharedvar"
	"github.com/bureau-foundation/statesync/lib/statestore"
)

const (
	// defaultSignificantDigits sets the initial gamma rounding and
	// change threshold.
	defaultSignificantDigits = 6

	// colorMixThreshold is the smallest color mix change applied.
	colorMixThreshold = 0.001
)

// Object is the colormap of one target entity.
type Object struct {
	id       sharedvar.Path
	dataPath sharedvar.Path
	catalog  func() *Catalog
	store    *statestore.Store
	logger   *slog.Logger

	mu          sync.Mutex
	state       colormapschema.StatePayload
	bounds      colormapschema.BoundsPayload
	errorMargin float64
}

func newObject(id sharedvar.Path, catalog func() *Catalog, store *statestore.Store, logger *slog.Logger, bounds colormapschema.BoundsPayload) (*Object, error) {
	dataPath, err := id.Child(colormapschema.DataSegment)
	if err != nil {
		return nil, err
	}
	if err := bounds.Validate(); err != nil {
		return nil, fmt.Errorf("object %s: %w", id, err)
	}
	if bounds.IntensityMin > bounds.IntensityMax {
		return nil, fmt.Errorf("object %s: intensityMin %v exceeds intensityMax %v", id, bounds.IntensityMin, bounds.IntensityMax)
	}
	object := &Object{
		id:       id,
		dataPath: dataPath,
		catalog:  catalog,
		store:    store,
		logger:   logger.With("object", id.String()),
		state: colormapschema.StatePayload{
			ColorMapName:      catalog().Default(),
			ColorMix:          colormapschema.ColorMix{RedPercent: 1, GreenPercent: 1, BluePercent: 1},
			Gamma:             1,
			SignificantDigits: defaultSignificantDigits,
			ImageTransform:    ImageTransformGamma,
			DataTransform:     TransformNone,
		},
		bounds: bounds,
	}
	object.errorMargin = errorMarginFor(defaultSignificantDigits)

	object.mu.Lock()
	defer object.mu.Unlock()
	if err := object.publishStateLocked(); err != nil {
		return nil, err
	}
	if err := object.publishBoundsLocked(); err != nil {
		return nil, err
	}
	return object, nil
}

// ID returns the object's path.
func (o *Object) ID() sharedvar.Path { return o.id }

// State returns the current state.
func (o *Object) State() colormapschema.StatePayload {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Bounds returns the current intensity bounds.
func (o *Object) Bounds() colormapschema.BoundsPayload {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.bounds
}

// execute runs one command. Refusals are *command.RejectedError.
func (o *Object) execute(name string, params command.Params) (string, error) {
	qualified := command.Qualify(o.id.String(), name)
	o.mu.Lock()
	defer o.mu.Unlock()

	var reason string
	switch name {
	case colormapschema.CommandSetColormap:
		reason = o.setColormapLocked(params)
	case colormapschema.CommandInvertColormap:
		reason = o.setFlagLocked(params, colormapschema.ParamInvert, &o.state.Invert,
			"Invert color map parameters must be true/false")
	case colormapschema.CommandReverseColormap:
		reason = o.setFlagLocked(params, colormapschema.ParamReverse, &o.state.Reverse,
			"Invalid color map reverse parameters")
	case colormapschema.CommandSetColorMix:
		reason = o.setColorMixLocked(params)
	case colormapschema.CommandSetScales:
		reason = o.setScalesLocked(params)
	case colormapschema.CommandSetSignificantDigits:
		reason = o.setSignificantDigitsLocked(params)
	case colormapschema.CommandSetDataTransform:
		reason = o.setDataTransformLocked(params)
	case colormapschema.CommandSetIntensityRange:
		reason = o.setIntensityRangeLocked(params)
	default:
		return "", fmt.Errorf("object %s has no command %q", o.id, name)
	}
	if reason != "" {
		o.logger.Info("command rejected", "command", qualified, "reason", reason)
		return "", &command.RejectedError{Command: qualified, Reason: reason}
	}
	return "", nil
}

// setColormapLocked refuses with the current map name so clients can
// revert their display.
func (o *Object) setColormapLocked(params command.Params) string {
	current := o.state.ColorMapName
	name, ok := params.Get(colormapschema.ParamName)
	if !ok || !o.catalog().Contains(name) {
		o.logger.Debug("invalid colormap requested", "requested", name, "current", current)
		return current
	}
	if name != current {
		o.state.ColorMapName = name
		o.commitStateLocked()
	}
	return ""
}

func (o *Object) setFlagLocked(params command.Params, key string, field *bool, invalid string) string {
	raw, ok := params.Get(key)
	value, valid := parseBool(raw)
	if !ok || !valid {
		return invalid + ": " + encodeForMessage(params)
	}
	if *field != value {
		*field = value
		o.commitStateLocked()
	}
	return ""
}

// setColorMixLocked applies every in-range channel even when another
// channel is out of range; the rejection lists the bad channels.
func (o *Object) setColorMixLocked(params command.Params) string {
	values, err := params.Lookup(colormapschema.ParamRedPercent, colormapschema.ParamGreenPercent, colormapschema.ParamBluePercent)
	if err != nil {
		return "Color mix values must be numbers: " + encodeForMessage(params)
	}
	red, redErr := parseFloat(values[colormapschema.ParamRedPercent])
	green, greenErr := parseFloat(values[colormapschema.ParamGreenPercent])
	blue, blueErr := parseFloat(values[colormapschema.ParamBluePercent])
	if redErr != nil || greenErr != nil || blueErr != nil {
		return "Color mix values must be numbers: " + encodeForMessage(params)
	}

	var problems strings.Builder
	changed := false
	for _, channel := range []struct {
		key   string
		value float64
		field *float64
	}{
		{colormapschema.ParamGreenPercent, green, &o.state.ColorMix.GreenPercent},
		{colormapschema.ParamRedPercent, red, &o.state.ColorMix.RedPercent},
		{colormapschema.ParamBluePercent, blue, &o.state.ColorMix.BluePercent},
	} {
		if channel.value < 0 || channel.value > 1 {
			fmt.Fprintf(&problems, "%s mix must be in [0,1]. ", channel.key)
			continue
		}
		if math.Abs(channel.value-*channel.field) >= colorMixThreshold {
			*channel.field = channel.value
			changed = true
		}
	}
	if changed {
		o.commitStateLocked()
	}
	return strings.TrimSpace(problems.String())
}

func (o *Object) setScalesLocked(params command.Params) string {
	values, err := params.Lookup(colormapschema.ParamScale1, colormapschema.ParamScale2)
	if err != nil {
		return "Invalid color scale: " + encodeForMessage(params)
	}
	scale1, err1 := parseFloat(values[colormapschema.ParamScale1])
	scale2, err2 := parseFloat(values[colormapschema.ParamScale2])
	if err1 != nil || err2 != nil {
		return "Invalid color scale: " + encodeForMessage(params)
	}
	if scale1 == o.state.Scale1 && scale2 == o.state.Scale2 {
		return ""
	}
	o.state.Scale1 = scale1
	o.state.Scale2 = scale2

	gamma := GammaFromScales(scale1, scale2)
	if math.Abs(gamma-o.state.Gamma) > o.errorMargin {
		o.state.Gamma = roundToDigits(gamma, o.state.SignificantDigits)
	}
	o.commitStateLocked()
	return ""
}

func (o *Object) setSignificantDigitsLocked(params command.Params) string {
	raw, ok := params.Get(colormapschema.ParamSignificantDigits)
	digits, err := strconv.Atoi(raw)
	if !ok || err != nil {
		return "Colormap significant digits must be an integer: " + encodeForMessage(params)
	}
	if digits <= 0 {
		return "Invalid significant digits; must be positive: " + strconv.Itoa(digits)
	}
	if digits != o.state.SignificantDigits {
		o.state.SignificantDigits = digits
		o.errorMargin = errorMarginFor(digits)
		o.commitStateLocked()
	}
	return ""
}

func (o *Object) setDataTransformLocked(params command.Params) string {
	raw, _ := params.Get(colormapschema.ParamDataTransform)
	transform, ok := ResolveDataTransform(raw)
	if !ok {
		return "Invalid data transform: " + raw
	}
	if transform != o.state.DataTransform {
		o.state.DataTransform = transform
		o.commitStateLocked()
	}
	return ""
}

func (o *Object) setIntensityRangeLocked(params command.Params) string {
	values, err := params.Lookup(colormapschema.ParamIntensityMin, colormapschema.ParamIntensityMax)
	if err != nil {
		return "Invalid intensity range: " + err.Error()
	}
	low, err1 := parseFloat(values[colormapschema.ParamIntensityMin])
	high, err2 := parseFloat(values[colormapschema.ParamIntensityMax])
	if err1 != nil || err2 != nil {
		return "Intensity bounds must be finite numbers: " + encodeForMessage(params)
	}
	if low > high {
		return fmt.Sprintf("Invalid intensity range: minimum %s exceeds maximum %s",
			colormapschema.FormatNumber(low), colormapschema.FormatNumber(high))
	}
	if low == o.bounds.IntensityMin && high == o.bounds.IntensityMax {
		return ""
	}
	o.bounds = colormapschema.BoundsPayload{IntensityMin: low, IntensityMax: high}
	if err := o.publishBoundsLocked(); err != nil {
		o.logger.Error("publishing bounds", "error", err)
	}
	return ""
}

// commitStateLocked publishes the state after a change. The state
// structure always encodes, so a failure here is a programming error
// and is logged rather than returned to the client.
func (o *Object) commitStateLocked() {
	if err := o.publishStateLocked(); err != nil {
		o.logger.Error("publishing state", "error", err)
	}
}

func (o *Object) publishStateLocked() error {
	raw, err := colormapschema.Encode(o.state)
	if err != nil {
		return fmt.Errorf("encoding state of %s: %w", o.id, err)
	}
	if o.store.Set(o.id, raw) {
		o.logger.Debug("state published", "colormap", o.state.ColorMapName)
	}
	return nil
}

func (o *Object) publishBoundsLocked() error {
	raw, err := colormapschema.Encode(o.bounds)
	if err != nil {
		return fmt.Errorf("encoding bounds of %s: %w", o.id, err)
	}
	o.store.Set(o.dataPath, raw)
	return nil
}

// GammaFromScales maps the two scale controls to a gamma value. scale2
// sets the magnitude range (2^0 to 2^10 across [-1,1]) and scale1 the
// position within it; negative scale1 inverts gamma.
func GammaFromScales(scale1, scale2 float64) float64 {
	const maxDigits = 10
	digits := (scale2 + 1) / 2 * maxDigits
	exponent := math.Pow(2, digits)
	cubic := math.Pow(scale1*2, 3) / 8
	gamma := math.Abs(cubic)*exponent + 1
	if scale1 < 0 {
		gamma = 1 / gamma
	}
	return gamma
}

func errorMarginFor(digits int) float64 {
	return 1 / math.Pow(10, float64(digits))
}

// roundToDigits rounds value to the given number of significant
// digits.
func roundToDigits(value float64, digits int) float64 {
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(value, 'g', digits, 64), 64)
	if err != nil {
		return value
	}
	return rounded
}

func parseBool(raw string) (bool, bool) {
	switch {
	case strings.EqualFold(raw, "true"):
		return true, true
	case strings.EqualFold(raw, "false"):
		return false, true
	}
	return false, false
}

// parseFloat accepts finite decimal numbers only.
func parseFloat(raw string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%q is not finite", raw)
	}
	return value, nil
}

func encodeForMessage(params command.Params) string {
	encoded, err := params.Encode()
	if err != nil {
		return fmt.Sprint(params)
	}
	return encoded
}
