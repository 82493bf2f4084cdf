// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package colormap

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// OptionsPayload is the colormap catalog published at CatalogPath.
type OptionsPayload struct {
	ColorMapCount int      `json:"colorMapCount"`
	Maps          []string `json:"maps"`
}

// NewOptionsPayload returns a payload listing maps with a matching
// count.
func NewOptionsPayload(maps []string) OptionsPayload {
	return OptionsPayload{ColorMapCount: len(maps), Maps: maps}
}

// Validate checks that the count matches the list and that every name
// is non-empty.
func (p *OptionsPayload) Validate() error {
	if p.ColorMapCount < 0 {
		return fmt.Errorf("colorMapCount must be >= 0, got %d", p.ColorMapCount)
	}
	if p.ColorMapCount != len(p.Maps) {
		return fmt.Errorf("colorMapCount is %d but maps has %d entries", p.ColorMapCount, len(p.Maps))
	}
	for index, name := range p.Maps {
		if name == "" {
			return fmt.Errorf("maps[%d] is empty", index)
		}
	}
	return nil
}

// BoundsPayload is the displayable intensity range published at
// "<target>/data".
type BoundsPayload struct {
	IntensityMin float64 `json:"intensityMin"`
	IntensityMax float64 `json:"intensityMax"`
}

// Validate checks that both bounds are finite.
func (p *BoundsPayload) Validate() error {
	if !isFinite(p.IntensityMin) {
		return fmt.Errorf("intensityMin must be finite, got %v", p.IntensityMin)
	}
	if !isFinite(p.IntensityMax) {
		return fmt.Errorf("intensityMax must be finite, got %v", p.IntensityMax)
	}
	return nil
}

// ColorMix scales each color channel, each in [0,1].
type ColorMix struct {
	RedPercent   float64 `json:"redPercent"`
	GreenPercent float64 `json:"greenPercent"`
	BluePercent  float64 `json:"bluePercent"`
}

// StatePayload is the full state of one colormap object, published at
// the target's own path.
type StatePayload struct {
	ColorMapName      string   `json:"colorMapName"`
	Reverse           bool     `json:"reverse"`
	Invert            bool     `json:"invert"`
	ColorMix          ColorMix `json:"colorMix"`
	Scale1            float64  `json:"scale1"`
	Scale2            float64  `json:"scale2"`
	Gamma             float64  `json:"gamma"`
	SignificantDigits int      `json:"significantDigits"`
	ImageTransform    string   `json:"imageTransform"`
	DataTransform     string   `json:"dataTransform"`
}

// Validate checks the invariants the authority maintains.
func (p *StatePayload) Validate() error {
	if p.ColorMapName == "" {
		return errors.New("colorMapName is required")
	}
	for _, channel := range []struct {
		name  string
		value float64
	}{
		{"redPercent", p.ColorMix.RedPercent},
		{"greenPercent", p.ColorMix.GreenPercent},
		{"bluePercent", p.ColorMix.BluePercent},
	} {
		if !(channel.value >= 0 && channel.value <= 1) {
			return fmt.Errorf("colorMix.%s must be in [0,1], got %v", channel.name, channel.value)
		}
	}
	if !isFinite(p.Gamma) || p.Gamma <= 0 {
		return fmt.Errorf("gamma must be a positive number, got %v", p.Gamma)
	}
	if p.SignificantDigits <= 0 {
		return fmt.Errorf("significantDigits must be positive, got %d", p.SignificantDigits)
	}
	if p.ImageTransform == "" {
		return errors.New("imageTransform is required")
	}
	if p.DataTransform == "" {
		return errors.New("dataTransform is required")
	}
	return nil
}

// ParseOptions decodes and validates a catalog payload. Both fields
// must be present.
func ParseOptions(raw string) (OptionsPayload, error) {
	var wire struct {
		ColorMapCount *int      `json:"colorMapCount"`
		Maps          *[]string `json:"maps"`
	}
	if err := decodeObject(raw, &wire); err != nil {
		return OptionsPayload{}, &ParseError{Kind: KindOptions, Raw: raw, Err: err}
	}
	if wire.ColorMapCount == nil {
		return OptionsPayload{}, &ParseError{Kind: KindOptions, Raw: raw, Err: errors.New("colorMapCount is required")}
	}
	if wire.Maps == nil {
		return OptionsPayload{}, &ParseError{Kind: KindOptions, Raw: raw, Err: errors.New("maps is required")}
	}
	payload := OptionsPayload{ColorMapCount: *wire.ColorMapCount, Maps: *wire.Maps}
	if payload.Maps == nil {
		payload.Maps = []string{}
	}
	if err := payload.Validate(); err != nil {
		return OptionsPayload{}, &ParseError{Kind: KindOptions, Raw: raw, Err: err}
	}
	return payload, nil
}

// ParseBounds decodes and validates a bounds payload. Both fields must
// be present.
func ParseBounds(raw string) (BoundsPayload, error) {
	var wire struct {
		IntensityMin *float64 `json:"intensityMin"`
		IntensityMax *float64 `json:"intensityMax"`
	}
	if err := decodeObject(raw, &wire); err != nil {
		return BoundsPayload{}, &ParseError{Kind: KindBounds, Raw: raw, Err: err}
	}
	if wire.IntensityMin == nil {
		return BoundsPayload{}, &ParseError{Kind: KindBounds, Raw: raw, Err: errors.New("intensityMin is required")}
	}
	if wire.IntensityMax == nil {
		return BoundsPayload{}, &ParseError{Kind: KindBounds, Raw: raw, Err: errors.New("intensityMax is required")}
	}
	payload := BoundsPayload{IntensityMin: *wire.IntensityMin, IntensityMax: *wire.IntensityMax}
	if err := payload.Validate(); err != nil {
		return BoundsPayload{}, &ParseError{Kind: KindBounds, Raw: raw, Err: err}
	}
	return payload, nil
}

// ParseState decodes and validates a colormap object state payload.
func ParseState(raw string) (StatePayload, error) {
	var payload StatePayload
	if err := decodeObject(raw, &payload); err != nil {
		return StatePayload{}, &ParseError{Kind: KindState, Raw: raw, Err: err}
	}
	if err := payload.Validate(); err != nil {
		return StatePayload{}, &ParseError{Kind: KindState, Raw: raw, Err: err}
	}
	return payload, nil
}

// Encode returns the JSON text of a payload, as published in a shared
// variable.
func Encode(payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeObject decodes exactly one JSON object from raw. Trailing data
// after the object is an error.
func decodeObject(raw string, target any) error {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 {
		return errors.New("payload is empty")
	}
	if trimmed[0] != '{' {
		return errors.New("payload is not a JSON object")
	}
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	if err := decoder.Decode(target); err != nil {
		return err
	}
	if decoder.More() {
		return errors.New("unexpected data after JSON object")
	}
	return nil
}

func isFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
