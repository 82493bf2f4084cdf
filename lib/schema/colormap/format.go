// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package colormap

import (
	"math"
	"strconv"
	"strings"
)

// FormatNumber renders value for display, independent of locale: the
// shortest decimal that round-trips ("-0.5", "12.75"). Magnitudes
// below 1e-6 or at least 1e21 use exponent form with an unpadded
// exponent ("1.5e-7", "1e+21"). Negative zero renders as "0".
func FormatNumber(value float64) string {
	switch {
	case math.IsNaN(value):
		return "NaN"
	case math.IsInf(value, 1):
		return "Infinity"
	case math.IsInf(value, -1):
		return "-Infinity"
	case value == 0:
		return "0"
	}
	magnitude := math.Abs(value)
	if magnitude >= 1e21 || magnitude < 1e-6 {
		formatted := strconv.FormatFloat(value, 'e', -1, 64)
		mantissa, exponent, _ := strings.Cut(formatted, "e")
		sign := exponent[:1]
		digits := strings.TrimLeft(exponent[1:], "0")
		return mantissa + "e" + sign + digits
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
