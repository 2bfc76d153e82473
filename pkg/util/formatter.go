package util

import (
	"fmt"
	"math"
)

// prefixes run from the largest scale down; values below the last one fall
// back to exponent notation.
var prefixes = []struct {
	floor  float64
	scale  float64
	prefix string
}{
	{1, 1, ""},
	{1e-3, 1e3, "m"},
	{1e-6, 1e6, "u"},
	{1e-9, 1e9, "n"},
	{1e-12, 1e12, "p"},
}

// FormatValueFactor prints value with three decimals and an SI prefix,
// e.g. 0.0125 V as "12.500 mV".
func FormatValueFactor(value float64, unit string) string {
	mag := math.Abs(value)
	if mag == 0 {
		return "0.000 " + unit
	}
	for _, p := range prefixes {
		if mag >= p.floor {
			return fmt.Sprintf("%.3f %s%s", value*p.scale, p.prefix, unit)
		}
	}
	return fmt.Sprintf("%.3e %s", value, unit)
}
