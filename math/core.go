// math/core.go
// Copyright(c) 2025-2026 airlimit contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	gomath "math"

	"golang.org/x/exp/constraints"
)

// Degrees converts an angle expressed in radians to degrees
func Degrees(r float64) float64 {
	return r * 180 / gomath.Pi
}

// Radians converts an angle expressed in degrees to radians
func Radians(d float64) float64 {
	return d / 180 * gomath.Pi
}

func Abs[V constraints.Integer | constraints.Float](x V) V {
	if x < 0 {
		return -x
	}
	return x
}

func Sqr[V constraints.Integer | constraints.Float](v V) V { return v * v }

func Clamp[T constraints.Ordered](x T, low T, high T) T {
	if x < low {
		return low
	} else if x > high {
		return high
	}
	return x
}

func Lerp(x, a, b float64) float64 {
	return (1-x)*a + x*b
}

// RoundTo rounds v to the given number of decimal places, with halves
// rounded away from zero.
func RoundTo(v float64, places int) float64 {
	s := gomath.Pow10(places)
	return gomath.Round(v*s) / s
}

// Round8 rounds v to 8 decimal places. Coordinates go through this before
// they are used for triangle and line intersection tests.
func Round8(v float64) float64 {
	return RoundTo(v, 8)
}

// SafeASin is asin with its argument clamped to [-1,1], so that values
// just outside the range due to floating-point error don't give NaNs.
func SafeASin(a float64) float64 {
	return gomath.Asin(Clamp(a, -1, 1))
}
