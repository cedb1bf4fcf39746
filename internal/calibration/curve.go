// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package calibration maps red/IR ratios to roast index values through a
// small piecewise-linear table, and manages the operator workflow that
// records new reference points.
package calibration

import (
	"fmt"
	"math"
	"sort"
)

const (
	// NumPoints is the fixed arity of every calibration curve.
	NumPoints = 5

	// MinRoastIndex and MaxRoastIndex bound every reported roast index.
	MinRoastIndex = 15
	MaxRoastIndex = 130
)

// Point pairs an observed ratio with its known roast index.
type Point struct {
	Ratio      float64 `json:"ratio"`
	RoastIndex int     `json:"roast_index"`
}

// Curve is an immutable table of NumPoints points with strictly increasing
// ratios. The zero value is not usable; obtain curves from Build or
// DefaultCurve.
type Curve struct {
	points [NumPoints]Point
}

// DefaultPoints are the factory calibration points.
var DefaultPoints = []Point{
	{0.45, 35},
	{0.55, 50},
	{0.65, 65},
	{0.75, 80},
	{0.85, 95},
}

// DefaultCurve returns the factory calibration.
func DefaultCurve() Curve {
	c, err := Build(DefaultPoints)
	if err != nil {
		panic("calibration: invalid default points: " + err.Error())
	}
	return c
}

// Build validates points and returns a curve. This is the only way to
// construct a Curve. Ordering is checked before the point count.
func Build(points []Point) (Curve, error) {
	for i := 1; i < len(points); i++ {
		// !(a > b) also catches NaN ratios.
		if !(points[i].Ratio > points[i-1].Ratio) {
			return Curve{}, fmt.Errorf("%w: point %d ratio %.4f after %.4f",
				ErrNonMonotonicPoints, i+1, points[i].Ratio, points[i-1].Ratio)
		}
	}
	if len(points) != NumPoints {
		return Curve{}, fmt.Errorf("%w: got %d, want %d", ErrWrongPointCount, len(points), NumPoints)
	}
	var c Curve
	copy(c.points[:], points)
	return c, nil
}

// Points returns a copy of the curve's points in ratio order.
func (c Curve) Points() []Point {
	out := make([]Point, NumPoints)
	copy(out, c.points[:])
	return out
}

// RoastIndex maps a ratio to a roast index. Ratios outside the table
// continue the slope of the nearest boundary segment. The result is rounded
// and clamped, so this never fails.
func (c Curve) RoastIndex(ratio float64) int {
	if math.IsNaN(ratio) {
		return MinRoastIndex
	}
	p := c.points
	last := NumPoints - 1

	var result float64
	switch {
	case ratio <= p[0].Ratio:
		result = extrapolate(p[0], p[0], p[1], ratio)
	case ratio >= p[last].Ratio:
		result = extrapolate(p[last], p[last-1], p[last], ratio)
	default:
		// p[i] is the first point at or above ratio; the segment is [i-1, i].
		i := sort.Search(NumPoints, func(j int) bool { return p[j].Ratio >= ratio })
		a, b := p[i-1], p[i]
		t := (ratio - a.Ratio) / (b.Ratio - a.Ratio)
		result = float64(a.RoastIndex) + t*float64(b.RoastIndex-a.RoastIndex)
	}
	return Clamp(result)
}

// extrapolate continues the slope of segment [a, b] from anchor.
func extrapolate(anchor, a, b Point, ratio float64) float64 {
	return float64(anchor.RoastIndex) + slope(a, b)*(ratio-anchor.Ratio)
}

func slope(a, b Point) float64 {
	return float64(b.RoastIndex-a.RoastIndex) / (b.Ratio - a.Ratio)
}

// Clamp rounds v to the nearest integer and bounds it to
// [MinRoastIndex, MaxRoastIndex]. Rounding happens in float space so that
// infinite inputs clamp correctly.
func Clamp(v float64) int {
	if math.IsNaN(v) {
		return MinRoastIndex
	}
	return int(math.Max(MinRoastIndex, math.Min(MaxRoastIndex, math.Round(v))))
}
