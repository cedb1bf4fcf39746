// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTables = map[string][]Point{
	"default":    DefaultPoints,
	"descending": {{0.10, 120}, {0.20, 90}, {0.35, 70}, {0.60, 40}, {0.90, 20}},
	"uneven":     {{0.31, 22}, {0.32, 30}, {0.50, 31}, {0.77, 88}, {0.99, 129}},
	"flat":       {{0.40, 60}, {0.50, 60}, {0.60, 60}, {0.70, 60}, {0.80, 60}},
}

func TestRoastIndex_PassesThroughControlPoints(t *testing.T) {
	for name, points := range testTables {
		t.Run(name, func(t *testing.T) {
			c, err := Build(points)
			require.NoError(t, err)
			for i, p := range points {
				assert.Equal(t, p.RoastIndex, c.RoastIndex(p.Ratio), "point %d", i)
			}
		})
	}
}

func TestRoastIndex_InterpolationStaysWithinSegment(t *testing.T) {
	for name, points := range testTables {
		t.Run(name, func(t *testing.T) {
			c, err := Build(points)
			require.NoError(t, err)
			for i := 0; i < NumPoints-1; i++ {
				a, b := points[i], points[i+1]
				lo, hi := min(a.RoastIndex, b.RoastIndex), max(a.RoastIndex, b.RoastIndex)
				for k := 1; k < 20; k++ {
					r := a.Ratio + (b.Ratio-a.Ratio)*float64(k)/20
					got := c.RoastIndex(r)
					assert.GreaterOrEqual(t, got, lo, "ratio %.4f", r)
					assert.LessOrEqual(t, got, hi, "ratio %.4f", r)
				}
			}
		})
	}
}

func TestRoastIndex_NonDecreasingAcrossTable(t *testing.T) {
	c := DefaultCurve()
	prev := c.RoastIndex(0)
	for r := 0.0; r <= 1.5; r += 0.005 {
		got := c.RoastIndex(r)
		assert.GreaterOrEqual(t, got, prev, "ratio %.3f", r)
		prev = got
	}
}

func TestRoastIndex_MidSegment(t *testing.T) {
	c := DefaultCurve()
	assert.Equal(t, 42, c.RoastIndex(0.5))
	assert.Equal(t, 71, c.RoastIndex(0.69))
}

func TestRoastIndex_Extrapolation(t *testing.T) {
	c := DefaultCurve()

	tests := []struct {
		name  string
		ratio float64
		want  int
	}{
		{"below continues first slope", 0.35, 20},
		{"above continues last slope", 0.95, 110},
		{"far below clamps", 0.0, MinRoastIndex},
		{"negative clamps", -3, MinRoastIndex},
		{"far above clamps", 2.0, MaxRoastIndex},
		{"+inf clamps", math.Inf(1), MaxRoastIndex},
		{"-inf clamps", math.Inf(-1), MinRoastIndex},
		{"nan", math.NaN(), MinRoastIndex},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.RoastIndex(tt.ratio))
		})
	}
}

func TestRoastIndex_DescendingExtrapolationClamps(t *testing.T) {
	c, err := Build(testTables["descending"])
	require.NoError(t, err)
	assert.Equal(t, MaxRoastIndex, c.RoastIndex(0.0))
	assert.Equal(t, MinRoastIndex, c.RoastIndex(5.0))
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build([]Point{{0.5, 40}, {0.4, 50}})
	assert.ErrorIs(t, err, ErrNonMonotonicPoints)

	_, err = Build([]Point{{0.4, 40}, {0.5, 50}, {0.6, 60}, {0.7, 70}})
	assert.ErrorIs(t, err, ErrWrongPointCount)

	_, err = Build([]Point{{0.4, 40}, {0.5, 50}, {0.5, 60}, {0.7, 70}, {0.8, 80}})
	assert.ErrorIs(t, err, ErrNonMonotonicPoints, "equal ratios are not strictly increasing")

	_, err = Build([]Point{{0.4, 40}, {math.NaN(), 50}, {0.6, 60}, {0.7, 70}, {0.8, 80}})
	assert.ErrorIs(t, err, ErrNonMonotonicPoints)

	_, err = Build(append(DefaultPoints[:5:5], Point{0.95, 110}))
	assert.ErrorIs(t, err, ErrWrongPointCount)

	_, err = Build(nil)
	assert.ErrorIs(t, err, ErrWrongPointCount)
}

func TestCurve_PointsIsACopy(t *testing.T) {
	c := DefaultCurve()
	pts := c.Points()
	pts[0].RoastIndex = 999
	assert.Equal(t, 35, c.Points()[0].RoastIndex)
	assert.Equal(t, DefaultPoints, c.Points())
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 15, Clamp(14.4))
	assert.Equal(t, 15, Clamp(14.5))
	assert.Equal(t, 42, Clamp(42.4))
	assert.Equal(t, 43, Clamp(42.5))
	assert.Equal(t, 130, Clamp(130.49))
	assert.Equal(t, 130, Clamp(1e12))
}
