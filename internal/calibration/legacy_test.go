// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLegacyModel_RoastIndex(t *testing.T) {
	m := DefaultLegacyModel()

	tests := []struct {
		scaled int
		want   int
	}{
		{40, 27},   // 40 - 77*0.165 = 27.295
		{100, 97},  // 100 - 17*0.165 = 97.195
		{117, 117}, // at the intersection the reading is unchanged
		{0, MinRoastIndex},
		{200, MaxRoastIndex},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, m.RoastIndex(tt.scaled), "scaled %d", tt.scaled)
	}
}

func TestLegacyModel_ZeroDeviationIsIdentity(t *testing.T) {
	m := LegacyModel{Intersection: 117}
	assert.Equal(t, 64, m.RoastIndex(64))
}
