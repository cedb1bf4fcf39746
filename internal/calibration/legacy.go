// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

// LegacyModel is the single-channel IR calibration used when ratio mode is
// off. It is fixed at startup.
type LegacyModel struct {
	Intersection int
	Deviation    float64
}

// DefaultLegacyModel returns the factory IR-only parameters.
func DefaultLegacyModel() LegacyModel {
	return LegacyModel{Intersection: 117, Deviation: 0.165}
}

// RoastIndex maps a scaled IR reading (raw IR / 1000) to a roast index.
func (m LegacyModel) RoastIndex(scaled int) int {
	x := float64(scaled)
	return Clamp(x - (float64(m.Intersection)-x)*m.Deviation)
}
